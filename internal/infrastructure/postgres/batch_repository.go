package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/magistral-api/internal/domain"
	"github.com/jhoicas/magistral-api/internal/domain/entity"
	"github.com/jhoicas/magistral-api/internal/domain/repository"
)

var _ repository.BatchRepository = (*BatchRepo)(nil)

// BatchRepo implementación de BatchRepository sobre PostgreSQL (usable con pool o tx).
type BatchRepo struct {
	q Querier
}

// NewBatchRepository construye el adaptador de lotes.
func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

const batchColumns = `id, establishment_id, raw_material_id, supplier_id, batch_number, invoice_number,
	received_quantity, current_quantity, unit_cost, received_at, manufactured_at, expires_at, status,
	certificate_number, certificate_issued_at, quality_notes,
	approved_by, approved_at, rejected_by, rejected_at, rejection_reason,
	created_by, created_at, updated_at`

// Create persiste un lote nuevo. Un número de lote repetido para el mismo proveedor y materia prima es un error de validación.
func (r *BatchRepo) Create(ctx context.Context, b *entity.Batch) error {
	query := `INSERT INTO batches (` + batchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`
	_, err := r.q.Exec(ctx, query,
		b.ID, b.EstablishmentID, b.RawMaterialID, b.SupplierID, b.BatchNumber, nullString(b.InvoiceNumber),
		b.ReceivedQuantity, b.CurrentQuantity, b.UnitCost, b.ReceivedAt, b.ManufacturedAt, b.ExpiresAt, b.Status,
		nullString(b.CertificateNumber), b.CertificateIssuedAt, nullString(b.QualityNotes),
		nullString(b.ApprovedBy), b.ApprovedAt, nullString(b.RejectedBy), b.RejectedAt, nullString(b.RejectionReason),
		b.CreatedBy, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) && constraintName(err) == "batches_number_key" {
			return fmt.Errorf("%w: el lote %s ya fue recibido", domain.ErrValidation, b.BatchNumber)
		}
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

// GetByID obtiene un lote por ID.
func (r *BatchRepo) GetByID(ctx context.Context, id string) (*entity.Batch, error) {
	return r.get(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = $1`, id)
}

// GetForUpdate obtiene el lote y bloquea la fila para update (SELECT FOR UPDATE).
func (r *BatchRepo) GetForUpdate(ctx context.Context, id string) (*entity.Batch, error) {
	return r.get(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = $1 FOR UPDATE`, id)
}

func (r *BatchRepo) get(ctx context.Context, query, id string) (*entity.Batch, error) {
	b, err := scanBatch(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return b, nil
}

// Update persiste estado, cantidades y sellos de calidad del lote.
func (r *BatchRepo) Update(ctx context.Context, b *entity.Batch) error {
	query := `
		UPDATE batches SET current_quantity = $2, status = $3, certificate_number = $4, quality_notes = $5,
			approved_by = $6, approved_at = $7, rejected_by = $8, rejected_at = $9, rejection_reason = $10,
			updated_at = $11
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		b.ID, b.CurrentQuantity, b.Status, nullString(b.CertificateNumber), nullString(b.QualityNotes),
		nullString(b.ApprovedBy), b.ApprovedAt, nullString(b.RejectedBy), b.RejectedAt, nullString(b.RejectionReason),
		b.UpdatedAt,
	)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: cantidad del lote fuera de rango", domain.ErrValidation)
		}
		return fmt.Errorf("update batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: lote %s", domain.ErrNotFound, b.ID)
	}
	return nil
}

// List lista lotes con filtros; vencido y agotado se evalúan contra filter.Now.
func (r *BatchRepo) List(ctx context.Context, f repository.BatchFilter) ([]*entity.Batch, error) {
	w := &whereBuilder{}
	w.add("establishment_id = $%d", f.EstablishmentID)
	if f.RawMaterialID != "" {
		w.add("raw_material_id = $%d", f.RawMaterialID)
	}
	if f.Status != "" {
		w.add("status = $%d", f.Status)
	}
	if f.Expired != nil {
		if *f.Expired {
			w.add("expires_at <= $%d", f.Now)
		} else {
			w.add("expires_at > $%d", f.Now)
		}
	}
	if f.Depleted != nil {
		if *f.Depleted {
			w.clauses = append(w.clauses, "current_quantity <= 0")
		} else {
			w.clauses = append(w.clauses, "current_quantity > 0")
		}
	}
	if f.ExpiringBefore != nil {
		w.add("expires_at <= $%d", *f.ExpiringBefore)
	}
	query := `SELECT ` + batchColumns + ` FROM batches` + w.sql() + ` ORDER BY expires_at, batch_number`
	query += w.page(f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()
	var list []*entity.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

func scanBatch(row pgx.Row) (*entity.Batch, error) {
	var b entity.Batch
	var invoice, certificate, notes, approvedBy, rejectedBy, reason *string
	err := row.Scan(
		&b.ID, &b.EstablishmentID, &b.RawMaterialID, &b.SupplierID, &b.BatchNumber, &invoice,
		&b.ReceivedQuantity, &b.CurrentQuantity, &b.UnitCost, &b.ReceivedAt, &b.ManufacturedAt, &b.ExpiresAt, &b.Status,
		&certificate, &b.CertificateIssuedAt, &notes,
		&approvedBy, &b.ApprovedAt, &rejectedBy, &b.RejectedAt, &reason,
		&b.CreatedBy, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.InvoiceNumber = derefString(invoice)
	b.CertificateNumber = derefString(certificate)
	b.QualityNotes = derefString(notes)
	b.ApprovedBy = derefString(approvedBy)
	b.RejectedBy = derefString(rejectedBy)
	b.RejectionReason = derefString(reason)
	return &b, nil
}
