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

var _ repository.ControlledBalanceRepository = (*ControlledBalanceRepo)(nil)

// ControlledBalanceRepo balances de período de sustancias controladas.
type ControlledBalanceRepo struct {
	q Querier
}

// NewControlledBalanceRepository construye el adaptador.
func NewControlledBalanceRepository(q Querier) *ControlledBalanceRepo {
	return &ControlledBalanceRepo{q: q}
}

const controlledBalanceColumns = `id, establishment_id, raw_material_id, classification, period_start, period_end,
	initial_balance, total_entries, total_exits, total_losses, total_adjustments, final_balance, movement_count,
	physical_count, difference, status, notes, closed_by, closed_at,
	submission_status, submission_protocol, submitted_at, generated_by, created_at, updated_at`

// Create persiste un balance generado.
func (r *ControlledBalanceRepo) Create(ctx context.Context, b *entity.ControlledSubstanceBalance) error {
	query := `INSERT INTO controlled_balances (` + controlledBalanceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`
	_, err := r.q.Exec(ctx, query,
		b.ID, b.EstablishmentID, b.RawMaterialID, b.Classification, b.PeriodStart, b.PeriodEnd,
		b.InitialBalance, b.TotalEntries, b.TotalExits, b.TotalLosses, b.TotalAdjustments, b.FinalBalance, b.MovementCount,
		b.PhysicalCount, b.Difference, b.Status, nullString(b.Notes), nullString(b.ClosedBy), b.ClosedAt,
		b.SubmissionStatus, nullString(b.SubmissionProtocol), b.SubmittedAt, b.GeneratedBy, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create controlled balance: %w", err)
	}
	return nil
}

// GetByID obtiene un balance por ID.
func (r *ControlledBalanceRepo) GetByID(ctx context.Context, id string) (*entity.ControlledSubstanceBalance, error) {
	return r.get(ctx, `SELECT `+controlledBalanceColumns+` FROM controlled_balances WHERE id = $1`, id)
}

// GetForUpdate obtiene el balance y bloquea la fila (SELECT FOR UPDATE).
func (r *ControlledBalanceRepo) GetForUpdate(ctx context.Context, id string) (*entity.ControlledSubstanceBalance, error) {
	return r.get(ctx, `SELECT `+controlledBalanceColumns+` FROM controlled_balances WHERE id = $1 FOR UPDATE`, id)
}

func (r *ControlledBalanceRepo) get(ctx context.Context, query, id string) (*entity.ControlledSubstanceBalance, error) {
	b, err := scanControlledBalance(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get controlled balance: %w", err)
	}
	return b, nil
}

// Update persiste cierre y seguimiento de envío. Los totales nunca se recalculan.
func (r *ControlledBalanceRepo) Update(ctx context.Context, b *entity.ControlledSubstanceBalance) error {
	query := `
		UPDATE controlled_balances SET physical_count = $2, difference = $3, status = $4, notes = $5,
			closed_by = $6, closed_at = $7, submission_status = $8, submission_protocol = $9, submitted_at = $10,
			updated_at = $11
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		b.ID, b.PhysicalCount, b.Difference, b.Status, nullString(b.Notes),
		nullString(b.ClosedBy), b.ClosedAt, b.SubmissionStatus, nullString(b.SubmissionProtocol), b.SubmittedAt,
		b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update controlled balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: balance %s", domain.ErrNotFound, b.ID)
	}
	return nil
}

// List lista balances con filtros, del período más reciente al más antiguo.
func (r *ControlledBalanceRepo) List(ctx context.Context, f repository.BalanceFilter) ([]*entity.ControlledSubstanceBalance, error) {
	w := &whereBuilder{}
	w.add("establishment_id = $%d", f.EstablishmentID)
	if f.RawMaterialID != "" {
		w.add("raw_material_id = $%d", f.RawMaterialID)
	}
	if f.Classification != "" {
		w.add("classification = $%d", f.Classification)
	}
	if f.Status != "" {
		w.add("status = $%d", f.Status)
	}
	if f.PeriodFrom != nil {
		w.add("period_end >= $%d", *f.PeriodFrom)
	}
	if f.PeriodTo != nil {
		w.add("period_start <= $%d", *f.PeriodTo)
	}
	query := `SELECT ` + controlledBalanceColumns + ` FROM controlled_balances` + w.sql() +
		` ORDER BY period_start DESC, raw_material_id, created_at` + w.page(f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list controlled balances: %w", err)
	}
	defer rows.Close()
	var list []*entity.ControlledSubstanceBalance
	for rows.Next() {
		b, err := scanControlledBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan controlled balance: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

func scanControlledBalance(row pgx.Row) (*entity.ControlledSubstanceBalance, error) {
	var b entity.ControlledSubstanceBalance
	var notes, closedBy, protocol *string
	err := row.Scan(
		&b.ID, &b.EstablishmentID, &b.RawMaterialID, &b.Classification, &b.PeriodStart, &b.PeriodEnd,
		&b.InitialBalance, &b.TotalEntries, &b.TotalExits, &b.TotalLosses, &b.TotalAdjustments, &b.FinalBalance, &b.MovementCount,
		&b.PhysicalCount, &b.Difference, &b.Status, &notes, &closedBy, &b.ClosedAt,
		&b.SubmissionStatus, &protocol, &b.SubmittedAt, &b.GeneratedBy, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Notes = derefString(notes)
	b.ClosedBy = derefString(closedBy)
	b.SubmissionProtocol = derefString(protocol)
	return &b, nil
}
