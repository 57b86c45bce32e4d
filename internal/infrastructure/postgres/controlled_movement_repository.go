package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/magistral-api/internal/domain"
	"github.com/jhoicas/magistral-api/internal/domain/entity"
	"github.com/jhoicas/magistral-api/internal/domain/repository"
)

var _ repository.ControlledMovementRepository = (*ControlledMovementRepo)(nil)

// ControlledMovementRepo libro de sustancias controladas sobre PostgreSQL (solo inserción).
type ControlledMovementRepo struct {
	q Querier
}

// NewControlledMovementRepository construye el adaptador.
func NewControlledMovementRepository(q Querier) *ControlledMovementRepo {
	return &ControlledMovementRepo{q: q}
}

const controlledMovementColumns = `id, establishment_id, raw_material_id, batch_id, type, classification, substance_code,
	quantity, balance_before, balance_after, sequence,
	document_number, prescription_number, prescription_date, prescriber_name, prescriber_council,
	prescriber_council_number, prescriber_state, patient_name, patient_document,
	stock_movement_id, reason, notes, performed_by, authorized_by, created_at`

// Create persiste un movimiento controlado.
func (r *ControlledMovementRepo) Create(ctx context.Context, m *entity.ControlledSubstanceMovement) error {
	query := `INSERT INTO controlled_movements (` + controlledMovementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`
	rec := m.RegulatoryRecord
	_, err := r.q.Exec(ctx, query,
		m.ID, m.EstablishmentID, m.RawMaterialID, nullString(m.BatchID), m.Type, m.Classification, nullString(m.SubstanceCode),
		m.Quantity, m.BalanceBefore, m.BalanceAfter, m.Sequence,
		nullString(rec.DocumentNumber), nullString(rec.PrescriptionNumber), rec.PrescriptionDate,
		nullString(rec.PrescriberName), nullString(rec.PrescriberCouncil), nullString(rec.PrescriberCouncilNumber),
		nullString(rec.PrescriberState), nullString(rec.PatientName), nullString(rec.PatientDocument),
		nullString(m.StockMovementID), nullString(m.Reason), nullString(m.Notes),
		m.PerformedBy, nullString(m.AuthorizedBy), m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) && constraintName(err) == "controlled_movements_sequence_key" {
			return fmt.Errorf("%w: secuencia controlada %d duplicada para %s", domain.ErrConcurrencyConflict, m.Sequence, m.RawMaterialID)
		}
		return fmt.Errorf("create controlled movement: %w", err)
	}
	return nil
}

// List devuelve movimientos controlados del establecimiento en orden de creación.
func (r *ControlledMovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.ControlledSubstanceMovement, error) {
	w := movementWhere(f)
	query := `SELECT ` + controlledMovementColumns + ` FROM controlled_movements` + w.sql() +
		movementOrder(f) + w.page(f.Limit, f.Offset)
	return r.list(ctx, query, w.args...)
}

// ListInRange devuelve los movimientos de [start, end] agrupables por materia prima (orden por materia prima y secuencia).
func (r *ControlledMovementRepo) ListInRange(ctx context.Context, establishmentID string, rawMaterialIDs []string, start, end time.Time) ([]*entity.ControlledSubstanceMovement, error) {
	w := &whereBuilder{}
	w.add("establishment_id = $%d", establishmentID)
	w.add("created_at >= $%d", start)
	w.add("created_at <= $%d", end)
	if len(rawMaterialIDs) > 0 {
		w.add("raw_material_id = ANY($%d)", rawMaterialIDs)
	}
	query := `SELECT ` + controlledMovementColumns + ` FROM controlled_movements` + w.sql() +
		` ORDER BY raw_material_id, sequence`
	return r.list(ctx, query, w.args...)
}

func (r *ControlledMovementRepo) list(ctx context.Context, query string, args ...any) ([]*entity.ControlledSubstanceMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list controlled movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.ControlledSubstanceMovement
	for rows.Next() {
		m, err := scanControlledMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan controlled movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func scanControlledMovement(row pgx.Row) (*entity.ControlledSubstanceMovement, error) {
	var m entity.ControlledSubstanceMovement
	var batch, substance, document, prescription, prescriber, council, councilNumber, state,
		patient, patientDoc, stockMovement, reason, notes, authorized *string
	err := row.Scan(
		&m.ID, &m.EstablishmentID, &m.RawMaterialID, &batch, &m.Type, &m.Classification, &substance,
		&m.Quantity, &m.BalanceBefore, &m.BalanceAfter, &m.Sequence,
		&document, &prescription, &m.PrescriptionDate, &prescriber, &council,
		&councilNumber, &state, &patient, &patientDoc,
		&stockMovement, &reason, &notes, &m.PerformedBy, &authorized, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.BatchID = derefString(batch)
	m.SubstanceCode = derefString(substance)
	m.DocumentNumber = derefString(document)
	m.PrescriptionNumber = derefString(prescription)
	m.PrescriberName = derefString(prescriber)
	m.PrescriberCouncil = derefString(council)
	m.PrescriberCouncilNumber = derefString(councilNumber)
	m.PrescriberState = derefString(state)
	m.PatientName = derefString(patient)
	m.PatientDocument = derefString(patientDoc)
	m.StockMovementID = derefString(stockMovement)
	m.Reason = derefString(reason)
	m.Notes = derefString(notes)
	m.AuthorizedBy = derefString(authorized)
	return &m, nil
}
