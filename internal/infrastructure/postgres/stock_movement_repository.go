package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/magistral-api/internal/domain"
	"github.com/jhoicas/magistral-api/internal/domain/entity"
	"github.com/jhoicas/magistral-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo libro de stock sobre PostgreSQL. Solo inserción: no existen UPDATE ni DELETE.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const stockMovementColumns = `id, establishment_id, raw_material_id, batch_id, type, quantity, stock_before, stock_after,
	unit_cost, sequence, reason, notes, order_id, sale_id, supplier_id, performed_by, authorized_by, created_at`

// Create persiste un movimiento. Una secuencia repetida indica dos escritores sobre el mismo saldo.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	query := `INSERT INTO stock_movements (` + stockMovementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.EstablishmentID, m.RawMaterialID, nullString(m.BatchID), m.Type, m.Quantity, m.StockBefore, m.StockAfter,
		m.UnitCost, m.Sequence, nullString(m.Reason), nullString(m.Notes),
		nullString(m.OrderID), nullString(m.SaleID), nullString(m.SupplierID),
		m.PerformedBy, nullString(m.AuthorizedBy), m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) && constraintName(err) == "stock_movements_sequence_key" {
			return fmt.Errorf("%w: secuencia %d duplicada para %s", domain.ErrConcurrencyConflict, m.Sequence, m.RawMaterialID)
		}
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// List devuelve movimientos del establecimiento en orden de creación.
func (r *StockMovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	w := movementWhere(f)
	query := `SELECT ` + stockMovementColumns + ` FROM stock_movements` + w.sql() +
		movementOrder(f) + w.page(f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanStockMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func movementWhere(f repository.MovementFilter) *whereBuilder {
	w := &whereBuilder{}
	w.add("establishment_id = $%d", f.EstablishmentID)
	if f.RawMaterialID != "" {
		w.add("raw_material_id = $%d", f.RawMaterialID)
	}
	if f.BatchID != "" {
		w.add("batch_id = $%d", f.BatchID)
	}
	if f.Type != "" {
		w.add("type = $%d", f.Type)
	}
	if f.From != nil {
		w.add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		w.add("created_at <= $%d", *f.To)
	}
	return w
}

// movementOrder ordena por secuencia cuando se filtra una materia prima (la cadena es por par),
// y por fecha de creación en listados generales.
func movementOrder(f repository.MovementFilter) string {
	if f.RawMaterialID != "" {
		return ` ORDER BY sequence`
	}
	return ` ORDER BY created_at, raw_material_id, sequence`
}

func scanStockMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var batch, reason, notes, order, sale, supplier, authorized *string
	err := row.Scan(
		&m.ID, &m.EstablishmentID, &m.RawMaterialID, &batch, &m.Type, &m.Quantity, &m.StockBefore, &m.StockAfter,
		&m.UnitCost, &m.Sequence, &reason, &notes, &order, &sale, &supplier,
		&m.PerformedBy, &authorized, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.BatchID = derefString(batch)
	m.Reason = derefString(reason)
	m.Notes = derefString(notes)
	m.OrderID = derefString(order)
	m.SaleID = derefString(sale)
	m.SupplierID = derefString(supplier)
	m.AuthorizedBy = derefString(authorized)
	return &m, nil
}
