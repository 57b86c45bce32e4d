package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/magistral-api/internal/domain"
	"github.com/jhoicas/magistral-api/internal/domain/entity"
	"github.com/jhoicas/magistral-api/internal/domain/repository"
)

var _ repository.RunningBalanceRepository = (*BalanceRepo)(nil)

// BalanceRepo saldo vigente por (establecimiento, materia prima) sobre PostgreSQL.
// La misma implementación sirve al libro general (stock_balances) y al de controlados
// (controlled_stock_balances); table es una constante interna, nunca entrada del usuario.
type BalanceRepo struct {
	q     Querier
	table string
}

// NewStockBalanceRepository saldo del libro general.
func NewStockBalanceRepository(q Querier) *BalanceRepo {
	return &BalanceRepo{q: q, table: "stock_balances"}
}

// NewControlledStockBalanceRepository saldo del libro de controlados.
func NewControlledStockBalanceRepository(q Querier) *BalanceRepo {
	return &BalanceRepo{q: q, table: "controlled_stock_balances"}
}

// Get obtiene el saldo sin bloquear; saldo cero si aún no hay movimientos.
func (r *BalanceRepo) Get(ctx context.Context, establishmentID, rawMaterialID string) (*entity.RunningBalance, error) {
	query := `
		SELECT establishment_id, raw_material_id, quantity, average_cost, last_movement_id, sequence, version, updated_at
		FROM ` + r.table + ` WHERE establishment_id = $1 AND raw_material_id = $2`
	b, err := scanBalance(r.q.QueryRow(ctx, query, establishmentID, rawMaterialID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zeroBalance(establishmentID, rawMaterialID), nil
		}
		return nil, fmt.Errorf("get %s: %w", r.table, err)
	}
	return b, nil
}

// GetForUpdate crea la fila si no existe y la bloquea (SELECT FOR UPDATE) hasta el fin de la transacción.
// Todos los escritores del par pasan por aquí, así que quedan serializados.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, establishmentID, rawMaterialID string) (*entity.RunningBalance, error) {
	insert := `
		INSERT INTO ` + r.table + ` (establishment_id, raw_material_id, quantity, average_cost, sequence, version, updated_at)
		VALUES ($1, $2, 0, 0, 0, 0, now())
		ON CONFLICT (establishment_id, raw_material_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, insert, establishmentID, rawMaterialID); err != nil {
		return nil, fmt.Errorf("init %s: %w", r.table, err)
	}
	query := `
		SELECT establishment_id, raw_material_id, quantity, average_cost, last_movement_id, sequence, version, updated_at
		FROM ` + r.table + ` WHERE establishment_id = $1 AND raw_material_id = $2
		FOR UPDATE`
	b, err := scanBalance(r.q.QueryRow(ctx, query, establishmentID, rawMaterialID))
	if err != nil {
		return nil, fmt.Errorf("get %s for update: %w", r.table, err)
	}
	return b, nil
}

// Save persiste el saldo si la versión leída sigue vigente.
func (r *BalanceRepo) Save(ctx context.Context, b *entity.RunningBalance) error {
	query := `
		UPDATE ` + r.table + `
		SET quantity = $3, average_cost = $4, last_movement_id = $5, sequence = $6, version = version + 1, updated_at = $7
		WHERE establishment_id = $1 AND raw_material_id = $2 AND version = $8`
	tag, err := r.q.Exec(ctx, query,
		b.EstablishmentID, b.RawMaterialID, b.Quantity, b.AverageCost, nullString(b.LastMovementID),
		b.Sequence, b.UpdatedAt, b.Version,
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", r.table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: saldo de %s modificado por otra transacción", domain.ErrConcurrencyConflict, b.RawMaterialID)
	}
	b.Version++
	return nil
}

func scanBalance(row pgx.Row) (*entity.RunningBalance, error) {
	var b entity.RunningBalance
	var last *string
	if err := row.Scan(&b.EstablishmentID, &b.RawMaterialID, &b.Quantity, &b.AverageCost, &last,
		&b.Sequence, &b.Version, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.LastMovementID = derefString(last)
	return &b, nil
}

func zeroBalance(establishmentID, rawMaterialID string) *entity.RunningBalance {
	return &entity.RunningBalance{
		EstablishmentID: establishmentID,
		RawMaterialID:   rawMaterialID,
		Quantity:        decimal.Zero,
		AverageCost:     decimal.Zero,
	}
}
