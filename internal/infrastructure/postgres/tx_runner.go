package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/magistral-api/internal/application/ports"
	"github.com/jhoicas/magistral-api/internal/domain/repository"
	"github.com/jhoicas/magistral-api/pkg/logger"
)

var _ ports.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
// Los conflictos de concurrencia (40001, 40P01, secuencia duplicada) se reintentan según la política.
type TxRunner struct {
	pool         *pgxpool.Pool
	retry        ports.RetryPolicy
	log          *logger.Logger
	rawMaterials repository.RawMaterialRepository
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool, retry ports.RetryPolicy, log *logger.Logger) *TxRunner {
	if log == nil {
		log = logger.Nop()
	}
	return &TxRunner{pool: pool, retry: retry, log: log.Named("tx")}
}

// WithRawMaterials reemplaza el directorio de materias primas usado dentro de la tx (p. ej. con caché).
// El catálogo es de solo lectura para el núcleo, por lo que no necesita la conexión de la transacción.
func (r *TxRunner) WithRawMaterials(repo repository.RawMaterialRepository) *TxRunner {
	r.rawMaterials = repo
	return r
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(repos ports.Repos) error) error {
	return r.retry.Do(ctx, func() error {
		return mapTxError(r.runOnce(ctx, fn))
	}, func(attempt int, err error) {
		r.log.Warn().Int("attempt", attempt).Err(err).Msg("conflicto de concurrencia, reintentando transacción")
	})
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(repos ports.Repos) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	repos := NewRepos(tx)
	if r.rawMaterials != nil {
		repos.RawMaterials = r.rawMaterials
	}
	if err := fn(repos); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// NewRepos construye todos los repositorios sobre un Querier (pool para lecturas, tx dentro de Run).
func NewRepos(q Querier) ports.Repos {
	return ports.Repos{
		RawMaterials:        NewRawMaterialRepository(q),
		Suppliers:           NewSupplierRepository(q),
		Employees:           NewEmployeeRepository(q),
		Batches:             NewBatchRepository(q),
		Movements:           NewStockMovementRepository(q),
		StockBalances:       NewStockBalanceRepository(q),
		ControlledMovements: NewControlledMovementRepository(q),
		ControlledBalances:  NewControlledStockBalanceRepository(q),
		PeriodBalances:      NewControlledBalanceRepository(q),
	}
}
