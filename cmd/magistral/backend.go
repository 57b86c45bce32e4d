package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/magistral-api/internal/application/controlled"
	"github.com/jhoicas/magistral-api/internal/application/inventory"
	"github.com/jhoicas/magistral-api/internal/application/ports"
	"github.com/jhoicas/magistral-api/internal/infrastructure/cache"
	"github.com/jhoicas/magistral-api/internal/infrastructure/memory"
	"github.com/jhoicas/magistral-api/internal/infrastructure/postgres"
)

// backend casos de uso listos sobre el almacenamiento elegido por STORE_DRIVER.
type backend struct {
	Batches    *inventory.BatchUseCase
	Stock      *inventory.StockLedgerUseCase
	Controlled *controlled.SubLedgerUseCase
	Balances   *controlled.BalanceUseCase
	close      func()
}

func (b *backend) Close() {
	if b.close != nil {
		b.close()
	}
}

func buildBackend(ctx context.Context, rt *shared) (*backend, error) {
	var (
		txRunner ports.TxRunner
		repos    ports.Repos
		closers  []func()
	)
	switch rt.cfg.Store.Driver {
	case "memory":
		rt.log.Warn().Msg("STORE_DRIVER=memory: los datos se pierden al detener el proceso")
		store := memory.NewStore()
		txRunner, repos = store, store.Repos()
	default:
		pool, err := postgres.NewPool(ctx, rt.cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		closers = append(closers, pool.Close)
		runner := postgres.NewTxRunner(pool, ports.RetryPolicy{
			MaxRetries: rt.cfg.DB.TxMaxRetries,
			Backoff:    rt.cfg.DB.TxRetryDelay,
		}, rt.log)
		repos = postgres.NewRepos(pool)
		if rt.cfg.Redis.Enabled() {
			client, err := cache.NewClient(ctx, rt.cfg.Redis.URL)
			if err != nil {
				pool.Close()
				return nil, fmt.Errorf("conexión a Redis: %w", err)
			}
			closers = append(closers, func() { _ = client.Close() })
			cached := cache.NewRawMaterialCache(repos.RawMaterials, client, rt.cfg.Redis.TTL, rt.log)
			repos.RawMaterials = cached
			runner.WithRawMaterials(cached)
			rt.log.Info().Dur("ttl", rt.cfg.Redis.TTL).Msg("caché de materias primas habilitada")
		}
		txRunner = runner
	}

	sub := controlled.NewSubLedgerUseCase(txRunner, repos, rt.log)
	ledger := inventory.NewStockLedgerUseCase(txRunner, repos, sub, rt.log)
	return &backend{
		Batches:    inventory.NewBatchUseCase(txRunner, repos, ledger, rt.log),
		Stock:      ledger,
		Controlled: sub,
		Balances:   controlled.NewBalanceUseCase(txRunner, repos, rt.log),
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

// openPool abre el pool para comandos que solo operan sobre PostgreSQL.
func openPool(ctx context.Context, rt *shared) (*pgxpool.Pool, error) {
	if rt.cfg.Store.Driver != "postgres" {
		return nil, fmt.Errorf("el comando requiere STORE_DRIVER=postgres (actual: %s)", rt.cfg.Store.Driver)
	}
	return postgres.NewPool(ctx, rt.cfg.DB)
}
