package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/magistral-api/pkg/logger"
)

// Migration un paso del esquema. Version ordena la aplicación y se registra en schema_migrations.
type Migration struct {
	Name    string
	Version string
	SQL     string
}

// Migrations esquema del libro de inventario, en orden de aplicación.
var Migrations = []Migration{
	{
		Name:    "create_reference_tables",
		Version: "20250101000001",
		SQL: `
CREATE TABLE IF NOT EXISTS raw_materials (
    id               UUID PRIMARY KEY,
    establishment_id UUID NOT NULL,
    code             TEXT NOT NULL,
    name             TEXT NOT NULL,
    unit             TEXT NOT NULL DEFAULT 'g',
    classification   TEXT NOT NULL DEFAULT 'COMMON',
    substance_code   TEXT,
    active           BOOLEAN NOT NULL DEFAULT TRUE,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT raw_materials_code_key UNIQUE (establishment_id, code)
);

CREATE TABLE IF NOT EXISTS suppliers (
    id               UUID PRIMARY KEY,
    establishment_id UUID NOT NULL,
    name             TEXT NOT NULL,
    document         TEXT,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS employees (
    id               UUID PRIMARY KEY,
    establishment_id UUID NOT NULL,
    name             TEXT NOT NULL,
    active           BOOLEAN NOT NULL DEFAULT TRUE
);
`,
	},
	{
		Name:    "create_batches",
		Version: "20250101000002",
		SQL: `
CREATE TABLE IF NOT EXISTS batches (
    id                    UUID PRIMARY KEY,
    establishment_id      UUID NOT NULL,
    raw_material_id       UUID NOT NULL REFERENCES raw_materials (id),
    supplier_id           UUID NOT NULL REFERENCES suppliers (id),
    batch_number          TEXT NOT NULL,
    invoice_number        TEXT,
    received_quantity     NUMERIC(18, 6) NOT NULL,
    current_quantity      NUMERIC(18, 6) NOT NULL,
    unit_cost             NUMERIC(18, 6) NOT NULL DEFAULT 0,
    received_at           TIMESTAMPTZ NOT NULL,
    manufactured_at       TIMESTAMPTZ,
    expires_at            TIMESTAMPTZ NOT NULL,
    status                TEXT NOT NULL DEFAULT 'QUARANTINE',
    certificate_number    TEXT,
    certificate_issued_at TIMESTAMPTZ,
    quality_notes         TEXT,
    approved_by           UUID,
    approved_at           TIMESTAMPTZ,
    rejected_by           UUID,
    rejected_at           TIMESTAMPTZ,
    rejection_reason      TEXT,
    created_by            UUID NOT NULL,
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT batches_number_key UNIQUE (establishment_id, raw_material_id, supplier_id, batch_number),
    CONSTRAINT batches_quantity_check CHECK (received_quantity > 0 AND current_quantity >= 0 AND current_quantity <= received_quantity),
    CONSTRAINT batches_status_check CHECK (status IN ('QUARANTINE', 'APPROVED', 'REJECTED'))
);

CREATE INDEX IF NOT EXISTS idx_batches_material ON batches (establishment_id, raw_material_id);
CREATE INDEX IF NOT EXISTS idx_batches_expires ON batches (establishment_id, expires_at);
`,
	},
	{
		Name:    "create_stock_ledger",
		Version: "20250101000003",
		SQL: `
CREATE TABLE IF NOT EXISTS stock_movements (
    id               UUID PRIMARY KEY,
    establishment_id UUID NOT NULL,
    raw_material_id  UUID NOT NULL REFERENCES raw_materials (id),
    batch_id         UUID REFERENCES batches (id),
    type             TEXT NOT NULL,
    quantity         NUMERIC(18, 6) NOT NULL,
    stock_before     NUMERIC(18, 6) NOT NULL,
    stock_after      NUMERIC(18, 6) NOT NULL,
    unit_cost        NUMERIC(18, 6) NOT NULL DEFAULT 0,
    sequence         BIGINT NOT NULL,
    reason           TEXT,
    notes            TEXT,
    order_id         UUID,
    sale_id          UUID,
    supplier_id      UUID,
    performed_by     UUID NOT NULL,
    authorized_by    UUID,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT stock_movements_sequence_key UNIQUE (establishment_id, raw_material_id, sequence),
    CONSTRAINT stock_movements_after_check CHECK (stock_after = stock_before + quantity AND (type = 'ADJUSTMENT' OR stock_after >= 0))
);

CREATE INDEX IF NOT EXISTS idx_stock_movements_created ON stock_movements (establishment_id, created_at);
CREATE INDEX IF NOT EXISTS idx_stock_movements_batch ON stock_movements (batch_id);

CREATE TABLE IF NOT EXISTS stock_balances (
    establishment_id UUID NOT NULL,
    raw_material_id  UUID NOT NULL,
    quantity         NUMERIC(18, 6) NOT NULL DEFAULT 0,
    average_cost     NUMERIC(18, 6) NOT NULL DEFAULT 0,
    last_movement_id UUID,
    sequence         BIGINT NOT NULL DEFAULT 0,
    version          BIGINT NOT NULL DEFAULT 0,
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (establishment_id, raw_material_id)
);
`,
	},
	{
		Name:    "create_controlled_ledger",
		Version: "20250101000004",
		SQL: `
CREATE TABLE IF NOT EXISTS controlled_movements (
    id                        UUID PRIMARY KEY,
    establishment_id          UUID NOT NULL,
    raw_material_id           UUID NOT NULL REFERENCES raw_materials (id),
    batch_id                  UUID REFERENCES batches (id),
    type                      TEXT NOT NULL,
    classification            TEXT NOT NULL,
    substance_code            TEXT,
    quantity                  NUMERIC(18, 6) NOT NULL,
    balance_before            NUMERIC(18, 6) NOT NULL,
    balance_after             NUMERIC(18, 6) NOT NULL,
    sequence                  BIGINT NOT NULL,
    document_number           TEXT,
    prescription_number       TEXT,
    prescription_date         TIMESTAMPTZ,
    prescriber_name           TEXT,
    prescriber_council        TEXT,
    prescriber_council_number TEXT,
    prescriber_state          TEXT,
    patient_name              TEXT,
    patient_document          TEXT,
    stock_movement_id         UUID REFERENCES stock_movements (id),
    reason                    TEXT,
    notes                     TEXT,
    performed_by              UUID NOT NULL,
    authorized_by             UUID,
    created_at                TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT controlled_movements_sequence_key UNIQUE (establishment_id, raw_material_id, sequence),
    CONSTRAINT controlled_movements_type_check CHECK (type IN ('ENTRY', 'EXIT', 'LOSS', 'ADJUSTMENT')),
    CONSTRAINT controlled_movements_after_check CHECK (balance_after >= 0)
);

CREATE INDEX IF NOT EXISTS idx_controlled_movements_created ON controlled_movements (establishment_id, created_at);

CREATE TABLE IF NOT EXISTS controlled_stock_balances (
    establishment_id UUID NOT NULL,
    raw_material_id  UUID NOT NULL,
    quantity         NUMERIC(18, 6) NOT NULL DEFAULT 0,
    average_cost     NUMERIC(18, 6) NOT NULL DEFAULT 0,
    last_movement_id UUID,
    sequence         BIGINT NOT NULL DEFAULT 0,
    version          BIGINT NOT NULL DEFAULT 0,
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (establishment_id, raw_material_id)
);
`,
	},
	{
		Name:    "create_controlled_balances",
		Version: "20250101000005",
		SQL: `
CREATE TABLE IF NOT EXISTS controlled_balances (
    id                  UUID PRIMARY KEY,
    establishment_id    UUID NOT NULL,
    raw_material_id     UUID NOT NULL REFERENCES raw_materials (id),
    classification      TEXT NOT NULL,
    period_start        TIMESTAMPTZ NOT NULL,
    period_end          TIMESTAMPTZ NOT NULL,
    initial_balance     NUMERIC(18, 6) NOT NULL,
    total_entries       NUMERIC(18, 6) NOT NULL,
    total_exits         NUMERIC(18, 6) NOT NULL,
    total_losses        NUMERIC(18, 6) NOT NULL,
    total_adjustments   NUMERIC(18, 6) NOT NULL,
    final_balance       NUMERIC(18, 6) NOT NULL,
    movement_count      INT NOT NULL,
    physical_count      NUMERIC(18, 6),
    difference          NUMERIC(18, 6),
    status              TEXT NOT NULL DEFAULT 'OPEN',
    notes               TEXT,
    closed_by           UUID,
    closed_at           TIMESTAMPTZ,
    submission_status   TEXT NOT NULL DEFAULT 'PENDING',
    submission_protocol TEXT,
    submitted_at        TIMESTAMPTZ,
    generated_by        UUID NOT NULL,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT controlled_balances_period_check CHECK (period_end >= period_start)
);

CREATE INDEX IF NOT EXISTS idx_controlled_balances_period ON controlled_balances (establishment_id, period_start DESC);
`,
	},
	{
		// Esquemas creados antes de admitir ajustes que dejan el stock general en negativo.
		Name:    "relax_stock_after_check",
		Version: "20250101000006",
		SQL: `
ALTER TABLE stock_movements DROP CONSTRAINT IF EXISTS stock_movements_after_check;
ALTER TABLE stock_movements ADD CONSTRAINT stock_movements_after_check
    CHECK (stock_after = stock_before + quantity AND (type = 'ADJUSTMENT' OR stock_after >= 0));
`,
	},
}

// Migrate aplica las migraciones pendientes, cada una en su propia transacción.
// Devuelve la cantidad de migraciones aplicadas.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger) (int, error) {
	if log == nil {
		log = logger.Nop()
	}
	if _, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := appliedVersions(ctx, pool)
	if err != nil {
		return 0, err
	}

	pending := make([]Migration, 0, len(Migrations))
	for _, m := range Migrations {
		if !applied[m.Version] {
			pending = append(pending, m)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version < pending[j].Version })

	for _, m := range pending {
		if err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name)
			return err
		}); err != nil {
			return 0, fmt.Errorf("migración %s (%s): %w", m.Version, m.Name, err)
		}
		log.Info().Str("version", m.Version).Str("name", m.Name).Msg("migración aplicada")
	}
	return len(pending), nil
}

func appliedVersions(ctx context.Context, pool *pgxpool.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list schema_migrations: %w", err)
	}
	defer rows.Close()
	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}
