package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/magistral-api/internal/domain"
	"github.com/jhoicas/magistral-api/internal/domain/repository"
)

func TestWhereBuilder(t *testing.T) {
	w := &whereBuilder{}
	assert.Equal(t, "", w.sql())

	w.add("establishment_id = $%d", "est-1")
	w.add("type = $%d", "ENTRY")
	q := w.sql() + w.page(50, 10)

	assert.Equal(t, " WHERE establishment_id = $1 AND type = $2 LIMIT $3 OFFSET $4", q)
	assert.Equal(t, []any{"est-1", "ENTRY", 50, 10}, w.args)
}

func TestWhereBuilder_SinPaginacion(t *testing.T) {
	w := &whereBuilder{}
	w.add("id = $%d", "x")
	assert.Equal(t, "", w.page(0, 0))
	assert.Len(t, w.args, 1)
}

func TestMovementOrder(t *testing.T) {
	assert.Equal(t, " ORDER BY sequence", movementOrder(repository.MovementFilter{RawMaterialID: "rm"}))
	assert.Contains(t, movementOrder(repository.MovementFilter{}), "created_at")
}

func TestMapTxError(t *testing.T) {
	assert.NoError(t, mapTxError(nil))

	serialization := &pgconn.PgError{Code: codeSerializationFailure}
	assert.ErrorIs(t, mapTxError(fmt.Errorf("commit: %w", serialization)), domain.ErrConcurrencyConflict)

	deadlock := &pgconn.PgError{Code: codeDeadlockDetected}
	assert.ErrorIs(t, mapTxError(deadlock), domain.ErrConcurrencyConflict)

	validation := fmt.Errorf("%w: cantidad", domain.ErrValidation)
	assert.Same(t, validation, mapTxError(validation))

	other := errors.New("conexión cerrada")
	assert.Same(t, other, mapTxError(other))
}

func TestConstraintName(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "batches_number_key"})
	assert.True(t, isUniqueViolation(err))
	assert.Equal(t, "batches_number_key", constraintName(err))
	assert.False(t, isCheckViolation(err))
}
