package repository

import (
	"context"

	"github.com/jhoicas/magistral-api/internal/domain/entity"
)

// RunningBalanceRepository define el puerto para el saldo vigente por establecimiento+materia prima.
// Usado dentro de transacciones para serializar a los escritores del mismo par.
type RunningBalanceRepository interface {
	// Get devuelve el saldo sin bloquear; saldo cero si aún no hay movimientos.
	Get(ctx context.Context, establishmentID, rawMaterialID string) (*entity.RunningBalance, error)
	// GetForUpdate crea la fila si no existe y la bloquea (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, establishmentID, rawMaterialID string) (*entity.RunningBalance, error)
	// Save persiste el saldo si la versión leída sigue vigente; si no, devuelve domain.ErrConcurrencyConflict.
	Save(ctx context.Context, balance *entity.RunningBalance) error
}
