package repository

import (
	"context"
	"time"

	"github.com/jhoicas/magistral-api/internal/domain/entity"
)

// ControlledMovementRepository define el puerto del libro de sustancias controladas (solo inserción).
type ControlledMovementRepository interface {
	Create(ctx context.Context, movement *entity.ControlledSubstanceMovement) error
	List(ctx context.Context, filter MovementFilter) ([]*entity.ControlledSubstanceMovement, error)
	// ListInRange devuelve los movimientos de [start, end] ordenados por materia prima y secuencia.
	// rawMaterialIDs vacío significa todas las materias primas del establecimiento.
	ListInRange(ctx context.Context, establishmentID string, rawMaterialIDs []string, start, end time.Time) ([]*entity.ControlledSubstanceMovement, error)
}
