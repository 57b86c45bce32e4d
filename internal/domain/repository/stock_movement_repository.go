package repository

import (
	"context"
	"time"

	"github.com/jhoicas/magistral-api/internal/domain/entity"
)

// MovementFilter filtros para listar movimientos de un establecimiento (ambos libros).
type MovementFilter struct {
	EstablishmentID string
	RawMaterialID   string
	BatchID         string
	Type            entity.MovementType
	From            *time.Time
	To              *time.Time
	Limit           int
	Offset          int
}

// StockMovementRepository define el puerto de persistencia del libro de stock (solo inserción).
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	// List devuelve los movimientos en orden de creación (secuencia ascendente).
	List(ctx context.Context, filter MovementFilter) ([]*entity.StockMovement, error)
}
