package repository

import (
	"context"
	"time"

	"github.com/jhoicas/magistral-api/internal/domain/entity"
)

// BatchFilter filtros para listar lotes de un establecimiento.
// Expired y Depleted son predicados derivados evaluados contra Now.
type BatchFilter struct {
	EstablishmentID string
	RawMaterialID   string
	Status          entity.BatchStatus
	Expired         *bool
	Depleted        *bool
	ExpiringBefore  *time.Time
	Now             time.Time
	Limit           int
	Offset          int
}

// BatchRepository define el puerto de persistencia para lotes. Los lotes nunca se eliminan.
type BatchRepository interface {
	Create(ctx context.Context, batch *entity.Batch) error
	// GetByID devuelve (nil, nil) si no existe.
	GetByID(ctx context.Context, id string) (*entity.Batch, error)
	// GetForUpdate bloquea la fila del lote hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.Batch, error)
	Update(ctx context.Context, batch *entity.Batch) error
	List(ctx context.Context, filter BatchFilter) ([]*entity.Batch, error)
}
