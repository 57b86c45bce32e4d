package repository

import (
	"context"

	"github.com/jhoicas/magistral-api/internal/domain/entity"
)

// SupplierRepository puerto de lectura de proveedores. GetByID devuelve (nil, nil) si no existe.
type SupplierRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Supplier, error)
}
