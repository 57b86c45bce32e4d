package repository

import (
	"context"

	"github.com/jhoicas/magistral-api/internal/domain/entity"
)

// RawMaterialRepository puerto de lectura del catálogo de materias primas (externo al núcleo).
// GetByID devuelve (nil, nil) si no existe.
type RawMaterialRepository interface {
	GetByID(ctx context.Context, id string) (*entity.RawMaterial, error)
}
