package repository

import (
	"context"

	"github.com/jhoicas/magistral-api/internal/domain/entity"
)

// EmployeeRepository puerto de lectura de colaboradores. GetByID devuelve (nil, nil) si no existe.
type EmployeeRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Employee, error)
}
