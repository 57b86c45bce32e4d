package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/magistral-api/internal/domain/entity"
	"github.com/jhoicas/magistral-api/internal/domain/repository"
)

// Directorios externos de solo lectura: catálogo de materias primas, proveedores y colaboradores.

var (
	_ repository.RawMaterialRepository = (*RawMaterialRepo)(nil)
	_ repository.SupplierRepository    = (*SupplierRepo)(nil)
	_ repository.EmployeeRepository    = (*EmployeeRepo)(nil)
)

// RawMaterialRepo lectura del catálogo de materias primas.
type RawMaterialRepo struct {
	q Querier
}

// NewRawMaterialRepository construye el adaptador. Pasar pool o tx (Querier).
func NewRawMaterialRepository(q Querier) *RawMaterialRepo {
	return &RawMaterialRepo{q: q}
}

// GetByID obtiene una materia prima por ID.
func (r *RawMaterialRepo) GetByID(ctx context.Context, id string) (*entity.RawMaterial, error) {
	query := `
		SELECT id, establishment_id, code, name, unit, classification, substance_code, active, created_at, updated_at
		FROM raw_materials WHERE id = $1`
	var m entity.RawMaterial
	var substance *string
	err := r.q.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.EstablishmentID, &m.Code, &m.Name, &m.Unit, &m.Classification,
		&substance, &m.Active, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get raw material: %w", err)
	}
	m.SubstanceCode = derefString(substance)
	return &m, nil
}

// SupplierRepo lectura de proveedores.
type SupplierRepo struct {
	q Querier
}

// NewSupplierRepository construye el adaptador.
func NewSupplierRepository(q Querier) *SupplierRepo {
	return &SupplierRepo{q: q}
}

// GetByID obtiene un proveedor por ID.
func (r *SupplierRepo) GetByID(ctx context.Context, id string) (*entity.Supplier, error) {
	query := `SELECT id, establishment_id, name, document, created_at FROM suppliers WHERE id = $1`
	var s entity.Supplier
	var document *string
	err := r.q.QueryRow(ctx, query, id).Scan(&s.ID, &s.EstablishmentID, &s.Name, &document, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	s.Document = derefString(document)
	return &s, nil
}

// EmployeeRepo lectura de colaboradores.
type EmployeeRepo struct {
	q Querier
}

// NewEmployeeRepository construye el adaptador.
func NewEmployeeRepository(q Querier) *EmployeeRepo {
	return &EmployeeRepo{q: q}
}

// GetByID obtiene un colaborador por ID.
func (r *EmployeeRepo) GetByID(ctx context.Context, id string) (*entity.Employee, error) {
	query := `SELECT id, establishment_id, name, active FROM employees WHERE id = $1`
	var e entity.Employee
	err := r.q.QueryRow(ctx, query, id).Scan(&e.ID, &e.EstablishmentID, &e.Name, &e.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get employee: %w", err)
	}
	return &e, nil
}
