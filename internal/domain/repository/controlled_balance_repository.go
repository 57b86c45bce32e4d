package repository

import (
	"context"
	"time"

	"github.com/jhoicas/magistral-api/internal/domain/entity"
)

// BalanceFilter filtros para listar balances de período.
type BalanceFilter struct {
	EstablishmentID string
	RawMaterialID   string
	Classification  entity.Classification
	Status          entity.BalanceStatus
	PeriodFrom      *time.Time
	PeriodTo        *time.Time
	Limit           int
	Offset          int
}

// ControlledBalanceRepository define el puerto de persistencia de los balances de período.
type ControlledBalanceRepository interface {
	Create(ctx context.Context, balance *entity.ControlledSubstanceBalance) error
	// GetByID devuelve (nil, nil) si no existe.
	GetByID(ctx context.Context, id string) (*entity.ControlledSubstanceBalance, error)
	GetForUpdate(ctx context.Context, id string) (*entity.ControlledSubstanceBalance, error)
	Update(ctx context.Context, balance *entity.ControlledSubstanceBalance) error
	List(ctx context.Context, filter BalanceFilter) ([]*entity.ControlledSubstanceBalance, error)
}
