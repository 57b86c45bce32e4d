package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/magistral-api/internal/domain/entity"
)

// PostStockMovementRequest body para POST /api/stock/movements.
// Quantity es siempre positiva salvo en ADJUSTMENT, donde es el delta con signo.
type PostStockMovementRequest struct {
	RawMaterialID string                   `json:"raw_material_id" validate:"required,uuid"`
	BatchID       string                   `json:"batch_id,omitempty" validate:"omitempty,uuid"`
	Type          string                   `json:"type" validate:"required,oneof=ENTRY EXIT ADJUSTMENT LOSS EXPIRY CONSUMPTION SALE"`
	Quantity      decimal.Decimal          `json:"quantity"`
	UnitCost      *decimal.Decimal         `json:"unit_cost,omitempty"`
	Reason        string                   `json:"reason,omitempty" validate:"max=500"`
	Notes         string                   `json:"notes,omitempty" validate:"max=1000"`
	OrderID       string                   `json:"order_id,omitempty" validate:"omitempty,uuid"`
	SaleID        string                   `json:"sale_id,omitempty" validate:"omitempty,uuid"`
	SupplierID    string                   `json:"supplier_id,omitempty" validate:"omitempty,uuid"`
	AuthorizedBy  string                   `json:"authorized_by,omitempty" validate:"omitempty,uuid"`
	Controlled    *RegulatoryRecordRequest `json:"controlled,omitempty"`
}

// MovementListQuery filtros de listados de movimientos (ambos libros).
type MovementListQuery struct {
	PageRequest
	RawMaterialID string `query:"raw_material_id" validate:"omitempty,uuid"`
	BatchID       string `query:"batch_id" validate:"omitempty,uuid"`
	Type          string `query:"type" validate:"omitempty,oneof=ENTRY EXIT ADJUSTMENT LOSS EXPIRY CONSUMPTION SALE"`
	From          string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To            string `query:"to" validate:"omitempty,datetime=2006-01-02"`
}

// StockMovementResponse asiento del libro general.
type StockMovementResponse struct {
	ID            string          `json:"id"`
	RawMaterialID string          `json:"raw_material_id"`
	BatchID       string          `json:"batch_id,omitempty"`
	Type          string          `json:"type"`
	Quantity      decimal.Decimal `json:"quantity"`
	StockBefore   decimal.Decimal `json:"stock_before"`
	StockAfter    decimal.Decimal `json:"stock_after"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	Sequence      int64           `json:"sequence"`
	Reason        string          `json:"reason,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	OrderID       string          `json:"order_id,omitempty"`
	SaleID        string          `json:"sale_id,omitempty"`
	SupplierID    string          `json:"supplier_id,omitempty"`
	PerformedBy   string          `json:"performed_by"`
	AuthorizedBy  string          `json:"authorized_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// CurrentStockResponse saldo vigente de una materia prima.
type CurrentStockResponse struct {
	RawMaterialID  string          `json:"raw_material_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	AverageCost    decimal.Decimal `json:"average_cost"`
	LastMovementID string          `json:"last_movement_id,omitempty"`
	Sequence       int64           `json:"sequence"`
	UpdatedAt      *time.Time      `json:"updated_at,omitempty"`
}

// StockMovementFromEntity convierte un asiento.
func StockMovementFromEntity(m *entity.StockMovement) StockMovementResponse {
	return StockMovementResponse{
		ID:            m.ID,
		RawMaterialID: m.RawMaterialID,
		BatchID:       m.BatchID,
		Type:          string(m.Type),
		Quantity:      m.Quantity,
		StockBefore:   m.StockBefore,
		StockAfter:    m.StockAfter,
		UnitCost:      m.UnitCost,
		Sequence:      m.Sequence,
		Reason:        m.Reason,
		Notes:         m.Notes,
		OrderID:       m.OrderID,
		SaleID:        m.SaleID,
		SupplierID:    m.SupplierID,
		PerformedBy:   m.PerformedBy,
		AuthorizedBy:  m.AuthorizedBy,
		CreatedAt:     m.CreatedAt,
	}
}

// StockMovementsFromEntities convierte un listado.
func StockMovementsFromEntities(list []*entity.StockMovement) []StockMovementResponse {
	return mapSlice(list, StockMovementFromEntity)
}

// CurrentStockFromEntity convierte el saldo vigente.
func CurrentStockFromEntity(b *entity.RunningBalance) CurrentStockResponse {
	return CurrentStockResponse{
		RawMaterialID:  b.RawMaterialID,
		Quantity:       b.Quantity,
		AverageCost:    b.AverageCost,
		LastMovementID: b.LastMovementID,
		Sequence:       b.Sequence,
		UpdatedAt:      timePtr(b.UpdatedAt),
	}
}
