package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType tipo de movimiento de inventario.
type MovementType string

const (
	MovementEntry       MovementType = "ENTRY"       // entrada (compra)
	MovementExit        MovementType = "EXIT"        // salida genérica
	MovementAdjustment  MovementType = "ADJUSTMENT"  // ajuste
	MovementLoss        MovementType = "LOSS"        // pérdida / rechazo
	MovementExpiry      MovementType = "EXPIRY"      // baja por vencimiento
	MovementConsumption MovementType = "CONSUMPTION" // consumo en manipulación
	MovementSale        MovementType = "SALE"        // venta directa
)

// Valid indica si el tipo es uno de los conocidos por el libro general.
func (t MovementType) Valid() bool {
	switch t {
	case MovementEntry, MovementExit, MovementAdjustment, MovementLoss,
		MovementExpiry, MovementConsumption, MovementSale:
		return true
	}
	return false
}

// IsSubtractive indica si el tipo siempre descuenta stock.
func (t MovementType) IsSubtractive() bool {
	switch t {
	case MovementExit, MovementLoss, MovementExpiry, MovementConsumption, MovementSale:
		return true
	}
	return false
}

// StockMovement representa un asiento inmutable del libro de stock.
// Invariante: StockAfter = StockBefore + Quantity (Quantity ya lleva el signo del efecto).
type StockMovement struct {
	ID              string
	EstablishmentID string
	RawMaterialID   string
	BatchID         string // opcional
	Type            MovementType
	Quantity        decimal.Decimal // positivo entrada/ajuste+, negativo salida
	StockBefore     decimal.Decimal
	StockAfter      decimal.Decimal
	UnitCost        decimal.Decimal // solo entradas
	Sequence        int64           // orden monotónico por (establecimiento, materia prima)
	Reason          string
	Notes           string

	// Referencias opcionales al origen del movimiento
	OrderID    string // orden de manipulación
	SaleID     string
	SupplierID string

	PerformedBy  string
	AuthorizedBy string
	CreatedAt    time.Time
}
