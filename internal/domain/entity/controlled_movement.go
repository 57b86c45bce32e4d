package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegulatoryRecord datos regulatorios de un movimiento de sustancia controlada.
// Receta, prescriptor y paciente son obligatorios en salidas y pérdidas.
type RegulatoryRecord struct {
	DocumentNumber          string // factura de compra en entradas
	PrescriptionNumber      string
	PrescriptionDate        *time.Time
	PrescriberName          string
	PrescriberCouncil       string // CRM, CRO, CRMV...
	PrescriberCouncilNumber string
	PrescriberState         string
	PatientName             string
	PatientDocument         string
}

// ControlledSubstanceMovement asiento inmutable del libro de sustancias controladas.
// El saldo se lleva de forma independiente al libro general.
type ControlledSubstanceMovement struct {
	ID              string
	EstablishmentID string
	RawMaterialID   string
	BatchID         string
	Type            MovementType // ENTRY, EXIT, LOSS o ADJUSTMENT
	Classification  Classification
	SubstanceCode   string
	// Quantity es la cantidad declarada: delta positivo en ENTRY/EXIT/LOSS,
	// saldo absoluto resultante en ADJUSTMENT.
	Quantity      decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Sequence      int64
	RegulatoryRecord
	StockMovementID string // movimiento espejo del libro general, si existe
	Reason          string
	Notes           string
	PerformedBy     string
	AuthorizedBy    string
	CreatedAt       time.Time
}

// ControlledMovementTypeValid indica si el tipo es admitido por el libro de controlados.
func ControlledMovementTypeValid(t MovementType) bool {
	switch t {
	case MovementEntry, MovementExit, MovementLoss, MovementAdjustment:
		return true
	}
	return false
}

// RequiresPrescription indica si el tipo exige receta, prescriptor y paciente.
func RequiresPrescription(t MovementType) bool {
	return t == MovementExit || t == MovementLoss
}
