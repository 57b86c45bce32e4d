package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunningBalance es el saldo vigente por (establecimiento, materia prima) de un libro.
// Se bloquea (SELECT FOR UPDATE) y actualiza en la misma transacción que inserta el movimiento,
// por lo que serializa a los escritores del mismo par.
type RunningBalance struct {
	EstablishmentID string
	RawMaterialID   string
	Quantity        decimal.Decimal
	AverageCost     decimal.Decimal // costo promedio ponderado (solo libro general)
	LastMovementID  string
	Sequence        int64 // secuencia del último movimiento
	Version         int64
	UpdatedAt       time.Time
}
