package inventory

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/magistral-api/internal/domain"
	"github.com/jhoicas/magistral-api/internal/domain/entity"
)

// SignedQuantity devuelve el efecto con signo de un movimiento del libro general.
// ENTRY suma; EXIT, CONSUMPTION, SALE, LOSS y EXPIRY restan; ADJUSTMENT es un delta con signo.
func SignedQuantity(t entity.MovementType, qty decimal.Decimal) (decimal.Decimal, error) {
	if !t.Valid() {
		return decimal.Zero, fmt.Errorf("%w: tipo de movimiento desconocido %q", domain.ErrValidation, t)
	}
	if t == entity.MovementAdjustment {
		if qty.IsZero() {
			return decimal.Zero, fmt.Errorf("%w: el ajuste no puede ser cero", domain.ErrValidation)
		}
		return qty, nil
	}
	if !qty.GreaterThan(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: la cantidad debe ser mayor que cero para %s", domain.ErrValidation, t)
	}
	if t.IsSubtractive() {
		return qty.Neg(), nil
	}
	return qty, nil
}

// ApplyStock calcula el stock resultante en el libro general.
// Devuelve el delta aplicado y el saldo posterior; solo ADJUSTMENT puede dejar el saldo en negativo.
func ApplyStock(before decimal.Decimal, t entity.MovementType, qty decimal.Decimal) (delta, after decimal.Decimal, err error) {
	delta, err = SignedQuantity(t, qty)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	after = before.Add(delta)
	if after.LessThan(decimal.Zero) && t != entity.MovementAdjustment {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: stock disponible %s, solicitado %s",
			domain.ErrInsufficientBalance, before.String(), qty.String())
	}
	return delta, after, nil
}

// ApplyControlled calcula el saldo resultante en el libro de controlados.
// ENTRY/EXIT/LOSS aplican la cantidad como delta; ADJUSTMENT la toma como el nuevo saldo absoluto.
// Esta asimetría con el libro general es intencional.
func ApplyControlled(before decimal.Decimal, t entity.MovementType, qty decimal.Decimal) (decimal.Decimal, error) {
	if !entity.ControlledMovementTypeValid(t) {
		return decimal.Zero, fmt.Errorf("%w: tipo %q no admitido en el libro de controlados", domain.ErrValidation, t)
	}
	if t == entity.MovementAdjustment {
		if qty.LessThan(decimal.Zero) {
			return decimal.Zero, fmt.Errorf("%w: el saldo ajustado no puede ser negativo", domain.ErrValidation)
		}
		return qty, nil
	}
	if !qty.GreaterThan(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: la cantidad debe ser mayor que cero para %s", domain.ErrValidation, t)
	}
	after := before.Sub(qty)
	if t == entity.MovementEntry {
		after = before.Add(qty)
	}
	if after.LessThan(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: saldo controlado %s, solicitado %s",
			domain.ErrInsufficientBalance, before.String(), qty.String())
	}
	return after, nil
}

// ControlledTypeFor traduce un tipo del libro general al tipo espejo del libro de controlados.
func ControlledTypeFor(t entity.MovementType) entity.MovementType {
	switch t {
	case entity.MovementExit, entity.MovementConsumption, entity.MovementSale:
		return entity.MovementExit
	case entity.MovementLoss, entity.MovementExpiry:
		return entity.MovementLoss
	}
	return t
}
