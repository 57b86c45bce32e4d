package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/magistral-api/internal/domain"
	"github.com/jhoicas/magistral-api/internal/domain/entity"
	"github.com/jhoicas/magistral-api/internal/domain/inventory"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestApplyStock(t *testing.T) {
	tests := []struct {
		name   string
		before string
		typ    entity.MovementType
		qty    string
		delta  string
		after  string
		err    error
	}{
		{"entrada", "0", entity.MovementEntry, "100", "100", "100", nil},
		{"salida", "100", entity.MovementExit, "30", "-30", "70", nil},
		{"venta hasta cero", "30", entity.MovementSale, "30", "-30", "0", nil},
		{"ajuste negativo deja saldo negativo", "5", entity.MovementAdjustment, "-8", "-8", "-3", nil},
		{"consumo sin saldo", "5", entity.MovementConsumption, "6", "", "", domain.ErrInsufficientBalance},
		{"vencimiento con cantidad cero", "5", entity.MovementExpiry, "0", "", "", domain.ErrValidation},
		{"ajuste cero", "5", entity.MovementAdjustment, "0", "", "", domain.ErrValidation},
		{"tipo desconocido", "5", entity.MovementType("TRANSFER"), "1", "", "", domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta, after, err := inventory.ApplyStock(d(tt.before), tt.typ, d(tt.qty))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.True(t, delta.Equal(d(tt.delta)), delta.String())
			assert.True(t, after.Equal(d(tt.after)), after.String())
		})
	}
}

func TestApplyControlled(t *testing.T) {
	tests := []struct {
		name   string
		before string
		typ    entity.MovementType
		qty    string
		after  string
		err    error
	}{
		{"entrada", "0", entity.MovementEntry, "100", "100", nil},
		{"salida", "100", entity.MovementExit, "30", "70", nil},
		{"pérdida", "70", entity.MovementLoss, "70", "0", nil},
		{"ajuste absoluto", "70", entity.MovementAdjustment, "12", "12", nil},
		{"ajuste a cero", "70", entity.MovementAdjustment, "0", "0", nil},
		{"ajuste negativo", "70", entity.MovementAdjustment, "-1", "", domain.ErrValidation},
		{"salida sin saldo", "70", entity.MovementExit, "80", "", domain.ErrInsufficientBalance},
		{"salida cero", "70", entity.MovementExit, "0", "", domain.ErrValidation},
		{"venta no admitida", "70", entity.MovementSale, "1", "", domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			after, err := inventory.ApplyControlled(d(tt.before), tt.typ, d(tt.qty))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.True(t, after.Equal(d(tt.after)), after.String())
		})
	}
}

func TestControlledTypeFor(t *testing.T) {
	assert.Equal(t, entity.MovementEntry, inventory.ControlledTypeFor(entity.MovementEntry))
	assert.Equal(t, entity.MovementExit, inventory.ControlledTypeFor(entity.MovementConsumption))
	assert.Equal(t, entity.MovementExit, inventory.ControlledTypeFor(entity.MovementSale))
	assert.Equal(t, entity.MovementLoss, inventory.ControlledTypeFor(entity.MovementExpiry))
	assert.Equal(t, entity.MovementAdjustment, inventory.ControlledTypeFor(entity.MovementAdjustment))
}

func TestCostCalculator(t *testing.T) {
	assert.True(t, inventory.CostCalculator(d("10"), d("10"), d("30"), d("20")).Equal(d("17.5")))
	// Stock negativo por ajustes no aporta al promedio.
	assert.True(t, inventory.CostCalculator(d("-5"), d("10"), d("10"), d("4")).Equal(d("4")))
	assert.True(t, inventory.CostCalculator(d("0"), d("0"), d("0"), d("4")).IsZero())
}
