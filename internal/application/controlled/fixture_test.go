package controlled_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/magistral-api/internal/application/controlled"
	"github.com/jhoicas/magistral-api/internal/domain/entity"
	"github.com/jhoicas/magistral-api/internal/infrastructure/memory"
	"github.com/jhoicas/magistral-api/pkg/logger"
)

const (
	est      = "est-1"
	otherEst = "est-2"

	rmFluoxetine = "rm-fluoxetine"
	rmDiazepam   = "rm-diazepam"
	rmLactose    = "rm-lactose"

	operator   = "emp-operator"
	pharmacist = "emp-pharmacist"
)

var baseTime = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Store
	sub      *controlled.SubLedgerUseCase
	balances *controlled.BalanceUseCase
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.AddRawMaterial(entity.RawMaterial{ID: rmFluoxetine, EstablishmentID: est, Code: "MP002", Name: "Fluoxetina", Unit: "g", Classification: entity.ClassificationC1, SubstanceCode: "04117", Active: true})
	store.AddRawMaterial(entity.RawMaterial{ID: rmDiazepam, EstablishmentID: est, Code: "MP003", Name: "Diazepam", Unit: "g", Classification: entity.ClassificationB1, SubstanceCode: "03028", Active: true})
	store.AddRawMaterial(entity.RawMaterial{ID: rmLactose, EstablishmentID: est, Code: "MP001", Name: "Lactose", Unit: "g", Classification: entity.ClassificationCommon, Active: true})
	store.AddEmployee(entity.Employee{ID: operator, EstablishmentID: est, Name: "Operador", Active: true})
	store.AddEmployee(entity.Employee{ID: pharmacist, EstablishmentID: est, Name: "Farmacéutica", Active: true})

	f := &fixture{store: store, now: baseTime}
	clock := func() time.Time { return f.now }
	f.sub = controlled.NewSubLedgerUseCase(store, store.Repos(), logger.Nop()).WithClock(clock)
	f.balances = controlled.NewBalanceUseCase(store, store.Repos(), logger.Nop()).WithClock(clock)
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func prescription() entity.RegulatoryRecord {
	return entity.RegulatoryRecord{
		PrescriptionNumber:      "RX-2026-0042",
		PrescriberName:          "Dr. Álvaro Núñez",
		PrescriberCouncil:       "CRM",
		PrescriberCouncilNumber: "98765",
		PrescriberState:         "SP",
		PatientName:             "Maria Conceição",
		PatientDocument:         "123.456.789-00",
	}
}

// postAt registra un movimiento controlado en el instante at.
func (f *fixture) postAt(t *testing.T, at time.Time, rawMaterialID string, typ entity.MovementType, qty string) *entity.ControlledSubstanceMovement {
	t.Helper()
	f.now = at
	in := controlled.PostInput{
		EstablishmentID: est,
		RawMaterialID:   rawMaterialID,
		Type:            typ,
		Quantity:        dec(qty),
		PerformedBy:     operator,
	}
	if entity.RequiresPrescription(typ) {
		in.Record = prescription()
	}
	mov, err := f.sub.Post(t.Context(), in)
	if err != nil {
		t.Fatalf("post %s %s: %v", typ, qty, err)
	}
	return mov
}
