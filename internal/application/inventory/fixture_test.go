package inventory_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/magistral-api/internal/application/controlled"
	"github.com/jhoicas/magistral-api/internal/application/inventory"
	"github.com/jhoicas/magistral-api/internal/domain/entity"
	"github.com/jhoicas/magistral-api/internal/infrastructure/memory"
	"github.com/jhoicas/magistral-api/pkg/logger"
)

const (
	est      = "est-1"
	otherEst = "est-2"

	rmCommon     = "rm-lactose"
	rmControlled = "rm-fluoxetine"
	rmForeign    = "rm-foreign"

	supplierID      = "sup-1"
	foreignSupplier = "sup-foreign"

	operator   = "emp-operator"
	pharmacist = "emp-pharmacist"
)

var baseTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store   *memory.Store
	ledger  *inventory.StockLedgerUseCase
	batches *inventory.BatchUseCase
	sub     *controlled.SubLedgerUseCase
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.AddRawMaterial(entity.RawMaterial{ID: rmCommon, EstablishmentID: est, Code: "MP001", Name: "Lactose", Unit: "g", Classification: entity.ClassificationCommon, Active: true})
	store.AddRawMaterial(entity.RawMaterial{ID: rmControlled, EstablishmentID: est, Code: "MP002", Name: "Fluoxetina", Unit: "g", Classification: entity.ClassificationC1, SubstanceCode: "04117", Active: true})
	store.AddRawMaterial(entity.RawMaterial{ID: rmForeign, EstablishmentID: otherEst, Code: "MP001", Name: "Lactose", Unit: "g", Classification: entity.ClassificationCommon, Active: true})
	store.AddSupplier(entity.Supplier{ID: supplierID, EstablishmentID: est, Name: "Fagron"})
	store.AddSupplier(entity.Supplier{ID: foreignSupplier, EstablishmentID: otherEst, Name: "Galena"})
	store.AddEmployee(entity.Employee{ID: operator, EstablishmentID: est, Name: "Operador", Active: true})
	store.AddEmployee(entity.Employee{ID: pharmacist, EstablishmentID: est, Name: "Farmacéutica", Active: true})

	f := &fixture{store: store, now: baseTime}
	clock := func() time.Time { return f.now }
	repos := store.Repos()
	f.sub = controlled.NewSubLedgerUseCase(store, repos, logger.Nop()).WithClock(clock)
	f.ledger = inventory.NewStockLedgerUseCase(store, repos, f.sub, logger.Nop()).WithClock(clock)
	f.batches = inventory.NewBatchUseCase(store, repos, f.ledger, logger.Nop()).WithClock(clock)
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) receiveInput(rawMaterialID, batchNumber, qty string) inventory.ReceiveInput {
	return inventory.ReceiveInput{
		EstablishmentID: est,
		RawMaterialID:   rawMaterialID,
		SupplierID:      supplierID,
		BatchNumber:     batchNumber,
		InvoiceNumber:   "NF-1001",
		Quantity:        dec(qty),
		UnitCost:        dec("0.35"),
		ExpiresAt:       f.now.AddDate(1, 0, 0),
		ReceivedBy:      operator,
	}
}

// approvedBatch recibe y aprueba un lote de la materia prima indicada.
func (f *fixture) approvedBatch(t *testing.T, rawMaterialID, batchNumber, qty string) *entity.Batch {
	t.Helper()
	ctx := t.Context()
	b, _, err := f.batches.Receive(ctx, f.receiveInput(rawMaterialID, batchNumber, qty))
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	b, err = f.batches.Approve(ctx, inventory.ApproveInput{
		BatchID: b.ID, EstablishmentID: est, CertificateNumber: "COA-" + batchNumber, ApprovedBy: pharmacist,
	})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	return b
}

func prescription() *entity.RegulatoryRecord {
	return &entity.RegulatoryRecord{
		PrescriptionNumber:      "RX-2026-0042",
		PrescriberName:          "Dra. Lúcia Araújo",
		PrescriberCouncil:       "crm",
		PrescriberCouncilNumber: "123456",
		PrescriberState:         "sp",
		PatientName:             "João da Silva",
	}
}
