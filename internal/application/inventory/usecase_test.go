package inventory_test

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/magistral-api/internal/application/inventory"
	"github.com/jhoicas/magistral-api/internal/domain"
	"github.com/jhoicas/magistral-api/internal/domain/entity"
	"github.com/jhoicas/magistral-api/internal/domain/repository"
)

func post(f *fixture, t *testing.T, in inventory.PostInput) (*entity.StockMovement, error) {
	t.Helper()
	if in.EstablishmentID == "" {
		in.EstablishmentID = est
	}
	if in.PerformedBy == "" {
		in.PerformedBy = operator
	}
	return f.ledger.Post(t.Context(), in)
}

func TestPost_ConvencionDeSignos(t *testing.T) {
	f := newFixture(t)
	steps := []struct {
		typ   entity.MovementType
		qty   string
		after string
	}{
		{entity.MovementEntry, "100", "100"},
		{entity.MovementExit, "10", "90"},
		{entity.MovementConsumption, "5", "85"},
		{entity.MovementSale, "5", "80"},
		{entity.MovementLoss, "10", "70"},
		{entity.MovementExpiry, "10", "60"},
		{entity.MovementAdjustment, "-15", "45"},
		{entity.MovementAdjustment, "5", "50"},
	}
	for _, s := range steps {
		mov, err := post(f, t, inventory.PostInput{RawMaterialID: rmCommon, Type: s.typ, Quantity: dec(s.qty)})
		require.NoError(t, err, s.typ)
		assert.True(t, mov.StockAfter.Equal(dec(s.after)), "%s: stock_after %s", s.typ, mov.StockAfter)
		assert.True(t, mov.StockAfter.Equal(mov.StockBefore.Add(mov.Quantity)))
	}
}

func TestPost_Validaciones(t *testing.T) {
	f := newFixture(t)

	_, err := post(f, t, inventory.PostInput{RawMaterialID: rmCommon, Type: entity.MovementExit, Quantity: dec("0")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = post(f, t, inventory.PostInput{RawMaterialID: rmCommon, Type: entity.MovementEntry, Quantity: dec("-1")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = post(f, t, inventory.PostInput{RawMaterialID: rmCommon, Type: entity.MovementAdjustment, Quantity: decimal.Zero})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = post(f, t, inventory.PostInput{RawMaterialID: rmCommon, Type: "TRANSFER", Quantity: dec("1")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = post(f, t, inventory.PostInput{RawMaterialID: "rm-missing", Type: entity.MovementEntry, Quantity: dec("1")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = post(f, t, inventory.PostInput{RawMaterialID: rmForeign, Type: entity.MovementEntry, Quantity: dec("1")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = post(f, t, inventory.PostInput{RawMaterialID: rmCommon, BatchID: "missing", Type: entity.MovementExit, Quantity: dec("1")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = post(f, t, inventory.PostInput{RawMaterialID: rmCommon, Type: entity.MovementEntry, Quantity: dec("1"), AuthorizedBy: "emp-missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPost_SaldoInsuficiente(t *testing.T) {
	f := newFixture(t)
	_, err := post(f, t, inventory.PostInput{RawMaterialID: rmCommon, Type: entity.MovementEntry, Quantity: dec("10")})
	require.NoError(t, err)

	_, err = post(f, t, inventory.PostInput{RawMaterialID: rmCommon, Type: entity.MovementExit, Quantity: dec("10.0001")})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// Solo el ajuste puede dejar el saldo negativo.
	mov, err := post(f, t, inventory.PostInput{RawMaterialID: rmCommon, Type: entity.MovementAdjustment, Quantity: dec("-12")})
	require.NoError(t, err)
	assert.True(t, mov.StockAfter.Equal(dec("-2")))
}

func TestPost_CostoPromedioPonderado(t *testing.T) {
	f := newFixture(t)
	cost1, cost2 := dec("10"), dec("20")
	_, err := post(f, t, inventory.PostInput{RawMaterialID: rmCommon, Type: entity.MovementEntry, Quantity: dec("10"), UnitCost: &cost1})
	require.NoError(t, err)
	_, err = post(f, t, inventory.PostInput{RawMaterialID: rmCommon, Type: entity.MovementEntry, Quantity: dec("30"), UnitCost: &cost2})
	require.NoError(t, err)

	stock, err := f.ledger.CurrentStock(t.Context(), est, rmCommon)
	require.NoError(t, err)
	assert.True(t, stock.Quantity.Equal(dec("40")))
	assert.True(t, stock.AverageCost.Equal(dec("17.5")), stock.AverageCost.String())
}

func TestPost_ReglasDeLote(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	quarantined, _, err := f.batches.Receive(ctx, f.receiveInput(rmCommon, "L-Q", "10"))
	require.NoError(t, err)
	_, err = post(f, t, inventory.PostInput{RawMaterialID: rmCommon, BatchID: quarantined.ID, Type: entity.MovementConsumption, Quantity: dec("1")})
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	approved := f.approvedBatch(t, rmCommon, "L-A", "10")
	_, err = post(f, t, inventory.PostInput{RawMaterialID: rmCommon, BatchID: approved.ID, Type: entity.MovementConsumption, Quantity: dec("11")})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	_, err = post(f, t, inventory.PostInput{RawMaterialID: rmCommon, BatchID: approved.ID, Type: entity.MovementEntry, Quantity: dec("1")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = post(f, t, inventory.PostInput{RawMaterialID: rmControlled, BatchID: approved.ID, Type: entity.MovementConsumption, Quantity: dec("1")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = post(f, t, inventory.PostInput{RawMaterialID: rmCommon, BatchID: approved.ID, Type: entity.MovementAdjustment, Quantity: dec("1")})
	assert.ErrorIs(t, err, domain.ErrValidation, "el ajuste no puede superar lo recibido")

	_, err = post(f, t, inventory.PostInput{RawMaterialID: rmCommon, BatchID: approved.ID, Type: entity.MovementConsumption, Quantity: dec("4")})
	require.NoError(t, err)
	b, err := f.batches.Get(ctx, est, approved.ID)
	require.NoError(t, err)
	assert.True(t, b.CurrentQuantity.Equal(dec("6")))

	// Vencido: no se consume, pero sí se puede dar de baja.
	f.now = approved.ExpiresAt
	_, err = post(f, t, inventory.PostInput{RawMaterialID: rmCommon, BatchID: approved.ID, Type: entity.MovementConsumption, Quantity: dec("1")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = post(f, t, inventory.PostInput{RawMaterialID: rmCommon, BatchID: approved.ID, Type: entity.MovementExpiry, Quantity: dec("6")})
	require.NoError(t, err)
}

func TestPost_ConservacionPorLote(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	batch := f.approvedBatch(t, rmCommon, "L-001", "50")

	for _, s := range []struct {
		typ entity.MovementType
		qty string
	}{
		{entity.MovementConsumption, "12.5"},
		{entity.MovementSale, "2.5"},
		{entity.MovementAdjustment, "-5"},
		{entity.MovementAdjustment, "3"},
		{entity.MovementLoss, "1"},
	} {
		_, err := post(f, t, inventory.PostInput{RawMaterialID: rmCommon, BatchID: batch.ID, Type: s.typ, Quantity: dec(s.qty)})
		require.NoError(t, err, s.typ)
	}

	movs, err := f.ledger.ListMovements(ctx, repository.MovementFilter{EstablishmentID: est, BatchID: batch.ID})
	require.NoError(t, err)
	sum := decimal.Zero
	for _, m := range movs {
		sum = sum.Add(m.Quantity)
	}
	b, err := f.batches.Get(ctx, est, batch.ID)
	require.NoError(t, err)
	assert.True(t, b.CurrentQuantity.Equal(dec("32")))
	assert.True(t, b.CurrentQuantity.Equal(sum), "current %s, suma de movimientos %s", b.CurrentQuantity, sum)
}

func TestPost_CadenaBajoConcurrencia(t *testing.T) {
	f := newFixture(t)
	_, err := post(f, t, inventory.PostInput{RawMaterialID: rmCommon, Type: entity.MovementEntry, Quantity: dec("1000")})
	require.NoError(t, err)

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers*2)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, typ := range []entity.MovementType{entity.MovementConsumption, entity.MovementEntry} {
				_, err := f.ledger.Post(t.Context(), inventory.PostInput{
					EstablishmentID: est, RawMaterialID: rmCommon, Type: typ, Quantity: dec("3"), PerformedBy: operator,
				})
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	movs, err := f.ledger.ListMovements(t.Context(), repository.MovementFilter{EstablishmentID: est, RawMaterialID: rmCommon})
	require.NoError(t, err)
	require.Len(t, movs, 1+workers*2)
	for i := 1; i < len(movs); i++ {
		assert.True(t, movs[i-1].StockAfter.Equal(movs[i].StockBefore), "cadena rota en %d", i)
		assert.Equal(t, movs[i-1].Sequence+1, movs[i].Sequence)
	}
	stock, err := f.ledger.CurrentStock(t.Context(), est, rmCommon)
	require.NoError(t, err)
	assert.True(t, stock.Quantity.Equal(dec("1000")))
	assert.True(t, stock.Quantity.Equal(movs[len(movs)-1].StockAfter))
}

func TestPost_EspejoControlado(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	batch, _, err := f.batches.Receive(ctx, f.receiveInput(rmControlled, "F-001", "100"))
	require.NoError(t, err)
	_, err = f.batches.Approve(ctx, inventory.ApproveInput{BatchID: batch.ID, EstablishmentID: est, ApprovedBy: pharmacist})
	require.NoError(t, err)

	mov, err := post(f, t, inventory.PostInput{
		RawMaterialID: rmControlled, BatchID: batch.ID, Type: entity.MovementSale,
		Quantity: dec("30"), Controlled: prescription(),
	})
	require.NoError(t, err)

	cmovs, err := f.sub.ListMovements(ctx, repository.MovementFilter{EstablishmentID: est, RawMaterialID: rmControlled})
	require.NoError(t, err)
	require.Len(t, cmovs, 2)
	exit := cmovs[1]
	assert.Equal(t, entity.MovementExit, exit.Type)
	assert.Equal(t, mov.ID, exit.StockMovementID)
	assert.True(t, exit.Quantity.Equal(dec("30")))
	assert.True(t, exit.BalanceAfter.Equal(dec("70")))
	assert.Equal(t, "DRA. LUCIA ARAUJO", exit.PrescriberName)
	assert.Equal(t, "JOAO DA SILVA", exit.PatientName)
	assert.Equal(t, entity.ClassificationC1, exit.Classification)

	// Ajuste general (delta) -> ajuste controlado (saldo absoluto); no requiere receta.
	_, err = post(f, t, inventory.PostInput{
		RawMaterialID: rmControlled, Type: entity.MovementAdjustment, Quantity: dec("-5"),
	})
	require.NoError(t, err)
	bal, err := f.sub.CurrentBalance(ctx, est, rmControlled)
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec("65")))
}

func TestPost_EspejoFallidoRevierteTodo(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	_, err := post(f, t, inventory.PostInput{RawMaterialID: rmControlled, Type: entity.MovementEntry, Quantity: dec("100")})
	require.NoError(t, err)

	// Sin receta la salida controlada falla y la salida general no debe quedar registrada.
	_, err = post(f, t, inventory.PostInput{
		RawMaterialID: rmControlled, Type: entity.MovementExit, Quantity: dec("10"),
		Controlled: &entity.RegulatoryRecord{PatientName: "Paciente"},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	stock, err := f.ledger.CurrentStock(ctx, est, rmControlled)
	require.NoError(t, err)
	assert.True(t, stock.Quantity.Equal(dec("100")))
	movs, err := f.ledger.ListMovements(ctx, repository.MovementFilter{EstablishmentID: est, RawMaterialID: rmControlled})
	require.NoError(t, err)
	assert.Len(t, movs, 1)

	bal, err := f.sub.CurrentBalance(ctx, est, rmControlled)
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec("100")))

	// Un ajuste general que deja el saldo controlado en negativo se revierte completo.
	_, err = post(f, t, inventory.PostInput{RawMaterialID: rmControlled, Type: entity.MovementAdjustment, Quantity: dec("-101")})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	stock, err = f.ledger.CurrentStock(ctx, est, rmControlled)
	require.NoError(t, err)
	assert.True(t, stock.Quantity.Equal(dec("100")))
}

func TestPost_SalidaControladaExigeReceta(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	batch := f.approvedBatch(t, rmControlled, "F-001", "100")

	for _, typ := range []entity.MovementType{
		entity.MovementExit, entity.MovementConsumption, entity.MovementSale, entity.MovementLoss, entity.MovementExpiry,
	} {
		_, err := post(f, t, inventory.PostInput{RawMaterialID: rmControlled, BatchID: batch.ID, Type: typ, Quantity: dec("30")})
		assert.ErrorIs(t, err, domain.ErrValidation, "tipo %s", typ)
	}

	stock, err := f.ledger.CurrentStock(ctx, est, rmControlled)
	require.NoError(t, err)
	bal, err := f.sub.CurrentBalance(ctx, est, rmControlled)
	require.NoError(t, err)
	assert.True(t, stock.Quantity.Equal(dec("100")))
	assert.True(t, bal.Equal(dec("100")))

	_, err = post(f, t, inventory.PostInput{
		RawMaterialID: rmControlled, BatchID: batch.ID, Type: entity.MovementSale, Quantity: dec("30"), Controlled: prescription(),
	})
	require.NoError(t, err)
	stock, err = f.ledger.CurrentStock(ctx, est, rmControlled)
	require.NoError(t, err)
	bal, err = f.sub.CurrentBalance(ctx, est, rmControlled)
	require.NoError(t, err)
	assert.True(t, stock.Quantity.Equal(dec("70")))
	assert.True(t, bal.Equal(dec("70")))
}

func TestPost_AjusteNegativoEnMateriaComun(t *testing.T) {
	f := newFixture(t)
	mov, err := post(f, t, inventory.PostInput{RawMaterialID: rmCommon, Type: entity.MovementAdjustment, Quantity: dec("-5")})
	require.NoError(t, err)
	assert.True(t, mov.StockAfter.Equal(dec("-5")))
}

func TestPost_DatosRegulatoriosEnMateriaComun(t *testing.T) {
	f := newFixture(t)
	_, err := post(f, t, inventory.PostInput{
		RawMaterialID: rmCommon, Type: entity.MovementEntry, Quantity: dec("1"), Controlled: &entity.RegulatoryRecord{},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCurrentStock_SinMovimientosEsCero(t *testing.T) {
	f := newFixture(t)
	stock, err := f.ledger.CurrentStock(t.Context(), est, rmCommon)
	require.NoError(t, err)
	assert.True(t, stock.Quantity.IsZero())

	_, err = f.ledger.CurrentStock(t.Context(), est, rmForeign)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListMovements_Filtros(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	_, err := post(f, t, inventory.PostInput{RawMaterialID: rmCommon, Type: entity.MovementEntry, Quantity: dec("10")})
	require.NoError(t, err)
	f.now = f.now.AddDate(0, 0, 1)
	_, err = post(f, t, inventory.PostInput{RawMaterialID: rmCommon, Type: entity.MovementExit, Quantity: dec("1")})
	require.NoError(t, err)
	_, err = post(f, t, inventory.PostInput{RawMaterialID: rmCommon, Type: entity.MovementExit, Quantity: dec("1")})
	require.NoError(t, err)

	exits, err := f.ledger.ListMovements(ctx, repository.MovementFilter{EstablishmentID: est, Type: entity.MovementExit})
	require.NoError(t, err)
	assert.Len(t, exits, 2)

	from := baseTime.AddDate(0, 0, 1)
	page, err := f.ledger.ListMovements(ctx, repository.MovementFilter{EstablishmentID: est, From: &from, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(3), page[0].Sequence)

	_, err = f.ledger.ListMovements(ctx, repository.MovementFilter{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
