package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/magistral-api/internal/application/controlled"
	"github.com/jhoicas/magistral-api/internal/application/dto"
	"github.com/jhoicas/magistral-api/internal/application/inventory"
	"github.com/jhoicas/magistral-api/internal/domain/entity"
	"github.com/jhoicas/magistral-api/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/magistral-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/magistral-api/pkg/jwt"
	"github.com/jhoicas/magistral-api/pkg/logger"
)

const (
	estID        = "6f1c0d4e-0000-4000-8000-000000000001"
	otherEstID   = "6f1c0d4e-0000-4000-8000-000000000002"
	pharmacistID = "6f1c0d4e-0000-4000-8000-0000000000a1"
	operatorID   = "6f1c0d4e-0000-4000-8000-0000000000a2"
	foreignEmpID = "6f1c0d4e-0000-4000-8000-0000000000a3"
	rmCommonID   = "6f1c0d4e-0000-4000-8000-0000000000b1"
	rmControlID  = "6f1c0d4e-0000-4000-8000-0000000000b2"
	supplierID   = "6f1c0d4e-0000-4000-8000-0000000000c1"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type apiFixture struct {
	app *fiber.App
	t   *testing.T
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	store := memory.NewStore()
	store.AddRawMaterial(entity.RawMaterial{ID: rmCommonID, EstablishmentID: estID, Code: "MP001", Name: "Lactose", Unit: "g", Classification: entity.ClassificationCommon, Active: true})
	store.AddRawMaterial(entity.RawMaterial{ID: rmControlID, EstablishmentID: estID, Code: "MP002", Name: "Clonazepam", Unit: "g", Classification: entity.ClassificationB1, Active: true})
	store.AddSupplier(entity.Supplier{ID: supplierID, EstablishmentID: estID, Name: "Fagron"})
	store.AddEmployee(entity.Employee{ID: pharmacistID, EstablishmentID: estID, Name: "Farmacéutica", Active: true})
	store.AddEmployee(entity.Employee{ID: operatorID, EstablishmentID: estID, Name: "Operador", Active: true})
	store.AddEmployee(entity.Employee{ID: foreignEmpID, EstablishmentID: otherEstID, Name: "Otro", Active: true})

	clock := func() time.Time { return fixedNow }
	repos := store.Repos()
	sub := controlled.NewSubLedgerUseCase(store, repos, logger.Nop()).WithClock(clock)
	ledger := inventory.NewStockLedgerUseCase(store, repos, sub, logger.Nop()).WithClock(clock)
	batches := inventory.NewBatchUseCase(store, repos, ledger, logger.Nop()).WithClock(clock)
	balances := controlled.NewBalanceUseCase(store, repos, logger.Nop()).WithClock(clock)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Batches:    batches,
		Stock:      ledger,
		Controlled: sub,
		Balances:   balances,
		JWTSecret:  testJWTSecret,
		Now:        clock,
	})
	return &apiFixture{app: app, t: t}
}

func (f *apiFixture) do(method, path, auth string, body any) (*http.Response, []byte) {
	f.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(f.t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(f.t, err)
	return resp, out
}

func (f *apiFixture) pharmacist() string {
	return bearer(f.t, pharmacistID, estID, pkgjwt.RolePharmacist)
}

func (f *apiFixture) operator() string {
	return bearer(f.t, operatorID, estID, pkgjwt.RoleOperator)
}

func receiveBody(rawMaterialID, number, qty string) map[string]any {
	return map[string]any{
		"raw_material_id": rawMaterialID,
		"supplier_id":     supplierID,
		"batch_number":    number,
		"invoice_number":  "NF-77",
		"quantity":        qty,
		"unit_cost":       "0.42",
		"expires_at":      fixedNow.AddDate(1, 0, 0).Format(time.RFC3339),
	}
}

func (f *apiFixture) receive(auth string, body map[string]any) dto.ReceiveBatchResponse {
	f.t.Helper()
	resp, raw := f.do(http.MethodPost, "/api/batches", auth, body)
	require.Equal(f.t, http.StatusCreated, resp.StatusCode, string(raw))
	var out dto.ReceiveBatchResponse
	require.NoError(f.t, json.Unmarshal(raw, &out))
	return out
}

func TestAPI_RecibirAprobarYConsumir(t *testing.T) {
	api := newAPI(t)

	received := api.receive(api.operator(), receiveBody(rmCommonID, "L-100", "1000"))
	assert.Equal(t, "QUARANTINE", received.Batch.Status)
	assert.Equal(t, "ENTRY", received.Movement.Type)
	assert.True(t, received.Movement.StockAfter.Equal(decimal.NewFromInt(1000)))

	resp, raw := api.do(http.MethodPost, "/api/batches/"+received.Batch.ID+"/approve", api.pharmacist(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var approved dto.BatchResponse
	require.NoError(t, json.Unmarshal(raw, &approved))
	assert.Equal(t, "APPROVED", approved.Status)
	assert.Equal(t, pharmacistID, approved.ApprovedBy)

	resp, raw = api.do(http.MethodPost, "/api/stock/movements", api.operator(), map[string]any{
		"raw_material_id": rmCommonID,
		"batch_id":        received.Batch.ID,
		"type":            "CONSUMPTION",
		"quantity":        "250.5",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var mov dto.StockMovementResponse
	require.NoError(t, json.Unmarshal(raw, &mov))
	assert.True(t, mov.Quantity.Equal(decimal.RequireFromString("-250.5")))
	assert.True(t, mov.StockAfter.Equal(decimal.RequireFromString("749.5")))
	assert.Equal(t, int64(2), mov.Sequence)

	resp, raw = api.do(http.MethodGet, "/api/stock/raw-materials/"+rmCommonID, api.operator(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var stock dto.CurrentStockResponse
	require.NoError(t, json.Unmarshal(raw, &stock))
	assert.True(t, stock.Quantity.Equal(decimal.RequireFromString("749.5")))

	resp, raw = api.do(http.MethodGet, "/api/batches/"+received.Batch.ID, api.operator(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var batch dto.BatchResponse
	require.NoError(t, json.Unmarshal(raw, &batch))
	assert.True(t, batch.CurrentQuantity.Equal(decimal.RequireFromString("749.5")))
	assert.False(t, batch.Expired)
	assert.False(t, batch.Depleted)

	resp, raw = api.do(http.MethodGet, "/api/stock/movements?raw_material_id="+rmCommonID, api.operator(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list dto.ListResponse[dto.StockMovementResponse]
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list.Items, 2)
	assert.Equal(t, "ENTRY", list.Items[0].Type)
	assert.Equal(t, "CONSUMPTION", list.Items[1].Type)
}

func TestAPI_SaldoInsuficienteResponde422(t *testing.T) {
	api := newAPI(t)
	api.receive(api.operator(), receiveBody(rmCommonID, "L-1", "10"))

	resp, raw := api.do(http.MethodPost, "/api/stock/movements", api.operator(), map[string]any{
		"raw_material_id": rmCommonID,
		"type":            "EXIT",
		"quantity":        "10.001",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(raw), "INSUFFICIENT_BALANCE")
}

func TestAPI_ValidacionDeCuerpo(t *testing.T) {
	api := newAPI(t)
	body := receiveBody(rmCommonID, "", "10")

	resp, raw := api.do(http.MethodPost, "/api/batches", api.operator(), body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var verr dto.ValidationErrorResponse
	require.NoError(t, json.Unmarshal(raw, &verr))
	assert.Equal(t, "VALIDATION", verr.Code)
	assert.Equal(t, "required", verr.Fields["batch_number"])

	resp, _ = api.do(http.MethodPost, "/api/stock/movements", api.operator(), map[string]any{
		"raw_material_id": rmCommonID,
		"type":            "TRANSFER",
		"quantity":        "1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_CantidadCeroEsErrorDeDominio(t *testing.T) {
	api := newAPI(t)
	resp, raw := api.do(http.MethodPost, "/api/batches", api.operator(), receiveBody(rmCommonID, "L-0", "0"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(raw), "VALIDATION")
}

func TestAPI_OperadorNoDecideCalidad(t *testing.T) {
	api := newAPI(t)
	received := api.receive(api.operator(), receiveBody(rmCommonID, "L-2", "5"))

	resp, _ := api.do(http.MethodPost, "/api/batches/"+received.Batch.ID+"/approve", api.operator(), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAPI_TransicionInvalidaResponde409(t *testing.T) {
	api := newAPI(t)
	received := api.receive(api.operator(), receiveBody(rmCommonID, "L-3", "5"))

	resp, raw := api.do(http.MethodPost, "/api/batches/"+received.Batch.ID+"/reject", api.pharmacist(),
		map[string]any{"reason": "certificado no conforme"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var rejected dto.RejectBatchResponse
	require.NoError(t, json.Unmarshal(raw, &rejected))
	assert.Equal(t, "REJECTED", rejected.Batch.Status)
	assert.Equal(t, "LOSS", rejected.Movement.Type)
	assert.True(t, rejected.Batch.Depleted)

	resp, raw = api.do(http.MethodPost, "/api/batches/"+received.Batch.ID+"/approve", api.pharmacist(), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(raw), "INVALID_STATE")
}

func TestAPI_OtroEstablecimientoNoVeElLote(t *testing.T) {
	api := newAPI(t)
	received := api.receive(api.operator(), receiveBody(rmCommonID, "L-4", "5"))

	foreign := bearer(t, foreignEmpID, otherEstID, pkgjwt.RoleAdmin)
	resp, _ := api.do(http.MethodGet, "/api/batches/"+received.Batch.ID, foreign, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = api.do(http.MethodGet, "/api/stock/raw-materials/"+rmCommonID, foreign, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_IdentificadorMalFormadoEs404(t *testing.T) {
	api := newAPI(t)
	cases := []struct {
		method, path string
		auth         string
	}{
		{http.MethodGet, "/api/batches/not-a-uuid", api.operator()},
		{http.MethodPost, "/api/batches/not-a-uuid/approve", api.pharmacist()},
		{http.MethodPost, "/api/batches/123/reject", api.pharmacist()},
		{http.MethodGet, "/api/stock/raw-materials/MP001", api.operator()},
		{http.MethodGet, "/api/controlled/raw-materials/MP002/balance", api.operator()},
		{http.MethodGet, "/api/controlled/balances/not-a-uuid", api.operator()},
		{http.MethodPost, "/api/controlled/balances/not-a-uuid/close", api.pharmacist()},
	}
	for _, tc := range cases {
		resp, raw := api.do(tc.method, tc.path, tc.auth, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, "%s %s: %s", tc.method, tc.path, raw)
		var body dto.ErrorResponse
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "NOT_FOUND", body.Code)
	}
}

func TestAPI_ListarLotesPorPredicado(t *testing.T) {
	api := newAPI(t)
	api.receive(api.operator(), receiveBody(rmCommonID, "L-5", "5"))
	soon := receiveBody(rmCommonID, "L-6", "5")
	soon["expires_at"] = fixedNow.AddDate(0, 0, 10).Format(time.RFC3339)
	api.receive(api.operator(), soon)

	resp, raw := api.do(http.MethodGet, "/api/batches?expiring_in_days=30", api.operator(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var list dto.ListResponse[dto.BatchResponse]
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "L-6", list.Items[0].BatchNumber)

	resp, raw = api.do(http.MethodGet, "/api/batches?status=QUARANTINE&limit=1", api.operator(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Len(t, list.Items, 1)
	assert.Equal(t, 1, list.Page.Limit)
}

func TestAPI_LibroControladoYBalance(t *testing.T) {
	api := newAPI(t)

	resp, raw := api.do(http.MethodPost, "/api/controlled/movements", api.operator(), map[string]any{
		"raw_material_id": rmControlID, "type": "ENTRY", "quantity": "100",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, string(raw))

	resp, raw = api.do(http.MethodPost, "/api/controlled/movements", api.pharmacist(), map[string]any{
		"raw_material_id": rmControlID, "type": "ENTRY", "quantity": "100",
		"record": map[string]any{"document_number": "NF-9"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	resp, raw = api.do(http.MethodPost, "/api/controlled/movements", api.pharmacist(), map[string]any{
		"raw_material_id": rmControlID, "type": "EXIT", "quantity": "30",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(raw))

	resp, raw = api.do(http.MethodPost, "/api/controlled/movements", api.pharmacist(), map[string]any{
		"raw_material_id": rmControlID, "type": "EXIT", "quantity": "30",
		"record": map[string]any{
			"prescription_number":       "RX-1",
			"prescriber_name":           "dra. maría lópez",
			"prescriber_council":        "crm",
			"prescriber_council_number": "12345",
			"patient_name":              "joão silva",
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var exit dto.ControlledMovementResponse
	require.NoError(t, json.Unmarshal(raw, &exit))
	assert.Equal(t, "DRA. MARIA LOPEZ", exit.PrescriberName)
	assert.Equal(t, "CRM", exit.PrescriberCouncil)
	assert.True(t, exit.BalanceAfter.Equal(decimal.NewFromInt(70)))

	resp, raw = api.do(http.MethodGet, "/api/controlled/raw-materials/"+rmControlID+"/balance", api.operator(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var current dto.ControlledBalanceResponse
	require.NoError(t, json.Unmarshal(raw, &current))
	assert.True(t, current.Balance.Equal(decimal.NewFromInt(70)))

	resp, raw = api.do(http.MethodPost, "/api/controlled/balances/generate", api.pharmacist(), map[string]any{
		"period_start": fixedNow.AddDate(0, 0, -1).Format(time.RFC3339),
		"period_end":   fixedNow.AddDate(0, 0, 1).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var generated []dto.PeriodBalanceResponse
	require.NoError(t, json.Unmarshal(raw, &generated))
	require.Len(t, generated, 1)
	b := generated[0]
	assert.True(t, b.InitialBalance.IsZero())
	assert.True(t, b.TotalEntries.Equal(decimal.NewFromInt(100)))
	assert.True(t, b.TotalExits.Equal(decimal.NewFromInt(30)))
	assert.True(t, b.FinalBalance.Equal(decimal.NewFromInt(70)))
	assert.Equal(t, "OPEN", b.Status)
	assert.Equal(t, "PENDING", b.SubmissionStatus)

	resp, raw = api.do(http.MethodPost, "/api/controlled/balances/"+b.ID+"/submission", api.pharmacist(),
		map[string]any{"status": "SUBMITTED", "protocol": "ANVISA-1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(raw))

	resp, raw = api.do(http.MethodPost, "/api/controlled/balances/"+b.ID+"/close", api.pharmacist(),
		map[string]any{"physical_count": "69.5"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var closed dto.PeriodBalanceResponse
	require.NoError(t, json.Unmarshal(raw, &closed))
	assert.Equal(t, "CLOSED", closed.Status)
	require.NotNil(t, closed.Difference)
	assert.True(t, closed.Difference.Equal(decimal.RequireFromString("-0.5")))

	resp, raw = api.do(http.MethodPost, "/api/controlled/balances/"+b.ID+"/submission", api.pharmacist(),
		map[string]any{"status": "SUBMITTED"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(raw))

	resp, raw = api.do(http.MethodPost, "/api/controlled/balances/"+b.ID+"/submission", api.pharmacist(),
		map[string]any{"status": "SUBMITTED", "protocol": "ANVISA-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, raw = api.do(http.MethodGet, "/api/controlled/balances?status=CLOSED", api.operator(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list dto.ListResponse[dto.PeriodBalanceResponse]
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "SUBMITTED", list.Items[0].SubmissionStatus)
	assert.Equal(t, "ANVISA-1", list.Items[0].SubmissionProtocol)
}

func TestAPI_SinTokenResponde401(t *testing.T) {
	api := newAPI(t)
	resp, _ := api.do(http.MethodGet, "/api/batches", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
