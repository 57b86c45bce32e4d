package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/magistral-api/internal/application/controlled"
	"github.com/jhoicas/magistral-api/internal/application/inventory"
	"github.com/jhoicas/magistral-api/pkg/jwt"
	"github.com/jhoicas/magistral-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Batches    *inventory.BatchUseCase
	Stock      *inventory.StockLedgerUseCase
	Controlled *controlled.SubLedgerUseCase
	Balances   *controlled.BalanceUseCase
	JWTSecret  string
	Log        *logger.Logger
	// Now evalúa vencido/agotado en las respuestas; time.Now si es nil.
	Now func() time.Time
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("http")
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	anyRole := RequireRole(jwt.RoleAdmin, jwt.RolePharmacist, jwt.RoleOperator)
	pharmacist := RequireRole(jwt.RoleAdmin, jwt.RolePharmacist)

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret), anyRole)

	// Lotes: la decisión de calidad la toma el farmacéutico responsable
	batches := api.Group("/batches")
	batchHandler := NewBatchHandler(deps.Batches, now, log)
	batches.Post("/", batchHandler.Receive)
	batches.Get("/", batchHandler.List)
	batches.Get("/:id", batchHandler.GetByID)
	batches.Post("/:id/approve", pharmacist, batchHandler.Approve)
	batches.Post("/:id/reject", pharmacist, batchHandler.Reject)

	// Libro general
	stock := api.Group("/stock")
	stockHandler := NewStockHandler(deps.Stock, log)
	stock.Post("/movements", stockHandler.PostMovement)
	stock.Get("/movements", stockHandler.ListMovements)
	stock.Get("/raw-materials/:id", stockHandler.CurrentStock)

	// Libro de controlados y balances de período
	ctrl := api.Group("/controlled")
	controlledHandler := NewControlledHandler(deps.Controlled, log)
	ctrl.Post("/movements", pharmacist, controlledHandler.PostMovement)
	ctrl.Get("/movements", controlledHandler.ListMovements)
	ctrl.Get("/raw-materials/:id/balance", controlledHandler.CurrentBalance)

	balanceHandler := NewBalanceHandler(deps.Balances, log)
	ctrl.Post("/balances/generate", pharmacist, balanceHandler.Generate)
	ctrl.Get("/balances", balanceHandler.List)
	ctrl.Get("/balances/:id", balanceHandler.GetByID)
	ctrl.Post("/balances/:id/close", pharmacist, balanceHandler.Close)
	ctrl.Post("/balances/:id/submission", pharmacist, balanceHandler.MarkSubmission)
}
