package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/magistral-api/internal/application/dto"
	"github.com/jhoicas/magistral-api/internal/application/inventory"
	"github.com/jhoicas/magistral-api/internal/domain/entity"
	"github.com/jhoicas/magistral-api/internal/domain/repository"
	"github.com/jhoicas/magistral-api/pkg/logger"
)

// StockHandler maneja el libro general de stock (protegido).
type StockHandler struct {
	uc  *inventory.StockLedgerUseCase
	log *logger.Logger
}

// NewStockHandler construye el handler.
func NewStockHandler(uc *inventory.StockLedgerUseCase, log *logger.Logger) *StockHandler {
	return &StockHandler{uc: uc, log: log}
}

// PostMovement godoc
// @Summary      Registrar movimiento de stock
// @Description  quantity es positiva salvo en ADJUSTMENT (delta con signo). Con "controlled" se replica en el libro de controlados.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.PostStockMovementRequest  true  "Movimiento"
// @Success      201   {object}  dto.StockMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/stock/movements [post]
func (h *StockHandler) PostMovement(c *fiber.Ctx) error {
	establishmentID, userID, ok := requireIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.PostStockMovementRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	mov, err := h.uc.Post(c.UserContext(), inventory.PostInput{
		EstablishmentID: establishmentID,
		RawMaterialID:   in.RawMaterialID,
		BatchID:         in.BatchID,
		Type:            entity.MovementType(in.Type),
		Quantity:        in.Quantity,
		UnitCost:        in.UnitCost,
		Reason:          in.Reason,
		Notes:           in.Notes,
		OrderID:         in.OrderID,
		SaleID:          in.SaleID,
		SupplierID:      in.SupplierID,
		PerformedBy:     userID,
		AuthorizedBy:    in.AuthorizedBy,
		Controlled:      in.Controlled.ToEntity(),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.StockMovementFromEntity(mov))
}

// ListMovements godoc
// @Summary      Listar movimientos de stock
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        raw_material_id  query  string  false  "Materia prima"
// @Param        batch_id         query  string  false  "Lote"
// @Param        type             query  string  false  "Tipo de movimiento"
// @Param        from             query  string  false  "Desde (YYYY-MM-DD)"
// @Param        to               query  string  false  "Hasta (YYYY-MM-DD, inclusive)"
// @Param        limit            query  int     false  "Límite"
// @Param        offset           query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.ListResponse[dto.StockMovementResponse]
// @Router       /api/stock/movements [get]
func (h *StockHandler) ListMovements(c *fiber.Ctx) error {
	establishmentID, _, ok := requireIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	var q dto.MovementListQuery
	if ok, err := parseQuery(c, &q); !ok {
		return err
	}
	list, err := h.uc.ListMovements(c.UserContext(), movementFilter(establishmentID, &q))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewListResponse(dto.StockMovementsFromEntities(list), q.PageRequest))
}

// CurrentStock godoc
// @Summary      Stock vigente de una materia prima
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la materia prima"
// @Success      200  {object}  dto.CurrentStockResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/raw-materials/{id} [get]
func (h *StockHandler) CurrentStock(c *fiber.Ctx) error {
	establishmentID, _, ok := requireIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	balance, err := h.uc.CurrentStock(c.UserContext(), establishmentID, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.CurrentStockFromEntity(balance))
}

func movementFilter(establishmentID string, q *dto.MovementListQuery) repository.MovementFilter {
	q.DefaultPage()
	from, to := dateRange(q.From, q.To)
	return repository.MovementFilter{
		EstablishmentID: establishmentID,
		RawMaterialID:   q.RawMaterialID,
		BatchID:         q.BatchID,
		Type:            entity.MovementType(q.Type),
		From:            from,
		To:              to,
		Limit:           q.Limit,
		Offset:          q.Offset,
	}
}
