package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/magistral-api/internal/application/controlled"
	"github.com/jhoicas/magistral-api/internal/application/dto"
	"github.com/jhoicas/magistral-api/internal/domain/entity"
	"github.com/jhoicas/magistral-api/pkg/logger"
)

// ControlledHandler maneja el libro de sustancias controladas (protegido).
type ControlledHandler struct {
	uc  *controlled.SubLedgerUseCase
	log *logger.Logger
}

// NewControlledHandler construye el handler.
func NewControlledHandler(uc *controlled.SubLedgerUseCase, log *logger.Logger) *ControlledHandler {
	return &ControlledHandler{uc: uc, log: log}
}

// PostMovement godoc
// @Summary      Registrar movimiento controlado
// @Description  EXIT y LOSS exigen receta, prescriptor y paciente. En ADJUSTMENT quantity es el saldo resultante.
// @Tags         controlled
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.PostControlledMovementRequest  true  "Movimiento"
// @Success      201   {object}  dto.ControlledMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/controlled/movements [post]
func (h *ControlledHandler) PostMovement(c *fiber.Ctx) error {
	establishmentID, userID, ok := requireIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.PostControlledMovementRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	mov, err := h.uc.Post(c.UserContext(), controlled.PostInput{
		EstablishmentID: establishmentID,
		RawMaterialID:   in.RawMaterialID,
		BatchID:         in.BatchID,
		Type:            entity.MovementType(in.Type),
		Quantity:        in.Quantity,
		Record:          *in.Record.ToEntity(),
		Reason:          in.Reason,
		Notes:           in.Notes,
		PerformedBy:     userID,
		AuthorizedBy:    in.AuthorizedBy,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ControlledMovementFromEntity(mov))
}

// ListMovements godoc
// @Summary      Listar movimientos controlados
// @Tags         controlled
// @Security     Bearer
// @Produce      json
// @Param        raw_material_id  query  string  false  "Materia prima"
// @Param        type             query  string  false  "ENTRY | EXIT | LOSS | ADJUSTMENT"
// @Param        from             query  string  false  "Desde (YYYY-MM-DD)"
// @Param        to               query  string  false  "Hasta (YYYY-MM-DD, inclusive)"
// @Param        limit            query  int     false  "Límite"
// @Param        offset           query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.ListResponse[dto.ControlledMovementResponse]
// @Router       /api/controlled/movements [get]
func (h *ControlledHandler) ListMovements(c *fiber.Ctx) error {
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
	return c.JSON(dto.NewListResponse(dto.ControlledMovementsFromEntities(list), q.PageRequest))
}

// CurrentBalance godoc
// @Summary      Saldo controlado vigente
// @Tags         controlled
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la materia prima"
// @Success      200  {object}  dto.ControlledBalanceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/controlled/raw-materials/{id}/balance [get]
func (h *ControlledHandler) CurrentBalance(c *fiber.Ctx) error {
	establishmentID, _, ok := requireIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	rawMaterialID, err := pathID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	balance, err := h.uc.CurrentBalance(c.UserContext(), establishmentID, rawMaterialID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ControlledBalanceResponse{RawMaterialID: rawMaterialID, Balance: balance})
}
