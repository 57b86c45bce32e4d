package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/magistral-api/internal/application/controlled"
	"github.com/jhoicas/magistral-api/internal/application/dto"
	"github.com/jhoicas/magistral-api/internal/domain/entity"
	"github.com/jhoicas/magistral-api/internal/domain/repository"
	"github.com/jhoicas/magistral-api/pkg/logger"
)

// BalanceHandler maneja los balances de período de sustancias controladas (protegido).
type BalanceHandler struct {
	uc  *controlled.BalanceUseCase
	log *logger.Logger
}

// NewBalanceHandler construye el handler.
func NewBalanceHandler(uc *controlled.BalanceUseCase, log *logger.Logger) *BalanceHandler {
	return &BalanceHandler{uc: uc, log: log}
}

// Generate godoc
// @Summary      Generar balances de período
// @Description  Un balance por sustancia controlada con movimientos en el período. Las sustancias sin movimientos se omiten.
// @Tags         balances
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.GenerateBalancesRequest  true  "Período"
// @Success      201   {array}   dto.PeriodBalanceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/controlled/balances/generate [post]
func (h *BalanceHandler) Generate(c *fiber.Ctx) error {
	establishmentID, userID, ok := requireIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.GenerateBalancesRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	list, err := h.uc.Generate(c.UserContext(), controlled.GenerateInput{
		EstablishmentID: establishmentID,
		PeriodStart:     in.PeriodStart,
		PeriodEnd:       in.PeriodEnd,
		RawMaterialIDs:  in.RawMaterialIDs,
		GeneratedBy:     userID,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.PeriodBalancesFromEntities(list))
}

// Close godoc
// @Summary      Cerrar balance con conteo físico
// @Tags         balances
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID del balance"
// @Param        body  body  dto.CloseBalanceRequest  true  "Conteo físico"
// @Success      200   {object}  dto.PeriodBalanceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/controlled/balances/{id}/close [post]
func (h *BalanceHandler) Close(c *fiber.Ctx) error {
	establishmentID, userID, ok := requireIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var in dto.CloseBalanceRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	b, err := h.uc.Close(c.UserContext(), controlled.CloseInput{
		BalanceID:       id,
		EstablishmentID: establishmentID,
		PhysicalCount:   in.PhysicalCount,
		Notes:           in.Notes,
		ClosedBy:        userID,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.PeriodBalanceFromEntity(b))
}

// MarkSubmission godoc
// @Summary      Registrar estado de envío a la autoridad sanitaria
// @Tags         balances
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "ID del balance"
// @Param        body  body  dto.SubmissionRequest  true  "Estado y protocolo"
// @Success      200   {object}  dto.PeriodBalanceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/controlled/balances/{id}/submission [post]
func (h *BalanceHandler) MarkSubmission(c *fiber.Ctx) error {
	establishmentID, userID, ok := requireIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var in dto.SubmissionRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	b, err := h.uc.MarkSubmission(c.UserContext(), controlled.SubmissionInput{
		BalanceID:       id,
		EstablishmentID: establishmentID,
		Status:          entity.SubmissionStatus(in.Status),
		Protocol:        in.Protocol,
		ActorID:         userID,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.PeriodBalanceFromEntity(b))
}

// GetByID godoc
// @Summary      Obtener balance
// @Tags         balances
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del balance"
// @Success      200  {object}  dto.PeriodBalanceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/controlled/balances/{id} [get]
func (h *BalanceHandler) GetByID(c *fiber.Ctx) error {
	establishmentID, _, ok := requireIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	b, err := h.uc.Get(c.UserContext(), establishmentID, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.PeriodBalanceFromEntity(b))
}

// List godoc
// @Summary      Listar balances
// @Tags         balances
// @Security     Bearer
// @Produce      json
// @Param        raw_material_id  query  string  false  "Materia prima"
// @Param        classification   query  string  false  "Lista (A1...C5)"
// @Param        status           query  string  false  "OPEN | CLOSED"
// @Param        from             query  string  false  "Períodos que terminan desde (YYYY-MM-DD)"
// @Param        to               query  string  false  "Períodos que empiezan hasta (YYYY-MM-DD)"
// @Success      200  {object}  dto.ListResponse[dto.PeriodBalanceResponse]
// @Router       /api/controlled/balances [get]
func (h *BalanceHandler) List(c *fiber.Ctx) error {
	establishmentID, _, ok := requireIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	var q dto.BalanceListQuery
	if ok, err := parseQuery(c, &q); !ok {
		return err
	}
	q.DefaultPage()
	from, to := dateRange(q.From, q.To)
	list, err := h.uc.List(c.UserContext(), repository.BalanceFilter{
		EstablishmentID: establishmentID,
		RawMaterialID:   q.RawMaterialID,
		Classification:  entity.Classification(q.Classification),
		Status:          entity.BalanceStatus(q.Status),
		PeriodFrom:      from,
		PeriodTo:        to,
		Limit:           q.Limit,
		Offset:          q.Offset,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewListResponse(dto.PeriodBalancesFromEntities(list), q.PageRequest))
}
