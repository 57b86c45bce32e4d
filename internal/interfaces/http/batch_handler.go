package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/magistral-api/internal/application/dto"
	"github.com/jhoicas/magistral-api/internal/application/inventory"
	"github.com/jhoicas/magistral-api/internal/domain/entity"
	"github.com/jhoicas/magistral-api/internal/domain/repository"
	"github.com/jhoicas/magistral-api/pkg/logger"
)

// BatchHandler maneja recepción, decisión de calidad y consulta de lotes (protegido).
type BatchHandler struct {
	uc  *inventory.BatchUseCase
	now func() time.Time
	log *logger.Logger
}

// NewBatchHandler construye el handler.
func NewBatchHandler(uc *inventory.BatchUseCase, now func() time.Time, log *logger.Logger) *BatchHandler {
	return &BatchHandler{uc: uc, now: now, log: log}
}

// Receive godoc
// @Summary      Recibir lote
// @Description  Crea el lote en cuarentena y registra la entrada en el libro general en la misma transacción.
// @Tags         batches
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReceiveBatchRequest  true  "Datos de recepción"
// @Success      201   {object}  dto.ReceiveBatchResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/batches [post]
func (h *BatchHandler) Receive(c *fiber.Ctx) error {
	establishmentID, userID, ok := requireIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.ReceiveBatchRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	batch, mov, err := h.uc.Receive(c.UserContext(), inventory.ReceiveInput{
		EstablishmentID:     establishmentID,
		RawMaterialID:       in.RawMaterialID,
		SupplierID:          in.SupplierID,
		BatchNumber:         in.BatchNumber,
		InvoiceNumber:       in.InvoiceNumber,
		Quantity:            in.Quantity,
		UnitCost:            in.UnitCost,
		ManufacturedAt:      in.ManufacturedAt,
		ExpiresAt:           in.ExpiresAt,
		CertificateNumber:   in.CertificateNumber,
		CertificateIssuedAt: in.CertificateIssuedAt,
		QualityNotes:        in.QualityNotes,
		ReceivedBy:          userID,
		Controlled:          in.Controlled.ToEntity(),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ReceiveBatchResponse{
		Batch:    dto.BatchFromEntity(batch, h.now()),
		Movement: dto.StockMovementFromEntity(mov),
	})
}

// Approve godoc
// @Summary      Aprobar lote
// @Tags         batches
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID del lote"
// @Param        body  body  dto.ApproveBatchRequest  false "Certificado y notas"
// @Success      200   {object}  dto.BatchResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/batches/{id}/approve [post]
func (h *BatchHandler) Approve(c *fiber.Ctx) error {
	establishmentID, userID, ok := requireIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var in dto.ApproveBatchRequest
	if len(c.Body()) > 0 {
		if ok, err := parseBody(c, &in); !ok {
			return err
		}
	}
	batch, err := h.uc.Approve(c.UserContext(), inventory.ApproveInput{
		BatchID:           id,
		EstablishmentID:   establishmentID,
		CertificateNumber: in.CertificateNumber,
		Notes:             in.Notes,
		ApprovedBy:        userID,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.BatchFromEntity(batch, h.now()))
}

// Reject godoc
// @Summary      Rechazar lote
// @Description  Marca el lote como rechazado y da de baja la cantidad recibida con un movimiento LOSS.
// @Tags         batches
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID del lote"
// @Param        body  body  dto.RejectBatchRequest  true  "Motivo del rechazo"
// @Success      200   {object}  dto.RejectBatchResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/batches/{id}/reject [post]
func (h *BatchHandler) Reject(c *fiber.Ctx) error {
	establishmentID, userID, ok := requireIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var in dto.RejectBatchRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	batch, mov, err := h.uc.Reject(c.UserContext(), inventory.RejectInput{
		BatchID:         id,
		EstablishmentID: establishmentID,
		Reason:          in.Reason,
		Notes:           in.Notes,
		RejectedBy:      userID,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.RejectBatchResponse{
		Batch:    dto.BatchFromEntity(batch, h.now()),
		Movement: dto.StockMovementFromEntity(mov),
	})
}

// GetByID godoc
// @Summary      Obtener lote
// @Tags         batches
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del lote"
// @Success      200  {object}  dto.BatchResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/batches/{id} [get]
func (h *BatchHandler) GetByID(c *fiber.Ctx) error {
	establishmentID, _, ok := requireIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	batch, err := h.uc.Get(c.UserContext(), establishmentID, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.BatchFromEntity(batch, h.now()))
}

// List godoc
// @Summary      Listar lotes
// @Tags         batches
// @Security     Bearer
// @Produce      json
// @Param        raw_material_id   query  string  false  "Materia prima"
// @Param        status            query  string  false  "QUARANTINE | APPROVED | REJECTED"
// @Param        expired           query  bool    false  "Solo vencidos (true) o vigentes (false)"
// @Param        depleted          query  bool    false  "Solo agotados (true) o con saldo (false)"
// @Param        expiring_in_days  query  int     false  "Vencen dentro de N días"
// @Param        limit             query  int     false  "Límite"
// @Param        offset            query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.ListResponse[dto.BatchResponse]
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/batches [get]
func (h *BatchHandler) List(c *fiber.Ctx) error {
	establishmentID, _, ok := requireIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	var q dto.BatchListQuery
	if ok, err := parseQuery(c, &q); !ok {
		return err
	}
	q.DefaultPage()
	now := h.now()
	filter := repository.BatchFilter{
		EstablishmentID: establishmentID,
		RawMaterialID:   q.RawMaterialID,
		Status:          entity.BatchStatus(q.Status),
		Expired:         q.Expired,
		Depleted:        q.Depleted,
		Now:             now,
		Limit:           q.Limit,
		Offset:          q.Offset,
	}
	if q.ExpiringInDays > 0 {
		until := now.AddDate(0, 0, q.ExpiringInDays)
		filter.ExpiringBefore = &until
	}
	list, err := h.uc.List(c.UserContext(), filter)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewListResponse(dto.BatchesFromEntities(list, now), q.PageRequest))
}
