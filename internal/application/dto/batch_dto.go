package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/magistral-api/internal/domain/entity"
)

// ReceiveBatchRequest body para POST /api/batches.
type ReceiveBatchRequest struct {
	RawMaterialID       string                   `json:"raw_material_id" validate:"required,uuid"`
	SupplierID          string                   `json:"supplier_id" validate:"required,uuid"`
	BatchNumber         string                   `json:"batch_number" validate:"required,max=64"`
	InvoiceNumber       string                   `json:"invoice_number,omitempty" validate:"max=64"`
	Quantity            decimal.Decimal          `json:"quantity"`
	UnitCost            decimal.Decimal          `json:"unit_cost"`
	ManufacturedAt      *time.Time               `json:"manufactured_at,omitempty"`
	ExpiresAt           time.Time                `json:"expires_at"`
	CertificateNumber   string                   `json:"certificate_number,omitempty" validate:"max=64"`
	CertificateIssuedAt *time.Time               `json:"certificate_issued_at,omitempty"`
	QualityNotes        string                   `json:"quality_notes,omitempty" validate:"max=1000"`
	Controlled          *RegulatoryRecordRequest `json:"controlled,omitempty"`
}

// ApproveBatchRequest body para POST /api/batches/:id/approve.
type ApproveBatchRequest struct {
	CertificateNumber string `json:"certificate_number,omitempty" validate:"max=64"`
	Notes             string `json:"notes,omitempty" validate:"max=1000"`
}

// RejectBatchRequest body para POST /api/batches/:id/reject.
type RejectBatchRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
	Notes  string `json:"notes,omitempty" validate:"max=1000"`
}

// BatchListQuery filtros de GET /api/batches.
type BatchListQuery struct {
	PageRequest
	RawMaterialID  string `query:"raw_material_id" validate:"omitempty,uuid"`
	Status         string `query:"status" validate:"omitempty,oneof=QUARANTINE APPROVED REJECTED"`
	Expired        *bool  `query:"expired"`
	Depleted       *bool  `query:"depleted"`
	ExpiringInDays int    `query:"expiring_in_days" validate:"min=0,max=3650"`
}

// BatchResponse representación de un lote. Expired y Depleted se calculan al responder.
type BatchResponse struct {
	ID                  string          `json:"id"`
	RawMaterialID       string          `json:"raw_material_id"`
	SupplierID          string          `json:"supplier_id"`
	BatchNumber         string          `json:"batch_number"`
	InvoiceNumber       string          `json:"invoice_number,omitempty"`
	ReceivedQuantity    decimal.Decimal `json:"received_quantity"`
	CurrentQuantity     decimal.Decimal `json:"current_quantity"`
	UnitCost            decimal.Decimal `json:"unit_cost"`
	ReceivedAt          time.Time       `json:"received_at"`
	ManufacturedAt      *time.Time      `json:"manufactured_at,omitempty"`
	ExpiresAt           time.Time       `json:"expires_at"`
	Status              string          `json:"status"`
	Expired             bool            `json:"expired"`
	Depleted            bool            `json:"depleted"`
	CertificateNumber   string          `json:"certificate_number,omitempty"`
	CertificateIssuedAt *time.Time      `json:"certificate_issued_at,omitempty"`
	QualityNotes        string          `json:"quality_notes,omitempty"`
	ApprovedBy          string          `json:"approved_by,omitempty"`
	ApprovedAt          *time.Time      `json:"approved_at,omitempty"`
	RejectedBy          string          `json:"rejected_by,omitempty"`
	RejectedAt          *time.Time      `json:"rejected_at,omitempty"`
	RejectionReason     string          `json:"rejection_reason,omitempty"`
	CreatedBy           string          `json:"created_by"`
	CreatedAt           time.Time       `json:"created_at"`
}

// ReceiveBatchResponse lote recibido y su movimiento de entrada.
type ReceiveBatchResponse struct {
	Batch    BatchResponse         `json:"batch"`
	Movement StockMovementResponse `json:"movement"`
}

// RejectBatchResponse lote rechazado y su movimiento de pérdida.
type RejectBatchResponse struct {
	Batch    BatchResponse         `json:"batch"`
	Movement StockMovementResponse `json:"movement"`
}

// BatchFromEntity arma la respuesta evaluando los predicados derivados en now.
func BatchFromEntity(b *entity.Batch, now time.Time) BatchResponse {
	return BatchResponse{
		ID:                  b.ID,
		RawMaterialID:       b.RawMaterialID,
		SupplierID:          b.SupplierID,
		BatchNumber:         b.BatchNumber,
		InvoiceNumber:       b.InvoiceNumber,
		ReceivedQuantity:    b.ReceivedQuantity,
		CurrentQuantity:     b.CurrentQuantity,
		UnitCost:            b.UnitCost,
		ReceivedAt:          b.ReceivedAt,
		ManufacturedAt:      b.ManufacturedAt,
		ExpiresAt:           b.ExpiresAt,
		Status:              string(b.Status),
		Expired:             b.IsExpired(now),
		Depleted:            b.IsDepleted(),
		CertificateNumber:   b.CertificateNumber,
		CertificateIssuedAt: b.CertificateIssuedAt,
		QualityNotes:        b.QualityNotes,
		ApprovedBy:          b.ApprovedBy,
		ApprovedAt:          b.ApprovedAt,
		RejectedBy:          b.RejectedBy,
		RejectedAt:          b.RejectedAt,
		RejectionReason:     b.RejectionReason,
		CreatedBy:           b.CreatedBy,
		CreatedAt:           b.CreatedAt,
	}
}

// BatchesFromEntities convierte un listado.
func BatchesFromEntities(list []*entity.Batch, now time.Time) []BatchResponse {
	return mapSlice(list, func(b *entity.Batch) BatchResponse { return BatchFromEntity(b, now) })
}
