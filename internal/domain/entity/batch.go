package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// BatchStatus estado de calidad de un lote.
type BatchStatus string

const (
	BatchStatusQuarantine BatchStatus = "QUARANTINE" // recibido, pendiente de liberación
	BatchStatusApproved   BatchStatus = "APPROVED"
	BatchStatusRejected   BatchStatus = "REJECTED"
)

// Batch representa un lote recibido de una materia prima de un proveedor.
// Invariante: 0 <= CurrentQuantity <= ReceivedQuantity.
// Vencido y agotado son predicados derivados, nunca estados persistidos.
type Batch struct {
	ID               string
	EstablishmentID  string
	RawMaterialID    string
	SupplierID       string
	BatchNumber      string
	InvoiceNumber    string
	ReceivedQuantity decimal.Decimal
	CurrentQuantity  decimal.Decimal
	UnitCost         decimal.Decimal
	ReceivedAt       time.Time
	ManufacturedAt   *time.Time
	ExpiresAt        time.Time
	Status           BatchStatus

	// Certificado de análisis
	CertificateNumber   string
	CertificateIssuedAt *time.Time
	QualityNotes        string

	ApprovedBy      string
	ApprovedAt      *time.Time
	RejectedBy      string
	RejectedAt      *time.Time
	RejectionReason string

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsExpired indica si el lote está vencido en el instante now. Vencer "ahora" cuenta como vencido.
func (b *Batch) IsExpired(now time.Time) bool {
	return !b.ExpiresAt.After(now)
}

// IsDepleted indica si el lote ya no tiene cantidad disponible.
func (b *Batch) IsDepleted() bool {
	return b.CurrentQuantity.LessThanOrEqual(decimal.Zero)
}

// InQuarantine indica si el lote aún admite una decisión de calidad.
func (b *Batch) InQuarantine() bool {
	return b.Status == BatchStatusQuarantine
}
