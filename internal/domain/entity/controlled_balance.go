package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceStatus estado de un balance de período.
type BalanceStatus string

const (
	BalanceStatusOpen   BalanceStatus = "OPEN"
	BalanceStatusClosed BalanceStatus = "CLOSED"
)

// SubmissionStatus estado del envío regulatorio de un balance cerrado (solo seguimiento).
type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "PENDING"
	SubmissionSubmitted SubmissionStatus = "SUBMITTED"
	SubmissionAccepted  SubmissionStatus = "ACCEPTED"
	SubmissionRejected  SubmissionStatus = "REJECTED"
)

// ControlledSubstanceBalance resumen de los movimientos controlados de una materia prima en un período.
// Se cierra una sola vez y nunca se recalcula ni se reabre.
type ControlledSubstanceBalance struct {
	ID              string
	EstablishmentID string
	RawMaterialID   string
	Classification  Classification
	PeriodStart     time.Time
	PeriodEnd       time.Time

	InitialBalance   decimal.Decimal
	TotalEntries     decimal.Decimal
	TotalExits       decimal.Decimal
	TotalLosses      decimal.Decimal
	TotalAdjustments decimal.Decimal // efecto neto de los ajustes (after - before)
	FinalBalance     decimal.Decimal
	MovementCount    int

	PhysicalCount *decimal.Decimal
	Difference    *decimal.Decimal
	Status        BalanceStatus
	Notes         string
	ClosedBy      string
	ClosedAt      *time.Time

	SubmissionStatus   SubmissionStatus
	SubmissionProtocol string
	SubmittedAt        *time.Time

	GeneratedBy string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CanMoveSubmissionTo indica si el seguimiento de envío admite pasar al estado next.
func (b *ControlledSubstanceBalance) CanMoveSubmissionTo(next SubmissionStatus) bool {
	if b.Status != BalanceStatusClosed {
		return false
	}
	switch b.SubmissionStatus {
	case SubmissionPending, SubmissionRejected:
		return next == SubmissionSubmitted
	case SubmissionSubmitted:
		return next == SubmissionAccepted || next == SubmissionRejected
	}
	return false
}
