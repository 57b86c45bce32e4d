package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/magistral-api/internal/domain/entity"
)

// RegulatoryRecordRequest datos de receta, prescriptor y paciente.
type RegulatoryRecordRequest struct {
	DocumentNumber          string     `json:"document_number,omitempty" validate:"max=64"`
	PrescriptionNumber      string     `json:"prescription_number,omitempty" validate:"max=64"`
	PrescriptionDate        *time.Time `json:"prescription_date,omitempty"`
	PrescriberName          string     `json:"prescriber_name,omitempty" validate:"max=200"`
	PrescriberCouncil       string     `json:"prescriber_council,omitempty" validate:"max=16"`
	PrescriberCouncilNumber string     `json:"prescriber_council_number,omitempty" validate:"max=32"`
	PrescriberState         string     `json:"prescriber_state,omitempty" validate:"max=4"`
	PatientName             string     `json:"patient_name,omitempty" validate:"max=200"`
	PatientDocument         string     `json:"patient_document,omitempty" validate:"max=32"`
}

// ToEntity convierte a la entidad de dominio; nil se mantiene nil.
func (r *RegulatoryRecordRequest) ToEntity() *entity.RegulatoryRecord {
	if r == nil {
		return nil
	}
	return &entity.RegulatoryRecord{
		DocumentNumber:          r.DocumentNumber,
		PrescriptionNumber:      r.PrescriptionNumber,
		PrescriptionDate:        r.PrescriptionDate,
		PrescriberName:          r.PrescriberName,
		PrescriberCouncil:       r.PrescriberCouncil,
		PrescriberCouncilNumber: r.PrescriberCouncilNumber,
		PrescriberState:         r.PrescriberState,
		PatientName:             r.PatientName,
		PatientDocument:         r.PatientDocument,
	}
}

// PostControlledMovementRequest body para POST /api/controlled/movements.
// En ADJUSTMENT, Quantity es el saldo absoluto resultante.
type PostControlledMovementRequest struct {
	RawMaterialID string                  `json:"raw_material_id" validate:"required,uuid"`
	BatchID       string                  `json:"batch_id,omitempty" validate:"omitempty,uuid"`
	Type          string                  `json:"type" validate:"required,oneof=ENTRY EXIT LOSS ADJUSTMENT"`
	Quantity      decimal.Decimal         `json:"quantity"`
	Record        RegulatoryRecordRequest `json:"record"`
	Reason        string                  `json:"reason,omitempty" validate:"max=500"`
	Notes         string                  `json:"notes,omitempty" validate:"max=1000"`
	AuthorizedBy  string                  `json:"authorized_by,omitempty" validate:"omitempty,uuid"`
}

// ControlledMovementResponse asiento del libro de controlados.
type ControlledMovementResponse struct {
	ID                      string          `json:"id"`
	RawMaterialID           string          `json:"raw_material_id"`
	BatchID                 string          `json:"batch_id,omitempty"`
	Type                    string          `json:"type"`
	Classification          string          `json:"classification"`
	SubstanceCode           string          `json:"substance_code,omitempty"`
	Quantity                decimal.Decimal `json:"quantity"`
	BalanceBefore           decimal.Decimal `json:"balance_before"`
	BalanceAfter            decimal.Decimal `json:"balance_after"`
	Sequence                int64           `json:"sequence"`
	DocumentNumber          string          `json:"document_number,omitempty"`
	PrescriptionNumber      string          `json:"prescription_number,omitempty"`
	PrescriptionDate        *time.Time      `json:"prescription_date,omitempty"`
	PrescriberName          string          `json:"prescriber_name,omitempty"`
	PrescriberCouncil       string          `json:"prescriber_council,omitempty"`
	PrescriberCouncilNumber string          `json:"prescriber_council_number,omitempty"`
	PrescriberState         string          `json:"prescriber_state,omitempty"`
	PatientName             string          `json:"patient_name,omitempty"`
	PatientDocument         string          `json:"patient_document,omitempty"`
	StockMovementID         string          `json:"stock_movement_id,omitempty"`
	Reason                  string          `json:"reason,omitempty"`
	Notes                   string          `json:"notes,omitempty"`
	PerformedBy             string          `json:"performed_by"`
	AuthorizedBy            string          `json:"authorized_by,omitempty"`
	CreatedAt               time.Time       `json:"created_at"`
}

// ControlledBalanceResponse saldo vigente de una sustancia controlada.
type ControlledBalanceResponse struct {
	RawMaterialID string          `json:"raw_material_id"`
	Balance       decimal.Decimal `json:"balance"`
}

// GenerateBalancesRequest body para POST /api/controlled/balances/generate.
type GenerateBalancesRequest struct {
	PeriodStart    time.Time `json:"period_start"`
	PeriodEnd      time.Time `json:"period_end"`
	RawMaterialIDs []string  `json:"raw_material_ids,omitempty" validate:"omitempty,dive,uuid"`
}

// CloseBalanceRequest body para POST /api/controlled/balances/:id/close.
type CloseBalanceRequest struct {
	PhysicalCount decimal.Decimal `json:"physical_count"`
	Notes         string          `json:"notes,omitempty" validate:"max=1000"`
}

// SubmissionRequest body para POST /api/controlled/balances/:id/submission.
type SubmissionRequest struct {
	Status   string `json:"status" validate:"required,oneof=SUBMITTED ACCEPTED REJECTED"`
	Protocol string `json:"protocol,omitempty" validate:"required_if=Status SUBMITTED,max=64"`
}

// BalanceListQuery filtros de GET /api/controlled/balances.
type BalanceListQuery struct {
	PageRequest
	RawMaterialID  string `query:"raw_material_id" validate:"omitempty,uuid"`
	Classification string `query:"classification" validate:"omitempty,oneof=A1 A2 A3 B1 B2 C1 C2 C3 C4 C5"`
	Status         string `query:"status" validate:"omitempty,oneof=OPEN CLOSED"`
	From           string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To             string `query:"to" validate:"omitempty,datetime=2006-01-02"`
}

// PeriodBalanceResponse balance de período de una sustancia controlada.
type PeriodBalanceResponse struct {
	ID                 string           `json:"id"`
	RawMaterialID      string           `json:"raw_material_id"`
	Classification     string           `json:"classification"`
	PeriodStart        time.Time        `json:"period_start"`
	PeriodEnd          time.Time        `json:"period_end"`
	InitialBalance     decimal.Decimal  `json:"initial_balance"`
	TotalEntries       decimal.Decimal  `json:"total_entries"`
	TotalExits         decimal.Decimal  `json:"total_exits"`
	TotalLosses        decimal.Decimal  `json:"total_losses"`
	TotalAdjustments   decimal.Decimal  `json:"total_adjustments"`
	FinalBalance       decimal.Decimal  `json:"final_balance"`
	MovementCount      int              `json:"movement_count"`
	PhysicalCount      *decimal.Decimal `json:"physical_count,omitempty"`
	Difference         *decimal.Decimal `json:"difference,omitempty"`
	Status             string           `json:"status"`
	Notes              string           `json:"notes,omitempty"`
	ClosedBy           string           `json:"closed_by,omitempty"`
	ClosedAt           *time.Time       `json:"closed_at,omitempty"`
	SubmissionStatus   string           `json:"submission_status"`
	SubmissionProtocol string           `json:"submission_protocol,omitempty"`
	SubmittedAt        *time.Time       `json:"submitted_at,omitempty"`
	GeneratedBy        string           `json:"generated_by"`
	CreatedAt          time.Time        `json:"created_at"`
}

// ControlledMovementFromEntity convierte un asiento controlado.
func ControlledMovementFromEntity(m *entity.ControlledSubstanceMovement) ControlledMovementResponse {
	return ControlledMovementResponse{
		ID:                      m.ID,
		RawMaterialID:           m.RawMaterialID,
		BatchID:                 m.BatchID,
		Type:                    string(m.Type),
		Classification:          string(m.Classification),
		SubstanceCode:           m.SubstanceCode,
		Quantity:                m.Quantity,
		BalanceBefore:           m.BalanceBefore,
		BalanceAfter:            m.BalanceAfter,
		Sequence:                m.Sequence,
		DocumentNumber:          m.DocumentNumber,
		PrescriptionNumber:      m.PrescriptionNumber,
		PrescriptionDate:        m.PrescriptionDate,
		PrescriberName:          m.PrescriberName,
		PrescriberCouncil:       m.PrescriberCouncil,
		PrescriberCouncilNumber: m.PrescriberCouncilNumber,
		PrescriberState:         m.PrescriberState,
		PatientName:             m.PatientName,
		PatientDocument:         m.PatientDocument,
		StockMovementID:         m.StockMovementID,
		Reason:                  m.Reason,
		Notes:                   m.Notes,
		PerformedBy:             m.PerformedBy,
		AuthorizedBy:            m.AuthorizedBy,
		CreatedAt:               m.CreatedAt,
	}
}

// ControlledMovementsFromEntities convierte un listado.
func ControlledMovementsFromEntities(list []*entity.ControlledSubstanceMovement) []ControlledMovementResponse {
	return mapSlice(list, ControlledMovementFromEntity)
}

// PeriodBalanceFromEntity convierte un balance de período.
func PeriodBalanceFromEntity(b *entity.ControlledSubstanceBalance) PeriodBalanceResponse {
	return PeriodBalanceResponse{
		ID:                 b.ID,
		RawMaterialID:      b.RawMaterialID,
		Classification:     string(b.Classification),
		PeriodStart:        b.PeriodStart,
		PeriodEnd:          b.PeriodEnd,
		InitialBalance:     b.InitialBalance,
		TotalEntries:       b.TotalEntries,
		TotalExits:         b.TotalExits,
		TotalLosses:        b.TotalLosses,
		TotalAdjustments:   b.TotalAdjustments,
		FinalBalance:       b.FinalBalance,
		MovementCount:      b.MovementCount,
		PhysicalCount:      b.PhysicalCount,
		Difference:         b.Difference,
		Status:             string(b.Status),
		Notes:              b.Notes,
		ClosedBy:           b.ClosedBy,
		ClosedAt:           b.ClosedAt,
		SubmissionStatus:   string(b.SubmissionStatus),
		SubmissionProtocol: b.SubmissionProtocol,
		SubmittedAt:        b.SubmittedAt,
		GeneratedBy:        b.GeneratedBy,
		CreatedAt:          b.CreatedAt,
	}
}

// PeriodBalancesFromEntities convierte un listado.
func PeriodBalancesFromEntities(list []*entity.ControlledSubstanceBalance) []PeriodBalanceResponse {
	return mapSlice(list, PeriodBalanceFromEntity)
}
