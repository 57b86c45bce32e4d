package controlled

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/magistral-api/internal/application/ports"
	"github.com/jhoicas/magistral-api/internal/domain"
	"github.com/jhoicas/magistral-api/internal/domain/entity"
	"github.com/jhoicas/magistral-api/internal/domain/repository"
	"github.com/jhoicas/magistral-api/pkg/logger"
)

// BalanceUseCase genera, cierra y da seguimiento a los balances de período de sustancias controladas.
type BalanceUseCase struct {
	txRunner ports.TxRunner
	repos    ports.Repos
	log      *logger.Logger
	now      ports.Clock
}

// NewBalanceUseCase construye el caso de uso.
func NewBalanceUseCase(txRunner ports.TxRunner, repos ports.Repos, log *logger.Logger) *BalanceUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &BalanceUseCase{
		txRunner: txRunner,
		repos:    repos,
		log:      log.Named("controlled_balance"),
		now:      time.Now,
	}
}

// WithClock reemplaza la fuente de tiempo (tests).
func (uc *BalanceUseCase) WithClock(clock ports.Clock) *BalanceUseCase {
	uc.now = clock
	return uc
}

// GenerateInput período [PeriodStart, PeriodEnd] inclusivo; RawMaterialIDs vacío = todas.
type GenerateInput struct {
	EstablishmentID string
	PeriodStart     time.Time
	PeriodEnd       time.Time
	RawMaterialIDs  []string
	GeneratedBy     string
}

// Generate crea un balance OPEN por cada materia prima controlada con al menos un movimiento en el período.
// Cada generación produce filas nuevas, independientes de generaciones anteriores que se solapen.
func (uc *BalanceUseCase) Generate(ctx context.Context, in GenerateInput) ([]*entity.ControlledSubstanceBalance, error) {
	if in.EstablishmentID == "" {
		return nil, fmt.Errorf("%w: establecimiento requerido", domain.ErrValidation)
	}
	if in.PeriodStart.IsZero() || in.PeriodEnd.IsZero() {
		return nil, fmt.Errorf("%w: período incompleto", domain.ErrValidation)
	}
	if in.PeriodEnd.Before(in.PeriodStart) {
		return nil, fmt.Errorf("%w: el fin del período es anterior al inicio", domain.ErrValidation)
	}

	var balances []*entity.ControlledSubstanceBalance
	err := uc.txRunner.Run(ctx, func(repos ports.Repos) error {
		balances = nil
		if err := checkEmployees(ctx, repos.Employees, in.EstablishmentID, in.GeneratedBy); err != nil {
			return err
		}
		movements, err := repos.ControlledMovements.ListInRange(ctx, in.EstablishmentID, in.RawMaterialIDs, in.PeriodStart, in.PeriodEnd)
		if err != nil {
			return err
		}
		now := uc.now()
		for _, group := range groupByRawMaterial(movements) {
			b := summarize(group)
			b.ID = uuid.New().String()
			b.EstablishmentID = in.EstablishmentID
			b.PeriodStart = in.PeriodStart
			b.PeriodEnd = in.PeriodEnd
			b.Status = entity.BalanceStatusOpen
			b.SubmissionStatus = entity.SubmissionPending
			b.GeneratedBy = in.GeneratedBy
			b.CreatedAt = now
			b.UpdatedAt = now
			if err := repos.PeriodBalances.Create(ctx, b); err != nil {
				return err
			}
			balances = append(balances, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("establishment_id", in.EstablishmentID).
		Time("period_start", in.PeriodStart).
		Time("period_end", in.PeriodEnd).
		Int("balances", len(balances)).
		Msg("balances de período generados")
	return balances, nil
}

// groupByRawMaterial agrupa movimientos ya ordenados por materia prima y secuencia.
func groupByRawMaterial(movements []*entity.ControlledSubstanceMovement) [][]*entity.ControlledSubstanceMovement {
	var groups [][]*entity.ControlledSubstanceMovement
	index := map[string]int{}
	for _, m := range movements {
		i, ok := index[m.RawMaterialID]
		if !ok {
			i = len(groups)
			index[m.RawMaterialID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], m)
	}
	return groups
}

// summarize calcula saldos y totales de un grupo no vacío de movimientos de una misma materia prima.
// Los ajustes se acumulan por su efecto neto (after - before), ya que su cantidad es un saldo absoluto.
func summarize(group []*entity.ControlledSubstanceMovement) *entity.ControlledSubstanceBalance {
	first, last := group[0], group[len(group)-1]
	b := &entity.ControlledSubstanceBalance{
		RawMaterialID:    first.RawMaterialID,
		Classification:   last.Classification,
		InitialBalance:   first.BalanceBefore,
		FinalBalance:     last.BalanceAfter,
		TotalEntries:     decimal.Zero,
		TotalExits:       decimal.Zero,
		TotalLosses:      decimal.Zero,
		TotalAdjustments: decimal.Zero,
		MovementCount:    len(group),
	}
	for _, m := range group {
		switch m.Type {
		case entity.MovementEntry:
			b.TotalEntries = b.TotalEntries.Add(m.Quantity)
		case entity.MovementExit:
			b.TotalExits = b.TotalExits.Add(m.Quantity)
		case entity.MovementLoss:
			b.TotalLosses = b.TotalLosses.Add(m.Quantity)
		case entity.MovementAdjustment:
			b.TotalAdjustments = b.TotalAdjustments.Add(m.BalanceAfter.Sub(m.BalanceBefore))
		}
	}
	return b
}

// CloseInput conciliación de un balance contra el conteo físico.
type CloseInput struct {
	BalanceID       string
	EstablishmentID string
	PhysicalCount   decimal.Decimal
	Notes           string
	ClosedBy        string
}

// Close concilia y cierra un balance OPEN. Un balance cerrado no se reabre ni se recalcula.
func (uc *BalanceUseCase) Close(ctx context.Context, in CloseInput) (*entity.ControlledSubstanceBalance, error) {
	if in.ClosedBy == "" {
		return nil, fmt.Errorf("%w: responsable del cierre obligatorio", domain.ErrValidation)
	}
	if in.PhysicalCount.LessThan(decimal.Zero) {
		return nil, fmt.Errorf("%w: el conteo físico no puede ser negativo", domain.ErrValidation)
	}

	var closed *entity.ControlledSubstanceBalance
	err := uc.txRunner.Run(ctx, func(repos ports.Repos) error {
		b, err := lockBalance(ctx, repos, in.EstablishmentID, in.BalanceID)
		if err != nil {
			return err
		}
		if b.Status != entity.BalanceStatusOpen {
			return fmt.Errorf("%w: el balance ya está %s", domain.ErrInvalidStateTransition, b.Status)
		}
		if err := checkEmployees(ctx, repos.Employees, in.EstablishmentID, in.ClosedBy); err != nil {
			return err
		}
		now := uc.now()
		physical := in.PhysicalCount
		diff := physical.Sub(b.FinalBalance)
		b.PhysicalCount = &physical
		b.Difference = &diff
		b.Status = entity.BalanceStatusClosed
		b.Notes = in.Notes
		b.ClosedBy = in.ClosedBy
		b.ClosedAt = &now
		b.UpdatedAt = now
		if err := repos.PeriodBalances.Update(ctx, b); err != nil {
			return err
		}
		closed = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("balance_id", closed.ID).
		Str("raw_material_id", closed.RawMaterialID).
		Str("difference", closed.Difference.String()).
		Msg("balance cerrado")
	return closed, nil
}

// SubmissionInput nuevo estado del envío regulatorio de un balance cerrado.
type SubmissionInput struct {
	BalanceID       string
	EstablishmentID string
	Status          entity.SubmissionStatus
	Protocol        string
	ActorID         string
}

// MarkSubmission registra el estado del envío regulatorio. No envía nada: solo seguimiento.
func (uc *BalanceUseCase) MarkSubmission(ctx context.Context, in SubmissionInput) (*entity.ControlledSubstanceBalance, error) {
	switch in.Status {
	case entity.SubmissionSubmitted, entity.SubmissionAccepted, entity.SubmissionRejected:
	default:
		return nil, fmt.Errorf("%w: estado de envío %q", domain.ErrValidation, in.Status)
	}
	if in.Status == entity.SubmissionSubmitted && in.Protocol == "" {
		return nil, fmt.Errorf("%w: protocolo de envío obligatorio", domain.ErrValidation)
	}

	var updated *entity.ControlledSubstanceBalance
	err := uc.txRunner.Run(ctx, func(repos ports.Repos) error {
		b, err := lockBalance(ctx, repos, in.EstablishmentID, in.BalanceID)
		if err != nil {
			return err
		}
		if !b.CanMoveSubmissionTo(in.Status) {
			return fmt.Errorf("%w: envío %s -> %s con balance %s",
				domain.ErrInvalidStateTransition, b.SubmissionStatus, in.Status, b.Status)
		}
		if err := checkEmployees(ctx, repos.Employees, in.EstablishmentID, in.ActorID); err != nil {
			return err
		}
		now := uc.now()
		b.SubmissionStatus = in.Status
		if in.Status == entity.SubmissionSubmitted {
			b.SubmissionProtocol = in.Protocol
			b.SubmittedAt = &now
		}
		b.UpdatedAt = now
		if err := repos.PeriodBalances.Update(ctx, b); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("balance_id", updated.ID).
		Str("submission_status", string(updated.SubmissionStatus)).
		Msg("estado de envío actualizado")
	return updated, nil
}

// Get devuelve un balance del establecimiento.
func (uc *BalanceUseCase) Get(ctx context.Context, establishmentID, id string) (*entity.ControlledSubstanceBalance, error) {
	b, err := uc.repos.PeriodBalances.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil || b.EstablishmentID != establishmentID {
		return nil, fmt.Errorf("%w: balance %s", domain.ErrNotFound, id)
	}
	return b, nil
}

// List lista balances del establecimiento.
func (uc *BalanceUseCase) List(ctx context.Context, filter repository.BalanceFilter) ([]*entity.ControlledSubstanceBalance, error) {
	if filter.EstablishmentID == "" {
		return nil, fmt.Errorf("%w: establecimiento requerido", domain.ErrValidation)
	}
	return uc.repos.PeriodBalances.List(ctx, filter)
}

func lockBalance(ctx context.Context, repos ports.Repos, establishmentID, id string) (*entity.ControlledSubstanceBalance, error) {
	b, err := repos.PeriodBalances.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil || b.EstablishmentID != establishmentID {
		return nil, fmt.Errorf("%w: balance %s", domain.ErrNotFound, id)
	}
	return b, nil
}
