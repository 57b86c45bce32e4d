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
	"github.com/jhoicas/magistral-api/internal/domain/inventory"
	"github.com/jhoicas/magistral-api/internal/domain/repository"
	"github.com/jhoicas/magistral-api/pkg/logger"
	"github.com/jhoicas/magistral-api/pkg/textnorm"
)

// SubLedgerUseCase registra movimientos en el libro de sustancias controladas.
// El saldo controlado es independiente del stock general, aunque ambos se mueven juntos cuando hay espejo.
type SubLedgerUseCase struct {
	txRunner ports.TxRunner
	repos    ports.Repos
	log      *logger.Logger
	now      ports.Clock
}

// NewSubLedgerUseCase construye el caso de uso. repos se usa solo para lecturas fuera de transacción.
func NewSubLedgerUseCase(txRunner ports.TxRunner, repos ports.Repos, log *logger.Logger) *SubLedgerUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &SubLedgerUseCase{
		txRunner: txRunner,
		repos:    repos,
		log:      log.Named("controlled_ledger"),
		now:      time.Now,
	}
}

// WithClock reemplaza la fuente de tiempo (tests).
func (uc *SubLedgerUseCase) WithClock(clock ports.Clock) *SubLedgerUseCase {
	uc.now = clock
	return uc
}

// PostInput entrada para registrar un movimiento controlado.
// Quantity es delta positivo en ENTRY/EXIT/LOSS y saldo absoluto en ADJUSTMENT.
type PostInput struct {
	EstablishmentID string
	RawMaterialID   string
	BatchID         string
	Type            entity.MovementType
	Quantity        decimal.Decimal
	Record          entity.RegulatoryRecord
	StockMovementID string
	Reason          string
	Notes           string
	PerformedBy     string
	AuthorizedBy    string
}

// Post registra el movimiento en su propia transacción.
func (uc *SubLedgerUseCase) Post(ctx context.Context, in PostInput) (*entity.ControlledSubstanceMovement, error) {
	var mov *entity.ControlledSubstanceMovement
	err := uc.txRunner.Run(ctx, func(repos ports.Repos) error {
		var err error
		mov, err = uc.PostInTx(ctx, repos, in, uc.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("movement_id", mov.ID).
		Str("raw_material_id", mov.RawMaterialID).
		Str("type", string(mov.Type)).
		Str("balance_after", mov.BalanceAfter.String()).
		Msg("movimiento controlado registrado")
	return mov, nil
}

// PostInTx registra el movimiento usando los repositorios de una transacción ya abierta por el llamador.
// Bloquea el saldo controlado del par (establecimiento, materia prima) hasta el fin de la transacción.
func (uc *SubLedgerUseCase) PostInTx(ctx context.Context, repos ports.Repos, in PostInput, now time.Time) (*entity.ControlledSubstanceMovement, error) {
	if err := validatePostInput(in); err != nil {
		return nil, err
	}

	material, err := repos.RawMaterials.GetByID(ctx, in.RawMaterialID)
	if err != nil {
		return nil, err
	}
	if material == nil || material.EstablishmentID != in.EstablishmentID {
		return nil, fmt.Errorf("%w: materia prima %s", domain.ErrNotFound, in.RawMaterialID)
	}
	if !material.IsControlled() {
		return nil, fmt.Errorf("%w: la materia prima %s no es de control especial", domain.ErrValidation, material.Code)
	}
	if err := checkEmployees(ctx, repos.Employees, in.EstablishmentID, in.PerformedBy, in.AuthorizedBy); err != nil {
		return nil, err
	}
	if in.BatchID != "" {
		batch, err := repos.Batches.GetByID(ctx, in.BatchID)
		if err != nil {
			return nil, err
		}
		if batch == nil || batch.EstablishmentID != in.EstablishmentID {
			return nil, fmt.Errorf("%w: lote %s", domain.ErrNotFound, in.BatchID)
		}
		if batch.RawMaterialID != in.RawMaterialID {
			return nil, fmt.Errorf("%w: el lote %s no pertenece a la materia prima", domain.ErrValidation, batch.BatchNumber)
		}
	}

	balance, err := repos.ControlledBalances.GetForUpdate(ctx, in.EstablishmentID, in.RawMaterialID)
	if err != nil {
		return nil, err
	}
	after, err := inventory.ApplyControlled(balance.Quantity, in.Type, in.Quantity)
	if err != nil {
		return nil, err
	}

	mov := &entity.ControlledSubstanceMovement{
		ID:               uuid.New().String(),
		EstablishmentID:  in.EstablishmentID,
		RawMaterialID:    in.RawMaterialID,
		BatchID:          in.BatchID,
		Type:             in.Type,
		Classification:   material.Classification,
		SubstanceCode:    material.SubstanceCode,
		Quantity:         in.Quantity,
		BalanceBefore:    balance.Quantity,
		BalanceAfter:     after,
		Sequence:         balance.Sequence + 1,
		RegulatoryRecord: normalizeRecord(in.Record),
		StockMovementID:  in.StockMovementID,
		Reason:           in.Reason,
		Notes:            in.Notes,
		PerformedBy:      in.PerformedBy,
		AuthorizedBy:     in.AuthorizedBy,
		CreatedAt:        now,
	}
	if err := repos.ControlledMovements.Create(ctx, mov); err != nil {
		return nil, err
	}

	balance.Quantity = after
	balance.LastMovementID = mov.ID
	balance.Sequence = mov.Sequence
	balance.UpdatedAt = now
	if err := repos.ControlledBalances.Save(ctx, balance); err != nil {
		return nil, err
	}
	return mov, nil
}

// CurrentBalance devuelve el saldo controlado vigente (balance_after del último movimiento; cero si no hay).
func (uc *SubLedgerUseCase) CurrentBalance(ctx context.Context, establishmentID, rawMaterialID string) (decimal.Decimal, error) {
	material, err := uc.repos.RawMaterials.GetByID(ctx, rawMaterialID)
	if err != nil {
		return decimal.Zero, err
	}
	if material == nil || material.EstablishmentID != establishmentID {
		return decimal.Zero, fmt.Errorf("%w: materia prima %s", domain.ErrNotFound, rawMaterialID)
	}
	balance, err := uc.repos.ControlledBalances.Get(ctx, establishmentID, rawMaterialID)
	if err != nil {
		return decimal.Zero, err
	}
	return balance.Quantity, nil
}

// ListMovements lista movimientos controlados del establecimiento en orden de registro.
func (uc *SubLedgerUseCase) ListMovements(ctx context.Context, filter repository.MovementFilter) ([]*entity.ControlledSubstanceMovement, error) {
	if filter.EstablishmentID == "" {
		return nil, fmt.Errorf("%w: establecimiento requerido", domain.ErrValidation)
	}
	return uc.repos.ControlledMovements.List(ctx, filter)
}

func validatePostInput(in PostInput) error {
	if in.EstablishmentID == "" || in.RawMaterialID == "" {
		return fmt.Errorf("%w: establecimiento y materia prima son obligatorios", domain.ErrValidation)
	}
	if in.PerformedBy == "" {
		return fmt.Errorf("%w: responsable del movimiento obligatorio", domain.ErrValidation)
	}
	if !entity.ControlledMovementTypeValid(in.Type) {
		return fmt.Errorf("%w: tipo %q no admitido en el libro de controlados", domain.ErrValidation, in.Type)
	}
	if entity.RequiresPrescription(in.Type) {
		r := in.Record
		switch {
		case r.PrescriptionNumber == "":
			return fmt.Errorf("%w: número de receta obligatorio en %s", domain.ErrValidation, in.Type)
		case r.PrescriberName == "" || r.PrescriberCouncilNumber == "":
			return fmt.Errorf("%w: identificación del prescriptor obligatoria en %s", domain.ErrValidation, in.Type)
		case r.PatientName == "":
			return fmt.Errorf("%w: identificación del paciente obligatoria en %s", domain.ErrValidation, in.Type)
		}
	}
	return nil
}

func normalizeRecord(r entity.RegulatoryRecord) entity.RegulatoryRecord {
	r.PrescriberName = textnorm.Name(r.PrescriberName)
	r.PatientName = textnorm.Name(r.PatientName)
	r.PrescriberCouncil = textnorm.Code(r.PrescriberCouncil)
	r.PrescriberState = textnorm.Code(r.PrescriberState)
	return r
}

// checkEmployees valida que el responsable y el autorizador (opcional) pertenezcan al establecimiento.
func checkEmployees(ctx context.Context, employees repository.EmployeeRepository, establishmentID string, ids ...string) error {
	for _, id := range ids {
		if id == "" {
			continue
		}
		emp, err := employees.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if emp == nil || emp.EstablishmentID != establishmentID {
			return fmt.Errorf("%w: colaborador %s", domain.ErrNotFound, id)
		}
	}
	return nil
}
