package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/magistral-api/internal/application/controlled"
	"github.com/jhoicas/magistral-api/internal/application/ports"
	"github.com/jhoicas/magistral-api/internal/domain"
	"github.com/jhoicas/magistral-api/internal/domain/entity"
	"github.com/jhoicas/magistral-api/internal/domain/inventory"
	"github.com/jhoicas/magistral-api/internal/domain/repository"
	"github.com/jhoicas/magistral-api/pkg/logger"
)

// StockLedgerUseCase registra movimientos del libro de stock de forma transaccional:
// bloquea el saldo vigente (SELECT FOR UPDATE), calcula antes/después, inserta el movimiento
// y actualiza saldo y lote en la misma transacción (Commit/Rollback).
type StockLedgerUseCase struct {
	txRunner  ports.TxRunner
	repos     ports.Repos
	subLedger *controlled.SubLedgerUseCase
	log       *logger.Logger
	now       ports.Clock
}

// NewStockLedgerUseCase construye el caso de uso. subLedger recibe los movimientos espejo de controlados.
func NewStockLedgerUseCase(
	txRunner ports.TxRunner,
	repos ports.Repos,
	subLedger *controlled.SubLedgerUseCase,
	log *logger.Logger,
) *StockLedgerUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &StockLedgerUseCase{
		txRunner:  txRunner,
		repos:     repos,
		subLedger: subLedger,
		log:       log.Named("stock_ledger"),
		now:       time.Now,
	}
}

// WithClock reemplaza la fuente de tiempo (tests).
func (uc *StockLedgerUseCase) WithClock(clock ports.Clock) *StockLedgerUseCase {
	uc.now = clock
	return uc
}

// PostInput entrada para registrar un movimiento del libro de stock.
// Quantity es positiva salvo en ADJUSTMENT, donde es un delta con signo.
// Todo movimiento de una materia prima controlada se replica en el libro de controlados;
// Controlled lleva sus datos regulatorios y es obligatorio en las salidas.
type PostInput struct {
	EstablishmentID string
	RawMaterialID   string
	BatchID         string
	Type            entity.MovementType
	Quantity        decimal.Decimal
	UnitCost        *decimal.Decimal
	Reason          string
	Notes           string
	OrderID         string
	SaleID          string
	SupplierID      string
	PerformedBy     string
	AuthorizedBy    string
	Controlled      *entity.RegulatoryRecord
}

// Post registra el movimiento en su propia transacción.
func (uc *StockLedgerUseCase) Post(ctx context.Context, in PostInput) (*entity.StockMovement, error) {
	var mov *entity.StockMovement
	err := uc.txRunner.Run(ctx, func(repos ports.Repos) error {
		var err error
		mov, err = uc.PostInTx(ctx, repos, in, uc.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.logMovement(mov, "movimiento de stock registrado")
	return mov, nil
}

// PostInTx registra el movimiento con los repositorios de una transacción abierta por el llamador.
func (uc *StockLedgerUseCase) PostInTx(ctx context.Context, repos ports.Repos, in PostInput, now time.Time) (*entity.StockMovement, error) {
	return uc.post(ctx, repos, in, now, nil)
}

// post aplica el movimiento. managed es el lote que el llamador ya bloqueó y actualizó
// (recepción o rechazo); en ese caso no se aplican las reglas de lote.
func (uc *StockLedgerUseCase) post(ctx context.Context, repos ports.Repos, in PostInput, now time.Time, managed *entity.Batch) (*entity.StockMovement, error) {
	if in.EstablishmentID == "" || in.RawMaterialID == "" {
		return nil, fmt.Errorf("%w: establecimiento y materia prima son obligatorios", domain.ErrValidation)
	}
	if in.PerformedBy == "" {
		return nil, fmt.Errorf("%w: responsable del movimiento obligatorio", domain.ErrValidation)
	}
	delta, err := inventory.SignedQuantity(in.Type, in.Quantity)
	if err != nil {
		return nil, err
	}
	if in.UnitCost != nil && in.UnitCost.LessThan(decimal.Zero) {
		return nil, fmt.Errorf("%w: el costo unitario no puede ser negativo", domain.ErrValidation)
	}

	material, err := repos.RawMaterials.GetByID(ctx, in.RawMaterialID)
	if err != nil {
		return nil, err
	}
	if material == nil || material.EstablishmentID != in.EstablishmentID {
		return nil, fmt.Errorf("%w: materia prima %s", domain.ErrNotFound, in.RawMaterialID)
	}
	if in.Controlled != nil && !material.IsControlled() {
		return nil, fmt.Errorf("%w: datos regulatorios en materia prima no controlada %s", domain.ErrValidation, material.Code)
	}
	if material.IsControlled() && in.Controlled == nil && managed == nil && in.Type.IsSubtractive() {
		return nil, fmt.Errorf("%w: la salida de %s (control especial) requiere los datos de la receta", domain.ErrValidation, material.Code)
	}
	if err := checkEmployees(ctx, repos.Employees, in.EstablishmentID, in.PerformedBy, in.AuthorizedBy); err != nil {
		return nil, err
	}

	if in.BatchID != "" && managed == nil {
		if err := uc.applyToBatch(ctx, repos, in, delta, now); err != nil {
			return nil, err
		}
	}

	balance, err := repos.StockBalances.GetForUpdate(ctx, in.EstablishmentID, in.RawMaterialID)
	if err != nil {
		return nil, err
	}
	_, after, err := inventory.ApplyStock(balance.Quantity, in.Type, in.Quantity)
	if err != nil {
		return nil, err
	}

	unitCost := decimal.Zero
	if in.Type == entity.MovementEntry && in.UnitCost != nil {
		unitCost = *in.UnitCost
		balance.AverageCost = inventory.CostCalculator(balance.Quantity, balance.AverageCost, in.Quantity, unitCost)
	}

	mov := &entity.StockMovement{
		ID:              uuid.New().String(),
		EstablishmentID: in.EstablishmentID,
		RawMaterialID:   in.RawMaterialID,
		BatchID:         in.BatchID,
		Type:            in.Type,
		Quantity:        delta,
		StockBefore:     balance.Quantity,
		StockAfter:      after,
		UnitCost:        unitCost,
		Sequence:        balance.Sequence + 1,
		Reason:          in.Reason,
		Notes:           in.Notes,
		OrderID:         in.OrderID,
		SaleID:          in.SaleID,
		SupplierID:      in.SupplierID,
		PerformedBy:     in.PerformedBy,
		AuthorizedBy:    in.AuthorizedBy,
		CreatedAt:       now,
	}
	if err := repos.Movements.Create(ctx, mov); err != nil {
		return nil, err
	}

	balance.Quantity = after
	balance.LastMovementID = mov.ID
	balance.Sequence = mov.Sequence
	balance.UpdatedAt = now
	if err := repos.StockBalances.Save(ctx, balance); err != nil {
		return nil, err
	}

	if material.IsControlled() {
		if err := uc.mirror(ctx, repos, in, mov, now); err != nil {
			return nil, err
		}
	}
	return mov, nil
}

// applyToBatch bloquea el lote referenciado y descuenta o ajusta su cantidad vigente.
func (uc *StockLedgerUseCase) applyToBatch(ctx context.Context, repos ports.Repos, in PostInput, delta decimal.Decimal, now time.Time) error {
	if in.Type == entity.MovementEntry {
		return fmt.Errorf("%w: las entradas a un lote solo se registran al recibirlo", domain.ErrValidation)
	}
	batch, err := repos.Batches.GetForUpdate(ctx, in.BatchID)
	if err != nil {
		return err
	}
	if batch == nil || batch.EstablishmentID != in.EstablishmentID {
		return fmt.Errorf("%w: lote %s", domain.ErrNotFound, in.BatchID)
	}
	if batch.RawMaterialID != in.RawMaterialID {
		return fmt.Errorf("%w: el lote %s no pertenece a la materia prima", domain.ErrValidation, batch.BatchNumber)
	}
	if batch.Status != entity.BatchStatusApproved {
		return fmt.Errorf("%w: el lote %s está %s", domain.ErrInvalidStateTransition, batch.BatchNumber, batch.Status)
	}
	switch in.Type {
	case entity.MovementExit, entity.MovementConsumption, entity.MovementSale:
		if batch.IsExpired(now) {
			return fmt.Errorf("%w: lote %s vencido", domain.ErrValidation, batch.BatchNumber)
		}
	}

	current := batch.CurrentQuantity.Add(delta)
	if current.LessThan(decimal.Zero) {
		return fmt.Errorf("%w: lote %s disponible %s, solicitado %s",
			domain.ErrInsufficientBalance, batch.BatchNumber, batch.CurrentQuantity.String(), delta.Abs().String())
	}
	if current.GreaterThan(batch.ReceivedQuantity) {
		return fmt.Errorf("%w: el ajuste deja el lote %s por encima de lo recibido", domain.ErrValidation, batch.BatchNumber)
	}
	batch.CurrentQuantity = current
	batch.UpdatedAt = now
	return repos.Batches.Update(ctx, batch)
}

// mirror replica el movimiento general en el libro de controlados dentro de la misma transacción.
// Un ajuste (delta) se traduce al saldo absoluto que espera el libro de controlados.
// Una baja sin receta (rechazo de lote) se asienta también como ajuste del saldo controlado.
func (uc *StockLedgerUseCase) mirror(ctx context.Context, repos ports.Repos, in PostInput, mov *entity.StockMovement, now time.Time) error {
	if uc.subLedger == nil {
		return fmt.Errorf("%w: libro de controlados no disponible", domain.ErrValidation)
	}
	typ := inventory.ControlledTypeFor(in.Type)
	var record entity.RegulatoryRecord
	if in.Controlled != nil {
		record = *in.Controlled
	} else if typ != entity.MovementEntry {
		typ = entity.MovementAdjustment
	}
	qty := in.Quantity
	if typ == entity.MovementAdjustment {
		current, err := repos.ControlledBalances.GetForUpdate(ctx, in.EstablishmentID, in.RawMaterialID)
		if err != nil {
			return err
		}
		qty = current.Quantity.Add(mov.Quantity)
		if qty.LessThan(decimal.Zero) {
			return fmt.Errorf("%w: saldo controlado %s, ajuste %s",
				domain.ErrInsufficientBalance, current.Quantity.String(), mov.Quantity.String())
		}
	}
	_, err := uc.subLedger.PostInTx(ctx, repos, controlled.PostInput{
		EstablishmentID: in.EstablishmentID,
		RawMaterialID:   in.RawMaterialID,
		BatchID:         in.BatchID,
		Type:            typ,
		Quantity:        qty,
		Record:          record,
		StockMovementID: mov.ID,
		Reason:          in.Reason,
		Notes:           in.Notes,
		PerformedBy:     in.PerformedBy,
		AuthorizedBy:    in.AuthorizedBy,
	}, now)
	return err
}

// CurrentStock devuelve el saldo vigente y el costo promedio de una materia prima (cero si no hay movimientos).
func (uc *StockLedgerUseCase) CurrentStock(ctx context.Context, establishmentID, rawMaterialID string) (*entity.RunningBalance, error) {
	material, err := uc.repos.RawMaterials.GetByID(ctx, rawMaterialID)
	if err != nil {
		return nil, err
	}
	if material == nil || material.EstablishmentID != establishmentID {
		return nil, fmt.Errorf("%w: materia prima %s", domain.ErrNotFound, rawMaterialID)
	}
	return uc.repos.StockBalances.Get(ctx, establishmentID, rawMaterialID)
}

// ListMovements lista movimientos del establecimiento en orden de registro.
func (uc *StockLedgerUseCase) ListMovements(ctx context.Context, filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	if filter.EstablishmentID == "" {
		return nil, fmt.Errorf("%w: establecimiento requerido", domain.ErrValidation)
	}
	return uc.repos.Movements.List(ctx, filter)
}

func (uc *StockLedgerUseCase) logMovement(mov *entity.StockMovement, msg string) {
	uc.log.Info().
		Str("movement_id", mov.ID).
		Str("raw_material_id", mov.RawMaterialID).
		Str("batch_id", mov.BatchID).
		Str("type", string(mov.Type)).
		Str("stock_after", mov.StockAfter.String()).
		Msg(msg)
}

// checkEmployees valida que los colaboradores indicados (vacíos se omiten) pertenezcan al establecimiento.
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
