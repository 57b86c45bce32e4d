package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/magistral-api/internal/application/ports"
	"github.com/jhoicas/magistral-api/internal/domain"
	"github.com/jhoicas/magistral-api/internal/domain/entity"
	"github.com/jhoicas/magistral-api/internal/domain/repository"
	"github.com/jhoicas/magistral-api/pkg/logger"
)

// BatchUseCase administra el ciclo de vida de calidad de los lotes:
// QUARANTINE -> APPROVED | REJECTED. Los estados APPROVED y REJECTED son terminales.
type BatchUseCase struct {
	txRunner ports.TxRunner
	repos    ports.Repos
	ledger   *StockLedgerUseCase
	log      *logger.Logger
	now      ports.Clock
}

// NewBatchUseCase construye el caso de uso. Los movimientos de stock se registran a través de ledger.
func NewBatchUseCase(txRunner ports.TxRunner, repos ports.Repos, ledger *StockLedgerUseCase, log *logger.Logger) *BatchUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &BatchUseCase{
		txRunner: txRunner,
		repos:    repos,
		ledger:   ledger,
		log:      log.Named("batches"),
		now:      time.Now,
	}
}

// WithClock reemplaza la fuente de tiempo (tests).
func (uc *BatchUseCase) WithClock(clock ports.Clock) *BatchUseCase {
	uc.now = clock
	return uc
}

// ReceiveInput datos de recepción de un lote.
type ReceiveInput struct {
	EstablishmentID     string
	RawMaterialID       string
	SupplierID          string
	BatchNumber         string
	InvoiceNumber       string
	Quantity            decimal.Decimal
	UnitCost            decimal.Decimal
	ManufacturedAt      *time.Time
	ExpiresAt           time.Time
	CertificateNumber   string
	CertificateIssuedAt *time.Time
	QualityNotes        string
	ReceivedBy          string
	// Controlled datos regulatorios de la entrada; en materias controladas la entrada se replica siempre
	// y, si no trae documento, se usa InvoiceNumber.
	Controlled *entity.RegulatoryRecord
}

// Receive crea el lote en cuarentena y registra la entrada (ENTRY) en la misma transacción.
func (uc *BatchUseCase) Receive(ctx context.Context, in ReceiveInput) (*entity.Batch, *entity.StockMovement, error) {
	if err := validateReceive(in); err != nil {
		return nil, nil, err
	}

	var (
		batch *entity.Batch
		mov   *entity.StockMovement
	)
	err := uc.txRunner.Run(ctx, func(repos ports.Repos) error {
		supplier, err := repos.Suppliers.GetByID(ctx, in.SupplierID)
		if err != nil {
			return err
		}
		if supplier == nil || supplier.EstablishmentID != in.EstablishmentID {
			return fmt.Errorf("%w: proveedor %s", domain.ErrNotFound, in.SupplierID)
		}
		material, err := repos.RawMaterials.GetByID(ctx, in.RawMaterialID)
		if err != nil {
			return err
		}
		if material == nil || material.EstablishmentID != in.EstablishmentID {
			return fmt.Errorf("%w: materia prima %s", domain.ErrNotFound, in.RawMaterialID)
		}

		record := in.Controlled
		if material.IsControlled() {
			record = regulatoryEntry(in)
			if record.DocumentNumber == "" {
				return fmt.Errorf("%w: la recepción de %s (control especial) requiere la factura de compra", domain.ErrValidation, material.Code)
			}
		}

		now := uc.now()
		b := &entity.Batch{
			ID:                  uuid.New().String(),
			EstablishmentID:     in.EstablishmentID,
			RawMaterialID:       in.RawMaterialID,
			SupplierID:          in.SupplierID,
			BatchNumber:         strings.TrimSpace(in.BatchNumber),
			InvoiceNumber:       in.InvoiceNumber,
			ReceivedQuantity:    in.Quantity,
			CurrentQuantity:     in.Quantity,
			UnitCost:            in.UnitCost,
			ReceivedAt:          now,
			ManufacturedAt:      in.ManufacturedAt,
			ExpiresAt:           in.ExpiresAt,
			Status:              entity.BatchStatusQuarantine,
			CertificateNumber:   in.CertificateNumber,
			CertificateIssuedAt: in.CertificateIssuedAt,
			QualityNotes:        in.QualityNotes,
			CreatedBy:           in.ReceivedBy,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := repos.Batches.Create(ctx, b); err != nil {
			return err
		}
		unitCost := in.UnitCost
		m, err := uc.ledger.post(ctx, repos, PostInput{
			EstablishmentID: in.EstablishmentID,
			RawMaterialID:   in.RawMaterialID,
			BatchID:         b.ID,
			Type:            entity.MovementEntry,
			Quantity:        in.Quantity,
			UnitCost:        &unitCost,
			Reason:          "recepción de lote " + b.BatchNumber,
			SupplierID:      in.SupplierID,
			PerformedBy:     in.ReceivedBy,
			Controlled:      record,
		}, now, b)
		if err != nil {
			return err
		}
		batch, mov = b, m
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	uc.log.Info().
		Str("batch_id", batch.ID).
		Str("raw_material_id", batch.RawMaterialID).
		Str("quantity", batch.ReceivedQuantity.String()).
		Str("movement_id", mov.ID).
		Msg("lote recibido en cuarentena")
	return batch, mov, nil
}

// regulatoryEntry arma el registro de la entrada controlada; la factura de compra es el documento por defecto.
func regulatoryEntry(in ReceiveInput) *entity.RegulatoryRecord {
	record := entity.RegulatoryRecord{}
	if in.Controlled != nil {
		record = *in.Controlled
	}
	if strings.TrimSpace(record.DocumentNumber) == "" {
		record.DocumentNumber = strings.TrimSpace(in.InvoiceNumber)
	}
	return &record
}

func validateReceive(in ReceiveInput) error {
	switch {
	case in.EstablishmentID == "" || in.RawMaterialID == "" || in.SupplierID == "":
		return fmt.Errorf("%w: establecimiento, materia prima y proveedor son obligatorios", domain.ErrValidation)
	case strings.TrimSpace(in.BatchNumber) == "":
		return fmt.Errorf("%w: número de lote obligatorio", domain.ErrValidation)
	case in.ReceivedBy == "":
		return fmt.Errorf("%w: responsable de la recepción obligatorio", domain.ErrValidation)
	case !in.Quantity.GreaterThan(decimal.Zero):
		return fmt.Errorf("%w: la cantidad recibida debe ser mayor que cero", domain.ErrValidation)
	case in.UnitCost.LessThan(decimal.Zero):
		return fmt.Errorf("%w: el costo unitario no puede ser negativo", domain.ErrValidation)
	case in.ExpiresAt.IsZero():
		return fmt.Errorf("%w: fecha de vencimiento obligatoria", domain.ErrValidation)
	case in.ManufacturedAt != nil && !in.ExpiresAt.After(*in.ManufacturedAt):
		return fmt.Errorf("%w: el vencimiento debe ser posterior a la fabricación", domain.ErrValidation)
	}
	return nil
}

// ApproveInput decisión de liberación de un lote.
type ApproveInput struct {
	BatchID           string
	EstablishmentID   string
	CertificateNumber string
	Notes             string
	ApprovedBy        string
}

// Approve libera un lote en cuarentena. Un lote que vence en este instante o antes no se aprueba.
func (uc *BatchUseCase) Approve(ctx context.Context, in ApproveInput) (*entity.Batch, error) {
	if in.ApprovedBy == "" {
		return nil, fmt.Errorf("%w: responsable de la aprobación obligatorio", domain.ErrValidation)
	}
	var approved *entity.Batch
	err := uc.txRunner.Run(ctx, func(repos ports.Repos) error {
		b, err := lockBatch(ctx, repos, in.EstablishmentID, in.BatchID)
		if err != nil {
			return err
		}
		if !b.InQuarantine() {
			return fmt.Errorf("%w: el lote %s ya está %s", domain.ErrInvalidStateTransition, b.BatchNumber, b.Status)
		}
		now := uc.now()
		if b.IsExpired(now) {
			return fmt.Errorf("%w: lote %s vencido", domain.ErrValidation, b.BatchNumber)
		}
		if err := checkEmployees(ctx, repos.Employees, in.EstablishmentID, in.ApprovedBy); err != nil {
			return err
		}
		b.Status = entity.BatchStatusApproved
		if in.CertificateNumber != "" {
			b.CertificateNumber = in.CertificateNumber
		}
		if in.Notes != "" {
			b.QualityNotes = in.Notes
		}
		b.ApprovedBy = in.ApprovedBy
		b.ApprovedAt = &now
		b.UpdatedAt = now
		if err := repos.Batches.Update(ctx, b); err != nil {
			return err
		}
		approved = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("batch_id", approved.ID).Str("approved_by", approved.ApprovedBy).Msg("lote aprobado")
	return approved, nil
}

// RejectInput decisión de rechazo de un lote.
type RejectInput struct {
	BatchID         string
	EstablishmentID string
	Reason          string
	Notes           string
	RejectedBy      string
}

// Reject rechaza un lote en cuarentena: deja su cantidad en cero y registra la pérdida (LOSS)
// de lo recibido en la misma transacción. En materias controladas el saldo controlado se
// ajusta a su valor menos lo recibido (ADJUSTMENT enlazado a la pérdida).
func (uc *BatchUseCase) Reject(ctx context.Context, in RejectInput) (*entity.Batch, *entity.StockMovement, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return nil, nil, fmt.Errorf("%w: motivo de rechazo obligatorio", domain.ErrValidation)
	}
	if in.RejectedBy == "" {
		return nil, nil, fmt.Errorf("%w: responsable del rechazo obligatorio", domain.ErrValidation)
	}
	var (
		rejected *entity.Batch
		mov      *entity.StockMovement
	)
	err := uc.txRunner.Run(ctx, func(repos ports.Repos) error {
		b, err := lockBatch(ctx, repos, in.EstablishmentID, in.BatchID)
		if err != nil {
			return err
		}
		if !b.InQuarantine() {
			return fmt.Errorf("%w: el lote %s ya está %s", domain.ErrInvalidStateTransition, b.BatchNumber, b.Status)
		}
		now := uc.now()
		b.Status = entity.BatchStatusRejected
		b.CurrentQuantity = decimal.Zero
		b.RejectedBy = in.RejectedBy
		b.RejectedAt = &now
		b.RejectionReason = in.Reason
		if in.Notes != "" {
			b.QualityNotes = in.Notes
		}
		b.UpdatedAt = now
		if err := repos.Batches.Update(ctx, b); err != nil {
			return err
		}
		m, err := uc.ledger.post(ctx, repos, PostInput{
			EstablishmentID: in.EstablishmentID,
			RawMaterialID:   b.RawMaterialID,
			BatchID:         b.ID,
			Type:            entity.MovementLoss,
			Quantity:        b.ReceivedQuantity,
			Reason:          in.Reason,
			Notes:           in.Notes,
			PerformedBy:     in.RejectedBy,
		}, now, b)
		if err != nil {
			return err
		}
		rejected, mov = b, m
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	uc.log.Info().
		Str("batch_id", rejected.ID).
		Str("movement_id", mov.ID).
		Str("reason", rejected.RejectionReason).
		Msg("lote rechazado")
	return rejected, mov, nil
}

// Get devuelve un lote del establecimiento.
func (uc *BatchUseCase) Get(ctx context.Context, establishmentID, id string) (*entity.Batch, error) {
	b, err := uc.repos.Batches.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil || b.EstablishmentID != establishmentID {
		return nil, fmt.Errorf("%w: lote %s", domain.ErrNotFound, id)
	}
	return b, nil
}

// List lista lotes del establecimiento. Vencido y agotado se evalúan contra filter.Now (ahora si está vacío).
func (uc *BatchUseCase) List(ctx context.Context, filter repository.BatchFilter) ([]*entity.Batch, error) {
	if filter.EstablishmentID == "" {
		return nil, fmt.Errorf("%w: establecimiento requerido", domain.ErrValidation)
	}
	if filter.Now.IsZero() {
		filter.Now = uc.now()
	}
	return uc.repos.Batches.List(ctx, filter)
}

func lockBatch(ctx context.Context, repos ports.Repos, establishmentID, id string) (*entity.Batch, error) {
	b, err := repos.Batches.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil || b.EstablishmentID != establishmentID {
		return nil, fmt.Errorf("%w: lote %s", domain.ErrNotFound, id)
	}
	return b, nil
}
