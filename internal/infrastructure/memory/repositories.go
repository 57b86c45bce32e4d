package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/magistral-api/internal/domain"
	"github.com/jhoicas/magistral-api/internal/domain/entity"
	"github.com/jhoicas/magistral-api/internal/domain/repository"
)

type rawMaterialRepo struct{ v view }

func (r *rawMaterialRepo) GetByID(_ context.Context, id string) (*entity.RawMaterial, error) {
	var out *entity.RawMaterial
	r.v.read(func(st *state) {
		if m, ok := st.rawMaterials[id]; ok {
			out = &m
		}
	})
	return out, nil
}

type supplierRepo struct{ v view }

func (r *supplierRepo) GetByID(_ context.Context, id string) (*entity.Supplier, error) {
	var out *entity.Supplier
	r.v.read(func(st *state) {
		if s, ok := st.suppliers[id]; ok {
			out = &s
		}
	})
	return out, nil
}

type employeeRepo struct{ v view }

func (r *employeeRepo) GetByID(_ context.Context, id string) (*entity.Employee, error) {
	var out *entity.Employee
	r.v.read(func(st *state) {
		if e, ok := st.employees[id]; ok {
			out = &e
		}
	})
	return out, nil
}

type batchRepo struct{ v view }

func (r *batchRepo) Create(_ context.Context, b *entity.Batch) error {
	var err error
	r.v.write(func(st *state) {
		for _, other := range st.batches {
			if other.EstablishmentID == b.EstablishmentID && other.RawMaterialID == b.RawMaterialID &&
				other.SupplierID == b.SupplierID && other.BatchNumber == b.BatchNumber {
				err = fmt.Errorf("%w: el lote %s ya fue recibido", domain.ErrValidation, b.BatchNumber)
				return
			}
		}
		st.batches[b.ID] = *b
	})
	return err
}

func (r *batchRepo) GetByID(_ context.Context, id string) (*entity.Batch, error) {
	var out *entity.Batch
	r.v.read(func(st *state) {
		if b, ok := st.batches[id]; ok {
			out = &b
		}
	})
	return out, nil
}

// GetForUpdate equivale a GetByID: Run ya serializa la transacción completa.
func (r *batchRepo) GetForUpdate(ctx context.Context, id string) (*entity.Batch, error) {
	return r.GetByID(ctx, id)
}

func (r *batchRepo) Update(_ context.Context, b *entity.Batch) error {
	var err error
	r.v.write(func(st *state) {
		if _, ok := st.batches[b.ID]; !ok {
			err = fmt.Errorf("%w: lote %s", domain.ErrNotFound, b.ID)
			return
		}
		st.batches[b.ID] = *b
	})
	return err
}

func (r *batchRepo) List(_ context.Context, f repository.BatchFilter) ([]*entity.Batch, error) {
	var out []*entity.Batch
	r.v.read(func(st *state) {
		for _, b := range st.batches {
			if !matchBatch(&b, f) {
				continue
			}
			b := b
			out = append(out, &b)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].ExpiresAt.Before(out[j].ExpiresAt)
		}
		return out[i].BatchNumber < out[j].BatchNumber
	})
	return paginate(out, f.Limit, f.Offset), nil
}

func matchBatch(b *entity.Batch, f repository.BatchFilter) bool {
	if b.EstablishmentID != f.EstablishmentID {
		return false
	}
	if f.RawMaterialID != "" && b.RawMaterialID != f.RawMaterialID {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.Expired != nil && b.IsExpired(f.Now) != *f.Expired {
		return false
	}
	if f.Depleted != nil && b.IsDepleted() != *f.Depleted {
		return false
	}
	if f.ExpiringBefore != nil && b.ExpiresAt.After(*f.ExpiringBefore) {
		return false
	}
	return true
}

type movementRepo struct{ v view }

func (r *movementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	var err error
	r.v.write(func(st *state) {
		for _, other := range st.movements {
			if other.EstablishmentID == m.EstablishmentID && other.RawMaterialID == m.RawMaterialID && other.Sequence == m.Sequence {
				err = fmt.Errorf("%w: secuencia %d duplicada", domain.ErrConcurrencyConflict, m.Sequence)
				return
			}
		}
		st.movements = append(st.movements, *m)
	})
	return err
}

func (r *movementRepo) List(_ context.Context, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	r.v.read(func(st *state) {
		for _, m := range st.movements {
			if !matchMovement(m.EstablishmentID, m.RawMaterialID, m.BatchID, m.Type, m.CreatedAt, f) {
				continue
			}
			m := m
			out = append(out, &m)
		}
	})
	return paginate(out, f.Limit, f.Offset), nil
}

func matchMovement(est, rm, batch string, t entity.MovementType, at time.Time, f repository.MovementFilter) bool {
	switch {
	case est != f.EstablishmentID:
		return false
	case f.RawMaterialID != "" && rm != f.RawMaterialID:
		return false
	case f.BatchID != "" && batch != f.BatchID:
		return false
	case f.Type != "" && t != f.Type:
		return false
	case f.From != nil && at.Before(*f.From):
		return false
	case f.To != nil && at.After(*f.To):
		return false
	}
	return true
}

type controlledMovementRepo struct{ v view }

func (r *controlledMovementRepo) Create(_ context.Context, m *entity.ControlledSubstanceMovement) error {
	var err error
	r.v.write(func(st *state) {
		for _, other := range st.controlledMovements {
			if other.EstablishmentID == m.EstablishmentID && other.RawMaterialID == m.RawMaterialID && other.Sequence == m.Sequence {
				err = fmt.Errorf("%w: secuencia %d duplicada", domain.ErrConcurrencyConflict, m.Sequence)
				return
			}
		}
		st.controlledMovements = append(st.controlledMovements, *m)
	})
	return err
}

func (r *controlledMovementRepo) List(_ context.Context, f repository.MovementFilter) ([]*entity.ControlledSubstanceMovement, error) {
	var out []*entity.ControlledSubstanceMovement
	r.v.read(func(st *state) {
		for _, m := range st.controlledMovements {
			if !matchMovement(m.EstablishmentID, m.RawMaterialID, m.BatchID, m.Type, m.CreatedAt, f) {
				continue
			}
			m := m
			out = append(out, &m)
		}
	})
	return paginate(out, f.Limit, f.Offset), nil
}

func (r *controlledMovementRepo) ListInRange(_ context.Context, establishmentID string, rawMaterialIDs []string, start, end time.Time) ([]*entity.ControlledSubstanceMovement, error) {
	wanted := map[string]bool{}
	for _, id := range rawMaterialIDs {
		wanted[id] = true
	}
	var out []*entity.ControlledSubstanceMovement
	r.v.read(func(st *state) {
		for _, m := range st.controlledMovements {
			if m.EstablishmentID != establishmentID || m.CreatedAt.Before(start) || m.CreatedAt.After(end) {
				continue
			}
			if len(wanted) > 0 && !wanted[m.RawMaterialID] {
				continue
			}
			m := m
			out = append(out, &m)
		}
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RawMaterialID != out[j].RawMaterialID {
			return out[i].RawMaterialID < out[j].RawMaterialID
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out, nil
}

// balanceRepo saldo vigente; table selecciona el libro (general o controlados).
type balanceRepo struct {
	v     view
	table func(st *state) map[pairKey]entity.RunningBalance
}

func (r *balanceRepo) Get(_ context.Context, establishmentID, rawMaterialID string) (*entity.RunningBalance, error) {
	var out entity.RunningBalance
	r.v.read(func(st *state) {
		out = r.lookup(st, establishmentID, rawMaterialID)
	})
	return &out, nil
}

func (r *balanceRepo) GetForUpdate(_ context.Context, establishmentID, rawMaterialID string) (*entity.RunningBalance, error) {
	var out entity.RunningBalance
	r.v.write(func(st *state) {
		out = r.lookup(st, establishmentID, rawMaterialID)
		k := pairKey{establishmentID, rawMaterialID}
		if _, ok := r.table(st)[k]; !ok {
			r.table(st)[k] = out
		}
	})
	return &out, nil
}

func (r *balanceRepo) lookup(st *state, establishmentID, rawMaterialID string) entity.RunningBalance {
	if b, ok := r.table(st)[pairKey{establishmentID, rawMaterialID}]; ok {
		return b
	}
	return entity.RunningBalance{
		EstablishmentID: establishmentID,
		RawMaterialID:   rawMaterialID,
		Quantity:        decimal.Zero,
		AverageCost:     decimal.Zero,
	}
}

func (r *balanceRepo) Save(_ context.Context, b *entity.RunningBalance) error {
	var err error
	r.v.write(func(st *state) {
		k := pairKey{b.EstablishmentID, b.RawMaterialID}
		current := r.table(st)[k]
		if current.Version != b.Version {
			err = fmt.Errorf("%w: saldo de %s modificado por otra transacción", domain.ErrConcurrencyConflict, b.RawMaterialID)
			return
		}
		b.Version++
		r.table(st)[k] = *b
	})
	return err
}

type periodBalanceRepo struct{ v view }

func (r *periodBalanceRepo) Create(_ context.Context, b *entity.ControlledSubstanceBalance) error {
	r.v.write(func(st *state) {
		st.periodBalances[b.ID] = *b
	})
	return nil
}

func (r *periodBalanceRepo) GetByID(_ context.Context, id string) (*entity.ControlledSubstanceBalance, error) {
	var out *entity.ControlledSubstanceBalance
	r.v.read(func(st *state) {
		if b, ok := st.periodBalances[id]; ok {
			out = &b
		}
	})
	return out, nil
}

func (r *periodBalanceRepo) GetForUpdate(ctx context.Context, id string) (*entity.ControlledSubstanceBalance, error) {
	return r.GetByID(ctx, id)
}

func (r *periodBalanceRepo) Update(_ context.Context, b *entity.ControlledSubstanceBalance) error {
	var err error
	r.v.write(func(st *state) {
		if _, ok := st.periodBalances[b.ID]; !ok {
			err = fmt.Errorf("%w: balance %s", domain.ErrNotFound, b.ID)
			return
		}
		st.periodBalances[b.ID] = *b
	})
	return err
}

func (r *periodBalanceRepo) List(_ context.Context, f repository.BalanceFilter) ([]*entity.ControlledSubstanceBalance, error) {
	var out []*entity.ControlledSubstanceBalance
	r.v.read(func(st *state) {
		for _, b := range st.periodBalances {
			switch {
			case b.EstablishmentID != f.EstablishmentID:
				continue
			case f.RawMaterialID != "" && b.RawMaterialID != f.RawMaterialID:
				continue
			case f.Classification != "" && b.Classification != f.Classification:
				continue
			case f.Status != "" && b.Status != f.Status:
				continue
			case f.PeriodFrom != nil && b.PeriodEnd.Before(*f.PeriodFrom):
				continue
			case f.PeriodTo != nil && b.PeriodStart.After(*f.PeriodTo):
				continue
			}
			b := b
			out = append(out, &b)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PeriodStart.Equal(out[j].PeriodStart) {
			return out[i].PeriodStart.After(out[j].PeriodStart)
		}
		if out[i].RawMaterialID != out[j].RawMaterialID {
			return out[i].RawMaterialID < out[j].RawMaterialID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return paginate(out, f.Limit, f.Offset), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
