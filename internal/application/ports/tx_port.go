package ports

import (
	"context"
	"time"

	"github.com/jhoicas/magistral-api/internal/domain/repository"
)

// Repos agrupa los repositorios que participan en el motor de inventario.
// Dentro de TxRunner.Run todos quedan atados a la misma transacción.
type Repos struct {
	RawMaterials        repository.RawMaterialRepository
	Suppliers           repository.SupplierRepository
	Employees           repository.EmployeeRepository
	Batches             repository.BatchRepository
	Movements           repository.StockMovementRepository
	StockBalances       repository.RunningBalanceRepository
	ControlledMovements repository.ControlledMovementRepository
	ControlledBalances  repository.RunningBalanceRepository
	PeriodBalances      repository.ControlledBalanceRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback y no queda ninguna escritura visible.
// Los conflictos de concurrencia se reintentan de forma transparente un número acotado de veces,
// por lo que fn debe poder ejecutarse más de una vez.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos Repos) error) error
}

// Clock fuente de tiempo inyectable (time.Now en producción).
type Clock func() time.Time
