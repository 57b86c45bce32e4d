// Package memory implementa los puertos de persistencia en memoria (tests y desarrollo local).
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/magistral-api/internal/application/ports"
	"github.com/jhoicas/magistral-api/internal/domain/entity"
)

var _ ports.TxRunner = (*Store)(nil)

type pairKey struct {
	establishmentID string
	rawMaterialID   string
}

// state contiene todas las tablas. Las entidades se guardan por valor para que ninguna
// referencia devuelta a un llamador modifique el estado sin pasar por el repositorio.
type state struct {
	rawMaterials        map[string]entity.RawMaterial
	suppliers           map[string]entity.Supplier
	employees           map[string]entity.Employee
	batches             map[string]entity.Batch
	movements           []entity.StockMovement
	stockBalances       map[pairKey]entity.RunningBalance
	controlledMovements []entity.ControlledSubstanceMovement
	controlledBalances  map[pairKey]entity.RunningBalance
	periodBalances      map[string]entity.ControlledSubstanceBalance
}

func newState() *state {
	return &state{
		rawMaterials:       map[string]entity.RawMaterial{},
		suppliers:          map[string]entity.Supplier{},
		employees:          map[string]entity.Employee{},
		batches:            map[string]entity.Batch{},
		stockBalances:      map[pairKey]entity.RunningBalance{},
		controlledBalances: map[pairKey]entity.RunningBalance{},
		periodBalances:     map[string]entity.ControlledSubstanceBalance{},
	}
}

func (s *state) clone() *state {
	c := &state{
		rawMaterials:        cloneMap(s.rawMaterials),
		suppliers:           cloneMap(s.suppliers),
		employees:           cloneMap(s.employees),
		batches:             cloneMap(s.batches),
		movements:           append([]entity.StockMovement(nil), s.movements...),
		stockBalances:       cloneMap(s.stockBalances),
		controlledMovements: append([]entity.ControlledSubstanceMovement(nil), s.controlledMovements...),
		controlledBalances:  cloneMap(s.controlledBalances),
		periodBalances:      cloneMap(s.periodBalances),
	}
	return c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Store almacén en memoria. Run serializa transacciones completas: fn trabaja sobre una copia
// del estado que solo se publica si fn termina sin error.
type Store struct {
	mu sync.RWMutex
	st *state
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{st: newState()}
}

// Run ejecuta fn con repositorios atados a una copia del estado; Commit = reemplazar el estado.
func (s *Store) Run(ctx context.Context, fn func(repos ports.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(newRepos(txView{st: snapshot})); err != nil {
		return err
	}
	s.st = snapshot
	return nil
}

// Repos devuelve repositorios de lectura fuera de transacción (cada llamada toma el RLock).
func (s *Store) Repos() ports.Repos {
	return newRepos(sharedView{s: s})
}

// view abstrae el acceso al estado: directo dentro de Run, con lock fuera.
type view interface {
	read(fn func(st *state))
	write(fn func(st *state))
}

type txView struct{ st *state }

func (v txView) read(fn func(st *state))  { fn(v.st) }
func (v txView) write(fn func(st *state)) { fn(v.st) }

type sharedView struct{ s *Store }

func (v sharedView) read(fn func(st *state)) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	fn(v.s.st)
}

func (v sharedView) write(fn func(st *state)) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	fn(v.s.st)
}

func newRepos(v view) ports.Repos {
	return ports.Repos{
		RawMaterials:        &rawMaterialRepo{v: v},
		Suppliers:           &supplierRepo{v: v},
		Employees:           &employeeRepo{v: v},
		Batches:             &batchRepo{v: v},
		Movements:           &movementRepo{v: v},
		StockBalances:       &balanceRepo{v: v, table: func(st *state) map[pairKey]entity.RunningBalance { return st.stockBalances }},
		ControlledMovements: &controlledMovementRepo{v: v},
		ControlledBalances:  &balanceRepo{v: v, table: func(st *state) map[pairKey]entity.RunningBalance { return st.controlledBalances }},
		PeriodBalances:      &periodBalanceRepo{v: v},
	}
}

// AddRawMaterial registra una materia prima del catálogo externo.
func (s *Store) AddRawMaterial(m entity.RawMaterial) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.rawMaterials[m.ID] = m
}

// AddSupplier registra un proveedor.
func (s *Store) AddSupplier(sup entity.Supplier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.suppliers[sup.ID] = sup
}

// AddEmployee registra un colaborador.
func (s *Store) AddEmployee(e entity.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.employees[e.ID] = e
}
