// Package memory implementa los puertos de repositorio en memoria.
// Lo usan entitlementctl (fixtures YAML) y los tests de la capa de aplicación.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/entitlements-api/internal/domain"
	"github.com/jhoicas/entitlements-api/internal/domain/entitlement"
	"github.com/jhoicas/entitlements-api/internal/domain/entity"
	"github.com/jhoicas/entitlements-api/internal/domain/repository"
)

var (
	_ repository.EnterpriseRepository = (*EnterpriseRepo)(nil)
	_ repository.StoreRepository      = (*StoreRepo)(nil)
	_ repository.AssignmentRepository = (*AssignmentRepo)(nil)
	_ repository.OverrideRepository   = (*OverrideRepo)(nil)
	_ repository.CatalogRepository    = (*CatalogRepo)(nil)
)

// DB datos compartidos por los repositorios en memoria.
type DB struct {
	mu          sync.RWMutex
	enterprises map[string]entity.Enterprise
	stores      map[string]entity.Store
	assignments map[string][]entity.PlanAssignment // por empresa
	overrides   map[string][]entity.StoreModuleOverride
	modules     []entity.Module
	plans       []entity.Plan

	// Err si no es nil, todas las lecturas y escrituras fallan con él.
	Err error
	// Calls cuenta las lecturas (para verificar caché y coalescencia en tests).
	Calls int
}

// NewDB crea una base vacía.
func NewDB() *DB {
	return &DB{
		enterprises: make(map[string]entity.Enterprise),
		stores:      make(map[string]entity.Store),
		assignments: make(map[string][]entity.PlanAssignment),
		overrides:   make(map[string][]entity.StoreModuleOverride),
	}
}

// SetErr configura el error inyectado.
func (db *DB) SetErr(err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.Err = err
}

// ReadCalls devuelve el número de lecturas realizadas.
func (db *DB) ReadCalls() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.Calls
}

func (db *DB) read() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.Calls++
	return db.Err
}

// PutEnterprise inserta o reemplaza una empresa.
func (db *DB) PutEnterprise(e entity.Enterprise) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.enterprises[e.ID] = e
}

// PutStore inserta o reemplaza una tienda.
func (db *DB) PutStore(s entity.Store) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.stores[s.ID] = s
}

// PutAssignment agrega una asignación al historial sin validar.
func (db *DB) PutAssignment(a entity.PlanAssignment) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.assignments[a.EnterpriseID] = append(db.assignments[a.EnterpriseID], a)
}

// PutOverrides reemplaza los overrides de una tienda sin validar.
func (db *DB) PutOverrides(storeID string, list []entity.StoreModuleOverride) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.overrides[storeID] = append([]entity.StoreModuleOverride(nil), list...)
}

// PutCatalog fija módulos y planes.
func (db *DB) PutCatalog(modules []entity.Module, plans []entity.Plan) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.modules = append([]entity.Module(nil), modules...)
	db.plans = append([]entity.Plan(nil), plans...)
}

// ──────────────────────────────────────────────────────────────────────────────

// EnterpriseRepo empresas.
type EnterpriseRepo struct{ db *DB }

// NewEnterpriseRepository construye el repositorio.
func NewEnterpriseRepository(db *DB) *EnterpriseRepo { return &EnterpriseRepo{db: db} }

func (r *EnterpriseRepo) GetByID(_ context.Context, id string) (*entity.Enterprise, error) {
	if err := r.db.read(); err != nil {
		return nil, err
	}
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	e, ok := r.db.enterprises[id]
	if !ok {
		return nil, nil
	}
	flags := make(entity.FeatureFlags, len(e.FeatureFlags))
	for k, v := range e.FeatureFlags {
		flags[k] = v
	}
	e.FeatureFlags = flags
	return &e, nil
}

// StoreRepo tiendas.
type StoreRepo struct{ db *DB }

// NewStoreRepository construye el repositorio.
func NewStoreRepository(db *DB) *StoreRepo { return &StoreRepo{db: db} }

func (r *StoreRepo) GetByID(_ context.Context, id string) (*entity.Store, error) {
	if err := r.db.read(); err != nil {
		return nil, err
	}
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	s, ok := r.db.stores[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// AssignmentRepo historial de asignaciones.
type AssignmentRepo struct{ db *DB }

// NewAssignmentRepository construye el repositorio.
func NewAssignmentRepository(db *DB) *AssignmentRepo { return &AssignmentRepo{db: db} }

func (r *AssignmentRepo) ListByEnterprise(_ context.Context, enterpriseID string) ([]entity.PlanAssignment, error) {
	if err := r.db.read(); err != nil {
		return nil, err
	}
	r.db.mu.RLock()
	list := append([]entity.PlanAssignment(nil), r.db.assignments[enterpriseID]...)
	r.db.mu.RUnlock()

	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].StartsOn.Equal(list[j].StartsOn) {
			return list[i].StartsOn.After(list[j].StartsOn)
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (r *AssignmentRepo) GetCurrent(ctx context.Context, enterpriseID string, today time.Time) (*entity.PlanAssignment, error) {
	list, err := r.ListByEnterprise(ctx, enterpriseID)
	if err != nil {
		return nil, err
	}
	return entitlement.CurrentAssignment(list, today), nil
}

func (r *AssignmentRepo) Create(_ context.Context, a *entity.PlanAssignment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.Err != nil {
		return r.db.Err
	}
	if _, ok := r.db.enterprises[a.EnterpriseID]; !ok {
		return domain.ErrNotFound
	}
	for _, existing := range r.db.assignments[a.EnterpriseID] {
		if existing.ID == a.ID {
			return domain.ErrConflict
		}
	}
	r.db.assignments[a.EnterpriseID] = append(r.db.assignments[a.EnterpriseID], *a)
	return nil
}

// OverrideRepo overrides por tienda.
type OverrideRepo struct{ db *DB }

// NewOverrideRepository construye el repositorio.
func NewOverrideRepository(db *DB) *OverrideRepo { return &OverrideRepo{db: db} }

func (r *OverrideRepo) ListByStore(_ context.Context, storeID string) ([]entity.StoreModuleOverride, error) {
	if err := r.db.read(); err != nil {
		return nil, err
	}
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return append([]entity.StoreModuleOverride(nil), r.db.overrides[storeID]...), nil
}

func (r *OverrideRepo) ReplaceForStore(_ context.Context, storeID string, list []entity.StoreModuleOverride) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.Err != nil {
		return r.db.Err
	}
	if _, ok := r.db.stores[storeID]; !ok {
		return domain.ErrNotFound
	}
	r.db.overrides[storeID] = append([]entity.StoreModuleOverride(nil), list...)
	return nil
}

// CatalogRepo catálogos.
type CatalogRepo struct{ db *DB }

// NewCatalogRepository construye el repositorio.
func NewCatalogRepository(db *DB) *CatalogRepo { return &CatalogRepo{db: db} }

func (r *CatalogRepo) ListModules(_ context.Context) ([]entity.Module, error) {
	if err := r.db.read(); err != nil {
		return nil, err
	}
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return append([]entity.Module(nil), r.db.modules...), nil
}

func (r *CatalogRepo) ListPlans(_ context.Context) ([]entity.Plan, error) {
	if err := r.db.read(); err != nil {
		return nil, err
	}
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return append([]entity.Plan(nil), r.db.plans...), nil
}
