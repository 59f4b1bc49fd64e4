package entitlement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/entitlements-api/internal/domain"
	"github.com/jhoicas/entitlements-api/internal/domain/access"
	"github.com/jhoicas/entitlements-api/internal/domain/entitlement"
	"github.com/jhoicas/entitlements-api/internal/domain/entity"
	"github.com/jhoicas/entitlements-api/internal/domain/repository"
	"github.com/jhoicas/entitlements-api/internal/infrastructure/metrics"
	"github.com/jhoicas/entitlements-api/pkg/logger"
)

// Loader fuente de snapshots por tienda.
type Loader interface {
	Load(ctx context.Context, storeID string) (*entitlement.Snapshot, error)
	InvalidateStore(ctx context.Context, storeID string)
	InvalidateEnterprise(ctx context.Context, enterpriseID string)
}

// ServiceDeps dependencias del servicio.
type ServiceDeps struct {
	Resolver    *entitlement.Resolver
	Loader      Loader
	Stores      repository.StoreRepository
	Enterprises repository.EnterpriseRepository
	Assignments repository.AssignmentRepository
	Overrides   repository.OverrideRepository
	Guard       *access.Guard
	Routes      *access.RouteTable
	Logger      *logger.Logger
	Metrics     *metrics.Metrics
}

// Service casos de uso del motor de módulos: resolución por tienda, overrides,
// asignaciones de plan y autorización de navegación.
type Service struct {
	deps ServiceDeps
	log  *logger.Logger
	now  func() time.Time
}

// NewService construye el servicio.
func NewService(deps ServiceDeps) *Service {
	if deps.Guard == nil {
		deps.Guard = access.NewGuard(access.GuardConfig{})
	}
	if deps.Routes == nil {
		deps.Routes = access.DefaultRouteTable()
	}
	return &Service{deps: deps, log: deps.Logger.Component("entitlements"), now: time.Now}
}

// SetClock reemplaza el reloj (tests).
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Modules catálogo de módulos en orden de presentación.
func (s *Service) Modules() []entity.Module {
	return s.deps.Resolver.Modules().Modules()
}

// Plans catálogo de planes.
func (s *Service) Plans() []entity.Plan {
	return s.deps.Resolver.Plans().Plans()
}

// Routes tabla de navegación.
func (s *Service) Routes() []access.Route {
	return s.deps.Routes.Routes()
}

// ──────────────────────────────────────────────────────────────────────────────
// Resolución
// ──────────────────────────────────────────────────────────────────────────────

// ResolveStore calcula la matriz efectiva de la tienda.
// Un ID mal formado o inexistente resuelve solo CORE. Devuelve domain.ErrSnapshotUnavailable
// si no hay datos disponibles; el llamador debe tratarlo como "pendiente", no como denegación.
func (s *Service) ResolveStore(ctx context.Context, storeID string) (*entitlement.Resolution, error) {
	snap, err := s.snapshot(ctx, storeID)
	if err != nil {
		return nil, err
	}
	res := s.deps.Resolver.Resolve(snap.Inputs(s.now()))
	s.deps.Metrics.ObserveResolution(string(res.Source))
	if res.Source == entitlement.SourceFallback {
		s.log.Debug().Str("store_id", storeID).Str("enterprise_id", snap.EnterpriseID).
			Msg("sin asignación vigente, resolviendo por banderas")
	}
	return res, nil
}

// StoreEnterprise devuelve la empresa dueña de la tienda. domain.ErrNotFound si no existe.
func (s *Service) StoreEnterprise(ctx context.Context, storeID string) (string, error) {
	snap, err := s.snapshot(ctx, storeID)
	if err != nil {
		return "", err
	}
	if !snap.Known() {
		return "", domain.ErrNotFound
	}
	return snap.EnterpriseID, nil
}

func (s *Service) snapshot(ctx context.Context, storeID string) (*entitlement.Snapshot, error) {
	if _, err := uuid.Parse(storeID); err != nil {
		return &entitlement.Snapshot{StoreID: storeID}, nil
	}
	return s.deps.Loader.Load(ctx, storeID)
}

// ──────────────────────────────────────────────────────────────────────────────
// Overrides
// ──────────────────────────────────────────────────────────────────────────────

// GetOverrides devuelve los overrides guardados de la tienda en orden de catálogo.
func (s *Service) GetOverrides(ctx context.Context, storeID string) ([]entity.StoreModuleOverride, error) {
	if err := s.requireStore(ctx, storeID); err != nil {
		return nil, err
	}
	list, err := s.deps.Overrides.ListByStore(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("overrides: %w", err)
	}
	s.sortByCatalog(list)
	return list, nil
}

// ReplaceOverrides reemplaza la tabla completa de overrides de la tienda.
// La carga debe traer cada módulo del catálogo exactamente una vez; los omitidos no se
// restablecen implícitamente, se rechaza con domain.ErrIncompleteOverrides.
func (s *Service) ReplaceOverrides(ctx context.Context, storeID string, list []entity.StoreModuleOverride) ([]entity.StoreModuleOverride, error) {
	if err := s.requireStore(ctx, storeID); err != nil {
		return nil, err
	}
	normalized, err := s.validateOverrides(storeID, list)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Overrides.ReplaceForStore(ctx, storeID, normalized); err != nil {
		return nil, fmt.Errorf("overrides: %w", err)
	}
	s.deps.Loader.InvalidateStore(ctx, storeID)
	s.log.Info().Str("store_id", storeID).Int("modules", len(normalized)).Msg("overrides reemplazados")
	return normalized, nil
}

func (s *Service) validateOverrides(storeID string, list []entity.StoreModuleOverride) ([]entity.StoreModuleOverride, error) {
	catalog := s.deps.Resolver.Modules()
	seen := make(map[entity.ModuleCode]struct{}, len(list))
	out := make([]entity.StoreModuleOverride, 0, len(list))
	for _, o := range list {
		if !catalog.Has(o.ModuleCode) {
			return nil, fmt.Errorf("override %q: %w", o.ModuleCode, domain.ErrUnknownModule)
		}
		if _, dup := seen[o.ModuleCode]; dup {
			return nil, fmt.Errorf("override %s duplicado: %w", o.ModuleCode, domain.ErrInvalidInput)
		}
		if !o.State.IsValid() {
			return nil, fmt.Errorf("override %s: estado %q inválido: %w", o.ModuleCode, o.State, domain.ErrInvalidInput)
		}
		if o.StoreID != "" && o.StoreID != storeID {
			return nil, fmt.Errorf("override %s pertenece a otra tienda: %w", o.ModuleCode, domain.ErrInvalidInput)
		}
		seen[o.ModuleCode] = struct{}{}
		o.StoreID = storeID
		o.Reason = strings.TrimSpace(o.Reason)
		out = append(out, o)
	}
	var missing []string
	for _, code := range catalog.Codes() {
		if _, ok := seen[code]; !ok {
			missing = append(missing, string(code))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("faltan %s: %w", strings.Join(missing, ", "), domain.ErrIncompleteOverrides)
	}
	s.sortByCatalog(out)
	return out, nil
}

func (s *Service) sortByCatalog(list []entity.StoreModuleOverride) {
	pos := make(map[entity.ModuleCode]int)
	for i, code := range s.deps.Resolver.Modules().Codes() {
		pos[code] = i
	}
	sort.SliceStable(list, func(i, j int) bool { return pos[list[i].ModuleCode] < pos[list[j].ModuleCode] })
}

func (s *Service) requireStore(ctx context.Context, storeID string) error {
	if _, err := uuid.Parse(storeID); err != nil {
		return domain.ErrNotFound
	}
	store, err := s.deps.Stores.GetByID(ctx, storeID)
	if err != nil {
		return fmt.Errorf("tienda: %w", err)
	}
	if store == nil {
		return domain.ErrNotFound
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Asignaciones
// ──────────────────────────────────────────────────────────────────────────────

// CreateAssignmentInput datos de una nueva asignación.
type CreateAssignmentInput struct {
	EnterpriseID string
	PlanID       string // ID o código del plan
	Status       entity.AssignmentStatus
	StartsOn     time.Time
	EndsOn       *time.Time
	AutoRenew    bool
}

// ListAssignments historial de la empresa, más reciente primero.
func (s *Service) ListAssignments(ctx context.Context, enterpriseID string) ([]entity.PlanAssignment, error) {
	if err := s.requireEnterprise(ctx, enterpriseID); err != nil {
		return nil, err
	}
	list, err := s.deps.Assignments.ListByEnterprise(ctx, enterpriseID)
	if err != nil {
		return nil, fmt.Errorf("asignaciones: %w", err)
	}
	return list, nil
}

// CurrentAssignment asignación vigente hoy o domain.ErrNotFound si no hay.
func (s *Service) CurrentAssignment(ctx context.Context, enterpriseID string) (*entity.PlanAssignment, error) {
	if err := s.requireEnterprise(ctx, enterpriseID); err != nil {
		return nil, err
	}
	a, err := s.deps.Assignments.GetCurrent(ctx, enterpriseID, entity.DateOf(s.now()))
	if err != nil {
		return nil, fmt.Errorf("asignación vigente: %w", err)
	}
	if a == nil {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

// CreateAssignment agrega una asignación al historial e invalida las tiendas de la empresa.
func (s *Service) CreateAssignment(ctx context.Context, in CreateAssignmentInput) (*entity.PlanAssignment, error) {
	if err := s.requireEnterprise(ctx, in.EnterpriseID); err != nil {
		return nil, err
	}
	plans := s.deps.Resolver.Plans()
	plan, ok := plans.Get(in.PlanID)
	if !ok {
		plan, ok = plans.GetByCode(in.PlanID)
	}
	if !ok {
		return nil, fmt.Errorf("plan %q: %w", in.PlanID, domain.ErrNotFound)
	}
	if !plan.IsActive {
		return nil, fmt.Errorf("plan %s: %w", plan.Code, domain.ErrInactivePlan)
	}
	status := in.Status
	if status == "" {
		status = entity.AssignmentActive
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("estado %q: %w", in.Status, domain.ErrInvalidInput)
	}
	if in.StartsOn.IsZero() {
		return nil, fmt.Errorf("starts_on obligatorio: %w", domain.ErrInvalidInput)
	}
	starts := entity.DateOf(in.StartsOn)
	var ends *time.Time
	if in.EndsOn != nil {
		e := entity.DateOf(*in.EndsOn)
		if e.Before(starts) {
			return nil, domain.ErrInvalidDateRange
		}
		ends = &e
	}

	a := &entity.PlanAssignment{
		ID:           uuid.New().String(),
		EnterpriseID: in.EnterpriseID,
		PlanID:       plan.ID,
		Status:       status,
		StartsOn:     starts,
		EndsOn:       ends,
		AutoRenew:    in.AutoRenew,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.deps.Assignments.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("crear asignación: %w", err)
	}
	s.deps.Loader.InvalidateEnterprise(ctx, in.EnterpriseID)
	s.log.Info().Str("enterprise_id", in.EnterpriseID).Str("plan", plan.Code).
		Str("status", string(status)).Msg("asignación creada")
	return a, nil
}

func (s *Service) requireEnterprise(ctx context.Context, enterpriseID string) error {
	if _, err := uuid.Parse(enterpriseID); err != nil {
		return domain.ErrNotFound
	}
	e, err := s.deps.Enterprises.GetByID(ctx, enterpriseID)
	if err != nil {
		return fmt.Errorf("empresa: %w", err)
	}
	if e == nil {
		return domain.ErrNotFound
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Autorización
// ──────────────────────────────────────────────────────────────────────────────

// AuthorizeInput solicitud de navegación.
type AuthorizeInput struct {
	Session *access.Session
	StoreID string
	Path    string
}

// AuthorizePath evalúa un destino de la tabla de rutas. domain.ErrNotFound si la ruta no existe.
func (s *Service) AuthorizePath(ctx context.Context, in AuthorizeInput) (access.Decision, error) {
	route, ok := s.deps.Routes.Lookup(in.Path)
	if !ok {
		return access.Decision{}, fmt.Errorf("ruta %q: %w", in.Path, domain.ErrNotFound)
	}
	if route.Public {
		d := access.Decision{Kind: access.DecisionAllow, Reason: access.ReasonAllowed}
		s.deps.Metrics.ObserveDecision(string(d.Kind), d.Reason)
		return d, nil
	}
	return s.Authorize(ctx, in.Session, in.StoreID, route.Requirement), nil
}

// Authorize aplica el guard. La matriz solo se resuelve si el requisito nombra módulos;
// si no está disponible el guard responde Pending.
func (s *Service) Authorize(ctx context.Context, session *access.Session, storeID string, req access.Requirement) access.Decision {
	var matrix *entity.EffectiveModuleMatrix
	if len(req.RequiredModules) > 0 && session.State().Authenticated {
		res, err := s.ResolveStore(ctx, storeID)
		switch {
		case err == nil:
			matrix = res.Matrix
		case errors.Is(err, domain.ErrSnapshotUnavailable):
			s.log.Warn().Err(err).Str("store_id", storeID).Msg("matriz no disponible, decisión pendiente")
		default:
			s.log.Error().Err(err).Str("store_id", storeID).Msg("error resolviendo matriz")
		}
	}
	d := s.deps.Guard.Authorize(access.Request{Session: session, Matrix: matrix, Requirement: req})
	s.deps.Metrics.ObserveDecision(string(d.Kind), d.Reason)
	return d
}

// Guard devuelve el guard configurado.
func (s *Service) Guard() *access.Guard {
	return s.deps.Guard
}
