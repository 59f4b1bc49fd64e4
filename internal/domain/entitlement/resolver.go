package entitlement

import (
	"time"

	"github.com/jhoicas/entitlements-api/internal/domain/entity"
)

// Source origen de la línea base de la matriz.
type Source string

const (
	SourcePlan     Source = "plan"
	SourceFallback Source = "fallback"
	SourceUnknown  Source = "unknown" // tienda o empresa inexistente: solo CORE
)

// Reason explica por qué un módulo quedó en su estado final.
type Reason string

const (
	ReasonCore             Reason = "core"
	ReasonPlan             Reason = "plan"
	ReasonNotInPlan        Reason = "not_in_plan"
	ReasonFallback         Reason = "fallback"
	ReasonFallbackOff      Reason = "fallback_off"
	ReasonOverrideEnabled  Reason = "override_enabled"
	ReasonOverrideDisabled Reason = "override_disabled"
	ReasonDependency       Reason = "dependency_disabled"
	ReasonInactiveModule   Reason = "module_inactive"
	ReasonUnknownStore     Reason = "unknown_store"
)

// Inputs instantánea consistente de los datos de una tienda.
// El llamador obtiene asignaciones y overrides juntos antes de resolver.
type Inputs struct {
	StoreID      string
	EnterpriseID string // vacío = tienda o empresa desconocida
	Assignments  []entity.PlanAssignment
	Overrides    []entity.StoreModuleOverride
	Flags        entity.FeatureFlags
	Today        time.Time
}

// Resolution resultado de resolver una tienda.
type Resolution struct {
	Matrix     *entity.EffectiveModuleMatrix
	Source     Source
	Assignment *entity.PlanAssignment // nil si no hay asignación vigente
	Plan       *entity.Plan
	Reasons    map[entity.ModuleCode]Reason
	BlockedBy  map[entity.ModuleCode]entity.ModuleCode // dependencia que deshabilitó el módulo
}

// Resolver combina plan, overrides, dependencias y respaldo por banderas.
// Es una función pura sobre sus entradas; segura para uso concurrente.
type Resolver struct {
	modules  *ModuleCatalog
	plans    *PlanCatalog
	fallback *FeatureFlagFallback
}

// NewResolver construye el resolvedor sobre catálogos ya validados.
func NewResolver(modules *ModuleCatalog, plans *PlanCatalog, fallback *FeatureFlagFallback) *Resolver {
	if fallback == nil {
		fallback = NewFeatureFlagFallback(nil)
	}
	return &Resolver{modules: modules, plans: plans, fallback: fallback}
}

// Modules devuelve el catálogo de módulos.
func (r *Resolver) Modules() *ModuleCatalog { return r.modules }

// Plans devuelve el catálogo de planes.
func (r *Resolver) Plans() *PlanCatalog { return r.plans }

// Resolve calcula la matriz efectiva de la tienda.
func (r *Resolver) Resolve(in Inputs) *Resolution {
	res := &Resolution{
		Reasons:   make(map[entity.ModuleCode]Reason, len(r.modules.order)),
		BlockedBy: make(map[entity.ModuleCode]entity.ModuleCode),
	}
	entries := make(map[entity.ModuleCode]bool, len(r.modules.order))

	if in.EnterpriseID == "" {
		res.Source = SourceUnknown
		for _, code := range r.modules.order {
			entries[code] = code == entity.ModuleCore
			res.Reasons[code] = ReasonUnknownStore
		}
		res.Reasons[entity.ModuleCore] = ReasonCore
		res.Matrix = entity.NewEffectiveModuleMatrix(in.StoreID, entries)
		return res
	}

	// 1-2) Línea base: plan vigente o banderas de la empresa.
	baseline := make(map[entity.ModuleCode]bool, len(r.modules.order))
	baseReason := func(on bool) Reason {
		switch {
		case res.Source == SourcePlan && on:
			return ReasonPlan
		case res.Source == SourcePlan:
			return ReasonNotInPlan
		case on:
			return ReasonFallback
		default:
			return ReasonFallbackOff
		}
	}
	if current := CurrentAssignment(in.Assignments, in.Today); current != nil {
		res.Source = SourcePlan
		res.Assignment = current
		plan, _ := r.plans.Get(current.PlanID) // plan desconocido: no otorga módulos
		res.Plan = plan
		for _, code := range r.modules.order {
			baseline[code] = plan.Grants(code)
		}
	} else {
		res.Source = SourceFallback
		derived := r.fallback.Derive(in.Flags)
		for _, code := range r.modules.order {
			baseline[code] = derived[code]
		}
	}

	// 3) Overrides de la tienda.
	overrides := make(map[entity.ModuleCode]entity.OverrideState, len(in.Overrides))
	for _, o := range in.Overrides {
		if o.StoreID != "" && in.StoreID != "" && o.StoreID != in.StoreID {
			continue
		}
		overrides[o.ModuleCode] = o.State
	}

	// 4) Cierre de dependencias en orden topológico: una dependencia apagada apaga
	// a sus dependientes; ENABLED nunca enciende dependencias.
	for _, code := range r.modules.order {
		on := baseline[code]
		reason := baseReason(on)
		switch overrides[code] {
		case entity.OverrideEnabled:
			on, reason = true, ReasonOverrideEnabled
		case entity.OverrideDisabled:
			on, reason = false, ReasonOverrideDisabled
		}
		m := r.modules.modules[code]
		if on && !m.IsActive {
			on, reason = false, ReasonInactiveModule
		}
		if on {
			for _, dep := range m.DependsOn {
				if !entries[dep] {
					on, reason = false, ReasonDependency
					res.BlockedBy[code] = dep
					break
				}
			}
		}
		// 5) CORE siempre habilitado.
		if code == entity.ModuleCore {
			on, reason = true, ReasonCore
		}
		entries[code] = on
		res.Reasons[code] = reason
	}

	res.Matrix = entity.NewEffectiveModuleMatrix(in.StoreID, entries)
	return res
}
