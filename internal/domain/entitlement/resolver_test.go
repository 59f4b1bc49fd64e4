package entitlement_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/entitlements-api/internal/domain/entitlement"
	"github.com/jhoicas/entitlements-api/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testStoreID      = "store-1"
	testEnterpriseID = "ent-1"
)

var testToday = day("2026-10-19")

func newTestResolver(t *testing.T) *entitlement.Resolver {
	t.Helper()
	modules, plans, err := entitlement.NewDefaultCatalogs()
	require.NoError(t, err)
	return entitlement.NewResolver(modules, plans, nil)
}

func activeAssignment(planCode string) []entity.PlanAssignment {
	return []entity.PlanAssignment{{
		ID:           "asg-1",
		EnterpriseID: testEnterpriseID,
		PlanID:       entitlement.DefaultPlanID(planCode),
		Status:       entity.AssignmentActive,
		StartsOn:     day("2026-01-01"),
	}}
}

func override(code entity.ModuleCode, state entity.OverrideState) entity.StoreModuleOverride {
	return entity.StoreModuleOverride{StoreID: testStoreID, ModuleCode: code, State: state}
}

func inputs(assignments []entity.PlanAssignment, overrides ...entity.StoreModuleOverride) entitlement.Inputs {
	return entitlement.Inputs{
		StoreID:      testStoreID,
		EnterpriseID: testEnterpriseID,
		Assignments:  assignments,
		Overrides:    overrides,
		Today:        testToday,
	}
}

func assertOnly(t *testing.T, m *entity.EffectiveModuleMatrix, enabled ...entity.ModuleCode) {
	t.Helper()
	want := make(map[entity.ModuleCode]bool)
	for _, c := range enabled {
		want[c] = true
	}
	for _, code := range entity.AllModuleCodes() {
		assert.Equal(t, want[code], m.Enabled(code), "módulo %s", code)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenarios
// ──────────────────────────────────────────────────────────────────────────────

func TestResolve_PlanConOverrideEnabled(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(inputs(activeAssignment("INVENTORY"), override(entity.ModulePurchase, entity.OverrideEnabled)))

	assert.Equal(t, entitlement.SourcePlan, res.Source)
	assertOnly(t, res.Matrix, entity.ModuleCore, entity.ModuleStock, entity.ModulePurchase)
	assert.Equal(t, entitlement.ReasonOverrideEnabled, res.Reasons[entity.ModulePurchase])
}

func TestResolve_DisabledEnDependenciaCascada(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(inputs(activeAssignment("INVENTORY"), override(entity.ModuleStock, entity.OverrideDisabled)))

	assert.False(t, res.Matrix.Enabled(entity.ModuleStock))
	assert.False(t, res.Matrix.Enabled(entity.ModulePurchase))
	assertOnly(t, res.Matrix, entity.ModuleCore)
}

func TestResolve_DisabledCascadaAunqueDependienteEnabled(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(inputs(activeAssignment("INVENTORY"),
		override(entity.ModuleStock, entity.OverrideDisabled),
		override(entity.ModulePurchase, entity.OverrideEnabled),
	))

	assert.False(t, res.Matrix.Enabled(entity.ModulePurchase))
	assert.Equal(t, entitlement.ReasonDependency, res.Reasons[entity.ModulePurchase])
	assert.Equal(t, entity.ModuleStock, res.BlockedBy[entity.ModulePurchase])
}

func TestResolve_EnabledNoHabilitaDependencias(t *testing.T) {
	r := newTestResolver(t)
	// BASIC no incluye STOCK: habilitar PURCHASE no enciende STOCK.
	res := r.Resolve(inputs(activeAssignment("BASIC"), override(entity.ModulePurchase, entity.OverrideEnabled)))

	assert.False(t, res.Matrix.Enabled(entity.ModuleStock))
	assert.False(t, res.Matrix.Enabled(entity.ModulePurchase))
}

func TestResolve_SinAsignacionUsaBanderas(t *testing.T) {
	r := newTestResolver(t)
	in := inputs(nil)
	in.Flags = entity.FeatureFlags{entitlement.FlagSalesPOS: false}
	res := r.Resolve(in)

	assert.Equal(t, entitlement.SourceFallback, res.Source)
	assert.Nil(t, res.Assignment)
	assert.False(t, res.Matrix.Enabled(entity.ModuleSell))
	assert.False(t, res.Matrix.Enabled(entity.ModuleCustomer))
	assert.False(t, res.Matrix.Enabled(entity.ModuleCommercial))
	assert.True(t, res.Matrix.Enabled(entity.ModuleStock))
	assert.True(t, res.Matrix.Enabled(entity.ModuleCore))
}

func TestResolve_AsignacionCanceladaUsaBanderas(t *testing.T) {
	r := newTestResolver(t)
	assignments := activeAssignment("BASIC")
	assignments[0].Status = entity.AssignmentCanceled
	res := r.Resolve(inputs(assignments))
	assert.Equal(t, entitlement.SourceFallback, res.Source)
}

func TestResolve_TiendaDesconocidaSoloCore(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(entitlement.Inputs{
		StoreID:   "desconocida",
		Overrides: []entity.StoreModuleOverride{{ModuleCode: entity.ModuleSell, State: entity.OverrideEnabled}},
		Today:     testToday,
	})
	assert.Equal(t, entitlement.SourceUnknown, res.Source)
	assertOnly(t, res.Matrix, entity.ModuleCore)
}

func TestResolve_CoreSiempreHabilitado(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(inputs(activeAssignment("INVENTORY"), override(entity.ModuleCore, entity.OverrideDisabled)))
	assert.True(t, res.Matrix.Enabled(entity.ModuleCore))
}

func TestResolve_PlanDesconocidoNoOtorgaModulos(t *testing.T) {
	r := newTestResolver(t)
	assignments := activeAssignment("BASIC")
	assignments[0].PlanID = "plan-borrado"
	res := r.Resolve(inputs(assignments))
	assert.Equal(t, entitlement.SourcePlan, res.Source)
	assert.Nil(t, res.Plan)
	assertOnly(t, res.Matrix, entity.ModuleCore)
}

func TestResolve_ModuloInactivoEnCatalogo(t *testing.T) {
	mods := entitlement.DefaultModules()
	for i := range mods {
		if mods[i].Code == entity.ModuleStock {
			mods[i].IsActive = false
		}
	}
	modules, err := entitlement.NewModuleCatalog(mods)
	require.NoError(t, err)
	plans, err := entitlement.NewPlanCatalog(entitlement.DefaultPlans(), modules)
	require.NoError(t, err)
	r := entitlement.NewResolver(modules, plans, nil)

	res := r.Resolve(inputs(activeAssignment("RETAIL"), override(entity.ModuleStock, entity.OverrideEnabled)))
	assert.False(t, res.Matrix.Enabled(entity.ModuleStock))
	assert.False(t, res.Matrix.Enabled(entity.ModulePurchase))
	assert.True(t, res.Matrix.Enabled(entity.ModuleSell))
}

func TestResolve_IgnoraOverridesDeOtraTienda(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(inputs(activeAssignment("INVENTORY"), entity.StoreModuleOverride{
		StoreID: "otra", ModuleCode: entity.ModuleStock, State: entity.OverrideDisabled,
	}))
	assert.True(t, res.Matrix.Enabled(entity.ModuleStock))
}

func TestResolve_MatrizCubreTodoElCatalogo(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(inputs(activeAssignment("BASIC")))
	entries := res.Matrix.Entries()
	for _, code := range r.Modules().Codes() {
		_, ok := entries[code]
		assert.True(t, ok, "falta %s en la matriz", code)
	}
	assert.False(t, res.Matrix.Enabled("NO_EXISTE"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Propiedades sobre combinaciones aleatorias (semilla fija)
// ──────────────────────────────────────────────────────────────────────────────

func TestResolve_Propiedades(t *testing.T) {
	r := newTestResolver(t)
	rnd := rand.New(rand.NewSource(42))
	states := []entity.OverrideState{entity.OverrideInherit, entity.OverrideEnabled, entity.OverrideDisabled}
	plans := []string{"BASIC", "INVENTORY", "RETAIL", "PRO", ""}
	codes := entity.AllModuleCodes()

	for i := 0; i < 500; i++ {
		var assignments []entity.PlanAssignment
		planCode := plans[rnd.Intn(len(plans))]
		if planCode != "" {
			assignments = activeAssignment(planCode)
		}
		flags := entity.FeatureFlags{}
		for _, f := range []string{entitlement.FlagSalesPOS, entitlement.FlagCredit, entitlement.FlagInventory, entitlement.FlagAnalytics} {
			if rnd.Intn(3) == 0 {
				flags[f] = rnd.Intn(2) == 0
			}
		}
		state := make(map[entity.ModuleCode]entity.OverrideState)
		var overrides []entity.StoreModuleOverride
		for _, c := range codes {
			s := states[rnd.Intn(len(states))]
			state[c] = s
			overrides = append(overrides, override(c, s))
		}
		in := inputs(assignments, overrides...)
		in.Flags = flags
		res := r.Resolve(in)

		var baseline map[entity.ModuleCode]bool
		if planCode != "" {
			p, _ := r.Plans().GetByCode(planCode)
			baseline = make(map[entity.ModuleCode]bool)
			for _, c := range codes {
				baseline[c] = p.Grants(c)
			}
		} else {
			baseline = entitlement.NewFeatureFlagFallback(nil).Derive(flags)
		}

		require.True(t, res.Matrix.Enabled(entity.ModuleCore))
		for _, m := range r.Modules().Modules() {
			got := res.Matrix.Enabled(m.Code)
			if m.Code != entity.ModuleCore && state[m.Code] == entity.OverrideDisabled {
				require.False(t, got, "DISABLED debe forzar false en %s", m.Code)
			}
			depsOK := true
			for _, dep := range m.DependsOn {
				if !res.Matrix.Enabled(dep) {
					depsOK = false
					require.False(t, got, "%s habilitado con dependencia %s apagada", m.Code, dep)
				}
			}
			if m.Code != entity.ModuleCore && state[m.Code] == entity.OverrideInherit && depsOK {
				require.Equal(t, baseline[m.Code], got, "INHERIT debe respetar la línea base en %s", m.Code)
			}
		}
	}
}
