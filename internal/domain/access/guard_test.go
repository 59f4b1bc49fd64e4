package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/entitlements-api/internal/domain/access"
	"github.com/jhoicas/entitlements-api/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

func userWith(role entity.UserRole, caps ...entity.Capability) *entity.User {
	return &entity.User{ID: "u-1", EnterpriseID: "ent-1", StoreID: "store-1", Role: role, Capabilities: caps}
}

func matrix(enabled ...entity.ModuleCode) *entity.EffectiveModuleMatrix {
	entries := map[entity.ModuleCode]bool{}
	for _, c := range entity.AllModuleCodes() {
		entries[c] = false
	}
	for _, c := range enabled {
		entries[c] = true
	}
	return entity.NewEffectiveModuleMatrix("store-1", entries)
}

var (
	guard       = access.NewGuard(access.GuardConfig{})
	stockRoute  = access.Requirement{RequiredModules: []entity.ModuleCode{entity.ModuleStock}}
	capRoute    = access.Requirement{AllowedCapabilities: []entity.Capability{access.CapPurchasesManage}}
	adminOnly   = access.Requirement{AllowedRoles: []entity.UserRole{entity.RoleAdmin}}
	fullMatrix  = matrix(entity.AllModuleCodes()...)
	emptyMatrix = matrix(entity.ModuleCore)
)

// ──────────────────────────────────────────────────────────────────────────────
// Máquina de estados
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthorize_SesionSinCargarEsPending(t *testing.T) {
	d := guard.Authorize(access.Request{Session: access.NewSession(), Matrix: fullMatrix})
	assert.Equal(t, access.DecisionPending, d.Kind)
	assert.Empty(t, d.RedirectTo)

	d = guard.Authorize(access.Request{Session: nil})
	assert.Equal(t, access.DecisionPending, d.Kind)
}

func TestAuthorize_NoAutenticadoVaALogin(t *testing.T) {
	s := access.NewSession()
	s.Load(false, nil)
	for _, req := range []access.Requirement{{}, stockRoute, capRoute, adminOnly} {
		d := guard.Authorize(access.Request{Session: s, Matrix: fullMatrix, Requirement: req})
		assert.Equal(t, access.DecisionRedirect, d.Kind)
		assert.Equal(t, "/login", d.RedirectTo)
	}
}

func TestAuthorize_AutenticadoSinPerfilVaALogin(t *testing.T) {
	s := access.NewSession()
	s.Load(true, nil)
	d := guard.Authorize(access.Request{Session: s, Matrix: fullMatrix})
	assert.Equal(t, "/login", d.RedirectTo)
	assert.Equal(t, access.ReasonUnauthenticated, d.Reason)
}

func TestAuthorize_RolNoPermitidoVaADashboard(t *testing.T) {
	s := access.NewLoadedSession(userWith(entity.RoleManager))
	d := guard.Authorize(access.Request{Session: s, Matrix: fullMatrix, Requirement: adminOnly})
	assert.Equal(t, access.DecisionRedirect, d.Kind)
	assert.Equal(t, "/dashboard", d.RedirectTo)
	assert.Equal(t, access.ReasonRoleNotAllowed, d.Reason)
}

func TestAuthorize_RolSeEvaluaAntesQueMatriz(t *testing.T) {
	s := access.NewLoadedSession(userWith(entity.RoleCashier))
	req := access.Requirement{AllowedRoles: []entity.UserRole{entity.RoleStocker}, RequiredModules: stockRoute.RequiredModules}
	d := guard.Authorize(access.Request{Session: s, Matrix: nil, Requirement: req})
	assert.Equal(t, access.DecisionRedirect, d.Kind)
}

func TestAuthorize_MatrizCargandoEsPending(t *testing.T) {
	s := access.NewLoadedSession(userWith(entity.RoleAdmin))
	d := guard.Authorize(access.Request{Session: s, Matrix: nil, Requirement: stockRoute})
	assert.Equal(t, access.DecisionPending, d.Kind)
	assert.Equal(t, access.ReasonMatrixLoading, d.Reason)
}

func TestAuthorize_SinModulosRequeridosNoEsperaMatriz(t *testing.T) {
	s := access.NewLoadedSession(userWith(entity.RoleSales))
	d := guard.Authorize(access.Request{Session: s, Matrix: nil})
	assert.Equal(t, access.DecisionAllow, d.Kind)
}

func TestAuthorize_ModuloApagadoVaADashboard(t *testing.T) {
	s := access.NewLoadedSession(userWith(entity.RoleStocker, access.CapStockView))
	d := guard.Authorize(access.Request{Session: s, Matrix: emptyMatrix, Requirement: stockRoute})
	assert.Equal(t, access.DecisionRedirect, d.Kind)
	assert.Equal(t, "/dashboard", d.RedirectTo)
	assert.Equal(t, entity.ModuleStock, d.Module)
}

func TestAuthorize_PrivilegiadoNoOmiteModulos(t *testing.T) {
	for _, u := range []*entity.User{
		userWith(entity.RoleAdmin),
		userWith(entity.RoleManager),
		{ID: "su", Role: entity.RoleCashier, IsSuperuser: true},
	} {
		s := access.NewLoadedSession(u)
		d := guard.Authorize(access.Request{Session: s, Matrix: emptyMatrix, Requirement: stockRoute})
		assert.Equal(t, access.DecisionRedirect, d.Kind, "rol %s", u.Role)
		assert.Equal(t, "/dashboard", d.RedirectTo)
	}
}

func TestAuthorize_PrivilegiadoOmiteCapacidades(t *testing.T) {
	for _, u := range []*entity.User{
		userWith(entity.RoleAdmin, "otra.capacidad"),
		userWith(entity.RoleManager, "otra.capacidad"),
		{ID: "su", Role: entity.RoleSales, IsSuperuser: true, Capabilities: []entity.Capability{"otra.capacidad"}},
	} {
		s := access.NewLoadedSession(u)
		d := guard.Authorize(access.Request{Session: s, Matrix: fullMatrix, Requirement: capRoute})
		assert.Equal(t, access.DecisionAllow, d.Kind, "rol %s", u.Role)
		assert.Equal(t, access.ReasonPrivileged, d.Reason)
	}
}

func TestAuthorize_CapacidadesDisjuntasVaADashboard(t *testing.T) {
	s := access.NewLoadedSession(userWith(entity.RoleSales, access.CapSalesCreate))
	d := guard.Authorize(access.Request{Session: s, Matrix: fullMatrix, Requirement: capRoute})
	assert.Equal(t, access.DecisionRedirect, d.Kind)
	assert.Equal(t, access.ReasonCapabilityDenied, d.Reason)
}

func TestAuthorize_CapacidadCoincidente(t *testing.T) {
	s := access.NewLoadedSession(userWith(entity.RoleStocker, access.CapPurchasesManage))
	d := guard.Authorize(access.Request{Session: s, Matrix: fullMatrix, Requirement: capRoute})
	assert.Equal(t, access.DecisionAllow, d.Kind)
}

func TestAuthorize_SinCapacidadesSePermite(t *testing.T) {
	// Un conjunto vacío de capacidades no se considera disjunto.
	s := access.NewLoadedSession(userWith(entity.RoleCashier))
	d := guard.Authorize(access.Request{Session: s, Matrix: fullMatrix, Requirement: capRoute})
	assert.Equal(t, access.DecisionAllow, d.Kind)
}

func TestAuthorize_RutasPersonalizadas(t *testing.T) {
	g := access.NewGuard(access.GuardConfig{LoginPath: "/auth/ingresar", DashboardPath: "/inicio"})
	s := access.NewSession()
	s.Load(false, nil)
	assert.Equal(t, "/auth/ingresar", g.Authorize(access.Request{Session: s}).RedirectTo)

	s = access.NewLoadedSession(userWith(entity.RoleSales))
	assert.Equal(t, "/inicio", g.Authorize(access.Request{Session: s, Requirement: adminOnly}).RedirectTo)
}
