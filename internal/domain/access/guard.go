package access

import (
	"github.com/jhoicas/entitlements-api/internal/domain/entity"
)

// DecisionKind resultado de la autorización.
type DecisionKind string

const (
	DecisionAllow    DecisionKind = "allow"
	DecisionRedirect DecisionKind = "redirect"
	DecisionPending  DecisionKind = "pending" // aún no hay decisión; el llamador debe esperar
)

// Motivos de la decisión (para logs y respuestas).
const (
	ReasonSessionLoading   = "session_loading"
	ReasonUnauthenticated  = "unauthenticated"
	ReasonRoleNotAllowed   = "role_not_allowed"
	ReasonMatrixLoading    = "matrix_loading"
	ReasonModuleDisabled   = "module_disabled"
	ReasonPrivileged       = "privileged"
	ReasonCapabilityDenied = "capability_denied"
	ReasonAllowed          = "allowed"
)

// Decision salida de Authorize.
type Decision struct {
	Kind       DecisionKind      `json:"decision"`
	RedirectTo string            `json:"redirect_to,omitempty"`
	Reason     string            `json:"reason"`
	Module     entity.ModuleCode `json:"module,omitempty"` // módulo que bloqueó, si aplica
}

// Requirement requisitos declarados por una ruta. Listas vacías = sin restricción.
type Requirement struct {
	AllowedRoles        []entity.UserRole   `json:"allowed_roles,omitempty" yaml:"allowed_roles"`
	AllowedCapabilities []entity.Capability `json:"allowed_capabilities,omitempty" yaml:"allowed_capabilities"`
	RequiredModules     []entity.ModuleCode `json:"required_modules,omitempty" yaml:"required_modules"`
}

// Request entrada de Authorize.
type Request struct {
	Session     *Session
	Matrix      *entity.EffectiveModuleMatrix // nil = la matriz aún no terminó de cargar
	Requirement Requirement
}

// GuardConfig rutas de redirección.
type GuardConfig struct {
	LoginPath     string
	DashboardPath string
}

// Guard decide el acceso a un destino de navegación. Puro y seguro para uso concurrente.
type Guard struct {
	loginPath     string
	dashboardPath string
}

// NewGuard construye el guard; rutas vacías toman /login y /dashboard.
func NewGuard(cfg GuardConfig) *Guard {
	g := &Guard{loginPath: cfg.LoginPath, dashboardPath: cfg.DashboardPath}
	if g.loginPath == "" {
		g.loginPath = "/login"
	}
	if g.dashboardPath == "" {
		g.dashboardPath = "/dashboard"
	}
	return g
}

// LoginPath ruta de inicio de sesión.
func (g *Guard) LoginPath() string { return g.loginPath }

// DashboardPath ruta del tablero.
func (g *Guard) DashboardPath() string { return g.dashboardPath }

// Authorize evalúa la solicitud en orden fijo; gana la primera regla que aplica.
// Los módulos requeridos nunca se omiten por privilegio; solo las capacidades.
func (g *Guard) Authorize(req Request) Decision {
	st := req.Session.State()
	if !st.Loaded {
		return Decision{Kind: DecisionPending, Reason: ReasonSessionLoading}
	}
	if !st.Authenticated || st.User == nil {
		return g.redirect(g.loginPath, ReasonUnauthenticated)
	}
	user := st.User
	reqs := req.Requirement

	if len(reqs.AllowedRoles) > 0 && !containsRole(reqs.AllowedRoles, user.Role) {
		return g.redirect(g.dashboardPath, ReasonRoleNotAllowed)
	}

	if len(reqs.RequiredModules) > 0 {
		if req.Matrix == nil {
			return Decision{Kind: DecisionPending, Reason: ReasonMatrixLoading}
		}
		for _, code := range reqs.RequiredModules {
			if !req.Matrix.Enabled(code) {
				d := g.redirect(g.dashboardPath, ReasonModuleDisabled)
				d.Module = code
				return d
			}
		}
	}

	if user.IsPrivileged() {
		return Decision{Kind: DecisionAllow, Reason: ReasonPrivileged}
	}

	if len(reqs.AllowedCapabilities) > 0 && len(user.Capabilities) > 0 &&
		disjoint(reqs.AllowedCapabilities, user.Capabilities) {
		return g.redirect(g.dashboardPath, ReasonCapabilityDenied)
	}

	return Decision{Kind: DecisionAllow, Reason: ReasonAllowed}
}

func (g *Guard) redirect(path, reason string) Decision {
	return Decision{Kind: DecisionRedirect, RedirectTo: path, Reason: reason}
}

func containsRole(roles []entity.UserRole, r entity.UserRole) bool {
	for _, x := range roles {
		if x == r {
			return true
		}
	}
	return false
}

func disjoint(allowed, held []entity.Capability) bool {
	set := make(map[entity.Capability]struct{}, len(held))
	for _, c := range held {
		set[c] = struct{}{}
	}
	for _, c := range allowed {
		if _, ok := set[c]; ok {
			return false
		}
	}
	return true
}
