package access

import (
	"sort"
	"strings"

	"github.com/jhoicas/entitlements-api/internal/domain/entity"
)

// Capacidades usadas por la tabla de rutas por defecto.
const (
	CapSalesCreate      entity.Capability = "sales.create"
	CapCustomersView    entity.Capability = "customers.view"
	CapStockView        entity.Capability = "stock.view"
	CapStockAdjust      entity.Capability = "stock.adjust"
	CapPurchasesManage  entity.Capability = "purchases.manage"
	CapExpensesManage   entity.Capability = "expenses.manage"
	CapReportsView      entity.Capability = "reports.view"
	CapAlertsView       entity.Capability = "alerts.view"
	CapCommercialManage entity.Capability = "commercial.manage"
)

// Route destino de navegación con sus requisitos.
type Route struct {
	Path        string      `yaml:"path"`
	Public      bool        `yaml:"public"`
	Requirement Requirement `yaml:",inline"`
}

// RouteTable tabla declarativa de rutas; la búsqueda usa el prefijo más largo por segmentos.
type RouteTable struct {
	routes []Route
}

// NewRouteTable construye la tabla normalizando las rutas.
func NewRouteTable(routes []Route) *RouteTable {
	t := &RouteTable{routes: make([]Route, 0, len(routes))}
	for _, r := range routes {
		r.Path = normalizePath(r.Path)
		t.routes = append(t.routes, r)
	}
	sort.SliceStable(t.routes, func(i, j int) bool { return len(t.routes[i].Path) > len(t.routes[j].Path) })
	return t
}

// Lookup devuelve la ruta que aplica al path. ok=false si ninguna coincide.
func (t *RouteTable) Lookup(path string) (Route, bool) {
	p := normalizePath(path)
	for _, r := range t.routes {
		if p == r.Path || r.Path == "/" || strings.HasPrefix(p, r.Path+"/") {
			return r, true
		}
	}
	return Route{}, false
}

// Routes devuelve las rutas registradas.
func (t *RouteTable) Routes() []Route {
	return append([]Route(nil), t.routes...)
}

func normalizePath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = "/" + strings.Trim(p, "/")
	return p
}

var (
	managers     = []entity.UserRole{entity.RoleAdmin, entity.RoleManager}
	sellers      = []entity.UserRole{entity.RoleAdmin, entity.RoleManager, entity.RoleSales, entity.RoleCashier}
	stockHandles = []entity.UserRole{entity.RoleAdmin, entity.RoleManager, entity.RoleStocker}
)

// DefaultRoutes rutas de navegación de la aplicación.
func DefaultRoutes() []Route {
	mods := func(codes ...entity.ModuleCode) []entity.ModuleCode { return codes }
	caps := func(c ...entity.Capability) []entity.Capability { return c }
	return []Route{
		{Path: "/login", Public: true},
		{Path: "/dashboard"},
		{Path: "/sales", Requirement: Requirement{AllowedRoles: sellers, RequiredModules: mods(entity.ModuleSell), AllowedCapabilities: caps(CapSalesCreate)}},
		{Path: "/customers", Requirement: Requirement{RequiredModules: mods(entity.ModuleCustomer), AllowedCapabilities: caps(CapCustomersView)}},
		{Path: "/commercial", Requirement: Requirement{RequiredModules: mods(entity.ModuleCommercial), AllowedCapabilities: caps(CapCommercialManage)}},
		{Path: "/stock", Requirement: Requirement{AllowedRoles: stockHandles, RequiredModules: mods(entity.ModuleStock), AllowedCapabilities: caps(CapStockView, CapStockAdjust)}},
		{Path: "/purchases", Requirement: Requirement{RequiredModules: mods(entity.ModulePurchase), AllowedCapabilities: caps(CapPurchasesManage)}},
		{Path: "/expenses", Requirement: Requirement{RequiredModules: mods(entity.ModuleExpense), AllowedCapabilities: caps(CapExpensesManage)}},
		{Path: "/analytics/sales", Requirement: Requirement{AllowedRoles: managers, RequiredModules: mods(entity.ModuleAnalyticsSales)}},
		{Path: "/analytics/stock", Requirement: Requirement{RequiredModules: mods(entity.ModuleAnalyticsStock), AllowedCapabilities: caps(CapReportsView)}},
		{Path: "/analytics/finance", Requirement: Requirement{AllowedRoles: managers, RequiredModules: mods(entity.ModuleAnalyticsFinance)}},
		{Path: "/seller-performance", Requirement: Requirement{RequiredModules: mods(entity.ModuleSellerPerf), AllowedCapabilities: caps(CapReportsView)}},
		{Path: "/client-intel", Requirement: Requirement{RequiredModules: mods(entity.ModuleClientIntel), AllowedCapabilities: caps(CapReportsView)}},
		{Path: "/alerts", Requirement: Requirement{RequiredModules: mods(entity.ModuleAlerts), AllowedCapabilities: caps(CapAlertsView)}},
		{Path: "/settings/modules", Requirement: Requirement{AllowedRoles: managers}},
		{Path: "/settings/plan", Requirement: Requirement{AllowedRoles: []entity.UserRole{entity.RoleAdmin}}},
	}
}

// DefaultRouteTable tabla con DefaultRoutes.
func DefaultRouteTable() *RouteTable {
	return NewRouteTable(DefaultRoutes())
}
