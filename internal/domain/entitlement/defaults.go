package entitlement

import (
	"github.com/google/uuid"
	"github.com/jhoicas/entitlements-api/internal/domain/entity"
)

// planNamespace espacio para derivar IDs estables de los planes por defecto.
var planNamespace = uuid.MustParse("6f1c7d2e-4b7a-4f0e-9a51-3d8f0c2b9e10")

// DefaultPlanID devuelve el ID determinista de un plan por defecto a partir de su código.
func DefaultPlanID(code string) string {
	return uuid.NewSHA1(planNamespace, []byte(code)).String()
}

// DefaultModules catálogo de módulos incorporado (se usa si la tabla modules está vacía).
func DefaultModules() []entity.Module {
	return []entity.Module{
		{Code: entity.ModuleCore, Name: "Núcleo", DisplayOrder: 0, IsActive: true},
		{Code: entity.ModuleSell, Name: "Ventas (POS)", DisplayOrder: 10, IsActive: true},
		{Code: entity.ModuleCustomer, Name: "Clientes y crédito", DisplayOrder: 20, IsActive: true,
			DependsOn: []entity.ModuleCode{entity.ModuleSell}},
		{Code: entity.ModuleCommercial, Name: "Gestión comercial", DisplayOrder: 30, IsActive: true,
			DependsOn: []entity.ModuleCode{entity.ModuleSell}},
		{Code: entity.ModuleStock, Name: "Inventario", DisplayOrder: 40, IsActive: true},
		{Code: entity.ModulePurchase, Name: "Compras", DisplayOrder: 50, IsActive: true,
			DependsOn: []entity.ModuleCode{entity.ModuleStock}},
		{Code: entity.ModuleExpense, Name: "Gastos", DisplayOrder: 60, IsActive: true},
		{Code: entity.ModuleAnalyticsSales, Name: "Analítica de ventas", DisplayOrder: 70, IsActive: true,
			DependsOn: []entity.ModuleCode{entity.ModuleSell}},
		{Code: entity.ModuleAnalyticsStock, Name: "Analítica de inventario", DisplayOrder: 80, IsActive: true,
			DependsOn: []entity.ModuleCode{entity.ModuleStock}},
		{Code: entity.ModuleAnalyticsFinance, Name: "Analítica financiera", DisplayOrder: 90, IsActive: true,
			DependsOn: []entity.ModuleCode{entity.ModuleExpense}},
		{Code: entity.ModuleSellerPerf, Name: "Desempeño de vendedores", DisplayOrder: 100, IsActive: true,
			DependsOn: []entity.ModuleCode{entity.ModuleAnalyticsSales}},
		{Code: entity.ModuleClientIntel, Name: "Inteligencia de clientes", DisplayOrder: 110, IsActive: true,
			DependsOn: []entity.ModuleCode{entity.ModuleCustomer}},
		{Code: entity.ModuleAlerts, Name: "Alertas", DisplayOrder: 120, IsActive: true,
			DependsOn: []entity.ModuleCode{entity.ModuleStock}},
	}
}

// DefaultPlans planes incorporados.
func DefaultPlans() []entity.Plan {
	plan := func(code, name string, modules ...entity.ModuleCode) entity.Plan {
		return entity.Plan{ID: DefaultPlanID(code), Code: code, Name: name, ModuleCodes: modules, IsActive: true}
	}
	return []entity.Plan{
		plan("BASIC", "Básico", entity.ModuleCore, entity.ModuleSell, entity.ModuleCustomer),
		plan("INVENTORY", "Inventario", entity.ModuleCore, entity.ModuleStock),
		plan("RETAIL", "Retail",
			entity.ModuleCore, entity.ModuleSell, entity.ModuleCustomer,
			entity.ModuleStock, entity.ModulePurchase, entity.ModuleAlerts),
		plan("PRO", "Profesional", entity.AllModuleCodes()...),
	}
}

// NewDefaultCatalogs construye y valida los catálogos incorporados.
func NewDefaultCatalogs() (*ModuleCatalog, *PlanCatalog, error) {
	modules, err := NewModuleCatalog(DefaultModules())
	if err != nil {
		return nil, nil, err
	}
	plans, err := NewPlanCatalog(DefaultPlans(), modules)
	if err != nil {
		return nil, nil, err
	}
	return modules, plans, nil
}
