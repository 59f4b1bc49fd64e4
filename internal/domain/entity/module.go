package entity

// ModuleCode identifica un módulo del producto. Conjunto cerrado: ver constantes Module*.
type ModuleCode string

// Módulos del producto (deben coincidir con el CHECK de la tabla modules).
const (
	ModuleCore             ModuleCode = "CORE"
	ModuleSell             ModuleCode = "SELL"
	ModuleCustomer         ModuleCode = "CUSTOMER"
	ModuleCommercial       ModuleCode = "COMMERCIAL"
	ModuleStock            ModuleCode = "STOCK"
	ModulePurchase         ModuleCode = "PURCHASE"
	ModuleExpense          ModuleCode = "EXPENSE"
	ModuleAnalyticsSales   ModuleCode = "ANALYTICS_SALES"
	ModuleAnalyticsStock   ModuleCode = "ANALYTICS_STOCK"
	ModuleAnalyticsFinance ModuleCode = "ANALYTICS_FINANCE"
	ModuleSellerPerf       ModuleCode = "SELLER_PERF"
	ModuleClientIntel      ModuleCode = "CLIENT_INTEL"
	ModuleAlerts           ModuleCode = "ALERTS"
)

// AllModuleCodes devuelve los códigos conocidos en orden de presentación.
func AllModuleCodes() []ModuleCode {
	return []ModuleCode{
		ModuleCore, ModuleSell, ModuleCustomer, ModuleCommercial,
		ModuleStock, ModulePurchase, ModuleExpense,
		ModuleAnalyticsSales, ModuleAnalyticsStock, ModuleAnalyticsFinance,
		ModuleSellerPerf, ModuleClientIntel, ModuleAlerts,
	}
}

// IsKnown informa si el código pertenece al conjunto cerrado de módulos.
func (c ModuleCode) IsKnown() bool {
	for _, k := range AllModuleCodes() {
		if k == c {
			return true
		}
	}
	return false
}

// Module entrada del catálogo de módulos. Inmutable una vez cargado.
type Module struct {
	Code         ModuleCode
	Name         string
	DisplayOrder int
	IsActive     bool
	DependsOn    []ModuleCode
}
