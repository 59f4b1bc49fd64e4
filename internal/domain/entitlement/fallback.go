package entitlement

import "github.com/jhoicas/entitlements-api/internal/domain/entity"

// Banderas de la empresa usadas por la tabla de respaldo.
const (
	FlagEnabled    = "enabled"
	FlagSalesPOS   = "sales_pos"
	FlagCredit     = "credit"
	FlagCommercial = "commercial"
	FlagInventory  = "inventory"
	FlagPurchases  = "purchases"
	FlagExpenses   = "expenses"
	FlagAnalytics  = "analytics"
	FlagLoyalty    = "loyalty"
	FlagAlerts     = "alerts"
)

// FlagRule habilita un módulo si todas las banderas de AllOf están activas
// y, cuando AnyOf no está vacío, al menos una de ellas también.
type FlagRule struct {
	AllOf []string
	AnyOf []string
}

// Eval evalúa la regla; una bandera ausente cuenta como activa.
func (r FlagRule) Eval(flags entity.FeatureFlags) bool {
	for _, f := range r.AllOf {
		if !flags.Enabled(f) {
			return false
		}
	}
	if len(r.AnyOf) == 0 {
		return true
	}
	for _, f := range r.AnyOf {
		if flags.Enabled(f) {
			return true
		}
	}
	return false
}

// DefaultFlagRules tabla declarativa bandera → módulo para empresas sin plan formal.
var DefaultFlagRules = map[entity.ModuleCode]FlagRule{
	entity.ModuleCore:             {},
	entity.ModuleSell:             {AllOf: []string{FlagSalesPOS}},
	entity.ModuleCustomer:         {AllOf: []string{FlagSalesPOS, FlagCredit}},
	entity.ModuleCommercial:       {AllOf: []string{FlagSalesPOS, FlagCommercial}},
	entity.ModuleStock:            {AllOf: []string{FlagInventory}},
	entity.ModulePurchase:         {AllOf: []string{FlagInventory, FlagPurchases}},
	entity.ModuleExpense:          {AllOf: []string{FlagExpenses}},
	entity.ModuleAnalyticsSales:   {AllOf: []string{FlagAnalytics, FlagSalesPOS}},
	entity.ModuleAnalyticsStock:   {AllOf: []string{FlagAnalytics, FlagInventory}},
	entity.ModuleAnalyticsFinance: {AllOf: []string{FlagAnalytics, FlagExpenses}},
	entity.ModuleSellerPerf:       {AllOf: []string{FlagEnabled, FlagSalesPOS}},
	entity.ModuleClientIntel:      {AllOf: []string{FlagEnabled, FlagAnalytics}, AnyOf: []string{FlagCredit, FlagLoyalty}},
	entity.ModuleAlerts:           {AllOf: []string{FlagAlerts}, AnyOf: []string{FlagInventory, FlagExpenses}},
}

// FeatureFlagFallback deriva la matriz base a partir de las banderas de la empresa.
type FeatureFlagFallback struct {
	rules map[entity.ModuleCode]FlagRule
}

// NewFeatureFlagFallback construye el respaldo con la tabla indicada (nil = DefaultFlagRules).
func NewFeatureFlagFallback(rules map[entity.ModuleCode]FlagRule) *FeatureFlagFallback {
	if rules == nil {
		rules = DefaultFlagRules
	}
	return &FeatureFlagFallback{rules: rules}
}

// Derive es total: devuelve un valor por cada código conocido; sin regla → false.
func (f *FeatureFlagFallback) Derive(flags entity.FeatureFlags) map[entity.ModuleCode]bool {
	out := make(map[entity.ModuleCode]bool, len(f.rules))
	for _, code := range entity.AllModuleCodes() {
		rule, ok := f.rules[code]
		out[code] = ok && rule.Eval(flags)
	}
	return out
}
