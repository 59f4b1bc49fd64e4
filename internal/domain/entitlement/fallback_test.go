package entitlement_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/entitlements-api/internal/domain/entitlement"
	"github.com/jhoicas/entitlements-api/internal/domain/entity"
)

func TestFallback_SinBanderasTodoHabilitado(t *testing.T) {
	derived := entitlement.NewFeatureFlagFallback(nil).Derive(nil)
	for _, code := range entity.AllModuleCodes() {
		assert.True(t, derived[code], "%s debe estar habilitado si no hay banderas", code)
	}
}

func TestFallback_SalesPOSApagado(t *testing.T) {
	derived := entitlement.NewFeatureFlagFallback(nil).Derive(entity.FeatureFlags{
		entitlement.FlagSalesPOS: false,
	})
	assert.False(t, derived[entity.ModuleSell])
	assert.False(t, derived[entity.ModuleCustomer])
	assert.False(t, derived[entity.ModuleCommercial])
	assert.False(t, derived[entity.ModuleSellerPerf])
	assert.True(t, derived[entity.ModuleStock])
	assert.True(t, derived[entity.ModuleCore])
}

func TestFallback_CustomerEsConjuntivo(t *testing.T) {
	derived := entitlement.NewFeatureFlagFallback(nil).Derive(entity.FeatureFlags{
		entitlement.FlagSalesPOS: true,
		entitlement.FlagCredit:   false,
	})
	assert.True(t, derived[entity.ModuleSell])
	assert.False(t, derived[entity.ModuleCustomer])
}

func TestFallback_SellerPerfRequiereEnabled(t *testing.T) {
	derived := entitlement.NewFeatureFlagFallback(nil).Derive(entity.FeatureFlags{
		entitlement.FlagEnabled: false,
	})
	assert.False(t, derived[entity.ModuleSellerPerf])
	assert.True(t, derived[entity.ModuleSell])
}

func TestFallback_ClientIntelEsDisyuntivo(t *testing.T) {
	fb := entitlement.NewFeatureFlagFallback(nil)

	soloLealtad := fb.Derive(entity.FeatureFlags{entitlement.FlagCredit: false, entitlement.FlagLoyalty: true})
	assert.True(t, soloLealtad[entity.ModuleClientIntel])

	ninguna := fb.Derive(entity.FeatureFlags{entitlement.FlagCredit: false, entitlement.FlagLoyalty: false})
	assert.False(t, ninguna[entity.ModuleClientIntel])
}

func TestFallback_ModuloSinReglaEsFalse(t *testing.T) {
	fb := entitlement.NewFeatureFlagFallback(map[entity.ModuleCode]entitlement.FlagRule{
		entity.ModuleCore: {},
	})
	derived := fb.Derive(nil)
	assert.True(t, derived[entity.ModuleCore])
	assert.False(t, derived[entity.ModuleStock])
	assert.Len(t, derived, len(entity.AllModuleCodes()))
}
