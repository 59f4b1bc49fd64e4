package entitlement

import (
	"context"
	"fmt"

	"github.com/jhoicas/entitlements-api/internal/domain/entitlement"
	"github.com/jhoicas/entitlements-api/internal/domain/repository"
	"github.com/jhoicas/entitlements-api/pkg/logger"
)

// LoadCatalogs lee módulos y planes del repositorio y los valida.
// Tablas vacías toman los catálogos incorporados. Un catálogo inválido es un error de
// configuración y el llamador debe abortar el arranque.
func LoadCatalogs(ctx context.Context, repo repository.CatalogRepository, log *logger.Logger) (*entitlement.ModuleCatalog, *entitlement.PlanCatalog, error) {
	log = log.Component("catalogs")

	modules, err := repo.ListModules(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("listar módulos: %w", err)
	}
	if len(modules) == 0 {
		log.Warn().Msg("tabla modules vacía, usando catálogo incorporado")
		modules = entitlement.DefaultModules()
	}
	plans, err := repo.ListPlans(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("listar planes: %w", err)
	}
	if len(plans) == 0 {
		log.Warn().Msg("tabla plans vacía, usando planes incorporados")
		plans = entitlement.DefaultPlans()
	}

	moduleCatalog, err := entitlement.NewModuleCatalog(modules)
	if err != nil {
		return nil, nil, err
	}
	planCatalog, err := entitlement.NewPlanCatalog(plans, moduleCatalog)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Int("modules", len(modules)).Int("plans", len(plans)).Msg("catálogos cargados")
	return moduleCatalog, planCatalog, nil
}
