package repository

import (
	"context"

	"github.com/jhoicas/entitlements-api/internal/domain/entity"
)

// CatalogRepository puerto de lectura de los catálogos de módulos y planes.
type CatalogRepository interface {
	ListModules(ctx context.Context) ([]entity.Module, error)
	ListPlans(ctx context.Context) ([]entity.Plan, error)
}
