package repository

import (
	"context"

	"github.com/jhoicas/entitlements-api/internal/domain/entity"
)

// OverrideRepository puerto de persistencia de overrides por tienda.
type OverrideRepository interface {
	ListByStore(ctx context.Context, storeID string) ([]entity.StoreModuleOverride, error)
	// ReplaceForStore reemplaza atómicamente la tabla completa de la tienda.
	ReplaceForStore(ctx context.Context, storeID string, overrides []entity.StoreModuleOverride) error
}
