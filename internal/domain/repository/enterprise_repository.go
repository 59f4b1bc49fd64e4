package repository

import (
	"context"

	"github.com/jhoicas/entitlements-api/internal/domain/entity"
)

// EnterpriseRepository puerto de lectura de empresas (tenant) y sus banderas.
// GetByID devuelve (nil, nil) si no existe.
type EnterpriseRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Enterprise, error)
}

// StoreRepository puerto de lectura de tiendas. GetByID devuelve (nil, nil) si no existe.
type StoreRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Store, error)
}
