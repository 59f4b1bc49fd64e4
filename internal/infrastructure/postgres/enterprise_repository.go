package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/entitlements-api/internal/domain/entity"
	"github.com/jhoicas/entitlements-api/internal/domain/repository"
)

var (
	_ repository.EnterpriseRepository = (*EnterpriseRepo)(nil)
	_ repository.StoreRepository      = (*StoreRepo)(nil)
)

// EnterpriseRepo implementación del puerto EnterpriseRepository sobre PostgreSQL.
type EnterpriseRepo struct {
	q Querier
}

// NewEnterpriseRepository construye el adaptador. Pasar pool o tx (Querier).
func NewEnterpriseRepository(q Querier) *EnterpriseRepo {
	return &EnterpriseRepo{q: q}
}

// GetByID obtiene una empresa con sus banderas (columna JSONB feature_flags).
func (r *EnterpriseRepo) GetByID(ctx context.Context, id string) (*entity.Enterprise, error) {
	const query = `
		SELECT id, name, status, COALESCE(feature_flags, '{}'::jsonb), created_at, updated_at
		FROM enterprises WHERE id = $1`
	var e entity.Enterprise
	var flags map[string]bool
	err := r.q.QueryRow(ctx, query, id).Scan(&e.ID, &e.Name, &e.Status, &flags, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get enterprise: %w", err)
	}
	e.FeatureFlags = entity.FeatureFlags(flags)
	return &e, nil
}

// StoreRepo implementación del puerto StoreRepository sobre PostgreSQL.
type StoreRepo struct {
	q Querier
}

// NewStoreRepository construye el adaptador de persistencia para tiendas.
func NewStoreRepository(q Querier) *StoreRepo {
	return &StoreRepo{q: q}
}

// GetByID obtiene una tienda por ID.
func (r *StoreRepo) GetByID(ctx context.Context, id string) (*entity.Store, error) {
	const query = `
		SELECT id, enterprise_id, name, created_at, updated_at
		FROM stores WHERE id = $1`
	var s entity.Store
	err := r.q.QueryRow(ctx, query, id).Scan(&s.ID, &s.EnterpriseID, &s.Name, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get store: %w", err)
	}
	return &s, nil
}
