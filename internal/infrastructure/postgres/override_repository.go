package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/entitlements-api/internal/domain/entity"
	"github.com/jhoicas/entitlements-api/internal/domain/repository"
)

var _ repository.OverrideRepository = (*OverrideRepo)(nil)

// OverrideRepo overrides por tienda sobre PostgreSQL. Clave única (store_id, module_code).
type OverrideRepo struct {
	pool *pgxpool.Pool
	tx   *TxRunner
}

// NewOverrideRepository construye el adaptador; el reemplazo masivo usa una transacción.
func NewOverrideRepository(pool *pgxpool.Pool) *OverrideRepo {
	return &OverrideRepo{pool: pool, tx: NewTxRunner(pool)}
}

// ListByStore devuelve los overrides de la tienda ordenados por módulo.
func (r *OverrideRepo) ListByStore(ctx context.Context, storeID string) ([]entity.StoreModuleOverride, error) {
	return listOverrides(ctx, r.pool, storeID)
}

// ReplaceForStore hace upsert de cada fila y elimina las que no vienen en el payload,
// todo en una transacción: la tienda queda exactamente con la tabla enviada.
func (r *OverrideRepo) ReplaceForStore(ctx context.Context, storeID string, overrides []entity.StoreModuleOverride) error {
	return r.tx.Run(ctx, func(tx pgx.Tx) error {
		codes := make([]string, 0, len(overrides))
		batch := &pgx.Batch{}
		for _, o := range overrides {
			codes = append(codes, string(o.ModuleCode))
			batch.Queue(`
				INSERT INTO store_module_overrides (store_id, module_code, state, reason, updated_at)
				VALUES ($1, $2, $3, $4, now())
				ON CONFLICT (store_id, module_code) DO UPDATE SET
					state = EXCLUDED.state,
					reason = EXCLUDED.reason,
					updated_at = EXCLUDED.updated_at`,
				storeID, string(o.ModuleCode), string(o.State), o.Reason)
		}
		if batch.Len() > 0 {
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("upsert overrides: %w", err)
			}
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM store_module_overrides WHERE store_id = $1 AND NOT (module_code = ANY($2))`,
			storeID, codes,
		); err != nil {
			return fmt.Errorf("delete stale overrides: %w", err)
		}
		return nil
	})
}

func listOverrides(ctx context.Context, q Querier, storeID string) ([]entity.StoreModuleOverride, error) {
	const query = `
		SELECT store_id, module_code, state, reason
		FROM store_module_overrides WHERE store_id = $1
		ORDER BY module_code`
	rows, err := q.Query(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	defer rows.Close()

	var list []entity.StoreModuleOverride
	for rows.Next() {
		var o entity.StoreModuleOverride
		var code, state string
		if err := rows.Scan(&o.StoreID, &code, &state, &o.Reason); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		o.ModuleCode = entity.ModuleCode(code)
		o.State = entity.OverrideState(state)
		list = append(list, o)
	}
	return list, rows.Err()
}
