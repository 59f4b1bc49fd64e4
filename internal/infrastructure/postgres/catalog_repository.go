package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/entitlements-api/internal/domain/entity"
	"github.com/jhoicas/entitlements-api/internal/domain/repository"
)

var _ repository.CatalogRepository = (*CatalogRepo)(nil)

// CatalogRepo lectura de los catálogos de módulos y planes. Se consulta una vez al arrancar.
type CatalogRepo struct {
	q Querier
}

// NewCatalogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCatalogRepository(q Querier) *CatalogRepo {
	return &CatalogRepo{q: q}
}

// ListModules devuelve los módulos con sus dependencias agregadas.
func (r *CatalogRepo) ListModules(ctx context.Context) ([]entity.Module, error) {
	const query = `
		SELECT m.code, m.name, m.display_order, m.is_active,
		       COALESCE(array_agg(d.depends_on ORDER BY d.depends_on) FILTER (WHERE d.depends_on IS NOT NULL), '{}')
		FROM modules m
		LEFT JOIN module_dependencies d ON d.module_code = m.code
		GROUP BY m.code, m.name, m.display_order, m.is_active
		ORDER BY m.display_order, m.code`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	defer rows.Close()

	var list []entity.Module
	for rows.Next() {
		var m entity.Module
		var code string
		var deps []string
		if err := rows.Scan(&code, &m.Name, &m.DisplayOrder, &m.IsActive, &deps); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		m.Code = entity.ModuleCode(code)
		m.DependsOn = toModuleCodes(deps)
		list = append(list, m)
	}
	return list, rows.Err()
}

// ListPlans devuelve los planes con los módulos que otorgan.
func (r *CatalogRepo) ListPlans(ctx context.Context) ([]entity.Plan, error) {
	const query = `
		SELECT p.id, p.code, p.name, p.is_active,
		       COALESCE(array_agg(pm.module_code ORDER BY pm.module_code) FILTER (WHERE pm.module_code IS NOT NULL), '{}')
		FROM plans p
		LEFT JOIN plan_modules pm ON pm.plan_id = p.id
		GROUP BY p.id, p.code, p.name, p.is_active
		ORDER BY p.code`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var list []entity.Plan
	for rows.Next() {
		var p entity.Plan
		var codes []string
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.IsActive, &codes); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		p.ModuleCodes = toModuleCodes(codes)
		list = append(list, p)
	}
	return list, rows.Err()
}

func toModuleCodes(in []string) []entity.ModuleCode {
	out := make([]entity.ModuleCode, 0, len(in))
	for _, s := range in {
		out = append(out, entity.ModuleCode(s))
	}
	return out
}
