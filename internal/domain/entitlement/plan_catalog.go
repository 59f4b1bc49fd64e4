package entitlement

import (
	"fmt"

	"github.com/jhoicas/entitlements-api/internal/domain"
	"github.com/jhoicas/entitlements-api/internal/domain/entity"
)

// PlanCatalog registro de planes comerciales, validado contra el catálogo de módulos.
type PlanCatalog struct {
	byID   map[string]entity.Plan
	byCode map[string]string
	ids    []string
}

// NewPlanCatalog valida que cada plan referencie solo módulos del catálogo.
func NewPlanCatalog(plans []entity.Plan, modules *ModuleCatalog) (*PlanCatalog, error) {
	c := &PlanCatalog{
		byID:   make(map[string]entity.Plan, len(plans)),
		byCode: make(map[string]string, len(plans)),
	}
	for _, p := range plans {
		if p.ID == "" || p.Code == "" {
			return nil, fmt.Errorf("plan sin id o código: %w", domain.ErrInvalidInput)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("plan %s duplicado: %w", p.ID, domain.ErrInvalidInput)
		}
		if _, dup := c.byCode[p.Code]; dup {
			return nil, fmt.Errorf("código de plan %s duplicado: %w", p.Code, domain.ErrInvalidInput)
		}
		for _, code := range p.ModuleCodes {
			if !modules.Has(code) {
				return nil, fmt.Errorf("plan %s incluye %q: %w", p.Code, code, domain.ErrUnknownModule)
			}
		}
		p.ModuleCodes = append([]entity.ModuleCode(nil), p.ModuleCodes...)
		c.byID[p.ID] = p
		c.byCode[p.Code] = p.ID
		c.ids = append(c.ids, p.ID)
	}
	return c, nil
}

// Get devuelve el plan por ID.
func (c *PlanCatalog) Get(id string) (*entity.Plan, bool) {
	p, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return &p, true
}

// GetByCode devuelve el plan por código comercial.
func (c *PlanCatalog) GetByCode(code string) (*entity.Plan, bool) {
	id, ok := c.byCode[code]
	if !ok {
		return nil, false
	}
	return c.Get(id)
}

// Plans devuelve los planes en el orden de carga.
func (c *PlanCatalog) Plans() []entity.Plan {
	out := make([]entity.Plan, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.byID[id])
	}
	return out
}
