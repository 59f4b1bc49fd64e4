package entitlement

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jhoicas/entitlements-api/internal/domain"
	"github.com/jhoicas/entitlements-api/internal/domain/entity"
)

// ModuleCatalog registro estático de módulos con sus dependencias.
// Se valida al construirse (grafo acíclico, dependencias conocidas) y es de solo lectura después,
// por lo que puede compartirse entre goroutines sin bloqueo.
type ModuleCatalog struct {
	modules    map[entity.ModuleCode]entity.Module
	display    []entity.ModuleCode
	order      []entity.ModuleCode // topológico: dependencias primero
	dependents map[entity.ModuleCode][]entity.ModuleCode
}

// NewModuleCatalog valida y construye el catálogo.
// Devuelve domain.ErrCyclicDependency o domain.ErrUnknownModule (envueltos) ante errores de configuración.
func NewModuleCatalog(modules []entity.Module) (*ModuleCatalog, error) {
	c := &ModuleCatalog{
		modules:    make(map[entity.ModuleCode]entity.Module, len(modules)),
		dependents: make(map[entity.ModuleCode][]entity.ModuleCode),
	}
	for _, m := range modules {
		if !m.Code.IsKnown() {
			return nil, fmt.Errorf("catálogo: %q: %w", m.Code, domain.ErrUnknownModule)
		}
		if _, dup := c.modules[m.Code]; dup {
			return nil, fmt.Errorf("catálogo: módulo %s duplicado: %w", m.Code, domain.ErrInvalidInput)
		}
		m.DependsOn = append([]entity.ModuleCode(nil), m.DependsOn...)
		sortCodes(m.DependsOn)
		c.modules[m.Code] = m
	}
	core, ok := c.modules[entity.ModuleCore]
	if !ok {
		return nil, fmt.Errorf("catálogo: falta el módulo %s: %w", entity.ModuleCore, domain.ErrInvalidInput)
	}
	if len(core.DependsOn) > 0 {
		return nil, fmt.Errorf("catálogo: %s no puede tener dependencias: %w", entity.ModuleCore, domain.ErrInvalidInput)
	}
	for _, m := range c.modules {
		for _, dep := range m.DependsOn {
			if _, ok := c.modules[dep]; !ok {
				return nil, fmt.Errorf("catálogo: %s depende de %q: %w", m.Code, dep, domain.ErrUnknownModule)
			}
			c.dependents[dep] = append(c.dependents[dep], m.Code)
		}
	}
	for k := range c.dependents {
		sortCodes(c.dependents[k])
	}

	c.display = make([]entity.ModuleCode, 0, len(c.modules))
	for code := range c.modules {
		c.display = append(c.display, code)
	}
	sort.Slice(c.display, func(i, j int) bool {
		a, b := c.modules[c.display[i]], c.modules[c.display[j]]
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		return a.Code < b.Code
	})

	order, err := c.topologicalSort()
	if err != nil {
		return nil, err
	}
	c.order = order
	return c, nil
}

// topologicalSort recorre en profundidad con pila de recursión para detectar ciclos.
func (c *ModuleCatalog) topologicalSort() ([]entity.ModuleCode, error) {
	visited := make(map[entity.ModuleCode]bool, len(c.modules))
	onStack := make(map[entity.ModuleCode]bool)
	var path []entity.ModuleCode
	result := make([]entity.ModuleCode, 0, len(c.modules))

	var visit func(entity.ModuleCode) error
	visit = func(code entity.ModuleCode) error {
		if onStack[code] {
			return fmt.Errorf("catálogo: %s: %w", cyclePath(path, code), domain.ErrCyclicDependency)
		}
		if visited[code] {
			return nil
		}
		visited[code] = true
		onStack[code] = true
		path = append(path, code)
		for _, dep := range c.modules[code].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		onStack[code] = false
		result = append(result, code)
		return nil
	}

	for _, code := range c.display {
		if err := visit(code); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func cyclePath(path []entity.ModuleCode, closing entity.ModuleCode) string {
	start := 0
	for i, p := range path {
		if p == closing {
			start = i
			break
		}
	}
	parts := make([]string, 0, len(path)-start+1)
	for _, p := range path[start:] {
		parts = append(parts, string(p))
	}
	parts = append(parts, string(closing))
	return strings.Join(parts, " -> ")
}

// Get devuelve el módulo por código.
func (c *ModuleCatalog) Get(code entity.ModuleCode) (entity.Module, bool) {
	m, ok := c.modules[code]
	return m, ok
}

// Has informa si el código está en el catálogo.
func (c *ModuleCatalog) Has(code entity.ModuleCode) bool {
	_, ok := c.modules[code]
	return ok
}

// Modules devuelve los módulos en orden de presentación.
func (c *ModuleCatalog) Modules() []entity.Module {
	out := make([]entity.Module, 0, len(c.display))
	for _, code := range c.display {
		m := c.modules[code]
		m.DependsOn = append([]entity.ModuleCode(nil), m.DependsOn...)
		out = append(out, m)
	}
	return out
}

// Codes devuelve los códigos en orden de presentación.
func (c *ModuleCatalog) Codes() []entity.ModuleCode {
	return append([]entity.ModuleCode(nil), c.display...)
}

// Order devuelve los códigos en orden topológico (cada módulo después de sus dependencias).
func (c *ModuleCatalog) Order() []entity.ModuleCode {
	return append([]entity.ModuleCode(nil), c.order...)
}

// Dependents devuelve los módulos que dependen directamente del indicado.
func (c *ModuleCatalog) Dependents(code entity.ModuleCode) []entity.ModuleCode {
	return append([]entity.ModuleCode(nil), c.dependents[code]...)
}

func sortCodes(codes []entity.ModuleCode) {
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
}
