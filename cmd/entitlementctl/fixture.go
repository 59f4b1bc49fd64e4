package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	app "github.com/jhoicas/entitlements-api/internal/application/entitlement"
	"github.com/jhoicas/entitlements-api/internal/domain/access"
	"github.com/jhoicas/entitlements-api/internal/domain/entitlement"
	"github.com/jhoicas/entitlements-api/internal/domain/entity"
	"github.com/jhoicas/entitlements-api/internal/infrastructure/memory"
	"github.com/jhoicas/entitlements-api/pkg/logger"
)

const dateLayout = "2006-01-02"

// fixture describe el estado a evaluar. Sin modules/plans se usan los catálogos incorporados;
// sin routes, la tabla de rutas por defecto.
type fixture struct {
	Modules     []fixtureModule              `yaml:"modules"`
	Plans       []fixturePlan                `yaml:"plans"`
	Enterprises []fixtureEnterprise          `yaml:"enterprises"`
	Stores      []fixtureStore               `yaml:"stores"`
	Assignments []fixtureAssignment          `yaml:"assignments"`
	Overrides   map[string][]fixtureOverride `yaml:"overrides"` // por store id
	Routes      []access.Route               `yaml:"routes"`
}

type fixtureModule struct {
	Code         string   `yaml:"code"`
	Name         string   `yaml:"name"`
	DisplayOrder int      `yaml:"display_order"`
	Inactive     bool     `yaml:"inactive"`
	DependsOn    []string `yaml:"depends_on"`
}

type fixturePlan struct {
	ID       string   `yaml:"id"`
	Code     string   `yaml:"code"`
	Name     string   `yaml:"name"`
	Modules  []string `yaml:"modules"`
	Inactive bool     `yaml:"inactive"`
}

type fixtureEnterprise struct {
	ID    string          `yaml:"id"`
	Name  string          `yaml:"name"`
	Flags map[string]bool `yaml:"flags"`
}

type fixtureStore struct {
	ID           string `yaml:"id"`
	EnterpriseID string `yaml:"enterprise_id"`
	Name         string `yaml:"name"`
}

type fixtureAssignment struct {
	ID           string `yaml:"id"`
	EnterpriseID string `yaml:"enterprise_id"`
	Plan         string `yaml:"plan"` // id o código
	Status       string `yaml:"status"`
	StartsOn     string `yaml:"starts_on"`
	EndsOn       string `yaml:"ends_on"`
	AutoRenew    bool   `yaml:"auto_renew"`
	CreatedAt    string `yaml:"created_at"` // RFC3339; desempata asignaciones del mismo día
}

type fixtureOverride struct {
	Module string `yaml:"module"`
	State  string `yaml:"state"`
	Reason string `yaml:"reason"`
}

func loadFixture(path string) (*fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("leer fixture: %w", err)
	}
	var f fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decodificar fixture %s: %w", path, err)
	}
	return &f, nil
}

func (f *fixture) catalog() ([]entity.Module, []entity.Plan) {
	var modules []entity.Module
	for _, m := range f.Modules {
		mod := entity.Module{
			Code:         entity.ModuleCode(m.Code),
			Name:         m.Name,
			DisplayOrder: m.DisplayOrder,
			IsActive:     !m.Inactive,
		}
		for _, d := range m.DependsOn {
			mod.DependsOn = append(mod.DependsOn, entity.ModuleCode(d))
		}
		modules = append(modules, mod)
	}
	var plans []entity.Plan
	for _, p := range f.Plans {
		plan := entity.Plan{ID: p.ID, Code: p.Code, Name: p.Name, IsActive: !p.Inactive}
		if plan.ID == "" {
			plan.ID = entitlement.DefaultPlanID(p.Code)
		}
		for _, c := range p.Modules {
			plan.ModuleCodes = append(plan.ModuleCodes, entity.ModuleCode(c))
		}
		plans = append(plans, plan)
	}
	return modules, plans
}

// env servicio armado sobre el fixture cargado en memoria.
type env struct {
	modules *entitlement.ModuleCatalog
	plans   *entitlement.PlanCatalog
	svc     *app.Service
}

func (f *fixture) build(ctx context.Context, today time.Time) (*env, error) {
	db := memory.NewDB()
	modules, plans := f.catalog()
	db.PutCatalog(modules, plans)

	moduleCatalog, planCatalog, err := app.LoadCatalogs(ctx, memory.NewCatalogRepository(db), logger.Nop())
	if err != nil {
		return nil, err
	}

	for _, e := range f.Enterprises {
		db.PutEnterprise(entity.Enterprise{ID: e.ID, Name: e.Name, Status: "active", FeatureFlags: e.Flags})
	}
	for _, s := range f.Stores {
		db.PutStore(entity.Store{ID: s.ID, EnterpriseID: s.EnterpriseID, Name: s.Name})
	}
	for i, a := range f.Assignments {
		pa, err := a.toEntity(planCatalog)
		if err != nil {
			return nil, fmt.Errorf("asignación #%d: %w", i+1, err)
		}
		db.PutAssignment(pa)
	}
	for storeID, list := range f.Overrides {
		out := make([]entity.StoreModuleOverride, 0, len(list))
		for _, o := range list {
			out = append(out, entity.StoreModuleOverride{
				StoreID:    storeID,
				ModuleCode: entity.ModuleCode(o.Module),
				State:      entity.OverrideState(o.State),
				Reason:     o.Reason,
			})
		}
		db.PutOverrides(storeID, out)
	}

	var routes *access.RouteTable
	if len(f.Routes) > 0 {
		routes = access.NewRouteTable(f.Routes)
	}

	loader := app.NewSnapshotLoader(app.LoaderDeps{
		Stores:      memory.NewStoreRepository(db),
		Enterprises: memory.NewEnterpriseRepository(db),
		Assignments: memory.NewAssignmentRepository(db),
		Overrides:   memory.NewOverrideRepository(db),
	}, app.DefaultLoaderConfig())
	clock := func() time.Time { return today }
	loader.SetClock(clock)

	svc := app.NewService(app.ServiceDeps{
		Resolver:    entitlement.NewResolver(moduleCatalog, planCatalog, nil),
		Loader:      loader,
		Stores:      memory.NewStoreRepository(db),
		Enterprises: memory.NewEnterpriseRepository(db),
		Assignments: memory.NewAssignmentRepository(db),
		Overrides:   memory.NewOverrideRepository(db),
		Routes:      routes,
	})
	svc.SetClock(clock)

	return &env{modules: moduleCatalog, plans: planCatalog, svc: svc}, nil
}

func (a fixtureAssignment) toEntity(plans *entitlement.PlanCatalog) (entity.PlanAssignment, error) {
	planID := a.Plan
	if p, ok := plans.GetByCode(a.Plan); ok {
		planID = p.ID
	}
	status := entity.AssignmentStatus(a.Status)
	if status == "" {
		status = entity.AssignmentActive
	}
	starts, err := time.Parse(dateLayout, a.StartsOn)
	if err != nil {
		return entity.PlanAssignment{}, fmt.Errorf("starts_on %q: %w", a.StartsOn, err)
	}
	out := entity.PlanAssignment{
		ID:           a.ID,
		EnterpriseID: a.EnterpriseID,
		PlanID:       planID,
		Status:       status,
		StartsOn:     starts,
		AutoRenew:    a.AutoRenew,
		CreatedAt:    starts,
	}
	if a.EndsOn != "" {
		ends, err := time.Parse(dateLayout, a.EndsOn)
		if err != nil {
			return entity.PlanAssignment{}, fmt.Errorf("ends_on %q: %w", a.EndsOn, err)
		}
		out.EndsOn = &ends
	}
	if a.CreatedAt != "" {
		created, err := time.Parse(time.RFC3339, a.CreatedAt)
		if err != nil {
			return entity.PlanAssignment{}, fmt.Errorf("created_at %q: %w", a.CreatedAt, err)
		}
		out.CreatedAt = created
	}
	return out, nil
}
