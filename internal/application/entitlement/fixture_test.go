package entitlement_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	app "github.com/jhoicas/entitlements-api/internal/application/entitlement"
	"github.com/jhoicas/entitlements-api/internal/domain/access"
	"github.com/jhoicas/entitlements-api/internal/domain/entitlement"
	"github.com/jhoicas/entitlements-api/internal/domain/entity"
	"github.com/jhoicas/entitlements-api/internal/infrastructure/memory"
	"github.com/jhoicas/entitlements-api/internal/infrastructure/metrics"
)

const (
	enterpriseID = "0b6f1c52-8f0a-4f3e-9a3b-2f8a1d9c0e01"
	storeID      = "4c2d8e91-1b7a-4d6c-8f5e-3a9b0c1d2e02"
	otherStoreID = "7e3f9a02-2c8b-4e7d-9a6f-4b0c1d2e3f03"
)

var today = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	db      *memory.DB
	loader  *app.SnapshotLoader
	svc     *app.Service
	clock   *clock
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, cfg app.LoaderConfig) *fixture {
	t.Helper()

	db := memory.NewDB()
	db.PutEnterprise(entity.Enterprise{ID: enterpriseID, Name: "Tienda Uno", FeatureFlags: entity.FeatureFlags{"inventory": false}})
	db.PutStore(entity.Store{ID: storeID, EnterpriseID: enterpriseID, Name: "Centro"})
	db.PutStore(entity.Store{ID: otherStoreID, EnterpriseID: enterpriseID, Name: "Norte"})

	modules, plans, err := entitlement.NewDefaultCatalogs()
	require.NoError(t, err)

	m := metrics.New()
	clk := &clock{t: today}
	loader := app.NewSnapshotLoader(app.LoaderDeps{
		Stores:      memory.NewStoreRepository(db),
		Enterprises: memory.NewEnterpriseRepository(db),
		Assignments: memory.NewAssignmentRepository(db),
		Overrides:   memory.NewOverrideRepository(db),
		Metrics:     m,
	}, cfg)
	loader.SetClock(clk.now)

	svc := app.NewService(app.ServiceDeps{
		Resolver:    entitlement.NewResolver(modules, plans, nil),
		Loader:      loader,
		Stores:      memory.NewStoreRepository(db),
		Enterprises: memory.NewEnterpriseRepository(db),
		Assignments: memory.NewAssignmentRepository(db),
		Overrides:   memory.NewOverrideRepository(db),
		Guard:       access.NewGuard(access.GuardConfig{}),
		Routes:      access.DefaultRouteTable(),
		Metrics:     m,
	})
	svc.SetClock(clk.now)

	return &fixture{db: db, loader: loader, svc: svc, clock: clk, metrics: m}
}

// fullTable tabla completa de overrides en INHERIT con los cambios indicados.
func fullTable(changes map[entity.ModuleCode]entity.OverrideState) []entity.StoreModuleOverride {
	out := make([]entity.StoreModuleOverride, 0, len(entity.AllModuleCodes()))
	for _, m := range entitlement.DefaultModules() {
		state := entity.OverrideInherit
		if s, ok := changes[m.Code]; ok {
			state = s
		}
		out = append(out, entity.StoreModuleOverride{StoreID: storeID, ModuleCode: m.Code, State: state})
	}
	return out
}

func activeAssignment(id, planCode string, starts time.Time) entity.PlanAssignment {
	return entity.PlanAssignment{
		ID:           id,
		EnterpriseID: enterpriseID,
		PlanID:       entitlement.DefaultPlanID(planCode),
		Status:       entity.AssignmentActive,
		StartsOn:     entity.DateOf(starts),
		CreatedAt:    starts,
	}
}
