package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/entitlements-api/internal/domain"
	"github.com/jhoicas/entitlements-api/internal/domain/entity"
	"github.com/jhoicas/entitlements-api/internal/infrastructure/memory"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAssignmentRepo_OrdenYVigente(t *testing.T) {
	db := memory.NewDB()
	db.PutEnterprise(entity.Enterprise{ID: "e1"})
	repo := memory.NewAssignmentRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &entity.PlanAssignment{
		ID: "a1", EnterpriseID: "e1", PlanID: "p1", Status: entity.AssignmentActive,
		StartsOn: date(2025, 1, 1), CreatedAt: date(2025, 1, 1),
	}))
	require.NoError(t, repo.Create(ctx, &entity.PlanAssignment{
		ID: "a2", EnterpriseID: "e1", PlanID: "p2", Status: entity.AssignmentCanceled,
		StartsOn: date(2025, 3, 1), CreatedAt: date(2025, 3, 1),
	}))

	list, err := repo.ListByEnterprise(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a2", list[0].ID)

	current, err := repo.GetCurrent(ctx, "e1", date(2025, 4, 1))
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "a1", current.ID)
}

func TestAssignmentRepo_Create_Errores(t *testing.T) {
	db := memory.NewDB()
	repo := memory.NewAssignmentRepository(db)
	ctx := context.Background()

	err := repo.Create(ctx, &entity.PlanAssignment{ID: "a1", EnterpriseID: "no-existe"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	db.PutEnterprise(entity.Enterprise{ID: "e1"})
	require.NoError(t, repo.Create(ctx, &entity.PlanAssignment{ID: "a1", EnterpriseID: "e1"}))
	err = repo.Create(ctx, &entity.PlanAssignment{ID: "a1", EnterpriseID: "e1"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestOverrideRepo_Reemplazo(t *testing.T) {
	db := memory.NewDB()
	db.PutStore(entity.Store{ID: "s1", EnterpriseID: "e1"})
	repo := memory.NewOverrideRepository(db)
	ctx := context.Background()

	list := []entity.StoreModuleOverride{{StoreID: "s1", ModuleCode: entity.ModuleStock, State: entity.OverrideDisabled}}
	require.NoError(t, repo.ReplaceForStore(ctx, "s1", list))

	got, err := repo.ListByStore(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, list, got)

	assert.ErrorIs(t, repo.ReplaceForStore(ctx, "s9", list), domain.ErrNotFound)
}

func TestDB_ErrorInyectado(t *testing.T) {
	db := memory.NewDB()
	boom := errors.New("boom")
	db.SetErr(boom)

	_, err := memory.NewStoreRepository(db).GetByID(context.Background(), "s1")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, db.ReadCalls())
}

func TestEnterpriseRepo_CopiaBanderas(t *testing.T) {
	db := memory.NewDB()
	db.PutEnterprise(entity.Enterprise{ID: "e1", FeatureFlags: entity.FeatureFlags{"inventory": false}})
	repo := memory.NewEnterpriseRepository(db)

	e, err := repo.GetByID(context.Background(), "e1")
	require.NoError(t, err)
	e.FeatureFlags["inventory"] = true

	again, err := repo.GetByID(context.Background(), "e1")
	require.NoError(t, err)
	assert.False(t, again.FeatureFlags["inventory"])

	missing, err := repo.GetByID(context.Background(), "e9")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
