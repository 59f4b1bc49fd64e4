package entitlement_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/jhoicas/entitlements-api/internal/application/entitlement"
	"github.com/jhoicas/entitlements-api/internal/domain"
	"github.com/jhoicas/entitlements-api/internal/domain/entity"
	"github.com/jhoicas/entitlements-api/internal/domain/repository"
	"github.com/jhoicas/entitlements-api/internal/infrastructure/cache"
	"github.com/jhoicas/entitlements-api/internal/infrastructure/memory"
	"github.com/jhoicas/entitlements-api/internal/infrastructure/metrics"
)

var errBoom = errors.New("conexión rechazada")

func loaderConfig() app.LoaderConfig {
	return app.LoaderConfig{
		FreshTTL:         30 * time.Second,
		MaxStale:         5 * time.Minute,
		Size:             16,
		FetchTimeout:     time.Second,
		FailureThreshold: 100,
		OpenTimeout:      time.Minute,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Lectura y caché
// ──────────────────────────────────────────────────────────────────────────────

func TestLoader_LeeSnapshotCompleto(t *testing.T) {
	f := newFixture(t, loaderConfig())
	f.db.PutAssignment(activeAssignment("a1", "INVENTORY", today))
	f.db.PutOverrides(storeID, fullTable(nil))

	snap, err := f.loader.Load(context.Background(), storeID)
	require.NoError(t, err)

	assert.True(t, snap.Known())
	assert.Equal(t, enterpriseID, snap.EnterpriseID)
	assert.Len(t, snap.Assignments, 1)
	assert.Len(t, snap.Overrides, len(entity.AllModuleCodes()))
	assert.False(t, snap.Flags.Enabled("inventory"))
	assert.Equal(t, 4, f.db.ReadCalls())
}

func TestLoader_TiendaInexistente(t *testing.T) {
	f := newFixture(t, loaderConfig())

	snap, err := f.loader.Load(context.Background(), "9f9f9f9f-0000-4000-8000-000000000000")
	require.NoError(t, err)
	assert.False(t, snap.Known())
	assert.Equal(t, 1, f.db.ReadCalls())
}

func TestLoader_CacheFresca(t *testing.T) {
	f := newFixture(t, loaderConfig())
	ctx := context.Background()

	_, err := f.loader.Load(ctx, storeID)
	require.NoError(t, err)
	f.clock.advance(10 * time.Second)
	_, err = f.loader.Load(ctx, storeID)
	require.NoError(t, err)

	assert.Equal(t, 4, f.db.ReadCalls())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SnapshotFetchTotal.WithLabelValues(metrics.FetchHit)))
}

func TestLoader_RecargaAlVencer(t *testing.T) {
	f := newFixture(t, loaderConfig())
	ctx := context.Background()

	_, err := f.loader.Load(ctx, storeID)
	require.NoError(t, err)
	f.clock.advance(31 * time.Second)
	_, err = f.loader.Load(ctx, storeID)
	require.NoError(t, err)

	assert.Equal(t, 8, f.db.ReadCalls())
}

func TestLoader_SirveVencidoSiFallaLaFuente(t *testing.T) {
	f := newFixture(t, loaderConfig())
	ctx := context.Background()

	first, err := f.loader.Load(ctx, storeID)
	require.NoError(t, err)

	f.clock.advance(time.Minute)
	f.db.SetErr(errBoom)

	snap, err := f.loader.Load(ctx, storeID)
	require.NoError(t, err)
	assert.Same(t, first, snap)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SnapshotFetchTotal.WithLabelValues(metrics.FetchStale)))
}

func TestLoader_NoDisponibleSinRespaldo(t *testing.T) {
	f := newFixture(t, loaderConfig())
	f.db.SetErr(errBoom)

	_, err := f.loader.Load(context.Background(), storeID)
	assert.ErrorIs(t, err, domain.ErrSnapshotUnavailable)
}

func TestLoader_NoDisponibleTrasMaxStale(t *testing.T) {
	f := newFixture(t, loaderConfig())
	ctx := context.Background()

	_, err := f.loader.Load(ctx, storeID)
	require.NoError(t, err)

	f.clock.advance(6 * time.Minute)
	f.db.SetErr(errBoom)

	_, err = f.loader.Load(ctx, storeID)
	assert.ErrorIs(t, err, domain.ErrSnapshotUnavailable)
}

// ──────────────────────────────────────────────────────────────────────────────
// Circuit breaker
// ──────────────────────────────────────────────────────────────────────────────

func TestLoader_BreakerAbreTrasFallos(t *testing.T) {
	cfg := loaderConfig()
	cfg.FreshTTL, cfg.MaxStale = 0, 0
	cfg.FailureThreshold = 2
	cfg.OpenTimeout = time.Hour
	f := newFixture(t, cfg)
	ctx := context.Background()

	f.db.SetErr(errBoom)
	for i := 0; i < 2; i++ {
		_, err := f.loader.Load(ctx, storeID)
		require.ErrorIs(t, err, domain.ErrSnapshotUnavailable)
	}
	calls := f.db.ReadCalls()

	// La fuente se recupera pero el breaker sigue abierto: no se consulta.
	f.db.SetErr(nil)
	_, err := f.loader.Load(ctx, storeID)
	assert.ErrorIs(t, err, domain.ErrSnapshotUnavailable)
	assert.Equal(t, calls, f.db.ReadCalls())
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.BreakerState))
}

// ──────────────────────────────────────────────────────────────────────────────
// Invalidación y concurrencia
// ──────────────────────────────────────────────────────────────────────────────

func TestLoader_InvalidateStore(t *testing.T) {
	f := newFixture(t, loaderConfig())
	ctx := context.Background()

	snap, err := f.loader.Load(ctx, storeID)
	require.NoError(t, err)
	assert.Empty(t, snap.Overrides)

	f.db.PutOverrides(storeID, fullTable(nil))
	f.loader.InvalidateStore(ctx, storeID)

	snap, err = f.loader.Load(ctx, storeID)
	require.NoError(t, err)
	assert.Len(t, snap.Overrides, len(entity.AllModuleCodes()))
}

func TestLoader_InvalidateEnterprise(t *testing.T) {
	f := newFixture(t, loaderConfig())
	ctx := context.Background()

	_, err := f.loader.Load(ctx, storeID)
	require.NoError(t, err)
	_, err = f.loader.Load(ctx, otherStoreID)
	require.NoError(t, err)

	f.db.PutAssignment(activeAssignment("a1", "PRO", today))
	f.loader.InvalidateEnterprise(ctx, enterpriseID)

	for _, id := range []string{storeID, otherStoreID} {
		snap, err := f.loader.Load(ctx, id)
		require.NoError(t, err)
		assert.Len(t, snap.Assignments, 1, id)
	}
}

// blockingOverrides retiene la lectura de overrides hasta que se cierre release.
type blockingOverrides struct {
	repository.OverrideRepository
	read    chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingOverrides) ListByStore(ctx context.Context, storeID string) ([]entity.StoreModuleOverride, error) {
	list, err := b.OverrideRepository.ListByStore(ctx, storeID)
	b.once.Do(func() {
		close(b.read)
		<-b.release
	})
	return list, err
}

func newBlockingLoader(f *fixture, remote app.SnapshotCache) (*app.SnapshotLoader, *blockingOverrides) {
	blocking := &blockingOverrides{
		OverrideRepository: memory.NewOverrideRepository(f.db),
		read:               make(chan struct{}),
		release:            make(chan struct{}),
	}
	loader := app.NewSnapshotLoader(app.LoaderDeps{
		Stores:      memory.NewStoreRepository(f.db),
		Enterprises: memory.NewEnterpriseRepository(f.db),
		Assignments: memory.NewAssignmentRepository(f.db),
		Overrides:   blocking,
		Remote:      remote,
	}, loaderConfig())
	loader.SetClock(f.clock.now)
	return loader, blocking
}

func TestLoader_InvalidacionDuranteLecturaNoRevive(t *testing.T) {
	f := newFixture(t, loaderConfig())
	loader, blocking := newBlockingLoader(f, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		snap, err := loader.Load(ctx, storeID)
		if err == nil && len(snap.Overrides) != 0 {
			err = errors.New("la primera lectura no debía ver overrides")
		}
		done <- err
	}()
	<-blocking.read

	f.db.PutOverrides(storeID, fullTable(map[entity.ModuleCode]entity.OverrideState{entity.ModuleSell: entity.OverrideDisabled}))
	loader.InvalidateStore(ctx, storeID)
	close(blocking.release)
	require.NoError(t, <-done)

	snap, err := loader.Load(ctx, storeID)
	require.NoError(t, err)
	assert.Len(t, snap.Overrides, len(entity.AllModuleCodes()))
}

func TestLoader_InvalidacionDeEmpresaDuranteLectura(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	remote := cache.NewSnapshotCache(client, "t", time.Minute)

	f := newFixture(t, loaderConfig())
	loader, blocking := newBlockingLoader(f, remote)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := loader.Load(ctx, storeID)
		done <- err
	}()
	<-blocking.read

	f.db.PutAssignment(activeAssignment("a1", "PRO", today))
	loader.InvalidateEnterprise(ctx, enterpriseID)
	close(blocking.release)
	require.NoError(t, <-done)

	assert.False(t, mr.Exists("t:snapshot:"+storeID))
	snap, err := loader.Load(ctx, storeID)
	require.NoError(t, err)
	assert.Len(t, snap.Assignments, 1)
}

func TestLoader_CacheRemotaConservaEdad(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	remote := cache.NewSnapshotCache(client, "t", time.Hour)

	f := newFixture(t, loaderConfig())
	newLoader := func(db *memory.DB) *app.SnapshotLoader {
		l := app.NewSnapshotLoader(app.LoaderDeps{
			Stores:      memory.NewStoreRepository(db),
			Enterprises: memory.NewEnterpriseRepository(db),
			Assignments: memory.NewAssignmentRepository(db),
			Overrides:   memory.NewOverrideRepository(db),
			Remote:      remote,
		}, loaderConfig())
		l.SetClock(f.clock.now)
		return l
	}
	ctx := context.Background()

	_, err := newLoader(f.db).Load(ctx, storeID)
	require.NoError(t, err)

	// La segunda instancia lee de Redis 20s después; a los 40s la copia ya no es fresca.
	other := memory.NewDB()
	f.clock.advance(20 * time.Second)
	second := newLoader(other)
	_, err = second.Load(ctx, storeID)
	require.NoError(t, err)
	assert.Equal(t, 0, other.ReadCalls())

	require.NoError(t, client.Del(ctx, "t:snapshot:"+storeID).Err())
	f.clock.advance(20 * time.Second)
	snap, err := second.Load(ctx, storeID)
	require.NoError(t, err)
	assert.False(t, snap.Known())
	assert.Equal(t, 1, other.ReadCalls())
}

func TestLoader_LecturasConcurrentes(t *testing.T) {
	f := newFixture(t, loaderConfig())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := f.loader.Load(ctx, storeID)
			assert.NoError(t, err)
			assert.Equal(t, enterpriseID, snap.EnterpriseID)
		}()
	}
	wg.Wait()

	// Como mínimo una lectura completa; la coalescencia evita una por llamador.
	assert.GreaterOrEqual(t, f.db.ReadCalls(), 4)
}

// ──────────────────────────────────────────────────────────────────────────────
// Caché remota
// ──────────────────────────────────────────────────────────────────────────────

func TestLoader_CacheRemotaCompartida(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	remote := cache.NewSnapshotCache(client, "t", time.Minute)

	f := newFixture(t, loaderConfig())
	newLoader := func(db *memory.DB) *app.SnapshotLoader {
		return app.NewSnapshotLoader(app.LoaderDeps{
			Stores:      memory.NewStoreRepository(db),
			Enterprises: memory.NewEnterpriseRepository(db),
			Assignments: memory.NewAssignmentRepository(db),
			Overrides:   memory.NewOverrideRepository(db),
			Remote:      remote,
		}, loaderConfig())
	}
	ctx := context.Background()

	_, err := newLoader(f.db).Load(ctx, storeID)
	require.NoError(t, err)
	assert.True(t, mr.Exists("t:snapshot:"+storeID))

	// Otra instancia con la fuente caída lee desde Redis.
	down := memory.NewDB()
	down.SetErr(errBoom)
	snap, err := newLoader(down).Load(ctx, storeID)
	require.NoError(t, err)
	assert.Equal(t, enterpriseID, snap.EnterpriseID)
	assert.Equal(t, 0, down.ReadCalls())

	newLoader(f.db).InvalidateEnterprise(ctx, enterpriseID)
	assert.False(t, mr.Exists("t:snapshot:"+storeID))
}
