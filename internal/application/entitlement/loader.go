package entitlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/entitlements-api/internal/domain"
	"github.com/jhoicas/entitlements-api/internal/domain/entitlement"
	"github.com/jhoicas/entitlements-api/internal/domain/entity"
	"github.com/jhoicas/entitlements-api/internal/domain/repository"
	"github.com/jhoicas/entitlements-api/internal/infrastructure/metrics"
	"github.com/jhoicas/entitlements-api/pkg/logger"
)

// SnapshotCache caché compartida entre instancias (Redis). Opcional.
type SnapshotCache interface {
	Get(ctx context.Context, storeID string) (*entitlement.Snapshot, error)
	Set(ctx context.Context, snap *entitlement.Snapshot) error
	InvalidateStore(ctx context.Context, storeID string) error
	InvalidateEnterprise(ctx context.Context, enterpriseID string) error
}

// LoaderConfig parámetros de caché, timeout y circuit breaker.
type LoaderConfig struct {
	FreshTTL         time.Duration
	MaxStale         time.Duration
	Size             int
	FetchTimeout     time.Duration
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// DefaultLoaderConfig valores por defecto.
func DefaultLoaderConfig() LoaderConfig {
	return LoaderConfig{
		FreshTTL:         30 * time.Second,
		MaxStale:         5 * time.Minute,
		Size:             1024,
		FetchTimeout:     2 * time.Second,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// LoaderDeps puertos que lee el loader.
type LoaderDeps struct {
	Stores      repository.StoreRepository
	Enterprises repository.EnterpriseRepository
	Assignments repository.AssignmentRepository
	Overrides   repository.OverrideRepository
	Remote      SnapshotCache // nil = sin Redis
	Logger      *logger.Logger
	Metrics     *metrics.Metrics
}

type cachedSnapshot struct {
	snap     *entitlement.Snapshot
	storedAt time.Time
}

// SnapshotLoader lee asignaciones, overrides y banderas de una tienda como una unidad.
// Con caché fresca no consulta la fuente; si la fuente falla sirve un valor vencido
// (hasta MaxStale) y si no hay ninguno devuelve domain.ErrSnapshotUnavailable.
// Las lecturas concurrentes de la misma tienda se coalescen.
type SnapshotLoader struct {
	deps    LoaderDeps
	cfg     LoaderConfig
	local   *expirable.LRU[string, cachedSnapshot]
	group   singleflight.Group
	breaker *gobreaker.CircuitBreaker[*entitlement.Snapshot]
	log     *logger.Logger
	now     func() time.Time

	// Secuencia de invalidaciones: una lectura iniciada antes de la última
	// invalidación de su tienda o empresa no se guarda en caché.
	mu       sync.Mutex
	seq      uint64
	storeInv map[string]uint64
	entInv   map[string]uint64
}

// NewSnapshotLoader construye el loader.
func NewSnapshotLoader(deps LoaderDeps, cfg LoaderConfig) *SnapshotLoader {
	def := DefaultLoaderConfig()
	if cfg.Size <= 0 {
		cfg.Size = def.Size
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}

	l := &SnapshotLoader{
		deps: deps,
		cfg:  cfg,
		log:  deps.Logger.Component("snapshot_loader"),
		now:  time.Now,

		storeInv: make(map[string]uint64),
		entInv:   make(map[string]uint64),
	}
	// La LRU retiene hasta FreshTTL+MaxStale; la frescura se evalúa con storedAt.
	l.local = expirable.NewLRU[string, cachedSnapshot](cfg.Size, nil, cfg.FreshTTL+cfg.MaxStale)
	l.breaker = gobreaker.NewCircuitBreaker[*entitlement.Snapshot](gobreaker.Settings{
		Name:        "snapshot_source",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("cambio de estado del circuit breaker")
			deps.Metrics.SetBreakerState(int(to))
		},
	})
	return l
}

// SetClock reemplaza el reloj (tests).
func (l *SnapshotLoader) SetClock(now func() time.Time) {
	l.now = now
}

// Load devuelve el snapshot de la tienda.
func (l *SnapshotLoader) Load(ctx context.Context, storeID string) (*entitlement.Snapshot, error) {
	cached, hasCached := l.local.Get(storeID)
	if hasCached && l.now().Sub(cached.storedAt) < l.cfg.FreshTTL {
		l.deps.Metrics.ObserveFetch(metrics.FetchHit)
		return cached.snap, nil
	}

	v, err, _ := l.group.Do(storeID, func() (interface{}, error) {
		return l.refresh(ctx, storeID)
	})
	if err == nil {
		return v.(*entitlement.Snapshot), nil
	}

	// La fuente falló: se sirve el último valor conocido si sigue dentro de MaxStale.
	if hasCached && l.now().Sub(cached.storedAt) < l.cfg.FreshTTL+l.cfg.MaxStale {
		l.deps.Metrics.ObserveFetch(metrics.FetchStale)
		l.log.Warn().Err(err).Str("store_id", storeID).
			Dur("age", l.now().Sub(cached.storedAt)).Msg("sirviendo snapshot vencido")
		return cached.snap, nil
	}
	l.deps.Metrics.ObserveFetch(metrics.FetchFailed)
	l.log.Error().Err(err).Str("store_id", storeID).Msg("snapshot no disponible")
	return nil, fmt.Errorf("%w: %v", domain.ErrSnapshotUnavailable, err)
}

func (l *SnapshotLoader) refresh(ctx context.Context, storeID string) (*entitlement.Snapshot, error) {
	// La lectura es compartida por varios llamadores: no depende de la cancelación del primero.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.cfg.FetchTimeout)
	defer cancel()

	started := l.currentSeq()

	if l.deps.Remote != nil {
		snap, err := l.deps.Remote.Get(ctx, storeID)
		if err != nil {
			l.log.Debug().Err(err).Str("store_id", storeID).Msg("caché remota no disponible")
		} else if snap != nil {
			l.deps.Metrics.ObserveFetch(metrics.FetchRemote)
			// La edad cuenta desde la lectura original, no desde la copia en Redis.
			storedAt := snap.FetchedAt
			if storedAt.IsZero() {
				storedAt = l.now()
			}
			l.storeLocal(storeID, snap, storedAt, started)
			return snap, nil
		}
	}

	start := time.Now()
	snap, err := l.breaker.Execute(func() (*entitlement.Snapshot, error) {
		return l.fetch(ctx, storeID)
	})
	l.deps.Metrics.ObserveFetchDuration(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("fuente en pausa: %w", err)
		}
		return nil, err
	}

	l.deps.Metrics.ObserveFetch(metrics.FetchLoaded)
	if !l.storeLocal(storeID, snap, snap.FetchedAt, started) {
		return snap, nil
	}
	if l.deps.Remote != nil {
		if err := l.deps.Remote.Set(ctx, snap); err != nil {
			l.log.Debug().Err(err).Str("store_id", storeID).Msg("no se pudo guardar en caché remota")
		}
		// Una invalidación durante el Set pudo borrar la clave antes de escribirla.
		if l.invalidatedSince(snap, started) {
			if err := l.deps.Remote.InvalidateStore(ctx, storeID); err != nil {
				l.log.Warn().Err(err).Str("store_id", storeID).Msg("no se pudo invalidar caché remota")
			}
		}
	}
	return snap, nil
}

func (l *SnapshotLoader) currentSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

// invalidatedSince informa si la tienda o su empresa se invalidaron después de started.
func (l *SnapshotLoader) invalidatedSince(snap *entitlement.Snapshot, started uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.invalidatedLocked(snap, started)
}

func (l *SnapshotLoader) invalidatedLocked(snap *entitlement.Snapshot, started uint64) bool {
	if l.storeInv[snap.StoreID] > started {
		return true
	}
	return snap.EnterpriseID != "" && l.entInv[snap.EnterpriseID] > started
}

// storeLocal guarda el snapshot salvo que una invalidación lo haya dejado obsoleto.
func (l *SnapshotLoader) storeLocal(storeID string, snap *entitlement.Snapshot, storedAt time.Time, started uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.invalidatedLocked(snap, started) {
		l.log.Debug().Str("store_id", storeID).Msg("snapshot descartado por invalidación concurrente")
		return false
	}
	l.local.Add(storeID, cachedSnapshot{snap: snap, storedAt: storedAt})
	return true
}

// fetch lee la tienda y luego, en paralelo, empresa, historial y overrides.
func (l *SnapshotLoader) fetch(ctx context.Context, storeID string) (*entitlement.Snapshot, error) {
	snap := &entitlement.Snapshot{StoreID: storeID, FetchedAt: l.now()}

	store, err := l.deps.Stores.GetByID(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("leer tienda: %w", err)
	}
	if store == nil {
		return snap, nil
	}

	var (
		ent         *entity.Enterprise
		assignments []entity.PlanAssignment
		overrides   []entity.StoreModuleOverride
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ent, err = l.deps.Enterprises.GetByID(gctx, store.EnterpriseID)
		if err != nil {
			return fmt.Errorf("leer empresa: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		assignments, err = l.deps.Assignments.ListByEnterprise(gctx, store.EnterpriseID)
		if err != nil {
			return fmt.Errorf("leer asignaciones: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		overrides, err = l.deps.Overrides.ListByStore(gctx, storeID)
		if err != nil {
			return fmt.Errorf("leer overrides: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if ent == nil {
		return snap, nil
	}

	snap.EnterpriseID = ent.ID
	snap.Flags = ent.FeatureFlags
	snap.Assignments = assignments
	snap.Overrides = overrides
	return snap, nil
}

// InvalidateStore descarta el snapshot de una tienda (local y remoto).
// Las lecturas en curso de esa tienda ya no llegan a la caché.
func (l *SnapshotLoader) InvalidateStore(ctx context.Context, storeID string) {
	l.mu.Lock()
	l.seq++
	l.storeInv[storeID] = l.seq
	l.local.Remove(storeID)
	l.mu.Unlock()
	l.group.Forget(storeID)

	l.deps.Metrics.ObserveInvalidation("store")
	if l.deps.Remote != nil {
		if err := l.deps.Remote.InvalidateStore(ctx, storeID); err != nil {
			l.log.Warn().Err(err).Str("store_id", storeID).Msg("no se pudo invalidar caché remota")
		}
	}
}

// InvalidateEnterprise descarta los snapshots de todas las tiendas de la empresa.
func (l *SnapshotLoader) InvalidateEnterprise(ctx context.Context, enterpriseID string) {
	l.mu.Lock()
	l.seq++
	l.entInv[enterpriseID] = l.seq
	var forget []string
	for _, key := range l.local.Keys() {
		if c, ok := l.local.Peek(key); ok && c.snap.EnterpriseID == enterpriseID {
			l.local.Remove(key)
			forget = append(forget, key)
		}
	}
	l.mu.Unlock()
	for _, key := range forget {
		l.group.Forget(key)
	}

	l.deps.Metrics.ObserveInvalidation("enterprise")
	if l.deps.Remote != nil {
		if err := l.deps.Remote.InvalidateEnterprise(ctx, enterpriseID); err != nil {
			l.log.Warn().Err(err).Str("enterprise_id", enterpriseID).Msg("no se pudo invalidar caché remota")
		}
	}
}
