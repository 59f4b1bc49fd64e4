package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resultados de lectura de snapshot.
const (
	FetchHit    = "hit"    // servido desde caché fresca
	FetchLoaded = "loaded" // leído de la fuente
	FetchStale  = "stale"  // fuente falló, se sirvió un valor vencido
	FetchFailed = "failed" // fuente falló y no había respaldo
	FetchRemote = "remote" // servido desde Redis
)

// Metrics contadores Prometheus del motor de módulos.
// Todos los métodos aceptan receptor nil (métricas deshabilitadas).
type Metrics struct {
	registry *prometheus.Registry

	ResolutionsTotal     *prometheus.CounterVec
	GuardDecisionsTotal  *prometheus.CounterVec
	SnapshotFetchTotal   *prometheus.CounterVec
	SnapshotFetchSeconds prometheus.Histogram
	BreakerState         prometheus.Gauge
	InvalidationsTotal   *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New crea y registra las métricas en un registry propio.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry crea y registra las métricas en el registry dado.
func NewWithRegistry(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entitlements_resolutions_total",
				Help: "Resoluciones de matriz de módulos por origen",
			},
			[]string{"source"},
		),
		GuardDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entitlements_guard_decisions_total",
				Help: "Decisiones del guard de acceso",
			},
			[]string{"kind", "reason"},
		),
		SnapshotFetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entitlements_snapshot_fetch_total",
				Help: "Lecturas de snapshot por resultado",
			},
			[]string{"outcome"},
		),
		SnapshotFetchSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "entitlements_snapshot_fetch_duration_seconds",
				Help:    "Duración de la lectura de snapshot desde la fuente",
				Buckets: prometheus.DefBuckets,
			},
		),
		BreakerState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "entitlements_breaker_state",
				Help: "Estado del circuit breaker (0 cerrado, 1 semiabierto, 2 abierto)",
			},
		),
		InvalidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entitlements_invalidations_total",
				Help: "Invalidaciones de caché por alcance",
			},
			[]string{"scope"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entitlements_http_requests_total",
				Help: "Peticiones HTTP",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "entitlements_http_request_duration_seconds",
				Help:    "Duración de peticiones HTTP",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		m.ResolutionsTotal,
		m.GuardDecisionsTotal,
		m.SnapshotFetchTotal,
		m.SnapshotFetchSeconds,
		m.BreakerState,
		m.InvalidationsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// Registry expuesto para tests y para el endpoint /metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler endpoint de exposición.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveResolution(source string) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveDecision(kind, reason string) {
	if m == nil {
		return
	}
	m.GuardDecisionsTotal.WithLabelValues(kind, reason).Inc()
}

func (m *Metrics) ObserveFetch(outcome string) {
	if m == nil {
		return
	}
	m.SnapshotFetchTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveFetchDuration(seconds float64) {
	if m == nil {
		return
	}
	m.SnapshotFetchSeconds.Observe(seconds)
}

func (m *Metrics) SetBreakerState(state int) {
	if m == nil {
		return
	}
	m.BreakerState.Set(float64(state))
}

func (m *Metrics) ObserveInvalidation(scope string) {
	if m == nil {
		return
	}
	m.InvalidationsTotal.WithLabelValues(scope).Inc()
}

func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}
