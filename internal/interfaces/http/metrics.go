package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"

	"github.com/seamom/ogdrop/internal/infrastructure/dune"
)

// cacheTypes are the label values folded into the hit-ratio gauge.
var cacheTypes = []string{"report", "distribution"}

// MetricsRegistry holds the dashboard's Prometheus metrics. Each registry
// carries its own prometheus.Registry so servers can be built repeatedly
// in one process.
type MetricsRegistry struct {
	registry *prometheus.Registry

	RequestDuration  *prometheus.HistogramVec
	ScenarioBuilds   *prometheus.CounterVec
	ScenarioDuration prometheus.Histogram
	BandLookups      *prometheus.CounterVec
	CacheHitRatio    prometheus.Gauge
	CacheHits        *prometheus.CounterVec
	CacheMisses      *prometheus.CounterVec
	WalletFetches    *prometheus.CounterVec
	ShareCards       *prometheus.CounterVec
	WSSessions       prometheus.Gauge
}

// NewMetricsRegistry creates and registers all dashboard metrics.
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		registry: prometheus.NewRegistry(),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ogdrop_http_request_duration_seconds",
				Help:    "Duration of HTTP requests by route",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"route", "method", "status"},
		),

		ScenarioBuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ogdrop_scenario_builds_total",
				Help: "Total number of scenario context builds by outcome",
			},
			[]string{"outcome"},
		),

		ScenarioDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ogdrop_scenario_build_duration_seconds",
				Help:    "Duration of scenario context builds in seconds",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
		),

		BandLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ogdrop_band_lookups_total",
				Help: "Total number of percentile band lookups by outcome",
			},
			[]string{"outcome"},
		),

		CacheHitRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ogdrop_cache_hit_ratio",
				Help: "Combined cache hit ratio (0.0 to 1.0)",
			},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ogdrop_cache_hits_total",
				Help: "Total number of cache hits by cache type",
			},
			[]string{"cache_type"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ogdrop_cache_misses_total",
				Help: "Total number of cache misses by cache type",
			},
			[]string{"cache_type"},
		),

		WalletFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ogdrop_wallet_fetches_total",
				Help: "Total number of wallet report fetches by outcome",
			},
			[]string{"outcome"},
		),

		ShareCards: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ogdrop_share_cards_total",
				Help: "Total number of share card renders by outcome",
			},
			[]string{"outcome"},
		),

		WSSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ogdrop_ws_sessions",
				Help: "Number of open scenario websocket sessions",
			},
		),
	}

	m.registry.MustRegister(
		m.RequestDuration,
		m.ScenarioBuilds,
		m.ScenarioDuration,
		m.BandLookups,
		m.CacheHitRatio,
		m.CacheHits,
		m.CacheMisses,
		m.WalletFetches,
		m.ShareCards,
		m.WSSessions,
	)

	return m
}

// RegisterDuneStats exports the Dune client's execution and poll counts.
// CounterFuncs read the client's counters at scrape time, so the client
// needs no callback into the registry on its hot path.
func (m *MetricsRegistry) RegisterDuneStats(stats func() dune.Stats) {
	m.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "ogdrop_dune_executions_total",
			Help: "Total number of Dune query executions started",
		}, func() float64 { return float64(stats().Executions) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "ogdrop_dune_polls_total",
			Help: "Total number of Dune execution status polls",
		}, func() float64 { return float64(stats().Polls) }),
	)
}

// ObserveRequest records one served HTTP request.
func (m *MetricsRegistry) ObserveRequest(path, method string, status int, duration time.Duration) {
	m.RequestDuration.
		WithLabelValues(routeLabel(path), method, strconv.Itoa(status)).
		Observe(duration.Seconds())
}

// routeLabel collapses parameterised paths so label cardinality stays flat.
func routeLabel(path string) string {
	if strings.HasPrefix(path, "/wallet/") {
		return "/wallet/{address}"
	}
	return path
}

// RecordScenarioBuild records one scenario context build.
func (m *MetricsRegistry) RecordScenarioBuild(outcome string, duration time.Duration) {
	m.ScenarioBuilds.WithLabelValues(outcome).Inc()
	m.ScenarioDuration.Observe(duration.Seconds())

	log.Debug().
		Str("outcome", outcome).
		Dur("duration", duration).
		Msg("Scenario build recorded")
}

// RecordBandLookup records one percentile band lookup.
func (m *MetricsRegistry) RecordBandLookup(outcome string) {
	m.BandLookups.WithLabelValues(outcome).Inc()
}

// RecordCacheHit records a cache hit for the given cache type.
func (m *MetricsRegistry) RecordCacheHit(cacheType string) {
	m.CacheHits.WithLabelValues(cacheType).Inc()
	m.updateCacheHitRatio()
}

// RecordCacheMiss records a cache miss for the given cache type.
func (m *MetricsRegistry) RecordCacheMiss(cacheType string) {
	m.CacheMisses.WithLabelValues(cacheType).Inc()
	m.updateCacheHitRatio()
}

// RecordWalletFetch records an upstream wallet fetch attempt.
func (m *MetricsRegistry) RecordWalletFetch(outcome string) {
	m.WalletFetches.WithLabelValues(outcome).Inc()
}

// RecordShareCard records a share card render attempt.
func (m *MetricsRegistry) RecordShareCard(outcome string) {
	m.ShareCards.WithLabelValues(outcome).Inc()
}

// WSConnected marks a websocket session as open.
func (m *MetricsRegistry) WSConnected() {
	m.WSSessions.Inc()
}

// WSDisconnected marks a websocket session as closed.
func (m *MetricsRegistry) WSDisconnected() {
	m.WSSessions.Dec()
}

// updateCacheHitRatio folds the per-type counters into the ratio gauge by
// reading the counter samples back out of the registry.
func (m *MetricsRegistry) updateCacheHitRatio() {
	sample := &io_prometheus_client.Metric{}

	totalHits := 0.0
	totalMisses := 0.0

	for _, cacheType := range cacheTypes {
		if hitCounter, err := m.CacheHits.GetMetricWithLabelValues(cacheType); err == nil {
			if err := hitCounter.Write(sample); err == nil {
				totalHits += sample.GetCounter().GetValue()
			}
		}
		if missCounter, err := m.CacheMisses.GetMetricWithLabelValues(cacheType); err == nil {
			if err := missCounter.Write(sample); err == nil {
				totalMisses += sample.GetCounter().GetValue()
			}
		}
	}

	total := totalHits + totalMisses
	if total > 0 {
		m.CacheHitRatio.Set(totalHits / total)
	}
}

// Handler serves the Prometheus scrape endpoint.
func (m *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gather exposes the raw metric families, mostly for tests.
func (m *MetricsRegistry) Gather() ([]*io_prometheus_client.MetricFamily, error) {
	return m.registry.Gather()
}
