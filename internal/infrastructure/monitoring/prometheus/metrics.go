// Package prometheus wires the decision engine's operational metrics into a
// prometheus registry.  All metric objects live on a single Metrics struct
// injected by constructor so tests can use an isolated registry.
package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "capline"

// Metrics holds every metric the engine emits.
type Metrics struct {
	registry *prometheus.Registry

	// Ranking & cache coordinator.
	RecalcPassesTotal   prometheus.Counter
	RecalcDuration      prometheus.Histogram
	ProjectsScoredTotal prometheus.Counter
	ProjectsFailedTotal prometheus.Counter
	RankCacheHitsTotal  prometheus.Counter
	RankCacheMissTotal  prometheus.Counter

	// Investment analysis.
	AnalysesTotal          prometheus.Counter
	IRRNonConvergenceTotal prometheus.Counter

	// Forecasting.
	ForecastRunsTotal prometheus.Counter
	ForecastDuration  prometheus.Histogram

	// HTTP layer.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics constructs and registers all engine metrics on the given
// registry.  Pass prometheus.NewRegistry() in tests for isolation.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,

		RecalcPassesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recalculation_passes_total",
			Help:      "Completed ranking recalculation passes.",
		}),
		RecalcDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recalculation_duration_seconds",
			Help:      "Wall time of one full recalculation pass.",
			Buckets:   prometheus.DefBuckets,
		}),
		ProjectsScoredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projects_scored_total",
			Help:      "Projects successfully scored across all passes.",
		}),
		ProjectsFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projects_failed_total",
			Help:      "Projects skipped during recalculation due to per-project failures.",
		}),
		RankCacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rank_cache_hits_total",
			Help:      "Ranked-list reads served from the rank cache.",
		}),
		RankCacheMissTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rank_cache_misses_total",
			Help:      "Ranked-list reads that fell back to the durable store.",
		}),

		AnalysesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "investment_analyses_total",
			Help:      "Investment analyses computed.",
		}),
		IRRNonConvergenceTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "irr_nonconvergence_total",
			Help:      "Analyses whose IRR root finder did not converge.",
		}),

		ForecastRunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_runs_total",
			Help:      "Forecast runs generated.",
		}),
		ForecastDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_duration_seconds",
			Help:      "Wall time of one forecast run.",
			Buckets:   prometheus.DefBuckets,
		}),

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route, and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		m.RecalcPassesTotal,
		m.RecalcDuration,
		m.ProjectsScoredTotal,
		m.ProjectsFailedTotal,
		m.RankCacheHitsTotal,
		m.RankCacheMissTotal,
		m.AnalysesTotal,
		m.IRRNonConvergenceTotal,
		m.ForecastRunsTotal,
		m.ForecastDuration,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
