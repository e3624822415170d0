// Package http assembles the engine's HTTP surface: routing, middleware,
// and the server lifecycle.
package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/planva/capline/internal/application/analysis"
	"github.com/planva/capline/internal/application/forecasting"
	"github.com/planva/capline/internal/application/planning"
	"github.com/planva/capline/internal/config"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/internal/infrastructure/monitoring/prometheus"
	"github.com/planva/capline/internal/interfaces/http/handlers"
)

// RouterDeps carries everything the router mounts.
type RouterDeps struct {
	Planning    *planning.Service
	Analysis    *analysis.Service
	Forecasting *forecasting.Service
	Metrics     *prometheus.Metrics
	Logger      logging.Logger
	Version     string
	MetricsCfg  config.MetricsConfig
	Checkers    []handlers.HealthChecker
}

// NewRouter wires all handlers onto one mux and wraps it with logging and
// metrics middleware.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	handlers.NewScoringHandler(deps.Planning, deps.Logger).RegisterRoutes(mux)
	handlers.NewInvestmentHandler(deps.Analysis, deps.Logger).RegisterRoutes(mux)
	handlers.NewForecastHandler(deps.Forecasting, deps.Logger).RegisterRoutes(mux)
	handlers.NewRatingHandler().RegisterRoutes(mux)
	handlers.NewHealthHandler(deps.Version, deps.Checkers...).RegisterRoutes(mux)

	if deps.MetricsCfg.Enabled && deps.Metrics != nil {
		mux.Handle("GET "+deps.MetricsCfg.Path, deps.Metrics.Handler())
	}

	var h http.Handler = mux
	if deps.Metrics != nil {
		h = metricsMiddleware(deps.Metrics, h)
	}
	return loggingMiddleware(deps.Logger, h)
}

// statusRecorder captures the response status for middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func metricsMiddleware(m *prometheus.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.URL.Path
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func loggingMiddleware(log logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Debug("http request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", rec.status),
			logging.Duration("duration", time.Since(start)))
	})
}
