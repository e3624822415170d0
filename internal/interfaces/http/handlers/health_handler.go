package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// HealthChecker is implemented by infrastructure components that can report
// their own health.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	checkers []HealthChecker
	version  string
	startAt  time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(version string, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{
		checkers: checkers,
		version:  version,
		startAt:  time.Now(),
	}
}

// RegisterRoutes registers health routes.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Liveness)
	mux.HandleFunc("GET /readyz", h.Readiness)
}

// LivenessResponse is the liveness probe body.
type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ReadinessResponse is the readiness probe body.
type ReadinessResponse struct {
	Status     string                    `json:"status"`
	Components map[string]ComponentCheck `json:"components,omitempty"`
}

// ComponentCheck is the health of a single dependency.
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Liveness handles GET /healthz.  Always 200 while the process runs; it
// checks no external dependencies.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{
		Status:  "alive",
		Version: h.version,
		Uptime:  time.Since(h.startAt).Truncate(time.Second).String(),
	})
}

// Readiness handles GET /readyz.  Any failing dependency turns the probe
// into a 503.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if len(h.checkers) == 0 {
		writeJSON(w, http.StatusOK, ReadinessResponse{Status: "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	components := h.checkAll(ctx)

	status := http.StatusOK
	overall := "ready"
	for _, c := range components {
		if c.Status != "healthy" {
			status = http.StatusServiceUnavailable
			overall = "not_ready"
			break
		}
	}

	writeJSON(w, status, ReadinessResponse{Status: overall, Components: components})
}

func (h *HealthHandler) checkAll(ctx context.Context) map[string]ComponentCheck {
	components := make(map[string]ComponentCheck, len(h.checkers))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, checker := range h.checkers {
		wg.Add(1)
		go func(c HealthChecker) {
			defer wg.Done()

			start := time.Now()
			err := c.Check(ctx)
			latency := time.Since(start).Truncate(time.Millisecond).String()

			check := ComponentCheck{Status: "healthy", Latency: latency}
			if err != nil {
				check.Status = "unhealthy"
				check.Error = err.Error()
			}

			mu.Lock()
			components[c.Name()] = check
			mu.Unlock()
		}(checker)
	}
	wg.Wait()

	return components
}
