package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/planva/capline/internal/application/forecasting"
	"github.com/planva/capline/internal/domain/forecast"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/pkg/errors"
)

// defaultRecentForecastLimit bounds GET /forecasts responses.
const defaultRecentForecastLimit = 100

// ForecastHandler serves forecast generation and snapshot intake.
type ForecastHandler struct {
	svc    *forecasting.Service
	logger logging.Logger
}

// NewForecastHandler creates a ForecastHandler.
func NewForecastHandler(svc *forecasting.Service, logger logging.Logger) *ForecastHandler {
	return &ForecastHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers forecast routes.
func (h *ForecastHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/forecasts", h.Generate)
	mux.HandleFunc("GET /api/v1/forecasts", h.ListRecent)
	mux.HandleFunc("POST /api/v1/snapshots", h.RecordSnapshot)
}

// GenerateRequest is the request body for forecast generation.
type GenerateRequest struct {
	ForecastYears int    `json:"forecast_years"`
	Scenario      string `json:"scenario_type"`

	// AllScenarios generates best, most likely, and worst case runs in one
	// call; Scenario is ignored when set.
	AllScenarios bool `json:"all_scenarios,omitempty"`
}

// Generate handles POST /api/v1/forecasts.
func (h *ForecastHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.InvalidParam("invalid request body"))
		return
	}

	if req.AllScenarios {
		runs, err := h.svc.GenerateAllScenarios(r.Context(), req.ForecastYears)
		if err != nil {
			h.logger.Error("forecast generation failed", logging.Err(err))
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, runs)
		return
	}

	scenario := forecast.Scenario(req.Scenario)
	if scenario == "" {
		scenario = forecast.ScenarioMostLikely
	}

	run, err := h.svc.Generate(r.Context(), forecasting.GenerateInput{
		ForecastYears: req.ForecastYears,
		Scenario:      scenario,
	})
	if err != nil {
		h.logger.Error("forecast generation failed", logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

// ListRecent handles GET /api/v1/forecasts.
func (h *ForecastHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultRecentForecastLimit)

	points, err := h.svc.ListRecent(r.Context(), limit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// RecordSnapshot handles POST /api/v1/snapshots.
func (h *ForecastHandler) RecordSnapshot(w http.ResponseWriter, r *http.Request) {
	var snap forecast.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		writeError(w, http.StatusBadRequest, errors.InvalidParam("invalid request body"))
		return
	}

	if err := h.svc.RecordSnapshot(r.Context(), &snap); err != nil {
		h.logger.Error("snapshot intake failed", logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}
