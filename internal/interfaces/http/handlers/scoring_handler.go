package handlers

import (
	"net/http"

	"github.com/planva/capline/internal/application/planning"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/pkg/errors"
	"github.com/planva/capline/pkg/types/common"
)

// ScoringHandler serves composite scoring, ranking, and weight
// normalization.
type ScoringHandler struct {
	svc    *planning.Service
	logger logging.Logger
}

// NewScoringHandler creates a ScoringHandler.
func NewScoringHandler(svc *planning.Service, logger logging.Logger) *ScoringHandler {
	return &ScoringHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers scoring routes.
func (h *ScoringHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/scores/recalculate", h.Recalculate)
	mux.HandleFunc("GET /api/v1/projects/ranked", h.GetRanked)
	mux.HandleFunc("GET /api/v1/projects/{projectId}/score", h.GetProjectScore)
	mux.HandleFunc("POST /api/v1/criteria/normalize", h.NormalizeWeights)
}

// Recalculate handles POST /api/v1/scores/recalculate.
func (h *ScoringHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.RecalculateAll(r.Context())
	if err != nil {
		h.logger.Error("recalculation pass failed", logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetRanked handles GET /api/v1/projects/ranked.
func (h *ScoringHandler) GetRanked(w http.ResponseWriter, r *http.Request) {
	ranked, err := h.svc.GetRankedProjects(r.Context())
	if err != nil {
		h.logger.Error("failed to read ranked projects", logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ranked)
}

// GetProjectScore handles GET /api/v1/projects/{projectId}/score.
func (h *ScoringHandler) GetProjectScore(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectId")
	if projectID == "" {
		writeError(w, http.StatusBadRequest, errors.InvalidParam("project id is required"))
		return
	}

	result, err := h.svc.CalculateCompositeScore(r.Context(), common.ID(projectID))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// NormalizeWeights handles POST /api/v1/criteria/normalize.
func (h *ScoringHandler) NormalizeWeights(w http.ResponseWriter, r *http.Request) {
	normalized, err := h.svc.NormalizeWeights(r.Context())
	if err != nil {
		h.logger.Error("weight normalization failed", logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, normalized)
}
