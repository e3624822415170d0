package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/planva/capline/internal/application/analysis"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/pkg/errors"
	"github.com/planva/capline/pkg/types/common"
)

// InvestmentHandler serves investment analysis requests.
type InvestmentHandler struct {
	svc    *analysis.Service
	logger logging.Logger
}

// NewInvestmentHandler creates an InvestmentHandler.
func NewInvestmentHandler(svc *analysis.Service, logger logging.Logger) *InvestmentHandler {
	return &InvestmentHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers investment analysis routes.
func (h *InvestmentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/analyses", h.Create)
	mux.HandleFunc("GET /api/v1/projects/{projectId}/analyses", h.ListByProject)
}

// Create handles POST /api/v1/analyses.
func (h *InvestmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in analysis.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, errors.InvalidParam("invalid request body"))
		return
	}

	rec, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.logger.Error("investment analysis failed", logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// ListByProject handles GET /api/v1/projects/{projectId}/analyses.
func (h *InvestmentHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectId")
	if projectID == "" {
		writeError(w, http.StatusBadRequest, errors.InvalidParam("project id is required"))
		return
	}

	records, err := h.svc.ListByProject(r.Context(), common.ID(projectID))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
