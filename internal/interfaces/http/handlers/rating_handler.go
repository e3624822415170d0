package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/planva/capline/internal/domain/rating"
	"github.com/planva/capline/pkg/errors"
)

// RatingHandler serves rating classification requests.  Classification is
// pure computation, so the handler calls the domain directly.
type RatingHandler struct{}

// NewRatingHandler creates a RatingHandler.
func NewRatingHandler() *RatingHandler {
	return &RatingHandler{}
}

// RegisterRoutes registers rating routes.
func (h *RatingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/ratings/classify", h.Classify)
}

// ClassifyRequest is the request body for score classification.
type ClassifyRequest struct {
	Score float64 `json:"score"`

	// Scale selects the built-in threshold tables: "percent" (default)
	// or "fci".
	Scale string `json:"scale,omitempty"`

	// GradeBands and ZoneBands override the built-in tables when
	// present.  Either table can be overridden independently; the other
	// keeps the selected scale's built-in.
	GradeBands []rating.GradeBand `json:"grade_bands,omitempty"`
	ZoneBands  []rating.ZoneBand  `json:"zone_bands,omitempty"`
}

// Classify handles POST /api/v1/ratings/classify.
func (h *RatingHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.InvalidParam("invalid request body"))
		return
	}

	scale := rating.ScaleType(req.Scale)
	if scale == "" {
		scale = rating.ScalePercent
	}

	grades, zones := rating.DefaultTables(scale)
	if len(req.GradeBands) > 0 {
		grades = req.GradeBands
	}
	if len(req.ZoneBands) > 0 {
		zones = req.ZoneBands
	}

	writeJSON(w, http.StatusOK, rating.ClassifyWithTables(req.Score, grades, zones))
}
