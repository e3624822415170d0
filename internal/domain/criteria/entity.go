// Package criteria defines the prioritization criteria model: the weighted
// criteria that make up the scoring model and the per-project raw scores
// recorded against them.
package criteria

import (
	"time"

	"github.com/planva/capline/pkg/errors"
	"github.com/planva/capline/pkg/types/common"
)

// Weight bounds.  Weights are expressed as percentages; the sum of all
// active criterion weights must equal WeightTotal for composite scores to
// land on the intended scale.
const (
	WeightTotal = 100.0
	MaxRawScore = 10.0
)

// Criterion is one weighted dimension of the scoring model, e.g. "Urgency"
// or "Life Safety".
type Criterion struct {
	ID           common.ID `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Weight       float64   `json:"weight"`
	IsActive     bool      `json:"is_active"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate checks structural invariants of a single criterion.  The
// sum-to-100 invariant spans the whole active set and is checked by
// ValidateWeights instead.
func (c *Criterion) Validate() error {
	if c.Name == "" {
		return errors.InvalidParam("criterion name must not be empty")
	}
	if c.Weight < 0 {
		return errors.New(errors.ErrCodeInvalidWeight, "criterion weight must not be negative").
			WithDetail("name=" + c.Name)
	}
	if c.Weight > WeightTotal {
		return errors.New(errors.ErrCodeInvalidWeight, "criterion weight must not exceed 100").
			WithDetail("name=" + c.Name)
	}
	return nil
}

// CriterionScore is one project's raw score against one criterion, on the
// 0-10 per-criterion scale.  Absence of a row means "unscored" and is
// treated as a score of 0 by the composite engine, not as an error.
type CriterionScore struct {
	ProjectID     common.ID `json:"project_id"`
	CriterionID   common.ID `json:"criterion_id"`
	Score         float64   `json:"score"`
	Justification string    `json:"justification,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Validate checks that the raw score sits on the 0-10 scale.
func (s *CriterionScore) Validate() error {
	if s.Score < 0 || s.Score > MaxRawScore {
		return errors.InvalidParam("criterion score must be in [0,10]").
			WithDetail("criterion_id=" + s.CriterionID.String())
	}
	return nil
}

// Project is the minimal project record the decision engine needs: identity,
// display name, and the optional estimated total cost used for
// cost-effectiveness reporting.  Full project record-keeping lives in the
// surrounding CRUD application.
type Project struct {
	ID        common.ID `json:"id"`
	Name      string    `json:"name"`
	TotalCost *float64  `json:"total_cost,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
