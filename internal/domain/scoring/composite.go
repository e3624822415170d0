// Package scoring implements the composite scoring engine: the pure
// computation that folds a project's weighted per-criterion scores into a
// single priority number.
package scoring

import (
	"time"

	"github.com/planva/capline/internal/domain/criteria"
	"github.com/planva/capline/pkg/types/common"
)

// compositeDivisor is fixed regardless of the current weight sum.  Callers
// must normalize weights to sum to 100 before scoring or the composite
// lands off the intended scale; see criteria.NormalizeWeights.
const compositeDivisor = 100.0

// CriterionBreakdown is one row of the per-criterion contribution to a
// composite score.
type CriterionBreakdown struct {
	CriterionID   common.ID `json:"criterion_id"`
	CriterionName string    `json:"criterion_name"`
	Score         float64   `json:"score"`
	Weight        float64   `json:"weight"`
	WeightedScore float64   `json:"weighted_score"`
	Justification string    `json:"justification,omitempty"`
}

// CompositeResult is the outcome of scoring one project against the active
// criteria set.  With weights summing to 100 and raw scores on the 0-10
// scale, the composite also lands on 0-10.
type CompositeResult struct {
	ProjectID      common.ID            `json:"project_id"`
	CompositeScore float64              `json:"composite_score"`
	Breakdown      []CriterionBreakdown `json:"criteria_scores"`
	TotalWeight    float64              `json:"total_weight"`
	CalculatedAt   time.Time            `json:"calculated_at"`
}

// Compute scores one project.  It is a pure function of its inputs: the
// active criteria set and the project's raw score rows keyed by criterion ID.
//
// Returns nil when there are no active criteria — "no scoring model" is
// distinct from a composite of zero.  A project with no score rows still
// produces a valid result with a composite of 0 and every weighted score 0;
// unscored criteria default to a raw score of 0.
func Compute(projectID common.ID, active []criteria.Criterion, scores map[common.ID]criteria.CriterionScore) *CompositeResult {
	if len(active) == 0 {
		return nil
	}

	breakdown := make([]CriterionBreakdown, 0, len(active))
	var weightedSum, totalWeight float64

	for _, c := range active {
		var raw float64
		var justification string
		if s, ok := scores[c.ID]; ok {
			raw = s.Score
			justification = s.Justification
		}

		weighted := c.Weight * raw
		weightedSum += weighted
		totalWeight += c.Weight

		breakdown = append(breakdown, CriterionBreakdown{
			CriterionID:   c.ID,
			CriterionName: c.Name,
			Score:         raw,
			Weight:        c.Weight,
			WeightedScore: weighted,
			Justification: justification,
		})
	}

	return &CompositeResult{
		ProjectID:      projectID,
		CompositeScore: weightedSum / compositeDivisor,
		Breakdown:      breakdown,
		TotalWeight:    totalWeight,
		CalculatedAt:   time.Now().UTC(),
	}
}

// ScoresByCriterion indexes raw score rows by criterion ID for Compute.
func ScoresByCriterion(rows []criteria.CriterionScore) map[common.ID]criteria.CriterionScore {
	m := make(map[common.ID]criteria.CriterionScore, len(rows))
	for _, r := range rows {
		m[r.CriterionID] = r
	}
	return m
}
