package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/planva/capline/pkg/errors"
	"github.com/planva/capline/pkg/types/common"
)

// Scenario selects the multiplier applied uniformly to cost growth and
// failure-probability projections.
type Scenario string

const (
	ScenarioBestCase   Scenario = "best_case"
	ScenarioMostLikely Scenario = "most_likely"
	ScenarioWorstCase  Scenario = "worst_case"
)

// Multiplier returns the scenario's uniform projection multiplier.
func (s Scenario) Multiplier() float64 {
	switch s {
	case ScenarioBestCase:
		return 0.8
	case ScenarioWorstCase:
		return 1.2
	default:
		return 1.0
	}
}

// Valid reports whether s is a known scenario.
func (s Scenario) Valid() bool {
	switch s {
	case ScenarioBestCase, ScenarioMostLikely, ScenarioWorstCase:
		return true
	}
	return false
}

// Point is one forecast year of one scenario run.
type Point struct {
	RunID                    common.ID `json:"run_id,omitempty"`
	ForecastYear             int       `json:"forecast_year"`
	Scenario                 Scenario  `json:"scenario_type"`
	PredictedMaintenanceCost float64   `json:"predicted_maintenance_cost"`
	PredictedFCI             float64   `json:"predicted_fci"`
	FailureProbability       float64   `json:"failure_probability"`
	RiskScore                float64   `json:"risk_score"`
	ConfidenceLevel          float64   `json:"confidence_level"`
	CreatedAt                time.Time `json:"created_at,omitempty"`
}

// Projection tunables.
const (
	// minSnapshots is the historical floor: a trend cannot be fabricated
	// from a single observation.
	minSnapshots = 2

	// failureAgingFactor grows the failure probability by 10% of baseline
	// per forecast year.
	failureAgingFactor = 0.1

	// confidenceDecayPerYear is the linear confidence loss per forecast
	// year, clamped so confidence never leaves [0,100].
	confidenceDecayPerYear = 10.0

	// riskCostScale divides probability-weighted cost down to a
	// comparable risk score.
	riskCostScale = 1000.0
)

// Forecast extrapolates the snapshot history forward by the given number of
// years under one scenario.  Snapshots may arrive unordered; the engine
// sorts by snapshot date.  Requires at least two snapshots and a positive
// horizon.
func Forecast(snapshots []Snapshot, years int, scenario Scenario) ([]Point, error) {
	if len(snapshots) < minSnapshots {
		return nil, errors.New(errors.ErrCodeInsufficientHistory,
			"forecasting requires at least 2 historical snapshots")
	}
	if years <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidHorizon, "forecast horizon must be positive")
	}
	if !scenario.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidScenario, "unknown scenario type").
			WithDetail(string(scenario))
	}

	ordered := make([]Snapshot, len(snapshots))
	copy(ordered, snapshots)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].SnapshotDate.Before(ordered[j].SnapshotDate)
	})

	oldest := ordered[0]
	newest := ordered[len(ordered)-1]

	deterioration := annualizedDeteriorationRate(oldest, newest)
	multiplier := scenario.Multiplier()
	baselineCost := newest.TotalRepairCost
	baselineFCI := newest.PortfolioFCI
	inflation := newest.InflationRate

	points := make([]Point, 0, years)
	for y := 1; y <= years; y++ {
		fy := float64(y)

		growth := math.Pow(1+inflation, fy) * math.Pow(1+deterioration, fy) * multiplier
		cost := baselineCost * growth

		failureProb := math.Min(100, baselineFCI*(1+fy*failureAgingFactor)*multiplier)
		if failureProb < 0 {
			failureProb = 0
		}

		predictedFCI := clamp(baselineFCI*math.Pow(1+deterioration*multiplier, fy), 0, 100)

		points = append(points, Point{
			ForecastYear:             y,
			Scenario:                 scenario,
			PredictedMaintenanceCost: cost,
			PredictedFCI:             predictedFCI,
			FailureProbability:       failureProb,
			RiskScore:                failureProb * cost / riskCostScale,
			ConfidenceLevel:          clamp(100-fy*confidenceDecayPerYear, 0, 100),
		})
	}
	return points, nil
}

// annualizedDeteriorationRate derives the yearly FCI drift between the
// oldest and newest snapshot, normalized by the elapsed months.  A zero
// baseline FCI or a zero elapsed interval yields 0 rather than a division
// blow-up.
func annualizedDeteriorationRate(oldest, newest Snapshot) float64 {
	if oldest.PortfolioFCI == 0 {
		return 0
	}
	months := monthsBetween(oldest.SnapshotDate, newest.SnapshotDate)
	if months <= 0 {
		return 0
	}
	totalChange := (newest.PortfolioFCI - oldest.PortfolioFCI) / oldest.PortfolioFCI
	return totalChange * 12 / float64(months)
}

// monthsBetween counts whole calendar months from a to b.
func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
