// Package forecast extrapolates historical portfolio metrics into multi-year
// cost, condition, and risk predictions under best/most-likely/worst
// scenarios.
package forecast

import (
	"context"
	"time"

	"github.com/planva/capline/pkg/types/common"
)

// Snapshot is one append-only observation of portfolio-wide metrics.  Rows
// are never mutated after insertion; the engine reads a window of them to
// derive trends.
type Snapshot struct {
	ID           common.ID `json:"id"`
	SnapshotDate time.Time `json:"snapshot_date"`

	// TotalReplacementValue and TotalRepairCost are portfolio-wide sums in
	// the reporting currency.
	TotalReplacementValue float64 `json:"total_replacement_value"`
	TotalRepairCost       float64 `json:"total_repair_cost"`

	// PortfolioFCI is deferred repair cost over replacement value, as a
	// percentage.  Lower is better.
	PortfolioFCI float64 `json:"portfolio_fci"`

	// ConditionBuckets counts assets per condition band; DeficiencyCounts
	// counts open deficiencies per severity.
	ConditionBuckets map[string]int `json:"condition_buckets,omitempty"`
	DeficiencyCounts map[string]int `json:"deficiency_counts,omitempty"`

	// InflationRate and DiscountRate are fractions (0.03 means 3%).
	InflationRate float64 `json:"inflation_rate"`
	DiscountRate  float64 `json:"discount_rate"`

	CreatedAt time.Time `json:"created_at"`
}

// FCI computes a facility condition index as a percentage, guarding the
// zero-replacement-value case to 0 rather than NaN or Inf.
func FCI(repairCost, replacementValue float64) float64 {
	if replacementValue == 0 {
		return 0
	}
	return repairCost / replacementValue * 100
}

// SnapshotRepository is the persistence contract for the metrics time series.
type SnapshotRepository interface {
	// Insert appends one snapshot.  Snapshots are never updated.
	Insert(ctx context.Context, s *Snapshot) error

	// ListWindow returns up to limit snapshots ordered by snapshot date
	// ascending, newest window last.
	ListWindow(ctx context.Context, limit int) ([]Snapshot, error)
}

// Repository is the persistence contract for generated forecast points.
// Forecast rows are append-only per run; a new run never overwrites a
// previous one.
type Repository interface {
	// AppendRun persists the points of one forecast run.
	AppendRun(ctx context.Context, runID common.ID, points []Point) error

	// ListByRun returns the points of one run ordered by forecast year.
	ListByRun(ctx context.Context, runID common.ID) ([]Point, error)

	// ListRecent returns the points of the most recent runs, newest first.
	ListRecent(ctx context.Context, limit int) ([]Point, error)
}
