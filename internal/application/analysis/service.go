// Package analysis orchestrates single-investment financial analysis: it
// constructs the cash-flow series from cost and savings inputs, runs the
// investment engine, and persists the immutable result record.
package analysis

import (
	"context"
	"math"
	"time"

	"github.com/planva/capline/internal/domain/investment"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/internal/infrastructure/monitoring/prometheus"
	"github.com/planva/capline/pkg/errors"
	"github.com/planva/capline/pkg/types/common"
)

// CreateInput carries everything needed to analyze one investment.  The
// savings components are combined into one annual net cash flow, optionally
// escalated by the inflation rate year over year.
type CreateInput struct {
	ProjectID common.ID `json:"project_id,omitempty"`

	InitialInvestment float64 `json:"initial_investment"`

	// Annual benefit components in the reporting currency.
	AnnualEnergySavings      float64 `json:"annual_energy_savings"`
	AnnualMaintenanceSavings float64 `json:"annual_maintenance_savings"`
	AnnualCostAvoidance      float64 `json:"annual_cost_avoidance"`

	// AnnualOperatingCost is the recurring cost the investment introduces,
	// netted against the savings.
	AnnualOperatingCost float64 `json:"annual_operating_cost"`

	// DiscountRate is a percentage (5 means 5%).
	DiscountRate float64 `json:"discount_rate"`

	// InflationRate is a fraction (0.03 means 3%) applied to the net flow
	// from year 2 onward.  Zero leaves the series uniform.
	InflationRate float64 `json:"inflation_rate"`

	HorizonYears int `json:"horizon_years"`
}

// Record is the persisted, immutable outcome of one analysis call.
type Record struct {
	ID        common.ID         `json:"id"`
	ProjectID common.ID         `json:"project_id,omitempty"`
	Input     CreateInput       `json:"input"`
	Result    investment.Result `json:"result"`
	CreatedAt time.Time         `json:"created_at"`
}

// Repository is the persistence contract for analysis records.
type Repository interface {
	Insert(ctx context.Context, rec *Record) error
	ListByProject(ctx context.Context, projectID common.ID) ([]Record, error)
}

// Service runs and persists investment analyses.
type Service struct {
	repo    Repository
	logger  logging.Logger
	metrics *prometheus.Metrics
}

// NewService wires the analysis service.  repo may be nil for purely
// ephemeral use (e.g. the CLI), in which case results are not persisted.
func NewService(repo Repository, logger logging.Logger, metrics *prometheus.Metrics) *Service {
	return &Service{
		repo:    repo,
		logger:  logger.Named("analysis"),
		metrics: metrics,
	}
}

// Create builds the cash-flow series, runs the engine, and persists the
// result.  Each call produces a new, independent record.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Record, error) {
	if in.HorizonYears <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidHorizon, "analysis horizon must be positive")
	}

	flows := BuildCashFlows(in)

	res, err := investment.Analyze(investment.Params{
		InitialInvestment:  in.InitialInvestment,
		AnnualNetCashFlows: flows,
		DiscountRate:       in.DiscountRate,
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.AnalysesTotal.Inc()
		if res.IRR == nil && annualNet(in) > 0 {
			s.metrics.IRRNonConvergenceTotal.Inc()
		}
	}

	rec := &Record{
		ID:        common.NewID(),
		ProjectID: in.ProjectID,
		Input:     in,
		Result:    *res,
		CreatedAt: time.Now().UTC(),
	}

	if s.repo != nil {
		if err := s.repo.Insert(ctx, rec); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to persist investment analysis")
		}
	}

	s.logger.Info("investment analysis created",
		logging.String("analysis_id", rec.ID.String()),
		logging.Float64("npv", res.NPV),
		logging.String("recommendation", string(res.Recommendation)))

	return rec, nil
}

// ListByProject returns previously persisted analyses for a project.
func (s *Service) ListByProject(ctx context.Context, projectID common.ID) ([]Record, error) {
	if s.repo == nil {
		return nil, nil
	}
	recs, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list investment analyses")
	}
	return recs, nil
}

// BuildCashFlows expands the input components into one net inflow per year
// of the horizon.  The year-1 flow is the plain net; later years escalate
// by the inflation rate compounded from year 2 onward.
func BuildCashFlows(in CreateInput) []float64 {
	net := annualNet(in)
	flows := make([]float64, in.HorizonYears)
	for y := 0; y < in.HorizonYears; y++ {
		flows[y] = net * math.Pow(1+in.InflationRate, float64(y))
	}
	return flows
}

func annualNet(in CreateInput) float64 {
	return in.AnnualEnergySavings + in.AnnualMaintenanceSavings + in.AnnualCostAvoidance - in.AnnualOperatingCost
}
