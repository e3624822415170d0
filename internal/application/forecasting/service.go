// Package forecasting orchestrates forecast generation: it loads the
// snapshot window, runs the forecasting engine per scenario, and appends
// the resulting points as a new immutable run.
package forecasting

import (
	"context"
	"time"

	"github.com/planva/capline/internal/domain/forecast"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/internal/infrastructure/monitoring/prometheus"
	"github.com/planva/capline/pkg/errors"
	"github.com/planva/capline/pkg/types/common"
)

// defaultSnapshotWindow bounds how much history feeds one forecast run.
const defaultSnapshotWindow = 60

// GenerateInput selects the horizon and scenario of one forecast run.
type GenerateInput struct {
	ForecastYears int               `json:"forecast_years"`
	Scenario      forecast.Scenario `json:"scenario_type"`
}

// Run is the persisted outcome of one forecast generation.
type Run struct {
	RunID     common.ID         `json:"run_id"`
	Scenario  forecast.Scenario `json:"scenario_type"`
	Points    []forecast.Point  `json:"points"`
	CreatedAt time.Time         `json:"created_at"`
}

// EventPublisher announces completed forecast runs to downstream
// consumers.
type EventPublisher interface {
	PublishForecastGenerated(ctx context.Context, run *Run) error
}

// Options carries the engine tunables the service reads from
// configuration.  Zero values fall back to the built-in defaults.
type Options struct {
	// SnapshotWindow bounds how much history feeds one forecast run.
	SnapshotWindow int

	// DefaultInflationRate is a fraction (0.03 means 3%), applied to
	// snapshots recorded without one.
	DefaultInflationRate float64
}

// Service generates and persists forecast runs.
type Service struct {
	snapshots forecast.SnapshotRepository
	forecasts forecast.Repository
	publisher EventPublisher
	logger    logging.Logger
	metrics   *prometheus.Metrics
	window    int
	inflation float64
}

// NewService wires the forecasting service.  publisher may be nil when no
// event bus is attached.
func NewService(
	snapshots forecast.SnapshotRepository,
	forecasts forecast.Repository,
	publisher EventPublisher,
	logger logging.Logger,
	metrics *prometheus.Metrics,
	opts Options,
) *Service {
	window := opts.SnapshotWindow
	if window <= 0 {
		window = defaultSnapshotWindow
	}
	return &Service{
		snapshots: snapshots,
		forecasts: forecasts,
		publisher: publisher,
		logger:    logger.Named("forecasting"),
		metrics:   metrics,
		window:    window,
		inflation: opts.DefaultInflationRate,
	}
}

// Generate runs one scenario forecast and appends it as a new run.  Runs
// are append-only: a new run never overwrites a previous one.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (*Run, error) {
	started := time.Now()

	snaps, err := s.snapshots.ListWindow(ctx, s.window)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load portfolio snapshots")
	}

	points, err := forecast.Forecast(snaps, in.ForecastYears, in.Scenario)
	if err != nil {
		return nil, err
	}

	run := &Run{
		RunID:     common.NewID(),
		Scenario:  in.Scenario,
		Points:    points,
		CreatedAt: time.Now().UTC(),
	}
	for i := range run.Points {
		run.Points[i].RunID = run.RunID
		run.Points[i].CreatedAt = run.CreatedAt
	}

	if err := s.forecasts.AppendRun(ctx, run.RunID, run.Points); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to persist forecast run")
	}

	// The run is durable at this point; a publish failure loses the
	// notification, not the run.
	if s.publisher != nil {
		if err := s.publisher.PublishForecastGenerated(ctx, run); err != nil {
			s.logger.Warn("failed to publish forecast event", logging.Err(err))
		}
	}

	if s.metrics != nil {
		s.metrics.ForecastRunsTotal.Inc()
		s.metrics.ForecastDuration.Observe(time.Since(started).Seconds())
	}

	s.logger.Info("forecast run generated",
		logging.String("run_id", run.RunID.String()),
		logging.String("scenario", string(in.Scenario)),
		logging.Int("years", in.ForecastYears))

	return run, nil
}

// GenerateAllScenarios produces one run per scenario over the same horizon.
// A failing scenario aborts the whole call; runs already appended remain,
// by the append-only contract.
func (s *Service) GenerateAllScenarios(ctx context.Context, years int) ([]Run, error) {
	scenarios := []forecast.Scenario{
		forecast.ScenarioBestCase,
		forecast.ScenarioMostLikely,
		forecast.ScenarioWorstCase,
	}

	runs := make([]Run, 0, len(scenarios))
	for _, sc := range scenarios {
		run, err := s.Generate(ctx, GenerateInput{ForecastYears: years, Scenario: sc})
		if err != nil {
			return runs, err
		}
		runs = append(runs, *run)
	}
	return runs, nil
}

// RecordSnapshot appends one portfolio metrics observation, deriving the
// FCI from repair cost and replacement value and filling the configured
// inflation rate when unset.
func (s *Service) RecordSnapshot(ctx context.Context, snap *forecast.Snapshot) error {
	if snap.SnapshotDate.IsZero() {
		snap.SnapshotDate = time.Now().UTC()
	}
	if snap.ID.IsZero() {
		snap.ID = common.NewID()
	}
	if snap.PortfolioFCI == 0 {
		snap.PortfolioFCI = forecast.FCI(snap.TotalRepairCost, snap.TotalReplacementValue)
	}
	if snap.InflationRate == 0 {
		snap.InflationRate = s.inflation
	}
	if err := s.snapshots.Insert(ctx, snap); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert portfolio snapshot")
	}
	return nil
}

// ListRecent returns recently generated forecast points, newest runs first.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]forecast.Point, error) {
	points, err := s.forecasts.ListRecent(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list forecasts")
	}
	return points, nil
}
