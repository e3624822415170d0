package repositories

import (
	"context"

	"github.com/planva/capline/internal/domain/forecast"
	"github.com/planva/capline/internal/infrastructure/database/postgres"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/pkg/errors"
	"github.com/planva/capline/pkg/types/common"
)

type postgresForecastRepo struct {
	conn *postgres.Connection
	log  logging.Logger
}

// NewPostgresForecastRepo builds the forecast point repository.
func NewPostgresForecastRepo(conn *postgres.Connection, log logging.Logger) forecast.Repository {
	return &postgresForecastRepo{conn: conn, log: log}
}

func (r *postgresForecastRepo) executor() queryExecutor {
	return r.conn.DB()
}

// AppendRun inserts every point of one run in a single transaction so a run
// is visible either whole or not at all.
func (r *postgresForecastRepo) AppendRun(ctx context.Context, runID common.ID, points []forecast.Point) error {
	tx, err := r.conn.DB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin forecast transaction")
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO financial_forecasts (
			run_id, forecast_year, scenario_type, predicted_maintenance_cost,
			predicted_fci, failure_probability, risk_score, confidence_level, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for i := range points {
		p := &points[i]
		_, err := tx.ExecContext(ctx, query,
			runID.String(), p.ForecastYear, string(p.Scenario), p.PredictedMaintenanceCost,
			p.PredictedFCI, p.FailureProbability, p.RiskScore, p.ConfidenceLevel, p.CreatedAt)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert forecast point")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit forecast transaction")
	}
	return nil
}

func (r *postgresForecastRepo) ListByRun(ctx context.Context, runID common.ID) ([]forecast.Point, error) {
	query, args, err := psql.
		Select("run_id", "forecast_year", "scenario_type", "predicted_maintenance_cost",
			"predicted_fci", "failure_probability", "risk_score", "confidence_level", "created_at").
		From("financial_forecasts").
		Where("run_id = ?", runID.String()).
		OrderBy("forecast_year").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to build forecast query")
	}
	return r.queryPoints(ctx, query, args...)
}

func (r *postgresForecastRepo) ListRecent(ctx context.Context, limit int) ([]forecast.Point, error) {
	query, args, err := psql.
		Select("run_id", "forecast_year", "scenario_type", "predicted_maintenance_cost",
			"predicted_fci", "failure_probability", "risk_score", "confidence_level", "created_at").
		From("financial_forecasts").
		OrderBy("created_at DESC", "forecast_year").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to build forecast query")
	}
	return r.queryPoints(ctx, query, args...)
}

func (r *postgresForecastRepo) queryPoints(ctx context.Context, query string, args ...interface{}) ([]forecast.Point, error) {
	rows, err := r.executor().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query forecast points")
	}
	defer rows.Close()

	var out []forecast.Point
	for rows.Next() {
		var (
			p        forecast.Point
			runID    string
			scenario string
		)
		err := rows.Scan(&runID, &p.ForecastYear, &scenario, &p.PredictedMaintenanceCost,
			&p.PredictedFCI, &p.FailureProbability, &p.RiskScore, &p.ConfidenceLevel, &p.CreatedAt)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan forecast row")
		}
		p.RunID = common.ID(runID)
		p.Scenario = forecast.Scenario(scenario)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate forecast rows")
	}
	return out, nil
}
