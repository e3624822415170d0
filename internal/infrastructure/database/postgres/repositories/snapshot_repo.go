package repositories

import (
	"context"
	"encoding/json"

	"github.com/planva/capline/internal/domain/forecast"
	"github.com/planva/capline/internal/infrastructure/database/postgres"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/pkg/errors"
	"github.com/planva/capline/pkg/types/common"
)

type postgresSnapshotRepo struct {
	conn *postgres.Connection
	log  logging.Logger
}

// NewPostgresSnapshotRepo builds the portfolio snapshot repository.
func NewPostgresSnapshotRepo(conn *postgres.Connection, log logging.Logger) forecast.SnapshotRepository {
	return &postgresSnapshotRepo{conn: conn, log: log}
}

func (r *postgresSnapshotRepo) executor() queryExecutor {
	return r.conn.DB()
}

func (r *postgresSnapshotRepo) Insert(ctx context.Context, s *forecast.Snapshot) error {
	buckets, err := json.Marshal(s.ConditionBuckets)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal condition buckets")
	}
	deficiencies, err := json.Marshal(s.DeficiencyCounts)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal deficiency counts")
	}

	const query = `
		INSERT INTO portfolio_snapshots (
			id, snapshot_date, total_replacement_value, total_repair_cost, portfolio_fci,
			condition_buckets, deficiency_counts, inflation_rate, discount_rate, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING created_at
	`
	err = r.executor().QueryRowContext(ctx, query,
		s.ID.String(), s.SnapshotDate, s.TotalReplacementValue, s.TotalRepairCost, s.PortfolioFCI,
		buckets, deficiencies, s.InflationRate, s.DiscountRate,
	).Scan(&s.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert portfolio snapshot")
	}
	return nil
}

// ListWindow returns up to limit snapshots ordered by snapshot date
// ascending.  The window is anchored at the newest rows so the trend always
// reflects recent history.
func (r *postgresSnapshotRepo) ListWindow(ctx context.Context, limit int) ([]forecast.Snapshot, error) {
	const query = `
		SELECT id, snapshot_date, total_replacement_value, total_repair_cost, portfolio_fci,
		       condition_buckets, deficiency_counts, inflation_rate, discount_rate, created_at
		FROM (
			SELECT * FROM portfolio_snapshots ORDER BY snapshot_date DESC LIMIT $1
		) recent
		ORDER BY snapshot_date ASC
	`
	rows, err := r.executor().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list portfolio snapshots")
	}
	defer rows.Close()

	var out []forecast.Snapshot
	for rows.Next() {
		var (
			s            forecast.Snapshot
			id           string
			buckets      []byte
			deficiencies []byte
		)
		err := rows.Scan(&id, &s.SnapshotDate, &s.TotalReplacementValue, &s.TotalRepairCost,
			&s.PortfolioFCI, &buckets, &deficiencies, &s.InflationRate, &s.DiscountRate, &s.CreatedAt)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan snapshot row")
		}
		s.ID = common.ID(id)
		if len(buckets) > 0 {
			if err := json.Unmarshal(buckets, &s.ConditionBuckets); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal condition buckets")
			}
		}
		if len(deficiencies) > 0 {
			if err := json.Unmarshal(deficiencies, &s.DeficiencyCounts); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal deficiency counts")
			}
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate snapshot rows")
	}
	return out, nil
}
