package repositories

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/planva/capline/internal/application/planning"
	"github.com/planva/capline/internal/infrastructure/database/postgres"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/pkg/errors"
	"github.com/planva/capline/pkg/types/common"
)

type postgresResultRepo struct {
	conn *postgres.Connection
	log  logging.Logger
}

// NewPostgresResultRepo builds the composite score result store.
func NewPostgresResultRepo(conn *postgres.Connection, log logging.Logger) planning.ResultStore {
	return &postgresResultRepo{conn: conn, log: log}
}

func (r *postgresResultRepo) executor() queryExecutor {
	return r.conn.DB()
}

// Upsert replaces the cached result row for one project.  Each call is
// independently atomic; the coordinator stamps every row of a pass with the
// same epoch and the store converges as rows land.
func (r *postgresResultRepo) Upsert(ctx context.Context, p *planning.RankedProject) error {
	scores, err := json.Marshal(p.CriterionScores)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal criterion scores")
	}

	const query = `
		INSERT INTO composite_score_results (
			project_id, project_name, composite_score, rank, epoch,
			criterion_scores, total_cost, cost_effectiveness_score, calculated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (project_id) DO UPDATE SET
			project_name = EXCLUDED.project_name,
			composite_score = EXCLUDED.composite_score,
			rank = EXCLUDED.rank,
			epoch = EXCLUDED.epoch,
			criterion_scores = EXCLUDED.criterion_scores,
			total_cost = EXCLUDED.total_cost,
			cost_effectiveness_score = EXCLUDED.cost_effectiveness_score,
			calculated_at = EXCLUDED.calculated_at
	`
	_, err = r.executor().ExecContext(ctx, query,
		p.ProjectID.String(), p.ProjectName, p.CompositeScore, p.Rank, p.Epoch.String(),
		scores, p.TotalCost, p.CostEffectivenessScore, p.CalculatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert composite score result")
	}
	return nil
}

// ListLatest returns the rows of the newest epoch ordered by rank.  Rows
// from older epochs are excluded so a pass that failed partway does not mix
// rankings.
func (r *postgresResultRepo) ListLatest(ctx context.Context) ([]planning.RankedProject, error) {
	const query = `
		SELECT project_id, project_name, composite_score, rank, epoch,
		       criterion_scores, total_cost, cost_effectiveness_score, calculated_at
		FROM composite_score_results
		WHERE epoch = (
			SELECT epoch FROM composite_score_results
			ORDER BY calculated_at DESC LIMIT 1
		)
		ORDER BY rank
	`
	rows, err := r.executor().QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list composite score results")
	}
	defer rows.Close()

	var out []planning.RankedProject
	for rows.Next() {
		var (
			p         planning.RankedProject
			projID    string
			ep        string
			scores    []byte
			totalCost sql.NullFloat64
			costEff   sql.NullFloat64
		)
		err := rows.Scan(&projID, &p.ProjectName, &p.CompositeScore, &p.Rank, &ep,
			&scores, &totalCost, &costEff, &p.CalculatedAt)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan result row")
		}
		p.ProjectID = common.ID(projID)
		p.Epoch = common.ID(ep)
		if len(scores) > 0 {
			if err := json.Unmarshal(scores, &p.CriterionScores); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal criterion scores")
			}
		}
		if totalCost.Valid {
			v := totalCost.Float64
			p.TotalCost = &v
		}
		if costEff.Valid {
			v := costEff.Float64
			p.CostEffectivenessScore = &v
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate result rows")
	}
	return out, nil
}
