package repositories

import (
	"context"

	"github.com/planva/capline/internal/domain/criteria"
	"github.com/planva/capline/internal/infrastructure/database/postgres"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/pkg/errors"
	"github.com/planva/capline/pkg/types/common"
)

type postgresScoreRepo struct {
	conn *postgres.Connection
	log  logging.Logger
}

// NewPostgresScoreRepo builds the criterion score repository.
func NewPostgresScoreRepo(conn *postgres.Connection, log logging.Logger) criteria.ScoreRepository {
	return &postgresScoreRepo{conn: conn, log: log}
}

func (r *postgresScoreRepo) executor() queryExecutor {
	return r.conn.DB()
}

func (r *postgresScoreRepo) ListByProject(ctx context.Context, projectID common.ID) ([]criteria.CriterionScore, error) {
	query, args, err := psql.
		Select("project_id", "criterion_id", "score", "justification", "created_at", "updated_at").
		From("criterion_scores").
		Where("project_id = ?", projectID.String()).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to build score query")
	}

	rows, err := r.executor().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list criterion scores")
	}
	defer rows.Close()

	var out []criteria.CriterionScore
	for rows.Next() {
		var (
			s             criteria.CriterionScore
			projID, critID string
		)
		if err := rows.Scan(&projID, &critID, &s.Score, &s.Justification, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan criterion score row")
		}
		s.ProjectID = common.ID(projID)
		s.CriterionID = common.ID(critID)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate score rows")
	}
	return out, nil
}

func (r *postgresScoreRepo) Upsert(ctx context.Context, score *criteria.CriterionScore) error {
	if err := score.Validate(); err != nil {
		return err
	}

	const query = `
		INSERT INTO criterion_scores (project_id, criterion_id, score, justification, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (project_id, criterion_id)
		DO UPDATE SET score = EXCLUDED.score, justification = EXCLUDED.justification, updated_at = NOW()
	`
	_, err := r.executor().ExecContext(ctx, query,
		score.ProjectID.String(), score.CriterionID.String(), score.Score, score.Justification)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert criterion score")
	}
	return nil
}
