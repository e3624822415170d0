package repositories

import (
	"context"
	"encoding/json"

	"github.com/planva/capline/internal/application/analysis"
	"github.com/planva/capline/internal/infrastructure/database/postgres"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/pkg/errors"
	"github.com/planva/capline/pkg/types/common"
)

type postgresAnalysisRepo struct {
	conn *postgres.Connection
	log  logging.Logger
}

// NewPostgresAnalysisRepo builds the investment analysis repository.
func NewPostgresAnalysisRepo(conn *postgres.Connection, log logging.Logger) analysis.Repository {
	return &postgresAnalysisRepo{conn: conn, log: log}
}

func (r *postgresAnalysisRepo) executor() queryExecutor {
	return r.conn.DB()
}

func (r *postgresAnalysisRepo) Insert(ctx context.Context, rec *analysis.Record) error {
	input, err := json.Marshal(rec.Input)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal analysis input")
	}
	result, err := json.Marshal(rec.Result)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal analysis result")
	}

	var projectID interface{}
	if !rec.ProjectID.IsZero() {
		projectID = rec.ProjectID.String()
	}

	const query = `
		INSERT INTO investment_analyses (id, project_id, input, result, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = r.executor().ExecContext(ctx, query,
		rec.ID.String(), projectID, input, result, rec.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert investment analysis")
	}
	return nil
}

func (r *postgresAnalysisRepo) ListByProject(ctx context.Context, projectID common.ID) ([]analysis.Record, error) {
	query, args, err := psql.
		Select("id", "project_id", "input", "result", "created_at").
		From("investment_analyses").
		Where("project_id = ?", projectID.String()).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to build analysis query")
	}

	rows, err := r.executor().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list investment analyses")
	}
	defer rows.Close()

	var out []analysis.Record
	for rows.Next() {
		var (
			rec    analysis.Record
			id     string
			projID string
			input  []byte
			result []byte
		)
		if err := rows.Scan(&id, &projID, &input, &result, &rec.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan analysis row")
		}
		rec.ID = common.ID(id)
		rec.ProjectID = common.ID(projID)
		if err := json.Unmarshal(input, &rec.Input); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal analysis input")
		}
		if err := json.Unmarshal(result, &rec.Result); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal analysis result")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate analysis rows")
	}
	return out, nil
}
