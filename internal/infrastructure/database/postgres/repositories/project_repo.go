package repositories

import (
	"context"
	"database/sql"

	"github.com/planva/capline/internal/domain/criteria"
	"github.com/planva/capline/internal/infrastructure/database/postgres"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/pkg/errors"
	"github.com/planva/capline/pkg/types/common"
)

type postgresProjectRepo struct {
	conn *postgres.Connection
	log  logging.Logger
}

// NewPostgresProjectRepo builds the project repository.
func NewPostgresProjectRepo(conn *postgres.Connection, log logging.Logger) criteria.ProjectRepository {
	return &postgresProjectRepo{conn: conn, log: log}
}

func (r *postgresProjectRepo) executor() queryExecutor {
	return r.conn.DB()
}

func (r *postgresProjectRepo) GetByID(ctx context.Context, id common.ID) (*criteria.Project, error) {
	const query = `SELECT id, name, total_cost, created_at FROM projects WHERE id = $1`
	p, err := scanProject(r.executor().QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeProjectNotFound, "project not found").
				WithDetail("id=" + id.String())
		}
		return nil, err
	}
	return p, nil
}

// ListScoreable returns projects holding at least one criterion score row.
// Unscored projects are excluded from ranking rather than ranked at zero.
func (r *postgresProjectRepo) ListScoreable(ctx context.Context) ([]criteria.Project, error) {
	query, args, err := psql.
		Select("p.id", "p.name", "p.total_cost", "p.created_at").
		From("projects p").
		Where("EXISTS (SELECT 1 FROM criterion_scores cs WHERE cs.project_id = p.id)").
		OrderBy("p.created_at").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to build project query")
	}

	rows, err := r.executor().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list scoreable projects")
	}
	defer rows.Close()

	var out []criteria.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate project rows")
	}
	return out, nil
}

func scanProject(s scanner) (*criteria.Project, error) {
	var (
		p         criteria.Project
		id        string
		totalCost sql.NullFloat64
	)
	err := s.Scan(&id, &p.Name, &totalCost, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan project row")
	}
	p.ID = common.ID(id)
	if totalCost.Valid {
		v := totalCost.Float64
		p.TotalCost = &v
	}
	return &p, nil
}
