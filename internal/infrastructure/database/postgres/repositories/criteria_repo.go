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

type postgresCriteriaRepo struct {
	conn *postgres.Connection
	log  logging.Logger
}

// NewPostgresCriteriaRepo builds the criteria repository.
func NewPostgresCriteriaRepo(conn *postgres.Connection, log logging.Logger) criteria.Repository {
	return &postgresCriteriaRepo{conn: conn, log: log}
}

func (r *postgresCriteriaRepo) executor() queryExecutor {
	return r.conn.DB()
}

func (r *postgresCriteriaRepo) ListActive(ctx context.Context) ([]criteria.Criterion, error) {
	query, args, err := psql.
		Select("id", "name", "category", "weight", "is_active", "display_order", "created_at", "updated_at").
		From("criteria").
		Where("is_active = TRUE").
		OrderBy("display_order", "name").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to build criteria query")
	}

	rows, err := r.executor().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list active criteria")
	}
	defer rows.Close()

	var out []criteria.Criterion
	for rows.Next() {
		c, err := scanCriterion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate criteria rows")
	}
	return out, nil
}

func (r *postgresCriteriaRepo) GetByID(ctx context.Context, id common.ID) (*criteria.Criterion, error) {
	query := `
		SELECT id, name, category, weight, is_active, display_order, created_at, updated_at
		FROM criteria WHERE id = $1
	`
	c, err := scanCriterion(r.executor().QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("criterion not found").WithDetail("id=" + id.String())
		}
		return nil, err
	}
	return c, nil
}

// UpdateWeights rewrites the weights of the given criteria in one
// transaction so a normalization pass is all-or-nothing.
func (r *postgresCriteriaRepo) UpdateWeights(ctx context.Context, items []criteria.Criterion) error {
	tx, err := r.conn.DB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin weight transaction")
	}
	defer tx.Rollback()

	const query = `UPDATE criteria SET weight = $1, updated_at = NOW() WHERE id = $2`
	for i := range items {
		res, err := tx.ExecContext(ctx, query, items[i].Weight, items[i].ID.String())
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update criterion weight")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errors.NotFound("criterion not found").WithDetail("id=" + items[i].ID.String())
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit weight transaction")
	}
	return nil
}

func scanCriterion(s scanner) (*criteria.Criterion, error) {
	var (
		c        criteria.Criterion
		id       string
		category sql.NullString
	)
	err := s.Scan(&id, &c.Name, &category, &c.Weight, &c.IsActive, &c.DisplayOrder, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan criterion row")
	}
	c.ID = common.ID(id)
	c.Category = category.String
	return &c, nil
}
