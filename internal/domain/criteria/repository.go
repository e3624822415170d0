package criteria

import (
	"context"

	"github.com/planva/capline/pkg/types/common"
)

// Repository is the persistence contract for the criteria model.
type Repository interface {
	// ListActive returns all active criteria ordered by display order.
	ListActive(ctx context.Context) ([]Criterion, error)

	// GetByID returns a single criterion or a not-found error.
	GetByID(ctx context.Context, id common.ID) (*Criterion, error)

	// UpdateWeights persists the weights of the given criteria in one
	// transaction so a normalization pass is all-or-nothing.
	UpdateWeights(ctx context.Context, criteria []Criterion) error
}

// ScoreRepository is the persistence contract for per-project raw scores.
type ScoreRepository interface {
	// ListByProject returns every criterion score recorded for a project.
	// An empty slice is a valid result, not an error.
	ListByProject(ctx context.Context, projectID common.ID) ([]CriterionScore, error)

	// Upsert records or replaces one (project, criterion) score row.
	Upsert(ctx context.Context, score *CriterionScore) error
}

// ProjectRepository exposes the project universe to the ranking coordinator.
type ProjectRepository interface {
	// GetByID returns the minimal project record.
	GetByID(ctx context.Context, id common.ID) (*Project, error)

	// ListScoreable returns every project holding at least one criterion
	// score row.  Projects with no scores are excluded from ranking
	// entirely rather than ranked at zero.
	ListScoreable(ctx context.Context) ([]Project, error)
}
