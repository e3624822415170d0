// Package planning implements the ranking and cache coordinator: it drives
// the composite scoring engine across the project universe, assigns ranks,
// and keeps the denormalized rank cache consistent between recalculation
// epochs.
package planning

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/planva/capline/internal/domain/criteria"
	"github.com/planva/capline/internal/domain/scoring"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/internal/infrastructure/monitoring/prometheus"
	"github.com/planva/capline/pkg/errors"
	"github.com/planva/capline/pkg/types/common"
)

// costEffectivenessUnit expresses cost effectiveness as composite score per
// million of estimated total cost.
const costEffectivenessUnit = 1_000_000.0

// RankedProject is one row of the denormalized, epoch-stamped rank cache.
type RankedProject struct {
	ProjectID      common.ID `json:"project_id"`
	ProjectName    string    `json:"project_name"`
	CompositeScore float64   `json:"composite_score"`
	Rank           int       `json:"rank"`
	Epoch          common.ID `json:"epoch"`

	// CriterionScores carries the raw per-criterion scores keyed by
	// criterion name, matching the flattened shape reporting consumers
	// expect.
	CriterionScores map[string]float64 `json:"criterion_scores"`

	TotalCost              *float64  `json:"total_cost,omitempty"`
	CostEffectivenessScore *float64  `json:"cost_effectiveness_score,omitempty"`
	CalculatedAt           time.Time `json:"calculated_at"`
}

// ResultStore is the durable home of composite score results.  The
// coordinator exclusively owns these rows; each Upsert is independently
// atomic, and the store as a whole becomes consistent only once a full
// pass completes.
type ResultStore interface {
	// Upsert replaces or inserts the cached result for one project.
	Upsert(ctx context.Context, p *RankedProject) error

	// ListLatest returns the rows of the newest complete epoch ordered by
	// rank ascending.
	ListLatest(ctx context.Context) ([]RankedProject, error)
}

// RankCache is the fast read path for ranked lists.  WriteEpoch must only
// publish the epoch pointer after every row of the epoch is written, so
// readers never observe a mix of old and new epochs in one list.
type RankCache interface {
	WriteEpoch(ctx context.Context, epoch common.ID, projects []RankedProject) error

	// ReadCurrent returns the rows of the current complete epoch, rank
	// ascending, or an ErrCodeCacheEpochMissing error when no epoch has
	// been published yet.
	ReadCurrent(ctx context.Context) ([]RankedProject, error)
}

// EventPublisher announces completed recalculation passes to downstream
// consumers.
type EventPublisher interface {
	PublishRecalculated(ctx context.Context, ev RecalculationEvent) error
}

// RecalculationEvent describes one completed pass.
type RecalculationEvent struct {
	Epoch      common.ID `json:"epoch"`
	Processed  int       `json:"processed"`
	Failed     int       `json:"failed"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Summary reports the outcome of one recalculation pass: how many projects
// were scored, how many were skipped due to per-project failures, and the
// resulting ranked list.
type Summary struct {
	Epoch     common.ID       `json:"epoch"`
	Processed int             `json:"processed"`
	Failed    int             `json:"failed"`
	Ranked    []RankedProject `json:"ranked"`
}

// Service coordinates scoring, ranking, caching, and weight normalization.
type Service struct {
	criteriaRepo criteria.Repository
	scoreRepo    criteria.ScoreRepository
	projectRepo  criteria.ProjectRepository
	results      ResultStore
	cache        RankCache
	publisher    EventPublisher
	logger       logging.Logger
	metrics      *prometheus.Metrics
	group        singleflight.Group
}

// NewService wires the coordinator.  publisher may be nil when no event bus
// is configured; everything else is required.
func NewService(
	criteriaRepo criteria.Repository,
	scoreRepo criteria.ScoreRepository,
	projectRepo criteria.ProjectRepository,
	results ResultStore,
	cache RankCache,
	publisher EventPublisher,
	logger logging.Logger,
	metrics *prometheus.Metrics,
) *Service {
	return &Service{
		criteriaRepo: criteriaRepo,
		scoreRepo:    scoreRepo,
		projectRepo:  projectRepo,
		results:      results,
		cache:        cache,
		publisher:    publisher,
		logger:       logger.Named("planning"),
		metrics:      metrics,
	}
}

// CalculateCompositeScore scores a single project against the active
// criteria on demand.  It never touches the rank cache; ad-hoc scoring and
// the cached ranking are deliberately separate so cached ranks stay stable
// between recalculation passes.
func (s *Service) CalculateCompositeScore(ctx context.Context, projectID common.ID) (*scoring.CompositeResult, error) {
	active, err := s.criteriaRepo.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load active criteria")
	}
	if len(active) == 0 {
		return nil, errors.New(errors.ErrCodeNoActiveCriteria, "no active criteria defined")
	}

	rows, err := s.scoreRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load criterion scores").
			WithDetail("project_id=" + projectID.String())
	}

	return scoring.Compute(projectID, active, scoring.ScoresByCriterion(rows)), nil
}

// RecalculateAll runs one full recalculation epoch: it scores every
// scoreable project, ranks them, and replaces the cache.
//
// All ranks are computed in memory before any write, so a reader can never
// observe a half-ranked epoch.  Per-project failures (scoring or upsert)
// are logged and skipped rather than aborting the pass; the summary reports
// processed versus failed counts.  A cancelled pass leaves already-upserted
// rows in place; the epoch pointer is only published on completion.
func (s *Service) RecalculateAll(ctx context.Context) (*Summary, error) {
	started := time.Now()

	active, err := s.criteriaRepo.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load active criteria")
	}
	if len(active) == 0 {
		return nil, errors.New(errors.ErrCodeNoActiveCriteria, "no active criteria defined")
	}

	projects, err := s.projectRepo.ListScoreable(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list scoreable projects")
	}

	epoch := common.NewID()
	summary := &Summary{Epoch: epoch}

	// Phase 1: score everything in memory.
	ranked := make([]RankedProject, 0, len(projects))
	for _, p := range projects {
		rows, err := s.scoreRepo.ListByProject(ctx, p.ID)
		if err != nil {
			s.logger.Error("skipping project: failed to load scores",
				logging.String("project_id", p.ID.String()), logging.Err(err))
			summary.Failed++
			continue
		}

		res := scoring.Compute(p.ID, active, scoring.ScoresByCriterion(rows))
		if res == nil {
			// Unreachable while active is non-empty; guarded anyway.
			summary.Failed++
			continue
		}
		ranked = append(ranked, s.toRankedProject(p, res, epoch))
	}

	// Phase 2: total order by composite descending.  Ties break by project
	// ID ascending so the order is deterministic across passes.
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].CompositeScore != ranked[j].CompositeScore {
			return ranked[i].CompositeScore > ranked[j].CompositeScore
		}
		return ranked[i].ProjectID < ranked[j].ProjectID
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	// Phase 3: upsert the durable rows.  Each upsert is independently
	// atomic; a failure leaves that project's row on its previous epoch.
	persisted := make([]RankedProject, 0, len(ranked))
	for i := range ranked {
		if err := s.results.Upsert(ctx, &ranked[i]); err != nil {
			s.logger.Error("failed to upsert composite score result",
				logging.String("project_id", ranked[i].ProjectID.String()),
				logging.Err(err))
			summary.Failed++
			continue
		}
		persisted = append(persisted, ranked[i])
		summary.Processed++
	}
	summary.Ranked = persisted

	// Phase 4: publish the epoch to the fast read path.  Cache trouble is
	// not fatal: reads fall back to the durable store.
	if err := s.cache.WriteEpoch(ctx, epoch, persisted); err != nil {
		s.logger.Warn("failed to publish epoch to rank cache", logging.Err(err))
	}

	if s.publisher != nil {
		ev := RecalculationEvent{
			Epoch:      epoch,
			Processed:  summary.Processed,
			Failed:     summary.Failed,
			OccurredAt: time.Now().UTC(),
		}
		if err := s.publisher.PublishRecalculated(ctx, ev); err != nil {
			s.logger.Warn("failed to publish recalculation event", logging.Err(err))
		}
	}

	if s.metrics != nil {
		s.metrics.RecalcPassesTotal.Inc()
		s.metrics.RecalcDuration.Observe(time.Since(started).Seconds())
		s.metrics.ProjectsScoredTotal.Add(float64(summary.Processed))
		s.metrics.ProjectsFailedTotal.Add(float64(summary.Failed))
	}

	s.logger.Info("recalculation pass complete",
		logging.String("epoch", epoch.String()),
		logging.Int("processed", summary.Processed),
		logging.Int("failed", summary.Failed),
		logging.Duration("elapsed", time.Since(started)))

	return summary, nil
}

// GetRankedProjects serves the ranked list exclusively from the cache; it
// never recomputes scores, so every consumer sees the same ranking until
// the next recalculation pass.  Concurrent cache misses collapse into one
// store read via singleflight.
func (s *Service) GetRankedProjects(ctx context.Context) ([]RankedProject, error) {
	v, err, _ := s.group.Do("ranked", func() (interface{}, error) {
		ranked, err := s.cache.ReadCurrent(ctx)
		if err == nil {
			if s.metrics != nil {
				s.metrics.RankCacheHitsTotal.Inc()
			}
			return ranked, nil
		}
		if !errors.IsCode(err, errors.ErrCodeCacheEpochMissing) {
			s.logger.Warn("rank cache read failed, falling back to store", logging.Err(err))
		}
		if s.metrics != nil {
			s.metrics.RankCacheMissTotal.Inc()
		}

		ranked, err = s.results.ListLatest(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load ranked projects")
		}

		// Re-warm the cache so the next read hits.
		if len(ranked) > 0 {
			if werr := s.cache.WriteEpoch(ctx, ranked[0].Epoch, ranked); werr != nil {
				s.logger.Warn("failed to re-warm rank cache", logging.Err(werr))
			}
		}
		return ranked, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]RankedProject), nil
}

// NormalizeWeights rescales the active criteria weights to sum to exactly
// 100 and persists the result in one transaction.
func (s *Service) NormalizeWeights(ctx context.Context) ([]criteria.Criterion, error) {
	active, err := s.criteriaRepo.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load active criteria")
	}

	normalized, err := criteria.NormalizeWeights(active)
	if err != nil {
		return nil, err
	}

	if err := s.criteriaRepo.UpdateWeights(ctx, normalized); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to persist normalized weights")
	}

	s.logger.Info("criteria weights normalized", logging.Int("criteria", len(normalized)))
	return normalized, nil
}

// toRankedProject flattens a composite result into a cache row.
func (s *Service) toRankedProject(p criteria.Project, res *scoring.CompositeResult, epoch common.ID) RankedProject {
	byName := make(map[string]float64, len(res.Breakdown))
	for _, b := range res.Breakdown {
		byName[b.CriterionName] = b.Score
	}

	rp := RankedProject{
		ProjectID:       p.ID,
		ProjectName:     p.Name,
		CompositeScore:  res.CompositeScore,
		Epoch:           epoch,
		CriterionScores: byName,
		TotalCost:       p.TotalCost,
		CalculatedAt:    res.CalculatedAt,
	}

	if p.TotalCost != nil && *p.TotalCost > 0 {
		ce := res.CompositeScore / (*p.TotalCost / costEffectivenessUnit)
		rp.CostEffectivenessScore = &ce
	}
	return rp
}
