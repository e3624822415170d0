package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planva/capline/internal/application/analysis"
	"github.com/planva/capline/internal/application/forecasting"
	"github.com/planva/capline/internal/application/planning"
	"github.com/planva/capline/internal/domain/criteria"
	"github.com/planva/capline/internal/domain/forecast"
	"github.com/planva/capline/internal/domain/rating"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/pkg/errors"
	"github.com/planva/capline/pkg/types/common"
)

// In-memory doubles.  Handlers go through the real application services;
// only the persistence edges are faked.

type memCriteriaRepo struct{ active []criteria.Criterion }

func (m *memCriteriaRepo) ListActive(context.Context) ([]criteria.Criterion, error) {
	return m.active, nil
}
func (m *memCriteriaRepo) GetByID(_ context.Context, id common.ID) (*criteria.Criterion, error) {
	for i := range m.active {
		if m.active[i].ID == id {
			return &m.active[i], nil
		}
	}
	return nil, errors.NotFound("criterion not found")
}
func (m *memCriteriaRepo) UpdateWeights(_ context.Context, items []criteria.Criterion) error {
	m.active = items
	return nil
}

type memScoreRepo struct{ rows map[common.ID][]criteria.CriterionScore }

func (m *memScoreRepo) ListByProject(_ context.Context, projectID common.ID) ([]criteria.CriterionScore, error) {
	return m.rows[projectID], nil
}
func (m *memScoreRepo) Upsert(context.Context, *criteria.CriterionScore) error { return nil }

type memProjectRepo struct{ projects []criteria.Project }

func (m *memProjectRepo) GetByID(_ context.Context, id common.ID) (*criteria.Project, error) {
	for i := range m.projects {
		if m.projects[i].ID == id {
			return &m.projects[i], nil
		}
	}
	return nil, errors.New(errors.ErrCodeProjectNotFound, "project not found")
}
func (m *memProjectRepo) ListScoreable(context.Context) ([]criteria.Project, error) {
	return m.projects, nil
}

type memResultStore struct{ rows []planning.RankedProject }

func (m *memResultStore) Upsert(_ context.Context, p *planning.RankedProject) error {
	m.rows = append(m.rows, *p)
	return nil
}
func (m *memResultStore) ListLatest(context.Context) ([]planning.RankedProject, error) {
	return m.rows, nil
}

type memRankCache struct{ current []planning.RankedProject }

func (m *memRankCache) WriteEpoch(_ context.Context, _ common.ID, projects []planning.RankedProject) error {
	m.current = projects
	return nil
}
func (m *memRankCache) ReadCurrent(context.Context) ([]planning.RankedProject, error) {
	if m.current == nil {
		return nil, errors.New(errors.ErrCodeCacheEpochMissing, "no rank epoch published")
	}
	return m.current, nil
}

type memSnapshotRepo struct{ snaps []forecast.Snapshot }

func (m *memSnapshotRepo) Insert(_ context.Context, s *forecast.Snapshot) error {
	m.snaps = append(m.snaps, *s)
	return nil
}
func (m *memSnapshotRepo) ListWindow(context.Context, int) ([]forecast.Snapshot, error) {
	return m.snaps, nil
}

type memForecastRepo struct{ points []forecast.Point }

func (m *memForecastRepo) AppendRun(_ context.Context, _ common.ID, points []forecast.Point) error {
	m.points = append(m.points, points...)
	return nil
}
func (m *memForecastRepo) ListByRun(context.Context, common.ID) ([]forecast.Point, error) {
	return m.points, nil
}
func (m *memForecastRepo) ListRecent(context.Context, int) ([]forecast.Point, error) {
	return m.points, nil
}

func scoringFixture() (*planning.Service, common.ID) {
	urgency := criteria.Criterion{ID: common.NewID(), Name: "Urgency", Weight: 50, IsActive: true}
	condition := criteria.Criterion{ID: common.NewID(), Name: "Condition", Weight: 50, IsActive: true}
	projectID := common.NewID()

	svc := planning.NewService(
		&memCriteriaRepo{active: []criteria.Criterion{urgency, condition}},
		&memScoreRepo{rows: map[common.ID][]criteria.CriterionScore{
			projectID: {
				{ProjectID: projectID, CriterionID: urgency.ID, Score: 8},
				{ProjectID: projectID, CriterionID: condition.ID, Score: 6},
			},
		}},
		&memProjectRepo{projects: []criteria.Project{{ID: projectID, Name: "Roof"}}},
		&memResultStore{},
		&memRankCache{},
		nil,
		logging.NewNopLogger(),
		nil,
	)
	return svc, projectID
}

func newScoringMux(svc *planning.Service) *http.ServeMux {
	mux := http.NewServeMux()
	NewScoringHandler(svc, logging.NewNopLogger()).RegisterRoutes(mux)
	return mux
}

func TestGetProjectScore_ReturnsComposite(t *testing.T) {
	svc, projectID := scoringFixture()
	mux := newScoringMux(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/"+projectID.String()+"/score", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.InDelta(t, 7.0, body["composite_score"], 1e-9)
}

func TestRecalculateThenGetRanked(t *testing.T) {
	svc, _ := scoringFixture()
	mux := newScoringMux(svc)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/scores/recalculate", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var summary planning.Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 0, summary.Failed)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/projects/ranked", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var ranked []planning.RankedProject
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ranked))
	require.Len(t, ranked, 1)
	assert.Equal(t, 1, ranked[0].Rank)
}

func TestGetRanked_ColdCacheFallsBackToStore(t *testing.T) {
	svc, _ := scoringFixture()
	mux := newScoringMux(svc)

	// No recalculation yet: cache miss, store empty.
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/projects/ranked", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestCreateAnalysis_ReturnsRecommendation(t *testing.T) {
	svc := analysis.NewService(nil, logging.NewNopLogger(), nil)
	mux := http.NewServeMux()
	NewInvestmentHandler(svc, logging.NewNopLogger()).RegisterRoutes(mux)

	body, _ := json.Marshal(analysis.CreateInput{
		InitialInvestment:   100_000,
		AnnualEnergySavings: 25_000,
		DiscountRate:        5,
		HorizonYears:        10,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)

	var rec analysis.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, "proceed", string(rec.Result.Recommendation))
	assert.Greater(t, rec.Result.NPV, 0.0)
}

func TestCreateAnalysis_BadBody(t *testing.T) {
	svc := analysis.NewService(nil, logging.NewNopLogger(), nil)
	mux := http.NewServeMux()
	NewInvestmentHandler(svc, logging.NewNopLogger()).RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", bytes.NewReader([]byte("{")))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGenerateForecast_AllScenarios(t *testing.T) {
	oldest := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	snaps := &memSnapshotRepo{snaps: []forecast.Snapshot{
		{SnapshotDate: oldest, PortfolioFCI: 10, TotalRepairCost: 400_000},
		{SnapshotDate: oldest.AddDate(2, 0, 0), PortfolioFCI: 12, TotalRepairCost: 480_000},
	}}
	svc := forecasting.NewService(snaps, &memForecastRepo{}, nil, logging.NewNopLogger(), nil, forecasting.Options{})

	mux := http.NewServeMux()
	NewForecastHandler(svc, logging.NewNopLogger()).RegisterRoutes(mux)

	body, _ := json.Marshal(GenerateRequest{ForecastYears: 5, AllScenarios: true})
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/forecasts", bytes.NewReader(body)))

	require.Equal(t, http.StatusCreated, rr.Code)

	var runs []forecasting.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
	assert.Len(t, runs, 3)
}

func TestGenerateForecast_InsufficientHistoryIsUnprocessable(t *testing.T) {
	svc := forecasting.NewService(&memSnapshotRepo{}, &memForecastRepo{}, nil, logging.NewNopLogger(), nil, forecasting.Options{})

	mux := http.NewServeMux()
	NewForecastHandler(svc, logging.NewNopLogger()).RegisterRoutes(mux)

	body, _ := json.Marshal(GenerateRequest{ForecastYears: 5, Scenario: "most_likely"})
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/forecasts", bytes.NewReader(body)))

	require.Equal(t, errors.ErrCodeInsufficientHistory.HTTPStatus(), rr.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, string(errors.ErrCodeInsufficientHistory), resp.Code)
}

func TestClassifyRating_DefaultsToPercentScale(t *testing.T) {
	mux := http.NewServeMux()
	NewRatingHandler().RegisterRoutes(mux)

	body, _ := json.Marshal(ClassifyRequest{Score: 85})
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/ratings/classify", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)

	var res rating.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, rating.GradeB, res.LetterGrade)
	assert.Equal(t, rating.ZoneGreen, res.Zone)
}

func TestClassifyRating_CustomThresholdTables(t *testing.T) {
	mux := http.NewServeMux()
	NewRatingHandler().RegisterRoutes(mux)

	// A stricter grade table; the zone table stays the percent built-in.
	body, _ := json.Marshal(ClassifyRequest{
		Score: 85,
		GradeBands: []rating.GradeBand{
			{Min: 95, Max: 100, Grade: rating.GradeA},
			{Min: 0, Max: 95, Grade: rating.GradeF},
		},
	})
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/ratings/classify", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)

	var res rating.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, rating.GradeF, res.LetterGrade)
	assert.Equal(t, rating.ZoneGreen, res.Zone)
}

type fakeChecker struct {
	name string
	err  error
}

func (c fakeChecker) Name() string                { return c.name }
func (c fakeChecker) Check(context.Context) error { return c.err }

func TestReadiness_FailingDependencyIs503(t *testing.T) {
	mux := http.NewServeMux()
	NewHealthHandler("test",
		fakeChecker{name: "postgres"},
		fakeChecker{name: "redis", err: errors.New(errors.ErrCodeCacheError, "down")},
	).RegisterRoutes(mux)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Components["redis"].Status)
	assert.Equal(t, "healthy", resp.Components["postgres"].Status)
}

func TestLiveness_AlwaysOK(t *testing.T) {
	mux := http.NewServeMux()
	NewHealthHandler("test").RegisterRoutes(mux)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}
