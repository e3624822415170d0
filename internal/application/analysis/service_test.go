package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/planva/capline/internal/domain/investment"
	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
	"github.com/planva/capline/pkg/errors"
	"github.com/planva/capline/pkg/types/common"
)

type mockRepo struct{ mock.Mock }

func (m *mockRepo) Insert(ctx context.Context, rec *Record) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockRepo) ListByProject(ctx context.Context, projectID common.ID) ([]Record, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Record), args.Error(1)
}

func retrofit() CreateInput {
	return CreateInput{
		ProjectID:                "p-boiler",
		InitialInvestment:        100000,
		AnnualEnergySavings:      15000,
		AnnualMaintenanceSavings: 6000,
		AnnualCostAvoidance:      4000,
		DiscountRate:             5,
		HorizonYears:             10,
	}
}

func TestBuildCashFlows_UniformWithoutInflation(t *testing.T) {
	flows := BuildCashFlows(retrofit())
	require.Len(t, flows, 10)
	for _, cf := range flows {
		assert.InDelta(t, 25000, cf, 1e-9)
	}
}

func TestBuildCashFlows_EscalatesFromYearTwo(t *testing.T) {
	in := retrofit()
	in.InflationRate = 0.03
	flows := BuildCashFlows(in)
	assert.InDelta(t, 25000, flows[0], 1e-9)
	assert.InDelta(t, 25000*1.03, flows[1], 1e-9)
	assert.InDelta(t, 25000*1.03*1.03, flows[2], 1e-9)
}

func TestBuildCashFlows_OperatingCostNetted(t *testing.T) {
	in := retrofit()
	in.AnnualOperatingCost = 30000
	flows := BuildCashFlows(in)
	for _, cf := range flows {
		assert.InDelta(t, -5000, cf, 1e-9)
	}
}

func TestCreate_PersistsAndClassifies(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, logging.NewNopLogger(), nil)
	ctx := context.Background()

	repo.On("Insert", ctx, mock.Anything).Return(nil)

	rec, err := svc.Create(ctx, retrofit())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.NotEmpty(t, rec.ID)

	// $25k/year on $100k at 5% over 10 years: clean "proceed".
	require.NotNil(t, rec.Result.PaybackYears)
	assert.InDelta(t, 4.0, *rec.Result.PaybackYears, 1e-9)
	assert.Greater(t, rec.Result.NPV, 0.0)
	assert.Equal(t, investment.RecommendProceed, rec.Result.Recommendation)

	repo.AssertCalled(t, "Insert", ctx, mock.Anything)
}

func TestCreate_RejectsBadHorizon(t *testing.T) {
	svc := NewService(nil, logging.NewNopLogger(), nil)
	in := retrofit()
	in.HorizonYears = 0
	_, err := svc.Create(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidHorizon))
}

func TestCreate_NilRepoSkipsPersistence(t *testing.T) {
	svc := NewService(nil, logging.NewNopLogger(), nil)
	rec, err := svc.Create(context.Background(), retrofit())
	require.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestCreate_RepoFailureSurfaces(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, logging.NewNopLogger(), nil)
	ctx := context.Background()

	repo.On("Insert", ctx, mock.Anything).
		Return(errors.New(errors.ErrCodeDatabaseError, "insert failed"))

	_, err := svc.Create(ctx, retrofit())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func TestListByProject(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, logging.NewNopLogger(), nil)
	ctx := context.Background()

	repo.On("ListByProject", ctx, common.ID("p-boiler")).Return([]Record{{ID: "a1"}}, nil)

	recs, err := svc.ListByProject(ctx, "p-boiler")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
