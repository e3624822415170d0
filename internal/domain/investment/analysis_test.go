package investment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planva/capline/pkg/errors"
)

func uniformFlows(amount float64, years int) []float64 {
	flows := make([]float64, years)
	for i := range flows {
		flows[i] = amount
	}
	return flows
}

func TestNPV_SingleFuturePaymentRoundTrip(t *testing.T) {
	// One payment C at year 1: NPV == C/(1+r) - investment, exact to 1e-9.
	investment := 1000.0
	c := 1100.0
	rate := 5.0
	got := NPV(investment, []float64{c}, rate)
	want := c/1.05 - investment
	assert.InDelta(t, want, got, 1e-9)
}

func TestNPV_ZeroRate(t *testing.T) {
	got := NPV(100, []float64{60, 60}, 0)
	assert.InDelta(t, 20, got, 1e-9)
}

func TestNPV_DiscountsFromYearOne(t *testing.T) {
	// Even the first flow is discounted one full period.
	got := NPV(0, []float64{100}, 10)
	assert.InDelta(t, 100/1.1, got, 1e-9)
}

func TestIRR_BreakEvenSeriesIsNearZero(t *testing.T) {
	// investment == sum of flows: the root of the NPV function sits at 0%.
	irr := IRR(100000, uniformFlows(10000, 10))
	require.NotNil(t, irr)
	assert.InDelta(t, 0, *irr, 1.0)
}

func TestIRR_KnownRate(t *testing.T) {
	// 1000 now, 1100 in one year: IRR is exactly 10%.
	irr := IRR(1000, []float64{1100})
	require.NotNil(t, irr)
	assert.InDelta(t, 10, *irr, 1e-2)
}

func TestIRR_NotAttemptedForNonPositiveFlows(t *testing.T) {
	assert.Nil(t, IRR(1000, uniformFlows(0, 5)))
	assert.Nil(t, IRR(1000, uniformFlows(-100, 5)))
	assert.Nil(t, IRR(1000, nil))
}

func TestSolveIRR_BoundedOnHostileInput(t *testing.T) {
	// Alternating signs can defeat Newton-Raphson; the solver must give up
	// cleanly instead of looping or returning garbage.
	flows := []float64{1e12, -1e12, 1e12, -1e12}
	r := solveIRR(1, flows)
	if r != nil {
		assert.False(t, math.IsNaN(*r))
		assert.False(t, math.IsInf(*r, 0))
	}
}

func TestPayback(t *testing.T) {
	p := Payback(100000, uniformFlows(25000, 10))
	require.NotNil(t, p)
	assert.InDelta(t, 4.0, *p, 1e-9)

	// Non-positive annual flow: no payback, represented as nil, never as 0
	// or a sentinel.
	assert.Nil(t, Payback(100000, uniformFlows(0, 10)))
	assert.Nil(t, Payback(100000, uniformFlows(-5000, 10)))
}

func TestROI(t *testing.T) {
	assert.InDelta(t, 150, ROI(250000, 100000), 1e-9)
	assert.InDelta(t, -50, ROI(50000, 100000), 1e-9)
	// Division guard: zero cost yields 0, not NaN/Inf.
	assert.Zero(t, ROI(50000, 0))
}

func TestAnalyze_EndToEndProceed(t *testing.T) {
	// $100,000 investment, $25,000/year for 10 years at 5%.
	res, err := Analyze(Params{
		InitialInvestment:  100000,
		AnnualNetCashFlows: uniformFlows(25000, 10),
		DiscountRate:       5,
	})
	require.NoError(t, err)

	require.NotNil(t, res.PaybackYears)
	assert.InDelta(t, 4.0, *res.PaybackYears, 1e-9)
	assert.Greater(t, res.NPV, 0.0)
	assert.InDelta(t, 150, res.ROI, 1e-9)
	assert.Greater(t, res.BenefitCostRatio, 1.0)
	require.NotNil(t, res.IRR)
	assert.Greater(t, *res.IRR, 0.0)
	assert.Equal(t, RecommendProceed, res.Recommendation)
}

func TestAnalyze_EmptySeriesRejected(t *testing.T) {
	_, err := Analyze(Params{InitialInvestment: 1000})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeEmptyCashFlow))
}

func TestAnalyze_NegativeInvestmentRejected(t *testing.T) {
	_, err := Analyze(Params{InitialInvestment: -1, AnnualNetCashFlows: []float64{10}})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestAnalyze_ZeroInvestmentGuardsDivisions(t *testing.T) {
	res, err := Analyze(Params{
		InitialInvestment:  0,
		AnnualNetCashFlows: uniformFlows(1000, 3),
		DiscountRate:       5,
	})
	require.NoError(t, err)
	assert.Zero(t, res.ROI)
	assert.Zero(t, res.BenefitCostRatio)
	assert.False(t, math.IsNaN(res.NPV))
}

func TestClassify_PriorityOrder(t *testing.T) {
	four := 4.0
	six := 6.0

	tests := []struct {
		name    string
		npv     float64
		roi     float64
		payback *float64
		want    Recommendation
	}{
		{"all thresholds met", 1000, 20, &four, RecommendProceed},
		{"slow payback downgrades to review", 1000, 20, &six, RecommendRequiresReview},
		{"modest roi requires review", 1000, 10, &four, RecommendRequiresReview},
		{"negative npv rejects", -1, 10, &four, RecommendReject},
		{"negative roi rejects", 1000, -1, &four, RecommendReject},
		{"marginal case defers", 0, 3, &four, RecommendDefer},
		{"no payback blocks proceed", 1000, 20, nil, RecommendRequiresReview},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.npv, tt.roi, tt.payback))
		})
	}
}

func TestAnalyze_LossMakingSeriesRejected(t *testing.T) {
	res, err := Analyze(Params{
		InitialInvestment:  100000,
		AnnualNetCashFlows: uniformFlows(-2000, 5),
		DiscountRate:       5,
	})
	require.NoError(t, err)
	assert.Nil(t, res.IRR)
	assert.Nil(t, res.PaybackYears)
	assert.Less(t, res.NPV, 0.0)
	assert.Equal(t, RecommendReject, res.Recommendation)
}
