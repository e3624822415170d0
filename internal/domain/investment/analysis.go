// Package investment implements single-investment financial analysis: NPV,
// IRR, payback period, ROI, and benefit-cost ratio over an annual cash-flow
// series, plus the deterministic recommendation classification.
//
// All intermediate values stay at full float64 precision; rounding is a
// presentation concern and never happens inside the calculation chain.
package investment

import (
	"math"
	"time"

	"github.com/planva/capline/pkg/errors"
)

// Recommendation is the deterministic verdict derived from the computed
// metrics.
type Recommendation string

const (
	RecommendProceed        Recommendation = "proceed"
	RecommendRequiresReview Recommendation = "requires_review"
	RecommendDefer          Recommendation = "defer"
	RecommendReject         Recommendation = "reject"
)

// Recommendation thresholds, evaluated in priority order by classify.
const (
	proceedMinROI     = 15.0
	proceedMaxPayback = 5.0
	reviewMinROI      = 5.0
)

// Params is the input to a single analysis call.
type Params struct {
	// InitialInvestment is the year-0 outflow.
	InitialInvestment float64

	// AnnualNetCashFlows holds one net inflow per year of the analysis
	// horizon, already netted across savings and cost components.
	AnnualNetCashFlows []float64

	// DiscountRate is expressed as a percentage (5 means 5%).
	DiscountRate float64
}

// Result is the immutable outcome of one analysis call.  A new call
// produces a new, independent Result; there are no merge semantics.
//
// IRR and PaybackYears are nil when undefined: IRR when the root finder
// does not converge (or is not attempted), payback when annual cash flow
// is non-positive and the investment never pays back.
type Result struct {
	NPV              float64        `json:"npv"`
	IRR              *float64       `json:"irr"`
	ROI              float64        `json:"roi"`
	PaybackYears     *float64       `json:"payback_period"`
	BenefitCostRatio float64        `json:"benefit_cost_ratio"`
	Recommendation   Recommendation `json:"recommendation"`
	CalculatedAt     time.Time      `json:"calculated_at"`
}

// NPV computes the net present value of the series at the given percentage
// discount rate: sum of cashFlow[t]/(1+rate/100)^(t+1) minus the initial
// investment.
func NPV(initialInvestment float64, flows []float64, discountRatePercent float64) float64 {
	return npvAt(initialInvestment, flows, discountRatePercent/100)
}

// IRR returns the internal rate of return as a percentage, or nil when no
// IRR exists.  It is only attempted when the average annual net cash flow
// is positive; a series that never produces net inflows has no meaningful
// rate of return.
func IRR(initialInvestment float64, flows []float64) *float64 {
	if averageFlow(flows) <= 0 {
		return nil
	}
	r := solveIRR(initialInvestment, flows)
	if r == nil {
		return nil
	}
	pct := *r * 100
	return &pct
}

// Payback returns the simple payback period in years, or nil when the
// annual cash flow is non-positive and the investment never pays back.
// "No payback" is a distinct state, not zero and not a sentinel.
func Payback(initialInvestment float64, flows []float64) *float64 {
	annual := averageFlow(flows)
	if annual <= 0 {
		return nil
	}
	p := initialInvestment / annual
	return &p
}

// ROI computes return on investment as a percentage of total undiscounted
// benefit over total cost.  A zero total cost yields 0, never NaN or Inf.
func ROI(totalBenefit, totalCost float64) float64 {
	if totalCost == 0 {
		return 0
	}
	return (totalBenefit - totalCost) / totalCost * 100
}

// Analyze runs the full analysis over one cash-flow series.
func Analyze(p Params) (*Result, error) {
	if len(p.AnnualNetCashFlows) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyCashFlow, "cash-flow series must not be empty")
	}
	if p.InitialInvestment < 0 {
		return nil, errors.InvalidParam("initial investment must not be negative")
	}

	var totalBenefit float64
	for _, cf := range p.AnnualNetCashFlows {
		totalBenefit += cf
	}

	npv := NPV(p.InitialInvestment, p.AnnualNetCashFlows, p.DiscountRate)
	irr := IRR(p.InitialInvestment, p.AnnualNetCashFlows)
	payback := Payback(p.InitialInvestment, p.AnnualNetCashFlows)
	roi := ROI(totalBenefit, p.InitialInvestment)

	// Benefit-cost ratio compares the present value of the inflows to the
	// initial outflow; a zero investment yields 0 by the division guard.
	var bcr float64
	if p.InitialInvestment != 0 {
		bcr = (npv + p.InitialInvestment) / p.InitialInvestment
	}

	return &Result{
		NPV:              npv,
		IRR:              irr,
		ROI:              roi,
		PaybackYears:     payback,
		BenefitCostRatio: bcr,
		Recommendation:   classify(npv, roi, payback),
		CalculatedAt:     time.Now().UTC(),
	}, nil
}

// classify applies the recommendation thresholds in priority order.
func classify(npv, roi float64, payback *float64) Recommendation {
	pb := math.Inf(1)
	if payback != nil {
		pb = *payback
	}

	switch {
	case npv > 0 && roi > proceedMinROI && pb < proceedMaxPayback:
		return RecommendProceed
	case npv > 0 && roi > reviewMinROI:
		return RecommendRequiresReview
	case npv < 0 || roi < 0:
		return RecommendReject
	default:
		return RecommendDefer
	}
}

// averageFlow is the mean annual net cash flow of the series.  The engine
// treats it as the scalar "annual cash flow" for payback and for gating the
// IRR attempt; for a uniform series it equals every element.
func averageFlow(flows []float64) float64 {
	if len(flows) == 0 {
		return 0
	}
	var sum float64
	for _, cf := range flows {
		sum += cf
	}
	return sum / float64(len(flows))
}
