package investment

import "math"

// Newton-Raphson tunables for the IRR root finder.  The iteration count is a
// hard bound: the solver must terminate regardless of input.
const (
	irrInitialGuess  = 0.10
	irrMaxIterations = 100
	irrTolerance     = 1e-4
)

// npvAt evaluates the NPV function at a fractional rate r for the given
// initial outflow and annual inflows.  Flows are discounted from year 1.
func npvAt(initialInvestment float64, flows []float64, r float64) float64 {
	npv := -initialInvestment
	for t, cf := range flows {
		npv += cf / math.Pow(1+r, float64(t+1))
	}
	return npv
}

// npvDerivativeAt evaluates d(NPV)/dr at a fractional rate r.
func npvDerivativeAt(flows []float64, r float64) float64 {
	var d float64
	for t, cf := range flows {
		n := float64(t + 1)
		d -= n * cf / math.Pow(1+r, n+1)
	}
	return d
}

// solveIRR finds the internal rate of return as a fraction via bounded
// Newton-Raphson iteration on the NPV function.  It returns nil when the
// solver does not converge within the iteration budget, when the derivative
// hits exactly zero, or when the iterate degenerates to NaN/Inf — a missing
// IRR is a valid financial outcome, not a failure.
func solveIRR(initialInvestment float64, flows []float64) *float64 {
	if len(flows) == 0 {
		return nil
	}

	r := irrInitialGuess
	for i := 0; i < irrMaxIterations; i++ {
		npv := npvAt(initialInvestment, flows, r)
		if math.IsNaN(npv) || math.IsInf(npv, 0) {
			return nil
		}
		if math.Abs(npv) < irrTolerance {
			if math.IsNaN(r) || math.IsInf(r, 0) {
				return nil
			}
			return &r
		}

		d := npvDerivativeAt(flows, r)
		if d == 0 {
			return nil
		}

		r -= npv / d
		if math.IsNaN(r) || math.IsInf(r, 0) || r <= -1 {
			// A rate at or below -100% has no financial meaning and the
			// discount factors blow up past it.
			return nil
		}
	}
	return nil
}
