package criteria

import (
	"math"

	"github.com/planva/capline/pkg/errors"
)

// weightEpsilon is the tolerance used when checking whether weights already
// sum to WeightTotal.
const weightEpsilon = 1e-9

// SumWeights returns the sum of weights over the given criteria.
func SumWeights(criteria []Criterion) float64 {
	var sum float64
	for _, c := range criteria {
		sum += c.Weight
	}
	return sum
}

// ValidateWeights rejects negative weights before any normalization or
// scoring loop runs.
func ValidateWeights(criteria []Criterion) error {
	for _, c := range criteria {
		if c.Weight < 0 {
			return errors.New(errors.ErrCodeInvalidWeight, "criterion weight must not be negative").
				WithDetail("name=" + c.Name)
		}
	}
	return nil
}

// NormalizeWeights rescales the weights of the given criteria proportionally
// so they sum to exactly WeightTotal.  When every weight is zero the total
// is redistributed equally instead, so the composite engine's fixed divisor
// invariant still holds.  The input slice is not mutated; a rescaled copy is
// returned.
//
// Any proportional rescale of floats can drift from the target by a few ULPs
// once summed, so the residual after rescaling is folded into the last
// criterion.  That keeps the sum exact at the cost of a sub-epsilon bias on
// one weight, which is invisible on the 0-100 scale.
func NormalizeWeights(criteria []Criterion) ([]Criterion, error) {
	if len(criteria) == 0 {
		return nil, errors.New(errors.ErrCodeNoActiveCriteria, "no active criteria to normalize")
	}
	if err := ValidateWeights(criteria); err != nil {
		return nil, err
	}

	out := make([]Criterion, len(criteria))
	copy(out, criteria)

	sum := SumWeights(out)

	if sum <= weightEpsilon {
		// All-zero weights: equal redistribution.
		equal := WeightTotal / float64(len(out))
		for i := range out {
			out[i].Weight = equal
		}
	} else if math.Abs(sum-WeightTotal) > weightEpsilon {
		scale := WeightTotal / sum
		for i := range out {
			out[i].Weight *= scale
		}
	}

	// Fold rounding residue into the last element so the sum is exact.
	var partial float64
	for i := 0; i < len(out)-1; i++ {
		partial += out[i].Weight
	}
	out[len(out)-1].Weight = WeightTotal - partial

	return out, nil
}
