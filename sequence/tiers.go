package sequence

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/anggasct/greenwave"
)

// Tier applies Step to every distance strictly greater than Above
type Tier struct {
	Above float64
	Step  float64
}

// StepTiers is a deceleration profile: larger steps far away, smaller
// steps close in. The first matching tier wins once sorted.
type StepTiers []Tier

// DefaultStepTiers returns 8 above 80, 4 above 40 and 2 below
func DefaultStepTiers() StepTiers {
	return StepTiers{
		{Above: 80, Step: 8},
		{Above: 40, Step: 4},
		{Above: 0, Step: 2},
	}
}

// Sorted returns a copy ordered by descending Above
func (s StepTiers) Sorted() StepTiers {
	sorted := slices.Clone(s)
	slices.SortStableFunc(sorted, func(a, b Tier) int {
		return cmp.Compare(b.Above, a.Above)
	})
	return sorted
}

// StepFor returns the step for distance d, or 0 when no tier matches.
// s must be sorted.
func (s StepTiers) StepFor(d float64) float64 {
	for _, tier := range s {
		if d > tier.Above {
			return tier.Step
		}
	}
	return 0
}

// Validate checks that every step is positive and that some tier covers
// all distances above floor
func (s StepTiers) Validate(floor float64) error {
	if len(s) == 0 {
		return greenwave.NewConfigurationError("sequence", "no step tiers")
	}
	for _, tier := range s {
		if !finite(tier.Above) || !finite(tier.Step) {
			return greenwave.NewConfigurationError("sequence",
				fmt.Sprintf("tier above %g with step %g is not finite", tier.Above, tier.Step))
		}
		if tier.Step <= 0 {
			return greenwave.NewConfigurationError("sequence",
				fmt.Sprintf("tier above %g has non-positive step %g", tier.Above, tier.Step))
		}
	}
	covered := lo.SomeBy(s, func(t Tier) bool { return t.Above <= floor })
	if !covered {
		return greenwave.NewConfigurationError("sequence",
			fmt.Sprintf("no catch-all tier: distances just above floor %g have no step", floor))
	}
	return nil
}
