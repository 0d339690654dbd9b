package detection

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

// DefaultConfidenceThreshold is the minimum confidence that triggers a
// give-way decision unless configured otherwise
const DefaultConfidenceThreshold = 0.75

// Classes is a normalised set of target labels
type Classes map[string]struct{}

// NewClasses trims, lowercases and deduplicates labels, dropping empties
func NewClasses(labels ...string) Classes {
	normalised := lo.FilterMap(labels, func(label string, _ int) (string, bool) {
		label = normalise(label)
		return label, label != ""
	})
	return lo.SliceToMap(normalised, func(label string) (string, struct{}) {
		return label, struct{}{}
	})
}

// ParseClasses splits a comma-separated list such as "ambulance, fire truck"
func ParseClasses(list string) Classes {
	return NewClasses(strings.Split(list, ",")...)
}

// Contains reports whether label is a target, ignoring case
func (c Classes) Contains(label string) bool {
	_, ok := c[normalise(label)]
	return ok
}

// List returns the classes in sorted order
func (c Classes) List() []string {
	keys := lo.Keys(c)
	slices.Sort(keys)
	return keys
}

func normalise(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// Evaluate reports whether any well-formed record carries a target class
// with confidence at or above threshold. Malformed records are skipped.
// It has no side effects.
func Evaluate(records []Record, classes Classes, threshold float64) bool {
	return lo.SomeBy(records, func(r Record) bool {
		return r.Validate(0) == nil && classes.Contains(r.Label) && *r.Confidence >= threshold
	})
}

// Skipped returns the validation failures of records, in order
func Skipped(records []Record) []error {
	var errs []error
	for i, r := range records {
		if err := r.Validate(i); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
