// Package detection turns one frame of object detections into a give-way
// decision for a signal controller.
package detection

import (
	"fmt"
	"strings"
)

// Region is an axis-aligned bounding box in pixel coordinates
type Region struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Width returns the horizontal extent of the region
func (r Region) Width() float64 {
	return r.X2 - r.X1
}

// Height returns the vertical extent of the region
func (r Region) Height() float64 {
	return r.Y2 - r.Y1
}

// Record is one labelled, confidence-scored detection. Nil pointer
// fields mark values the detector did not provide.
type Record struct {
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence,omitempty"`
	Region     *Region  `json:"box,omitempty"`
}

// NewRecord builds a complete record
func NewRecord(label string, confidence float64, region Region) Record {
	return Record{Label: label, Confidence: &confidence, Region: &region}
}

// RecordError describes why a record cannot take part in an evaluation
type RecordError struct {
	Index  int
	Label  string
	Reason string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("detection record %d (%q): %s", e.Index, e.Label, e.Reason)
}

// Validate reports a *RecordError for a record that must be skipped
func (r Record) Validate(index int) error {
	switch {
	case strings.TrimSpace(r.Label) == "":
		return &RecordError{Index: index, Label: r.Label, Reason: "empty label"}
	case r.Confidence == nil:
		return &RecordError{Index: index, Label: r.Label, Reason: "missing confidence"}
	case !(*r.Confidence >= 0 && *r.Confidence <= 1):
		return &RecordError{Index: index, Label: r.Label, Reason: fmt.Sprintf("confidence %g outside [0,1]", *r.Confidence)}
	case r.Region == nil:
		return &RecordError{Index: index, Label: r.Label, Reason: "missing region"}
	}
	return nil
}
