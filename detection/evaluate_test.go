package detection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anggasct/greenwave/detection"
)

func conf(v float64) *float64 { return &v }

var box = &detection.Region{X1: 10, Y1: 20, X2: 110, Y2: 80}

func TestEvaluate(t *testing.T) {
	classes := detection.NewClasses("ambulance")

	tests := []struct {
		name    string
		records []detection.Record
		want    bool
	}{
		{"confident ambulance", []detection.Record{{Label: "ambulance", Confidence: conf(0.9), Region: box}}, true},
		{"below threshold", []detection.Record{{Label: "ambulance", Confidence: conf(0.5), Region: box}}, false},
		{"at threshold", []detection.Record{{Label: "ambulance", Confidence: conf(0.75), Region: box}}, true},
		{"no records", nil, false},
		{"other class", []detection.Record{{Label: "car", Confidence: conf(0.99), Region: box}}, false},
		{"case and spaces", []detection.Record{{Label: " Ambulance ", Confidence: conf(0.8), Region: box}}, true},
		{"missing confidence skipped", []detection.Record{{Label: "ambulance", Region: box}}, false},
		{"missing region skipped", []detection.Record{{Label: "ambulance", Confidence: conf(0.9)}}, false},
		{"malformed next to valid", []detection.Record{
			{Label: "ambulance", Confidence: conf(1.5), Region: box},
			{Label: "ambulance", Confidence: conf(0.8), Region: box},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detection.Evaluate(tt.records, classes, detection.DefaultConfidenceThreshold))
		})
	}
}

func TestEvaluate_IsPure(t *testing.T) {
	records := []detection.Record{{Label: "ambulance", Confidence: conf(0.9), Region: box}}
	classes := detection.NewClasses("ambulance")

	for i := 0; i < 3; i++ {
		assert.True(t, detection.Evaluate(records, classes, 0.75))
	}
	assert.Equal(t, "ambulance", records[0].Label)
}

func TestClasses(t *testing.T) {
	classes := detection.ParseClasses(" Ambulance,fire truck,,AMBULANCE ")

	assert.Equal(t, []string{"ambulance", "fire truck"}, classes.List())
	assert.True(t, classes.Contains("Fire Truck"))
	assert.False(t, classes.Contains("police"))
	assert.Empty(t, detection.NewClasses(" ", ""))
}

func TestSkipped(t *testing.T) {
	records := []detection.Record{
		{Label: "ambulance", Confidence: conf(0.9), Region: box},
		{Label: "", Confidence: conf(0.9), Region: box},
		{Label: "car", Confidence: conf(-0.1), Region: box},
	}

	errs := detection.Skipped(records)
	if assert.Len(t, errs, 2) {
		var recErr *detection.RecordError
		assert.ErrorAs(t, errs[0], &recErr)
		assert.Equal(t, 1, recErr.Index)
		assert.Contains(t, errs[1].Error(), "outside [0,1]")
	}
}
