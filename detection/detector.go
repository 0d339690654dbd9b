package detection

import (
	"context"
	"sync/atomic"
)

// Frame is one still image handed to a detector
type Frame struct {
	Width       int
	Height      int
	Data        []byte
	ContentType string
}

// Detector produces detection records for a frame
type Detector interface {
	Detect(ctx context.Context, frame Frame) ([]Record, error)
}

// SimulatedLabel is the label the simulated detector reports
const SimulatedLabel = "ambulance"

// SimulatedDetector stands in for a real model. While the emergency flag
// is set it reports one vehicle centred horizontally, low in the frame.
type SimulatedDetector struct {
	Confidence float64
	emergency  atomic.Bool
}

// NewSimulatedDetector creates a simulated detector with the emergency flag set
func NewSimulatedDetector() *SimulatedDetector {
	d := &SimulatedDetector{Confidence: 0.99}
	d.emergency.Store(true)
	return d
}

// SetEmergency toggles whether a vehicle is reported
func (d *SimulatedDetector) SetEmergency(on bool) {
	d.emergency.Store(on)
}

// Emergency reports the current flag
func (d *SimulatedDetector) Emergency() bool {
	return d.emergency.Load()
}

// Detect implements Detector
func (d *SimulatedDetector) Detect(ctx context.Context, frame Frame) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !d.Emergency() {
		return nil, nil
	}
	return []Record{NewRecord(SimulatedLabel, d.Confidence, simulatedRegion(frame.Width, frame.Height))}, nil
}

func simulatedRegion(w, h int) Region {
	cx := float64(w / 2)
	cy := float64(int(0.6 * float64(h)))
	bw := 0.35 * float64(w)
	bh := 0.25 * float64(h)
	return Region{
		X1: max(0, cx-bw/2),
		Y1: max(0, cy-bh/2),
		X2: min(float64(w), cx+bw/2),
		Y2: min(float64(h), cy+bh/2),
	}
}
