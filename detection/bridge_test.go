package detection_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anggasct/greenwave/detection"
	"github.com/anggasct/greenwave/signal"
)

func newBridge(t *testing.T) (*detection.Bridge, *signal.Controller) {
	t.Helper()
	c, err := signal.NewController("Camera Junction", 300, signal.DefaultThresholds())
	require.NoError(t, err)
	b, err := detection.NewBridge(c, detection.NewClasses("ambulance"), detection.DefaultConfidenceThreshold)
	require.NoError(t, err)
	return b, c
}

func TestBridge_Apply(t *testing.T) {
	ctx := context.Background()
	b, c := newBridge(t)

	assert.True(t, b.Apply(ctx, []detection.Record{{Label: "ambulance", Confidence: conf(0.9), Region: box}}))
	assert.Equal(t, signal.Green, c.View().Light())

	assert.False(t, b.Apply(ctx, []detection.Record{{Label: "ambulance", Confidence: conf(0.5), Region: box}}))
	assert.Equal(t, signal.Red, c.View().Light())

	assert.False(t, b.Apply(ctx, nil))
	assert.Equal(t, signal.PhaseIdle, c.Phase())
}

func TestBridge_NoMemoryBetweenFrames(t *testing.T) {
	ctx := context.Background()
	b, c := newBridge(t)

	require.True(t, b.Apply(ctx, []detection.Record{{Label: "ambulance", Confidence: conf(0.9), Region: box}}))
	assert.False(t, b.Clear(ctx))
	assert.False(t, c.GiveWay())
}

func TestBridge_ClearedSignalStaysRed(t *testing.T) {
	ctx := context.Background()
	b, c := newBridge(t)
	require.NoError(t, c.Settle(ctx, 8))

	assert.False(t, b.Apply(ctx, []detection.Record{{Label: "ambulance", Confidence: conf(0.99), Region: box}}))
}

func TestNewBridge_Validation(t *testing.T) {
	c, err := signal.NewController("Camera Junction", 300, signal.DefaultThresholds())
	require.NoError(t, err)

	_, err = detection.NewBridge(nil, detection.NewClasses("ambulance"), 0.75)
	assert.Error(t, err)
	_, err = detection.NewBridge(c, detection.NewClasses(), 0.75)
	assert.Error(t, err)
	_, err = detection.NewBridge(c, detection.NewClasses("ambulance"), 1.2)
	assert.Error(t, err)
}
