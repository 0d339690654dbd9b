package observers

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anggasct/greenwave/signal"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMetricsObserver_ActiveDurations(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(0, 0)}
	metrics := NewMetricsObserver(string(signal.PhaseActive))
	metrics.now = clock.now

	for i, hold := range []time.Duration{100 * time.Millisecond, 300 * time.Millisecond} {
		c, err := signal.NewController([]string{"Node 1", "Node 2"}[i], 50, signal.DefaultThresholds())
		require.NoError(t, err)
		c.AddObserver(metrics)

		require.NoError(t, c.Observe(ctx, 9))
		clock.advance(hold)
		require.NoError(t, c.Pass(ctx))
	}

	summary := metrics.Summary()
	assert.Equal(t, 2, summary.Activations)
	assert.Equal(t, 200*time.Millisecond, summary.Mean)
	assert.InDelta(t, float64(100*time.Millisecond)*math.Sqrt2, float64(summary.StdDev), float64(time.Microsecond))
	assert.Equal(t, 100*time.Millisecond, summary.Min)
	assert.Equal(t, 300*time.Millisecond, summary.Max)

	assert.Equal(t, map[string]int{"active": 2, "cleared": 2}, metrics.GetStateVisitCounts())
	assert.Equal(t, map[string]int{"idle->active": 2, "active->cleared": 2}, metrics.GetTransitionCounts())
	assert.Zero(t, metrics.GetErrorCount())
}

func TestMetricsObserver_EmptyAndReset(t *testing.T) {
	metrics := NewMetricsObserver("active")
	assert.Equal(t, Summary{}, metrics.Summary())

	c, err := signal.NewController("Node 1", 50, signal.DefaultThresholds())
	require.NoError(t, err)
	c.AddObserver(metrics)
	require.NoError(t, c.Settle(context.Background(), 8))

	assert.Equal(t, 1, metrics.GetStateVisitCounts()["cleared"])
	assert.Zero(t, metrics.Summary().Activations, "settling from idle never gives way")

	metrics.Reset()
	assert.Empty(t, metrics.GetStateVisitCounts())
}
