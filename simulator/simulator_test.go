package simulator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anggasct/greenwave/detection"
	"github.com/anggasct/greenwave/sequence"
	"github.com/anggasct/greenwave/signal"
	"github.com/anggasct/greenwave/simulator"
)

func newSimulator(t *testing.T, tick time.Duration) *simulator.Simulator {
	t.Helper()
	return newSimulatorWithDwell(t, tick, 2*tick)
}

func newSimulatorWithDwell(t *testing.T, tick, dwell time.Duration) *simulator.Simulator {
	t.Helper()
	thresholds := signal.DefaultThresholds()
	thresholds.Dwell = dwell

	var controllers []*signal.Controller
	for i, d := range []float64{120, 220, 320} {
		c, err := signal.NewController([]string{"Node 1", "Node 2", "Node 3"}[i], d, thresholds)
		require.NoError(t, err)
		controllers = append(controllers, c)
	}

	cfg := sequence.DefaultConfig()
	cfg.Tick = tick
	cfg.Gap = tick
	runner, err := sequence.NewRunner(cfg)
	require.NoError(t, err)

	sim, err := simulator.New(controllers, runner)
	require.NoError(t, err)
	return sim
}

func waitFor(t *testing.T, sim *simulator.Simulator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, sim.Wait(ctx))
}

func TestSimulator_InitialSnapshot(t *testing.T) {
	sim := newSimulator(t, time.Millisecond)

	snap := sim.Snapshot()
	assert.Equal(t, uuid.Nil, snap.RunID)
	assert.Equal(t, simulator.NotStarted, snap.State)
	require.Len(t, snap.Intersections, 3)
	assert.Equal(t, 220.0, snap.Intersections[1].Distance)
	assert.False(t, sim.IsRunning())
}

func TestSimulator_RunToCompletion(t *testing.T) {
	sim := newSimulator(t, time.Millisecond)

	require.NoError(t, sim.Start(context.Background()))
	waitFor(t, sim)

	assert.Equal(t, simulator.Done, sim.State())
	assert.NoError(t, sim.Err())
	assert.False(t, sim.IsRunning())

	snap := sim.Snapshot()
	assert.NotEqual(t, uuid.Nil, snap.RunID)
	assert.Equal(t, simulator.Done, snap.State)
	for _, v := range snap.Intersections {
		assert.True(t, v.Cleared, v.Name)
		assert.Equal(t, signal.Red, v.Light())
	}
	assert.Positive(t, sim.Stats().Published)

	assert.ErrorIs(t, sim.Start(context.Background()), simulator.ErrResetRequired)
}

func TestSimulator_StartWhileRunning(t *testing.T) {
	sim := newSimulator(t, 5*time.Millisecond)

	require.NoError(t, sim.Start(context.Background()))
	assert.ErrorIs(t, sim.Start(context.Background()), simulator.ErrRunInProgress)
	assert.True(t, sim.IsRunning())

	sim.Stop()
	waitFor(t, sim)
}

func TestSimulator_ConcurrentStartLaunchesOneWorker(t *testing.T) {
	sim := newSimulator(t, 5*time.Millisecond)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		started int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := sim.Start(context.Background())
			if err == nil {
				mu.Lock()
				started++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, simulator.ErrRunInProgress) || errors.Is(err, simulator.ErrResetRequired), "unexpected %v", err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, started)
	sim.Stop()
	waitFor(t, sim)
}

func TestSimulator_StopHaltsAndRequiresReset(t *testing.T) {
	sim := newSimulator(t, 5*time.Millisecond)

	require.NoError(t, sim.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)
	sim.Stop()
	waitFor(t, sim)

	assert.Equal(t, simulator.Cancelling, sim.State())
	assert.NoError(t, sim.Err())
	assert.ErrorIs(t, sim.Start(context.Background()), simulator.ErrResetRequired)

	controllers := sim.Controllers()
	assert.False(t, controllers[2].Cleared(), "stopped run must not reach the last node")

	require.NoError(t, sim.Reset())
	assert.Equal(t, simulator.NotStarted, sim.State())
	require.NoError(t, sim.Start(context.Background()))
	sim.Stop()
	waitFor(t, sim)
}

func TestSimulator_ResetDuringRun(t *testing.T) {
	sim := newSimulator(t, 5*time.Millisecond)

	require.NoError(t, sim.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, sim.Reset())
	waitFor(t, sim)

	assert.Equal(t, simulator.NotStarted, sim.State())
	snap := sim.Snapshot()
	assert.Equal(t, simulator.NotStarted, snap.State)
	for i, c := range sim.Controllers() {
		assert.Equal(t, c.InitialDistance(), snap.Intersections[i].Distance)
		assert.Equal(t, signal.PhaseIdle, c.Phase())
	}
	assert.Equal(t, uint64(1), sim.Stats().Epoch)

	require.NoError(t, sim.Start(context.Background()))
	sim.Stop()
	waitFor(t, sim)
}

func TestSimulator_ParentContextCancels(t *testing.T) {
	sim := newSimulator(t, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, sim.Start(ctx))
	cancel()
	waitFor(t, sim)

	assert.Equal(t, simulator.Cancelling, sim.State())
}

func TestSimulator_UpdatesNotify(t *testing.T) {
	sim := newSimulator(t, time.Millisecond)
	<-sim.Updates()

	require.NoError(t, sim.Start(context.Background()))
	select {
	case <-sim.Updates():
	case <-time.After(5 * time.Second):
		t.Fatal("no update after start")
	}
	waitFor(t, sim)
}

func TestNew_Validation(t *testing.T) {
	runner, err := sequence.NewRunner(sequence.DefaultConfig())
	require.NoError(t, err)

	_, err = simulator.New(nil, runner)
	assert.Error(t, err)

	c, err := signal.NewController("Node 1", 10, signal.DefaultThresholds())
	require.NoError(t, err)
	_, err = simulator.New([]*signal.Controller{c}, nil)
	assert.Error(t, err)
}

func TestRunState_String(t *testing.T) {
	assert.Equal(t, "running", simulator.Running.String())
	assert.Equal(t, "RunState(9)", simulator.RunState(9).String())
}

func TestSimulator_SnapshotIsCopied(t *testing.T) {
	sim := newSimulator(t, time.Millisecond)

	first := sim.Snapshot()
	first.Intersections[0].Distance = 0
	first.Intersections[0].GiveWay = true

	second := sim.Snapshot()
	assert.Equal(t, 120.0, second.Intersections[0].Distance)
	assert.False(t, second.Intersections[0].GiveWay)
}

func TestSimulator_FailedRunEndsDone(t *testing.T) {
	sim := newSimulatorWithDwell(t, 2*time.Millisecond, 500*time.Millisecond)
	node := sim.Controllers()[0]
	bridge, err := detection.NewBridge(node, detection.NewClasses("ambulance"), detection.DefaultConfidenceThreshold)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, sim.Start(ctx))

	// an empty detection frame releases the signal while it is held for the dwell
	released := false
	for !released {
		select {
		case <-ctx.Done():
			t.Fatal("Node 1 never reached its dwell")
		case <-sim.Updates():
			v := sim.Snapshot().Intersections[0]
			if v.GiveWay && v.Distance <= node.Thresholds().Pass {
				bridge.Clear(ctx)
				released = true
			}
		}
	}
	waitFor(t, sim)

	assert.Equal(t, simulator.Done, sim.State())
	require.Error(t, sim.Err())
	assert.Contains(t, sim.Err().Error(), "pass from idle")
	assert.False(t, sim.IsRunning())
	assert.Equal(t, simulator.Done, sim.Snapshot().State)

	assert.ErrorIs(t, sim.Start(ctx), simulator.ErrResetRequired)
	assert.ErrorIs(t, sim.Start(ctx), simulator.ErrResetRequired)

	require.NoError(t, sim.Reset())
	assert.NoError(t, sim.Err())
	assert.Equal(t, simulator.NotStarted, sim.State())
	require.NoError(t, sim.Start(ctx))
	sim.Stop()
	waitFor(t, sim)
}
