package rendersync_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anggasct/greenwave/rendersync"
)

type frame struct {
	Seq    int
	Values []float64
}

func TestChannel_Empty(t *testing.T) {
	ch := rendersync.New[frame]()

	_, _, ok := ch.Latest()
	assert.False(t, ok)

	select {
	case <-ch.Updates():
		t.Fatal("unexpected notification on an empty channel")
	default:
	}
}

func TestChannel_LatestWins(t *testing.T) {
	ch := rendersync.New[frame]()

	for i := 1; i <= 5; i++ {
		ch.Publish(frame{Seq: i})
	}

	got, version, ok := ch.Latest()
	require.True(t, ok)
	assert.Equal(t, 5, got.Seq)
	assert.Equal(t, uint64(5), version)

	stats := ch.Stats()
	assert.Equal(t, uint64(5), stats.Published)
	assert.Equal(t, uint64(4), stats.Dropped)
}

func TestChannel_NotificationsCoalesce(t *testing.T) {
	ch := rendersync.New[int]()

	ch.Publish(1)
	ch.Publish(2)
	ch.Publish(3)

	<-ch.Updates()
	select {
	case <-ch.Updates():
		t.Fatal("expected a single pending notification")
	default:
	}

	v, _, _ := ch.Latest()
	assert.Equal(t, 3, v)
}

func TestChannel_ReadValuesAreNotDropped(t *testing.T) {
	ch := rendersync.New[int]()

	ch.Publish(1)
	_, _, _ = ch.Latest()
	ch.Publish(2)

	assert.Equal(t, uint64(0), ch.Stats().Dropped)
}

func TestChannel_ResetEndsEpoch(t *testing.T) {
	ch := rendersync.New[int]()
	pub := ch.Publisher()

	require.NoError(t, pub.Publish(7))
	ch.Reset()

	_, _, ok := ch.Latest()
	assert.False(t, ok, "reset must clear the published value")

	assert.ErrorIs(t, pub.Publish(8), rendersync.ErrStale)
	_, _, ok = ch.Latest()
	assert.False(t, ok, "stale publisher must not write")

	fresh := ch.Publisher()
	assert.Equal(t, uint64(1), fresh.Epoch())
	require.NoError(t, fresh.Publish(9))
	v, _, ok := ch.Latest()
	require.True(t, ok)
	assert.Equal(t, 9, v)
}

func TestChannel_ConcurrentPublishAndRead(t *testing.T) {
	ch := rendersync.New[frame]()
	const n = 1000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= n; i++ {
			ch.Publish(frame{Seq: i, Values: []float64{float64(i), float64(i)}})
		}
	}()

	last := 0
	for last < n {
		<-ch.Updates()
		f, _, ok := ch.Latest()
		if !ok {
			continue
		}
		require.GreaterOrEqual(t, f.Seq, last, "reader must never go back in time")
		require.Equal(t, f.Values[0], f.Values[1], "reader saw a torn value")
		last = f.Seq
	}
	wg.Wait()
}
