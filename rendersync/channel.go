// Package rendersync hands the newest simulation snapshot from the worker
// goroutine to a presentation goroutine.
//
// A Channel holds at most one value. Publishing overwrites it and sends a
// coalesced notification; readers always see the latest complete value.
// Reset clears the value and advances the epoch so that publishers bound
// to the previous epoch fail with ErrStale, which the worker treats as
// cancellation.
package rendersync

import (
	"errors"
	"sync"
)

// ErrStale is returned by a Publisher whose epoch was ended by Reset
var ErrStale = errors.New("rendersync: publisher epoch ended by reset")

// Stats counts channel traffic
type Stats struct {
	Published uint64 `json:"published"`
	// Dropped counts values overwritten before any reader saw them
	Dropped uint64 `json:"dropped"`
	Epoch   uint64 `json:"epoch"`
}

// Channel is a single-slot, latest-value-wins snapshot channel
type Channel[T any] struct {
	mu      sync.Mutex
	value   T
	has     bool
	seen    bool
	version uint64
	epoch   uint64
	stats   Stats
	notify  chan struct{}
}

// New creates an empty channel
func New[T any]() *Channel[T] {
	return &Channel[T]{
		// Buffered channel of size 1 coalesces notifications
		notify: make(chan struct{}, 1),
	}
}

// Publish stores v as the latest value. It never blocks.
func (c *Channel[T]) Publish(v T) {
	c.mu.Lock()
	c.store(v)
	c.mu.Unlock()
	c.signal()
}

// store must be called with c.mu held
func (c *Channel[T]) store(v T) {
	if c.has && !c.seen {
		c.stats.Dropped++
	}
	c.value = v
	c.has = true
	c.seen = false
	c.version++
	c.stats.Published++
}

func (c *Channel[T]) signal() {
	select {
	case c.notify <- struct{}{}:
	default:
		// a notification is already pending
	}
}

// Latest returns the newest value and its version. ok is false when
// nothing was published since creation or the last Reset.
func (c *Channel[T]) Latest() (v T, version uint64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.has {
		return v, c.version, false
	}
	c.seen = true
	return c.value, c.version, true
}

// Updates delivers a notification after one or more publications
func (c *Channel[T]) Updates() <-chan struct{} {
	return c.notify
}

// Reset clears the published value and ends the current epoch
func (c *Channel[T]) Reset() {
	c.mu.Lock()
	var zero T
	c.value = zero
	c.has = false
	c.seen = false
	c.epoch++
	c.stats.Epoch = c.epoch
	c.mu.Unlock()
	c.signal()
}

// Epoch returns the current epoch
func (c *Channel[T]) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Stats returns a copy of the traffic counters
func (c *Channel[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Publisher returns a publisher bound to the current epoch
func (c *Channel[T]) Publisher() *Publisher[T] {
	return &Publisher[T]{ch: c, epoch: c.Epoch()}
}

// Publisher publishes into a Channel for as long as its epoch is current
type Publisher[T any] struct {
	ch    *Channel[T]
	epoch uint64
}

// Publish stores v unless the channel was reset since the publisher was
// created, in which case it returns ErrStale and leaves the channel alone.
func (p *Publisher[T]) Publish(v T) error {
	p.ch.mu.Lock()
	if p.ch.epoch != p.epoch {
		p.ch.mu.Unlock()
		return ErrStale
	}
	p.ch.store(v)
	p.ch.mu.Unlock()
	p.ch.signal()
	return nil
}

// Epoch returns the epoch the publisher is bound to
func (p *Publisher[T]) Epoch() uint64 {
	return p.epoch
}
