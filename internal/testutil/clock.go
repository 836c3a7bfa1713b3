// Package testutil provides deterministic collaborators for tests: a
// manual clock, a scripted gateway, and a static connectivity probe.
package testutil

import (
	"sync"
	"time"

	"github.com/fieldwork/formsync/internal/syncd"
)

// ManualClock is a syncd.Clock whose time and ticks are driven by the
// test instead of the wall.
//
// Every ticker created from the clock shares one tick channel; Tick()
// fires them all. That matches how the engine uses it (one timer).
//
// Thread-safety: all methods are safe for concurrent use.
type ManualClock struct {
	mu   sync.Mutex
	now  time.Time
	tick chan time.Time
}

// NewManualClock creates a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{
		now:  start,
		tick: make(chan time.Time, 1),
	}
}

// Now returns the clock's current frozen time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward without ticking.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Tick delivers one tick to tickers created from this clock.
func (c *ManualClock) Tick() {
	c.tick <- c.Now()
}

// NewTicker returns a ticker fed exclusively by Tick; the requested
// duration is ignored.
func (c *ManualClock) NewTicker(time.Duration) syncd.Ticker {
	return manualTicker{c.tick}
}

type manualTicker struct {
	ch chan time.Time
}

func (t manualTicker) C() <-chan time.Time { return t.ch }
func (t manualTicker) Stop()               {}
