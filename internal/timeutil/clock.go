// Package timeutil supplies the time source behind filter steps and the
// frame ticker. MockClock only moves when told to, so tests and replays can
// step time explicitly.
package timeutil

import (
	"sync"
	"time"
)

// Clock is the pipeline's time source.
type Clock interface {
	Now() time.Time
	// NewTicker delivers the clock's time every d until stopped.
	NewTicker(d time.Duration) Ticker
}

// Ticker is the part of time.Ticker the frame loop uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) NewTicker(d time.Duration) Ticker {
	return systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct{ t *time.Ticker }

func (s systemTicker) C() <-chan time.Time { return s.t.C }
func (s systemTicker) Stop()               { s.t.Stop() }

// MockClock is a Clock moved by Advance and Set. Moving it forward fires each
// ticker whose next tick has come due, at most once per move. A tick nobody
// has drained is dropped, as with time.Ticker.
type MockClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers map[*mockTicker]struct{}
}

// NewMockClock returns a clock stopped at start.
func NewMockClock(start time.Time) *MockClock {
	return &MockClock{now: start, tickers: map[*mockTicker]struct{}{}}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.moveLocked(c.now.Add(d))
}

// Set jumps the clock to t. Replays use it to follow recorded timestamps;
// jumping backwards fires nothing.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.moveLocked(t)
}

func (c *MockClock) moveLocked(t time.Time) {
	c.now = t
	for tk := range c.tickers {
		if t.Before(tk.due) {
			continue
		}
		select {
		case tk.ch <- t:
		default:
		}
		tk.due = t.Add(tk.every)
	}
}

func (c *MockClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	tk := &mockTicker{clock: c, ch: make(chan time.Time, 1), every: d, due: c.now.Add(d)}
	c.tickers[tk] = struct{}{}
	return tk
}

type mockTicker struct {
	clock *MockClock
	ch    chan time.Time
	every time.Duration
	due   time.Time
}

func (t *mockTicker) C() <-chan time.Time { return t.ch }

func (t *mockTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	delete(t.clock.tickers, t)
}
