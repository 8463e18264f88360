package waiter

import (
	"sync"
	"time"
)

// Clock abstracts time so wait behavior is testable without real sleeps.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }

// FakeClock is a manually advanced clock for tests. After-channels fire when
// Advance moves the clock past their deadline.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []fakeTimer
	afters  int
}

type fakeTimer struct {
	when time.Time
	ch   chan time.Time
}

// NewFakeClock starts a fake clock at an arbitrary fixed instant.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afters++
	ch := make(chan time.Time, 1)
	when := c.now.Add(d)
	if d <= 0 {
		ch <- when
		return ch
	}
	c.pending = append(c.pending, fakeTimer{when: when, ch: ch})
	return ch
}

// Advance moves the clock forward and fires every timer now due.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	var still []fakeTimer
	for _, tm := range c.pending {
		if !tm.when.After(c.now) {
			tm.ch <- c.now
		} else {
			still = append(still, tm)
		}
	}
	c.pending = still
}

// Waiting reports how many After-channels are armed and not yet fired.
func (c *FakeClock) Waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// AfterCalls reports how many times After has been asked for a timer.
func (c *FakeClock) AfterCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.afters
}
