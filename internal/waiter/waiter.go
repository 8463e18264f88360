// Package waiter runs bounded poll loops for conditions that become true as
// the application under automation catches up.
package waiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a wait when the caller gives none.
const DefaultTimeout = 5 * time.Second

// DefaultInterval is the poll period when the caller gives none.
const DefaultInterval = 100 * time.Millisecond

// ErrTimeout reports a wait that ran out of time before its condition held.
var ErrTimeout = errors.New("wait timed out")

// Outcome is the terminal state of one wait.
type Outcome int

const (
	// Pending means the wait is still polling. It never appears in a
	// returned Result.
	Pending Outcome = iota
	// Satisfied means the condition held.
	Satisfied
	// TimedOut means the deadline passed with the condition never holding.
	TimedOut
	// Cancelled means the caller's context ended the wait.
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Satisfied:
		return "satisfied"
	case TimedOut:
		return "timed-out"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Condition describes what to wait for and how.
type Condition struct {
	// Name labels the wait in logs and timeout errors.
	Name string
	// Timeout bounds the whole wait; DefaultTimeout when zero.
	Timeout time.Duration
	// Interval is the poll period; DefaultInterval when zero.
	Interval time.Duration
	// Check evaluates the condition from scratch. It must not reuse state
	// from a previous tick; re-resolution on every call is what lets a wait
	// survive elements being recreated mid-wait. A false return with an
	// error is a miss, not a failure: the next tick retries.
	Check func(ctx context.Context) (bool, error)
	// Wake, when non-nil, triggers an early re-check. The driver feeds
	// bridge event notifications into it so a wait can finish ahead of its
	// next tick; a missed wake costs one poll interval at worst.
	Wake <-chan struct{}
}

// Result records how a wait ended.
type Result struct {
	Outcome  Outcome
	Attempts int
	Elapsed  time.Duration
	// LastErr is the error of the final failed check, if any.
	LastErr error
}

// Waiter runs conditions against a clock.
type Waiter struct {
	clock Clock
	log   *zap.Logger
}

// Option configures a Waiter.
type Option func(*Waiter)

// WithClock substitutes the clock, for deterministic tests.
func WithClock(c Clock) Option {
	return func(w *Waiter) { w.clock = c }
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(w *Waiter) { w.log = log }
}

// New returns a waiter on the real clock unless overridden.
func New(opts ...Option) *Waiter {
	w := &Waiter{clock: RealClock(), log: zap.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Wait polls cond until it holds, the deadline passes or ctx is cancelled.
// The first check runs immediately: a condition that already holds returns
// Satisfied without any sleep. On timeout the returned error wraps
// ErrTimeout and, when present, the last check error. Cancellation returns
// the context's error and is honored within one poll interval.
func (w *Waiter) Wait(ctx context.Context, cond Condition) (Result, error) {
	timeout := cond.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	interval := cond.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	start := w.clock.Now()
	deadline := start.Add(timeout)
	res := Result{Outcome: Pending}

	for {
		if err := ctx.Err(); err != nil {
			res.Outcome = Cancelled
			res.Elapsed = w.clock.Now().Sub(start)
			return res, err
		}

		res.Attempts++
		ok, err := cond.Check(ctx)
		if ok {
			res.Outcome = Satisfied
			res.LastErr = nil
			res.Elapsed = w.clock.Now().Sub(start)
			return res, nil
		}
		res.LastErr = err
		if err != nil {
			w.log.Debug("wait check missed",
				zap.String("condition", cond.Name),
				zap.Int("attempt", res.Attempts),
				zap.Error(err))
		}

		now := w.clock.Now()
		if !now.Before(deadline) {
			res.Outcome = TimedOut
			res.Elapsed = now.Sub(start)
			return res, w.timeoutError(cond, res)
		}
		sleep := interval
		if remaining := deadline.Sub(now); remaining < sleep {
			sleep = remaining
		}
		select {
		case <-ctx.Done():
			res.Outcome = Cancelled
			res.Elapsed = w.clock.Now().Sub(start)
			return res, ctx.Err()
		case <-cond.Wake:
		case <-w.clock.After(sleep):
		}
	}
}

func (w *Waiter) timeoutError(cond Condition, res Result) error {
	name := cond.Name
	if name == "" {
		name = "condition"
	}
	if res.LastErr != nil {
		return fmt.Errorf("%w: %s not satisfied after %d attempts: %v", ErrTimeout, name, res.Attempts, res.LastErr)
	}
	return fmt.Errorf("%w: %s not satisfied after %d attempts", ErrTimeout, name, res.Attempts)
}
