package waiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitForTimer(t *testing.T, clock *FakeClock) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if clock.Waiting() > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("waiter never armed a timer")
}

func TestSatisfiedImmediatelyNoSleep(t *testing.T) {
	clock := NewFakeClock()
	w := New(WithClock(clock))

	res, err := w.Wait(context.Background(), Condition{
		Timeout:  time.Second,
		Interval: 100 * time.Millisecond,
		Check:    func(context.Context) (bool, error) { return true, nil },
	})
	require.NoError(t, err)
	require.Equal(t, Satisfied, res.Outcome)
	require.Equal(t, 1, res.Attempts)
	require.Zero(t, res.Elapsed)
	require.Zero(t, clock.AfterCalls(), "an already-true condition must not sleep")
}

func TestPollsUntilSatisfied(t *testing.T) {
	clock := NewFakeClock()
	w := New(WithClock(clock))

	attempts := 0
	done := make(chan struct{})
	var res Result
	var err error
	go func() {
		defer close(done)
		res, err = w.Wait(context.Background(), Condition{
			Timeout:  time.Second,
			Interval: 100 * time.Millisecond,
			Check: func(context.Context) (bool, error) {
				attempts++
				return attempts >= 3, nil
			},
		})
	}()

	for i := 0; i < 2; i++ {
		waitForTimer(t, clock)
		clock.Advance(100 * time.Millisecond)
	}
	<-done

	require.NoError(t, err)
	require.Equal(t, Satisfied, res.Outcome)
	require.Equal(t, 3, res.Attempts)
	require.Equal(t, 200*time.Millisecond, res.Elapsed)
}

func TestTimedOutCarriesLastError(t *testing.T) {
	clock := NewFakeClock()
	w := New(WithClock(clock))

	checkErr := errors.New("element has gone away")
	done := make(chan struct{})
	var res Result
	var err error
	go func() {
		defer close(done)
		res, err = w.Wait(context.Background(), Condition{
			Name:     "element exists",
			Timeout:  300 * time.Millisecond,
			Interval: 100 * time.Millisecond,
			Check:    func(context.Context) (bool, error) { return false, checkErr },
		})
	}()

	for i := 0; i < 3; i++ {
		waitForTimer(t, clock)
		clock.Advance(100 * time.Millisecond)
	}
	<-done

	require.Equal(t, TimedOut, res.Outcome)
	require.True(t, errors.Is(err, ErrTimeout), "got %v", err)
	require.Equal(t, checkErr, res.LastErr)
	require.Equal(t, 4, res.Attempts, "one check at start, one per tick, one at the deadline")
	require.Equal(t, 300*time.Millisecond, res.Elapsed)
}

func TestCancelledWithinOneTick(t *testing.T) {
	clock := NewFakeClock()
	w := New(WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var res Result
	var err error
	go func() {
		defer close(done)
		res, err = w.Wait(ctx, Condition{
			Timeout:  time.Hour,
			Interval: 100 * time.Millisecond,
			Check:    func(context.Context) (bool, error) { return false, nil },
		})
	}()

	waitForTimer(t, clock)
	cancel()
	<-done

	require.Equal(t, Cancelled, res.Outcome)
	require.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestWakeTriggersEarlyRecheck(t *testing.T) {
	clock := NewFakeClock()
	w := New(WithClock(clock))

	wake := make(chan struct{}, 1)
	attempts := 0
	done := make(chan struct{})
	var res Result
	var err error
	go func() {
		defer close(done)
		res, err = w.Wait(context.Background(), Condition{
			Timeout:  time.Hour,
			Interval: 100 * time.Millisecond,
			Check: func(context.Context) (bool, error) {
				attempts++
				return attempts >= 2, nil
			},
			Wake: wake,
		})
	}()

	waitForTimer(t, clock)
	wake <- struct{}{}
	<-done

	require.NoError(t, err)
	require.Equal(t, Satisfied, res.Outcome)
	require.Equal(t, 2, res.Attempts)
	require.Zero(t, res.Elapsed, "the wake satisfied the wait without a tick elapsing")
}

func TestDefaultsApplied(t *testing.T) {
	clock := NewFakeClock()
	w := New(WithClock(clock))

	done := make(chan struct{})
	var err error
	go func() {
		defer close(done)
		_, err = w.Wait(context.Background(), Condition{
			Check: func(context.Context) (bool, error) { return false, nil },
		})
	}()

	giveUp := time.Now().Add(5 * time.Second)
	for time.Now().Before(giveUp) {
		select {
		case <-done:
			require.True(t, errors.Is(err, ErrTimeout))
			return
		default:
		}
		if clock.Waiting() > 0 {
			clock.Advance(DefaultInterval)
		} else {
			time.Sleep(time.Millisecond)
		}
	}
	t.Fatal("wait never timed out under default settings")
}
