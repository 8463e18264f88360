package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openjab/jab-cli/internal/driver"
	"github.com/openjab/jab-cli/internal/locator"
	"github.com/openjab/jab-cli/internal/output"
	"github.com/openjab/jab-cli/internal/waiter"
)

// waitOutput is the wait command's result document.
type waitOutput struct {
	OK       bool         `yaml:"ok"                json:"ok"`
	Outcome  string       `yaml:"outcome"           json:"outcome"`
	Attempts int          `yaml:"attempts,omitempty" json:"attempts,omitempty"`
	Elapsed  string       `yaml:"elapsed"           json:"elapsed"`
	Element  *ElementInfo `yaml:"element,omitempty" json:"element,omitempty"`
}

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for an element to appear or disappear",
	Long: `Poll a Java window until an element matching the locator exists (or, with
--gone, no longer exists). Bridge events wake the poll early, so appearance
is usually detected well before the next interval tick.`,
	RunE: runWait,
}

func init() {
	rootCmd.AddCommand(waitCmd)
	addWindowFlags(waitCmd)
	addLocatorFlags(waitCmd)
	waitCmd.Flags().Int("timeout", 0, "Max seconds to wait (default: 5)")
	waitCmd.Flags().Int("interval", 0, "Polling interval in milliseconds (default: 100)")
	waitCmd.Flags().Bool("gone", false, "Invert: wait until no element matches")
}

func runWait(cmd *cobra.Command, args []string) error {
	d, err := newDriver(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	loc, err := parseLocator(cmd)
	if err != nil {
		return err
	}
	root, err := bindWindow(cmd, d)
	if err != nil {
		return err
	}

	timeoutSec, _ := cmd.Flags().GetInt("timeout")
	intervalMs, _ := cmd.Flags().GetInt("interval")
	gone, _ := cmd.Flags().GetBool("gone")

	timeout := time.Duration(timeoutSec) * time.Second
	interval := time.Duration(intervalMs) * time.Millisecond

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	if gone {
		return waitGone(ctx, root, loc, timeout, interval, start)
	}

	el, err := d.WaitUntilElementExists(ctx, root, loc, timeout)
	if err != nil {
		_ = output.Print(waitOutput{
			OK:      false,
			Outcome: outcomeOf(err),
			Elapsed: fmt.Sprintf("%.1fs", time.Since(start).Seconds()),
		})
		return err
	}
	info, err := describeElement(el, false)
	if err != nil {
		return err
	}
	return output.Print(waitOutput{
		OK:      true,
		Outcome: waiter.Satisfied.String(),
		Elapsed: fmt.Sprintf("%.1fs", time.Since(start).Seconds()),
		Element: &info,
	})
}

// waitGone polls until the locator matches nothing. There is no element to
// subscribe on once it disappears, so this path relies on the interval alone.
func waitGone(ctx context.Context, root *driver.Element, loc locator.Locator, timeout, interval time.Duration, start time.Time) error {
	w := waiter.New(waiter.WithLogger(log))
	res, err := w.Wait(ctx, waiter.Condition{
		Name:     fmt.Sprintf("no element matching %s", loc),
		Timeout:  timeout,
		Interval: interval,
		Check: func(context.Context) (bool, error) {
			matches, err := root.FindAll(loc)
			if err != nil {
				return false, err
			}
			for _, m := range matches {
				m.Release()
			}
			return len(matches) == 0, nil
		},
	})
	printErr := output.Print(waitOutput{
		OK:       err == nil,
		Outcome:  res.Outcome.String(),
		Attempts: res.Attempts,
		Elapsed:  fmt.Sprintf("%.1fs", time.Since(start).Seconds()),
	})
	if err != nil {
		return err
	}
	return printErr
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, waiter.ErrTimeout):
		return waiter.TimedOut.String()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return waiter.Cancelled.String()
	default:
		return "error"
	}
}
