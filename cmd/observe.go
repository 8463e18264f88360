package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openjab/jab-cli/internal/model"
	"github.com/openjab/jab-cli/internal/output"
	"github.com/openjab/jab-cli/internal/tree"
)

var observeCmd = &cobra.Command{
	Use:   "observe",
	Short: "Watch a Java window for UI changes and stream diffs as JSONL",
	Long: `Continuously snapshot a Java window and emit changes (added, removed,
modified elements) as JSONL to stdout. Nothing is emitted while the UI is
stable, which makes this far cheaper for an agent than repeated reads.

Output is always JSONL regardless of --format. Use Ctrl+C or --duration to
stop.`,
	RunE: runObserve,
}

func init() {
	rootCmd.AddCommand(observeCmd)
	addWindowFlags(observeCmd)
	observeCmd.Flags().Int("depth", 0, "Max depth to traverse (0 = unlimited)")
	observeCmd.Flags().Int("interval", 1000, "Polling interval in milliseconds")
	observeCmd.Flags().Int("duration", 0, "Max seconds to observe (0 = until Ctrl+C)")
	observeCmd.Flags().Bool("ignore-bounds", false, "Ignore element position changes")
}

func runObserve(cmd *cobra.Command, args []string) error {
	d, err := newDriver(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	root, err := bindWindow(cmd, d)
	if err != nil {
		return err
	}

	depth, _ := cmd.Flags().GetInt("depth")
	intervalMs, _ := cmd.Flags().GetInt("interval")
	durationSec, _ := cmd.Flags().GetInt("duration")
	ignoreBounds, _ := cmd.Flags().GetBool("ignore-bounds")

	enc := json.NewEncoder(output.Writer)
	enc.SetEscapeHTML(false)

	snapOpts := tree.SnapshotOptions{MaxDepth: depth}
	interval := time.Duration(intervalMs) * time.Millisecond
	var deadline time.Time
	if durationSec > 0 {
		deadline = time.Now().Add(time.Duration(durationSec) * time.Second)
	}
	start := time.Now()

	el, err := d.Snapshot(root, snapOpts)
	if err != nil {
		return fmt.Errorf("initial read failed: %w", err)
	}
	prevFlat := model.Flatten([]model.Element{el})

	enc.Encode(map[string]interface{}{
		"type":  "snapshot",
		"ts":    time.Now().Unix(),
		"count": len(prevFlat),
	})

	eventCount := 0
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		if durationSec > 0 && time.Now().After(deadline) {
			break
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}

		el, err := d.Snapshot(root, snapOpts)
		if err != nil {
			enc.Encode(map[string]interface{}{
				"type":  "error",
				"ts":    time.Now().Unix(),
				"error": err.Error(),
			})
			continue
		}

		currFlat := model.Flatten([]model.Element{el})
		for _, change := range model.DiffElements(prevFlat, currFlat) {
			if change.Type == model.ChangeChanged {
				if ignoreBounds {
					delete(change.Changes, "b")
				}
				if len(change.Changes) == 0 {
					continue
				}
			}
			enc.Encode(change)
			eventCount++
		}
		prevFlat = currFlat
	}

	enc.Encode(map[string]interface{}{
		"type":    "done",
		"ts":      time.Now().Unix(),
		"elapsed": fmt.Sprintf("%.1fs", time.Since(start).Seconds()),
		"events":  eventCount,
	})
	return nil
}
