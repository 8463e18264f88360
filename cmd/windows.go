package cmd

import (
	"time"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/openjab/jab-cli/internal/model"
	"github.com/openjab/jab-cli/internal/output"
)

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List Java windows on the desktop",
	Long:  "List every top-level window backed by a JVM with the Access Bridge enabled, with title, PID, and process name.",
	RunE:  runWindows,
}

func init() {
	rootCmd.AddCommand(windowsCmd)
	windowsCmd.Flags().Int("pid", 0, "Only windows belonging to this process")
}

func runWindows(cmd *cobra.Command, args []string) error {
	d, err := newDriver(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	pidFilter, _ := cmd.Flags().GetInt("pid")

	wins, err := d.Windows()
	if err != nil {
		return err
	}

	var filtered []model.Window
	for _, w := range wins {
		if pidFilter != 0 && w.PID != int32(pidFilter) {
			continue
		}
		filtered = append(filtered, model.Window{
			Title: w.Title,
			PID:   w.PID,
			HWND:  uint64(w.HWND),
		})
	}

	// Process-name lookups hit the OS per PID; do them concurrently.
	var g errgroup.Group
	g.SetLimit(8)
	for i := range filtered {
		g.Go(func() error {
			proc, err := process.NewProcess(filtered[i].PID)
			if err != nil {
				return nil
			}
			if name, err := proc.Name(); err == nil {
				filtered[i].Process = name
			}
			return nil
		})
	}
	_ = g.Wait()

	return output.Print(output.WindowsResult{TS: time.Now().Unix(), Windows: filtered})
}
