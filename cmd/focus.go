package cmd

import (
	"github.com/spf13/cobra"

	"github.com/openjab/jab-cli/internal/output"
)

var focusCmd = &cobra.Command{
	Use:   "focus",
	Short: "Request keyboard focus for an element",
	RunE:  runFocus,
}

func init() {
	rootCmd.AddCommand(focusCmd)
	addWindowFlags(focusCmd)
	addLocatorFlags(focusCmd)
}

func runFocus(cmd *cobra.Command, args []string) error {
	d, err := newDriver(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	loc, err := parseLocator(cmd)
	if err != nil {
		return err
	}
	if _, err := bindWindow(cmd, d); err != nil {
		return err
	}

	el, err := d.Find(loc)
	if err != nil {
		return err
	}
	if err := el.RequestFocus(); err != nil {
		return err
	}
	return output.Print(output.ActionResult{OK: true, Action: "focus", Target: loc.String()})
}
