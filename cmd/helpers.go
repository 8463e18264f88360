package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openjab/jab-cli/internal/bridge"
	"github.com/openjab/jab-cli/internal/config"
	"github.com/openjab/jab-cli/internal/driver"
	"github.com/openjab/jab-cli/internal/input"
	"github.com/openjab/jab-cli/internal/locator"
)

// newDriver loads the bridge backend and builds a driver. The caller owns
// Close.
func newDriver(cmd *cobra.Command) (*driver.Driver, error) {
	dllFlag, _ := rootCmd.PersistentFlags().GetString("dll")
	dllPath, err := config.ResolveBridgeDLL(dllFlag)
	if err != nil {
		return nil, err
	}
	api, err := bridge.NewAPI(dllPath)
	if err != nil {
		return nil, err
	}
	if !config.AccessibilityEnabled() {
		log.Warn("Java Access Bridge does not appear to be enabled for this user; run 'jabswitch /enable' if windows come back empty")
	}
	opts := []driver.Option{driver.WithLogger(log), driver.WithInput(input.New())}
	if t := config.DurationEnv("JAB_CALL_TIMEOUT", 0); t > 0 {
		opts = append(opts, driver.WithCallTimeout(t))
	}
	if f := cmd.Flags().Lookup("bind-timeout"); f != nil {
		if sec, err := cmd.Flags().GetInt("bind-timeout"); err == nil && sec > 0 {
			opts = append(opts, driver.WithBindTimeout(time.Duration(sec)*time.Second))
		}
	}
	d := driver.New(api, opts...)
	if err := d.Start(); err != nil {
		return nil, err
	}
	return d, nil
}

// bindWindow connects the driver to the window named by --window. Every
// interaction command requires it.
func bindWindow(cmd *cobra.Command, d *driver.Driver) (*driver.Element, error) {
	title, _ := cmd.Flags().GetString("window")
	if title == "" {
		return nil, fmt.Errorf("--window is required to scope the lookup")
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return d.Bind(ctx, title)
}

// addWindowFlags adds the window-scoping flags shared by interaction commands.
func addWindowFlags(cmd *cobra.Command) {
	cmd.Flags().String("window", "", "Target window by title substring (required)")
	cmd.Flags().Int("bind-timeout", 0, "Max seconds to wait for the window to appear")
}

// addLocatorFlags adds the element-targeting flags shared by find, wait,
// click, action, and text commands.
func addLocatorFlags(cmd *cobra.Command) {
	cmd.Flags().String("by", "", "Locator strategy: name, description, role, states, objectdepth, childrencount, indexinparent")
	cmd.Flags().String("value", "", "Locator value for --by")
	cmd.Flags().String("name", "", "Shorthand for --by name --value X")
	cmd.Flags().String("role", "", "Shorthand for --by role --value X")
	cmd.Flags().String("xpath", "", "Path locator, e.g. \"frame/panel[2]/push button[@name='OK']\"")
	cmd.Flags().Bool("visible-only", false, "Search only visible children (skips scrolled-out rows)")
}

// parseLocator builds a locator from the targeting flags. Exactly one
// targeting form must be used.
func parseLocator(cmd *cobra.Command) (locator.Locator, error) {
	by, _ := cmd.Flags().GetString("by")
	value, _ := cmd.Flags().GetString("value")
	name, _ := cmd.Flags().GetString("name")
	role, _ := cmd.Flags().GetString("role")
	xpath, _ := cmd.Flags().GetString("xpath")

	var locs []locator.Locator
	if by != "" {
		locs = append(locs, locator.Locator{By: locator.Strategy(by), Value: value})
	}
	if name != "" {
		locs = append(locs, locator.Locator{By: locator.ByName, Value: name})
	}
	if role != "" {
		locs = append(locs, locator.Locator{By: locator.ByRole, Value: role})
	}
	if xpath != "" {
		locs = append(locs, locator.Locator{By: locator.ByXPath, Value: xpath})
	}
	switch len(locs) {
	case 0:
		return locator.Locator{}, fmt.Errorf("specify a target: --name, --role, --xpath, or --by/--value")
	case 1:
		loc := locs[0]
		loc.VisibleOnly, _ = cmd.Flags().GetBool("visible-only")
		return loc, locator.Validate(loc)
	default:
		return locator.Locator{}, fmt.Errorf("use only one of --name, --role, --xpath, --by")
	}
}
