package cmd

import (
	"github.com/spf13/cobra"

	"github.com/openjab/jab-cli/internal/output"
)

// ActionsResult lists the actions an element advertises.
type ActionsResult struct {
	Target  string   `yaml:"target"  json:"target"`
	Actions []string `yaml:"actions" json:"actions"`
}

var actionCmd = &cobra.Command{
	Use:   "action",
	Short: "Invoke an accessible action on an element",
	Long: `Invoke a named accessible action (click, togglePopup, increment, ...) on
an element. Use --list to see what an element supports; an invalid action
name fails with the supported set in the error.`,
	RunE: runAction,
}

func init() {
	rootCmd.AddCommand(actionCmd)
	addWindowFlags(actionCmd)
	addLocatorFlags(actionCmd)
	actionCmd.Flags().String("action", "", "Action name to invoke")
	actionCmd.Flags().Bool("list", false, "List the element's supported actions instead of invoking one")
}

func runAction(cmd *cobra.Command, args []string) error {
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

	list, _ := cmd.Flags().GetBool("list")
	if list {
		actions, err := el.Actions()
		if err != nil {
			return err
		}
		return output.Print(ActionsResult{Target: loc.String(), Actions: actions})
	}

	action, _ := cmd.Flags().GetString("action")
	if action == "" {
		return cmd.Help()
	}
	if err := el.InvokeAction(action); err != nil {
		return err
	}
	return output.Print(output.ActionResult{OK: true, Action: action, Target: loc.String()})
}
