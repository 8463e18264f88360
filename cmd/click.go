package cmd

import (
	"github.com/spf13/cobra"

	"github.com/openjab/jab-cli/internal/output"
)

var clickCmd = &cobra.Command{
	Use:   "click",
	Short: "Click a UI element",
	Long: `Click an element in a Java window. By default the click goes through the
element's accessible action, which works even when the window is in the
background. --pointer moves the real mouse to the element's center instead,
for components that only react to genuine OS events.`,
	RunE: runClick,
}

func init() {
	rootCmd.AddCommand(clickCmd)
	addWindowFlags(clickCmd)
	addLocatorFlags(clickCmd)
	clickCmd.Flags().Bool("pointer", false, "Click with the real mouse pointer instead of the accessible action")
}

func runClick(cmd *cobra.Command, args []string) error {
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

	pointer, _ := cmd.Flags().GetBool("pointer")
	if pointer {
		err = el.ClickPointer()
	} else {
		err = el.Click()
	}
	if err != nil {
		return err
	}
	return output.Print(output.ActionResult{OK: true, Action: "click", Target: loc.String()})
}
