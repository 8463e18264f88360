package cmd

import (
	"github.com/spf13/cobra"

	"github.com/openjab/jab-cli/internal/output"
)

// TextResult is the output of the text command.
type TextResult struct {
	Target string `yaml:"target" json:"target"`
	Text   string `yaml:"text"   json:"text"`
}

var textCmd = &cobra.Command{
	Use:   "text",
	Short: "Read an element's text content",
	RunE:  runText,
}

var setTextCmd = &cobra.Command{
	Use:   "set-text",
	Short: "Replace an element's text via the accessibility API",
	Long: `Set a text component's contents directly through the bridge, replacing
whatever is there. This does not synthesize keystrokes; use the type command
for components that validate input per keypress.`,
	RunE: runSetText,
}

var typeCmd = &cobra.Command{
	Use:   "type",
	Short: "Type text into an element with real keystrokes",
	Long: `Focus an element and type the given text through the OS keyboard queue.
Slower than set-text but indistinguishable from a human typing, which some
components require.`,
	RunE: runType,
}

func init() {
	rootCmd.AddCommand(textCmd)
	addWindowFlags(textCmd)
	addLocatorFlags(textCmd)

	rootCmd.AddCommand(setTextCmd)
	addWindowFlags(setTextCmd)
	addLocatorFlags(setTextCmd)
	setTextCmd.Flags().String("text", "", "Text to set")

	rootCmd.AddCommand(typeCmd)
	addWindowFlags(typeCmd)
	addLocatorFlags(typeCmd)
	typeCmd.Flags().String("text", "", "Text to type")
}

func runText(cmd *cobra.Command, args []string) error {
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
	text, err := el.Text()
	if err != nil {
		return err
	}
	return output.Print(TextResult{Target: loc.String(), Text: text})
}

func runSetText(cmd *cobra.Command, args []string) error {
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
	text, _ := cmd.Flags().GetString("text")
	if err := el.SetText(text); err != nil {
		return err
	}
	return output.Print(output.ActionResult{OK: true, Action: "set-text", Target: loc.String()})
}

func runType(cmd *cobra.Command, args []string) error {
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
	text, _ := cmd.Flags().GetString("text")
	if err := el.TypeText(text); err != nil {
		return err
	}
	return output.Print(output.ActionResult{OK: true, Action: "type", Target: loc.String()})
}
