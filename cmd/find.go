package cmd

import (
	"github.com/spf13/cobra"

	"github.com/openjab/jab-cli/internal/driver"
	"github.com/openjab/jab-cli/internal/output"
)

// ElementInfo is the compact per-element output of find and the interaction
// commands.
type ElementInfo struct {
	ID          uint64   `yaml:"id"                    json:"id"`
	Role        string   `yaml:"role"                  json:"role"`
	Name        string   `yaml:"name,omitempty"        json:"name,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Bounds      [4]int   `yaml:"bounds"                json:"bounds"`
	States      string   `yaml:"states,omitempty"      json:"states,omitempty"`
	Actions     []string `yaml:"actions,omitempty"     json:"actions,omitempty"`
}

// FindResult is the output of the find command.
type FindResult struct {
	Count    int           `yaml:"count"    json:"count"`
	Elements []ElementInfo `yaml:"elements" json:"elements"`
}

func describeElement(e *driver.Element, withActions bool) (ElementInfo, error) {
	n, err := e.Node()
	if err != nil {
		return ElementInfo{}, err
	}
	info := ElementInfo{
		ID:          uint64(e.ID()),
		Role:        n.Role,
		Name:        n.Name,
		Description: n.Description,
		Bounds:      [4]int{n.Bounds.X, n.Bounds.Y, n.Bounds.Width, n.Bounds.Height},
		States:      n.States.String(),
	}
	if withActions && n.SupportsAction {
		if actions, err := e.Actions(); err == nil {
			info.Actions = actions
		}
	}
	return info, nil
}

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Find elements in a Java window",
	Long: `Search a Java window's accessible tree for elements matching a locator.
Simple strategies compare exactly; the --xpath form supports role paths,
attribute predicates, contains(), and 1-based positional indexes:

  jab-cli find --window "Settings" --name "OK"
  jab-cli find --window "Settings" --xpath "dialog/push button[@name=contains('Save')]"`,
	RunE: runFind,
}

func init() {
	rootCmd.AddCommand(findCmd)
	addWindowFlags(findCmd)
	addLocatorFlags(findCmd)
	findCmd.Flags().Bool("all", false, "Return every match instead of the first")
	findCmd.Flags().Bool("actions", false, "Include each element's supported actions")
}

func runFind(cmd *cobra.Command, args []string) error {
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

	all, _ := cmd.Flags().GetBool("all")
	withActions, _ := cmd.Flags().GetBool("actions")

	var matches []*driver.Element
	if all {
		matches, err = d.FindAll(loc)
	} else {
		var el *driver.Element
		el, err = d.Find(loc)
		if el != nil {
			matches = []*driver.Element{el}
		}
	}
	if err != nil {
		return err
	}

	result := FindResult{Count: len(matches), Elements: []ElementInfo{}}
	for _, m := range matches {
		info, err := describeElement(m, withActions)
		if err != nil {
			return err
		}
		result.Elements = append(result.Elements, info)
	}
	return output.Print(result)
}
