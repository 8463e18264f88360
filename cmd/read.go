package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/openjab/jab-cli/internal/model"
	"github.com/openjab/jab-cli/internal/output"
	"github.com/openjab/jab-cli/internal/tree"
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read a Java window's accessible element tree",
	Long: `Read the accessible element tree of a Java window and print it as YAML
or JSON. Elements carry stable ids usable with the find, click, and action
commands within the same invocation chain.`,
	RunE: runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)
	addWindowFlags(readCmd)
	readCmd.Flags().Int("depth", 0, "Max depth to traverse (0 = unlimited)")
	readCmd.Flags().Bool("visible-only", false, "Only include visible children")
	readCmd.Flags().String("roles", "", "Comma-separated roles to include (e.g. \"push button,text\")")
	readCmd.Flags().String("bbox", "", "Only include elements intersecting bounding box x,y,w,h")
	readCmd.Flags().String("text", "", "Only include elements whose name or description contains this text")
	readCmd.Flags().Bool("prune", false, "Collapse anonymous single-child containers")
	readCmd.Flags().Bool("flat", false, "Flatten the tree into a list with role paths")
	readCmd.Flags().Bool("dialog", false, "Read only the active modal dialog, if one is showing")
}

func runRead(cmd *cobra.Command, args []string) error {
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
	visibleOnly, _ := cmd.Flags().GetBool("visible-only")
	rolesStr, _ := cmd.Flags().GetString("roles")
	bboxStr, _ := cmd.Flags().GetString("bbox")
	text, _ := cmd.Flags().GetString("text")
	prune, _ := cmd.Flags().GetBool("prune")
	flat, _ := cmd.Flags().GetBool("flat")
	dialog, _ := cmd.Flags().GetBool("dialog")

	el, err := d.Snapshot(root, tree.SnapshotOptions{MaxDepth: depth, VisibleOnly: visibleOnly})
	if err != nil {
		return err
	}

	elements := []model.Element{el}
	if dialog {
		modal := model.DetectModalDialog(&el)
		if modal == nil {
			return fmt.Errorf("no modal dialog is showing in window %q", d.Window().Title)
		}
		elements = []model.Element{*modal}
	}

	var roles []string
	if rolesStr != "" {
		for _, r := range strings.Split(rolesStr, ",") {
			if r = strings.TrimSpace(r); r != "" {
				roles = append(roles, r)
			}
		}
	}
	bbox, err := parseBBox(bboxStr)
	if err != nil {
		return err
	}
	if len(roles) > 0 || bbox != nil {
		elements = model.FilterElements(elements, roles, bbox)
	}
	if text != "" {
		elements = model.FilterByText(elements, text)
	}
	if prune {
		elements = model.PruneAnonymousContainers(elements)
	}

	win := d.Window()
	if flat {
		return output.Print(output.ReadFlatResult{
			Window:   win.Title,
			PID:      win.PID,
			TS:       time.Now().Unix(),
			Elements: model.Flatten(elements),
		})
	}
	return output.Print(output.ReadResult{
		Window:   win.Title,
		PID:      win.PID,
		TS:       time.Now().Unix(),
		Elements: elements,
	})
}

// parseBBox parses "x,y,w,h" into a bounding box, nil when unset.
func parseBBox(s string) (*[4]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid bbox %q: want x,y,w,h", s)
	}
	var box [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid bbox %q: %w", s, err)
		}
		box[i] = n
	}
	return &box, nil
}
