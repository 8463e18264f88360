// Package output serializes command results to stdout as YAML or JSON.
// YAML is the default: it is the cheapest format for agents to read.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/openjab/jab-cli/internal/model"
)

// Format represents the output format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// OutputFormat is the current output format, set by the root command's
// --format flag.
var OutputFormat Format = FormatYAML

// PrettyOutput enables pretty-printing for JSON output.
var PrettyOutput bool

// Writer receives all output; commands never print results elsewhere.
// Tests swap it for a buffer.
var Writer io.Writer = os.Stdout

// ReadResult is the top-level output of the `read` command.
type ReadResult struct {
	Window   string          `yaml:"window,omitempty" json:"window,omitempty"`
	PID      int32           `yaml:"pid,omitempty"    json:"pid,omitempty"`
	Process  string          `yaml:"process,omitempty" json:"process,omitempty"`
	TS       int64           `yaml:"ts"               json:"ts"`
	Elements []model.Element `yaml:"elements"         json:"elements"`
}

// ReadFlatResult is the top-level output when --flat is used.
type ReadFlatResult struct {
	Window   string              `yaml:"window,omitempty" json:"window,omitempty"`
	PID      int32               `yaml:"pid,omitempty"    json:"pid,omitempty"`
	Process  string              `yaml:"process,omitempty" json:"process,omitempty"`
	TS       int64               `yaml:"ts"               json:"ts"`
	Elements []model.FlatElement `yaml:"elements"         json:"elements"`
}

// WindowsResult is the top-level output of the `windows` command.
type WindowsResult struct {
	TS      int64          `yaml:"ts"      json:"ts"`
	Windows []model.Window `yaml:"windows" json:"windows"`
}

// ActionResult reports the outcome of an interaction command.
type ActionResult struct {
	OK      bool   `yaml:"ok"                json:"ok"`
	Action  string `yaml:"action,omitempty"  json:"action,omitempty"`
	Target  string `yaml:"target,omitempty"  json:"target,omitempty"`
	Message string `yaml:"message,omitempty" json:"message,omitempty"`
}

// Print serializes v in the current output format.
func Print(v interface{}) error {
	switch OutputFormat {
	case FormatJSON:
		return PrintJSON(v, PrettyOutput)
	case FormatYAML:
		return PrintYAML(v)
	default:
		return fmt.Errorf("unsupported output format: %s", OutputFormat)
	}
}

// PrintJSON serializes v as JSON, single-line unless pretty.
func PrintJSON(v interface{}, pretty bool) error {
	enc := json.NewEncoder(Writer)
	if pretty {
		enc.SetIndent("", "  ")
	}
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}

// PrintYAML serializes v as YAML.
func PrintYAML(v interface{}) error {
	enc := yaml.NewEncoder(Writer)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}
	return enc.Close()
}
