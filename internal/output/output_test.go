package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/openjab/jab-cli/internal/model"
)

func capture(t *testing.T, format Format, pretty bool, v interface{}) string {
	t.Helper()
	var buf bytes.Buffer
	oldWriter, oldFormat, oldPretty := Writer, OutputFormat, PrettyOutput
	Writer, OutputFormat, PrettyOutput = &buf, format, pretty
	defer func() { Writer, OutputFormat, PrettyOutput = oldWriter, oldFormat, oldPretty }()

	if err := Print(v); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func sampleRead() ReadResult {
	return ReadResult{
		Window:  "Login Screen",
		PID:     1234,
		Process: "javaw.exe",
		TS:      1707500000,
		Elements: []model.Element{
			{ID: 0, Role: "frame", Name: "Login Screen", Bounds: [4]int{0, 0, 400, 300},
				Children: []model.Element{
					{ID: 1, Role: "push button", Name: "OK", Bounds: [4]int{10, 20, 100, 30}},
				},
			},
		},
	}
}

func TestPrintYAML(t *testing.T) {
	got := capture(t, FormatYAML, false, sampleRead())
	for _, want := range []string{"window: Login Screen", "r: push button", "n: OK"} {
		if !strings.Contains(got, want) {
			t.Errorf("yaml output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "d:") {
		t.Errorf("empty description must be omitted:\n%s", got)
	}
}

func TestPrintJSONCompact(t *testing.T) {
	got := capture(t, FormatJSON, false, sampleRead())
	if lines := strings.Count(strings.TrimRight(got, "\n"), "\n"); lines != 0 {
		t.Errorf("compact json should be one line, got %d extra:\n%s", lines, got)
	}
	if !strings.Contains(got, `"n":"OK"`) {
		t.Errorf("json output missing element name:\n%s", got)
	}
}

func TestPrintJSONPretty(t *testing.T) {
	got := capture(t, FormatJSON, true, sampleRead())
	if !strings.Contains(got, "\n  ") {
		t.Errorf("pretty json should be indented:\n%s", got)
	}
}

func TestPrintUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	oldWriter, oldFormat := Writer, OutputFormat
	Writer, OutputFormat = &buf, Format("xml")
	defer func() { Writer, OutputFormat = oldWriter, oldFormat }()

	if err := Print(sampleRead()); err == nil {
		t.Error("unknown format should error")
	}
}
