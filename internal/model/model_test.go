package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseStates(t *testing.T) {
	tests := []struct {
		in   string
		want StateSet
	}{
		{"", nil},
		{"enabled", StateSet{"enabled"}},
		{"enabled,focusable,visible,showing", StateSet{"enabled", "focusable", "visible", "showing"}},
		{" enabled , visible ", StateSet{"enabled", "visible"}},
		{",,enabled,", StateSet{"enabled"}},
	}
	for _, tt := range tests {
		if got := ParseStates(tt.in); !got.Equal(tt.want) {
			t.Errorf("ParseStates(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStateSetEqualIgnoresOrder(t *testing.T) {
	a := ParseStates("enabled,visible,showing")
	b := ParseStates("showing,enabled,visible")
	if !a.Equal(b) {
		t.Errorf("%v and %v should be equal", a, b)
	}
	c := ParseStates("enabled,visible")
	if a.Equal(c) {
		t.Errorf("%v and %v should differ", a, c)
	}
}

func TestStateSetString(t *testing.T) {
	got := ParseStates("visible,enabled,showing").String()
	if got != "enabled,showing,visible" {
		t.Errorf("String() = %q, want sorted join", got)
	}
}

func TestNodeAttribute(t *testing.T) {
	n := &Node{
		Role:        RolePushButton,
		Name:        "OK",
		Description: "confirm",
		States:      ParseStates("enabled,visible"),
	}
	tests := []struct {
		attr string
		want string
		ok   bool
	}{
		{"name", "OK", true},
		{"role", "push button", true},
		{"description", "confirm", true},
		{"states", "enabled,visible", true},
		{"subrole", "", false},
	}
	for _, tt := range tests {
		got, ok := n.Attribute(tt.attr)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Attribute(%q) = %q, %v; want %q, %v", tt.attr, got, ok, tt.want, tt.ok)
		}
	}
}

func TestIsKnownRole(t *testing.T) {
	for _, role := range []string{RolePushButton, RoleInternalFrame, RoleFiller, RolePageTabList} {
		if !IsKnownRole(role) {
			t.Errorf("IsKnownRole(%q) = false", role)
		}
	}
	for _, role := range []string{"button", "Push Button", "AXButton", ""} {
		if IsKnownRole(role) {
			t.Errorf("IsKnownRole(%q) = true", role)
		}
	}
}

func TestRectCenter(t *testing.T) {
	x, y := (Rect{X: 100, Y: 200, Width: 80, Height: 40}).Center()
	if x != 140 || y != 220 {
		t.Errorf("Center() = (%d, %d), want (140, 220)", x, y)
	}
	if !(Rect{}).Empty() {
		t.Error("zero rect should be empty")
	}
}

func sampleTree() []Element {
	return []Element{{
		ID: 0, Role: RoleFrame, Name: "Main",
		Children: []Element{
			{ID: 1, Role: RolePanel,
				Children: []Element{
					{ID: 2, Role: RolePushButton, Name: "Save", Bounds: [4]int{10, 10, 50, 20}},
					{ID: 3, Role: RoleLabel, Name: "status: idle"},
				},
			},
			{ID: 4, Role: RolePushButton, Name: "Close", Bounds: [4]int{500, 10, 50, 20}},
		},
	}}
}

func TestFlatten(t *testing.T) {
	flat := Flatten(sampleTree())
	if len(flat) != 5 {
		t.Fatalf("flattened %d elements, want 5", len(flat))
	}
	if flat[2].Name != "Save" || flat[2].Path != "frame > panel > push button" {
		t.Errorf("flat[2] = %+v, want Save with full breadcrumb", flat[2])
	}
	if flat[4].Path != "frame > push button" {
		t.Errorf("flat[4].Path = %q", flat[4].Path)
	}
}

func TestFilterElementsByRole(t *testing.T) {
	got := FilterElements(sampleTree(), []string{RolePushButton}, nil)
	var names []string
	for _, el := range got {
		names = append(names, el.Name)
	}
	if diff := cmp.Diff([]string{"Save", "Close"}, names); diff != "" {
		t.Errorf("role filter mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterElementsByBounds(t *testing.T) {
	bbox := [4]int{0, 0, 100, 100}
	got := FilterElements(sampleTree(), []string{RolePushButton}, &bbox)
	if len(got) != 1 || got[0].Name != "Save" {
		t.Errorf("bbox filter = %+v, want only Save", got)
	}
}

func TestFilterByText(t *testing.T) {
	got := FilterByText(sampleTree(), "IDLE")
	if len(got) != 1 {
		t.Fatalf("got %d roots, want the ancestry of the match", len(got))
	}
	leaf := got[0].Children[0].Children[0]
	if leaf.Name != "status: idle" {
		t.Errorf("matched leaf = %+v", leaf)
	}
}

func TestPruneAnonymousContainers(t *testing.T) {
	tree := []Element{{
		ID: 0, Role: RoleFrame, Name: "Main",
		Children: []Element{
			{ID: 1, Role: RoleRootPane,
				Children: []Element{
					{ID: 2, Role: RoleLayeredPane,
						Children: []Element{
							{ID: 3, Role: RolePanel, Name: "toolbar",
								Children: []Element{
									{ID: 4, Role: RolePushButton, Name: "Save"},
								},
							},
							{ID: 5, Role: RoleFiller},
						},
					},
				},
			},
		},
	}}
	got := PruneAnonymousContainers(tree)
	if len(got) != 1 || got[0].Role != RoleFrame {
		t.Fatalf("frame must survive, got %+v", got)
	}
	// root pane, layered pane and filler collapse; the named panel stays.
	if len(got[0].Children) != 1 || got[0].Children[0].Name != "toolbar" {
		t.Errorf("children = %+v, want the named toolbar panel promoted", got[0].Children)
	}
}

func TestDiffElements(t *testing.T) {
	prev := []FlatElement{
		{ID: 1, Role: "label", Name: "status: idle"},
		{ID: 2, Role: "push button", Name: "Save"},
	}
	curr := []FlatElement{
		{ID: 1, Role: "label", Name: "status: saving"},
		{ID: 3, Role: "progress bar", Name: "", Path: "frame > progress bar"},
	}
	changes := DiffElements(prev, curr)

	byType := map[ChangeType]int{}
	for _, c := range changes {
		byType[c.Type]++
	}
	if byType[ChangeChanged] != 1 || byType[ChangeAdded] != 1 || byType[ChangeRemoved] != 1 {
		t.Fatalf("changes = %+v, want one of each kind", changes)
	}
	for _, c := range changes {
		switch c.Type {
		case ChangeChanged:
			if got := c.Changes["n"]; got != [2]string{"status: idle", "status: saving"} {
				t.Errorf("changed fields = %+v", c.Changes)
			}
		case ChangeRemoved:
			if c.ID != 2 || c.Name != "Save" {
				t.Errorf("removed = %+v", c)
			}
		}
	}
}

func TestDiffElementsNoChanges(t *testing.T) {
	flat := Flatten(sampleTree())
	if changes := DiffElements(flat, flat); len(changes) != 0 {
		t.Errorf("identical reads produced %d changes", len(changes))
	}
}

func TestDetectModalDialog(t *testing.T) {
	tests := []struct {
		name string
		root Element
		want string // dialog name, "" for none
	}{
		{
			name: "no dialog",
			root: sampleTree()[0],
			want: "",
		},
		{
			name: "modal dialog by role and state",
			root: Element{
				Role: RoleFrame, Bounds: [4]int{0, 0, 800, 600},
				Children: []Element{
					{Role: RolePanel, Bounds: [4]int{0, 0, 800, 600}},
					{Role: RoleDialog, Name: "Confirm", States: "modal,visible", Bounds: [4]int{300, 250, 200, 100}},
				},
			},
			want: "Confirm",
		},
		{
			name: "nested file chooser",
			root: Element{
				Role: RoleFrame,
				Children: []Element{
					{Role: RolePanel,
						Children: []Element{
							{Role: RoleFileChooser, Name: "Open File"},
						},
					},
				},
			},
			want: "Open File",
		},
		{
			name: "centered undersized child without dialog role",
			root: Element{
				Role: RoleFrame, Bounds: [4]int{0, 0, 800, 600},
				Children: []Element{
					{Role: RolePanel, Bounds: [4]int{0, 0, 800, 600}},
					{Role: RolePanel, Name: "popup", Bounds: [4]int{300, 250, 200, 100}},
				},
			},
			want: "popup",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectModalDialog(&tt.root)
			switch {
			case tt.want == "" && got != nil:
				t.Errorf("detected %+v, want none", got)
			case tt.want != "" && (got == nil || got.Name != tt.want):
				t.Errorf("detected %+v, want %q", got, tt.want)
			}
		})
	}
}

func TestCountAndFindByID(t *testing.T) {
	tree := sampleTree()
	if n := CountElements(tree); n != 5 {
		t.Errorf("CountElements = %d, want 5", n)
	}
	if el := FindElementByID(tree, 3); el == nil || el.Name != "status: idle" {
		t.Errorf("FindElementByID(3) = %+v", el)
	}
	if el := FindElementByID(tree, 99); el != nil {
		t.Errorf("FindElementByID(99) = %+v, want nil", el)
	}
}
