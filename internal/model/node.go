package model

import "github.com/openjab/jab-cli/internal/registry"

// Rect is a screen rectangle in pixels.
type Rect struct {
	X      int `yaml:"x"      json:"x"`
	Y      int `yaml:"y"      json:"y"`
	Width  int `yaml:"width"  json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Node is a single accessible element materialized from the bridge: the
// registry reference that owns its native handle plus the property snapshot
// taken when the node was read. Children are not stored here; the tree
// package fetches them lazily.
type Node struct {
	Ref registry.Ref

	Role          string
	Name          string
	Description   string
	States        StateSet
	Bounds        Rect
	IndexInParent int
	ChildCount    int
	Depth         int

	// Capability flags from the accessible context info.
	SupportsAction bool
	SupportsText   bool
}

// Attribute returns a named property of the node, mirroring the locator
// attribute names. Unknown names return ok=false.
func (n *Node) Attribute(name string) (string, bool) {
	switch name {
	case "name":
		return n.Name, true
	case "description":
		return n.Description, true
	case "role":
		return n.Role, true
	case "states":
		return n.States.String(), true
	default:
		return "", false
	}
}
