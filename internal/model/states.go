package model

import (
	"sort"
	"strings"
)

// Accessible state flags as reported by the bridge (en_US state strings).
const (
	StateActive     = "active"
	StateArmed      = "armed"
	StateBusy       = "busy"
	StateChecked    = "checked"
	StateCollapsed  = "collapsed"
	StateEditable   = "editable"
	StateEnabled    = "enabled"
	StateExpandable = "expandable"
	StateExpanded   = "expanded"
	StateFocusable  = "focusable"
	StateFocused    = "focused"
	StateHorizontal = "horizontal"
	StateIconified  = "iconified"
	StateModal      = "modal"
	StateMultiLine  = "multiple line"
	StatePressed    = "pressed"
	StateResizable  = "resizable"
	StateSelectable = "selectable"
	StateSelected   = "selected"
	StateShowing    = "showing"
	StateVertical   = "vertical"
	StateVisible    = "visible"
)

// StateSet is the set of state flags on an accessible element.
type StateSet []string

// ParseStates splits the bridge's comma-joined state string into a StateSet.
func ParseStates(s string) StateSet {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	set := make(StateSet, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			set = append(set, p)
		}
	}
	return set
}

// Has reports whether the set contains the given state.
func (s StateSet) Has(state string) bool {
	for _, st := range s {
		if st == state {
			return true
		}
	}
	return false
}

// HasAll reports whether the set contains every given state.
func (s StateSet) HasAll(states ...string) bool {
	for _, st := range states {
		if !s.Has(st) {
			return false
		}
	}
	return true
}

// Equal reports whether two sets contain the same states, order-insensitive.
func (s StateSet) Equal(other StateSet) bool {
	if len(s) != len(other) {
		return false
	}
	for _, st := range other {
		if !s.Has(st) {
			return false
		}
	}
	return true
}

// String joins the states with commas in sorted order.
func (s StateSet) String() string {
	sorted := make([]string, len(s))
	copy(sorted, s)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
