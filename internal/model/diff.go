package model

import (
	"fmt"
	"time"
)

// ChangeType classifies one detected UI change.
type ChangeType string

const (
	ChangeAdded   ChangeType = "added"
	ChangeRemoved ChangeType = "removed"
	ChangeChanged ChangeType = "changed"
)

// UIChange is a single difference between two reads of the same window.
type UIChange struct {
	Type    ChangeType           `json:"type" yaml:"type"`
	TS      int64                `json:"ts" yaml:"ts"`
	Element *FlatElement         `json:"el,omitempty" yaml:"el,omitempty"`
	Path    string               `json:"p,omitempty" yaml:"p,omitempty"`
	ID      int                  `json:"id,omitempty" yaml:"id,omitempty"`
	Role    string               `json:"r,omitempty" yaml:"r,omitempty"`
	Name    string               `json:"n,omitempty" yaml:"n,omitempty"`
	Changes map[string][2]string `json:"changes,omitempty" yaml:"changes,omitempty"`
}

// DiffElements compares two flat reads and reports what appeared, went away
// or changed. Elements are matched by their traversal id.
func DiffElements(prev, curr []FlatElement) []UIChange {
	prevMap := make(map[int]FlatElement, len(prev))
	for _, el := range prev {
		prevMap[el.ID] = el
	}
	currMap := make(map[int]FlatElement, len(curr))
	for _, el := range curr {
		currMap[el.ID] = el
	}

	var changes []UIChange
	now := time.Now().Unix()

	for _, el := range curr {
		before, existed := prevMap[el.ID]
		if !existed {
			elCopy := el
			changes = append(changes, UIChange{
				Type:    ChangeAdded,
				TS:      now,
				Element: &elCopy,
				Path:    el.Path,
			})
			continue
		}
		if diffs := diffProperties(before, el); len(diffs) > 0 {
			changes = append(changes, UIChange{
				Type:    ChangeChanged,
				TS:      now,
				ID:      el.ID,
				Changes: diffs,
			})
		}
	}

	for _, el := range prev {
		if _, exists := currMap[el.ID]; !exists {
			changes = append(changes, UIChange{
				Type: ChangeRemoved,
				TS:   now,
				ID:   el.ID,
				Role: el.Role,
				Name: el.Name,
			})
		}
	}

	return changes
}

func diffProperties(prev, curr FlatElement) map[string][2]string {
	diffs := make(map[string][2]string)
	if prev.Name != curr.Name {
		diffs["n"] = [2]string{prev.Name, curr.Name}
	}
	if prev.Role != curr.Role {
		diffs["r"] = [2]string{prev.Role, curr.Role}
	}
	if prev.Description != curr.Description {
		diffs["d"] = [2]string{prev.Description, curr.Description}
	}
	if prev.States != curr.States {
		diffs["s"] = [2]string{prev.States, curr.States}
	}
	if prev.Bounds != curr.Bounds {
		diffs["b"] = [2]string{
			fmt.Sprintf("%v", prev.Bounds),
			fmt.Sprintf("%v", curr.Bounds),
		}
	}
	if len(diffs) == 0 {
		return nil
	}
	return diffs
}
