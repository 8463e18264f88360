package model

// dialogRoles are accessible roles that present as a blocking surface over
// the main frame content.
var dialogRoles = map[string]bool{
	RoleDialog:       true,
	RoleAlert:        true,
	RoleFileChooser:  true,
	RoleColorChooser: true,
}

// DetectModalDialog examines a read of the window for a dialog that should
// be the working scope: when a Swing app opens a modal dialog, actions
// against the frame underneath go nowhere.
//
// Strategies, in order:
//  1. Role-based: a child (or grandchild) with a dialog role, preferring one
//     whose states include "modal".
//  2. Bounds-based: a non-first top-level child meaningfully smaller than
//     the window and roughly centered in it, the classic dialog shape.
//
// Returns nil when no dialog is present.
func DetectModalDialog(root *Element) *Element {
	if root == nil || len(root.Children) == 0 {
		return nil
	}

	var firstDialog *Element
	for i := range root.Children {
		child := &root.Children[i]
		candidates := []*Element{child}
		for j := range child.Children {
			candidates = append(candidates, &child.Children[j])
		}
		for _, c := range candidates {
			if !dialogRoles[c.Role] {
				continue
			}
			if hasState(c.States, StateModal) {
				return c
			}
			if firstDialog == nil {
				firstDialog = c
			}
		}
	}
	if firstDialog != nil {
		return firstDialog
	}

	for i := 1; i < len(root.Children); i++ {
		child := &root.Children[i]
		if isDialogSized(child, root) && isCentered(child, root) {
			return child
		}
	}
	return nil
}

func hasState(states, want string) bool {
	return StateSet(ParseStates(states)).Has(want)
}

// isDialogSized reports whether the candidate is meaningfully smaller than
// the window, under 80% in at least one dimension.
func isDialogSized(candidate, window *Element) bool {
	winW, winH := window.Bounds[2], window.Bounds[3]
	candW, candH := candidate.Bounds[2], candidate.Bounds[3]
	if winW == 0 || winH == 0 || candW == 0 || candH == 0 {
		return false
	}
	return candW < winW*80/100 || candH < winH*80/100
}

// isCentered reports whether the candidate's center sits within a quarter of
// the window's size from the window's center.
func isCentered(candidate, window *Element) bool {
	winCX := window.Bounds[0] + window.Bounds[2]/2
	winCY := window.Bounds[1] + window.Bounds[3]/2
	candCX := candidate.Bounds[0] + candidate.Bounds[2]/2
	candCY := candidate.Bounds[1] + candidate.Bounds[3]/2

	dx := candCX - winCX
	if dx < 0 {
		dx = -dx
	}
	dy := candCY - winCY
	if dy < 0 {
		dy = -dy
	}
	return dx <= window.Bounds[2]/4 && dy <= window.Bounds[3]/4
}
