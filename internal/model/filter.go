package model

import "strings"

// FilterElements narrows an element forest by role set and bounding box.
// An element that fails the filters but has matching descendants is dropped
// with those descendants promoted in its place.
func FilterElements(elements []Element, roles []string, bbox *[4]int) []Element {
	if len(roles) == 0 && bbox == nil {
		return elements
	}
	roleSet := make(map[string]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}

	var result []Element
	for _, el := range elements {
		var kept []Element
		if len(el.Children) > 0 {
			kept = FilterElements(el.Children, roles, bbox)
		}
		roleOK := len(roleSet) == 0 || roleSet[el.Role]
		bboxOK := bbox == nil || boundsIntersect(el.Bounds, *bbox)
		if roleOK && bboxOK {
			filtered := el
			filtered.Children = kept
			result = append(result, filtered)
		} else if len(kept) > 0 {
			result = append(result, kept...)
		}
	}
	return result
}

// FilterByText keeps elements whose name or description contains text,
// case-insensitively, along with their matching ancestors.
func FilterByText(elements []Element, text string) []Element {
	if text == "" {
		return elements
	}
	needle := strings.ToLower(text)
	var result []Element
	for _, el := range elements {
		matched := strings.Contains(strings.ToLower(el.Name), needle) ||
			strings.Contains(strings.ToLower(el.Description), needle)
		childMatches := FilterByText(el.Children, text)
		if matched || len(childMatches) > 0 {
			filtered := el
			filtered.Children = childMatches
			result = append(result, filtered)
		}
	}
	return result
}

// structuralRoles are containers Swing inserts around everything. Nameless
// ones carry no information an agent can act on.
var structuralRoles = map[string]bool{
	RolePanel:      true,
	RoleFiller:     true,
	RoleViewport:   true,
	RoleScrollPane: true,
	RoleLayeredPane: true,
	RoleRootPane:   true,
}

func isAnonymousContainer(el Element) bool {
	return structuralRoles[el.Role] && el.Name == "" && el.Description == ""
}

// PruneAnonymousContainers removes nameless structural containers from a
// tree, promoting their children. Swing wraps every frame in root pane,
// layered pane and filler layers; dropping them keeps the output readable.
func PruneAnonymousContainers(elements []Element) []Element {
	var result []Element
	for _, el := range elements {
		pruned := PruneAnonymousContainers(el.Children)
		if isAnonymousContainer(el) {
			result = append(result, pruned...)
		} else {
			kept := el
			kept.Children = pruned
			result = append(result, kept)
		}
	}
	return result
}

// boundsIntersect checks whether two [x, y, width, height] rectangles overlap.
func boundsIntersect(a, b [4]int) bool {
	ax1, ay1, ax2, ay2 := a[0], a[1], a[0]+a[2], a[1]+a[3]
	bx1, by1, bx2, by2 := b[0], b[1], b[0]+b[2], b[1]+b[3]
	return ax1 < bx2 && ax2 > bx1 && ay1 < by2 && ay2 > by1
}
