package model

// FlatElement is an element with a path breadcrumb instead of children.
type FlatElement struct {
	ID          int    `yaml:"i"            json:"i"`
	Role        string `yaml:"r"            json:"r"`
	Name        string `yaml:"n,omitempty"  json:"n,omitempty"`
	Description string `yaml:"d,omitempty"  json:"d,omitempty"`
	Bounds      [4]int `yaml:"b"            json:"b"`
	States      string `yaml:"s,omitempty"  json:"s,omitempty"`
	Path        string `yaml:"p,omitempty"  json:"p,omitempty"`
}

// Flatten converts an element tree into a flat list in depth-first order.
// Each entry carries a breadcrumb of ancestor roles joined with " > ", so an
// agent reading the flat form still sees where an element sits.
func Flatten(elements []Element) []FlatElement {
	var out []FlatElement
	for _, el := range elements {
		flattenInto(el, "", &out)
	}
	return out
}

func flattenInto(el Element, parentPath string, out *[]FlatElement) {
	path := el.Role
	if parentPath != "" {
		path = parentPath + " > " + el.Role
	}
	*out = append(*out, FlatElement{
		ID:          el.ID,
		Role:        el.Role,
		Name:        el.Name,
		Description: el.Description,
		Bounds:      el.Bounds,
		States:      el.States,
		Path:        path,
	})
	for _, child := range el.Children {
		flattenInto(child, path, out)
	}
}
