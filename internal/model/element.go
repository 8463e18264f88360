package model

// Element is the serializable form of an accessible subtree, used by the CLI
// read output and the MCP tools. Field tags are kept short to limit token
// usage for agents consuming the output.
type Element struct {
	ID          int       `yaml:"i"               json:"i"`
	Role        string    `yaml:"r"               json:"r"`
	Name        string    `yaml:"n,omitempty"     json:"n,omitempty"`
	Description string    `yaml:"d,omitempty"     json:"d,omitempty"`
	Bounds      [4]int    `yaml:"b"               json:"b"`
	States      string    `yaml:"s,omitempty"     json:"s,omitempty"`
	Index       int       `yaml:"x,omitempty"     json:"x,omitempty"`
	Children    []Element `yaml:"c,omitempty"     json:"c,omitempty"`
}

// CountElements returns the total number of elements in the forest,
// children included.
func CountElements(elements []Element) int {
	n := 0
	for _, el := range elements {
		n += 1 + CountElements(el.Children)
	}
	return n
}

// FindElementByID searches the forest for the element with the given ID.
func FindElementByID(elements []Element, id int) *Element {
	for i := range elements {
		if elements[i].ID == id {
			return &elements[i]
		}
		if found := FindElementByID(elements[i].Children, id); found != nil {
			return found
		}
	}
	return nil
}
