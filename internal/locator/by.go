// Package locator turns search criteria into elements. It validates a
// locator fully before any tree traversal, then drives the navigator to find
// matching nodes.
package locator

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/openjab/jab-cli/internal/model"
)

// ErrInvalidLocator flags a malformed locator. It is always raised before the
// first bridge call of a search.
var ErrInvalidLocator = errors.New("invalid locator")

// ErrNotFound reports that a well-formed search matched nothing. It is an
// expected outcome, not a failure of the bridge.
var ErrNotFound = errors.New("no element matched")

// Strategy names how a locator value is interpreted.
type Strategy string

const (
	ByName          Strategy = "name"
	ByDescription   Strategy = "description"
	ByRole          Strategy = "role"
	ByStates        Strategy = "states"
	ByObjectDepth   Strategy = "objectdepth"
	ByChildCount    Strategy = "childrencount"
	ByIndexInParent Strategy = "indexinparent"
	ByXPath         Strategy = "xpath"
)

// Locator pairs a strategy with its value. VisibleOnly restricts the search
// to visible children, which skips scrolled-out rows in large tables and
// lists.
type Locator struct {
	By          Strategy
	Value       string
	VisibleOnly bool
}

// String renders the locator for error messages and logs.
func (l Locator) String() string {
	return fmt.Sprintf("%s=%q", l.By, l.Value)
}

// matcher reports whether a node satisfies a simple (non-xpath) locator.
type matcher func(n *model.Node) bool

// compile validates a simple locator and returns its match predicate.
// Comparison is literal: exact, case-sensitive byte equality. Substring or
// normalized matching is only available through xpath contains().
func compile(loc Locator) (matcher, error) {
	switch loc.By {
	case ByName:
		return func(n *model.Node) bool { return n.Name == loc.Value }, nil
	case ByDescription:
		return func(n *model.Node) bool { return n.Description == loc.Value }, nil
	case ByRole:
		return func(n *model.Node) bool { return n.Role == loc.Value }, nil
	case ByStates:
		want := model.ParseStates(loc.Value)
		return func(n *model.Node) bool { return n.States.Equal(want) }, nil
	case ByObjectDepth:
		depth, err := atoiValue(loc)
		return func(n *model.Node) bool { return n.Depth == depth }, err
	case ByChildCount:
		count, err := atoiValue(loc)
		return func(n *model.Node) bool { return n.ChildCount == count }, err
	case ByIndexInParent:
		index, err := atoiValue(loc)
		return func(n *model.Node) bool { return n.IndexInParent == index }, err
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidLocator, loc.By)
	}
}

func atoiValue(loc Locator) (int, error) {
	v, err := strconv.Atoi(loc.Value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s wants an integer, got %q", ErrInvalidLocator, loc.By, loc.Value)
	}
	return v, nil
}
