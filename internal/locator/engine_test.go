package locator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openjab/jab-cli/internal/bridge/bridgetest"
	"github.com/openjab/jab-cli/internal/gateway"
	"github.com/openjab/jab-cli/internal/model"
	"github.com/openjab/jab-cli/internal/registry"
	"github.com/openjab/jab-cli/internal/tree"
)

func newEngine(t *testing.T, fake *bridgetest.Fake, root *bridgetest.FakeNode) (*Engine, *model.Node) {
	t.Helper()
	g := gateway.New(fake, registry.New(), "test-session")
	require.NoError(t, g.Start())
	t.Cleanup(func() { _ = g.Close() })

	nv := tree.New(g)
	rootNode, err := nv.Node(g.Register(fake.HandleFor(root)), 0)
	require.NoError(t, err)
	return NewEngine(nv), rootNode
}

func loginScreen() *bridgetest.FakeNode {
	return bridgetest.N("root pane", "app",
		bridgetest.N("window", "Login Screen",
			bridgetest.N("push button", "Cancel"),
			bridgetest.N("push button", "OK"),
		),
		bridgetest.N("window", "About"),
	)
}

func TestFindByNameReturnsNearestMatch(t *testing.T) {
	root := bridgetest.N("frame", "Main",
		bridgetest.N("panel", "outer",
			bridgetest.N("push button", "OK"), // depth 2
		),
		bridgetest.N("push button", "OK"), // depth 1
	)
	e, rootNode := newEngine(t, bridgetest.NewFake("Main", root), root)

	got, err := e.Find(rootNode, Locator{By: ByName, Value: "OK"})
	require.NoError(t, err)
	require.Equal(t, 1, got.Depth, "breadth-first search returns the shallower match")
}

func TestFindIsExactCaseSensitive(t *testing.T) {
	root := bridgetest.N("frame", "Main",
		bridgetest.N("push button", "ok"),
		bridgetest.N("push button", "OK now"),
	)
	e, rootNode := newEngine(t, bridgetest.NewFake("Main", root), root)

	_, err := e.Find(rootNode, Locator{By: ByName, Value: "OK"})
	require.True(t, errors.Is(err, ErrNotFound), "neither case variant nor superstring may match, got %v", err)
}

func TestFindAllByRole(t *testing.T) {
	root := bridgetest.N("frame", "Main",
		bridgetest.N("panel", "a",
			bridgetest.N("push button", "deep"),
		),
		bridgetest.N("push button", "shallow"),
	)
	e, rootNode := newEngine(t, bridgetest.NewFake("Main", root), root)

	got, err := e.FindAll(rootNode, Locator{By: ByRole, Value: "push button"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "shallow", got[0].Name, "traversal order is breadth-first")
	require.Equal(t, "deep", got[1].Name)
}

func TestFindAllNoMatchIsEmptyNotError(t *testing.T) {
	root := bridgetest.N("frame", "Main")
	e, rootNode := newEngine(t, bridgetest.NewFake("Main", root), root)

	got, err := e.FindAll(rootNode, Locator{By: ByName, Value: "nothing"})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFindByStatesIgnoresOrder(t *testing.T) {
	root := bridgetest.N("frame", "Main",
		bridgetest.N("push button", "a").WithStates("enabled,visible,showing"),
		bridgetest.N("push button", "b").WithStates("enabled"),
	)
	e, rootNode := newEngine(t, bridgetest.NewFake("Main", root), root)

	got, err := e.Find(rootNode, Locator{By: ByStates, Value: "showing,enabled,visible"})
	require.NoError(t, err)
	require.Equal(t, "a", got.Name)
}

func TestFindByNumericStrategies(t *testing.T) {
	root := bridgetest.N("frame", "Main",
		bridgetest.N("panel", "two-kids",
			bridgetest.N("label", "first"),
			bridgetest.N("label", "second"),
		),
	)
	e, rootNode := newEngine(t, bridgetest.NewFake("Main", root), root)

	got, err := e.Find(rootNode, Locator{By: ByChildCount, Value: "2"})
	require.NoError(t, err)
	require.Equal(t, "two-kids", got.Name)

	got, err = e.Find(rootNode, Locator{By: ByIndexInParent, Value: "1"})
	require.NoError(t, err)
	require.Equal(t, "second", got.Name)

	got, err = e.Find(rootNode, Locator{By: ByObjectDepth, Value: "2"})
	require.NoError(t, err)
	require.Equal(t, "first", got.Name, "breadth-first order within a depth level")
}

func TestInvalidLocatorFailsBeforeTraversal(t *testing.T) {
	root := bridgetest.N("frame", "Main",
		bridgetest.N("push button", "OK"),
	)
	fake := bridgetest.NewFake("Main", root)
	e, rootNode := newEngine(t, fake, root)

	before := fake.CallCount("ChildContext")
	for _, loc := range []Locator{
		{By: ByChildCount, Value: "many"},
		{By: "nonsense", Value: "x"},
		{By: ByXPath, Value: "button[@name='OK']"},
	} {
		_, err := e.Find(rootNode, loc)
		require.True(t, errors.Is(err, ErrInvalidLocator), "locator %s: got %v", loc, err)
	}
	require.Equal(t, before, fake.CallCount("ChildContext"), "invalid locators must not touch the tree")
}

func TestFindByXPath(t *testing.T) {
	root := loginScreen()
	e, rootNode := newEngine(t, bridgetest.NewFake("app", root), root)

	got, err := e.Find(rootNode, Locator{
		By:    ByXPath,
		Value: "window[@name=contains('Login')]/push button[@name='OK']",
	})
	require.NoError(t, err)
	require.Equal(t, "OK", got.Name)
	require.Equal(t, "push button", got.Role)
}

func TestFindByXPathWildcardIndex(t *testing.T) {
	root := loginScreen()
	e, rootNode := newEngine(t, bridgetest.NewFake("app", root), root)

	got, err := e.Find(rootNode, Locator{By: ByXPath, Value: "window[@name='Login Screen']/*[2]"})
	require.NoError(t, err)
	require.Equal(t, "OK", got.Name, "positional index is 1-based")

	_, err = e.Find(rootNode, Locator{By: ByXPath, Value: "window[@name='Login Screen']/*[3]"})
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestFindByXPathCommitsToFirstBranch(t *testing.T) {
	root := bridgetest.N("root pane", "app",
		bridgetest.N("window", "Empty"),
		bridgetest.N("window", "Full",
			bridgetest.N("push button", "OK"),
		),
	)
	e, rootNode := newEngine(t, bridgetest.NewFake("app", root), root)

	// Each step of a single find is greedy: "window" commits to the first
	// window, and its dead end is NotFound, not a cue to try the sibling.
	_, err := e.Find(rootNode, Locator{By: ByXPath, Value: "window/push button"})
	require.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	// FindAll keeps the whole frontier and still sees the later branch.
	got, err := e.FindAll(rootNode, Locator{By: ByXPath, Value: "window/push button"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "OK", got[0].Name)
}

func TestFindAllByXPathAcrossParents(t *testing.T) {
	root := bridgetest.N("root pane", "app",
		bridgetest.N("panel", "left",
			bridgetest.N("push button", "L1"),
			bridgetest.N("push button", "L2"),
		),
		bridgetest.N("panel", "right",
			bridgetest.N("push button", "R1"),
		),
	)
	e, rootNode := newEngine(t, bridgetest.NewFake("app", root), root)

	got, err := e.FindAll(rootNode, Locator{By: ByXPath, Value: "panel/push button"})
	require.NoError(t, err)
	names := make([]string, len(got))
	for i, n := range got {
		names[i] = n.Name
	}
	require.Equal(t, []string{"L1", "L2", "R1"}, names)

	// An index predicate applies per parent, not across the whole set.
	got, err = e.FindAll(rootNode, Locator{By: ByXPath, Value: "panel/push button[1]"})
	require.NoError(t, err)
	names = names[:0]
	for _, n := range got {
		names = append(names, n.Name)
	}
	require.Equal(t, []string{"L1", "R1"}, names)
}

func TestXPathMatchedElementStaysLive(t *testing.T) {
	root := loginScreen()
	fake := bridgetest.NewFake("app", root)
	e, rootNode := newEngine(t, fake, root)

	got, err := e.Find(rootNode, Locator{
		By:    ByXPath,
		Value: "window[@name=contains('Login')]/push button[@name='OK']",
	})
	require.NoError(t, err)

	// Intermediate handles went back to the bridge; the match did not.
	_, err = e.nv.Children(got)
	require.NoError(t, err)
	require.Greater(t, fake.ReleasedCount(), 0)
}

func TestFindVisibleOnlySkipsHiddenChildren(t *testing.T) {
	root := bridgetest.N("frame", "Main",
		bridgetest.N("table", "rows",
			bridgetest.N("label", "on screen"),
			bridgetest.N("label", "scrolled out").WithStates("enabled"),
		),
	)
	e, rootNode := newEngine(t, bridgetest.NewFake("Main", root), root)

	got, err := e.FindAll(rootNode, Locator{By: ByRole, Value: "label", VisibleOnly: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "on screen", got[0].Name)

	got, err = e.FindAll(rootNode, Locator{By: ByRole, Value: "label"})
	require.NoError(t, err)
	require.Len(t, got, 2, "the default traversal sees hidden children")
}

func TestFindIsDeterministic(t *testing.T) {
	root := loginScreen()
	e, rootNode := newEngine(t, bridgetest.NewFake("app", root), root)

	loc := Locator{By: ByName, Value: "OK"}
	first, err := e.Find(rootNode, loc)
	require.NoError(t, err)

	// The tree does not change between evaluations, so every repeat resolves
	// to the same element under the same stable id.
	for i := 0; i < 5; i++ {
		got, err := e.Find(rootNode, loc)
		require.NoError(t, err)
		require.Equal(t, first.Ref.ID, got.Ref.ID)
		require.Equal(t, first.Name, got.Name)
	}
}
