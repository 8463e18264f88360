package locator

import (
	"fmt"

	"github.com/openjab/jab-cli/internal/model"
	"github.com/openjab/jab-cli/internal/tree"
)

// Engine resolves locators to live elements by driving the navigator.
// Searches run breadth-first, so a single find returns the match nearest the
// search root.
type Engine struct {
	nv *tree.Navigator
}

// NewEngine returns an engine over the given navigator.
func NewEngine(nv *tree.Navigator) *Engine {
	return &Engine{nv: nv}
}

// Find returns the first element under root matching the locator. The
// locator is validated before any traversal; a well-formed locator with no
// match reports ErrNotFound. The caller owns the returned node's handle.
func (e *Engine) Find(root *model.Node, loc Locator) (*model.Node, error) {
	matches, err := e.search(root, loc, true)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
	}
	return matches[0], nil
}

// FindAll returns every element under root matching the locator, in
// traversal order. No match is an empty slice, not an error. The caller owns
// every returned handle.
func (e *Engine) FindAll(root *model.Node, loc Locator) ([]*model.Node, error) {
	return e.search(root, loc, false)
}

// Validate checks a locator without searching. Used by callers that want to
// reject bad input before entering a wait loop.
func Validate(loc Locator) error {
	if loc.By == ByXPath {
		_, err := ParsePath(loc.Value)
		return err
	}
	_, err := compile(loc)
	return err
}

func (e *Engine) search(root *model.Node, loc Locator, firstOnly bool) ([]*model.Node, error) {
	if loc.By == ByXPath {
		path, err := ParsePath(loc.Value)
		if err != nil {
			return nil, err
		}
		return e.searchPath(root, path, loc.VisibleOnly, firstOnly)
	}
	match, err := compile(loc)
	if err != nil {
		return nil, err
	}

	var matches []*model.Node
	err = e.nv.WalkBFS(root, loc.VisibleOnly, func(n *model.Node) (tree.Decision, error) {
		if !match(n) {
			return tree.Skip, nil
		}
		matches = append(matches, n)
		if firstOnly {
			return tree.KeepStop, nil
		}
		return tree.Keep, nil
	})
	if err != nil {
		releaseAll(e.nv, matches)
		return nil, err
	}
	return matches, nil
}

// searchPath walks a parsed path level by level. Each step narrows a
// frontier of candidate parents to the children passing its role and
// attribute tests; a positional index picks among a parent's own matching
// children, the way sibling indexing works in xpath.
//
// A single find is greedy: each step commits to the first node matching its
// predicates at that level, so a path whose first-matched branch dead-ends
// reports no match rather than backtracking into later siblings. FindAll
// keeps the whole frontier and returns every terminal match.
func (e *Engine) searchPath(root *model.Node, path Path, visibleOnly, firstOnly bool) ([]*model.Node, error) {
	frontier := []*model.Node{root}
	for _, step := range path.Steps {
		var next []*model.Node
		for _, parent := range frontier {
			selected, err := e.stepChildren(parent, step, visibleOnly)
			if err != nil {
				releaseAll(e.nv, next)
				e.releaseFrontier(frontier, root)
				return nil, err
			}
			next = append(next, selected...)
		}
		e.releaseFrontier(frontier, root)
		if firstOnly && len(next) > 1 {
			releaseAll(e.nv, next[1:])
			next = next[:1]
		}
		frontier = next
		if len(frontier) == 0 {
			return nil, nil
		}
	}
	return frontier, nil
}

// stepChildren returns the children of parent selected by one step. Children
// not selected are released before returning.
func (e *Engine) stepChildren(parent *model.Node, step Step, visibleOnly bool) ([]*model.Node, error) {
	var children []*model.Node
	var err error
	if visibleOnly {
		children, err = e.nv.VisibleChildren(parent)
	} else {
		children, err = e.nv.Children(parent)
	}
	if err != nil {
		return nil, err
	}
	var matched []*model.Node
	for _, c := range children {
		if step.MatchAttrs(c) {
			matched = append(matched, c)
		} else {
			e.nv.Release(c)
		}
	}
	if step.Index == 0 {
		return matched, nil
	}
	if step.Index > len(matched) {
		releaseAll(e.nv, matched)
		return nil, nil
	}
	for i, c := range matched {
		if i != step.Index-1 {
			e.nv.Release(c)
		}
	}
	return matched[step.Index-1 : step.Index], nil
}

func (e *Engine) releaseFrontier(frontier []*model.Node, root *model.Node) {
	for _, n := range frontier {
		if n != root {
			e.nv.Release(n)
		}
	}
}

func releaseAll(nv *tree.Navigator, nodes []*model.Node) {
	for _, n := range nodes {
		nv.Release(n)
	}
}
