// Package tree walks parent/child/sibling relations over the accessible tree
// through the gateway. Children are materialized lazily, one bridge call per
// node, so large trees are never fetched eagerly.
package tree

import (
	"fmt"

	"github.com/openjab/jab-cli/internal/gateway"
	"github.com/openjab/jab-cli/internal/model"
	"github.com/openjab/jab-cli/internal/registry"
)

// MaxDepth bounds traversal depth. Malformed native trees can contain
// reference cycles; combined with the visited set this guarantees
// termination.
const MaxDepth = 64

// Decision tells a traversal what to do with a visited node.
type Decision int

const (
	// Skip releases the node's handle and continues.
	Skip Decision = iota
	// Keep retains the node's handle and continues.
	Keep
	// KeepStop retains the node's handle and ends the traversal.
	KeepStop
)

// VisitFunc is called for every traversed node, root excluded.
type VisitFunc func(n *model.Node) (Decision, error)

// Navigator materializes nodes and traverses the accessible tree.
type Navigator struct {
	gw *gateway.Gateway
}

// New returns a navigator over the given gateway.
func New(gw *gateway.Gateway) *Navigator {
	return &Navigator{gw: gw}
}

// Node materializes the element behind ref at the given hierarchy depth.
func (nv *Navigator) Node(ref registry.Ref, depth int) (*model.Node, error) {
	info, err := nv.gw.ContextInfo(ref)
	if err != nil {
		return nil, err
	}
	return &model.Node{
		Ref:            ref,
		Role:           info.Role,
		Name:           info.Name,
		Description:    info.Description,
		States:         model.ParseStates(info.States),
		Bounds:         model.Rect{X: info.X, Y: info.Y, Width: info.Width, Height: info.Height},
		IndexInParent:  info.IndexInParent,
		ChildCount:     info.ChildCount,
		Depth:          depth,
		SupportsAction: info.AccessibleAction,
		SupportsText:   info.AccessibleText,
	}, nil
}

// Refresh re-reads the property snapshot of a node in place.
func (nv *Navigator) Refresh(n *model.Node) error {
	fresh, err := nv.Node(n.Ref, n.Depth)
	if err != nil {
		return err
	}
	*n = *fresh
	return nil
}

// Children returns the ordered child sequence of n. The child count captured
// in n's snapshot is used for the whole call, so one traversal sees one
// consistent child list even if the native side mutates concurrently.
func (nv *Navigator) Children(n *model.Node) ([]*model.Node, error) {
	children := make([]*model.Node, 0, n.ChildCount)
	for i := 0; i < n.ChildCount; i++ {
		ref, ok, err := nv.gw.ChildContext(n.Ref, i)
		if err != nil {
			nv.releaseNodes(children)
			return nil, fmt.Errorf("child %d of %q: %w", i, n.Name, err)
		}
		if !ok {
			// The child vanished after the count was read; skip it.
			continue
		}
		child, err := nv.Node(ref, n.Depth+1)
		if err != nil {
			nv.gw.Release(ref.ID)
			nv.releaseNodes(children)
			return nil, fmt.Errorf("child %d of %q: %w", i, n.Name, err)
		}
		children = append(children, child)
	}
	return children, nil
}

// VisibleChildren returns only the children the bridge reports as visible.
func (nv *Navigator) VisibleChildren(n *model.Node) ([]*model.Node, error) {
	refs, err := nv.gw.VisibleChildren(n.Ref)
	if err != nil {
		return nil, err
	}
	children := make([]*model.Node, 0, len(refs))
	for _, ref := range refs {
		child, err := nv.Node(ref, n.Depth+1)
		if err != nil {
			nv.gw.Release(ref.ID)
			nv.releaseNodes(children)
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

// Parent returns the parent of n, or ok=false at the top of the tree.
func (nv *Navigator) Parent(n *model.Node) (*model.Node, bool, error) {
	ref, ok, err := nv.gw.ParentContext(n.Ref)
	if err != nil || !ok {
		return nil, false, err
	}
	depth := n.Depth - 1
	if depth < 0 {
		depth = 0
	}
	parent, err := nv.Node(ref, depth)
	if err != nil {
		nv.gw.Release(ref.ID)
		return nil, false, err
	}
	return parent, true, nil
}

// TopLevel returns the top-level window node above n, or ok=false when the
// bridge no longer reports one.
func (nv *Navigator) TopLevel(n *model.Node) (*model.Node, bool, error) {
	ref, ok, err := nv.gw.TopLevelObject(n.Ref)
	if err != nil || !ok {
		return nil, false, err
	}
	top, err := nv.Node(ref, 0)
	if err != nil {
		nv.gw.Release(ref.ID)
		return nil, false, err
	}
	return top, true, nil
}

// Release hands a node's handle back to the bridge.
func (nv *Navigator) Release(n *model.Node) {
	nv.gw.Release(n.Ref.ID)
}

func (nv *Navigator) releaseNodes(nodes []*model.Node) {
	for _, n := range nodes {
		nv.gw.Release(n.Ref.ID)
	}
}

// childrenOf picks the traversal's child primitive.
func (nv *Navigator) childrenOf(n *model.Node, visibleOnly bool) ([]*model.Node, error) {
	if visibleOnly {
		return nv.VisibleChildren(n)
	}
	return nv.Children(n)
}

// bfsItem carries a queued node and whether its handle goes back to the
// bridge once its children have been fetched.
type bfsItem struct {
	node *model.Node
	skip bool
}

// WalkBFS traverses breadth-first under root. Breadth-first is the default
// search order for locators: it finds the match nearest the root, which is
// what name/role lookups expect. The root itself is not visited and never
// released. A node whose handle recurs on the traversal frontier terminates
// its branch instead of being followed again.
func (nv *Navigator) WalkBFS(root *model.Node, visibleOnly bool, visit VisitFunc) error {
	queue := []bfsItem{{node: root}}
	visited := map[registry.StableID]bool{root.Ref.ID: true}
	rootDepth := root.Depth

	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]

		if it.node.Depth-rootDepth < MaxDepth {
			children, err := nv.childrenOf(it.node, visibleOnly)
			if err != nil {
				nv.finishBFS(it, nil, queue)
				return err
			}
			for i, child := range children {
				if visited[child.Ref.ID] {
					// The native tree loops back; drop the duplicate
					// registration and end the branch.
					nv.Release(child)
					continue
				}
				visited[child.Ref.ID] = true
				decision, err := visit(child)
				if err != nil {
					nv.Release(child)
					nv.finishBFS(it, children[i+1:], queue)
					return err
				}
				if decision == KeepStop {
					nv.finishBFS(it, children[i+1:], queue)
					return nil
				}
				queue = append(queue, bfsItem{node: child, skip: decision == Skip})
			}
		}
		if it.skip {
			nv.Release(it.node)
		}
	}
	return nil
}

// finishBFS releases everything an early exit leaves behind: the current
// parent if it was skipped, the children not yet visited, and the queue.
func (nv *Navigator) finishBFS(it bfsItem, rest []*model.Node, queue []bfsItem) {
	if it.skip {
		nv.Release(it.node)
	}
	nv.releaseNodes(rest)
	for _, q := range queue {
		if q.skip {
			nv.Release(q.node)
		}
	}
}

// WalkDFS traverses depth-first, pre-order, under root.
func (nv *Navigator) WalkDFS(root *model.Node, visibleOnly bool, visit VisitFunc) error {
	visited := map[registry.StableID]bool{root.Ref.ID: true}
	_, err := nv.walkDFS(root, visibleOnly, visit, visited, root.Depth)
	return err
}

func (nv *Navigator) walkDFS(n *model.Node, visibleOnly bool, visit VisitFunc, visited map[registry.StableID]bool, rootDepth int) (bool, error) {
	if n.Depth-rootDepth >= MaxDepth {
		return false, nil
	}
	children, err := nv.childrenOf(n, visibleOnly)
	if err != nil {
		return false, err
	}
	for i, child := range children {
		if visited[child.Ref.ID] {
			nv.Release(child)
			continue
		}
		visited[child.Ref.ID] = true
		decision, err := visit(child)
		if err != nil {
			nv.releaseNodes(children[i:])
			return false, err
		}
		if decision == KeepStop {
			nv.releaseNodes(children[i+1:])
			return true, nil
		}
		stopped, err := nv.walkDFS(child, visibleOnly, visit, visited, rootDepth)
		if decision == Skip {
			nv.Release(child)
		}
		if err != nil {
			nv.releaseNodes(children[i+1:])
			return false, err
		}
		if stopped {
			nv.releaseNodes(children[i+1:])
			return true, nil
		}
	}
	return false, nil
}
