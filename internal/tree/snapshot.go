package tree

import (
	"github.com/openjab/jab-cli/internal/model"
	"github.com/openjab/jab-cli/internal/registry"
)

// SnapshotOptions controls what a snapshot includes.
type SnapshotOptions struct {
	// MaxDepth limits how deep below the root the snapshot descends;
	// 0 means the traversal's own depth bound.
	MaxDepth int
	// VisibleOnly restricts the snapshot to visible children.
	VisibleOnly bool
}

// Snapshot serializes the subtree under root into an Element tree with
// sequential ids, depth-first so ids read top to bottom in the output. Every
// handle materialized for the snapshot is released before returning; the
// snapshot is a value, not a set of live references.
func (nv *Navigator) Snapshot(root *model.Node, opts SnapshotOptions) (model.Element, error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 || maxDepth > MaxDepth {
		maxDepth = MaxDepth
	}
	nextID := 0
	visited := map[registry.StableID]bool{root.Ref.ID: true}
	el, err := nv.snapshot(root, opts.VisibleOnly, maxDepth, &nextID, visited)
	if err != nil {
		return model.Element{}, err
	}
	return el, nil
}

func (nv *Navigator) snapshot(n *model.Node, visibleOnly bool, depthLeft int, nextID *int, visited map[registry.StableID]bool) (model.Element, error) {
	el := model.Element{
		ID:          *nextID,
		Role:        n.Role,
		Name:        n.Name,
		Description: n.Description,
		Bounds:      [4]int{n.Bounds.X, n.Bounds.Y, n.Bounds.Width, n.Bounds.Height},
		States:      n.States.String(),
		Index:       n.IndexInParent,
	}
	*nextID++
	if depthLeft == 0 {
		return el, nil
	}
	children, err := nv.childrenOf(n, visibleOnly)
	if err != nil {
		return model.Element{}, err
	}
	for _, child := range children {
		if visited[child.Ref.ID] {
			nv.Release(child)
			continue
		}
		visited[child.Ref.ID] = true
		sub, err := nv.snapshot(child, visibleOnly, depthLeft-1, nextID, visited)
		nv.Release(child)
		if err != nil {
			return model.Element{}, err
		}
		el.Children = append(el.Children, sub)
	}
	return el, nil
}
