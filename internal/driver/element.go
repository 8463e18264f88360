package driver

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/openjab/jab-cli/internal/gateway"
	"github.com/openjab/jab-cli/internal/locator"
	"github.com/openjab/jab-cli/internal/model"
	"github.com/openjab/jab-cli/internal/registry"
)

// Element is a live handle to one accessible object. Property reads serve a
// cached snapshot that bridge events invalidate; interactions go through the
// gateway. An element found via a locator survives one recreate of its
// native object: the first stale failure re-runs the locator and retries.
type Element struct {
	d    *Driver
	node *model.Node

	// origin records how the element was located, for the stale retry.
	// The root element has none.
	origin *origin
}

type origin struct {
	from *Element
	loc  locator.Locator
}

// ID returns the element's stable id. Two elements with equal ids are the
// same native object.
func (e *Element) ID() registry.StableID { return e.node.Ref.ID }

// Node returns the element's current property snapshot.
func (e *Element) Node() (*model.Node, error) {
	if err := e.refreshIfDirty(); err != nil {
		return nil, err
	}
	return e.node, nil
}

// Release hands the element's handle back to the bridge. Idempotent.
func (e *Element) Release() {
	e.d.nv.Release(e.node)
}

func (e *Element) refreshIfDirty() error {
	if !e.d.isDirty(e.node.Ref.ID) {
		return nil
	}
	return e.Refresh()
}

// Refresh re-reads the property snapshot unconditionally.
func (e *Element) Refresh() error {
	err := e.withRetry(func() error { return e.d.nv.Refresh(e.node) })
	if err != nil {
		return err
	}
	e.d.markClean(e.node.Ref.ID)
	return nil
}

// withRetry runs op; on a stale-handle failure it re-runs the element's
// locator once, rebinds to the fresh native object and retries. Elements
// without an origin, the window root included, fail straight away.
func (e *Element) withRetry(op func() error) error {
	err := op()
	if err == nil || !gateway.IsStale(err) {
		return err
	}
	if e.origin == nil {
		return err
	}
	e.d.log.Debug("stale element, re-running locator",
		zap.Uint64("id", uint64(e.node.Ref.ID)),
		zap.String("locator", e.origin.loc.String()))
	fresh, ferr := e.origin.from.findNode(e.origin.loc)
	if ferr != nil {
		return fmt.Errorf("element went stale and could not be relocated: %w", ferr)
	}
	*e.node = *fresh
	e.d.markClean(e.node.Ref.ID)
	return op()
}

// findNode runs a locator under this element and returns the bare node.
func (e *Element) findNode(loc locator.Locator) (*model.Node, error) {
	if err := e.refreshIfDirty(); err != nil {
		return nil, err
	}
	return e.d.engine.Find(e.node, loc)
}

// Find locates the first matching element under this one. The search always
// starts from a current snapshot of this element, so children that appeared
// since the last read are seen. The result remembers the locator for stale
// recovery.
func (e *Element) Find(loc locator.Locator) (*Element, error) {
	if err := e.refreshIfDirty(); err != nil {
		return nil, err
	}
	var node *model.Node
	err := e.withRetry(func() error {
		var ferr error
		node, ferr = e.d.engine.Find(e.node, loc)
		return ferr
	})
	if err != nil {
		return nil, err
	}
	return &Element{d: e.d, node: node, origin: &origin{from: e, loc: loc}}, nil
}

// FindAll locates every matching element under this one, in search order.
func (e *Element) FindAll(loc locator.Locator) ([]*Element, error) {
	if err := e.refreshIfDirty(); err != nil {
		return nil, err
	}
	var nodes []*model.Node
	err := e.withRetry(func() error {
		var ferr error
		nodes, ferr = e.d.engine.FindAll(e.node, loc)
		return ferr
	})
	if err != nil {
		return nil, err
	}
	els := make([]*Element, len(nodes))
	for i, n := range nodes {
		els[i] = &Element{d: e.d, node: n}
	}
	return els, nil
}

// Parent returns the element's parent, or ok=false at the top of the tree.
func (e *Element) Parent() (*Element, bool, error) {
	var parent *model.Node
	var ok bool
	err := e.withRetry(func() error {
		var perr error
		parent, ok, perr = e.d.nv.Parent(e.node)
		return perr
	})
	if err != nil || !ok {
		return nil, false, err
	}
	return &Element{d: e.d, node: parent}, true, nil
}

// Window returns the top-level window element containing this element,
// useful for re-scoping a search after navigating into a deep subtree.
func (e *Element) Window() (*Element, error) {
	var top *model.Node
	err := e.withRetry(func() error {
		node, ok, terr := e.d.nv.TopLevel(e.node)
		if terr != nil {
			return terr
		}
		if !ok {
			return errors.New("element has no top-level window")
		}
		top = node
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Element{d: e.d, node: top}, nil
}

// Same reports whether both elements are the same native object. Equal
// stable ids settle it locally; otherwise the bridge is asked. A stale
// handle on either side cannot be the live object on the other, so it
// compares unequal rather than failing.
func (e *Element) Same(other *Element) (bool, error) {
	if e.node.Ref.ID == other.node.Ref.ID {
		return true, nil
	}
	same, err := e.d.gw.IsSameObject(e.node.Ref, other.node.Ref)
	if gateway.IsStale(err) {
		return false, nil
	}
	return same, err
}

// GetAttribute reads one named attribute (name, description, role, states)
// from the current snapshot.
func (e *Element) GetAttribute(name string) (string, error) {
	if err := e.refreshIfDirty(); err != nil {
		return "", err
	}
	v, ok := e.node.Attribute(name)
	if !ok {
		return "", fmt.Errorf("unknown attribute %q", name)
	}
	return v, nil
}

// Name returns the element's accessible name.
func (e *Element) Name() (string, error) { return e.GetAttribute("name") }

// Role returns the element's accessible role.
func (e *Element) Role() (string, error) { return e.GetAttribute("role") }

// Bounds returns the element's screen rectangle.
func (e *Element) Bounds() (model.Rect, error) {
	if err := e.refreshIfDirty(); err != nil {
		return model.Rect{}, err
	}
	return e.node.Bounds, nil
}

func (e *Element) hasState(s string) (bool, error) {
	if err := e.refreshIfDirty(); err != nil {
		return false, err
	}
	return e.node.States.Has(s), nil
}

// IsEnabled reports the enabled state from the current snapshot.
func (e *Element) IsEnabled() (bool, error) { return e.hasState(model.StateEnabled) }

// IsVisible reports the visible state from the current snapshot.
func (e *Element) IsVisible() (bool, error) { return e.hasState(model.StateVisible) }

// IsShowing reports the showing state from the current snapshot.
func (e *Element) IsShowing() (bool, error) { return e.hasState(model.StateShowing) }

// IsChecked reports the checked state from the current snapshot.
func (e *Element) IsChecked() (bool, error) { return e.hasState(model.StateChecked) }

// IsSelected reports the selected state from the current snapshot.
func (e *Element) IsSelected() (bool, error) { return e.hasState(model.StateSelected) }

// IsEditable reports the editable state from the current snapshot.
func (e *Element) IsEditable() (bool, error) { return e.hasState(model.StateEditable) }

// IsFocusable reports the focusable state from the current snapshot.
func (e *Element) IsFocusable() (bool, error) { return e.hasState(model.StateFocusable) }

// Actions lists the accessible actions the element supports.
func (e *Element) Actions() ([]string, error) {
	var actions []string
	err := e.withRetry(func() error {
		var aerr error
		actions, aerr = e.d.gw.Actions(e.node.Ref)
		return aerr
	})
	return actions, err
}

// InvokeAction performs a named accessible action. The action must be one
// the element advertises; asking for anything else reports the supported
// set instead of poking the JVM blind.
func (e *Element) InvokeAction(action string) error {
	return e.withRetry(func() error {
		actions, err := e.d.gw.Actions(e.node.Ref)
		if err != nil {
			return err
		}
		for _, a := range actions {
			if a == action {
				return e.d.gw.DoAction(e.node.Ref, action)
			}
		}
		return fmt.Errorf("action %q not supported, element offers [%s]",
			action, strings.Join(actions, ", "))
	})
}

// Click activates the element through its first accessible action, the
// "click" of the accessibility world.
func (e *Element) Click() error {
	return e.withRetry(func() error {
		actions, err := e.d.gw.Actions(e.node.Ref)
		if err != nil {
			return err
		}
		if len(actions) == 0 {
			return errors.New("element supports no accessible action")
		}
		return e.d.gw.DoAction(e.node.Ref, actions[0])
	})
}

// ClickPointer moves the real pointer to the element's center and clicks,
// for components whose accessible action does not fire their listeners.
// Requires an input backend.
func (e *Element) ClickPointer() error {
	if e.d.input == nil {
		return errors.New("pointer input not configured")
	}
	bounds, err := e.Bounds()
	if err != nil {
		return err
	}
	if bounds.Empty() {
		return errors.New("element has no on-screen bounds")
	}
	x, y := bounds.Center()
	return e.d.input.Click(x, y)
}

// Text reads the element's accessible text.
func (e *Element) Text() (string, error) {
	var text string
	err := e.withRetry(func() error {
		var terr error
		text, terr = e.d.gw.Text(e.node.Ref)
		return terr
	})
	return text, err
}

// SetText replaces the element's text content through the bridge.
func (e *Element) SetText(text string) error {
	if err := e.refreshIfDirty(); err != nil {
		return err
	}
	if !e.node.SupportsText {
		return fmt.Errorf("element %q (%s) has no accessible text", e.node.Name, e.node.Role)
	}
	return e.withRetry(func() error {
		return e.d.gw.SetTextContents(e.node.Ref, text)
	})
}

// TypeText focuses the element and types through the input backend, for
// fields that reject SetText or validate on key events.
func (e *Element) TypeText(text string) error {
	if e.d.input == nil {
		return errors.New("keyboard input not configured")
	}
	if err := e.RequestFocus(); err != nil {
		return err
	}
	return e.d.input.TypeText(text)
}

// RequestFocus asks the JVM to move keyboard focus to the element.
func (e *Element) RequestFocus() error {
	return e.withRetry(func() error {
		return e.d.gw.RequestFocus(e.node.Ref)
	})
}
