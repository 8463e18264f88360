// Package bridgetest provides an in-memory bridge.API implementation backed
// by a mutable fake accessible tree. Tests use it to drive the gateway, tree
// and locator engines without a native library.
package bridgetest

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/openjab/jab-cli/internal/bridge"
)

// FakeNode is one element of the fake accessible tree.
type FakeNode struct {
	Role        string
	Name        string
	Description string
	States      string
	Actions     []string
	Text        string
	X, Y, W, H  int

	Children []*FakeNode
	parent   *FakeNode
}

// N builds a tree node; the variadic children are attached in order.
func N(role, name string, children ...*FakeNode) *FakeNode {
	n := &FakeNode{Role: role, Name: name, States: "enabled,visible,showing"}
	for _, c := range children {
		c.parent = n
		n.Children = append(n.Children, c)
	}
	return n
}

// WithDescription sets the description and returns the node for chaining.
func (n *FakeNode) WithDescription(d string) *FakeNode {
	n.Description = d
	return n
}

// WithStates overrides the default state flags.
func (n *FakeNode) WithStates(states string) *FakeNode {
	n.States = states
	return n
}

// WithActions sets the supported accessible actions.
func (n *FakeNode) WithActions(actions ...string) *FakeNode {
	n.Actions = actions
	return n
}

// WithBounds sets the bounding rectangle.
func (n *FakeNode) WithBounds(x, y, w, h int) *FakeNode {
	n.X, n.Y, n.W, n.H = x, y, w, h
	return n
}

// AddChild attaches a child after construction, for mutation mid-test.
func (n *FakeNode) AddChild(c *FakeNode) *FakeNode {
	c.parent = n
	n.Children = append(n.Children, c)
	return n
}

// RemoveChild detaches the first child with the given name.
func (n *FakeNode) RemoveChild(name string) {
	for i, c := range n.Children {
		if c.Name == name {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			return
		}
	}
}

func (n *FakeNode) depth() int {
	d := 0
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

func (n *FakeNode) indexInParent() int {
	if n.parent == nil {
		return -1
	}
	for i, c := range n.parent.Children {
		if c == n {
			return i
		}
	}
	return -1
}

// Fake implements bridge.API over a FakeNode tree. A live node keeps one
// stable handle value, so object identity is observable through handles;
// releasing a handle makes any further use of it an error, and the next
// reference to the node carries a fresh value.
type Fake struct {
	mu       sync.Mutex
	vm       int32
	nextAC   uint64
	objects  map[uint64]*FakeNode
	acOf     map[*FakeNode]uint64
	released map[uint64]bool
	windows  map[uintptr]*FakeNode
	winInfo  []bridge.WindowInfo
	events   chan bridge.Event
	closed   bool

	// Calls counts native invocations by operation name.
	Calls map[string]int

	// FailOps makes the named operations return the given error.
	FailOps map[string]error

	// StallOps makes the named operations block for the given duration
	// before returning, to exercise the gateway's per-call timeout.
	StallOps map[string]time.Duration
}

// NewFake builds a fake bridge session with one Java window titled title
// whose accessible tree is root.
func NewFake(title string, root *FakeNode) *Fake {
	f := &Fake{
		vm:       7,
		objects:  make(map[uint64]*FakeNode),
		acOf:     make(map[*FakeNode]uint64),
		released: make(map[uint64]bool),
		windows:  map[uintptr]*FakeNode{0x1000: root},
		winInfo:  []bridge.WindowInfo{{HWND: 0x1000, Title: title, PID: 4321}},
		events:   make(chan bridge.Event, 256),
		Calls:    make(map[string]int),
		FailOps:  make(map[string]error),
		StallOps: make(map[string]time.Duration),
	}
	return f
}

// Emit delivers a raw callback event to the gateway.
func (f *Fake) Emit(ev bridge.Event) {
	f.events <- ev
}

// HandleFor issues a fresh native reference to the given node, the way a
// callback would carry one.
func (f *Fake) HandleFor(n *FakeNode) bridge.NativeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issue(n)
}

// Mutate runs fn under the bridge lock, so tests can rewrite the fake tree
// while other goroutines are mid-call.
func (f *Fake) Mutate(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn()
}

// CallCount returns how many times the named operation has been invoked.
func (f *Fake) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[op]
}

// ReleasedCount returns how many handles have been released so far.
func (f *Fake) ReleasedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.released)
}

func (f *Fake) issue(n *FakeNode) bridge.NativeHandle {
	if ac, ok := f.acOf[n]; ok && !f.released[ac] {
		return bridge.NativeHandle{VM: f.vm, AC: ac}
	}
	f.nextAC++
	f.objects[f.nextAC] = n
	f.acOf[n] = f.nextAC
	return bridge.NativeHandle{VM: f.vm, AC: f.nextAC}
}

func (f *Fake) begin(op string) error {
	f.mu.Lock()
	f.Calls[op]++
	stall := f.StallOps[op]
	err := f.FailOps[op]
	f.mu.Unlock()
	if stall > 0 {
		time.Sleep(stall)
	}
	return err
}

func (f *Fake) deref(op string, h bridge.NativeHandle) (*FakeNode, error) {
	if f.released[h.AC] {
		return nil, fmt.Errorf("%s: use of released object %d", op, h.AC)
	}
	n, ok := f.objects[h.AC]
	if !ok {
		return nil, fmt.Errorf("%s: unknown object %d", op, h.AC)
	}
	return n, nil
}

func (f *Fake) Start() error { return f.begin("Start") }

func (f *Fake) EnumJavaWindows() ([]bridge.WindowInfo, error) {
	if err := f.begin("EnumJavaWindows"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bridge.WindowInfo, len(f.winInfo))
	copy(out, f.winInfo)
	return out, nil
}

func (f *Fake) ContextFromHWND(hwnd uintptr) (bridge.NativeHandle, error) {
	if err := f.begin("ContextFromHWND"); err != nil {
		return bridge.NativeHandle{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	root, ok := f.windows[hwnd]
	if !ok {
		return bridge.NativeHandle{}, fmt.Errorf("hwnd %#x is not a Java window", hwnd)
	}
	return f.issue(root), nil
}

func (f *Fake) ContextInfo(h bridge.NativeHandle) (bridge.ContextInfo, error) {
	if err := f.begin("ContextInfo"); err != nil {
		return bridge.ContextInfo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.deref("ContextInfo", h)
	if err != nil {
		return bridge.ContextInfo{}, err
	}
	return bridge.ContextInfo{
		Name:                n.Name,
		Description:         n.Description,
		Role:                n.Role,
		States:              n.States,
		IndexInParent:       n.indexInParent(),
		ChildCount:          len(n.Children),
		X:                   n.X,
		Y:                   n.Y,
		Width:               n.W,
		Height:              n.H,
		AccessibleComponent: true,
		AccessibleAction:    len(n.Actions) > 0,
		AccessibleText:      n.Text != "" || n.Role == "text",
	}, nil
}

func (f *Fake) ChildContext(h bridge.NativeHandle, index int) (bridge.NativeHandle, error) {
	if err := f.begin("ChildContext"); err != nil {
		return bridge.NativeHandle{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.deref("ChildContext", h)
	if err != nil {
		return bridge.NativeHandle{}, err
	}
	if index < 0 || index >= len(n.Children) {
		return bridge.NativeHandle{}, fmt.Errorf("ChildContext: index %d out of range", index)
	}
	return f.issue(n.Children[index]), nil
}

func (f *Fake) ParentContext(h bridge.NativeHandle) (bridge.NativeHandle, error) {
	if err := f.begin("ParentContext"); err != nil {
		return bridge.NativeHandle{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.deref("ParentContext", h)
	if err != nil {
		return bridge.NativeHandle{}, err
	}
	if n.parent == nil {
		return bridge.NativeHandle{}, nil
	}
	return f.issue(n.parent), nil
}

func (f *Fake) VisibleChildren(h bridge.NativeHandle) ([]bridge.NativeHandle, error) {
	if err := f.begin("VisibleChildren"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.deref("VisibleChildren", h)
	if err != nil {
		return nil, err
	}
	var out []bridge.NativeHandle
	for _, c := range n.Children {
		if strings.Contains(c.States, "visible") {
			out = append(out, f.issue(c))
		}
	}
	return out, nil
}

func (f *Fake) TopLevelObject(h bridge.NativeHandle) (bridge.NativeHandle, error) {
	if err := f.begin("TopLevelObject"); err != nil {
		return bridge.NativeHandle{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.deref("TopLevelObject", h)
	if err != nil {
		return bridge.NativeHandle{}, err
	}
	for n.parent != nil {
		n = n.parent
	}
	return f.issue(n), nil
}

func (f *Fake) ObjectDepth(h bridge.NativeHandle) (int, error) {
	if err := f.begin("ObjectDepth"); err != nil {
		return -1, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.deref("ObjectDepth", h)
	if err != nil {
		return -1, err
	}
	return n.depth(), nil
}

func (f *Fake) IsSameObject(a, b bridge.NativeHandle) (bool, error) {
	if err := f.begin("IsSameObject"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	na, err := f.deref("IsSameObject", a)
	if err != nil {
		return false, err
	}
	nb, err := f.deref("IsSameObject", b)
	if err != nil {
		return false, err
	}
	return na == nb, nil
}

func (f *Fake) Actions(h bridge.NativeHandle) ([]string, error) {
	if err := f.begin("Actions"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.deref("Actions", h)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), n.Actions...), nil
}

func (f *Fake) DoAction(h bridge.NativeHandle, action string) error {
	if err := f.begin("DoAction"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.deref("DoAction", h)
	if err != nil {
		return err
	}
	for _, a := range n.Actions {
		if a == action {
			return nil
		}
	}
	return fmt.Errorf("DoAction: %q not supported", action)
}

func (f *Fake) SetTextContents(h bridge.NativeHandle, text string) error {
	if err := f.begin("SetTextContents"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.deref("SetTextContents", h)
	if err != nil {
		return err
	}
	n.Text = text
	return nil
}

func (f *Fake) Text(h bridge.NativeHandle) (string, error) {
	if err := f.begin("Text"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.deref("Text", h)
	if err != nil {
		return "", err
	}
	return n.Text, nil
}

func (f *Fake) RequestFocus(h bridge.NativeHandle) error {
	if err := f.begin("RequestFocus"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := f.deref("RequestFocus", h)
	return err
}

func (f *Fake) ReleaseObject(h bridge.NativeHandle) error {
	if err := f.begin("ReleaseObject"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.released[h.AC] {
		return fmt.Errorf("ReleaseObject: double release of %d", h.AC)
	}
	f.released[h.AC] = true
	return nil
}

func (f *Fake) Events() <-chan bridge.Event { return f.events }

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}
