// Package driver is the top-level automation facade: it binds to a Java
// window by title, hands out elements, and owns the session's handle
// lifecycle end to end.
package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openjab/jab-cli/internal/bridge"
	"github.com/openjab/jab-cli/internal/gateway"
	"github.com/openjab/jab-cli/internal/locator"
	"github.com/openjab/jab-cli/internal/model"
	"github.com/openjab/jab-cli/internal/registry"
	"github.com/openjab/jab-cli/internal/tree"
	"github.com/openjab/jab-cli/internal/waiter"
)

// ErrWindowNotFound reports that no Java window matched the requested title
// within the bind timeout.
var ErrWindowNotFound = errors.New("window not found")

// DefaultBindTimeout bounds how long Bind waits for the target window.
const DefaultBindTimeout = 30 * time.Second

// Input performs simulated pointer and keyboard input, as opposed to the
// accessible-action path that goes through the JVM.
type Input interface {
	Click(x, y int) error
	TypeText(s string) error
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the structured logger for the driver and everything under
// it. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(d *Driver) { d.log = log }
}

// WithClock substitutes the wait engine's clock, for deterministic tests.
func WithClock(c waiter.Clock) Option {
	return func(d *Driver) { d.clock = c }
}

// WithCallTimeout overrides the gateway's per-call deadline.
func WithCallTimeout(timeout time.Duration) Option {
	return func(d *Driver) { d.callTimeout = timeout }
}

// WithBindTimeout overrides how long Bind polls for the target window.
func WithBindTimeout(timeout time.Duration) Option {
	return func(d *Driver) { d.bindTimeout = timeout }
}

// WithInput wires a simulated input backend. Without one, simulate-mode
// interactions report an error and the accessible-action path still works.
func WithInput(in Input) Option {
	return func(d *Driver) { d.input = in }
}

// Driver drives one bridge session.
type Driver struct {
	gw     *gateway.Gateway
	nv     *tree.Navigator
	engine *locator.Engine
	wait   *waiter.Waiter
	log    *zap.Logger
	input  Input

	clock       waiter.Clock
	callTimeout time.Duration
	bindTimeout time.Duration
	session     string

	mu     sync.Mutex
	window bridge.WindowInfo
	root   *Element
	dirty  map[registry.StableID]bool
}

// New builds a driver over the given bridge backend. Start must be called
// before anything else.
func New(api bridge.API, opts ...Option) *Driver {
	d := &Driver{
		log:         zap.NewNop(),
		clock:       waiter.RealClock(),
		callTimeout: gateway.DefaultCallTimeout,
		bindTimeout: DefaultBindTimeout,
		session:     uuid.NewString(),
		dirty:       make(map[registry.StableID]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.gw = gateway.New(api, registry.New(), d.session,
		gateway.WithLogger(d.log),
		gateway.WithCallTimeout(d.callTimeout))
	d.gw.SetInvalidator(d)
	d.nv = tree.New(d.gw)
	d.engine = locator.NewEngine(d.nv)
	d.wait = waiter.New(waiter.WithClock(d.clock), waiter.WithLogger(d.log))
	return d
}

// Session returns the driver's session id.
func (d *Driver) Session() string { return d.session }

// Start brings the bridge up.
func (d *Driver) Start() error {
	return d.gw.Start()
}

// Close releases every handle this session owns and shuts the bridge down.
func (d *Driver) Close() error {
	return d.gw.Close()
}

// Invalidate implements gateway.Invalidator: property-changing events mark
// the element's cached snapshot dirty so the next read refreshes it.
func (d *Driver) Invalidate(ref registry.Ref, ev bridge.Event) {
	switch ev.Kind {
	case bridge.EventNameChange, bridge.EventDescChange, bridge.EventValueChange,
		bridge.EventStateChange, bridge.EventChildChange:
		d.mu.Lock()
		d.dirty[ref.ID] = true
		d.mu.Unlock()
		d.log.Debug("element snapshot invalidated",
			zap.Uint64("id", uint64(ref.ID)),
			zap.String("event", string(ev.Kind)))
	}
}

func (d *Driver) markClean(id registry.StableID) {
	d.mu.Lock()
	delete(d.dirty, id)
	d.mu.Unlock()
}

func (d *Driver) isDirty(id registry.StableID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirty[id]
}

// Windows lists the top-level Java windows currently on screen.
func (d *Driver) Windows() ([]bridge.WindowInfo, error) {
	return d.gw.EnumJavaWindows()
}

// Bind attaches the driver to the first Java window whose title contains
// title, polling until the window shows up or the bind timeout passes. The
// returned element is the window's root accessible context; the driver holds
// it for relative searches until Close.
func (d *Driver) Bind(ctx context.Context, title string) (*Element, error) {
	var found *bridge.WindowInfo
	res, err := d.wait.Wait(ctx, waiter.Condition{
		Name:    fmt.Sprintf("window titled %q", title),
		Timeout: d.bindTimeout,
		Check: func(context.Context) (bool, error) {
			wins, err := d.gw.EnumJavaWindows()
			if err != nil {
				return false, err
			}
			for i := range wins {
				if strings.Contains(wins[i].Title, title) {
					found = &wins[i]
					return true, nil
				}
			}
			return false, nil
		},
	})
	if err != nil {
		if res.Outcome == waiter.Cancelled {
			return nil, err
		}
		return nil, fmt.Errorf("%w: no Java window titled %q: %v", ErrWindowNotFound, title, err)
	}

	ref, err := d.gw.ContextFromHWND(found.HWND)
	if err != nil {
		return nil, err
	}
	node, err := d.nv.Node(ref, 0)
	if err != nil {
		d.gw.Release(ref.ID)
		return nil, err
	}

	root := &Element{d: d, node: node}
	d.mu.Lock()
	d.window = *found
	d.root = root
	d.mu.Unlock()
	d.log.Info("bound to window",
		zap.String("title", found.Title),
		zap.Int32("pid", found.PID),
		zap.String("session", d.session))
	return root, nil
}

// Window returns the bound window's metadata.
func (d *Driver) Window() bridge.WindowInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.window
}

// Root returns the bound window's root element, nil before Bind.
func (d *Driver) Root() *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.root
}

// Find locates the first element matching loc under the bound window.
func (d *Driver) Find(loc locator.Locator) (*Element, error) {
	root := d.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: driver is not bound to a window", ErrWindowNotFound)
	}
	return root.Find(loc)
}

// FindAll locates every element matching loc under the bound window.
func (d *Driver) FindAll(loc locator.Locator) ([]*Element, error) {
	root := d.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: driver is not bound to a window", ErrWindowNotFound)
	}
	return root.FindAll(loc)
}

// WaitUntilElementExists polls for an element matching loc under from until
// it appears or timeout passes. The locator is validated before the first
// poll; a malformed locator fails immediately rather than burning the
// timeout. Each tick re-runs the full search, so an element recreated
// mid-wait is still found. Bridge events wake the poll early.
func (d *Driver) WaitUntilElementExists(ctx context.Context, from *Element, loc locator.Locator, timeout time.Duration) (*Element, error) {
	if from == nil {
		from = d.Root()
	}
	if from == nil {
		return nil, fmt.Errorf("%w: driver is not bound to a window", ErrWindowNotFound)
	}
	if err := locator.Validate(loc); err != nil {
		return nil, err
	}

	events, cancel := d.gw.Subscribe()
	defer cancel()
	wake := make(chan struct{}, 1)
	go func() {
		for range events {
			select {
			case wake <- struct{}{}:
			default:
			}
		}
	}()

	var found *Element
	_, err := d.wait.Wait(ctx, waiter.Condition{
		Name:    fmt.Sprintf("element %s", loc),
		Timeout: timeout,
		Wake:    wake,
		Check: func(context.Context) (bool, error) {
			el, err := from.Find(loc)
			if err != nil {
				return false, err
			}
			found = el
			return true, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Snapshot serializes the subtree under el for output.
func (d *Driver) Snapshot(el *Element, opts tree.SnapshotOptions) (model.Element, error) {
	if err := el.refreshIfDirty(); err != nil {
		return model.Element{}, err
	}
	return d.nv.Snapshot(el.node, opts)
}
