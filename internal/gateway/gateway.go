// Package gateway is the only component that issues native bridge calls. It
// wraps every call in a hard per-call timeout, translates native failures
// into bridge.CallError, and owns the boundary between the bridge's callback
// delivery and caller goroutines: one consumer drains the ordered event
// stream, updates the handle registry and property caches, then notifies
// subscribers.
package gateway

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openjab/jab-cli/internal/bridge"
	"github.com/openjab/jab-cli/internal/registry"
)

// DefaultCallTimeout bounds every native call. The bridge API is expected to
// be fast; an unresponsive JVM must not hang callers indefinitely.
const DefaultCallTimeout = 5 * time.Second

const subscriberBuffer = 64

// Invalidator receives applied events so higher layers can drop cached
// element properties. Implementations must not call back into the gateway.
type Invalidator interface {
	Invalidate(ref registry.Ref, ev bridge.Event)
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(g *Gateway) { g.log = log }
}

// WithCallTimeout overrides the per-call deadline.
func WithCallTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.callTimeout = d }
}

// Gateway mediates all access to one bridge session.
type Gateway struct {
	api         bridge.API
	reg         *registry.Registry
	session     string
	log         *zap.Logger
	callTimeout time.Duration

	mu      sync.Mutex
	subs    map[int]chan bridge.Event
	nextSub int
	lastSeq map[bridge.NativeHandle]uint64
	inval   Invalidator

	done chan struct{}
	wg   sync.WaitGroup
}

// New wires a gateway over the given bridge backend and registry. The session
// id keys all handle ownership for ReleaseSession.
func New(api bridge.API, reg *registry.Registry, session string, opts ...Option) *Gateway {
	g := &Gateway{
		api:         api,
		reg:         reg,
		session:     session,
		log:         zap.NewNop(),
		callTimeout: DefaultCallTimeout,
		subs:        make(map[int]chan bridge.Event),
		lastSeq:     make(map[bridge.NativeHandle]uint64),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetInvalidator registers the cache invalidation hook. Must be called before
// Start.
func (g *Gateway) SetInvalidator(inval Invalidator) {
	g.mu.Lock()
	g.inval = inval
	g.mu.Unlock()
}

// Start initializes the bridge and launches the event consumer.
func (g *Gateway) Start() error {
	if err := g.call("Start", func(api bridge.API) error { return api.Start() }); err != nil {
		return err
	}
	g.wg.Add(1)
	go g.consume()
	return nil
}

// Close releases all session handles, stops the consumer and shuts the
// backend down.
func (g *Gateway) Close() error {
	g.ReleaseSession()
	err := g.api.Close()
	close(g.done)
	g.wg.Wait()
	return err
}

// Subscribe returns a channel receiving every applied event, plus a cancel
// function. Subscribers that fall behind lose events with a logged warning;
// the wait engine only uses notifications as poll hints, so a lost
// notification delays a poll tick at worst.
func (g *Gateway) Subscribe() (<-chan bridge.Event, func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextSub
	g.nextSub++
	ch := make(chan bridge.Event, subscriberBuffer)
	g.subs[id] = ch
	cancel := func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if c, ok := g.subs[id]; ok {
			delete(g.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// call runs one native operation under the per-call timeout. The operation
// keeps running in the background on timeout; the bridge backend owns that
// goroutine's lifetime.
func (g *Gateway) call(op string, fn func(bridge.API) error) error {
	done := make(chan error, 1)
	go func() { done <- fn(g.api) }()

	timer := time.NewTimer(g.callTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			g.log.Warn("bridge call failed", zap.String("op", op), zap.Error(err))
			return bridge.NewCallError(op, err)
		}
		return nil
	case <-timer.C:
		g.log.Warn("bridge call timed out", zap.String("op", op), zap.Duration("timeout", g.callTimeout))
		return bridge.NewCallError(op, bridge.ErrCallTimeout)
	}
}

// resolve maps a registry ref to its native handle, surfacing staleness
// before any native call is attempted.
func (g *Gateway) resolve(ref registry.Ref) (bridge.NativeHandle, error) {
	return g.reg.Resolve(ref)
}

// Register records a freshly issued native handle under this session. The
// registry dedupes live handle values, so one native object never spans two
// stable ids.
func (g *Gateway) Register(h bridge.NativeHandle) registry.Ref {
	return g.reg.Register(g.session, h)
}

// Session returns the gateway's session id.
func (g *Gateway) Session() string { return g.session }

// EnumJavaWindows lists top-level Java windows.
func (g *Gateway) EnumJavaWindows() ([]bridge.WindowInfo, error) {
	var out []bridge.WindowInfo
	err := g.call("EnumJavaWindows", func(api bridge.API) error {
		var err error
		out, err = api.EnumJavaWindows()
		return err
	})
	return out, err
}

// ContextFromHWND fetches and registers the root context of a Java window.
func (g *Gateway) ContextFromHWND(hwnd uintptr) (registry.Ref, error) {
	var h bridge.NativeHandle
	err := g.call("ContextFromHWND", func(api bridge.API) error {
		var err error
		h, err = api.ContextFromHWND(hwnd)
		return err
	})
	if err != nil {
		return registry.Ref{}, err
	}
	return g.Register(h), nil
}

// ContextInfo reads the property snapshot behind a ref.
func (g *Gateway) ContextInfo(ref registry.Ref) (bridge.ContextInfo, error) {
	h, err := g.resolve(ref)
	if err != nil {
		return bridge.ContextInfo{}, err
	}
	var info bridge.ContextInfo
	err = g.call("ContextInfo", func(api bridge.API) error {
		var err error
		info, err = api.ContextInfo(h)
		return err
	})
	return info, err
}

// ChildContext fetches and registers the index-th child of ref. ok is false
// when the backend reports no object at that index, which happens when a
// child vanishes between the parent's count read and the fetch; the zero
// handle is never registered.
func (g *Gateway) ChildContext(ref registry.Ref, index int) (registry.Ref, bool, error) {
	h, err := g.resolve(ref)
	if err != nil {
		return registry.Ref{}, false, err
	}
	var child bridge.NativeHandle
	err = g.call("ChildContext", func(api bridge.API) error {
		var err error
		child, err = api.ChildContext(h, index)
		return err
	})
	if err != nil {
		return registry.Ref{}, false, err
	}
	if child.Zero() {
		return registry.Ref{}, false, nil
	}
	return g.Register(child), true, nil
}

// ParentContext fetches and registers the parent of ref. ok is false at the
// top of the tree.
func (g *Gateway) ParentContext(ref registry.Ref) (registry.Ref, bool, error) {
	h, err := g.resolve(ref)
	if err != nil {
		return registry.Ref{}, false, err
	}
	var parent bridge.NativeHandle
	err = g.call("ParentContext", func(api bridge.API) error {
		var err error
		parent, err = api.ParentContext(h)
		return err
	})
	if err != nil {
		return registry.Ref{}, false, err
	}
	if parent.Zero() {
		return registry.Ref{}, false, nil
	}
	return g.Register(parent), true, nil
}

// VisibleChildren fetches and registers only the visible children of ref.
func (g *Gateway) VisibleChildren(ref registry.Ref) ([]registry.Ref, error) {
	h, err := g.resolve(ref)
	if err != nil {
		return nil, err
	}
	var handles []bridge.NativeHandle
	err = g.call("VisibleChildren", func(api bridge.API) error {
		var err error
		handles, err = api.VisibleChildren(h)
		return err
	})
	if err != nil {
		return nil, err
	}
	refs := make([]registry.Ref, len(handles))
	for i, ch := range handles {
		refs[i] = g.Register(ch)
	}
	return refs, nil
}

// TopLevelObject fetches and registers the top-level window object above
// ref. ok is false when the backend reports none, which happens while the
// window is tearing down.
func (g *Gateway) TopLevelObject(ref registry.Ref) (registry.Ref, bool, error) {
	h, err := g.resolve(ref)
	if err != nil {
		return registry.Ref{}, false, err
	}
	var top bridge.NativeHandle
	err = g.call("TopLevelObject", func(api bridge.API) error {
		var err error
		top, err = api.TopLevelObject(h)
		return err
	})
	if err != nil {
		return registry.Ref{}, false, err
	}
	if top.Zero() {
		return registry.Ref{}, false, nil
	}
	return g.Register(top), true, nil
}

// ObjectDepth returns how deep ref sits in the accessible hierarchy.
func (g *Gateway) ObjectDepth(ref registry.Ref) (int, error) {
	h, err := g.resolve(ref)
	if err != nil {
		return -1, err
	}
	depth := -1
	err = g.call("ObjectDepth", func(api bridge.API) error {
		var err error
		depth, err = api.ObjectDepth(h)
		return err
	})
	return depth, err
}

// IsSameObject reports whether two refs point at the same native object.
func (g *Gateway) IsSameObject(a, b registry.Ref) (bool, error) {
	ha, err := g.resolve(a)
	if err != nil {
		return false, err
	}
	hb, err := g.resolve(b)
	if err != nil {
		return false, err
	}
	var same bool
	err = g.call("IsSameObject", func(api bridge.API) error {
		var err error
		same, err = api.IsSameObject(ha, hb)
		return err
	})
	return same, err
}

// Actions lists the accessible actions supported by ref.
func (g *Gateway) Actions(ref registry.Ref) ([]string, error) {
	h, err := g.resolve(ref)
	if err != nil {
		return nil, err
	}
	var actions []string
	err = g.call("Actions", func(api bridge.API) error {
		var err error
		actions, err = api.Actions(h)
		return err
	})
	return actions, err
}

// DoAction invokes a named accessible action on ref.
func (g *Gateway) DoAction(ref registry.Ref, action string) error {
	h, err := g.resolve(ref)
	if err != nil {
		return err
	}
	return g.call("DoAction", func(api bridge.API) error {
		return api.DoAction(h, action)
	})
}

// SetTextContents replaces the text of an accessible-text element.
func (g *Gateway) SetTextContents(ref registry.Ref, text string) error {
	h, err := g.resolve(ref)
	if err != nil {
		return err
	}
	return g.call("SetTextContents", func(api bridge.API) error {
		return api.SetTextContents(h, text)
	})
}

// Text reads the full accessible text of ref.
func (g *Gateway) Text(ref registry.Ref) (string, error) {
	h, err := g.resolve(ref)
	if err != nil {
		return "", err
	}
	var text string
	err = g.call("Text", func(api bridge.API) error {
		var err error
		text, err = api.Text(h)
		return err
	})
	return text, err
}

// RequestFocus asks the JVM to move keyboard focus to ref.
func (g *Gateway) RequestFocus(ref registry.Ref) error {
	h, err := g.resolve(ref)
	if err != nil {
		return err
	}
	return g.call("RequestFocus", func(api bridge.API) error {
		return api.RequestFocus(h)
	})
}

// Release marks the entry dead in the registry and hands the native
// reference back to the bridge. Idempotent: a second release is a no-op and
// performs no native call.
func (g *Gateway) Release(id registry.StableID) {
	h, ok := g.reg.Release(id)
	if !ok {
		return
	}
	g.releaseNative(h)
}

// ReleaseSession releases every handle this session still owns.
func (g *Gateway) ReleaseSession() {
	for _, h := range g.reg.ReleaseAll(g.session) {
		g.releaseNative(h)
	}
}

func (g *Gateway) releaseNative(h bridge.NativeHandle) {
	err := g.call("ReleaseObject", func(api bridge.API) error {
		return api.ReleaseObject(h)
	})
	if err != nil {
		g.log.Warn("native release failed", zap.Uint64("ac", h.AC), zap.Error(err))
	}
}

// consume is the single drain of the bridge's ordered event stream.
func (g *Gateway) consume() {
	defer g.wg.Done()
	events := g.api.Events()
	for {
		select {
		case <-g.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			g.apply(ev)
		}
	}
}

// apply updates registry/caches for one event, then notifies subscribers.
// Events that cannot be mapped to tracked state are logged and skipped, never
// dropped silently.
func (g *Gateway) apply(ev bridge.Event) {
	if !ev.Object.Zero() {
		g.mu.Lock()
		last, seen := g.lastSeq[ev.Object]
		if seen && ev.Seq <= last {
			g.mu.Unlock()
			g.log.Warn("out-of-order bridge event skipped",
				zap.String("kind", string(ev.Kind)),
				zap.Uint64("seq", ev.Seq),
				zap.Uint64("last_applied", last))
			return
		}
		g.lastSeq[ev.Object] = ev.Seq
		g.mu.Unlock()
	}

	switch ev.Kind {
	case bridge.EventWindowClosed, bridge.EventJavaShutdown:
		// The JVM side is gone; the handles are already dead. Mark every
		// entry stale without calling back into the bridge.
		g.reg.ReleaseAll(g.session)
	default:
		ref, ok := g.reg.FindByHandle(ev.Object)
		if !ok {
			g.log.Warn("bridge event for untracked object skipped",
				zap.String("kind", string(ev.Kind)),
				zap.Uint64("ac", ev.Object.AC))
			break
		}
		g.mu.Lock()
		inval := g.inval
		g.mu.Unlock()
		if inval != nil {
			inval.Invalidate(ref, ev)
		}
	}

	g.notify(ev)
}

func (g *Gateway) notify(ev bridge.Event) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, ch := range g.subs {
		select {
		case ch <- ev:
		default:
			g.log.Warn("event subscriber overflow, notification lost",
				zap.Int("subscriber", id),
				zap.String("kind", string(ev.Kind)))
		}
	}
}

// IsStale reports whether err is the registry's staleness signal.
func IsStale(err error) bool {
	return errors.Is(err, registry.ErrStaleHandle)
}
