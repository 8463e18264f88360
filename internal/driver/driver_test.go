package driver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openjab/jab-cli/internal/bridge"
	"github.com/openjab/jab-cli/internal/bridge/bridgetest"
	"github.com/openjab/jab-cli/internal/locator"
	"github.com/openjab/jab-cli/internal/waiter"
)

func newDriver(t *testing.T, fake *bridgetest.Fake, opts ...Option) *Driver {
	t.Helper()
	d := New(fake, opts...)
	require.NoError(t, d.Start())
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func bindMain(t *testing.T, fake *bridgetest.Fake) (*Driver, *Element) {
	t.Helper()
	d := newDriver(t, fake)
	root, err := d.Bind(context.Background(), "Main")
	require.NoError(t, err)
	return d, root
}

func waitCond(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached within deadline")
}

func TestBindByTitleSubstring(t *testing.T) {
	root := bridgetest.N("frame", "Main")
	fake := bridgetest.NewFake("Main Window - v2", root)

	d := newDriver(t, fake)
	el, err := d.Bind(context.Background(), "Main Window")
	require.NoError(t, err)

	role, err := el.Role()
	require.NoError(t, err)
	require.Equal(t, "frame", role)
	require.Equal(t, "Main Window - v2", d.Window().Title)
}

func TestBindTimeoutIsWindowNotFound(t *testing.T) {
	fake := bridgetest.NewFake("Main", bridgetest.N("frame", "Main"))
	clock := waiter.NewFakeClock()
	d := newDriver(t, fake, WithClock(clock), WithBindTimeout(time.Second))

	done := make(chan struct{})
	var err error
	go func() {
		defer close(done)
		_, err = d.Bind(context.Background(), "No Such Window")
	}()

	giveUp := time.Now().Add(5 * time.Second)
	for time.Now().Before(giveUp) {
		select {
		case <-done:
			require.True(t, errors.Is(err, ErrWindowNotFound), "got %v", err)
			return
		default:
		}
		if clock.Waiting() > 0 {
			clock.Advance(waiter.DefaultInterval)
		} else {
			time.Sleep(time.Millisecond)
		}
	}
	t.Fatal("bind never timed out")
}

func TestFindWrapsEngine(t *testing.T) {
	root := bridgetest.N("frame", "Main",
		bridgetest.N("panel", "body",
			bridgetest.N("push button", "OK"),
		),
	)
	_, rootEl := bindMain(t, bridgetest.NewFake("Main", root))

	el, err := rootEl.Find(locator.Locator{By: locator.ByName, Value: "OK"})
	require.NoError(t, err)
	name, err := el.Name()
	require.NoError(t, err)
	require.Equal(t, "OK", name)

	_, err = rootEl.Find(locator.Locator{By: locator.ByName, Value: "missing"})
	require.True(t, errors.Is(err, locator.ErrNotFound))
}

func TestStaleElementRetriesLocatorOnce(t *testing.T) {
	button := bridgetest.N("push button", "OK")
	root := bridgetest.N("frame", "Main", button)
	fake := bridgetest.NewFake("Main", root)
	d, rootEl := bindMain(t, fake)

	el, err := rootEl.Find(locator.Locator{By: locator.ByName, Value: "OK"})
	require.NoError(t, err)

	// The native object goes away and an equivalent one takes its place,
	// the dialog-reopened scenario.
	d.gw.Release(el.ID())
	fake.Mutate(func() {
		root.Children = nil
	})
	root.AddChild(bridgetest.N("push button", "OK").WithActions("click"))

	require.NoError(t, el.Click(), "one stale failure must recover through the locator")
}

func TestStaleElementUnrecoverableSurfacesError(t *testing.T) {
	root := bridgetest.N("frame", "Main",
		bridgetest.N("push button", "OK").WithActions("click"),
	)
	fake := bridgetest.NewFake("Main", root)
	d, rootEl := bindMain(t, fake)

	el, err := rootEl.Find(locator.Locator{By: locator.ByName, Value: "OK"})
	require.NoError(t, err)

	d.gw.Release(el.ID())
	fake.Mutate(func() {
		root.Children = nil
	})

	err = el.Click()
	require.Error(t, err)
	require.True(t, errors.Is(err, locator.ErrNotFound), "relocation failure must surface, got %v", err)
}

func TestAttributeReadsServeCacheUntilInvalidated(t *testing.T) {
	label := bridgetest.N("label", "loading...")
	root := bridgetest.N("frame", "Main", label)
	fake := bridgetest.NewFake("Main", root)
	d, rootEl := bindMain(t, fake)

	el, err := rootEl.Find(locator.Locator{By: locator.ByRole, Value: "label"})
	require.NoError(t, err)

	// The native side changes; without an event the cache still serves.
	fake.Mutate(func() { label.Name = "done" })
	name, err := el.Name()
	require.NoError(t, err)
	require.Equal(t, "loading...", name)

	h := fake.HandleFor(label)
	fake.Emit(bridge.Event{Kind: bridge.EventNameChange, Object: h, Seq: 1, Old: "loading...", New: "done"})
	waitCond(t, func() bool { return d.isDirty(el.ID()) })

	name, err = el.Name()
	require.NoError(t, err)
	require.Equal(t, "done", name, "an invalidated snapshot must be re-read")
}

func TestInvokeActionValidatesAgainstAdvertised(t *testing.T) {
	root := bridgetest.N("frame", "Main",
		bridgetest.N("push button", "OK").WithActions("click", "press"),
	)
	_, rootEl := bindMain(t, bridgetest.NewFake("Main", root))

	el, err := rootEl.Find(locator.Locator{By: locator.ByName, Value: "OK"})
	require.NoError(t, err)

	require.NoError(t, el.InvokeAction("press"))
	err = el.InvokeAction("toggle")
	require.Error(t, err)
	require.Contains(t, err.Error(), "click, press", "the error must name the supported actions")
}

func TestSetTextRequiresAccessibleText(t *testing.T) {
	root := bridgetest.N("frame", "Main",
		bridgetest.N("text", "user"),
		bridgetest.N("push button", "OK"),
	)
	_, rootEl := bindMain(t, bridgetest.NewFake("Main", root))

	field, err := rootEl.Find(locator.Locator{By: locator.ByRole, Value: "text"})
	require.NoError(t, err)
	require.NoError(t, field.SetText("admin"))
	text, err := field.Text()
	require.NoError(t, err)
	require.Equal(t, "admin", text)

	button, err := rootEl.Find(locator.Locator{By: locator.ByName, Value: "OK"})
	require.NoError(t, err)
	require.Error(t, button.SetText("nope"))
}

type recordingInput struct {
	clicks []([2]int)
	typed  []string
}

func (r *recordingInput) Click(x, y int) error {
	r.clicks = append(r.clicks, [2]int{x, y})
	return nil
}

func (r *recordingInput) TypeText(s string) error {
	r.typed = append(r.typed, s)
	return nil
}

func TestClickPointerUsesCenter(t *testing.T) {
	root := bridgetest.N("frame", "Main",
		bridgetest.N("push button", "OK").WithBounds(100, 200, 80, 40),
	)
	in := &recordingInput{}
	d := newDriver(t, bridgetest.NewFake("Main", root), WithInput(in))
	rootEl, err := d.Bind(context.Background(), "Main")
	require.NoError(t, err)

	el, err := rootEl.Find(locator.Locator{By: locator.ByName, Value: "OK"})
	require.NoError(t, err)
	require.NoError(t, el.ClickPointer())
	require.Equal(t, [][2]int{{140, 220}}, in.clicks)
}

func TestSameElementByStableID(t *testing.T) {
	root := bridgetest.N("frame", "Main",
		bridgetest.N("push button", "OK"),
		bridgetest.N("push button", "Cancel"),
	)
	_, rootEl := bindMain(t, bridgetest.NewFake("Main", root))

	a, err := rootEl.Find(locator.Locator{By: locator.ByName, Value: "OK"})
	require.NoError(t, err)
	b, err := rootEl.Find(locator.Locator{By: locator.ByName, Value: "OK"})
	require.NoError(t, err)
	c, err := rootEl.Find(locator.Locator{By: locator.ByName, Value: "Cancel"})
	require.NoError(t, err)

	same, err := a.Same(b)
	require.NoError(t, err)
	require.True(t, same)
	same, err = a.Same(c)
	require.NoError(t, err)
	require.False(t, same)
}

func TestSameStaleElementComparesUnequal(t *testing.T) {
	root := bridgetest.N("frame", "Main",
		bridgetest.N("push button", "OK"),
		bridgetest.N("push button", "Cancel"),
	)
	d, rootEl := bindMain(t, bridgetest.NewFake("Main", root))

	a, err := rootEl.Find(locator.Locator{By: locator.ByName, Value: "OK"})
	require.NoError(t, err)
	b, err := rootEl.Find(locator.Locator{By: locator.ByName, Value: "Cancel"})
	require.NoError(t, err)

	d.gw.Release(a.ID())

	// A released handle is not the live object on the other side, in either
	// direction, and staleness is not an error here.
	same, err := a.Same(b)
	require.NoError(t, err)
	require.False(t, same)
	same, err = b.Same(a)
	require.NoError(t, err)
	require.False(t, same)
}

func TestWindowReturnsTopLevelElement(t *testing.T) {
	root := bridgetest.N("frame", "Main",
		bridgetest.N("panel", "body",
			bridgetest.N("push button", "OK"),
		),
	)
	_, rootEl := bindMain(t, bridgetest.NewFake("Main", root))

	el, err := rootEl.Find(locator.Locator{By: locator.ByName, Value: "OK"})
	require.NoError(t, err)

	win, err := el.Window()
	require.NoError(t, err)
	same, err := win.Same(rootEl)
	require.NoError(t, err)
	require.True(t, same, "the top-level object of a deep child is the bound window")
	role, err := win.Role()
	require.NoError(t, err)
	require.Equal(t, "frame", role)
}

func TestWaitUntilElementExistsWakesOnEvent(t *testing.T) {
	root := bridgetest.N("frame", "Main")
	fake := bridgetest.NewFake("Main", root)
	clock := waiter.NewFakeClock()
	d := newDriver(t, fake, WithClock(clock))
	rootEl, err := d.Bind(context.Background(), "Main")
	require.NoError(t, err)

	done := make(chan struct{})
	var el *Element
	var waitErr error
	go func() {
		defer close(done)
		el, waitErr = d.WaitUntilElementExists(context.Background(), rootEl,
			locator.Locator{By: locator.ByName, Value: "OK"}, time.Minute)
	}()

	// Let the first check miss, then grow the tree and signal it. The wake
	// must finish the wait without the clock ever advancing.
	waitCond(t, func() bool { return clock.Waiting() > 0 })
	fake.Mutate(func() {
		root.AddChild(bridgetest.N("push button", "OK"))
	})
	fake.Emit(bridge.Event{Kind: bridge.EventChildChange, Object: fake.HandleFor(root), Seq: 1})
	<-done

	require.NoError(t, waitErr)
	name, err := el.Name()
	require.NoError(t, err)
	require.Equal(t, "OK", name)
}

func TestWaitRejectsInvalidLocatorImmediately(t *testing.T) {
	fake := bridgetest.NewFake("Main", bridgetest.N("frame", "Main"))
	d, rootEl := bindMain(t, fake)

	before := fake.CallCount("ChildContext")
	_, err := d.WaitUntilElementExists(context.Background(), rootEl,
		locator.Locator{By: locator.ByXPath, Value: "button[@name"}, time.Minute)
	require.True(t, errors.Is(err, locator.ErrInvalidLocator), "got %v", err)
	require.Equal(t, before, fake.CallCount("ChildContext"))
}

func TestWaitTimesOut(t *testing.T) {
	fake := bridgetest.NewFake("Main", bridgetest.N("frame", "Main"))
	clock := waiter.NewFakeClock()
	d := newDriver(t, fake, WithClock(clock))
	rootEl, err := d.Bind(context.Background(), "Main")
	require.NoError(t, err)

	done := make(chan struct{})
	var waitErr error
	go func() {
		defer close(done)
		_, waitErr = d.WaitUntilElementExists(context.Background(), rootEl,
			locator.Locator{By: locator.ByName, Value: "never"}, 300*time.Millisecond)
	}()

	giveUp := time.Now().Add(5 * time.Second)
	for time.Now().Before(giveUp) {
		select {
		case <-done:
			require.True(t, errors.Is(waitErr, waiter.ErrTimeout), "got %v", waitErr)
			return
		default:
		}
		if clock.Waiting() > 0 {
			clock.Advance(100 * time.Millisecond)
		} else {
			time.Sleep(time.Millisecond)
		}
	}
	t.Fatal("wait never timed out")
}

func TestCloseReleasesSession(t *testing.T) {
	root := bridgetest.N("frame", "Main",
		bridgetest.N("push button", "OK"),
	)
	fake := bridgetest.NewFake("Main", root)
	d := New(fake)
	require.NoError(t, d.Start())
	rootEl, err := d.Bind(context.Background(), "Main")
	require.NoError(t, err)
	_, err = rootEl.Find(locator.Locator{By: locator.ByName, Value: "OK"})
	require.NoError(t, err)

	require.NoError(t, d.Close())
	require.GreaterOrEqual(t, fake.ReleasedCount(), 2, "root and found element go back to the bridge")
}
