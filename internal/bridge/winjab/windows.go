//go:build windows

package winjab

import (
	"fmt"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/openjab/jab-cli/internal/bridge"
)

func init() {
	bridge.NewAPIFunc = func(dllPath string) (bridge.API, error) {
		return open(dllPath)
	}
}

// Buffer sizes from AccessBridgeCalls.h.
const (
	maxStringSize      = 1024
	shortStringSize    = 256
	maxVisibleChildren = 256
	maxActionInfo      = 256
	maxActionsToDo     = 32

	eventBuffer = 1024
)

// contextInfoRaw mirrors the native AccessibleContextInfo struct.
type contextInfoRaw struct {
	name        [maxStringSize]uint16
	description [maxStringSize]uint16
	role        [shortStringSize]uint16
	roleEnUS    [shortStringSize]uint16
	states      [shortStringSize]uint16
	statesEnUS  [shortStringSize]uint16

	indexInParent int32
	childrenCount int32

	x, y, width, height int32

	accessibleComponent  int32
	accessibleAction     int32
	accessibleSelection  int32
	accessibleText       int32
	accessibleInterfaces int32
}

type visibleChildrenRaw struct {
	returnedChildrenCount int32
	children              [maxVisibleChildren]uint64
}

type actionInfoRaw struct {
	name [shortStringSize]uint16
}

type actionsRaw struct {
	actionsCount int32
	actionInfo   [maxActionInfo]actionInfoRaw
}

type actionsToDoRaw struct {
	actionsCount int32
	actions      [maxActionsToDo]actionInfoRaw
}

type textInfoRaw struct {
	charCount    int32
	caretIndex   int32
	indexAtPoint int32
}

type msg struct {
	hwnd    uintptr
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      struct{ x, y int32 }
}

// backend owns the loaded DLL and the pump thread. Every native call runs on
// that thread via the calls channel; public methods block until their closure
// has executed.
type backend struct {
	dll    *windows.LazyDLL
	user32 *windows.LazyDLL

	windowsRun          *windows.LazyProc
	isJavaWindow        *windows.LazyProc
	contextFromHWND     *windows.LazyProc
	contextInfo         *windows.LazyProc
	childFromContext    *windows.LazyProc
	parentFromContext   *windows.LazyProc
	visibleChildren     *windows.LazyProc
	topLevelObject      *windows.LazyProc
	objectDepth         *windows.LazyProc
	sameObject          *windows.LazyProc
	releaseJavaObject   *windows.LazyProc
	accessibleActions   *windows.LazyProc
	doAccessibleActions *windows.LazyProc
	setTextContents     *windows.LazyProc
	textInfo            *windows.LazyProc
	textRange           *windows.LazyProc
	requestFocus        *windows.LazyProc

	enumWindows      *windows.LazyProc
	getWindowText    *windows.LazyProc
	getWindowThread  *windows.LazyProc
	peekMessage      *windows.LazyProc
	translateMessage *windows.LazyProc
	dispatchMessage  *windows.LazyProc

	calls  chan func()
	events chan bridge.Event

	// enumCB is allocated once: NewCallback slots are never released.
	// enumResult is only touched on the pump thread during EnumWindows.
	enumOnce   sync.Once
	enumCB     uintptr
	enumResult []bridge.WindowInfo

	mu      sync.Mutex
	seq     map[bridge.NativeHandle]uint64
	dropped uint64
	started bool
	closed  bool
	done    chan struct{}
}

func open(dllPath string) (bridge.API, error) {
	b := &backend{
		dll:    windows.NewLazyDLL(dllPath),
		user32: windows.NewLazySystemDLL("user32.dll"),
		calls:  make(chan func()),
		events: make(chan bridge.Event, eventBuffer),
		seq:    make(map[bridge.NativeHandle]uint64),
		done:   make(chan struct{}),
	}
	if err := b.dll.Load(); err != nil {
		return nil, fmt.Errorf("load %s: %w", dllPath, err)
	}

	b.windowsRun = b.dll.NewProc("Windows_run")
	b.isJavaWindow = b.dll.NewProc("isJavaWindow")
	b.contextFromHWND = b.dll.NewProc("getAccessibleContextFromHWND")
	b.contextInfo = b.dll.NewProc("getAccessibleContextInfo")
	b.childFromContext = b.dll.NewProc("getAccessibleChildFromContext")
	b.parentFromContext = b.dll.NewProc("getAccessibleParentFromContext")
	b.visibleChildren = b.dll.NewProc("getVisibleChildren")
	b.topLevelObject = b.dll.NewProc("getTopLevelObject")
	b.objectDepth = b.dll.NewProc("getObjectDepth")
	b.sameObject = b.dll.NewProc("isSameObject")
	b.releaseJavaObject = b.dll.NewProc("releaseJavaObject")
	b.accessibleActions = b.dll.NewProc("getAccessibleActions")
	b.doAccessibleActions = b.dll.NewProc("doAccessibleActions")
	b.setTextContents = b.dll.NewProc("setTextContents")
	b.textInfo = b.dll.NewProc("getAccessibleTextInfo")
	b.textRange = b.dll.NewProc("getAccessibleTextRange")
	b.requestFocus = b.dll.NewProc("requestFocus")

	b.enumWindows = b.user32.NewProc("EnumWindows")
	b.getWindowText = b.user32.NewProc("GetWindowTextW")
	b.getWindowThread = b.user32.NewProc("GetWindowThreadProcessId")
	b.peekMessage = b.user32.NewProc("PeekMessageW")
	b.translateMessage = b.user32.NewProc("TranslateMessage")
	b.dispatchMessage = b.user32.NewProc("DispatchMessageW")

	return b, nil
}

func (b *backend) Start() error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = true
	b.mu.Unlock()

	ready := make(chan error, 1)
	go b.pump(ready)
	return <-ready
}

// pump owns the bridge for the lifetime of the backend. Callbacks fire
// inside PeekMessage dispatch, so event delivery and native calls never
// overlap.
func (b *backend) pump(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := b.windowsRun.Find(); err != nil {
		ready <- fmt.Errorf("Windows_run: %w", err)
		return
	}
	b.windowsRun.Call()
	b.registerCallbacks()
	ready <- nil

	var m msg
	for {
		select {
		case <-b.done:
			return
		case fn := <-b.calls:
			fn()
		default:
		}
		got, _, _ := b.peekMessage.Call(
			uintptr(unsafe.Pointer(&m)), 0, 0, 0, 1 /* PM_REMOVE */)
		if got != 0 {
			b.translateMessage.Call(uintptr(unsafe.Pointer(&m)))
			b.dispatchMessage.Call(uintptr(unsafe.Pointer(&m)))
			continue
		}
		// Idle: block on calls or shutdown, waking periodically to pump.
		select {
		case <-b.done:
			return
		case fn := <-b.calls:
			fn()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// do runs fn on the pump thread and waits for it.
func (b *backend) do(fn func()) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("bridge is closed")
	}
	if !b.started {
		b.mu.Unlock()
		return fmt.Errorf("bridge not started")
	}
	b.mu.Unlock()

	doneCh := make(chan struct{})
	select {
	case b.calls <- func() { fn(); close(doneCh) }:
	case <-b.done:
		return fmt.Errorf("bridge is closed")
	}
	select {
	case <-doneCh:
		return nil
	case <-b.done:
		return fmt.Errorf("bridge is closed")
	}
}

// emit assigns the per-object sequence number and queues the event. The
// channel is buffered; when the consumer falls behind the event is dropped
// rather than stalling the message pump.
func (b *backend) emit(kind bridge.EventKind, obj bridge.NativeHandle, old, new string) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.seq[obj]++
	ev := bridge.Event{Kind: kind, Object: obj, Seq: b.seq[obj], Old: old, New: new}
	select {
	case b.events <- ev:
	default:
		b.dropped++
	}
	b.mu.Unlock()
}

func (b *backend) registerCallbacks() {
	type setter struct {
		name string
		kind bridge.EventKind
	}
	// Property-change callbacks share a signature:
	// (vmID, event jobject, source jobject, old *wchar, new *wchar).
	for _, s := range []setter{
		{"setPropertyNameChangeFP", bridge.EventNameChange},
		{"setPropertyDescriptionChangeFP", bridge.EventDescChange},
		{"setPropertyValueChangeFP", bridge.EventValueChange},
		{"setPropertyStateChangeFP", bridge.EventStateChange},
		{"setPropertyCaretChangeFP", bridge.EventCaretChange},
	} {
		kind := s.kind
		cb := windows.NewCallback(func(vm uintptr, event, source uint64, oldVal, newVal *uint16) uintptr {
			h := bridge.NativeHandle{VM: int32(vm), AC: source}
			b.emit(kind, h, windows.UTF16PtrToString(oldVal), windows.UTF16PtrToString(newVal))
			b.releaseRaw(int32(vm), event)
			b.releaseRaw(int32(vm), source)
			return 0
		})
		b.dll.NewProc(s.name).Call(cb)
	}

	focusCB := windows.NewCallback(func(vm uintptr, event, source uint64) uintptr {
		h := bridge.NativeHandle{VM: int32(vm), AC: source}
		b.emit(bridge.EventFocusGained, h, "", "")
		b.releaseRaw(int32(vm), event)
		b.releaseRaw(int32(vm), source)
		return 0
	})
	b.dll.NewProc("setFocusGainedFP").Call(focusCB)

	childCB := windows.NewCallback(func(vm uintptr, event, source, oldChild, newChild uint64) uintptr {
		h := bridge.NativeHandle{VM: int32(vm), AC: source}
		b.emit(bridge.EventChildChange, h, "", "")
		b.releaseRaw(int32(vm), event)
		b.releaseRaw(int32(vm), source)
		b.releaseRaw(int32(vm), oldChild)
		b.releaseRaw(int32(vm), newChild)
		return 0
	})
	b.dll.NewProc("setPropertyChildChangeFP").Call(childCB)

	shutdownCB := windows.NewCallback(func(vm uintptr) uintptr {
		b.emit(bridge.EventJavaShutdown, bridge.NativeHandle{VM: int32(vm)}, "", "")
		return 0
	})
	b.dll.NewProc("setJavaShutdownFP").Call(shutdownCB)
}

// releaseRaw frees a jobject handed to a callback. Callback objects are owned
// by the receiver; leaking them exhausts the bridge's reference table.
func (b *backend) releaseRaw(vm int32, ac uint64) {
	if ac == 0 {
		return
	}
	b.releaseJavaObject.Call(uintptr(uint32(vm)), uintptr(ac))
}

func (b *backend) EnumJavaWindows() ([]bridge.WindowInfo, error) {
	var out []bridge.WindowInfo
	err := b.do(func() {
		b.enumOnce.Do(func() {
			b.enumCB = windows.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
				isJava, _, _ := b.isJavaWindow.Call(hwnd)
				if isJava == 0 {
					return 1 // continue enumeration
				}
				var buf [512]uint16
				b.getWindowText.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
				var pid uint32
				b.getWindowThread.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
				b.enumResult = append(b.enumResult, bridge.WindowInfo{
					HWND:  hwnd,
					Title: windows.UTF16ToString(buf[:]),
					PID:   int32(pid),
				})
				return 1
			})
		})
		b.enumResult = nil
		b.enumWindows.Call(b.enumCB, 0)
		out = b.enumResult
	})
	return out, err
}

func (b *backend) ContextFromHWND(hwnd uintptr) (bridge.NativeHandle, error) {
	var h bridge.NativeHandle
	var callErr error
	err := b.do(func() {
		var vm int32
		var ac uint64
		ok, _, _ := b.contextFromHWND.Call(hwnd,
			uintptr(unsafe.Pointer(&vm)), uintptr(unsafe.Pointer(&ac)))
		if ok == 0 {
			callErr = fmt.Errorf("getAccessibleContextFromHWND failed for hwnd %#x", hwnd)
			return
		}
		h = bridge.NativeHandle{VM: vm, AC: ac}
	})
	if err != nil {
		return bridge.NativeHandle{}, err
	}
	return h, callErr
}

func (b *backend) ContextInfo(h bridge.NativeHandle) (bridge.ContextInfo, error) {
	var info bridge.ContextInfo
	var callErr error
	err := b.do(func() {
		var raw contextInfoRaw
		ok, _, _ := b.contextInfo.Call(uintptr(uint32(h.VM)), uintptr(h.AC),
			uintptr(unsafe.Pointer(&raw)))
		if ok == 0 {
			callErr = fmt.Errorf("getAccessibleContextInfo failed")
			return
		}
		info = bridge.ContextInfo{
			Name:                windows.UTF16ToString(raw.name[:]),
			Description:         windows.UTF16ToString(raw.description[:]),
			Role:                windows.UTF16ToString(raw.roleEnUS[:]),
			States:              windows.UTF16ToString(raw.statesEnUS[:]),
			IndexInParent:       int(raw.indexInParent),
			ChildCount:          int(raw.childrenCount),
			X:                   int(raw.x),
			Y:                   int(raw.y),
			Width:               int(raw.width),
			Height:              int(raw.height),
			AccessibleComponent: raw.accessibleComponent != 0,
			AccessibleAction:    raw.accessibleAction != 0,
			AccessibleSelection: raw.accessibleSelection != 0,
			AccessibleText:      raw.accessibleText != 0,
		}
	})
	if err != nil {
		return bridge.ContextInfo{}, err
	}
	return info, callErr
}

func (b *backend) ChildContext(h bridge.NativeHandle, index int) (bridge.NativeHandle, error) {
	var child bridge.NativeHandle
	err := b.do(func() {
		ac, _, _ := b.childFromContext.Call(uintptr(uint32(h.VM)), uintptr(h.AC), uintptr(index))
		child = bridge.NativeHandle{VM: h.VM, AC: uint64(ac)}
	})
	return child, err
}

func (b *backend) ParentContext(h bridge.NativeHandle) (bridge.NativeHandle, error) {
	var parent bridge.NativeHandle
	err := b.do(func() {
		ac, _, _ := b.parentFromContext.Call(uintptr(uint32(h.VM)), uintptr(h.AC))
		parent = bridge.NativeHandle{VM: h.VM, AC: uint64(ac)}
	})
	return parent, err
}

func (b *backend) VisibleChildren(h bridge.NativeHandle) ([]bridge.NativeHandle, error) {
	var out []bridge.NativeHandle
	var callErr error
	err := b.do(func() {
		start := 0
		for {
			var raw visibleChildrenRaw
			ok, _, _ := b.visibleChildren.Call(uintptr(uint32(h.VM)), uintptr(h.AC),
				uintptr(start), uintptr(unsafe.Pointer(&raw)))
			if ok == 0 {
				callErr = fmt.Errorf("getVisibleChildren failed at offset %d", start)
				return
			}
			n := int(raw.returnedChildrenCount)
			for i := 0; i < n; i++ {
				out = append(out, bridge.NativeHandle{VM: h.VM, AC: raw.children[i]})
			}
			if n < maxVisibleChildren {
				return
			}
			start += n
		}
	})
	if err != nil {
		return nil, err
	}
	return out, callErr
}

func (b *backend) TopLevelObject(h bridge.NativeHandle) (bridge.NativeHandle, error) {
	var top bridge.NativeHandle
	err := b.do(func() {
		ac, _, _ := b.topLevelObject.Call(uintptr(uint32(h.VM)), uintptr(h.AC))
		top = bridge.NativeHandle{VM: h.VM, AC: uint64(ac)}
	})
	return top, err
}

func (b *backend) ObjectDepth(h bridge.NativeHandle) (int, error) {
	var depth int
	err := b.do(func() {
		d, _, _ := b.objectDepth.Call(uintptr(uint32(h.VM)), uintptr(h.AC))
		depth = int(int32(d))
	})
	return depth, err
}

func (b *backend) IsSameObject(a, c bridge.NativeHandle) (bool, error) {
	var same bool
	err := b.do(func() {
		ok, _, _ := b.sameObject.Call(uintptr(uint32(a.VM)), uintptr(a.AC), uintptr(c.AC))
		same = ok != 0
	})
	return same, err
}

func (b *backend) Actions(h bridge.NativeHandle) ([]string, error) {
	var out []string
	var callErr error
	err := b.do(func() {
		raw := &actionsRaw{} // 128 KiB, keep off the stack
		ok, _, _ := b.accessibleActions.Call(uintptr(uint32(h.VM)), uintptr(h.AC),
			uintptr(unsafe.Pointer(raw)))
		if ok == 0 {
			callErr = fmt.Errorf("getAccessibleActions failed")
			return
		}
		n := int(raw.actionsCount)
		if n > maxActionInfo {
			n = maxActionInfo
		}
		for i := 0; i < n; i++ {
			out = append(out, windows.UTF16ToString(raw.actionInfo[i].name[:]))
		}
	})
	if err != nil {
		return nil, err
	}
	return out, callErr
}

func (b *backend) DoAction(h bridge.NativeHandle, action string) error {
	var callErr error
	err := b.do(func() {
		var todo actionsToDoRaw
		todo.actionsCount = 1
		u, convErr := windows.UTF16FromString(action)
		if convErr != nil {
			callErr = convErr
			return
		}
		copy(todo.actions[0].name[:], u)
		var failure int32
		ok, _, _ := b.doAccessibleActions.Call(uintptr(uint32(h.VM)), uintptr(h.AC),
			uintptr(unsafe.Pointer(&todo)), uintptr(unsafe.Pointer(&failure)))
		if ok == 0 {
			callErr = fmt.Errorf("action %q failed at index %d", action, failure)
		}
	})
	if err != nil {
		return err
	}
	return callErr
}

func (b *backend) SetTextContents(h bridge.NativeHandle, text string) error {
	var callErr error
	err := b.do(func() {
		p, convErr := windows.UTF16PtrFromString(text)
		if convErr != nil {
			callErr = convErr
			return
		}
		ok, _, _ := b.setTextContents.Call(uintptr(uint32(h.VM)), uintptr(h.AC),
			uintptr(unsafe.Pointer(p)))
		if ok == 0 {
			callErr = fmt.Errorf("setTextContents failed")
		}
	})
	if err != nil {
		return err
	}
	return callErr
}

func (b *backend) Text(h bridge.NativeHandle) (string, error) {
	var out string
	var callErr error
	err := b.do(func() {
		var info textInfoRaw
		ok, _, _ := b.textInfo.Call(uintptr(uint32(h.VM)), uintptr(h.AC),
			uintptr(unsafe.Pointer(&info)), 0, 0)
		if ok == 0 {
			callErr = fmt.Errorf("getAccessibleTextInfo failed")
			return
		}
		n := int(info.charCount)
		if n <= 0 {
			return
		}
		// getAccessibleTextRange takes a 16-bit length.
		if n > 32000 {
			n = 32000
		}
		buf := make([]uint16, n+1)
		ok, _, _ = b.textRange.Call(uintptr(uint32(h.VM)), uintptr(h.AC),
			0, uintptr(n-1), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
		if ok == 0 {
			callErr = fmt.Errorf("getAccessibleTextRange failed")
			return
		}
		out = windows.UTF16ToString(buf)
	})
	if err != nil {
		return "", err
	}
	return out, callErr
}

func (b *backend) RequestFocus(h bridge.NativeHandle) error {
	var callErr error
	err := b.do(func() {
		ok, _, _ := b.requestFocus.Call(uintptr(uint32(h.VM)), uintptr(h.AC))
		if ok == 0 {
			callErr = fmt.Errorf("requestFocus failed")
		}
	})
	if err != nil {
		return err
	}
	return callErr
}

func (b *backend) ReleaseObject(h bridge.NativeHandle) error {
	if h.Zero() {
		return nil
	}
	return b.do(func() {
		b.releaseJavaObject.Call(uintptr(uint32(h.VM)), uintptr(h.AC))
		b.mu.Lock()
		delete(b.seq, h)
		b.mu.Unlock()
	})
}

func (b *backend) Events() <-chan bridge.Event {
	return b.events
}

func (b *backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.events)
	b.mu.Unlock()
	close(b.done)
	return nil
}
