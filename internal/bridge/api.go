package bridge

import (
	"fmt"
	"runtime"
)

// API is the functional contract of the Windows Access Bridge. Everything the
// driver needs from the native library goes through this interface; the real
// implementation lives in the build-tagged winjab package, and tests use an
// in-memory fake.
//
// Implementations must tolerate concurrent calls from multiple goroutines.
// A zero NativeHandle result with a nil error means "no such object" (for
// example, ParentContext at the root).
type API interface {
	// Start initializes the bridge (Windows_run) and begins delivering
	// callback events on the Events channel.
	Start() error

	// EnumJavaWindows lists the top-level Java windows currently on screen.
	EnumJavaWindows() ([]WindowInfo, error)

	// ContextFromHWND fetches the root accessible context of a Java window.
	ContextFromHWND(hwnd uintptr) (NativeHandle, error)

	ContextInfo(h NativeHandle) (ContextInfo, error)
	ChildContext(h NativeHandle, index int) (NativeHandle, error)
	ParentContext(h NativeHandle) (NativeHandle, error)
	VisibleChildren(h NativeHandle) ([]NativeHandle, error)
	TopLevelObject(h NativeHandle) (NativeHandle, error)
	ObjectDepth(h NativeHandle) (int, error)
	IsSameObject(a, b NativeHandle) (bool, error)

	Actions(h NativeHandle) ([]string, error)
	DoAction(h NativeHandle, action string) error
	SetTextContents(h NativeHandle, text string) error
	Text(h NativeHandle) (string, error)
	RequestFocus(h NativeHandle) error

	// ReleaseObject returns the native reference to the bridge. Safe to call
	// once per handle; the bridge keeps objects alive until released.
	ReleaseObject(h NativeHandle) error

	// Events is the raw callback stream from the bridge. The channel is
	// closed by Close. Events for a single object arrive in the order the
	// native library raised them.
	Events() <-chan Event

	Close() error
}

// ErrUnsupported is returned when no bridge backend is available for the
// current OS.
var ErrUnsupported = fmt.Errorf("the Java Access Bridge is not available on %s/%s; supported: windows/amd64", runtime.GOOS, runtime.GOARCH)

// NewAPIFunc is set by the platform backend via init().
// See internal/bridge/winjab for the Windows registration.
var NewAPIFunc func(dllPath string) (API, error)

// NewAPI returns the bridge backend for the current OS.
func NewAPI(dllPath string) (API, error) {
	if NewAPIFunc == nil {
		return nil, ErrUnsupported
	}
	return NewAPIFunc(dllPath)
}
