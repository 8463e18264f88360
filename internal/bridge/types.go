package bridge

// NativeHandle identifies one accessible object inside a running JVM: the
// virtual machine id plus the 64-bit accessible-context reference issued by
// the access bridge. Handles are only meaningful for the bridge session that
// issued them and must be released back to the bridge when no longer needed.
type NativeHandle struct {
	VM int32
	AC uint64
}

// Zero reports whether the handle is the null reference.
func (h NativeHandle) Zero() bool {
	return h.AC == 0
}

// ContextInfo is the property snapshot of one accessible context, as returned
// by getAccessibleContextInfo.
type ContextInfo struct {
	Name        string
	Description string
	Role        string
	States      string // comma-joined en_US state flags

	IndexInParent int
	ChildCount    int

	X, Y, Width, Height int

	AccessibleComponent bool
	AccessibleAction    bool
	AccessibleSelection bool
	AccessibleText      bool
}

// WindowInfo describes one top-level Java window discovered on the desktop.
type WindowInfo struct {
	HWND  uintptr
	Title string
	PID   int32
}
