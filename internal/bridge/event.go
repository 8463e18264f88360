package bridge

// EventKind classifies a bridge callback.
type EventKind string

const (
	EventFocusGained    EventKind = "focus_gained"
	EventNameChange     EventKind = "property_name_change"
	EventDescChange     EventKind = "property_description_change"
	EventValueChange    EventKind = "property_value_change"
	EventStateChange    EventKind = "property_state_change"
	EventCaretChange    EventKind = "property_caret_change"
	EventChildChange    EventKind = "property_child_change"
	EventWindowClosed   EventKind = "window_closed"
	EventJavaShutdown   EventKind = "java_shutdown"
)

// Event is one callback raised by the native bridge. Seq is assigned by the
// backend per source object, strictly increasing in native delivery order;
// the gateway uses it to reject out-of-order application to cached state.
type Event struct {
	Kind   EventKind
	Object NativeHandle
	Seq    uint64

	// Old and New carry the property values for property-change events.
	Old string
	New string
}
