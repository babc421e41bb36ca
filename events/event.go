package events

import "fmt"

// EventPhase represents the phase of event dispatch.
type EventPhase int

const (
	PhaseNone      EventPhase = 0
	PhaseCapturing EventPhase = 1
	PhaseAtTarget  EventPhase = 2
	PhaseBubbling  EventPhase = 3
)

// String returns the phase name.
func (p EventPhase) String() string {
	switch p {
	case PhaseCapturing:
		return "capturing"
	case PhaseAtTarget:
		return "at-target"
	case PhaseBubbling:
		return "bubbling"
	default:
		return "none"
	}
}

// Event is passed to listeners when it is dispatched. The type is fixed at
// construction; the propagation and default flags only ever move from false
// to true.
type Event struct {
	Type          string
	Target        any
	CurrentTarget any
	Phase         EventPhase
	Detail        any

	propagationStopped    bool
	defaultPrevented      bool
	returnValueSuppressed bool

	native NativeEvent
}

// New creates an event of the given type.
func New(typ string) *Event {
	return &Event{Type: typ}
}

// NewWithDetail creates an event carrying a custom payload.
func NewWithDetail(typ string, detail any) *Event {
	return &Event{Type: typ, Detail: detail}
}

// wrapNative creates an event around an event delivered by a native source.
func wrapNative(ne NativeEvent, src any) *Event {
	return &Event{
		Type:          ne.Type(),
		Target:        src,
		CurrentTarget: src,
		Phase:         PhaseAtTarget,
		native:        ne,
	}
}

// StopPropagation prevents the event from reaching targets that have not been
// visited yet. Listeners on the current target still run.
func (e *Event) StopPropagation() {
	e.propagationStopped = true
	if e.native != nil {
		e.native.StopPropagation()
	}
}

// PreventDefault marks the default action as cancelled. For wrapped native
// events without a PreventDefault primitive the legacy return value is
// cleared instead.
func (e *Event) PreventDefault() {
	e.defaultPrevented = true
	e.returnValueSuppressed = true
	switch ne := e.native.(type) {
	case nil:
	case interface{ PreventDefault() }:
		ne.PreventDefault()
	case interface{ SetReturnValue(bool) }:
		ne.SetReturnValue(false)
	}
}

// SuppressReturnValue makes the enclosing dispatch report false without
// marking the default action as prevented.
func (e *Event) SuppressReturnValue() {
	e.returnValueSuppressed = true
}

// PropagationStopped reports whether StopPropagation was called.
func (e *Event) PropagationStopped() bool {
	return e.propagationStopped
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented
}

// ReturnValueSuppressed reports whether a listener returned false, called
// SuppressReturnValue, or prevented the default action.
func (e *Event) ReturnValueSuppressed() bool {
	return e.returnValueSuppressed
}

// Native returns the wrapped native event, or nil.
func (e *Event) Native() NativeEvent {
	return e.native
}

// String returns a short description of the event.
func (e *Event) String() string {
	return fmt.Sprintf("[Event type=%s phase=%s]", e.Type, e.Phase)
}
