package events

import "reflect"

// Handler receives dispatched events. The receiver is the value given with
// WithReceiver at registration time (nil when none was given). Returning false
// makes the enclosing dispatch report false.
//
// Handlers are identified with ==, so implementations must have a comparable
// dynamic type; pointer receivers are the usual choice.
type Handler interface {
	HandleEvent(e *Event, receiver any) bool
}

type funcHandler struct {
	fn func(e *Event, receiver any) bool
}

func (h *funcHandler) HandleEvent(e *Event, receiver any) bool {
	return h.fn(e, receiver)
}

// Func wraps fn as a Handler that always returns true. Keep the returned value
// to unlisten later; two calls to Func never yield equal handlers.
func Func(fn func(e *Event)) Handler {
	return &funcHandler{fn: func(e *Event, _ any) bool {
		fn(e)
		return true
	}}
}

// BoolFunc wraps fn as a Handler whose result feeds the dispatch result.
func BoolFunc(fn func(e *Event) bool) Handler {
	return &funcHandler{fn: func(e *Event, _ any) bool {
		return fn(e)
	}}
}

// ReceiverFunc wraps fn as a Handler that is handed the registration receiver.
func ReceiverFunc(fn func(e *Event, receiver any) bool) Handler {
	return &funcHandler{fn: fn}
}

// Listener is one registration. It doubles as the key returned from Listen
// and accepted by UnlistenByKey.
type Listener struct {
	Src      any
	Type     string
	Handler  Handler
	Capture  bool
	Receiver any

	once     bool
	removed  bool
	key      uint64
	proxy    *Proxy
	registry *Registry
}

func newListener(src any, typ string, h Handler, once, capture bool, receiver any, key uint64) *Listener {
	return &Listener{
		Src:      src,
		Type:     typ,
		Handler:  h,
		Capture:  capture,
		Receiver: receiver,
		once:     once,
		key:      key,
	}
}

// Key returns the unique ordinal assigned at creation.
func (l *Listener) Key() uint64 { return l.key }

// Once reports whether the listener removes itself before its first call.
func (l *Listener) Once() bool { return l.once }

// Removed reports whether the listener has been unregistered.
func (l *Listener) Removed() bool { return l.removed }

// MarkAsRemoved latches the removed flag. There is no way to clear it.
func (l *Listener) MarkAsRemoved() {
	l.removed = true
	l.Handler = nil
	l.Receiver = nil
}

// Proxy returns the native proxy installed for this listener, if any.
func (l *Listener) Proxy() *Proxy { return l.proxy }

func (l *Listener) matches(h Handler, capture bool, receiver any) bool {
	return !l.removed && l.Capture == capture && same(l.Handler, h) && same(l.Receiver, receiver)
}

// same compares with == without panicking on non-comparable dynamic types.
func same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

func validate(typ string, h Handler, receiver any) error {
	if typ == "" {
		return NewRangeError("event type must not be empty")
	}
	if h == nil {
		return NewRangeError("handler must not be nil")
	}
	if !reflect.TypeOf(h).Comparable() {
		return NewRangeError("handler type " + reflect.TypeOf(h).String() + " is not comparable")
	}
	if receiver != nil && !reflect.TypeOf(receiver).Comparable() {
		return NewRangeError("receiver type " + reflect.TypeOf(receiver).String() + " is not comparable")
	}
	return nil
}
