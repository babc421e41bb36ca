package events

// Listenable is implemented by hierarchical targets: anything that owns a
// listener registry and may have a parent to propagate through.
type Listenable interface {
	Listen(typ string, h Handler, opts ...Option) (*Listener, error)
	ListenOnce(typ string, h Handler, opts ...Option) (*Listener, error)
	Unlisten(typ string, h Handler, opts ...Option) bool
	UnlistenByKey(l *Listener) bool
	DispatchEvent(e *Event) bool
	RemoveAllListeners(typ string) int
	ParentEventTarget() Listenable
	FireListeners(typ string, capture bool, e *Event) bool
	Listeners(typ string, capture bool) []*Listener
	Listener(typ string, h Handler, opts ...Option) *Listener
	HasListener(typ string, phase PhaseFilter) bool
}

// listenOptions are the identity parts of a registration besides type and
// handler.
type listenOptions struct {
	capture  bool
	receiver any
}

// Option configures a registration or an identity lookup.
type Option func(*listenOptions)

// Capture registers for the capture phase.
func Capture() Option {
	return func(o *listenOptions) {
		o.capture = true
	}
}

// WithCapture sets the capture flag explicitly.
func WithCapture(capture bool) Option {
	return func(o *listenOptions) {
		o.capture = capture
	}
}

// WithReceiver sets the value handed to the handler on every call. It is part
// of the listener identity.
func WithReceiver(receiver any) Option {
	return func(o *listenOptions) {
		o.receiver = receiver
	}
}

func applyOptions(opts []Option) listenOptions {
	var o listenOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// HasReceiver reports whether opts set a receiver. Wrappers that supply a
// default receiver use it to decide whether to add their own.
func HasReceiver(opts ...Option) bool {
	return applyOptions(opts).receiver != nil
}

// IsCapture reports whether opts request the capture phase.
func IsCapture(opts ...Option) bool {
	return applyOptions(opts).capture
}
