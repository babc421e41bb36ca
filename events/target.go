package events

import (
	"go.uber.org/zap"
)

// DefaultMaxAncestors is the ancestor chain ceiling used when none is configured.
const DefaultMaxAncestors = 1000

// Target is a hierarchical event target. It owns a listener registry and may
// point at a parent, which it only uses to build the propagation path; the
// parent's lifetime is the caller's business.
//
// Embed a *Target (or hold one) and pass WithOwner so listeners see the
// embedding value as Event.Target and Event.CurrentTarget.
type Target struct {
	registry     *Registry
	parent       Listenable
	owner        any
	keys         *KeyGenerator
	maxAncestors int
	logger       *zap.Logger
}

// TargetOption configures a Target.
type TargetOption func(*Target)

// WithOwner sets the value reported as the event target for this Target.
func WithOwner(owner any) TargetOption {
	return func(t *Target) {
		t.owner = owner
	}
}

// WithKeys sets the listener key generator.
func WithKeys(keys *KeyGenerator) TargetOption {
	return func(t *Target) {
		t.keys = keys
	}
}

// WithMaxAncestors sets the ancestor chain ceiling. Values below 1 are ignored.
func WithMaxAncestors(n int) TargetOption {
	return func(t *Target) {
		if n > 0 {
			t.maxAncestors = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) TargetOption {
	return func(t *Target) {
		if logger != nil {
			t.logger = logger.Named("target")
		}
	}
}

// NewTarget creates a target with no parent and no listeners.
func NewTarget(opts ...TargetOption) *Target {
	t := &Target{
		maxAncestors: DefaultMaxAncestors,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.registry = NewRegistry(t.Owner(), t.keys)
	return t
}

// Owner returns the value reported as the event target.
func (t *Target) Owner() any {
	if t.owner != nil {
		return t.owner
	}
	return t
}

// SetParentEventTarget sets the parent used for capture and bubble. Pass nil
// to detach.
func (t *Target) SetParentEventTarget(parent Listenable) {
	if p, ok := parent.(*Target); ok && p == nil {
		parent = nil
	}
	t.parent = parent
}

// ParentEventTarget returns the parent, or nil.
func (t *Target) ParentEventTarget() Listenable {
	return t.parent
}

// Listen registers h for events of typ. Registering the same identity twice
// returns the existing listener.
func (t *Target) Listen(typ string, h Handler, opts ...Option) (*Listener, error) {
	return t.listen(typ, h, false, opts)
}

// ListenOnce registers h to be removed right before its first call.
func (t *Target) ListenOnce(typ string, h Handler, opts ...Option) (*Listener, error) {
	return t.listen(typ, h, true, opts)
}

func (t *Target) listen(typ string, h Handler, once bool, opts []Option) (*Listener, error) {
	o := applyOptions(opts)
	if err := validate(typ, h, o.receiver); err != nil {
		return nil, err
	}

	l := t.registry.Add(typ, h, once, o.capture, o.receiver)
	t.logger.Debug("Listener added",
		zap.String("type", typ),
		zap.Uint64("key", l.Key()),
		zap.Bool("capture", l.Capture),
		zap.Bool("once", l.Once()))
	return l, nil
}

// Unlisten removes the listener with the given identity.
func (t *Target) Unlisten(typ string, h Handler, opts ...Option) bool {
	o := applyOptions(opts)
	return t.registry.Remove(typ, h, o.capture, o.receiver)
}

// UnlistenByKey removes l.
func (t *Target) UnlistenByKey(l *Listener) bool {
	return t.registry.RemoveByKey(l)
}

// RemoveAllListeners removes every listener of typ, or all listeners when typ
// is empty.
func (t *Target) RemoveAllListeners(typ string) int {
	n := t.registry.RemoveAll(typ)
	if n > 0 {
		t.logger.Debug("Listeners removed", zap.String("type", typ), zap.Int("count", n))
	}
	return n
}

// Listeners returns the live listeners of typ for one phase.
func (t *Target) Listeners(typ string, capture bool) []*Listener {
	return t.registry.Listeners(typ, capture)
}

// Listener returns the live listener with the given identity, or nil.
func (t *Target) Listener(typ string, h Handler, opts ...Option) *Listener {
	o := applyOptions(opts)
	return t.registry.Listener(typ, h, o.capture, o.receiver)
}

// HasListener reports whether a listener exists for typ and phase. An empty
// typ matches any type.
func (t *Target) HasListener(typ string, phase PhaseFilter) bool {
	return t.registry.HasListener(typ, phase)
}

// DispatchEvent delivers e through the capture, target and bubble phases and
// reports false if any listener returned false or the return value was
// suppressed. Listener panics are not recovered.
//
// DispatchEvent panics with a *CycleError when the ancestor chain is longer
// than the configured ceiling.
func (t *Target) DispatchEvent(e *Event) bool {
	var ancestors []Listenable
	for p := t.parent; p != nil; p = p.ParentEventTarget() {
		if len(ancestors) == t.maxAncestors {
			t.logger.Error("Ancestor chain exceeds ceiling",
				zap.String("type", e.Type),
				zap.Int("limit", t.maxAncestors))
			panic(NewCycleError(t.maxAncestors))
		}
		ancestors = append(ancestors, p)
	}

	if ce := t.logger.Check(zap.DebugLevel, "Dispatching event"); ce != nil {
		ce.Write(zap.String("type", e.Type), zap.Int("ancestors", len(ancestors)))
	}

	if e.Target == nil {
		e.Target = t.Owner()
	}

	rv := true

	// Capture from the root down to the nearest ancestor
	e.Phase = PhaseCapturing
	for i := len(ancestors) - 1; !e.propagationStopped && i >= 0; i-- {
		rv = ancestors[i].FireListeners(e.Type, true, e) && rv
	}

	if !e.propagationStopped {
		e.Phase = PhaseAtTarget
		rv = t.FireListeners(e.Type, true, e) && rv
		if !e.propagationStopped {
			rv = t.FireListeners(e.Type, false, e) && rv
		}
	}

	// Bubble from the nearest ancestor up to the root
	e.Phase = PhaseBubbling
	for i := 0; !e.propagationStopped && i < len(ancestors); i++ {
		rv = ancestors[i].FireListeners(e.Type, false, e) && rv
	}

	e.Phase = PhaseNone
	return rv && !e.returnValueSuppressed
}

// Dispatch dispatches a new event of typ. It is DispatchEvent for callers
// that only have a type name.
func (t *Target) Dispatch(typ string) bool {
	return t.DispatchEvent(New(typ))
}

// FireListeners invokes this target's listeners of typ for one phase. The
// listener list is copied first: listeners added during the pass are not
// called, and listeners removed during the pass are skipped.
func (t *Target) FireListeners(typ string, capture bool, e *Event) bool {
	listeners := t.registry.snapshot(typ)
	if len(listeners) == 0 {
		return true
	}

	e.CurrentTarget = t.Owner()
	return fire(listeners, capture, e, t.UnlistenByKey)
}

// fire runs the phase-matching listeners of a snapshot. Once listeners are
// unregistered through unlisten before their handler runs.
func fire(listeners []*Listener, capture bool, e *Event, unlisten func(*Listener) bool) bool {
	rv := true
	for _, l := range listeners {
		if l.removed || l.Capture != capture {
			continue
		}

		h, receiver := l.Handler, l.Receiver
		if l.once {
			unlisten(l)
		}
		if !h.HandleEvent(e, receiver) {
			e.returnValueSuppressed = true
			rv = false
		}
	}
	return rv && !e.returnValueSuppressed
}

// Dispose removes every listener and detaches the parent.
func (t *Target) Dispose() {
	t.RemoveAllListeners("")
	t.parent = nil
}
