// Package handlers provides Group, which registers many listeners on behalf
// of one owner and removes all of them in a single call.
package handlers

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chrisuehlinger/evtarget/events"
)

// Group remembers the listeners it registered so it can remove them later.
// It does not own the sources it listened to; closing a Group only removes
// its own listeners.
type Group struct {
	id       string
	owner    any
	bridge   *events.Bridge
	fallback events.Handler
	keys     map[uint64]*events.Listener
	disposed bool
	logger   *zap.Logger
}

// Option configures a Group.
type Option func(*Group)

// WithBridge sets the bridge used for native sources.
func WithBridge(b *events.Bridge) Option {
	return func(g *Group) {
		if b != nil {
			g.bridge = b
		}
	}
}

// WithDefaultHandler sets the handler used when Listen is given a nil handler.
func WithDefaultHandler(h events.Handler) Option {
	return func(g *Group) {
		g.fallback = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Group) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a group bound to owner. The owner is passed to handlers as the
// receiver unless a registration names its own.
func New(owner any, opts ...Option) *Group {
	g := &Group{
		id:     uuid.NewString(),
		owner:  owner,
		bridge: events.DefaultBridge,
		keys:   make(map[uint64]*events.Listener),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.Named("handlers").With(zap.String("group", g.id))
	return g
}

// ID returns the group's identifier, as used in log fields.
func (g *Group) ID() string { return g.id }

// Owner returns the value bound at construction.
func (g *Group) Owner() any { return g.owner }

// Len returns the number of live listeners the group is tracking.
func (g *Group) Len() int {
	g.prune()
	return len(g.keys)
}

// Disposed reports whether Close has been called.
func (g *Group) Disposed() bool { return g.disposed }

// Listen registers h (or the default handler when h is nil) for typ on src.
func (g *Group) Listen(src events.Source, typ string, h events.Handler, opts ...events.Option) (*events.Listener, error) {
	return g.listen(src, typ, h, false, opts)
}

// ListenOnce is Listen for a one-shot listener.
func (g *Group) ListenOnce(src events.Source, typ string, h events.Handler, opts ...events.Option) (*events.Listener, error) {
	return g.listen(src, typ, h, true, opts)
}

// ListenTypes registers h for each of types and returns the listeners in the
// same order. On error the listeners already added stay registered with the
// group.
func (g *Group) ListenTypes(src events.Source, types []string, h events.Handler, opts ...events.Option) ([]*events.Listener, error) {
	result := make([]*events.Listener, 0, len(types))
	for _, typ := range types {
		l, err := g.listen(src, typ, h, false, opts)
		if err != nil {
			return result, err
		}
		result = append(result, l)
	}
	return result, nil
}

func (g *Group) listen(src events.Source, typ string, h events.Handler, once bool, opts []events.Option) (*events.Listener, error) {
	h, err := g.resolve(h)
	if err != nil {
		return nil, err
	}
	opts = g.withDefaultReceiver(opts)

	var l *events.Listener
	if once {
		l, err = g.bridge.ListenOnce(src, typ, h, opts...)
	} else {
		l, err = g.bridge.Listen(src, typ, h, opts...)
	}
	if err != nil {
		return nil, err
	}

	g.prune()
	g.keys[l.Key()] = l
	g.logger.Debug("Tracking listener", zap.String("type", typ), zap.Uint64("key", l.Key()))
	return l, nil
}

// Unlisten removes the listener with the given identity, provided this group
// registered it. A nil h without a default handler returns a
// *events.PreconditionError.
func (g *Group) Unlisten(src events.Source, typ string, h events.Handler, opts ...events.Option) (bool, error) {
	h, err := g.resolve(h)
	if err != nil {
		return false, err
	}
	opts = g.withDefaultReceiver(opts)

	l := g.bridge.Listener(src, typ, h, opts...)
	if l == nil {
		return false, nil
	}
	if _, ok := g.keys[l.Key()]; !ok {
		return false, nil
	}
	delete(g.keys, l.Key())
	return g.bridge.UnlistenByKey(l), nil
}

// RemoveAll removes every listener the group registered and returns how many
// were still live.
func (g *Group) RemoveAll() int {
	n := 0
	for key, l := range g.keys {
		if g.bridge.UnlistenByKey(l) {
			n++
		}
		delete(g.keys, key)
	}
	if n > 0 {
		g.logger.Debug("Removed listeners", zap.Int("count", n))
	}
	return n
}

// Close removes all listeners and marks the group disposed. Further
// registrations still work; Close only guarantees a clean slate.
func (g *Group) Close() error {
	g.RemoveAll()
	g.disposed = true
	return nil
}

// HandleEvent makes the group usable as a Handler. It forwards to the default
// handler and panics with a *events.PreconditionError when none is set.
func (g *Group) HandleEvent(e *events.Event, receiver any) bool {
	if g.fallback == nil {
		panic(errNotImplemented())
	}
	return g.fallback.HandleEvent(e, receiver)
}

// prune forgets listeners that were removed behind the group's back, such as
// once listeners that already fired.
func (g *Group) prune() {
	for key, l := range g.keys {
		if l.Removed() {
			delete(g.keys, key)
		}
	}
}

func (g *Group) resolve(h events.Handler) (events.Handler, error) {
	if h != nil {
		return h, nil
	}
	if g.fallback == nil {
		return nil, errNotImplemented()
	}
	return g.fallback, nil
}

func (g *Group) withDefaultReceiver(opts []events.Option) []events.Option {
	if g.owner == nil || events.HasReceiver(opts...) {
		return opts
	}
	return append(opts[:len(opts):len(opts)], events.WithReceiver(g.owner))
}

func errNotImplemented() *events.PreconditionError {
	return events.NewPreconditionError("handler group default handler not implemented")
}
