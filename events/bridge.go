package events

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NativeEvent is the event shape a native source hands to its callbacks.
// Implementations may also provide PreventDefault(), or SetReturnValue(bool)
// for sources that only know the legacy cancellation flag.
type NativeEvent interface {
	Type() string
	StopPropagation()
}

// NativeSource is anything that only exposes add/remove-callback primitives.
// The source must compare callbacks by pointer identity: RemoveEventListener
// receives the same *Proxy that AddEventListener did. A source that cannot
// install the callback returns an error and the registration is undone.
type NativeSource interface {
	AddEventListener(typ string, fn *Proxy, capture bool) error
	RemoveEventListener(typ string, fn *Proxy, capture bool)
}

// Proxy is the callback installed on a native source for one listener. It
// converts native events into *Event and forwards them to the listener.
type Proxy struct {
	listener *Listener
	bridge   *Bridge
}

// Listener returns the listener this proxy forwards to.
func (p *Proxy) Listener() *Listener { return p.listener }

// HandleNative is called by the native source. It returns false when the
// listener returned false or suppressed the return value.
func (p *Proxy) HandleNative(ne NativeEvent) bool {
	l := p.listener
	if l.removed {
		return true
	}

	e := wrapNative(ne, l.Src)
	h, receiver := l.Handler, l.Receiver
	if l.once {
		p.bridge.UnlistenByKey(l)
	}
	if !h.HandleEvent(e, receiver) {
		e.returnValueSuppressed = true
	}
	return !e.returnValueSuppressed
}

// SourceKind tells hierarchical and native sources apart.
type SourceKind int

const (
	KindInvalid SourceKind = iota
	KindHierarchical
	KindNative
)

// Source is either a Listenable or a NativeSource.
type Source struct {
	kind   SourceKind
	target Listenable
	native NativeSource
}

// Hierarchical wraps a Listenable.
func Hierarchical(t Listenable) Source {
	if t == nil {
		return Source{}
	}
	return Source{kind: KindHierarchical, target: t}
}

// Native wraps a NativeSource.
func Native(n NativeSource) Source {
	if n == nil {
		return Source{}
	}
	return Source{kind: KindNative, native: n}
}

// Kind returns the source kind; KindInvalid for the zero Source.
func (s Source) Kind() SourceKind { return s.kind }

// Listenable returns the hierarchical target, or nil.
func (s Source) Listenable() Listenable { return s.target }

// NativeSource returns the native source, or nil.
func (s Source) NativeSource() NativeSource { return s.native }

// Bridge gives native sources the same listen/unlisten/dispatch vocabulary as
// hierarchical targets. Registries for native sources live in a side table
// owned by the bridge and are evicted as soon as they become empty.
//
// Bridge is not safe for concurrent use.
type Bridge struct {
	id            string
	keys          *KeyGenerator
	attached      map[NativeSource]*Registry
	listenerCount int
	logger        *zap.Logger
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithBridgeKeys sets the key generator for native listeners.
func WithBridgeKeys(keys *KeyGenerator) BridgeOption {
	return func(b *Bridge) {
		if keys != nil {
			b.keys = keys
		}
	}
}

// WithBridgeLogger sets the logger.
func WithBridgeLogger(logger *zap.Logger) BridgeOption {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBridge creates a bridge with an empty side table.
func NewBridge(opts ...BridgeOption) *Bridge {
	b := &Bridge{
		id:       uuid.NewString(),
		keys:     DefaultKeys,
		attached: make(map[NativeSource]*Registry),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.Named("bridge").With(zap.String("bridge", b.id))
	return b
}

// DefaultBridge is the bridge used by callers that do not inject one.
var DefaultBridge = NewBridge()

// Listen registers h on src.
func (b *Bridge) Listen(src Source, typ string, h Handler, opts ...Option) (*Listener, error) {
	return b.listen(src, typ, h, false, opts)
}

// ListenOnce registers h on src to be removed right before its first call.
func (b *Bridge) ListenOnce(src Source, typ string, h Handler, opts ...Option) (*Listener, error) {
	return b.listen(src, typ, h, true, opts)
}

func (b *Bridge) listen(src Source, typ string, h Handler, once bool, opts []Option) (*Listener, error) {
	switch src.kind {
	case KindHierarchical:
		if once {
			return src.target.ListenOnce(typ, h, opts...)
		}
		return src.target.Listen(typ, h, opts...)
	case KindNative:
	default:
		return nil, NewRangeError("source must not be nil")
	}

	o := applyOptions(opts)
	if err := validate(typ, h, o.receiver); err != nil {
		return nil, err
	}

	n := src.native
	if !reflect.TypeOf(n).Comparable() {
		return nil, NewRangeError("native source type " + reflect.TypeOf(n).String() + " is not comparable")
	}
	registry, ok := b.attached[n]
	if !ok {
		registry = NewRegistry(n, b.keys)
		b.attached[n] = registry
		b.logger.Debug("Attached registry to native source", zap.Int("attached", len(b.attached)))
	}

	l := registry.Add(typ, h, once, o.capture, o.receiver)
	if l.proxy != nil {
		return l, nil
	}

	l.proxy = &Proxy{listener: l, bridge: b}
	if err := n.AddEventListener(typ, l.proxy, o.capture); err != nil {
		registry.RemoveByKey(l)
		if registry.TypeCount() == 0 {
			delete(b.attached, n)
		}
		b.logger.Warn("Native source rejected listener", zap.String("type", typ), zap.Error(err))
		return nil, NewRangeError(fmt.Sprintf("native source rejected %q listener: %v", typ, err))
	}
	b.listenerCount++
	b.logger.Debug("Native listener added",
		zap.String("type", typ),
		zap.Uint64("key", l.Key()),
		zap.Bool("capture", l.Capture),
		zap.Bool("once", l.Once()))
	return l, nil
}

// Unlisten removes the listener with the given identity from src.
func (b *Bridge) Unlisten(src Source, typ string, h Handler, opts ...Option) bool {
	switch src.kind {
	case KindHierarchical:
		return src.target.Unlisten(typ, h, opts...)
	case KindNative:
		registry := b.registryFor(src.native)
		if registry == nil {
			return false
		}
		o := applyOptions(opts)
		l := registry.Listener(typ, h, o.capture, o.receiver)
		if l == nil {
			return false
		}
		return b.UnlistenByKey(l)
	default:
		return false
	}
}

// UnlistenByKey removes l from whichever source it was registered on. For
// native sources the proxy is detached, and the side-table entry is dropped
// once the source has no listeners left.
func (b *Bridge) UnlistenByKey(l *Listener) bool {
	if l == nil || l.removed {
		return false
	}

	if n, ok := l.Src.(NativeSource); ok {
		if registry := b.registryFor(n); registry != nil {
			return b.unlistenNative(n, registry, l)
		}
	}
	if t, ok := l.Src.(Listenable); ok {
		return t.UnlistenByKey(l)
	}
	if l.registry != nil && l.proxy == nil {
		return l.registry.RemoveByKey(l)
	}
	return false
}

// registryFor looks n up in the side table.
func (b *Bridge) registryFor(n NativeSource) *Registry {
	if n == nil || !reflect.TypeOf(n).Comparable() {
		return nil
	}
	return b.attached[n]
}

func (b *Bridge) unlistenNative(n NativeSource, registry *Registry, l *Listener) bool {
	if l.proxy == nil || l.proxy.bridge != b {
		return false
	}

	n.RemoveEventListener(l.Type, l.proxy, l.Capture)
	if !registry.RemoveByKey(l) {
		return false
	}
	b.listenerCount--
	b.logger.Debug("Native listener removed", zap.String("type", l.Type), zap.Uint64("key", l.Key()))

	if registry.TypeCount() == 0 {
		delete(b.attached, n)
		b.logger.Debug("Detached registry from native source", zap.Int("attached", len(b.attached)))
	}
	return true
}

// DispatchEvent dispatches e on src. Native sources have no parent, so only
// the target phase runs: capture listeners, then bubble listeners.
func (b *Bridge) DispatchEvent(src Source, e *Event) bool {
	switch src.kind {
	case KindHierarchical:
		return src.target.DispatchEvent(e)
	case KindNative:
	default:
		return true
	}

	registry := b.registryFor(src.native)
	if registry == nil {
		return true
	}

	if e.Target == nil {
		e.Target = src.native
	}
	e.CurrentTarget = src.native
	e.Phase = PhaseAtTarget

	rv := fire(registry.snapshot(e.Type), true, e, b.UnlistenByKey)
	if !e.propagationStopped {
		// The capture pass may have emptied and evicted the registry.
		if registry = b.registryFor(src.native); registry != nil {
			rv = fire(registry.snapshot(e.Type), false, e, b.UnlistenByKey) && rv
		}
	}

	e.Phase = PhaseNone
	return rv && !e.returnValueSuppressed
}

// RemoveAll removes every listener of typ from src, or all of them when typ
// is empty.
func (b *Bridge) RemoveAll(src Source, typ string) int {
	switch src.kind {
	case KindHierarchical:
		return src.target.RemoveAllListeners(typ)
	case KindNative:
	default:
		return 0
	}

	registry := b.registryFor(src.native)
	if registry == nil {
		return 0
	}
	count := 0
	for _, l := range registry.all(typ) {
		if b.UnlistenByKey(l) {
			count++
		}
	}
	return count
}

// Listeners returns the live listeners of typ on src for one phase.
func (b *Bridge) Listeners(src Source, typ string, capture bool) []*Listener {
	switch src.kind {
	case KindHierarchical:
		return src.target.Listeners(typ, capture)
	case KindNative:
		if registry := b.registryFor(src.native); registry != nil {
			return registry.Listeners(typ, capture)
		}
	}
	return nil
}

// Listener returns the live listener with the given identity on src, or nil.
func (b *Bridge) Listener(src Source, typ string, h Handler, opts ...Option) *Listener {
	switch src.kind {
	case KindHierarchical:
		return src.target.Listener(typ, h, opts...)
	case KindNative:
		if registry := b.registryFor(src.native); registry != nil {
			o := applyOptions(opts)
			return registry.Listener(typ, h, o.capture, o.receiver)
		}
	}
	return nil
}

// HasListener reports whether src has a live listener for typ and phase. An
// empty typ matches any type.
func (b *Bridge) HasListener(src Source, typ string, phase PhaseFilter) bool {
	switch src.kind {
	case KindHierarchical:
		return src.target.HasListener(typ, phase)
	case KindNative:
		if registry := b.registryFor(src.native); registry != nil {
			return registry.HasListener(typ, phase)
		}
	}
	return false
}

// Attached reports whether the bridge currently holds a registry for n.
func (b *Bridge) Attached(n NativeSource) bool {
	return b.registryFor(n) != nil
}

// ListenerCount returns the number of live native listeners across all sources.
func (b *Bridge) ListenerCount() int {
	return b.listenerCount
}
