package events

// PhaseFilter narrows HasListener to one registration phase.
type PhaseFilter int

const (
	AnyPhase PhaseFilter = iota
	CaptureOnly
	BubbleOnly
)

func (f PhaseFilter) accepts(capture bool) bool {
	switch f {
	case CaptureOnly:
		return capture
	case BubbleOnly:
		return !capture
	default:
		return true
	}
}

// Registry stores the listeners of one source, grouped by event type in
// registration order. A type is present in the map only while it has at
// least one listener.
//
// Registry is not safe for concurrent use.
type Registry struct {
	src       any
	keys      *KeyGenerator
	listeners map[string][]*Listener
	typeCount int
}

// NewRegistry creates an empty registry owned by src. A nil generator means
// DefaultKeys.
func NewRegistry(src any, keys *KeyGenerator) *Registry {
	if keys == nil {
		keys = DefaultKeys
	}
	return &Registry{
		src:       src,
		keys:      keys,
		listeners: make(map[string][]*Listener),
	}
}

// Src returns the owning source.
func (r *Registry) Src() any { return r.src }

// TypeCount returns the number of distinct types with listeners.
func (r *Registry) TypeCount() int { return r.typeCount }

// Len returns the total number of listeners.
func (r *Registry) Len() int {
	n := 0
	for _, ls := range r.listeners {
		n += len(ls)
	}
	return n
}

// Add registers a listener, or returns the live listener with the same
// identity. A persistent registration clears the once flag of a matching once
// listener; a once registration matching a persistent listener leaves it
// persistent.
func (r *Registry) Add(typ string, h Handler, once, capture bool, receiver any) *Listener {
	ls, ok := r.listeners[typ]
	if !ok {
		r.typeCount++
	}

	if i := find(ls, h, capture, receiver); i >= 0 {
		l := ls[i]
		if !once {
			l.once = false
		}
		return l
	}

	l := newListener(r.src, typ, h, once, capture, receiver, r.keys.Next())
	l.registry = r
	r.listeners[typ] = append(ls, l)
	return l
}

// Remove unregisters the listener with the given identity.
func (r *Registry) Remove(typ string, h Handler, capture bool, receiver any) bool {
	ls, ok := r.listeners[typ]
	if !ok {
		return false
	}
	i := find(ls, h, capture, receiver)
	if i < 0 {
		return false
	}
	r.removeAt(typ, i)
	return true
}

// RemoveByKey unregisters l if it belongs to this registry.
func (r *Registry) RemoveByKey(l *Listener) bool {
	if l == nil {
		return false
	}
	ls, ok := r.listeners[l.Type]
	if !ok {
		return false
	}
	for i, existing := range ls {
		if existing == l {
			r.removeAt(l.Type, i)
			return true
		}
	}
	return false
}

func (r *Registry) removeAt(typ string, i int) {
	ls := r.listeners[typ]
	ls[i].MarkAsRemoved()

	if len(ls) == 1 {
		delete(r.listeners, typ)
		r.typeCount--
		return
	}
	r.listeners[typ] = append(ls[:i], ls[i+1:]...)
}

// RemoveAll unregisters every listener of typ, or of every type when typ is
// empty, and returns how many were removed.
func (r *Registry) RemoveAll(typ string) int {
	count := 0
	for t, ls := range r.listeners {
		if typ != "" && t != typ {
			continue
		}
		for _, l := range ls {
			l.MarkAsRemoved()
			count++
		}
		delete(r.listeners, t)
		r.typeCount--
	}
	return count
}

// Listeners returns a copy of the listeners of typ registered for the given
// phase, in registration order.
func (r *Registry) Listeners(typ string, capture bool) []*Listener {
	ls := r.listeners[typ]
	result := make([]*Listener, 0, len(ls))
	for _, l := range ls {
		if l.Capture == capture && !l.removed {
			result = append(result, l)
		}
	}
	return result
}

// snapshot copies the listeners of typ, both phases, for a firing pass.
func (r *Registry) snapshot(typ string) []*Listener {
	ls := r.listeners[typ]
	if len(ls) == 0 {
		return nil
	}
	cloned := make([]*Listener, len(ls))
	copy(cloned, ls)
	return cloned
}

// all copies every live listener of typ, or of every type when typ is empty.
func (r *Registry) all(typ string) []*Listener {
	var result []*Listener
	for t, ls := range r.listeners {
		if typ == "" || t == typ {
			result = append(result, ls...)
		}
	}
	return result
}

// Listener returns the live listener with the given identity, or nil.
func (r *Registry) Listener(typ string, h Handler, capture bool, receiver any) *Listener {
	ls := r.listeners[typ]
	if i := find(ls, h, capture, receiver); i >= 0 {
		return ls[i]
	}
	return nil
}

// HasListener reports whether a live listener exists for typ (any type when
// empty) in the phases accepted by phase.
func (r *Registry) HasListener(typ string, phase PhaseFilter) bool {
	for t, ls := range r.listeners {
		if typ != "" && t != typ {
			continue
		}
		for _, l := range ls {
			if !l.removed && phase.accepts(l.Capture) {
				return true
			}
		}
	}
	return false
}

func find(ls []*Listener, h Handler, capture bool, receiver any) int {
	for i, l := range ls {
		if l.matches(h, capture, receiver) {
			return i
		}
	}
	return -1
}
