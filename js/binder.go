package js

import (
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// Event phase constants as seen from JS.
const (
	phaseNone      = 0
	phaseCapturing = 1
	phaseAtTarget  = 2
	phaseBubbling  = 3
)

// callback is one entry of a flat native listener list.
type callback struct {
	fn      goja.Callable
	value   goja.Value // original value, compared with SameAs
	capture bool
	once    bool
	removed bool
}

// callbackList is the flat, per-object listener list behind objects bound with
// BindEventTarget. It has no hierarchy: dispatch only reaches the object itself.
type callbackList struct {
	byType map[string][]*callback
}

func newCallbackList() *callbackList {
	return &callbackList{byType: make(map[string][]*callback)}
}

func (cl *callbackList) add(typ string, fn goja.Callable, value goja.Value, capture, once bool) bool {
	for _, cb := range cl.byType[typ] {
		if cb.value.SameAs(value) && cb.capture == capture {
			return false
		}
	}
	cl.byType[typ] = append(cl.byType[typ], &callback{
		fn:      fn,
		value:   value,
		capture: capture,
		once:    once,
	})
	return true
}

func (cl *callbackList) remove(typ string, value goja.Value, capture bool) bool {
	cbs := cl.byType[typ]
	for i, cb := range cbs {
		if cb.value.SameAs(value) && cb.capture == capture {
			cb.removed = true
			cl.byType[typ] = append(cbs[:i:i], cbs[i+1:]...)
			if len(cl.byType[typ]) == 0 {
				delete(cl.byType, typ)
			}
			return true
		}
	}
	return false
}

func (cl *callbackList) len(typ string) int {
	if typ != "" {
		return len(cl.byType[typ])
	}
	n := 0
	for _, cbs := range cl.byType {
		n += len(cbs)
	}
	return n
}

// dispatch calls capture entries, then the others, on a copy of the list.
// stopImmediatePropagation ends the pass. A callback returning false clears
// event.returnValue. JS exceptions are rethrown to the caller.
func (cl *callbackList) dispatch(this *goja.Object, event *goja.Object, typ string) {
	snapshot := append([]*callback(nil), cl.byType[typ]...)
	for _, capture := range []bool{true, false} {
		for _, cb := range snapshot {
			if cb.removed || cb.capture != capture {
				continue
			}
			if cb.once {
				cl.remove(typ, cb.value, cb.capture)
			}
			ret, err := cb.fn(this, event)
			if err != nil {
				panic(err)
			}
			if isFalse(ret) {
				event.Set("returnValue", false)
			}
			if flag(event, "_stopImmediate") {
				return
			}
		}
	}
}

// EventInit holds the optional fields of a new event.
type EventInit struct {
	Bubbles    bool
	Cancelable bool
	Detail     goja.Value
}

// Binder installs event plumbing on JS objects.
type Binder struct {
	rt       *Runtime
	lists    map[*goja.Object]*callbackList
	handlers map[*goja.Object]*jsHandler
	bound    map[any]*goja.Object
	logger   *zap.Logger
}

func newBinder(rt *Runtime) *Binder {
	return &Binder{
		rt:       rt,
		lists:    make(map[*goja.Object]*callbackList),
		handlers: make(map[*goja.Object]*jsHandler),
		bound:    make(map[any]*goja.Object),
		logger:   rt.logger.Named("binder"),
	}
}

// BindEventTarget gives obj flat addEventListener, removeEventListener and
// dispatchEvent methods. Such objects are native sources for the bridge.
func (b *Binder) BindEventTarget(obj *goja.Object) {
	vm := b.rt.vm
	list := b.list(obj)

	obj.Set("addEventListener", func(call goja.FunctionCall) goja.Value {
		typ := call.Argument(0).String()
		fn, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			return goja.Undefined()
		}
		capture, once := listenFlags(vm, call.Argument(2))
		if list.add(typ, fn, call.Argument(1), capture, once) {
			b.logger.Debug("Native callback added", zap.String("type", typ), zap.Bool("capture", capture))
		}
		return goja.Undefined()
	})

	obj.Set("removeEventListener", func(call goja.FunctionCall) goja.Value {
		typ := call.Argument(0).String()
		if _, ok := goja.AssertFunction(call.Argument(1)); !ok {
			return goja.Undefined()
		}
		capture, _ := listenFlags(vm, call.Argument(2))
		if list.remove(typ, call.Argument(1), capture) {
			b.logger.Debug("Native callback removed", zap.String("type", typ), zap.Bool("capture", capture))
		}
		return goja.Undefined()
	})

	obj.Set("dispatchEvent", func(call goja.FunctionCall) goja.Value {
		event := b.eventArg(call.Argument(0))
		event.Set("target", obj)
		event.Set("currentTarget", obj)
		event.Set("eventPhase", phaseAtTarget)

		list.dispatch(obj, event, str(event, "type"))

		event.Set("currentTarget", goja.Null())
		event.Set("eventPhase", phaseNone)
		return vm.ToValue(!flag(event, "defaultPrevented") && !isFalse(event.Get("returnValue")))
	})
}

// NativeListenerCount returns how many callbacks of typ are installed on an
// object bound with BindEventTarget; an empty typ counts all types.
func (b *Binder) NativeListenerCount(obj *goja.Object, typ string) int {
	if list, ok := b.lists[obj]; ok {
		return list.len(typ)
	}
	return 0
}

func (b *Binder) list(obj *goja.Object) *callbackList {
	if list, ok := b.lists[obj]; ok {
		return list
	}
	list := newCallbackList()
	b.lists[obj] = list
	return list
}

// eventArg accepts an event object or a bare type string.
func (b *Binder) eventArg(v goja.Value) *goja.Object {
	if goja.IsUndefined(v) || goja.IsNull(v) {
		panic(b.rt.vm.NewTypeError("dispatchEvent requires an event"))
	}
	if _, ok := v.Export().(string); ok {
		return b.CreateEvent(v.String(), EventInit{})
	}
	return v.ToObject(b.rt.vm)
}

// CreateEvent creates a new Event object.
func (b *Binder) CreateEvent(typ string, init EventInit) *goja.Object {
	vm := b.rt.vm
	event := vm.NewObject()

	event.Set("type", typ)
	event.Set("target", goja.Null())
	event.Set("currentTarget", goja.Null())
	event.Set("eventPhase", phaseNone)
	event.Set("bubbles", init.Bubbles)
	event.Set("cancelable", init.Cancelable)
	event.Set("defaultPrevented", false)
	event.Set("returnValue", true)
	if init.Detail != nil {
		event.Set("detail", init.Detail)
	} else {
		event.Set("detail", goja.Null())
	}

	// Internal flags
	event.Set("_stopPropagation", false)
	event.Set("_stopImmediate", false)

	event.Set("preventDefault", func(goja.FunctionCall) goja.Value {
		if flag(event, "cancelable") {
			event.Set("defaultPrevented", true)
		}
		return goja.Undefined()
	})
	event.Set("stopPropagation", func(goja.FunctionCall) goja.Value {
		event.Set("_stopPropagation", true)
		return goja.Undefined()
	})
	event.Set("stopImmediatePropagation", func(goja.FunctionCall) goja.Value {
		event.Set("_stopPropagation", true)
		event.Set("_stopImmediate", true)
		return goja.Undefined()
	})

	event.Set("NONE", phaseNone)
	event.Set("CAPTURING_PHASE", phaseCapturing)
	event.Set("AT_TARGET", phaseAtTarget)
	event.Set("BUBBLING_PHASE", phaseBubbling)

	return event
}

// SetupEventConstructors installs Event and CustomEvent on the global object.
func (b *Binder) SetupEventConstructors() {
	vm := b.rt.vm

	vm.Set("Event", func(call goja.ConstructorCall) *goja.Object {
		return b.CreateEvent(call.Argument(0).String(), b.eventInit(call.Argument(1), false))
	})

	vm.Set("CustomEvent", func(call goja.ConstructorCall) *goja.Object {
		return b.CreateEvent(call.Argument(0).String(), b.eventInit(call.Argument(1), true))
	})
}

func (b *Binder) eventInit(v goja.Value, withDetail bool) EventInit {
	var init EventInit
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return init
	}
	opts := v.ToObject(b.rt.vm)
	init.Bubbles = flag(opts, "bubbles")
	init.Cancelable = flag(opts, "cancelable")
	if d := opts.Get("detail"); withDetail && d != nil && !goja.IsUndefined(d) {
		init.Detail = d
	}
	return init
}

// Clear forgets every binding. Objects already bound keep their methods but
// lose their listeners.
func (b *Binder) Clear() {
	b.lists = make(map[*goja.Object]*callbackList)
	b.handlers = make(map[*goja.Object]*jsHandler)
	b.bound = make(map[any]*goja.Object)
}

// listenFlags reads the third addEventListener argument: a capture boolean or
// an options object.
func listenFlags(vm *goja.Runtime, arg goja.Value) (capture, once bool) {
	if goja.IsUndefined(arg) || goja.IsNull(arg) {
		return false, false
	}
	if c, ok := arg.Export().(bool); ok {
		return c, false
	}
	opts := arg.ToObject(vm)
	return flag(opts, "capture"), flag(opts, "once")
}

func flag(obj *goja.Object, name string) bool {
	v := obj.Get(name)
	return v != nil && v.ToBoolean()
}

func str(obj *goja.Object, name string) string {
	v := obj.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}

func isFalse(v goja.Value) bool {
	if v == nil {
		return false
	}
	b, ok := v.Export().(bool)
	return ok && !b
}
