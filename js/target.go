package js

import (
	"reflect"

	"github.com/dop251/goja"

	"github.com/chrisuehlinger/evtarget/events"
)

// jsHandler runs a JS function as an events.Handler. One jsHandler exists per
// function object so listening twice with the same function is idempotent.
type jsHandler struct {
	binder *Binder
	fn     goja.Callable
}

// HandleEvent calls the function with the receiver as this. Only an explicit
// false return counts as false. JS exceptions propagate as panics.
func (h *jsHandler) HandleEvent(e *events.Event, receiver any) bool {
	this := h.binder.value(receiver)
	ret, err := h.fn(this, h.binder.view(e))
	if err != nil {
		panic(err)
	}
	return !isFalse(ret)
}

// BindTarget exposes a hierarchical target to JS on obj. Listeners added from
// JS take part in capture and bubble dispatch over the target's ancestors.
// Registration errors are thrown as JS errors.
func (b *Binder) BindTarget(obj *goja.Object, target events.Listenable) {
	vm := b.rt.vm
	if owner := ownerOf(target); reflect.TypeOf(owner).Comparable() {
		b.bound[owner] = obj
	}

	obj.Set("addEventListener", func(call goja.FunctionCall) goja.Value {
		h := b.handler(call.Argument(1))
		if h == nil {
			return goja.Undefined()
		}
		typ := call.Argument(0).String()
		capture, once := listenFlags(vm, call.Argument(2))
		listen := target.Listen
		if once {
			listen = target.ListenOnce
		}
		if _, err := listen(typ, h, events.WithCapture(capture), events.WithReceiver(obj)); err != nil {
			panic(vm.NewGoError(err))
		}
		return goja.Undefined()
	})

	obj.Set("removeEventListener", func(call goja.FunctionCall) goja.Value {
		h := b.handler(call.Argument(1))
		if h == nil {
			return vm.ToValue(false)
		}
		capture, _ := listenFlags(vm, call.Argument(2))
		ok := target.Unlisten(call.Argument(0).String(), h, events.WithCapture(capture), events.WithReceiver(obj))
		return vm.ToValue(ok)
	})

	obj.Set("dispatchEvent", func(call goja.FunctionCall) goja.Value {
		jsEvent := b.eventArg(call.Argument(0))
		e := events.NewWithDetail(str(jsEvent, "type"), jsEvent)
		rv := target.DispatchEvent(e)
		b.sync(jsEvent, e)
		return vm.ToValue(rv)
	})

	obj.Set("removeAllListeners", func(call goja.FunctionCall) goja.Value {
		typ := ""
		if v := call.Argument(0); !goja.IsUndefined(v) && !goja.IsNull(v) {
			typ = v.String()
		}
		return vm.ToValue(target.RemoveAllListeners(typ))
	})

	obj.Set("hasListener", func(call goja.FunctionCall) goja.Value {
		typ := ""
		if v := call.Argument(0); !goja.IsUndefined(v) && !goja.IsNull(v) {
			typ = v.String()
		}
		return vm.ToValue(target.HasListener(typ, events.AnyPhase))
	})

	b.logger.Debug("Bound hierarchical target")
}

// handler returns the cached handler for a JS function value, or nil.
func (b *Binder) handler(v goja.Value) *jsHandler {
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil
	}
	key := v.ToObject(b.rt.vm)
	if h, ok := b.handlers[key]; ok {
		return h
	}
	h := &jsHandler{binder: b, fn: fn}
	b.handlers[key] = h
	return h
}

// view returns the JS object a handler sees for e. Events dispatched from JS
// reuse the caller's object so properties set by one listener reach the next.
func (b *Binder) view(e *events.Event) *goja.Object {
	obj, ok := e.Detail.(*goja.Object)
	if !ok {
		obj = b.CreateEvent(e.Type, EventInit{Cancelable: true, Detail: b.rt.vm.ToValue(e.Detail)})
	}
	obj.Set("target", b.value(e.Target))
	obj.Set("currentTarget", b.value(e.CurrentTarget))
	obj.Set("eventPhase", int(e.Phase))
	obj.Set("stopPropagation", func(goja.FunctionCall) goja.Value {
		e.StopPropagation()
		return goja.Undefined()
	})
	obj.Set("preventDefault", func(goja.FunctionCall) goja.Value {
		e.PreventDefault()
		obj.Set("defaultPrevented", true)
		return goja.Undefined()
	})
	return obj
}

// sync copies the dispatch outcome back onto the caller's event object.
func (b *Binder) sync(obj *goja.Object, e *events.Event) {
	obj.Set("eventPhase", phaseNone)
	obj.Set("currentTarget", goja.Null())
	obj.Set("defaultPrevented", e.DefaultPrevented())
	if e.ReturnValueSuppressed() {
		obj.Set("returnValue", false)
	}
}

// value maps a Go value to JS: bound owners become their JS objects.
func (b *Binder) value(v any) goja.Value {
	switch v := v.(type) {
	case nil:
		return goja.Undefined()
	case goja.Value:
		return v
	}
	if reflect.TypeOf(v).Comparable() {
		if obj, ok := b.bound[v]; ok {
			return obj
		}
	}
	return b.rt.vm.ToValue(v)
}

func ownerOf(l events.Listenable) any {
	if o, ok := l.(interface{ Owner() any }); ok {
		return o.Owner()
	}
	return l
}
