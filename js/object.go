package js

import (
	"github.com/dop251/goja"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chrisuehlinger/evtarget/events"
)

// Object adapts a JS object with addEventListener and removeEventListener
// methods to events.NativeSource. Each proxy gets one JS function, reused
// for removal so the object sees the same callback identity.
type Object struct {
	rt    *Runtime
	obj   *goja.Object
	funcs map[*events.Proxy]goja.Value
}

// JS returns the wrapped object.
func (o *Object) JS() *goja.Object { return o.obj }

// AddEventListener installs the proxy's JS function on the object. It fails
// when the object has no addEventListener method or the method throws.
func (o *Object) AddEventListener(typ string, p *events.Proxy, capture bool) error {
	fn, ok := o.funcs[p]
	if !ok {
		vm := o.rt.vm
		fn = vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(p.HandleNative(o.rt.event(call.Argument(0))))
		})
	}
	if err := o.invoke("addEventListener", typ, fn, capture); err != nil {
		o.release()
		return err
	}
	o.funcs[p] = fn
	return nil
}

// RemoveEventListener removes the proxy's JS function from the object. Errors
// from the JS side are recorded on the runtime.
func (o *Object) RemoveEventListener(typ string, p *events.Proxy, capture bool) {
	fn, ok := o.funcs[p]
	if !ok {
		return
	}
	delete(o.funcs, p)
	if err := o.invoke("removeEventListener", typ, fn, capture); err != nil {
		o.rt.fail(err)
	}
	o.release()
}

// release drops the runtime's cached adapter once no callbacks remain.
func (o *Object) release() {
	if len(o.funcs) == 0 && o.rt.objects[o.obj] == o {
		delete(o.rt.objects, o.obj)
	}
}

func (o *Object) invoke(method, typ string, fn goja.Value, capture bool) error {
	vm := o.rt.vm
	m, ok := goja.AssertFunction(o.obj.Get(method))
	if !ok {
		return errors.Errorf("object has no %s method", method)
	}
	if _, err := m(o.obj, vm.ToValue(typ), fn, vm.ToValue(capture)); err != nil {
		return errors.Wrapf(err, "%s(%q)", method, typ)
	}
	if ce := o.rt.logger.Check(zap.DebugLevel, "Native "+method); ce != nil {
		ce.Write(zap.String("type", typ), zap.Bool("capture", capture))
	}
	return nil
}

// Event adapts a JS event object to events.NativeEvent.
type Event struct {
	obj *goja.Object
}

// event wraps v, creating a bare event object when v is not an object.
func (r *Runtime) event(v goja.Value) *Event {
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return &Event{obj: r.binder.CreateEvent("", EventInit{})}
	}
	if _, ok := v.Export().(string); ok {
		return &Event{obj: r.binder.CreateEvent(v.String(), EventInit{})}
	}
	return &Event{obj: v.ToObject(r.vm)}
}

// JS returns the wrapped event object.
func (e *Event) JS() *goja.Object { return e.obj }

// Type returns the event's type property.
func (e *Event) Type() string { return str(e.obj, "type") }

// StopPropagation calls the event's stopPropagation method, if it has one.
func (e *Event) StopPropagation() { e.call("stopPropagation") }

// PreventDefault calls the event's preventDefault method. Events without one
// get the legacy returnValue = false.
func (e *Event) PreventDefault() {
	if !e.call("preventDefault") {
		e.SetReturnValue(false)
	}
}

// SetReturnValue sets the legacy returnValue property.
func (e *Event) SetReturnValue(v bool) { e.obj.Set("returnValue", v) }

func (e *Event) call(method string) bool {
	fn, ok := goja.AssertFunction(e.obj.Get(method))
	if !ok {
		return false
	}
	if _, err := fn(e.obj); err != nil {
		panic(err)
	}
	return true
}
