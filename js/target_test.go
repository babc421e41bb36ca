package js

import (
	"reflect"
	"strings"
	"testing"

	"github.com/chrisuehlinger/evtarget/events"
)

// bindChain binds grand <- parent <- child hierarchical targets to JS globals
// of the same names.
func bindChain(t *testing.T) (*Runtime, map[string]*events.Target) {
	t.Helper()
	r := NewRuntime()
	targets := map[string]*events.Target{
		"grand":  events.NewTarget(),
		"parent": events.NewTarget(),
		"child":  events.NewTarget(),
	}
	targets["parent"].SetParentEventTarget(targets["grand"])
	targets["child"].SetParentEventTarget(targets["parent"])

	for name, target := range targets {
		obj := r.VM().NewObject()
		obj.Set("name", name)
		r.Binder().BindTarget(obj, target)
		if err := r.VM().Set(name, obj); err != nil {
			t.Fatalf("Set %s failed: %v", name, err)
		}
	}
	return r, targets
}

func TestBindTarget_CaptureAndBubbleOrder(t *testing.T) {
	r, _ := bindChain(t)
	run(t, r, `
		var order = [];
		function log(e) {
			order.push(this.name + ":" + e.eventPhase + ":" + (e.currentTarget === this) + ":" + (e.target === child));
		}
		[grand, parent, child].forEach(function(o) {
			o.addEventListener("click", log, true);
			o.addEventListener("click", log);
		});
		var ok = child.dispatchEvent(new Event("click"));
	`)

	want := []any{
		"grand:1:true:true",
		"parent:1:true:true",
		"child:2:true:true",
		"child:2:true:true",
		"parent:3:true:true",
		"grand:3:true:true",
	}
	if got := exported(r, "order"); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected order %v, got %v", want, got)
	}
	if !r.VM().Get("ok").ToBoolean() {
		t.Error("Expected dispatch to return true")
	}
}

func TestBindTarget_StopPropagation(t *testing.T) {
	r, _ := bindChain(t)
	run(t, r, `
		var order = [];
		grand.addEventListener("click", function() { order.push("grand"); });
		parent.addEventListener("click", function(e) { order.push("parent"); e.stopPropagation(); });
		child.addEventListener("click", function() { order.push("child"); });
		child.dispatchEvent(new Event("click"));
	`)

	if got := exported(r, "order"); !reflect.DeepEqual(got, []any{"child", "parent"}) {
		t.Errorf("Expected child then parent, got %v", got)
	}
}

func TestBindTarget_DispatchByTypeName(t *testing.T) {
	r, _ := bindChain(t)
	run(t, r, `
		var seen = "";
		parent.addEventListener("x", function(e) { seen = e.type; });
		var ok = child.dispatchEvent("x");
	`)

	if got := r.VM().Get("seen").String(); got != "x" {
		t.Errorf("Expected type x, got %q", got)
	}
	if !r.VM().Get("ok").ToBoolean() {
		t.Error("Expected dispatch to return true")
	}
}

func TestBindTarget_ReturnFalseAndPreventDefault(t *testing.T) {
	r, _ := bindChain(t)
	run(t, r, `
		parent.addEventListener("a", function() { return false; });
		var a = child.dispatchEvent(new Event("a"));

		parent.addEventListener("b", function(e) { e.preventDefault(); });
		var ev = new Event("b");
		var b = child.dispatchEvent(ev);
	`)

	if r.VM().Get("a").ToBoolean() || r.VM().Get("b").ToBoolean() {
		t.Error("Expected both dispatches to return false")
	}
	ev := r.Get("ev")
	if !ev.Get("defaultPrevented").ToBoolean() {
		t.Error("Expected defaultPrevented")
	}
	if ev.Get("returnValue").ToBoolean() {
		t.Error("Expected returnValue false")
	}
}

func TestBindTarget_IdempotentAndRemove(t *testing.T) {
	r, targets := bindChain(t)
	run(t, r, `
		var n = 0;
		function inc() { n++; }
		child.addEventListener("x", inc);
		child.addEventListener("x", inc);
		child.dispatchEvent(new Event("x"));
		var removed = child.removeEventListener("x", inc);
		var again = child.removeEventListener("x", inc);
		child.dispatchEvent(new Event("x"));
	`)

	if n := r.VM().Get("n").ToInteger(); n != 1 {
		t.Errorf("Expected 1 call, got %d", n)
	}
	if !r.VM().Get("removed").ToBoolean() || r.VM().Get("again").ToBoolean() {
		t.Error("Expected first removal true and second false")
	}
	if targets["child"].HasListener("", events.AnyPhase) {
		t.Error("Expected no listeners on child")
	}
}

func TestBindTarget_Once(t *testing.T) {
	r, _ := bindChain(t)
	run(t, r, `
		var n = 0;
		child.addEventListener("x", function() { n++; }, {once: true});
		child.dispatchEvent(new Event("x"));
		child.dispatchEvent(new Event("x"));
		var has = child.hasListener("x");
	`)

	if n := r.VM().Get("n").ToInteger(); n != 1 {
		t.Errorf("Expected 1 call, got %d", n)
	}
	if r.VM().Get("has").ToBoolean() {
		t.Error("Once listener should be gone")
	}
}

func TestBindTarget_GoAndJSListenersShareDispatch(t *testing.T) {
	r, targets := bindChain(t)
	var phases []events.EventPhase
	_, err := targets["grand"].Listen("click", events.Func(func(e *events.Event) {
		phases = append(phases, e.Phase)
	}))
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	run(t, r, `
		var fromGo;
		child.addEventListener("click", function(e) { fromGo = e.detail; });
	`)
	targets["child"].DispatchEvent(events.NewWithDetail("click", "payload"))

	if !reflect.DeepEqual(phases, []events.EventPhase{events.PhaseBubbling}) {
		t.Errorf("Expected one bubbling call, got %v", phases)
	}
	if got := exported(r, "fromGo"); got != "payload" {
		t.Errorf("Expected detail 'payload', got %v", got)
	}

	run(t, r, `child.dispatchEvent(new Event("click"));`)
	if len(phases) != 2 {
		t.Errorf("Expected 2 Go calls, got %d", len(phases))
	}
}

func TestBindTarget_RemoveAllListeners(t *testing.T) {
	r, targets := bindChain(t)
	run(t, r, `
		child.addEventListener("a", function() {});
		child.addEventListener("b", function() {});
		var removedA = child.removeAllListeners("a");
		var removedRest = child.removeAllListeners();
	`)

	if n := r.VM().Get("removedA").ToInteger(); n != 1 {
		t.Errorf("Expected 1 removed for a, got %d", n)
	}
	if n := r.VM().Get("removedRest").ToInteger(); n != 1 {
		t.Errorf("Expected 1 removed for the rest, got %d", n)
	}
	if targets["child"].HasListener("", events.AnyPhase) {
		t.Error("Expected no listeners on child")
	}
}

func TestBindTarget_InvalidRegistrationThrows(t *testing.T) {
	r, _ := bindChain(t)
	run(t, r, `
		var caught = "";
		try {
			child.addEventListener("", function() {});
		} catch (e) {
			caught = String(e);
		}
	`)

	if got := r.VM().Get("caught").String(); !strings.Contains(got, "event type must not be empty") {
		t.Errorf("Expected RangeError message, got %q", got)
	}
}

func TestBindTarget_ListenerExceptionPropagates(t *testing.T) {
	r, targets := bindChain(t)
	run(t, r, `parent.addEventListener("x", function() { throw new Error("handler failed"); });`)

	_, err := r.Execute(`child.dispatchEvent(new Event("x"))`)
	if err == nil || !strings.Contains(err.Error(), "handler failed") {
		t.Errorf("Expected handler error, got %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("Expected Go dispatch to panic with the JS error")
		}
	}()
	targets["child"].DispatchEvent(events.New("x"))
}
