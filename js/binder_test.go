package js

import (
	"reflect"
	"strings"
	"testing"
)

// newFlatTarget creates a runtime with a global JS object called name that
// carries the flat native listener methods.
func newFlatTarget(t *testing.T, name string) *Runtime {
	t.Helper()
	r := NewRuntime()
	obj := r.VM().NewObject()
	r.Binder().BindEventTarget(obj)
	if err := r.VM().Set(name, obj); err != nil {
		t.Fatalf("Set %s failed: %v", name, err)
	}
	return r
}

func run(t *testing.T, r *Runtime, code string) {
	t.Helper()
	if _, err := r.Execute(code); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
}

// exported returns the Go value of the global called name.
func exported(r *Runtime, name string) any {
	return r.VM().Get(name).Export()
}

func TestBinder_AddDispatchRemove(t *testing.T) {
	r := newFlatTarget(t, "el")
	run(t, r, `
		var calls = [];
		function onClick(e) { calls.push(e.type + ":" + e.eventPhase + ":" + (e.target === el) + ":" + (this === el)); }
		el.addEventListener("click", onClick);
		el.addEventListener("click", onClick);
		var first = el.dispatchEvent(new Event("click"));
		el.removeEventListener("click", onClick);
		el.dispatchEvent(new Event("click"));
	`)

	if got := exported(r, "calls"); !reflect.DeepEqual(got, []any{"click:2:true:true"}) {
		t.Errorf("Unexpected calls %v", got)
	}
	if !r.VM().Get("first").ToBoolean() {
		t.Error("Expected first dispatch to return true")
	}
	if n := r.Binder().NativeListenerCount(r.Get("el"), ""); n != 0 {
		t.Errorf("Expected 0 callbacks, got %d", n)
	}
}

func TestBinder_CaptureRunsFirst(t *testing.T) {
	r := newFlatTarget(t, "el")
	run(t, r, `
		var order = [];
		el.addEventListener("click", function() { order.push("bubble"); });
		el.addEventListener("click", function() { order.push("capture"); }, true);
		el.addEventListener("click", function() { order.push("capture-opts"); }, {capture: true});
		el.dispatchEvent("click");
	`)

	if got := exported(r, "order"); !reflect.DeepEqual(got, []any{"capture", "capture-opts", "bubble"}) {
		t.Errorf("Unexpected order %v", got)
	}
	if n := r.Binder().NativeListenerCount(r.Get("el"), "click"); n != 3 {
		t.Errorf("Expected 3 callbacks, got %d", n)
	}
}

func TestBinder_Once(t *testing.T) {
	r := newFlatTarget(t, "el")
	run(t, r, `
		var n = 0;
		el.addEventListener("ping", function() { n++; }, {once: true});
		el.dispatchEvent(new Event("ping"));
		el.dispatchEvent(new Event("ping"));
	`)

	if n := r.VM().Get("n").ToInteger(); n != 1 {
		t.Errorf("Expected 1 call, got %d", n)
	}
	if n := r.Binder().NativeListenerCount(r.Get("el"), "ping"); n != 0 {
		t.Errorf("Expected 0 callbacks, got %d", n)
	}
}

func TestBinder_StopImmediatePropagation(t *testing.T) {
	r := newFlatTarget(t, "el")
	run(t, r, `
		var order = [];
		el.addEventListener("click", function(e) { order.push("a"); e.stopImmediatePropagation(); });
		el.addEventListener("click", function() { order.push("b"); });
		el.dispatchEvent(new Event("click"));
	`)

	if got := exported(r, "order"); !reflect.DeepEqual(got, []any{"a"}) {
		t.Errorf("Expected only a, got %v", got)
	}
}

func TestBinder_DispatchResult(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   bool
	}{
		{"no listeners", `result = el.dispatchEvent(new Event("x"));`, true},
		{"returns false", `
			el.addEventListener("x", function() { return false; });
			result = el.dispatchEvent(new Event("x"));`, false},
		{"returns undefined", `
			el.addEventListener("x", function() {});
			result = el.dispatchEvent(new Event("x"));`, true},
		{"prevent cancelable", `
			el.addEventListener("x", function(e) { e.preventDefault(); });
			result = el.dispatchEvent(new Event("x", {cancelable: true}));`, false},
		{"prevent not cancelable", `
			el.addEventListener("x", function(e) { e.preventDefault(); });
			result = el.dispatchEvent(new Event("x"));`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newFlatTarget(t, "el")
			run(t, r, "var result;"+tt.script)
			if got := r.VM().Get("result").ToBoolean(); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestBinder_CustomEventDetail(t *testing.T) {
	r := newFlatTarget(t, "el")
	run(t, r, `
		var got;
		el.addEventListener("data", function(e) { got = e.detail.value; });
		el.dispatchEvent(new CustomEvent("data", {detail: {value: 7}}));
	`)

	if got := r.VM().Get("got").ToInteger(); got != 7 {
		t.Errorf("Expected detail 7, got %d", got)
	}
}

func TestBinder_ListenerExceptionPropagates(t *testing.T) {
	r := newFlatTarget(t, "el")
	_, err := r.Execute(`
		el.addEventListener("x", function() { throw new Error("listener failed"); });
		el.dispatchEvent(new Event("x"));
	`)

	if err == nil || !strings.Contains(err.Error(), "listener failed") {
		t.Errorf("Expected listener error, got %v", err)
	}
}

func TestBinder_DispatchRequiresEvent(t *testing.T) {
	r := newFlatTarget(t, "el")
	if _, err := r.Execute(`el.dispatchEvent()`); err == nil {
		t.Error("Expected TypeError for a missing event")
	}
}
