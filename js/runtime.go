// Package js exposes event sources to JavaScript through the goja engine
// (pure Go ES5.1+ implementation).
//
// Plain JS objects that carry addEventListener/removeEventListener methods are
// native sources: Go code reaches them through Runtime.Object and an
// events.Bridge. Hierarchical targets can be bound into JS with
// Binder.BindTarget so scripts listen on them directly.
package js

import (
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chrisuehlinger/evtarget/events"
)

// Runtime wraps a goja runtime with event bindings and a zap backed console.
// A Runtime must only be used from one goroutine at a time.
type Runtime struct {
	vm      *goja.Runtime
	binder  *Binder
	bridge  *events.Bridge
	objects map[*goja.Object]*Object
	logger  *zap.Logger

	mu      sync.Mutex
	errors  []error
	onError func(error)
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger used for console output and diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithBridge sets the bridge used by Listen and friends.
func WithBridge(b *events.Bridge) Option {
	return func(r *Runtime) {
		if b != nil {
			r.bridge = b
		}
	}
}

// NewRuntime creates a runtime with console, Event and CustomEvent installed.
func NewRuntime(opts ...Option) *Runtime {
	r := &Runtime{
		vm:      goja.New(),
		bridge:  events.DefaultBridge,
		objects: make(map[*goja.Object]*Object),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("js")
	r.binder = newBinder(r)

	r.setupConsole()
	r.binder.SetupEventConstructors()
	return r
}

// VM returns the underlying goja runtime.
func (r *Runtime) VM() *goja.Runtime { return r.vm }

// Binder returns the runtime's event binder.
func (r *Runtime) Binder() *Binder { return r.binder }

// Bridge returns the bridge used for native sources.
func (r *Runtime) Bridge() *events.Bridge { return r.bridge }

// SetOnError sets a callback for script errors.
func (r *Runtime) SetOnError(handler func(error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = handler
}

// Execute runs JavaScript code and returns the result. Go panics raised while
// the script runs, such as a *events.CycleError from a dispatch, are returned
// as errors that still match with errors.Is.
func (r *Runtime) Execute(code string) (result goja.Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = r.fail(recovered(p, "script execution panic"))
		}
	}()

	result, err = r.vm.RunString(code)
	if err != nil {
		return result, r.fail(errors.Wrap(err, "execute script"))
	}
	return result, nil
}

// ExecuteScript compiles code under name in sloppy mode and runs it.
func (r *Runtime) ExecuteScript(code, name string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = r.fail(recovered(p, "script panic in "+name))
		}
	}()

	program, err := goja.Compile(name, code, false)
	if err != nil {
		return r.fail(errors.Wrapf(err, "compile %s", name))
	}
	if _, err = r.vm.RunProgram(program); err != nil {
		return r.fail(errors.Wrapf(err, "run %s", name))
	}
	return nil
}

func recovered(p any, msg string) error {
	if err, ok := p.(error); ok {
		return errors.Wrap(err, msg)
	}
	return errors.Errorf("%s: %v", msg, p)
}

func (r *Runtime) fail(err error) error {
	r.mu.Lock()
	r.errors = append(r.errors, err)
	onError := r.onError
	r.mu.Unlock()

	r.logger.Warn("Script error", zap.Error(err))
	if onError != nil {
		onError(err)
	}
	return err
}

// Errors returns all errors that occurred during execution.
func (r *Runtime) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error{}, r.errors...)
}

// ClearErrors clears the error list.
func (r *Runtime) ClearErrors() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = r.errors[:0]
}

// Object returns the native source adapter for obj. The same adapter is
// returned for the same object while it has listeners, so bridge
// registrations accumulate on it. Adapters are dropped with their last
// listener.
func (r *Runtime) Object(obj *goja.Object) *Object {
	if o, ok := r.objects[obj]; ok {
		return o
	}
	o := &Object{
		rt:    r,
		obj:   obj,
		funcs: make(map[*events.Proxy]goja.Value),
	}
	r.objects[obj] = o
	return o
}

// Get returns the global value called name as an object, or nil.
func (r *Runtime) Get(name string) *goja.Object {
	v := r.vm.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.ToObject(r.vm)
}

// Listen registers h on the JS object through the runtime's bridge. Objects
// without a working addEventListener method fail with a *events.RangeError.
func (r *Runtime) Listen(obj *goja.Object, typ string, h events.Handler, opts ...events.Option) (*events.Listener, error) {
	return r.bridge.Listen(events.Native(r.Object(obj)), typ, h, opts...)
}

// ListenOnce is Listen for a one-shot listener.
func (r *Runtime) ListenOnce(obj *goja.Object, typ string, h events.Handler, opts ...events.Option) (*events.Listener, error) {
	return r.bridge.ListenOnce(events.Native(r.Object(obj)), typ, h, opts...)
}

// Unlisten removes the listener with the given identity from the JS object.
func (r *Runtime) Unlisten(obj *goja.Object, typ string, h events.Handler, opts ...events.Option) bool {
	return r.bridge.Unlisten(events.Native(r.Object(obj)), typ, h, opts...)
}

// setupConsole creates the console object. Output goes to the logger.
func (r *Runtime) setupConsole() {
	console := r.vm.NewObject()
	logger := r.logger.Named("console")

	levels := []struct {
		name string
		log  func(string, ...zap.Field)
	}{
		{"log", logger.Info},
		{"info", logger.Info},
		{"debug", logger.Debug},
		{"warn", logger.Warn},
		{"error", logger.Error},
	}
	for _, lvl := range levels {
		log := lvl.log
		console.Set(lvl.name, func(call goja.FunctionCall) goja.Value {
			log(formatArgs(call.Arguments))
			return goja.Undefined()
		})
	}

	r.vm.Set("console", console)
}

// formatArgs formats function call arguments for console output.
func formatArgs(args []goja.Value) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = formatValue(arg)
	}
	return strings.Join(parts, " ")
}

// formatValue formats a single value for output.
func formatValue(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	return v.String()
}
