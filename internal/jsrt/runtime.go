package jsrt

import (
	"fmt"
	"io"
	"log/slog"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"
	"github.com/go-git/go-billy/v5"

	"github.com/roach88/kata/internal/suite"
)

// Origin says whose code a script is.
type Origin int

const (
	// OriginHarness scripts never appear in reported stack traces.
	OriginHarness Origin = iota
	// OriginUser scripts are the submission, the fixture and their files.
	OriginUser
)

// Options configure a Runtime.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer

	// Workspace backs require() for relative and absolute paths.
	Workspace billy.Filesystem
	// Workdir is the absolute directory user scripts appear to live in.
	Workdir string

	// Strict compiles user scripts in strict mode.
	Strict bool

	// Modules are native modules resolvable by bare name.
	Modules map[string]require.ModuleLoader

	Logger *slog.Logger
}

// Runtime is the evaluation context of one run.
type Runtime struct {
	opts     Options
	loop     *eventloop.EventLoop
	boundary *Boundary
	logger   *slog.Logger

	vm atomic.Pointer[goja.Runtime]

	// timers is set by Run and only used on the loop goroutine.
	timers loopTimers

	uncaughtMu sync.Mutex
	uncaught   func(error)
}

// New creates a runtime. Nothing executes until Run.
func New(opts Options) *Runtime {
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	if opts.Workdir == "" {
		opts.Workdir = DefaultWorkdir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := &Runtime{opts: opts, boundary: NewBoundary(), logger: logger}

	registry := require.NewRegistry(require.WithLoader(r.load))
	for name, loader := range opts.Modules {
		registry.RegisterNativeModule(name, loader)
	}
	r.loop = eventloop.NewEventLoop(
		eventloop.WithRegistry(registry),
		eventloop.EnableConsole(false),
	)
	return r
}

// Boundary exposes the user-code registry used for stack filtering.
func (r *Runtime) Boundary() *Boundary {
	return r.boundary
}

// ScriptName returns the source name a user script is compiled under.
func (r *Runtime) ScriptName(file string) string {
	return path.Join(r.opts.Workdir, file)
}

// Run executes fn on the loop goroutine and blocks until no timers remain
// or Stop is called.
func (r *Runtime) Run(fn func(vm *goja.Runtime)) {
	r.loop.Run(func(vm *goja.Runtime) {
		r.vm.Store(vm)
		if err := installConsole(vm, r.opts.Stdout, r.opts.Stderr); err != nil {
			r.logger.Error("install console", "error", err)
		}
		if err := r.installTimers(vm); err != nil {
			r.logger.Error("install timers", "error", err)
		}
		fn(vm)
	})
}

// RunScript compiles and runs src under name.
func (r *Runtime) RunScript(vm *goja.Runtime, name, src string, origin Origin) (goja.Value, error) {
	if origin == OriginUser {
		r.boundary.Mark(name)
	} else {
		name = "harness:" + name
	}
	prg, err := goja.Compile(name, src, r.opts.Strict && origin == OriginUser)
	if err != nil {
		return nil, err
	}
	return vm.RunProgram(prg)
}

// AfterFunc schedules fn on the loop. It must be called on the loop
// goroutine, and so must the returned cancel function. It satisfies
// suite.Loop.
func (r *Runtime) AfterFunc(d time.Duration, fn func()) func() {
	vm := r.vm.Load()
	t, err := schedule(vm, r.timers.setTimeout, d, fn)
	if err != nil {
		r.logger.Error("schedule timer", "error", err)
		return func() {}
	}
	return func() {
		if _, err := r.timers.clearTimeout(goja.Undefined(), t); err != nil {
			r.logger.Error("clear timer", "error", err)
		}
	}
}

// Stop ends the loop without waiting for pending timers. Safe from any
// goroutine.
func (r *Runtime) Stop() {
	r.loop.StopNoWait()
}

// Interrupt aborts whatever JavaScript is running; the interrupted call
// returns a goja.InterruptedError carrying v. Safe from any goroutine.
func (r *Runtime) Interrupt(v any) {
	if vm := r.vm.Load(); vm != nil {
		vm.Interrupt(v)
	}
}

// Watchdog arms an interrupt raising a suite.TimeoutError after limit. The
// returned stop function disarms it and clears a fired interrupt that was
// not consumed. It satisfies suite.Watchdog.
func (r *Runtime) Watchdog(limit time.Duration) func() {
	vm := r.vm.Load()
	if vm == nil {
		return func() {}
	}

	var (
		mu       sync.Mutex
		finished bool
		fired    bool
	)
	timer := time.AfterFunc(limit, func() {
		mu.Lock()
		defer mu.Unlock()
		if finished {
			return
		}
		fired = true
		vm.Interrupt(&suite.TimeoutError{Limit: limit})
	})

	return func() {
		timer.Stop()
		mu.Lock()
		defer mu.Unlock()
		finished = true
		if fired {
			vm.ClearInterrupt()
		}
	}
}

// OnUncaught sets the handler for exceptions thrown by timer callbacks.
func (r *Runtime) OnUncaught(fn func(error)) {
	r.uncaughtMu.Lock()
	defer r.uncaughtMu.Unlock()
	r.uncaught = fn
}

func (r *Runtime) reportUncaught(err error) {
	r.uncaughtMu.Lock()
	fn := r.uncaught
	r.uncaughtMu.Unlock()

	if fn != nil {
		fn(err)
		return
	}
	_, _ = fmt.Fprintln(r.opts.Stderr, "Uncaught "+r.Describe(err))
}

// Describe renders err with harness frames removed.
func (r *Runtime) Describe(err error) string {
	return r.boundary.Describe(err)
}

// Bind defines name as a global that always reads v and throws a TypeError
// on assignment.
func (r *Runtime) Bind(vm *goja.Runtime, name string, v goja.Value) error {
	getter := vm.ToValue(func(goja.FunctionCall) goja.Value { return v })
	setter := vm.ToValue(func(goja.FunctionCall) goja.Value {
		panic(vm.NewTypeError(fmt.Sprintf("Cannot assign to read only property '%s' of harness", name)))
	})
	if err := vm.GlobalObject().DefineAccessorProperty(name, getter, setter, goja.FLAG_FALSE, goja.FLAG_TRUE); err != nil {
		return fmt.Errorf("bind %s: %w", name, err)
	}
	return nil
}

// Freeze applies Object.freeze to obj.
func Freeze(vm *goja.Runtime, obj *goja.Object) error {
	freeze, ok := goja.AssertFunction(vm.Get("Object").ToObject(vm).Get("freeze"))
	if !ok {
		return fmt.Errorf("freeze: Object.freeze unavailable")
	}
	_, err := freeze(goja.Undefined(), obj)
	return err
}
