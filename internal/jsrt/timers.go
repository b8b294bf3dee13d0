package jsrt

import (
	"fmt"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
)

// loopTimers are the event loop's own timer functions. They update the
// loop's job count synchronously, so a timer armed from inside the last
// pending callback keeps the loop alive. They must be called on the loop
// goroutine.
type loopTimers struct {
	setTimeout    goja.Callable
	setInterval   goja.Callable
	clearTimeout  goja.Callable
	clearInterval goja.Callable
}

func captureTimers(vm *goja.Runtime) (loopTimers, error) {
	var t loopTimers
	for name, dst := range map[string]*goja.Callable{
		"setTimeout":    &t.setTimeout,
		"setInterval":   &t.setInterval,
		"clearTimeout":  &t.clearTimeout,
		"clearInterval": &t.clearInterval,
	} {
		fn, ok := goja.AssertFunction(vm.Get(name))
		if !ok {
			return t, fmt.Errorf("event loop global %s is not a function", name)
		}
		*dst = fn
	}
	return t, nil
}

// schedule arms fn through one of the loop's scheduling functions.
func schedule(vm *goja.Runtime, arm goja.Callable, d time.Duration, fn func()) (goja.Value, error) {
	cb := vm.ToValue(func(goja.FunctionCall) goja.Value {
		fn()
		return goja.Undefined()
	})
	return arm(goja.Undefined(), cb, vm.ToValue(d.Milliseconds()))
}

// installTimers replaces the loop's timer globals with versions that route
// exceptions thrown by callbacks to the uncaught handler instead of
// dropping them.
func (r *Runtime) installTimers(vm *goja.Runtime) error {
	native, err := captureTimers(vm)
	if err != nil {
		return err
	}
	r.timers = native

	callback := func(call goja.FunctionCall, argsFrom int) func() {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(vm.NewTypeError("The \"callback\" argument must be of type function"))
		}
		args := tail(call.Arguments, argsFrom)
		return func() {
			if _, err := fn(goja.Undefined(), args...); err != nil {
				r.reportUncaught(err)
			}
		}
	}
	delay := func(call goja.FunctionCall) time.Duration {
		ms := call.Argument(1).ToFloat()
		if ms != ms || ms < 0 {
			ms = 0
		}
		return time.Duration(ms * float64(time.Millisecond))
	}
	arm := func(fn goja.Callable, d time.Duration, cb func()) goja.Value {
		v, err := schedule(vm, fn, d, cb)
		if err != nil {
			panic(err)
		}
		return v
	}

	timers := map[string]func(goja.FunctionCall) goja.Value{
		"setTimeout": func(call goja.FunctionCall) goja.Value {
			return arm(native.setTimeout, delay(call), callback(call, 2))
		},
		"setImmediate": func(call goja.FunctionCall) goja.Value {
			return arm(native.setTimeout, 0, callback(call, 1))
		},
		"setInterval": func(call goja.FunctionCall) goja.Value {
			d := delay(call)
			if d < time.Millisecond {
				d = time.Millisecond
			}
			return arm(native.setInterval, d, callback(call, 2))
		},
		"clearTimeout":   r.clearTimer,
		"clearImmediate": r.clearTimer,
		"clearInterval":  r.clearTimer,
	}
	for name, fn := range timers {
		if err := vm.Set(name, fn); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runtime) clearTimer(call goja.FunctionCall) goja.Value {
	var clear goja.Callable
	switch call.Argument(0).Export().(type) {
	case *eventloop.Timer:
		clear = r.timers.clearTimeout
	case *eventloop.Interval:
		clear = r.timers.clearInterval
	default:
		return goja.Undefined()
	}
	if _, err := clear(goja.Undefined(), call.Argument(0)); err != nil {
		panic(err)
	}
	return goja.Undefined()
}

func tail(args []goja.Value, from int) []goja.Value {
	if len(args) <= from {
		return nil
	}
	return args[from:]
}
