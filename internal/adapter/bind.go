package adapter

import (
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/roach88/kata/internal/assertlib"
	"github.com/roach88/kata/internal/capability"
	"github.com/roach88/kata/internal/jsrt"
	"github.com/roach88/kata/internal/suite"
)

// Binding is an adapter attached to one run.
type Binding struct {
	adapter Adapter
	rt      *jsrt.Runtime
	vm      *goja.Runtime
	builder *suite.Builder
	cap     *capability.Capability
}

// Bind attaches a to a run. Nothing is visible to scripts until Install.
func (a Adapter) Bind(rt *jsrt.Runtime, vm *goja.Runtime, b *suite.Builder, c *capability.Capability) *Binding {
	return &Binding{adapter: a, rt: rt, vm: vm, builder: b, cap: c}
}

// Adapter returns the bound adapter.
func (b *Binding) Adapter() Adapter {
	return b.adapter
}

// Install defines the Test object and the vocabulary as read-only globals,
// plus the chai globals for bootstrapping adapters.
func (b *Binding) Install() error {
	group, cases := b.groupFunc(), b.caseFunc()

	var extra map[string]capability.Method
	if b.adapter.TestAliases {
		extra = map[string]capability.Method{"describe": group, "it": cases}
	}
	test, err := b.cap.Object(extra)
	if err != nil {
		return err
	}
	if err := b.rt.Bind(b.vm, "Test", test); err != nil {
		return err
	}

	voc := b.adapter.Vocabulary
	for _, name := range voc.Groups {
		if err := b.rt.Bind(b.vm, name, b.withModifiers(group)); err != nil {
			return err
		}
	}
	for _, name := range voc.Cases {
		if err := b.rt.Bind(b.vm, name, b.withModifiers(cases)); err != nil {
			return err
		}
	}
	for name, kind := range voc.Hooks {
		if err := b.rt.Bind(b.vm, name, b.vm.ToValue(b.hookFunc(kind))); err != nil {
			return err
		}
	}

	if b.adapter.Bootstrap {
		// Plain globals: fixtures commonly redeclare them with require('chai').
		for name, v := range assertlib.ChaiGlobals(b.vm) {
			if err := b.vm.Set(name, v); err != nil {
				return fmt.Errorf("set %s: %w", name, err)
			}
		}
	}
	return nil
}

// withModifiers adds .only and .skip to a registration function.
func (b *Binding) withModifiers(fn capability.Method) goja.Value {
	obj := b.vm.ToValue(fn).(*goja.Object)
	_ = obj.Set("only", fn)
	_ = obj.Set("skip", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	return obj
}

func (b *Binding) groupFunc() capability.Method {
	return func(call goja.FunctionCall) goja.Value {
		title := call.Argument(0).String()
		fnArg := call.Argument(1)

		var timeout time.Duration
		if b.adapter.TimeoutArgument && len(call.Arguments) > 2 {
			fnArg = call.Argument(2)
			if ms, ok := call.Argument(1).Export().(int64); ok {
				timeout = time.Duration(ms) * time.Millisecond
			} else if f, ok := call.Argument(1).Export().(float64); ok {
				timeout = time.Duration(f * float64(time.Millisecond))
			}
		}

		register := func() error {
			fn, ok := goja.AssertFunction(fnArg)
			if !ok {
				return nil
			}
			_, err := jsrt.Call(b.vm, fn, b.groupContext())
			return err
		}
		b.check(b.builder.Describe(title, timeout, register))
		return goja.Undefined()
	}
}

// groupContext is the this of a describe body.
func (b *Binding) groupContext() *goja.Object {
	ctx := b.vm.NewObject()
	_ = ctx.Set("timeout", func(call goja.FunctionCall) goja.Value {
		ms := call.Argument(0).ToFloat()
		b.check(b.builder.SetTimeout(time.Duration(ms * float64(time.Millisecond))))
		return ctx
	})
	return ctx
}

func (b *Binding) caseFunc() capability.Method {
	return func(call goja.FunctionCall) goja.Value {
		title := call.Argument(0).String()
		if _, ok := goja.AssertFunction(call.Argument(1)); !ok {
			// A case without a body is pending and not reported.
			if b.builder.Phase() != suite.PhaseRegistering {
				b.check(suite.ErrNotRegistering)
			}
			return goja.Undefined()
		}
		b.check(b.builder.It(title, b.body(call.Argument(1))))
		return goja.Undefined()
	}
}

func (b *Binding) hookFunc(kind suite.HookKind) capability.Method {
	return func(call goja.FunctionCall) goja.Value {
		fnArg := call.Argument(0)
		if len(call.Arguments) > 1 {
			// hook('title', fn)
			fnArg = call.Argument(1)
		}
		if _, ok := goja.AssertFunction(fnArg); !ok {
			panic(b.vm.NewTypeError(kind.String() + " hook needs a function"))
		}
		b.check(b.builder.Hook(kind, b.body(fnArg)))
		return goja.Undefined()
	}
}

// check rethrows a registration error inside the calling script.
func (b *Binding) check(err error) {
	if err == nil {
		return
	}
	var exc *goja.Exception
	if errors.As(err, &exc) {
		panic(exc)
	}
	var ie *goja.InterruptedError
	if errors.As(err, &ie) {
		// The interrupt is still armed and unwinds the caller.
		return
	}
	if errors.Is(err, suite.ErrNotRegistering) {
		panic(jsError(b.vm, "describe and it can only be called while the suite is being registered"))
	}
	panic(jsError(b.vm, err.Error()))
}

func jsError(vm *goja.Runtime, msg string) goja.Value {
	obj, err := vm.New(vm.Get("Error"), vm.ToValue(msg))
	if err != nil {
		return vm.ToValue(msg)
	}
	return obj
}
