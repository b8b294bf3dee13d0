package adapter

import (
	"github.com/dop251/goja"

	"github.com/roach88/kata/internal/jsrt"
	"github.com/roach88/kata/internal/suite"
)

// body wraps a JavaScript function as a suite body. Functions declaring a
// parameter receive a done callback; functions returning a thenable settle
// with it.
func (b *Binding) body(v goja.Value) suite.Body {
	fn, _ := goja.AssertFunction(v)
	async := v.(*goja.Object).Get("length").ToInteger() > 0

	return suite.Body{
		Async: async,
		Fn: func(done suite.Done) error {
			var args []goja.Value
			if async {
				args = append(args, b.doneFunc(done))
			}
			ret, err := jsrt.Call(b.vm, fn, b.caseContext(), args...)
			if err != nil {
				return jsrt.Translate(err)
			}
			if then, ok := thenable(ret); ok {
				b.await(ret, then, done)
				return suite.ErrPending
			}
			if async {
				return suite.ErrPending
			}
			return nil
		},
	}
}

// doneFunc is the callback handed to asynchronous bodies. A non-empty
// argument fails the case like a throw.
func (b *Binding) doneFunc(done suite.Done) goja.Value {
	settle := func(v goja.Value) {
		if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
			done(nil)
			return
		}
		done(&jsrt.Thrown{Value: v})
	}
	fn := b.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		settle(call.Argument(0))
		return goja.Undefined()
	}).(*goja.Object)
	_ = fn.Set("fail", func(call goja.FunctionCall) goja.Value {
		v := call.Argument(0)
		if goja.IsUndefined(v) {
			v = jsError(b.vm, "done.fail called")
		}
		settle(v)
		return goja.Undefined()
	})
	return fn
}

// caseContext is the this of a case body.
func (b *Binding) caseContext() *goja.Object {
	ctx := b.vm.NewObject()
	// Limits are fixed once execution starts.
	_ = ctx.Set("timeout", func(goja.FunctionCall) goja.Value { return ctx })
	_ = ctx.Set("skip", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	return ctx
}

func thenable(v goja.Value) (goja.Callable, bool) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, false
	}
	return goja.AssertFunction(obj.Get("then"))
}

func (b *Binding) await(promise goja.Value, then goja.Callable, done suite.Done) {
	onResolve := b.vm.ToValue(func(goja.FunctionCall) goja.Value {
		done(nil)
		return goja.Undefined()
	})
	onReject := b.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		reason := call.Argument(0)
		if goja.IsUndefined(reason) {
			reason = jsError(b.vm, "Promise rejected with no or falsy reason")
		}
		done(&jsrt.Thrown{Value: reason})
		return goja.Undefined()
	})
	if _, err := jsrt.Call(b.vm, then, promise, onResolve, onReject); err != nil {
		done(jsrt.Translate(err))
	}
}
