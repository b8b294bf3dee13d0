package capability

import (
	"fmt"
	"strconv"

	"github.com/dop251/goja"

	"github.com/roach88/kata/internal/jsrt"
)

// Method is a native function exposed on the Test object.
type Method = func(goja.FunctionCall) goja.Value

// Object builds the frozen Test object. Extra methods, typically the
// adapter's describe and it, are added alongside the assertions.
func (c *Capability) Object(extra map[string]Method) (*goja.Object, error) {
	vm := c.vm
	obj := vm.NewObject()

	methods := map[string]Method{
		"expect": func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(c.Expect(call.Argument(0).ToBoolean(), optional(call, 1)))
		},
		"assertEquals": func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(c.AssertEquals(call.Argument(0), call.Argument(1), optional(call, 2)))
		},
		"assertNotEquals": func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(c.AssertNotEquals(call.Argument(0), call.Argument(1), optional(call, 2)))
		},
		"assertDeepEquals": func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(c.AssertDeepEquals(call.Argument(0), call.Argument(1), optional(call, 2)))
		},
		"assertNotDeepEquals": func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(c.AssertNotDeepEquals(call.Argument(0), call.Argument(1), optional(call, 2)))
		},
		"assertApproxEquals": func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(c.AssertApproxEquals(call.Argument(0).ToFloat(), call.Argument(1).ToFloat(), optional(call, 2)))
		},
		"assertNotApproxEquals": func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(c.AssertNotApproxEquals(call.Argument(0).ToFloat(), call.Argument(1).ToFloat(), optional(call, 2)))
		},
		"expectError": func(call goja.FunctionCall) goja.Value {
			msg, fn := c.messageAndFunc(call, "expectError")
			return vm.ToValue(c.ExpectError(msg, fn))
		},
		"expectNoError": func(call goja.FunctionCall) goja.Value {
			msg, fn := c.messageAndFunc(call, "expectNoError")
			return vm.ToValue(c.ExpectNoError(msg, fn))
		},
		"pass": func(goja.FunctionCall) goja.Value {
			c.Pass(PassMessage)
			return goja.Undefined()
		},
		"fail": func(call goja.FunctionCall) goja.Value {
			msg := DefaultFailMessage
			if m := call.Argument(0); !goja.IsUndefined(m) {
				msg = m.String()
			}
			c.Fail(msg)
			return goja.Undefined()
		},
		"randomNumber": func(goja.FunctionCall) goja.Value {
			return vm.ToValue(c.RandomNumber())
		},
		"randomToken": func(goja.FunctionCall) goja.Value {
			return vm.ToValue(c.RandomToken())
		},
		"randomize": func(call goja.FunctionCall) goja.Value {
			return c.randomize(call.Argument(0))
		},
		"inspect": func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(jsrt.Inspect(call.Argument(0)))
		},
	}
	for name, fn := range extra {
		methods[name] = fn
	}

	for name, fn := range methods {
		if err := obj.Set(name, fn); err != nil {
			return nil, fmt.Errorf("set Test.%s: %w", name, err)
		}
	}
	if err := jsrt.Freeze(vm, obj); err != nil {
		return nil, fmt.Errorf("freeze Test: %w", err)
	}
	return obj, nil
}

// messageAndFunc accepts both (fn) and (message, fn).
func (c *Capability) messageAndFunc(call goja.FunctionCall, name string) (goja.Value, goja.Callable) {
	msg, target := goja.Value(nil), call.Argument(0)
	if len(call.Arguments) > 1 {
		msg, target = call.Argument(0), call.Argument(1)
	}
	fn, ok := goja.AssertFunction(target)
	if !ok {
		panic(c.vm.NewTypeError(name + " needs a function"))
	}
	return msg, fn
}

func (c *Capability) randomize(v goja.Value) goja.Value {
	arr, ok := v.(*goja.Object)
	if !ok || arr.ClassName() != "Array" {
		panic(c.vm.NewTypeError("randomize needs an array"))
	}
	n := int(arr.Get("length").ToInteger())
	items := make([]any, n)
	for i := range items {
		items[i] = arr.Get(strconv.Itoa(i))
	}
	c.Shuffle(n, func(i, j int) { items[i], items[j] = items[j], items[i] })
	return c.vm.NewArray(items...)
}

func optional(call goja.FunctionCall, i int) goja.Value {
	if i >= len(call.Arguments) {
		return nil
	}
	return call.Arguments[i]
}
