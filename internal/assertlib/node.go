package assertlib

import (
	"github.com/dop251/goja"

	"github.com/roach88/kata/internal/jsrt"
)

// NodeAssert is the loader for require("assert").
func NodeAssert(vm *goja.Runtime, module *goja.Object) {
	a := &nodeAssert{vm: vm}
	root := vm.ToValue(a.ok).(*goja.Object)

	methods := map[string]func(goja.FunctionCall) goja.Value{
		"ok":                 a.ok,
		"equal":              a.equal,
		"notEqual":           a.notEqual,
		"strictEqual":        a.strictEqual,
		"notStrictEqual":     a.notStrictEqual,
		"deepEqual":          a.deepEqual("deepEqual", false, false),
		"deepStrictEqual":    a.deepEqual("deepStrictEqual", true, false),
		"notDeepEqual":       a.deepEqual("notDeepEqual", false, true),
		"notDeepStrictEqual": a.deepEqual("notDeepStrictEqual", true, true),
		"throws":             a.throws,
		"doesNotThrow":       a.doesNotThrow,
		"fail":               a.fail,
	}
	for name, fn := range methods {
		_ = root.Set(name, fn)
	}
	_ = root.Set("strict", root)
	_ = module.Set("exports", root)
}

type nodeAssert struct {
	vm *goja.Runtime
}

// failWith throws using the custom message verbatim when one is supplied.
func (a *nodeAssert) failWith(custom goja.Value, generated string, actual, expected goja.Value, op string) {
	msg := generated
	if custom != nil && !goja.IsUndefined(custom) {
		if obj, ok := custom.(*goja.Object); ok && obj.ClassName() == "Error" {
			panic(obj)
		}
		msg = custom.String()
	}
	panic(NewAssertionError(a.vm, msg, actual, expected, op))
}

func (a *nodeAssert) ok(call goja.FunctionCall) goja.Value {
	v := call.Argument(0)
	if !v.ToBoolean() {
		a.failWith(call.Argument(1), "The expression evaluated to a falsy value:\n\n  assert.ok("+jsrt.Inspect(v)+")\n", v, a.vm.ToValue(true), "==")
	}
	return goja.Undefined()
}

func (a *nodeAssert) equal(call goja.FunctionCall) goja.Value {
	actual, expected := call.Argument(0), call.Argument(1)
	if !actual.Equals(expected) {
		a.failWith(call.Argument(2), jsrt.Inspect(actual)+" == "+jsrt.Inspect(expected), actual, expected, "==")
	}
	return goja.Undefined()
}

func (a *nodeAssert) notEqual(call goja.FunctionCall) goja.Value {
	actual, expected := call.Argument(0), call.Argument(1)
	if actual.Equals(expected) {
		a.failWith(call.Argument(2), jsrt.Inspect(actual)+" != "+jsrt.Inspect(expected), actual, expected, "!=")
	}
	return goja.Undefined()
}

func (a *nodeAssert) strictEqual(call goja.FunctionCall) goja.Value {
	actual, expected := call.Argument(0), call.Argument(1)
	if !jsrt.StrictEqual(actual, expected) {
		a.failWith(call.Argument(2), "Expected values to be strictly equal:\n\n"+jsrt.Inspect(actual)+" !== "+jsrt.Inspect(expected)+"\n", actual, expected, "strictEqual")
	}
	return goja.Undefined()
}

func (a *nodeAssert) notStrictEqual(call goja.FunctionCall) goja.Value {
	actual, expected := call.Argument(0), call.Argument(1)
	if jsrt.StrictEqual(actual, expected) {
		a.failWith(call.Argument(2), "Expected \"actual\" to be strictly unequal to: "+jsrt.Inspect(expected), actual, expected, "notStrictEqual")
	}
	return goja.Undefined()
}

func (a *nodeAssert) deepEqual(op string, strict, negate bool) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		actual, expected := call.Argument(0), call.Argument(1)
		if jsrt.DeepEqual(actual, expected, strict) == negate {
			verb := "deep-equal"
			if strict {
				verb = "strictly deep-equal"
			}
			msg := "Expected values to be " + verb + ":\n\n" + jsrt.Inspect(actual) + "\n\nshould equal\n\n" + jsrt.Inspect(expected)
			if negate {
				msg = "Expected \"actual\" not to be " + verb + " to: " + jsrt.Inspect(expected)
			}
			a.failWith(call.Argument(2), msg, actual, expected, op)
		}
		return goja.Undefined()
	}
}

func (a *nodeAssert) throws(call goja.FunctionCall) goja.Value {
	thrown, ok := callThrows(a.vm, call.Argument(0))
	if !ok {
		msg := call.Argument(1)
		if _, isObj := msg.(*goja.Object); isObj {
			msg = call.Argument(2)
		}
		a.failWith(msg, "Missing expected exception.", goja.Undefined(), call.Argument(1), "throws")
	}
	if check, isFn := goja.AssertFunction(call.Argument(1)); isFn {
		a.validateThrown(call.Argument(1).ToObject(a.vm), check, thrown, call.Argument(2))
	}
	return goja.Undefined()
}

// validateThrown follows node's order: an instance of expected passes, an
// Error class that does not match rethrows, anything else is a validation
// function that must return true.
func (a *nodeAssert) validateThrown(expected *goja.Object, check goja.Callable, thrown, message goja.Value) {
	if proto := expected.Get("prototype"); proto != nil && !goja.IsUndefined(proto) {
		if obj, isObj := thrown.(*goja.Object); isObj && instanceOf(obj, proto) {
			return
		}
	}
	if a.isErrorClass(expected) {
		panic(thrown)
	}

	res, err := jsrt.Call(a.vm, check, a.vm.NewObject(), thrown)
	if err != nil {
		if v, ok := jsrt.ThrownValue(err); ok {
			panic(v)
		}
		return
	}
	if !res.StrictEquals(a.vm.ToValue(true)) {
		name := ""
		if n := expected.Get("name"); n != nil && n.String() != "" {
			name = "\"" + n.String() + "\" "
		}
		msg := "The " + name + "validation function is expected to return \"true\". Received " + jsrt.Inspect(res)
		if isErrorValue(thrown) {
			msg += "\n\nCaught error:\n\n" + jsrt.RenderThrown(thrown)
		}
		a.failWith(message, msg, thrown, expected, "throws")
	}
}

// isErrorClass reports whether fn is Error or inherits from it.
func (a *nodeAssert) isErrorClass(fn *goja.Object) bool {
	errorCtor := a.vm.Get("Error")
	if fn.SameAs(errorCtor.ToObject(a.vm)) {
		return true
	}
	for p := fn.Prototype(); p != nil; p = p.Prototype() {
		if p.SameAs(errorCtor) {
			return true
		}
	}
	return false
}

func isErrorValue(v goja.Value) bool {
	obj, ok := v.(*goja.Object)
	return ok && obj.ClassName() == "Error"
}

func (a *nodeAssert) doesNotThrow(call goja.FunctionCall) goja.Value {
	if thrown, ok := callThrows(a.vm, call.Argument(0)); ok {
		a.failWith(call.Argument(1), "Got unwanted exception.\nActual message: \""+jsrt.RenderThrown(thrown)+"\"", thrown, goja.Undefined(), "doesNotThrow")
	}
	return goja.Undefined()
}

func (a *nodeAssert) fail(call goja.FunctionCall) goja.Value {
	a.failWith(call.Argument(0), "Failed", goja.Undefined(), goja.Undefined(), "fail")
	return goja.Undefined()
}

func instanceOf(obj *goja.Object, proto goja.Value) bool {
	for p := obj.Prototype(); p != nil; p = p.Prototype() {
		if p.SameAs(proto) {
			return true
		}
	}
	return false
}
