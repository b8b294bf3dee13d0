package assertlib

import (
	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"

	"github.com/roach88/kata/internal/jsrt"
)

// ErrorName is the name carried by every assertion failure.
const ErrorName = "AssertionError"

// Modules returns the native modules resolvable through require().
func Modules() map[string]require.ModuleLoader {
	return map[string]require.ModuleLoader{
		"assert": NodeAssert,
		"chai":   Chai,
	}
}

// NewAssertionError builds an Error instance named AssertionError.
func NewAssertionError(vm *goja.Runtime, message string, actual, expected goja.Value, operator string) *goja.Object {
	obj, err := vm.New(vm.Get("Error"), vm.ToValue(message))
	if err != nil {
		obj = vm.NewObject()
		_ = obj.Set("message", message)
	}
	_ = obj.Set("name", ErrorName)
	_ = obj.Set("actual", orUndefined(actual))
	_ = obj.Set("expected", orUndefined(expected))
	_ = obj.Set("operator", operator)
	_ = obj.Set("showDiff", expected != nil)
	return obj
}

// IsAssertionError reports whether v has the comparison-failure shape.
func IsAssertionError(v goja.Value) bool {
	obj, ok := v.(*goja.Object)
	if !ok {
		return false
	}
	name := obj.Get("name")
	return name != nil && name.String() == ErrorName
}

// Message returns the message of an assertion failure.
func Message(v goja.Value) string {
	obj, ok := v.(*goja.Object)
	if !ok {
		return v.String()
	}
	msg := obj.Get("message")
	if msg == nil || goja.IsUndefined(msg) {
		return obj.String()
	}
	return msg.String()
}

func orUndefined(v goja.Value) goja.Value {
	if v == nil {
		return goja.Undefined()
	}
	return v
}

// raise throws an AssertionError from inside a native function. A custom
// message, when given, prefixes the generated one.
func raise(vm *goja.Runtime, custom goja.Value, message string, actual, expected goja.Value, operator string) {
	if custom != nil && !goja.IsUndefined(custom) && !goja.IsNull(custom) {
		message = custom.String() + ": " + message
	}
	panic(NewAssertionError(vm, message, actual, expected, operator))
}

// typeOf names a value the way chai's type checks do.
func typeOf(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		switch v.Export().(type) {
		case string:
			return "string"
		case bool:
			return "boolean"
		case int64, float64:
			return "number"
		default:
			return "symbol"
		}
	}
	if _, fn := goja.AssertFunction(obj); fn {
		return "function"
	}
	switch obj.ClassName() {
	case "Array":
		return "array"
	case "RegExp":
		return "regexp"
	case "Date":
		return "date"
	case "Error":
		return "error"
	case "Map":
		return "map"
	case "Set":
		return "set"
	case "Promise":
		return "promise"
	}
	return "object"
}

// callThrows invokes fn and returns the thrown value, if any.
func callThrows(vm *goja.Runtime, fn goja.Value) (goja.Value, bool) {
	call, ok := goja.AssertFunction(fn)
	if !ok {
		panic(vm.NewTypeError("expected a function"))
	}
	_, err := jsrt.Call(vm, call, nil)
	if v, ok := jsrt.ThrownValue(err); ok {
		return v, true
	}
	return nil, false
}
