package assertlib

import (
	"github.com/dop251/goja"

	"github.com/roach88/kata/internal/jsrt"
)

// chaiAssert builds chai's assert interface on top of expectations.
func chaiAssert(vm *goja.Runtime) goja.Value {
	// on builds an expectation with the message argument at index msgAt.
	on := func(call goja.FunctionCall, msgAt int) *expectation {
		return newExpectation(vm, call.Argument(0), call.Argument(msgAt))
	}
	negated := func(e *expectation) *expectation {
		e.negate = true
		return e
	}
	deep := func(e *expectation) *expectation {
		e.deep = true
		return e
	}
	unary := func(fn func(e *expectation)) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			fn(on(call, 1))
			return goja.Undefined()
		}
	}
	binary := func(fn func(e *expectation, arg goja.Value)) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			fn(on(call, 2), call.Argument(1))
			return goja.Undefined()
		}
	}
	typeCheck := func(typ string, neg bool) func(goja.FunctionCall) goja.Value {
		return unary(func(e *expectation) {
			e.negate = neg
			e.a(vm.ToValue(typ))
		})
	}
	looseEqual := func(neg bool) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			e := on(call, 2)
			e.negate = neg
			expected := call.Argument(1)
			e.assert(e.actual.Equals(expected), "expected #{this} to equal #{exp}", "expected #{this} to not equal #{exp}", expected, "==")
			return goja.Undefined()
		}
	}

	root := vm.ToValue(unary(func(e *expectation) {
		if !e.actual.ToBoolean() {
			raise(vm, e.custom, "expected "+jsrt.Inspect(e.actual)+" to be truthy", e.actual, nil, "ok")
		}
	})).(*goja.Object)

	methods := map[string]func(goja.FunctionCall) goja.Value{
		"ok":              unary(func(e *expectation) { e.ok() }),
		"isOk":            unary(func(e *expectation) { e.ok() }),
		"notOk":           unary(func(e *expectation) { negated(e).ok() }),
		"isNotOk":         unary(func(e *expectation) { negated(e).ok() }),
		"equal":           looseEqual(false),
		"notEqual":        looseEqual(true),
		"strictEqual":     binary(func(e *expectation, v goja.Value) { e.equal(v) }),
		"notStrictEqual":  binary(func(e *expectation, v goja.Value) { negated(e).equal(v) }),
		"deepEqual":       binary(func(e *expectation, v goja.Value) { e.eql(v) }),
		"deepStrictEqual": binary(func(e *expectation, v goja.Value) { e.eql(v) }),
		"notDeepEqual":    binary(func(e *expectation, v goja.Value) { negated(e).eql(v) }),
		"isTrue":          unary(func(e *expectation) { e.is(vm.ToValue(true), "true") }),
		"isFalse":         unary(func(e *expectation) { e.is(vm.ToValue(false), "false") }),
		"isNotTrue":       unary(func(e *expectation) { negated(e).is(vm.ToValue(true), "true") }),
		"isNotFalse":      unary(func(e *expectation) { negated(e).is(vm.ToValue(false), "false") }),
		"isNull":          unary(func(e *expectation) { e.is(goja.Null(), "null") }),
		"isNotNull":       unary(func(e *expectation) { negated(e).is(goja.Null(), "null") }),
		"isUndefined":     unary(func(e *expectation) { e.is(goja.Undefined(), "undefined") }),
		"isDefined":       unary(func(e *expectation) { negated(e).is(goja.Undefined(), "undefined") }),
		"isNaN":           unary(func(e *expectation) { e.nan() }),
		"isNotNaN":        unary(func(e *expectation) { negated(e).nan() }),
		"exists":          unary(func(e *expectation) { e.exist() }),
		"notExists":       unary(func(e *expectation) { negated(e).exist() }),
		"isEmpty":         unary(func(e *expectation) { e.empty() }),
		"isNotEmpty":      unary(func(e *expectation) { negated(e).empty() }),
		"isArray":         typeCheck("array", false),
		"isNotArray":      typeCheck("array", true),
		"isString":        typeCheck("string", false),
		"isNotString":     typeCheck("string", true),
		"isNumber":        typeCheck("number", false),
		"isNotNumber":     typeCheck("number", true),
		"isBoolean":       typeCheck("boolean", false),
		"isNotBoolean":    typeCheck("boolean", true),
		"isObject":        typeCheck("object", false),
		"isNotObject":     typeCheck("object", true),
		"isFunction":      typeCheck("function", false),
		"isNotFunction":   typeCheck("function", true),
		"typeOf":          binary(func(e *expectation, v goja.Value) { e.a(v) }),
		"notTypeOf":       binary(func(e *expectation, v goja.Value) { negated(e).a(v) }),
		"instanceOf":      binary(func(e *expectation, v goja.Value) { e.instanceOf(v) }),
		"include":         binary(func(e *expectation, v goja.Value) { e.include(v) }),
		"notInclude":      binary(func(e *expectation, v goja.Value) { negated(e).include(v) }),
		"deepInclude":     binary(func(e *expectation, v goja.Value) { deep(e).include(v) }),
		"lengthOf":        binary(func(e *expectation, v goja.Value) { e.lengthOf(v) }),
		"match":           binary(func(e *expectation, v goja.Value) { e.match(v) }),
		"notMatch":        binary(func(e *expectation, v goja.Value) { negated(e).match(v) }),
		"oneOf":           binary(func(e *expectation, v goja.Value) { e.oneOf(v) }),
		"isAbove":         binary(func(e *expectation, v goja.Value) { e.compare(v, "above") }),
		"isBelow":         binary(func(e *expectation, v goja.Value) { e.compare(v, "below") }),
		"isAtLeast":       binary(func(e *expectation, v goja.Value) { e.compare(v, "at least") }),
		"isAtMost":        binary(func(e *expectation, v goja.Value) { e.compare(v, "at most") }),
		"sameMembers":     binary(func(e *expectation, v goja.Value) { e.members(v) }),
		"sameDeepMembers": binary(func(e *expectation, v goja.Value) { deep(e).members(v) }),
		"property": func(call goja.FunctionCall) goja.Value {
			e := on(call, 2)
			e.property(goja.FunctionCall{Arguments: []goja.Value{call.Argument(1)}})
			return goja.Undefined()
		},
		"propertyVal": func(call goja.FunctionCall) goja.Value {
			e := on(call, 3)
			e.property(goja.FunctionCall{Arguments: []goja.Value{call.Argument(1), call.Argument(2)}})
			return goja.Undefined()
		},
		"closeTo": func(call goja.FunctionCall) goja.Value {
			on(call, 3).closeTo(call.Argument(1), call.Argument(2))
			return goja.Undefined()
		},
		"throws": func(call goja.FunctionCall) goja.Value {
			e := newExpectation(vm, call.Argument(0), nil)
			e.throws(call.Argument(1), call.Argument(2))
			return goja.Undefined()
		},
		"doesNotThrow": func(call goja.FunctionCall) goja.Value {
			e := newExpectation(vm, call.Argument(0), nil)
			e.negate = true
			e.throws(goja.Undefined(), nil)
			return goja.Undefined()
		},
		"fail": func(call goja.FunctionCall) goja.Value {
			msg := "assert.fail()"
			if m := call.Argument(0); !goja.IsUndefined(m) {
				msg = m.String()
			}
			panic(NewAssertionError(vm, msg, goja.Undefined(), goja.Undefined(), "fail"))
		},
	}
	aliases := map[string]string{
		"approximately": "closeTo", "throw": "throws", "Throw": "throws",
		"notDeepStrictEqual": "notDeepEqual",
	}
	for name, fn := range methods {
		_ = root.Set(name, fn)
	}
	for alias, target := range aliases {
		_ = root.Set(alias, methods[target])
	}
	return root
}
