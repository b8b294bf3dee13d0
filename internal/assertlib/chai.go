package assertlib

import (
	"math"
	"strconv"
	"strings"

	"github.com/dop251/goja"

	"github.com/roach88/kata/internal/jsrt"
)

// Chai is the loader for require("chai").
func Chai(vm *goja.Runtime, module *goja.Object) {
	exports := vm.NewObject()
	for name, v := range ChaiGlobals(vm) {
		_ = exports.Set(name, v)
	}

	config := vm.NewObject()
	_ = config.Set("includeStack", false)
	_ = config.Set("showDiff", true)
	_ = config.Set("truncateThreshold", 40)
	_ = exports.Set("config", config)

	// Plugins are accepted and ignored; chai-style plugins patch internals
	// this subset does not have.
	_ = exports.Set("use", func(goja.FunctionCall) goja.Value { return exports })

	_ = module.Set("exports", exports)
}

// ChaiGlobals returns chai's expect and assert interfaces, for runners that
// expose them as globals.
func ChaiGlobals(vm *goja.Runtime) map[string]goja.Value {
	return map[string]goja.Value{
		"expect": vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return newExpectation(vm, call.Argument(0), call.Argument(1)).object()
		}),
		"assert": chaiAssert(vm),
	}
}

var chainWords = []string{
	"to", "be", "been", "is", "that", "which", "and", "has", "have",
	"with", "at", "of", "same", "but", "does", "still", "also",
}

type expectation struct {
	vm     *goja.Runtime
	actual goja.Value
	custom goja.Value
	negate bool
	deep   bool
}

func newExpectation(vm *goja.Runtime, actual, custom goja.Value) *expectation {
	if actual == nil {
		actual = goja.Undefined()
	}
	return &expectation{vm: vm, actual: actual, custom: custom}
}

// assert throws unless ok holds, honouring negation. Templates may use
// #{this} and #{exp}.
func (e *expectation) assert(ok bool, msg, negMsg string, expected goja.Value, op string) {
	if e.negate {
		ok = !ok
		msg = negMsg
	}
	if ok {
		return
	}
	msg = strings.ReplaceAll(msg, "#{this}", jsrt.Inspect(e.actual))
	if expected != nil {
		msg = strings.ReplaceAll(msg, "#{exp}", jsrt.Inspect(expected))
	}
	raise(e.vm, e.custom, msg, e.actual, expected, op)
}

func (e *expectation) object() *goja.Object {
	vm := e.vm
	obj := vm.NewObject()
	ret := func() goja.Value { return obj }

	getter := func(name string, fn func()) {
		_ = obj.DefineAccessorProperty(name, vm.ToValue(func(goja.FunctionCall) goja.Value {
			fn()
			return ret()
		}), nil, goja.FLAG_TRUE, goja.FLAG_FALSE)
	}
	method := func(fn func(call goja.FunctionCall)) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			fn(call)
			return ret()
		}
	}

	for _, w := range chainWords {
		getter(w, func() {})
	}
	getter("not", func() { e.negate = !e.negate })
	getter("deep", func() { e.deep = true })

	getter("ok", e.ok)
	getter("true", func() { e.is(e.vm.ToValue(true), "true") })
	getter("false", func() { e.is(e.vm.ToValue(false), "false") })
	getter("null", func() { e.is(goja.Null(), "null") })
	getter("undefined", func() { e.is(goja.Undefined(), "undefined") })
	getter("NaN", e.nan)
	getter("exist", e.exist)
	getter("empty", e.empty)

	methods := map[string]func(goja.FunctionCall) goja.Value{
		"equal":       method(func(c goja.FunctionCall) { e.equal(c.Argument(0)) }),
		"eql":         method(func(c goja.FunctionCall) { e.eql(c.Argument(0)) }),
		"above":       method(func(c goja.FunctionCall) { e.compare(c.Argument(0), "above") }),
		"below":       method(func(c goja.FunctionCall) { e.compare(c.Argument(0), "below") }),
		"least":       method(func(c goja.FunctionCall) { e.compare(c.Argument(0), "at least") }),
		"most":        method(func(c goja.FunctionCall) { e.compare(c.Argument(0), "at most") }),
		"a":           method(func(c goja.FunctionCall) { e.a(c.Argument(0)) }),
		"include":     method(func(c goja.FunctionCall) { e.include(c.Argument(0)) }),
		"lengthOf":    method(func(c goja.FunctionCall) { e.lengthOf(c.Argument(0)) }),
		"closeTo":     method(func(c goja.FunctionCall) { e.closeTo(c.Argument(0), c.Argument(1)) }),
		"throw":       method(func(c goja.FunctionCall) { e.throws(c.Argument(0), c.Argument(1)) }),
		"property":    method(func(c goja.FunctionCall) { e.property(c) }),
		"match":       method(func(c goja.FunctionCall) { e.match(c.Argument(0)) }),
		"oneOf":       method(func(c goja.FunctionCall) { e.oneOf(c.Argument(0)) }),
		"instanceOf":  method(func(c goja.FunctionCall) { e.instanceOf(c.Argument(0)) }),
		"satisfy":     method(func(c goja.FunctionCall) { e.satisfy(c.Argument(0)) }),
		"keys":        method(func(c goja.FunctionCall) { e.keys(c.Arguments) }),
		"within":      method(func(c goja.FunctionCall) { e.within(c.Argument(0), c.Argument(1)) }),
		"members":     method(func(c goja.FunctionCall) { e.members(c.Argument(0)) }),
		"string":      method(func(c goja.FunctionCall) { e.a(e.vm.ToValue("string")); e.include(c.Argument(0)) }),
		"ownProperty": method(func(c goja.FunctionCall) { e.property(c) }),
	}
	aliases := map[string]string{
		"equals": "equal", "eq": "equal", "eqls": "eql",
		"gt": "above", "greaterThan": "above", "lt": "below", "lessThan": "below",
		"gte": "least", "lte": "most",
		"an": "a", "includes": "include", "contain": "include", "contains": "include",
		"length": "lengthOf", "approximately": "closeTo",
		"throws": "throw", "Throw": "throw", "matches": "match",
		"instanceof": "instanceOf", "satisfies": "satisfy", "key": "keys",
		"haveOwnProperty": "ownProperty",
	}
	for name, fn := range methods {
		_ = obj.Set(name, fn)
	}
	for alias, target := range aliases {
		_ = obj.Set(alias, methods[target])
	}
	return obj
}

func (e *expectation) ok() {
	e.assert(e.actual.ToBoolean(), "expected #{this} to be truthy", "expected #{this} to be falsy", nil, "ok")
}

func (e *expectation) is(want goja.Value, name string) {
	e.assert(jsrt.StrictEqual(e.actual, want), "expected #{this} to be "+name, "expected #{this} to not be "+name, want, "strictEqual")
}

func (e *expectation) nan() {
	f, isNum := e.actual.Export().(float64)
	e.assert(isNum && math.IsNaN(f), "expected #{this} to be NaN", "expected #{this} not to be NaN", nil, "NaN")
}

func (e *expectation) exist() {
	e.assert(!goja.IsNull(e.actual) && !goja.IsUndefined(e.actual), "expected #{this} to exist", "expected #{this} to not exist", nil, "exist")
}

func (e *expectation) empty() {
	size := -1
	switch typeOf(e.actual) {
	case "string":
		size = len(e.actual.String())
	case "array":
		size = int(e.actual.(*goja.Object).Get("length").ToInteger())
	case "object":
		size = len(e.actual.(*goja.Object).Keys())
	default:
		panic(e.vm.NewTypeError(".empty was passed non-string primitive " + jsrt.Inspect(e.actual)))
	}
	e.assert(size == 0, "expected #{this} to be empty", "expected #{this} not to be empty", nil, "empty")
}

func (e *expectation) equal(expected goja.Value) {
	if e.deep {
		e.eql(expected)
		return
	}
	e.assert(jsrt.StrictEqual(e.actual, expected), "expected #{this} to equal #{exp}", "expected #{this} to not equal #{exp}", expected, "strictEqual")
}

func (e *expectation) eql(expected goja.Value) {
	e.assert(jsrt.DeepEqual(e.actual, expected, true), "expected #{this} to deeply equal #{exp}", "expected #{this} to not deeply equal #{exp}", expected, "deepStrictEqual")
}

func (e *expectation) compare(n goja.Value, relation string) {
	a, b := e.actual.ToFloat(), n.ToFloat()
	var ok bool
	switch relation {
	case "above":
		ok = a > b
	case "below":
		ok = a < b
	case "at least":
		ok = a >= b
	case "at most":
		ok = a <= b
	}
	e.assert(ok, "expected #{this} to be "+relation+" #{exp}", "expected #{this} to not be "+relation+" #{exp}", n, relation)
}

func (e *expectation) within(lo, hi goja.Value) {
	a := e.actual.ToFloat()
	rng := jsrt.Inspect(lo) + ".." + jsrt.Inspect(hi)
	e.assert(a >= lo.ToFloat() && a <= hi.ToFloat(), "expected #{this} to be within "+rng, "expected #{this} to not be within "+rng, nil, "within")
}

func (e *expectation) a(typ goja.Value) {
	want := strings.ToLower(typ.String())
	article := "a "
	if want != "" && strings.ContainsAny(want[:1], "aeiou") {
		article = "an "
	}
	e.assert(typeOf(e.actual) == want, "expected #{this} to be "+article+want, "expected #{this} not to be "+article+want, nil, "a")
}

func (e *expectation) include(needle goja.Value) {
	found := false
	switch typeOf(e.actual) {
	case "string":
		found = strings.Contains(e.actual.String(), needle.String())
	case "array":
		arr := e.actual.(*goja.Object)
		n := arr.Get("length").ToInteger()
		for i := int64(0); i < n && !found; i++ {
			item := arr.Get(strconv.FormatInt(i, 10))
			if e.deep {
				found = jsrt.DeepEqual(item, needle, true)
			} else {
				found = jsrt.StrictEqual(item, needle)
			}
		}
	case "object":
		sub, isObj := needle.(*goja.Object)
		if !isObj {
			panic(e.vm.NewTypeError("the given combination of arguments (object and " + typeOf(needle) + ") is invalid for this assertion"))
		}
		obj := e.actual.(*goja.Object)
		found = true
		for _, k := range sub.Keys() {
			got := obj.Get(k)
			if got == nil {
				found = false
				break
			}
			if e.deep && !jsrt.DeepEqual(got, sub.Get(k), true) || !e.deep && !jsrt.StrictEqual(got, sub.Get(k)) {
				found = false
				break
			}
		}
	default:
		panic(e.vm.NewTypeError("the given combination of arguments (" + typeOf(e.actual) + " and " + typeOf(needle) + ") is invalid for this assertion"))
	}
	e.assert(found, "expected #{this} to include #{exp}", "expected #{this} to not include #{exp}", needle, "include")
}

func (e *expectation) lengthOf(n goja.Value) {
	var got int64
	switch typeOf(e.actual) {
	case "string":
		got = int64(len([]rune(e.actual.String())))
	default:
		obj, ok := e.actual.(*goja.Object)
		if !ok {
			panic(e.vm.NewTypeError(jsrt.Inspect(e.actual) + " does not have a length"))
		}
		got = obj.Get("length").ToInteger()
	}
	want := n.ToInteger()
	e.assert(got == want,
		"expected #{this} to have a length of "+strconv.FormatInt(want, 10)+" but got "+strconv.FormatInt(got, 10),
		"expected #{this} to not have a length of "+strconv.FormatInt(got, 10), n, "lengthOf")
}

func (e *expectation) closeTo(expected, delta goja.Value) {
	a, x, d := e.actual.ToFloat(), expected.ToFloat(), delta.ToFloat()
	suffix := " to be close to " + jsrt.Inspect(expected) + " +/- " + jsrt.Inspect(delta)
	e.assert(math.Abs(a-x) <= d, "expected #{this}"+suffix, "expected #{this} not"+suffix, expected, "closeTo")
}

func (e *expectation) throws(errLike, msgMatcher goja.Value) {
	thrown, threw := callThrows(e.vm, e.actual)

	if goja.IsUndefined(errLike) || errLike == nil {
		rendered := ""
		if threw {
			rendered = "'" + jsrt.RenderThrown(thrown) + "'"
		}
		e.assert(threw, "expected [Function] to throw an error", "expected [Function] to not throw an error but "+rendered+" was thrown", nil, "throw")
		return
	}

	matcher := errLike
	if ctor, isObj := errLike.(*goja.Object); isObj {
		if _, isFn := goja.AssertFunction(ctor); isFn {
			ok := threw
			if obj, isErr := thrown.(*goja.Object); ok && isErr {
				ok = instanceOf(obj, ctor.Get("prototype"))
			} else {
				ok = false
			}
			name := ctor.Get("name").String()
			e.assert(ok, "expected [Function] to throw "+name, "expected [Function] to not throw "+name, nil, "throw")
			if goja.IsUndefined(msgMatcher) || msgMatcher == nil {
				return
			}
			matcher = msgMatcher
		}
	}

	message := ""
	if threw {
		message = thrownMessage(thrown)
	}
	ok := threw && e.matches(message, matcher)
	e.assert(ok, "expected [Function] to throw error including "+jsrt.Inspect(matcher)+" but got "+strconv.Quote(message),
		"expected [Function] to throw error not including "+jsrt.Inspect(matcher), matcher, "throw")
}

func thrownMessage(v goja.Value) string {
	if obj, ok := v.(*goja.Object); ok {
		if m := obj.Get("message"); m != nil && !goja.IsUndefined(m) {
			return m.String()
		}
	}
	return jsrt.RenderThrown(v)
}

func (e *expectation) matches(s string, matcher goja.Value) bool {
	if obj, ok := matcher.(*goja.Object); ok && obj.ClassName() == "RegExp" {
		test, _ := goja.AssertFunction(obj.Get("test"))
		res, err := jsrt.Call(e.vm, test, obj, e.vm.ToValue(s))
		return err == nil && res.ToBoolean()
	}
	return strings.Contains(s, matcher.String())
}

func (e *expectation) property(call goja.FunctionCall) {
	name := call.Argument(0).String()
	obj, ok := e.actual.(*goja.Object)
	var got goja.Value
	if ok {
		got = obj.Get(name)
	}
	has := got != nil
	if len(call.Arguments) < 2 {
		e.assert(has, "expected #{this} to have property '"+name+"'", "expected #{this} to not have property '"+name+"'", nil, "property")
		return
	}
	want := call.Argument(1)
	equal := has && (e.deep && jsrt.DeepEqual(got, want, true) || !e.deep && jsrt.StrictEqual(got, want))
	e.assert(equal, "expected #{this} to have property '"+name+"' of #{exp}, but got "+jsrt.Inspect(got),
		"expected #{this} to not have property '"+name+"' of #{exp}", want, "property")
}

func (e *expectation) match(re goja.Value) {
	e.assert(e.matches(e.actual.String(), re), "expected #{this} to match "+jsrt.Inspect(re), "expected #{this} not to match "+jsrt.Inspect(re), re, "match")
}

func (e *expectation) oneOf(list goja.Value) {
	arr, ok := list.(*goja.Object)
	found := false
	if ok {
		n := arr.Get("length").ToInteger()
		for i := int64(0); i < n && !found; i++ {
			found = jsrt.StrictEqual(arr.Get(strconv.FormatInt(i, 10)), e.actual)
		}
	}
	e.assert(found, "expected #{this} to be one of #{exp}", "expected #{this} to not be one of #{exp}", list, "oneOf")
}

func (e *expectation) instanceOf(ctor goja.Value) {
	c, ok := ctor.(*goja.Object)
	if !ok {
		panic(e.vm.NewTypeError("The instanceof assertion needs a constructor"))
	}
	obj, isObj := e.actual.(*goja.Object)
	name := c.Get("name").String()
	e.assert(isObj && instanceOf(obj, c.Get("prototype")), "expected #{this} to be an instance of "+name, "expected #{this} to not be an instance of "+name, nil, "instanceOf")
}

func (e *expectation) satisfy(fn goja.Value) {
	call, ok := goja.AssertFunction(fn)
	if !ok {
		panic(e.vm.NewTypeError("satisfy needs a function"))
	}
	res, err := jsrt.Call(e.vm, call, nil, e.actual)
	if err != nil {
		if v, thrown := jsrt.ThrownValue(err); thrown {
			panic(v)
		}
		return
	}
	e.assert(res.ToBoolean(), "expected #{this} to satisfy "+jsrt.Inspect(fn), "expected #{this} to not satisfy "+jsrt.Inspect(fn), nil, "satisfy")
}

func (e *expectation) keys(args []goja.Value) {
	var want []string
	if len(args) == 1 {
		if arr, ok := args[0].(*goja.Object); ok && arr.ClassName() == "Array" {
			n := arr.Get("length").ToInteger()
			for i := int64(0); i < n; i++ {
				want = append(want, arr.Get(strconv.FormatInt(i, 10)).String())
			}
		}
	}
	if want == nil {
		for _, a := range args {
			want = append(want, a.String())
		}
	}

	obj, ok := e.actual.(*goja.Object)
	have := map[string]bool{}
	if ok {
		for _, k := range obj.Keys() {
			have[k] = true
		}
	}
	match := len(have) == len(want)
	for _, k := range want {
		match = match && have[k]
	}
	list := "'" + strings.Join(want, "', '") + "'"
	e.assert(match, "expected #{this} to have keys "+list, "expected #{this} to not have keys "+list, nil, "keys")
}

func (e *expectation) members(set goja.Value) {
	a, aok := e.actual.(*goja.Object)
	b, bok := set.(*goja.Object)
	same := aok && bok
	if same {
		n := a.Get("length").ToInteger()
		same = n == b.Get("length").ToInteger()
		for i := int64(0); same && i < n; i++ {
			item := a.Get(strconv.FormatInt(i, 10))
			found := false
			for j := int64(0); j < n && !found; j++ {
				other := b.Get(strconv.FormatInt(j, 10))
				found = e.deep && jsrt.DeepEqual(item, other, true) || !e.deep && jsrt.StrictEqual(item, other)
			}
			same = found
		}
	}
	e.assert(same, "expected #{this} to have the same members as #{exp}", "expected #{this} to not have the same members as #{exp}", set, "members")
}
