package jsrt

import (
	"math"
	"strconv"

	"github.com/dop251/goja"
)

// StrictEqual is the === operator.
func StrictEqual(a, b goja.Value) bool {
	return normalize(a).StrictEquals(normalize(b))
}

// DeepEqual compares values structurally. Strict mode compares primitives
// with SameValueZero semantics (NaN equals NaN) and requires matching
// prototypes' class; loose mode compares primitives with ==.
func DeepEqual(a, b goja.Value, strict bool) bool {
	return deepEqual(normalize(a), normalize(b), strict, nil)
}

type pair struct{ a, b *goja.Object }

func deepEqual(a, b goja.Value, strict bool, seen []pair) bool {
	ao, aObj := a.(*goja.Object)
	bo, bObj := b.(*goja.Object)

	if !aObj || !bObj {
		if aObj != bObj {
			return !strict && a.Equals(b)
		}
		if strict {
			if isNaN(a) && isNaN(b) {
				return true
			}
			return a.StrictEquals(b)
		}
		return a.Equals(b)
	}

	if ao == bo {
		return true
	}
	for _, p := range seen {
		if p.a == ao && p.b == bo {
			return true
		}
	}
	seen = append(seen, pair{ao, bo})

	if ao.ClassName() != bo.ClassName() {
		return false
	}
	_, aFn := goja.AssertFunction(ao)
	_, bFn := goja.AssertFunction(bo)
	if aFn || bFn {
		return false
	}

	switch ao.ClassName() {
	case "Date":
		return timeValue(ao) == timeValue(bo)
	case "RegExp":
		return ao.String() == bo.String()
	case "Array":
		n := ao.Get("length").ToInteger()
		if n != bo.Get("length").ToInteger() {
			return false
		}
		for i := int64(0); i < n; i++ {
			k := strconv.FormatInt(i, 10)
			if !deepEqual(normalize(ao.Get(k)), normalize(bo.Get(k)), strict, seen) {
				return false
			}
		}
		return true
	}

	ak, bk := ao.Keys(), bo.Keys()
	if len(ak) != len(bk) {
		return false
	}
	bset := make(map[string]bool, len(bk))
	for _, k := range bk {
		bset[k] = true
	}
	for _, k := range ak {
		if !bset[k] {
			return false
		}
		if !deepEqual(normalize(ao.Get(k)), normalize(bo.Get(k)), strict, seen) {
			return false
		}
	}
	return true
}

func normalize(v goja.Value) goja.Value {
	if v == nil {
		return goja.Undefined()
	}
	return v
}

func isNaN(v goja.Value) bool {
	f, ok := v.Export().(float64)
	return ok && math.IsNaN(f)
}

func timeValue(o *goja.Object) float64 {
	if fn, ok := goja.AssertFunction(o.Get("getTime")); ok {
		if v, err := fn(o); err == nil {
			return v.ToFloat()
		}
	}
	return math.NaN()
}
