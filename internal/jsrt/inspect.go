package jsrt

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dop251/goja"
)

// maxDepth is how deep Inspect descends before abbreviating.
const maxDepth = 2

var identifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Inspect renders v the way node's util.inspect does for common values:
//
//	'text'  42  [ 1, 2 ]  { a: 1, b: 'x' }  [Function: f]  null  undefined
func Inspect(v goja.Value) string {
	var b strings.Builder
	inspect(&b, v, 0, nil)
	return b.String()
}

func inspect(b *strings.Builder, v goja.Value, depth int, seen []*goja.Object) {
	if v == nil || goja.IsUndefined(v) {
		b.WriteString("undefined")
		return
	}
	if goja.IsNull(v) {
		b.WriteString("null")
		return
	}

	obj, ok := v.(*goja.Object)
	if !ok {
		inspectPrimitive(b, v)
		return
	}

	for _, s := range seen {
		if s == obj {
			b.WriteString("[Circular]")
			return
		}
	}

	if _, isFn := goja.AssertFunction(obj); isFn {
		name := obj.Get("name")
		if name == nil || name.String() == "" {
			b.WriteString("[Function (anonymous)]")
		} else {
			b.WriteString("[Function: " + name.String() + "]")
		}
		return
	}

	switch obj.ClassName() {
	case "Error":
		if depth > 0 {
			b.WriteString("[" + obj.String() + "]")
		} else {
			b.WriteString(obj.String())
		}
		return
	case "RegExp":
		b.WriteString(obj.String())
		return
	case "Date":
		if iso, ok := goja.AssertFunction(obj.Get("toISOString")); ok {
			if out, err := iso(obj); err == nil {
				b.WriteString(out.String())
				return
			}
		}
		b.WriteString(obj.String())
		return
	case "Array":
		if depth > maxDepth {
			b.WriteString("[Array]")
			return
		}
		inspectArray(b, obj, depth, append(seen, obj))
		return
	}

	if depth > maxDepth {
		b.WriteString("[Object]")
		return
	}
	inspectObject(b, obj, depth, append(seen, obj))
}

func inspectPrimitive(b *strings.Builder, v goja.Value) {
	switch x := v.Export().(type) {
	case string:
		b.WriteString(quote(x))
	case float64:
		if x == 0 && math.Signbit(x) {
			b.WriteString("-0")
			return
		}
		b.WriteString(v.String())
	default:
		b.WriteString(v.String())
	}
}

func inspectArray(b *strings.Builder, arr *goja.Object, depth int, seen []*goja.Object) {
	n := int(arr.Get("length").ToInteger())
	if n == 0 {
		b.WriteString("[]")
		return
	}
	b.WriteString("[ ")
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		inspect(b, arr.Get(strconv.Itoa(i)), depth+1, seen)
	}
	b.WriteString(" ]")
}

func inspectObject(b *strings.Builder, obj *goja.Object, depth int, seen []*goja.Object) {
	keys := obj.Keys()
	if len(keys) == 0 {
		b.WriteString("{}")
		return
	}
	b.WriteString("{ ")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		if identifier.MatchString(k) {
			b.WriteString(k)
		} else {
			b.WriteString(quote(k))
		}
		b.WriteString(": ")
		inspect(b, obj.Get(k), depth+1, seen)
	}
	b.WriteString(" }")
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\t", `\t`, "\r", `\r`)
	return "'" + r.Replace(s) + "'"
}

// Format joins console arguments: strings print raw, everything else is
// inspected. A leading format string understands %s %d %i %f %j %o %O %%.
func Format(args []goja.Value) string {
	if len(args) == 0 {
		return ""
	}

	var parts []string
	rest := args
	if s, ok := args[0].Export().(string); ok && strings.Contains(s, "%") {
		formatted, used := applyFormat(s, args[1:])
		parts = append(parts, formatted)
		rest = args[1+used:]
	}

	for _, a := range rest {
		if s, ok := a.Export().(string); ok && !isObject(a) {
			parts = append(parts, s)
			continue
		}
		parts = append(parts, Inspect(a))
	}
	return strings.Join(parts, " ")
}

func isObject(v goja.Value) bool {
	_, ok := v.(*goja.Object)
	return ok
}

func applyFormat(format string, args []goja.Value) (string, int) {
	var b strings.Builder
	used := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 >= len(format) {
			b.WriteByte(c)
			continue
		}
		verb := format[i+1]
		if verb == '%' {
			b.WriteByte('%')
			i++
			continue
		}
		if !strings.ContainsRune("sdifjoO", rune(verb)) || used >= len(args) {
			b.WriteByte(c)
			continue
		}
		arg := args[used]
		used++
		i++
		switch verb {
		case 's':
			if isObject(arg) {
				b.WriteString(Inspect(arg))
			} else {
				b.WriteString(arg.String())
			}
		case 'd', 'i':
			f := arg.ToFloat()
			if verb == 'i' || f == math.Trunc(f) {
				b.WriteString(strconv.FormatInt(arg.ToInteger(), 10))
			} else {
				b.WriteString(arg.ToNumber().String())
			}
		case 'f':
			b.WriteString(arg.ToNumber().String())
		default:
			b.WriteString(Inspect(arg))
		}
	}
	return b.String(), used
}
