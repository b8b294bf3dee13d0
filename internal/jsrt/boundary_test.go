package jsrt

import (
	"strings"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kata/internal/protocol"
)

func TestBoundary_Frames(t *testing.T) {
	b := NewBoundary()
	b.Mark("/workspace/solution.js")

	dump := "Error: boom\n" +
		"\tat explode (/workspace/solution.js:3:9(4))\n" +
		"\tat harness:adapter.js:10:2(7)\n" +
		"\tat describe (native)\n" +
		"\tat native\n" +
		"\tat /workspace/solution.js:5:1(12)\n"

	assert.Equal(t, []string{
		"    at explode (/workspace/solution.js:3:9)",
		"    at /workspace/solution.js:5:1",
	}, b.Frames(dump))
}

func TestBoundary_DescribeTopLevelReferenceError(t *testing.T) {
	rt, _, _ := newRuntime(t, nil)
	var runErr error
	rt.Run(func(vm *goja.Runtime) {
		_, runErr = rt.RunScript(vm, rt.ScriptName("solution.js"), "var x = 1;\nmissing.call();", OriginUser)
	})
	require.Error(t, runErr)

	msg := rt.Describe(runErr)
	assert.True(t, strings.HasPrefix(msg, "ReferenceError: missing is not defined"), msg)
	assert.Contains(t, msg, "    at /workspace/solution.js:2:")
	assert.Contains(t, protocol.Escape(msg), "<:LF:>")
}

func TestBoundary_HarnessFramesRemoved(t *testing.T) {
	rt, _, _ := newRuntime(t, nil)
	var runErr error
	rt.Run(func(vm *goja.Runtime) {
		_, err := rt.RunScript(vm, "invoke.js", "function invoke(f) { return f(); }", OriginHarness)
		require.NoError(t, err)
		_, runErr = rt.RunScript(vm, rt.ScriptName("fixture.js"), "invoke(function () { throw new Error('inner'); });", OriginUser)
	})
	require.Error(t, runErr)

	msg := rt.Describe(runErr)
	assert.Contains(t, msg, "Error: inner")
	assert.Contains(t, msg, "/workspace/fixture.js:1:")
	assert.NotContains(t, msg, "harness:")
	assert.NotContains(t, msg, "invoke.js")
}

func TestBoundary_ThrownValues(t *testing.T) {
	rt, _, _ := newRuntime(t, nil)
	var stringErr, objErr error
	rt.Run(func(vm *goja.Runtime) {
		_, stringErr = rt.RunScript(vm, rt.ScriptName("solution.js"), "throw 'boom!';", OriginUser)
		_, objErr = rt.RunScript(vm, rt.ScriptName("solution.js"), "throw { code: 7 };", OriginUser)
	})
	// Only Error objects carry a stack.
	assert.Equal(t, "boom!", rt.Describe(stringErr))
	assert.Equal(t, "{ code: 7 }", rt.Describe(objErr))

	v, ok := ThrownValue(stringErr)
	require.True(t, ok)
	assert.Equal(t, "boom!", v.String())
}

func TestBoundary_SyntaxError(t *testing.T) {
	rt, _, _ := newRuntime(t, nil)
	var runErr error
	rt.Run(func(vm *goja.Runtime) {
		_, runErr = rt.RunScript(vm, rt.ScriptName("solution.js"), "var = ;", OriginUser)
	})
	require.Error(t, runErr)
	assert.Contains(t, rt.Describe(runErr), "SyntaxError")
}
