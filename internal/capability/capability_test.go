package capability

import (
	"bytes"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kata/internal/protocol"
)

var fixedSeed = Options{Seed: [2]uint64{1, 2}}

// run evaluates src with Test bound and returns the token stream.
func run(t *testing.T, src string) string {
	t.Helper()
	vm := goja.New()
	out := &bytes.Buffer{}
	c := New(vm, protocol.NewEncoder(out), fixedSeed)
	obj, err := c.Object(nil)
	require.NoError(t, err)
	require.NoError(t, vm.Set("Test", obj))
	_, err = vm.RunString(src)
	require.NoError(t, err)
	return out.String()
}

func TestExpect(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"pass", `Test.expect(1 == 1)`, "<PASSED::>Test Passed\n"},
		{"fail", `Test.expect(1 == 2)`, "<FAILED::>Value is not what was expected\n"},
		{"string debug replaces", `Test.expect(false, 'custom')`, "<FAILED::>custom\n"},
		{"object debug appended", `Test.expect(false, { b: 2 })`, "<FAILED::>Value is not what was expected: { b: 2 }\n"},
		{"multiline debug escaped", `Test.expect(false, 'a\nb')`, "<FAILED::>a<:LF:>b\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(t, tt.src))
		})
	}
}

func TestAssertEquals(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"pass", `Test.assertEquals('ok', 'ok')`, "<PASSED::>Test Passed: Value == 'ok'\n"},
		{"fail", `Test.assertEquals('x', 'ok')`, "<FAILED::>Expected: 'ok', instead got: 'x'\n"},
		{"strict", `Test.assertEquals(1, '1')`, "<FAILED::>Expected: '1', instead got: 1\n"},
		{"custom message", `Test.assertEquals(1, 2, 'sum')`, "<FAILED::>sum - Expected: 2, instead got: 1\n"},
		{"not equals", `Test.assertNotEquals(1, 2)`, "<PASSED::>Test Passed: Value != 2\n"},
		{"not equals fails", `Test.assertNotEquals(1, 1)`, "<FAILED::>Not expected: 1\n"},
		{"deep", `Test.assertDeepEquals([1, { a: 2 }], [1, { a: 2 }])`, "<PASSED::>Test Passed: Value deep equals [ 1, { a: 2 } ]\n"},
		{"deep fails", `Test.assertDeepEquals([1], [2])`, "<FAILED::>Expected: [ 2 ], instead got: [ 1 ]\n"},
		{"not deep", `Test.assertNotDeepEquals([1], [1])`, "<FAILED::>Value should not deep equal [ 1 ]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(t, tt.src))
		})
	}
}

func TestAssertApproxEquals(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`Test.assertApproxEquals(2.00000000004, 2)`, "<PASSED::>Test Passed\n"},
		{`Test.assertApproxEquals(1.99999999996, 2)`, "<PASSED::>Test Passed\n"},
		{`Test.assertApproxEquals(-0.00000000009, 0)`, "<PASSED::>Test Passed\n"},
		{`Test.assertApproxEquals(3.004, 3)`, "<FAILED::>Expected actual value 3.004 to approximately equal expected value 3 (accepted relative error: 1e-09)\n"},
		{`Test.assertApproxEquals(0.5, 0.4)`, "<FAILED::>Expected actual value 0.5 to approximately equal expected value 0.4 (accepted absolute error: 1e-09)\n"},
		{`Test.assertNotApproxEquals(2.004, 2)`, "<PASSED::>Test Passed\n"},
		{`Test.assertNotApproxEquals(3.00000000004, 3)`, "<FAILED::>Actual value 3.00000000004 should not approximately equal unexpected value 3 (rejected relative error: 1e-09)\n"},
		{`Test.assertApproxEquals(1, 2, 'close')`, "<FAILED::>close - Expected actual value 1 to approximately equal expected value 2 (accepted relative error: 1e-09)\n"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, run(t, tt.src))
		})
	}
}

func TestApproxNegation(t *testing.T) {
	values := []string{"0", "1e-8", "-1e-8", "1000000", "-1000000", "1e-15", "3.004"}
	for _, a := range values {
		for _, e := range values {
			out := run(t, `Test.assertApproxEquals(`+a+`, `+e+`); Test.assertNotApproxEquals(`+a+`, `+e+`);`)
			events := protocol.DecodeString(out)
			require.Len(t, events, 2)
			assert.NotEqual(t, events[0].Kind, events[1].Kind, "%s vs %s", a, e)
		}
	}
}

func TestExpectError(t *testing.T) {
	assert.Equal(t, "<PASSED::>Test Passed\n", run(t, `Test.expectError(function () { throw new Error('x') })`))
	assert.Equal(t, "<FAILED::>should throw - Expected an error to be thrown\n", run(t, `Test.expectError('should throw', function () {})`))
	assert.Equal(t, "<PASSED::>Test Passed\n", run(t, `Test.expectNoError(function () {})`))
	assert.Equal(t, "<FAILED::>Unexpected error thrown: Error: x\n", run(t, `Test.expectNoError(function () { throw new Error('x') })`))
}

func TestPassAndFail(t *testing.T) {
	assert.Equal(t, "<PASSED::>Test Passed\n<FAILED::>nope\n", run(t, `Test.pass(); Test.fail('nope');`))
}

func TestTestObjectIsFrozen(t *testing.T) {
	out := run(t, `
		Test.expect = function () {};
		Test.extra = 1;
		Test.expect(false);
		Test.expect(Test.extra === undefined);
	`)
	assert.Equal(t, "<FAILED::>Value is not what was expected\n<PASSED::>Test Passed\n", out)
}

func TestObjectExtras(t *testing.T) {
	vm := goja.New()
	c := New(vm, protocol.NewEncoder(&bytes.Buffer{}), fixedSeed)
	var called bool
	obj, err := c.Object(map[string]Method{
		"describe": func(goja.FunctionCall) goja.Value {
			called = true
			return goja.Undefined()
		},
	})
	require.NoError(t, err)
	require.NoError(t, vm.Set("Test", obj))
	_, err = vm.RunString(`Test.describe('x', function () {})`)
	require.NoError(t, err)
	assert.True(t, called)
}

func TestRandomNumberRange(t *testing.T) {
	c := New(goja.New(), protocol.NewEncoder(&bytes.Buffer{}), fixedSeed)
	for range 10000 {
		n := c.RandomNumber()
		require.GreaterOrEqual(t, n, 0)
		require.LessOrEqual(t, n, 100)
	}
}

func TestRandomNumberUniform(t *testing.T) {
	if testing.Short() {
		t.Skip("draws 10^7 numbers")
	}
	const draws = 10_000_000
	c := New(goja.New(), protocol.NewEncoder(&bytes.Buffer{}), Options{})
	var buckets [101]int
	for range draws {
		buckets[c.RandomNumber()]++
	}
	for n, count := range buckets {
		share := float64(count) * 101 / draws
		assert.InDelta(t, 1, share, 0.2, "bucket %d", n)
	}
}

func TestRandomToken(t *testing.T) {
	c := New(goja.New(), protocol.NewEncoder(&bytes.Buffer{}), fixedSeed)
	tok := c.RandomToken()
	assert.Regexp(t, `^[a-z0-9]{10}$`, tok)
	assert.NotEqual(t, tok, c.RandomToken())
}

func TestRandomize(t *testing.T) {
	out := run(t, `
		var src = [1, 2, 3, 4, 5, 6, 7, 8];
		var shuffled = Test.randomize(src);
		Test.expect(shuffled !== src);
		Test.expect(shuffled.length === 8);
		Test.assertDeepEquals(shuffled.slice().sort(), src);
		Test.expect(src.join() === '1,2,3,4,5,6,7,8');
	`)
	assert.NotContains(t, out, "<FAILED::>")
}

func TestInspect(t *testing.T) {
	assert.Equal(t, "<PASSED::>Test Passed\n", run(t, `Test.expect(Test.inspect({ b: 2 }) === '{ b: 2 }')`))
}
