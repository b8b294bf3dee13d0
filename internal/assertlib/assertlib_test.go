package assertlib

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
	"github.com/stretchr/testify/assert"
	tr "github.com/stretchr/testify/require"
)

func newVM(t *testing.T) *goja.Runtime {
	t.Helper()
	vm := goja.New()
	registry := require.NewRegistry()
	for name, loader := range Modules() {
		registry.RegisterNativeModule(name, loader)
	}
	registry.Enable(vm)
	return vm
}

// failure runs src and returns the message of the AssertionError it throws.
func failure(t *testing.T, vm *goja.Runtime, src string) string {
	t.Helper()
	_, err := vm.RunString(src)
	tr.Error(t, err, src)
	var ex *goja.Exception
	tr.ErrorAs(t, err, &ex)
	tr.True(t, IsAssertionError(ex.Value()), "not an assertion error: %v", ex.Value())
	return Message(ex.Value())
}

func passes(t *testing.T, vm *goja.Runtime, src string) {
	t.Helper()
	_, err := vm.RunString(src)
	tr.NoError(t, err, src)
}

func TestNodeAssert_Failures(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"strictEqual", `require('assert').strictEqual(1, 2)`, "Expected values to be strictly equal:\n\n1 !== 2\n"},
		{"custom message", `require('assert').strictEqual(1, 2, 'one is not two')`, "one is not two"},
		{"equal", `require('assert').equal('a', 'b')`, "'a' == 'b'"},
		{"notEqual", `require('assert').notEqual(1, '1')`, "1 != '1'"},
		{"deepEqual", `require('assert').deepEqual([1], [2])`, "Expected values to be deep-equal:\n\n[ 1 ]\n\nshould equal\n\n[ 2 ]"},
		{"throws", `require('assert').throws(function () {})`, "Missing expected exception."},
		{"doesNotThrow", `require('assert').doesNotThrow(function () { throw new Error('boom') })`, "Got unwanted exception.\nActual message: \"Error: boom\""},
		{"fail", `require('assert').fail('nope')`, "nope"},
		{"callable", `require('assert')(0, 'zero')`, "zero"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, failure(t, newVM(t), tt.src))
		})
	}
}

func TestNodeAssert_Passes(t *testing.T) {
	vm := newVM(t)
	passes(t, vm, `
		var assert = require('assert');
		assert(true);
		assert.ok(1);
		assert.equal(1, '1');
		assert.strictEqual('x', 'x');
		assert.notStrictEqual(1, '1');
		assert.deepEqual({ a: [1, 2] }, { a: [1, 2] });
		assert.deepStrictEqual({ a: 1 }, { a: 1 });
		assert.notDeepEqual({ a: 1 }, { a: 2 });
		assert.throws(function () { throw new TypeError('x') }, TypeError);
		assert.throws(function () { throw new Error('x') }, function (e) { return e.message === 'x' });
		assert.doesNotThrow(function () {});
		assert.strict.equal(2, 2);
	`)
}

func TestNodeAssert_ThrowsRethrowsMismatchedError(t *testing.T) {
	vm := newVM(t)
	_, err := vm.RunString(`require('assert').throws(function () { throw new Error('plain') }, TypeError)`)
	var ex *goja.Exception
	tr.ErrorAs(t, err, &ex)
	assert.False(t, IsAssertionError(ex.Value()))
	assert.Equal(t, "plain", Message(ex.Value()))
}

func TestChaiExpect_Failures(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`expect(1).to.equal(2)`, "expected 1 to equal 2"},
		{`expect(1).to.not.equal(1)`, "expected 1 to not equal 1"},
		{`expect({ a: 1 }).to.eql({ a: 2 })`, "expected { a: 1 } to deeply equal { a: 2 }"},
		{`expect({ a: 1 }).to.deep.equal({ a: 2 })`, "expected { a: 1 } to deeply equal { a: 2 }"},
		{`expect(0).to.be.ok`, "expected 0 to be truthy"},
		{`expect(null).to.exist`, "expected null to exist"},
		{`expect([1]).to.be.empty`, "expected [ 1 ] to be empty"},
		{`expect('abc').to.include('z')`, "expected 'abc' to include 'z'"},
		{`expect([1, 2]).to.have.lengthOf(3)`, "expected [ 1, 2 ] to have a length of 3 but got 2"},
		{`expect(5).to.be.above(10)`, "expected 5 to be above 10"},
		{`expect(5).to.be.a('string')`, "expected 5 to be a string"},
		{`expect('x').to.be.an('array')`, "expected 'x' to be an array"},
		{`expect(1.5).to.be.closeTo(1, 0.1)`, "expected 1.5 to be close to 1 +/- 0.1"},
		{`expect(function () {}).to.throw()`, "expected [Function] to throw an error"},
		{`expect(function () { throw new Error('a') }).to.throw(TypeError)`, "expected [Function] to throw TypeError"},
		{`expect({}).to.have.property('x')`, "expected {} to have property 'x'"},
		{`expect(2).to.be.oneOf([1, 3])`, "expected 2 to be one of [ 1, 3 ]"},
		{`expect({ a: 1 }).to.have.keys('a', 'b')`, "expected { a: 1 } to have keys 'a', 'b'"},
		{`expect(1, 'custom').to.equal(2)`, "custom: expected 1 to equal 2"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			vm := newVM(t)
			passes(t, vm, `var expect = require('chai').expect;`)
			assert.Equal(t, tt.want, failure(t, vm, tt.src))
		})
	}
}

func TestChaiExpect_Passes(t *testing.T) {
	vm := newVM(t)
	passes(t, vm, `
		var chai = require('chai');
		var expect = chai.expect;
		chai.use(function () {});
		expect(1).to.equal(1);
		expect([1, { b: 2 }]).to.deep.equal([1, { b: 2 }]);
		expect(true).to.be.true;
		expect(null).to.be.null;
		expect(undefined).to.be.undefined;
		expect(NaN).to.be.NaN;
		expect('').to.be.empty;
		expect({}).to.be.empty;
		expect([1, 2, 3]).to.include(2);
		expect({ a: 1, b: 2 }).to.include({ a: 1 });
		expect('hello').to.have.length(5);
		expect(3).to.be.within(1, 5);
		expect(3).to.be.at.least(3).and.at.most(3);
		expect(function () { throw new TypeError('bad input') }).to.throw(TypeError, 'bad');
		expect(function () { throw new Error('xyz') }).to.throw(/y/);
		expect({ a: 1 }).to.have.property('a', 1);
		expect('abc').to.match(/^a/);
		expect([3, 1, 2]).to.have.members([1, 2, 3]);
		expect(new Error('e')).to.be.instanceOf(Error);
		expect(4).to.satisfy(function (n) { return n % 2 === 0 });
		expect(0.1 + 0.2).to.be.approximately(0.3, 1e-9);
	`)
}

func TestChaiAssert(t *testing.T) {
	vm := newVM(t)
	passes(t, vm, `
		var assert = require('chai').assert;
		assert(true);
		assert.equal(1, '1');
		assert.strictEqual(1, 1);
		assert.deepEqual({ a: [1] }, { a: [1] });
		assert.isTrue(true);
		assert.isNull(null);
		assert.isDefined(0);
		assert.isArray([]);
		assert.isNumber(1);
		assert.typeOf('s', 'string');
		assert.include([1, 2], 2);
		assert.lengthOf('abc', 3);
		assert.closeTo(1.0001, 1, 0.001);
		assert.throws(function () { throw new Error('x') });
		assert.doesNotThrow(function () {});
		assert.property({ a: 1 }, 'a');
		assert.propertyVal({ a: 1 }, 'a', 1);
		assert.isAbove(2, 1);
		assert.sameMembers([1, 2], [2, 1]);
	`)

	assert.Equal(t, "expected 1 to equal 2", failure(t, vm, `assert.equal(1, 2)`))
	assert.Equal(t, "msg: expected false to be true", failure(t, vm, `assert.isTrue(false, 'msg')`))
	assert.Equal(t, "expected [ 1 ] to include 3", failure(t, vm, `assert.include([1], 3)`))
	assert.Equal(t, "expected 0 to be truthy", failure(t, vm, `assert(0)`))
	assert.Equal(t, "boom", failure(t, vm, `assert.fail('boom')`))
}

func TestIsAssertionError(t *testing.T) {
	vm := newVM(t)
	v, err := vm.RunString(`(function () { var e = new Error('x'); e.name = 'AssertionError'; return e; })()`)
	tr.NoError(t, err)
	assert.True(t, IsAssertionError(v))

	v, err = vm.RunString(`new TypeError('x')`)
	tr.NoError(t, err)
	assert.False(t, IsAssertionError(v))
	assert.False(t, IsAssertionError(vm.ToValue("AssertionError")))
}

func TestNodeAssert_ThrowsValidationFunction(t *testing.T) {
	vm := newVM(t)
	passes(t, vm, `
		var assert = require('assert');
		function CustomError(message) { this.message = message; }
		assert.throws(function () { throw new CustomError('c') }, CustomError);
		assert.throws(function () { throw 'plain' }, function (v) { return v === 'plain' });
	`)

	msg := failure(t, vm, `require('assert').throws(function () { throw new Error('x') }, function (e) { return false })`)
	assert.Equal(t, "The validation function is expected to return \"true\". Received false\n\nCaught error:\n\nError: x", msg)

	msg = failure(t, vm, `require('assert').throws(function () { throw new Error('x') }, function check() { return 1 })`)
	assert.Equal(t, "The \"check\" validation function is expected to return \"true\". Received 1\n\nCaught error:\n\nError: x", msg)
}

func TestNodeAssert_ThrowsValidationFunctionFaultPropagates(t *testing.T) {
	vm := newVM(t)
	_, err := vm.RunString(`require('assert').throws(function () { throw new Error('x') }, function (e) { throw new RangeError('from validator') })`)
	var ex *goja.Exception
	tr.ErrorAs(t, err, &ex)
	assert.False(t, IsAssertionError(ex.Value()))
	assert.Equal(t, "from validator", Message(ex.Value()))
}
