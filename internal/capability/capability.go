// Package capability implements the reporting object handed to fixture
// code as the global Test.
//
// Every report goes straight to the run's encoder through the Go value held
// by the harness. The JavaScript object only forwards to it, so replacing or
// wrapping the object from user code cannot change what is reported for
// cases registered through the harness's own bindings.
package capability

import (
	"math/rand/v2"
	"strings"

	"github.com/dop251/goja"

	"github.com/roach88/kata/internal/approx"
	"github.com/roach88/kata/internal/jsrt"
	"github.com/roach88/kata/internal/protocol"
)

// PassMessage is reported for a satisfied assertion.
const PassMessage = "Test Passed"

// DefaultFailMessage is reported by a failed expect with no debug value.
const DefaultFailMessage = "Value is not what was expected"

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Options configure a Capability.
type Options struct {
	// Seed fixes the random source. Zero means a random seed.
	Seed [2]uint64
}

// Capability is the reporting surface of one run.
type Capability struct {
	vm  *goja.Runtime
	enc *protocol.Encoder
	rng *rand.Rand
}

// New returns a capability reporting to enc.
func New(vm *goja.Runtime, enc *protocol.Encoder, opts Options) *Capability {
	seed := opts.Seed
	if seed == [2]uint64{} {
		seed = [2]uint64{rand.Uint64(), rand.Uint64()}
	}
	return &Capability{
		vm:  vm,
		enc: enc,
		rng: rand.New(rand.NewPCG(seed[0], seed[1])),
	}
}

// Encoder returns the encoder every report goes to.
func (c *Capability) Encoder() *protocol.Encoder {
	return c.enc
}

// Pass reports a passed assertion.
func (c *Capability) Pass(msg string) {
	if msg == "" {
		msg = PassMessage
	}
	c.emit(protocol.Passed(msg))
}

// Fail reports a failed assertion.
func (c *Capability) Fail(msg string) {
	c.emit(protocol.Failed(msg))
}

// Error reports an errored case.
func (c *Capability) Error(msg string) {
	c.emit(protocol.Errored(msg, false))
}

func (c *Capability) emit(ev protocol.Event) {
	// Reports arriving after the run was finalized are dropped.
	_ = c.enc.Emit(ev)
}

// Expect passes when ok holds. On failure a string debug value replaces the
// default message and any other debug value is appended to it.
func (c *Capability) Expect(ok bool, debug goja.Value) bool {
	if ok {
		c.Pass(PassMessage)
		return true
	}
	msg := DefaultFailMessage
	switch {
	case debug == nil || goja.IsUndefined(debug):
	case isString(debug):
		msg = debug.String()
	default:
		msg += ": " + jsrt.Inspect(debug)
	}
	c.Fail(msg)
	return false
}

// AssertEquals compares with strict equality.
func (c *Capability) AssertEquals(actual, expected, msg goja.Value) bool {
	if jsrt.StrictEqual(actual, expected) {
		c.Pass(PassMessage + ": Value == " + jsrt.Inspect(expected))
		return true
	}
	c.Fail(prefixed(msg, "Expected: "+jsrt.Inspect(expected)+", instead got: "+jsrt.Inspect(actual)))
	return false
}

// AssertNotEquals is the negation of AssertEquals.
func (c *Capability) AssertNotEquals(actual, unexpected, msg goja.Value) bool {
	if !jsrt.StrictEqual(actual, unexpected) {
		c.Pass(PassMessage + ": Value != " + jsrt.Inspect(unexpected))
		return true
	}
	c.Fail(prefixed(msg, "Not expected: "+jsrt.Inspect(actual)))
	return false
}

// AssertDeepEquals compares structurally.
func (c *Capability) AssertDeepEquals(actual, expected, msg goja.Value) bool {
	if jsrt.DeepEqual(actual, expected, true) {
		c.Pass(PassMessage + ": Value deep equals " + jsrt.Inspect(expected))
		return true
	}
	c.Fail(prefixed(msg, "Expected: "+jsrt.Inspect(expected)+", instead got: "+jsrt.Inspect(actual)))
	return false
}

// AssertNotDeepEquals is the negation of AssertDeepEquals.
func (c *Capability) AssertNotDeepEquals(actual, unexpected, msg goja.Value) bool {
	if !jsrt.DeepEqual(actual, unexpected, true) {
		c.Pass(PassMessage + ": Value not deep equals " + jsrt.Inspect(unexpected))
		return true
	}
	c.Fail(prefixed(msg, "Value should not deep equal "+jsrt.Inspect(unexpected)))
	return false
}

// AssertApproxEquals passes when actual is within tolerance of expected.
func (c *Capability) AssertApproxEquals(actual, expected float64, msg goja.Value) bool {
	d := approx.Decide(actual, expected)
	if d.Pass {
		c.Pass(PassMessage)
		return true
	}
	c.Fail(prefixed(msg, "Expected actual value "+c.number(actual)+" to approximately equal expected value "+
		c.number(expected)+" ("+d.Describe("accepted")+")"))
	return false
}

// AssertNotApproxEquals passes exactly when AssertApproxEquals would fail.
func (c *Capability) AssertNotApproxEquals(actual, unexpected float64, msg goja.Value) bool {
	d := approx.Decide(actual, unexpected)
	if !d.Pass {
		c.Pass(PassMessage)
		return true
	}
	c.Fail(prefixed(msg, "Actual value "+c.number(actual)+" should not approximately equal unexpected value "+
		c.number(unexpected)+" ("+d.Describe("rejected")+")"))
	return false
}

// ExpectError passes when fn throws.
func (c *Capability) ExpectError(msg goja.Value, fn goja.Callable) bool {
	_, err := jsrt.Call(c.vm, fn, nil)
	if _, thrown := jsrt.ThrownValue(err); thrown {
		c.Pass(PassMessage)
		return true
	}
	c.Fail(prefixed(msg, "Expected an error to be thrown"))
	return false
}

// ExpectNoError passes when fn returns normally.
func (c *Capability) ExpectNoError(msg goja.Value, fn goja.Callable) bool {
	_, err := jsrt.Call(c.vm, fn, nil)
	v, thrown := jsrt.ThrownValue(err)
	if !thrown {
		c.Pass(PassMessage)
		return true
	}
	c.Fail(prefixed(msg, "Unexpected error thrown: "+jsrt.RenderThrown(v)))
	return false
}

// RandomNumber returns an integer drawn uniformly from [0, 100].
func (c *Capability) RandomNumber() int {
	return c.rng.IntN(101)
}

// RandomToken returns ten random lowercase alphanumerics.
func (c *Capability) RandomToken() string {
	var b strings.Builder
	for range 10 {
		b.WriteByte(tokenAlphabet[c.rng.IntN(len(tokenAlphabet))])
	}
	return b.String()
}

// Shuffle permutes n elements through swap.
func (c *Capability) Shuffle(n int, swap func(i, j int)) {
	c.rng.Shuffle(n, swap)
}

func (c *Capability) number(f float64) string {
	return c.vm.ToValue(f).String()
}

func prefixed(custom goja.Value, msg string) string {
	if custom == nil || goja.IsUndefined(custom) || goja.IsNull(custom) {
		return msg
	}
	if s := custom.String(); s != "" {
		return s + " - " + msg
	}
	return msg
}

func isString(v goja.Value) bool {
	_, ok := v.Export().(string)
	return ok
}
