package adapter

import (
	"github.com/roach88/kata/internal/assertlib"
	"github.com/roach88/kata/internal/jsrt"
	"github.com/roach88/kata/internal/suite"
)

// Classify maps a fault raised by a body onto an outcome. Assertion
// failures are FAILED with their message; other faults are ERROR with the
// rendered value and user stack frames, or FAILED under FailOnError.
func (b *Binding) Classify(err error) (suite.Outcome, string) {
	if v, ok := jsrt.ThrownValue(err); ok && assertlib.IsAssertionError(v) {
		return suite.OutcomeFailed, assertlib.Message(v)
	}
	msg := b.rt.Describe(err)
	if b.adapter.FailOnError {
		return suite.OutcomeFailed, msg
	}
	return suite.OutcomeErrored, msg
}
