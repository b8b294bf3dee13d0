// Package approx implements the tolerance policy used by approximate
// equality assertions.
//
// The margin is 1e-9 scaled by max(1, |expected|): an absolute margin for
// expected values within [-1, 1] and a relative one beyond.
package approx

import (
	"fmt"
	"math"
)

// Margin is the base tolerance.
const Margin = 1e-9

// Decision is the outcome of one comparison.
type Decision struct {
	Pass     bool
	Diff     float64 // |actual - expected|
	Allowed  float64 // largest Diff that passes
	Relative bool    // the margin scaled with |expected|
}

// Decide compares actual against expected.
func Decide(actual, expected float64) Decision {
	scale := math.Max(1, math.Abs(expected))
	d := Decision{
		Diff:     math.Abs(actual - expected),
		Allowed:  Margin * scale,
		Relative: math.Abs(expected) > 1,
	}
	switch {
	case math.IsNaN(actual) || math.IsNaN(expected):
		d.Pass = false
	case actual == expected:
		d.Pass = true
	case math.IsInf(actual, 0) || math.IsInf(expected, 0):
		d.Pass = false
	default:
		d.Pass = d.Diff <= d.Allowed
	}
	return d
}

// Equal reports whether actual is within tolerance of expected.
func Equal(actual, expected float64) bool {
	return Decide(actual, expected).Pass
}

// ErrorKind names the margin for diagnostics: "relative error" or
// "absolute error".
func (d Decision) ErrorKind() string {
	if d.Relative {
		return "relative error"
	}
	return "absolute error"
}

// Describe renders the margin, e.g. "accepted relative error: 1e-9".
func (d Decision) Describe(verb string) string {
	return fmt.Sprintf("%s %s: %g", verb, d.ErrorKind(), Margin)
}
