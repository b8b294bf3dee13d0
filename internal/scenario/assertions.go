package scenario

import (
	"fmt"
	"strings"

	"github.com/roach88/kata/internal/protocol"
	"github.com/roach88/kata/internal/runner"
)

// AssertionError is returned when an assertion fails. It carries the
// stream so the failure can be read in context.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Stdout   string
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.Stdout != "" {
		fmt.Fprintf(&buf, "\nStdout:\n")
		for _, line := range strings.Split(strings.TrimSuffix(e.Stdout, "\n"), "\n") {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}
	return buf.String()
}

// Check evaluates a against res.
func Check(a Assertion, res *runner.Result) error {
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Stdout: res.Stdout}
	}

	switch a.Type {
	case AssertStdoutEquals:
		if res.Stdout != a.Value {
			return fail(fmt.Sprintf("stdout %q", a.Value), fmt.Sprintf("%q", res.Stdout))
		}
	case AssertStderrEquals:
		if res.Stderr != a.Value {
			return fail(fmt.Sprintf("stderr %q", a.Value), fmt.Sprintf("%q", res.Stderr))
		}
	case AssertStdoutContains:
		if !strings.Contains(res.Stdout, a.Value) {
			return fail(fmt.Sprintf("stdout containing %q", a.Value), "not found")
		}
	case AssertStdoutExcludes:
		if strings.Contains(res.Stdout, a.Value) {
			return fail(fmt.Sprintf("stdout without %q", a.Value), "present")
		}
	case AssertStderrContains:
		if !strings.Contains(res.Stderr, a.Value) {
			return fail(fmt.Sprintf("stderr containing %q", a.Value), fmt.Sprintf("%q", res.Stderr))
		}
	case AssertVerdict:
		if res.Verdict.String() != a.Value {
			return fail("verdict "+a.Value, "verdict "+res.Verdict.String())
		}
	case AssertTokenCount:
		kind, _ := protocol.ParseKind(a.Token)
		n := 0
		for _, ev := range protocol.DecodeString(res.Stdout) {
			if ev.Kind == kind {
				n++
			}
		}
		if n != a.Count {
			return fail(fmt.Sprintf("%d %s tokens", a.Count, a.Token), fmt.Sprintf("%d", n))
		}
	case AssertTokenOrder:
		return checkOrder(a, res, fail)
	case AssertTimedOut:
		if fmt.Sprint(res.TimedOut) != a.Value {
			return fail("timed_out "+a.Value, fmt.Sprintf("timed_out %t", res.TimedOut))
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// checkOrder verifies a.Lines occur as whole stdout lines in order.
// Intervening lines are allowed.
func checkOrder(a Assertion, res *runner.Result, fail func(string, string) error) error {
	lines := strings.Split(res.Stdout, "\n")
	pos := 0
	for _, want := range a.Lines {
		found := false
		for pos < len(lines) {
			pos++
			if lines[pos-1] == want {
				found = true
				break
			}
		}
		if !found {
			return fail(fmt.Sprintf("lines in order: %q", a.Lines), fmt.Sprintf("%q missing or out of order", want))
		}
	}
	return nil
}
