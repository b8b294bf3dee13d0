package protocol

import "fmt"

// Verdict is the caller-facing interpretation of a stream.
type Verdict int

const (
	// VerdictNoTests means the stream holds no outcome at all.
	VerdictNoTests Verdict = iota
	VerdictPassed
	VerdictFailed
)

func (v Verdict) String() string {
	switch v {
	case VerdictPassed:
		return "passed"
	case VerdictFailed:
		return "failed"
	default:
		return "no_tests"
	}
}

// ParseVerdict is the inverse of Verdict.String.
func ParseVerdict(s string) (Verdict, error) {
	switch s {
	case "passed":
		return VerdictPassed, nil
	case "failed":
		return VerdictFailed, nil
	case "no_tests":
		return VerdictNoTests, nil
	}
	return VerdictNoTests, fmt.Errorf("unknown verdict %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Verdict) UnmarshalText(b []byte) error {
	parsed, err := ParseVerdict(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Evaluate applies the stream rule: any failure or error fails the run,
// otherwise at least one pass is required.
func Evaluate(events []Event) Verdict {
	passed := false
	for _, ev := range events {
		switch ev.Kind {
		case KindFailed, KindErrored:
			return VerdictFailed
		case KindPassed:
			passed = true
		}
	}
	if passed {
		return VerdictPassed
	}
	return VerdictNoTests
}

// FromCounts applies the same rule as Evaluate to encoder tallies.
func FromCounts(c Counts) Verdict {
	switch {
	case c.Failed > 0 || c.Errored > 0:
		return VerdictFailed
	case c.Passed > 0:
		return VerdictPassed
	default:
		return VerdictNoTests
	}
}
