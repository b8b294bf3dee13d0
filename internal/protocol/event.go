package protocol

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind identifies an execution event.
type Kind int

const (
	KindGroupEntered Kind = iota + 1
	KindCaseEntered
	KindPassed
	KindFailed
	KindErrored
	KindCompletedIn

	// KindOutput is produced only by the decoder for lines that carry no
	// token (console output of the code under test).
	KindOutput
)

// Wire tokens.
const (
	TokenDescribe    = "<DESCRIBE::>"
	TokenIt          = "<IT::>"
	TokenPassed      = "<PASSED::>"
	TokenFailed      = "<FAILED::>"
	TokenError       = "<ERROR::>"
	TokenCompletedIn = "<COMPLETEDIN::>"

	// LineFeed replaces embedded newlines inside payloads.
	LineFeed = "<:LF:>"
)

var kindNames = map[Kind]string{
	KindGroupEntered: "group_entered",
	KindCaseEntered:  "case_entered",
	KindPassed:       "passed",
	KindFailed:       "failed",
	KindErrored:      "errored",
	KindCompletedIn:  "completed_in",
	KindOutput:       "output",
}

var kindTokens = map[Kind]string{
	KindGroupEntered: TokenDescribe,
	KindCaseEntered:  TokenIt,
	KindPassed:       TokenPassed,
	KindFailed:       TokenFailed,
	KindErrored:      TokenError,
	KindCompletedIn:  TokenCompletedIn,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Token returns the wire prefix for k, or "" for KindOutput.
func (k Kind) Token() string {
	return kindTokens[k]
}

// ParseKind is the inverse of Kind.String.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, ok := ParseKind(string(b))
	if !ok {
		return fmt.Errorf("unknown event kind %q", b)
	}
	*k = parsed
	return nil
}

// Event is one entry of the reporting stream.
//
// Text holds the title for entered events, the message for outcome events,
// and the raw line for output events. Fatal marks an error raised outside
// any case; it is bookkeeping only and not visible on the wire.
type Event struct {
	Kind   Kind   `json:"kind"`
	Text   string `json:"text,omitempty"`
	Millis int64  `json:"millis,omitempty"`
	Fatal  bool   `json:"fatal,omitempty"`
}

func GroupEntered(title string) Event { return Event{Kind: KindGroupEntered, Text: title} }

func CaseEntered(title string) Event { return Event{Kind: KindCaseEntered, Text: title} }

func Passed(message string) Event { return Event{Kind: KindPassed, Text: message} }

func Failed(message string) Event { return Event{Kind: KindFailed, Text: message} }

// Errored builds an error event. Fatal errors are the single top-level
// fault of a run and carry no suite or case attribution.
func Errored(message string, fatal bool) Event {
	return Event{Kind: KindErrored, Text: message, Fatal: fatal}
}

// CompletedIn reports the wall-clock duration of the executing phase.
func CompletedIn(d time.Duration) Event {
	return Event{Kind: KindCompletedIn, Millis: d.Milliseconds()}
}

// IsOutcome reports whether the event settles a case.
func (e Event) IsOutcome() bool {
	return e.Kind == KindPassed || e.Kind == KindFailed || e.Kind == KindErrored
}

// Escape encodes embedded line breaks as LineFeed.
func Escape(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\n", LineFeed)
}

// Unescape reverses Escape.
func Unescape(s string) string {
	return strings.ReplaceAll(s, LineFeed, "\n")
}

// Format renders e as a single token line including the trailing newline.
// Output events render as their raw text.
func Format(e Event) string {
	var b strings.Builder
	switch e.Kind {
	case KindOutput:
		b.WriteString(e.Text)
	case KindCompletedIn:
		b.WriteString(TokenCompletedIn)
		b.WriteString(strconv.FormatInt(e.Millis, 10))
	default:
		b.WriteString(e.Kind.Token())
		b.WriteString(Escape(e.Text))
	}
	b.WriteByte('\n')
	return b.String()
}
