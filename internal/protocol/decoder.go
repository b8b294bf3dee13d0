package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const maxLine = 4 << 20

// Parse decodes one line (without its trailing newline).
func Parse(line string) Event {
	switch {
	case strings.HasPrefix(line, TokenDescribe):
		return GroupEntered(Unescape(line[len(TokenDescribe):]))
	case strings.HasPrefix(line, TokenIt):
		return CaseEntered(Unescape(line[len(TokenIt):]))
	case strings.HasPrefix(line, TokenPassed):
		return Passed(Unescape(line[len(TokenPassed):]))
	case strings.HasPrefix(line, TokenFailed):
		return Failed(Unescape(line[len(TokenFailed):]))
	case strings.HasPrefix(line, TokenError):
		return Errored(Unescape(line[len(TokenError):]), false)
	case strings.HasPrefix(line, TokenCompletedIn):
		ms, err := strconv.ParseInt(strings.TrimSpace(line[len(TokenCompletedIn):]), 10, 64)
		if err != nil {
			return Event{Kind: KindOutput, Text: line}
		}
		return Event{Kind: KindCompletedIn, Millis: ms}
	default:
		return Event{Kind: KindOutput, Text: line}
	}
}

// Decode reads a captured stream and returns its events in order.
func Decode(r io.Reader) ([]Event, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	events := []Event{}
	for sc.Scan() {
		events = append(events, Parse(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return events, fmt.Errorf("protocol: decode: %w", err)
	}
	return events, nil
}

// DecodeString is Decode over an in-memory stream.
func DecodeString(s string) []Event {
	events, _ := Decode(strings.NewReader(s))
	return events
}
