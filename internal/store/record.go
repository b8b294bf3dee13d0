package store

import (
	"fmt"
	"time"

	"github.com/roach88/kata/internal/protocol"
)

// Record is one ledger entry.
type Record struct {
	ID        string           `json:"id"`
	Seq       int64            `json:"seq"`
	Digest    string           `json:"digest"`
	Framework string           `json:"framework"`
	Verdict   protocol.Verdict `json:"verdict"`
	Counts    protocol.Counts  `json:"counts"`
	TimedOut  bool             `json:"timed_out"`
	Duration  time.Duration    `json:"duration_ns"`
	Stdout    string           `json:"stdout"`
	Stderr    string           `json:"stderr"`
	// Request is the canonical JSON of the request.
	Request   string           `json:"request"`
	CreatedAt time.Time        `json:"created_at"`
	Events    []protocol.Event `json:"events,omitempty"`
}

// Summary is a Record without streams.
type Summary struct {
	ID        string           `json:"id"`
	Seq       int64            `json:"seq"`
	Digest    string           `json:"digest"`
	Framework string           `json:"framework"`
	Verdict   protocol.Verdict `json:"verdict"`
	Counts    protocol.Counts  `json:"counts"`
	TimedOut  bool             `json:"timed_out"`
	Duration  time.Duration    `json:"duration_ns"`
	CreatedAt time.Time        `json:"created_at"`
}

// timeLayout keeps created_at sortable as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", s, err)
	}
	return t, nil
}

func parseKind(name string) (protocol.Kind, error) {
	k, ok := protocol.ParseKind(name)
	if !ok {
		return 0, fmt.Errorf("unknown event kind %q", name)
	}
	return k, nil
}
