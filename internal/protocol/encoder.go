package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrClosed is returned by Emit once the encoder has been closed.
var ErrClosed = errors.New("protocol: encoder closed")

// Counts tallies the events an encoder has written.
type Counts struct {
	Groups  int `json:"groups"`
	Cases   int `json:"cases"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
}

// Outcomes is the number of case-settling events written so far.
func (c Counts) Outcomes() int {
	return c.Passed + c.Failed + c.Errored
}

// Encoder writes events to an output stream.
//
// All methods are safe for concurrent use. After Close every Emit is a no-op
// returning ErrClosed, which is how stray callbacks of an abandoned case are
// kept out of a finalized stream.
type Encoder struct {
	mu        sync.Mutex
	w         io.Writer
	closed    bool
	completed bool
	counts    Counts
	events    []Event
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Emit writes a single event.
func (e *Encoder) Emit(ev Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if ev.Kind == KindCompletedIn {
		if e.completed {
			return fmt.Errorf("protocol: duplicate %s", TokenCompletedIn)
		}
		e.completed = true
	}

	if _, err := io.WriteString(e.w, Format(ev)); err != nil {
		return fmt.Errorf("protocol: write %s: %w", ev.Kind, err)
	}

	switch ev.Kind {
	case KindGroupEntered:
		e.counts.Groups++
	case KindCaseEntered:
		e.counts.Cases++
	case KindPassed:
		e.counts.Passed++
	case KindFailed:
		e.counts.Failed++
	case KindErrored:
		e.counts.Errored++
	}
	e.events = append(e.events, ev)
	return nil
}

// Close finalizes the stream.
func (e *Encoder) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
}

// Closed reports whether Close has been called.
func (e *Encoder) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Completed reports whether the completion event has been written.
func (e *Encoder) Completed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completed
}

// Counts returns a snapshot of the tallies.
func (e *Encoder) Counts() Counts {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counts
}

// Events returns a copy of every event written, in order.
func (e *Encoder) Events() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Event, len(e.events))
	copy(out, e.events)
	return out
}
