package jsrt

import (
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/dop251/goja"
)

// Boundary records which script names hold user-visible code.
//
// Every script the harness compiles is given a source name. Names marked
// here (submitted solution, fixture, setup, workspace modules) keep their
// stack frames in reported errors; frames from any other script, and frames
// of native functions, are removed.
type Boundary struct {
	mu   sync.RWMutex
	user map[string]bool
}

// NewBoundary returns an empty boundary.
func NewBoundary() *Boundary {
	return &Boundary{user: map[string]bool{}}
}

// Mark records name as user code.
func (b *Boundary) Mark(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.user[name] = true
}

// IsUser reports whether frames from name are kept.
func (b *Boundary) IsUser(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.user[name]
}

// position matches "file:line:col" with goja's optional "(pc)" suffix.
var position = regexp.MustCompile(`^(.*):(\d+):(\d+)(?:\(\d+\))?$`)

// Frames filters a goja stack dump down to user frames, rendered node-style
// as "    at fn (file:line:col)".
func (b *Boundary) Frames(dump string) []string {
	var kept []string
	for _, line := range strings.Split(dump, "\n") {
		if !strings.HasPrefix(line, "\tat ") {
			continue
		}
		frame := strings.TrimPrefix(line, "\tat ")

		fn, loc := "", frame
		if i := strings.LastIndex(frame, " ("); i >= 0 && strings.HasSuffix(frame, ")") {
			fn, loc = frame[:i], frame[i+2:len(frame)-1]
		}

		m := position.FindStringSubmatch(loc)
		if m == nil || !b.IsUser(m[1]) {
			continue
		}
		where := m[1] + ":" + m[2] + ":" + m[3]
		if fn != "" {
			kept = append(kept, "    at "+fn+" ("+where+")")
		} else {
			kept = append(kept, "    at "+where)
		}
	}
	return kept
}

// Describe renders err for reporting: the thrown value followed by the user
// frames of its stack. Only Error objects carry a stack; other thrown values
// render alone.
func (b *Boundary) Describe(err error) string {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		text := RenderThrown(exc.Value())
		if !isError(exc.Value()) {
			return text
		}
		if frames := b.Frames(exc.String()); len(frames) > 0 {
			text += "\n" + strings.Join(frames, "\n")
		}
		return text
	}
	var th *Thrown
	if errors.As(err, &th) {
		return RenderThrown(th.Value)
	}
	return Translate(err).Error()
}

func isError(v goja.Value) bool {
	obj, ok := v.(*goja.Object)
	return ok && obj.ClassName() == "Error"
}

// RenderThrown renders a thrown value: Error objects by their string form,
// strings verbatim, anything else through Inspect.
func RenderThrown(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if isError(v) {
		return v.String()
	}
	if _, ok := v.(*goja.Object); ok {
		return Inspect(v)
	}
	if s, ok := v.Export().(string); ok {
		return s
	}
	return Inspect(v)
}
