package suite

import (
	"errors"
	"time"

	"github.com/roach88/kata/internal/protocol"
)

// Loop delivers deferred callbacks on the goroutine that drives the run.
type Loop interface {
	// AfterFunc schedules fn after d and returns a function that cancels it.
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

// Watchdog arms a limit for a body running synchronously. Stop is called as
// soon as the body returns.
type Watchdog func(limit time.Duration) (stop func())

// Outcome is the tagged result a classifier assigns to a fault.
type Outcome int

const (
	OutcomeErrored Outcome = iota
	OutcomeFailed
	OutcomePassed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFailed:
		return "failed"
	case OutcomePassed:
		return "passed"
	default:
		return "errored"
	}
}

// Classifier converts a fault raised by a body into an outcome and the
// message to report.
type Classifier func(err error) (Outcome, string)

// DefaultTimeout applies to asynchronous bodies with no explicit limit.
const DefaultTimeout = 2000 * time.Millisecond

// Options configure a Scheduler.
type Options struct {
	Loop     Loop
	Encoder  *protocol.Encoder
	Classify Classifier

	// DefaultTimeout limits asynchronous bodies when no group sets one.
	DefaultTimeout time.Duration

	// ImplicitPass reports "Test Passed" for a case that neither reported
	// nor raised anything.
	ImplicitPass bool

	// Watchdog, when set, interrupts synchronous bodies that exceed an
	// explicit limit.
	Watchdog Watchdog

	// Halted is polled between steps; once it returns true the scheduler
	// stops without reporting anything further.
	Halted func() bool

	// OnComplete runs after the completion event has been written.
	OnComplete func()

	Now func() time.Time
}

type stepKind int

const (
	stepGroup stepKind = iota
	stepHook
	stepCase
)

type step struct {
	kind stepKind
	node *Node
	hook HookKind
	body Body
}

// attempt is the write-once result slot of one body invocation.
type attempt struct {
	step    step
	before  int
	settled bool
	waiting bool
	cancel  func()
}

// Scheduler executes a sealed tree.
type Scheduler struct {
	builder *Builder
	opts    Options

	root     *Node
	steps    []step
	next     int
	started  time.Time
	finished bool
	done     bool
	timeouts int

	pending *attempt
}

// NewScheduler returns a scheduler for the tree held by b.
func NewScheduler(b *Builder, opts Options) *Scheduler {
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Classify == nil {
		opts.Classify = func(err error) (Outcome, string) { return OutcomeErrored, err.Error() }
	}
	return &Scheduler{builder: b, opts: opts}
}

// Start seals the builder and begins executing. It returns when the walk
// either finishes or suspends on an asynchronous body; the loop resumes it.
func (s *Scheduler) Start() {
	s.root = s.builder.Seal()
	s.steps = plan(s.root)
	s.started = s.opts.Now()
	s.advance()
}

// Completed reports whether the whole tree was traversed.
func (s *Scheduler) Completed() bool {
	return s.done
}

// Raise settles the body awaiting completion with err, as if it had thrown.
// It reports whether such a body existed.
func (s *Scheduler) Raise(err error) bool {
	a := s.pending
	if a == nil || a.settled {
		return false
	}
	s.settle(a, err)
	return true
}

// Timeouts returns how many bodies were settled by their timeout.
func (s *Scheduler) Timeouts() int {
	return s.timeouts
}

func (s *Scheduler) halted() bool {
	return s.opts.Halted != nil && s.opts.Halted()
}

func (s *Scheduler) advance() {
	for !s.finished {
		if s.halted() {
			s.finished = true
			return
		}
		if s.next >= len(s.steps) {
			s.complete()
			return
		}

		st := s.steps[s.next]
		s.next++

		switch st.kind {
		case stepGroup:
			s.emit(protocol.GroupEntered(st.node.Title))
		case stepCase:
			s.emit(protocol.CaseEntered(st.node.Title))
			if s.invoke(st) {
				return
			}
		case stepHook:
			if s.invoke(st) {
				return
			}
		}
	}
}

// invoke runs one body and reports whether the walk must wait for it.
func (s *Scheduler) invoke(st step) bool {
	limit, explicit := st.node.EffectiveTimeout()
	if !explicit {
		limit = s.opts.DefaultTimeout
	}

	a := &attempt{step: st, before: s.opts.Encoder.Counts().Outcomes()}
	done := func(err error) { s.settle(a, err) }

	var stop func()
	if s.opts.Watchdog != nil && (explicit || st.body.Async) {
		stop = s.opts.Watchdog(limit)
	}
	err := st.body.Fn(done)
	if stop != nil {
		stop()
	}

	if errors.Is(err, ErrPending) {
		if a.settled {
			return false
		}
		a.waiting = true
		s.pending = a
		a.cancel = s.opts.Loop.AfterFunc(limit, func() {
			s.settle(a, &TimeoutError{Limit: limit})
		})
		return true
	}

	s.settle(a, err)
	return false
}

// settle finalizes an attempt. Only the first call has any effect.
func (s *Scheduler) settle(a *attempt, err error) {
	if a.settled || s.finished {
		return
	}
	a.settled = true
	if s.pending == a {
		s.pending = nil
	}
	if a.cancel != nil {
		a.cancel()
	}
	if s.halted() {
		s.finished = true
		return
	}

	s.report(a, err)

	if a.waiting {
		s.opts.Loop.AfterFunc(0, s.advance)
	}
}

func (s *Scheduler) report(a *attempt, err error) {
	prefix := ""
	if a.step.kind == stepHook {
		prefix = "\"" + a.step.hook.String() + "\" hook: "
	}

	var te *TimeoutError
	switch {
	case err == nil:
		if a.step.kind == stepCase && s.opts.ImplicitPass && s.opts.Encoder.Counts().Outcomes() == a.before {
			s.emit(protocol.Passed("Test Passed"))
		}
	case errors.As(err, &te):
		s.timeouts++
		s.emit(protocol.Errored(prefix+te.Error(), false))
	default:
		outcome, msg := s.opts.Classify(err)
		switch outcome {
		case OutcomeFailed:
			s.emit(protocol.Failed(prefix + msg))
		case OutcomePassed:
			s.emit(protocol.Passed(prefix + msg))
		default:
			s.emit(protocol.Errored(prefix+msg, false))
		}
	}
}

func (s *Scheduler) complete() {
	s.finished = true
	s.done = true
	s.builder.complete()
	if len(s.root.Children) > 0 {
		s.emit(protocol.CompletedIn(s.opts.Now().Sub(s.started)))
	}
	if s.opts.OnComplete != nil {
		s.opts.OnComplete()
	}
}

func (s *Scheduler) emit(ev protocol.Event) {
	// A closed encoder means the run was finalized elsewhere.
	_ = s.opts.Encoder.Emit(ev)
}

// plan flattens the tree into the order bodies execute in.
func plan(root *Node) []step {
	var steps []step

	var visit func(g *Node)
	visit = func(g *Node) {
		if g != root {
			steps = append(steps, step{kind: stepGroup, node: g})
		}
		for _, h := range g.Hooks.BeforeAll {
			steps = append(steps, step{kind: stepHook, node: g, hook: HookBeforeAll, body: h})
		}
		for _, c := range g.Children {
			if c.Kind == KindGroup {
				visit(c)
				continue
			}
			chain := c.ancestors()
			for _, anc := range chain {
				for _, h := range anc.Hooks.BeforeEach {
					steps = append(steps, step{kind: stepHook, node: c, hook: HookBeforeEach, body: h})
				}
			}
			steps = append(steps, step{kind: stepCase, node: c, body: c.Body})
			for i := len(chain) - 1; i >= 0; i-- {
				for _, h := range chain[i].Hooks.AfterEach {
					steps = append(steps, step{kind: stepHook, node: c, hook: HookAfterEach, body: h})
				}
			}
		}
		for _, h := range g.Hooks.AfterAll {
			steps = append(steps, step{kind: stepHook, node: g, hook: HookAfterAll, body: h})
		}
	}
	visit(root)
	return steps
}
