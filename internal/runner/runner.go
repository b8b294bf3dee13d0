package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"

	"github.com/roach88/kata/internal/adapter"
	"github.com/roach88/kata/internal/assertlib"
	"github.com/roach88/kata/internal/capability"
	"github.com/roach88/kata/internal/jsrt"
	"github.com/roach88/kata/internal/metrics"
	"github.com/roach88/kata/internal/protocol"
	"github.com/roach88/kata/internal/suite"
)

// DefaultRunTimeout bounds runs whose request sets no limit.
const DefaultRunTimeout = 12 * time.Second

// IncompleteMessage is reported when a registered tree never finished.
const IncompleteMessage = "test suite did not complete"

// Options configure a Runner.
type Options struct {
	Registry *adapter.Registry
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	IDs      IDGenerator

	// Now is the clock used for durations and <COMPLETEDIN::>.
	Now func() time.Time

	// Workdir is the directory user scripts appear to live in.
	Workdir string

	// CaseTimeout and RunTimeout apply when a request leaves them unset.
	CaseTimeout time.Duration
	RunTimeout  time.Duration

	// Seed fixes Test.randomNumber and friends. Zero means random.
	Seed [2]uint64
}

// Runner executes requests. Runs share nothing but the adapter registry and
// metrics, so a Runner is safe for concurrent use.
type Runner struct {
	opts Options
}

// New returns a runner with defaults filled in.
func New(opts Options) *Runner {
	if opts.Registry == nil {
		opts.Registry = adapter.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.IDs == nil {
		opts.IDs = UUIDv7Generator{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Workdir == "" {
		opts.Workdir = jsrt.DefaultWorkdir
	}
	if opts.CaseTimeout <= 0 {
		opts.CaseTimeout = suite.DefaultTimeout
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = DefaultRunTimeout
	}
	return &Runner{opts: opts}
}

// Registry returns the adapters the runner resolves frameworks against.
func (r *Runner) Registry() *adapter.Registry {
	return r.opts.Registry
}

// run is the state of one execution.
type run struct {
	id      string
	req     Request
	adapter adapter.Adapter
	logger  *slog.Logger

	stdout *syncBuffer
	stderr *syncBuffer
	enc    *protocol.Encoder
	rt     *jsrt.Runtime

	builder *suite.Builder
	sched   *suite.Scheduler

	halted atomic.Bool
	// state moves once from stateRunning to stateReturned or stateExpired.
	state atomic.Int32
}

const (
	stateRunning int32 = iota
	stateReturned
	stateExpired
)

func (x *run) expired() bool {
	return x.state.Load() == stateExpired
}

// Run executes req and returns its captured output. The returned error is
// non-nil only when the request itself is unusable; faults in the submitted
// code are part of the Result.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Framework == "" {
		return nil, &RequestError{Code: ErrCodeInvalidRequest, Message: "framework is required"}
	}
	a, err := r.opts.Registry.Get(req.Framework)
	if err != nil {
		return nil, &RequestError{Code: ErrCodeUnknownFramework, Message: req.Framework, Err: err}
	}
	if req.CaseTimeout <= 0 {
		req.CaseTimeout = r.opts.CaseTimeout
	}
	if req.RunTimeout <= 0 {
		req.RunTimeout = r.opts.RunTimeout
	}

	digest, err := req.Digest()
	if err != nil {
		return nil, &RequestError{Code: ErrCodeInvalidRequest, Message: "digest request", Err: err}
	}

	scripts, files := plan(req, a.Bootstrap, r.opts.Workdir)
	if len(scripts) == 0 {
		return nil, &RequestError{Code: ErrCodeInvalidRequest, Message: "nothing to run: no code, fixture or project files"}
	}
	ws, err := jsrt.NewWorkspace(r.opts.Workdir, files)
	if err != nil {
		return nil, &RequestError{Code: ErrCodeStaging, Message: "stage files", Err: err}
	}

	id := r.opts.IDs.NewID()
	logger := r.opts.Logger.With("run_id", id, "framework", a.ID)
	x := &run{
		id:      id,
		req:     req,
		adapter: a,
		logger:  logger,
		stdout:  &syncBuffer{},
		stderr:  &syncBuffer{},
		builder: suite.NewBuilder(),
	}
	x.enc = protocol.NewEncoder(x.stdout)
	x.rt = jsrt.New(jsrt.Options{
		Stdout:    x.stdout,
		Stderr:    x.stderr,
		Workspace: ws,
		Workdir:   r.opts.Workdir,
		Strict:    req.Strict,
		Modules:   assertlib.Modules(),
		Logger:    logger,
	})

	logger.Debug("run started", "scripts", len(scripts), "files", len(files))
	start := r.opts.Now()

	ctx, cancel := context.WithTimeout(ctx, req.RunTimeout)
	defer cancel()
	finished := make(chan struct{})

	x.rt.Run(func(vm *goja.Runtime) {
		go x.watch(ctx, finished)
		x.execute(vm, scripts, r.opts)
	})
	x.state.CompareAndSwap(stateRunning, stateReturned)
	close(finished)

	x.finalize()

	res := &Result{
		RunID:     id,
		Digest:    digest,
		Framework: a.ID,
		Stdout:    x.stdout.String(),
		Stderr:    x.stderr.String(),
		Counts:    x.enc.Counts(),
		Events:    x.enc.Events(),
		Duration:  r.opts.Now().Sub(start),
		TimedOut:  x.expired(),
	}
	res.Verdict = protocol.Evaluate(res.Events)

	timeouts := 0
	if x.sched != nil {
		timeouts = x.sched.Timeouts()
	}
	r.opts.Metrics.ObserveRun(a.ID, res.Verdict, res.Counts, timeouts, res.Duration)
	logger.Info("run finished",
		"verdict", res.Verdict.String(),
		"passed", res.Counts.Passed,
		"failed", res.Counts.Failed,
		"errored", res.Counts.Errored,
		"timed_out", res.TimedOut,
		"duration_ms", res.Duration.Milliseconds())
	return res, nil
}

// watch enforces the run deadline from its own goroutine. A deadline that
// arrives after the stream was closed or the loop returned is ignored.
func (x *run) watch(ctx context.Context, finished <-chan struct{}) {
	select {
	case <-finished:
	case <-ctx.Done():
		if x.enc.Closed() || !x.state.CompareAndSwap(stateRunning, stateExpired) {
			return
		}
		x.halted.Store(true)
		x.rt.Interrupt(runTimeoutError{})
		x.rt.Stop()
	}
}

// execute runs on the loop goroutine: it installs the globals, evaluates
// the scripts and starts the scheduler.
func (x *run) execute(vm *goja.Runtime, scripts []script, opts Options) {
	c := capability.New(vm, x.enc, capability.Options{Seed: opts.Seed})
	binding := x.adapter.Bind(x.rt, vm, x.builder, c)

	if err := x.rt.Bind(vm, "global", vm.GlobalObject()); err != nil {
		x.fatal(err)
		return
	}
	if err := binding.Install(); err != nil {
		x.fatal(err)
		return
	}

	x.rt.OnUncaught(func(err error) {
		if x.halted.Load() {
			return
		}
		if x.sched != nil && x.sched.Raise(err) {
			return
		}
		x.fatal(err)
	})

	for _, s := range scripts {
		if _, err := x.rt.RunScript(vm, x.rt.ScriptName(s.file), s.src, jsrt.OriginUser); err != nil {
			if !x.halted.Load() {
				x.logger.Debug("top-level fault", "script", s.file, "error", err)
				x.fatal(err)
			}
			return
		}
	}

	x.sched = suite.NewScheduler(x.builder, suite.Options{
		Loop:           x.rt,
		Encoder:        x.enc,
		Classify:       binding.Classify,
		DefaultTimeout: x.req.CaseTimeout,
		ImplicitPass:   true,
		Watchdog:       x.rt.Watchdog,
		Halted:         x.halted.Load,
		OnComplete: func() {
			// Lingering user timers may still report when there is no tree.
			if !x.builder.Empty() {
				x.enc.Close()
				x.rt.Stop()
			}
		},
		Now: opts.Now,
	})
	x.sched.Start()
}

// fatal reports a fault outside any case and ends the run.
func (x *run) fatal(err error) {
	_ = x.enc.Emit(protocol.Errored(x.rt.Describe(err), true))
	x.enc.Close()
	x.halted.Store(true)
	x.rt.Stop()
}

// finalize runs after the loop has returned.
func (x *run) finalize() {
	switch {
	case x.expired():
		msg := fmt.Sprintf("Execution timed out after %dms", x.req.RunTimeout.Milliseconds())
		_ = x.enc.Emit(protocol.Errored(msg, true))
	case x.sched != nil && !x.builder.Empty() && !x.sched.Completed():
		if err := x.enc.Emit(protocol.Errored(IncompleteMessage, true)); err != nil && !errors.Is(err, protocol.ErrClosed) {
			x.logger.Error("report incomplete suite", "error", err)
		}
	}
	x.enc.Close()
}
