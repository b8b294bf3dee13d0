package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/kata/internal/metrics"
	"github.com/roach88/kata/internal/runner"
	"github.com/roach88/kata/internal/store"
)

// session holds the optional sinks a command writes runs to.
type session struct {
	opts     *RootOptions
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	ledger   *store.Store
	now      func() time.Time
}

// openSession opens the ledger at db and registers metrics when
// metricsFile is set. Empty paths disable the sink.
func (o *RootOptions) openSession(db, metricsFile string) (*session, error) {
	s := &session{opts: o, now: time.Now}
	if o.RunnerOptions.Now != nil {
		s.now = o.RunnerOptions.Now
	}
	if metricsFile != "" {
		s.registry = prometheus.NewRegistry()
		s.metrics = metrics.New(s.registry)
	}
	if db != "" {
		st, err := store.Open(db)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open run ledger", err)
		}
		s.ledger = st
		o.Logger.Debug("ledger open", "path", db)
	}
	return s, nil
}

// record appends res to the ledger, if one is open.
func (s *session) record(ctx context.Context, req runner.Request, res *runner.Result) error {
	if s.ledger == nil {
		return nil
	}
	canonical, err := req.Canonical()
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	seq, err := s.ledger.WriteRun(ctx, store.Record{
		ID:        res.RunID,
		Digest:    res.Digest,
		Framework: res.Framework,
		Verdict:   res.Verdict,
		Counts:    res.Counts,
		TimedOut:  res.TimedOut,
		Duration:  res.Duration,
		Stdout:    res.Stdout,
		Stderr:    res.Stderr,
		Request:   string(canonical),
		CreatedAt: s.now(),
		Events:    res.Events,
	})
	if err != nil {
		return err
	}
	s.opts.Logger.Debug("run recorded", "run_id", res.RunID, "seq", seq)
	return nil
}

// close flushes metrics and closes the ledger.
func (s *session) close(metricsFile string) error {
	var firstErr error
	if s.registry != nil {
		if err := metrics.WriteFile(s.registry, metricsFile); err != nil {
			firstErr = fmt.Errorf("write metrics: %w", err)
		}
	}
	if s.ledger != nil {
		if err := s.ledger.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close ledger: %w", err)
		}
	}
	return firstErr
}
