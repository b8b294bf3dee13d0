// Package metrics records run and case counters for Prometheus.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/kata/internal/protocol"
)

// Metrics holds the collectors of one registry.
type Metrics struct {
	RunsTotal    *prometheus.CounterVec
	CasesTotal   *prometheus.CounterVec
	CaseTimeouts *prometheus.CounterVec
	RunDuration  *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kata_runs_total",
				Help: "Total number of runs by verdict",
			},
			[]string{"framework", "verdict"},
		),
		CasesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kata_cases_total",
				Help: "Total number of reported outcomes",
			},
			[]string{"framework", "outcome"}, // outcome: "passed", "failed", "errored"
		),
		CaseTimeouts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kata_case_timeouts_total",
				Help: "Total number of bodies that exceeded their time limit",
			},
			[]string{"framework"},
		),
		RunDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kata_run_duration_seconds",
				Help:    "Wall time of a run",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"framework"},
		),
	}
}

// ObserveRun records one finished run.
func (m *Metrics) ObserveRun(framework string, verdict protocol.Verdict, counts protocol.Counts, timeouts int, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(framework, verdict.String()).Inc()
	m.CasesTotal.WithLabelValues(framework, "passed").Add(float64(counts.Passed))
	m.CasesTotal.WithLabelValues(framework, "failed").Add(float64(counts.Failed))
	m.CasesTotal.WithLabelValues(framework, "errored").Add(float64(counts.Errored))
	m.CaseTimeouts.WithLabelValues(framework).Add(float64(timeouts))
	m.RunDuration.WithLabelValues(framework).Observe(d.Seconds())
}

// WriteFile exports everything gathered by g in the text exposition format,
// for node_exporter's textfile collector.
func WriteFile(g prometheus.Gatherer, path string) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
