package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/kata/internal/runner"
)

// Epoch is the stopped clock scenarios run on.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Result is the outcome of one scenario.
type Result struct {
	Name   string         `json:"name"`
	Pass   bool           `json:"pass"`
	Errors []string       `json:"errors,omitempty"`
	Run    *runner.Result `json:"run,omitempty"`
}

// AddError records a failure.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// NewRunner returns a runner suited to scenarios: opts with a stopped
// clock and a fixed seed unless the caller set them.
func NewRunner(opts runner.Options) *runner.Runner {
	if opts.Now == nil {
		opts.Now = func() time.Time { return Epoch }
	}
	if opts.Seed == [2]uint64{} {
		opts.Seed = [2]uint64{1, 1}
	}
	return runner.New(opts)
}

// Run executes s and evaluates its assertions. The error is non-nil only
// when the request itself could not be run.
func Run(ctx context.Context, r *runner.Runner, s *Scenario) (*Result, error) {
	res, err := r.Run(ctx, s.Request.Runner())
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	out := &Result{Name: s.Name, Pass: true, Run: res}
	for _, a := range s.Assertions {
		if err := Check(a, res); err != nil {
			out.AddError(err.Error())
		}
	}
	return out, nil
}
