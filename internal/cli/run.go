package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/roach88/kata/internal/jsrt"
	"github.com/roach88/kata/internal/protocol"
	"github.com/roach88/kata/internal/runner"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	Framework   string
	CodeFile    string
	FixtureFile string
	SetupFile   string
	FilesDir    string
	CaseTimeout int // ms
	RunTimeout  int // ms
	Strict      bool
	Database    string
	MetricsFile string
}

// RunOutput is the json payload of kata run.
type RunOutput struct {
	RunID      string          `json:"run_id"`
	Digest     string          `json:"digest"`
	Framework  string          `json:"framework"`
	Verdict    string          `json:"verdict"`
	Counts     protocol.Counts `json:"counts"`
	TimedOut   bool            `json:"timed_out"`
	DurationMS int64           `json:"duration_ms"`
	Stdout     string          `json:"stdout"`
	Stderr     string          `json:"stderr"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a solution against a fixture",
		Long: `Run submitted code against a test fixture with the chosen framework.

In text format the captured stdout and stderr streams are printed verbatim
to stdout and stderr. Pass "-" to --code to read the solution from stdin.

With --files and no --code/--fixture, the directory is run in project mode:
spec.js or test.js is the fixture, main.js or solution.js the solution.

Exit codes:
  0 - Run passed, or contained no tests
  1 - Run failed (a FAILED or ERROR token was reported)
  2 - Command error (unreadable files, unknown framework, etc.)

Examples:
  kata run --framework cw-2 --code solution.js --fixture fixture.js
  kata run --framework mocha_bdd --files ./project
  kata run --code - --fixture fixture.js --format json < solution.js`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Framework, "framework", "", "framework id (default from config, cw-2)")
	cmd.Flags().StringVar(&opts.CodeFile, "code", "", "solution file, or - for stdin")
	cmd.Flags().StringVar(&opts.FixtureFile, "fixture", "", "fixture file")
	cmd.Flags().StringVar(&opts.SetupFile, "setup", "", "setup file (karma frameworks)")
	cmd.Flags().StringVar(&opts.FilesDir, "files", "", "directory of supporting files staged at the workdir")
	cmd.Flags().IntVar(&opts.CaseTimeout, "case-timeout", 0, "async case timeout in ms")
	cmd.Flags().IntVar(&opts.RunTimeout, "run-timeout", 0, "whole-run timeout in ms")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "compile user code in strict mode")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite ledger")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file")

	return cmd
}

func runRun(opts *RunOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	cfg := opts.Config

	req, err := opts.request(cmd.InOrStdin())
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, "failed to read sources", err)
	}

	db := firstNonEmpty(opts.Database, cfg.Database)
	metricsFile := firstNonEmpty(opts.MetricsFile, cfg.MetricsFile)
	sess, err := opts.openSession(db, metricsFile)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to open run ledger", err)
	}
	defer func() {
		if err := sess.close(metricsFile); err != nil {
			opts.Logger.Error("close session", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := opts.newRunner(sess.metrics).Run(ctx, req)
	if err != nil {
		return requestFailure(f, err)
	}

	if err := sess.record(ctx, req, res); err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to record run", err)
	}

	if f.JSON() {
		resp := CLIResponse{Status: "ok", Data: runOutput(res), RunID: res.RunID}
		if res.Verdict == protocol.VerdictFailed {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeRunFailed, Message: failureSummary(res)}
		}
		if err := f.Encode(resp); err != nil {
			return err
		}
	} else {
		io.WriteString(cmd.OutOrStdout(), res.Stdout)
		io.WriteString(cmd.ErrOrStderr(), res.Stderr)
	}

	if res.Verdict == protocol.VerdictFailed {
		return NewExitError(ExitFailure, failureSummary(res))
	}
	return nil
}

// request assembles the runner request from flags and config.
func (o *RunOptions) request(stdin io.Reader) (runner.Request, error) {
	cfg := o.Config
	req := runner.Request{
		Framework:   firstNonEmpty(o.Framework, cfg.Framework),
		CaseTimeout: time.Duration(o.CaseTimeout) * time.Millisecond,
		RunTimeout:  time.Duration(o.RunTimeout) * time.Millisecond,
		Strict:      o.Strict || cfg.Strict,
	}

	var err error
	if req.Code, err = readSource(o.CodeFile, stdin); err != nil {
		return req, err
	}
	if req.Fixture, err = readSource(o.FixtureFile, nil); err != nil {
		return req, err
	}
	if req.Setup, err = readSource(o.SetupFile, nil); err != nil {
		return req, err
	}
	if o.FilesDir != "" {
		info, err := os.Stat(o.FilesDir)
		if err != nil {
			return req, err
		}
		if !info.IsDir() {
			return req, fmt.Errorf("--files %s: not a directory", o.FilesDir)
		}
		req.Files, err = jsrt.ReadTree(osfs.New(o.FilesDir), ".", ".git", "node_modules")
		if err != nil {
			return req, err
		}
	}
	return req, nil
}

// readSource reads path; "-" reads stdin when allowed; "" is no source.
func readSource(path string, stdin io.Reader) (string, error) {
	switch {
	case path == "":
		return "", nil
	case path == "-" && stdin != nil:
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// requestFailure maps a runner request error onto an exit code.
func requestFailure(f *OutputFormatter, err error) error {
	var reqErr *runner.RequestError
	if !errors.As(err, &reqErr) {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "run failed", err)
	}
	code := ErrCodeInvalidRequest
	switch reqErr.Code {
	case runner.ErrCodeUnknownFramework:
		code = ErrCodeUnknownFramework
	case runner.ErrCodeStaging:
		code = ErrCodeStaging
	}
	_ = f.Error(code, reqErr.Error(), map[string]string{"request_error": string(reqErr.Code)})
	exitErr := WrapExitError(ExitCommandError, "invalid request", err)
	exitErr.Reported = true
	return exitErr
}

func runOutput(res *runner.Result) RunOutput {
	return RunOutput{
		RunID:      res.RunID,
		Digest:     res.Digest,
		Framework:  res.Framework,
		Verdict:    res.Verdict.String(),
		Counts:     res.Counts,
		TimedOut:   res.TimedOut,
		DurationMS: res.Duration.Milliseconds(),
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
	}
}

func failureSummary(res *runner.Result) string {
	if res.TimedOut {
		return "run timed out"
	}
	return fmt.Sprintf("run failed: %d passed, %d failed, %d errored", res.Counts.Passed, res.Counts.Failed, res.Counts.Errored)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// commandContext returns the command's context, or Background when run
// outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
