package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/kata/internal/runner"
	"github.com/roach88/kata/internal/scenario"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update      bool   // regenerate golden files
	Filter      string // scenario filter (glob pattern)
	Database    string
	MetricsFile string
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name    string   `json:"name"`
	File    string   `json:"file"`
	Pass    bool     `json:"pass"`
	RunID   string   `json:"run_id,omitempty"`
	Verdict string   `json:"verdict,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run kata scenarios",
		Long: `Run every scenario file (*.yaml, *.yml) below a directory.

Each scenario's request is executed on a stopped clock and its assertions
are checked against the token stream. Scenarios marked golden: true are
also compared with golden/<file>.golden next to the scenario file.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  kata test ./scenarios
  kata test ./scenarios --filter "mocha-*"
  kata test ./scenarios --update
  kata test ./scenarios --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record scenario runs in this SQLite ledger")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("scenarios directory not found: %s", scenariosDir), nil)
	}

	files, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to find scenarios", err)
	}

	if len(files) == 0 {
		if f.JSON() {
			return outputTestJSON(f, TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	db := firstNonEmpty(opts.Database, opts.Config.Database)
	metricsFile := firstNonEmpty(opts.MetricsFile, opts.Config.MetricsFile)
	sess, err := opts.openSession(db, metricsFile)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to open run ledger", err)
	}
	defer func() {
		if err := sess.close(metricsFile); err != nil {
			opts.Logger.Error("close session", "error", err)
		}
	}()

	ro := opts.RunnerOptions
	ro.Metrics = sess.metrics
	ro.Logger = opts.Logger
	if ro.Workdir == "" {
		ro.Workdir = opts.Config.Workdir
	}
	if ro.CaseTimeout == 0 {
		ro.CaseTimeout = opts.Config.CaseTimeout()
	}
	if ro.RunTimeout == 0 {
		ro.RunTimeout = opts.Config.RunTimeout()
	}
	r := scenario.NewRunner(ro)

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		sr := runScenario(cmd, opts, sess, r, file)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if f.JSON() {
		return outputTestJSON(f, result)
	}
	return outputTestText(f, result)
}

// findScenarioFiles finds all YAML scenario files in a directory, skipping
// golden/ directories.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// runScenario executes a single scenario file and returns its result.
func runScenario(cmd *cobra.Command, opts *TestOptions, sess *session, r *runner.Runner, file string) ScenarioResult {
	f := opts.formatter(cmd)
	w := cmd.OutOrStdout()
	out := ScenarioResult{Name: filepath.Base(file), File: file}

	report := func(status string, lines ...string) {
		if f.JSON() {
			return
		}
		fmt.Fprintf(w, "%s %s\n", status, out.Name)
		for _, l := range lines {
			fmt.Fprintf(w, "  %s\n", l)
		}
	}
	fail := func(msg string) ScenarioResult {
		out.Pass = false
		out.Errors = append(out.Errors, msg)
		report("✗", out.Errors...)
		return out
	}

	s, err := scenario.Load(file)
	if err != nil {
		return fail(fmt.Sprintf("failed to load scenario: %v", err))
	}
	out.Name = s.Name

	res, err := scenario.Run(commandContext(cmd), r, s)
	if err != nil {
		return fail(fmt.Sprintf("execution failed: %v", err))
	}
	out.RunID = res.Run.RunID
	out.Verdict = res.Run.Verdict.String()

	if err := sess.record(commandContext(cmd), s.Request.Runner(), res.Run); err != nil {
		opts.Logger.Error("record scenario run", "scenario", s.Name, "error", err)
	}

	if s.Golden {
		if opts.Update {
			if err := scenario.UpdateGolden(file, res.Run); err != nil {
				return fail(fmt.Sprintf("failed to update golden file: %v", err))
			}
		} else {
			match, err := scenario.CompareGolden(file, res.Run)
			switch {
			case errors.Is(err, os.ErrNotExist):
				return fail("golden file missing (run with --update to create it)")
			case err != nil:
				return fail(fmt.Sprintf("golden comparison failed: %v", err))
			case !match:
				res.AddError("stdout does not match golden file (run with --update to regenerate)")
			}
		}
	}

	if !res.Pass {
		out.Errors = res.Errors
		out.Pass = false
		report("✗", out.Errors...)
		return out
	}

	out.Pass = true
	if s.Golden && opts.Update {
		report("✓", "(golden updated)")
	} else {
		report("✓")
	}
	return out
}

func outputTestJSON(f *OutputFormatter, result TestResult) error {
	resp := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}
	if err := f.Encode(resp); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

func outputTestText(f *OutputFormatter, result TestResult) error {
	w := f.Writer

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
