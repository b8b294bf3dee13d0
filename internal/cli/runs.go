package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/kata/internal/protocol"
	"github.com/roach88/kata/internal/store"
)

// RunsOptions holds flags shared by the runs subcommands.
type RunsOptions struct {
	*RootOptions
	Database string

	// list
	Framework string
	Verdict   string
	Digest    string
	Limit     int

	// show
	Events bool
}

// NewRunsCommand creates the runs command group.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the run ledger",
		Long: `Inspect runs recorded with --db.

Examples:
  kata runs list --db runs.db --verdict failed
  kata runs show --db runs.db <run-id>`,
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the SQLite run ledger (default from config)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs in the order they were written",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsList(opts, cmd)
		},
	}
	list.Flags().StringVar(&opts.Framework, "framework", "", "only runs of this framework")
	list.Flags().StringVar(&opts.Verdict, "verdict", "", "only runs with this verdict (passed|failed|no_tests)")
	list.Flags().StringVar(&opts.Digest, "digest", "", "only runs of this request digest")
	list.Flags().IntVar(&opts.Limit, "limit", 0, "show only the most recent N runs")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsShow(opts, args[0], cmd)
		},
	}
	show.Flags().BoolVar(&opts.Events, "events", false, "list decoded events instead of the raw stream")

	cmd.AddCommand(list, show)
	return cmd
}

func (o *RunsOptions) open(f *OutputFormatter) (*store.Store, error) {
	db := firstNonEmpty(o.Database, o.Config.Database)
	if db == "" {
		return nil, f.Fail(ExitCommandError, ErrCodeStore, "no run ledger: pass --db or set db in config", nil)
	}
	st, err := store.Open(db)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeStore, "failed to open run ledger", err)
	}
	return st, nil
}

func runRunsList(opts *RunsOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	if opts.Verdict != "" {
		if _, err := protocol.ParseVerdict(opts.Verdict); err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, "invalid --verdict", err)
		}
	}

	st, err := opts.open(f)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(commandContext(cmd), store.ListOptions{
		Framework: opts.Framework,
		Verdict:   opts.Verdict,
		Digest:    opts.Digest,
		Limit:     opts.Limit,
	})
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to list runs", err)
	}

	if f.JSON() {
		return f.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(f.Writer, "No runs recorded.")
		return nil
	}
	writeRunTable(f.Writer, runs)
	return nil
}

func writeRunTable(w io.Writer, runs []store.Summary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tRUN ID\tFRAMEWORK\tVERDICT\tPASSED\tFAILED\tERRORED\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%dms\n",
			r.Seq, r.ID, r.Framework, r.Verdict, r.Counts.Passed, r.Counts.Failed, r.Counts.Errored, r.Duration.Milliseconds())
	}
	tw.Flush()
}

func runRunsShow(opts *RunsOptions, id string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	st, err := opts.open(f)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.ReadRun(commandContext(cmd), id)
	if errors.Is(err, store.ErrNotFound) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run %s not found", id), nil)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
	}

	if f.JSON() {
		if !opts.Events {
			rec.Events = nil
		}
		return f.Success(rec)
	}

	w := f.Writer
	fmt.Fprintf(w, "Run:       %s (seq %d)\n", rec.ID, rec.Seq)
	fmt.Fprintf(w, "Framework: %s\n", rec.Framework)
	fmt.Fprintf(w, "Verdict:   %s\n", rec.Verdict)
	fmt.Fprintf(w, "Counts:    %d passed, %d failed, %d errored\n", rec.Counts.Passed, rec.Counts.Failed, rec.Counts.Errored)
	fmt.Fprintf(w, "Digest:    %s\n", rec.Digest)
	fmt.Fprintf(w, "Recorded:  %s\n", rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	if rec.TimedOut {
		fmt.Fprintln(w, "Timed out: yes")
	}
	fmt.Fprintln(w)

	if opts.Events {
		for i, ev := range rec.Events {
			fmt.Fprintf(w, "[%d] %s %s\n", i+1, ev.Kind, eventDetail(ev))
		}
		return nil
	}
	fmt.Fprint(w, rec.Stdout)
	if rec.Stderr != "" {
		fmt.Fprintln(w, "--- stderr ---")
		fmt.Fprint(w, rec.Stderr)
	}
	return nil
}

func eventDetail(ev protocol.Event) string {
	if ev.Kind == protocol.KindCompletedIn {
		return fmt.Sprintf("%dms", ev.Millis)
	}
	return fmt.Sprintf("%q", ev.Text)
}
