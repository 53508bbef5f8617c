package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ruben-VandeVelde/aesop/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Kind     string // optional - filter to a specific event kind
	Limit    int
}

// RunSummary is one run in the trace listing.
type RunSummary struct {
	ID         string `json:"id"`
	Goal       string `json:"goal"`
	Status     string `json:"status"`
	Goals      int64  `json:"goals"`
	Iterations int64  `json:"iterations"`
	StartedAt  string `json:"started_at"`
}

// RunDetail is the full trace of a single run.
type RunDetail struct {
	RunSummary
	Error            string            `json:"error,omitempty"`
	RuleApplications int64             `json:"rule_applications"`
	FinishedAt       string            `json:"finished_at,omitempty"`
	Events           []store.TraceEvent `json:"events"`
	Certificate      string            `json:"certificate,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded proof searches",
		Long: `Inspect proof searches recorded with "prove --db".

Without --run, lists recent runs. With --run, prints the run's full event
trace in logical order, plus its certificate when the run proved its goal.

Examples:
  aesop trace --db ./runs.db
  aesop trace --db ./runs.db --run 0193b5a2-...
  aesop trace --db ./runs.db --run 0193b5a2-... --kind rule_tried
  aesop trace --db ./runs.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to inspect")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter events to one kind")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		return listRuns(ctx, st, opts, formatter)
	}
	return showRun(ctx, st, opts, formatter)
}

func listRuns(ctx context.Context, st *store.Store, opts *TraceOptions, formatter *OutputFormatter) error {
	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	summaries := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, summarize(run))
	}

	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(formatter.Writer, "no recorded runs")
		return nil
	}

	w := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTATUS\tGOALS\tITERATIONS\tGOAL")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", s.ID, s.Status, s.Goals, s.Iterations, s.Goal)
	}
	return w.Flush()
}

func showRun(ctx context.Context, st *store.Store, opts *TraceOptions, formatter *OutputFormatter) error {
	run, err := st.GetRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrNotFound) {
		_ = formatter.Error("not_found", err.Error(), nil)
		return WrapExitError(ExitCommandError, "run not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	events, err := st.Events(ctx, opts.RunID, opts.Kind)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	detail := RunDetail{
		RunSummary:       summarize(run),
		Error:            run.Error,
		RuleApplications: run.RuleApplications,
		Events:           events,
	}
	if !run.FinishedAt.IsZero() {
		detail.FinishedAt = run.FinishedAt.UTC().Format(time.RFC3339Nano)
	}
	if run.Status == store.StatusProved {
		cert, err := st.Certificate(ctx, opts.RunID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return WrapExitError(ExitCommandError, "failed to read certificate", err)
		}
		detail.Certificate = cert
	}

	if formatter.Format == "json" {
		return formatter.Success(detail)
	}

	fmt.Fprintf(formatter.Writer, "run %s: %s\n", detail.ID, detail.Status)
	fmt.Fprintf(formatter.Writer, "goal: %s\n", detail.Goal)
	if detail.Error != "" {
		fmt.Fprintf(formatter.Writer, "error: %s\n", detail.Error)
	}
	fmt.Fprintf(formatter.Writer, "goals=%d rule_applications=%d iterations=%d\n\n",
		detail.Goals, detail.RuleApplications, detail.Iterations)

	w := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tITER\tKIND\tGOAL\tRAPP\tRULE\tOUTCOME\tDETAIL")
	for _, e := range detail.Events {
		fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%d\t%s\t%s\t%s\n",
			e.Seq, e.Iteration, e.Kind, e.GoalID, e.RappID, e.Rule, e.Outcome, e.Detail)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if detail.Certificate != "" {
		fmt.Fprintf(formatter.Writer, "\ncertificate: %s\n", detail.Certificate)
	}
	return nil
}

func summarize(run store.Run) RunSummary {
	return RunSummary{
		ID:         run.ID,
		Goal:       run.Goal,
		Status:     run.Status,
		Goals:      run.Goals,
		Iterations: run.Iterations,
		StartedAt:  run.StartedAt.UTC().Format(time.RFC3339Nano),
	}
}
