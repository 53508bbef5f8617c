package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Ruben-VandeVelde/aesop/internal/ir"
	"github.com/Ruben-VandeVelde/aesop/internal/rules"
	"github.com/Ruben-VandeVelde/aesop/internal/ruleset"
	"github.com/Ruben-VandeVelde/aesop/internal/search"
	"github.com/Ruben-VandeVelde/aesop/internal/store"
)

// RunIDGenerator mints identifiers for recorded runs.
// Production uses UUIDs; tests substitute a deterministic source.
type RunIDGenerator interface {
	NewRunID() string
}

// uuidGenerator is the production run-ID source. Version 7 IDs sort by
// creation time, matching the store's newest-first listing.
type uuidGenerator struct{}

func (uuidGenerator) NewRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// ProveOptions holds flags for the prove command.
type ProveOptions struct {
	*RootOptions
	RulesetPath string
	OptionsPath string
	Database    string

	// RunIDs allows overriding the run-ID generator (for testing).
	// If nil, defaults to random UUIDs.
	RunIDs RunIDGenerator

	// Now allows overriding the time source (for testing).
	// If nil, defaults to time.Now.
	Now func() time.Time
}

// ProveResult is the success payload of the prove command.
type ProveResult struct {
	Goal        string       `json:"goal"`
	Proved      bool         `json:"proved"`
	Certificate string       `json:"certificate"`
	Stats       search.Stats `json:"stats"`
	RunID       string       `json:"run_id,omitempty"`
}

// NewProveCommand creates the prove command.
func NewProveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "prove <sequent>",
		Short: "Search for a proof of a sequent",
		Long: `Search for a proof of a sequent and print its certificate.

The sequent is written as hypotheses, "|-", and a target:

  aesop prove "p, q |- p & q"
  aesop prove "|- a -> a" --format json
  aesop prove "p(c) |- exists x . p(x)" --db ./runs.db
  aesop prove "|- a | b" --ruleset ./custom.cue --options ./limits.yaml

With --db the full search trace and the certificate are recorded in a
SQLite database; inspect them afterwards with "aesop trace".`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProve(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RulesetPath, "ruleset", "", "path to a CUE rule set (default: built-in rules)")
	cmd.Flags().StringVar(&opts.OptionsPath, "options", "", "path to a YAML search options file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for trace recording")

	return cmd
}

func runProve(opts *ProveOptions, sequentSrc string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))

	seq, err := ir.ParseSequent(sequentSrc)
	if err != nil {
		_ = formatter.Error("syntax", err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid sequent", err)
	}

	library, err := loadLibrary(opts.RulesetPath)
	if err != nil {
		_ = formatter.Error("ruleset", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load rule set", err)
	}

	searchOpts := search.DefaultOptions()
	if opts.OptionsPath != "" {
		searchOpts, err = LoadOptionsFile(opts.OptionsPath)
		if err != nil {
			_ = formatter.Error("options", err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to load options", err)
		}
	}
	if opts.Verbose {
		searchOpts.Tracer = search.SlogTracer{Logger: logger}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Optional trace recording
	var (
		st    *store.Store
		rec   *store.Recorder
		runID string
	)
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			_ = formatter.Error("database", err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		idGen := opts.RunIDs
		if idGen == nil {
			idGen = uuidGenerator{}
		}
		runID = idGen.NewRunID()
		if err := st.BeginRun(ctx, runID, seq, now()); err != nil {
			_ = formatter.Error("database", err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to begin run", err)
		}

		rec = store.NewRecorder(ctx, st, runID)
		if searchOpts.Tracer != nil {
			searchOpts.Tracer = search.MultiTracer{searchOpts.Tracer, rec}
		} else {
			searchOpts.Tracer = rec
		}
	}

	res, searchErr := search.Search(ctx, rules.NewRuleSet(library), searchOpts, rules.Goal{Seq: seq})

	if st != nil {
		if err := recordOutcome(ctx, st, runID, seq, res, searchErr, now()); err != nil {
			logger.Error("failed to record run outcome", "error", err)
		}
		if err := rec.Err(); err != nil {
			logger.Error("failed to record trace events", "error", err)
		}
	}

	if searchErr != nil {
		return outputProveFailure(formatter, searchErr)
	}

	proof, ok := res.Cert.(rules.Proof)
	if !ok {
		return WrapExitError(ExitFailure, "unexpected certificate type", nil)
	}

	result := ProveResult{
		Goal:        seq.String(),
		Proved:      true,
		Certificate: rules.RenderCert(proof.Cert),
		Stats:       res.Stats,
		RunID:       runID,
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ proved: %s\n", result.Goal)
	fmt.Fprintf(formatter.Writer, "  certificate: %s\n", result.Certificate)
	fmt.Fprintf(formatter.Writer, "  goals=%d rule_applications=%d iterations=%d\n",
		result.Stats.Goals, result.Stats.RuleApplications, result.Stats.Iterations)
	return nil
}

// loadLibrary returns the rule library for a prove invocation: the bundled
// default rules, or a compiled CUE rule set when --ruleset is given.
func loadLibrary(path string) (*rules.Library, error) {
	if path == "" {
		return rules.Default(), nil
	}
	set, err := ruleset.CompileFile(path)
	if err != nil {
		return nil, err
	}
	return set.Library()
}

// recordOutcome writes a run's terminal status to the store.
func recordOutcome(ctx context.Context, st *store.Store, runID string, goal ir.Sequent, res *search.Result, searchErr error, finished time.Time) error {
	switch {
	case searchErr == nil:
		if proof, ok := res.Cert.(rules.Proof); ok {
			if err := st.WriteCertificate(ctx, runID, goal, proof.Cert); err != nil {
				return err
			}
		}
		return st.FinishRun(ctx, runID, store.StatusProved, "", res.Stats, finished)
	case search.IsUnprovableError(searchErr):
		return st.FinishRun(ctx, runID, store.StatusUnprovable, "", search.Stats{}, finished)
	default:
		return st.FinishRun(ctx, runID, store.StatusError, searchErr.Error(), search.Stats{}, finished)
	}
}

func outputProveFailure(f *OutputFormatter, err error) error {
	code := "internal"
	switch {
	case search.IsUnprovableError(err):
		code = "unprovable"
	case search.IsLimitError(err):
		code = "limit"
	}
	_ = f.Error(code, err.Error(), nil)
	return WrapExitError(ExitFailure, code, err)
}

