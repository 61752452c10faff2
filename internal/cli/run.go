package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/prism/internal/harness"
	"github.com/roach88/prism/internal/ir"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// RunReport is the JSON payload for a single scenario run.
type RunReport struct {
	Name      string              `json:"name"`
	Pass      bool                `json:"pass"`
	Mutations []ir.Mutation       `json:"mutations"`
	Reads     []harness.ReadEvent `json:"reads"`
	Errors    []string            `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a single scenario and print its mutation trace",
		Long: `Run one scenario file against a fresh evaluator.

Executes every step, prints the resulting mutation log and read results,
and evaluates the scenario's assertions. With --db, mutations are
recorded to a durable journal for later trace and replay inspection;
without it, the journal stays in memory.

Exit codes:
  0 - Scenario passed
  1 - Step expectations or assertions failed
  2 - Command error (file not found, unparseable scenario or decls)

Examples:
  prism run ./scenarios/audio-channel-cap.yaml
  prism run ./scenarios/audio-channel-cap.yaml --db ./prism.db
  prism run ./scenarios/audio-channel-cap.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record mutations to this SQLite journal (default: in-memory)")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	// Engine logs stay quiet unless asked for.
	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	journalPath := ":memory:"
	if opts.Database != "" {
		journalPath = opts.Database
	}

	result, err := harness.RunWithJournal(scenario, journalPath)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "scenario execution failed", err)
	}

	report := RunReport{
		Name:      scenario.Name,
		Pass:      result.Pass,
		Mutations: result.Mutations,
		Reads:     result.Reads,
		Errors:    result.Errors,
	}

	if opts.Format == "json" {
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		outputRunText(formatter, report)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

// outputRunText prints a human-readable scenario report.
func outputRunText(formatter *OutputFormatter, report RunReport) {
	w := formatter.Writer

	fmt.Fprintf(w, "Scenario: %s\n", report.Name)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Mutations ===")
	if len(report.Mutations) == 0 {
		fmt.Fprintln(w, "  (none)")
	} else {
		for _, m := range report.Mutations {
			fmt.Fprintf(w, "  [%d] %s.%s %v → %v (%s, depth %d)\n",
				m.Seq, m.Target, m.Property, ir.ToGo(m.Old), ir.ToGo(m.New), m.Origin, m.Depth)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Reads ===")
	if len(report.Reads) == 0 {
		fmt.Fprintln(w, "  (none)")
	} else {
		for _, r := range report.Reads {
			fmt.Fprintf(w, "  %s.%s = %v\n", r.Target, r.Property, ir.ToGo(r.Value))
		}
	}
	fmt.Fprintln(w)

	if report.Pass {
		fmt.Fprintln(w, "✓ Scenario passed")
		return
	}

	fmt.Fprintln(w, "✗ Scenario failed")
	for _, msg := range report.Errors {
		fmt.Fprintf(w, "  %s\n", msg)
	}
}
