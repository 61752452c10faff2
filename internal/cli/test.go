package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/prism/internal/harness"
)

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run a directory of conformance scenarios",
		Long: `Run every scenario file (*.yaml, *.yml) in a directory.

Each scenario runs in isolation against a fresh evaluator and in-memory
journal. Step expectations and assertions are evaluated per scenario;
the command reports an aggregate summary.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  prism test ./scenarios
  prism test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runTest(opts *RootOptions, dir string, cmd *cobra.Command) error {
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

	suite, err := harness.RunDir(dir)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to run scenarios", err)
	}

	if opts.Format == "json" {
		if err := formatter.Success(suite); err != nil {
			return err
		}
	} else {
		outputSuiteText(formatter, suite)
	}

	if suite.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario(s) failed", suite.Failed, suite.TotalScenarios))
	}
	return nil
}

// outputSuiteText prints a human-readable suite summary.
func outputSuiteText(formatter *OutputFormatter, suite *harness.SuiteResult) {
	w := formatter.Writer

	for _, failure := range suite.Failures {
		fmt.Fprintf(w, "✗ %s (%s)\n", failure.ScenarioName, failure.ScenarioPath)
		fmt.Fprintf(w, "    %s\n", failure.Error)
	}
	if len(suite.Failures) > 0 {
		fmt.Fprintln(w)
	}

	if suite.Failed == 0 {
		fmt.Fprintf(w, "✓ %d scenario(s) passed\n", suite.Passed)
		return
	}
	fmt.Fprintf(w, "%d passed, %d failed (of %d)\n", suite.Passed, suite.Failed, suite.TotalScenarios)
}
