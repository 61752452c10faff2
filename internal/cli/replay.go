package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/prism/internal/ir"
	"github.com/roach88/prism/internal/journal"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Verify   bool
}

// ReplayTargetState holds the rebuilt values for one target.
type ReplayTargetState struct {
	Target     string         `json:"target"`
	Properties map[string]any `json:"properties"`
}

// ReplayReport holds the overall replay result.
type ReplayReport struct {
	Applied  int                 `json:"applied"`
	LastSeq  int64               `json:"last_seq"`
	Targets  []ReplayTargetState `json:"targets"`
	Verified bool                `json:"verified"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild final state from the mutation journal",
		Long: `Replay the mutation journal and report the rebuilt final state.

Applies every mutation in seq order, checking that each record's old
value matches the replayed state (a coherence guarantee: the journal
really is a linear history). With --verify, also recomputes every
record's content-addressed ID and compares it against the stored one.

Exit codes:
  0 - Replay succeeded (and verification passed, if requested)
  1 - Old-value mismatch or content verification failure
  2 - Command error (database not found, etc.)

Examples:
  prism replay --db ./prism.db
  prism replay --db ./prism.db --verify
  prism replay --db ./prism.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "recompute and check content-addressed mutation IDs")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	state, err := j.Replay(ctx)
	if err != nil {
		// A mismatch between a record's old value and the replayed
		// state means the log is not a linear history.
		fmt.Fprintf(cmd.OutOrStdout(), "✗ Replay failed: %v\n", err)
		return WrapExitError(ExitFailure, "replay detected an incoherent journal", err)
	}

	verified := false
	if opts.Verify {
		if err := j.Verify(ctx); err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "✗ Verification failed: %v\n", err)
			return WrapExitError(ExitFailure, "content verification failed", err)
		}
		verified = true
	}

	report := buildReplayReport(state, verified)

	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: report}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(response)
	}

	return outputReplayText(cmd, report)
}

// buildReplayReport flattens replay state into a deterministic report.
func buildReplayReport(state *journal.ReplayState, verified bool) ReplayReport {
	report := ReplayReport{
		Applied:  state.Applied,
		LastSeq:  state.LastSeq,
		Verified: verified,
		Targets:  []ReplayTargetState{},
	}

	targets := make([]string, 0, len(state.Values))
	for target := range state.Values {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	for _, target := range targets {
		props := make(map[string]any, len(state.Values[target]))
		for name, v := range state.Values[target] {
			props[name] = ir.ToGo(v)
		}
		report.Targets = append(report.Targets, ReplayTargetState{
			Target:     target,
			Properties: props,
		})
	}

	return report
}

// outputReplayText outputs the replay report as text.
func outputReplayText(cmd *cobra.Command, report ReplayReport) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replayed %d mutation(s), last seq %d\n", report.Applied, report.LastSeq)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Final State ===")
	if len(report.Targets) == 0 {
		fmt.Fprintln(w, "  (empty journal)")
	}
	for _, target := range report.Targets {
		fmt.Fprintf(w, "  %s\n", target.Target)

		names := make([]string, 0, len(target.Properties))
		for name := range target.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "    %s = %v\n", name, target.Properties[name])
		}
	}
	fmt.Fprintln(w)

	if report.Verified {
		fmt.Fprintln(w, "✓ Content verification passed")
	} else {
		fmt.Fprintln(w, "✓ Replay coherent (run with --verify to check content hashes)")
	}

	return nil
}
