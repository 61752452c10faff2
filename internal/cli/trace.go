package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/prism/internal/ir"
	"github.com/roach88/prism/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Target   string // optional - filter to one instance or type
	Property string // optional - filter to one property (requires target)
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Target    string        `json:"target,omitempty"`
	Targets   []string      `json:"targets,omitempty"`
	Mutations []ir.Mutation `json:"mutations"`
	Stats     TraceStats    `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalMutations int   `json:"total_mutations"`
	External       int   `json:"external"`
	Observer       int   `json:"observer"`
	MaxDepth       int   `json:"max_depth"`
	LastSeq        int64 `json:"last_seq"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect a mutation journal",
		Long: `Read the mutation journal and print the write timeline.

Shows every committed stored write in seq order: the target instance or
type table, old and new values, and whether the write came from outside
or from an observer (with its re-entry depth).

Examples:
  prism trace --db ./prism.db
  prism trace --db ./prism.db --target ch-2
  prism trace --db ./prism.db --target AudioChannel --property maxInputLevel
  prism trace --db ./prism.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Target, "target", "", "filter to one instance ID or type name")
	cmd.Flags().StringVar(&opts.Property, "property", "", "filter to one property (requires --target)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	if opts.Property != "" && opts.Target == "" {
		return NewExitError(ExitCommandError, "--property requires --target")
	}

	ctx := context.Background()

	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	var mutations []ir.Mutation
	switch {
	case opts.Target != "" && opts.Property != "":
		mutations, err = j.ReadProperty(ctx, opts.Target, opts.Property)
	case opts.Target != "":
		mutations, err = j.ReadTarget(ctx, opts.Target)
	default:
		mutations, err = j.ReadAll(ctx)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	targets, err := j.ListTargets(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list targets", err)
	}

	result := TraceResult{
		Target:    opts.Target,
		Targets:   targets,
		Mutations: mutations,
		Stats:     buildTraceStats(mutations),
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

// buildTraceStats summarizes a mutation list.
func buildTraceStats(mutations []ir.Mutation) TraceStats {
	stats := TraceStats{TotalMutations: len(mutations)}
	for _, m := range mutations {
		if m.Origin == ir.OriginObserver {
			stats.Observer++
		} else {
			stats.External++
		}
		if m.Depth > stats.MaxDepth {
			stats.MaxDepth = m.Depth
		}
		if m.Seq > stats.LastSeq {
			stats.LastSeq = m.Seq
		}
	}
	return stats
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if result.Target != "" {
		fmt.Fprintf(w, "Trace for target: %s\n", result.Target)
	} else {
		fmt.Fprintf(w, "Trace for %d target(s)\n", len(result.Targets))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Mutations) == 0 {
		fmt.Fprintln(w, "  (no mutations)")
	} else {
		for _, m := range result.Mutations {
			origin := "EXT"
			if m.Origin == ir.OriginObserver {
				origin = fmt.Sprintf("OBS/%d", m.Depth)
			}
			fmt.Fprintf(w, "  [%d] %s %s.%s %v → %v\n",
				m.Seq, origin, m.Target, m.Property, ir.ToGo(m.Old), ir.ToGo(m.New))
			if verbose {
				fmt.Fprintf(w, "       ID: %s\n", truncateID(m.ID))
			}
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Mutations: %d\n", result.Stats.TotalMutations)
	fmt.Fprintf(w, "  External:        %d\n", result.Stats.External)
	fmt.Fprintf(w, "  Observer:        %d\n", result.Stats.Observer)
	fmt.Fprintf(w, "  Max Depth:       %d\n", result.Stats.MaxDepth)
	fmt.Fprintf(w, "  Last Seq:        %d\n", result.Stats.LastSeq)

	return nil
}

// truncateID truncates a long content-addressed ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
