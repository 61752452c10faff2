package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/prism/internal/compiler"
	"github.com/roach88/prism/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled declaration set.
type CompilationResult struct {
	Types    []ir.TypeSpec           `json:"types"`
	DeclHash string                  `json:"decl_hash"`
	Warnings []compiler.CycleWarning `json:"warnings,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <decls-path>",
		Short: "Compile CUE declarations to flattened type specs",
		Long: `Compile CUE property declarations to flattened type specs.

Parses the declarations, validates them, resolves inheritance, and
outputs JSON type specs stamped with the declaration-set hash. The
engine registers these specs directly.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write compiled specs to file instead of stdout")

	return cmd
}

func runCompile(opts *CompileOptions, declsPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	loadResult, err := LoadDecls(declsPath)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, declsPath)

	specs, err := compiler.Compile(loadResult.CUEValue)
	if err != nil {
		// Validation failures exit 1; anything else is a command error.
		var verrs compiler.ValidationErrors
		if errors.As(err, &verrs) {
			return outputValidationErrors(formatter, verrs, nil)
		}
		_ = formatter.Error(ErrCodeBuildFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "compilation failed", err)
	}

	declHash, err := ir.DeclSetHash(specs)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to hash declaration set", err)
	}

	result := CompilationResult{
		Types:    specs,
		DeclHash: declHash,
		Warnings: compiler.AnalyzeCycles(specs),
	}

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode specs", err)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, append(payload, '\n'), 0o644); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write output file", err)
		}
		formatter.VerboseLog("Wrote %d type spec(s) to %s", len(specs), opts.Output)
		if opts.Format != "json" {
			fmt.Fprintf(formatter.Writer, "✓ Compiled %d type(s) → %s\n", len(specs), opts.Output)
		}
		return nil
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, string(payload))
	return nil
}
