package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/prism/internal/compiler"
	"github.com/roach88/prism/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Types    []string                   `json:"types,omitempty"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <decls-path>",
		Short: "Validate property declarations",
		Long: `Validate CUE property declarations without emitting compiled output.

Runs schema validation (kinds, scopes, accessor rules, observer clauses,
inheritance) and static observer-cycle analysis. Cycles are reported as
warnings: the engine's observer depth bound turns a divergent cycle into
a deterministic runtime failure, so a cycle may be intentional.

Exit codes:
  0 - Declarations valid (warnings allowed)
  1 - Validation errors found
  2 - Command error (path not found, unparseable CUE)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, declsPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	loadResult, err := LoadDecls(declsPath)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, declsPath)

	specs, err := compiler.CompileDecls(loadResult.CUEValue)
	if err != nil {
		// Parse-level failures carry position info; surface them as one
		// validation error rather than aborting the command.
		var compileErr *compiler.CompileError
		if errors.As(err, &compileErr) {
			return outputValidationErrors(formatter, []compiler.ValidationError{{
				Field:   compileErr.Field,
				Message: compileErr.Message,
				Code:    ErrCodeBuildFailed,
			}}, nil)
		}
		return outputLoadError(formatter, &LoadError{Code: ErrCodeBuildFailed, Message: err.Error()})
	}

	for _, spec := range specs {
		formatter.VerboseLog("Validating type: %s", spec.Name)
	}

	validationErrors := compiler.ValidateSet(specs)

	// Cycle analysis needs flattened inheritance; skip it when the set
	// is invalid (ResolveExtends assumes a validated set).
	var warnings []compiler.CycleWarning
	if len(validationErrors) == 0 {
		resolved, err := compiler.ResolveExtends(specs)
		if err != nil {
			return outputLoadError(formatter, &LoadError{Code: ErrCodeBuildFailed, Message: err.Error()})
		}
		warnings = compiler.AnalyzeCycles(resolved)
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors, warnings)
	}

	return outputValidateSuccess(formatter, specs, warnings)
}

// outputLoadError reports a command-level failure (exit code 2).
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", loadErr.Code, loadErr.Message))
	}
	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, "failed to load declarations", err)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, specs []ir.TypeSpec, warnings []compiler.CycleWarning) error {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{
			Valid:    true,
			Types:    names,
			Warnings: warnings,
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ %d type(s) valid\n", len(names))
	for _, w := range warnings {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", w.Level, w.Message)
		fmt.Fprintf(formatter.Writer, "    %s\n", strings.Join(w.Path, " → "))
	}
	return nil
}

// outputValidationErrors outputs validation failures (exit code 1).
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError, warnings []compiler.CycleWarning) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:    false,
				Errors:   errs,
				Warnings: warnings,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
