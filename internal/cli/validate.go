package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/kata/internal/scenario"
)

// ValidationError describes one invalid scenario file.
type ValidationError struct {
	File    string   `json:"file"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenarios-dir|file>",
		Short: "Validate scenario files without running them",
		Long: `Check scenario files against the scenario schema.

Reports malformed YAML, unknown fields, schema violations and missing
required fields for every file, without executing any request.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, target string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	info, err := os.Stat(target)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("path not found: %s", target), nil)
	}

	files := []string{target}
	if info.IsDir() {
		if files, err = findScenarioFiles(target, ""); err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to find scenarios", err)
		}
	}
	f.VerboseLog("Found %d scenario file(s) in %s", len(files), target)

	result := ValidationResult{Valid: true, Files: len(files)}
	for _, file := range files {
		if _, err := scenario.Load(file); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, validationError(file, err))
		}
	}

	if f.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{Code: result.Errors[0].Code, Message: result.Errors[0].Message}
		}
		if err := f.Encode(resp); err != nil {
			return err
		}
	} else if result.Valid {
		fmt.Fprintf(f.Writer, "✓ %d scenario file(s) valid\n", result.Files)
	} else {
		fmt.Fprintln(f.Writer, "✗ Validation failed")
		fmt.Fprintln(f.Writer)
		for _, e := range result.Errors {
			fmt.Fprintf(f.Writer, "%s\n  %s: %s\n", e.File, e.Code, e.Message)
			for _, d := range e.Details {
				fmt.Fprintf(f.Writer, "    %s\n", d)
			}
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}
	return nil
}

func validationError(file string, err error) ValidationError {
	var schemaErr *scenario.SchemaError
	if errors.As(err, &schemaErr) {
		return ValidationError{
			File:    file,
			Code:    ErrCodeSchema,
			Message: "scenario does not match schema",
			Details: schemaErr.Problems,
		}
	}
	return ValidationError{File: file, Code: ErrCodeGeneric, Message: err.Error()}
}
