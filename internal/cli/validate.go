package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ddb/internal/canon"
	"github.com/roach88/ddb/internal/fault"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool               `json:"valid"`
	Errors []fault.FieldError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <blueprint> <json>",
		Short: "Check a document against a blueprint schema",
		Long: `Validate a JSON document against a blueprint's schema without writing it.

Does not open the database.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runValidate(opts *RootOptions, bpName, raw string, cmd *cobra.Command) error {
	s, err := loadSession(opts, cmd)
	if err != nil {
		return err
	}
	bp, err := s.blueprint(bpName)
	if err != nil {
		return fail(s.formatter, err)
	}
	doc, err := canon.Decode([]byte(raw))
	if err != nil {
		return failWith(s.formatter, ErrCodeInvalidJSON, err)
	}

	errs := bp.Schema.Validate(doc)
	if len(errs) == 0 {
		if s.formatter.Format == "json" {
			return s.formatter.Success(ValidationResult{Valid: true})
		}
		fmt.Fprintf(s.formatter.Writer, "✓ Valid %s document\n", bp.Name)
		return nil
	}
	return outputValidationErrors(s.formatter, errs)
}

// outputValidationErrors outputs every field error of a rejected document.
func outputValidationErrors(formatter *OutputFormatter, errs []fault.FieldError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    string(fault.ErrCodeSchemaValidation),
				Message: errs[0].String(),
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range errs {
		path := e.Path
		if path == "" {
			path = "(document)"
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", path, e.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
