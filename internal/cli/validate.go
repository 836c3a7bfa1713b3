package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldwork/formsync/internal/form"
	"github.com/fieldwork/formsync/internal/validate"
)

// FieldError is one failed field in a validation report.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationReport holds the outcome of validating one submission.
type ValidationReport struct {
	Valid  bool         `json:"valid"`
	Fields int          `json:"fields"`
	Errors []FieldError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema> <data>",
		Short: "Validate a submission against a form schema",
		Long: `Validate submission data against a declarative form schema.

The schema is a YAML form definition; the data file holds the submitted
values (YAML or JSON). Rules run in declaration order and each field
reports its first failure.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, schemaPath, dataPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	report, _, err := validateSubmission(formatter, schemaPath, dataPath)
	if err != nil {
		return err
	}
	return outputReport(formatter, report)
}

// validateSubmission loads both inputs and runs the validation engine.
// Returns the report plus the loaded form for callers that go on to
// submit.
func validateSubmission(formatter *OutputFormatter, schemaPath, dataPath string) (*ValidationReport, *form.Form, error) {
	f, err := loadForm(schemaPath)
	if err != nil {
		return nil, nil, fail(formatter, ExitCommandError, ErrCodeSchema, err.Error())
	}
	state, err := loadFormState(dataPath)
	if err != nil {
		return nil, nil, fail(formatter, ExitCommandError, ErrCodeData, err.Error())
	}

	configs := form.NewCompiler(nil, nil).Compile(f)
	formatter.VerboseLog("Validating %d field(s) of form %q", len(configs), f.Name)

	errs := validate.ValidateForm(state, configs)

	report := &ValidationReport{Valid: len(errs) == 0, Fields: len(configs)}
	// Report errors in field declaration order, not map order.
	for _, cfg := range configs {
		if msg, ok := errs[cfg.Name]; ok {
			report.Errors = append(report.Errors, FieldError{Field: cfg.Name, Message: msg})
		}
	}
	return report, f, nil
}

func outputReport(formatter *OutputFormatter, report *ValidationReport) error {
	if formatter.Format == "json" {
		if report.Valid {
			return formatter.Success(report)
		}
		response := CLIResponse{
			Status: "error",
			Data:   report,
			Error: &CLIError{
				Code:    ErrCodeGeneric,
				Message: report.Errors[0].Message,
			},
		}
		if err := json.NewEncoder(formatter.Writer).Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(report.Errors)))
	}

	if report.Valid {
		fmt.Fprintf(formatter.Writer, "✓ %d field(s) valid\n", report.Fields)
		return nil
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, fe := range report.Errors {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", fe.Field, fe.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(report.Errors)))
}
