package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldwork/formsync/internal/gateway"
	"github.com/fieldwork/formsync/internal/queue"
	"github.com/fieldwork/formsync/internal/submit"
)

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit <schema> <data>",
		Short: "Validate and submit a filled-out form",
		Long: `Validate submission data against a form schema, then deliver it.

Delivery is online-first: if the service is reachable the submission goes
straight to it, otherwise it lands in the offline queue and the next sync
cycle picks it up. An invalid submission is never sent or queued.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runSubmit(opts *RootOptions, schemaPath, dataPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	report, f, err := validateSubmission(formatter, schemaPath, dataPath)
	if err != nil {
		return err
	}
	if !report.Valid {
		return outputReport(formatter, report)
	}

	state, err := loadFormState(dataPath)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeData, err.Error())
	}
	payload, err := submit.Format(f, state, time.Now())
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeData, err.Error())
	}

	log := cliLogger(formatter)
	q, err := queue.Open(opts.DB, queue.WithLogger(log))
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeQueue, fmt.Sprintf("open queue %s: %v", opts.DB, err))
	}
	defer q.Close()

	svc := submit.NewService(q,
		gateway.NewClient(opts.Endpoint, opts.Token),
		gateway.NewHTTPProbe(opts.Endpoint),
		log)

	res, err := svc.Submit(cmd.Context(), payload, f.Title)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeQueue, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.Success(res)
	}
	if res.Delivered {
		fmt.Fprintln(formatter.Writer, "✓ Submitted online")
		return nil
	}
	fmt.Fprintf(formatter.Writer, "✓ %s (%s)\n", res.Message, res.QueueID)
	return nil
}

// cliLogger routes service logs to stderr when verbose, otherwise
// discards them so command output stays clean.
func cliLogger(formatter *OutputFormatter) *slog.Logger {
	if formatter.Verbose {
		return slog.New(slog.NewTextHandler(formatter.ErrWriter, nil))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
