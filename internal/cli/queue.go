package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldwork/formsync/internal/queue"
)

// QueueListing is the JSON payload of "queue list".
type QueueListing struct {
	Items    []queue.Item `json:"items"`
	Pending  int          `json:"pending"`
	Degraded bool         `json:"degraded,omitempty"`
}

// NewQueueCommand creates the queue command group.
func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the offline submission queue",
	}

	cmd.AddCommand(newQueueListCommand(rootOpts))
	cmd.AddCommand(newQueueDeleteCommand(rootOpts))
	cmd.AddCommand(newQueueClearCommand(rootOpts))

	return cmd
}

func newQueueListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List queued submissions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			q, err := openQueue(rootOpts, formatter)
			if err != nil {
				return err
			}
			defer q.Close()

			res := q.ListAll()
			listing := QueueListing{
				Items:    res.Items,
				Pending:  q.CountPending(),
				Degraded: res.Degraded,
			}

			if formatter.Format == "json" {
				return formatter.Success(listing)
			}

			if listing.Degraded {
				fmt.Fprintln(formatter.ErrWriter, "warning: some queue rows could not be read")
			}
			if len(listing.Items) == 0 {
				fmt.Fprintln(formatter.Writer, "Queue is empty")
				return nil
			}
			for _, item := range listing.Items {
				fmt.Fprintf(formatter.Writer, "%s  %-7s  attempts=%d  %s\n",
					item.ID, item.Status, item.SyncAttempts, item.FormTitle)
			}
			fmt.Fprintf(formatter.Writer, "\n%d item(s), %d pending\n", len(listing.Items), listing.Pending)
			return nil
		},
	}
}

func newQueueDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Remove one submission from the queue",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			q, err := openQueue(rootOpts, formatter)
			if err != nil {
				return err
			}
			defer q.Close()

			if err := q.Delete(args[0]); err != nil {
				if errors.Is(err, queue.ErrNotFound) {
					return fail(formatter, ExitCommandError, ErrCodeNotFound, fmt.Sprintf("no queued submission %s", args[0]))
				}
				return fail(formatter, ExitCommandError, ErrCodeQueue, err.Error())
			}
			return formatter.Success(fmt.Sprintf("Deleted %s", args[0]))
		},
	}
}

func newQueueClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear",
		Short:         "Remove all submissions from the queue",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			q, err := openQueue(rootOpts, formatter)
			if err != nil {
				return err
			}
			defer q.Close()

			count := len(q.ListAll().Items)
			if err := q.ClearAll(); err != nil {
				return fail(formatter, ExitCommandError, ErrCodeQueue, err.Error())
			}
			return formatter.Success(fmt.Sprintf("Cleared %d item(s)", count))
		},
	}
}

func openQueue(opts *RootOptions, formatter *OutputFormatter) (*queue.Store, error) {
	q, err := queue.Open(opts.DB, queue.WithLogger(cliLogger(formatter)))
	if err != nil {
		return nil, fail(formatter, ExitCommandError, ErrCodeQueue, fmt.Sprintf("open queue %s: %v", opts.DB, err))
	}
	return q, nil
}
