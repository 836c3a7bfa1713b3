package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldwork/formsync/internal/gateway"
	"github.com/fieldwork/formsync/internal/syncd"
)

// NewSyncCommand creates the sync command group.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the offline queue with the remote service",
	}

	cmd.AddCommand(newSyncNowCommand(rootOpts))
	cmd.AddCommand(newSyncRunCommand(rootOpts))

	return cmd
}

func newSyncNowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Run one sync cycle",
		Long: `Run a single sync cycle and report its stats.

Exits 1 when the cycle leaves failures or conflicts behind; an offline
network or an empty queue is not an error.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			engine, closeQueue, err := buildEngine(rootOpts, formatter)
			if err != nil {
				return err
			}
			defer closeQueue()

			stats := engine.SyncNow(cmd.Context())
			return outputStats(formatter, stats)
		},
	}
}

func newSyncRunCommand(rootOpts *RootOptions) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the background sync loop until interrupted",
		Long: `Start the periodic sync timer and keep the process alive.

An immediate cycle runs on startup; afterwards a cycle runs every
interval. Each cycle's result is printed as it completes. Stop with
SIGINT or SIGTERM.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			engine, closeQueue, err := buildEngine(rootOpts, formatter, syncd.WithInterval(interval))
			if err != nil {
				return err
			}
			defer closeQueue()

			cancelSub := engine.Subscribe(func(stats syncd.Stats) {
				if formatter.Format == "json" {
					_ = formatter.Success(stats)
					return
				}
				fmt.Fprintln(formatter.Writer, statsLine(stats))
			})
			defer cancelSub()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			engine.SyncNow(ctx)
			engine.Start()
			defer engine.Stop()

			<-ctx.Done()
			formatter.VerboseLog("shutting down")
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", syncd.DefaultInterval, "time between sync cycles")

	return cmd
}

func buildEngine(opts *RootOptions, formatter *OutputFormatter, extra ...syncd.Option) (*syncd.Engine, func(), error) {
	q, err := openQueue(opts, formatter)
	if err != nil {
		return nil, nil, err
	}

	engineOpts := append([]syncd.Option{syncd.WithEngineLogger(cliLogger(formatter))}, extra...)
	engine := syncd.New(q,
		gateway.NewClient(opts.Endpoint, opts.Token),
		gateway.NewHTTPProbe(opts.Endpoint),
		engineOpts...)
	return engine, func() { q.Close() }, nil
}

func outputStats(formatter *OutputFormatter, stats syncd.Stats) error {
	if formatter.Format == "json" {
		if err := formatter.Success(stats); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, statsLine(stats))
	}

	if stats.Failed > 0 || stats.Conflicts > 0 {
		return NewExitError(ExitFailure,
			fmt.Sprintf("sync left %d failure(s) and %d conflict(s)", stats.Failed, stats.Conflicts))
	}
	return nil
}

func statsLine(stats syncd.Stats) string {
	if stats.Total == 0 {
		return stats.Message
	}
	return fmt.Sprintf("%s (%d failed, %d conflicts)", stats.Message, stats.Failed, stats.Conflicts)
}
