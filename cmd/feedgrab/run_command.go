package main

import (
	"fmt"
	"io"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/slipstream/feedgrab/internal/feed"
	"github.com/slipstream/feedgrab/internal/rsssync"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var continueOnError bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one reconciliation pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			lock := flock.New(cfg.Lock.Path)
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another run is in progress (lock %s)", cfg.Lock.Path)
			}
			defer func() { _ = lock.Unlock() }()

			log := ctx.newLogger(cmd.ErrOrStderr())
			defer log.Close()

			settings := cfg.RunSettings()
			settings.DryRun = settings.DryRun || dryRun
			settings.ContinueOnError = settings.ContinueOnError || continueOnError

			svc := rsssync.NewService(ctx.newQueue(log), feed.NewClient(cfg.FeedSettings()), settings, log.Logger)

			store, closeStore, err := ctx.openHistory(cmd.Context(), log)
			if err != nil {
				return err
			}
			defer closeStore()
			if store != nil && !settings.DryRun {
				svc.SetRecorder(store)
			}

			result, runErr := svc.Run(cmd.Context())
			printRunResult(cmd.OutOrStdout(), result, settings.DryRun)
			return runErr
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Evaluate the feed without submitting anything")
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "Keep going after a failed submission")
	return cmd
}

func printRunResult(out io.Writer, result *rsssync.RunResult, dryRun bool) {
	if result == nil {
		return
	}

	var rows [][]string
	for _, o := range result.Items {
		if !o.Decision.Accept {
			continue
		}
		status := "queued"
		switch {
		case o.Err != nil:
			status = "failed: " + o.Err.Error()
		case dryRun:
			status = "dry run"
		}
		rows = append(rows, []string{o.Item.Name, o.Item.SeriesID.String(), o.Item.Quality, o.Destination, status})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable(
			[]string{"Name", "Series", "Quality", "Destination", "Status"},
			rows,
			nil,
		))
	}

	fmt.Fprintf(out, "%d items, %d skipped, %d rejected, %d accepted, %d dispatched, %d failed (%s)\n",
		len(result.Items), result.Skipped, result.Rejected, result.Accepted, result.Dispatched, result.Failed,
		result.Elapsed.Round(time.Millisecond))
}
