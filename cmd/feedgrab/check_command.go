package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slipstream/feedgrab/internal/rsssync"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the Transmission connection and show the catalog size",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			log := ctx.newLogger(cmd.ErrOrStderr())
			defer log.Close()

			client := ctx.newQueue(log)
			if err := client.Test(cmd.Context()); err != nil {
				return fmt.Errorf("transmission: %w", err)
			}

			dir, err := client.GetDownloadDir(cmd.Context())
			if err != nil {
				return fmt.Errorf("transmission: %w", err)
			}
			jobs, err := client.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("transmission: %w", err)
			}
			catalog := rsssync.BuildCatalog(jobs, cfg.Feed.Marker, cfg.RunSettings().Aliases)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session:       %s\n", client.State())
			fmt.Fprintf(out, "Download dir:  %s\n", dir)
			fmt.Fprintf(out, "Jobs:          %d\n", len(jobs))
			fmt.Fprintf(out, "Catalog:       %d names, %d releases\n", len(catalog), catalog.Releases())
			return nil
		},
	}
}
