package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slipstream/feedgrab/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var name string
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent dispatches",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := ctx.newLogger(cmd.ErrOrStderr())
			defer log.Close()

			store, closeStore, err := ctx.openHistory(cmd.Context(), log)
			if err != nil {
				return err
			}
			defer closeStore()
			if store == nil {
				return errors.New("history is disabled; set history.path")
			}

			opts := history.ListOptions{Limit: limit, Name: name}
			if failedOnly {
				opts.EventType = history.EventTypeFailed
			}
			entries, err := store.List(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No history entries")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				detail := e.Destination
				if e.EventType == history.EventTypeFailed {
					detail = e.Error
				}
				rows = append(rows, []string{
					e.CreatedAt.Local().Format("2006-01-02 15:04"),
					string(e.EventType),
					e.Name,
					e.SeriesID,
					e.Quality,
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Time", "Event", "Name", "Series", "Quality", "Detail"},
				rows,
				nil,
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().StringVar(&name, "name", "", "Only show this release name")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only show failed submissions")
	return cmd
}
