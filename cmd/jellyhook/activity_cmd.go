package main

import (
	"fmt"
	"io"

	"github.com/Nomadcxx/jellyhook/internal/activity"
	"github.com/spf13/cobra"
)

func newActivityCmd() *cobra.Command {
	var (
		limit int
		prune bool
	)

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show recently handled events",
		Long: `Show the most recent entries of the activity journal, newest first.
The journal is written only when activity.enabled is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			journal, err := openJournal(cfg.Activity)
			if err != nil {
				return fmt.Errorf("failed to open activity journal: %w", err)
			}
			defer journal.Close()

			out := cmd.OutOrStdout()
			if prune {
				n, err := journal.PruneOld(cfg.Activity.RetentionDays)
				if err != nil {
					return fmt.Errorf("failed to prune journal: %w", err)
				}
				fmt.Fprintf(out, "Removed %d journal file(s) older than %d days\n", n, cfg.Activity.RetentionDays)
			}

			entries, err := journal.GetRecentEntries(limit)
			if err != nil {
				return fmt.Errorf("failed to read journal: %w", err)
			}
			printActivity(out, entries)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	cmd.Flags().BoolVar(&prune, "prune", false, "remove journal files past retention first")

	return cmd
}

func printActivity(out io.Writer, entries []activity.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No activity recorded.")
		return
	}

	fmt.Fprintln(out, activityTable(entries))
}
