package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newActivityCmd(g *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Dashboard toast history",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "Show recent toasts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, false, func(ctx context.Context, a *app, _ string) error {
				acts, err := a.store.RecentActivities(ctx, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(acts) == 0 {
					fmt.Fprintln(out, "No activity recorded.")
					return nil
				}
				w := newTable(out)
				fmt.Fprintln(w, "TIME\tLEVEL\tLOCATION\tMESSAGE")
				for _, act := range acts {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
						act.CreatedAt.Local().Format(time.DateTime), act.Level, orDash(act.LocationID), truncate(act.Text, 80))
				}
				return w.Flush()
			})
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 50, "number of entries")

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete old toasts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			return withApp(cmd, g, false, func(ctx context.Context, a *app, _ string) error {
				n, err := a.store.PruneActivities(ctx, time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", n)
				return nil
			})
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "remove entries older than this")

	cmd.AddCommand(list, prune)
	return cmd
}
