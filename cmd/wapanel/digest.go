package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/wapanel/internal/digest"
)

func newDigestCmd(g *globalOpts) *cobra.Command {
	var (
		watch    bool
		schedule string
	)

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Post an instance status summary to the chat channels",
		Long: "Builds a summary of the location's instances by connection state and posts it to the configured " +
			"Slack and Discord channels. With --watch it keeps running and posts on the cron schedule.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, true, func(ctx context.Context, a *app, loc string) error {
				if len(a.senders) == 0 {
					return errors.New("no chat destination configured (notify.slack or notify.discord)")
				}
				r := &digest.Runner{
					Lister:     a.client,
					Senders:    a.senders,
					LocationID: loc,
					Schedule:   a.cfg.Digest.Schedule,
				}
				if schedule != "" {
					r.Schedule = schedule
				}

				if !watch {
					sent, err := r.RunOnce(ctx)
					if err != nil {
						return err
					}
					if sent {
						fmt.Fprintf(cmd.OutOrStdout(), "Digest sent for %s\n", loc)
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "No instances in %s, nothing sent\n", loc)
					}
					return nil
				}

				if err := digest.ValidSchedule(r.Schedule); err != nil {
					return fmt.Errorf("invalid schedule %q: %w", r.Schedule, err)
				}
				ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				fmt.Fprintf(cmd.OutOrStdout(), "Posting digests for %s on %q\n", loc, r.Schedule)
				return r.Run(ctx)
			})
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep running and post on the schedule")
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron expression (default from config)")
	return cmd
}
