package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newLocationCmd(g *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "location",
		Short: "Show or change the active location",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <id>",
		Short: "Save the active location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, false, func(ctx context.Context, a *app, _ string) error {
				if err := a.store.SetLocationID(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Active location: %s\n", args[0])
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the active location",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, true, func(ctx context.Context, a *app, loc string) error {
				fmt.Fprintln(cmd.OutOrStdout(), loc)
				return nil
			})
		},
	})
	return cmd
}
