package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	g := &globalOpts{}

	cmd := &cobra.Command{
		Use:   "wapanel",
		Short: "wapanel — WhatsApp instance and OpenAI assistant control panel",
		Long:  "wapanel manages WhatsApp instances, their OpenAI credentials and assistants for a location, from the terminal or a local web dashboard.",
	}
	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "wapanel.yaml", "path to wapanel config file")
	cmd.PersistentFlags().StringVarP(&g.location, "location", "l", "", "location id (overrides the saved one)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newDashboardCmd(g))
	cmd.AddCommand(newLocationCmd(g))
	cmd.AddCommand(newUsersCmd(g))
	cmd.AddCommand(newInstanceCmd(g))
	cmd.AddCommand(newCredCmd(g))
	cmd.AddCommand(newAssistantCmd(g))
	cmd.AddCommand(newOfficialCmd(g))
	cmd.AddCommand(newSessionCmd(g))
	cmd.AddCommand(newDigestCmd(g))
	cmd.AddCommand(newActivityCmd(g))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wapanel %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
