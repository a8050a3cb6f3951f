package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/wapanel/internal/models"
)

func newSessionCmd(g *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "session",
		Aliases: []string{"sessions"},
		Short:   "Custom assistant session commands",
	}

	cmd.AddCommand(newSessionListCmd(g))
	for _, action := range []models.SessionAction{models.ActionOpen, models.ActionPause, models.ActionClose, models.ActionDelete} {
		cmd.AddCommand(newSessionActionCmd(g, action))
	}
	return cmd
}

func newSessionListCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "list <instance> <assistant-id>",
		Short: "List an assistant's sessions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, false, func(ctx context.Context, a *app, _ string) error {
				sessions, err := a.client.ListSessions(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(sessions) == 0 {
					fmt.Fprintln(out, "No sessions found.")
					return nil
				}
				w := newTable(out)
				fmt.Fprintln(w, "SESSION\tCONTACT\tNAME\tSTATUS\tUPDATED")
				for _, s := range sessions {
					updated := "-"
					if t := s.UpdatedAt.Time(); !t.IsZero() {
						updated = t.Local().Format(time.DateTime)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.SessionID, s.RemoteJID, orDash(s.PushName), s.Status, updated)
				}
				return w.Flush()
			})
		},
	}
}

var sessionVerbs = map[models.SessionAction]string{
	models.ActionOpen:   "open",
	models.ActionPause:  "pause",
	models.ActionClose:  "close",
	models.ActionDelete: "delete",
}

func newSessionActionCmd(g *globalOpts, action models.SessionAction) *cobra.Command {
	var jid string
	verb := sessionVerbs[action]

	cmd := &cobra.Command{
		Use:   verb + " <instance> <assistant-id> <session-id>",
		Short: fmt.Sprintf("%s a session", capitalize(verb)),
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			instance, assistantID, sessionID := args[0], args[1], args[2]
			return withApp(cmd, g, false, func(ctx context.Context, a *app, _ string) error {
				remote := jid
				if remote == "" {
					sessions, err := a.client.ListSessions(ctx, instance, assistantID)
					if err != nil {
						return err
					}
					for _, s := range sessions {
						if s.SessionID == sessionID {
							remote = s.RemoteJID
						}
					}
					if remote == "" {
						return fmt.Errorf("session %s not found; pass --jid", sessionID)
					}
				}
				_, err := a.client.UpdateSession(ctx, instance, assistantID, sessionID, remote, action)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&jid, "jid", "", "contact JID (looked up from the session list when omitted)")
	return cmd
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
