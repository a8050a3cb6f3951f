package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/wapanel/internal/models"
	"golang.org/x/term"
)

func newCredCmd(g *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cred",
		Aliases: []string{"creds"},
		Short:   "OpenAI credential commands",
	}

	cmd.AddCommand(newCredListCmd(g))
	cmd.AddCommand(newCredCreateCmd(g))
	cmd.AddCommand(newCredDeleteCmd(g))
	return cmd
}

func newCredListCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "list <instance>",
		Short: "List an instance's OpenAI keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, false, func(ctx context.Context, a *app, _ string) error {
				creds, err := a.client.GetCredentials(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(creds.APIKeys) == 0 {
					fmt.Fprintln(out, "No credentials found.")
					return nil
				}
				w := newTable(out)
				fmt.Fprintln(w, "ID\tNAME\tKEY")
				for _, k := range creds.APIKeys {
					fmt.Fprintf(w, "%s\t%s\t%s\n", k.ID, k.Name, models.MaskKey(k.APIKey))
				}
				return w.Flush()
			})
		},
	}
}

func newCredCreateCmd(g *globalOpts) *cobra.Command {
	var name, key string

	cmd := &cobra.Command{
		Use:   "create <instance>",
		Short: "Store an OpenAI key for an instance",
		Long:  "Stores an OpenAI API key. Without --key the key is read from the terminal without echo, or from stdin when piped.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				var err error
				if key, err = readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "OpenAI API key: "); err != nil {
					return err
				}
			}
			form := models.CredentialForm{Name: name, APIKey: key}
			if err := form.Validate(); err != nil {
				return err
			}
			return withApp(cmd, g, false, func(ctx context.Context, a *app, _ string) error {
				_, err := a.client.CreateCredential(ctx, args[0], form.Name, form.APIKey)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "label for the key")
	cmd.Flags().StringVar(&key, "key", "", "the sk-... key (prompted when omitted)")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newCredDeleteCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <instance> <credential-id>",
		Short: "Delete a stored OpenAI key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, false, func(ctx context.Context, a *app, _ string) error {
				_, err := a.client.DeleteCredential(ctx, args[0], args[1])
				return err
			})
		},
	}
}

// readSecret reads one line from in. When in is a terminal the input is not
// echoed.
func readSecret(in io.Reader, prompt io.Writer, label string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read key: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read key: %w", err)
	}
	return strings.TrimSpace(line), nil
}
