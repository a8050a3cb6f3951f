package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/wapanel/internal/models"
)

func newAssistantCmd(g *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "assistant",
		Aliases: []string{"assistants"},
		Short:   "Custom assistant commands",
	}

	cmd.AddCommand(newAssistantListCmd(g))
	cmd.AddCommand(newAssistantShowCmd(g))
	cmd.AddCommand(newAssistantCreateCmd(g))
	cmd.AddCommand(newAssistantUpdateCmd(g))
	cmd.AddCommand(newAssistantDeleteCmd(g))
	return cmd
}

func newAssistantListCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "list <instance>",
		Short: "List an instance's custom assistants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, false, func(ctx context.Context, a *app, _ string) error {
				list, err := a.client.ListAssistants(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "No assistants found.")
					return nil
				}
				w := newTable(out)
				fmt.Fprintln(w, "ID\tNAME\tOPENAI ASSISTANT\tTRIGGER\tKEY")
				for _, as := range list {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						as.ID, truncate(as.Name, 30), orDash(as.AssistantID), truncate(as.TriggerSummary(), 40), orDash(as.APIKeyID))
				}
				return w.Flush()
			})
		},
	}
}

func newAssistantShowCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "show <instance> <id>",
		Short: "Show a custom assistant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, false, func(ctx context.Context, a *app, _ string) error {
				as, err := a.client.GetAssistant(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				printAssistant(cmd, as)
				return nil
			})
		},
	}
}

func printAssistant(cmd *cobra.Command, as models.Assistant) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:                  %s\n", as.ID)
	fmt.Fprintf(out, "Name:                %s\n", as.Name)
	fmt.Fprintf(out, "OpenAI assistant:    %s\n", orDash(as.AssistantID))
	fmt.Fprintf(out, "Credential:          %s\n", orDash(as.APIKeyID))
	fmt.Fprintf(out, "Webhook:             %s\n", orDash(as.WebhookURL))
	fmt.Fprintf(out, "Trigger:             %s\n", as.TriggerSummary())
	fmt.Fprintf(out, "Expires after:       %d min\n", as.ExpirationMinutes)
	fmt.Fprintf(out, "Stop keyword:        %s\n", orDash(as.StopKeyword))
	fmt.Fprintf(out, "Message delay:       %d ms\n", as.MessageDelayMs)
	fmt.Fprintf(out, "Unknown message:     %s\n", orDash(as.UnknownMessage))
	fmt.Fprintf(out, "Listen to owner:     %s\n", yesNo(as.ListenToOwner))
	fmt.Fprintf(out, "Owner can stop:      %s\n", yesNo(as.StopByOwner))
	fmt.Fprintf(out, "Keep session open:   %s\n", yesNo(as.KeepSessionOpen))
	fmt.Fprintf(out, "Debounce:            %d s\n", as.DebounceSeconds)
	fmt.Fprintf(out, "Split messages:      %s\n", yesNo(as.SeparateMessages))
	fmt.Fprintf(out, "Seconds per message: %g\n", as.SecondsPerMessage)
	if as.Instructions != "" {
		fmt.Fprintf(out, "\nInstructions:\n%s\n", as.Instructions)
	}
}

// assistantFlags are shared by create and update.
type assistantFlags struct {
	name, key, assistantID, webhook string
	trigger, condition, value       string
	instructions                    string
	expire, delayMs, debounce       int
	stopKeyword, unknownMessage     string
	listenOwner, stopByOwner        bool
	keepOpen, split                 bool
	secondsPerMessage               float64
}

func (f *assistantFlags) register(cmd *cobra.Command) {
	d := models.NewAssistant()
	fl := cmd.Flags()
	fl.StringVar(&f.name, "name", "", "assistant name")
	fl.StringVar(&f.key, "key", "", "OpenAI credential id (see 'wapanel cred list')")
	fl.StringVar(&f.assistantID, "assistant-id", "", "OpenAI assistant id (asst_...)")
	fl.StringVar(&f.webhook, "webhook", "", "webhook URL")
	fl.StringVar(&f.instructions, "instructions", "", "instructions")
	fl.StringVar(&f.trigger, "trigger", string(d.TriggerType), "trigger type (all, keyword, advanced, none)")
	fl.StringVar(&f.condition, "condition", string(d.TriggerCondition), "trigger condition (contains, equals, startsWith, endsWith, regex)")
	fl.StringVar(&f.value, "value", "", "trigger value for keyword and advanced triggers")
	fl.IntVar(&f.expire, "expire", d.ExpirationMinutes, "session expiration in minutes")
	fl.StringVar(&f.stopKeyword, "stop-keyword", d.StopKeyword, "keyword that ends a session")
	fl.IntVar(&f.delayMs, "delay-ms", d.MessageDelayMs, "delay between messages in milliseconds")
	fl.StringVar(&f.unknownMessage, "unknown-message", d.UnknownMessage, "reply for unsupported message types")
	fl.BoolVar(&f.listenOwner, "listen-owner", d.ListenToOwner, "respond to the owner's own messages")
	fl.BoolVar(&f.stopByOwner, "stop-by-owner", d.StopByOwner, "let the owner stop the bot")
	fl.BoolVar(&f.keepOpen, "keep-open", d.KeepSessionOpen, "keep sessions open")
	fl.IntVar(&f.debounce, "debounce", d.DebounceSeconds, "debounce window in seconds")
	fl.BoolVar(&f.split, "split", d.SeparateMessages, "split replies into separate messages")
	fl.Float64Var(&f.secondsPerMessage, "seconds-per-message", d.SecondsPerMessage, "typing time per message in seconds")
}

// apply copies the flags the user set onto form. With all=true every flag
// is copied, defaults included.
func (f *assistantFlags) apply(cmd *cobra.Command, form *models.AssistantForm, all bool) {
	set := func(name string) bool { return all || cmd.Flags().Changed(name) }
	a := &form.Assistant
	if set("name") {
		form.Name = f.name
	}
	if set("key") {
		form.APIKeyID = f.key
	}
	if set("assistant-id") {
		form.AssistantID = f.assistantID
	}
	if set("webhook") {
		form.WebhookURL = f.webhook
	}
	if set("trigger") {
		form.TriggerType = models.TriggerType(f.trigger)
	}
	if set("condition") {
		form.TriggerCondition = models.TriggerCondition(f.condition)
	}
	if set("value") {
		form.TriggerValue = f.value
	}
	if set("instructions") {
		a.Instructions = f.instructions
	}
	if set("expire") {
		a.ExpirationMinutes = f.expire
	}
	if set("stop-keyword") {
		a.StopKeyword = f.stopKeyword
	}
	if set("delay-ms") {
		a.MessageDelayMs = f.delayMs
	}
	if set("unknown-message") {
		a.UnknownMessage = f.unknownMessage
	}
	if set("listen-owner") {
		a.ListenToOwner = f.listenOwner
	}
	if set("stop-by-owner") {
		a.StopByOwner = f.stopByOwner
	}
	if set("keep-open") {
		a.KeepSessionOpen = f.keepOpen
	}
	if set("debounce") {
		a.DebounceSeconds = f.debounce
	}
	if set("split") {
		a.SeparateMessages = f.split
	}
	if set("seconds-per-message") {
		a.SecondsPerMessage = f.secondsPerMessage
	}
}

func newAssistantCreateCmd(g *globalOpts) *cobra.Command {
	var flags assistantFlags

	cmd := &cobra.Command{
		Use:   "create <instance>",
		Short: "Create a custom assistant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form := models.NewAssistant().Form()
			flags.apply(cmd, &form, true)
			if err := form.Validate(); err != nil {
				return err
			}
			return withApp(cmd, g, false, func(ctx context.Context, a *app, _ string) error {
				_, err := a.client.CreateAssistant(ctx, args[0], form.Assistant)
				return err
			})
		},
	}

	flags.register(cmd)
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("key")
	cmd.MarkFlagRequired("assistant-id")
	return cmd
}

func newAssistantUpdateCmd(g *globalOpts) *cobra.Command {
	var flags assistantFlags

	cmd := &cobra.Command{
		Use:   "update <instance> <id>",
		Short: "Update a custom assistant",
		Long:  "Updates a custom assistant. Only the flags given are changed.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, false, func(ctx context.Context, a *app, _ string) error {
				current, err := a.client.GetAssistant(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				form := current.Form()
				flags.apply(cmd, &form, false)
				if err := form.Validate(); err != nil {
					return err
				}
				_, err = a.client.UpdateAssistant(ctx, args[0], form.Assistant)
				return err
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func newAssistantDeleteCmd(g *globalOpts) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <instance> <id>",
		Short: "Delete a custom assistant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("deleting assistant %s cannot be undone; pass --yes to confirm", args[1])
			}
			return withApp(cmd, g, false, func(ctx context.Context, a *app, _ string) error {
				_, err := a.client.DeleteAssistant(ctx, args[0], args[1])
				return err
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}
