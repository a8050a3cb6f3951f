package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/wapanel/internal/api"
	"github.com/zulandar/wapanel/internal/models"
)

func newUsersCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List the location's users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, true, func(ctx context.Context, a *app, loc string) error {
				users, err := a.client.ListUsers(ctx, loc)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(users) == 0 {
					fmt.Fprintln(out, "No users found.")
					return nil
				}
				w := newTable(out)
				fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE")
				for _, u := range users {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Name, orDash(u.Email), orDash(u.Phone))
				}
				return w.Flush()
			})
		},
	}
}

func newInstanceCmd(g *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "instance",
		Aliases: []string{"instances"},
		Short:   "WhatsApp instance commands",
	}

	cmd.AddCommand(newInstanceListCmd(g))
	cmd.AddCommand(newInstanceShowCmd(g))
	cmd.AddCommand(newInstanceCreateCmd(g))
	cmd.AddCommand(newInstanceEditCmd(g))
	cmd.AddCommand(newInstanceDeleteCmd(g))
	cmd.AddCommand(newInstanceOffCmd(g))
	cmd.AddCommand(newInstanceQRCmd(g))
	return cmd
}

func newInstanceListCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, true, func(ctx context.Context, a *app, loc string) error {
				instances, err := a.client.ListInstances(ctx, loc)
				if err != nil {
					return err
				}
				printInstances(cmd, instances)
				return nil
			})
		},
	}
}

func printInstances(cmd *cobra.Command, instances []models.Instance) {
	out := cmd.OutOrStdout()
	if len(instances) == 0 {
		fmt.Fprintln(out, "No instances found.")
		return
	}
	w := newTable(out)
	fmt.Fprintln(w, "NAME\tALIAS\tSTATE\tMAIN\tFB ADS\tIA\tWEBHOOK")
	for _, inst := range instances {
		state := inst.ConnectionStatus
		if state == "" {
			state = inst.Status
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			inst.Name, truncate(orDash(inst.Alias), 30), orDash(state),
			yesNo(inst.MainDevice), yesNo(inst.FacebookAds), yesNo(inst.ActiveIA), truncate(orDash(inst.Webhook), 40))
	}
	w.Flush()
}

func newInstanceShowCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show an instance with its live state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, true, func(ctx context.Context, a *app, loc string) error {
				inst, err := findInstance(ctx, a, loc, args[0])
				if err != nil {
					return err
				}
				data := a.client.InstanceData(ctx, loc, inst.Name)

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Instance:    %s\n", inst.Name)
				fmt.Fprintf(out, "Alias:       %s\n", orDash(inst.Alias))
				fmt.Fprintf(out, "State:       %s\n", orDash(data.State))
				fmt.Fprintf(out, "Number:      %s\n", orDash(data.Number))
				fmt.Fprintf(out, "Main device: %s\n", yesNo(inst.MainDevice))
				fmt.Fprintf(out, "FB ads:      %s\n", yesNo(inst.FacebookAds))
				fmt.Fprintf(out, "IA:          %s\n", yesNo(inst.ActiveIA))
				fmt.Fprintf(out, "Webhook:     %s\n", orDash(inst.Webhook))
				if inst.UserID != "" {
					fmt.Fprintf(out, "User:        %s\n", inst.UserID)
				}
				return nil
			})
		},
	}
}

// findInstance looks name up in the location's instance list.
func findInstance(ctx context.Context, a *app, loc, name string) (*models.Instance, error) {
	instances, err := a.client.ListInstances(ctx, loc)
	if err != nil {
		return nil, err
	}
	for i := range instances {
		if instances[i].Name == name {
			return &instances[i], nil
		}
	}
	return nil, fmt.Errorf("instance %q not found in location %s", name, loc)
}

// instanceFlags are shared by create and edit.
type instanceFlags struct {
	alias   string
	userID  string
	main    bool
	fbAds   bool
	webhook string
	ai      bool
}

func (f *instanceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.alias, "alias", "", "display name")
	cmd.Flags().StringVar(&f.userID, "user", "", "assigned user id (see 'wapanel users')")
	cmd.Flags().BoolVar(&f.main, "main", false, "make this the location's main device")
	cmd.Flags().BoolVar(&f.fbAds, "fb-ads", false, "enable Facebook ads tracking")
	cmd.Flags().StringVar(&f.webhook, "webhook", "", "n8n webhook URL")
	cmd.Flags().BoolVar(&f.ai, "ai", false, "enable the AI responder")
}

// apply copies the flags the user actually set onto form.
func (f *instanceFlags) apply(cmd *cobra.Command, form *models.InstanceForm) {
	changed := cmd.Flags().Changed
	if changed("alias") {
		form.Alias = f.alias
	}
	if changed("user") {
		form.UserID = f.userID
	}
	if changed("main") {
		form.IsMainDevice = f.main
	}
	if changed("fb-ads") {
		form.FacebookAds = f.fbAds
	}
	if changed("webhook") {
		form.Webhook = f.webhook
	}
	if changed("ai") {
		form.ActiveIA = f.ai
	}
}

func newInstanceCreateCmd(g *globalOpts) *cobra.Command {
	var flags instanceFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an instance",
		Long:  "Creates a WhatsApp instance. Every instance except the main device must be assigned to a user.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, true, func(ctx context.Context, a *app, loc string) error {
				var form models.InstanceForm
				flags.apply(cmd, &form)

				if err := form.Validate(false); err != nil {
					return err
				}

				var user *api.UserData
				if form.IsMainDevice {
					instances, err := a.client.ListInstances(ctx, loc)
					if err != nil {
						return err
					}
					if err := form.Validate(models.MainDeviceTaken(instances, "")); err != nil {
						return err
					}
				} else {
					users, err := a.client.ListUsers(ctx, loc)
					if err != nil {
						return err
					}
					u, ok := models.FindUser(users, form.UserID)
					if !ok {
						return fmt.Errorf("user %q not found in location %s", form.UserID, loc)
					}
					user = &api.UserData{Name: u.Name, Email: u.Email, Phone: u.Phone}
				}
				_, err := a.client.CreateInstance(ctx, loc, form.Config(), user)
				return err
			})
		},
	}

	flags.register(cmd)
	cmd.MarkFlagRequired("alias")
	return cmd
}

func newInstanceEditCmd(g *globalOpts) *cobra.Command {
	var flags instanceFlags

	cmd := &cobra.Command{
		Use:   "edit <name>",
		Short: "Edit an instance's configuration",
		Long:  "Updates an instance. Only the flags given are changed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, true, func(ctx context.Context, a *app, loc string) error {
				instances, err := a.client.ListInstances(ctx, loc)
				if err != nil {
					return err
				}
				var current *models.Instance
				for i := range instances {
					if instances[i].Name == args[0] {
						current = &instances[i]
					}
				}
				if current == nil {
					return fmt.Errorf("instance %q not found in location %s", args[0], loc)
				}
				if cfg, err := a.client.GetInstanceConfig(ctx, loc, string(current.ID)); err == nil && cfg != nil {
					current = cfg
				}

				form := models.InstanceForm{
					Alias:        current.Alias,
					UserID:       string(current.UserID),
					IsMainDevice: current.MainDevice,
					FacebookAds:  current.FacebookAds,
					Webhook:      current.Webhook,
					ActiveIA:     current.ActiveIA,
				}
				flags.apply(cmd, &form)
				if err := form.Validate(models.MainDeviceTaken(instances, args[0])); err != nil {
					return err
				}
				_, err = a.client.EditInstance(ctx, loc, args[0], form.Config())
				return err
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func newInstanceDeleteCmd(g *globalOpts) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("deleting %s cannot be undone; pass --yes to confirm", args[0])
			}
			return withApp(cmd, g, true, func(ctx context.Context, a *app, loc string) error {
				_, err := a.client.DeleteInstance(ctx, loc, args[0])
				return err
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}

func newInstanceOffCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "off <name>",
		Short: "Disconnect an instance's WhatsApp session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, true, func(ctx context.Context, a *app, loc string) error {
				_, err := a.client.TurnOffInstance(ctx, loc, args[0])
				return err
			})
		},
	}
}
