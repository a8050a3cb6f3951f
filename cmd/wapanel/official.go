package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/wapanel/internal/models"
)

func newOfficialCmd(g *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "official",
		Short: "Official OpenAI assistant commands",
	}

	cmd.AddCommand(newOfficialListCmd(g))
	cmd.AddCommand(newOfficialCreateCmd(g))
	cmd.AddCommand(newOfficialUpdateCmd(g))
	cmd.AddCommand(newOfficialDeleteCmd(g))
	return cmd
}

func newOfficialListCmd(g *globalOpts) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "list <instance>",
		Short: "List official assistants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, false, func(ctx context.Context, a *app, _ string) error {
				list, err := a.client.ListOfficialAssistants(ctx, args[0], key)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "No official assistants found.")
					return nil
				}
				w := newTable(out)
				fmt.Fprintln(w, "ID\tNAME\tMODEL\tKEY\tTOOLS")
				for _, o := range list {
					labels := make([]string, 0, len(o.Tools))
					for _, t := range o.Tools {
						labels = append(labels, t.Label())
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						o.ID, truncate(o.Name, 30), o.Model, orDash(string(o.APIKeyID)), orDash(strings.Join(labels, ", ")))
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "only assistants using this credential id")
	return cmd
}

// officialFlags are shared by create and update.
type officialFlags struct {
	name, instructions, model, key string
	temperature, topP              float64
	codeInterpreter, retrieval     bool
	functionsFile                  string
}

func (f *officialFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.name, "name", "", "assistant name")
	fl.StringVar(&f.instructions, "instructions", "", "instructions")
	fl.StringVar(&f.model, "model", models.DefaultModel, "OpenAI model")
	fl.StringVar(&f.key, "key", "", "OpenAI credential id")
	fl.Float64Var(&f.temperature, "temperature", 1, "sampling temperature (0-2)")
	fl.Float64Var(&f.topP, "top-p", 1, "nucleus sampling (0-1)")
	fl.BoolVar(&f.codeInterpreter, "code-interpreter", false, "enable the code interpreter tool")
	fl.BoolVar(&f.retrieval, "retrieval", false, "enable the retrieval tool")
	fl.StringVar(&f.functionsFile, "functions", "", `JSON file with function tools: [{"name", "description", "parameters"}]`)
}

func (f *officialFlags) apply(cmd *cobra.Command, form *models.OfficialForm, all bool) error {
	set := func(name string) bool { return all || cmd.Flags().Changed(name) }
	if set("name") {
		form.Name = f.name
	}
	if set("instructions") {
		form.Instructions = f.instructions
	}
	if set("model") {
		form.Model = f.model
	}
	if set("key") {
		form.APIKeyID = f.key
	}
	if set("temperature") {
		form.Temperature = f.temperature
	}
	if set("top-p") {
		form.TopP = f.topP
	}
	if set("code-interpreter") {
		form.Tools = toggleTool(form.Tools, models.ToolCodeInterpreter, f.codeInterpreter)
	}
	if set("retrieval") {
		form.Tools = toggleTool(form.Tools, models.ToolRetrieval, f.retrieval)
	}
	if cmd.Flags().Changed("functions") {
		fns, err := loadFunctions(f.functionsFile)
		if err != nil {
			return err
		}
		kept := form.Tools[:0:0]
		for _, t := range form.Tools {
			if t.Type != models.ToolFunction {
				kept = append(kept, t)
			}
		}
		form.Tools = append(kept, fns...)
	}
	return nil
}

// toggleTool adds or removes a built-in tool.
func toggleTool(tools []models.Tool, typ string, on bool) []models.Tool {
	out := tools[:0:0]
	for _, t := range tools {
		if t.Type != typ {
			out = append(out, t)
		}
	}
	if on {
		out = append(out, models.Tool{Type: typ})
	}
	return out
}

// loadFunctions reads function tool definitions from a JSON file.
func loadFunctions(path string) ([]models.Tool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read functions: %w", err)
	}
	var defs []models.FunctionDef
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse functions %s: %w", path, err)
	}
	tools := make([]models.Tool, 0, len(defs))
	for _, d := range defs {
		t, err := models.NewFunctionTool(d.Name, d.Description, string(d.Parameters))
		if err != nil {
			return nil, fmt.Errorf("functions %s: %w", path, err)
		}
		tools = append(tools, t)
	}
	return tools, nil
}

func newOfficialCreateCmd(g *globalOpts) *cobra.Command {
	var flags officialFlags

	cmd := &cobra.Command{
		Use:   "create <instance>",
		Short: "Create an official assistant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var form models.OfficialForm
			if err := flags.apply(cmd, &form, true); err != nil {
				return err
			}
			if err := form.Validate(); err != nil {
				return err
			}
			return withApp(cmd, g, false, func(ctx context.Context, a *app, _ string) error {
				_, err := a.client.CreateOfficialAssistant(ctx, args[0], form.Assistant(""))
				return err
			})
		},
	}

	flags.register(cmd)
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("instructions")
	cmd.MarkFlagRequired("key")
	return cmd
}

func newOfficialUpdateCmd(g *globalOpts) *cobra.Command {
	var flags officialFlags

	cmd := &cobra.Command{
		Use:   "update <instance> <id>",
		Short: "Update an official assistant",
		Long:  "Updates an official assistant. Only the flags given are changed; --key selects the credential it is listed under.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, false, func(ctx context.Context, a *app, _ string) error {
				list, err := a.client.ListOfficialAssistants(ctx, args[0], flags.key)
				if err != nil {
					return err
				}
				var form *models.OfficialForm
				for _, o := range list {
					if string(o.ID) == args[1] {
						f := o.Form()
						form = &f
						break
					}
				}
				if form == nil {
					return fmt.Errorf("official assistant %s not found", args[1])
				}
				if err := flags.apply(cmd, form, false); err != nil {
					return err
				}
				if err := form.Validate(); err != nil {
					return err
				}
				_, err = a.client.UpdateOfficialAssistant(ctx, args[0], form.Assistant(args[1]))
				return err
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func newOfficialDeleteCmd(g *globalOpts) *cobra.Command {
	var (
		key string
		yes bool
	)

	cmd := &cobra.Command{
		Use:   "delete <instance> <id>",
		Short: "Delete an official assistant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("deleting assistant %s cannot be undone; pass --yes to confirm", args[1])
			}
			return withApp(cmd, g, false, func(ctx context.Context, a *app, _ string) error {
				_, err := a.client.DeleteOfficialAssistant(ctx, args[0], args[1], key)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "credential id the assistant belongs to")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	cmd.MarkFlagRequired("key")
	return cmd
}
