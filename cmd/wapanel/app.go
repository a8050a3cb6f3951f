package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/zulandar/wapanel/internal/api"
	"github.com/zulandar/wapanel/internal/config"
	"github.com/zulandar/wapanel/internal/notify"
	"github.com/zulandar/wapanel/internal/store"
)

// globalOpts are the persistent root flags.
type globalOpts struct {
	configPath string
	location   string
}

// app bundles what most commands need: config, local store and a client
// whose toasts go to the terminal and the chat channels.
type app struct {
	cfg     *config.Config
	store   *store.Store
	client  *api.Client
	senders []notify.Sender
	console console
}

// loadConfig reads .env (if present) and then the YAML config. Variables
// already set in the environment win over .env.
func loadConfig(path string) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func openApp(cmd *cobra.Command, g *globalOpts) (*app, error) {
	cfg, err := loadConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	senders, err := notify.Senders(cfg.Notify)
	if err != nil {
		st.Close()
		return nil, err
	}

	con := console{out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
	client := api.New(api.Options{
		WhatsAppURL: cfg.API.WhatsAppURL,
		OpenAIURL:   cfg.API.OpenAIURL,
		Token:       cfg.API.Token,
		Timeout:     cfg.API.Timeout,
		Notifier:    notify.Multi{con, notify.Chat{Senders: senders, Source: "wapanel CLI"}},
	})
	return &app{cfg: cfg, store: st, client: client, senders: senders, console: con}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// locationID resolves the active location: the --location flag, then the
// config file or WAPANEL_LOCATION_ID, then the one saved by the dashboard
// or "location set".
func (a *app) locationID(ctx context.Context, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if a.cfg.LocationID != "" {
		return a.cfg.LocationID, nil
	}
	loc, err := a.store.LocationID(ctx)
	if err != nil {
		return "", err
	}
	if loc == "" {
		return "", errors.New("no location set: pass --location or run 'wapanel location set <id>'")
	}
	return loc, nil
}

// withApp opens the app, resolves the location into the context and runs
// fn. Commands that do not need a location pass needLocation=false.
func withApp(cmd *cobra.Command, g *globalOpts, needLocation bool, fn func(ctx context.Context, a *app, loc string) error) error {
	a, err := openApp(cmd, g)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var loc string
	if needLocation {
		if loc, err = a.locationID(ctx, g.location); err != nil {
			return err
		}
		ctx = notify.WithLocation(ctx, loc)
	}
	return fn(ctx, a, loc)
}

// console prints toasts to the terminal.
type console struct {
	out    io.Writer
	errOut io.Writer
}

func (c console) Success(_ context.Context, msg string) {
	fmt.Fprintf(c.out, "✓ %s\n", msg)
}

func (c console) Error(_ context.Context, msg string) {
	fmt.Fprintf(c.errOut, "✗ %s\n", msg)
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
