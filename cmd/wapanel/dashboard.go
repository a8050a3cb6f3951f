package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/wapanel/internal/api"
	"github.com/zulandar/wapanel/internal/dashboard"
	"github.com/zulandar/wapanel/internal/digest"
	"github.com/zulandar/wapanel/internal/notify"
	"github.com/zulandar/wapanel/internal/store"
)

func newDashboardCmd(g *globalOpts) *cobra.Command {
	var (
		port       int
		withDigest bool
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Start the web dashboard",
		Long:  "Launches the local web dashboard for managing instances, QR pairing, credentials and assistants.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, g, port, withDigest)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default from config, 8080)")
	cmd.Flags().BoolVar(&withDigest, "digest", false, "also post the scheduled status digest")
	return cmd
}

func runDashboard(cmd *cobra.Command, g *globalOpts, port int, withDigest bool) error {
	cfg, err := loadConfig(g.configPath)
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	senders, err := notify.Senders(cfg.Notify)
	if err != nil {
		return err
	}
	if g.location != "" {
		if err := st.SetLocationID(context.Background(), g.location); err != nil {
			return err
		}
	}

	toasts := notify.Multi{
		notify.Log{},
		notify.Recorder{Store: st},
		notify.Chat{Senders: senders, Source: "wapanel dashboard", Async: true},
	}
	client := api.New(api.Options{
		WhatsAppURL: cfg.API.WhatsAppURL,
		OpenAIURL:   cfg.API.OpenAIURL,
		Token:       cfg.API.Token,
		Timeout:     cfg.API.Timeout,
		Notifier:    toasts,
	})

	if port == 0 {
		port = cfg.Dashboard.Port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	if withDigest {
		loc := cfg.LocationID
		if loc == "" {
			loc, _ = st.LocationID(ctx)
		}
		switch {
		case len(senders) == 0:
			log.Printf("dashboard: digest enabled but no chat destination configured")
		case loc == "":
			log.Printf("dashboard: digest enabled but no location set")
		default:
			r := &digest.Runner{Lister: client, Senders: senders, LocationID: loc, Schedule: cfg.Digest.Schedule}
			go func() {
				if err := r.Run(ctx); err != nil {
					log.Printf("dashboard: %v", err)
				}
			}()
		}
	}

	return dashboard.Start(ctx, dashboard.StartOpts{
		Backend:  client,
		Prefs:    st,
		Notifier: toasts,
		QR:       cfg.QR,
		Port:     port,
		Out:      cmd.OutOrStdout(),
	})
}
