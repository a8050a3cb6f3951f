package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/wapanel/internal/qr"
	"golang.org/x/term"
)

func newInstanceQRCmd(g *globalOpts) *cobra.Command {
	var (
		save    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "qr <name>",
		Short: "Pair a device by polling the login QR code",
		Long: "Polls the instance's QR code until the device connects. Each new code is written to --save " +
			"as an image; open it and scan it from WhatsApp > Linked devices.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, true, func(ctx context.Context, a *app, loc string) error {
				return runQR(ctx, cmd, a, loc, args[0], save, timeout)
			})
		},
	}

	cmd.Flags().StringVarP(&save, "save", "o", "qr.png", "file the current QR image is written to")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "give up after this long (0 waits forever)")
	return cmd
}

func runQR(ctx context.Context, cmd *cobra.Command, a *app, loc, name, save string, timeout time.Duration) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out := cmd.OutOrStdout()
	var connected atomic.Bool
	p, err := qr.New(qr.Options{
		Fetcher:         a.client,
		LocationID:      loc,
		InstanceName:    name,
		RefreshInterval: a.cfg.QR.RefreshInterval,
		StatusInterval:  a.cfg.QR.StatusInterval,
		CloseDelay:      a.cfg.QR.CloseDelay,
		Notifier:        a.console,
		OnConnected:     func() { connected.Store(true) },
		OnQRUpdated: func(code string) {
			if save == "" {
				return
			}
			if err := saveQRImage(save, code); err != nil {
				log.Printf("qr: %v", err)
			}
		},
	})
	if err != nil {
		return err
	}
	defer p.Close()

	snaps, unsubscribe := p.Subscribe()
	defer unsubscribe()
	go p.Run(ctx)

	live := isTerminal(out)
	var last string
	for snap := range snaps {
		if snap.Phase == qr.PhaseClosed {
			continue
		}
		line := statusLine(name, snap, live, save)
		switch {
		case live:
			fmt.Fprintf(out, "\r\033[K%s", line)
		case line != last:
			fmt.Fprintln(out, line)
		}
		last = line
		if snap.Retry && !snap.Loading {
			p.Close()
		}
	}
	if live {
		fmt.Fprintln(out)
	}

	switch {
	case connected.Load():
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("%s not connected: %w", name, context.Cause(ctx))
	default:
		return errors.New("no QR code available; run the command again to retry")
	}
}

// statusLine renders one snapshot. The countdown is only shown when the line
// is redrawn in place.
func statusLine(name string, s qr.Snapshot, countdown bool, save string) string {
	switch s.Phase {
	case qr.PhaseConnected:
		return fmt.Sprintf("%s: connected", name)
	case qr.PhaseFailed:
		return fmt.Sprintf("%s: no QR code (state %s)", name, orDash(s.State))
	case qr.PhaseIdle:
		return fmt.Sprintf("%s: requesting QR code...", name)
	}
	line := fmt.Sprintf("%s: scan the QR code", name)
	if save != "" && !s.ImageError {
		line += " in " + save
	}
	if s.ImageError {
		line += " (the backend sent an undisplayable code)"
	}
	if countdown {
		if s.Loading {
			line += " · refreshing..."
		} else {
			line += fmt.Sprintf(" · refresh in %ds", s.SecondsLeft)
		}
	}
	return line
}

func saveQRImage(path, code string) error {
	raw, _, err := qr.Decode(code)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
