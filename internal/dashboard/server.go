// Package dashboard serves the operator web UI: instance management, OpenAI
// credentials and assistants, sessions, and a live QR pairing page.
package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/zulandar/wapanel/internal/config"
	"github.com/zulandar/wapanel/internal/models"
	"github.com/zulandar/wapanel/internal/notify"
)

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	Backend  Backend
	Prefs    Prefs
	Notifier notify.Notifier // toasts raised by the dashboard itself
	QR       config.QRConfig
	Port     int
	Out      io.Writer
}

// server carries the dependencies shared by every handler.
type server struct {
	backend  Backend
	prefs    Prefs
	notifier notify.Notifier
	qr       config.QRConfig
	terms    template.HTML
	pollers  *pollerRegistry
}

// NewRouter builds the gin engine without starting a listener.
func NewRouter(opts StartOpts) (*gin.Engine, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("dashboard: backend is required")
	}
	if opts.Prefs == nil {
		return nil, fmt.Errorf("dashboard: prefs store is required")
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Log{}
	}

	terms, err := renderTerms()
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestID())
	router.SetHTMLTemplate(tmpl)

	s := &server{
		backend:  opts.Backend,
		prefs:    opts.Prefs,
		notifier: opts.Notifier,
		qr:       opts.QR,
		terms:    terms,
		pollers:  newPollerRegistry(),
	}
	registerRoutes(router, s)
	return router, nil
}

// Start launches the dashboard HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := NewRouter(opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dashboard running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

var templateFuncs = template.FuncMap{
	"mask": models.MaskKey,
	"stateClass": func(state string) string {
		switch state {
		case "open":
			return "ok"
		case "connecting":
			return "warn"
		case "":
			return "muted"
		default:
			return "bad"
		}
	},
	"short": func(s string, n int) string {
		r := []rune(s)
		if len(r) <= n {
			return s
		}
		return string(r[:n]) + "…"
	},
}

// parseTemplates loads the embedded HTML templates.
func parseTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// renderTerms converts the embedded terms Markdown to HTML.
func renderTerms() (template.HTML, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert(termsMarkdown, &buf); err != nil {
		return "", fmt.Errorf("render terms: %w", err)
	}
	return template.HTML(buf.String()), nil
}
