package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"regionmark/internal/capture"
	"regionmark/internal/config"
	"regionmark/internal/ics"
	appLog "regionmark/internal/log"
	"regionmark/internal/model"
	"regionmark/internal/region"
	"regionmark/internal/web"
)

var nowFunc = time.Now

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// ServeCmd runs the HTTP API with a cron-driven refresh loop.
type ServeCmd struct {
	Listen string `help:"HTTP listen address (overrides config if set)."`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	if c.Listen != "" {
		cfg.Listen = c.Listen
	}

	ctx, stop := signalContext()
	defer stop()

	srv := web.NewServer(cfg)

	refresh := func() {
		if err := srv.RefreshCalendars(ctx); err != nil {
			appLog.Error("calendar refresh failed", err)
		}
		if cfg.Preview.Capture {
			if err := capturePreview(ctx, cfg, previewURL(cfg.Listen, ""), cfg.Preview.Output); err != nil {
				appLog.Error("scheduled preview capture failed", err)
			}
		}
	}

	sched := cron.New()
	if _, err := sched.AddFunc(cfg.RefreshCron, refresh); err != nil {
		return fmt.Errorf("schedule %q: %w", cfg.RefreshCron, err)
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	// Prime calendars without waiting for the first tick.
	go func() {
		if err := srv.RefreshCalendars(ctx); err != nil {
			appLog.Error("initial calendar refresh failed", err)
		}
	}()

	err = srv.ListenAndServe(ctx)
	appLog.Info("regionmark exiting")
	return err
}

// ExpandCmd prints the computed regions for a window.
type ExpandCmd struct {
	WindowFlags
	Theme string `help:"Chart theme (dark or light). Defaults to the config theme."`
}

func (c *ExpandCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	w, err := c.window(cfg)
	if err != nil {
		return err
	}
	theme := cfg.Theme
	if c.Theme != "" {
		theme = c.Theme
	}

	results, err := region.Compute(cfg.Regions, w, region.ParseTheme(theme))
	if err != nil {
		return err
	}
	return writeResults(os.Stdout, w, results)
}

func writeResults(out io.Writer, w model.Window, results []region.Result) error {
	u := w.UTC()
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		From    time.Time       `json:"from"`
		To      time.Time       `json:"to"`
		Regions []region.Result `json:"regions"`
	}{u.From, u.To, results})
}

// ExportCmd writes the iCalendar export.
type ExportCmd struct {
	WindowFlags
	Output string `help:"Output file; stdout when empty." short:"o" type:"path"`
}

func (c *ExportCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	w, err := c.window(cfg)
	if err != nil {
		return err
	}

	body, err := ics.ExportRules(region.NormalizeAll(cfg.Regions), w, nowFunc())
	if err != nil {
		return err
	}
	if c.Output == "" {
		_, err = io.WriteString(os.Stdout, body)
		return err
	}
	if err := os.WriteFile(c.Output, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", c.Output, err)
	}
	appLog.Info("export written", "output", c.Output, "rules", len(cfg.Regions))
	return nil
}

// SnapshotCmd captures the preview page once. Without --url it serves the
// page itself on an ephemeral loopback port.
type SnapshotCmd struct {
	WindowFlags
	URL    string `help:"Preview page to capture; an ephemeral server is used when empty." name:"url"`
	Output string `help:"PNG output path. Defaults to preview.output from config." short:"o" type:"path"`
}

func (c *SnapshotCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	output := c.Output
	if output == "" {
		output = cfg.Preview.Output
	}

	ctx, stop := signalContext()
	defer stop()

	target := c.URL
	if target == "" {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return err
		}
		srv := web.NewServer(cfg)
		if err := srv.RefreshCalendars(ctx); err != nil {
			appLog.Error("calendar refresh failed; capturing without some feeds", err)
		}

		serveCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- srv.Serve(serveCtx, ln) }()
		defer func() {
			cancel()
			<-done
		}()
		target = previewURL(ln.Addr().String(), c.query())
	}

	return capturePreview(ctx, cfg, target, output)
}

func (c *SnapshotCmd) query() string {
	q := url.Values{}
	if c.From != "" {
		q.Set("from", c.From)
	}
	if c.To != "" {
		q.Set("to", c.To)
	}
	return q.Encode()
}

func capturePreview(ctx context.Context, cfg *config.Config, target, output string) error {
	opts := capture.Options{
		URL:        target,
		OutputPath: output,
		Width:      cfg.Preview.Width,
		Height:     cfg.Preview.Height,
	}
	if ba := cfg.BasicAuth; ba != nil && ba.Username != "" && ba.Password != "" {
		token := base64.StdEncoding.EncodeToString([]byte(ba.Username + ":" + ba.Password))
		opts.Headers = map[string]string{"Authorization": "Basic " + token}
	}
	return capture.CapturePreviewPNG(ctx, opts)
}

// previewURL builds the /preview URL for a listen address, swapping
// wildcard hosts for loopback.
func previewURL(listen, rawQuery string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		host, port = listen, ""
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	u := url.URL{Scheme: "http", Host: host, Path: "/preview", RawQuery: rawQuery}
	if port != "" {
		u.Host = net.JoinHostPort(host, port)
	}
	return u.String()
}
