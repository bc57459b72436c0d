package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"regionmark/internal/config"
	appLog "regionmark/internal/log"
	"regionmark/internal/model"
	"regionmark/internal/region"
)

const version = "0.1.0"

// Globals holds flags shared across all commands.
type Globals struct {
	Version  kong.VersionFlag `help:"Print version and exit." short:"v"`
	Config   string           `help:"Path to config file." short:"c" type:"path" default:"/etc/regionmark/config.yaml"`
	LogLevel string           `help:"Log level (debug, info, error). Overrides the config file." name:"log-level"`
}

// CLI is the root command structure for regionmark.
type CLI struct {
	Globals

	Serve    ServeCmd    `cmd:"" help:"Serve the HTTP API and refresh calendars on schedule."`
	Expand   ExpandCmd   `cmd:"" help:"Print computed regions for a window as JSON."`
	Export   ExportCmd   `cmd:"" help:"Write the configured rules as an iCalendar feed."`
	Snapshot SnapshotCmd `cmd:"" help:"Capture the preview page as a PNG once."`
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("regionmark"),
		kong.Description("Expand recurring time regions into UTC intervals for chart overlays."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)
	err := ctx.Run(&cli.Globals)
	appLog.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "regionmark:", err)
		os.Exit(1)
	}
}

// load reads the config file and applies the log level.
func (g *Globals) load() (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", g.Config, err)
	}
	level := cfg.LogLevel
	if g.LogLevel != "" {
		level = g.LogLevel
	}
	appLog.SetLevel(appLog.ParseLevel(level))

	appLog.Info("effective config",
		"config_path", g.Config,
		"listen", cfg.Listen,
		"theme", cfg.Theme,
		"refresh", cfg.RefreshCron,
		"horizon_days", cfg.HorizonDays,
		"backfill_days", cfg.BackfillDays,
		"regions", len(cfg.Regions),
		"calendars", len(cfg.Calendars),
	)
	return cfg, nil
}

// WindowFlags selects the query window. Empty bounds fall back to the
// configured backfill/horizon around now.
type WindowFlags struct {
	From string `help:"Window start: RFC3339, YYYY-MM-DD or epoch millis."`
	To   string `help:"Window end: RFC3339, YYYY-MM-DD or epoch millis."`
}

func (f WindowFlags) window(cfg *config.Config) (model.Window, error) {
	return resolveWindow(f.From, f.To, model.DefaultWindow(nowFunc(), cfg.BackfillDays, cfg.HorizonDays), cfg.MaxWindowDays)
}

func resolveWindow(from, to string, def model.Window, maxDays int) (model.Window, error) {
	w := def
	if from != "" {
		t, err := model.ParseInstant(from)
		if err != nil {
			return model.Window{}, fmt.Errorf("--from: %w", err)
		}
		w.From = t
	}
	if to != "" {
		t, err := model.ParseInstant(to)
		if err != nil {
			return model.Window{}, fmt.Errorf("--to: %w", err)
		}
		w.To = t
	}
	if err := region.ValidateWindowSpan(w, maxDays); err != nil {
		return model.Window{}, err
	}
	return w, nil
}
