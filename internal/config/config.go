package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"regionmark/internal/model"
)

const (
	defaultListen      = "127.0.0.1:8080"
	defaultTheme       = "dark"
	defaultRefreshCron = "*/15 * * * *"
	defaultHorizonDays = 7
	defaultBackfill    = 1
	defaultLogLevel    = "info"
	defaultCacheDir    = "./var/ics-cache"
	defaultPreviewPath = "./var/preview.png"
	defaultPreviewW    = 1200
	defaultPreviewH    = 360
	defaultMaxWindow   = 366
)

var (
	ErrEmptyPath = errors.New("config path is empty")
	ErrNilConfig = errors.New("config is nil")
)

// CalendarSource is an ICS feed whose events are highlighted as regions.
type CalendarSource struct {
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`

	Fill      bool   `yaml:"fill" json:"fill"`
	Line      bool   `yaml:"line" json:"line"`
	ColorMode string `yaml:"color_mode,omitempty" json:"color_mode,omitempty"`
	FillColor string `yaml:"fill_color,omitempty" json:"fill_color,omitempty"`
	LineColor string `yaml:"line_color,omitempty" json:"line_color,omitempty"`
}

// Key returns ID, falling back to Name and then URL.
func (c CalendarSource) Key() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Name != "":
		return c.Name
	default:
		return c.URL
	}
}

// PreviewConfig controls the captured PNG preview.
type PreviewConfig struct {
	// Output is where the PNG is written.
	Output string `yaml:"output" json:"output"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
	// Capture enables scheduled capture in serve mode.
	Capture bool `yaml:"capture" json:"capture"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Theme is the default chart theme colours are resolved for
	// ("dark" or "light").
	Theme string `yaml:"theme" json:"theme"`

	// RefreshCron is a standard 5-field cron spec driving calendar refetch
	// and preview capture in serve mode.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays / BackfillDays define the default query window around now.
	HorizonDays  int `yaml:"horizon_days" json:"horizon_days"`
	BackfillDays int `yaml:"backfill_days" json:"backfill_days"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// CacheDir holds per-feed ICS caches.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// Regions is the list of recurring time regions.
	Regions []model.TimeRegion `yaml:"regions" json:"regions"`

	// Calendars is the list of subscribed ICS feeds.
	Calendars []CalendarSource `yaml:"calendars" json:"calendars"`

	Preview PreviewConfig `yaml:"preview" json:"preview"`

	// MaxWindowDays caps the width of a requested query window.
	MaxWindowDays int `yaml:"max_window_days" json:"max_window_days"`

	// RateLimitPerMin limits API requests per client; 0 disables limiting.
	RateLimitPerMin int `yaml:"rate_limit_per_min" json:"rate_limit_per_min"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration with a single
// example region covering every night from 22:00 to 06:00.
func DefaultConfig() *Config {
	return &Config{
		Listen:       defaultListen,
		Theme:        defaultTheme,
		RefreshCron:  defaultRefreshCron,
		HorizonDays:  defaultHorizonDays,
		BackfillDays: defaultBackfill,
		LogLevel:     defaultLogLevel,
		CacheDir:     defaultCacheDir,
		Regions: []model.TimeRegion{
			{From: "22:00", To: "06:00", Fill: true, ColorMode: "gray"},
		},
		Calendars: []CalendarSource{},
		Preview: PreviewConfig{
			Output: defaultPreviewPath,
			Width:  defaultPreviewW,
			Height: defaultPreviewH,
		},
		MaxWindowDays: defaultMaxWindow,
		BasicAuth:     nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	switch c.Theme {
	case "dark", "light":
		// ok
	default:
		c.Theme = defaultTheme
	}

	// An unparseable schedule would stop serve mode from starting; fall back
	// to the default instead.
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		c.RefreshCron = defaultRefreshCron
	}

	if c.HorizonDays <= 0 {
		c.HorizonDays = defaultHorizonDays
	}
	if c.BackfillDays < 0 {
		c.BackfillDays = 0
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.Regions == nil {
		c.Regions = []model.TimeRegion{}
	}
	if c.Calendars == nil {
		c.Calendars = []CalendarSource{}
	}
	if c.Preview.Output == "" {
		c.Preview.Output = defaultPreviewPath
	}
	if c.Preview.Width <= 0 {
		c.Preview.Width = defaultPreviewW
	}
	if c.Preview.Height <= 0 {
		c.Preview.Height = defaultPreviewH
	}
	if c.MaxWindowDays <= 0 {
		c.MaxWindowDays = defaultMaxWindow
	}
	if c.RateLimitPerMin < 0 {
		c.RateLimitPerMin = 0
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return ErrEmptyPath
	}
	if cfg == nil {
		return ErrNilConfig
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".regionmark-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
