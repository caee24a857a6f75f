// Package config provides configuration management for the Seamline Agent.
// Configuration is loaded from environment variables (optionally seeded from a
// .env file) with sensible defaults; editor tunables may additionally be
// overridden from an optional YAML file in the data directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// Default values
	DefaultPort     = 8591
	DefaultLogLevel = "info"
	DefaultDataDir  = ".seamline"

	// Environment variable names
	EnvPort        = "SEAMLINE_PORT"
	EnvLogLevel    = "SEAMLINE_LOG_LEVEL"
	EnvDataDir     = "SEAMLINE_DATA_DIR"
	EnvAssetsDir   = "SEAMLINE_ASSETS_DIR"
	EnvExportURL   = "SEAMLINE_EXPORT_URL"
	EnvExportToken = "SEAMLINE_EXPORT_TOKEN"
	EnvHeadless    = "SEAMLINE_HEADLESS"

	// Database filename
	DBFilename = "seamline.db"

	// Editor tunables filename (optional, inside the data dir)
	EditorFilename = "editor.yaml"

	// Probe defaults
	DefaultProbeTimeout = 15 // seconds
)

// EditorTunables are the knobs of the timeline/player core a power user may
// override from editor.yaml. Zero values mean "use the built-in default".
type EditorTunables struct {
	TickIntervalMs      int     `yaml:"tick_interval_ms"`
	MinTrackSpanSec     float64 `yaml:"min_track_span_sec"`
	DefaultClipDuration float64 `yaml:"default_clip_duration_sec"`
	GestureRateHz       int     `yaml:"gesture_rate_hz"`
}

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	AssetsDir() string
	ExportURL() string
	ExportToken() string
	Headless() bool
	ProbeTimeout() time.Duration
	Editor() EditorTunables
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port        int
	logLevel    string
	dataDir     string
	assetsDir   string
	exportURL   string
	exportToken string
	headless    bool
	editor      EditorTunables
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	// Missing .env is not an error; the environment simply wins.
	_ = godotenv.Load()

	cfg := &EnvConfig{
		port:     DefaultPort,
		logLevel: DefaultLogLevel,
		dataDir:  defaultDataDir(),
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if ad := os.Getenv(EnvAssetsDir); ad != "" {
		cfg.assetsDir = ad
	}

	cfg.exportURL = os.Getenv(EnvExportURL)
	cfg.exportToken = os.Getenv(EnvExportToken)

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	if err := cfg.loadEditorTunables(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *EnvConfig) loadEditorTunables() error {
	path := filepath.Join(c.dataDir, EditorFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &c.editor); err != nil {
		return fmt.Errorf("invalid %s: %w", path, err)
	}
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// AssetsDir returns the directory generated assets are streamed from.
// Defaults to <data dir>/assets.
func (c *EnvConfig) AssetsDir() string {
	if c.assetsDir != "" {
		return c.assetsDir
	}
	return filepath.Join(c.dataDir, "assets")
}

// ExportURL returns the base URL of the external render backend, empty when
// remote export is not configured.
func (c *EnvConfig) ExportURL() string {
	return c.exportURL
}

// ExportToken returns the bearer token for the render backend
func (c *EnvConfig) ExportToken() string {
	return c.exportToken
}

// Headless reports whether the system tray should be skipped
func (c *EnvConfig) Headless() bool {
	return c.headless
}

// ProbeTimeout returns the per-asset duration probe timeout
func (c *EnvConfig) ProbeTimeout() time.Duration {
	return time.Duration(DefaultProbeTimeout) * time.Second
}

// Editor returns the editor tunables loaded from editor.yaml, if any
func (c *EnvConfig) Editor() EditorTunables {
	return c.editor
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
