// Package config loads knnviz settings from YAML.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"knnviz/internal/compute"
	"knnviz/internal/geom"
	"knnviz/internal/session"
	"knnviz/internal/surface"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the on-disk configuration. Fields missing from the file keep
// their Default values.
type Config struct {
	K             int           `yaml:"k"`
	Stride        int           `yaml:"stride"`
	StridePresets []int         `yaml:"stride_presets"`
	Debounce      time.Duration `yaml:"debounce"`
	Padding       float64       `yaml:"padding"`     // PNG export margin, pixels
	TUIPadding    float64       `yaml:"tui_padding"` // terminal canvas margin, half-cells
	Background    string        `yaml:"background"`
	Palette       []string      `yaml:"palette"`
	Workers       int           `yaml:"workers"` // rasterizer goroutines; 0 uses GOMAXPROCS
	Log           LogConfig     `yaml:"log"`
	Export        ExportConfig  `yaml:"export"`
	MetricsAddr   string        `yaml:"metrics_addr"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`
}

type ExportConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		K:             session.DefaultK,
		Stride:        4,
		StridePresets: []int{1, 4, 10},
		Debounce:      compute.DefaultDebounce,
		Padding:       geom.DefaultPadding,
		TUIPadding:    4,
		Background:    surface.Hex(surface.DefaultBackground),
		Palette:       append([]string(nil), surface.DefaultPalette...),
		Log:           LogConfig{Level: "info"},
		Export:        ExportConfig{Width: 800, Height: 600},
	}
}

// Load reads a YAML file over the defaults and validates the result. An
// empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML, creating the parent directory.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks every field and reports the first problem.
func (c Config) Validate() error {
	switch {
	case c.K < 1:
		return fmt.Errorf("%w: k must be >= 1, got %d", ErrInvalidConfig, c.K)
	case c.Stride < 1:
		return fmt.Errorf("%w: stride must be >= 1, got %d", ErrInvalidConfig, c.Stride)
	case c.Debounce < 0:
		return fmt.Errorf("%w: debounce must not be negative", ErrInvalidConfig)
	case c.Padding < 0 || c.TUIPadding < 0:
		return fmt.Errorf("%w: padding must not be negative", ErrInvalidConfig)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	case c.Export.Width < 1 || c.Export.Height < 1:
		return fmt.Errorf("%w: export size must be positive, got %dx%d", ErrInvalidConfig, c.Export.Width, c.Export.Height)
	case len(c.Palette) == 0:
		return fmt.Errorf("%w: palette is empty", ErrInvalidConfig)
	}
	for _, s := range c.StridePresets {
		if s < 1 {
			return fmt.Errorf("%w: stride preset must be >= 1, got %d", ErrInvalidConfig, s)
		}
	}
	if _, _, err := c.Colors(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Colors parses the palette and the background color.
func (c Config) Colors() (palette []color.RGBA, background color.RGBA, err error) {
	palette, err = surface.ParsePalette(c.Palette)
	if err != nil {
		return nil, color.RGBA{}, err
	}
	background, err = surface.ParseHex(c.Background)
	if err != nil {
		return nil, color.RGBA{}, fmt.Errorf("background: %w", err)
	}
	return palette, background, nil
}

// LogLevel returns the slog level for Log.Level, info when unset.
func (c Config) LogLevel() slog.Level {
	l, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
