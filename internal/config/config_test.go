package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knnviz/internal/surface"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "knnviz.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.K)
	assert.Equal(t, 250*time.Millisecond, cfg.Debounce)
	assert.Equal(t, 60.0, cfg.Padding)

	pal, bg, err := cfg.Colors()
	require.NoError(t, err)
	assert.Len(t, pal, len(surface.DefaultPalette))
	assert.Equal(t, surface.DefaultBackground, bg)
}

func TestLoad_EmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesKeepDefaults(t *testing.T) {
	path := writeFile(t, `
k: 7
debounce: 100ms
palette: ["#ff0000", "#00ff00"]
log:
  level: debug
export:
  width: 320
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.K)
	assert.Equal(t, 100*time.Millisecond, cfg.Debounce)
	assert.Equal(t, []string{"#ff0000", "#00ff00"}, cfg.Palette)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
	assert.Equal(t, 320, cfg.Export.Width)
	// untouched fields keep their defaults
	assert.Equal(t, 600, cfg.Export.Height)
	assert.Equal(t, Default().Stride, cfg.Stride)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "k: [1, 2"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)

	_, err = Load(writeFile(t, "k: 0\n"))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Config)
	}{
		{"ZeroK", func(c *Config) { c.K = 0 }},
		{"ZeroStride", func(c *Config) { c.Stride = 0 }},
		{"BadPreset", func(c *Config) { c.StridePresets = []int{2, 0} }},
		{"NegativeDebounce", func(c *Config) { c.Debounce = -time.Second }},
		{"NegativePadding", func(c *Config) { c.TUIPadding = -1 }},
		{"NegativeWorkers", func(c *Config) { c.Workers = -2 }},
		{"EmptyPalette", func(c *Config) { c.Palette = nil }},
		{"BadPaletteColor", func(c *Config) { c.Palette = []string{"#gg0000"} }},
		{"BadBackground", func(c *Config) { c.Background = "black" }},
		{"BadExportSize", func(c *Config) { c.Export.Height = 0 }},
		{"BadLogLevel", func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mod(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestSave_ThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "knnviz.yaml")
	cfg := Default()
	cfg.K = 9
	cfg.MetricsAddr = ":9464"
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
