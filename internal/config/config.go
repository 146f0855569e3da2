// Package config loads the compositor and runtime settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// FontFiles points at the TrueType files making up one family.
type FontFiles struct {
	Regular    string `toml:"regular"`
	Bold       string `toml:"bold"`
	Italic     string `toml:"italic"`
	BoldItalic string `toml:"bold_italic"`
}

// Config holds every tunable of the compositor. Zero values are replaced by
// defaults in Load and Default.
type Config struct {
	SurfaceWidth  int `toml:"surface_width"`
	SurfaceHeight int `toml:"surface_height"`

	MinScale     float64 `toml:"min_scale"`
	MaxScale     float64 `toml:"max_scale"`
	FitRatio     float64 `toml:"fit_ratio"`
	WheelZoomIn  float64 `toml:"wheel_zoom_in"`
	WheelZoomOut float64 `toml:"wheel_zoom_out"`

	// Underline geometry, as fractions of the font size.
	UnderlineOffsetRatio float64 `toml:"underline_offset_ratio"`
	UnderlineWidthRatio  float64 `toml:"underline_width_ratio"`

	FillColor        string `toml:"fill_color"`
	DefaultTextColor string `toml:"default_text_color"`

	Fonts map[string]FontFiles `toml:"fonts"`

	HTTPTimeout Duration `toml:"http_timeout"`
	LogLevel    string   `toml:"log_level"`
}

// Duration wraps time.Duration so it can be written as "15s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the stock configuration: a 1000x1000 surface, zoom limited
// to [0.1, 5], 90% fit, and underlines at size/2 with width size/20.
func Default() Config {
	return Config{
		SurfaceWidth:         1000,
		SurfaceHeight:        1000,
		MinScale:             0.1,
		MaxScale:             5.0,
		FitRatio:             0.9,
		WheelZoomIn:          1.1,
		WheelZoomOut:         0.9,
		UnderlineOffsetRatio: 0.5,
		UnderlineWidthRatio:  1.0 / 20,
		FillColor:            "#F3F4F6",
		DefaultTextColor:     "#000000",
		HTTPTimeout:          Duration{15 * time.Second},
		LogLevel:             "info",
	}
}

// Load reads a TOML file on top of the defaults. A missing file is not an
// error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the configuration as TOML.
func (c Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// fillDefaults replaces zero values left by a partial file.
func (c *Config) fillDefaults() {
	d := Default()
	if c.SurfaceWidth == 0 {
		c.SurfaceWidth = d.SurfaceWidth
	}
	if c.SurfaceHeight == 0 {
		c.SurfaceHeight = d.SurfaceHeight
	}
	if c.MinScale == 0 {
		c.MinScale = d.MinScale
	}
	if c.MaxScale == 0 {
		c.MaxScale = d.MaxScale
	}
	if c.FitRatio == 0 {
		c.FitRatio = d.FitRatio
	}
	if c.WheelZoomIn == 0 {
		c.WheelZoomIn = d.WheelZoomIn
	}
	if c.WheelZoomOut == 0 {
		c.WheelZoomOut = d.WheelZoomOut
	}
	if c.UnderlineOffsetRatio == 0 {
		c.UnderlineOffsetRatio = d.UnderlineOffsetRatio
	}
	if c.UnderlineWidthRatio == 0 {
		c.UnderlineWidthRatio = d.UnderlineWidthRatio
	}
	if c.FillColor == "" {
		c.FillColor = d.FillColor
	}
	if c.DefaultTextColor == "" {
		c.DefaultTextColor = d.DefaultTextColor
	}
	if c.HTTPTimeout.Duration == 0 {
		c.HTTPTimeout = d.HTTPTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// Validate checks the invariants the compositor relies on.
func (c Config) Validate() error {
	if c.SurfaceWidth <= 0 || c.SurfaceHeight <= 0 {
		return fmt.Errorf("config: surface size must be positive, got %dx%d", c.SurfaceWidth, c.SurfaceHeight)
	}
	if c.MinScale <= 0 || c.MinScale >= c.MaxScale {
		return fmt.Errorf("config: need 0 < min_scale < max_scale, got %g and %g", c.MinScale, c.MaxScale)
	}
	if c.FitRatio <= 0 || c.FitRatio > 1 {
		return fmt.Errorf("config: fit_ratio must be in (0, 1], got %g", c.FitRatio)
	}
	if c.WheelZoomIn <= 1 || c.WheelZoomOut <= 0 || c.WheelZoomOut >= 1 {
		return fmt.Errorf("config: wheel factors must satisfy 0 < out < 1 < in, got %g and %g", c.WheelZoomOut, c.WheelZoomIn)
	}
	return nil
}
