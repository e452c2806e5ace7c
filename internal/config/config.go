package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cjeanneret/camoptics/internal/logic/optics"
)

// MaxConfigFileBytes bounds the size of a config file read by Load.
const MaxConfigFileBytes = 1 << 20

// DefaultsConfig contains the values used when a request omits them.
type DefaultsConfig struct {
	DistanceMm         float64 `yaml:"distance_mm"`          // working distance for fov / compare (default: 5000)
	CoCMm              float64 `yaml:"coc_mm"`               // circle of confusion (default: 0.03)
	FNumber            float64 `yaml:"f_number"`             // aperture for dof / hyperfocal (default: 8)
	OverlapPercent     float64 `yaml:"overlap_percent"`      // overlap between coverage frames (0-100)
	HorizontalAngleDeg float64 `yaml:"horizontal_angle_deg"` // sector to cover horizontally (default: 180°)
	VerticalAngleDeg   float64 `yaml:"vertical_angle_deg"`   // sector to cover vertically (default: 30°)
	DebugLevel         int     `yaml:"debug_level"`          // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
}

// WebConfig configures the HTTP server.
type WebConfig struct {
	Port int `yaml:"port"`
}

// TelegramConfig configures the bot. Token may come from TELEGRAM_BOT_TOKEN.
type TelegramConfig struct {
	Token          string `yaml:"token"`
	PollTimeoutSec int    `yaml:"poll_timeout_sec"`
	Debug          bool   `yaml:"debug"` // log raw bot API traffic
}

// DatabaseConfig points at the Postgres camera catalog. DSN may come from DATABASE_URL.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// Config aggregates all application configuration.
type Config struct {
	Defaults DefaultsConfig        `yaml:"defaults"`
	Camera   *optics.CameraSystem  `yaml:"camera,omitempty"` // optional
	Presets  []optics.CameraSystem `yaml:"presets,omitempty"`
	Web      WebConfig             `yaml:"web"`
	Telegram TelegramConfig        `yaml:"telegram"`
	Database DatabaseConfig        `yaml:"database"`
}

// ValidateConfigPath rejects anything but a .yaml file directly inside a
// "configs" directory, after cleaning, so a user-supplied path cannot
// escape it.
func ValidateConfigPath(path string) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("config path %q must not contain '..'", path)
		}
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q must have a .yaml extension", path)
	}
	abs, err := filepath.Abs(clean)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if parent := filepath.Base(filepath.Dir(abs)); parent != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", MaxConfigFileBytes)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) validate() error {
	d := c.Defaults
	if d.DistanceMm < 0 {
		return fmt.Errorf("distance_mm must be > 0, got %.2f", d.DistanceMm)
	}
	if d.CoCMm < 0 {
		return fmt.Errorf("coc_mm must be > 0, got %.4f", d.CoCMm)
	}
	if d.FNumber < 0 {
		return fmt.Errorf("f_number must be > 0, got %.2f", d.FNumber)
	}
	if d.OverlapPercent < 0 || d.OverlapPercent >= 100 {
		return fmt.Errorf("overlap_percent must be in [0, 100), got %.2f", d.OverlapPercent)
	}
	if d.HorizontalAngleDeg > 360 {
		return fmt.Errorf("horizontal_angle_deg must be <= 360, got %.2f", d.HorizontalAngleDeg)
	}
	if d.VerticalAngleDeg > 180 {
		return fmt.Errorf("vertical_angle_deg must be <= 180, got %.2f", d.VerticalAngleDeg)
	}
	if d.DebugLevel < 0 || d.DebugLevel > 4 {
		return fmt.Errorf("debug_level must be between 0 and 4, got %d", d.DebugLevel)
	}
	if c.Camera != nil {
		if err := validateCamera(*c.Camera); err != nil {
			return fmt.Errorf("camera: %w", err)
		}
	}
	seen := make(map[string]bool, len(c.Presets))
	for i, p := range c.Presets {
		if p.Name == "" {
			return fmt.Errorf("presets[%d]: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("presets[%d]: duplicate name %q", i, p.Name)
		}
		seen[p.Name] = true
		if err := validateCamera(p); err != nil {
			return fmt.Errorf("presets[%d] (%s): %w", i, p.Name, err)
		}
	}
	if c.Web.Port < 0 || c.Web.Port > 65535 {
		return fmt.Errorf("web.port must be between 1 and 65535, got %d", c.Web.Port)
	}
	return nil
}

func validateCamera(cam optics.CameraSystem) error {
	switch {
	case cam.SensorWidthMm <= 0 || cam.SensorHeightMm <= 0:
		return fmt.Errorf("sensor_width_mm and sensor_height_mm must be > 0")
	case cam.PixelWidth <= 0 || cam.PixelHeight <= 0:
		return fmt.Errorf("pixel_width and pixel_height must be > 0")
	case cam.FocalLengthMm <= 0:
		return fmt.Errorf("focal_length_mm must be > 0")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Defaults.DistanceMm == 0 {
		c.Defaults.DistanceMm = 5000 // 5 m
	}
	if c.Defaults.CoCMm == 0 {
		c.Defaults.CoCMm = optics.DefaultCoCMm
	}
	if c.Defaults.FNumber == 0 {
		c.Defaults.FNumber = 8
	}
	if c.Defaults.OverlapPercent == 0 {
		c.Defaults.OverlapPercent = 30 // reasonable default (30%)
	}
	if c.Defaults.HorizontalAngleDeg <= 0 {
		c.Defaults.HorizontalAngleDeg = 180 // default (180°)
	}
	if c.Defaults.VerticalAngleDeg <= 0 {
		c.Defaults.VerticalAngleDeg = 30 // default (30°)
	}
	if c.Web.Port == 0 {
		c.Web.Port = 8080
	}
	if c.Telegram.PollTimeoutSec <= 0 {
		c.Telegram.PollTimeoutSec = 60
	}
}

func (c *Config) applyEnv() {
	c.Telegram.Token = getEnv("TELEGRAM_BOT_TOKEN", c.Telegram.Token)
	c.Database.DSN = getEnv("DATABASE_URL", c.Database.DSN)
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// DistanceMm returns the default working distance in mm.
func (c *Config) DistanceMm() float64 {
	return c.Defaults.DistanceMm
}

// CoCMm returns the default circle of confusion in mm.
func (c *Config) CoCMm() float64 {
	return c.Defaults.CoCMm
}

// FNumber returns the default aperture.
func (c *Config) FNumber() float64 {
	return c.Defaults.FNumber
}

// Coverage returns the default coverage sector and overlap.
func (c *Config) Coverage() optics.CoverageParams {
	return optics.CoverageParams{
		HorizontalAngleDeg: c.Defaults.HorizontalAngleDeg,
		VerticalAngleDeg:   c.Defaults.VerticalAngleDeg,
		OverlapPercent:     c.Defaults.OverlapPercent,
	}
}

// DefaultCamera returns the configured camera, or the full frame preset
// when none is set.
func (c *Config) DefaultCamera() optics.CameraSystem {
	if c.Camera != nil {
		return *c.Camera
	}
	return optics.PresetFullFrame50
}

// PresetCameras returns the configured presets, or the built-in ones.
func (c *Config) PresetCameras() []optics.CameraSystem {
	if len(c.Presets) > 0 {
		return c.Presets
	}
	return optics.Presets()
}
