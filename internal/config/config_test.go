package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cjeanneret/camoptics/internal/logic/optics"
)

// ---------- ValidateConfigPath ----------

func TestValidateConfigPath_Valid(t *testing.T) {
	// Create a real configs/ directory so filepath.Abs resolves correctly.
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "default.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ValidateConfigPath(path); err != nil {
		t.Errorf("expected valid path, got error: %v", err)
	}
}

func TestValidateConfigPath_PathTraversal(t *testing.T) {
	cases := []string{
		"../../etc/passwd",
		"configs/../../../etc/shadow",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for traversal path %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_WrongExtension(t *testing.T) {
	cases := []string{
		"configs/default.json",
		"configs/default.yml",
		"configs/default.txt",
		"configs/default",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for extension in %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_NotInConfigsDir(t *testing.T) {
	cases := []string{
		"other/default.yaml",
		"default.yaml",
		"/tmp/default.yaml",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for path outside configs/ %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_EmptyPath(t *testing.T) {
	if err := ValidateConfigPath(""); err == nil {
		t.Error("expected error for empty path, got nil")
	}
}

func TestValidateConfigPath_VeryLongPath(t *testing.T) {
	long := "configs/" + strings.Repeat("a", 1000) + ".yaml"
	// Should not panic; error or success is OS-dependent, but must not crash.
	_ = ValidateConfigPath(long)
}

func TestValidateConfigPath_SpecialChars(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name    string
		wantErr bool
	}{
		{"con fig.yaml", false},
		{"café.yaml", false},
	}
	for _, tc := range cases {
		path := filepath.Join(cfgDir, tc.name)
		err := ValidateConfigPath(path)
		if tc.wantErr && err == nil {
			t.Errorf("expected error for %q, got nil", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("unexpected error for %q: %v", tc.name, err)
		}
	}
}

func TestValidateConfigPath_DoubleTraversal(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	// Try to escape via ../../configs/ok.yaml; filepath.Clean resolves this
	// and the parent must still be "configs".
	path := filepath.Join(cfgDir, "../../configs/ok.yaml")
	err := ValidateConfigPath(path)
	// After Clean the parent may or may not be "configs" depending on resolution.
	// The important thing is it either succeeds with a valid parent or fails.
	_ = err
}

// ---------- Load ----------

// writeConfig creates a temporary configs/ dir with the given YAML content and returns the path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "test.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validYAML = `
defaults:
  distance_mm: 10000
  coc_mm: 0.02
  f_number: 5.6
  overlap_percent: 25.0
  horizontal_angle_deg: 360.0
  vertical_angle_deg: 60.0
  debug_level: 0
camera:
  name: "Nikon D90 - 35mm"
  sensor_width_mm: 23.6
  sensor_height_mm: 15.8
  pixel_width: 4288
  pixel_height: 2848
  focal_length_mm: 35.0
presets:
  - name: "CCTV 1/2.8in - 4mm"
    sensor_width_mm: 6.4
    sensor_height_mm: 4.8
    pixel_width: 1920
    pixel_height: 1440
    focal_length_mm: 4.0
web:
  port: 9090
telegram:
  token: "from-file"
database:
  dsn: "postgres://camoptics@localhost/camoptics"
`

func TestLoad_ValidFullConfig(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("DATABASE_URL", "")
	path := writeConfig(t, validYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DistanceMm() != 10000 {
		t.Errorf("distance_mm = %v, want 10000", cfg.DistanceMm())
	}
	if cfg.CoCMm() != 0.02 {
		t.Errorf("coc_mm = %v, want 0.02", cfg.CoCMm())
	}
	if cfg.FNumber() != 5.6 {
		t.Errorf("f_number = %v, want 5.6", cfg.FNumber())
	}
	if cfg.Camera == nil {
		t.Fatal("camera should not be nil")
	}
	if cfg.Camera.SensorWidthMm != 23.6 || cfg.Camera.PixelWidth != 4288 {
		t.Errorf("camera = %+v", *cfg.Camera)
	}
	if got := cfg.DefaultCamera().Name; got != "Nikon D90 - 35mm" {
		t.Errorf("DefaultCamera().Name = %q", got)
	}
	if len(cfg.PresetCameras()) != 1 || cfg.PresetCameras()[0].FocalLengthMm != 4.0 {
		t.Errorf("PresetCameras() = %+v", cfg.PresetCameras())
	}
	if cfg.Web.Port != 9090 {
		t.Errorf("web.port = %d, want 9090", cfg.Web.Port)
	}
	if cfg.Telegram.Token != "from-file" {
		t.Errorf("telegram.token = %q, want from-file", cfg.Telegram.Token)
	}
	if cfg.Database.DSN != "postgres://camoptics@localhost/camoptics" {
		t.Errorf("database.dsn = %q", cfg.Database.DSN)
	}
	cov := cfg.Coverage()
	if cov.HorizontalAngleDeg != 360 || cov.VerticalAngleDeg != 60 || cov.OverlapPercent != 25 {
		t.Errorf("Coverage() = %+v", cov)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("DATABASE_URL", "postgres://env")
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Errorf("telegram.token = %q, want from-env", cfg.Telegram.Token)
	}
	if cfg.Database.DSN != "postgres://env" {
		t.Errorf("database.dsn = %q, want postgres://env", cfg.Database.DSN)
	}
}

func TestLoad_InvalidCamera(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"zero_focal", `
camera:
  sensor_width_mm: 36
  sensor_height_mm: 24
  pixel_width: 6000
  pixel_height: 4000
  focal_length_mm: 0
`},
		{"negative_sensor", `
camera:
  sensor_width_mm: -1
  sensor_height_mm: 24
  pixel_width: 6000
  pixel_height: 4000
  focal_length_mm: 50
`},
		{"missing_pixels", `
camera:
  sensor_width_mm: 36
  sensor_height_mm: 24
  focal_length_mm: 50
`},
		{"unnamed_preset", `
presets:
  - sensor_width_mm: 36
    sensor_height_mm: 24
    pixel_width: 6000
    pixel_height: 4000
    focal_length_mm: 50
`},
		{"duplicate_preset", `
presets:
  - {name: a, sensor_width_mm: 36, sensor_height_mm: 24, pixel_width: 6000, pixel_height: 4000, focal_length_mm: 50}
  - {name: a, sensor_width_mm: 36, sensor_height_mm: 24, pixel_width: 6000, pixel_height: 4000, focal_length_mm: 85}
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoad_NegativeDistance(t *testing.T) {
	yaml := `
defaults:
  distance_mm: -10.0
`
	path := writeConfig(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for negative distance_mm, got nil")
	}
}

func TestLoad_DebugLevelOutOfRange(t *testing.T) {
	path := writeConfig(t, "defaults:\n  debug_level: 7\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for debug_level=7, got nil")
	}
}

func TestLoad_OverlapOutOfRange(t *testing.T) {
	cases := []struct {
		name    string
		overlap float64
	}{
		{"negative", -1.0},
		{"full", 100.0},
		{"over_100", 101.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			yaml := `
defaults:
  overlap_percent: ` + formatFloat(tc.overlap)
			path := writeConfig(t, yaml)
			_, err := Load(path)
			if err == nil {
				t.Errorf("expected error for overlap_percent=%v, got nil", tc.overlap)
			}
		})
	}
}

func TestLoad_HorizontalAngleTooLarge(t *testing.T) {
	yaml := `
defaults:
  horizontal_angle_deg: 361.0
`
	path := writeConfig(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for horizontal_angle_deg > 360, got nil")
	}
}

func TestLoad_VerticalAngleTooLarge(t *testing.T) {
	yaml := `
defaults:
  vertical_angle_deg: 181.0
`
	path := writeConfig(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for vertical_angle_deg > 180, got nil")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("DATABASE_URL", "")
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Defaults.DistanceMm != 5000 {
		t.Errorf("distance_mm default = %v, want 5000", cfg.Defaults.DistanceMm)
	}
	if cfg.Defaults.CoCMm != 0.03 {
		t.Errorf("coc_mm default = %v, want 0.03", cfg.Defaults.CoCMm)
	}
	if cfg.Defaults.FNumber != 8 {
		t.Errorf("f_number default = %v, want 8", cfg.Defaults.FNumber)
	}
	if cfg.Defaults.OverlapPercent != 30 {
		t.Errorf("overlap_percent default = %v, want 30", cfg.Defaults.OverlapPercent)
	}
	if cfg.Defaults.HorizontalAngleDeg != 180 {
		t.Errorf("horizontal_angle_deg default = %v, want 180", cfg.Defaults.HorizontalAngleDeg)
	}
	if cfg.Defaults.VerticalAngleDeg != 30 {
		t.Errorf("vertical_angle_deg default = %v, want 30", cfg.Defaults.VerticalAngleDeg)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("web.port default = %d, want 8080", cfg.Web.Port)
	}
	if cfg.Telegram.PollTimeoutSec != 60 {
		t.Errorf("telegram.poll_timeout_sec default = %d, want 60", cfg.Telegram.PollTimeoutSec)
	}
	if cfg.Camera != nil {
		t.Errorf("camera = %+v, want nil", cfg.Camera)
	}
	if got := cfg.DefaultCamera(); got != optics.PresetFullFrame50 {
		t.Errorf("DefaultCamera() = %+v, want full frame preset", got)
	}
	if got := len(cfg.PresetCameras()); got != len(optics.Presets()) {
		t.Errorf("len(PresetCameras()) = %d, want %d", got, len(optics.Presets()))
	}
}

func TestLoad_FileTooLarge(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "big.yaml")
	data := make([]byte, MaxConfigFileBytes+1)
	for i := range data {
		data[i] = '#'
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for oversized config file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "{{{{invalid yaml!!!!")
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for invalid YAML, got nil")
	}
}

func TestLoad_UnknownFields(t *testing.T) {
	yaml := `
defaults:
  distance_mm: 3000
unknown_section:
  foo: bar
`
	path := writeConfig(t, yaml)
	_, err := Load(path)
	if err != nil {
		t.Errorf("unknown fields should be ignored, got error: %v", err)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "nonexistent.yaml")
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for nonexistent file, got nil")
	}
}

// ---------- Helper methods ----------

func TestConfig_Accessors(t *testing.T) {
	cfg := &Config{Defaults: DefaultsConfig{DistanceMm: 2500, CoCMm: 0.015, FNumber: 2.8}}
	if got := cfg.DistanceMm(); got != 2500 {
		t.Errorf("DistanceMm() = %v, want 2500", got)
	}
	if got := cfg.CoCMm(); got != 0.015 {
		t.Errorf("CoCMm() = %v, want 0.015", got)
	}
	if got := cfg.FNumber(); got != 2.8 {
		t.Errorf("FNumber() = %v, want 2.8", got)
	}
}

// formatFloat is a test helper for embedding floats into YAML strings.
func formatFloat(f float64) string {
	return fmt.Sprintf("%g", f)
}
