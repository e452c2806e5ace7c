package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cjeanneret/camoptics/internal/config"
	"github.com/cjeanneret/camoptics/internal/logic/dori"
	"github.com/cjeanneret/camoptics/internal/logic/optics"
)

func newTestConfig() *config.Config {
	return &config.Config{
		Defaults: config.DefaultsConfig{
			DistanceMm:         5000,
			CoCMm:              0.03,
			FNumber:            8,
			OverlapPercent:     30,
			HorizontalAngleDeg: 180,
			VerticalAngleDeg:   30,
		},
		Web: config.WebConfig{Port: 8080},
	}
}

func runCmd(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), cfg, args[0], args[1:], &out)
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCmd(t, newTestConfig(), args...)
	if err != nil {
		t.Fatalf("%v: unexpected error: %v\n%s", args, err, out)
	}
	return out
}

func assertContains(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

// ---------- run ----------

func TestRun_UnknownCommand(t *testing.T) {
	if _, err := runCmd(t, newTestConfig(), "zoom"); err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestRun_ExtraArguments(t *testing.T) {
	if _, err := runCmd(t, newTestConfig(), "fov", "extra"); err == nil {
		t.Error("expected error for positional arguments")
	}
}

func TestRun_BadFlag(t *testing.T) {
	if _, err := runCmd(t, newTestConfig(), "ranges", "-focal", "-3"); err == nil {
		t.Error("expected error for negative -focal")
	}
}

func TestFOV_DefaultCamera(t *testing.T) {
	out := mustRun(t, "fov", "-distance", "10000")
	assertContains(t, out, "Full Frame - 50mm", "39.60°", "Distance:   10.00 m", "OK: no issues found")
}

func TestFOV_ChangedCameraDropsName(t *testing.T) {
	out := mustRun(t, "fov", "-focal", "85")
	if strings.Contains(out, "Full Frame - 50mm") {
		t.Errorf("modified camera should not keep the preset name:\n%s", out)
	}
	assertContains(t, out, "85 mm lens")
}

func TestFOV_InvalidCamera(t *testing.T) {
	if _, err := runCmd(t, newTestConfig(), "fov", "-pixel-width", "0"); err == nil {
		t.Error("expected error for zero pixel width")
	}
}

func TestHyperfocal(t *testing.T) {
	assertContains(t, mustRun(t, "hyperfocal", "-focal", "50"), "10466.7 mm")
}

func TestDOF_BeyondHyperfocal(t *testing.T) {
	assertContains(t, mustRun(t, "dof", "-distance", "20000", "-focal", "50"), "Far limit:  ∞")
}

func TestCompare(t *testing.T) {
	out := mustRun(t, "compare", "-presets")
	assertContains(t, out, "Full Frame - 50mm", "APS-C - 35mm", "Micro 4/3 - 25mm")

	cfg := newTestConfig()
	cfg.Presets = []optics.CameraSystem{optics.NewCameraSystem(6.4, 4.8, 1920, 1440, 4).WithName("CCTV")}
	out, err := runCmd(t, cfg, "compare")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "CCTV") || strings.Contains(out, "APS-C") {
		t.Errorf("compare should use the config presets:\n%s", out)
	}
}

func TestFocalLength(t *testing.T) {
	assertContains(t, mustRun(t, "focal-length", "-fov", "39.6"), "36.00 mm: 50.00 mm")
	assertContains(t, mustRun(t, "focal-length", "-fov", "26.99", "-vertical"), "vertical on 24.00 mm: 50.00 mm")
	if _, err := runCmd(t, newTestConfig(), "focal-length"); err == nil {
		t.Error("expected error without -fov")
	}
}

func TestDori(t *testing.T) {
	// 50 × 6000 / (36 × 250)
	assertContains(t, mustRun(t, "dori"), "33.33")
}

func TestDoriFrom(t *testing.T) {
	assertContains(t, mustRun(t, "dori-from", "-distance", "25", "-type", "observation"), "62.50", "6.25")
	if _, err := runCmd(t, newTestConfig(), "dori-from"); err == nil {
		t.Error("expected error without -distance")
	}
}

func TestRanges(t *testing.T) {
	out := mustRun(t, "ranges",
		"-identification", "10", "-fov", "8", "-sensor-width", "4.2", "-pixel-width", "6000")
	assertContains(t, out, "identification at 10.00 m", "30.03", "3.15", "4500")
}

func TestRanges_NoTarget(t *testing.T) {
	_, err := runCmd(t, newTestConfig(), "ranges", "-focal", "25")
	if !errors.Is(err, dori.ErrNoTarget) {
		t.Errorf("err = %v, want dori.ErrNoTarget", err)
	}
}

func TestValidate(t *testing.T) {
	mustRun(t, "validate")
	out, err := runCmd(t, newTestConfig(), "validate", "-sensor-width", "0.5")
	if err == nil {
		t.Error("expected error for implausible sensor")
	}
	assertContains(t, out, "[ERROR]")

	for _, d := range []string{"0", "-5"} {
		if _, err := runCmd(t, newTestConfig(), "validate", "-distance", d); err == nil {
			t.Errorf("-distance %s: expected error", d)
		}
	}
}

func TestCoverage(t *testing.T) {
	assertContains(t, mustRun(t, "coverage"), "Frames:")
	if _, err := runCmd(t, newTestConfig(), "coverage", "-overlap", "100"); err == nil {
		t.Error("expected error for 100% overlap")
	}
}

func TestPresets_FromConfig(t *testing.T) {
	out := mustRun(t, "presets")
	if got := strings.Count(out, "\n"); got != len(optics.Presets()) {
		t.Errorf("%d lines, want %d:\n%s", got, len(optics.Presets()), out)
	}
	if _, err := runCmd(t, newTestConfig(), "presets", "-seed"); err == nil {
		t.Error("-seed without a database should fail")
	}
}

func TestBot_RequiresToken(t *testing.T) {
	if _, err := runCmd(t, newTestConfig(), "bot"); err == nil {
		t.Error("expected error without a token")
	}
}

// ---------- optFloat / optInt ----------

func TestOptFloat(t *testing.T) {
	var o optFloat
	if o.String() != "" {
		t.Errorf("unset String() = %q, want empty", o.String())
	}
	if err := o.Set("2.5"); err != nil {
		t.Fatalf("Set(2.5) error: %v", err)
	}
	if o.v == nil || *o.v != 2.5 || o.String() != "2.5" {
		t.Errorf("after Set: %v", o.String())
	}
	for _, bad := range []string{"0", "-1", "NaN", "Inf", "abc"} {
		if err := (&optFloat{}).Set(bad); err == nil {
			t.Errorf("Set(%q) should fail", bad)
		}
	}
}

func TestOptInt(t *testing.T) {
	var o optInt
	if err := o.Set("1920"); err != nil {
		t.Fatalf("Set(1920) error: %v", err)
	}
	if o.v == nil || *o.v != 1920 || o.String() != "1920" {
		t.Errorf("after Set: %v", o.String())
	}
	for _, bad := range []string{"0", "-5", "12.5", "x"} {
		if err := (&optInt{}).Set(bad); err == nil {
			t.Errorf("Set(%q) should fail", bad)
		}
	}
}

// ---------- portFlag ----------

func TestPortFlag_EmptyString(t *testing.T) {
	p := &portFlag{defaultPort: 8080}
	if err := p.Set(""); err != nil {
		t.Fatalf("Set(\"\") error: %v", err)
	}
	if p.port() != 8080 {
		t.Errorf("expected default port 8080, got %d", p.port())
	}
}

func TestPortFlag_UnsetUsesDefault(t *testing.T) {
	p := &portFlag{defaultPort: 9000}
	if p.port() != 9000 {
		t.Errorf("port() = %d, want 9000", p.port())
	}
}

func TestPortFlag_ValidPorts(t *testing.T) {
	cases := []struct {
		input string
		want  int
	}{
		{"8080", 8080},
		{"1", 1},
		{"65535", 65535},
		{"3000", 3000},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			p := &portFlag{defaultPort: 8080}
			if err := p.Set(tc.input); err != nil {
				t.Fatalf("Set(%q) error: %v", tc.input, err)
			}
			if p.port() != tc.want {
				t.Errorf("port() = %d, want %d", p.port(), tc.want)
			}
		})
	}
}

func TestPortFlag_InvalidPorts(t *testing.T) {
	cases := []string{"0", "65536", "-1", "abc", "8080.5"}
	for _, input := range cases {
		t.Run(input, func(t *testing.T) {
			p := &portFlag{defaultPort: 8080}
			if err := p.Set(input); err == nil {
				t.Errorf("Set(%q) should fail, got nil", input)
			}
		})
	}
}

func TestPortFlag_String(t *testing.T) {
	p := &portFlag{}
	if s := p.String(); s != "0" {
		t.Errorf("String() = %q, want \"0\"", s)
	}
	p.val = 9090
	if s := p.String(); s != "9090" {
		t.Errorf("String() = %q, want \"9090\"", s)
	}
}
