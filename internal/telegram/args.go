package telegram

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cjeanneret/camoptics/internal/logic/dori"
	"github.com/cjeanneret/camoptics/internal/logic/optics"
)

// parseFloats parses every argument as a positive finite number.
func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(strings.ReplaceAll(a, ",", "."), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", a)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return nil, fmt.Errorf("%q must be a positive number", a)
		}
		out[i] = v
	}
	return out, nil
}

// pixelCount rounds v to a pixel count between 1 and MaxInt32.
func pixelCount(v float64) (int, error) {
	n := math.Round(v)
	if n < 1 || n > math.MaxInt32 {
		return 0, fmt.Errorf("pixel count must be between 1 and %d, got %g", math.MaxInt32, v)
	}
	return int(n), nil
}

// parseCamera reads "sensor_w sensor_h px_w px_h focal [distance_mm]".
// With no arguments it returns def and distance 0.
func parseCamera(args []string, def optics.CameraSystem) (optics.CameraSystem, float64, error) {
	if len(args) == 0 {
		return def, 0, nil
	}
	if len(args) != 5 && len(args) != 6 {
		return optics.CameraSystem{}, 0, fmt.Errorf("expected 5 or 6 values, got %d", len(args))
	}
	v, err := parseFloats(args)
	if err != nil {
		return optics.CameraSystem{}, 0, err
	}
	pw, err := pixelCount(v[2])
	if err != nil {
		return optics.CameraSystem{}, 0, err
	}
	ph, err := pixelCount(v[3])
	if err != nil {
		return optics.CameraSystem{}, 0, err
	}
	cam := optics.NewCameraSystem(v[0], v[1], pw, ph, v[4])
	var distance float64
	if len(v) == 6 {
		distance = v[5]
	}
	return cam, distance, nil
}

// rangeKeys maps the accepted /ranges keys to their setters.
var rangeKeys = map[string]func(t *dori.Targets, c *dori.Constraint, v float64){
	"det":    func(t *dori.Targets, _ *dori.Constraint, v float64) { t.DetectionM = dori.Float(v) },
	"obs":    func(t *dori.Targets, _ *dori.Constraint, v float64) { t.ObservationM = dori.Float(v) },
	"rec":    func(t *dori.Targets, _ *dori.Constraint, v float64) { t.RecognitionM = dori.Float(v) },
	"id":     func(t *dori.Targets, _ *dori.Constraint, v float64) { t.IdentificationM = dori.Float(v) },
	"sensor": func(_ *dori.Targets, c *dori.Constraint, v float64) { c.SensorWidthMm = dori.Float(v) },
	"sh":     func(_ *dori.Targets, c *dori.Constraint, v float64) { c.SensorHeightMm = dori.Float(v) },
	"px":     func(_ *dori.Targets, c *dori.Constraint, v float64) { c.PixelWidth = dori.Int(int(v)) },
	"ph":     func(_ *dori.Targets, c *dori.Constraint, v float64) { c.PixelHeight = dori.Int(int(v)) },
	"focal":  func(_ *dori.Targets, c *dori.Constraint, v float64) { c.FocalLengthMm = dori.Float(v) },
	"fov":    func(_ *dori.Targets, c *dori.Constraint, v float64) { c.HorizontalFOVDeg = dori.Float(v) },
}

var rangeAliases = map[string]string{
	"detection":      "det",
	"observation":    "obs",
	"recognition":    "rec",
	"identification": "id",
	"sw":             "sensor",
	"pw":             "px",
	"pixels":         "px",
	"f":              "focal",
}

// ParseRangesArgs reads "key=value" pairs such as "id=10 fov=60 focal=25".
// Targets: det, obs, rec, id (meters). Constraints: sensor, sh (mm),
// px, ph (pixels), focal (mm), fov (degrees).
func ParseRangesArgs(args []string) (dori.Targets, dori.Constraint, error) {
	var t dori.Targets
	var c dori.Constraint
	for _, a := range args {
		key, val, ok := strings.Cut(a, "=")
		if !ok {
			return t, c, fmt.Errorf("%q: expected key=value", a)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if alias, ok := rangeAliases[key]; ok {
			key = alias
		}
		set, ok := rangeKeys[key]
		if !ok {
			return t, c, fmt.Errorf("unknown key %q", key)
		}
		v, err := parseFloats([]string{val})
		if err != nil {
			return t, c, fmt.Errorf("%s: %w", key, err)
		}
		switch key {
		case "fov":
			if v[0] >= 180 {
				return t, c, fmt.Errorf("fov must be < 180")
			}
		case "px", "ph":
			n, err := pixelCount(v[0])
			if err != nil {
				return t, c, fmt.Errorf("%s: %w", key, err)
			}
			v[0] = float64(n)
		}
		set(&t, &c, v[0])
	}
	return t, c, nil
}
