// Package dori derives the camera parameter ranges able to reach a DORI
// target distance, given whichever parameters are already fixed.
package dori

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/cjeanneret/camoptics/internal/logic/optics"
)

// Physical bounds applied to every derived range.
const (
	MinPixelWidth    = 640
	MaxPixelWidth    = 8192
	MinSensorWidthMm = 3.0
	MaxSensorWidthMm = 50.0
	MinFocalLengthMm = 2.0
	MaxFocalLengthMm = 400.0
)

// ErrNoTarget is returned when none of the four DORI targets is set.
var ErrNoTarget = errors.New("dori: at least one DORI target distance is required")

// Targets are the desired DORI distances in meters. Only the most
// demanding one present is used; DORI distances keep fixed ratios, so
// one defines the others.
type Targets struct {
	DetectionM      *float64 `json:"detection_m,omitempty"`
	ObservationM    *float64 `json:"observation_m,omitempty"`
	RecognitionM    *float64 `json:"recognition_m,omitempty"`
	IdentificationM *float64 `json:"identification_m,omitempty"`
}

// Constraint lists the parameters the caller has already fixed.
// A nil field is free.
type Constraint struct {
	SensorWidthMm    *float64 `json:"sensor_width_mm,omitempty"`
	SensorHeightMm   *float64 `json:"sensor_height_mm,omitempty"`
	PixelWidth       *int     `json:"pixel_width,omitempty"`
	PixelHeight      *int     `json:"pixel_height,omitempty"`
	FocalLengthMm    *float64 `json:"focal_length_mm,omitempty"`
	HorizontalFOVDeg *float64 `json:"horizontal_fov_deg,omitempty"`
}

// Range is a closed interval. Min == Max means the value is determined
// by the other parameters rather than free.
//
// JSON has no infinity, so non-finite bounds are written as the strings
// "Infinity", "-Infinity" and "NaN", which JavaScript's Number() accepts.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type rangeJSON struct {
	Min json.RawMessage `json:"min"`
	Max json.RawMessage `json:"max"`
}

func (r Range) MarshalJSON() ([]byte, error) {
	lo, err := encodeBound(r.Min)
	if err != nil {
		return nil, err
	}
	hi, err := encodeBound(r.Max)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rangeJSON{Min: lo, Max: hi})
}

func (r *Range) UnmarshalJSON(data []byte) error {
	var raw rangeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	lo, err := decodeBound(raw.Min)
	if err != nil {
		return fmt.Errorf("min: %w", err)
	}
	hi, err := decodeBound(raw.Max)
	if err != nil {
		return fmt.Errorf("max: %w", err)
	}
	r.Min, r.Max = lo, hi
	return nil
}

func encodeBound(v float64) (json.RawMessage, error) {
	switch {
	case math.IsNaN(v):
		return json.Marshal("NaN")
	case math.IsInf(v, 1):
		return json.Marshal("Infinity")
	case math.IsInf(v, -1):
		return json.Marshal("-Infinity")
	}
	return json.Marshal(v)
}

func decodeBound(data json.RawMessage) (float64, error) {
	if len(data) == 0 {
		return 0, nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, err
		}
		switch s {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		return 0, fmt.Errorf("unexpected bound %q", s)
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func point(v float64) *Range { return &Range{Min: v, Max: v} }

// Determined reports whether r collapses to a single value.
func (r Range) Determined() bool {
	return approxEqual(r.Min, r.Max, 1e-9)
}

// Contains reports whether v lies within r, with a small relative slack
// on single-point ranges.
func (r Range) Contains(v float64) bool {
	if r.Determined() {
		return approxEqual(v, r.Min, 1e-9)
	}
	return v >= r.Min && v <= r.Max
}

func (r Range) scale(k float64) *Range {
	return &Range{Min: r.Min * k, Max: r.Max * k}
}

// Ranges holds one entry per parameter. A nil entry was fixed by the
// caller, or is the pixel width range suppressed when FOV, focal length
// and pixel width are all fixed.
type Ranges struct {
	SensorWidthMm    *Range `json:"sensor_width_mm,omitempty"`
	SensorHeightMm   *Range `json:"sensor_height_mm,omitempty"`
	PixelWidth       *Range `json:"pixel_width,omitempty"`
	PixelHeight      *Range `json:"pixel_height,omitempty"`
	FocalLengthMm    *Range `json:"focal_length_mm,omitempty"`
	HorizontalFOVDeg *Range `json:"horizontal_fov_deg,omitempty"`
}

// Target is the authoritative DORI requirement picked from Targets.
type Target struct {
	Category  optics.DoriCategory `json:"category"`
	DistanceM float64             `json:"distance_m"`
	PxPerM    float64             `json:"px_per_m"`
}

// SelectTarget picks the target the solver works from, preferring
// identification, then recognition, observation and detection.
func SelectTarget(t Targets) (Target, error) {
	pick := func(v *float64, c optics.DoriCategory) Target {
		return Target{Category: c, DistanceM: *v, PxPerM: c.PxPerMeter()}
	}
	switch {
	case t.IdentificationM != nil:
		return pick(t.IdentificationM, optics.Identification), nil
	case t.RecognitionM != nil:
		return pick(t.RecognitionM, optics.Recognition), nil
	case t.ObservationM != nil:
		return pick(t.ObservationM, optics.Observation), nil
	case t.DetectionM != nil:
		return pick(t.DetectionM, optics.Detection), nil
	}
	return Target{}, ErrNoTarget
}

// Distances back-fills all four DORI distances from t.
func (t Target) Distances() optics.DoriDistances {
	return optics.DoriFromCategory(t.DistanceM, t.Category)
}

// Float returns a pointer to v, for building Targets and Constraint literals.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

func approxEqual(a, b, relTol float64) bool {
	if a == b {
		return true
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return false
	}
	scale := math.Max(math.Abs(a), math.Abs(b))
	return math.Abs(a-b) <= relTol*scale
}
