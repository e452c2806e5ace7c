package optics

import (
	"fmt"
	"math"
)

// Severity of a validation warning.
type Severity string

const (
	SeverityWarning = Severity("warning") // unusual but possible
	SeverityError   = Severity("error")   // physically implausible
)

// Warning is a non-fatal finding about a camera system or a result.
type Warning struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func warnf(sev Severity, format string, args ...interface{}) Warning {
	return Warning{Message: fmt.Sprintf(format, args...), Severity: sev}
}

// HasErrors reports whether any warning has SeverityError.
func HasErrors(warnings []Warning) bool {
	for _, w := range warnings {
		if w.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Aspect ratios and pixel pitches may differ by this much before we complain.
const aspectTolerance = 0.05

// Validate checks the camera against realistic physical ranges.
// Mismatched sensor and pixel aspect ratios are reported, never corrected.
func (c CameraSystem) Validate() []Warning {
	var w []Warning

	// Sensor dimensions (typical range: 1-100mm)
	if c.SensorWidthMm < 1.0 {
		w = append(w, warnf(SeverityError, "Sensor width (%.2f mm) is unrealistically small", c.SensorWidthMm))
	}
	if c.SensorWidthMm > 100.0 {
		w = append(w, warnf(SeverityWarning, "Sensor width (%.2f mm) is unrealistically large", c.SensorWidthMm))
	}
	if c.SensorHeightMm < 1.0 {
		w = append(w, warnf(SeverityError, "Sensor height (%.2f mm) is unrealistically small", c.SensorHeightMm))
	}
	if c.SensorHeightMm > 100.0 {
		w = append(w, warnf(SeverityWarning, "Sensor height (%.2f mm) is unrealistically large", c.SensorHeightMm))
	}

	// Focal length (typical range: 1-2000mm)
	if c.FocalLengthMm < 1.0 {
		w = append(w, warnf(SeverityError, "Focal length (%.2f mm) is unrealistically short", c.FocalLengthMm))
	}
	if c.FocalLengthMm > 2000.0 {
		w = append(w, warnf(SeverityWarning, "Focal length (%.0f mm) is extremely long", c.FocalLengthMm))
	}

	// Resolution (typical range: 100-50000 pixels)
	if c.PixelWidth < 100 {
		w = append(w, warnf(SeverityError, "Pixel width (%d px) is unrealistically low", c.PixelWidth))
	}
	if c.PixelWidth > 50000 {
		w = append(w, warnf(SeverityWarning, "Pixel width (%d px) is unrealistically high", c.PixelWidth))
	}
	if c.PixelHeight < 100 {
		w = append(w, warnf(SeverityError, "Pixel height (%d px) is unrealistically low", c.PixelHeight))
	}
	if c.PixelHeight > 50000 {
		w = append(w, warnf(SeverityWarning, "Pixel height (%d px) is unrealistically high", c.PixelHeight))
	}

	// Pixel pitch (typical range: 0.5-20 µm)
	hPitch, vPitch := c.PixelPitchUm()
	if hPitch < 0.5 {
		w = append(w, warnf(SeverityError, "Horizontal pixel pitch (%.2f µm) is unrealistically small", hPitch))
	}
	if hPitch > 20.0 {
		w = append(w, warnf(SeverityWarning, "Horizontal pixel pitch (%.2f µm) is unusually large", hPitch))
	}
	if vPitch < 0.5 {
		w = append(w, warnf(SeverityError, "Vertical pixel pitch (%.2f µm) is unrealistically small", vPitch))
	}
	if vPitch > 20.0 {
		w = append(w, warnf(SeverityWarning, "Vertical pixel pitch (%.2f µm) is unusually large", vPitch))
	}

	sensorAspect, pixelAspect := c.AspectRatio()
	if diff := math.Abs(sensorAspect-pixelAspect) / sensorAspect; diff > aspectTolerance {
		w = append(w, warnf(SeverityError,
			"Sensor aspect ratio (%.3f:1) doesn't match pixel aspect ratio (%.3f:1) - difference: %.1f%%",
			sensorAspect, pixelAspect, diff*100.0))
	}

	// Square pixels
	if diff := math.Abs(hPitch-vPitch) / hPitch; diff > aspectTolerance {
		w = append(w, warnf(SeverityWarning,
			"Pixels are not square: horizontal pitch (%.2f µm) differs from vertical pitch (%.2f µm) by %.1f%%",
			hPitch, vPitch, diff*100.0))
	}

	return w
}

// Validate checks a FOV result for physically implausible values.
func (r FovResult) Validate() []Warning {
	var w []Warning

	if r.HorizontalFOVDeg > 180.0 {
		w = append(w, warnf(SeverityError, "Horizontal FOV (%.1f°) exceeds 180° - physically impossible", r.HorizontalFOVDeg))
	}
	if r.HorizontalFOVDeg < 0.1 {
		w = append(w, warnf(SeverityWarning, "Horizontal FOV (%.2f°) is extremely narrow - may be unrealistic", r.HorizontalFOVDeg))
	}
	if r.VerticalFOVDeg > 180.0 {
		w = append(w, warnf(SeverityError, "Vertical FOV (%.1f°) exceeds 180° - physically impossible", r.VerticalFOVDeg))
	}
	if r.VerticalFOVDeg < 0.1 {
		w = append(w, warnf(SeverityWarning, "Vertical FOV (%.2f°) is extremely narrow - may be unrealistic", r.VerticalFOVDeg))
	}

	if r.HorizontalPPM > 100000.0 || r.VerticalPPM > 100000.0 {
		w = append(w, warnf(SeverityWarning, "Pixels per meter (%.1f × %.1f px/m) is unrealistically high", r.HorizontalPPM, r.VerticalPPM))
	}
	if r.HorizontalPPM < 0.001 || r.VerticalPPM < 0.001 {
		w = append(w, warnf(SeverityWarning, "Pixels per meter (%.6f × %.6f px/m) is unrealistically low", r.HorizontalPPM, r.VerticalPPM))
	}

	if d := r.Dori; d != nil {
		if d.DetectionM < 0.1 || d.DetectionM > 10000.0 {
			w = append(w, warnf(SeverityWarning, "Detection distance (%.0f m) seems unrealistic", d.DetectionM))
		}
		if d.DetectionM < d.ObservationM {
			w = append(w, warnf(SeverityError, "Detection distance should be greater than Observation distance"))
		}
		if d.ObservationM < d.RecognitionM {
			w = append(w, warnf(SeverityError, "Observation distance should be greater than Recognition distance"))
		}
		if d.RecognitionM < d.IdentificationM {
			w = append(w, warnf(SeverityError, "Recognition distance should be greater than Identification distance"))
		}
	}

	return w
}
