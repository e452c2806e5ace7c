package optics

import (
	"fmt"
	"math"
)

// CoverageParams describes the sector to cover with adjacent frames.
type CoverageParams struct {
	HorizontalAngleDeg float64 `json:"horizontal_angle_deg"` // total horizontal angle (e.g. 360 for a full ring)
	VerticalAngleDeg   float64 `json:"vertical_angle_deg"`   // total vertical angle
	OverlapPercent     float64 `json:"overlap_percent"`      // overlap between neighbouring frames (0-100)
}

// CoveragePlan is the frame grid needed to cover a sector: how many
// fixed cameras (or pan/tilt stops) and the angle between each.
type CoveragePlan struct {
	Columns int `json:"columns"` // frames horizontally
	Rows    int `json:"rows"`    // frames vertically

	HorizontalStepDeg float64 `json:"horizontal_step_deg"` // rotation between columns
	VerticalStepDeg   float64 `json:"vertical_step_deg"`   // rotation between rows

	// Center of the first frame, relative to the sector center
	StartPanDeg  float64 `json:"start_pan_deg"`  // left (negative)
	StartTiltDeg float64 `json:"start_tilt_deg"` // top (positive)
}

// Frames returns the total number of frames in the plan.
func (p *CoveragePlan) Frames() int {
	return p.Columns * p.Rows
}

// RotationAngle returns the angle between two frames so that they share
// overlapRatio of their field of view.
// If overlap = 30%, then each frame covers 70% new content.
func RotationAngle(fovDeg, overlapRatio float64) float64 {
	return fovDeg * (1.0 - overlapRatio)
}

// PlanCoverage computes the frame grid camera needs to cover the sector in p.
func PlanCoverage(camera CameraSystem, p CoverageParams) (*CoveragePlan, error) {
	if p.OverlapPercent < 0 || p.OverlapPercent >= 100 {
		return nil, fmt.Errorf("overlap_percent must be in [0, 100), got %.2f", p.OverlapPercent)
	}
	if p.HorizontalAngleDeg <= 0 || p.HorizontalAngleDeg > 360 {
		return nil, fmt.Errorf("horizontal_angle_deg must be in (0, 360], got %.2f", p.HorizontalAngleDeg)
	}
	if p.VerticalAngleDeg <= 0 || p.VerticalAngleDeg > 180 {
		return nil, fmt.Errorf("vertical_angle_deg must be in (0, 180], got %.2f", p.VerticalAngleDeg)
	}

	overlap := p.OverlapPercent / 100.0
	hStep := RotationAngle(AngularFOVDeg(camera.SensorWidthMm, camera.FocalLengthMm), overlap)
	vStep := RotationAngle(AngularFOVDeg(camera.SensorHeightMm, camera.FocalLengthMm), overlap)

	// Round up to ensure we cover the entire angle
	columns := int(math.Ceil(p.HorizontalAngleDeg / hStep))
	rows := int(math.Ceil(p.VerticalAngleDeg / vStep))
	if columns < 1 {
		columns = 1
	}
	if rows < 1 {
		rows = 1
	}

	return &CoveragePlan{
		Columns:           columns,
		Rows:              rows,
		HorizontalStepDeg: hStep,
		VerticalStepDeg:   vStep,
		StartPanDeg:       -p.HorizontalAngleDeg / 2.0,
		StartTiltDeg:      p.VerticalAngleDeg / 2.0,
	}, nil
}
