package optics

import "math"

// DefaultCoCMm is the full-frame circle of confusion.
const DefaultCoCMm = 0.03

// Hyperfocal returns the hyperfocal distance in mm.
// Formula: H = f² / (N × c) + f
func Hyperfocal(focalLengthMm, fNumber, cocMm float64) float64 {
	return (focalLengthMm*focalLengthMm)/(fNumber*cocMm) + focalLengthMm
}

// DOFResult holds depth of field limits in mm. FarMm and TotalMm are
// +Inf when the subject is at or beyond the hyperfocal distance.
type DOFResult struct {
	NearMm  float64 `json:"near_mm"`
	FarMm   float64 `json:"far_mm"`
	TotalMm float64 `json:"total_dof_mm"`
}

// DepthOfField computes the near and far limits of acceptable sharpness
// for a subject at distanceMm.
func DepthOfField(distanceMm, focalLengthMm, fNumber, cocMm float64) DOFResult {
	h := Hyperfocal(focalLengthMm, fNumber, cocMm)
	s := distanceMm

	// Dn = (H × s) / (H + (s - f))
	near := (h * s) / (h + (s - focalLengthMm))

	// Df = (H × s) / (H - (s - f))
	far := math.Inf(1)
	if s < h {
		far = (h * s) / (h - (s - focalLengthMm))
	}

	return DOFResult{NearMm: near, FarMm: far, TotalMm: far - near}
}
