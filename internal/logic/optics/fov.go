package optics

import (
	"fmt"
	"math"
)

// FovResult holds the field of view of a camera system at a working distance.
type FovResult struct {
	HorizontalFOVDeg float64        `json:"horizontal_fov_deg"`
	VerticalFOVDeg   float64        `json:"vertical_fov_deg"`
	HorizontalFOVM   float64        `json:"horizontal_fov_m"` // linear coverage at DistanceM
	VerticalFOVM     float64        `json:"vertical_fov_m"`
	HorizontalPPM    float64        `json:"horizontal_ppm"` // pixels per meter at DistanceM
	VerticalPPM      float64        `json:"vertical_ppm"`
	DistanceM        float64        `json:"distance_m"`
	Dori             *DoriDistances `json:"dori,omitempty"`
}

func (r FovResult) String() string {
	return fmt.Sprintf("FOV: %.2f° × %.2f° (%.3f × %.3f m @ %.2f m)\nResolution: %.1f × %.1f px/m",
		r.HorizontalFOVDeg, r.VerticalFOVDeg,
		r.HorizontalFOVM, r.VerticalFOVM, r.DistanceM,
		r.HorizontalPPM, r.VerticalPPM)
}

// AngularFOVDeg returns the angular field of view in degrees for one sensor axis.
// Formula: FOV = 2 × arctan(sensor / (2 × focal_length))
func AngularFOVDeg(sensorMm, focalLengthMm float64) float64 {
	return 2.0 * math.Atan(sensorMm/(2.0*focalLengthMm)) * 180.0 / math.Pi
}

// LinearFOV returns the linear coverage at distance for an angular FOV.
// The result is in the unit of distance.
// Formula: FOV_linear = 2 × distance × tan(FOV / 2)
func LinearFOV(distance, fovDeg float64) float64 {
	return 2.0 * distance * math.Tan(fovDeg*math.Pi/180.0/2.0)
}

// CalculateFOV computes angular and linear field of view and spatial
// resolution of camera at distanceMm, including its DORI distances.
func CalculateFOV(camera CameraSystem, distanceMm float64) FovResult {
	hDeg := AngularFOVDeg(camera.SensorWidthMm, camera.FocalLengthMm)
	vDeg := AngularFOVDeg(camera.SensorHeightMm, camera.FocalLengthMm)

	hM := LinearFOV(distanceMm, hDeg) / 1000.0
	vM := LinearFOV(distanceMm, vDeg) / 1000.0

	dori := DoriFromCamera(camera)
	return FovResult{
		HorizontalFOVDeg: hDeg,
		VerticalFOVDeg:   vDeg,
		HorizontalFOVM:   hM,
		VerticalFOVM:     vM,
		HorizontalPPM:    float64(camera.PixelWidth) / hM,
		VerticalPPM:      float64(camera.PixelHeight) / vM,
		DistanceM:        distanceMm / 1000.0,
		Dori:             &dori,
	}
}

// CalculateMultipleFOV runs CalculateFOV for each camera at the same distance.
func CalculateMultipleFOV(cameras []CameraSystem, distanceMm float64) []FovResult {
	results := make([]FovResult, 0, len(cameras))
	for _, c := range cameras {
		results = append(results, CalculateFOV(c, distanceMm))
	}
	return results
}

// Compare pairs every camera with its FOV result at distanceMm.
func Compare(cameras []CameraSystem, distanceMm float64) []CameraWithResult {
	out := make([]CameraWithResult, 0, len(cameras))
	for _, c := range cameras {
		out = append(out, CameraWithResult{Camera: c, Result: CalculateFOV(c, distanceMm)})
	}
	return out
}

// FocalLengthFromFOV returns the focal length giving fovDeg on a sensor
// dimension of sensorMm (width for horizontal FOV, height for vertical).
// Formula: focal = (sensor / 2) / tan(FOV / 2)
func FocalLengthFromFOV(sensorMm, fovDeg float64) float64 {
	fovRad := fovDeg * math.Pi / 180.0
	return (sensorMm / 2.0) / math.Tan(fovRad/2.0)
}
