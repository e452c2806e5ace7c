package optics

import "strings"

// Standard DORI pixel densities (pixels per meter of scene).
const (
	DetectionPxPerM      = 25.0
	ObservationPxPerM    = 62.5
	RecognitionPxPerM    = 125.0
	IdentificationPxPerM = 250.0
)

// DefaultAspectRatio is used to derive heights from widths when none is given.
const DefaultAspectRatio = 4.0 / 3.0

// DoriCategory names one of the four DORI surveillance tasks.
type DoriCategory string

const (
	Detection      = DoriCategory("detection")      // an object is present
	Observation    = DoriCategory("observation")    // general characteristics
	Recognition    = DoriCategory("recognition")    // a familiar person or object
	Identification = DoriCategory("identification") // a specific person beyond reasonable doubt
)

// Categories lists DORI categories from least to most demanding.
var Categories = []DoriCategory{Detection, Observation, Recognition, Identification}

// ParseCategory maps s to a category, case-insensitively.
// Unknown strings map to Identification, the most restrictive one.
func ParseCategory(s string) DoriCategory {
	switch DoriCategory(strings.ToLower(strings.TrimSpace(s))) {
	case Detection:
		return Detection
	case Observation:
		return Observation
	case Recognition:
		return Recognition
	default:
		return Identification
	}
}

// PxPerMeter returns the pixel density the category requires.
func (c DoriCategory) PxPerMeter() float64 {
	switch c {
	case Detection:
		return DetectionPxPerM
	case Observation:
		return ObservationPxPerM
	case Recognition:
		return RecognitionPxPerM
	default:
		return IdentificationPxPerM
	}
}

// DoriDistances are the maximum distances (m) at which each DORI task
// is achievable. Always detection >= observation >= recognition >= identification.
type DoriDistances struct {
	DetectionM      float64 `json:"detection_m"`
	ObservationM    float64 `json:"observation_m"`
	RecognitionM    float64 `json:"recognition_m"`
	IdentificationM float64 `json:"identification_m"`
}

// Get returns the distance for category c.
func (d DoriDistances) Get(c DoriCategory) float64 {
	switch c {
	case Detection:
		return d.DetectionM
	case Observation:
		return d.ObservationM
	case Recognition:
		return d.RecognitionM
	default:
		return d.IdentificationM
	}
}

// DoriDistance returns the distance (m) at which camera reaches pxPerM.
// Formula: distance = (focal × pixel_width) / (sensor_width × px_per_m)
func DoriDistance(focalLengthMm float64, pixelWidth int, sensorWidthMm, pxPerM float64) float64 {
	return (focalLengthMm * float64(pixelWidth)) / (sensorWidthMm * pxPerM)
}

// DoriFromCamera computes the four DORI distances of camera.
func DoriFromCamera(camera CameraSystem) DoriDistances {
	at := func(pxPerM float64) float64 {
		return DoriDistance(camera.FocalLengthMm, camera.PixelWidth, camera.SensorWidthMm, pxPerM)
	}
	return DoriDistances{
		DetectionM:      at(DetectionPxPerM),
		ObservationM:    at(ObservationPxPerM),
		RecognitionM:    at(RecognitionPxPerM),
		IdentificationM: at(IdentificationPxPerM),
	}
}

// DoriFromSingle back-fills all four distances from one known distance.
// distance_target = distance_source × (px_per_m_source / px_per_m_target)
func DoriFromSingle(distanceM float64, category string) DoriDistances {
	return DoriFromCategory(distanceM, ParseCategory(category))
}

// DoriFromCategory is DoriFromSingle with an already parsed category.
func DoriFromCategory(distanceM float64, category DoriCategory) DoriDistances {
	base := category.PxPerMeter()
	return DoriDistances{
		DetectionM:      distanceM * (base / DetectionPxPerM),
		ObservationM:    distanceM * (base / ObservationPxPerM),
		RecognitionM:    distanceM * (base / RecognitionPxPerM),
		IdentificationM: distanceM * (base / IdentificationPxPerM),
	}
}
