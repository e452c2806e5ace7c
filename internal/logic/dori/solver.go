package dori

import (
	"math"

	"github.com/cjeanneret/camoptics/internal/debug"
	"github.com/cjeanneret/camoptics/internal/logic/optics"
)

// fixed records which of the four coupled parameters the caller supplied.
// Heights are not part of the key: they never drive the width solution.
type fixed struct {
	FOV, Focal, Sensor, Pixel bool
}

func keyOf(c Constraint) fixed {
	return fixed{
		FOV:    c.HorizontalFOVDeg != nil,
		Focal:  c.FocalLengthMm != nil,
		Sensor: c.SensorWidthMm != nil,
		Pixel:  c.PixelWidth != nil,
	}
}

// solver carries one Solve call: the target distance d (m), the
// required density p (px/m), the constraint and the ranges built so far.
type solver struct {
	d, p float64
	c    Constraint
	r    Ranges
}

// Solve derives the parameter ranges that reach the DORI target.
//
// Every free parameter gets a range clamped to the physical bounds, every
// parameter determined by the fixed ones gets a single-point range, and
// fixed parameters are left nil. Over-constrained input is not rejected:
// the dependent value is recomputed and reported, see Ranges.Conflicts.
func Solve(targets Targets, c Constraint) (Ranges, error) {
	target, err := SelectTarget(targets)
	if err != nil {
		return Ranges{}, err
	}
	s := &solver{d: target.DistanceM, p: target.PxPerM, c: c}
	key := keyOf(c)

	debug.Section("DORI Range Solver")
	debug.Verbose("Target: %s at %.2f m (%.1f px/m)", target.Category, target.DistanceM, target.PxPerM)
	debug.Verbose("Fixed: fov=%t focal=%t sensor=%t pixel=%t", key.FOV, key.Focal, key.Sensor, key.Pixel)

	switch key {
	// FOV fixed. FOV with focal length wins over a fixed sensor width.
	case fixed{FOV: true, Focal: true, Sensor: true, Pixel: true}:
		s.fovFocal()
	case fixed{FOV: true, Focal: true, Sensor: true, Pixel: false}:
		s.fovFocal()
	case fixed{FOV: true, Focal: true, Sensor: false, Pixel: true}:
		s.fovFocal()
	case fixed{FOV: true, Focal: true, Sensor: false, Pixel: false}:
		s.fovFocal()
	case fixed{FOV: true, Focal: false, Sensor: true, Pixel: true}:
		s.fovSensor()
	case fixed{FOV: true, Focal: false, Sensor: true, Pixel: false}:
		s.fovSensor()
	case fixed{FOV: true, Focal: false, Sensor: false, Pixel: true}:
		s.fovPixel()
	case fixed{FOV: true, Focal: false, Sensor: false, Pixel: false}:
		s.fovOnly()

	// FOV free.
	case fixed{FOV: false, Focal: true, Sensor: true, Pixel: true}:
		s.focalSensor()
	case fixed{FOV: false, Focal: true, Sensor: true, Pixel: false}:
		s.focalSensor()
	case fixed{FOV: false, Focal: true, Sensor: false, Pixel: true}:
		s.focalPixel()
	case fixed{FOV: false, Focal: true, Sensor: false, Pixel: false}:
		s.focalOnly()
	case fixed{FOV: false, Focal: false, Sensor: true, Pixel: true}:
		s.sensorPixel()
	case fixed{FOV: false, Focal: false, Sensor: true, Pixel: false}:
		s.sensorOnly()
	case fixed{FOV: false, Focal: false, Sensor: false, Pixel: true}:
		s.pixelOnly()
	case fixed{FOV: false, Focal: false, Sensor: false, Pixel: false}:
		s.unconstrained()
	}

	if !key.FOV {
		s.fovRange()
	}
	s.heights()

	s.trace()
	return s.r, nil
}

// ---------- FOV fixed ----------

// tanHalf returns tan(FOV/2) of the fixed FOV.
func (s *solver) tanHalf() float64 {
	return math.Tan(*s.c.HorizontalFOVDeg * math.Pi / 180.0 / 2.0)
}

// pixelsFor returns the pixel width range reaching the target with the
// given sensor width and focal length, or nil when pixel width is fixed.
func (s *solver) pixelsFor(sensor, focal float64) *Range {
	if s.c.PixelWidth != nil {
		return nil
	}
	return s.pixelRequirement(sensor, focal)
}

// pixelRequirement is the DORI pixel width requirement for a fixed
// sensor width and focal length.
func (s *solver) pixelRequirement(sensor, focal float64) *Range {
	need := s.d * sensor * s.p / focal
	return &Range{Min: math.Max(need, MinPixelWidth), Max: MaxPixelWidth}
}

func (s *solver) fovFocal() {
	focal := *s.c.FocalLengthMm
	sensor := 2.0 * focal * s.tanHalf()
	s.r.SensorWidthMm = point(sensor)
	s.r.PixelWidth = s.pixelsFor(sensor, focal)
}

func (s *solver) fovSensor() {
	sensor := *s.c.SensorWidthMm
	focal := sensor / (2.0 * s.tanHalf())
	s.r.FocalLengthMm = point(focal)
	s.r.PixelWidth = s.pixelsFor(sensor, focal)
}

// fovPixel keeps focal length inside the range where the sensor width
// implied by the FOV stays within its own bounds.
func (s *solver) fovPixel() {
	t := s.tanHalf()
	focal := Range{
		Min: math.Max(MinSensorWidthMm/(2.0*t), MinFocalLengthMm),
		Max: math.Min(MaxSensorWidthMm/(2.0*t), MaxFocalLengthMm),
	}
	s.r.FocalLengthMm = &focal
	s.r.SensorWidthMm = focal.scale(2.0 * t)
}

func (s *solver) fovOnly() {
	s.fovPixel()
	// focal cancels out: pixels = D × 2·tan(FOV/2) × P
	need := s.d * 2.0 * s.tanHalf() * s.p
	s.r.PixelWidth = &Range{Min: math.Max(need, MinPixelWidth), Max: MaxPixelWidth}
}

// ---------- FOV free ----------

// focalSensor always emits the pixel requirement, even for a fixed pixel
// width, so callers can compare it against the supplied value.
func (s *solver) focalSensor() {
	focal, sensor := *s.c.FocalLengthMm, *s.c.SensorWidthMm
	pixels := s.pixelRequirement(sensor, focal)
	s.r.PixelWidth = pixels
	s.r.HorizontalFOVDeg = point(optics.AngularFOVDeg(sensor, focal))
	if s.c.SensorHeightMm != nil {
		s.r.PixelHeight = pixels.scale(*s.c.SensorHeightMm / sensor)
	}
}

func (s *solver) focalPixel() {
	focal, pixels := *s.c.FocalLengthMm, float64(*s.c.PixelWidth)
	s.r.SensorWidthMm = point(focal * pixels / (s.d * s.p))
}

func (s *solver) focalOnly() {
	s.r.SensorWidthMm = &Range{Min: MinSensorWidthMm, Max: MaxSensorWidthMm}
	s.r.PixelWidth = &Range{Min: MinPixelWidth, Max: MaxPixelWidth}
}

func (s *solver) sensorPixel() {
	sensor, pixels := *s.c.SensorWidthMm, float64(*s.c.PixelWidth)
	need := s.d * sensor * s.p / pixels
	s.r.FocalLengthMm = &Range{Min: math.Max(need, MinFocalLengthMm), Max: MaxFocalLengthMm}
}

func (s *solver) sensorOnly() {
	s.r.FocalLengthMm = &Range{Min: MinFocalLengthMm, Max: MaxFocalLengthMm}
	s.r.PixelWidth = &Range{Min: MinPixelWidth, Max: MaxPixelWidth}
}

// pixelOnly bounds focal length by the sensor bounds and sensor width by
// the focal bounds, both through focal × pixels = D × sensor × P.
func (s *solver) pixelOnly() {
	pixels := float64(*s.c.PixelWidth)
	dp := s.d * s.p
	s.r.FocalLengthMm = &Range{
		Min: math.Max(dp*MinSensorWidthMm/pixels, MinFocalLengthMm),
		Max: math.Min(dp*MaxSensorWidthMm/pixels, MaxFocalLengthMm),
	}
	s.r.SensorWidthMm = &Range{
		Min: math.Max(MinFocalLengthMm*pixels/dp, MinSensorWidthMm),
		Max: math.Min(MaxFocalLengthMm*pixels/dp, MaxSensorWidthMm),
	}
}

func (s *solver) unconstrained() {
	s.r.FocalLengthMm = &Range{Min: MinFocalLengthMm, Max: MaxFocalLengthMm}
	s.r.SensorWidthMm = &Range{Min: MinSensorWidthMm, Max: MaxSensorWidthMm}
	s.r.PixelWidth = &Range{Min: MinPixelWidth, Max: MaxPixelWidth}
}

// ---------- derived ----------

// fovRange derives the FOV range from the sensor and focal ranges.
// The narrowest FOV pairs the smallest sensor with the longest lens.
func (s *solver) fovRange() {
	sensor, focal := s.r.SensorWidthMm, s.r.FocalLengthMm
	switch {
	case sensor != nil && focal != nil:
		s.r.HorizontalFOVDeg = &Range{
			Min: optics.AngularFOVDeg(sensor.Min, focal.Max),
			Max: optics.AngularFOVDeg(sensor.Max, focal.Min),
		}
	case s.c.FocalLengthMm != nil:
		if sensor != nil {
			f := *s.c.FocalLengthMm
			s.r.HorizontalFOVDeg = &Range{
				Min: optics.AngularFOVDeg(sensor.Min, f),
				Max: optics.AngularFOVDeg(sensor.Max, f),
			}
		}
	case s.c.SensorWidthMm != nil:
		if focal != nil {
			w := *s.c.SensorWidthMm
			s.r.HorizontalFOVDeg = &Range{
				Min: optics.AngularFOVDeg(w, focal.Max),
				Max: optics.AngularFOVDeg(w, focal.Min),
			}
		}
	}
}

// heights fills every non-fixed height from its width at the default
// 4:3 aspect ratio. This replaces a pixel height derived from the sensor
// aspect unless pixel height itself was fixed.
func (s *solver) heights() {
	const k = 1.0 / optics.DefaultAspectRatio

	if s.c.SensorHeightMm == nil {
		switch {
		case s.r.SensorWidthMm != nil:
			s.r.SensorHeightMm = s.r.SensorWidthMm.scale(k)
		case s.c.SensorWidthMm != nil:
			s.r.SensorHeightMm = point(*s.c.SensorWidthMm * k)
		}
	}

	if s.c.PixelHeight == nil {
		switch {
		case s.r.PixelWidth != nil:
			s.r.PixelHeight = s.r.PixelWidth.scale(k)
		case s.c.PixelWidth != nil:
			s.r.PixelHeight = point(float64(*s.c.PixelWidth) * k)
		}
	}
}

func (s *solver) trace() {
	if !debug.IsEnabled(debug.LevelVerbose) {
		return
	}
	show := func(name string, r *Range) {
		if r != nil {
			debug.Range(name, r.Min, r.Max)
		}
	}
	show("focal_length_mm", s.r.FocalLengthMm)
	show("sensor_width_mm", s.r.SensorWidthMm)
	show("sensor_height_mm", s.r.SensorHeightMm)
	show("pixel_width", s.r.PixelWidth)
	show("pixel_height", s.r.PixelHeight)
	show("horizontal_fov_deg", s.r.HorizontalFOVDeg)
}
