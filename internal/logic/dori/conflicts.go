package dori

import (
	"fmt"
	"math"
)

// Conflict is a fixed input that disagrees with the value the solver
// derived for the same parameter from the other inputs.
type Conflict struct {
	Field   string  `json:"field"`
	Fixed   float64 `json:"fixed"`
	Derived Range   `json:"derived"`
}

func (c Conflict) String() string {
	if c.Derived.Determined() {
		return fmt.Sprintf("%s: fixed %g, derived %g", c.Field, c.Fixed, c.Derived.Min)
	}
	return fmt.Sprintf("%s: fixed %g, derived [%g, %g]", c.Field, c.Fixed, c.Derived.Min, c.Derived.Max)
}

// Conflicts lists the parameters fixed in c for which r still carries a
// range that excludes the fixed value, widened by relTol on each side.
// An empty result means the inputs are consistent with the target.
func (r Ranges) Conflicts(c Constraint, relTol float64) []Conflict {
	var out []Conflict
	check := func(field string, fixed *float64, derived *Range) {
		if fixed == nil || derived == nil {
			return
		}
		lo := derived.Min - relTol*math.Abs(derived.Min)
		hi := derived.Max + relTol*math.Abs(derived.Max)
		if *fixed < lo || *fixed > hi {
			out = append(out, Conflict{Field: field, Fixed: *fixed, Derived: *derived})
		}
	}
	check("sensor_width_mm", c.SensorWidthMm, r.SensorWidthMm)
	check("sensor_height_mm", c.SensorHeightMm, r.SensorHeightMm)
	check("pixel_width", floatOf(c.PixelWidth), r.PixelWidth)
	check("pixel_height", floatOf(c.PixelHeight), r.PixelHeight)
	check("focal_length_mm", c.FocalLengthMm, r.FocalLengthMm)
	check("horizontal_fov_deg", c.HorizontalFOVDeg, r.HorizontalFOVDeg)
	return out
}

func floatOf(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
