// Package report renders optics and DORI results as plain text for the
// CLI and the Telegram bot.
package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cjeanneret/camoptics/internal/logic/dori"
	"github.com/cjeanneret/camoptics/internal/logic/optics"
)

// Infinity is how unbounded values are shown.
const Infinity = "∞"

// Input marks a parameter the caller fixed.
const Input = "input"

// Num formats v with the given number of decimals, or Infinity.
func Num(v float64, decimals int) string {
	switch {
	case math.IsInf(v, 1):
		return Infinity
	case math.IsInf(v, -1):
		return "-" + Infinity
	case math.IsNaN(v):
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// Meters formats a distance given in mm as meters.
func Meters(mm float64) string {
	return Num(mm/1000.0, 2) + " m"
}

// Range renders a solver range: a single value when determined,
// "min – max" otherwise, and Input when r is nil because the parameter
// was fixed.
func Range(r *dori.Range, fixed bool, decimals int) string {
	if r == nil {
		if fixed {
			return Input
		}
		return "n/a"
	}
	if r.Determined() {
		return Num(r.Min, decimals)
	}
	return Num(r.Min, decimals) + " – " + Num(r.Max, decimals)
}

// Camera renders a one-line camera summary.
func Camera(c optics.CameraSystem) string {
	return c.String()
}

// FOV renders a FOV result with its DORI distances.
func FOV(r optics.FovResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Distance:   %s m\n", Num(r.DistanceM, 2))
	fmt.Fprintf(&b, "FOV:        %s° × %s°\n", Num(r.HorizontalFOVDeg, 2), Num(r.VerticalFOVDeg, 2))
	fmt.Fprintf(&b, "Coverage:   %s × %s m\n", Num(r.HorizontalFOVM, 3), Num(r.VerticalFOVM, 3))
	fmt.Fprintf(&b, "Resolution: %s × %s px/m\n", Num(r.HorizontalPPM, 1), Num(r.VerticalPPM, 1))
	if r.Dori != nil {
		b.WriteString(Dori(*r.Dori))
	}
	return b.String()
}

// Dori renders the four DORI distances, most distant first.
func Dori(d optics.DoriDistances) string {
	var b strings.Builder
	b.WriteString("DORI distances:\n")
	for _, c := range optics.Categories {
		fmt.Fprintf(&b, "  %-15s %8s m  (%g px/m)\n", c+":", Num(d.Get(c), 2), c.PxPerMeter())
	}
	return b.String()
}

// Hyperfocal renders a hyperfocal distance given in mm.
func Hyperfocal(mm float64) string {
	return fmt.Sprintf("Hyperfocal distance: %s (%s mm)\n", Meters(mm), Num(mm, 1))
}

// DOF renders depth of field limits.
func DOF(r optics.DOFResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Near limit: %s\n", Meters(r.NearMm))
	fmt.Fprintf(&b, "Far limit:  %s\n", farMeters(r.FarMm))
	fmt.Fprintf(&b, "Total DOF:  %s\n", farMeters(r.TotalMm))
	return b.String()
}

func farMeters(mm float64) string {
	if math.IsInf(mm, 1) {
		return Infinity
	}
	return Meters(mm)
}

// Compare renders a table of cameras side by side.
func Compare(rows []optics.CameraWithResult) string {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CAMERA\tH FOV\tV FOV\tCOVERAGE (m)\tPX/M\tDETECT (m)\tIDENTIFY (m)")
	for _, r := range rows {
		name := r.Camera.Name
		if name == "" {
			name = "Unnamed"
		}
		fmt.Fprintf(tw, "%s\t%s°\t%s°\t%s × %s\t%s\t%s\t%s\n",
			name,
			Num(r.Result.HorizontalFOVDeg, 1), Num(r.Result.VerticalFOVDeg, 1),
			Num(r.Result.HorizontalFOVM, 2), Num(r.Result.VerticalFOVM, 2),
			Num(r.Result.HorizontalPPM, 0),
			Num(doriOf(r.Result).DetectionM, 1), Num(doriOf(r.Result).IdentificationM, 1))
	}
	tw.Flush()
	return b.String()
}

func doriOf(r optics.FovResult) optics.DoriDistances {
	if r.Dori == nil {
		return optics.DoriDistances{}
	}
	return *r.Dori
}

// Ranges renders solver output, one parameter per line. c tells which
// parameters were fixed so that absent ones show as Input.
func Ranges(target dori.Target, r dori.Ranges, c dori.Constraint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target: %s at %s m (%g px/m)\n", target.Category, Num(target.DistanceM, 2), target.PxPerM)

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	line := func(name, unit, value string) {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", name, value, unit)
	}
	line("Focal length", "mm", Range(r.FocalLengthMm, c.FocalLengthMm != nil, 2))
	line("Sensor width", "mm", Range(r.SensorWidthMm, c.SensorWidthMm != nil, 2))
	line("Sensor height", "mm", Range(r.SensorHeightMm, c.SensorHeightMm != nil, 2))
	line("Pixel width", "px", Range(r.PixelWidth, c.PixelWidth != nil, 0))
	line("Pixel height", "px", Range(r.PixelHeight, c.PixelHeight != nil, 0))
	line("Horizontal FOV", "°", Range(r.HorizontalFOVDeg, c.HorizontalFOVDeg != nil, 2))
	tw.Flush()

	if conflicts := r.Conflicts(c, 1e-6); len(conflicts) > 0 {
		b.WriteString("Inputs disagree with the target:\n")
		for _, x := range conflicts {
			fmt.Fprintf(&b, "  %s\n", x)
		}
	}
	return b.String()
}

// Coverage renders a coverage plan.
func Coverage(p *optics.CoveragePlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Frames:     %d (%d columns × %d rows)\n", p.Frames(), p.Columns, p.Rows)
	fmt.Fprintf(&b, "Step:       %s° horizontal, %s° vertical\n", Num(p.HorizontalStepDeg, 2), Num(p.VerticalStepDeg, 2))
	fmt.Fprintf(&b, "First frame: pan %s°, tilt %s°\n", Num(p.StartPanDeg, 1), Num(p.StartTiltDeg, 1))
	return b.String()
}

// Warnings renders validation findings, or "OK" when there are none.
func Warnings(ws []optics.Warning) string {
	if len(ws) == 0 {
		return "OK: no issues found\n"
	}
	var b strings.Builder
	for _, w := range ws {
		fmt.Fprintf(&b, "[%s] %s\n", strings.ToUpper(string(w.Severity)), w.Message)
	}
	return b.String()
}
