package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"net/http"
	"time"

	"github.com/cjeanneret/camoptics/internal/debug"
	"github.com/cjeanneret/camoptics/internal/logic/dori"
	"github.com/cjeanneret/camoptics/internal/logic/optics"
)

// MaxBodyBytes bounds every JSON request body.
const MaxBodyBytes = 1 << 20

// PresetSource lists the cameras offered for comparison.
type PresetSource interface {
	List(ctx context.Context) ([]optics.CameraSystem, error)
}

// FormConfig holds default values for the web forms (from config).
type FormConfig struct {
	DistanceMm float64               `json:"distance_mm"`
	CoCMm      float64               `json:"coc_mm"`
	FNumber    float64               `json:"f_number"`
	Camera     optics.CameraSystem   `json:"camera"`
	Coverage   optics.CoverageParams `json:"coverage"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster  *StatusBroadcaster
	Presets      PresetSource
	FormDefaults FormConfig
	staticFS     fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// If presets is nil, GET /api/presets serves the built-in formats.
func NewHandlers(broadcaster *StatusBroadcaster, presets PresetSource, formDefaults FormConfig, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster:  broadcaster,
		Presets:      presets,
		FormDefaults: formDefaults,
		staticFS:     staticFS,
	}
}

// ---------- request types ----------

// FOVRequest is the body of POST /api/fov and POST /api/validate.
type FOVRequest struct {
	Camera     optics.CameraSystem `json:"camera"`
	DistanceMm float64             `json:"distance_mm"`
}

// CompareRequest is the body of POST /api/compare. No cameras means the presets.
type CompareRequest struct {
	Cameras    []optics.CameraSystem `json:"cameras"`
	DistanceMm float64               `json:"distance_mm"`
}

// DOFRequest is the body of POST /api/dof and POST /api/hyperfocal.
type DOFRequest struct {
	DistanceMm    float64 `json:"distance_mm"`
	FocalLengthMm float64 `json:"focal_length_mm"`
	FNumber       float64 `json:"f_number"`
	CoCMm         float64 `json:"coc_mm"`
}

// FocalLengthRequest is the body of POST /api/focal-length.
type FocalLengthRequest struct {
	SensorMm float64 `json:"sensor_mm"`
	FOVDeg   float64 `json:"fov_deg"`
}

// DoriSingleRequest is the body of POST /api/dori/single.
type DoriSingleRequest struct {
	DistanceM float64 `json:"distance_m"`
	Category  string  `json:"category"`
}

// RangesRequest is the body of POST /api/dori/ranges.
type RangesRequest struct {
	Targets     dori.Targets    `json:"targets"`
	Constraints dori.Constraint `json:"constraints"`
}

// CoverageRequest is the body of POST /api/coverage. Zero sector fields
// fall back to the configured defaults.
type CoverageRequest struct {
	Camera optics.CameraSystem `json:"camera"`
	optics.CoverageParams
}

// ---------- responses ----------

// FOVResponse pairs a result with its validation warnings.
type FOVResponse struct {
	Result   optics.FovResult `json:"result"`
	Warnings []optics.Warning `json:"warnings"`
}

// DOFResponse mirrors optics.DOFResult. JSON has no infinity, so an
// unbounded far limit is null with FarInfinite set.
type DOFResponse struct {
	NearMm       float64  `json:"near_mm"`
	FarMm        *float64 `json:"far_mm"`
	TotalMm      *float64 `json:"total_dof_mm"`
	FarInfinite  bool     `json:"far_infinite"`
	HyperfocalMm float64  `json:"hyperfocal_mm"`
}

// RangesResponse is the solver output with the chosen target and any
// fixed inputs that disagree with it.
type RangesResponse struct {
	Target    dori.Target          `json:"target"`
	Distances optics.DoriDistances `json:"distances"`
	Ranges    dori.Ranges          `json:"ranges"`
	Conflicts []dori.Conflict      `json:"conflicts"`
}

// ValidateResponse lists the findings for a camera.
type ValidateResponse struct {
	Warnings  []optics.Warning `json:"warnings"`
	HasErrors bool             `json:"has_errors"`
}

// ---------- validation ----------

func checkPositive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s must be a finite number", name)
	}
	if v <= 0 {
		return fmt.Errorf("%s must be > 0", name)
	}
	return nil
}

// ValidateCamera rejects cameras the formulas cannot use.
// Implausible but positive values are left to optics.CameraSystem.Validate.
func ValidateCamera(c optics.CameraSystem) error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"sensor_width_mm", c.SensorWidthMm},
		{"sensor_height_mm", c.SensorHeightMm},
		{"pixel_width", float64(c.PixelWidth)},
		{"pixel_height", float64(c.PixelHeight)},
		{"focal_length_mm", c.FocalLengthMm},
	} {
		if err := checkPositive(f.name, f.v); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRangesRequest checks that the targets and fixed parameters are usable.
// A request without any target is reported separately as dori.ErrNoTarget.
func ValidateRangesRequest(req RangesRequest) error {
	floats := []struct {
		name string
		v    *float64
	}{
		{"targets.detection_m", req.Targets.DetectionM},
		{"targets.observation_m", req.Targets.ObservationM},
		{"targets.recognition_m", req.Targets.RecognitionM},
		{"targets.identification_m", req.Targets.IdentificationM},
		{"constraints.sensor_width_mm", req.Constraints.SensorWidthMm},
		{"constraints.sensor_height_mm", req.Constraints.SensorHeightMm},
		{"constraints.focal_length_mm", req.Constraints.FocalLengthMm},
	}
	for _, f := range floats {
		if f.v == nil {
			continue
		}
		if err := checkPositive(f.name, *f.v); err != nil {
			return err
		}
	}
	if v := req.Constraints.PixelWidth; v != nil && *v <= 0 {
		return errors.New("constraints.pixel_width must be > 0")
	}
	if v := req.Constraints.PixelHeight; v != nil && *v <= 0 {
		return errors.New("constraints.pixel_height must be > 0")
	}
	if v := req.Constraints.HorizontalFOVDeg; v != nil {
		if err := checkPositive("constraints.horizontal_fov_deg", *v); err != nil {
			return err
		}
		if *v >= 180 {
			return errors.New("constraints.horizontal_fov_deg must be < 180")
		}
	}
	return nil
}

// ---------- helpers ----------

// decodeJSON reads a size-limited JSON body into v. It writes the error
// response itself and reports whether the handler should continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, "request body too large", http.StatusBadRequest)
			return false
		}
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		debug.Error(fmt.Errorf("encode response: %w", err))
		http.Error(w, "cannot encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func (h *Handlers) distanceOrDefault(mm float64) float64 {
	if mm == 0 {
		return h.FormDefaults.DistanceMm
	}
	return mm
}

// ---------- handlers ----------

// HandleConfig returns the form default values (from config) as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.FormDefaults)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleHealth answers GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// HandleFOV handles POST /api/fov.
func (h *Handlers) HandleFOV(w http.ResponseWriter, r *http.Request) {
	var req FOVRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := ValidateCamera(req.Camera); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	distance := h.distanceOrDefault(req.DistanceMm)
	if err := checkPositive("distance_mm", distance); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := optics.CalculateFOV(req.Camera, distance)
	cr := optics.CameraWithResult{Camera: req.Camera, Result: result}
	debug.Live("FOV: %s -> %.2f° × %.2f°", req.Camera, result.HorizontalFOVDeg, result.VerticalFOVDeg)
	writeJSON(w, http.StatusOK, FOVResponse{Result: result, Warnings: nonNil(cr.Validate())})
}

// HandleCompare handles POST /api/compare.
func (h *Handlers) HandleCompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cams := req.Cameras
	if len(cams) == 0 {
		var err error
		if cams, err = h.listPresets(r.Context()); err != nil {
			debug.Error(err)
			http.Error(w, "preset catalog unavailable", http.StatusBadGateway)
			return
		}
	}
	for i, c := range cams {
		if err := ValidateCamera(c); err != nil {
			http.Error(w, fmt.Sprintf("cameras[%d]: %v", i, err), http.StatusBadRequest)
			return
		}
	}
	distance := h.distanceOrDefault(req.DistanceMm)
	if err := checkPositive("distance_mm", distance); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	debug.Live("Compare: %d cameras at %.0f mm", len(cams), distance)
	writeJSON(w, http.StatusOK, optics.Compare(cams, distance))
}

func (h *Handlers) dofInputs(req *DOFRequest, needDistance bool) error {
	if req.FNumber == 0 {
		req.FNumber = h.FormDefaults.FNumber
	}
	if req.CoCMm == 0 {
		req.CoCMm = h.FormDefaults.CoCMm
	}
	if needDistance {
		req.DistanceMm = h.distanceOrDefault(req.DistanceMm)
		if err := checkPositive("distance_mm", req.DistanceMm); err != nil {
			return err
		}
	}
	if err := checkPositive("focal_length_mm", req.FocalLengthMm); err != nil {
		return err
	}
	if err := checkPositive("f_number", req.FNumber); err != nil {
		return err
	}
	return checkPositive("coc_mm", req.CoCMm)
}

// HandleHyperfocal handles POST /api/hyperfocal.
func (h *Handlers) HandleHyperfocal(w http.ResponseWriter, r *http.Request) {
	var req DOFRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.dofInputs(&req, false); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	hyper := optics.Hyperfocal(req.FocalLengthMm, req.FNumber, req.CoCMm)
	writeJSON(w, http.StatusOK, map[string]float64{"hyperfocal_mm": hyper})
}

// HandleDOF handles POST /api/dof.
func (h *Handlers) HandleDOF(w http.ResponseWriter, r *http.Request) {
	var req DOFRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.dofInputs(&req, true); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res := optics.DepthOfField(req.DistanceMm, req.FocalLengthMm, req.FNumber, req.CoCMm)
	resp := DOFResponse{
		NearMm:       res.NearMm,
		HyperfocalMm: optics.Hyperfocal(req.FocalLengthMm, req.FNumber, req.CoCMm),
	}
	if math.IsInf(res.FarMm, 1) {
		resp.FarInfinite = true
	} else {
		resp.FarMm = &res.FarMm
		resp.TotalMm = &res.TotalMm
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleFocalLength handles POST /api/focal-length.
func (h *Handlers) HandleFocalLength(w http.ResponseWriter, r *http.Request) {
	var req FocalLengthRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := checkPositive("sensor_mm", req.SensorMm); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := checkPositive("fov_deg", req.FOVDeg); err != nil || req.FOVDeg >= 180 {
		http.Error(w, "fov_deg must be in (0, 180)", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{
		"focal_length_mm": optics.FocalLengthFromFOV(req.SensorMm, req.FOVDeg),
	})
}

// HandleDori handles POST /api/dori (forward, from a camera).
func (h *Handlers) HandleDori(w http.ResponseWriter, r *http.Request) {
	var req FOVRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := ValidateCamera(req.Camera); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, optics.DoriFromCamera(req.Camera))
}

// HandleDoriSingle handles POST /api/dori/single (back-fill from one distance).
func (h *Handlers) HandleDoriSingle(w http.ResponseWriter, r *http.Request) {
	var req DoriSingleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := checkPositive("distance_m", req.DistanceM); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, optics.DoriFromSingle(req.DistanceM, req.Category))
}

// HandleRanges handles POST /api/dori/ranges.
func (h *Handlers) HandleRanges(w http.ResponseWriter, r *http.Request) {
	var req RangesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := ValidateRangesRequest(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ranges, err := dori.Solve(req.Targets, req.Constraints)
	if errors.Is(err, dori.ErrNoTarget) {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	target, _ := dori.SelectTarget(req.Targets)
	debug.Live("Ranges: %s at %.2f m", target.Category, target.DistanceM)

	writeJSON(w, http.StatusOK, RangesResponse{
		Target:    target,
		Distances: target.Distances(),
		Ranges:    ranges,
		Conflicts: nonNil(ranges.Conflicts(req.Constraints, 1e-6)),
	})
}

// HandleValidate handles POST /api/validate.
func (h *Handlers) HandleValidate(w http.ResponseWriter, r *http.Request) {
	var req FOVRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	warnings := req.Camera.Validate()
	if ValidateCamera(req.Camera) == nil {
		// Result checks only make sense for a camera the formulas accept.
		res := optics.CalculateFOV(req.Camera, h.distanceOrDefault(req.DistanceMm))
		warnings = append(warnings, res.Validate()...)
	}
	writeJSON(w, http.StatusOK, ValidateResponse{Warnings: nonNil(warnings), HasErrors: optics.HasErrors(warnings)})
}

// HandleCoverage handles POST /api/coverage.
func (h *Handlers) HandleCoverage(w http.ResponseWriter, r *http.Request) {
	var req CoverageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := ValidateCamera(req.Camera); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p := req.CoverageParams
	d := h.FormDefaults.Coverage
	if p.HorizontalAngleDeg == 0 {
		p.HorizontalAngleDeg = d.HorizontalAngleDeg
	}
	if p.VerticalAngleDeg == 0 {
		p.VerticalAngleDeg = d.VerticalAngleDeg
	}
	if p.OverlapPercent == 0 {
		p.OverlapPercent = d.OverlapPercent
	}
	plan, err := optics.PlanCoverage(req.Camera, p)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// HandlePresets handles GET /api/presets.
func (h *Handlers) HandlePresets(w http.ResponseWriter, r *http.Request) {
	cams, err := h.listPresets(r.Context())
	if err != nil {
		debug.Error(err)
		http.Error(w, "preset catalog unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, cams)
}

func (h *Handlers) listPresets(ctx context.Context) ([]optics.CameraSystem, error) {
	if h.Presets == nil {
		return optics.Presets(), nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	cams, err := h.Presets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	return cams, nil
}

// nonNil keeps empty lists as [] instead of null in JSON.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
