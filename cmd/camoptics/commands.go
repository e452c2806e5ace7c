package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/cjeanneret/camoptics/internal/config"
	"github.com/cjeanneret/camoptics/internal/debug"
	"github.com/cjeanneret/camoptics/internal/logic/dori"
	"github.com/cjeanneret/camoptics/internal/logic/optics"
	"github.com/cjeanneret/camoptics/internal/report"
	"github.com/cjeanneret/camoptics/internal/store"
	"github.com/cjeanneret/camoptics/internal/telegram"
	"github.com/cjeanneret/camoptics/internal/web"
)

// execFunc runs a command once its flags are parsed.
type execFunc func(ctx context.Context, out io.Writer) error

// command registers its flags on fs and returns how to run.
type command func(fs *flag.FlagSet, cfg *config.Config) execFunc

var commands = map[string]command{
	"fov":          fovCmd,
	"hyperfocal":   hyperfocalCmd,
	"dof":          dofCmd,
	"compare":      compareCmd,
	"focal-length": focalLengthCmd,
	"dori":         doriCmd,
	"dori-from":    doriFromCmd,
	"ranges":       rangesCmd,
	"validate":     validateCmd,
	"coverage":     coverageCmd,
	"presets":      presetsCmd,
	"serve":        serveCmd,
	"bot":          botCmd,
}

// cameraFlags registers -sensor-width ... -focal with def as defaults.
// The returned camera keeps def's name only when no value changed.
func cameraFlags(fs *flag.FlagSet, def optics.CameraSystem) func() (optics.CameraSystem, error) {
	sw := fs.Float64("sensor-width", def.SensorWidthMm, "sensor width in mm")
	sh := fs.Float64("sensor-height", def.SensorHeightMm, "sensor height in mm")
	pw := fs.Int("pixel-width", def.PixelWidth, "horizontal pixel count")
	ph := fs.Int("pixel-height", def.PixelHeight, "vertical pixel count")
	focal := fs.Float64("focal", def.FocalLengthMm, "focal length in mm")
	return func() (optics.CameraSystem, error) {
		c := def
		c.SensorWidthMm, c.SensorHeightMm = *sw, *sh
		c.PixelWidth, c.PixelHeight = *pw, *ph
		c.FocalLengthMm = *focal
		if c != def {
			c.Name = ""
		}
		return c, web.ValidateCamera(c)
	}
}

func fovCmd(fs *flag.FlagSet, cfg *config.Config) execFunc {
	camera := cameraFlags(fs, cfg.DefaultCamera())
	distance := fs.Float64("distance", cfg.DistanceMm(), "working distance in mm")
	return func(_ context.Context, out io.Writer) error {
		cam, err := camera()
		if err != nil {
			return err
		}
		if err := checkPositive(*distance); err != nil {
			return fmt.Errorf("distance %w", err)
		}
		res := optics.CalculateFOV(cam, *distance)
		warnings := optics.CameraWithResult{Camera: cam, Result: res}.Validate()
		for _, w := range warnings {
			debug.Warning(string(w.Severity), w.Message)
		}
		fmt.Fprintln(out, report.Camera(cam))
		fmt.Fprint(out, report.FOV(res))
		fmt.Fprint(out, report.Warnings(warnings))
		return nil
	}
}

func hyperfocalCmd(fs *flag.FlagSet, cfg *config.Config) execFunc {
	focal := fs.Float64("focal", cfg.DefaultCamera().FocalLengthMm, "focal length in mm")
	fNumber := fs.Float64("f", cfg.FNumber(), "aperture (f-number)")
	coc := fs.Float64("coc", cfg.CoCMm(), "circle of confusion in mm")
	return func(_ context.Context, out io.Writer) error {
		for _, v := range []float64{*focal, *fNumber, *coc} {
			if err := checkPositive(v); err != nil {
				return err
			}
		}
		fmt.Fprint(out, report.Hyperfocal(optics.Hyperfocal(*focal, *fNumber, *coc)))
		return nil
	}
}

func dofCmd(fs *flag.FlagSet, cfg *config.Config) execFunc {
	distance := fs.Float64("distance", cfg.DistanceMm(), "focus distance in mm")
	focal := fs.Float64("focal", cfg.DefaultCamera().FocalLengthMm, "focal length in mm")
	fNumber := fs.Float64("f", cfg.FNumber(), "aperture (f-number)")
	coc := fs.Float64("coc", cfg.CoCMm(), "circle of confusion in mm")
	return func(_ context.Context, out io.Writer) error {
		for _, v := range []float64{*distance, *focal, *fNumber, *coc} {
			if err := checkPositive(v); err != nil {
				return err
			}
		}
		fmt.Fprint(out, report.DOF(optics.DepthOfField(*distance, *focal, *fNumber, *coc)))
		fmt.Fprint(out, report.Hyperfocal(optics.Hyperfocal(*focal, *fNumber, *coc)))
		return nil
	}
}

func compareCmd(fs *flag.FlagSet, cfg *config.Config) execFunc {
	distance := fs.Float64("distance", cfg.DistanceMm(), "working distance in mm")
	builtin := fs.Bool("presets", false, "compare the built-in formats instead of the catalog")
	return func(ctx context.Context, out io.Writer) error {
		if err := checkPositive(*distance); err != nil {
			return fmt.Errorf("distance %w", err)
		}
		cams := optics.Presets()
		if !*builtin {
			src, closeFn, err := presetSource(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFn()
			if cams, err = src.List(ctx); err != nil {
				return fmt.Errorf("list presets: %w", err)
			}
		}
		fmt.Fprint(out, report.Compare(optics.Compare(cams, *distance)))
		return nil
	}
}

func focalLengthCmd(fs *flag.FlagSet, cfg *config.Config) execFunc {
	def := cfg.DefaultCamera()
	sensorW := fs.Float64("sensor-width", def.SensorWidthMm, "sensor width in mm")
	sensorH := fs.Float64("sensor-height", def.SensorHeightMm, "sensor height in mm")
	fov := fs.Float64("fov", 0, "wanted field of view in degrees (required)")
	vertical := fs.Bool("vertical", false, "-fov is vertical; use the sensor height")
	return func(_ context.Context, out io.Writer) error {
		sensor, axis := *sensorW, "horizontal"
		if *vertical {
			sensor, axis = *sensorH, "vertical"
		}
		if err := checkPositive(sensor); err != nil {
			return fmt.Errorf("sensor %w", err)
		}
		if err := checkPositive(*fov); err != nil || *fov >= 180 {
			return fmt.Errorf("-fov must be in (0, 180), got %g", *fov)
		}
		focal := optics.FocalLengthFromFOV(sensor, *fov)
		fmt.Fprintf(out, "Focal length for %s° %s on %s mm: %s mm\n",
			report.Num(*fov, 2), axis, report.Num(sensor, 2), report.Num(focal, 2))
		return nil
	}
}

func doriCmd(fs *flag.FlagSet, cfg *config.Config) execFunc {
	camera := cameraFlags(fs, cfg.DefaultCamera())
	return func(_ context.Context, out io.Writer) error {
		cam, err := camera()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, report.Camera(cam))
		fmt.Fprint(out, report.Dori(optics.DoriFromCamera(cam)))
		return nil
	}
}

func doriFromCmd(fs *flag.FlagSet, _ *config.Config) execFunc {
	distance := fs.Float64("distance", 0, "known distance in m (required)")
	category := fs.String("type", string(optics.Identification), "category of -distance: detection, observation, recognition, identification")
	return func(_ context.Context, out io.Writer) error {
		if err := checkPositive(*distance); err != nil {
			return fmt.Errorf("-distance %w", err)
		}
		fmt.Fprint(out, report.Dori(optics.DoriFromSingle(*distance, *category)))
		return nil
	}
}

func rangesCmd(fs *flag.FlagSet, _ *config.Config) execFunc {
	var (
		targets dori.Targets
		c       dori.Constraint
	)
	floats := []struct {
		name  string
		usage string
		dst   **float64
	}{
		{"detection", "detection target distance in m", &targets.DetectionM},
		{"observation", "observation target distance in m", &targets.ObservationM},
		{"recognition", "recognition target distance in m", &targets.RecognitionM},
		{"identification", "identification target distance in m", &targets.IdentificationM},
		{"sensor-width", "fixed sensor width in mm", &c.SensorWidthMm},
		{"sensor-height", "fixed sensor height in mm", &c.SensorHeightMm},
		{"focal", "fixed focal length in mm", &c.FocalLengthMm},
		{"fov", "fixed horizontal field of view in degrees", &c.HorizontalFOVDeg},
	}
	floatFlags := make([]*optFloat, len(floats))
	for i, f := range floats {
		floatFlags[i] = &optFloat{}
		fs.Var(floatFlags[i], f.name, f.usage)
	}
	pw, ph := &optInt{}, &optInt{}
	fs.Var(pw, "pixel-width", "fixed horizontal pixel count")
	fs.Var(ph, "pixel-height", "fixed vertical pixel count")

	return func(_ context.Context, out io.Writer) error {
		for i, f := range floats {
			*f.dst = floatFlags[i].v
		}
		c.PixelWidth, c.PixelHeight = pw.v, ph.v
		if c.HorizontalFOVDeg != nil && *c.HorizontalFOVDeg >= 180 {
			return fmt.Errorf("-fov must be < 180")
		}

		r, err := dori.Solve(targets, c)
		if errors.Is(err, dori.ErrNoTarget) {
			return fmt.Errorf("%w (use -identification, -recognition, -observation or -detection)", err)
		}
		if err != nil {
			return err
		}
		target, _ := dori.SelectTarget(targets)
		fmt.Fprint(out, report.Ranges(target, r, c))
		return nil
	}
}

func validateCmd(fs *flag.FlagSet, cfg *config.Config) execFunc {
	camera := cameraFlags(fs, cfg.DefaultCamera())
	distance := fs.Float64("distance", cfg.DistanceMm(), "working distance in mm")
	return func(_ context.Context, out io.Writer) error {
		cam, err := camera()
		if err != nil {
			return err
		}
		if err := checkPositive(*distance); err != nil {
			return fmt.Errorf("distance %w", err)
		}
		warnings := optics.CameraWithResult{Camera: cam, Result: optics.CalculateFOV(cam, *distance)}.Validate()
		fmt.Fprint(out, report.Warnings(warnings))
		if optics.HasErrors(warnings) {
			return errors.New("camera has errors")
		}
		return nil
	}
}

func coverageCmd(fs *flag.FlagSet, cfg *config.Config) execFunc {
	camera := cameraFlags(fs, cfg.DefaultCamera())
	def := cfg.Coverage()
	horizontal := fs.Float64("horizontal", def.HorizontalAngleDeg, "horizontal sector in degrees (0-360]")
	vertical := fs.Float64("vertical", def.VerticalAngleDeg, "vertical sector in degrees (0-180]")
	overlap := fs.Float64("overlap", def.OverlapPercent, "overlap between frames in percent [0-100)")
	return func(_ context.Context, out io.Writer) error {
		cam, err := camera()
		if err != nil {
			return err
		}
		params := optics.CoverageParams{
			HorizontalAngleDeg: *horizontal,
			VerticalAngleDeg:   *vertical,
			OverlapPercent:     *overlap,
		}
		debug.Section("Coverage Plan")
		debug.PrintStruct("Camera", cam)
		debug.Step(1, fmt.Sprintf("sector %.1f° x %.1f°, %.0f%% overlap", params.HorizontalAngleDeg, params.VerticalAngleDeg, params.OverlapPercent))
		plan, err := optics.PlanCoverage(cam, params)
		if err != nil {
			return err
		}
		debug.Step(2, fmt.Sprintf("grid of %d x %d frames", plan.Columns, plan.Rows))
		debug.PrintStruct("Plan", *plan)
		fmt.Fprintln(out, report.Camera(cam))
		fmt.Fprint(out, report.Coverage(plan))
		return nil
	}
}

func presetsCmd(fs *flag.FlagSet, cfg *config.Config) execFunc {
	seed := fs.Bool("seed", false, "write the config presets to the database")
	return func(ctx context.Context, out io.Writer) error {
		if *seed {
			if cfg.Database.DSN == "" {
				return errors.New("-seed needs database.dsn or DATABASE_URL")
			}
			db, err := store.Open(ctx, cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer db.Close()
			repo := store.NewPresetRepo(db)
			if err := repo.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}
			if err := repo.Seed(ctx, cfg.PresetCameras()); err != nil {
				return fmt.Errorf("seed presets: %w", err)
			}
			debug.Info("seeded %d presets", len(cfg.PresetCameras()))
		}

		src, closeFn, err := presetSource(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeFn()
		cams, err := src.List(ctx)
		if err != nil {
			return fmt.Errorf("list presets: %w", err)
		}
		for _, c := range cams {
			fmt.Fprintln(out, report.Camera(c))
		}
		return nil
	}
}

func serveCmd(fs *flag.FlagSet, cfg *config.Config) execFunc {
	port := &portFlag{defaultPort: cfg.Web.Port}
	fs.Var(port, "port", "listen port; -port= for the configured one")
	return func(ctx context.Context, _ io.Writer) error {
		src, closeFn, err := presetSource(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		broadcaster := web.NewStatusBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))

		formDefaults := web.FormConfig{
			DistanceMm: cfg.DistanceMm(),
			CoCMm:      cfg.CoCMm(),
			FNumber:    cfg.FNumber(),
			Camera:     cfg.DefaultCamera(),
			Coverage:   cfg.Coverage(),
		}
		srv := web.NewServer(fmt.Sprintf(":%d", port.port()), broadcaster, src, formDefaults)
		return srv.Run(ctx)
	}
}

func botCmd(_ *flag.FlagSet, cfg *config.Config) execFunc {
	return func(ctx context.Context, _ io.Writer) error {
		if cfg.Telegram.Token == "" {
			return errors.New("telegram.token or TELEGRAM_BOT_TOKEN is required")
		}
		src, closeFn, err := presetSource(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		bot.Debug = cfg.Telegram.Debug
		debug.Info("authorized on account @%s", bot.Self.UserName)

		r := &telegram.Router{
			Bot:     bot,
			Presets: src,
			Defaults: telegram.Defaults{
				Camera:     cfg.DefaultCamera(),
				DistanceMm: cfg.DistanceMm(),
				CoCMm:      cfg.CoCMm(),
				FNumber:    cfg.FNumber(),
			},
		}
		telegram.RunPolling(ctx, bot, cfg.Telegram.PollTimeoutSec, func(upd tgbotapi.Update) {
			r.HandleUpdate(ctx, upd)
		})
		return nil
	}
}

// presetLister is what compare, presets, serve and bot need from the catalog.
type presetLister interface {
	List(ctx context.Context) ([]optics.CameraSystem, error)
}

// presetSource opens the Postgres catalog when a DSN is configured and
// falls back to the config presets otherwise.
func presetSource(ctx context.Context, cfg *config.Config) (presetLister, func(), error) {
	if cfg.Database.DSN == "" {
		return store.StaticPresets(cfg.PresetCameras()), func() {}, nil
	}
	db, err := store.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	repo := store.NewPresetRepo(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	debug.Info("preset catalog: postgres")
	return repo, func() { db.Close() }, nil
}
