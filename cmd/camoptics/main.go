package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/cjeanneret/camoptics/internal/config"
	"github.com/cjeanneret/camoptics/internal/debug"
)

const usageText = `usage: camoptics [-config path] [-debug level] <command> [flags]

commands:
  fov           field of view and resolution at a distance
  hyperfocal    hyperfocal distance
  dof           depth of field at a focus distance
  compare       compare cameras at the same distance
  focal-length  focal length needed for a field of view
  dori          DORI distances of a camera
  dori-from     all DORI distances from one known distance
  ranges        camera parameter ranges for a DORI target
  validate      check a camera against realistic values
  coverage      frames needed to cover a sector
  presets       list (or -seed) the preset catalog
  serve         start the web server
  bot           run the Telegram bot

Run "camoptics <command> -h" for the flags of a command.
`

func main() {
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	debugLevel := flag.Int("debug", -1, "override debug level (0-4)")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usageText) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := config.ValidateConfigPath(*cfgPath); err != nil {
		log.Fatalf("invalid config path: %v", err)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	if *debugLevel >= 0 {
		if *debugLevel > debug.LevelTrace {
			log.Fatalf("debug level must be 0-4, got %d", *debugLevel)
		}
		cfg.Defaults.DebugLevel = *debugLevel
	}

	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, flag.Arg(0), flag.Args()[1:], os.Stdout); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}
}

// run executes one command and writes its output to out.
func run(ctx context.Context, cfg *config.Config, name string, args []string, out io.Writer) error {
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q (see camoptics -h)", name)
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	exec := cmd(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return exec(ctx, out)
}

// optFloat implements flag.Value for a positive number that may be left unset.
type optFloat struct {
	v *float64
}

func (o *optFloat) String() string {
	if o == nil || o.v == nil {
		return ""
	}
	return strconv.FormatFloat(*o.v, 'g', -1, 64)
}

func (o *optFloat) Set(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	if err := checkPositive(v); err != nil {
		return err
	}
	o.v = &v
	return nil
}

// optInt implements flag.Value for a positive integer that may be left unset.
type optInt struct {
	v *int
}

func (o *optInt) String() string {
	if o == nil || o.v == nil {
		return ""
	}
	return strconv.Itoa(*o.v)
}

func (o *optInt) Set(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 {
		return fmt.Errorf("must be > 0, got %d", v)
	}
	o.v = &v
	return nil
}

func checkPositive(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("must be a positive number, got %g", v)
	}
	return nil
}

// portFlag implements flag.Value for -port: -port= uses the configured
// port, -port 8980 a custom one.
type portFlag struct {
	val         int
	defaultPort int
}

func (p *portFlag) String() string {
	if p == nil {
		return "0"
	}
	return strconv.Itoa(p.port())
}

func (p *portFlag) Set(s string) error {
	if s == "" {
		p.val = p.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	p.val = v
	return nil
}

func (p *portFlag) port() int {
	if p.val == 0 {
		return p.defaultPort
	}
	return p.val
}
