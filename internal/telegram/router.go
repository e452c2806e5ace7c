// Package telegram answers optics questions in a Telegram chat.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/cjeanneret/camoptics/internal/debug"
	"github.com/cjeanneret/camoptics/internal/logic/dori"
	"github.com/cjeanneret/camoptics/internal/logic/optics"
	"github.com/cjeanneret/camoptics/internal/report"
)

// maxMessageLen stays under Telegram's 4096 character limit.
const maxMessageLen = 3900

// Sender is the part of *tgbotapi.BotAPI the router uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// PresetSource lists the named cameras offered by /presets.
type PresetSource interface {
	List(ctx context.Context) ([]optics.CameraSystem, error)
}

// Defaults fill arguments a command leaves out.
type Defaults struct {
	Camera     optics.CameraSystem
	DistanceMm float64
	CoCMm      float64
	FNumber    float64
}

type Router struct {
	Bot      Sender
	Presets  PresetSource
	Defaults Defaults
}

const helpText = `Camera optics calculator.

/fov [sw sh pw ph focal [distance_mm]] - field of view
/dori [sw sh pw ph focal] - DORI distances of a camera
/dorifrom <distance_m> <category> - all DORI distances from one
/ranges id=10 fov=60 focal=25 - parameter ranges for a target
    targets: det obs rec id (m)
    fixed: sensor sh (mm), px ph, focal (mm), fov (°)
/hyperfocal <focal> [f_number] [coc_mm]
/dof <distance_mm> <focal> [f_number] [coc_mm]
/focal <sensor_mm> <fov_deg> - focal length for a FOV
/presets - known cameras

Without camera values, the configured camera is used.`

// HandleUpdate dispatches one update from the polling loop.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	if upd.Message.IsCommand() {
		r.HandleCommand(ctx, upd)
		return
	}
	r.send(upd.Message.Chat.ID, "Send /help for the list of commands.")
}

// HandleCommand answers a single bot command.
func (r *Router) HandleCommand(ctx context.Context, upd tgbotapi.Update) {
	cid := upd.Message.Chat.ID
	cmd := upd.Message.Command()
	args := strings.Fields(upd.Message.CommandArguments())
	debug.Live("bot: /%s %v from chat %d", cmd, args, cid)

	var (
		text string
		err  error
	)
	switch cmd {
	case "start", "help":
		r.send(cid, helpText)
		return
	case "fov":
		text, err = r.fov(args)
	case "dori":
		text, err = r.dori(args)
	case "dorifrom":
		text, err = dorifrom(args)
	case "ranges":
		text, err = ranges(args)
	case "hyperfocal":
		text, err = r.hyperfocal(args)
	case "dof":
		text, err = r.dof(args)
	case "focal":
		text, err = focal(args)
	case "presets":
		text, err = r.presets(ctx)
	default:
		r.send(cid, "Unknown command. Send /help.")
		return
	}
	if err != nil {
		r.SendError(cid, err)
		return
	}
	r.sendPre(cid, text)
}

func (r *Router) fov(args []string) (string, error) {
	cam, distance, err := parseCamera(args, r.Defaults.Camera)
	if err != nil {
		return "", err
	}
	if distance == 0 {
		distance = r.Defaults.DistanceMm
	}
	res := optics.CalculateFOV(cam, distance)
	cr := optics.CameraWithResult{Camera: cam, Result: res}
	return report.Camera(cam) + "\n" + report.FOV(res) + report.Warnings(cr.Validate()), nil
}

func (r *Router) dori(args []string) (string, error) {
	cam, _, err := parseCamera(args, r.Defaults.Camera)
	if err != nil {
		return "", err
	}
	return report.Camera(cam) + "\n" + report.Dori(optics.DoriFromCamera(cam)), nil
}

func dorifrom(args []string) (string, error) {
	if len(args) != 2 {
		return "", errors.New("usage: /dorifrom <distance_m> <detection|observation|recognition|identification>")
	}
	v, err := parseFloats(args[:1])
	if err != nil {
		return "", err
	}
	cat := optics.ParseCategory(args[1])
	return fmt.Sprintf("From %s at %s m\n", cat, report.Num(v[0], 2)) +
		report.Dori(optics.DoriFromCategory(v[0], cat)), nil
}

func ranges(args []string) (string, error) {
	targets, c, err := ParseRangesArgs(args)
	if err != nil {
		return "", err
	}
	r, err := dori.Solve(targets, c)
	if errors.Is(err, dori.ErrNoTarget) {
		return "", errors.New("give at least one target, e.g. /ranges id=10")
	}
	if err != nil {
		return "", err
	}
	target, _ := dori.SelectTarget(targets)
	return report.Ranges(target, r, c), nil
}

// dofArgs reads "<focal> [f_number] [coc_mm]" after skip leading values.
func (r *Router) dofArgs(args []string, skip int) ([]float64, error) {
	if len(args) < skip+1 || len(args) > skip+3 {
		return nil, fmt.Errorf("expected %d to %d values, got %d", skip+1, skip+3, len(args))
	}
	v, err := parseFloats(args)
	if err != nil {
		return nil, err
	}
	out := []float64{r.Defaults.FNumber, r.Defaults.CoCMm}
	copy(out, v[skip+1:])
	return append(v[:skip+1], out...), nil
}

func (r *Router) hyperfocal(args []string) (string, error) {
	v, err := r.dofArgs(args, 0)
	if err != nil {
		return "", err
	}
	return report.Hyperfocal(optics.Hyperfocal(v[0], v[1], v[2])), nil
}

func (r *Router) dof(args []string) (string, error) {
	v, err := r.dofArgs(args, 1)
	if err != nil {
		return "", err
	}
	res := optics.DepthOfField(v[0], v[1], v[2], v[3])
	return report.DOF(res) + report.Hyperfocal(optics.Hyperfocal(v[1], v[2], v[3])), nil
}

func focal(args []string) (string, error) {
	if len(args) != 2 {
		return "", errors.New("usage: /focal <sensor_mm> <fov_deg>")
	}
	v, err := parseFloats(args)
	if err != nil {
		return "", err
	}
	if v[1] >= 180 {
		return "", errors.New("fov must be < 180")
	}
	return fmt.Sprintf("Focal length: %s mm\n", report.Num(optics.FocalLengthFromFOV(v[0], v[1]), 2)), nil
}

func (r *Router) presets(ctx context.Context) (string, error) {
	cams := optics.Presets()
	if r.Presets != nil {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		var err error
		if cams, err = r.Presets.List(ctx); err != nil {
			debug.Error(fmt.Errorf("list presets: %w", err))
			return "", errors.New("preset catalog unavailable")
		}
	}
	if len(cams) == 0 {
		return "No presets.", nil
	}
	var b strings.Builder
	for _, c := range cams {
		b.WriteString(report.Camera(c))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		debug.Error(fmt.Errorf("telegram send: %w", err))
	}
}

// sendPre sends text as a monospace block so tables keep their columns.
func (r *Router) sendPre(chatID int64, text string) {
	text = truncate(text, maxMessageLen)
	msg := tgbotapi.NewMessage(chatID, "<pre>"+html.EscapeString(text)+"</pre>")
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := r.Bot.Send(msg); err != nil {
		debug.Error(fmt.Errorf("telegram send: %w", err))
	}
}

// truncate cuts text to at most n bytes on a rune boundary.
func truncate(text string, n int) string {
	if len(text) <= n {
		return text
	}
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n] + "…"
}

func (r *Router) SendError(chatID int64, err error) {
	r.send(chatID, "Error: "+err.Error())
}
