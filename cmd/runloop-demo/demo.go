package main

import (
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joeycumines/go-runloop"
	"github.com/joeycumines/go-runloop/teahost"
	"github.com/joeycumines/logiface"
)

// fpsReportInterval is how often the average FPS is logged.
const fpsReportInterval = time.Second

// quitKeys stop the demo when pressed in the terminal host.
var quitKeys = key.NewBinding(
	key.WithKeys("q", "esc", "ctrl+c"),
	key.WithHelp("q/esc", "quit"),
)

// demo animates two markers, and decides when to quit.
type demo struct {
	logger     *logiface.Logger[logiface.Event]
	fps        *runloop.FPSCounter
	lastReport time.Duration
}

var (
	_ runloop.Handler      = (*demo)(nil)
	_ runloop.EventHandler = (*demo)(nil)
)

// newDemo returns the demo handler, composed with its FPS counter.
func newDemo(logger *logiface.Logger[logiface.Event], fpsWindow int) (*demo, *runloop.Composite) {
	d := &demo{
		logger: logger,
		fps:    runloop.NewFPSCounter(fpsWindow),
	}
	// the counter runs first, so the demo sees the current frame
	return d, runloop.NewComposite(d.fps, d)
}

func (d *demo) Start(l *runloop.Loop) error {
	d.lastReport = 0
	d.logger.Info().Log(`demo started`)
	return nil
}

func (d *demo) Update(ctx *runloop.TimingContext) bool {
	if ctx.SessionElapsed-d.lastReport >= fpsReportInterval {
		d.lastReport = ctx.SessionElapsed
		d.logger.Debug().
			Uint64(`frame`, ctx.FrameIndex).
			Float64(`fps`, d.fps.FPS()).
			Log(`frame rate`)
	}
	return true
}

func (d *demo) Stop(l *runloop.Loop) {
	d.logger.Info().
		Float64(`fps`, d.fps.FPS()).
		Log(`demo stopped`)
}

func (d *demo) HandleEvent(l *runloop.Loop, event any) runloop.EventResult {
	switch event := event.(type) {
	case runloop.QuitEvent:
		d.logger.Info().Log(`received quit event`)
		return runloop.EventExit

	case runloop.KeyEvent:
		if event.Key == `escape` || event.Key == `q` {
			d.logger.Info().Str(`key`, event.Key).Log(`quit key pressed`)
			return runloop.EventExit
		}
		d.logger.Trace().Str(`key`, event.Key).Log(`key pressed`)

	case tea.KeyMsg:
		if key.Matches(event, quitKeys) {
			d.logger.Info().Str(`key`, event.String()).Log(`quit key pressed`)
			return runloop.EventExit
		}
		d.logger.Trace().Str(`key`, event.String()).Log(`key pressed`)
	}
	return runloop.EventContinue
}

// render draws the frame, if the renderer has a canvas.
func (d *demo) render(r runloop.Renderer, ctx *runloop.TimingContext) {
	canvas, ok := teahost.CanvasOf(r)
	if !ok {
		return
	}
	canvas.Clear()

	width, height := canvas.Size()
	elapsed := ctx.ElapsedSeconds()
	cx, cy := float64(width)/2, float64(height)/2
	// cells are roughly twice as tall as they are wide
	ry := math.Min(cy, cx/2) * 0.6
	rx := ry * 2

	size := 2 + int(math.Round(math.Sin(elapsed*4)))
	x := int(cx + rx*math.Cos(elapsed*2))
	y := int(cy + ry*math.Sin(elapsed*2))
	canvas.Fill(x-size, y-size/2, size*2, max(size, 1), '█')

	// starts opposite the first, turning the other way
	x2 := int(cx + rx*math.Cos(math.Pi-elapsed*1.5))
	y2 := int(cy + ry*math.Sin(math.Pi-elapsed*1.5))
	canvas.Fill(x2-2, y2-1, 4, 2, '▒')

	canvas.Text(1, 0, fmt.Sprintf("Session Time: %.2f s", ctx.ElapsedSeconds()))
	canvas.Text(1, 1, fmt.Sprintf("Frame Index: %d", ctx.FrameIndex))
	canvas.Text(1, 2, fmt.Sprintf("Delta: %.2f ms", ctx.DeltaSeconds()*1000))
	canvas.Text(1, 3, fmt.Sprintf("Avg FPS: %.1f", d.fps.FPS()))

	help := quitKeys.Help()
	canvas.SetStatus(help.Key + ` ` + help.Desc)
}
