// Package teahost runs a [runloop.Loop] inside a bubbletea program, drawing
// to a text canvas in the terminal.
//
// Wire a [Host] and a [Backend] sharing the same backend:
//
//	backend := teahost.NewBackend()
//	loop, err := runloop.New(handler,
//		runloop.WithBackend(backend),
//		runloop.WithVSync(runloop.VSyncDisabled),
//		runloop.WithHost(&teahost.Host{Backend: backend}),
//	)
package teahost

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joeycumines/go-runloop"
	"github.com/joeycumines/logiface"
)

// Host is a blocking [runloop.Host] backed by a bubbletea program.
//
// The program's Init runs the init callback, each frame tick runs the
// iterate callback, and every other message (key presses, window size
// changes, etc) is passed to the event callback, unmodified. Once a callback
// stops the app, the program quits, and the quit callback is called after it
// returns. If the program fails (e.g. is killed via Context) while the app is
// still running, the quit callback receives [runloop.AppFailure].
type Host struct {
	// Context, if non-nil, kills the program once done.
	Context context.Context

	// Logger is used to report program errors.
	Logger *logiface.Logger[logiface.Event]

	// Backend, if non-nil, provides the view, and is resized to fit the
	// terminal.
	Backend *Backend

	// Options are passed to tea.NewProgram, e.g. tea.WithAltScreen().
	Options []tea.ProgramOption

	// FrameInterval is the time between iterations, defaulting to
	// [runloop.DefaultFrameInterval].
	FrameInterval time.Duration
}

var _ runloop.Host = (*Host)(nil)

// frameMsg triggers an iteration.
type frameMsg time.Time

type model struct {
	app      runloop.App
	backend  *Backend
	args     []string
	interval time.Duration
	result   runloop.AppResult
	stopped  bool
}

// EnterMainCallbacks implements runloop.Host.
func (x *Host) EnterMainCallbacks(args []string, app runloop.App) int {
	m := x.newModel(args, app)

	opts := make([]tea.ProgramOption, 0, len(x.Options)+1)
	opts = append(opts, x.Options...)
	if x.Context != nil {
		opts = append(opts, tea.WithContext(x.Context))
	}

	if _, err := tea.NewProgram(m, opts...).Run(); err != nil {
		x.Logger.Err().
			Err(err).
			Str(`result`, m.result.String()).
			Log(`terminal program failed`)
		if !m.stopped {
			m.result = runloop.AppFailure
		}
	} else if !m.stopped {
		// quit by something other than the app, e.g. an interrupt
		m.result = runloop.AppSuccess
	}

	app.AppQuit(m.result)

	if m.result == runloop.AppFailure {
		return runloop.ExitFailure
	}
	return runloop.ExitSuccess
}

func (x *Host) newModel(args []string, app runloop.App) *model {
	interval := x.FrameInterval
	if interval <= 0 {
		interval = runloop.DefaultFrameInterval
	}
	return &model{
		app:      app,
		backend:  x.Backend,
		args:     args,
		interval: interval,
	}
}

func (m *model) Init() tea.Cmd {
	return m.handle(m.app.AppInit(m.args), m.tick())
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.stopped {
		return m, nil
	}
	switch msg := msg.(type) {
	case frameMsg:
		return m, m.handle(m.app.AppIterate(), m.tick())
	case tea.WindowSizeMsg:
		if m.backend != nil {
			m.backend.Resize(msg.Width, msg.Height)
		}
	}
	return m, m.handle(m.app.AppEvent(msg), nil)
}

func (m *model) View() string {
	if m.backend == nil {
		return ``
	}
	return m.backend.View()
}

func (m *model) handle(result runloop.AppResult, next tea.Cmd) tea.Cmd {
	m.result = result
	if result != runloop.AppContinue {
		m.stopped = true
		return tea.Quit
	}
	return next
}

func (m *model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}
