package teahost

import (
	"errors"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/joeycumines/go-runloop"
)

const (
	// CellWidth is the number of window config pixels per canvas column.
	CellWidth = 8
	// CellHeight is the number of window config pixels per canvas row.
	CellHeight = 16

	// chromeRows are the title and status lines.
	chromeRows = 2
)

var (
	// ErrWindowExists is returned by [Backend.CreateWindow] if the backend
	// already has a live window.
	ErrWindowExists = errors.New("teahost: window already exists")

	// ErrDestroyed is returned when using a destroyed resource.
	ErrDestroyed = errors.New("teahost: resource destroyed")

	// ErrForeignWindow is returned by [Backend.CreateRenderer] if the window
	// was not created by the same backend.
	ErrForeignWindow = errors.New("teahost: window not created by this backend")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// Backend is a [runloop.Backend] that renders a single text [Canvas], which
// is displayed by a [Host] sharing the same backend.
//
// Drawing happens on the back buffer (the canvas), and Present publishes a
// snapshot, which is what View returns.
type Backend struct {
	mu       sync.Mutex
	frame    string
	window   *Window
	termCols int
	termRows int
}

var _ runloop.Backend = (*Backend)(nil)

// NewBackend returns an empty backend.
func NewBackend() *Backend { return new(Backend) }

// Window is the [runloop.Window] of a [Backend].
type Window struct {
	backend   *Backend
	canvas    *Canvas
	title     string
	destroyed bool
}

// Renderer is the [runloop.Renderer] of a [Backend].
type Renderer struct {
	window    *Window
	destroyed bool
}

// CreateWindow implements runloop.Backend. The canvas size is derived from
// the config, using [CellWidth] and [CellHeight], and clamped to the terminal
// size, once known.
func (x *Backend) CreateWindow(cfg runloop.WindowConfig) (runloop.Window, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.window != nil {
		return nil, ErrWindowExists
	}
	w := &Window{
		backend: x,
		canvas:  NewCanvas(cfg.Width/CellWidth, cfg.Height/CellHeight),
		title:   cfg.Title,
	}
	x.window = w
	x.fitLocked()
	return w, nil
}

// CreateRenderer implements runloop.Backend.
func (x *Backend) CreateRenderer(w runloop.Window) (runloop.Renderer, error) {
	window, ok := w.(*Window)
	if !ok || window.backend != x {
		return nil, ErrForeignWindow
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if window.destroyed {
		return nil, ErrDestroyed
	}
	return &Renderer{window: window}, nil
}

// Resize records the terminal size, shrinking the canvas of the live window
// to fit, if necessary. It is called by [Host] on each tea.WindowSizeMsg.
func (x *Backend) Resize(cols, rows int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.termCols, x.termRows = cols, rows
	x.fitLocked()
}

func (x *Backend) fitLocked() {
	if x.window == nil || x.termCols <= 0 || x.termRows <= chromeRows {
		return
	}
	w, h := x.window.canvas.Size()
	cols, rows := min(w, x.termCols), min(h, x.termRows-chromeRows)
	if cols != w || rows != h {
		x.window.canvas.Resize(cols, rows)
	}
}

// View returns the last presented frame.
func (x *Backend) View() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.frame
}

// Canvas returns the canvas of the live window, or nil.
func (x *Backend) Canvas() *Canvas {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.window == nil {
		return nil
	}
	return x.window.canvas
}

// Canvas returns the window's canvas.
func (x *Window) Canvas() *Canvas { return x.canvas }

// Title returns the configured title.
func (x *Window) Title() string { return x.title }

// Destroy implements runloop.Window. The last frame is cleared.
func (x *Window) Destroy() {
	b := x.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if x.destroyed {
		return
	}
	x.destroyed = true
	if b.window == x {
		b.window = nil
		b.frame = ``
	}
}

// SetVSync implements runloop.Renderer. The terminal has no refresh to
// synchronize with, so only [runloop.VSyncDisabled] is supported.
func (x *Renderer) SetVSync(mode runloop.VSync) error {
	if mode != runloop.VSyncDisabled {
		return runloop.ErrVSyncUnsupported
	}
	return nil
}

// Present implements runloop.Renderer.
func (x *Renderer) Present() error {
	b := x.window.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if x.destroyed || x.window.destroyed {
		return ErrDestroyed
	}
	b.frame = x.render()
	return nil
}

func (x *Renderer) render() string {
	var s strings.Builder
	if x.window.title != `` {
		s.WriteString(titleStyle.Render(x.window.title))
		s.WriteByte('\n')
	}
	s.WriteString(x.window.canvas.String())
	if status := x.window.canvas.Status(); status != `` {
		s.WriteByte('\n')
		s.WriteString(statusStyle.Render(status))
	}
	return s.String()
}

// Canvas returns the canvas of the renderer's window.
func (x *Renderer) Canvas() *Canvas { return x.window.canvas }

// Destroy implements runloop.Renderer.
func (x *Renderer) Destroy() {
	b := x.window.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	x.destroyed = true
}

// CanvasOf returns the canvas behind a renderer created by a [Backend].
func CanvasOf(r runloop.Renderer) (*Canvas, bool) {
	if r, ok := r.(*Renderer); ok && r != nil {
		return r.Canvas(), true
	}
	return nil, false
}
