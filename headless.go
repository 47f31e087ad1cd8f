package runloop

import (
	"sync"
	"sync/atomic"
)

// HeadlessBackend is an in-memory [Backend], for hosts without a display,
// and for tests. Its fields configure fault injection, and must not be
// modified after the loop is run.
type HeadlessBackend struct {
	// WindowErr, if non-nil, is returned by CreateWindow.
	WindowErr error

	// RendererErr, if non-nil, is returned by CreateRenderer.
	RendererErr error

	// PresentErr, if non-nil, is returned by Present.
	PresentErr error

	// VSyncModes are the modes SetVSync accepts, VSyncDisabled is always
	// accepted.
	VSyncModes []VSync

	presents atomic.Uint64
	live     atomic.Int32
	mu       sync.Mutex
	window   *HeadlessWindow
	renderer *HeadlessRenderer
}

// HeadlessWindow is the [Window] created by a HeadlessBackend.
type HeadlessWindow struct {
	backend   *HeadlessBackend
	Config    WindowConfig
	destroyed atomic.Bool
}

// HeadlessRenderer is the [Renderer] created by a HeadlessBackend.
type HeadlessRenderer struct {
	backend   *HeadlessBackend
	vsync     atomic.Int32
	destroyed atomic.Bool
}

var (
	// compile time assertions

	_ Backend  = (*HeadlessBackend)(nil)
	_ Window   = (*HeadlessWindow)(nil)
	_ Renderer = (*HeadlessRenderer)(nil)
)

// NewHeadlessBackend initializes a HeadlessBackend that supports every
// vsync mode.
func NewHeadlessBackend() *HeadlessBackend {
	return &HeadlessBackend{
		VSyncModes: []VSync{VSyncEnabled, VSyncAdaptive},
	}
}

// CreateWindow implements Backend.
func (x *HeadlessBackend) CreateWindow(cfg WindowConfig) (Window, error) {
	if x.WindowErr != nil {
		return nil, x.WindowErr
	}
	w := &HeadlessWindow{backend: x, Config: cfg}
	x.mu.Lock()
	x.window = w
	x.mu.Unlock()
	x.live.Add(1)
	return w, nil
}

// CreateRenderer implements Backend.
func (x *HeadlessBackend) CreateRenderer(Window) (Renderer, error) {
	if x.RendererErr != nil {
		return nil, x.RendererErr
	}
	r := &HeadlessRenderer{backend: x}
	x.mu.Lock()
	x.renderer = r
	x.mu.Unlock()
	x.live.Add(1)
	return r, nil
}

// Presents returns the number of successful presents, across all renderers.
func (x *HeadlessBackend) Presents() uint64 {
	return x.presents.Load()
}

// Live returns the number of windows and renderers not yet destroyed.
func (x *HeadlessBackend) Live() int {
	return int(x.live.Load())
}

// LastWindow returns the most recently created window, or nil.
func (x *HeadlessBackend) LastWindow() *HeadlessWindow {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.window
}

// LastRenderer returns the most recently created renderer, or nil.
func (x *HeadlessBackend) LastRenderer() *HeadlessRenderer {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.renderer
}

func (x *HeadlessBackend) supports(mode VSync) bool {
	if mode == VSyncDisabled {
		return true
	}
	for _, v := range x.VSyncModes {
		if v == mode {
			return true
		}
	}
	return false
}

// Destroy implements Window.
func (x *HeadlessWindow) Destroy() {
	if x.destroyed.CompareAndSwap(false, true) {
		x.backend.live.Add(-1)
	}
}

// Destroyed reports whether Destroy has been called.
func (x *HeadlessWindow) Destroyed() bool {
	return x.destroyed.Load()
}

// SetVSync implements Renderer.
func (x *HeadlessRenderer) SetVSync(mode VSync) error {
	if !x.backend.supports(mode) {
		return ErrVSyncUnsupported
	}
	x.vsync.Store(int32(mode))
	return nil
}

// VSync returns the applied vsync mode.
func (x *HeadlessRenderer) VSync() VSync {
	return VSync(x.vsync.Load())
}

// Present implements Renderer.
func (x *HeadlessRenderer) Present() error {
	if x.backend.PresentErr != nil {
		return x.backend.PresentErr
	}
	x.backend.presents.Add(1)
	return nil
}

// Destroy implements Renderer.
func (x *HeadlessRenderer) Destroy() {
	if x.destroyed.CompareAndSwap(false, true) {
		x.backend.live.Add(-1)
	}
}

// Destroyed reports whether Destroy has been called.
func (x *HeadlessRenderer) Destroyed() bool {
	return x.destroyed.Load()
}
