// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package runloop

// WindowFlags are platform flags passed through to [Backend.CreateWindow].
type WindowFlags uint32

const (
	// WindowResizable allows the surface to be resized by the user.
	WindowResizable WindowFlags = 1 << iota
	// WindowHidden creates the surface without showing it.
	WindowHidden
	// WindowHighDPI requests a high pixel density surface, where supported.
	WindowHighDPI
)

// VSync is the vertical sync preference for a [Renderer].
type VSync int

const (
	// VSyncAdaptive enables late swap tearing, where supported.
	VSyncAdaptive VSync = -1
	// VSyncDisabled presents immediately.
	VSyncDisabled VSync = 0
	// VSyncEnabled synchronizes presentation with the display refresh.
	VSyncEnabled VSync = 1
)

// String returns a human-readable representation of the mode.
func (v VSync) String() string {
	switch v {
	case VSyncAdaptive:
		return "adaptive"
	case VSyncDisabled:
		return "disabled"
	case VSyncEnabled:
		return "enabled"
	default:
		return "unknown"
	}
}

// WindowConfig configures the surface acquired during the init callback.
type WindowConfig struct {
	Title  string
	Width  int
	Height int
	Flags  WindowFlags
}

// DefaultWindowConfig returns the configuration used if [WithWindow] is not
// provided.
func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		Title:  "runloop",
		Width:  800,
		Height: 600,
		Flags:  WindowResizable,
	}
}

type (
	// Backend is the resource factory consumed by the loop. Resources are
	// acquired in the init callback, and released in the quit callback, both
	// on the host's driving goroutine.
	Backend interface {
		CreateWindow(cfg WindowConfig) (Window, error)
		CreateRenderer(w Window) (Renderer, error)
	}

	// Window is an opaque surface handle.
	Window interface {
		Destroy()
	}

	// Renderer presents output to a Window.
	Renderer interface {
		// SetVSync applies a vsync mode. Errors are not fatal, the loop
		// downgrades to VSyncDisabled.
		SetVSync(mode VSync) error
		// Present flushes the frame, once per iteration.
		Present() error
		Destroy()
	}
)
