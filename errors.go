package runloop

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrLoopAlreadyRunning is returned when Run() is called on a loop that has already been run.
	ErrLoopAlreadyRunning = errors.New("runloop: loop is already running")

	// ErrLoopTerminated is returned when Run() is called on a loop that has terminated.
	ErrLoopTerminated = errors.New("runloop: loop has been terminated")

	// ErrLoopClosed is returned when Run() is called after the owner has released the loop.
	ErrLoopClosed = errors.New("runloop: loop has been closed")

	// ErrReentrantRun is returned when Run() is called from within a host callback.
	ErrReentrantRun = errors.New("runloop: cannot call Run() from within a host callback")

	// ErrNilHandler is returned by New when no handler is provided.
	ErrNilHandler = errors.New("runloop: nil handler")

	// ErrNilBackend is returned by New when the backend option is explicitly nil.
	ErrNilBackend = errors.New("runloop: nil backend")

	// ErrNilHost is returned by New when the host option is explicitly nil.
	ErrNilHost = errors.New("runloop: nil host")

	// ErrVSyncUnsupported may be returned by [Renderer.SetVSync] implementations.
	// The loop treats any SetVSync error as a downgrade to VSyncDisabled.
	ErrVSyncUnsupported = errors.New("runloop: vsync mode not supported")
)

// InitStage identifies the step of the init callback that failed.
type InitStage int

const (
	// StageWindow is window creation, see [Backend.CreateWindow].
	StageWindow InitStage = iota + 1
	// StageRenderer is renderer creation, see [Backend.CreateRenderer].
	StageRenderer
	// StageOnInit is the [WithOnInit] callback.
	StageOnInit
	// StageHandlerStart is [Handler.Start].
	StageHandlerStart
)

// String returns a human-readable name for the stage.
func (s InitStage) String() string {
	switch s {
	case StageWindow:
		return "window"
	case StageRenderer:
		return "renderer"
	case StageOnInit:
		return "on-init"
	case StageHandlerStart:
		return "handler-start"
	default:
		return fmt.Sprintf("InitStage(%d)", int(s))
	}
}

// InitError is the fatal error recorded when the init callback fails. It is
// available via [Loop.Err], the exit code is always [ExitFailure].
type InitError struct {
	Cause error
	Stage InitStage
}

// Error implements the error interface.
func (e *InitError) Error() string {
	if e.Cause == nil {
		return "runloop: init failed at " + e.Stage.String()
	}
	return "runloop: init failed at " + e.Stage.String() + ": " + e.Cause.Error()
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *InitError) Unwrap() error {
	return e.Cause
}
