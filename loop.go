// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package runloop

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/go-catrate"
)

// loopIDCounter provides unique IDs for loops, for log correlation.
var loopIDCounter atomic.Uint64

// exitableStates are the states RequestExit may transition from.
var exitableStates = []RunState{StateInitializing, StateRunning}

// Loop adapts a callback-driven [Host] into a single lifecycle, driving a
// [Handler] through init, iterate, event and quit callbacks, while owning the
// [Window] and [Renderer] acquired from a [Backend].
//
// A Loop may be run at most once. [Loop.RequestExit], [Loop.WaitForExit],
// and the read-only accessors are safe to call from any goroutine.
type Loop struct {
	_ [0]func() // not comparable

	handler  Handler
	opts     *loopOptions
	refs     *keepAlive
	timing   *TimingContext
	window   Window
	renderer Renderer
	warnings *catrate.Limiter
	done     chan struct{}
	state    *fastState
	failure  atomic.Pointer[InitError]

	rendezvous exitRendezvous
	exit       exitCode

	// callbackGoroutine is the ID of the goroutine currently inside a host
	// callback, or 0
	callbackGoroutine atomic.Uint64

	closeOnce sync.Once
	id        uint64

	// started is set once Handler.Start succeeds, hooked once WithOnInit
	// succeeds, both only accessed from host callbacks
	started bool
	hooked  bool
}

// New creates a new Loop, which will run handler. Use [Loop.Run] to enter
// the host, and [Loop.Close] to release the owner's reference.
func New(handler Handler, opts ...LoopOption) (*Loop, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}

	options, err := resolveLoopOptions(opts)
	if err != nil {
		return nil, err
	}

	l := &Loop{
		handler:  handler,
		opts:     options,
		warnings: newWarningLimiter(),
		done:     make(chan struct{}),
		state:    &fastState{},
		id:       loopIDCounter.Add(1),
	}
	l.refs = newKeepAlive(l.finalize)

	l.logger().Trace().
		Uint64(`loop`, l.id).
		Log(`loop created`)

	return l, nil
}

// Run registers the loop with its host, and enters the host's callbacks.
//
// For blocking hosts, Run returns after the quit callback, with the exit
// code of record. For hosts that return before the quit callback
// (fire-and-forget hosts), Run returns ([ExitSuccess], nil) immediately, and
// the loop keeps itself alive until the quit callback completes. Use
// [Loop.WaitForExit], [Loop.Done] or [Loop.Released] to observe completion.
//
// Errors indicate misuse, and are returned with [ExitFailure]. Failures
// during the run (e.g. a resource could not be acquired) are reported via
// the exit code, with the cause available from [Loop.Err].
func (l *Loop) Run() (int, error) {
	if l.isCallbackGoroutine() {
		return ExitFailure, ErrReentrantRun
	}

	if err := l.runStateError(); err != nil {
		return ExitFailure, err
	}

	// self reference, released by the quit callback, after teardown
	if !l.refs.acquire() {
		return ExitFailure, ErrLoopClosed
	}

	if !l.state.TryTransition(StateUninitialized, StateInitializing) {
		l.refs.release()
		if err := l.runStateError(); err != nil {
			return ExitFailure, err
		}
		return ExitFailure, ErrLoopAlreadyRunning
	}

	l.logger().Debug().
		Uint64(`loop`, l.id).
		Int(`args`, len(l.opts.args)).
		Log(`entering host`)

	status := l.opts.host.EnterMainCallbacks(l.opts.args, &loopApp{l: l})

	select {
	case <-l.done:
	default:
		l.logger().Debug().
			Uint64(`loop`, l.id).
			Str(`state`, l.state.Load().String()).
			Log(`host returned before quit, loop detached`)
		return ExitSuccess, nil
	}

	code, _ := l.exit.load()

	l.logger().Debug().
		Uint64(`loop`, l.id).
		Int(`code`, code).
		Int(`status`, status).
		Log(`host returned`)

	return code, nil
}

func (l *Loop) runStateError() error {
	switch l.state.Load() {
	case StateUninitialized:
		return nil
	case StateTerminated:
		return ErrLoopTerminated
	default:
		return ErrLoopAlreadyRunning
	}
}

// RequestExit requests the loop exit, with the given exit code. It may be
// called from any goroutine, including from within a handler.
//
// The first exit code set wins, later calls do not change it. Teardown is
// not performed synchronously, it happens in the host's quit callback. If
// called before Run, the code is recorded, and the loop will quit as soon as
// the host calls back.
func (l *Loop) RequestExit(code int) {
	if l.exit.trySet(code) {
		l.logger().Debug().
			Uint64(`loop`, l.id).
			Int(`code`, code).
			Log(`exit requested`)
	}

	if prev, ok := l.state.TransitionAny(exitableStates, StateQuitting); ok {
		l.logger().Debug().
			Uint64(`loop`, l.id).
			Str(`from`, prev.String()).
			Log(`loop quitting`)
	}

	code, _ = l.exit.load()
	l.rendezvous.signal(code)
}

// WaitForExit blocks until an exit code is decided (an exit was requested,
// or the loop terminated), or ctx is done. If the exit code is already
// decided, it is returned immediately.
//
// Cancellation of ctx affects only this caller, and returns ctx.Err().
// It must not be called from within a host callback of a blocking host,
// unless an exit has already been requested.
func (l *Loop) WaitForExit(ctx context.Context) (int, error) {
	return l.rendezvous.wait(ctx)
}

// ExitCode returns the exit code of record, and whether it has been set.
func (l *Loop) ExitCode() (int, bool) {
	return l.exit.load()
}

// State returns the current state.
func (l *Loop) State() RunState {
	return l.state.Load()
}

// Done returns a channel that is closed when the loop reaches
// [StateTerminated].
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Released returns a channel that is closed once the loop has been
// finalized, i.e. both the owner (see [Loop.Close]) and the run have
// released their references.
func (l *Loop) Released() <-chan struct{} {
	return l.refs.done
}

// Err returns the fatal error that aborted the run, if any.
func (l *Loop) Err() error {
	if err := l.failure.Load(); err != nil {
		return err
	}
	return nil
}

// Window returns the window acquired by the init callback. It is only valid
// within handler methods and loop callbacks.
func (l *Loop) Window() Window {
	return l.window
}

// Renderer returns the renderer acquired by the init callback. It is only
// valid within handler methods and loop callbacks.
func (l *Loop) Renderer() Renderer {
	return l.renderer
}

// Close releases the owner's reference to the loop. The loop is finalized
// once the run (if any) has also completed its quit callback. Close does not
// request exit.
//
// Returns [ErrLoopClosed] if already closed.
func (l *Loop) Close() error {
	err := ErrLoopClosed
	l.closeOnce.Do(func() {
		err = nil
		l.refs.release()
	})
	return err
}

// finalize runs once, when the last reference is released.
func (l *Loop) finalize() {
	// closed without ever running
	if l.state.TryTransition(StateUninitialized, StateTerminated) {
		l.exit.trySet(ExitSuccess)
		code, _ := l.exit.load()
		l.rendezvous.signal(code)
		close(l.done)
	}

	l.handler = nil

	l.logger().Trace().
		Uint64(`loop`, l.id).
		Log(`loop destroyed`)
}

// --- Host callbacks ---

// loopApp is the App given to the host, keeping the callbacks off the
// exported API of Loop.
type loopApp struct {
	l *Loop
}

var _ App = (*loopApp)(nil)

func (x *loopApp) AppInit(args []string) AppResult {
	defer x.l.enterCallback()()
	return x.l.init(args)
}

func (x *loopApp) AppIterate() AppResult {
	defer x.l.enterCallback()()
	return x.l.iterate()
}

func (x *loopApp) AppEvent(event any) AppResult {
	defer x.l.enterCallback()()
	return x.l.event(event)
}

func (x *loopApp) AppQuit(result AppResult) {
	defer x.l.enterCallback()()
	x.l.quit(result)
}

func (l *Loop) init(args []string) AppResult {
	l.logger().Trace().
		Uint64(`loop`, l.id).
		Int(`args`, len(args)).
		Log(`init callback`)

	if _, ok := l.exit.load(); ok || l.state.Load() != StateInitializing {
		// exit requested before the host called back
		l.RequestExit(ExitSuccess)
		return l.stopResult()
	}

	window, err := l.opts.backend.CreateWindow(l.opts.window)
	if err != nil {
		return l.initFailed(StageWindow, err)
	}
	l.window = window
	l.logger().Trace().
		Uint64(`loop`, l.id).
		Str(`title`, l.opts.window.Title).
		Int(`width`, l.opts.window.Width).
		Int(`height`, l.opts.window.Height).
		Log(`window created`)

	renderer, err := l.opts.backend.CreateRenderer(window)
	if err != nil {
		// no leaks on partial acquisition
		l.window = nil
		window.Destroy()
		return l.initFailed(StageRenderer, err)
	}
	l.renderer = renderer
	l.logger().Trace().
		Uint64(`loop`, l.id).
		Log(`renderer created`)

	if err := renderer.SetVSync(l.opts.vsync); err != nil {
		l.logger().Warning().
			Uint64(`loop`, l.id).
			Str(`vsync`, l.opts.vsync.String()).
			Err(err).
			Log(`vsync mode unavailable, using disabled`)
		if err := renderer.SetVSync(VSyncDisabled); err != nil {
			l.logger().Warning().
				Uint64(`loop`, l.id).
				Err(err).
				Log(`failed to disable vsync`)
		}
	}

	if l.opts.onInit != nil {
		if err := l.opts.onInit(l); err != nil {
			return l.initFailed(StageOnInit, err)
		}
	}
	l.hooked = true

	if err := l.handler.Start(l); err != nil {
		return l.initFailed(StageHandlerStart, err)
	}
	l.started = true

	l.timing = NewTimingContext(l.opts.clock)

	if !l.state.TryTransition(StateInitializing, StateRunning) {
		// exit requested during start
		return l.stopResult()
	}

	l.logger().Debug().
		Uint64(`loop`, l.id).
		Log(`loop running`)

	return AppContinue
}

func (l *Loop) initFailed(stage InitStage, err error) AppResult {
	l.failure.CompareAndSwap(nil, &InitError{Stage: stage, Cause: err})

	l.logger().Err().
		Uint64(`loop`, l.id).
		Str(`stage`, stage.String()).
		Err(err).
		Log(`init failed`)

	l.RequestExit(ExitFailure)

	return AppFailure
}

func (l *Loop) iterate() AppResult {
	if l.state.Load() != StateRunning {
		return l.stopResult()
	}

	l.timing.Tick()

	if !l.handler.Update(l.timing) {
		l.logger().Debug().
			Uint64(`loop`, l.id).
			Uint64(`frame`, l.timing.FrameIndex).
			Log(`handler requested exit`)
		l.RequestExit(ExitSuccess)
		return l.stopResult()
	}

	// RequestExit during Update
	if l.state.Load() != StateRunning {
		return l.stopResult()
	}

	if l.opts.onRender != nil {
		l.opts.onRender(l.renderer, l.timing)
	}

	if err := l.renderer.Present(); err != nil {
		limitedWarning(l.logger(), l.warnings, `present`).
			Uint64(`loop`, l.id).
			Uint64(`frame`, l.timing.FrameIndex).
			Err(err).
			Log(`present failed`)
	}

	if l.state.Load() != StateRunning {
		return l.stopResult()
	}

	return AppContinue
}

func (l *Loop) event(event any) AppResult {
	switch state := l.state.Load(); state {
	case StateRunning:
	case StateQuitting, StateTerminated:
		return l.stopResult()
	default:
		// the handler has not started, there is nothing to deliver to
		l.logger().Trace().
			Uint64(`loop`, l.id).
			Str(`state`, state.String()).
			Str(`event`, fmt.Sprintf(`%T`, event)).
			Log(`event before running, ignored`)
		return AppContinue
	}

	var result EventResult
	if h, ok := l.handler.(EventHandler); ok {
		result = h.HandleEvent(l, event)
	}

	switch result {
	case EventContinue:
	case EventFail:
		l.RequestExit(ExitFailure)
	default:
		l.RequestExit(ExitSuccess)
	}

	if l.state.Load() != StateRunning {
		return l.stopResult()
	}

	if l.opts.onEvent != nil {
		l.opts.onEvent(event)
	}

	return AppContinue
}

func (l *Loop) quit(hint AppResult) {
	l.logger().Trace().
		Uint64(`loop`, l.id).
		Str(`result`, hint.String()).
		Log(`quit callback`)

	if l.state.Load() == StateTerminated {
		return
	}

	// derives the exit code from the host, if not already set
	l.RequestExit(exitCodeFor(hint))

	if l.started {
		l.started = false
		l.handler.Stop(l)
	}
	// released on termination, even while the owner holds the loop
	l.handler = nil

	if l.hooked {
		l.hooked = false
		if l.opts.onQuit != nil {
			l.opts.onQuit(l)
		}
	}

	l.releaseResources()
	l.timing = nil

	code, _ := l.exit.load()
	l.state.Store(StateTerminated)
	l.rendezvous.signal(code)
	close(l.done)

	l.logger().Debug().
		Uint64(`loop`, l.id).
		Int(`code`, code).
		Log(`loop terminated`)

	// self reference, must be last
	l.refs.release()
}

func (l *Loop) releaseResources() {
	if r := l.renderer; r != nil {
		l.renderer = nil
		r.Destroy()
		l.logger().Trace().
			Uint64(`loop`, l.id).
			Log(`renderer destroyed`)
	}
	if w := l.window; w != nil {
		l.window = nil
		w.Destroy()
		l.logger().Trace().
			Uint64(`loop`, l.id).
			Log(`window destroyed`)
	}
}

// stopResult maps the exit code of record to the result reported to the
// host, once the loop is no longer running.
func (l *Loop) stopResult() AppResult {
	if code, ok := l.exit.load(); ok && code != ExitSuccess {
		return AppFailure
	}
	return AppSuccess
}

// enterCallback marks the current goroutine as inside a host callback,
// returning a func that restores the previous value.
func (l *Loop) enterCallback() func() {
	prev := l.callbackGoroutine.Swap(getGoroutineID())
	return func() { l.callbackGoroutine.Store(prev) }
}

func (l *Loop) isCallbackGoroutine() bool {
	id := l.callbackGoroutine.Load()
	return id != 0 && id == getGoroutineID()
}

// getGoroutineID returns the current goroutine's ID.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
