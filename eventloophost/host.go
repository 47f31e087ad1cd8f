// Package eventloophost runs a [runloop.Loop] on a
// [github.com/joeycumines/go-eventloop] event loop.
//
// Each callback is submitted as a task, so the app shares its goroutine with
// any other work scheduled on the same event loop. The host is fire-and-forget:
// EnterMainCallbacks returns as soon as the init callback has been submitted.
package eventloophost

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/go-runloop"
	"github.com/joeycumines/logiface"
)

// ErrNotEntered is returned by [Host.Wait] if the host was never entered.
var ErrNotEntered = errors.New("eventloophost: host not entered")

// Host is a [runloop.Host] that drives the app as tasks on an event loop.
//
// Frames are paced by a ticker, and a frame is skipped if the previous one is
// still queued. If the event loop stops while the app is running, the quit
// callback is called with [runloop.AppFailure].
//
// A Host may be entered once. Fields must not be modified after that.
type Host struct {
	// Loop, if non-nil, runs the callbacks, and must be run by the caller.
	// Otherwise, the host creates and runs its own, until the quit callback
	// has returned.
	Loop *eventloop.Loop

	// Context, if non-nil, delivers a [runloop.QuitEvent] to the app once it
	// is done.
	Context context.Context

	Logger *logiface.Logger[logiface.Event]

	// FrameInterval is the time between iterations, defaulting to
	// [runloop.DefaultFrameInterval].
	FrameInterval time.Duration

	app     runloop.App
	loop    *eventloop.Loop
	cancel  context.CancelFunc
	stop    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	once    sync.Once
	status  atomic.Int32
	entered atomic.Bool
	// ready is set once loop and app are assigned, and init is queued
	ready   atomic.Bool
	stopped atomic.Bool
	pending atomic.Bool
}

var _ runloop.Host = (*Host)(nil)

// EnterMainCallbacks implements runloop.Host.
func (x *Host) EnterMainCallbacks(args []string, app runloop.App) int {
	x.init()
	if !x.entered.CompareAndSwap(false, true) {
		x.Logger.Err().Log(`event loop host entered more than once`)
		return runloop.ExitFailure
	}
	x.app = app

	x.loop = x.Loop
	if x.loop == nil {
		loop, err := eventloop.New()
		if err != nil {
			x.Logger.Err().Err(err).Log(`failed to create event loop`)
			x.abort()
			return runloop.ExitFailure
		}
		var ctx context.Context
		ctx, x.cancel = context.WithCancel(context.Background())
		go func() {
			if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
				x.Logger.Err().Err(err).Log(`event loop failed`)
			}
		}()
		x.loop = loop
	}

	if err := x.loop.Submit(func() {
		if x.call(func() runloop.AppResult { return app.AppInit(args) }) {
			go x.pace()
		}
	}); err != nil {
		x.Logger.Err().Err(err).Log(`failed to submit init`)
		x.abort()
		return runloop.ExitFailure
	}
	x.ready.Store(true)

	return runloop.ExitSuccess
}

// Post submits an event to the app, returning false if it could not be
// submitted (e.g. the host is still entering, or the app has stopped).
// Accepted events are always delivered after the init callback. Safe for
// concurrent use, including from within the app's callbacks, other than init.
func (x *Host) Post(event any) bool {
	if !x.ready.Load() || x.stopped.Load() {
		return false
	}
	err := x.loop.Submit(func() {
		x.call(func() runloop.AppResult { return x.app.AppEvent(event) })
	})
	return err == nil
}

// Done is closed after the quit callback has returned.
func (x *Host) Done() <-chan struct{} {
	x.init()
	return x.done
}

// Wait blocks until the quit callback has returned, returning the status.
func (x *Host) Wait(ctx context.Context) (int, error) {
	if !x.entered.Load() {
		return runloop.ExitFailure, ErrNotEntered
	}
	select {
	case <-x.Done():
		return int(x.status.Load()), nil
	case <-ctx.Done():
		return runloop.ExitFailure, ctx.Err()
	}
}

func (x *Host) init() {
	x.once.Do(func() {
		x.stop = make(chan struct{})
		x.done = make(chan struct{})
	})
}

func (x *Host) interval() time.Duration {
	if x.FrameInterval > 0 {
		return x.FrameInterval
	}
	return runloop.DefaultFrameInterval
}

// pace submits frames until the app stops.
func (x *Host) pace() {
	ticker := time.NewTicker(x.interval())
	defer ticker.Stop()

	var ctxDone <-chan struct{}
	if x.Context != nil {
		ctxDone = x.Context.Done()
	}

	for {
		select {
		case <-x.stop:
			return
		case <-ctxDone:
			ctxDone = nil
			x.Post(runloop.QuitEvent{})
		case <-ticker.C:
			var task func()
			if x.pending.CompareAndSwap(false, true) {
				task = func() {
					x.pending.Store(false)
					x.call(x.app.AppIterate)
				}
			} else {
				// frame still queued, only check the loop is alive
				task = func() {}
			}
			if err := x.loop.Submit(task); err != nil {
				x.Logger.Warning().Err(err).Log(`event loop stopped, terminating app`)
				x.abort()
				return
			}
		}
	}
}

// call runs a callback, finishing if it returned a non-continue result, and
// returns true if the app is still running.
func (x *Host) call(fn func() runloop.AppResult) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.stopped.Load() {
		return false
	}
	if result := fn(); result != runloop.AppContinue {
		x.finishLocked(result)
		return false
	}
	return true
}

// abort finishes with runloop.AppFailure, outside the event loop.
func (x *Host) abort() {
	x.mu.Lock()
	defer x.mu.Unlock()
	if !x.stopped.Load() {
		x.finishLocked(runloop.AppFailure)
	}
}

func (x *Host) finishLocked(result runloop.AppResult) {
	x.stopped.Store(true)
	close(x.stop)

	x.app.AppQuit(result)

	if result == runloop.AppFailure {
		x.status.Store(runloop.ExitFailure)
	} else {
		x.status.Store(runloop.ExitSuccess)
	}
	if x.cancel != nil {
		x.cancel()
	}
	close(x.done)
}
