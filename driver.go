// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package runloop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

const (
	// DefaultFrameInterval is the iteration interval used by [BlockingHost]
	// and [AsyncHost], if FrameInterval is zero.
	DefaultFrameInterval = time.Second / 60

	// DefaultQueueSize is the event queue capacity used by [BlockingHost] and
	// [AsyncHost], if QueueSize is zero.
	DefaultQueueSize = 256
)

// BlockingHost is a [Host] that drives the app on the goroutine that calls
// EnterMainCallbacks, returning only after the quit callback.
//
// Each frame, queued events are delivered (at most MaxEventsPerFrame), then
// the app is iterated once. The zero value is ready to use. Fields must not
// be modified after the host is entered.
type BlockingHost struct {
	// Context, if non-nil, delivers a [QuitEvent] to the app once it is done.
	// It is up to the app how to respond.
	Context context.Context

	// Logger is used to report dropped events.
	Logger *logiface.Logger[logiface.Event]

	// FrameInterval is the time between iterations. Negative values iterate
	// as fast as possible.
	FrameInterval time.Duration

	// QueueSize is the capacity of the event queue. Events posted while the
	// queue is full are dropped.
	QueueSize int

	// MaxEventsPerFrame bounds the events delivered before each iteration,
	// defaulting to QueueSize.
	MaxEventsPerFrame int

	once     sync.Once
	events   chan any
	warnings *catrate.Limiter
}

var _ Host = (*BlockingHost)(nil)

// EnterMainCallbacks implements Host.
func (x *BlockingHost) EnterMainCallbacks(args []string, app App) int {
	x.init()
	return statusFor(x.drive(args, app))
}

// Post queues an event for delivery to the app, returning false if the queue
// is full, in which case the event is dropped. Safe for concurrent use.
func (x *BlockingHost) Post(event any) bool {
	x.init()
	select {
	case x.events <- event:
		return true
	default:
		limitedWarning(x.Logger, x.warnings, `dropped event`).
			Int(`capacity`, cap(x.events)).
			Log(`event queue full, dropping event`)
		return false
	}
}

func (x *BlockingHost) init() {
	x.once.Do(func() {
		size := x.QueueSize
		if size <= 0 {
			size = DefaultQueueSize
		}
		x.events = make(chan any, size)
		x.warnings = newWarningLimiter()
	})
}

func (x *BlockingHost) frameInterval() time.Duration {
	if x.FrameInterval == 0 {
		return DefaultFrameInterval
	}
	return x.FrameInterval
}

func (x *BlockingHost) maxEventsPerFrame() int {
	if x.MaxEventsPerFrame > 0 {
		return x.MaxEventsPerFrame
	}
	return cap(x.events)
}

// drive runs the full callback sequence, returning the result that ended it.
func (x *BlockingHost) drive(args []string, app App) AppResult {
	result := app.AppInit(args)

	var tick <-chan time.Time
	if interval := x.frameInterval(); interval > 0 && result == AppContinue {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var done <-chan struct{}
	if x.Context != nil {
		done = x.Context.Done()
	}

	for result == AppContinue {
		select {
		case <-done:
			done = nil
			result = app.AppEvent(QuitEvent{})
			continue
		default:
		}

		if tick != nil {
			select {
			case <-tick:
			case <-done:
				done = nil
				result = app.AppEvent(QuitEvent{})
				continue
			}
		}

		result = x.pump(app)
		if result == AppContinue {
			result = app.AppIterate()
		}
	}

	app.AppQuit(result)

	return result
}

// pump delivers queued events, stopping at the first non-continue result.
func (x *BlockingHost) pump(app App) AppResult {
	for i, n := 0, x.maxEventsPerFrame(); i < n; i++ {
		select {
		case event := <-x.events:
			if result := app.AppEvent(event); result != AppContinue {
				return result
			}
		default:
			return AppContinue
		}
	}
	return AppContinue
}

// AsyncHost is a fire-and-forget [Host]: EnterMainCallbacks starts driving
// the app on a new goroutine, and returns immediately, with [ExitSuccess].
// It behaves like [BlockingHost] otherwise.
//
// An AsyncHost may only be entered once.
type AsyncHost struct {
	BlockingHost

	done     chan struct{}
	status   atomic.Int32
	entered  atomic.Bool
	doneOnce sync.Once
}

var _ Host = (*AsyncHost)(nil)

// EnterMainCallbacks implements Host.
func (x *AsyncHost) EnterMainCallbacks(args []string, app App) int {
	x.initDone()
	if !x.entered.CompareAndSwap(false, true) {
		x.Logger.Err().
			Log(`async host entered more than once`)
		return ExitFailure
	}
	x.BlockingHost.init()
	go func() {
		defer close(x.done)
		x.status.Store(int32(statusFor(x.drive(args, app))))
	}()
	return ExitSuccess
}

// Done returns a channel that is closed after the quit callback returns.
func (x *AsyncHost) Done() <-chan struct{} {
	x.initDone()
	return x.done
}

// Wait blocks until the quit callback returns, then returns the process
// status, as determined by the final result.
func (x *AsyncHost) Wait() int {
	<-x.Done()
	return int(x.status.Load())
}

func (x *AsyncHost) initDone() {
	x.doneOnce.Do(func() {
		x.done = make(chan struct{})
	})
}
