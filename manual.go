// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package runloop

import (
	"sync"

	"github.com/eapache/queue"
	"github.com/joeycumines/logiface"
)

// ManualHost is a step-driven, fire-and-forget [Host], for embedding the
// loop in another driver (e.g. an existing frame callback), and for tests.
//
// EnterMainCallbacks runs the init callback, then returns. The app is then
// driven by calls to [ManualHost.Step], until a callback returns a result
// other than [AppContinue], or [ManualHost.Terminate] is called, at which
// point the quit callback is run.
//
// Post is safe for concurrent use. Step and Terminate must not be called
// concurrently with each other, or from within the app's callbacks.
type ManualHost struct {
	// Logger is used to report misuse.
	Logger *logiface.Logger[logiface.Event]

	app    App
	queue  *queue.Queue
	mu     sync.Mutex
	result AppResult
	ended  bool
}

var _ Host = (*ManualHost)(nil)

// NewManualHost initializes a ManualHost.
func NewManualHost() *ManualHost {
	return &ManualHost{queue: queue.New()}
}

// EnterMainCallbacks implements Host.
func (x *ManualHost) EnterMainCallbacks(args []string, app App) int {
	x.mu.Lock()
	if x.app != nil {
		x.mu.Unlock()
		x.Logger.Err().
			Log(`manual host entered more than once`)
		return ExitFailure
	}
	x.app = app
	if x.queue == nil {
		x.queue = queue.New()
	}
	x.mu.Unlock()

	if result := app.AppInit(args); result != AppContinue {
		x.finish(result)
	}

	return ExitSuccess
}

// Post queues an event, to be delivered by the next Step. Returns false if
// the app has already quit.
func (x *ManualHost) Post(event any) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.ended {
		return false
	}
	if x.queue == nil {
		x.queue = queue.New()
	}
	x.queue.Add(event)
	return true
}

// Pending returns the number of queued events.
func (x *ManualHost) Pending() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.queue == nil {
		return 0
	}
	return x.queue.Length()
}

// Running reports whether the host has been entered, and the app has not
// yet quit.
func (x *ManualHost) Running() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.app != nil && !x.ended
}

// Result returns the result passed to the quit callback, and whether the
// app has quit.
func (x *ManualHost) Result() (AppResult, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.result, x.ended
}

// Step delivers the events queued prior to the call, then iterates once.
// Returns false if the app has quit (including as a result of this call).
func (x *ManualHost) Step() bool {
	if !x.Running() {
		return false
	}

	x.mu.Lock()
	n := x.queue.Length()
	x.mu.Unlock()

	for ; n > 0; n-- {
		event, ok := x.pop()
		if !ok {
			break
		}
		if result := x.app.AppEvent(event); result != AppContinue {
			x.finish(result)
			return false
		}
	}

	if result := x.app.AppIterate(); result != AppContinue {
		x.finish(result)
		return false
	}

	return true
}

// Terminate ends the callback sequence, reporting result to the quit
// callback. Use [AppFailure] to simulate abnormal host termination. Returns
// false if the app was not running.
func (x *ManualHost) Terminate(result AppResult) bool {
	if !x.Running() {
		return false
	}
	x.finish(result)
	return true
}

func (x *ManualHost) pop() (any, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.queue.Length() == 0 {
		return nil, false
	}
	return x.queue.Remove(), true
}

func (x *ManualHost) finish(result AppResult) {
	x.mu.Lock()
	x.ended = true
	x.result = result
	x.queue = queue.New()
	app := x.app
	x.mu.Unlock()

	app.AppQuit(result)
}
