// Package runloop adapts a callback-driven host harness, one that calls into
// the program at fixed points (init, iterate, event, quit) rather than
// letting it run its own loop, into a single consistent lifecycle, with
// clean resource ownership, pluggable handlers, and a "wait until the loop
// exits" primitive for other goroutines.
//
// # Architecture
//
// A [Loop] owns a [Window] and [Renderer], acquired from a [Backend] during
// the init callback, and released during the quit callback. Each iteration
// advances a [TimingContext], dispatches [Handler.Update], and presents.
// Host events are forwarded, unmodified, to the handler, if it implements
// [EventHandler]. The loop itself never interprets events.
//
// Handlers may be combined with a [Composite], which starts members in
// order, and stops them in reverse.
//
// # Hosts
//
// A [Host] owns the call stack. The package provides:
//   - [BlockingHost]: drives the callbacks on the calling goroutine, at a
//     fixed frame interval
//   - [AsyncHost]: drives the callbacks on its own goroutine, returning from
//     [Host.EnterMainCallbacks] immediately (fire-and-forget)
//   - [ManualHost]: driven by explicit calls to [ManualHost.Step]
//
// The teahost sub-package provides a terminal host, built on bubbletea.
//
// # State Machine
//
//	Uninitialized → Initializing → Running → Quitting → Terminated
//
// Initializing may go directly to Quitting, if a resource cannot be
// acquired, or [Handler.Start] fails. See [RunState].
//
// # Exit Codes
//
// The exit code is set at most once, the first writer wins:
//   - [Loop.RequestExit], from any goroutine
//   - [ExitSuccess], if [Handler.Update] returns false
//   - [ExitFailure], if init fails
//   - derived from the result the host passes to the quit callback, if
//     nothing else set it ([AppFailure] maps to [ExitFailure])
//
// [Loop.WaitForExit] blocks until the exit code is decided, returning
// immediately if it already has been.
//
// # Lifetime
//
// The owner holds one reference to the loop, released by [Loop.Close].
// [Loop.Run] acquires another, released at the end of the quit callback.
// The loop is finalized once both are released, so fire-and-forget hosts
// cannot have it finalized mid-run.
//
// # Usage
//
//	loop, err := runloop.New(
//	    &runloop.HandlerFuncs{
//	        OnUpdate: func(ctx *runloop.TimingContext) bool {
//	            return ctx.SessionElapsed < 5*time.Second
//	        },
//	    },
//	    runloop.WithHost(&runloop.BlockingHost{}),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer loop.Close()
//
//	code, err := loop.Run()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("exit code:", code)
package runloop
