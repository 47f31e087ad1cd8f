package runloop

// Handler is what the [Loop] runs, each iteration.
//
// All methods are called on the host's driving goroutine, never
// concurrently.
type Handler interface {
	// Start is called once, after resources have been acquired. A non-nil
	// error aborts the run before the loop enters [StateRunning], with
	// [ExitFailure].
	Start(l *Loop) error

	// Update is called once per iteration, with the timing for that
	// iteration. Returning false requests exit.
	Update(ctx *TimingContext) bool

	// Stop is called once, during the quit callback, if and only if Start
	// succeeded. It is called regardless of why the loop is exiting.
	Stop(l *Loop)
}

// EventResult is the decision returned by an [EventHandler].
type EventResult int

const (
	// EventContinue indicates the loop should keep running.
	EventContinue EventResult = iota
	// EventExit requests a graceful exit, with [ExitSuccess].
	EventExit
	// EventFail requests an exit with [ExitFailure].
	EventFail
)

// String returns a human-readable representation of the result.
func (r EventResult) String() string {
	switch r {
	case EventContinue:
		return "continue"
	case EventExit:
		return "exit"
	case EventFail:
		return "fail"
	default:
		return "unknown"
	}
}

// EventHandler is the optional host-event hook. If the handler given to
// [New] implements it, every host event is forwarded, unmodified.
//
// The loop itself never interprets events: what constitutes a quit request
// (a window close, a key binding, etc.) is decided here.
type EventHandler interface {
	HandleEvent(l *Loop, event any) EventResult
}

// HandlerFuncs implements [Handler] and [EventHandler] using optional
// functions. Nil fields are treated as no-ops, a nil OnUpdate continues.
type HandlerFuncs struct {
	OnStart  func(l *Loop) error
	OnUpdate func(ctx *TimingContext) bool
	OnStop   func(l *Loop)
	OnEvent  func(l *Loop, event any) EventResult
}

var (
	// compile time assertions

	_ Handler      = (*HandlerFuncs)(nil)
	_ EventHandler = (*HandlerFuncs)(nil)
)

// Start implements Handler.
func (x *HandlerFuncs) Start(l *Loop) error {
	if x.OnStart != nil {
		return x.OnStart(l)
	}
	return nil
}

// Update implements Handler.
func (x *HandlerFuncs) Update(ctx *TimingContext) bool {
	if x.OnUpdate != nil {
		return x.OnUpdate(ctx)
	}
	return true
}

// Stop implements Handler.
func (x *HandlerFuncs) Stop(l *Loop) {
	if x.OnStop != nil {
		x.OnStop(l)
	}
}

// HandleEvent implements EventHandler.
func (x *HandlerFuncs) HandleEvent(l *Loop, event any) EventResult {
	if x.OnEvent != nil {
		return x.OnEvent(l, event)
	}
	return EventContinue
}
