package runloop

// AppResult is the only value exchanged with a [Host] at the callback
// boundary. Internal failures are translated into these tokens.
type AppResult int

const (
	// AppContinue indicates the host should keep calling back.
	AppContinue AppResult = iota
	// AppSuccess indicates the host should stop, reporting success.
	AppSuccess
	// AppFailure indicates the host should stop, reporting failure.
	AppFailure
)

// String returns a human-readable representation of the result.
func (r AppResult) String() string {
	switch r {
	case AppContinue:
		return "continue"
	case AppSuccess:
		return "success"
	case AppFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// App is the set of callbacks a [Host] drives. A [Loop] provides its
// implementation to the host, when run.
//
// Hosts must call AppInit exactly once, then any sequence of AppIterate and
// AppEvent while the results are AppContinue, then AppQuit exactly once,
// with the result that ended the sequence (or AppFailure if the host itself
// failed). AppQuit must be called even if AppInit did not return
// AppContinue. Calls must not be concurrent.
type App interface {
	AppInit(args []string) AppResult
	AppIterate() AppResult
	AppEvent(event any) AppResult
	AppQuit(result AppResult)
}

// Host is the external harness that owns the call stack, and drives an
// [App] through its callbacks.
//
// EnterMainCallbacks may either block until AppQuit has returned (a
// blocking host), or return immediately, continuing to drive the app
// asynchronously (a fire-and-forget host). The return value is the process
// exit status, as determined by the host, and is meaningless for
// fire-and-forget hosts.
type Host interface {
	EnterMainCallbacks(args []string, app App) int
}

// HostFunc adapts a function to the [Host] interface.
type HostFunc func(args []string, app App) int

// EnterMainCallbacks implements Host.
func (f HostFunc) EnterMainCallbacks(args []string, app App) int { return f(args, app) }

// statusFor maps the final result to a process exit status.
func statusFor(result AppResult) int {
	if result == AppFailure {
		return ExitFailure
	}
	return ExitSuccess
}

type (
	// QuitEvent is delivered by the built-in hosts when the environment asks
	// the program to quit (e.g. context cancellation).
	QuitEvent struct{}

	// KeyEvent is a key press, named per the host's conventions
	// (e.g. "escape", "q").
	KeyEvent struct {
		Key string
	}

	// ResizeEvent is a change in the surface size.
	ResizeEvent struct {
		Width  int
		Height int
	}
)
