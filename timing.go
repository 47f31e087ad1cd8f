package runloop

import (
	"time"
)

// Clock provides monotonic time readings. The default implementation uses
// [time.Now], which carries a monotonic reading, making deltas immune to wall
// clock jumps.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the [Clock] interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// TimingContext is the per-iteration timing snapshot passed to
// [Handler.Update]. It is mutated exactly once per iteration, by the loop,
// immediately before the handler is dispatched, and must not be retained or
// mutated by handlers.
type TimingContext struct {
	// anchor is the previous sample
	anchor time.Time
	clock  Clock

	// FrameIndex is the index of the current iteration, starting at 0.
	FrameIndex uint64

	// FrameDelta is the time since the previous iteration, 0 for the first.
	FrameDelta time.Duration

	// SessionElapsed is the cumulative sum of FrameDelta.
	SessionElapsed time.Duration

	started bool
}

// NewTimingContext initializes a TimingContext, using the system clock if
// clock is nil. The first call to Tick will produce FrameIndex 0.
func NewTimingContext(clock Clock) *TimingContext {
	if clock == nil {
		clock = systemClock{}
	}
	return &TimingContext{clock: clock}
}

// Tick samples the clock, and advances the context by one frame.
// Negative deltas (a stalled or misbehaving clock) are clamped to zero.
func (x *TimingContext) Tick() {
	now := x.clock.Now()

	if !x.started {
		x.started = true
		x.anchor = now
		x.FrameIndex = 0
		x.FrameDelta = 0
		return
	}

	delta := now.Sub(x.anchor)
	if delta < 0 {
		delta = 0
	}

	x.anchor = now
	x.FrameIndex++
	x.FrameDelta = delta
	x.SessionElapsed += delta
}

// DeltaSeconds returns FrameDelta in seconds.
func (x *TimingContext) DeltaSeconds() float64 {
	return x.FrameDelta.Seconds()
}

// ElapsedSeconds returns SessionElapsed in seconds.
func (x *TimingContext) ElapsedSeconds() float64 {
	return x.SessionElapsed.Seconds()
}
