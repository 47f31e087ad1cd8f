// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package runloop

import (
	"time"
)

// DefaultFPSWindow is the number of frames averaged by an [FPSCounter], if
// not otherwise specified.
const DefaultFPSWindow = 30

// FPSCounter computes the average frames per second over a sliding window of
// frame deltas. It implements [Handler], sampling each frame, so it may be
// added to a [Composite].
//
// Not safe for concurrent use.
type FPSCounter struct {
	samples []time.Duration
	sum     time.Duration
	next    int
	count   int
}

var _ Handler = (*FPSCounter)(nil)

// NewFPSCounter initializes an FPSCounter, averaging over window frames, or
// DefaultFPSWindow if window is not positive.
func NewFPSCounter(window int) *FPSCounter {
	if window <= 0 {
		window = DefaultFPSWindow
	}
	return &FPSCounter{samples: make([]time.Duration, window)}
}

// AddFrame records a frame delta. Non-positive deltas (e.g. the first frame)
// are ignored.
func (x *FPSCounter) AddFrame(delta time.Duration) {
	if delta <= 0 {
		return
	}
	x.sum += delta - x.samples[x.next]
	x.samples[x.next] = delta
	x.next = (x.next + 1) % len(x.samples)
	if x.count < len(x.samples) {
		x.count++
	}
}

// FPS returns the average frames per second, or 0 if there are no samples.
func (x *FPSCounter) FPS() float64 {
	if x.count == 0 || x.sum <= 0 {
		return 0
	}
	return float64(x.count) / x.sum.Seconds()
}

// Reset discards all samples.
func (x *FPSCounter) Reset() {
	clear(x.samples)
	x.sum = 0
	x.next = 0
	x.count = 0
}

// Start implements Handler.
func (x *FPSCounter) Start(*Loop) error {
	x.Reset()
	return nil
}

// Update implements Handler.
func (x *FPSCounter) Update(ctx *TimingContext) bool {
	x.AddFrame(ctx.FrameDelta)
	return true
}

// Stop implements Handler.
func (x *FPSCounter) Stop(*Loop) {}
