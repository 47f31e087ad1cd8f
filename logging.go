// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package runloop

import (
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// warningRates bound repeated warnings on hot paths (per frame, per event).
var warningRates = map[time.Duration]int{
	time.Second: 1,
	time.Minute: 10,
	time.Hour:   60,
}

func newWarningLimiter() *catrate.Limiter {
	return catrate.NewLimiter(warningRates)
}

// limitedWarning returns a warning builder if the category is within its
// rate, or nil (which is a valid, disabled builder) otherwise.
func limitedWarning(logger *logiface.Logger[logiface.Event], limiter *catrate.Limiter, category string) *logiface.Builder[logiface.Event] {
	b := logger.Warning()
	if !b.Enabled() {
		return nil
	}
	if next, ok := limiter.Allow(category); !ok {
		b.Release()
		return nil
	} else if !next.IsZero() {
		b = b.Time(`suppressed_until`, next)
	}
	return b
}

// logger returns the configured logger, or nil, and is safe to call on a nil
// receiver.
func (l *Loop) logger() *logiface.Logger[logiface.Event] {
	if l == nil || l.opts == nil {
		return nil
	}
	return l.opts.logger
}
