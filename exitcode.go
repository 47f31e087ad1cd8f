// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package runloop

import (
	"sync/atomic"
)

const (
	// ExitSuccess is the exit code for a graceful exit.
	ExitSuccess = 0

	// ExitFailure is the fixed exit code used when a resource cannot be
	// acquired, when [Handler.Start] fails, or when the host reports abnormal
	// termination without an exit code having been requested.
	ExitFailure = 1
)

// exitCode is a write-once exit code. The first writer wins, later writes
// are ignored.
type exitCode struct {
	v atomic.Pointer[int]
}

// trySet stores code if no code has been set, returning true if this call
// was the one to set it.
func (x *exitCode) trySet(code int) bool {
	return x.v.CompareAndSwap(nil, &code)
}

// load returns the exit code, and true, if it has been set.
func (x *exitCode) load() (int, bool) {
	if v := x.v.Load(); v != nil {
		return *v, true
	}
	return 0, false
}

// exitCodeFor maps a host result to the exit code used when no exit code was
// explicitly requested.
func exitCodeFor(result AppResult) int {
	if result == AppFailure {
		return ExitFailure
	}
	return ExitSuccess
}
