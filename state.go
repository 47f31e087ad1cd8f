// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package runloop

import (
	"sync/atomic"
)

// RunState represents the lifecycle state of a [Loop].
//
// State Machine:
//
//	StateUninitialized → StateInitializing  [Run()]
//	StateInitializing  → StateRunning       [init callback succeeded]
//	StateInitializing  → StateQuitting      [init failed, or RequestExit() during init]
//	StateRunning       → StateQuitting      [RequestExit(), Update() returned false, event hook exit]
//	StateQuitting      → StateTerminated    [quit callback, after teardown]
//	StateTerminated    → (terminal)
//
// Transition Rules:
//   - Use TryTransition() (CAS) for every transition that may race with
//     RequestExit(), which is callable from any goroutine
//   - Use Store() only for StateTerminated, which is irreversible
type RunState uint32

const (
	// StateUninitialized indicates the loop has been created but not run.
	StateUninitialized RunState = iota
	// StateInitializing indicates the host has been entered, and resources
	// are being acquired.
	StateInitializing
	// StateRunning indicates the loop is dispatching iterations.
	StateRunning
	// StateQuitting indicates an exit has been requested. No further
	// iteration work is dispatched.
	StateQuitting
	// StateTerminated indicates the quit callback has completed teardown.
	StateTerminated
)

// String returns a human-readable representation of the state.
func (s RunState) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateInitializing:
		return "Initializing"
	case StateRunning:
		return "Running"
	case StateQuitting:
		return "Quitting"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// fastState is a lock-free state holder, all transitions use CAS.
type fastState struct {
	v atomic.Uint32
}

// Load returns the current state atomically.
func (s *fastState) Load() RunState {
	return RunState(s.v.Load())
}

// Store atomically stores a new state, without validating the transition.
func (s *fastState) Store(state RunState) {
	s.v.Store(uint32(state))
}

// TryTransition attempts to atomically transition from one state to another.
// Returns true if the transition was successful.
func (s *fastState) TryTransition(from, to RunState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}

// TransitionAny attempts to transition from any of the given source states
// to the target, returning the state transitioned from, and true, on success.
func (s *fastState) TransitionAny(validFrom []RunState, to RunState) (RunState, bool) {
	for {
		current := s.Load()
		valid := false
		for _, from := range validFrom {
			if current == from {
				valid = true
				break
			}
		}
		if !valid {
			return current, false
		}
		if s.v.CompareAndSwap(uint32(current), uint32(to)) {
			return current, true
		}
	}
}

// IsTerminal returns true if the current state is StateTerminated.
func (s *fastState) IsTerminal() bool {
	return s.Load() == StateTerminated
}
