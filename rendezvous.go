package runloop

import (
	"context"
	"sync"
)

// exitRendezvous is a one-shot, single-slot handoff of the exit code, from
// the loop (producer) to any number of waiters (consumers).
//
// The channel is created lazily, by the first waiter to arrive before
// completion. A single mutex guards both the existence check + creation of
// the channel, and the delivery, avoiding a lost wakeup between a waiter
// arriving and the loop signaling.
type exitRendezvous struct {
	// ch is closed on delivery, nil until a waiter needs it
	ch        chan struct{}
	mu        sync.Mutex
	code      int
	completed bool
}

// signal delivers code, if nothing has been delivered yet, returning true if
// this call delivered. A missing channel (no waiter ever arrived) is not an
// error, the value is stored for later waiters.
func (x *exitRendezvous) signal(code int) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.completed {
		return false
	}
	x.completed = true
	x.code = code
	if x.ch != nil {
		close(x.ch)
	}
	return true
}

// wait blocks until a value is delivered, or ctx is done. If a value has
// already been delivered, it is returned without blocking, and without
// creating a channel. Cancellation of ctx affects only this waiter.
func (x *exitRendezvous) wait(ctx context.Context) (int, error) {
	x.mu.Lock()
	if x.completed {
		code := x.code
		x.mu.Unlock()
		return code, nil
	}
	if x.ch == nil {
		x.ch = make(chan struct{})
	}
	ch := x.ch
	x.mu.Unlock()

	select {
	case <-ch:
		x.mu.Lock()
		code := x.code
		x.mu.Unlock()
		return code, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
