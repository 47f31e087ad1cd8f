package runloop

import (
	"sync"
	"sync/atomic"
)

// keepAlive is the reference count that decides when a [Loop] may be
// finalized. The owner holds one reference from construction, released by
// [Loop.Close]. [Loop.Run] acquires a second (self) reference, released by
// the quit callback after teardown. Hosts that return from
// [Host.EnterMainCallbacks] before the quit callback (fire-and-forget hosts)
// therefore cannot have the loop finalized out from under them, even if the
// owner closes it as soon as Run returns.
type keepAlive struct {
	finalize func()
	done     chan struct{}
	refs     atomic.Int32
	once     sync.Once
}

func newKeepAlive(finalize func()) *keepAlive {
	x := &keepAlive{
		finalize: finalize,
		done:     make(chan struct{}),
	}
	x.refs.Store(1)
	return x
}

// acquire adds a reference, returning false if the count already reached
// zero (the loop has been finalized).
func (x *keepAlive) acquire() bool {
	for {
		n := x.refs.Load()
		if n <= 0 {
			return false
		}
		if x.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// release drops a reference, finalizing on the last one.
func (x *keepAlive) release() {
	n := x.refs.Add(-1)
	if n < 0 {
		panic(`runloop: keep-alive reference released too many times`)
	}
	if n == 0 {
		x.once.Do(func() {
			if x.finalize != nil {
				x.finalize()
			}
			close(x.done)
		})
	}
}
