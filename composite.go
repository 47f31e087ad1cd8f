package runloop

import (
	"fmt"
)

// Composite aggregates multiple handlers behind the [Handler] contract.
//
// Ordering:
//   - Start starts members in registration order, stopping at the first
//     failure, after which only the members already started are stopped
//     (in reverse order)
//   - Update calls members in registration order, returning false as soon as
//     a member requests exit (later members are not called that iteration)
//   - Stop stops every started member, in reverse registration order
//   - HandleEvent forwards to members implementing [EventHandler], in
//     registration order, returning the first non-continue result
//
// Members must be added before the loop is run.
type Composite struct {
	members []Handler
	// started is the number of members (prefix of members) that were started
	started int
}

var (
	// compile time assertions

	_ Handler      = (*Composite)(nil)
	_ EventHandler = (*Composite)(nil)
)

// NewComposite initializes a Composite with the given members, nil members
// are skipped.
func NewComposite(handlers ...Handler) *Composite {
	x := &Composite{}
	for _, h := range handlers {
		x.Add(h)
	}
	return x
}

// Add appends a member, returning the receiver. Nil handlers are ignored.
func (x *Composite) Add(h Handler) *Composite {
	if h != nil {
		x.members = append(x.members, h)
	}
	return x
}

// Len returns the number of members.
func (x *Composite) Len() int {
	return len(x.members)
}

// Start implements Handler.
func (x *Composite) Start(l *Loop) error {
	x.started = 0
	for i, h := range x.members {
		if err := h.Start(l); err != nil {
			l.logger().Debug().
				Int(`member`, i).
				Err(err).
				Log(`composite member failed to start, stopping started members`)
			x.stopStarted(l)
			return fmt.Errorf(`runloop: composite member %d: %w`, i, err)
		}
		x.started = i + 1
	}
	return nil
}

// Update implements Handler.
func (x *Composite) Update(ctx *TimingContext) bool {
	for _, h := range x.members[:x.started] {
		if !h.Update(ctx) {
			return false
		}
	}
	return true
}

// Stop implements Handler.
func (x *Composite) Stop(l *Loop) {
	x.stopStarted(l)
}

// HandleEvent implements EventHandler.
func (x *Composite) HandleEvent(l *Loop, event any) EventResult {
	for _, h := range x.members[:x.started] {
		eh, ok := h.(EventHandler)
		if !ok {
			continue
		}
		if r := eh.HandleEvent(l, event); r != EventContinue {
			return r
		}
	}
	return EventContinue
}

func (x *Composite) stopStarted(l *Loop) {
	for i := x.started - 1; i >= 0; i-- {
		x.members[i].Stop(l)
	}
	x.started = 0
}
