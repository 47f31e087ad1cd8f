package runloop

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (x *fakeClock) Now() time.Time {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.now
}

func (x *fakeClock) Advance(d time.Duration) {
	x.mu.Lock()
	x.now = x.now.Add(d)
	x.mu.Unlock()
}

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (x *syncBuffer) Write(p []byte) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.b.Write(p)
}

func (x *syncBuffer) String() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.b.String()
}

func newTestLogger(w *syncBuffer) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(w),
			stumpy.WithTimeField(``),
		),
		stumpy.L.WithLevel(logiface.LevelTrace),
	).Logger()
}

// recorder tracks handler calls, in order, across handlers.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (x *recorder) add(format string, args ...any) {
	x.mu.Lock()
	x.calls = append(x.calls, fmt.Sprintf(format, args...))
	x.mu.Unlock()
}

func (x *recorder) String() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return strings.Join(x.calls, `,`)
}

func (x *recorder) count(call string) (n int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, v := range x.calls {
		if v == call {
			n++
		}
	}
	return
}

type recordingHandler struct {
	rec      *recorder
	name     string
	startErr error
	// update returns the result of Update, defaults to true
	update func(ctx *TimingContext) bool
	event  func(event any) EventResult
}

func (x *recordingHandler) Start(*Loop) error {
	x.rec.add(`%s.start`, x.name)
	return x.startErr
}

func (x *recordingHandler) Update(ctx *TimingContext) bool {
	x.rec.add(`%s.update`, x.name)
	if x.update != nil {
		return x.update(ctx)
	}
	return true
}

func (x *recordingHandler) Stop(*Loop) {
	x.rec.add(`%s.stop`, x.name)
}

func (x *recordingHandler) HandleEvent(_ *Loop, event any) EventResult {
	x.rec.add(`%s.event`, x.name)
	if x.event != nil {
		return x.event(event)
	}
	return EventContinue
}
