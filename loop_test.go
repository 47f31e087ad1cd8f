package runloop

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newManualLoop(t *testing.T, h Handler, opts ...LoopOption) (*Loop, *ManualHost, *HeadlessBackend) {
	t.Helper()
	host := NewManualHost()
	backend := NewHeadlessBackend()
	l, err := New(h, append([]LoopOption{WithHost(host), WithBackend(backend)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	code, err := l.Run()
	require.NoError(t, err)
	require.Equal(t, ExitSuccess, code)
	return l, host, backend
}

func blockingHost() Host {
	return &BlockingHost{FrameInterval: -1}
}

func TestNew_validation(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := New(&HandlerFuncs{}, WithHost(nil)); !errors.Is(err, ErrNilHost) {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := New(&HandlerFuncs{}, WithBackend(nil)); !errors.Is(err, ErrNilBackend) {
		t.Errorf("unexpected error: %v", err)
	}
	l, err := New(&HandlerFuncs{}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	if l.State() != StateUninitialized {
		t.Errorf("unexpected state: %v", l.State())
	}
	if _, ok := l.opts.host.(*BlockingHost); !ok {
		t.Errorf("unexpected default host: %T", l.opts.host)
	}
	if _, ok := l.opts.backend.(*HeadlessBackend); !ok {
		t.Errorf("unexpected default backend: %T", l.opts.backend)
	}
}

func TestLoop_RequestExit_noFurtherUpdates(t *testing.T) {
	rec := new(recorder)
	l, host, _ := newManualLoop(t, &recordingHandler{rec: rec, name: `h`})
	require.Equal(t, StateRunning, l.State())

	require.True(t, host.Step())
	l.RequestExit(3)
	require.Equal(t, StateQuitting, l.State())

	for i := 0; i < 5; i++ {
		require.False(t, host.Step())
	}

	require.Equal(t, `h.start,h.update,h.stop`, rec.String())
	require.Equal(t, StateTerminated, l.State())
	code, ok := l.ExitCode()
	require.True(t, ok)
	require.Equal(t, 3, code)
	result, ended := host.Result()
	require.True(t, ended)
	require.Equal(t, AppFailure, result)
}

func TestLoop_RequestExit_fromUpdate(t *testing.T) {
	backend := NewHeadlessBackend()
	var l *Loop
	rec := new(recorder)
	h := &recordingHandler{rec: rec, name: `h`, update: func(ctx *TimingContext) bool {
		if ctx.FrameIndex == 1 {
			l.RequestExit(ExitSuccess)
		}
		return true
	}}
	var err error
	l, err = New(h, WithHost(blockingHost()), WithBackend(backend))
	require.NoError(t, err)
	defer l.Close()

	code, err := l.Run()
	require.NoError(t, err)
	require.Equal(t, ExitSuccess, code)
	require.Equal(t, 2, rec.count(`h.update`))
	// the frame exit was requested in is not presented
	require.Equal(t, uint64(1), backend.Presents())
}

func TestLoop_RequestExit_firstWriterWins(t *testing.T) {
	l, host, _ := newManualLoop(t, &HandlerFuncs{})
	l.RequestExit(5)
	l.RequestExit(9)
	require.True(t, host.Terminate(AppFailure))
	code, ok := l.ExitCode()
	require.True(t, ok)
	require.Equal(t, 5, code)
}

func TestLoop_abnormalHostTermination(t *testing.T) {
	rec := new(recorder)
	l, host, backend := newManualLoop(t, &recordingHandler{rec: rec, name: `h`})
	require.True(t, host.Step())
	require.True(t, host.Terminate(AppFailure))

	code, err := l.WaitForExit(context.Background())
	require.NoError(t, err)
	require.Equal(t, ExitFailure, code)
	require.Equal(t, `h.start,h.update,h.stop`, rec.String())
	require.Equal(t, 0, backend.Live())
	require.NoError(t, l.Err())
}

func TestLoop_gracefulHostTermination(t *testing.T) {
	l, host, _ := newManualLoop(t, &HandlerFuncs{})
	require.True(t, host.Terminate(AppSuccess))
	code, ok := l.ExitCode()
	require.True(t, ok)
	require.Equal(t, ExitSuccess, code)
	require.False(t, host.Terminate(AppFailure))
}

func TestLoop_updateRequestsExit(t *testing.T) {
	clock := newFakeClock()
	var frames []uint64
	h := &HandlerFuncs{OnUpdate: func(ctx *TimingContext) bool {
		frames = append(frames, ctx.FrameIndex)
		clock.Advance(10 * time.Millisecond)
		return ctx.FrameIndex < 2
	}}
	l, host, backend := newManualLoop(t, h, WithClock(clock))

	steps := 0
	for host.Step() {
		steps++
	}
	require.Equal(t, 2, steps)
	require.Equal(t, []uint64{0, 1, 2}, frames)
	require.Equal(t, uint64(2), backend.Presents())
	require.Equal(t, StateTerminated, l.State())
	code, _ := l.ExitCode()
	require.Equal(t, ExitSuccess, code)
	result, _ := host.Result()
	require.Equal(t, AppSuccess, result)
}

func TestLoop_events(t *testing.T) {
	for _, tc := range [...]struct {
		name   string
		result EventResult
		code   int
		app    AppResult
	}{
		{`exit`, EventExit, ExitSuccess, AppSuccess},
		{`fail`, EventFail, ExitFailure, AppFailure},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := new(recorder)
			h := &recordingHandler{rec: rec, name: `h`, event: func(event any) EventResult {
				if v, ok := event.(KeyEvent); ok && v.Key == `escape` {
					return tc.result
				}
				return EventContinue
			}}
			var observed []any
			l, host, _ := newManualLoop(t, h, WithOnEvent(func(event any) { observed = append(observed, event) }))

			require.True(t, host.Post(KeyEvent{Key: `a`}))
			require.True(t, host.Step())
			require.True(t, host.Post(KeyEvent{Key: `escape`}))
			require.True(t, host.Post(KeyEvent{Key: `b`}))
			require.False(t, host.Step())
			require.False(t, host.Post(KeyEvent{Key: `c`}))

			require.Equal(t, `h.start,h.event,h.update,h.event,h.stop`, rec.String())
			require.Equal(t, []any{KeyEvent{Key: `a`}}, observed)
			code, _ := l.ExitCode()
			require.Equal(t, tc.code, code)
			result, _ := host.Result()
			require.Equal(t, tc.app, result)
		})
	}
}

func TestLoop_eventsNotInterpreted(t *testing.T) {
	l, host, _ := newManualLoop(t, &HandlerFuncs{})
	host.Post(QuitEvent{})
	host.Post(KeyEvent{Key: `escape`})
	require.True(t, host.Step())
	require.Equal(t, StateRunning, l.State())
	host.Terminate(AppSuccess)
}

func TestLoop_WaitForExit_waitersBeforeExit(t *testing.T) {
	l, host, _ := newManualLoop(t, &HandlerFuncs{})

	const waiters = 2
	var wg sync.WaitGroup
	results := make(chan int, waiters)
	wg.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			defer wg.Done()
			code, err := l.WaitForExit(context.Background())
			if err != nil {
				t.Error(err)
			}
			results <- code
		}()
	}
	l.rendezvous.waitForChannel(t)

	go l.RequestExit(7)
	wg.Wait()
	close(results)
	for code := range results {
		require.Equal(t, 7, code)
	}

	l.rendezvous.mu.Lock()
	ch := l.rendezvous.ch
	l.rendezvous.mu.Unlock()

	require.False(t, host.Step())
	code, err := l.WaitForExit(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, code)

	l.rendezvous.mu.Lock()
	require.Equal(t, ch, l.rendezvous.ch)
	l.rendezvous.mu.Unlock()
}

func TestLoop_WaitForExit_afterTermination(t *testing.T) {
	l, host, _ := newManualLoop(t, &HandlerFuncs{OnUpdate: func(*TimingContext) bool { return false }})
	require.False(t, host.Step())
	<-l.Done()

	code, err := l.WaitForExit(context.Background())
	require.NoError(t, err)
	require.Equal(t, ExitSuccess, code)
	require.False(t, l.rendezvous.hasChannel())
}

func TestLoop_WaitForExit_cancelDoesNotAffectLoop(t *testing.T) {
	l, host, _ := newManualLoop(t, &HandlerFuncs{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := l.WaitForExit(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, StateRunning, l.State())
	require.True(t, host.Step())
	host.Terminate(AppSuccess)
}

func TestLoop_initFailure_window(t *testing.T) {
	backend := NewHeadlessBackend()
	boom := errors.New(`no display`)
	backend.WindowErr = boom
	rec := new(recorder)
	l, err := New(&recordingHandler{rec: rec, name: `h`}, WithHost(blockingHost()), WithBackend(backend))
	require.NoError(t, err)
	defer l.Close()

	code, err := l.Run()
	require.NoError(t, err)
	require.Equal(t, ExitFailure, code)

	var initErr *InitError
	require.ErrorAs(t, l.Err(), &initErr)
	require.Equal(t, StageWindow, initErr.Stage)
	require.ErrorIs(t, l.Err(), boom)
	require.Equal(t, ``, rec.String())
	require.Equal(t, 0, backend.Live())
	require.Equal(t, StateTerminated, l.State())
}

func TestLoop_initFailure_rendererReleasesWindow(t *testing.T) {
	backend := NewHeadlessBackend()
	boom := errors.New(`no gpu`)
	backend.RendererErr = boom
	rec := new(recorder)
	var onQuit bool
	l, err := New(
		&recordingHandler{rec: rec, name: `h`},
		WithHost(blockingHost()),
		WithBackend(backend),
		WithOnQuit(func(*Loop) { onQuit = true }),
	)
	require.NoError(t, err)
	defer l.Close()

	code, err := l.Run()
	require.NoError(t, err)
	require.Equal(t, ExitFailure, code)

	var initErr *InitError
	require.ErrorAs(t, l.Err(), &initErr)
	require.Equal(t, StageRenderer, initErr.Stage)
	require.ErrorIs(t, l.Err(), boom)
	require.True(t, backend.LastWindow().Destroyed())
	require.Equal(t, 0, backend.Live())
	require.Equal(t, ``, rec.String())
	require.False(t, onQuit)
}

func TestLoop_initFailure_onInit(t *testing.T) {
	backend := NewHeadlessBackend()
	boom := errors.New(`bad assets`)
	rec := new(recorder)
	var onQuit bool
	l, err := New(
		&recordingHandler{rec: rec, name: `h`},
		WithHost(blockingHost()),
		WithBackend(backend),
		WithOnInit(func(*Loop) error { return boom }),
		WithOnQuit(func(*Loop) { onQuit = true }),
	)
	require.NoError(t, err)
	defer l.Close()

	code, err := l.Run()
	require.NoError(t, err)
	require.Equal(t, ExitFailure, code)
	var initErr *InitError
	require.ErrorAs(t, l.Err(), &initErr)
	require.Equal(t, StageOnInit, initErr.Stage)
	require.Equal(t, ``, rec.String())
	require.False(t, onQuit)
	require.Equal(t, 0, backend.Live())
}

func TestLoop_initFailure_handlerStart(t *testing.T) {
	backend := NewHeadlessBackend()
	boom := errors.New(`start failed`)
	rec := new(recorder)
	var logs syncBuffer
	l, err := New(
		NewComposite(
			&recordingHandler{rec: rec, name: `a`},
			&recordingHandler{rec: rec, name: `b`, startErr: boom},
			&recordingHandler{rec: rec, name: `c`},
		),
		WithHost(blockingHost()),
		WithBackend(backend),
		WithLogger(newTestLogger(&logs)),
		WithOnQuit(func(*Loop) {
			rec.add(`quit:%v`, backend.LastRenderer().Destroyed())
		}),
	)
	require.NoError(t, err)
	defer l.Close()

	code, err := l.Run()
	require.NoError(t, err)
	require.Equal(t, ExitFailure, code)

	var initErr *InitError
	require.ErrorAs(t, l.Err(), &initErr)
	require.Equal(t, StageHandlerStart, initErr.Stage)
	require.ErrorIs(t, l.Err(), boom)
	require.Equal(t, `a.start,b.start,a.stop,quit:false`, rec.String())
	require.Equal(t, 0, backend.Live())
	require.Contains(t, logs.String(), `init failed`)
}

func TestLoop_vsyncDowngrade(t *testing.T) {
	backend := NewHeadlessBackend()
	backend.VSyncModes = []VSync{VSyncEnabled}
	var logs syncBuffer
	host := NewManualHost()
	l, err := New(
		&HandlerFuncs{},
		WithHost(host),
		WithBackend(backend),
		WithVSync(VSyncAdaptive),
		WithLogger(newTestLogger(&logs)),
	)
	require.NoError(t, err)
	defer l.Close()
	_, err = l.Run()
	require.NoError(t, err)

	require.Equal(t, StateRunning, l.State())
	require.Equal(t, VSyncDisabled, backend.LastRenderer().VSync())
	require.Contains(t, logs.String(), `vsync mode unavailable`)
	require.Contains(t, logs.String(), `adaptive`)
	host.Terminate(AppSuccess)
}

func TestLoop_vsyncSupported(t *testing.T) {
	l, host, backend := newManualLoop(t, &HandlerFuncs{}, WithVSync(VSyncEnabled))
	require.Equal(t, VSyncEnabled, backend.LastRenderer().VSync())
	require.Equal(t, backend.LastRenderer(), l.Renderer())
	require.Equal(t, backend.LastWindow(), l.Window())
	host.Terminate(AppSuccess)
	require.Nil(t, l.Renderer())
	require.Nil(t, l.Window())
}

func TestLoop_presentErrorNotFatal(t *testing.T) {
	backend := NewHeadlessBackend()
	backend.PresentErr = errors.New(`device lost`)
	var logs syncBuffer
	l, err := New(
		&HandlerFuncs{OnUpdate: func(ctx *TimingContext) bool { return ctx.FrameIndex < 5 }},
		WithHost(blockingHost()),
		WithBackend(backend),
		WithLogger(newTestLogger(&logs)),
	)
	require.NoError(t, err)
	defer l.Close()

	code, err := l.Run()
	require.NoError(t, err)
	require.Equal(t, ExitSuccess, code)
	require.Equal(t, uint64(0), backend.Presents())
	// rate limited
	require.Less(t, strings.Count(logs.String(), `present failed`), 5)
	require.Contains(t, logs.String(), `present failed`)
}

func TestLoop_callbackOrder(t *testing.T) {
	backend := NewHeadlessBackend()
	rec := new(recorder)
	l, err := New(
		&recordingHandler{rec: rec, name: `h`, update: func(ctx *TimingContext) bool { return ctx.FrameIndex < 2 }},
		WithHost(blockingHost()),
		WithBackend(backend),
		WithWindow(WindowConfig{Title: `test`, Width: 320, Height: 240}),
		WithOnInit(func(l *Loop) error {
			rec.add(`init:%s`, backend.LastWindow().Config.Title)
			return nil
		}),
		WithOnRender(func(r Renderer, ctx *TimingContext) {
			rec.add(`render%d:%d`, ctx.FrameIndex, backend.Presents())
		}),
		WithOnQuit(func(l *Loop) {
			rec.add(`quit:%v:%v`, backend.LastRenderer().Destroyed(), backend.LastWindow().Destroyed())
		}),
	)
	require.NoError(t, err)
	defer l.Close()

	code, err := l.Run()
	require.NoError(t, err)
	require.Equal(t, ExitSuccess, code)
	require.Equal(t, `init:test,h.start,h.update,render0:0,h.update,render1:1,h.update,h.stop,quit:false:false`, rec.String())
	require.Equal(t, uint64(2), backend.Presents())
	require.Equal(t, 0, backend.Live())
}

func TestLoop_Run_misuse(t *testing.T) {
	var (
		l      *Loop
		runErr error
	)
	h := &HandlerFuncs{
		OnStart: func(*Loop) error {
			_, runErr = l.Run()
			return nil
		},
		OnUpdate: func(*TimingContext) bool { return false },
	}
	var err error
	l, err = New(h, WithHost(blockingHost()))
	require.NoError(t, err)
	defer l.Close()

	code, err := l.Run()
	require.NoError(t, err)
	require.Equal(t, ExitSuccess, code)
	require.ErrorIs(t, runErr, ErrReentrantRun)

	code, err = l.Run()
	require.ErrorIs(t, err, ErrLoopTerminated)
	require.Equal(t, ExitFailure, code)
}

func TestLoop_Run_alreadyRunning(t *testing.T) {
	l, host, _ := newManualLoop(t, &HandlerFuncs{})
	_, err := l.Run()
	require.ErrorIs(t, err, ErrLoopAlreadyRunning)
	host.Terminate(AppSuccess)
}

func TestLoop_RequestExit_beforeRun(t *testing.T) {
	backend := NewHeadlessBackend()
	rec := new(recorder)
	l, err := New(&recordingHandler{rec: rec, name: `h`}, WithHost(blockingHost()), WithBackend(backend))
	require.NoError(t, err)
	defer l.Close()

	l.RequestExit(4)
	code, err := l.WaitForExit(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, code)
	require.Equal(t, StateUninitialized, l.State())

	code, err = l.Run()
	require.NoError(t, err)
	require.Equal(t, 4, code)
	require.Nil(t, backend.LastWindow())
	require.Equal(t, ``, rec.String())
	require.Equal(t, StateTerminated, l.State())
}

func TestLoop_Close_beforeRun(t *testing.T) {
	l, err := New(&HandlerFuncs{})
	require.NoError(t, err)

	require.NoError(t, l.Close())
	require.ErrorIs(t, l.Close(), ErrLoopClosed)

	select {
	case <-l.Released():
	default:
		t.Fatal("expected released")
	}
	select {
	case <-l.Done():
	default:
		t.Fatal("expected done")
	}

	_, err = l.Run()
	require.ErrorIs(t, err, ErrLoopTerminated)

	code, err := l.WaitForExit(context.Background())
	require.NoError(t, err)
	require.Equal(t, ExitSuccess, code)
}

func TestLoop_keepAlive_asyncHost(t *testing.T) {
	host := &AsyncHost{BlockingHost: BlockingHost{FrameInterval: time.Millisecond}}
	started := make(chan struct{})
	stopped := make(chan struct{})
	h := &HandlerFuncs{
		OnStart: func(*Loop) error {
			close(started)
			return nil
		},
		OnStop: func(*Loop) { close(stopped) },
	}
	l, err := New(h, WithHost(host))
	require.NoError(t, err)

	code, err := l.Run()
	require.NoError(t, err)
	require.Equal(t, ExitSuccess, code)

	// the owner lets go as soon as Run returns
	require.NoError(t, l.Close())

	<-started
	select {
	case <-l.Released():
		t.Fatal("loop finalized while the host is still driving it")
	case <-time.After(20 * time.Millisecond):
	}
	require.Equal(t, StateRunning, l.State())

	l.RequestExit(6)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	code, err = l.WaitForExit(ctx)
	require.NoError(t, err)
	require.Equal(t, 6, code)

	require.Equal(t, ExitFailure, host.Wait())
	<-stopped
	select {
	case <-l.Released():
	case <-ctx.Done():
		t.Fatal("loop never finalized")
	}
	require.Equal(t, StateTerminated, l.State())
}

func TestLoop_keepAlive_ownerOutlivesRun(t *testing.T) {
	l, host, _ := newManualLoop(t, &HandlerFuncs{})
	host.Terminate(AppSuccess)
	select {
	case <-l.Released():
		t.Fatal("released while the owner holds a reference")
	default:
	}
	require.NoError(t, l.Close())
	<-l.Released()
	require.Nil(t, l.handler)
}

func TestLoop_handlerReleasedOnTermination(t *testing.T) {
	var stopped bool
	l, host, _ := newManualLoop(t, &HandlerFuncs{OnStop: func(*Loop) { stopped = true }})
	require.NotNil(t, l.handler)
	host.Terminate(AppSuccess)
	<-l.Done()
	require.True(t, stopped)
	require.Nil(t, l.handler)
	select {
	case <-l.Released():
		t.Fatal("released while the owner holds a reference")
	default:
	}
}

func TestLoop_eventBeforeRunning(t *testing.T) {
	var (
		logs   syncBuffer
		events int
	)
	early := HostFunc(func(args []string, app App) int {
		if r := app.AppEvent(KeyEvent{Key: `early`}); r != AppContinue {
			t.Errorf("expected continue, got %s", r)
		}
		result := app.AppInit(args)
		if result == AppContinue {
			result = app.AppEvent(KeyEvent{Key: `late`})
		}
		app.AppQuit(AppSuccess)
		return statusFor(result)
	})
	l, err := New(
		&HandlerFuncs{OnEvent: func(_ *Loop, event any) EventResult {
			events++
			require.Equal(t, KeyEvent{Key: `late`}, event)
			return EventContinue
		}},
		WithHost(early),
		WithLogger(newTestLogger(&logs)),
	)
	require.NoError(t, err)
	defer l.Close()

	code, err := l.Run()
	require.NoError(t, err)
	require.Equal(t, ExitSuccess, code)
	require.Equal(t, 1, events)

	out := logs.String()
	require.Contains(t, out, `event before running, ignored`)
	require.Contains(t, out, `"state":"Initializing"`)
	require.Contains(t, out, `"event":"runloop.KeyEvent"`)
}

func TestLoop_logs(t *testing.T) {
	var logs syncBuffer
	l, err := New(
		&HandlerFuncs{OnUpdate: func(*TimingContext) bool { return false }},
		WithHost(blockingHost()),
		WithLogger(newTestLogger(&logs)),
	)
	require.NoError(t, err)
	_, err = l.Run()
	require.NoError(t, err)
	require.NoError(t, l.Close())

	out := logs.String()
	for _, msg := range [...]string{
		`loop created`,
		`window created`,
		`renderer created`,
		`loop running`,
		`handler requested exit`,
		`renderer destroyed`,
		`window destroyed`,
		`loop terminated`,
		`loop destroyed`,
	} {
		require.Contains(t, out, msg)
	}
}
