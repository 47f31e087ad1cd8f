// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package runloop

import (
	"github.com/joeycumines/logiface"
)

// loopOptions holds configuration options for Loop creation.
type loopOptions struct {
	host     Host
	backend  Backend
	clock    Clock
	logger   *logiface.Logger[logiface.Event]
	onInit   func(l *Loop) error
	onQuit   func(l *Loop)
	onRender func(r Renderer, ctx *TimingContext)
	onEvent  func(event any)
	args     []string
	window   WindowConfig
	vsync    VSync
}

// --- Loop Options ---

// LoopOption configures a Loop instance.
type LoopOption interface {
	applyLoop(*loopOptions) error
}

// loopOptionImpl implements LoopOption.
type loopOptionImpl struct {
	applyLoopFunc func(*loopOptions) error
}

func (l *loopOptionImpl) applyLoop(opts *loopOptions) error {
	return l.applyLoopFunc(opts)
}

// WithHost sets the host harness that drives the loop.
// Defaults to a [BlockingHost] with default settings.
func WithHost(host Host) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		if host == nil {
			return ErrNilHost
		}
		opts.host = host
		return nil
	}}
}

// WithBackend sets the resource factory.
// Defaults to a [HeadlessBackend].
func WithBackend(backend Backend) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		if backend == nil {
			return ErrNilBackend
		}
		opts.backend = backend
		return nil
	}}
}

// WithWindow sets the surface configuration.
// Defaults to [DefaultWindowConfig].
func WithWindow(cfg WindowConfig) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.window = cfg
		return nil
	}}
}

// WithVSync sets the vsync preference. Modes the backend cannot honor are
// downgraded to [VSyncDisabled], with a warning.
// Defaults to [VSyncEnabled].
func WithVSync(mode VSync) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.vsync = mode
		return nil
	}}
}

// WithClock sets the clock used for [TimingContext].
func WithClock(clock Clock) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.clock = clock
		return nil
	}}
}

// WithLogger sets the structured logger. A nil logger disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithArgs sets the arguments passed to the host's init callback.
func WithArgs(args ...string) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.args = args
		return nil
	}}
}

// WithOnInit registers a callback, run during the init callback, after
// resources are acquired, and before [Handler.Start]. An error aborts the
// run, with [ExitFailure].
func WithOnInit(fn func(l *Loop) error) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.onInit = fn
		return nil
	}}
}

// WithOnQuit registers a callback, run during the quit callback, after
// [Handler.Stop], and before resources are released. It is only called if
// the init callback got past [WithOnInit] (i.e. resources were acquired, and
// the WithOnInit callback, if any, succeeded).
func WithOnQuit(fn func(l *Loop)) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.onQuit = fn
		return nil
	}}
}

// WithOnRender registers a callback, run each iteration after
// [Handler.Update], and before the renderer presents.
func WithOnRender(fn func(r Renderer, ctx *TimingContext)) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.onRender = fn
		return nil
	}}
}

// WithOnEvent registers an observer, called with every host event after the
// handler's event hook, if the loop is still running.
func WithOnEvent(fn func(event any)) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.onEvent = fn
		return nil
	}}
}

// resolveLoopOptions applies LoopOption instances to loopOptions.
func resolveLoopOptions(opts []LoopOption) (*loopOptions, error) {
	cfg := &loopOptions{
		window: DefaultWindowConfig(),
		vsync:  VSyncEnabled,
	}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.applyLoop(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.backend == nil {
		cfg.backend = NewHeadlessBackend()
	}
	if cfg.host == nil {
		cfg.host = &BlockingHost{Logger: cfg.logger}
	}
	if cfg.clock == nil {
		cfg.clock = systemClock{}
	}
	return cfg, nil
}
