// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package runloop

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunMain runs the loop, alongside a main function, on its own goroutine.
// It returns once both have finished, with the loop's exit code of record.
//
// The value returned by main is requested as the exit code, so the loop
// exits once main returns (unless it already exited). The context passed to
// main is canceled once the loop terminates, and main is expected to return
// promptly after that. If ctx is canceled first, exit is requested with
// [ExitFailure].
//
// Errors from [Loop.Run] are returned, with [ExitFailure].
func RunMain(ctx context.Context, l *Loop, main func(ctx context.Context) int) (int, error) {
	g, gctx := errgroup.WithContext(ctx)

	mainCtx, cancelMain := context.WithCancel(gctx)
	defer cancelMain()

	g.Go(func() error {
		defer cancelMain()
		if _, err := l.Run(); err != nil {
			return err
		}
		// fire-and-forget hosts return early
		<-l.Done()
		return nil
	})

	g.Go(func() error {
		code := main(mainCtx)
		if ctx.Err() != nil {
			code = ExitFailure
		}
		l.RequestExit(code)
		return nil
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
			if ctx.Err() != nil {
				l.RequestExit(ExitFailure)
			}
		case <-l.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return ExitFailure, err
	}

	code, _ := l.ExitCode()
	return code, nil
}
