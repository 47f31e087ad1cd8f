package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joeycumines/go-runloop"
	"github.com/joeycumines/go-runloop/eventloophost"
	"github.com/joeycumines/go-runloop/teahost"
	"github.com/joeycumines/logiface"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Version is set at build time via ldflags.
var Version = "dev"

// ErrNotTerminal is returned when the terminal host is selected, but stdout
// is not a terminal.
var ErrNotTerminal = errors.New("the tea host requires stdout to be a terminal")

// isTerminal reports whether stdout is a terminal. It can be overridden in
// tests.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// quitContext is done once the process is asked to quit. It can be
// overridden in tests.
var quitContext = func(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

type rootOptions struct {
	configPath    string
	host          string
	timeout       time.Duration
	frameInterval time.Duration
	vsync         string
	title         string
	logLevel      string
	logFormat     string
	logFile       string
}

// newRootCmd builds the command, storing the exit code of a successful run
// in code.
func newRootCmd(code *int) *cobra.Command {
	var opts rootOptions
	cmd := &cobra.Command{
		Use:   "runloop-demo [args...]",
		Short: "Animate a scene on a run loop, until quit or timeout",
		Long: `runloop-demo runs a loop with a demo handler, on the selected host.

The demo exits when the loop quits (quit event, q or escape key), or once
the timeout has elapsed. Remaining arguments are passed to the loop.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRootConfig(cmd, &opts)
			if err != nil {
				return err
			}
			*code, err = run(cmd.Context(), cfg, args, cmd.ErrOrStderr())
			return err
		},
	}
	cmd.SetVersionTemplate("runloop-demo version {{.Version}}\n")

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "path to a yaml config file")
	f.StringVar(&opts.host, "host", "", fmt.Sprintf("host harness, one of %v", hostNames))
	f.DurationVarP(&opts.timeout, "timeout", "t", 0, "exit after this long, 0 waits for quit")
	f.DurationVar(&opts.frameInterval, "frame-interval", 0, "time between frames")
	f.StringVar(&opts.vsync, "vsync", "", "vsync mode: enabled, disabled or adaptive")
	f.StringVar(&opts.title, "title", "", "window title")
	f.StringVar(&opts.logLevel, "log-level", "", "log level, e.g. trace, debug, info, warning, none")
	f.StringVar(&opts.logFormat, "log-format", "", fmt.Sprintf("log format, one of %v", logFormats))
	f.StringVar(&opts.logFile, "log-file", "", "append logs to this file instead of stderr")

	return cmd
}

// loadRootConfig loads the config file, then applies any flags that were set.
func loadRootConfig(cmd *cobra.Command, opts *rootOptions) (*Config, error) {
	cfg, err := LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Host = opts.host
	}
	if f.Changed("timeout") {
		cfg.Timeout = opts.timeout
	}
	if f.Changed("frame-interval") {
		cfg.FrameInterval = opts.frameInterval
	}
	if f.Changed("vsync") {
		cfg.VSync = opts.vsync
	}
	if f.Changed("title") {
		cfg.Window.Title = opts.title
	}
	if f.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if f.Changed("log-format") {
		cfg.Log.Format = opts.logFormat
	}
	if f.Changed("log-file") {
		cfg.Log.File = opts.logFile
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// run builds and runs the loop, returning its exit code.
func run(ctx context.Context, cfg *Config, args []string, stderr io.Writer) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if cfg.Host == HostTerminal {
		if !isTerminal() {
			return runloop.ExitFailure, ErrNotTerminal
		}
		if cfg.Log.File == "" {
			// the terminal belongs to the program
			stderr = io.Discard
		}
	}

	logger, closeLogger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return runloop.ExitFailure, err
	}
	defer closeLogger()

	quitCtx, stop := quitContext(ctx)
	defer stop()

	var (
		backend runloop.Backend
		host    runloop.Host
	)
	switch cfg.Host {
	case HostTerminal:
		b := teahost.NewBackend()
		backend = b
		host = &teahost.Host{
			Logger:        logger,
			Backend:       b,
			FrameInterval: cfg.FrameInterval,
			Options:       []tea.ProgramOption{tea.WithAltScreen()},
		}
	case HostAsync:
		backend = runloop.NewHeadlessBackend()
		host = &runloop.AsyncHost{BlockingHost: runloop.BlockingHost{
			Context:       quitCtx,
			Logger:        logger,
			FrameInterval: cfg.FrameInterval,
		}}
	case HostEventLoop:
		backend = runloop.NewHeadlessBackend()
		host = &eventloophost.Host{
			Context:       quitCtx,
			Logger:        logger,
			FrameInterval: cfg.FrameInterval,
		}
	default:
		backend = runloop.NewHeadlessBackend()
		host = &runloop.BlockingHost{
			Context:       quitCtx,
			Logger:        logger,
			FrameInterval: cfg.FrameInterval,
		}
	}

	d, handler := newDemo(logger, cfg.FPSWindow)
	loop, err := runloop.New(
		handler,
		runloop.WithHost(host),
		runloop.WithBackend(backend),
		runloop.WithWindow(cfg.Window.loopConfig()),
		runloop.WithVSync(vsyncModes[cfg.VSync]),
		runloop.WithLogger(logger),
		runloop.WithArgs(args...),
		runloop.WithOnRender(d.render),
	)
	if err != nil {
		return runloop.ExitFailure, err
	}
	defer loop.Close()

	code, err := runloop.RunMain(ctx, loop, func(ctx context.Context) int {
		return waitForQuit(ctx, loop, cfg.Timeout, logger)
	})
	if err != nil {
		return code, err
	}
	if err := loop.Err(); err != nil {
		logger.Err().Err(err).Log(`loop failed`)
	}
	logger.Info().Int(`code`, code).Log(`exiting`)
	return code, nil
}

// waitForQuit waits for the loop to quit, or the timeout to elapse, if it is
// positive.
func waitForQuit(ctx context.Context, loop *runloop.Loop, timeout time.Duration, logger *logiface.Logger[logiface.Event]) int {
	if timeout <= 0 {
		logger.Info().Log(`waiting for quit`)
		code, err := loop.WaitForExit(ctx)
		if err != nil {
			return runloop.ExitFailure
		}
		logger.Info().Int(`code`, code).Log(`loop quit`)
		return code
	}

	logger.Info().Dur(`timeout`, timeout).Log(`waiting for quit or timeout`)
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	code, err := loop.WaitForExit(waitCtx)
	switch {
	case err == nil:
		logger.Info().Int(`code`, code).Log(`loop quit`)
		return code
	case ctx.Err() == nil:
		logger.Info().Log(`timeout reached`)
		return runloop.ExitSuccess
	default:
		return runloop.ExitFailure
	}
}
