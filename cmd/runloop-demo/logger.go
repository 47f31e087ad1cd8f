package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joeycumines/go-runloop/internal/zaplog"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// levelAliases are accepted in addition to logiface.Level.String values.
var levelAliases = map[string]logiface.Level{
	"none":    logiface.LevelDisabled,
	"off":     logiface.LevelDisabled,
	"error":   logiface.LevelError,
	"warn":    logiface.LevelWarning,
	"verbose": logiface.LevelTrace,
}

func parseLevel(s string) (logiface.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if level, ok := levelAliases[s]; ok {
		return level, nil
	}
	for level := logiface.LevelDisabled; level <= logiface.LevelTrace; level++ {
		if level.String() == s {
			return level, nil
		}
	}
	return logiface.LevelDisabled, fmt.Errorf("unknown log level %q", s)
}

// newLogger builds the logger described by cfg, writing to w unless a file is
// configured. The returned function flushes and closes the output. A nil
// logger is returned if logging is disabled.
func newLogger(cfg LogConfig, w io.Writer) (*logiface.Logger[logiface.Event], func() error, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	if !level.Enabled() {
		return nil, func() error { return nil }, nil
	}

	closeOutput := func() error { return nil }
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closeOutput = f.Close
	}

	switch cfg.Format {
	case LogFormatConsole:
		z := zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(w),
			zapcore.DebugLevel,
		))
		logger := zaplog.L.New(
			zaplog.L.WithZap(z),
			zaplog.L.WithLevel(level),
		).Logger()
		return logger, func() error {
			_ = z.Sync()
			return closeOutput()
		}, nil

	case LogFormatJSON, "":
		logger := stumpy.L.New(
			stumpy.L.WithStumpy(stumpy.WithWriter(w)),
			stumpy.L.WithLevel(level),
		).Logger()
		return logger, closeOutput, nil

	default:
		_ = closeOutput()
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}
