package main

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/joeycumines/go-runloop"
	"gopkg.in/yaml.v3"
)

// Host names.
const (
	HostBlocking  = "blocking"
	HostAsync     = "async"
	HostEventLoop = "eventloop"
	HostTerminal  = "tea"
)

// Log formats.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Default values for Config.
const (
	DefaultTimeout      = 2 * time.Second
	DefaultFPSWindow    = runloop.DefaultFPSWindow
	DefaultWindowTitle  = "Hello runloop"
	DefaultWindowWidth  = 640
	DefaultWindowHeight = 480
	DefaultVSync        = "enabled"
	DefaultLogLevel     = "info"
)

var (
	hostNames  = []string{HostBlocking, HostAsync, HostEventLoop, HostTerminal}
	logFormats = []string{LogFormatJSON, LogFormatConsole}
	vsyncModes = map[string]runloop.VSync{
		"enabled":  runloop.VSyncEnabled,
		"disabled": runloop.VSyncDisabled,
		"adaptive": runloop.VSyncAdaptive,
	}
)

// Config represents the demo's yaml config file.
type Config struct {
	Host string `yaml:"host"`
	// Timeout is how long to wait before exiting, if the loop has not quit.
	// Zero waits indefinitely.
	Timeout       time.Duration `yaml:"timeout"`
	FrameInterval time.Duration `yaml:"frame_interval"`
	VSync         string        `yaml:"vsync"`
	FPSWindow     int           `yaml:"fps_window"`
	Window        WindowConfig  `yaml:"window"`
	Log           LogConfig     `yaml:"log"`
}

// WindowConfig configures the surface.
type WindowConfig struct {
	Title     string `yaml:"title"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Resizable bool   `yaml:"resizable"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File, if set, is appended to instead of writing to stderr.
	File string `yaml:"file"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Host:          HostBlocking,
		Timeout:       DefaultTimeout,
		FrameInterval: runloop.DefaultFrameInterval,
		VSync:         DefaultVSync,
		FPSWindow:     DefaultFPSWindow,
		Window: WindowConfig{
			Title:     DefaultWindowTitle,
			Width:     DefaultWindowWidth,
			Height:    DefaultWindowHeight,
			Resizable: true,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: LogFormatJSON,
		},
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// LoadConfig reads and parses the config file at path, applying defaults for
// any missing fields. An empty path returns the default config.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// ValidateConfig checks that all config values are valid.
func ValidateConfig(cfg *Config) error {
	if !slices.Contains(hostNames, cfg.Host) {
		return ValidationError{Field: "host", Message: fmt.Sprintf("must be one of %v", hostNames)}
	}
	if cfg.Timeout < 0 {
		return ValidationError{Field: "timeout", Message: "must not be negative"}
	}
	if cfg.FrameInterval < 0 {
		return ValidationError{Field: "frame_interval", Message: "must not be negative"}
	}
	if _, ok := vsyncModes[cfg.VSync]; !ok {
		return ValidationError{Field: "vsync", Message: "must be one of enabled, disabled, adaptive"}
	}
	if cfg.FPSWindow <= 0 {
		return ValidationError{Field: "fps_window", Message: "must be positive"}
	}
	if cfg.Window.Width <= 0 {
		return ValidationError{Field: "window.width", Message: "must be positive"}
	}
	if cfg.Window.Height <= 0 {
		return ValidationError{Field: "window.height", Message: "must be positive"}
	}
	if _, err := parseLevel(cfg.Log.Level); err != nil {
		return ValidationError{Field: "log.level", Message: err.Error()}
	}
	if !slices.Contains(logFormats, cfg.Log.Format) {
		return ValidationError{Field: "log.format", Message: fmt.Sprintf("must be one of %v", logFormats)}
	}
	return nil
}

func (x WindowConfig) loopConfig() runloop.WindowConfig {
	cfg := runloop.WindowConfig{
		Title:  x.Title,
		Width:  x.Width,
		Height: x.Height,
	}
	if x.Resizable {
		cfg.Flags |= runloop.WindowResizable
	}
	return cfg
}
