// Package zaplog implements support for using go.uber.org/zap with github.com/joeycumines/logiface.
package zaplog

import (
	"sync"
	"time"

	"github.com/joeycumines/logiface"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	Event struct {
		msg    string
		fields []zap.Field
		lvl    logiface.Level
		//lint:ignore U1000 embedded for it's methods
		unimplementedEvent
	}

	Logger struct {
		Zap *zap.Logger
	}

	// LoggerFactory is provided as a convenience, embedding
	// logiface.LoggerFactory[*Event], and aliasing the option functions
	// implemented within this package.
	LoggerFactory struct {
		//lint:ignore U1000 embedded for it's methods
		baseLoggerFactory
	}

	//lint:ignore U1000 used to embed without exporting
	unimplementedEvent = logiface.UnimplementedEvent

	//lint:ignore U1000 used to embed without exporting
	baseLoggerFactory = logiface.LoggerFactory[*Event]
)

var (
	// L is a LoggerFactory, and may be used to configure a
	// logiface.Logger[*Event], using the implementations provided by this
	// package.
	L = LoggerFactory{}

	eventPool = sync.Pool{New: func() any {
		return &Event{fields: make([]zap.Field, 0, 8)}
	}}
)

// WithZap configures a logiface logger to use a zap logger.
// Will panic if the logger is nil.
//
// See also LoggerFactory.WithZap and L (an alias for LoggerFactory{}).
func WithZap(logger *zap.Logger) logiface.Option[*Event] {
	if logger == nil {
		panic(`nil logger`)
	}
	l := Logger{Zap: logger}
	return L.WithOptions(
		L.WithWriter(&l),
		L.WithEventFactory(&l),
		L.WithEventReleaser(&l),
	)
}

// WithZap is an alias of the package function of the same name.
func (LoggerFactory) WithZap(logger *zap.Logger) logiface.Option[*Event] {
	return WithZap(logger)
}

func (x *Event) Level() logiface.Level {
	if x != nil {
		return x.lvl
	}
	return logiface.LevelDisabled
}

func (x *Event) AddField(key string, val any) {
	x.fields = append(x.fields, zap.Any(key, val))
}

func (x *Event) AddMessage(msg string) bool {
	x.msg = msg
	return true
}

func (x *Event) AddError(err error) bool {
	x.fields = append(x.fields, zap.Error(err))
	return true
}

func (x *Event) AddString(key string, val string) bool {
	x.fields = append(x.fields, zap.String(key, val))
	return true
}

func (x *Event) AddInt(key string, val int) bool {
	x.fields = append(x.fields, zap.Int(key, val))
	return true
}

func (x *Event) AddInt64(key string, val int64) bool {
	x.fields = append(x.fields, zap.Int64(key, val))
	return true
}

func (x *Event) AddUint64(key string, val uint64) bool {
	x.fields = append(x.fields, zap.Uint64(key, val))
	return true
}

func (x *Event) AddFloat64(key string, val float64) bool {
	x.fields = append(x.fields, zap.Float64(key, val))
	return true
}

func (x *Event) AddBool(key string, val bool) bool {
	x.fields = append(x.fields, zap.Bool(key, val))
	return true
}

func (x *Event) AddTime(key string, val time.Time) bool {
	x.fields = append(x.fields, zap.Time(key, val))
	return true
}

func (x *Event) AddDuration(key string, val time.Duration) bool {
	x.fields = append(x.fields, zap.Duration(key, val))
	return true
}

func (x *Logger) NewEvent(level logiface.Level) *Event {
	event := eventPool.Get().(*Event)
	event.lvl = level
	return event
}

func (x *Logger) ReleaseEvent(event *Event) {
	clear(event.fields)
	*event = Event{fields: event.fields[:0]}
	eventPool.Put(event)
}

func (x *Logger) Write(event *Event) error {
	zapLevel, ok := toZapLevel(event.Level())
	if !ok {
		return logiface.ErrDisabled
	}
	ce := x.Zap.Check(zapLevel, event.msg)
	if ce == nil {
		// lets other writers (e.g. in a logiface.WriterSlice) handle it
		return logiface.ErrDisabled
	}
	ce.Write(event.fields...)
	return nil
}

// toZapLevel maps logiface.Level to zapcore.Level. Zap has no trace level,
// so trace is logged as debug.
//
// See also the recommended mappings documented on logiface.Level.
func toZapLevel(level logiface.Level) (zapcore.Level, bool) {
	switch level {
	case logiface.LevelTrace, logiface.LevelDebug:
		return zapcore.DebugLevel, true

	case logiface.LevelInformational:
		return zapcore.InfoLevel, true

	case logiface.LevelNotice, logiface.LevelWarning:
		return zapcore.WarnLevel, true

	case logiface.LevelError, logiface.LevelCritical:
		return zapcore.ErrorLevel, true

	case logiface.LevelAlert:
		return zapcore.FatalLevel, true

	case logiface.LevelEmergency:
		return zapcore.PanicLevel, true

	default:
		return zapcore.InvalidLevel, false
	}
}
