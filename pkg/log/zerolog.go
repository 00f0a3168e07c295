// Package log provides a zerolog-backed implementation of the Logger interface.
//
// This file contains the ZerologProvider, which adapts rs/zerolog to the
// slog-compatible Logger interface defined in interface.go. It is the default
// structured logging backend for pipeline components.

package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/rs/zerolog"
)

// ZerologProvider implements LoggerProvider backed by rs/zerolog.
// Loggers created by this provider emit JSON events and understand
// zerolog.LogObjectMarshaler values, so structured errors and warnings
// are embedded as objects rather than flattened strings.
type ZerologProvider struct {
	root zerolog.Logger
}

// NewZerologProvider creates a provider that writes JSON logs to stderr.
// The level argument uses slog levels so it composes with ToLogLevel:
//
//	provider := log.NewZerologProvider(log.ToLogLevel("info"))
//	logger := provider.GetLoggerWithName("tune")
func NewZerologProvider(level slog.Level) *ZerologProvider {
	root := zerolog.New(os.Stderr).
		Level(toZerologLevel(level)).
		With().
		Timestamp().
		Logger()
	return &ZerologProvider{root: root}
}

// NewZerologProviderWithLogger wraps an existing zerolog.Logger.
// Useful for tests that capture output in a buffer.
func NewZerologProviderWithLogger(logger zerolog.Logger) *ZerologProvider {
	return &ZerologProvider{root: logger}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	return &zerologLogger{logger: p.root}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
// The name is attached under ComponentKey on every event.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return &zerologLogger{logger: p.root.With().Str(ComponentKey, name).Logger()}
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *ZerologProvider) SetLevel(level Level) {
	p.root = p.root.Level(toZerologLevel(slog.Level(level)))
}

// WarnFunc returns a function suitable for the errors package's warning hook,
// so that library warnings are emitted as structured zerolog events. Warnings
// implementing zerolog.LogObjectMarshaler are embedded as objects.
func (p *ZerologProvider) WarnFunc() func(warning error) {
	logger := p.root
	return func(warning error) {
		event := logger.Warn()
		if obj, ok := warning.(zerolog.LogObjectMarshaler); ok {
			event = event.Object("warning", obj)
		} else {
			event = event.AnErr("warning", warning)
		}
		event.Msg(warning.Error())
	}
}

// zerologLogger adapts a zerolog.Logger to the Logger interface.
type zerologLogger struct {
	logger zerolog.Logger
}

// Debug implements Logger.Debug.
func (z *zerologLogger) Debug(msg string, fields ...any) {
	z.emit(z.logger.Debug(), msg, fields)
}

// Info implements Logger.Info.
func (z *zerologLogger) Info(msg string, fields ...any) {
	z.emit(z.logger.Info(), msg, fields)
}

// Warn implements Logger.Warn.
func (z *zerologLogger) Warn(msg string, fields ...any) {
	z.emit(z.logger.Warn(), msg, fields)
}

// Error implements Logger.Error.
// If the first field is a bare error value, it is attached under the
// standard "error" key before the remaining key-value pairs are processed.
func (z *zerologLogger) Error(msg string, fields ...any) {
	event := z.logger.Error()
	if len(fields)%2 == 1 {
		if err, ok := fields[0].(error); ok {
			event = event.Err(err)
			fields = fields[1:]
		}
	}
	z.emit(event, msg, fields)
}

// With implements Logger.With.
func (z *zerologLogger) With(fields ...any) Logger {
	ctx := z.logger.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		ctx = ctx.Interface(key, fields[i+1])
	}
	return &zerologLogger{logger: ctx.Logger()}
}

// Enabled implements Logger.Enabled.
func (z *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return toZerologLevel(slog.Level(level)) >= z.logger.GetLevel()
}

// emit writes the key-value pairs onto the event and sends it.
// Errors and LogObjectMarshaler values are attached structurally.
func (z *zerologLogger) emit(event *zerolog.Event, msg string, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		switch v := fields[i+1].(type) {
		case zerolog.LogObjectMarshaler:
			event = event.Object(key, v)
		case error:
			event = event.AnErr(key, v)
		default:
			event = event.Interface(key, v)
		}
	}
	event.Msg(msg)
}

// toZerologLevel converts an slog level to the nearest zerolog level.
func toZerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level <= slog.LevelDebug:
		return zerolog.DebugLevel
	case level <= slog.LevelInfo:
		return zerolog.InfoLevel
	case level <= slog.LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
