// Package-level provider registry for modelflow logging.
//
// This file wires the LoggerProvider interface to the package-level
// GetLogger/GetLoggerWithName entry points that pipeline components call.
// The default provider discards every record, so importing packages can
// log unconditionally; applications opt in by installing a real provider:
//
//	provider := log.NewZerologProvider(log.ToLogLevel("info"))
//	log.SetProvider(provider)

package log

import (
	"context"
	"sync"
)

var (
	providerMu      sync.RWMutex
	defaultProvider LoggerProvider = noopProvider{}
)

// SetProvider installs the process-wide LoggerProvider used by GetLogger
// and GetLoggerWithName. Passing nil restores the discarding default.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	if p == nil {
		p = noopProvider{}
	}
	defaultProvider = p
}

// GetLogger returns the default logger from the installed provider.
func GetLogger() Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return defaultProvider.GetLogger()
}

// GetLoggerWithName returns a logger tagged with a component name,
// e.g. log.GetLoggerWithName("tune.run").
func GetLoggerWithName(name string) Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return defaultProvider.GetLoggerWithName(name)
}

// noopProvider は未設定時のデフォルト。全てのレコードを破棄する。
type noopProvider struct{}

func (noopProvider) GetLogger() Logger               { return noopLogger{} }
func (noopProvider) GetLoggerWithName(string) Logger { return noopLogger{} }
func (noopProvider) SetLevel(Level)                  {}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any)                {}
func (noopLogger) Info(string, ...any)                 {}
func (noopLogger) Warn(string, ...any)                 {}
func (noopLogger) Error(string, ...any)                {}
func (noopLogger) With(...any) Logger                  { return noopLogger{} }
func (noopLogger) Enabled(context.Context, Level) bool { return false }
