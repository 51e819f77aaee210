package logger

import "github.com/jathurchan/rtiexec/types"

// NoOpLogger discards every entry. Tests that need to observe logging set
// Hook, which then receives each entry with its level; context added through
// the With methods is not kept.
type NoOpLogger struct {
	Hook func(level LogLevel, msg string, keysAndValues ...any)
}

// NewNoOpLogger returns a Logger that discards all log messages.
func NewNoOpLogger() Logger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) emit(level LogLevel, msg string, kvs []any) {
	if l.Hook != nil {
		l.Hook(level, msg, kvs...)
	}
}

func (l *NoOpLogger) Debugw(msg string, kvs ...any) { l.emit(LevelDebug, msg, kvs) }
func (l *NoOpLogger) Infow(msg string, kvs ...any)  { l.emit(LevelInfo, msg, kvs) }
func (l *NoOpLogger) Warnw(msg string, kvs ...any)  { l.emit(LevelWarn, msg, kvs) }
func (l *NoOpLogger) Errorw(msg string, kvs ...any) { l.emit(LevelError, msg, kvs) }

// Fatalw never exits.
func (l *NoOpLogger) Fatalw(msg string, kvs ...any) { l.emit(LevelFatal, msg, kvs) }

func (l *NoOpLogger) With(...any) Logger                       { return l }
func (l *NoOpLogger) WithFederation(types.FederationID) Logger { return l }
func (l *NoOpLogger) WithFederate(types.FederateHandle) Logger { return l }
func (l *NoOpLogger) WithComponent(string) Logger              { return l }
