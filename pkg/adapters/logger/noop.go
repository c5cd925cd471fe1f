package logger

import "github.com/user/mediachunk/pkg/ports"

// NoopLogger discards all messages. Components fall back to it when no
// logger is supplied.
type NoopLogger struct{}

// NewNoop creates a new no-op logger.
func NewNoop() *NoopLogger {
	return &NoopLogger{}
}

func (l *NoopLogger) Debug(msg string, args ...interface{}) {}
func (l *NoopLogger) Info(msg string, args ...interface{})  {}
func (l *NoopLogger) Warn(msg string, args ...interface{})  {}
func (l *NoopLogger) Error(msg string, args ...interface{}) {}

// WithComponent returns the same no-op logger.
func (l *NoopLogger) WithComponent(component string) ports.Logger {
	return l
}

// OrNoop returns l, or a no-op logger when l is nil.
func OrNoop(l ports.Logger) ports.Logger {
	if l == nil {
		return NewNoop()
	}
	return l
}
