// Package ports defines the interfaces the media pipeline uses to reach
// external collaborators: logging, video runtimes, unpackers and converters.
package ports

import "fmt"

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	// LevelDebug is for per-frame and per-resource details emitted by components.
	LevelDebug LogLevel = iota
	// LevelInfo is for dataset-level progress reported by the CLI and ingest service.
	LevelInfo
	// LevelWarn is for faults that were absorbed, such as a drained demuxer.
	LevelWarn
	// LevelError is for failures that abort the current operation.
	LevelError
	// LevelQuiet suppresses all log output.
	LevelQuiet
)

var levelNames = []string{"debug", "info", "warn", "error", "quiet"}

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelQuiet {
		return "unknown"
	}
	return levelNames[l]
}

// ParseLogLevel parses a level name. Unknown names are rejected so that a
// typo in a config file does not silently change verbosity.
func ParseLogLevel(s string) (LogLevel, error) {
	for i, name := range levelNames {
		if name == s {
			return LogLevel(i), nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger abstracts logging operations with translatable message keys.
type Logger interface {
	// Debug logs a component-internal detail.
	Debug(msg string, args ...interface{})

	// Info logs progress of a dataset or chunk operation.
	Info(msg string, args ...interface{})

	// Warn logs a recoverable problem.
	Warn(msg string, args ...interface{})

	// Error logs an unrecoverable problem.
	Error(msg string, args ...interface{})

	// WithComponent returns a Logger that prefixes messages with the component name.
	WithComponent(component string) Logger
}
