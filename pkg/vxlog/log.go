// Package vxlog provides the structured, leveled logging used across
// the build, serialize, and search paths. There is no third-party
// structured-logging library anywhere in this codebase's dependency
// stack to build on, so this follows stdlib io.Writer plus a small
// field map, the same shape as the logger it's descended from.
package vxlog

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"
)

// Level is the severity of a log entry.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
	Fatal
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	case Fatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a case-insensitive level name, defaulting to Info
// for anything unrecognized.
func ParseLevel(s string) Level {
	switch s {
	case "DEBUG", "debug":
		return Debug
	case "INFO", "info":
		return Info
	case "WARN", "warn", "WARNING", "warning":
		return Warn
	case "ERROR", "error":
		return Error
	case "FATAL", "fatal":
		return Fatal
	default:
		return Info
	}
}

// Fields is a set of structured key/value pairs attached to a log entry.
type Fields map[string]interface{}

// Logger is a minimal structured logger: a minimum level, an output
// writer, and a set of fields every entry inherits.
type Logger struct {
	level      Level
	output     io.Writer
	fields     Fields
	timeFormat string
}

// New creates a logger writing entries at or above level to output.
func New(level Level, output io.Writer) *Logger {
	if output == nil {
		output = os.Stderr
	}
	return &Logger{
		level:      level,
		output:     output,
		fields:     make(Fields),
		timeFormat: time.RFC3339,
	}
}

// NewDefault creates an Info-level logger writing to stderr, matching
// the default a long-running build or search process should start
// with before any explicit configuration is applied.
func NewDefault() *Logger {
	return New(Info, os.Stderr)
}

// With returns a child logger carrying fields in addition to the
// parent's own fields.
func (l *Logger) With(fields Fields) *Logger {
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{level: l.level, output: l.output, fields: merged, timeFormat: l.timeFormat}
}

func (l *Logger) Debug(msg string, fields ...Fields) { l.log(Debug, msg, fields...) }
func (l *Logger) Info(msg string, fields ...Fields)  { l.log(Info, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Fields)  { l.log(Warn, msg, fields...) }
func (l *Logger) Error(msg string, fields ...Fields) { l.log(Error, msg, fields...) }

// Fatal logs at Fatal and exits the process.
func (l *Logger) Fatal(msg string, fields ...Fields) {
	l.log(Fatal, msg, fields...)
	os.Exit(1)
}

func (l *Logger) log(level Level, msg string, extra ...Fields) {
	if level < l.level {
		return
	}

	all := make(Fields, len(l.fields))
	for k, v := range l.fields {
		all[k] = v
	}
	for _, f := range extra {
		for k, v := range f {
			all[k] = v
		}
	}

	if _, file, line, ok := runtime.Caller(2); ok {
		all["caller"] = fmt.Sprintf("%s:%d", file, line)
	}

	entry := fmt.Sprintf("[%s] %s: %s", time.Now().Format(l.timeFormat), level, msg)
	if len(all) > 0 {
		entry += " |"
		for k, v := range all {
			entry += fmt.Sprintf(" %s=%v", k, v)
		}
	}
	entry += "\n"

	l.output.Write([]byte(entry))
}

// Operation logs the start, duration, and outcome of fn under name,
// the way a build or a save-to-disk pass reports its own progress.
func (l *Logger) Operation(name string, fn func() error) error {
	start := time.Now()
	l.Info("starting " + name)

	err := fn()

	duration := time.Since(start)
	if err != nil {
		l.Error("failed "+name, Fields{"duration": duration, "error": err.Error()})
	} else {
		l.Info("completed "+name, Fields{"duration": duration})
	}
	return err
}

var global = NewDefault()

// SetGlobal replaces the package-level logger used by the LogDebug/
// LogInfo/LogWarn/LogError/LogFatal free functions.
func SetGlobal(l *Logger) { global = l }

func LogDebug(msg string, fields ...Fields) { global.Debug(msg, fields...) }
func LogInfo(msg string, fields ...Fields)  { global.Info(msg, fields...) }
func LogWarn(msg string, fields ...Fields)  { global.Warn(msg, fields...) }
func LogError(msg string, fields ...Fields) { global.Error(msg, fields...) }
func LogFatal(msg string, fields ...Fields) { global.Fatal(msg, fields...) }
