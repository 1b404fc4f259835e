// Package logs implements a small leveled logger in the style used
// throughout the node: one Logger per subsystem, a shared backend that
// fans writes out to stdout and a rotating log file, and a textual level
// that can be changed at runtime per subsystem.
package logs

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level is a logging priority.
type Level uint32

// Supported levels, lowest to highest priority.
const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	LevelOff
)

var levelStrings = map[Level]string{
	LevelTrace:    "TRC",
	LevelDebug:    "DBG",
	LevelInfo:     "INF",
	LevelWarn:     "WRN",
	LevelError:    "ERR",
	LevelCritical: "CRT",
	LevelOff:      "OFF",
}

// String returns the short three-letter tag for the level.
func (l Level) String() string {
	if s, ok := levelStrings[l]; ok {
		return s
	}
	return "UNK"
}

// LevelFromString parses a level name, defaulting to LevelInfo on an
// unrecognized name and reporting whether the parse succeeded.
func LevelFromString(s string) (Level, bool) {
	switch s {
	case "trace":
		return LevelTrace, true
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn":
		return LevelWarn, true
	case "error":
		return LevelError, true
	case "critical":
		return LevelCritical, true
	case "off":
		return LevelOff, true
	}
	return LevelInfo, false
}

// Logger writes leveled, subsystem-tagged messages to a Backend.
type Logger struct {
	tag     string
	backend *Backend
	level   Level
}

func (l *Logger) SetLevel(level Level) { atomicStore(&l.level, level) }
func (l *Logger) Level() Level         { return atomicLoad(&l.level) }

func (l *Logger) write(level Level, format string, args []interface{}) {
	if level < l.Level() {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.backend.write(level, l.tag, msg)
}

func (l *Logger) Tracef(format string, args ...interface{})    { l.write(LevelTrace, format, args) }
func (l *Logger) Debugf(format string, args ...interface{})    { l.write(LevelDebug, format, args) }
func (l *Logger) Infof(format string, args ...interface{})     { l.write(LevelInfo, format, args) }
func (l *Logger) Warnf(format string, args ...interface{})     { l.write(LevelWarn, format, args) }
func (l *Logger) Errorf(format string, args ...interface{})    { l.write(LevelError, format, args) }
func (l *Logger) Criticalf(format string, args ...interface{}) { l.write(LevelCritical, format, args) }

func (l *Logger) Trace(args ...interface{})    { l.write(LevelTrace, sprint(args), nil) }
func (l *Logger) Debug(args ...interface{})    { l.write(LevelDebug, sprint(args), nil) }
func (l *Logger) Info(args ...interface{})     { l.write(LevelInfo, sprint(args), nil) }
func (l *Logger) Warn(args ...interface{})     { l.write(LevelWarn, sprint(args), nil) }
func (l *Logger) Error(args ...interface{})    { l.write(LevelError, sprint(args), nil) }
func (l *Logger) Critical(args ...interface{}) { l.write(LevelCritical, sprint(args), nil) }

func sprint(args []interface{}) string {
	return fmt.Sprint(args...)
}

// Backend fans log lines out to one or more writers and is shared by
// every subsystem Logger created from it.
type Backend struct {
	mu      sync.Mutex
	writers []io.Writer
}

// NewBackend creates a Backend that writes to the given set of writers.
func NewBackend(writers ...io.Writer) *Backend {
	return &Backend{writers: writers}
}

func (b *Backend) write(level Level, tag, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	line := fmt.Sprintf("%s [%s] %s: %s\n", time.Now().Format("2006-01-02 15:04:05.000"), level, tag, msg)
	for _, w := range b.writers {
		_, _ = io.WriteString(w, line)
	}
}

// Logger creates a subsystem Logger backed by b, defaulting to LevelInfo.
func (b *Backend) Logger(tag string) *Logger {
	return &Logger{tag: tag, backend: b, level: LevelInfo}
}

// Disabled is a Logger that discards everything; used as the zero value
// for packages that haven't had a real logger injected yet.
var Disabled = NewBackend(io.Discard).Logger("DISABLED")

// NewConsoleBackend is a convenience constructor for a Backend that logs
// to stderr only, used by tests and short-lived command-line tools.
func NewConsoleBackend() *Backend {
	return NewBackend(os.Stderr)
}
