// internal/utils/logger.go

package utils

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Logger defines the interface for logging throughout the application.
type Logger interface {
	Debug(msg string)
	Debugf(format string, args ...interface{})
	Info(msg string)
	Infof(format string, args ...interface{})
	Warn(msg string)
	Warnf(format string, args ...interface{})
	Error(msg string)
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

// String returns the upper-case level name.
func (l LogLevel) String() string {
	if l < DebugLevel || l > ErrorLevel {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel converts a config string into a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level: %q", s)
	}
}

var (
	defaultLevel            = InfoLevel
	defaultOutput io.Writer = os.Stderr
	defaultMu     sync.RWMutex
)

// SetDefaultLevel sets the level of every logger that was not given an
// explicit one, including loggers created earlier.
func SetDefaultLevel(level LogLevel) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLevel = level
}

// SetDefaultOutput redirects loggers created afterwards.
func SetDefaultOutput(w io.Writer) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if w == nil {
		w = io.Discard
	}
	defaultOutput = w
}

func defaults() (LogLevel, io.Writer) {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLevel, defaultOutput
}

// SimpleLogger provides a basic leveled logger.
type SimpleLogger struct {
	level     LogLevel
	fixed     bool // level was set explicitly; otherwise the default applies
	component string
	fields    map[string]interface{}
	out       io.Writer
	mu        *sync.Mutex
}

// NewLogger creates a new simple logger instance.
func NewLogger() Logger {
	level, out := defaults()
	return newSimpleLogger(level, "", out)
}

// NewLoggerWithLevel creates a logger with the specified log level.
func NewLoggerWithLevel(level LogLevel) Logger {
	_, out := defaults()
	l := newSimpleLogger(level, "", out)
	l.fixed = true
	return l
}

// NewComponentLogger creates a logger tagged with a component name.
func NewComponentLogger(component string) Logger {
	level, out := defaults()
	return newSimpleLogger(level, component, out)
}

// NewWriterLogger creates a logger writing to w, mostly for tests.
func NewWriterLogger(w io.Writer, level LogLevel) Logger {
	l := newSimpleLogger(level, "", w)
	l.fixed = true
	return l
}

func newSimpleLogger(level LogLevel, component string, out io.Writer) *SimpleLogger {
	return &SimpleLogger{
		level:     level,
		component: component,
		fields:    make(map[string]interface{}),
		out:       out,
		mu:        &sync.Mutex{},
	}
}

func (l *SimpleLogger) Debug(msg string) {
	l.log(DebugLevel, msg)
}

func (l *SimpleLogger) Debugf(format string, args ...interface{}) {
	l.log(DebugLevel, fmt.Sprintf(format, args...))
}

func (l *SimpleLogger) Info(msg string) {
	l.log(InfoLevel, msg)
}

func (l *SimpleLogger) Infof(format string, args ...interface{}) {
	l.log(InfoLevel, fmt.Sprintf(format, args...))
}

func (l *SimpleLogger) Warn(msg string) {
	l.log(WarnLevel, msg)
}

func (l *SimpleLogger) Warnf(format string, args ...interface{}) {
	l.log(WarnLevel, fmt.Sprintf(format, args...))
}

func (l *SimpleLogger) Error(msg string) {
	l.log(ErrorLevel, msg)
}

func (l *SimpleLogger) Errorf(format string, args ...interface{}) {
	l.log(ErrorLevel, fmt.Sprintf(format, args...))
}

func (l *SimpleLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

func (l *SimpleLogger) WithFields(fields map[string]interface{}) Logger {
	newFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	// children share the parent's lock so lines never interleave
	return &SimpleLogger{
		level:     l.level,
		fixed:     l.fixed,
		component: l.component,
		fields:    newFields,
		out:       l.out,
		mu:        l.mu,
	}
}

// log formats and outputs a log message if it meets the minimum level.
func (l *SimpleLogger) log(level LogLevel, msg string) {
	threshold := l.level
	if !l.fixed {
		threshold, _ = defaults()
	}
	if level < threshold {
		return
	}

	// Format: [TIME] [LEVEL] [component] message fields={...}
	timestamp := time.Now().Format("2006-01-02 15:04:05")

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s]", timestamp, level)
	if l.component != "" {
		fmt.Fprintf(&b, " [%s]", l.component)
	}
	b.WriteString(" ")
	b.WriteString(msg)
	if len(l.fields) > 0 {
		b.WriteString(" fields=")
		b.WriteString(formatFields(l.fields))
	}
	b.WriteString("\n")

	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.out, b.String())
}

// formatFields converts fields map to a string representation with stable key order.
func formatFields(fields map[string]interface{}) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(fields))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
