package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

var (
	levelMu      sync.RWMutex
	currentLevel LogLevel
	levelOnce    sync.Once
)

// ParseLevel converts a level name to a LogLevel. The second return value is
// false for unrecognised names.
func ParseLevel(s string) (LogLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

func levelFromEnv() LogLevel {
	switch strings.ToLower(os.Getenv("DEBUG")) {
	case "1", "true", "yes", "on":
		return LevelDebug
	}
	lvl, _ := ParseLevel(os.Getenv("LOG_LEVEL"))
	return lvl
}

func initLevel() {
	levelOnce.Do(func() {
		lvl := levelFromEnv()
		levelMu.Lock()
		currentLevel = lvl
		levelMu.Unlock()
	})
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	initLevel()
	levelMu.RLock()
	defer levelMu.RUnlock()
	return currentLevel
}

// SetLevel overrides the level read from the environment.
func SetLevel(l LogLevel) {
	initLevel()
	levelMu.Lock()
	currentLevel = l
	levelMu.Unlock()
}

// SetOutput redirects all log output.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

func logAt(l LogLevel, prefix, format string, args ...interface{}) {
	if GetLevel() > l {
		return
	}
	log.Printf("["+strings.ToUpper(l.String())+"] "+prefix+format, args...)
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) { logAt(LevelDebug, "", format, args...) }

// Info logs an info message
func Info(format string, args ...interface{}) { logAt(LevelInfo, "", format, args...) }

// Warn logs a warning message
func Warn(format string, args ...interface{}) { logAt(LevelWarn, "", format, args...) }

// Error logs an error message
func Error(format string, args ...interface{}) { logAt(LevelError, "", format, args...) }

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	log.Fatalf("[FATAL] "+format, args...)
}

// Printf is a pass-through to log.Printf for messages that should always print
func Printf(format string, args ...interface{}) {
	log.Printf(format, args...)
}

// Logger prefixes messages with a component name.
type Logger struct {
	prefix string
}

// For returns a Logger for the named component.
func For(component string) Logger {
	return Logger{prefix: "[" + component + "] "}
}

// Debug logs at debug level.
func (lg Logger) Debug(format string, args ...interface{}) {
	logAt(LevelDebug, lg.prefix, format, args...)
}

// Info logs at info level.
func (lg Logger) Info(format string, args ...interface{}) {
	logAt(LevelInfo, lg.prefix, format, args...)
}

// Warn logs at warn level.
func (lg Logger) Warn(format string, args ...interface{}) {
	logAt(LevelWarn, lg.prefix, format, args...)
}

// Error logs at error level.
func (lg Logger) Error(format string, args ...interface{}) {
	logAt(LevelError, lg.prefix, format, args...)
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
