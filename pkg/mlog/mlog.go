// Package mlog is the process-wide logger used by the pipeline stages.
package mlog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

type Level int

const (
	VERBOSE Level = iota
	DEBUG
	INFO
	WARN
	ERROR
)

var (
	mu     sync.RWMutex
	level  = INFO
	logger = newLogger(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
)

func init() {
	// Filtering happens in write; zerolog must not drop trace events on its own.
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
}

func newLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Str("app", "signtrace").Logger()
}

// ParseLevel accepts VERBOSE/DEBUG/INFO/WARN/ERROR in any case.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "VERBOSE", "TRACE":
		return VERBOSE, nil
	case "DEBUG":
		return DEBUG, nil
	case "", "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	}
	return INFO, fmt.Errorf("unknown log level %q", s)
}

func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

func GetLevel() Level {
	mu.RLock()
	defer mu.RUnlock()
	return level
}

// SetOutput replaces the writer. Tests pass a buffer here.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w)
}

func IsDebug() bool {
	return GetLevel() <= DEBUG
}

func IsVerbose() bool {
	return GetLevel() <= VERBOSE
}

// Component returns a structured logger tagged with the component name.
func Component(name string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger.Level(zerologLevel(level)).With().Str("component", name).Logger()
}

func zerologLevel(l Level) zerolog.Level {
	switch l {
	case VERBOSE:
		return zerolog.TraceLevel
	case DEBUG:
		return zerolog.DebugLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}

func write(l Level, format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if l < level {
		return
	}
	logger.WithLevel(zerologLevel(l)).Msgf(format, args...)
}

// V verbose
func V(format string, args ...interface{}) {
	write(VERBOSE, format, args...)
}

// D debug
func D(format string, args ...interface{}) {
	write(DEBUG, format, args...)
}

// I info
func I(format string, args ...interface{}) {
	write(INFO, format, args...)
}

// W warn
func W(format string, args ...interface{}) {
	write(WARN, format, args...)
}

// E error
func E(format string, args ...interface{}) {
	write(ERROR, format, args...)
}
