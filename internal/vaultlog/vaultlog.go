// Package vaultlog provides the structured, key/value logger used across
// the core. The call-site idiom (log.Info("message", "key", value, ...))
// matches the go-ethereum-style logging used throughout the teacher repo
// (e.g. tos/backend.go, consensus/merger.go); the logger itself is
// implemented locally since the upstream log package wasn't part of the
// retrieval pack, and it records no caller frames.
package vaultlog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is the logging severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger writes structured key/value lines. The zero value is unusable;
// use New or the package-level default logger.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	ctx    []interface{}
	min    Level
}

// New constructs a Logger writing to w at minimum severity min.
func New(w io.Writer, min Level) *Logger {
	return &Logger{out: w, min: min}
}

var std = New(os.Stderr, LevelInfo)

// SetOutput redirects the package-level default logger.
func SetOutput(w io.Writer) { std.mu.Lock(); std.out = w; std.mu.Unlock() }

// SetLevel adjusts the package-level default logger's minimum severity.
func SetLevel(l Level) { std.mu.Lock(); std.min = l; std.mu.Unlock() }

// With returns a derived Logger that always includes the given key/value
// pairs, mirroring log.New(ctx...) in the teacher's logging idiom.
func (l *Logger) With(kv ...interface{}) *Logger {
	nl := &Logger{out: l.out, min: l.min}
	nl.ctx = append(append([]interface{}{}, l.ctx...), kv...)
	return nl
}

func (l *Logger) write(lvl Level, msg string, kv []interface{}) {
	if lvl < l.min {
		return
	}
	var b strings.Builder
	b.WriteString(time.Now().UTC().Format("2006-01-02T15:04:05.000Z"))
	b.WriteByte(' ')
	b.WriteString(lvl.String())
	b.WriteByte(' ')
	b.WriteString(msg)
	all := append(append([]interface{}{}, l.ctx...), kv...)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(&b, " %v=%v", all[i], all[i+1])
	}
	b.WriteByte('\n')
	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.out, b.String())
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.write(LevelDebug, msg, kv) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.write(LevelInfo, msg, kv) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.write(LevelWarn, msg, kv) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.write(LevelError, msg, kv) }

func Debug(msg string, kv ...interface{}) { std.Debug(msg, kv...) }
func Info(msg string, kv ...interface{})  { std.Info(msg, kv...) }
func Warn(msg string, kv ...interface{})  { std.Warn(msg, kv...) }
func Error(msg string, kv ...interface{}) { std.Error(msg, kv...) }
func With(kv ...interface{}) *Logger      { return std.With(kv...) }
