// Package logging provides the framework's leveled, color-coded logger
// with optional file rotation and a per-transaction warning/error
// capture scope used by the dispatcher to drain log records into a
// Response.
//
// Restructured from the source's global package-level functions
// (github.com/ruaan-deysel/unraid-management-agent daemon/logger) into
// an instance so multiple servers in one process don't share log
// state, and extended with the capture scope the dispatch protocol
// needs. Rotation is delegated to gopkg.in/natefinch/lumberjack.v2, the
// same library that repo's daemon wires for its own log files.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/wgnet/clacks/message"
)

// Level is the logging verbosity, ordered from most to least verbose.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
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
		return "unknown"
	}
}

// ParseLevel parses a level name, defaulting to LevelInfo on no match.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

const (
	colorReset  = "\033[0m"
	colorCyan   = "\033[36m"
	colorBlue   = "\033[34m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
)

// Logger is the framework's structured logger. The zero value is not
// usable; build one with New or NewRotatingFile.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	level int32 // atomic, holds a Level

	captures sync.Map // message.TxID -> *capture
}

type capture struct {
	mu       sync.Mutex
	warnings []string
	errors   []string
}

// New builds a Logger writing to out at the given level.
func New(out io.Writer, level Level) *Logger {
	l := &Logger{out: out}
	atomic.StoreInt32(&l.level, int32(level))
	return l
}

// NewRotatingFile builds a Logger that writes to a size/age-rotated
// file via lumberjack, in addition to stderr.
func NewRotatingFile(path string, maxSizeMB, maxBackups, maxAgeDays int, level Level) *Logger {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	return New(io.MultiWriter(os.Stderr, rotator), level)
}

// SetLevel updates the minimum level this logger emits. It matches the
// signature iface.Logging expects for its set_log_level command.
func (l *Logger) SetLevel(name string) error {
	atomic.StoreInt32(&l.level, int32(ParseLevel(name)))
	return nil
}

// GetLevel returns the current level's name, for iface.Logging's
// get_log_level command.
func (l *Logger) GetLevel() string {
	return Level(atomic.LoadInt32(&l.level)).String()
}

func (l *Logger) enabled(level Level) bool {
	return level >= Level(atomic.LoadInt32(&l.level))
}

func (l *Logger) emit(level Level, color, tag, msg string) {
	if !l.enabled(level) {
		return
	}
	l.mu.Lock()
	fmt.Fprintf(l.out, "%s %s%s%s %s\n", time.Now().UTC().Format(time.RFC3339Nano), color, tag, colorReset, msg)
	l.mu.Unlock()
}

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, args ...any) {
	l.emit(LevelDebug, colorCyan, "DEBUG", fmt.Sprintf(format, args...))
}

// Infof logs at info level.
func (l *Logger) Infof(format string, args ...any) {
	l.emit(LevelInfo, colorBlue, "INFO", fmt.Sprintf(format, args...))
}

// Warnf logs at warning level without participating in any
// transaction's capture scope.
func (l *Logger) Warnf(format string, args ...any) {
	l.emit(LevelWarn, colorYellow, "WARN", fmt.Sprintf(format, args...))
}

// Errorf logs at error level. This also satisfies adapter.Logger, so a
// *Logger can be handed directly to adapter.NewPipeline.
func (l *Logger) Errorf(format string, args ...any) {
	l.emit(LevelError, colorRed, "ERROR", fmt.Sprintf(format, args...))
}

// BeginCapture opens a warning/error capture scope for txid. Calls to
// CaptureWarn/CaptureError naming this txid, made before the matching
// EndCapture, are recorded in addition to being logged normally.
func (l *Logger) BeginCapture(txid message.TxID) {
	l.captures.Store(txid, &capture{})
}

// EndCapture closes txid's capture scope and returns everything
// recorded in it, in the order captured.
func (l *Logger) EndCapture(txid message.TxID) (warnings, errs []string) {
	v, ok := l.captures.LoadAndDelete(txid)
	if !ok {
		return nil, nil
	}
	c := v.(*capture)
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.warnings...), append([]string(nil), c.errors...)
}

// CaptureWarn logs a warning attributed to txid and records it in that
// transaction's capture scope, if one is open.
func (l *Logger) CaptureWarn(txid message.TxID, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.emit(LevelWarn, colorYellow, "WARN", msg)
	l.record(txid, func(c *capture) { c.warnings = append(c.warnings, msg) })
}

// CaptureError logs an error attributed to txid and records it in that
// transaction's capture scope, if one is open.
func (l *Logger) CaptureError(txid message.TxID, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.emit(LevelError, colorRed, "ERROR", msg)
	l.record(txid, func(c *capture) { c.errors = append(c.errors, msg) })
}

func (l *Logger) record(txid message.TxID, apply func(*capture)) {
	v, ok := l.captures.Load(txid)
	if !ok {
		return
	}
	c := v.(*capture)
	c.mu.Lock()
	apply(c)
	c.mu.Unlock()
}
