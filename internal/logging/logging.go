// Package logging is the process logger. Packages dot-import it and call
// L_debug, L_info, L_warn, L_error and L_fatal.
//
// Arguments after the message are read as printf operands when the message
// contains a verb, otherwise as structured key/value pairs:
//
//	L_info("served %d requests", n)
//	L_info("provider failed", "provider", id, "error", err)
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// Level orders verbosity; higher logs more.
type Level int

const (
	LevelFatal Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
)

var levelNames = map[string]Level{
	"fatal":   LevelFatal,
	"error":   LevelError,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"info":    LevelInfo,
	"debug":   LevelDebug,
	"trace":   LevelDebug,
}

// LogConfig configures Init.
type LogConfig struct {
	Level      Level
	TimeFormat string
	ShowCaller bool
	Output     io.Writer // nil = stderr
}

// DefaultConfig is info level, clock-only timestamps, no caller.
func DefaultConfig() *LogConfig {
	return &LogConfig{Level: LevelInfo, TimeFormat: "15:04:05"}
}

// ParseLevel maps a level name to a Level. Unknown or empty names give LevelInfo.
func ParseLevel(name string) Level {
	if l, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return l
	}
	return LevelInfo
}

var current atomic.Pointer[log.Logger]

// Init replaces the process logger. A nil cfg means DefaultConfig.
func Init(cfg *LogConfig) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	l := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		ReportCaller:    cfg.ShowCaller,
		CallerOffset:    2, // emit and L_*
		Level:           cfg.Level.charm(),
	})
	current.Store(l)
}

// SetLevel changes verbosity without rebuilding the logger.
func SetLevel(level Level) {
	logger().SetLevel(level.charm())
}

// charm maps onto charmbracelet levels. Fatal filters like error so fatal
// lines are never suppressed.
func (l Level) charm() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError, LevelFatal:
		return log.ErrorLevel
	}
	return log.InfoLevel
}

func logger() *log.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	Init(nil)
	return current.Load()
}

// printfStyle reports whether msg holds a formatting verb ("%%" does not count).
func printfStyle(msg string) bool {
	for i := strings.IndexByte(msg, '%'); i >= 0 && i < len(msg)-1; {
		if c := msg[i+1]; c != '%' && strings.IndexByte("vsdtfgeopqxXbcUT+#", c) >= 0 {
			return true
		}
		next := strings.IndexByte(msg[i+2:], '%')
		if next < 0 {
			break
		}
		i += 2 + next
	}
	return false
}

func emit(level log.Level, msg string, args []interface{}) {
	var keyvals []interface{}
	if len(args) > 0 {
		if printfStyle(msg) {
			msg = fmt.Sprintf(msg, args...)
		} else {
			keyvals = args
		}
	}

	// Level methods, not Log, so every path has the same frame depth for CallerOffset.
	l := logger()
	switch level {
	case log.DebugLevel:
		l.Debug(msg, keyvals...)
	case log.WarnLevel:
		l.Warn(msg, keyvals...)
	case log.ErrorLevel:
		l.Error(msg, keyvals...)
	case log.FatalLevel:
		l.Fatal(msg, keyvals...)
	default:
		l.Info(msg, keyvals...)
	}
}

func L_debug(msg string, args ...interface{}) { emit(log.DebugLevel, msg, args) }
func L_info(msg string, args ...interface{})  { emit(log.InfoLevel, msg, args) }
func L_warn(msg string, args ...interface{})  { emit(log.WarnLevel, msg, args) }
func L_error(msg string, args ...interface{}) { emit(log.ErrorLevel, msg, args) }

// L_fatal logs and exits with status 1.
func L_fatal(msg string, args ...interface{}) { emit(log.FatalLevel, msg, args) }

// Redact masks a credential for log output, keeping only the last four characters.
func Redact(secret string) string {
	switch {
	case secret == "":
		return "(unset)"
	case len(secret) <= 8:
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
