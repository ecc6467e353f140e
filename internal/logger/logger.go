// Package logger is the process-wide structured logger of rsctl and the
// reportshare client packages. It wraps log/slog with a colored text handler
// for terminals, a JSON handler for machines and *Ctx variants that add the
// fields of a LogContext.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Config holds logger configuration.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stderr, stdout, or file path
}

// sink is where log lines go and how they look.
type sink struct {
	out    io.Writer
	format string
	color  bool
}

var (
	// level is shared by every handler, so changing it never rebuilds one.
	level = new(slog.LevelVar)

	mu      sync.RWMutex
	current = sink{out: os.Stderr, format: "text"}
	slogger *slog.Logger
)

func init() {
	current.color = isTerminal(os.Stderr.Fd())
	install(current)
}

// install builds the handler for s. Callers other than init hold mu.
func install(s sink) {
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if s.format == "json" {
		h = slog.NewJSONHandler(s.out, opts)
	} else {
		h = NewColorTextHandler(s.out, opts, s.color)
	}
	current = s
	slogger = slog.New(h)
}

func update(fn func(*sink)) {
	mu.Lock()
	defer mu.Unlock()
	s := current
	fn(&s)
	install(s)
}

// Init applies cfg. Empty fields keep their current value. Output is
// "stderr", "stdout" or a file that is appended to; stdout is left to
// command output by default.
func Init(cfg Config) error {
	if cfg.Output != "" {
		out, color, err := openOutput(cfg.Output)
		if err != nil {
			return err
		}
		update(func(s *sink) {
			s.out = out
			s.color = color
		})
	}
	if cfg.Level != "" {
		SetLevel(cfg.Level)
	}
	if cfg.Format != "" {
		SetFormat(cfg.Format)
	}
	return nil
}

func openOutput(target string) (io.Writer, bool, error) {
	switch strings.ToLower(target) {
	case "stderr":
		return os.Stderr, isTerminal(os.Stderr.Fd()), nil
	case "stdout":
		return os.Stdout, isTerminal(os.Stdout.Fd()), nil
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open log file %q: %w", target, err)
	}
	return f, false, nil
}

// InitWithWriter sends logs to w. Used by tests.
func InitWithWriter(w io.Writer, lvl, format string, color bool) {
	update(func(s *sink) {
		s.out = w
		s.color = color
	})
	if lvl != "" {
		SetLevel(lvl)
	}
	if format != "" {
		SetFormat(format)
	}
}

// SetLevel sets the minimum level. Unknown names are ignored.
func SetLevel(name string) {
	switch strings.ToUpper(name) {
	case "DEBUG":
		level.Set(slog.LevelDebug)
	case "INFO":
		level.Set(slog.LevelInfo)
	case "WARN":
		level.Set(slog.LevelWarn)
	case "ERROR":
		level.Set(slog.LevelError)
	}
}

// SetFormat switches between "text" and "json". Unknown formats are ignored.
func SetFormat(format string) {
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return
	}
	update(func(s *sink) { s.format = format })
}

// Enabled reports whether lines at lvl are written.
func Enabled(lvl slog.Level) bool {
	return lvl >= level.Level()
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

func logAt(lvl slog.Level, msg string, args []any) {
	if !Enabled(lvl) {
		return
	}
	get().Log(context.Background(), lvl, msg, args...)
}

// Debug logs at debug level: Debug("msg", "key", value, ...).
func Debug(msg string, args ...any) { logAt(slog.LevelDebug, msg, args) }

// Info logs at info level.
func Info(msg string, args ...any) { logAt(slog.LevelInfo, msg, args) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { logAt(slog.LevelWarn, msg, args) }

// Error logs at error level.
func Error(msg string, args ...any) { logAt(slog.LevelError, msg, args) }

func logCtx(ctx context.Context, lvl slog.Level, msg string, args []any) {
	if !Enabled(lvl) {
		return
	}
	logAt(lvl, msg, contextFields(ctx, args))
}

// DebugCtx logs at debug level with the LogContext fields of ctx first.
func DebugCtx(ctx context.Context, msg string, args ...any) {
	logCtx(ctx, slog.LevelDebug, msg, args)
}

// InfoCtx logs at info level with the LogContext fields of ctx first.
func InfoCtx(ctx context.Context, msg string, args ...any) {
	logCtx(ctx, slog.LevelInfo, msg, args)
}

// WarnCtx logs at warn level with the LogContext fields of ctx first.
func WarnCtx(ctx context.Context, msg string, args ...any) {
	logCtx(ctx, slog.LevelWarn, msg, args)
}

// ErrorCtx logs at error level with the LogContext fields of ctx first.
func ErrorCtx(ctx context.Context, msg string, args ...any) {
	logCtx(ctx, slog.LevelError, msg, args)
}

// contextFields puts the non-empty LogContext fields ahead of args.
func contextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	fields := []struct{ key, val string }{
		{KeyTraceID, lc.TraceID},
		{KeySpanID, lc.SpanID},
		{KeyOperation, lc.Operation},
		{KeyRequestID, lc.RequestID},
		{KeyUserID, lc.UserID},
	}
	out := make([]any, 0, 2*len(fields)+len(args))
	for _, f := range fields {
		if f.val != "" {
			out = append(out, f.key, f.val)
		}
	}
	return append(out, args...)
}

// With returns a logger with args bound to every line.
func With(args ...any) *slog.Logger {
	return get().With(args...)
}

// Duration returns the milliseconds elapsed since start.
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
