package logger

import (
	"context"
	"time"
)

type contextKey struct{}

var logContextKey = contextKey{}

// LogContext carries the fields every log line of one client call shares.
type LogContext struct {
	TraceID   string
	SpanID    string
	RequestID string // X-Request-ID sent to the backend
	UserID    string // signed-in user, empty before login
	Operation string // share.report, share.revoke, notify.connect, ...
	StartTime time.Time
}

// WithContext attaches lc to ctx.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext returns the LogContext attached to ctx. A nil ctx yields nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext starts a LogContext for the named operation.
func NewLogContext(operation string) *LogContext {
	return &LogContext{Operation: operation, StartTime: time.Now()}
}

// Clone returns a shallow copy; nil stays nil.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	c := *lc
	return &c
}

// derive copies lc and applies set to the copy.
func (lc *LogContext) derive(set func(*LogContext)) *LogContext {
	c := lc.Clone()
	if c != nil {
		set(c)
	}
	return c
}

// WithUser returns a copy carrying userID.
func (lc *LogContext) WithUser(userID string) *LogContext {
	return lc.derive(func(c *LogContext) { c.UserID = userID })
}

// WithRequestID returns a copy carrying the X-Request-ID value.
func (lc *LogContext) WithRequestID(id string) *LogContext {
	return lc.derive(func(c *LogContext) { c.RequestID = id })
}

// WithTrace returns a copy carrying the span identifiers.
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	return lc.derive(func(c *LogContext) {
		c.TraceID = traceID
		c.SpanID = spanID
	})
}

// DurationMs is the time since StartTime in fractional milliseconds.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1e3
}
