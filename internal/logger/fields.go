package logger

import (
	"log/slog"
	"time"
)

// Standard field keys. Use these instead of ad-hoc strings so that logs from
// the client library, the notification bus and the CLI can be queried the same way.
const (
	// Tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Request
	KeyRequestID  = "request_id"
	KeyOperation  = "operation"
	KeyMethod     = "method"
	KeyURL        = "url"
	KeyStatus     = "status"
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorCode  = "error_code"

	// Identity
	KeyUserID   = "user_id"
	KeyHealthID = "health_id"

	// Sharing
	KeyOwnerID   = "owner_id"
	KeyReportID  = "report_id"
	KeyRecipient = "recipient"
	KeyCount     = "count"

	// Notifications
	KeyEvent    = "event"
	KeyState    = "state"
	KeyAttempt  = "attempt"
	KeyBackoff  = "backoff"
	KeyEndpoint = "endpoint"
	KeyDropped  = "dropped"
	KeySequence = "seq"

	// Local state
	KeyPath    = "path"
	KeyContext = "context"
)

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// RequestID returns a slog.Attr for the X-Request-ID of a backend call.
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// Operation returns a slog.Attr for the logical operation name.
func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// Status returns a slog.Attr for an HTTP status code
func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}

// UserID returns a slog.Attr for the signed-in user.
func UserID(id string) slog.Attr {
	return slog.String(KeyUserID, id)
}

// OwnerID returns a slog.Attr for the owner of a shared report.
func OwnerID(id string) slog.Attr {
	return slog.String(KeyOwnerID, id)
}

// ReportID returns a slog.Attr for a report id. An empty id means "all reports".
func ReportID(id string) slog.Attr {
	if id == "" {
		return slog.String(KeyReportID, "*")
	}
	return slog.String(KeyReportID, id)
}

// Recipient returns a slog.Attr for a share recipient (id or email).
func Recipient(r string) slog.Attr {
	return slog.String(KeyRecipient, r)
}

// Event returns a slog.Attr for a notification event type.
func Event(kind string) slog.Attr {
	return slog.String(KeyEvent, kind)
}

// Attempt returns a slog.Attr for a reconnect attempt number.
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// Backoff returns a slog.Attr for the delay before the next attempt.
func Backoff(d time.Duration) slog.Attr {
	return slog.Duration(KeyBackoff, d)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error. Nil errors produce an empty attr,
// which handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrCode returns a slog.Attr for a classified error code.
func ErrCode(code string) slog.Attr {
	return slog.String(KeyErrorCode, code)
}
