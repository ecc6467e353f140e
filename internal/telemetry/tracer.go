package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/marmos91/reportshare/internal/logger"
)

// Attribute keys for report-sharing spans. HTTP keys follow the OpenTelemetry
// semantic conventions; the rest use a "share." or "notify." prefix.
const (
	AttrHTTPMethod = "http.request.method"
	AttrHTTPRoute  = "http.route"
	AttrHTTPStatus = "http.response.status_code"
	AttrRequestID  = "http.request.id"
	AttrErrorType  = "error.type"

	AttrUserID     = "enduser.id"
	AttrOwnerID    = "share.owner_id"
	AttrReportID   = "share.report_id"
	AttrRecipient  = "share.recipient"
	AttrBulk       = "share.bulk"
	AttrGrantCount = "share.grant_count"

	AttrEvent   = "notify.event"
	AttrAttempt = "notify.attempt"
	AttrState   = "notify.state"
)

// HTTPMethod returns an attribute for the request method.
func HTTPMethod(m string) attribute.KeyValue {
	return attribute.String(AttrHTTPMethod, m)
}

// HTTPRoute returns an attribute for the route template (not the expanded path).
func HTTPRoute(r string) attribute.KeyValue {
	return attribute.String(AttrHTTPRoute, r)
}

// HTTPStatus returns an attribute for the response status code.
func HTTPStatus(code int) attribute.KeyValue {
	return attribute.Int(AttrHTTPStatus, code)
}

// RequestID returns an attribute for the X-Request-ID header value.
func RequestID(id string) attribute.KeyValue {
	return attribute.String(AttrRequestID, id)
}

// ErrorType returns an attribute for a classified error.
func ErrorType(t string) attribute.KeyValue {
	return attribute.String(AttrErrorType, t)
}

// UserID returns an attribute for the signed-in user.
func UserID(id string) attribute.KeyValue {
	return attribute.String(AttrUserID, id)
}

// OwnerID returns an attribute for a grant owner.
func OwnerID(id string) attribute.KeyValue {
	return attribute.String(AttrOwnerID, id)
}

// ReportID returns an attribute for a report id.
func ReportID(id string) attribute.KeyValue {
	return attribute.String(AttrReportID, id)
}

// Recipient returns an attribute for a share recipient.
func Recipient(r string) attribute.KeyValue {
	return attribute.String(AttrRecipient, r)
}

// Bulk returns an attribute marking a share-all grant.
func Bulk(b bool) attribute.KeyValue {
	return attribute.Bool(AttrBulk, b)
}

// GrantCount returns an attribute for the number of grants in a listing.
func GrantCount(n int) attribute.KeyValue {
	return attribute.Int(AttrGrantCount, n)
}

// Event returns an attribute for a push event type.
func Event(kind string) attribute.KeyValue {
	return attribute.String(AttrEvent, kind)
}

// Attempt returns an attribute for a reconnect attempt.
func Attempt(n int) attribute.KeyValue {
	return attribute.Int(AttrAttempt, n)
}

// State returns an attribute for a connection state.
func State(s string) attribute.KeyValue {
	return attribute.String(AttrState, s)
}

// StartClientSpan starts a client span for one REST call.
func StartClientSpan(ctx context.Context, method, route string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{HTTPMethod(method), HTTPRoute(route)}, attrs...)
	return StartSpan(ctx, method+" "+route,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(all...),
	)
}

// StartShareSpan starts a span for a share service operation.
func StartShareSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "share."+operation, trace.WithAttributes(attrs...))
}

// StartNotifySpan starts a span for a notification bus operation.
func StartNotifySpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "notify."+operation, trace.WithAttributes(attrs...))
}

// WithLogContext copies the active trace and span ids into the LogContext
// carried by ctx, creating one for operation if none exists.
func WithLogContext(ctx context.Context, operation string) context.Context {
	lc := logger.FromContext(ctx)
	if lc == nil {
		lc = logger.NewLogContext(operation)
	} else {
		lc = lc.Clone()
		if operation != "" {
			lc.Operation = operation
		}
	}
	if traceID := TraceID(ctx); traceID != "" {
		lc = lc.WithTrace(traceID, SpanID(ctx))
	}
	return logger.WithContext(ctx, lc)
}
