// Package errors provides the error taxonomy shared by the session store, the
// API client, the share service and the notification bus.
//
// This is a leaf package with no internal dependencies so every layer can
// return and inspect the same error values.
//
// Import graph: errors <- session <- apiclient <- share, notify <- runtime
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies a failure.
type ErrorCode int

const (
	// ErrNetwork indicates the request never produced a response (timeout,
	// abort, connection failure).
	ErrNetwork ErrorCode = iota + 1

	// ErrAuth indicates a missing, expired or rejected session token.
	ErrAuth

	// ErrNotFound indicates the grant or report does not exist.
	ErrNotFound

	// ErrValidation indicates a missing or malformed input, such as an empty
	// recipient identifier.
	ErrValidation

	// ErrServer indicates a non-2xx response that is not one of the above.
	ErrServer
)

// String returns a human-readable name for the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrNetwork:
		return "NetworkError"
	case ErrAuth:
		return "AuthError"
	case ErrNotFound:
		return "NotFoundError"
	case ErrValidation:
		return "ValidationError"
	case ErrServer:
		return "ServerError"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// AuthReason refines ErrAuth.
type AuthReason int

const (
	// ReasonNone is used for non-auth errors.
	ReasonNone AuthReason = iota
	// ReasonNoToken means no session token could be resolved.
	ReasonNoToken
	// ReasonExpired means the stored token is past its expiry.
	ReasonExpired
	// ReasonRejected means the server refused the token (401/403).
	ReasonRejected
)

// String returns a human-readable name for the reason.
func (r AuthReason) String() string {
	switch r {
	case ReasonNoToken:
		return "NoToken"
	case ReasonExpired:
		return "Expired"
	case ReasonRejected:
		return "Rejected"
	default:
		return ""
	}
}

// Error is the single error type returned across the core.
type Error struct {
	Code    ErrorCode
	Reason  AuthReason // only meaningful for ErrAuth
	Status  int        // HTTP status, 0 when no response was received
	Message string
	Err     error // underlying cause, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := e.Code.String()
	if e.Code == ErrAuth && e.Reason != ReasonNone {
		prefix = fmt.Sprintf("%s(%s)", prefix, e.Reason)
	}
	if e.Status != 0 {
		prefix = fmt.Sprintf("%s[%d]", prefix, e.Status)
	}
	if e.Message == "" && e.Err != nil {
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the error is a request timeout.
func (e *Error) Timeout() bool {
	return e.Code == ErrNetwork && stderrors.Is(e.Err, context.DeadlineExceeded)
}

// ============================================================================
// Factory Functions
// ============================================================================

// NewTimeoutError creates a NetworkError for a request that exceeded its
// deadline and was aborted.
func NewTimeoutError(op string) *Error {
	return &Error{
		Code:    ErrNetwork,
		Message: fmt.Sprintf("%s: request timed out", op),
		Err:     context.DeadlineExceeded,
	}
}

// NewNetworkError creates a NetworkError wrapping a transport failure or a
// caller cancellation.
func NewNetworkError(op string, err error) *Error {
	return &Error{
		Code:    ErrNetwork,
		Message: fmt.Sprintf("%s: %v", op, err),
		Err:     err,
	}
}

// NewNoTokenError creates an AuthError(NoToken).
func NewNoTokenError() *Error {
	return &Error{
		Code:    ErrAuth,
		Reason:  ReasonNoToken,
		Message: "no session token available, please sign in again",
	}
}

// NewExpiredTokenError creates an AuthError(Expired).
func NewExpiredTokenError() *Error {
	return &Error{
		Code:    ErrAuth,
		Reason:  ReasonExpired,
		Message: "session token expired, please sign in again",
	}
}

// NewRejectedError creates an AuthError(Rejected) for a 401/403 response.
func NewRejectedError(status int, message string) *Error {
	return &Error{
		Code:    ErrAuth,
		Reason:  ReasonRejected,
		Status:  status,
		Message: message,
	}
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(status int, message string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Status:  status,
		Message: message,
	}
}

// NewValidationError creates a ValidationError.
func NewValidationError(message string) *Error {
	return &Error{
		Code:    ErrValidation,
		Message: message,
	}
}

// NewServerError creates a ServerError carrying the HTTP status.
func NewServerError(status int, message string) *Error {
	if message == "" {
		message = fmt.Sprintf("HTTP error: %d", status)
	}
	return &Error{
		Code:    ErrServer,
		Status:  status,
		Message: message,
	}
}

// ============================================================================
// Inspection Helpers
// ============================================================================

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the ErrorCode of err, or 0 if err is not an *Error.
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.Code
	}
	return 0
}

// IsNetwork reports whether err is a NetworkError.
func IsNetwork(err error) bool { return CodeOf(err) == ErrNetwork }

// IsTimeout reports whether err is a NetworkError caused by a timeout.
func IsTimeout(err error) bool {
	e, ok := As(err)
	return ok && e.Timeout()
}

// IsAuth reports whether err is an AuthError.
func IsAuth(err error) bool { return CodeOf(err) == ErrAuth }

// IsNoToken reports whether err is an AuthError(NoToken).
func IsNoToken(err error) bool {
	e, ok := As(err)
	return ok && e.Code == ErrAuth && e.Reason == ReasonNoToken
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool { return CodeOf(err) == ErrNotFound }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool { return CodeOf(err) == ErrValidation }

// IsServer reports whether err is a ServerError.
func IsServer(err error) bool { return CodeOf(err) == ErrServer }
