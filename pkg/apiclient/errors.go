package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	apierrs "github.com/marmos91/reportshare/pkg/errors"
)

// APIError is the structured error body the backend returns. Older endpoints
// put the text in "error" instead of "message".
type APIError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Err     string `json:"error,omitempty"`
}

// Text returns whichever message field the backend populated.
func (e *APIError) Text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err
}

// decodeError turns a non-2xx response into a classified error. When the body
// is not a structured error the message is synthesized from the status.
func decodeError(status int, body []byte) error {
	msg := ""
	var apiErr APIError
	if json.Unmarshal(body, &apiErr) == nil {
		msg = strings.TrimSpace(apiErr.Text())
		if apiErr.Code != "" && msg != "" {
			msg = fmt.Sprintf("%s: %s", apiErr.Code, msg)
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("HTTP error: %d", status)
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apierrs.NewRejectedError(status, msg)
	case http.StatusNotFound:
		return apierrs.NewNotFoundError(status, msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		e := apierrs.NewValidationError(msg)
		e.Status = status
		return e
	default:
		return apierrs.NewServerError(status, msg)
	}
}
