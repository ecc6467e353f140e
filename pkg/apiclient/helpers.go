package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	apierrs "github.com/marmos91/reportshare/pkg/errors"
)

// listResources performs an authenticated GET of a collection. The backend
// returns either a bare array or an object wrapping it under envelopeKey.
func listResources[T any](ctx context.Context, c *Client, route, path, envelopeKey string) ([]T, error) {
	var raw json.RawMessage
	if err := c.do(ctx, call{method: http.MethodGet, route: route, path: path, result: &raw, auth: true}); err != nil {
		return nil, err
	}
	items, err := decodeList[T](raw, envelopeKey)
	if err != nil {
		return nil, apierrs.NewServerError(http.StatusOK, err.Error())
	}
	return items, nil
}

// createResource performs an authenticated POST and decodes the body into T.
func createResource[T any](ctx context.Context, c *Client, route string, body any) (*T, error) {
	var result T
	if err := c.do(ctx, call{method: http.MethodPost, route: route, path: route, body: body, result: &result, auth: true}); err != nil {
		return nil, err
	}
	return &result, nil
}

// decodeList accepts `[...]`, `{"<envelopeKey>": [...]}` or an empty body.
func decodeList[T any](raw json.RawMessage, envelopeKey string) ([]T, error) {
	items := []T{}
	if len(raw) == 0 || string(raw) == "null" {
		return items, nil
	}
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("failed to decode list: %w", err)
		}
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode list envelope: %w", err)
	}
	inner, ok := envelope[envelopeKey]
	if !ok || string(inner) == "null" {
		return items, nil
	}
	if err := json.Unmarshal(inner, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", envelopeKey, err)
	}
	return items, nil
}

// resourcePath formats a path template, escaping every argument as a path
// segment.
func resourcePath(format string, args ...string) string {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = url.PathEscape(a)
	}
	return fmt.Sprintf(format, escaped...)
}
