package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrs "github.com/marmos91/reportshare/pkg/errors"
	"github.com/marmos91/reportshare/pkg/session"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

type failingToken struct{ err error }

func (f failingToken) Token(context.Context) (string, error) { return "", f.err }

type recordedRequest struct {
	method, route, outcome string
}

type fakeMetrics struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (m *fakeMetrics) ObserveRequest(method, route, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, recordedRequest{method, route, outcome})
}

func TestNew(t *testing.T) {
	client := New("http://localhost:3000/api/")
	assert.Equal(t, "http://localhost:3000/api", client.BaseURL())
	assert.Equal(t, DefaultTimeout, client.Timeout())
	assert.Equal(t, 60*time.Second, DefaultTimeout)

	assert.Equal(t, 5*time.Second, New("http://x", WithTimeout(5*time.Second)).Timeout())
	assert.Equal(t, DefaultTimeout, New("http://x", WithTimeout(0)).Timeout())
}

func TestWithTokenSourceCopies(t *testing.T) {
	client := New("http://localhost:3000/api")
	authed := client.WithTokenSource(staticToken("tok"))

	assert.Nil(t, client.tokens)
	assert.NotNil(t, authed.tokens)
	assert.Equal(t, client.BaseURL(), authed.BaseURL())
}

func TestRequestHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Empty(t, r.Header.Get("Authorization"))
		_, err := uuid.Parse(r.Header.Get("X-Request-ID"))
		assert.NoError(t, err)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	}))
	defer server.Close()

	var resp struct {
		Message string `json:"message"`
	}
	err := New(server.URL).Request(context.Background(), http.MethodGet, "/ping", nil, &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Message)
}

func TestAuthRequestAttachesBearer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(server.URL, WithTokenSource(staticToken("test-token")))
	require.NoError(t, client.AuthRequest(context.Background(), http.MethodPost, "/users/logout", nil, nil))
}

func TestAuthRequestWithoutTokenNeverTouchesNetwork(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sources := map[string]TokenSource{
		"nil source":    nil,
		"empty token":   staticToken(""),
		"empty store":   session.NewStore(),
		"plain failure": failingToken{errors.New("keychain locked")},
	}

	for name, ts := range sources {
		t.Run(name, func(t *testing.T) {
			client := New(server.URL, WithTokenSource(ts))
			_, err := client.ListSharedBy(context.Background(), "Niki002")
			require.Error(t, err)
			assert.True(t, apierrs.IsNoToken(err), "got %v", err)
		})
	}
	assert.Zero(t, hits.Load())
}

func TestAuthRequestPassesClassifiedTokenErrors(t *testing.T) {
	client := New("http://127.0.0.1:1", WithTokenSource(failingToken{apierrs.NewExpiredTokenError()}))
	err := client.AuthRequest(context.Background(), http.MethodGet, "/x", nil, nil)

	e, ok := apierrs.As(err)
	require.True(t, ok)
	assert.Equal(t, apierrs.ErrAuth, e.Code)
	assert.Equal(t, apierrs.ReasonExpired, e.Reason)
}

func TestErrorNormalization(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    apierrs.ErrorCode
		message string
	}{
		{"message field", http.StatusInternalServerError, `{"message":"database down"}`, apierrs.ErrServer, "database down"},
		{"error field", http.StatusBadGateway, `{"error":"upstream failed"}`, apierrs.ErrServer, "upstream failed"},
		{"code and message", http.StatusConflict, `{"code":"CONFLICT","message":"exists"}`, apierrs.ErrServer, "CONFLICT: exists"},
		{"unparseable body", http.StatusServiceUnavailable, `<html>oops</html>`, apierrs.ErrServer, "HTTP error: 503"},
		{"empty body", http.StatusInternalServerError, ``, apierrs.ErrServer, "HTTP error: 500"},
		{"unauthorized", http.StatusUnauthorized, `{"message":"bad token"}`, apierrs.ErrAuth, "bad token"},
		{"forbidden", http.StatusForbidden, ``, apierrs.ErrAuth, "HTTP error: 403"},
		{"not found", http.StatusNotFound, `{"message":"Share not found"}`, apierrs.ErrNotFound, "Share not found"},
		{"bad request", http.StatusBadRequest, `{"error":"sharedWith is required"}`, apierrs.ErrValidation, "sharedWith is required"},
		{"unprocessable", http.StatusUnprocessableEntity, `{}`, apierrs.ErrValidation, "HTTP error: 422"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := New(server.URL).Request(context.Background(), http.MethodGet, "/x", nil, nil)
			e, ok := apierrs.As(err)
			require.True(t, ok, "got %T %v", err, err)
			assert.Equal(t, tt.code, e.Code)
			assert.Equal(t, tt.status, e.Status)
			assert.Equal(t, tt.message, e.Message)
		})
	}
}

func TestRequestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	metrics := &fakeMetrics{}
	client := New(server.URL, WithTimeout(100*time.Millisecond), WithMetrics(metrics))

	start := time.Now()
	err := client.Request(context.Background(), http.MethodGet, "/slow", nil, nil)

	require.Error(t, err)
	assert.True(t, apierrs.IsTimeout(err), "got %v", err)
	assert.True(t, apierrs.IsNetwork(err))
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Len(t, metrics.requests, 1)
	assert.Equal(t, "TimeoutError", metrics.requests[0].outcome)
}

func TestRequestParentCancel(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	err := New(server.URL).Request(ctx, http.MethodGet, "/x", nil, nil)
	require.Error(t, err)
	assert.True(t, apierrs.IsNetwork(err))
	assert.False(t, apierrs.IsTimeout(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRequestConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	err := New(url).Request(context.Background(), http.MethodGet, "/x", nil, nil)
	require.Error(t, err)
	assert.True(t, apierrs.IsNetwork(err))
	assert.False(t, apierrs.IsTimeout(err))
}

func TestRequestMalformedSuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token":`))
	}))
	defer server.Close()

	_, err := New(server.URL).Login(context.Background(), "Niki002", "pw")
	assert.True(t, apierrs.IsServer(err), "got %v", err)
}

func TestResponseSizeLimit(t *testing.T) {
	body := `{"token":"` + strings.Repeat("x", 256) + `","userId":"Niki002"}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	resp, err := New(server.URL).Login(context.Background(), "Niki002", "pw")
	require.NoError(t, err)
	assert.Len(t, resp.Token, 256)

	_, err = New(server.URL, WithMaxResponseSize(64)).Login(context.Background(), "Niki002", "pw")
	assert.True(t, apierrs.IsServer(err), "got %v", err)

	_, err = New(server.URL, WithMaxResponseSize(0)).Login(context.Background(), "Niki002", "pw")
	assert.NoError(t, err)
}

func TestMetricsUseRouteTemplate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	metrics := &fakeMetrics{}
	client := New(server.URL, WithTokenSource(staticToken("tok")), WithMetrics(metrics))

	_, err := client.ListSharedWith(context.Background(), "bob")
	require.NoError(t, err)
	_, err = New("http://x", WithMetrics(metrics)).ListSharedBy(context.Background(), "bob")
	require.Error(t, err)

	require.Len(t, metrics.requests, 2)
	assert.Equal(t, recordedRequest{"GET", "/share/shared-with/:userId", "ok"}, metrics.requests[0])
	assert.Equal(t, recordedRequest{"GET", "/share/shared-by/:userId", "AuthError"}, metrics.requests[1])
}
