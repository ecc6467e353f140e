package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/marmos91/reportshare/internal/logger"
	apierrs "github.com/marmos91/reportshare/pkg/errors"
)

const (
	// DefaultHandshakeTimeout bounds dialing and the subscribe frame.
	DefaultHandshakeTimeout = 10 * time.Second

	writeTimeout = 5 * time.Second

	// Application close codes mirroring HTTP 401 and 403.
	closeUnauthorized = 4401
	closeForbidden    = 4403
)

// WebSocketDialer dials the push channel over a websocket.
type WebSocketDialer struct {
	url    string
	dialer *websocket.Dialer
}

// NewWebSocketDialer creates a dialer for url, e.g. "ws://localhost:3000/ws".
func NewWebSocketDialer(url string) *WebSocketDialer {
	return &WebSocketDialer{
		url: url,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: DefaultHandshakeTimeout,
		},
	}
}

// URL returns the endpoint the dialer connects to.
func (d *WebSocketDialer) URL() string {
	return d.url
}

// Dial opens the connection with the bearer token and subscribes it to
// userID.
func (d *WebSocketDialer) Dial(ctx context.Context, token, userID string) (Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	ws, resp, err := d.dialer.DialContext(ctx, d.url, header)
	if err != nil {
		return nil, dialError(ctx, resp, err)
	}

	sub, err := NewMessage(WireSubscribe, subscribePayload{UserID: userID})
	if err != nil {
		_ = ws.Close()
		return nil, err
	}
	_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := ws.WriteJSON(sub); err != nil {
		_ = ws.Close()
		return nil, apierrs.NewNetworkError("subscribe push channel", err)
	}
	_ = ws.SetWriteDeadline(time.Time{})

	logger.Debug("Push channel dialed", logger.KeyEndpoint, d.url, logger.UserID(userID))
	return &wsConn{ws: ws}, nil
}

func dialError(ctx context.Context, resp *http.Response, err error) error {
	const op = "dial push channel"
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return apierrs.NewRejectedError(resp.StatusCode, "push channel rejected the session token")
		}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apierrs.NewTimeoutError(op)
	case resp != nil:
		return apierrs.NewNetworkError(op, fmt.Errorf("%w: HTTP %d", err, resp.StatusCode))
	default:
		return apierrs.NewNetworkError(op, err)
	}
}

// wsConn adapts a websocket connection to Conn.
type wsConn struct {
	ws *websocket.Conn

	closeOnce sync.Once
	closeErr  error
}

func (c *wsConn) Read() (Message, error) {
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			return Message{}, readError(err)
		}
		if kind != websocket.TextMessage {
			continue
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Event == "" {
			logger.Warn("Skipping undecodable push frame", "bytes", len(data), logger.Err(err))
			continue
		}
		return msg, nil
	}
}

// readError turns a close frame refusing the session into AuthError(Rejected)
// so the bus stops instead of reconnecting with the same token.
func readError(err error) error {
	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		return err
	}
	switch ce.Code {
	case websocket.ClosePolicyViolation, closeUnauthorized:
		return apierrs.NewRejectedError(http.StatusUnauthorized, "push channel closed the subscription: "+ce.Text)
	case closeForbidden:
		return apierrs.NewRejectedError(http.StatusForbidden, "push channel closed the subscription: "+ce.Text)
	}
	return err
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(writeTimeout)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
