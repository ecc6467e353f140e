package sharetest

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/marmos91/reportshare/internal/logger"
	"github.com/marmos91/reportshare/pkg/notify"
)

const (
	subscribeTimeout = 5 * time.Second
	pushWriteTimeout = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// pushConn is one subscribed websocket. Writes are serialized.
type pushConn struct {
	ws *websocket.Conn

	mu sync.Mutex
}

func (c *pushConn) send(msg notify.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(pushWriteTimeout))
	return c.ws.WriteJSON(msg)
}

// hub tracks push connections per user.
type hub struct {
	mu    sync.Mutex
	conns map[string]map[*pushConn]struct{}
}

func newHub() *hub {
	return &hub{conns: make(map[string]map[*pushConn]struct{})}
}

func (h *hub) add(userID string, c *pushConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[userID]
	if !ok {
		set = make(map[*pushConn]struct{})
		h.conns[userID] = set
	}
	set[c] = struct{}{}
}

func (h *hub) remove(userID string, c *pushConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.conns, userID)
		}
	}
}

func (h *hub) snapshot(userID string) []*pushConn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*pushConn, 0, len(h.conns[userID]))
	for c := range h.conns[userID] {
		out = append(out, c)
	}
	return out
}

func (h *hub) emit(userID string, msg notify.Message) int {
	sent := 0
	for _, c := range h.snapshot(userID) {
		if err := c.send(msg); err != nil {
			logger.Debug("Push write failed", logger.UserID(userID), logger.Err(err))
			continue
		}
		sent++
	}
	return sent
}

func (h *hub) count(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[userID])
}

// drop closes the user's connections. The read loops unregister them.
func (h *hub) drop(userID string) {
	for _, c := range h.snapshot(userID) {
		_ = c.ws.Close()
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	var all []*pushConn
	for _, set := range h.conns {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.Unlock()

	for _, c := range all {
		_ = c.ws.Close()
	}
}

// handlePush upgrades an authenticated request and waits for the subscribe
// frame, which must name the token's user.
func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = ws.Close() }()

	_ = ws.SetReadDeadline(time.Now().Add(subscribeTimeout))
	var msg notify.Message
	if err := ws.ReadJSON(&msg); err != nil || msg.Event != notify.WireSubscribe {
		return
	}
	var sub struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(msg.Data, &sub); err != nil || sub.UserID != userID {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "subscription does not match token"),
			time.Now().Add(pushWriteTimeout))
		return
	}
	_ = ws.SetReadDeadline(time.Time{})

	c := &pushConn{ws: ws}
	s.hub.add(userID, c)
	defer s.hub.remove(userID, c)

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}
