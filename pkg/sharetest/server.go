// Package sharetest provides an in-memory report-sharing backend for tests.
//
// The server speaks the same REST routes and push channel as the real
// backend: login issues a signed session token, share grants live in memory,
// and grant changes are pushed to the recipient's websocket connections.
//
//	srv := sharetest.New(t)
//	srv.AddUser("Niki002", "secret")
//	srv.AddReports("Niki002", "R1", "R2")
//	client := apiclient.New(srv.APIURL())
package sharetest

import (
	"crypto/rand"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/reportshare/pkg/apiclient"
	"github.com/marmos91/reportshare/pkg/notify"
)

type user struct {
	id       string
	password string
	email    string
	healthID string
}

// Server is an in-memory backend listening on a loopback port.
type Server struct {
	http   *httptest.Server
	tokens *issuer
	hub    *hub

	mu        sync.Mutex
	users     map[string]*user
	reports   map[string][]string
	grants    []apiclient.ShareGrant
	loggedOut map[string]bool
	now       func() time.Time
	failNext  []int
	requests  int
}

// New starts a server and closes it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := NewServer()
	t.Cleanup(s.Close)
	return s
}

// NewServer starts a server. The caller must Close it.
func NewServer() *Server {
	secret := make([]byte, 32)
	_, _ = rand.Read(secret)

	s := &Server{
		hub:       newHub(),
		users:     make(map[string]*user),
		reports:   make(map[string][]string),
		loggedOut: make(map[string]bool),
		now:       time.Now,
	}
	s.tokens = &issuer{secret: secret, ttl: time.Hour, now: s.clock}
	s.http = httptest.NewServer(s.router())
	return s
}

// Close disconnects every push client and stops the server.
func (s *Server) Close() {
	s.hub.closeAll()
	s.http.Close()
}

// URL returns the server origin, e.g. "http://127.0.0.1:1234".
func (s *Server) URL() string {
	return s.http.URL
}

// APIURL returns the REST root.
func (s *Server) APIURL() string {
	return s.http.URL + "/api"
}

// PushURL returns the websocket endpoint.
func (s *Server) PushURL() string {
	return "ws" + strings.TrimPrefix(s.http.URL, "http") + "/ws"
}

// SetClock overrides the server time source.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Server) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now()
}

// AddUser registers an account. An optional email lets grants addressed to
// that email resolve to the account.
func (s *Server) AddUser(id, password string, email ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := &user{id: id, password: password, healthID: "HID-" + id}
	if len(email) > 0 {
		u.email = email[0]
	}
	s.users[id] = u
}

// AddReports records reports owned by ownerID.
func (s *Server) AddReports(ownerID string, reportIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[ownerID] = append(s.reports[ownerID], reportIDs...)
}

// Grants returns a copy of every stored grant, revoked ones included.
func (s *Server) Grants() []apiclient.ShareGrant {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]apiclient.ShareGrant, len(s.grants))
	copy(out, s.grants)
	return out
}

// PutGrant stores a grant as is, bypassing every check. Useful to seed
// duplicates a real backend may hold.
func (s *Server) PutGrant(g apiclient.ShareGrant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants = append(s.grants, g)
}

// Requests returns how many REST requests the server received.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// FailNext makes the next REST requests answer with the given statuses.
func (s *Server) FailNext(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = append(s.failNext, statuses...)
}

// Emit pushes an event to every connection of userID and returns how many
// connections received it.
func (s *Server) Emit(userID, event string, payload notify.Payload) int {
	msg, err := notify.NewMessage(event, payload)
	if err != nil {
		return 0
	}
	return s.hub.emit(userID, msg)
}

// Subscribers returns the number of push connections subscribed as userID.
func (s *Server) Subscribers(userID string) int {
	return s.hub.count(userID)
}

// Disconnect drops every push connection of userID.
func (s *Server) Disconnect(userID string) {
	s.hub.drop(userID)
}
