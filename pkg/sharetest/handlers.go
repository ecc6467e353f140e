package sharetest

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/marmos91/reportshare/internal/logger"
	"github.com/marmos91/reportshare/pkg/apiclient"
	"github.com/marmos91/reportshare/pkg/notify"
)

type contextKey string

const userContextKey contextKey = "user"

func userFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userContextKey).(string)
	return id
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/ws", s.handlePush)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.injectFailures)
		r.Post("/users/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)
			r.Post("/users/logout", s.handleLogout)
			r.Post("/share/share-report", s.handleShareReport)
			r.Post("/share/share-all", s.handleShareAll)
			r.Post("/share/revoke", s.handleRevoke)
			r.Get("/share/shared-by/{userId}", s.handleSharedBy)
			r.Get("/share/shared-with/{userId}", s.handleSharedWith)
			r.Get("/reports/{userId}", s.handleReports)
		})
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Debug("Test backend request",
			logger.KeyRequestID, middleware.GetReqID(r.Context()),
			logger.KeyMethod, r.Method,
			logger.KeyURL, r.URL.Path,
			logger.KeyStatus, ww.Status(),
			logger.KeyDurationMs, logger.Duration(start))
	})
}

// injectFailures counts REST requests and answers queued failures.
func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		status := 0
		if len(s.failNext) > 0 {
			status = s.failNext[0]
			s.failNext = s.failNext[1:]
		}
		s.mu.Unlock()

		if status != 0 {
			writeError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

// authenticate returns the user a request's bearer token belongs to.
func (s *Server) authenticate(r *http.Request) (string, bool) {
	token, ok := bearerToken(r)
	if !ok {
		return "", false
	}
	userID, err := s.tokens.validate(token)
	if err != nil {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loggedOut[token] {
		return "", false
	}
	return userID, true
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.authenticate(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req apiclient.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	u, ok := s.users[req.UserID]
	s.mu.Unlock()
	if !ok || u.password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}

	token, err := s.tokens.issue(u.id, u.healthID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, apiclient.LoginResponse{Token: token, UserID: u.id, HealthID: u.healthID})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := bearerToken(r)

	s.mu.Lock()
	s.loggedOut[token] = true
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// resolveRecipient maps the raw sharedWith value onto a recipient. Known
// user ids and registered emails resolve to the account; other emails are
// kept as invitations.
func (s *Server) resolveRecipient(raw string) (id, email string, ok bool) {
	if _, known := s.users[raw]; known {
		return raw, "", true
	}
	for _, u := range s.users {
		if u.email != "" && strings.EqualFold(u.email, raw) {
			return u.id, "", true
		}
	}
	if strings.Contains(raw, "@") {
		return "", raw, true
	}
	return "", "", false
}

func sameRecipient(g *apiclient.ShareGrant, id, email string) bool {
	if id != "" {
		return g.SharedWithID == id
	}
	return g.SharedWithID == "" && strings.EqualFold(g.SharedWithEmail, email)
}

func sameReport(g *apiclient.ShareGrant, reportID *string) bool {
	if reportID == nil || *reportID == "" {
		return g.ReportID == nil
	}
	return g.ReportID != nil && *g.ReportID == *reportID
}

// activeGrant returns the index of the active grant for a tuple, or -1.
// Must be called with s.mu held.
func (s *Server) activeGrant(ownerID string, reportID *string, id, email string) int {
	for i := len(s.grants) - 1; i >= 0; i-- {
		g := &s.grants[i]
		if !g.Revoked && g.OwnerID == ownerID && sameReport(g, reportID) && sameRecipient(g, id, email) {
			return i
		}
	}
	return -1
}

func (s *Server) ownsReport(ownerID, reportID string) bool {
	for _, id := range s.reports[ownerID] {
		if id == reportID {
			return true
		}
	}
	return false
}

func (s *Server) handleShareReport(w http.ResponseWriter, r *http.Request) {
	var req apiclient.ShareReportRequest
	if !decode(w, r, &req) {
		return
	}
	if req.OwnerID == "" || req.SharedWith == "" || req.ReportID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ownerId, sharedWith and reportId are required"})
		return
	}
	if req.OwnerID != userFromContext(r.Context()) {
		writeError(w, http.StatusForbidden, "Cannot share another user's report")
		return
	}

	s.mu.Lock()
	if !s.ownsReport(req.OwnerID, req.ReportID) {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "Report not found")
		return
	}
	id, email, ok := s.resolveRecipient(req.SharedWith)
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	reportID := req.ReportID
	if i := s.activeGrant(req.OwnerID, &reportID, id, email); i >= 0 {
		existing := s.grants[i]
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, existing)
		return
	}

	grant := apiclient.ShareGrant{
		ID:              uuid.NewString(),
		OwnerID:         req.OwnerID,
		ReportID:        &reportID,
		SharedWithID:    id,
		SharedWithEmail: email,
		PermissionType:  permissionOrDefault(req.PermissionType),
		SharedAt:        s.now().UTC(),
	}
	s.grants = append(s.grants, grant)
	s.mu.Unlock()

	s.notify(id, notify.WireShared, grant)
	writeJSON(w, http.StatusCreated, grant)
}

func (s *Server) handleShareAll(w http.ResponseWriter, r *http.Request) {
	var req apiclient.ShareAllRequest
	if !decode(w, r, &req) {
		return
	}
	if req.OwnerID == "" || req.SharedWith == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ownerId and sharedWith are required"})
		return
	}
	if req.OwnerID != userFromContext(r.Context()) {
		writeError(w, http.StatusForbidden, "Cannot share another user's reports")
		return
	}

	s.mu.Lock()
	id, email, ok := s.resolveRecipient(req.SharedWith)
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	snapshot := append([]string{}, s.reports[req.OwnerID]...)
	status := http.StatusCreated
	var grant apiclient.ShareGrant
	if i := s.activeGrant(req.OwnerID, nil, id, email); i >= 0 {
		s.grants[i].ReportIDs = snapshot
		s.grants[i].SharedAt = s.now().UTC()
		grant = s.grants[i]
		status = http.StatusOK
	} else {
		grant = apiclient.ShareGrant{
			ID:              uuid.NewString(),
			OwnerID:         req.OwnerID,
			ReportIDs:       snapshot,
			SharedWithID:    id,
			SharedWithEmail: email,
			PermissionType:  permissionOrDefault(req.PermissionType),
			SharedAt:        s.now().UTC(),
		}
		s.grants = append(s.grants, grant)
	}
	s.mu.Unlock()

	s.notify(id, notify.WireShared, grant)
	writeJSON(w, status, grant)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req apiclient.RevokeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.OwnerID == "" || (req.SharedWithID == "") == (req.SharedWithEmail == "") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ownerId and exactly one of sharedWithId or sharedWithEmail are required"})
		return
	}
	if req.OwnerID != userFromContext(r.Context()) {
		writeError(w, http.StatusForbidden, "Cannot revoke another user's share")
		return
	}

	s.mu.Lock()
	id, email := req.SharedWithID, req.SharedWithEmail
	if email != "" {
		// A registered email was stored as the account id when shared.
		if rid, _, ok := s.resolveRecipient(email); ok && rid != "" {
			id, email = rid, ""
		}
	}
	i := s.activeGrant(req.OwnerID, req.ReportID, id, email)
	if i < 0 {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "Share not found")
		return
	}
	s.grants[i].Revoked = true
	grant := s.grants[i]
	s.mu.Unlock()

	s.notify(grant.SharedWithID, notify.WireRevoked, grant)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Access revoked"})
}

func (s *Server) handleSharedBy(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID != userFromContext(r.Context()) {
		writeError(w, http.StatusForbidden, "Cannot list another user's shares")
		return
	}

	s.mu.Lock()
	out := []apiclient.ShareGrant{}
	for _, g := range s.grants {
		if g.OwnerID == userID {
			out = append(out, g)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"sharedReports": out})
}

func (s *Server) handleSharedWith(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	caller := userFromContext(r.Context())

	s.mu.Lock()
	email := ""
	if u, ok := s.users[caller]; ok {
		email = u.email
	}
	if userID != caller && (email == "" || !strings.EqualFold(userID, email)) {
		s.mu.Unlock()
		writeError(w, http.StatusForbidden, "Cannot list another user's shares")
		return
	}

	out := []apiclient.ShareGrant{}
	for _, g := range s.grants {
		switch {
		case g.SharedWithID == caller:
			out = append(out, g)
		case g.SharedWithEmail != "" && (strings.EqualFold(g.SharedWithEmail, userID) ||
			(email != "" && strings.EqualFold(g.SharedWithEmail, email))):
			out = append(out, g)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	s.mu.Lock()
	out := make([]map[string]any, 0, len(s.reports[userID]))
	for _, id := range s.reports[userID] {
		out = append(out, map[string]any{
			"_id":      id,
			"userId":   userID,
			"fileName": id + ".pdf",
		})
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

// notify pushes a grant change to the recipient when it has an account.
func (s *Server) notify(recipientID, event string, g apiclient.ShareGrant) {
	if recipientID == "" {
		return
	}
	payload := notify.Payload{OwnerID: g.OwnerID}
	if g.ReportID != nil {
		payload.ReportID = *g.ReportID
	}
	s.Emit(recipientID, event, payload)
}

func permissionOrDefault(p string) string {
	if p == "" {
		return apiclient.PermissionView
	}
	return p
}
