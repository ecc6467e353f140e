package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/reportshare/internal/logger"
	apierrs "github.com/marmos91/reportshare/pkg/errors"
)

// Backend persists a session beyond the process lifetime.
type Backend interface {
	// Load returns the stored session, or nil if none is stored.
	Load() (*Session, error)
	// Save stores the session, replacing any previous one.
	Save(s *Session) error
	// Delete removes the stored session. Deleting nothing is not an error.
	Delete() error
}

// Watcher is implemented by backends that can report sessions written by
// another process.
type Watcher interface {
	// Watch calls onChange with the new session (nil when removed) until ctx
	// is done.
	Watch(ctx context.Context, onChange func(*Session)) error
}

// readiness is a future resolved exactly once per login.
type readiness struct {
	ch       chan struct{}
	once     sync.Once
	expected atomic.Bool // a login completed and its token write is in flight
}

func newReadiness() *readiness {
	return &readiness{ch: make(chan struct{})}
}

func (r *readiness) resolve() {
	r.once.Do(func() { close(r.ch) })
}

func (r *readiness) resolved() bool {
	select {
	case <-r.ch:
		return true
	default:
		return false
	}
}

// Store is the process-wide token store.
type Store struct {
	mu      sync.Mutex // serializes writers; readers never take it
	current atomic.Pointer[Session]
	ready   atomic.Pointer[readiness]
	backend Backend
	policy  ReadyPolicy
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithBackend makes the store write through to a durable backend.
func WithBackend(b Backend) Option {
	return func(s *Store) { s.backend = b }
}

// WithReadyPolicy sets the policy used by Token when a login is pending.
func WithReadyPolicy(p ReadyPolicy) Option {
	return func(s *Store) { s.policy = p }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty token store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		policy: DefaultReadyPolicy(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ready.Store(newReadiness())
	return s
}

// Load restores a persisted session from the backend, if any.
func (s *Store) Load() (*Session, error) {
	if s.backend == nil {
		return nil, nil
	}
	sess, err := s.backend.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !sess.Valid() {
		return nil, nil
	}
	s.adopt(sess)
	logger.Debug("Session restored", logger.KeyUserID, sess.UserID)
	return sess, nil
}

// Expect marks a login as completed whose token write has not landed yet.
// Until Persist or Clear, Token waits on the readiness future instead of
// failing fast.
func (s *Store) Expect() {
	s.ready.Load().expected.Store(true)
}

// Persist stores the credential. It is idempotent and overwrites any prior
// value.
func (s *Store) Persist(token, userID string) error {
	return s.PersistSession(Session{Token: token, UserID: userID})
}

// PersistSession stores a full session.
func (s *Store) PersistSession(sess Session) error {
	if sess.Token == "" {
		return apierrs.NewValidationError("cannot persist an empty token")
	}
	if sess.ObtainedAt.IsZero() {
		sess.ObtainedAt = s.now()
	}
	if sess.ExpiresAt.IsZero() {
		sess.ExpiresAt = expiryFromToken(sess.Token)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current.Store(&sess)
	s.ready.Load().resolve()

	logger.Debug("Session persisted", logger.KeyUserID, sess.UserID)

	if s.backend != nil {
		if err := s.backend.Save(&sess); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
	}
	return nil
}

// adopt installs a session without writing it back to the backend.
func (s *Store) adopt(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sess
	s.current.Store(&cp)
	s.ready.Load().resolve()
}

// Get returns the token immediately, or "" if none is present.
func (s *Store) Get() string {
	if sess := s.current.Load(); sess != nil {
		return sess.Token
	}
	return ""
}

// Current returns a copy of the current session.
func (s *Store) Current() (Session, bool) {
	sess := s.current.Load()
	if sess == nil {
		return Session{}, false
	}
	return *sess, true
}

// UserID returns the user of the current session, or "".
func (s *Store) UserID() string {
	if sess := s.current.Load(); sess != nil {
		return sess.UserID
	}
	return ""
}

// Clear removes the credential. It must be called on explicit logout.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-arm the future before dropping the session so a waiter woken by the
	// old future finds the new one.
	if s.ready.Load().resolved() {
		s.ready.Store(newReadiness())
	} else {
		s.ready.Load().expected.Store(false)
	}
	s.current.Store(nil)

	logger.Debug("Session cleared")

	if s.backend != nil {
		if err := s.backend.Delete(); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
	}
	return nil
}

// forget drops the in-memory session without touching the backend.
func (s *Store) forget() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready.Load().resolved() {
		s.ready.Store(newReadiness())
	}
	s.current.Store(nil)
}

// WaitForReady returns the token as soon as it is persisted, waiting at most
// the policy budget. It fails with AuthError(NoToken) when the budget runs out.
func (s *Store) WaitForReady(ctx context.Context, p ReadyPolicy) (string, error) {
	if tok := s.Get(); tok != "" {
		return tok, nil
	}

	timer := time.NewTimer(p.budget())
	defer timer.Stop()

	for {
		r := s.ready.Load()
		select {
		case <-r.ch:
			if tok := s.Get(); tok != "" {
				return tok, nil
			}
			// Cleared right after being resolved; wait on the re-armed future.
			if s.ready.Load() == r {
				return "", apierrs.NewNoTokenError()
			}
		case <-timer.C:
			if tok := s.Get(); tok != "" {
				return tok, nil
			}
			return "", apierrs.NewNoTokenError()
		case <-ctx.Done():
			return "", apierrs.NewNetworkError("wait for session token", ctx.Err())
		}
	}
}

// Token resolves the token for a privileged call. While a login is pending it
// waits through WaitForReady; otherwise it uses Get and fails fast.
func (s *Store) Token(ctx context.Context) (string, error) {
	if sess := s.current.Load(); sess != nil {
		if sess.Expired(s.now()) {
			return "", apierrs.NewExpiredTokenError()
		}
		return sess.Token, nil
	}

	if !s.ready.Load().expected.Load() {
		return "", apierrs.NewNoTokenError()
	}

	tok, err := s.WaitForReady(ctx, s.policy)
	if err != nil {
		logger.WarnCtx(ctx, "Session token not ready", logger.KeyError, err)
		return "", err
	}
	if sess := s.current.Load(); sess != nil && sess.Expired(s.now()) {
		return "", apierrs.NewExpiredTokenError()
	}
	return tok, nil
}

// Watch follows backend changes made by other processes until ctx is done.
// After the store has adopted or dropped a session, onChange (if not nil)
// receives a copy of it, or nil when the session is gone. It returns
// immediately if the backend cannot be watched.
func (s *Store) Watch(ctx context.Context, onChange func(*Session)) error {
	w, ok := s.backend.(Watcher)
	if !ok {
		return nil
	}
	return w.Watch(ctx, func(sess *Session) {
		if sess.Valid() {
			s.adopt(sess)
			logger.Debug("Session picked up from backend", logger.KeyUserID, sess.UserID)
		} else {
			s.forget()
			logger.Debug("Session removed from backend")
			sess = nil
		}
		if onChange != nil {
			if sess != nil {
				cp := *sess
				sess = &cp
			}
			onChange(sess)
		}
	})
}
