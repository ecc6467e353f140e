// Package runtime ties the session lifecycle to the notification bus.
//
// A Runtime holds the process-wide token store, API client and share
// service. Each successful login gets a fresh bus scoped to that user; logout
// and re-login stop the previous bus first, so a bus never outlives its
// session and is never shared between users.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/reportshare/internal/logger"
	"github.com/marmos91/reportshare/pkg/apiclient"
	apierrs "github.com/marmos91/reportshare/pkg/errors"
	"github.com/marmos91/reportshare/pkg/notify"
	"github.com/marmos91/reportshare/pkg/session"
	"github.com/marmos91/reportshare/pkg/share"
)

// Config wires a Runtime.
type Config struct {
	// Client is the API client. Its token source is replaced by Store.
	Client *apiclient.Client

	// Store is the token store. Defaults to an in-memory store.
	Store *session.Store

	// Dialer opens the push channel. A nil Dialer disables the bus, which
	// suits one-shot commands.
	Dialer notify.Dialer

	Backoff    notify.BackoffConfig
	FeedSize   int
	BusMetrics notify.Metrics
}

// Runtime is the signed-in application state.
type Runtime struct {
	client *apiclient.Client
	tokens *session.Store
	shares *share.Service
	cfg    Config

	mu  sync.Mutex
	bus *notify.Bus
}

// New creates a runtime. No session is active until Login or Resume.
func New(cfg Config) (*Runtime, error) {
	if cfg.Client == nil {
		return nil, errors.New("runtime: API client is required")
	}
	if cfg.Store == nil {
		cfg.Store = session.NewStore()
	}

	client := cfg.Client.WithTokenSource(cfg.Store)
	return &Runtime{
		client: client,
		tokens: cfg.Store,
		shares: share.NewService(client),
		cfg:    cfg,
	}, nil
}

// Client returns the authenticated API client.
func (r *Runtime) Client() *apiclient.Client { return r.client }

// Tokens returns the token store.
func (r *Runtime) Tokens() *session.Store { return r.tokens }

// Shares returns the share service.
func (r *Runtime) Shares() *share.Service { return r.shares }

// Bus returns the bus of the current session, or nil.
func (r *Runtime) Bus() *notify.Bus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bus
}

// Login authenticates, stores the session and starts a bus for the user.
// The previous session and its bus stay untouched until the backend has
// accepted the new credentials.
func (r *Runtime) Login(ctx context.Context, userID, password string) (*session.Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || password == "" {
		return nil, apierrs.NewValidationError("userId and password are required")
	}

	resp, err := r.client.Login(ctx, userID, password)
	if err != nil {
		logger.WarnCtx(ctx, "Login failed", logger.UserID(userID), logger.Err(err))
		return nil, err
	}
	if resp.Token == "" {
		return nil, apierrs.NewServerError(200, "login response carried no token")
	}

	// The old bus must not dial with the new token.
	r.stopBus()

	// Readers arriving before the write below wait instead of failing fast.
	r.tokens.Expect()

	user := resp.User(userID)
	if err := r.tokens.PersistSession(session.Session{
		Token:    resp.Token,
		UserID:   user.UserID,
		HealthID: user.HealthID,
	}); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	sess, _ := r.tokens.Current()
	logger.InfoCtx(ctx, "Signed in", logger.UserID(sess.UserID))

	if err := r.startBus(sess.UserID); err != nil {
		return &sess, err
	}
	return &sess, nil
}

// Resume restores a persisted session and starts its bus. It fails with
// AuthError(NoToken) when nothing is stored.
func (r *Runtime) Resume(ctx context.Context) (*session.Session, error) {
	sess, err := r.tokens.Load()
	if err != nil {
		return nil, err
	}
	if sess == nil {
		if cur, ok := r.tokens.Current(); ok {
			sess = &cur
		}
	}
	if sess == nil {
		return nil, apierrs.NewNoTokenError()
	}
	if sess.Expired(time.Now()) {
		return nil, apierrs.NewExpiredTokenError()
	}

	logger.DebugCtx(ctx, "Session resumed", logger.UserID(sess.UserID))
	if err := r.startBus(sess.UserID); err != nil {
		return sess, err
	}
	return sess, nil
}

// Logout stops the bus, tells the backend (best effort) and clears the
// token.
func (r *Runtime) Logout(ctx context.Context) error {
	r.stopBus()

	userID := r.tokens.UserID()
	if r.tokens.Get() != "" {
		if err := r.client.Logout(ctx); err != nil {
			logger.WarnCtx(ctx, "Server logout failed", logger.UserID(userID), logger.Err(err))
		}
	}

	if err := r.tokens.Clear(); err != nil {
		return err
	}
	logger.InfoCtx(ctx, "Signed out", logger.UserID(userID))
	return nil
}

// Watch keeps the bus in step with session changes made by other processes
// until ctx is done: a removed session stops the bus, and a session for
// another user replaces it. It returns immediately when the token store has
// no watchable backend.
func (r *Runtime) Watch(ctx context.Context) error {
	return r.tokens.Watch(ctx, r.follow)
}

func (r *Runtime) follow(sess *session.Session) {
	bus := r.Bus()
	switch {
	case sess == nil:
		if bus != nil {
			logger.Info("Session ended in another process, stopping push channel",
				logger.UserID(bus.UserID()))
			r.stopBus()
		}
	case bus == nil || bus.UserID() != sess.UserID:
		logger.Info("Session changed in another process", logger.UserID(sess.UserID))
		if err := r.startBus(sess.UserID); err != nil {
			logger.Warn("Failed to start push channel", logger.UserID(sess.UserID), logger.Err(err))
		}
	}
}

// Close stops the bus without ending the session.
func (r *Runtime) Close() error {
	r.stopBus()
	return nil
}

func (r *Runtime) startBus(userID string) error {
	if r.cfg.Dialer == nil {
		return nil
	}

	bus, err := notify.New(notify.Options{
		Dialer:   r.cfg.Dialer,
		Tokens:   r.tokens,
		UserID:   userID,
		Backoff:  r.cfg.Backoff,
		FeedSize: r.cfg.FeedSize,
		Metrics:  r.cfg.BusMetrics,
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bus != nil {
		_ = r.bus.Close()
	}
	r.bus = bus
	return bus.Start(context.Background())
}

func (r *Runtime) stopBus() {
	r.mu.Lock()
	bus := r.bus
	r.bus = nil
	r.mu.Unlock()

	if bus != nil {
		_ = bus.Close()
	}
}
