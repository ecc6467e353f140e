package cmdutil

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/reportshare/internal/cli/credentials"
	"github.com/marmos91/reportshare/pkg/apiclient"
	"github.com/marmos91/reportshare/pkg/config"
	apierrs "github.com/marmos91/reportshare/pkg/errors"
	"github.com/marmos91/reportshare/pkg/metrics"
	"github.com/marmos91/reportshare/pkg/metrics/prometheus"
	"github.com/marmos91/reportshare/pkg/notify"
	"github.com/marmos91/reportshare/pkg/runtime"
	"github.com/marmos91/reportshare/pkg/session"
	"github.com/marmos91/reportshare/pkg/session/badger"
)

// EnvOptions selects what a command needs from its environment.
type EnvOptions struct {
	// Push attaches the notification bus to the runtime.
	Push bool

	// Metrics registers Prometheus collectors when metrics are enabled in
	// the settings file.
	Metrics bool
}

// Env is everything a command needs to talk to the backend.
type Env struct {
	Config      *config.Config
	Credentials *credentials.Store
	Runtime     *runtime.Runtime

	// ServerURL is the resolved REST root.
	ServerURL string

	closers []func() error
}

// NewEnv loads the settings and credentials and wires a runtime against the
// resolved server.
func NewEnv(opts EnvOptions) (*Env, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	creds, err := credentials.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}

	env := &Env{Config: cfg, Credentials: creds}

	var current *credentials.Context
	if c, err := creds.GetCurrentContext(); err == nil {
		current = c
	}
	env.ServerURL = ResolveServerURL(Flags.ServerURL, current, cfg.APIURL())

	if opts.Metrics && cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	backend, closeBackend, err := sessionBackend(cfg, creds)
	if err != nil {
		return nil, err
	}
	if closeBackend != nil {
		env.closers = append(env.closers, closeBackend)
	}

	storeOpts := []session.Option{session.WithReadyPolicy(cfg.ReadyPolicy())}
	if backend != nil {
		storeOpts = append(storeOpts, session.WithBackend(backend))
	}

	rc := runtime.Config{
		Client: apiclient.New(env.ServerURL,
			apiclient.WithTimeout(cfg.Server.Timeout),
			apiclient.WithMaxResponseSize(cfg.Server.MaxResponseSize.Int64()),
			apiclient.WithUserAgent(UserAgent),
			apiclient.WithMetrics(prometheus.NewAPIMetrics()),
		),
		Store: session.NewStore(storeOpts...),
	}

	if opts.Push && cfg.Push.Enabled {
		pushURL, err := env.pushURL()
		if err != nil {
			_ = env.Close()
			return nil, err
		}
		rc.Dialer = notify.NewWebSocketDialer(pushURL)
		rc.Backoff = cfg.Push.Backoff
		rc.FeedSize = cfg.Push.FeedSize
		rc.BusMetrics = prometheus.NewBusMetrics()
	}

	rt, err := runtime.New(rc)
	if err != nil {
		_ = env.Close()
		return nil, err
	}
	env.Runtime = rt
	env.closers = append([]func() error{rt.Close}, env.closers...)
	return env, nil
}

// pushURL derives the websocket endpoint from the resolved server.
func (e *Env) pushURL() (string, error) {
	cfg := *e.Config
	cfg.Server.BaseURL = e.ServerURL
	return cfg.PushURL()
}

// Resume restores the stored session, translating auth failures into hints.
func (e *Env) Resume(ctx context.Context) (*session.Session, error) {
	sess, err := e.Runtime.Resume(ctx)
	switch {
	case err == nil:
		return sess, nil
	case apierrs.IsNoToken(err):
		return nil, fmt.Errorf("%w. Run 'rsctl login' first", err)
	case apierrs.IsAuth(err):
		return nil, fmt.Errorf("%w. Run 'rsctl login' to sign in again", err)
	default:
		return nil, err
	}
}

// Close stops the runtime and releases the session backend.
func (e *Env) Close() error {
	var errs []error
	for _, c := range e.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// ResolveServerURL picks the backend: the --server flag first, then the
// current credentials context, then the settings file.
func ResolveServerURL(flag string, current *credentials.Context, configured string) string {
	if flag != "" {
		return flag
	}
	if current != nil && current.ServerURL != "" {
		return current.ServerURL
	}
	return configured
}

// sessionBackend opens the configured session persistence. A nil backend
// keeps the session in memory only.
func sessionBackend(cfg *config.Config, creds *credentials.Store) (session.Backend, func() error, error) {
	switch cfg.Session.Backend {
	case "memory":
		return nil, nil, nil
	case "badger":
		b, err := badger.Open(cfg.Session.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	default:
		return creds.SessionBackend(), nil, nil
	}
}

// NewSignedInEnv is NewEnv followed by Resume. The env is closed again when
// no session can be restored.
func NewSignedInEnv(ctx context.Context, opts EnvOptions) (*Env, *session.Session, error) {
	env, err := NewEnv(opts)
	if err != nil {
		return nil, nil, err
	}
	sess, err := env.Resume(ctx)
	if err != nil {
		_ = env.Close()
		return nil, nil, err
	}
	return env, sess, nil
}
