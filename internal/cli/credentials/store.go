// Package credentials provides credential storage and context management for rsctl.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/reportshare/pkg/session"
)

const (
	// DefaultConfigDir is the default directory for rsctl configuration.
	DefaultConfigDir = "rsctl"
	// ConfigFileName is the name of the credentials file.
	ConfigFileName = "credentials.json"
	// FilePermissions for config files (read/write for owner only).
	FilePermissions = 0600
	// DirPermissions for config directories.
	DirPermissions = 0700
)

var (
	// ErrNoCurrentContext indicates no context is currently set.
	ErrNoCurrentContext = errors.New("no current context set")
	// ErrContextNotFound indicates the requested context doesn't exist.
	ErrContextNotFound = errors.New("context not found")
	// ErrNotLoggedIn indicates no valid credentials exist.
	ErrNotLoggedIn = errors.New("not logged in - run 'rsctl login' first")
)

// Context is a named deployment (development, production, ...) together with
// the session obtained against it.
type Context struct {
	ServerURL   string    `json:"server_url"`
	UserID      string    `json:"user_id,omitempty"`
	HealthID    string    `json:"health_id,omitempty"`
	AccessToken string    `json:"access_token,omitempty"`
	ObtainedAt  time.Time `json:"obtained_at,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// IsExpired returns true if the access token has a known expiry that has passed.
func (c *Context) IsExpired() bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	// Consider expired if within 60 seconds of expiration
	return time.Now().Add(60 * time.Second).After(c.ExpiresAt)
}

// HasToken returns true if an access token is stored.
func (c *Context) HasToken() bool {
	return c.AccessToken != ""
}

// Session converts the context into a session, or nil if no token is stored.
func (c *Context) Session() *session.Session {
	if c == nil || c.AccessToken == "" {
		return nil
	}
	return &session.Session{
		Token:      c.AccessToken,
		UserID:     c.UserID,
		HealthID:   c.HealthID,
		ObtainedAt: c.ObtainedAt,
		ExpiresAt:  c.ExpiresAt,
	}
}

// Preferences represents user preferences.
type Preferences struct {
	DefaultOutput string `json:"default_output,omitempty" yaml:"default_output,omitempty"` // table, json, yaml
	Color         string `json:"color,omitempty" yaml:"color,omitempty"`                   // auto, always, never
}

// Config represents the complete rsctl credentials file.
type Config struct {
	CurrentContext string              `json:"current_context"`
	Contexts       map[string]*Context `json:"contexts"`
	Preferences    Preferences         `json:"preferences,omitempty"`
}

// Store manages credential storage and retrieval.
type Store struct {
	mu         sync.RWMutex
	configPath string
	config     *Config
}

// NewStore creates a new credential store at the default location.
func NewStore() (*Store, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return NewStoreAt(configPath)
}

// NewStoreAt creates a credential store backed by the given file.
func NewStoreAt(configPath string) (*Store, error) {
	store := &Store{
		configPath: configPath,
	}

	// Load existing config or create new
	if err := store.load(); err != nil {
		if os.IsNotExist(err) {
			store.config = &Config{
				Contexts: make(map[string]*Context),
			}
		} else {
			return nil, err
		}
	}

	return store, nil
}

// getConfigPath returns the path to the credentials file.
func getConfigPath() (string, error) {
	// Use XDG_CONFIG_HOME if set, otherwise ~/.config
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}

	return filepath.Join(configHome, DefaultConfigDir, ConfigFileName), nil
}

// load reads the config from disk. Callers hold mu or own the store exclusively.
func (s *Store) load() error {
	data, err := os.ReadFile(s.configPath)
	if err != nil {
		return err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("invalid credentials file %s: %w", s.configPath, err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	s.config = cfg
	return nil
}

// reload re-reads the file after an external change.
func (s *Store) reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.load()
	if os.IsNotExist(err) {
		s.config = &Config{Contexts: make(map[string]*Context)}
		return nil
	}
	return err
}

// save writes the config to disk. Callers hold mu.
func (s *Store) save() error {
	dir := filepath.Dir(s.configPath)
	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(s.config, "", "  ")
	if err != nil {
		return err
	}

	// Write-then-rename so readers never see a half-written file.
	tmp := s.configPath + ".tmp"
	if err := os.WriteFile(tmp, data, FilePermissions); err != nil {
		return err
	}
	return os.Rename(tmp, s.configPath)
}

// GetCurrentContext returns the current context.
func (s *Store) GetCurrentContext() (*Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentContext()
}

func (s *Store) currentContext() (*Context, error) {
	if s.config.CurrentContext == "" {
		return nil, ErrNoCurrentContext
	}

	ctx, ok := s.config.Contexts[s.config.CurrentContext]
	if !ok {
		return nil, ErrContextNotFound
	}

	return ctx, nil
}

// GetCurrentContextName returns the name of the current context.
func (s *Store) GetCurrentContextName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.CurrentContext
}

// GetContext returns a specific context by name.
func (s *Store) GetContext(name string) (*Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, ok := s.config.Contexts[name]
	if !ok {
		return nil, ErrContextNotFound
	}
	return ctx, nil
}

// ListContexts returns the context names in lexical order.
func (s *Store) ListContexts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.config.Contexts))
}

// update applies fn to the in-memory config under the write lock and saves
// the file when fn succeeds.
func (s *Store) update(fn func(cfg *Config) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.config); err != nil {
		return err
	}
	return s.save()
}

// SetContext creates or replaces the named context.
func (s *Store) SetContext(name string, ctx *Context) error {
	return s.update(func(cfg *Config) error {
		if cfg.Contexts == nil {
			cfg.Contexts = make(map[string]*Context)
		}
		cfg.Contexts[name] = ctx
		return nil
	})
}

// UseContext makes name the current context.
func (s *Store) UseContext(name string) error {
	return s.update(func(cfg *Config) error {
		if _, ok := cfg.Contexts[name]; !ok {
			return ErrContextNotFound
		}
		cfg.CurrentContext = name
		return nil
	})
}

// DeleteContext removes a context. Deleting the current context leaves no
// context selected.
func (s *Store) DeleteContext(name string) error {
	return s.update(func(cfg *Config) error {
		if _, ok := cfg.Contexts[name]; !ok {
			return ErrContextNotFound
		}
		delete(cfg.Contexts, name)
		if cfg.CurrentContext == name {
			cfg.CurrentContext = ""
		}
		return nil
	})
}

// UpdateSession copies sess into the current context.
func (s *Store) UpdateSession(sess *session.Session) error {
	return s.update(func(*Config) error {
		ctx, err := s.currentContext()
		if err != nil {
			return err
		}
		ctx.AccessToken = sess.Token
		ctx.UserID = sess.UserID
		ctx.HealthID = sess.HealthID
		ctx.ObtainedAt = sess.ObtainedAt
		ctx.ExpiresAt = sess.ExpiresAt
		return nil
	})
}

// ClearCurrentContext drops the token of the current context. The server URL
// and user id stay so the next login needs fewer flags.
func (s *Store) ClearCurrentContext() error {
	return s.update(func(*Config) error {
		ctx, err := s.currentContext()
		if err != nil {
			return err
		}
		ctx.AccessToken = ""
		ctx.ObtainedAt = time.Time{}
		ctx.ExpiresAt = time.Time{}
		return nil
	})
}

// GetPreferences returns the user preferences.
func (s *Store) GetPreferences() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Preferences
}

// SetPreferences replaces the stored preferences.
func (s *Store) SetPreferences(prefs Preferences) error {
	return s.update(func(cfg *Config) error {
		cfg.Preferences = prefs
		return nil
	})
}

// ConfigPath returns the path to the credentials file.
func (s *Store) ConfigPath() string {
	return s.configPath
}

// GenerateContextName derives a context name from a server URL: the host name
// with dots replaced, or "default" when the URL has no host.
func GenerateContextName(serverURL string) string {
	u, err := url.Parse(serverURL)
	if err != nil || u.Hostname() == "" {
		return "default"
	}
	return strings.ReplaceAll(u.Hostname(), ".", "-")
}
