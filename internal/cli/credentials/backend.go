package credentials

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/marmos91/reportshare/internal/logger"
	"github.com/marmos91/reportshare/pkg/session"
)

// SessionBackend exposes the current context of a Store as a session.Backend.
type SessionBackend struct {
	store *Store
}

// SessionBackend returns a session.Backend bound to the current context.
func (s *Store) SessionBackend() *SessionBackend {
	return &SessionBackend{store: s}
}

// Load implements session.Backend.
func (b *SessionBackend) Load() (*session.Session, error) {
	ctx, err := b.store.GetCurrentContext()
	if errors.Is(err, ErrNoCurrentContext) || errors.Is(err, ErrContextNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ctx.Session(), nil
}

// Save implements session.Backend.
func (b *SessionBackend) Save(sess *session.Session) error {
	return b.store.UpdateSession(sess)
}

// Delete implements session.Backend.
func (b *SessionBackend) Delete() error {
	err := b.store.ClearCurrentContext()
	if errors.Is(err, ErrNoCurrentContext) || errors.Is(err, ErrContextNotFound) {
		return nil
	}
	return err
}

// Watch implements session.Watcher. The parent directory is watched because
// the file is replaced by rename on every save.
func (b *SessionBackend) Watch(ctx context.Context, onChange func(*session.Session)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	path := b.store.ConfigPath()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if err := b.store.reload(); err != nil {
				logger.Warn("Failed to reload credentials", logger.KeyPath, path, logger.KeyError, err)
				continue
			}
			sess, err := b.Load()
			if err != nil {
				logger.Warn("Failed to read session from credentials", logger.KeyError, err)
				continue
			}
			onChange(sess)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Credentials watcher error", logger.KeyError, err)
		}
	}
}
