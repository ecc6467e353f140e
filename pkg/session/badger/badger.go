// Package badger provides a BadgerDB-backed session.Backend for hosts that
// keep other local state in an embedded key-value store.
package badger

import (
	"encoding/json"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/reportshare/pkg/session"
)

// sessionKey is the single key under which the current session lives.
var sessionKey = []byte("session/current")

// Backend stores the session in BadgerDB.
type Backend struct {
	db     *badgerdb.DB
	ownsDB bool
}

// Open opens (or creates) a BadgerDB at path. An empty path opens an
// in-memory database.
func Open(path string) (*Backend, error) {
	opts := badgerdb.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger session store: %w", err)
	}
	return &Backend{db: db, ownsDB: true}, nil
}

// New wraps an already open database. Close will not close it.
func New(db *badgerdb.DB) *Backend {
	return &Backend{db: db}
}

// Load implements session.Backend.
func (b *Backend) Load() (*session.Session, error) {
	var sess *session.Session
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(sessionKey)
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		sess = &session.Session{}
		return json.Unmarshal(data, sess)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	return sess, nil
}

// Save implements session.Backend.
func (b *Backend) Save(s *session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(sessionKey, data)
	})
}

// Delete implements session.Backend.
func (b *Backend) Delete() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(sessionKey)
	})
}

// Close closes the database if the backend opened it.
func (b *Backend) Close() error {
	if !b.ownsDB {
		return nil
	}
	return b.db.Close()
}
