// ABOUTME: bbolt implementation of CredentialStore for single-file embedded deployments
// ABOUTME: Stores every credential key in one bucket

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var credentialsBucket = []byte("credentials")

// BoltStore implements CredentialStore on top of a bbolt database file.
type BoltStore struct {
	mu     sync.RWMutex
	db     *bolt.DB
	closed bool
	logger *slog.Logger
}

// NewBoltStore opens (or creates) the bbolt database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, errors.New("bolt store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o700); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := bolt.Open(trimmed, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(credentialsBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating credentials bucket: %w", err)
	}

	logger := slog.Default().With("component", "store")
	logger.Info("bolt store initialized", "path", trimmed)
	return &BoltStore{db: db, logger: logger}, nil
}

// Get retrieves the value stored under key.
func (s *BoltStore) Get(_ context.Context, key string) (string, error) {
	var value string
	err := s.view(func(tx *bolt.Tx) error {
		raw := tx.Bucket(credentialsBucket).Get([]byte(key))
		if raw == nil {
			return ErrNotFound
		}
		value = string(raw)
		return nil
	})
	return value, err
}

// Put saves or replaces the value stored under key.
func (s *BoltStore) Put(_ context.Context, key, value string) error {
	err := s.update(func(tx *bolt.Tx) error {
		return tx.Bucket(credentialsBucket).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	s.logger.Debug("saved credential", "key", key)
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *BoltStore) Delete(_ context.Context, key string) error {
	err := s.update(func(tx *bolt.Tx) error {
		return tx.Bucket(credentialsBucket).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	return nil
}

// Close closes the database. Closing twice is a no-op.
func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *BoltStore) view(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.View(fn)
}

func (s *BoltStore) update(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.Update(fn)
}

var _ CredentialStore = (*BoltStore)(nil)
