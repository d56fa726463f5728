// ABOUTME: CredentialStore interface and fixed keys for OAuth credential persistence
// ABOUTME: Backends are SQLite, bbolt, and in-memory, selected by Open

package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested key does not exist
var ErrNotFound = errors.New("not found")

// ErrClosed is returned when the store has already been closed
var ErrClosed = errors.New("store closed")

// Fixed keys under which the OAuth credential is persisted.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// CredentialStore is a durable key-value store for the process-wide OAuth credential.
// Writes are full replacements; implementations must be safe for concurrent use.
type CredentialStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Options selects and configures a CredentialStore backend.
type Options struct {
	Driver        string // sqlite, bolt, memory
	Path          string
	EncryptionKey string
}

// Open creates the backend named by opts.Driver. When an encryption key is set,
// the backend is wrapped so values are sealed at rest.
func Open(opts Options) (CredentialStore, error) {
	var (
		s   CredentialStore
		err error
	)

	switch opts.Driver {
	case "sqlite", "":
		s, err = NewSQLiteStore(opts.Path)
	case "bolt":
		s, err = NewBoltStore(opts.Path)
	case "memory":
		s = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	if opts.EncryptionKey != "" {
		sealed, err := NewSealedStore(s, []byte(opts.EncryptionKey))
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		return sealed, nil
	}
	return s, nil
}
