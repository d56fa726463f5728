// Package store persists the process-wide OAuth credential.
//
// # Architecture
//
// CredentialStore is a small key-value interface. The credential lives under two
// fixed keys, KeyAccessToken and KeyRefreshToken; every write is a full
// replacement, so concurrent writers never produce a merged value.
//
// Backends:
//
//   - SQLiteStore: default, modernc.org/sqlite (pure Go, no cgo)
//   - BoltStore: go.etcd.io/bbolt single-file database
//   - MemoryStore: in-process map for tests and ephemeral runs
//
// SealedStore wraps any backend and encrypts values with NaCl secretbox.
//
// # Usage
//
//	s, err := store.Open(store.Options{Driver: "sqlite", Path: "/var/lib/miro-mcp/credentials.db"})
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	token, err := s.Get(ctx, store.KeyAccessToken)
//	if errors.Is(err, store.ErrNotFound) {
//	    // not authorized yet
//	}
package store
