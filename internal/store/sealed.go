// ABOUTME: CredentialStore wrapper that seals values at rest with NaCl secretbox
// ABOUTME: The box key is derived from a passphrase with HKDF-SHA256

package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrUnsealFailed is returned when a stored value cannot be decrypted,
// usually because the encryption key changed.
var ErrUnsealFailed = errors.New("credential could not be unsealed")

// SealedStore encrypts values before handing them to the wrapped store.
type SealedStore struct {
	inner CredentialStore
	key   [32]byte
}

// NewSealedStore wraps inner, deriving the box key from passphrase.
func NewSealedStore(inner CredentialStore, passphrase []byte) (*SealedStore, error) {
	if len(passphrase) == 0 {
		return nil, errors.New("encryption key must not be empty")
	}
	s := &SealedStore{inner: inner}
	kdf := hkdf.New(sha256.New, passphrase, []byte("miro-mcp credential store"), []byte("secretbox key v1"))
	if _, err := io.ReadFull(kdf, s.key[:]); err != nil {
		return nil, fmt.Errorf("deriving encryption key: %w", err)
	}
	return s, nil
}

// Get reads and unseals the value stored under key.
func (s *SealedStore) Get(ctx context.Context, key string) (string, error) {
	encoded, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) < nonceSize {
		return "", ErrUnsealFailed
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrUnsealFailed
	}
	return string(plain), nil
}

// Put seals value with a fresh random nonce and stores it under key.
func (s *SealedStore) Put(ctx context.Context, key, value string) error {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(value), &nonce, &s.key)
	return s.inner.Put(ctx, key, base64.StdEncoding.EncodeToString(box))
}

// Delete removes key from the wrapped store.
func (s *SealedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

// Close closes the wrapped store.
func (s *SealedStore) Close() error {
	return s.inner.Close()
}

var _ CredentialStore = (*SealedStore)(nil)
