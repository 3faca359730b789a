// Package secret stores the override TOTP secret as a single owner-only
// file. There is no fallback secret, no backup copy on rotation, and a
// permission-lax or unreadable file is treated as corrupt, never as valid.
package secret

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound means no secret has been provisioned yet.
	ErrNotFound = errors.New("secret: not provisioned")
	// ErrCorrupt means the secret file exists but cannot be trusted:
	// permissions open to group/other, empty, or not valid base32.
	ErrCorrupt = errors.New("secret: store corrupt")
	// ErrExists guards Init against clobbering a live secret.
	ErrExists = errors.New("secret: already provisioned")
)

// secretBytes is the raw entropy per secret (160 bits, RFC 4226 minimum).
const secretBytes = 20

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Store is a file-backed secret store.
type Store struct {
	path string
}

// NewStore returns a store rooted at path. The file need not exist yet.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the secret file location.
func (s *Store) Path() string {
	return s.path
}

// Init generates and persists a fresh secret. Fails if one already exists.
func (s *Store) Init() (string, error) {
	if _, err := os.Stat(s.path); err == nil {
		return "", ErrExists
	}
	return s.write()
}

// Rotate replaces the secret atomically. The old secret is gone the moment
// the rename lands; no backup copy is ever written.
func (s *Store) Rotate() (string, error) {
	if _, err := os.Stat(s.path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("secret: stat: %w", err)
	}
	return s.write()
}

// Read loads the secret for an override attempt. Every failure is terminal
// for the caller: a missing or corrupt secret must deny the override, never
// fall back to some other validation path.
func (s *Store) Read() (string, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("secret: stat: %w", err)
	}
	if info.Mode().Perm()&0o077 != 0 {
		return "", fmt.Errorf("%w: %s is readable by group/other (mode %04o), refusing to use it",
			ErrCorrupt, s.path, info.Mode().Perm())
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("%w: empty secret file", ErrCorrupt)
	}
	if _, err := b32.DecodeString(strings.ToUpper(value)); err != nil {
		return "", fmt.Errorf("%w: not base32", ErrCorrupt)
	}
	return value, nil
}

// write generates a new secret and lands it atomically with owner-only
// permissions set before any content is written.
func (s *Store) write() (string, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("secret: generate: %w", err)
	}
	value := b32.EncodeToString(raw)

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("secret: create directory: %w", err)
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("secret: create temp file: %w", err)
	}
	if _, err := f.WriteString(value + "\n"); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("secret: write: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("secret: close: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("secret: replace: %w", err)
	}
	return value, nil
}
