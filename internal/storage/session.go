package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the typed session façade over one active Backend. It delegates
// the key-value operations verbatim and adds pattern-based bulk listing
// with per-record corruption tolerance.
type Store struct {
	backend Backend
}

// NewStore wraps a backend chosen by Select.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// NewKey mints a fresh session key under the given prefix,
// e.g. NewKey("auth:") -> "auth:7f9c...".
func NewKey(prefix string) string {
	return prefix + uuid.NewString()
}

// Set stores a session record with the given TTL.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return s.backend.Set(ctx, key, value, ttl)
}

// Get retrieves a session record into out.
func (s *Store) Get(ctx context.Context, key string, out any) (bool, error) {
	return s.backend.Get(ctx, key, out)
}

// Delete removes a session record.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// Exists reports whether a live session record is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	return s.backend.Exists(ctx, key)
}

// ListKeys returns the live keys matching a glob pattern.
func (s *Store) ListKeys(ctx context.Context, pattern string) ([]string, error) {
	return s.backend.ListKeys(ctx, pattern)
}

// CleanupExpired sweeps expired records on the active backend.
func (s *Store) CleanupExpired(ctx context.Context) (int, error) {
	return s.backend.CleanupExpired(ctx)
}

// Available reports the active backend's cached availability.
func (s *Store) Available() bool {
	return s.backend.Available()
}

// ListSessions returns every live session matching pattern, decoded as T.
// Records that vanish, expire, or fail to decode between the key scan and
// the individual reads are skipped; the result holds only well-formed,
// still-live records.
func ListSessions[T any](ctx context.Context, s *Store, pattern string) ([]T, error) {
	keys, err := s.backend.ListKeys(ctx, pattern)
	if err != nil {
		return nil, err
	}

	sessions := make([]T, 0, len(keys))
	for _, key := range keys {
		var value T
		found, err := s.backend.Get(ctx, key, &value)
		if err != nil || !found {
			continue
		}
		sessions = append(sessions, value)
	}
	return sessions, nil
}
