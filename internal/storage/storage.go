// Package storage provides the session storage capability: a small
// key-value contract with TTL semantics, implemented by an in-process
// map and by a Redis client wrapper.
//
// Missing, expired, and corrupted records are ordinary outcomes, reported
// through the found flag of Get, never as errors. Errors are reserved for
// connectivity faults against a remote medium and always wrap
// ErrBackendUnavailable.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrBackendUnavailable indicates the storage medium could not be reached.
// It is never returned for absent or expired keys.
var ErrBackendUnavailable = errors.New("storage backend unavailable")

// Backend is the capability implemented by the in-memory and Redis variants.
// Exactly one backend is active per session store; selection happens once
// at composition time (see Select).
type Backend interface {
	// Set stores value under key, replacing any existing record.
	// The record expires ttl from now.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Get decodes the record under key into out (a pointer).
	// It reports found=false for missing, expired, or corrupted records.
	Get(ctx context.Context, key string, out any) (found bool, err error)

	// Delete removes the record under key. Deleting an absent key is not
	// an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key holds a live, unexpired record.
	Exists(ctx context.Context, key string) (bool, error)

	// ListKeys returns the live keys matching a shell-style glob pattern.
	ListKeys(ctx context.Context, pattern string) ([]string, error)

	// CleanupExpired sweeps expired records and returns how many were
	// removed. Backends whose medium expires records natively return 0.
	CleanupExpired(ctx context.Context) (int, error)

	// Available reports the outcome of the most recent operation against
	// this backend. It is a cached flag, not a live probe.
	Available() bool
}
