package storage

import (
	"context"
	"encoding/json"
	"path"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryBackend implements Backend with an exclusively-owned in-process map.
// Expiry is lazy: every read path compares against the stored deadline and
// deletes on the spot. It is safe for concurrent use.
type MemoryBackend struct {
	mu   sync.Mutex
	data map[string]memoryEntry

	now func() time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data: make(map[string]memoryEntry),
		now:  time.Now,
	}
}

// Set stores the JSON encoding of value with an absolute expiry.
func (m *MemoryBackend) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = memoryEntry{
		data:      data,
		expiresAt: m.now().Add(ttl),
	}
	return nil
}

// Get returns the record under key if it is still live. Expired entries are
// deleted and reported as absent; payloads that no longer decode into the
// requested shape are purged the same way.
func (m *MemoryBackend) Get(ctx context.Context, key string, out any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.data[key]
	if !ok {
		return false, nil
	}
	if m.now().After(entry.expiresAt) {
		delete(m.data, key)
		return false, nil
	}

	if err := json.Unmarshal(entry.data, out); err != nil {
		// Corrupted payload: clean up and treat as absent.
		delete(m.data, key)
		return false, nil
	}
	return true, nil
}

// Delete removes the record under key. Idempotent.
func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Exists reports whether key holds an unexpired record.
func (m *MemoryBackend) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.data[key]
	if !ok {
		return false, nil
	}
	if m.now().After(entry.expiresAt) {
		delete(m.data, key)
		return false, nil
	}
	return true, nil
}

// ListKeys returns live keys matching a shell-style glob pattern
// (path.Match semantics: *, ?, character classes). Expired keys discovered
// during the scan are purged as a side effect.
func (m *MemoryBackend) ListKeys(ctx context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var keys []string
	for key, entry := range m.data {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}
		if now.After(entry.expiresAt) {
			delete(m.data, key)
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// CleanupExpired removes every expired record and returns the count.
func (m *MemoryBackend) CleanupExpired(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, entry := range m.data {
		if now.After(entry.expiresAt) {
			delete(m.data, key)
			removed++
		}
	}
	return removed, nil
}

// Available always reports true: the process-local map cannot be unreachable.
func (m *MemoryBackend) Available() bool {
	return true
}
