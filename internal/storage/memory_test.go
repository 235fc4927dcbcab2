package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSession struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

func TestMemoryBackend_Contract(t *testing.T) {
	RunBackendContract(t, NewMemoryBackend())
}

// advance replaces the backend clock with one offset into the future.
func advance(m *MemoryBackend, d time.Duration) {
	base := time.Now()
	m.now = func() time.Time { return base.Add(d) }
}

func TestMemoryBackend_Expiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend()

	require.NoError(t, m.Set(ctx, "auth:short", testSession{UserID: "u-1"}, time.Second))
	advance(m, 2*time.Second)

	var got testSession
	found, err := m.Get(ctx, "auth:short", &got)
	require.NoError(t, err)
	assert.False(t, found, "expired record must read as absent")

	exists, err := m.Exists(ctx, "auth:short")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryBackend_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend()

	require.NoError(t, m.Set(ctx, "auth:short", testSession{UserID: "u-1"}, time.Second))
	require.NoError(t, m.Set(ctx, "auth:long", testSession{UserID: "u-2"}, time.Minute))
	advance(m, 2*time.Second)

	removed, err := m.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed, "exactly the 1s record should be swept")

	exists, err := m.Exists(ctx, "auth:long")
	require.NoError(t, err)
	assert.True(t, exists, "the 60s record must survive the sweep")
}

func TestMemoryBackend_ListKeysPurgesExpired(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend()

	require.NoError(t, m.Set(ctx, "auth:dead", testSession{UserID: "u-1"}, time.Second))
	require.NoError(t, m.Set(ctx, "auth:live", testSession{UserID: "u-2"}, time.Minute))
	advance(m, 2*time.Second)

	keys, err := m.ListKeys(ctx, "auth:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"auth:live"}, keys)

	// The expired key was removed during the scan, not just filtered out.
	m.mu.Lock()
	_, stillStored := m.data["auth:dead"]
	m.mu.Unlock()
	assert.False(t, stillStored)
}

func TestMemoryBackend_CorruptedRecord(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend()

	m.mu.Lock()
	m.data["auth:bad"] = memoryEntry{
		data:      []byte("{not json"),
		expiresAt: time.Now().Add(time.Minute),
	}
	m.mu.Unlock()

	var got testSession
	found, err := m.Get(ctx, "auth:bad", &got)
	require.NoError(t, err, "corruption is not an error")
	assert.False(t, found)

	m.mu.Lock()
	_, stillStored := m.data["auth:bad"]
	m.mu.Unlock()
	assert.False(t, stillStored, "corrupted record should be purged")
}

func TestMemoryBackend_InvalidPattern(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend()

	require.NoError(t, m.Set(ctx, "auth:x", testSession{UserID: "u"}, time.Minute))
	_, err := m.ListKeys(ctx, "auth:[")
	assert.Error(t, err)
}
