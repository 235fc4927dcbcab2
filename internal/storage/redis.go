package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// scanBatch is the COUNT hint for incremental SCAN iterations.
const scanBatch = 100

// RedisBackend implements Backend over a shared Redis client. Expiry is
// delegated to Redis TTLs; CleanupExpired is therefore a documented no-op.
// Transport failures flip the availability flag and wrap
// ErrBackendUnavailable; a later successful call flips it back.
type RedisBackend struct {
	client    backend.UniversalClient
	available atomic.Bool
}

// NewRedisBackend wraps an existing client. The client's own connection
// pool governs concurrency; the wrapper adds no locking.
func NewRedisBackend(client backend.UniversalClient) *RedisBackend {
	r := &RedisBackend{client: client}
	r.available.Store(true)
	return r
}

func (r *RedisBackend) fail(op string, err error) error {
	r.available.Store(false)
	return fmt.Errorf("%w: redis %s: %v", ErrBackendUnavailable, op, err)
}

// Set stores the JSON encoding of value with a native Redis TTL.
func (r *RedisBackend) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return r.fail("set", err)
	}
	r.available.Store(true)
	return nil
}

// Get decodes the record under key into out. A missing key or a payload
// that does not decode into the requested shape reports found=false;
// decode failure signals data incompatibility, not a connectivity fault.
func (r *RedisBackend) Get(ctx context.Context, key string, out any) (bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			r.available.Store(true)
			return false, nil
		}
		return false, r.fail("get", err)
	}
	r.available.Store(true)

	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false, nil
	}
	return true, nil
}

// Delete removes the record under key. Idempotent.
func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return r.fail("del", err)
	}
	r.available.Store(true)
	return nil
}

// Exists reports whether key is present; Redis drops expired keys itself.
func (r *RedisBackend) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, r.fail("exists", err)
	}
	r.available.Store(true)
	return n > 0, nil
}

// ListKeys collects keys matching pattern using cursor-based SCAN, so the
// server is never blocked by a full-keyspace KEYS call.
func (r *RedisBackend) ListKeys(ctx context.Context, pattern string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := r.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return nil, r.fail("scan", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	r.available.Store(true)
	return keys, nil
}

// CleanupExpired is a no-op: Redis expires keys natively.
func (r *RedisBackend) CleanupExpired(ctx context.Context) (int, error) {
	return 0, nil
}

// Available reports the outcome of the most recent operation.
func (r *RedisBackend) Available() bool {
	return r.available.Load()
}

// Ping probes the connection. It is used by the backend selector and by
// liveness diagnostics, independent of the sticky availability flag.
func (r *RedisBackend) Ping(ctx context.Context) bool {
	if err := r.client.Ping(ctx).Err(); err != nil {
		r.available.Store(false)
		return false
	}
	r.available.Store(true)
	return true
}

// Info returns a subset of the server section of INFO, keyed by field name.
// Used by the detailed cache health endpoint.
func (r *RedisBackend) Info(ctx context.Context) (map[string]string, error) {
	raw, err := r.client.Info(ctx, "server").Result()
	if err != nil {
		return nil, r.fail("info", err)
	}
	r.available.Store(true)
	return parseServerInfo(raw), nil
}

// parseServerInfo extracts the diagnostic fields from an INFO server section.
func parseServerInfo(raw string) map[string]string {
	info := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		field, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch field {
		case "redis_version", "redis_mode", "os", "uptime_in_seconds":
			info[field] = value
		}
	}
	return info
}
