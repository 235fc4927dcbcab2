package storage

import (
	"context"
	"log/slog"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// selectTimeout bounds the composition-time Redis probe.
const selectTimeout = 3 * time.Second

// Select chooses the storage backend at composition time. A nil client or
// a failed ping selects the in-process map; a live client selects Redis.
// The decision is made once: a Redis server that comes up later is not
// adopted without re-running selection.
func Select(ctx context.Context, client backend.UniversalClient, logger *slog.Logger) Backend {
	if client == nil {
		logger.Info("session storage: redis not configured, using in-memory backend")
		return NewMemoryBackend()
	}

	rb := NewRedisBackend(client)

	ctx, cancel := context.WithTimeout(ctx, selectTimeout)
	defer cancel()

	if !rb.Ping(ctx) {
		logger.Warn("session storage: redis unreachable, falling back to in-memory backend")
		return NewMemoryBackend()
	}

	logger.Info("session storage: using redis backend")
	return rb
}
