package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contractRecord struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// RunBackendContract runs a suite of tests to verify that a Backend
// implementation adheres to the capability contract. Expiry behavior is
// time-dependent and is covered in the per-variant tests instead.
func RunBackendContract(t *testing.T, b Backend) {
	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		record := contractRecord{UserID: "u-1", Email: "one@example.com"}
		require.NoError(t, b.Set(ctx, "contract:roundtrip", record, time.Minute))

		var got contractRecord
		found, err := b.Get(ctx, "contract:roundtrip", &got)
		require.NoError(t, err)
		require.True(t, found, "record should be retrievable immediately after Set")
		assert.Equal(t, record, got)
	})

	t.Run("Set Overwrites", func(t *testing.T) {
		require.NoError(t, b.Set(ctx, "contract:overwrite", contractRecord{UserID: "old"}, time.Minute))
		require.NoError(t, b.Set(ctx, "contract:overwrite", contractRecord{UserID: "new"}, time.Minute))

		var got contractRecord
		found, err := b.Get(ctx, "contract:overwrite", &got)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "new", got.UserID)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		var got contractRecord
		found, err := b.Get(ctx, "contract:missing", &got)
		require.NoError(t, err, "absent keys are not errors")
		assert.False(t, found)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, b.Set(ctx, "contract:delete", contractRecord{UserID: "u-2"}, time.Minute))
		require.NoError(t, b.Delete(ctx, "contract:delete"))

		exists, err := b.Exists(ctx, "contract:delete")
		require.NoError(t, err)
		assert.False(t, exists)

		// Idempotent on absent keys.
		require.NoError(t, b.Delete(ctx, "contract:delete"))
	})

	t.Run("Exists", func(t *testing.T) {
		exists, err := b.Exists(ctx, "contract:exists")
		require.NoError(t, err)
		assert.False(t, exists)

		require.NoError(t, b.Set(ctx, "contract:exists", contractRecord{UserID: "u-3"}, time.Minute))
		exists, err = b.Exists(ctx, "contract:exists")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("ListKeys Pattern", func(t *testing.T) {
		require.NoError(t, b.Set(ctx, "auth:list-1", contractRecord{UserID: "a"}, time.Minute))
		require.NoError(t, b.Set(ctx, "auth:list-2", contractRecord{UserID: "b"}, time.Minute))
		require.NoError(t, b.Set(ctx, "user:list-1", contractRecord{UserID: "c"}, time.Minute))

		keys, err := b.ListKeys(ctx, "auth:*")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"auth:list-1", "auth:list-2"}, keys)
	})

	t.Run("Concurrent Sets", func(t *testing.T) {
		const n = 32
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				key := fmt.Sprintf("contract:concurrent-%d", i)
				_ = b.Set(ctx, key, contractRecord{UserID: fmt.Sprintf("u-%d", i)}, time.Minute)
			}(i)
		}
		wg.Wait()

		for i := 0; i < n; i++ {
			var got contractRecord
			found, err := b.Get(ctx, fmt.Sprintf("contract:concurrent-%d", i), &got)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, fmt.Sprintf("u-%d", i), got.UserID)
		}
	})
}
