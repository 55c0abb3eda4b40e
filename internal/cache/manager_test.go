package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Manager) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	logger := zap.NewNop()
	config := Config{
		Addr:       mr.Addr(),
		Password:   "",
		DB:         0,
		DefaultTTL: 1 * time.Minute,
	}

	manager, err := NewManager(config, logger)
	require.NoError(t, err)

	return mr, manager
}

func TestNewManager(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	assert.NotNil(t, manager)
	assert.NotNil(t, manager.redis)
	assert.NotNil(t, manager.logger)
}

func TestManager_SetAndGet(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()

	err := manager.Set(ctx, "test-key", "test-value", 1*time.Minute)
	require.NoError(t, err)

	value, err := manager.Get(ctx, "test-key")
	require.NoError(t, err)
	assert.Equal(t, "test-value", value)
}

func TestManager_GetMiss(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()

	value, err := manager.Get(ctx, "non-existent")
	assert.True(t, IsCacheMiss(err))
	assert.Equal(t, "", value)
}

func TestManager_JSON(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()

	type record struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	err := manager.SetJSON(ctx, "json-key", record{Name: "review", Count: 3}, time.Minute)
	require.NoError(t, err)

	var got record
	err = manager.GetJSON(ctx, "json-key", &got)
	require.NoError(t, err)
	assert.Equal(t, "review", got.Name)
	assert.Equal(t, 3, got.Count)
}

func TestManager_Delete(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "doomed", "v", time.Minute))
	require.NoError(t, manager.Delete(ctx, "doomed"))

	_, err := manager.Get(ctx, "doomed")
	assert.True(t, IsCacheMiss(err))
}

func TestManager_ExistsAndExpire(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "k1", "v", time.Minute))

	count, err := manager.Exists(ctx, "k1", "k2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, manager.Expire(ctx, "k1", time.Second))
	mr.FastForward(2 * time.Second)

	_, err = manager.Get(ctx, "k1")
	assert.True(t, IsCacheMiss(err))
}

func TestManager_Scan(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "error:a", "1", time.Minute))
	require.NoError(t, manager.Set(ctx, "error:b", "2", time.Minute))
	require.NoError(t, manager.Set(ctx, "metrics:c", "3", time.Minute))

	keys, err := manager.Scan(ctx, "error:*")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestManager_Incr(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()
	defer manager.Close()

	ctx := context.Background()

	v, err := manager.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = manager.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestManager_Closed(t *testing.T) {
	mr, manager := setupTestRedis(t)
	defer mr.Close()

	require.NoError(t, manager.Close())

	ctx := context.Background()
	_, err := manager.Get(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, manager.Set(ctx, "k", "v", time.Minute))

	// Close is idempotent.
	assert.NoError(t, manager.Close())
}
