package storage

import (
	"context"
	"os"
	"slices"
	"testing"
	"time"

	"PPRelay/service/chat"
	redisx "PPRelay/service/storage/redis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceKey(t *testing.T) {
	assert.Equal(t, "im:presence:42", presenceKey("42"))
}

// 需要本地 redis：TEST_REDIS_ADDR=127.0.0.1:6379
func TestRedisPresence(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := redisx.New(ctx, redisx.Config{Addr: addr})
	require.NoError(t, err)
	defer rdb.Close()

	p := NewRedisPresence(rdb, 7, time.Minute)
	user := "relay-test-" + time.Now().Format("150405.000")
	defer rdb.Del(ctx, presenceKey(user))

	require.NoError(t, p.Apply(ctx, chat.PresenceEvent{UserID: user, Status: chat.StatusOnline}))
	node, online, err := p.Lookup(ctx, user)
	require.NoError(t, err)
	assert.True(t, online)
	assert.Equal(t, "7", node)

	require.NoError(t, rdb.Expire(ctx, presenceKey(user), 5*time.Second).Err())
	n, err := p.Touch(ctx, slices.Values([]string{user}))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	ttl, err := rdb.TTL(ctx, presenceKey(user)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 30*time.Second)

	require.NoError(t, p.Apply(ctx, chat.PresenceEvent{UserID: user, Status: chat.StatusOffline}))
	_, online, err = p.Lookup(ctx, user)
	require.NoError(t, err)
	assert.False(t, online)
}
