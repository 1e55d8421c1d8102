package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleUser() user.User {
	return user.User{ID: 5, Name: "John", Email: "john@x.com", PasswordHash: "secret-hash", Role: user.RoleUser}
}

func TestMemory_GetSetExpire(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, ok, _ := c.Get(ctx, 5)
	assert.False(t, ok, "empty cache should miss")

	require.NoError(t, c.Add(ctx, sampleUser()))

	got, ok, err := c.Get(ctx, 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "John", got.Name)
	assert.Empty(t, got.PasswordHash, "password hash must not be cached")

	now = now.Add(2 * time.Minute)
	_, ok, _ = c.Get(ctx, 5)
	assert.False(t, ok, "entry should have expired")

	require.NoError(t, c.Add(ctx, sampleUser()))
	require.NoError(t, c.Delete(ctx, 5))
	_, ok, _ = c.Get(ctx, 5)
	assert.False(t, ok, "deleted entry should miss")

	require.NoError(t, c.Add(ctx, sampleUser()))
	_, ok, _ = c.Get(ctx, 5)
	assert.False(t, ok, "add must not overwrite a fresh tombstone")

	now = now.Add(EvictionHold + time.Second)
	require.NoError(t, c.Add(ctx, sampleUser()))
	_, ok, _ = c.Get(ctx, 5)
	assert.True(t, ok, "add works again once the hold has passed")
}

func TestMemory_AddKeepsLiveEntry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	require.NoError(t, c.Add(ctx, sampleUser()))

	renamed := sampleUser()
	renamed.Name = "Jake"
	require.NoError(t, c.Add(ctx, renamed))

	got, ok, err := c.Get(ctx, 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "John", got.Name)
}

func setupRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err, "failed to create miniredis")
	t.Cleanup(mr.Close)

	rdb := NewRedisClient(RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRedis(rdb, time.Minute), mr
}

func TestRedis_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedis(t)

	_, ok, err := c.Get(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Add(ctx, sampleUser()))

	raw, err := mr.Get("userhub:user:5")
	require.NoError(t, err, "key not written")
	assert.NotContains(t, raw, "secret-hash")

	got, ok, err := c.Get(ctx, 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "john@x.com", got.Email)
	assert.Equal(t, user.RoleUser, got.Role)

	mr.FastForward(2 * time.Minute)
	_, ok, _ = c.Get(ctx, 5)
	assert.False(t, ok, "entry should have expired")

	require.NoError(t, c.Add(ctx, sampleUser()))
	require.NoError(t, c.Delete(ctx, 5))
	_, ok, err = c.Get(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok, "deleted entry should miss")

	require.NoError(t, c.Add(ctx, sampleUser()))
	_, ok, _ = c.Get(ctx, 5)
	assert.False(t, ok, "add must not overwrite a fresh tombstone")
	assert.True(t, mr.Exists("userhub:user:5"), "tombstone stays until the hold expires")

	mr.FastForward(EvictionHold + time.Second)
	require.NoError(t, c.Add(ctx, sampleUser()))
	_, ok, _ = c.Get(ctx, 5)
	assert.True(t, ok, "add works again once the hold has passed")
}

func TestRedis_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedis(t)

	require.NoError(t, mr.Set("userhub:user:5", "{not json"))

	_, ok, err := c.Get(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("userhub:user:5"), "corrupt entry should be dropped")
}

func TestRedis_Unavailable(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedis(t)
	mr.Close()

	_, _, err := c.Get(ctx, 5)
	assert.Error(t, err, "expected error with redis down")
	assert.Error(t, c.Ping(ctx))
}
