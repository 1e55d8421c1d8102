package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "userhub:user:"
	tombstone = "-"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Redis stores users as JSON under userhub:user:<id> with a TTL.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

func (c *Redis) Get(ctx context.Context, id int64) (user.User, bool, error) {
	raw, err := c.rdb.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return user.User{}, false, nil
	}
	if err != nil {
		return user.User{}, false, err
	}

	if string(raw) == tombstone {
		return user.User{}, false, nil
	}

	var u user.User
	if err := json.Unmarshal(raw, &u); err != nil {
		// unreadable entry, treat as a miss and drop it
		_ = c.rdb.Del(ctx, key(id)).Err()
		return user.User{}, false, nil
	}

	return u, true, nil
}

// Add is SET NX, so it never overwrites a live entry or a tombstone.
func (c *Redis) Add(ctx context.Context, u user.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return c.rdb.SetNX(ctx, key(u.ID), raw, c.ttl).Err()
}

// Delete replaces the entry with a tombstone that every replica sees.
func (c *Redis) Delete(ctx context.Context, id int64) error {
	return c.rdb.Set(ctx, key(id), tombstone, EvictionHold).Err()
}

func (c *Redis) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func key(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}
