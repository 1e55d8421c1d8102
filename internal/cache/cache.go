package cache

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
)

// EvictionHold is how long a Delete keeps a key closed to Add. It must outlast
// the slowest store read, so a read that started before the delete cannot
// put the old row back.
const EvictionHold = 10 * time.Second

// Users caches the public view of users by id. Password hashes are never stored.
//
// Add only fills an empty key; Delete leaves a tombstone for EvictionHold so a
// concurrent read-through cannot resurrect an evicted user.
type Users interface {
	Get(ctx context.Context, id int64) (user.User, bool, error)
	Add(ctx context.Context, u user.User) error
	Delete(ctx context.Context, id int64) error
}

// Memory is an in-process cache. Evictions do not reach other processes, so
// it is only correct for a single instance.
type Memory struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[int64]entry
	now func() time.Time
}

type entry struct {
	val  user.User
	gone bool
	exp  time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Memory{
		ttl: ttl,
		m:   make(map[int64]entry),
		now: time.Now,
	}
}

func (c *Memory) Get(ctx context.Context, id int64) (user.User, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.liveLocked(id)
	if !ok || e.gone {
		return user.User{}, false, nil
	}

	return e.val, true, nil
}

func (c *Memory) Add(ctx context.Context, u user.User) error {
	u.PasswordHash = ""

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.liveLocked(u.ID); ok {
		return nil
	}
	c.m[u.ID] = entry{val: u, exp: c.now().Add(c.ttl)}
	return nil
}

func (c *Memory) Delete(ctx context.Context, id int64) error {
	c.mu.Lock()
	c.m[id] = entry{gone: true, exp: c.now().Add(EvictionHold)}
	c.mu.Unlock()
	return nil
}

// liveLocked drops an expired entry and reports what is left.
func (c *Memory) liveLocked(id int64) (entry, bool) {
	e, ok := c.m[id]
	if !ok {
		return entry{}, false
	}
	if c.now().After(e.exp) {
		delete(c.m, id)
		return entry{}, false
	}
	return e, true
}
