package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
)

// UsersRepo keeps users in insertion order. Used by tests and local runs
// without Postgres.
type UsersRepo struct {
	mu     sync.RWMutex
	nextID int64
	order  []int64
	items  map[int64]user.User
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[int64]user.User),
	}
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTakenLocked(u.Email, 0) {
		return user.User{}, user.ErrEmailTaken
	}

	now := time.Now().UTC()

	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = now
	u.UpdatedAt = now

	r.items[u.ID] = u
	r.order = append(r.order, u.ID)

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if u := r.items[id]; strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) List(ctx context.Context, filter user.ListFilter) ([]user.User, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := len(r.order)
	out := make([]user.User, 0, filter.Limit)

	for i := filter.Offset; i < total && len(out) < filter.Limit; i++ {
		if i < 0 {
			continue
		}
		out = append(out, r.items[r.order[i]])
	}

	return out, total, nil
}

func (r *UsersRepo) Update(ctx context.Context, id int64, in user.UpdateInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.ErrNotFound
	}

	if in.Email != nil && r.emailTakenLocked(*in.Email, id) {
		return user.ErrEmailTaken
	}

	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	u.UpdatedAt = time.Now().UTC()

	r.items[id] = u
	return nil
}

func (r *UsersRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return user.ErrNotFound
	}

	delete(r.items, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *UsersRepo) Ping(ctx context.Context) error { return nil }

func (r *UsersRepo) emailTakenLocked(email string, except int64) bool {
	for id, u := range r.items {
		if id != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}
