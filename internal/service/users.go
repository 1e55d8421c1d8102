package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/geocoder89/userhub/internal/cache"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/geocoder89/userhub/internal/validation"
)

// ErrInvalidCredentials covers both an unknown email and a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	List(ctx context.Context, filter user.ListFilter) ([]user.User, int, error)
	Update(ctx context.Context, id int64, in user.UpdateInput) error
	Delete(ctx context.Context, id int64) error
}

type PasswordCodec interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

type TokenIssuer interface {
	Issue(userID int64, role user.Role) (string, error)
}

type Registered struct {
	User  user.User
	Token string
}

type Users struct {
	store  UserStore
	codec  PasswordCodec
	tokens TokenIssuer
	cache  cache.Users
	prom   *observability.Prom
	log    *slog.Logger
}

func NewUsers(store UserStore, codec PasswordCodec, tokens TokenIssuer, log *slog.Logger) *Users {
	if log == nil {
		log = slog.Default()
	}
	return &Users{store: store, codec: codec, tokens: tokens, log: log}
}

// WithCache puts a read-through cache in front of Get. Cache failures are
// logged and otherwise ignored.
func (s *Users) WithCache(c cache.Users, prom *observability.Prom) *Users {
	s.cache = c
	s.prom = prom
	return s
}

// Register validates and stores a new user, then issues a token for it.
func (s *Users) Register(ctx context.Context, in user.CreateInput) (Registered, error) {
	in = in.Normalize()

	if err := in.Validate(); err != nil {
		return Registered{}, err
	}

	hash, err := s.codec.Hash(in.Password)
	if err != nil {
		return Registered{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.store.Create(ctx, user.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
	})
	if err != nil {
		return Registered{}, err
	}

	token, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return Registered{}, fmt.Errorf("issue token: %w", err)
	}

	s.log.InfoContext(ctx, "user_registered", "user_id", u.ID, "role", string(u.Role))

	return Registered{User: u, Token: token}, nil
}

// Login matches the email the way Register stored it: trimmed, any case.
func (s *Users) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.store.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.log.InfoContext(ctx, "login_failed", "reason", "unknown_email")
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	if !s.codec.Verify(password, u.PasswordHash) {
		s.log.InfoContext(ctx, "login_failed", "reason", "bad_password", "user_id", u.ID)
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	s.log.InfoContext(ctx, "login_succeeded", "user_id", u.ID)
	return token, nil
}

// List returns page `page` (1-based) of size `limit` in insertion order.
func (s *Users) List(ctx context.Context, page, limit int) (user.Page, error) {
	verr := &validation.Error{}
	if page < 1 {
		verr.Add("page", "min", "must be at least 1")
	}
	if limit < 1 {
		verr.Add("limit", "min", "must be at least 1")
	}
	if err := verr.OrNil(); err != nil {
		return user.Page{}, err
	}

	users, total, err := s.store.List(ctx, user.ListFilter{Limit: limit, Offset: (page - 1) * limit})
	if err != nil {
		return user.Page{}, fmt.Errorf("list users: %w", err)
	}

	return user.Page{Total: total, Page: page, Limit: limit, Users: users}, nil
}

func (s *Users) Get(ctx context.Context, id int64) (user.User, error) {
	if u, ok := s.cacheGet(ctx, id); ok {
		return u, nil
	}

	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return user.User{}, err
	}

	u.PasswordHash = ""
	// Add never overwrites the tombstone of a delete that raced this read
	s.cacheFill(ctx, u)

	return u, nil
}

// Update overwrites name and/or email. Role and password cannot change here.
func (s *Users) Update(ctx context.Context, id int64, in user.UpdateInput) error {
	in = in.Normalize()

	if err := in.Validate(); err != nil {
		return err
	}

	if err := s.store.Update(ctx, id, in); err != nil {
		return err
	}

	s.cacheEvict(ctx, id)

	s.log.InfoContext(ctx, "user_updated", "user_id", id)
	return nil
}

func (s *Users) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.cacheEvict(ctx, id)

	s.log.InfoContext(ctx, "user_deleted", "user_id", id)
	return nil
}

func (s *Users) cacheGet(ctx context.Context, id int64) (user.User, bool) {
	if s.cache == nil {
		return user.User{}, false
	}

	u, ok, err := s.cache.Get(ctx, id)
	switch {
	case err != nil:
		s.prom.ObserveCache("error")
		s.log.WarnContext(ctx, "cache_get_failed", "user_id", id, "err", err)
		return user.User{}, false
	case ok:
		s.prom.ObserveCache("hit")
	default:
		s.prom.ObserveCache("miss")
	}

	return u, ok
}

func (s *Users) cacheFill(ctx context.Context, u user.User) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Add(ctx, u); err != nil {
		s.log.WarnContext(ctx, "cache_set_failed", "user_id", u.ID, "err", err)
	}
}

func (s *Users) cacheEvict(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, id); err != nil {
		s.log.WarnContext(ctx, "cache_evict_failed", "user_id", id, "err", err)
	}
}
