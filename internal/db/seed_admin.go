package db

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/domain/user"
)

type adminSeedStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

type passwordHasher interface {
	Hash(plain string) (string, error)
}

// EnsureAdminUser creates the configured admin on first boot. It is a no-op
// when no admin credentials are configured or the email already exists; an
// existing account without the admin role is left alone and reported.
func EnsureAdminUser(ctx context.Context, store adminSeedStore, hasher passwordHasher, cfg config.Config, log *slog.Logger) (bool, error) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	existing, err := store.GetByEmail(ctx, strings.TrimSpace(cfg.AdminEmail))

	if err == nil {
		if existing.Role != user.RoleAdmin {
			log.WarnContext(ctx, "admin_seed_skipped",
				"reason", "email belongs to a non-admin account",
				"user_id", existing.ID, "role", string(existing.Role))
		}
		return false, nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return false, err
	}

	in := user.CreateInput{
		Name:     cfg.AdminName,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Role:     user.RoleAdmin,
	}.Normalize()

	if err := in.Validate(); err != nil {
		return false, err
	}

	hash, err := hasher.Hash(in.Password)

	if err != nil {
		return false, err
	}

	_, err = store.Create(ctx, user.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         user.RoleAdmin,
	})

	if errors.Is(err, user.ErrEmailTaken) {
		// another instance seeded it first
		return false, nil
	}

	return err == nil, err
}
