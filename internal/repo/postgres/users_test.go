package postgres_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/geocoder89/userhub/internal/db"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/repo/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
)

// These tests need a real Postgres; set TEST_DB_DSN to run them.
func setupRepo(t *testing.T) (*postgres.UsersRepo, *pgxpool.Pool) {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, dsn, 5)
	if err != nil {
		t.Fatalf("failed to create pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if _, err := pool.Exec(ctx, `TRUNCATE users RESTART IDENTITY`); err != nil {
		t.Fatalf("failed to truncate users: %v", err)
	}

	return postgres.NewUsersRepo(pool, nil), pool
}

func TestUsersRepo_CRUD(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, user.User{Name: "John", Email: "john@x.com", PasswordHash: "h", Role: user.RoleUser})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 || created.CreatedAt.IsZero() {
		t.Fatalf("store did not assign id/timestamps: %+v", created)
	}

	if _, err := repo.Create(ctx, user.User{Name: "Dup", Email: "JOHN@x.com", PasswordHash: "h", Role: user.RoleUser}); !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("duplicate email: got %v, want ErrEmailTaken", err)
	}

	long := strings.Repeat("n", 300)
	if _, err := repo.Create(ctx, user.User{Name: long, Email: "long@x.com", PasswordHash: "h", Role: user.RoleUser}); !errors.Is(err, user.ErrConstraint) {
		t.Fatalf("oversized name: got %v, want ErrConstraint", err)
	}

	name := "Jake"
	if err := repo.Update(ctx, created.ID, user.UpdateInput{Name: &name}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil || got.Name != "Jake" || got.Email != "john@x.com" {
		t.Fatalf("after update got %+v, %v", got, err)
	}

	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, created.ID); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("after delete got %v, want ErrNotFound", err)
	}
	if err := repo.Update(ctx, created.ID, user.UpdateInput{Name: &name}); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("update missing: got %v, want ErrNotFound", err)
	}
}

func TestUsersRepo_ListTotalIndependentOfPage(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		if _, err := repo.Create(ctx, user.User{Name: "n", Email: email, PasswordHash: "h", Role: user.RoleUser}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	users, total, err := repo.List(ctx, user.ListFilter{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(users) != 0 {
		t.Fatalf("got total=%d len=%d, want 3 and 0", total, len(users))
	}

	users, _, _ = repo.List(ctx, user.ListFilter{Limit: 2, Offset: 0})
	if len(users) != 2 || users[0].Email != "a@x.com" {
		t.Fatalf("unexpected first page %+v", users)
	}
}
