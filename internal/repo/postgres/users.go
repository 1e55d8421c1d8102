package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

// NewUsersRepo wraps pool; prom may be nil.
func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := r.prom.ObserveDB(ctx, "users.create", func(ctx context.Context) error {
		return r.pool.QueryRow(
			ctx,
			`INSERT INTO users (name, email, password_hash, role)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, created_at, updated_at`,
			u.Name,
			u.Email,
			u.PasswordHash,
			string(u.Role),
		).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	})

	if err != nil {
		return user.User{}, mapWriteErr(err)
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB(ctx, "users.get_by_id", func(ctx context.Context) error {
		return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id), &u)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB(ctx, "users.get_by_email", func(ctx context.Context) error {
		return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email), &u)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

// List returns one page in id order plus the count of all users.
func (r *UsersRepo) List(ctx context.Context, filter user.ListFilter) ([]user.User, int, error) {
	output := make([]user.User, 0, filter.Limit)
	total := 0

	err := r.prom.ObserveDB(ctx, "users.list", func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+userColumns+` FROM users ORDER BY id ASC LIMIT $1 OFFSET $2`,
			filter.Limit, filter.Offset,
		)
		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var u user.User
			if err := scanUser(rows, &u); err != nil {
				return err
			}
			output = append(output, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	err = r.prom.ObserveDB(ctx, "users.count", func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total)
	})

	if err != nil {
		return nil, 0, err
	}

	return output, total, nil
}

// Update overwrites only the non-nil fields of in.
func (r *UsersRepo) Update(ctx context.Context, id int64, in user.UpdateInput) error {
	var tag pgconn.CommandTag

	err := r.prom.ObserveDB(ctx, "users.update", func(ctx context.Context) error {
		var err error
		tag, err = r.pool.Exec(ctx,
			`UPDATE users
				SET name = COALESCE($2, name),
					email = COALESCE($3, email),
					updated_at = NOW()
			 WHERE id = $1`,
			id, in.Name, in.Email,
		)
		return err
	})

	if err != nil {
		return mapWriteErr(err)
	}

	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}

	return nil
}

func (r *UsersRepo) Delete(ctx context.Context, id int64) error {
	var tag pgconn.CommandTag

	err := r.prom.ObserveDB(ctx, "users.delete", func(ctx context.Context) error {
		var err error
		tag, err = r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return err
	})

	if err != nil {
		return err
	}

	// if no rows were deleted as a result return a not found error
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}

	return nil
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanUser(row pgx.Row, u *user.User) error {
	var role string

	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return err
	}

	u.Role = user.Role(role)
	return nil
}

// mapWriteErr turns row level rejections into domain errors; anything else
// (connection loss, timeouts) is returned as is.
func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	if pgErr.Code == "23505" {
		return user.ErrEmailTaken
	}

	// class 22 data exception, class 23 integrity constraint violation
	if len(pgErr.Code) == 5 && (pgErr.Code[:2] == "22" || pgErr.Code[:2] == "23") {
		return fmt.Errorf("%w: %s", user.ErrConstraint, pgErr.Message)
	}

	return err
}
