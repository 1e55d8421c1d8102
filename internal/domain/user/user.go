package user

import (
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/geocoder89/userhub/internal/validation"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
	// ErrConstraint marks a row the store refused on its own rules (length, check, not null).
	ErrConstraint = errors.New("user violates a store constraint")
)

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Version changes on every write. Microseconds match what Postgres keeps for updated_at.
func (u User) Version() string {
	return strconv.FormatInt(u.ID, 10) + "." + strconv.FormatInt(u.UpdatedAt.UnixMicro(), 36)
}

// CreateInput is shared by self registration and bulk import rows.
type CreateInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     Role   `json:"role" validate:"omitempty,oneof=admin user"`
}

func (in CreateInput) Normalize() CreateInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Role = Role(strings.ToLower(strings.TrimSpace(string(in.Role))))

	if in.Role == "" {
		in.Role = RoleUser
	}

	return in
}

// maxPasswordBytes is bcrypt's input limit; `max` in tags counts runes.
const maxPasswordBytes = 72

// Validate reports every violated rule as a *validation.Error.
func (in CreateInput) Validate() error {
	verr := validation.Struct(in)

	if len(in.Password) > maxPasswordBytes && utf8.RuneCountInString(in.Password) <= maxPasswordBytes {
		verr.Add("password", "max", "must be at most 72 bytes")
	}

	return verr.OrNil()
}

// UpdateInput is a partial update; nil fields are left untouched.
type UpdateInput struct {
	Name  *string `json:"name" validate:"omitnil,min=1,max=255"`
	Email *string `json:"email" validate:"omitnil,email,max=255"`
}

func (in UpdateInput) Normalize() UpdateInput {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		in.Email = &email
	}
	return in
}

func (in UpdateInput) Validate() error {
	verr := validation.Struct(in)

	if in.Name == nil && in.Email == nil {
		verr.Add("", "min", "at least one of name, email is required")
	}

	return verr.OrNil()
}

type ListFilter struct {
	Limit  int
	Offset int
}

type Page struct {
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Users []User `json:"users"`
}
