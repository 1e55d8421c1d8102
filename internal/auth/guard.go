package auth

import (
	"errors"
	"strings"

	"github.com/geocoder89/userhub/internal/domain/user"
)

var (
	ErrMissingCredentials = errors.New("missing bearer token")
	ErrForbidden          = errors.New("role not allowed")
)

// Verifier is the slice of Manager the guard needs; tests fake it.
type Verifier interface {
	Verify(token string) (Identity, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, error) {
	scheme, raw, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingCredentials
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrMissingCredentials
	}

	return raw, nil
}

func Authenticate(v Verifier, header string) (Identity, error) {
	raw, err := BearerToken(header)
	if err != nil {
		return Identity{}, err
	}

	return v.Verify(raw)
}

// Authorize must run after Authenticate.
func Authorize(id Identity, allowed user.RoleSet) error {
	if !allowed.Contains(id.Role) {
		return ErrForbidden
	}
	return nil
}
