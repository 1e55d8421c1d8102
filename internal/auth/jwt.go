package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is fixed; there is no refresh or revocation.
const TokenTTL = time.Hour

var (
	ErrMissingSecret = errors.New("jwt secret is not configured")
	ErrInvalidToken  = errors.New("invalid or expired token")
)

// Identity is what a verified token proves about its bearer.
type Identity struct {
	UserID int64
	Role   user.Role
}

type Claims struct {
	UserID int64  `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Manager)

// WithClock replaces time.Now for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(secret string, opts ...Option) *Manager {
	m := &Manager{
		secret: []byte(secret),
		ttl:    TokenTTL,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Manager) Issue(userID int64, role user.Role) (string, error) {
	if len(m.secret) == 0 {
		return "", ErrMissingSecret
	}

	now := m.now().UTC()

	claims := Claims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify fails with ErrInvalidToken on a bad signature, malformed token,
// unexpected algorithm, unknown role, or once now reaches the expiry.
func (m *Manager) Verify(tokenStr string) (Identity, error) {
	if len(m.secret) == 0 {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, ErrMissingSecret)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	role, err := user.ParseRole(claims.Role)
	if err != nil || claims.UserID <= 0 {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserID: claims.UserID, Role: role}, nil
}
