package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-at-least-32-chars-long"

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func newTestManager(t *testing.T) (*Manager, *fakeClock) {
	t.Helper()

	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	return NewManager(testSecret, WithClock(clock.Now)), clock
}

func TestManager_IssueVerify(t *testing.T) {
	m, _ := newTestManager(t)

	for _, role := range []user.Role{user.RoleAdmin, user.RoleUser} {
		token, err := m.Issue(42, role)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}

		if parts := strings.Split(token, "."); len(parts) != 3 {
			t.Fatalf("token should have 3 parts, got %d", len(parts))
		}

		id, err := m.Verify(token)
		if err != nil {
			t.Fatalf("verify: %v", err)
		}

		if id.UserID != 42 || id.Role != role {
			t.Fatalf("got %+v, want {42 %s}", id, role)
		}
	}
}

func TestManager_ExpiryBoundary(t *testing.T) {
	m, clock := newTestManager(t)
	issuedAt := clock.t

	token, err := m.Issue(7, user.RoleUser)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.t = issuedAt.Add(TokenTTL - time.Second)
	if _, err := m.Verify(token); err != nil {
		t.Fatalf("token should be valid one second before expiry: %v", err)
	}

	clock.t = issuedAt.Add(TokenTTL)
	if _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token at expiry: got %v, want ErrInvalidToken", err)
	}

	clock.t = issuedAt.Add(2 * TokenTTL)
	if _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token past expiry: got %v, want ErrInvalidToken", err)
	}
}

func TestManager_RejectsForeignTokens(t *testing.T) {
	m, clock := newTestManager(t)
	other := NewManager("another-secret-key-at-least-32-chars", WithClock(clock.Now))

	foreign, err := other.Issue(1, user.RoleAdmin)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	good, _ := m.Issue(1, user.RoleAdmin)
	tampered := good[:len(good)-2] + "xx"

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1, Role: "admin"})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	badRole, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 1,
		Role:   "root",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 1, Role: "admin"}).
		SignedString([]byte(testSecret))

	tests := map[string]string{
		"other_secret": foreign,
		"tampered":     tampered,
		"alg_none":     unsigned,
		"unknown_role": badRole,
		"no_expiry":    noExpiry,
		"garbage":      "not.a.token",
		"empty":        "",
	}

	for name, token := range tests {
		token := token

		t.Run(name, func(t *testing.T) {
			if _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("got %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestManager_MissingSecret(t *testing.T) {
	m := NewManager("")

	if _, err := m.Issue(1, user.RoleUser); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("issue: got %v, want ErrMissingSecret", err)
	}

	if _, err := m.Verify("a.b.c"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("verify: got %v, want ErrInvalidToken", err)
	}
}
