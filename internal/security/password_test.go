package security

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_RoundTrip(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	passwords := []string{"password123", "secret", "pässwörd-ünïcode", strings.Repeat("a", 72)}

	for _, p := range passwords {
		digest, err := h.Hash(p)
		if err != nil {
			t.Fatalf("hash %q: %v", p, err)
		}

		if digest == p {
			t.Fatalf("digest must not equal the plaintext")
		}

		if !h.Verify(p, digest) {
			t.Fatalf("verify(%q, hash(%q)) = false, want true", p, p)
		}

		if h.Verify("x"+p, digest) {
			t.Fatalf("verify accepted a different password for %q", p)
		}
	}
}

func TestPasswordHasher_Salted(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	a, _ := h.Hash("password123")
	b, _ := h.Hash("password123")

	if a == b {
		t.Fatal("two hashes of the same password should differ")
	}
}

func TestPasswordHasher_MalformedDigest(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	for _, digest := range []string{"", "not-a-hash", "$2a$04$short"} {
		if h.Verify("password123", digest) {
			t.Fatalf("verify accepted malformed digest %q", digest)
		}
	}
}

func TestPasswordHasher_Empty(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	if _, err := h.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestNewPasswordHasher_ClampsCost(t *testing.T) {
	if got := NewPasswordHasher(99).cost; got != bcrypt.DefaultCost {
		t.Fatalf("got cost %d, want %d", got, bcrypt.DefaultCost)
	}
}
