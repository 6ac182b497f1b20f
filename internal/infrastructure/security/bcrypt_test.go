package security

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/auth-service/internal/core/domain"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	first, err := h.Hash("p@ss1234")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, _ := h.Hash("p@ss1234")
	if first == second {
		t.Fatalf("expected salted digests to differ")
	}
	if first == "p@ss1234" {
		t.Fatalf("digest must not equal plaintext")
	}
	if !h.Verify("p@ss1234", first) || !h.Verify("p@ss1234", second) {
		t.Fatalf("expected both digests to verify")
	}
	if h.Verify("wrongpw", first) {
		t.Fatalf("wrong password must not verify")
	}
	if h.Verify("p@ss1234", "not-a-bcrypt-hash") {
		t.Fatalf("garbage digest must not verify")
	}
}

func TestBcryptHasher_EmptyPassword(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	if _, err := h.Hash(""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNewBcryptHasher_ClampsCost(t *testing.T) {
	if NewBcryptHasher(0).cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost")
	}
	if NewBcryptHasher(1).cost != bcrypt.MinCost {
		t.Fatalf("expected min cost")
	}
	if NewBcryptHasher(99).cost != bcrypt.MaxCost {
		t.Fatalf("expected max cost")
	}
}
