package security_test

import (
	"testing"

	"github.com/kaokai/furniture-backend/pkg/security"
)

func TestNewResetToken(t *testing.T) {
	raw, hash, err := security.NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken returned error: %v", err)
	}
	if len(raw) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(raw))
	}
	if hash == raw {
		t.Fatal("hash must differ from the raw token")
	}
	if security.HashResetToken(raw) != hash {
		t.Fatal("hash is not reproducible from the raw token")
	}

	other, _, err := security.NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken returned error: %v", err)
	}
	if other == raw {
		t.Fatal("tokens must be random")
	}
}
