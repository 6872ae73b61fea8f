package utils

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("ohrid-lake")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=2$") {
		t.Fatalf("unexpected hash format %q", hash)
	}

	ok, err := VerifyPassword("ohrid-lake", hash)
	if err != nil || !ok {
		t.Fatalf("VerifyPassword(correct) = %v, %v", ok, err)
	}
	ok, err = VerifyPassword("wrong", hash)
	if err != nil || ok {
		t.Fatalf("VerifyPassword(wrong) = %v, %v", ok, err)
	}
}

func TestHashPasswordSalted(t *testing.T) {
	a, _ := HashPassword("same")
	b, _ := HashPassword("same")
	if a == b {
		t.Fatal("two hashes of the same password are identical")
	}
}

func TestVerifyLegacyBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if !IsBcryptHash(string(legacy)) {
		t.Fatalf("IsBcryptHash(%q) = false", legacy)
	}

	ok, err := VerifyPassword("secret1", string(legacy))
	if err != nil || !ok {
		t.Fatalf("VerifyPassword(bcrypt correct) = %v, %v", ok, err)
	}
	ok, err = VerifyPassword("secret2", string(legacy))
	if err != nil || ok {
		t.Fatalf("VerifyPassword(bcrypt wrong) = %v, %v", ok, err)
	}
}

func TestVerifyPasswordInvalidHash(t *testing.T) {
	for _, h := range []string{"", "plain", "$argon2id$v=19$bad$salt$hash", "$argon2i$v=19$m=1,t=1,p=1$a$b"} {
		if _, err := VerifyPassword("x", h); err == nil {
			t.Errorf("VerifyPassword(%q) error = nil, want error", h)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"ohrid.jpg":             "ohrid.jpg",
		"Охрид 2024.png":        "______2024.png",
		"../etc/passwd":         ".._etc_passwd",
		"lake view (1).JPEG":    "lake_view__1_.JPEG",
		"already-safe-name.gif": "already-safe-name.gif",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
