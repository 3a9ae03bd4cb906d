package identity

import (
	"strings"
	"testing"
)

func testParams() Argon2idParams {
	// Small parameters keep the test fast; production strength is covered by
	// DefaultArgon2idParams.
	p := DefaultArgon2idParams()
	p.MemoryKiB = 8 * 1024
	p.Iterations = 1
	return p
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery", testParams())
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$") {
		t.Fatalf("unexpected PHC prefix: %q", hash)
	}

	ok, err := VerifyPassword("correct horse battery", hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Fatal("correct password rejected")
	}

	ok, err = VerifyPassword("wrong password!", hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if ok {
		t.Fatal("wrong password accepted")
	}
}

func TestHashPasswordLengthBounds(t *testing.T) {
	if _, err := HashPassword("short", testParams()); err == nil {
		t.Fatal("short password accepted")
	}
	if _, err := HashPassword(strings.Repeat("x", 300), testParams()); err == nil {
		t.Fatal("oversized password accepted")
	}
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	for _, h := range []string{
		"",
		"not-a-hash",
		"$argon2i$v=19$m=8192,t=1,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=2$c2FsdA$aGFzaA",
	} {
		if _, err := VerifyPassword("whatever-password", h); err == nil {
			t.Fatalf("malformed hash accepted: %q", h)
		}
	}
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	h1, err := HashPassword("correct horse battery", testParams())
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := HashPassword("correct horse battery", testParams())
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h1 == h2 {
		t.Fatal("two hashes of the same password are identical")
	}
}
