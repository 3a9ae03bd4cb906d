package token

import (
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SecretKeyHex = strings.Repeat("4e", 32)
	return cfg
}

func TestIssueVerifyRoundtrip(t *testing.T) {
	m, err := NewPasetoV4LocalManager(testConfig())
	if err != nil {
		t.Fatalf("NewPasetoV4LocalManager: %v", err)
	}

	now := time.Now().UTC()
	tok, exp, err := m.Issue("ada@example.edu", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !strings.HasPrefix(tok, "v4.local.") {
		t.Fatalf("unexpected token prefix: %q", tok[:12])
	}
	if want := now.Add(30 * time.Minute); !exp.Equal(want) {
		t.Fatalf("exp = %v, want %v", exp, want)
	}

	claims, err := m.Verify(tok, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Email != "ada@example.edu" {
		t.Fatalf("email = %q", claims.Email)
	}
	if claims.Issuer != "campus" {
		t.Fatalf("issuer = %q", claims.Issuer)
	}
}

func TestVerifyExpired(t *testing.T) {
	m, err := NewPasetoV4LocalManager(testConfig())
	if err != nil {
		t.Fatalf("NewPasetoV4LocalManager: %v", err)
	}

	now := time.Now().UTC()
	tok, _, err := m.Issue("ada@example.edu", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := m.Verify(tok, now.Add(31*time.Minute)); err != ErrInvalidToken {
		t.Fatalf("Verify after expiry: err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyWrongKey(t *testing.T) {
	m1, err := NewPasetoV4LocalManager(testConfig())
	if err != nil {
		t.Fatalf("NewPasetoV4LocalManager: %v", err)
	}

	other := testConfig()
	other.SecretKeyHex = strings.Repeat("5f", 32)
	m2, err := NewPasetoV4LocalManager(other)
	if err != nil {
		t.Fatalf("NewPasetoV4LocalManager: %v", err)
	}

	now := time.Now().UTC()
	tok, _, err := m1.Issue("ada@example.edu", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := m2.Verify(tok, now); err != ErrInvalidToken {
		t.Fatalf("Verify with wrong key: err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	m, err := NewPasetoV4LocalManager(testConfig())
	if err != nil {
		t.Fatalf("NewPasetoV4LocalManager: %v", err)
	}

	for _, tok := range []string{"", "v4.local.", "not-a-token", "v4.public.AAAA"} {
		if _, err := m.Verify(tok, time.Now().UTC()); err != ErrInvalidToken {
			t.Fatalf("Verify(%q): err = %v, want ErrInvalidToken", tok, err)
		}
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"empty key", func(c *Config) { c.SecretKeyHex = "" }},
		{"short key", func(c *Config) { c.SecretKeyHex = "abcd" }},
		{"odd hex", func(c *Config) { c.SecretKeyHex = strings.Repeat("z", 64) }},
		{"zero ttl", func(c *Config) { c.TokenTTL = 0 }},
		{"empty issuer", func(c *Config) { c.Issuer = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mut(&cfg)
			if _, err := NewPasetoV4LocalManager(cfg); err != ErrConfig {
				t.Fatalf("err = %v, want ErrConfig", err)
			}
		})
	}
}
