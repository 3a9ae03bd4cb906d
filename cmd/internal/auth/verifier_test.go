package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"campus/cmd/internal/auth/session"
	"campus/cmd/internal/auth/token"
)

func newTestManager(t *testing.T) token.Manager {
	t.Helper()
	cfg := token.DefaultConfig()
	cfg.SecretKeyHex = strings.Repeat("2a", 32)
	m, err := token.NewPasetoV4LocalManager(cfg)
	if err != nil {
		t.Fatalf("NewPasetoV4LocalManager: %v", err)
	}
	return m
}

func TestVerifierIdentify(t *testing.T) {
	ctx := context.Background()
	tokens := newTestManager(t)
	sessions := session.NewMemoryStore()

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	v := NewVerifier(tokens, sessions, func() time.Time { return base })

	adaTok, _, err := tokens.Issue("ada@example.edu", base)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	grayTok, _, err := tokens.Issue("gray@example.edu", base)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	staleTok, _, err := tokens.Issue("ada@example.edu", base.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := sessions.Set(ctx, "sess-ada", "ada@example.edu"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	cases := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{"no credentials", "", "", ErrUnauthenticated},
		{"valid token", "token=" + adaTok, "ada@example.edu", nil},
		{"expired token", "token=" + staleTok, "", ErrUnauthenticated},
		{"tampered token", "token=" + adaTok[:len(adaTok)-4] + "AAAA", "", ErrUnauthenticated},
		{"valid session", "sessionId=sess-ada", "ada@example.edu", nil},
		{"unknown session", "sessionId=never-issued", "", ErrUnauthenticated},
		{"token and matching session", "token=" + adaTok + "; sessionId=sess-ada", "ada@example.edu", nil},
		{"token and mismatched session", "token=" + grayTok + "; sessionId=sess-ada", "", ErrIdentityConflict},
		{"mismatch regardless of order", "sessionId=sess-ada; token=" + grayTok, "", ErrIdentityConflict},
		{"bad token with valid session", "token=garbage; sessionId=sess-ada", "ada@example.edu", nil},
		{"valid token with stale session", "token=" + adaTok + "; sessionId=gone", "ada@example.edu", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := v.Identify(ctx, tc.header)
			if err != tc.wantErr {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Fatalf("email = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestVerifierRestartInvalidatesSessionsNotTokens(t *testing.T) {
	ctx := context.Background()
	tokens := newTestManager(t)

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	before := session.NewMemoryStore()
	if err := before.Set(ctx, "sess-1", "ada@example.edu"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	tok, _, err := tokens.Issue("ada@example.edu", base)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// A fresh store stands in for a restarted process.
	after := session.NewMemoryStore()
	v := NewVerifier(tokens, after, func() time.Time { return base.Add(time.Minute) })

	if _, err := v.Identify(ctx, "sessionId=sess-1"); err != ErrUnauthenticated {
		t.Fatalf("session after restart: err = %v, want ErrUnauthenticated", err)
	}
	email, err := v.Identify(ctx, "token="+tok)
	if err != nil {
		t.Fatalf("token after restart: %v", err)
	}
	if email != "ada@example.edu" {
		t.Fatalf("email = %q", email)
	}
}
