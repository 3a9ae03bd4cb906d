package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"campus/cmd/identity"
	"campus/cmd/internal/auth/session"
)

func TestAuthenticatorRequire(t *testing.T) {
	ctx := context.Background()

	users := identity.NewMemoryStore()
	u, err := users.CreateUser(ctx, identity.CreateUserInput{
		Name:     "Ada",
		Email:    "ada@example.edu",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	tokens := newTestManager(t)
	sessions := session.NewMemoryStore()
	if err := sessions.Set(ctx, "sess-1", "ada@example.edu"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := sessions.Set(ctx, "sess-ghost", "ghost@example.edu"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	authn := NewAuthenticator(
		NewVerifier(tokens, sessions, func() time.Time { return base }),
		NewResolver(users),
	)

	tok, _, err := tokens.Issue("ada@example.edu", base)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var seen Actor
	h := authn.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, ok := ActorFromContext(r.Context())
		if !ok {
			t.Fatal("no actor on context")
		}
		seen = a
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name       string
		cookie     string
		wantStatus int
		wantBody   string
	}{
		{"no credentials", "", http.StatusUnauthorized, "authentication required"},
		{"valid token", "token=" + tok, http.StatusNoContent, ""},
		{"valid session", "sessionId=sess-1", http.StatusNoContent, ""},
		{"conflicting identities", "token=" + tok + "; sessionId=sess-ghost", http.StatusUnauthorized, "Token and session do not match"},
		{"credential outlives account", "sessionId=sess-ghost", http.StatusUnauthorized, "user no longer exists"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.cookie != "" {
				req.Header.Set(CredentialHeader, tc.cookie)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.wantStatus, rec.Body.String())
			}
			if tc.wantBody != "" && !strings.Contains(rec.Body.String(), tc.wantBody) {
				t.Fatalf("body = %s, want substring %q", rec.Body.String(), tc.wantBody)
			}
			if tc.wantStatus == http.StatusNoContent {
				if seen.ID != u.ID || seen.Role != identity.RoleStudent {
					t.Fatalf("actor = %+v", seen)
				}
			}
		})
	}
}
