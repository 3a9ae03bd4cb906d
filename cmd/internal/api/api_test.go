package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"campus/cmd/catalog"
	"campus/cmd/identity"
	"campus/cmd/internal/auth"
	"campus/cmd/internal/auth/session"
	"campus/cmd/internal/auth/token"
	"campus/cmd/internal/enrollment"
)

var testKeyHex = strings.Repeat("7a", 32)

// fixture wires both handlers over shared in-memory stores so a test can
// exercise the full request path (credentials, authorization, domain).
type fixture struct {
	users    *identity.MemoryStore
	courses  *catalog.MemoryStore
	sessions *session.MemoryStore
	tokens   token.Manager
	mgr      *enrollment.Manager
	mux      *http.ServeMux
}

func newFixture(t *testing.T, loginPerMinute float64) *fixture {
	t.Helper()

	users := identity.NewMemoryStore()
	courses := catalog.NewMemoryStore()
	sessions := session.NewMemoryStore()

	tokens, err := token.NewPasetoV4LocalManager(token.Config{
		Issuer:       "campus",
		TokenTTL:     30 * time.Minute,
		ClockSkew:    30 * time.Second,
		SecretKeyHex: testKeyHex,
	})
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr := enrollment.NewManager(users, courses, log)
	authn := auth.NewAuthenticator(
		auth.NewVerifier(tokens, sessions, nil),
		auth.NewResolver(users),
	)

	mux := http.NewServeMux()
	NewUserHandler(UserHandlerConfig{
		Users:                  users,
		Courses:                courses,
		Tokens:                 tokens,
		Sessions:               sessions,
		Manager:                mgr,
		Authn:                  authn,
		Log:                    log,
		LoginAttemptsPerMinute: loginPerMinute,
	}).Routes(mux)
	NewCourseHandler(CourseHandlerConfig{
		Users:   users,
		Courses: courses,
		Manager: mgr,
		Authn:   authn,
		Log:     log,
	}).Routes(mux)

	return &fixture{
		users:    users,
		courses:  courses,
		sessions: sessions,
		tokens:   tokens,
		mgr:      mgr,
		mux:      mux,
	}
}

func (f *fixture) createUser(t *testing.T, name, email string, role identity.Role) identity.User {
	t.Helper()
	u, err := f.users.CreateUser(context.Background(), identity.CreateUserInput{
		Name:     name,
		Email:    email,
		Password: "password-123",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", email, err)
	}
	return u
}

// tokenCookie mints a credential header value carrying a fresh token for email.
func (f *fixture) tokenCookie(t *testing.T, email string) string {
	t.Helper()
	tok, _, err := f.tokens.Issue(email, time.Now().UTC())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return "token=" + tok
}

func (f *fixture) do(t *testing.T, method, path, cookie string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rd)
	if cookie != "" {
		req.Header.Set(auth.CredentialHeader, cookie)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

// cookieValue extracts a Set-Cookie value by name from the response.
func cookieValue(t *testing.T, rec *httptest.ResponseRecorder, name string) string {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	t.Fatalf("no %q cookie in response", name)
	return ""
}
