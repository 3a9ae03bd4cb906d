package api

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"campus/cmd/identity"
	"campus/cmd/internal/auth/session"
)

func TestRegister(t *testing.T) {
	f := newFixture(t, 100)

	rec := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "Ada",
		"email":    "ada@example.com",
		"password": "password-123",
	})
	wantStatus(t, rec, http.StatusCreated)

	body := decodeBody(t, rec)
	if body["message"] != "User created successfully" {
		t.Fatalf("message = %v", body["message"])
	}
	user := body["user"].(map[string]any)
	if user["role"] != "student" {
		t.Fatalf("default role = %v, want student", user["role"])
	}

	// Registering the same email again conflicts.
	rec = f.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "Imposter",
		"email":    "ADA@example.com",
		"password": "password-456",
	})
	wantStatus(t, rec, http.StatusConflict)
	if !strings.Contains(rec.Body.String(), "User already exists with this email") {
		t.Fatalf("conflict body = %s", rec.Body.String())
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t, 100)

	cases := []struct {
		name string
		body map[string]string
	}{
		{"missing fields", map[string]string{"email": "x@example.com"}},
		{"admin role", map[string]string{
			"name": "Eve", "email": "eve@example.com", "password": "password-123", "role": "admin",
		}},
		{"unknown role", map[string]string{
			"name": "Eve", "email": "eve@example.com", "password": "password-123", "role": "wizard",
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/auth/register", "", tc.body)
			wantStatus(t, rec, http.StatusBadRequest)
		})
	}

	// Teacher self-registration is allowed.
	rec := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Tea", "email": "tea@example.com", "password": "password-123", "role": "teacher",
	})
	wantStatus(t, rec, http.StatusCreated)
}

func TestLoginIssuesUsableToken(t *testing.T) {
	f := newFixture(t, 100)
	f.createUser(t, "Ada", "ada@example.com", "")

	rec := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "ada@example.com",
		"password": "password-123",
	})
	wantStatus(t, rec, http.StatusOK)

	body := decodeBody(t, rec)
	tok, _ := body["token"].(string)
	if tok == "" {
		t.Fatal("no token in login response")
	}
	if cookieValue(t, rec, "token") != tok {
		t.Fatal("token cookie does not match response token")
	}

	rec = f.do(t, http.MethodGet, "/api/users/me", "token="+tok, nil)
	wantStatus(t, rec, http.StatusOK)
	me := decodeBody(t, rec)["user"].(map[string]any)
	if me["email"] != "ada@example.com" {
		t.Fatalf("me email = %v", me["email"])
	}
}

func TestLoginFailureIsUniform(t *testing.T) {
	f := newFixture(t, 100)
	f.createUser(t, "Ada", "ada@example.com", "")

	wrongPW := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "wrong-password",
	})
	wantStatus(t, wrongPW, http.StatusUnauthorized)

	noUser := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ghost@example.com", "password": "password-123",
	})
	wantStatus(t, noUser, http.StatusUnauthorized)

	// The body must not reveal whether the email exists.
	if wrongPW.Body.String() != noUser.Body.String() {
		t.Fatalf("bodies differ:\n%s\n%s", wrongPW.Body.String(), noUser.Body.String())
	}
}

func TestLoginRateLimited(t *testing.T) {
	f := newFixture(t, 2)
	f.createUser(t, "Ada", "ada@example.com", "")

	creds := map[string]string{"email": "ada@example.com", "password": "wrong-password"}
	for i := 0; i < 2; i++ {
		rec := f.do(t, http.MethodPost, "/api/auth/login", "", creds)
		wantStatus(t, rec, http.StatusUnauthorized)
	}

	rec := f.do(t, http.MethodPost, "/api/auth/login", "", creds)
	wantStatus(t, rec, http.StatusTooManyRequests)
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("no Retry-After header")
	}
}

func TestSessionLoginAndLogout(t *testing.T) {
	f := newFixture(t, 100)
	f.createUser(t, "Ada", "ada@example.com", "")

	rec := f.do(t, http.MethodPost, "/api/auth/login-session", "", map[string]string{
		"email":    "ada@example.com",
		"password": "password-123",
	})
	wantStatus(t, rec, http.StatusOK)
	handle := cookieValue(t, rec, "sessionId")
	if handle == "" {
		t.Fatal("empty session handle")
	}

	cookie := "sessionId=" + handle
	rec = f.do(t, http.MethodGet, "/api/users/me", cookie, nil)
	wantStatus(t, rec, http.StatusOK)

	rec = f.do(t, http.MethodPost, "/api/auth/logout", cookie, nil)
	wantStatus(t, rec, http.StatusOK)

	// The handle is dead after logout.
	rec = f.do(t, http.MethodGet, "/api/users/me", cookie, nil)
	wantStatus(t, rec, http.StatusUnauthorized)
}

func TestMismatchedCredentialsRejected(t *testing.T) {
	f := newFixture(t, 100)
	a := f.createUser(t, "Ada", "ada@example.com", "")
	f.createUser(t, "Bob", "bob@example.com", "")

	handle, err := session.NewHandle()
	if err != nil {
		t.Fatalf("NewHandle: %v", err)
	}
	if err := f.sessions.Set(context.Background(), handle, "bob@example.com"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	cookie := f.tokenCookie(t, a.Email) + "; sessionId=" + handle
	rec := f.do(t, http.MethodGet, "/api/users/me", cookie, nil)
	wantStatus(t, rec, http.StatusUnauthorized)
	if !strings.Contains(rec.Body.String(), "Token and session do not match") {
		t.Fatalf("conflict body = %s", rec.Body.String())
	}
}

func TestGetUserAuthorization(t *testing.T) {
	f := newFixture(t, 100)
	a := f.createUser(t, "Ada", "ada@example.com", "")
	b := f.createUser(t, "Bob", "bob@example.com", "")
	admin := f.createUser(t, "Root", "root@example.com", identity.RoleAdmin)

	// Self read is allowed.
	rec := f.do(t, http.MethodGet, "/api/users/"+a.ID, f.tokenCookie(t, a.Email), nil)
	wantStatus(t, rec, http.StatusOK)

	// Reading someone else is not.
	rec = f.do(t, http.MethodGet, "/api/users/"+b.ID, f.tokenCookie(t, a.Email), nil)
	wantStatus(t, rec, http.StatusForbidden)

	// Admin reads anyone.
	rec = f.do(t, http.MethodGet, "/api/users/"+b.ID, f.tokenCookie(t, admin.Email), nil)
	wantStatus(t, rec, http.StatusOK)

	// No credentials at all.
	rec = f.do(t, http.MethodGet, "/api/users/"+a.ID, "", nil)
	wantStatus(t, rec, http.StatusUnauthorized)
}

func TestListUsersAdminOnly(t *testing.T) {
	f := newFixture(t, 100)
	a := f.createUser(t, "Ada", "ada@example.com", "")
	admin := f.createUser(t, "Root", "root@example.com", identity.RoleAdmin)

	rec := f.do(t, http.MethodGet, "/api/users", f.tokenCookie(t, a.Email), nil)
	wantStatus(t, rec, http.StatusForbidden)

	rec = f.do(t, http.MethodGet, "/api/users", f.tokenCookie(t, admin.Email), nil)
	wantStatus(t, rec, http.StatusOK)
	if got := decodeBody(t, rec)["count"].(float64); got != 2 {
		t.Fatalf("count = %v, want 2", got)
	}
}

func TestUpdateUserRoleIsAdminPower(t *testing.T) {
	f := newFixture(t, 100)
	a := f.createUser(t, "Ada", "ada@example.com", "")
	admin := f.createUser(t, "Root", "root@example.com", identity.RoleAdmin)

	// Renaming yourself is fine.
	rec := f.do(t, http.MethodPut, "/api/users/"+a.ID, f.tokenCookie(t, a.Email),
		map[string]string{"name": "Ada Lovelace"})
	wantStatus(t, rec, http.StatusOK)

	// Changing your own role is not.
	rec = f.do(t, http.MethodPut, "/api/users/"+a.ID, f.tokenCookie(t, a.Email),
		map[string]string{"role": "teacher"})
	wantStatus(t, rec, http.StatusForbidden)

	// An admin can promote.
	rec = f.do(t, http.MethodPut, "/api/users/"+a.ID, f.tokenCookie(t, admin.Email),
		map[string]string{"role": "teacher"})
	wantStatus(t, rec, http.StatusOK)
	user := decodeBody(t, rec)["user"].(map[string]any)
	if user["role"] != "teacher" {
		t.Fatalf("role after promote = %v", user["role"])
	}
}

func TestDeleteUserAdminOnly(t *testing.T) {
	f := newFixture(t, 100)
	a := f.createUser(t, "Ada", "ada@example.com", "")
	b := f.createUser(t, "Bob", "bob@example.com", "")
	admin := f.createUser(t, "Root", "root@example.com", identity.RoleAdmin)

	rec := f.do(t, http.MethodDelete, "/api/users/"+b.ID, f.tokenCookie(t, a.Email), nil)
	wantStatus(t, rec, http.StatusForbidden)

	rec = f.do(t, http.MethodDelete, "/api/users/"+b.ID, f.tokenCookie(t, admin.Email), nil)
	wantStatus(t, rec, http.StatusOK)
	deleted := decodeBody(t, rec)["deletedUser"].(map[string]any)
	if deleted["id"] != b.ID {
		t.Fatalf("deletedUser.id = %v, want %s", deleted["id"], b.ID)
	}

	rec = f.do(t, http.MethodDelete, "/api/users/"+b.ID, f.tokenCookie(t, admin.Email), nil)
	wantStatus(t, rec, http.StatusNotFound)
}

func TestBulkDeleteSkipsAdminsAndUnknowns(t *testing.T) {
	f := newFixture(t, 100)
	a := f.createUser(t, "Ada", "ada@example.com", "")
	b := f.createUser(t, "Bob", "bob@example.com", "")
	other := f.createUser(t, "Root2", "root2@example.com", identity.RoleAdmin)
	admin := f.createUser(t, "Root", "root@example.com", identity.RoleAdmin)

	rec := f.do(t, http.MethodPost, "/api/users/bulk-delete", f.tokenCookie(t, a.Email),
		map[string]any{"userIds": []string{b.ID}})
	wantStatus(t, rec, http.StatusForbidden)

	rec = f.do(t, http.MethodPost, "/api/users/bulk-delete", f.tokenCookie(t, admin.Email),
		map[string]any{"userIds": []string{a.ID, b.ID, other.ID, "missing-id", "  "}})
	wantStatus(t, rec, http.StatusOK)
	if got := decodeBody(t, rec)["deletedCount"].(float64); got != 2 {
		t.Fatalf("deletedCount = %v, want 2", got)
	}

	// The other admin survived.
	rec = f.do(t, http.MethodGet, "/api/users/"+other.ID, f.tokenCookie(t, admin.Email), nil)
	wantStatus(t, rec, http.StatusOK)

	rec = f.do(t, http.MethodPost, "/api/users/bulk-delete", f.tokenCookie(t, admin.Email),
		map[string]any{"userIds": []string{}})
	wantStatus(t, rec, http.StatusBadRequest)
}
