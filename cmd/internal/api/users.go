package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"campus/cmd/catalog"
	"campus/cmd/identity"
	"campus/cmd/internal/auth"
	"campus/cmd/internal/auth/session"
	"campus/cmd/internal/auth/token"
	"campus/cmd/internal/enrollment"
)

// UserHandler serves the user service: registration, both login flows, and
// user management.
type UserHandler struct {
	users    identity.Store
	tokens   token.Manager
	sessions session.Store
	mgr      *enrollment.Manager
	authn    *auth.Authenticator
	log      *slog.Logger
	limiter  *loginLimiter
	views    viewBuilder
	now      func() time.Time
}

// UserHandlerConfig carries the collaborators of a UserHandler.
type UserHandlerConfig struct {
	Users    identity.Store
	Courses  catalog.Store
	Tokens   token.Manager
	Sessions session.Store
	Manager  *enrollment.Manager
	Authn    *auth.Authenticator
	Log      *slog.Logger

	// LoginAttemptsPerMinute throttles the two login endpoints per client
	// IP. Zero means 10.
	LoginAttemptsPerMinute float64

	// Now overrides the clock. For tests.
	Now func() time.Time
}

// NewUserHandler builds the user-service handler.
func NewUserHandler(cfg UserHandlerConfig) *UserHandler {
	perMinute := cfg.LoginAttemptsPerMinute
	if perMinute <= 0 {
		perMinute = 10
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &UserHandler{
		users:    cfg.Users,
		tokens:   cfg.Tokens,
		sessions: cfg.Sessions,
		mgr:      cfg.Manager,
		authn:    cfg.Authn,
		log:      log,
		limiter:  newLoginLimiter(perMinute, int(perMinute)),
		views:    viewBuilder{users: cfg.Users, courses: cfg.Courses},
		now:      now,
	}
}

// Routes registers the user-service routes on mux.
func (h *UserHandler) Routes(mux *http.ServeMux) {
	authed := func(fn http.HandlerFunc) http.Handler { return h.authn.Require(fn) }

	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/login", h.login)
	mux.HandleFunc("POST /api/auth/login-session", h.loginSession)
	mux.Handle("POST /api/auth/logout", authed(h.logout))
	mux.Handle("GET /api/auth/profile", authed(h.me))

	mux.Handle("GET /api/users/me", authed(h.me))
	mux.Handle("GET /api/users", authed(h.listUsers))
	mux.Handle("GET /api/users/{id}", authed(h.getUser))
	mux.Handle("PUT /api/users/{id}", authed(h.updateUser))
	mux.Handle("DELETE /api/users/{id}", authed(h.deleteUser))
	mux.Handle("POST /api/users/bulk-delete", authed(h.bulkDelete))
	mux.Handle("GET /api/users/analytics/{id}", authed(h.analytics))
}

func (h *UserHandler) register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body")
		return
	}
	if in.Name == "" || in.Email == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "Name, email, and password are required")
		return
	}

	role := identity.RoleStudent
	if in.Role != "" {
		parsed, ok := identity.ParseRole(in.Role)
		if !ok || parsed == identity.RoleAdmin {
			// Admin accounts are only minted by an existing admin.
			writeError(w, http.StatusBadRequest, "invalid_input", "role must be student or teacher")
			return
		}
		role = parsed
	}

	u, err := h.users.CreateUser(r.Context(), identity.CreateUserInput{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Role:     role,
		Now:      h.now().UTC(),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.log.InfoContext(r.Context(), "user registered", "user_id", u.ID, "role", u.Role)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"user":    summarize(u),
	})
}

// checkPassword runs the shared credential check for both login flows.
// Failures are uniform so the response does not reveal whether the email
// exists.
func (h *UserHandler) checkPassword(w http.ResponseWriter, r *http.Request, email, password string) (identity.User, bool) {
	if email == "" || password == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "Both email and password are required")
		return identity.User{}, false
	}
	if !h.limiter.allow(remoteIP(r), h.now()) {
		writeRateLimited(w)
		return identity.User{}, false
	}

	ua, err := h.users.GetUserAuthByEmail(r.Context(), email)
	if err != nil {
		if identity.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
			return identity.User{}, false
		}
		writeDomainError(w, err)
		return identity.User{}, false
	}

	ok, err := identity.VerifyPassword(password, ua.PasswordHash)
	if err != nil || !ok {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		return identity.User{}, false
	}
	return ua.User, true
}

func (h *UserHandler) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body")
		return
	}

	u, ok := h.checkPassword(w, r, in.Email, in.Password)
	if !ok {
		return
	}

	now := h.now().UTC()
	tok, exp, err := h.tokens.Issue(u.Email, now)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    tok,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.log.InfoContext(r.Context(), "token login", "user_id", u.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Login successful",
		"token":     tok,
		"expiresAt": exp,
	})
}

func (h *UserHandler) loginSession(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body")
		return
	}

	u, ok := h.checkPassword(w, r, in.Email, in.Password)
	if !ok {
		return
	}

	handle, err := session.NewHandle()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.sessions.Set(r.Context(), handle, u.Email); err != nil {
		writeDomainError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "sessionId",
		Value:    handle,
		Path:     "/",
		MaxAge:   session.CookieTTL,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.log.InfoContext(r.Context(), "session login", "user_id", u.ID)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Login successful"})
}

func (h *UserHandler) logout(w http.ResponseWriter, r *http.Request) {
	creds := auth.ParseCredentialHeader(r.Header.Get(auth.CredentialHeader))
	if creds.SessionHandle != "" {
		if err := h.sessions.Delete(r.Context(), creds.SessionHandle); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	// Expire both credential cookies; the token itself stays valid until its
	// expiry, which is the documented asymmetry between the two mechanisms.
	for _, name := range []string{"token", "sessionId"} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Logged out"})
}

func (h *UserHandler) me(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	u, err := h.users.GetUserByID(r.Context(), actor.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    h.views.userView(r.Context(), u),
	})
}

func (h *UserHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	if err := auth.Authorize(actor, auth.RuleAdminOnly, ""); err != nil {
		writeDomainError(w, err)
		return
	}

	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, h.views.userView(r.Context(), u))
	}

	h.log.InfoContext(r.Context(), "admin listed users", "admin_id", actor.ID, "count", len(views))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(views),
		"users":   views,
	})
}

func (h *UserHandler) getUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id := r.PathValue("id")

	if err := auth.Authorize(actor, auth.RuleSelfOrAdmin, id); err != nil {
		writeDomainError(w, err)
		return
	}

	u, err := h.users.GetUserByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    h.views.userView(r.Context(), u),
	})
}

func (h *UserHandler) updateUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id := r.PathValue("id")

	if err := auth.Authorize(actor, auth.RuleSelfOrAdmin, id); err != nil {
		writeDomainError(w, err)
		return
	}

	var in struct {
		Name *string `json:"name"`
		Role *string `json:"role"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body")
		return
	}

	upd := identity.UpdateUserInput{Name: in.Name, Now: h.now().UTC()}
	if in.Role != nil {
		// Role changes are an admin power even on your own account.
		if err := auth.Authorize(actor, auth.RuleAdminOnly, ""); err != nil {
			writeDomainError(w, err)
			return
		}
		role, ok := identity.ParseRole(*in.Role)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_input", "unknown role")
			return
		}
		upd.Role = &role
	}

	u, err := h.users.UpdateUser(r.Context(), id, upd)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": summarize(u)})
}

func (h *UserHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	if err := auth.Authorize(actor, auth.RuleAdminOnly, ""); err != nil {
		h.log.WarnContext(r.Context(), "unauthorized delete attempt", "actor_id", actor.ID)
		writeDomainError(w, err)
		return
	}

	u, err := h.mgr.DeleteUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.log.InfoContext(r.Context(), "admin deleted user",
		"admin_id", actor.ID, "user_id", u.ID, "email", u.Email)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "User deleted successfully",
		"deletedUser": summarize(u),
	})
}

func (h *UserHandler) bulkDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	if err := auth.Authorize(actor, auth.RuleAdminOnly, ""); err != nil {
		h.log.WarnContext(r.Context(), "unauthorized bulk delete attempt", "actor_id", actor.ID)
		writeDomainError(w, err)
		return
	}

	var in struct {
		UserIDs []string `json:"userIds"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body")
		return
	}
	if len(in.UserIDs) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_input", "User IDs array is required and must not be empty")
		return
	}

	deleted := 0
	for _, id := range in.UserIDs {
		if strings.TrimSpace(id) == "" {
			continue
		}
		u, err := h.users.GetUserByID(r.Context(), id)
		if err != nil {
			continue
		}
		// Admin accounts are never bulk-deleted.
		if u.Role == identity.RoleAdmin {
			continue
		}
		if _, err := h.mgr.DeleteUser(r.Context(), id); err != nil {
			continue
		}
		deleted++
	}

	h.log.InfoContext(r.Context(), "admin bulk deleted users", "admin_id", actor.ID, "deleted", deleted)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Bulk delete completed",
		"deletedCount": deleted,
	})
}
