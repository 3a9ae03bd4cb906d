package auth

import (
	"encoding/json"
	"net/http"
)

// Authenticator is the HTTP middleware front of the pipeline: header in,
// actor on the context out.
type Authenticator struct {
	verifier *Verifier
	resolver *Resolver
}

// NewAuthenticator wires a Verifier and Resolver into middleware.
func NewAuthenticator(v *Verifier, r *Resolver) *Authenticator {
	return &Authenticator{verifier: v, resolver: r}
}

// Require rejects the request unless a single trusted identity can be
// established, then attaches the Actor and calls next. Rule-table checks
// beyond authentication stay in the handlers, which know the target of each
// operation.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, err := a.verifier.Identify(r.Context(), r.Header.Get(CredentialHeader))
		if err != nil {
			writeAuthError(w, err)
			return
		}

		actor, err := a.resolver.Resolve(r.Context(), email)
		if err != nil {
			writeAuthError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

func writeAuthError(w http.ResponseWriter, err error) {
	type apiError struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	var body struct {
		Error apiError `json:"error"`
	}

	status := http.StatusUnauthorized
	switch err {
	case ErrUnauthenticated:
		body.Error = apiError{Code: "unauthenticated", Message: "authentication required"}
	case ErrIdentityConflict:
		body.Error = apiError{Code: "identity_conflict", Message: "Token and session do not match"}
	case ErrIdentityNotFound:
		body.Error = apiError{Code: "identity_not_found", Message: "user no longer exists"}
	default:
		status = http.StatusInternalServerError
		body.Error = apiError{Code: "internal", Message: "internal error"}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
