package auth

import (
	"context"
	"errors"
	"time"

	"campus/cmd/internal/auth/session"
	"campus/cmd/internal/auth/token"
)

// Verifier resolves the credential material of one request to an email.
//
// Each source degrades to "no identity" on failure rather than aborting: a
// tampered token or an unknown session handle yields nothing from that
// source, and Reconcile decides the outcome across sources.
type Verifier struct {
	tokens   token.Manager
	sessions session.Store
	now      func() time.Time
}

// NewVerifier constructs a Verifier. The clock override is for tests; pass
// nil for time.Now.
func NewVerifier(tokens token.Manager, sessions session.Store, now func() time.Time) *Verifier {
	if now == nil {
		now = time.Now
	}
	return &Verifier{tokens: tokens, sessions: sessions, now: now}
}

// Identify parses the credential header, verifies each presented source and
// reconciles the results. Returns ErrUnauthenticated or ErrIdentityConflict
// on rejection; any other error is an infrastructure fault from the session
// store.
func (v *Verifier) Identify(ctx context.Context, header string) (string, error) {
	creds := ParseCredentialHeader(header)
	if creds.Empty() {
		return "", ErrUnauthenticated
	}

	var tokenEmail string
	if creds.Token != "" {
		claims, err := v.tokens.Verify(creds.Token, v.now().UTC())
		if err == nil {
			tokenEmail = claims.Email
		}
	}

	var sessionEmail string
	if creds.SessionHandle != "" {
		email, err := v.sessions.Get(ctx, creds.SessionHandle)
		switch {
		case err == nil:
			sessionEmail = email
		case errors.Is(err, session.ErrNotFound):
			// Unknown handle is silence from this source, not a fault.
		default:
			return "", err
		}
	}

	return Reconcile(tokenEmail, sessionEmail)
}
