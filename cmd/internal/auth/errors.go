package auth

import "errors"

var (
	// ErrUnauthenticated means no credential source produced an identity:
	// both absent, or every presented credential failed verification.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrIdentityConflict means a token and a session were both presented
	// and named different identities. Always a hard rejection; it guards
	// against credential mixing and session fixation.
	ErrIdentityConflict = errors.New("identity_conflict")

	// ErrIdentityNotFound means the credential verified but the account it
	// names no longer exists (a credential outliving its account).
	ErrIdentityNotFound = errors.New("identity_not_found")

	// ErrForbidden means the actor is authenticated but the rule table
	// denies the operation.
	ErrForbidden = errors.New("forbidden")
)
