package auth

// Reconcile merges the emails surfaced by the credential sources of a single
// request into one identity. Either input may be empty, meaning that source
// produced nothing (absent or failed verification).
//
// Both non-empty and differing is always ErrIdentityConflict, exactly one
// non-empty wins, both empty is ErrUnauthenticated.
func Reconcile(tokenEmail, sessionEmail string) (string, error) {
	switch {
	case tokenEmail != "" && sessionEmail != "":
		if tokenEmail != sessionEmail {
			return "", ErrIdentityConflict
		}
		return tokenEmail, nil
	case tokenEmail != "":
		return tokenEmail, nil
	case sessionEmail != "":
		return sessionEmail, nil
	default:
		return "", ErrUnauthenticated
	}
}
