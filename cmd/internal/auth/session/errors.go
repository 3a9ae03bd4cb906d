package session

import "errors"

// ErrNotFound indicates the handle is unknown: never issued, or revoked.
var ErrNotFound = errors.New("session: not found")
