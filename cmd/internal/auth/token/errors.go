package token

import "errors"

var (
	// ErrConfig indicates missing or invalid token configuration.
	ErrConfig = errors.New("token: invalid configuration")

	// ErrInvalidToken covers every verification failure: bad envelope, wrong
	// key, expired, or missing claims. Callers never learn which.
	ErrInvalidToken = errors.New("token: invalid token")
)
