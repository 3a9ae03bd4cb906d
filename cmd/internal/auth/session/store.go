package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
)

// CookieTTL is the lifetime of the cookie carrying a session handle.
const CookieTTL = 24 * 60 * 60 // seconds

// handleBytes is the entropy of a session handle before encoding.
const handleBytes = 32

// Store maps opaque session handles to account emails.
type Store interface {
	// Set binds handle to email, overwriting any previous binding.
	Set(ctx context.Context, handle, email string) error

	// Get returns the email bound to handle, or ErrNotFound.
	Get(ctx context.Context, handle string) (string, error)

	// Delete revokes handle. Deleting an unknown handle is a no-op.
	Delete(ctx context.Context, handle string) error
}

// NewHandle mints a fresh session handle from crypto/rand.
func NewHandle() (string, error) {
	buf := make([]byte, handleBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
