package auth

import (
	"context"

	"campus/cmd/identity"
)

// Actor is the authenticated principal attached to a request.
type Actor struct {
	ID    string
	Email string
	Role  identity.Role
}

// Resolver loads the acting user's role and internal id from the user
// aggregate. Authorization always uses the stored role, never anything a
// credential claims.
type Resolver struct {
	users identity.Store
}

// NewResolver constructs a Resolver over the user store.
func NewResolver(users identity.Store) *Resolver {
	return &Resolver{users: users}
}

// Resolve maps a reconciled email to an Actor. A verified credential whose
// account has since been deleted yields ErrIdentityNotFound.
func (r *Resolver) Resolve(ctx context.Context, email string) (Actor, error) {
	u, err := r.users.GetUserByEmail(ctx, email)
	if err != nil {
		if identity.IsNotFound(err) {
			return Actor{}, ErrIdentityNotFound
		}
		return Actor{}, err
	}
	return Actor{ID: u.ID, Email: u.Email, Role: u.Role}, nil
}
