// Package auth issues and verifies JWTs, hashes passwords and carries the
// authenticated caller through a request context.
package auth

import "context"

// Identity is the authenticated caller attached by the auth middleware.
type Identity struct {
	UserID string
	Role   string
	Name   string
	Email  string
	Phone  string
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool { return i.Role == "admin" }

type identityKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromCtx returns the caller stored by WithIdentity.
func FromCtx(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != ""
}
