// Package rbac gates routes on the caller's role.
package rbac

import (
	"net/http"

	"github.com/naturelovers/storefront/pkg/auth"
	"github.com/naturelovers/storefront/pkg/response"
)

const msgAdminOnly = "Access denied. Admin privileges required."

// HasRole admits callers holding one of roles. It must run after
// middleware.Authenticate.
func HasRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.FromCtx(r.Context())
			if !ok {
				response.Unauthorized(w, "Unauthorised: No token provided")
				return
			}
			if !allowed[id.Role] {
				response.Forbidden(w, msgAdminOnly)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Admin is HasRole("admin").
func Admin(next http.Handler) http.Handler {
	return HasRole("admin")(next)
}
