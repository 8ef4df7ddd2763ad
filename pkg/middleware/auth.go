// Package middleware holds the storefront's HTTP middleware.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/naturelovers/storefront/app/repositories"
	"github.com/naturelovers/storefront/pkg/auth"
	"github.com/naturelovers/storefront/pkg/logger"
	"github.com/naturelovers/storefront/pkg/response"
)

// AccessCookie is the cookie browsers send the access token in.
const AccessCookie = "accessToken"

// Token returns the access token from the accessToken cookie or the
// Authorization: Bearer header, in that order.
func Token(r *http.Request) string {
	if c, err := r.Cookie(AccessCookie); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Authenticate verifies the access token, loads the account and attaches an
// auth.Identity to the request context.
func Authenticate(users repositories.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := Token(r)
			if token == "" {
				response.Unauthorized(w, "Unauthorised: No token provided")
				return
			}

			claims, err := auth.ValidateAccessToken(token)
			if err != nil {
				if auth.IsExpired(err) {
					response.Unauthorized(w, "Token expired")
					return
				}
				response.Unauthorized(w, "Unauthorised: Invalid token")
				return
			}

			u, err := users.FindByID(r.Context(), claims.UserID)
			if errors.Is(err, repositories.ErrNotFound) {
				response.Unauthorized(w, "Unauthorised: User not found")
				return
			}
			if err != nil {
				logger.WithCtx(r.Context()).Error("auth: load user", "user", claims.UserID, "error", err)
				response.Error(w, http.StatusInternalServerError, "Internal Server Error")
				return
			}

			ctx := auth.WithIdentity(r.Context(), auth.Identity{
				UserID: u.ID,
				Role:   u.Role,
				Name:   u.Name,
				Email:  u.Email,
				Phone:  u.Phone,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
