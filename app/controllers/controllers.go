// Package controllers adapts HTTP requests to app/services and renders the
// JSON envelope.
package controllers

import (
	"net/http"
	"time"

	"github.com/naturelovers/storefront/app/repositories"
	"github.com/naturelovers/storefront/app/services"
	"github.com/naturelovers/storefront/pkg/auth"
	"github.com/naturelovers/storefront/pkg/ctx"
	"github.com/naturelovers/storefront/pkg/logger"
)

const (
	refreshCookie    = "refreshToken"
	refreshCookieTTL = 30 * 24 * time.Hour
)

// fail renders err. Service errors carry their own status and message;
// anything unexpected is logged and hidden behind a 500.
func fail(c *ctx.Context, err error) {
	if se, ok := services.AsError(err); ok {
		if se.Status >= http.StatusInternalServerError {
			logger.WithCtx(c.Context()).Error(se.Message, "error", se.Err)
		}
		c.Error(se.Status, se.Message)
		return
	}
	if field, ok := repositories.IsDuplicate(err); ok {
		c.Error(http.StatusBadRequest, field+" already exists")
		return
	}
	if auth.IsTokenError(err) {
		if auth.IsExpired(err) {
			c.Error(http.StatusUnauthorized, "Token expired")
			return
		}
		c.Error(http.StatusUnauthorized, "Invalid token")
		return
	}
	logger.WithCtx(c.Context()).Error("request failed",
		"method", c.Method(), "path", c.Path(), "error", err)
	c.Error(http.StatusInternalServerError, "Internal Server Error")
}

// decode reads an optional JSON body, answering 400 on malformed input.
// Inputs completed from the path or query are validated by the service.
func decode(c *ctx.Context, dest any) bool {
	if err := c.DecodeJSON(dest); err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func setRefreshCookie(c *ctx.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(refreshCookieTTL / time.Second),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func hasNext(page, totalPages int) bool { return page < totalPages }
