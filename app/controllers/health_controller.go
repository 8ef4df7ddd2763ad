package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/naturelovers/storefront/app/repositories"
	"github.com/naturelovers/storefront/pkg/cache"
	"github.com/naturelovers/storefront/pkg/ctx"
)

// HealthController answers liveness and readiness probes.
type HealthController struct {
	store repositories.Store
	cache cache.Cache
}

func NewHealthController(store repositories.Store, c cache.Cache) *HealthController {
	return &HealthController{store: store, cache: c}
}

// Ping is the keep-alive target of the self ping job.
func (h *HealthController) Ping(c *ctx.Context) {
	c.Success("pong", map[string]string{"time": time.Now().UTC().Format(time.RFC3339)})
}

// Healthz reports the store and cache connectivity; 503 when either is down.
func (h *HealthController) Healthz(c *ctx.Context) {
	probe, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"store": "up", "cache": "up"}
	healthy := true
	if err := h.store.Ping(probe); err != nil {
		checks["store"] = err.Error()
		healthy = false
	}
	if h.cache != nil {
		if err := h.cache.Ping(probe); err != nil {
			checks["cache"] = err.Error()
			healthy = false
		}
	}
	if !healthy {
		c.Respond(http.StatusServiceUnavailable, "unhealthy", checks)
		return
	}
	c.Success("ok", checks)
}
