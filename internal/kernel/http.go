package kernel

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/naturelovers/storefront/pkg/metrics"
	"github.com/naturelovers/storefront/pkg/middleware"
	"github.com/naturelovers/storefront/pkg/reqid"
	"github.com/naturelovers/storefront/pkg/response"
	"github.com/naturelovers/storefront/pkg/router"
	"github.com/naturelovers/storefront/pkg/telemetry"
)

// buildRouter installs the global middleware, outermost first:
//
//  1. metrics       total latency including panics
//  2. Recovery
//  3. request id    before anything logs
//  4. Logger
//  5. tracing
//  6. CORS
//  7. rate limiter
//  8. StripSlashes  "/api/cart/" routes as "/api/cart"
func buildRouter(d Deps, register func(*router.Router)) *router.Router {
	limit := d.RateLimit
	if limit <= 0 {
		limit = 120
	}

	r := router.New()
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(telemetry.Middleware("storefront"))
	r.Use(middleware.CORS(middleware.DefaultCORSOptions(d.Origins)))
	r.Use(middleware.RateLimit(limit, time.Minute))
	r.Use(chimw.StripSlashes)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		response.NotFound(w, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	register(r)
	return r
}
