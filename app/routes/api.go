// Package routes maps URLs to controllers.
package routes

import (
	"github.com/naturelovers/storefront/app/controllers"
	"github.com/naturelovers/storefront/app/repositories"
	"github.com/naturelovers/storefront/pkg/ctx"
	"github.com/naturelovers/storefront/pkg/metrics"
	"github.com/naturelovers/storefront/pkg/middleware"
	"github.com/naturelovers/storefront/pkg/rbac"
	"github.com/naturelovers/storefront/pkg/router"
)

// Controllers is everything the route table dispatches to.
type Controllers struct {
	Health  *controllers.HealthController
	User    *controllers.UserController
	Cart    *controllers.CartController
	Order   *controllers.OrderController
	Admin   *controllers.AdminController
	Contact *controllers.ContactController
}

// Register mounts the probes, /metrics and the /api tree. users backs the
// authentication middleware.
func Register(r *router.Router, users repositories.UserRepository, h Controllers) {
	r.Get("/ping", "ping", ctx.Wrap(h.Health.Ping))
	r.Get("/healthz", "healthz", ctx.Wrap(h.Health.Healthz))
	r.Get("/metrics", "metrics", metrics.Handler())

	authed := middleware.Authenticate(users)
	api := r.Group("/api")

	user := api.Group("/user")
	user.Post("/register", "user.register", ctx.Wrap(h.User.Register))
	user.Post("/login", "user.login", ctx.Wrap(h.User.Login))
	user.Post("/refresh-token", "user.refresh", ctx.Wrap(h.User.Refresh))
	user.Post("/logout", "user.logout", ctx.Wrap(h.User.Logout))
	user.Post("/forgot-password", "user.forgot", ctx.Wrap(h.User.ForgotPassword))
	user.Post("/reset-password", "user.reset", ctx.Wrap(h.User.ResetPassword))
	user.Post("/reset-password/{token}", "user.reset.token", ctx.Wrap(h.User.ResetPassword))
	user.Get("/me", "user.me", ctx.Wrap(h.User.Me), authed)
	user.Put("/me", "user.me.update", ctx.Wrap(h.User.UpdateMe), authed)
	user.Delete("/me", "user.me.delete", ctx.Wrap(h.User.DeleteMe), authed)

	cart := api.Group("/cart", authed)
	cart.Get("/", "cart.show", ctx.Wrap(h.Cart.Show))
	cart.Post("/add", "cart.add", ctx.Wrap(h.Cart.Add))
	cart.Put("/update", "cart.update", ctx.Wrap(h.Cart.Update))
	cart.Delete("/remove", "cart.remove", ctx.Wrap(h.Cart.Remove))
	cart.Delete("/clear", "cart.clear", ctx.Wrap(h.Cart.Clear))

	orders := api.Group("/orders", authed)
	orders.Post("/create", "orders.create", ctx.Wrap(h.Order.Create))
	orders.Get("/", "orders.index", ctx.Wrap(h.Order.List))
	orders.Get("/stats", "orders.stats", ctx.Wrap(h.Order.Stats))
	orders.Get("/{orderId}", "orders.show", ctx.Wrap(h.Order.Show))
	orders.Put("/{orderId}/status", "orders.status", ctx.Wrap(h.Order.UpdateStatus))
	orders.Put("/{orderId}/cancel", "orders.cancel", ctx.Wrap(h.Order.Cancel))
	orders.Get("/{orderId}/whatsapp", "orders.whatsapp", ctx.Wrap(h.Order.Whatsapp))

	admin := api.Group("/admin", authed, rbac.Admin)
	admin.Get("/stats", "admin.stats", ctx.Wrap(h.Admin.Stats))
	admin.Get("/orders", "admin.orders", ctx.Wrap(h.Admin.Orders))
	admin.Get("/orders/{orderId}", "admin.orders.show", ctx.Wrap(h.Admin.Order))
	admin.Patch("/orders/{orderId}/status", "admin.orders.update", ctx.Wrap(h.Admin.UpdateOrder))
	admin.Delete("/orders/{orderId}", "admin.orders.delete", ctx.Wrap(h.Admin.DeleteOrder))
	admin.Get("/users", "admin.users", ctx.Wrap(h.Admin.Users))
	admin.Get("/users/{userId}", "admin.users.show", ctx.Wrap(h.Admin.User))
	admin.Get("/live", "admin.live", ctx.Wrap(h.Admin.Live))

	api.Post("/contact/send-message", "contact.send", ctx.Wrap(h.Contact.Send))
}
