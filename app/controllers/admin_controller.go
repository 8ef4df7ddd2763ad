package controllers

import (
	"net/http"

	"github.com/naturelovers/storefront/app/services"
	"github.com/naturelovers/storefront/pkg/ctx"
)

// AdminController serves /api/admin. Routes are mounted behind rbac.Admin.
type AdminController struct {
	admin *services.AdminService
	live  http.Handler
}

// NewAdminController builds the controller; live serves the WebSocket feed
// and may be nil when the feed is disabled.
func NewAdminController(admin *services.AdminService, live http.Handler) *AdminController {
	return &AdminController{admin: admin, live: live}
}

func pagination(total int64, page, limit, totalPages int) map[string]any {
	return map[string]any{
		"total":      total,
		"page":       page,
		"limit":      limit,
		"totalPages": totalPages,
	}
}

func (h *AdminController) Stats(c *ctx.Context) {
	d, err := h.admin.Dashboard(c.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success("Dashboard stats fetched successfully", d)
}

func (h *AdminController) Orders(c *ctx.Context) {
	page, err := h.admin.ListOrders(c.Context(), services.AdminOrderQuery{
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 20),
		Status: c.Query("status"),
		SortBy: c.DefaultQuery("sortBy", "createdAt"),
		Order:  c.DefaultQuery("order", "desc"),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.Success("Orders fetched successfully", map[string]any{
		"orders":     page.Orders,
		"pagination": pagination(page.Total, page.Page, page.Limit, page.TotalPages()),
	})
}

func (h *AdminController) Order(c *ctx.Context) {
	order, err := h.admin.GetOrder(c.Context(), c.Param("orderId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success("Order details fetched successfully", order)
}

func (h *AdminController) UpdateOrder(c *ctx.Context) {
	var in services.AdminOrderUpdate
	if !decode(c, &in) {
		return
	}
	order, err := h.admin.UpdateOrder(c.Context(), c.Param("orderId"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success("Order updated successfully", order)
}

func (h *AdminController) DeleteOrder(c *ctx.Context) {
	if err := h.admin.DeleteOrder(c.Context(), c.Param("orderId")); err != nil {
		fail(c, err)
		return
	}
	c.Success("Order deleted successfully", struct{}{})
}

func (h *AdminController) Users(c *ctx.Context) {
	page, err := h.admin.ListUsers(c.Context(), c.Query("search"), c.QueryInt("page", 1), c.QueryInt("limit", 20))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success("Users fetched successfully", map[string]any{
		"users":      page.Users,
		"pagination": pagination(page.Total, page.Page, page.Limit, page.TotalPages()),
	})
}

func (h *AdminController) User(c *ctx.Context) {
	details, err := h.admin.UserDetails(c.Context(), c.Param("userId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success("User details fetched successfully", details)
}

// Live upgrades to the order event WebSocket.
func (h *AdminController) Live(c *ctx.Context) {
	if h.live == nil {
		c.Error(http.StatusServiceUnavailable, "Live feed is not available")
		return
	}
	h.live.ServeHTTP(c.W, c.R)
}
