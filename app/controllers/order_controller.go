package controllers

import (
	"github.com/naturelovers/storefront/app/services"
	"github.com/naturelovers/storefront/pkg/ctx"
)

// OrderController serves the customer's /api/orders routes.
type OrderController struct {
	orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

func (h *OrderController) Create(c *ctx.Context) {
	var in services.CreateOrderInput
	if !decode(c, &in) {
		return
	}
	order, err := h.orders.Create(c.Context(), c.UserID(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created("Order created successfully", order)
}

func (h *OrderController) List(c *ctx.Context) {
	page, err := h.orders.List(c.Context(), c.UserID(), services.OrderQuery{
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 10),
		Status: c.Query("status"),
	})
	if err != nil {
		fail(c, err)
		return
	}
	pages := page.TotalPages()
	c.Success("Orders retrieved successfully", map[string]any{
		"orders": page.Orders,
		"pagination": map[string]any{
			"currentPage": page.Page,
			"totalPages":  pages,
			"totalOrders": page.Total,
			"hasNext":     hasNext(page.Page, pages),
			"hasPrev":     page.Page > 1,
		},
	})
}

func (h *OrderController) Show(c *ctx.Context) {
	order, err := h.orders.Get(c.Context(), c.UserID(), c.Param("orderId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success("Order retrieved successfully", order)
}

func (h *OrderController) UpdateStatus(c *ctx.Context) {
	var in services.StatusInput
	if !c.BindJSON(&in) {
		return
	}
	order, err := h.orders.UpdateStatus(c.Context(), c.UserID(), c.Param("orderId"), in.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success("Order status updated successfully", order)
}

func (h *OrderController) Cancel(c *ctx.Context) {
	order, err := h.orders.Cancel(c.Context(), c.UserID(), c.Param("orderId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success("Order cancelled successfully", order)
}

func (h *OrderController) Stats(c *ctx.Context) {
	stats, err := h.orders.Stats(c.Context(), c.UserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success("Order statistics retrieved successfully", stats)
}

func (h *OrderController) Whatsapp(c *ctx.Context) {
	link, err := h.orders.Whatsapp(c.Context(), c.UserID(), c.Param("orderId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success("WhatsApp link generated successfully", link)
}
