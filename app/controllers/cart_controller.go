package controllers

import (
	"github.com/naturelovers/storefront/app/services"
	"github.com/naturelovers/storefront/pkg/ctx"
)

// CartController serves /api/cart. Every route acts on the caller's cart.
type CartController struct {
	carts *services.CartService
}

func NewCartController(carts *services.CartService) *CartController {
	return &CartController{carts: carts}
}

func (h *CartController) Show(c *ctx.Context) {
	cart, err := h.carts.Get(c.Context(), c.UserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success("Cart retrieved successfully", cart)
}

func (h *CartController) Add(c *ctx.Context) {
	var in services.AddItemInput
	if !c.BindJSON(&in) {
		return
	}
	cart, err := h.carts.AddItem(c.Context(), c.UserID(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success("Item added to cart successfully", cart)
}

func (h *CartController) Update(c *ctx.Context) {
	var in services.UpdateQuantityInput
	if !c.BindJSON(&in) {
		return
	}
	cart, err := h.carts.UpdateQuantity(c.Context(), c.UserID(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success("Cart updated successfully", cart)
}

// Remove accepts the line in the body or, for clients that cannot send a
// DELETE body, as itemId/type query parameters.
func (h *CartController) Remove(c *ctx.Context) {
	var ref services.LineRef
	if !decode(c, &ref) {
		return
	}
	if ref.ItemID == "" {
		ref.ItemID = c.Query("itemId")
	}
	if ref.Type == "" {
		ref.Type = c.Query("type")
	}
	cart, err := h.carts.RemoveItem(c.Context(), c.UserID(), ref)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success("Item removed from cart successfully", cart)
}

func (h *CartController) Clear(c *ctx.Context) {
	cart, err := h.carts.Clear(c.Context(), c.UserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success("Cart cleared successfully", cart)
}
