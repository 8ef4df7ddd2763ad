package controllers

import (
	"github.com/naturelovers/storefront/app/mails"
	"github.com/naturelovers/storefront/app/services"
	"github.com/naturelovers/storefront/pkg/ctx"
)

type ContactController struct {
	contact *services.ContactService
}

func NewContactController(contact *services.ContactService) *ContactController {
	return &ContactController{contact: contact}
}

func (h *ContactController) Send(c *ctx.Context) {
	var in mails.Contact
	if !c.BindJSON(&in) {
		return
	}
	if err := h.contact.Send(c.Context(), in); err != nil {
		fail(c, err)
		return
	}
	c.Success("Message sent successfully! We will get back to you within 24 hours.", nil)
}
