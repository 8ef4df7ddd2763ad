package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCartLineRules(t *testing.T) {
	c := &Cart{}
	c.AddLine(LineItem{ItemID: "5", Name: "Money Plant", Type: ItemPlant, Price: Fixed(50), Quantity: 2})
	c.AddLine(LineItem{ItemID: "5", Name: "Money Plant", Type: ItemPlant, Price: Fixed(50), Quantity: 1})
	c.AddLine(LineItem{ItemID: "5", Name: "Garden visit", Type: ItemService, Price: NegotiatedLater(), Quantity: 1})

	assert.Len(t, c.Items, 2, "same itemId with another type is a separate line")
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, 150.0, c.TotalAmount)
	assert.Equal(t, 4, c.TotalItems)

	assert.False(t, c.SetQuantity(LineKey{ItemID: "missing", Type: ItemPlant}, 2))
	assert.True(t, c.SetQuantity(LineKey{ItemID: "5", Type: ItemPlant}, 0))
	assert.Len(t, c.Items, 1)
	assert.Equal(t, 0.0, c.TotalAmount)
	assert.Equal(t, 1, c.TotalItems)

	assert.True(t, c.RemoveLine(LineKey{ItemID: "5", Type: ItemService}))
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 0, c.TotalItems)
}
