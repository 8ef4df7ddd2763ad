package models

import "time"

// Cart is the caller's pending selection. Every successful write bumps
// Revision; writers compare-and-swap on it.
type Cart struct {
	ID          string     `gorm:"primaryKey;size:24"                   json:"_id"         bson:"_id"`
	UserID      string     `gorm:"column:user_id;size:24;uniqueIndex"   json:"user"        bson:"user"`
	Items       []LineItem `gorm:"serializer:json;type:text"            json:"items"       bson:"items"`
	TotalAmount float64    `gorm:"not null;default:0"                   json:"totalAmount" bson:"totalAmount"`
	TotalItems  int        `gorm:"not null;default:0"                   json:"totalItems"  bson:"totalItems"`
	Revision    int64      `gorm:"not null;default:0"                   json:"revision"    bson:"revision"`
	// CheckoutKey names the last checkout that emptied this cart.
	CheckoutKey string     `gorm:"size:80"                              json:"-"           bson:"checkoutKey,omitempty"`
	CreatedAt   time.Time  `                                            json:"createdAt"   bson:"createdAt"`
	UpdatedAt   time.Time  `                                            json:"updatedAt"   bson:"updatedAt"`
}

// Recalculate derives the totals from the lines.
func (c *Cart) Recalculate() {
	c.TotalAmount, c.TotalItems = Totals(c.Items)
}

// Find returns the index of the line with key k, or -1.
func (c *Cart) Find(k LineKey) int {
	for i, li := range c.Items {
		if li.Key() == k {
			return i
		}
	}
	return -1
}

// AddLine merges li by key: an existing line grows by li.Quantity,
// otherwise li is appended.
func (c *Cart) AddLine(li LineItem) {
	if i := c.Find(li.Key()); i >= 0 {
		c.Items[i].Quantity += li.Quantity
	} else {
		c.Items = append(c.Items, li)
	}
	c.Recalculate()
}

// SetQuantity overwrites the quantity of the line with key k, removing it
// at zero. It reports whether the line existed.
func (c *Cart) SetQuantity(k LineKey, qty int) bool {
	i := c.Find(k)
	if i < 0 {
		return false
	}
	if qty <= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	} else {
		c.Items[i].Quantity = qty
	}
	c.Recalculate()
	return true
}

// RemoveLine deletes the line with key k and reports whether it existed.
func (c *Cart) RemoveLine(k LineKey) bool { return c.SetQuantity(k, 0) }

// Clear drops every line.
func (c *Cart) Clear() {
	c.Items = []LineItem{}
	c.Recalculate()
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

// Totals sums amount and quantity over items.
func Totals(items []LineItem) (amount float64, count int) {
	for _, li := range items {
		amount += li.Subtotal()
		count += li.Quantity
	}
	return amount, count
}
