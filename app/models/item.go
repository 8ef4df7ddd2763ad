package models

import "encoding/json"

const (
	ItemPlant   = "plant"
	ItemService = "service"
)

// LineItem is one (itemId, type) entry in a cart or an order snapshot.
type LineItem struct {
	ItemID   string `json:"itemId"             bson:"itemId"`
	Name     string `json:"name"               bson:"name"`
	Type     string `json:"type"               bson:"type"`
	Price    Price  `json:"price"              bson:"price"`
	Quantity int    `json:"quantity"           bson:"quantity"`
	Image    string `json:"image,omitempty"    bson:"image,omitempty"`
	Category string `json:"category,omitempty" bson:"category,omitempty"`
}

// Key identifies the line within a cart.
func (li LineItem) Key() LineKey { return LineKey{ItemID: li.ItemID, Type: li.Type} }

// Subtotal is price × quantity, zero for negotiated prices.
func (li LineItem) Subtotal() float64 { return li.Price.Amount() * float64(li.Quantity) }

// LineKey is the (itemId, type) pair a cart holds at most one line for.
type LineKey struct {
	ItemID string
	Type   string
}

type lineItemWire struct {
	lineItemAlias
	PriceType PriceKind `json:"priceType,omitempty"`
}

type lineItemAlias LineItem

// MarshalJSON adds priceType next to the numeric price so a fixed zero
// survives a round trip through stored JSON.
func (li LineItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(lineItemWire{lineItemAlias: lineItemAlias(li), PriceType: li.Price.Kind})
}

func (li *LineItem) UnmarshalJSON(data []byte) error {
	var w lineItemWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*li = LineItem(w.lineItemAlias)
	if li.Price.IsSet() && (w.PriceType == PriceFixed || w.PriceType == PriceNegotiated) {
		li.Price.Kind = w.PriceType
	}
	return nil
}
