package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// PriceKind tags a Price.
type PriceKind string

const (
	PriceFixed      PriceKind = "fixed"
	PriceNegotiated PriceKind = "negotiated"
)

// Price is either Fixed(amount) or NegotiatedLater. The zero value is
// "missing" and never valid on a line item.
//
// On the wire a price stays a plain number for existing clients: 0 or the
// string "negotiable" means NegotiatedLater, any positive number is Fixed.
type Price struct {
	Kind  PriceKind `bson:"kind"   gorm:"column:kind;size:16"`
	Value float64   `bson:"amount" gorm:"column:amount"`
}

// Fixed returns a fixed price.
func Fixed(amount float64) Price { return Price{Kind: PriceFixed, Value: amount} }

// NegotiatedLater returns a price settled with the owner after ordering.
func NegotiatedLater() Price { return Price{Kind: PriceNegotiated} }

// IsSet reports whether the price was supplied at all.
func (p Price) IsSet() bool { return p.Kind != "" }

// IsZero reports whether the price is missing.
func (p Price) IsZero() bool { return !p.IsSet() }

// IsNegotiated reports whether the price is settled later.
func (p Price) IsNegotiated() bool { return p.Kind == PriceNegotiated }

// Valid reports whether p is a supplied, non-negative price.
func (p Price) Valid() bool {
	switch p.Kind {
	case PriceNegotiated:
		return true
	case PriceFixed:
		return p.Value >= 0
	}
	return false
}

// Amount is the value used in totals; negotiated prices count as zero.
func (p Price) Amount() float64 {
	if p.Kind != PriceFixed {
		return 0
	}
	return p.Value
}

func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Amount())
}

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = Price{}
		return nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case float64:
		*p = fromNumber(v)
		return nil
	case string:
		s := strings.TrimSpace(strings.ToLower(v))
		if s == "negotiable" || s == "negotiated" {
			*p = NegotiatedLater()
			return nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("price: %q is not a number", v)
		}
		*p = fromNumber(n)
		return nil
	}
	return fmt.Errorf("price: unsupported value %s", data)
}

func fromNumber(n float64) Price {
	if n == 0 {
		return NegotiatedLater()
	}
	return Fixed(n)
}

// UnmarshalBSONValue accepts the tagged subdocument and, for carts written
// before prices were tagged, a bare number.
func (p *Price) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.EmbeddedDocument:
		type plain Price
		var out plain
		if err := rv.Unmarshal(&out); err != nil {
			return fmt.Errorf("price: %w", err)
		}
		*p = Price(out)
	case bsontype.Double:
		*p = fromNumber(rv.Double())
	case bsontype.Int32:
		*p = fromNumber(float64(rv.Int32()))
	case bsontype.Int64:
		*p = fromNumber(float64(rv.Int64()))
	case bsontype.Null, bsontype.Undefined:
		*p = Price{}
	default:
		return fmt.Errorf("price: unexpected bson type %s", t)
	}
	return nil
}
