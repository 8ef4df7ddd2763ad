package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestPriceFromWire(t *testing.T) {
	cases := []struct {
		in   string
		want Price
	}{
		{`50`, Fixed(50)},
		{`"120.5"`, Fixed(120.5)},
		{`0`, NegotiatedLater()},
		{`"negotiable"`, NegotiatedLater()},
		{`null`, Price{}},
	}
	for _, tc := range cases {
		var p Price
		require.NoError(t, json.Unmarshal([]byte(tc.in), &p), tc.in)
		assert.Equal(t, tc.want, p, tc.in)
	}

	var p Price
	assert.Error(t, json.Unmarshal([]byte(`"cheap"`), &p))
	assert.Error(t, json.Unmarshal([]byte(`true`), &p))
}

func TestPriceValidity(t *testing.T) {
	assert.False(t, Price{}.Valid())
	assert.False(t, Fixed(-1).Valid())
	assert.True(t, Fixed(0).Valid())
	assert.True(t, NegotiatedLater().Valid())
	assert.Equal(t, 0.0, NegotiatedLater().Amount())
}

func TestLineItemJSONKeepsKind(t *testing.T) {
	li := LineItem{ItemID: "5", Name: "Garden Visit", Type: ItemService, Price: Fixed(0), Quantity: 1}
	raw, err := json.Marshal(li)
	require.NoError(t, err)
	assert.JSONEq(t, `{"itemId":"5","name":"Garden Visit","type":"service","price":0,"priceType":"fixed","quantity":1}`, string(raw))

	var back LineItem
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, li, back)

	var fromClient LineItem
	require.NoError(t, json.Unmarshal([]byte(`{"itemId":"7","type":"plant","price":0,"quantity":2}`), &fromClient))
	assert.True(t, fromClient.Price.IsNegotiated())
}

func TestPriceBSON(t *testing.T) {
	type doc struct {
		Price Price `bson:"price"`
	}

	raw, err := bson.Marshal(doc{Price: Fixed(75)})
	require.NoError(t, err)
	var back doc
	require.NoError(t, bson.Unmarshal(raw, &back))
	assert.Equal(t, Fixed(75), back.Price)

	legacy, err := bson.Marshal(bson.M{"price": 40.0})
	require.NoError(t, err)
	require.NoError(t, bson.Unmarshal(legacy, &back))
	assert.Equal(t, Fixed(40), back.Price)

	legacyZero, err := bson.Marshal(bson.M{"price": int32(0)})
	require.NoError(t, err)
	require.NoError(t, bson.Unmarshal(legacyZero, &back))
	assert.True(t, back.Price.IsNegotiated())
}

func TestCartTotals(t *testing.T) {
	c := Cart{Items: []LineItem{
		{ItemID: "5", Type: ItemPlant, Price: Fixed(50), Quantity: 3},
		{ItemID: "9", Type: ItemService, Price: NegotiatedLater(), Quantity: 1},
		{ItemID: "2", Type: ItemPlant, Price: Fixed(25), Quantity: 2},
	}}
	c.Recalculate()

	assert.Equal(t, 200.0, c.TotalAmount)
	assert.Equal(t, 6, c.TotalItems)
	assert.Equal(t, 1, c.Find(LineKey{ItemID: "9", Type: ItemService}))
	assert.Equal(t, -1, c.Find(LineKey{ItemID: "9", Type: ItemPlant}))
}

func TestStatuses(t *testing.T) {
	assert.True(t, ValidStatus(StatusProcessing))
	assert.False(t, ValidStatus("shipped"))
	assert.False(t, Order{Status: StatusCompleted}.Cancellable())
	assert.True(t, Order{Status: StatusCancelled}.Cancellable())
}
