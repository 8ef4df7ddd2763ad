package whatsapp

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/naturelovers/storefront/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRupees(t *testing.T) {
	cases := map[float64]string{
		0:        "0",
		50:       "50",
		999:      "999",
		1000:     "1,000",
		150000:   "1,50,000",
		12345678: "1,23,45,678",
		99.5:     "99.5",
		1234.125: "1,234.125",
	}
	for in, want := range cases {
		assert.Equal(t, want, Rupees(in), "%v", in)
	}
}

func TestLink(t *testing.T) {
	link := Link("", "Hi there & bye")
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "wa.me", u.Host)
	assert.Equal(t, "/"+DefaultPhone, u.Path)
	assert.Equal(t, "Hi there & bye", u.Query().Get("text"))

	assert.True(t, strings.HasPrefix(Link("+911234567890", "x"), "https://wa.me/911234567890?"))
}

func TestOrderMessage(t *testing.T) {
	o := &models.Order{
		Items: []models.LineItem{
			{Name: "Money Plant", Type: models.ItemPlant, Price: models.Fixed(1500), Quantity: 2},
			{Name: "Lawn care", Type: models.ItemService, Price: models.NegotiatedLater(), Quantity: 1},
		},
	}
	o.TotalAmount, o.TotalItems = models.Totals(o.Items)
	now := time.Date(2025, 3, 9, 9, 30, 5, 0, time.UTC) // 15:00:05 IST

	msg := OrderMessage(o, &models.Customer{Name: "asha", Email: "asha@x.in", Phone: "9876543210"}, now)

	for _, want := range []string{
		"🌱 *Nature Lovers - Confirmed Order* 🌱\n\n",
		"📅 Date: 9/3/2025\n",
		"⏰ Time: 3:00:05 pm\n",
		"✅ Status: CONFIRMED\n",
		"Name: asha\n",
		"Phone: 9876543210\n",
		"1. Money Plant\n   Type: plant\n   Quantity: 2\n   Price: ₹1,500\n   Subtotal: ₹3,000\n",
		"2. Lawn care\n   Type: service\n   Quantity: 1\n   Price: to be discussed with the owner\n",
		"Total Items: 3\n",
		"Total Amount: ₹3,000\n",
		"Delivery: FREE\nService Charge: ₹0\n",
	} {
		assert.Contains(t, msg, want)
	}
	assert.True(t, strings.HasSuffix(msg, "Thank you for choosing Nature Lovers! 🌿"))
}

func TestOrderMessageWithoutCustomer(t *testing.T) {
	msg := OrderMessage(&models.Order{}, nil, time.Now())
	assert.NotContains(t, msg, "Customer Details")
}
