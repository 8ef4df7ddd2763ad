package mails

import (
	"strings"
	"testing"

	"github.com/naturelovers/storefront/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactMailsEscapeInput(t *testing.T) {
	c := Contact{FirstName: "Asha", LastName: "K", Email: "asha@x.in", Message: "<script>x</script>"}

	msg, err := ContactToBusiness("inbox@x.in", c)
	require.NoError(t, err)
	assert.Equal(t, []string{"inbox@x.in"}, msg.Recipients())
	assert.Equal(t, "New Contact Form Submission - Asha K", msg.SubjectLine())
	assert.Contains(t, msg.Content(), "Not provided")
	assert.NotContains(t, msg.Content(), "<script>")

	conf, err := ContactConfirmation(c)
	require.NoError(t, err)
	assert.Equal(t, []string{"asha@x.in"}, conf.Recipients())
	assert.Contains(t, conf.Content(), "Dear Asha,")
}

func TestOrderConfirmation(t *testing.T) {
	o := &models.Order{
		ID:          "abc",
		Items:       []models.LineItem{{Name: "Fern", Type: models.ItemPlant, Price: models.Fixed(1200), Quantity: 2}, {Name: "Visit", Type: models.ItemService, Price: models.NegotiatedLater(), Quantity: 1}},
		ContactInfo: models.ContactInfo{Email: "c@x.in", Phone: "9876543210"},
	}
	o.TotalAmount, o.TotalItems = models.Totals(o.Items)

	msg, err := OrderConfirmation(o)
	require.NoError(t, err)
	assert.Equal(t, []string{"c@x.in"}, msg.Recipients())
	body := msg.Content()
	assert.Contains(t, body, "₹2,400")
	assert.Contains(t, body, "to be discussed with the owner")
	assert.True(t, strings.Contains(body, "9876543210"))
}

func TestPasswordReset(t *testing.T) {
	msg, err := PasswordReset("u@x.in", "deadbeef")
	require.NoError(t, err)
	assert.Contains(t, msg.Content(), "deadbeef")
}
