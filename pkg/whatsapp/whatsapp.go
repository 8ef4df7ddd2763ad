// Package whatsapp renders confirmed orders as the text the owner receives
// over WhatsApp and builds the wa.me deep link that opens it.
package whatsapp

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/naturelovers/storefront/app/models"
)

// DefaultPhone is the business number orders are sent to.
const DefaultPhone = "919509899906"

const (
	businessPhone = "+91 9509899906"
	businessEmail = "naturelovers636@gmail.com"
	negotiated    = "to be discussed with the owner"
)

// IST is where the business operates; message timestamps use it.
var IST = time.FixedZone("IST", 5*3600+1800)

// Link returns https://wa.me/<phone>?text=<message>. An empty phone uses
// DefaultPhone.
func Link(phone, message string) string {
	phone = strings.TrimPrefix(strings.TrimSpace(phone), "+")
	if phone == "" {
		phone = DefaultPhone
	}
	return "https://wa.me/" + phone + "?text=" + strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
}

// OrderMessage renders o for the owner. customer may be nil.
func OrderMessage(o *models.Order, customer *models.Customer, now time.Time) string {
	now = now.In(IST)

	var b strings.Builder
	b.WriteString("🌱 *Nature Lovers - Confirmed Order* 🌱\n\n")
	fmt.Fprintf(&b, "📅 Date: %s\n", now.Format("2/1/2006"))
	fmt.Fprintf(&b, "⏰ Time: %s\n", strings.ToLower(now.Format("3:04:05 PM")))
	b.WriteString("✅ Status: CONFIRMED\n\n")

	if customer != nil {
		b.WriteString("👤 *Customer Details:*\n")
		fmt.Fprintf(&b, "Name: %s\n", customer.Name)
		fmt.Fprintf(&b, "Email: %s\n", customer.Email)
		if customer.Phone != "" {
			fmt.Fprintf(&b, "Phone: %s\n", customer.Phone)
		}
		b.WriteString("\n")
	}

	b.WriteString("🛒 *Order Items:*\n")
	for i, li := range o.Items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, li.Name)
		fmt.Fprintf(&b, "   Type: %s\n", li.Type)
		fmt.Fprintf(&b, "   Quantity: %d\n", li.Quantity)
		if li.Price.IsNegotiated() || li.Price.Amount() <= 0 {
			fmt.Fprintf(&b, "   Price: %s\n", negotiated)
			fmt.Fprintf(&b, "   Subtotal: %s\n\n", negotiated)
			continue
		}
		fmt.Fprintf(&b, "   Price: ₹%s\n", Rupees(li.Price.Amount()))
		fmt.Fprintf(&b, "   Subtotal: ₹%s\n\n", Rupees(li.Subtotal()))
	}

	b.WriteString("💰 *Order Summary:*\n")
	fmt.Fprintf(&b, "Total Items: %d\n", o.TotalItems)
	fmt.Fprintf(&b, "Total Amount: ₹%s\n", Rupees(o.TotalAmount))
	b.WriteString("Delivery: FREE\n")
	b.WriteString("Service Charge: ₹0\n\n")

	b.WriteString("📞 *Contact Information:*\n")
	b.WriteString("Nature Lovers\n")
	fmt.Fprintf(&b, "Phone: %s\n", businessPhone)
	fmt.Fprintf(&b, "Email: %s\n\n", businessEmail)

	b.WriteString("Thank you for choosing Nature Lovers! 🌿")
	return b.String()
}

// Rupees formats v with Indian digit grouping (12,34,567) and at most
// three fraction digits.
func Rupees(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', 3, 64)
	whole, frac, _ := strings.Cut(s, ".")
	frac = strings.TrimRight(frac, "0")

	out := groupIndian(whole)
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}
