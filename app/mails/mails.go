// Package mails renders the storefront's outgoing emails. User-supplied
// text is HTML-escaped by html/template.
package mails

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/naturelovers/storefront/app/models"
	"github.com/naturelovers/storefront/pkg/mail"
	"github.com/naturelovers/storefront/pkg/whatsapp"
)

var funcs = template.FuncMap{
	"rupees": whatsapp.Rupees,
	"subtotal": func(li models.LineItem) float64 {
		return li.Subtotal()
	},
}

var templates = template.Must(template.New("mails").Funcs(funcs).Parse(`
{{define "reset"}}<p>Use this token to reset your password: {{.Token}}</p>
<p>The token expires in 15 minutes.</p>{{end}}

{{define "contact_business"}}<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #16a34a; border-bottom: 2px solid #16a34a; padding-bottom: 10px;">New Contact Form Submission</h2>
  <div style="background-color: #f0fdf4; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3 style="color: #166534; margin-top: 0;">Contact Information</h3>
    <p><strong>Name:</strong> {{.FirstName}} {{.LastName}}</p>
    <p><strong>Email:</strong> {{.Email}}</p>
    <p><strong>Phone:</strong> {{if .Phone}}{{.Phone}}{{else}}Not provided{{end}}</p>
  </div>
  <div style="background-color: #f9fafb; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3 style="color: #374151; margin-top: 0;">Message</h3>
    <p style="white-space: pre-wrap; line-height: 1.6;">{{.Message}}</p>
  </div>
  <div style="background-color: #eff6ff; padding: 15px; border-radius: 8px; margin: 20px 0;">
    <p style="margin: 0; color: #1e40af;"><strong>Action Required:</strong> Please respond to this inquiry within 24 hours.</p>
  </div>
  <p style="color: #6b7280; font-size: 14px; margin: 0;">This message was sent from the Nature Lovers contact form.</p>
</div>{{end}}

{{define "contact_customer"}}<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #16a34a; text-align: center;">🌱 Thank You for Contacting Nature Lovers!</h2>
  <div style="background-color: #f0fdf4; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <p>Dear {{.FirstName}},</p>
    <p>Thank you for reaching out to us! We have received your message and will get back to you within 24 hours.</p>
  </div>
  <div style="background-color: #f9fafb; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3 style="color: #374151; margin-top: 0;">What happens next?</h3>
    <ul style="color: #4b5563; line-height: 1.6;">
      <li>Our expert team will review your inquiry</li>
      <li>We'll contact you within 24 hours</li>
      <li>We'll provide personalized recommendations</li>
      <li>We'll schedule a consultation if needed</li>
    </ul>
  </div>
  <div style="background-color: #eff6ff; padding: 15px; border-radius: 8px; margin: 20px 0;">
    <p style="margin: 0; color: #1e40af;"><strong>Need immediate assistance?</strong> Call us at +91 9509899906</p>
  </div>
  <p style="color: #6b7280; font-size: 14px; text-align: center; margin: 0;">
    Nature Lovers - Transforming Gardens Into Paradise<br>
    📧 naturelovers636@gmail.com | 📞 +91 9509899906
  </p>
</div>{{end}}

{{define "order"}}<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #16a34a;">🌱 Your Nature Lovers order is confirmed</h2>
  <p>Order <strong>{{.Order.ID}}</strong></p>
  <table style="width: 100%; border-collapse: collapse;">
    {{range .Order.Items}}<tr>
      <td>{{.Name}} ({{.Type}})</td>
      <td>× {{.Quantity}}</td>
      <td>{{if .Price.IsNegotiated}}to be discussed with the owner{{else}}₹{{rupees (subtotal .)}}{{end}}</td>
    </tr>{{end}}
  </table>
  <p><strong>Total Items:</strong> {{.Order.TotalItems}}<br>
     <strong>Total Amount:</strong> ₹{{rupees .Order.TotalAmount}}<br>
     Delivery: FREE</p>
  <p>We will contact you on {{.Order.ContactInfo.Phone}} to arrange delivery.</p>
  <p>Thank you for choosing Nature Lovers! 🌿</p>
</div>{{end}}
`))

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Contact is a contact-form submission.
type Contact struct {
	FirstName string `json:"firstName" validate:"required"       message:"*=First name, last name, email, and message are required"`
	LastName  string `json:"lastName"  validate:"required"       message:"*=First name, last name, email, and message are required"`
	Email     string `json:"email"     validate:"required,email" message:"required=First name, last name, email, and message are required|email=Please enter a valid email address"`
	Phone     string `json:"phone"`
	Message   string `json:"message"   validate:"required"       message:"*=First name, last name, email, and message are required"`
}

// Normalize trims every field.
func (c *Contact) Normalize() {
	for _, f := range []*string{&c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Message} {
		*f = strings.TrimSpace(*f)
	}
}

// PasswordReset carries the plain reset token to the account's address.
func PasswordReset(to, token string) (*mail.Message, error) {
	body, err := render("reset", struct{ Token string }{token})
	if err != nil {
		return nil, err
	}
	return mail.To(to).Subject("Password Reset ").Body(body), nil
}

// ContactToBusiness notifies the shop inbox of a submission.
func ContactToBusiness(inbox string, c Contact) (*mail.Message, error) {
	body, err := render("contact_business", c)
	if err != nil {
		return nil, err
	}
	return mail.To(inbox).
		Subject("New Contact Form Submission - " + c.FirstName + " " + c.LastName).
		Body(body), nil
}

// ContactConfirmation thanks the sender.
func ContactConfirmation(c Contact) (*mail.Message, error) {
	body, err := render("contact_customer", c)
	if err != nil {
		return nil, err
	}
	return mail.To(c.Email).Subject("Thank you for contacting Nature Lovers!").Body(body), nil
}

// OrderConfirmation summarises a new order for its contact address.
func OrderConfirmation(o *models.Order) (*mail.Message, error) {
	body, err := render("order", struct{ Order *models.Order }{o})
	if err != nil {
		return nil, err
	}
	return mail.To(o.ContactInfo.Email).Subject("Your Nature Lovers order " + o.ID).Body(body), nil
}
