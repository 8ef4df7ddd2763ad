// Package jobs holds the queue jobs of the storefront.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/naturelovers/storefront/app/mails"
	"github.com/naturelovers/storefront/app/models"
	"github.com/naturelovers/storefront/app/repositories"
	"github.com/naturelovers/storefront/pkg/logger"
	"github.com/naturelovers/storefront/pkg/mail"
	"github.com/naturelovers/storefront/pkg/notification"
	"github.com/naturelovers/storefront/pkg/queue"
	"github.com/naturelovers/storefront/pkg/whatsapp"
)

const OrderConfirmationName = "orders.send-confirmation"

// Deps are the collaborators jobs need; they never travel through the queue.
type Deps struct {
	Store    repositories.Store
	Mailer   mail.Mailer
	Notifier *notification.Notifier
	// WebhookURL receives every new order as JSON when set.
	WebhookURL string
}

// Register makes the storefront jobs decodable by q.
func Register(q *queue.Manager, d *Deps) {
	q.Register(OrderConfirmationName, func() queue.Job { return &SendOrderConfirmation{deps: d} })
}

// SendOrderConfirmation mails the order summary to its contact address and
// tells the owner about the order.
type SendOrderConfirmation struct {
	OrderID string `json:"orderId"`

	deps *Deps
}

// NewSendOrderConfirmation builds a dispatchable job.
func NewSendOrderConfirmation(d *Deps, orderID string) *SendOrderConfirmation {
	return &SendOrderConfirmation{OrderID: orderID, deps: d}
}

func (SendOrderConfirmation) JobName() string { return OrderConfirmationName }

func (j *SendOrderConfirmation) Handle(ctx context.Context) error {
	log := logger.WithCtx(ctx).With("order_id", j.OrderID)

	o, err := j.deps.Store.Orders().FindByID(ctx, j.OrderID)
	if errors.Is(err, repositories.ErrNotFound) {
		log.Info("order confirmation: order gone, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("jobs: load order: %w", err)
	}
	if o.EmailSent {
		return nil
	}

	sent, err := j.mailCustomer(ctx, o)
	if err != nil {
		return err
	}
	if sent {
		if err := j.deps.Store.Orders().MarkEmailSent(ctx, o.ID); err != nil {
			return fmt.Errorf("jobs: mark email sent: %w", err)
		}
	}

	if j.deps.Notifier != nil {
		for _, err := range j.deps.Notifier.Send(ctx, ownerNotice{order: o, webhook: j.deps.WebhookURL}) {
			log.Warn("order confirmation: owner notification failed", "error", err)
		}
	}
	return nil
}

// mailCustomer reports whether a mail went out. A missing address or an
// unconfigured mailer is not an error.
func (j *SendOrderConfirmation) mailCustomer(ctx context.Context, o *models.Order) (bool, error) {
	if j.deps.Mailer == nil || strings.TrimSpace(o.ContactInfo.Email) == "" {
		return false, nil
	}
	msg, err := mails.OrderConfirmation(o)
	if err != nil {
		return false, fmt.Errorf("jobs: render confirmation: %w", err)
	}
	err = j.deps.Mailer.Send(ctx, msg)
	if errors.Is(err, mail.ErrNotConfigured) {
		logger.WithCtx(ctx).Info("order confirmation: mailer not configured", "order_id", o.ID)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("jobs: send confirmation: %w", err)
	}
	return true, nil
}

// ownerNotice goes out on every owner channel that is configured.
type ownerNotice struct {
	order   *models.Order
	webhook string
}

func (n ownerNotice) Via() []string {
	via := []string{notification.ChannelSlack, notification.ChannelSMS}
	if n.webhook != "" {
		via = append(via, notification.ChannelWebhook)
	}
	return via
}

func (n ownerNotice) summary() string {
	return fmt.Sprintf("New order %s: %d item(s), ₹%s", n.order.ID, n.order.TotalItems, whatsapp.Rupees(n.order.TotalAmount))
}

func (n ownerNotice) ToSlack() notification.SlackData {
	o := n.order
	return notification.SlackData{
		Text: "🌱 " + n.summary(),
		Attachments: []notification.SlackAttachment{{
			Color:  "#2e7d32",
			Title:  "Deliver to " + o.DeliveryAddress.City,
			Text:   o.ContactInfo.Phone + " / " + o.ContactInfo.Email,
			Footer: o.Notes,
		}},
	}
}

func (n ownerNotice) ToSMS() notification.SMSData {
	return notification.SMSData{Body: "Nature Lovers: " + n.summary()}
}

func (n ownerNotice) ToWebhook() notification.WebhookData {
	return notification.WebhookData{
		URL:     n.webhook,
		Payload: map[string]any{"event": models.TopicOrderCreated, "order": n.order},
	}
}
