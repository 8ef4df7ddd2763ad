// Package notification fans a single notification out over several channels.
//
//	type OrderPlaced struct{ Order *models.Order }
//	func (n OrderPlaced) Via() []string { return []string{"mail", "slack", "sms"} }
//	func (n OrderPlaced) ToMail() (*mail.Message, error) { ... }
//	func (n OrderPlaced) ToSlack() notification.SlackData { ... }
//	func (n OrderPlaced) ToSMS() notification.SMSData { ... }
//
//	errs := notifier.Send(ctx, OrderPlaced{Order: o})
//
// Channels left unconfigured on the Notifier are skipped silently.
package notification

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/naturelovers/storefront/config"
	khttp "github.com/naturelovers/storefront/pkg/http"
	"github.com/naturelovers/storefront/pkg/logger"
	"github.com/naturelovers/storefront/pkg/mail"
)

const (
	ChannelMail    = "mail"
	ChannelSlack   = "slack"
	ChannelWebhook = "webhook"
	ChannelSMS     = "sms"
)

// ErrSkipped is reported for channels the Notifier has no configuration for.
var ErrSkipped = errors.New("notification: channel not configured")

// SlackData is a Slack incoming-webhook message.
type SlackData struct {
	WebhookURL  string
	Text        string
	Attachments []SlackAttachment
}

type SlackAttachment struct {
	Color  string `json:"color,omitempty"`
	Title  string `json:"title,omitempty"`
	Text   string `json:"text,omitempty"`
	Footer string `json:"footer,omitempty"`
}

// WebhookData is an arbitrary JSON POST.
type WebhookData struct {
	URL     string
	Payload interface{}
	Headers map[string]string
}

// SMSData is a text message. An empty To goes to the Notifier's owner phone.
type SMSData struct {
	To   string
	Body string
}

// Notification names the channels it should go out on.
type Notification interface {
	Via() []string
}

type Mailable interface {
	ToMail() (*mail.Message, error)
}

type Slackable interface {
	ToSlack() SlackData
}

type Webhookable interface {
	ToWebhook() WebhookData
}

type SMSable interface {
	ToSMS() SMSData
}

// Twilio holds the credentials of the SMS channel.
type Twilio struct {
	AccountSID string
	AuthToken  string
	From       string
	// BaseURL defaults to the public Twilio API.
	BaseURL string
}

func (t *Twilio) configured() bool {
	return t != nil && t.AccountSID != "" && t.AuthToken != "" && t.From != ""
}

// Notifier delivers notifications. Nil or empty fields disable their channel.
type Notifier struct {
	Mailer       mail.Mailer
	SlackWebhook string
	Twilio       *Twilio
	OwnerPhone   string
	Timeout      time.Duration
}

// FromConfig builds a Notifier from SLACK_WEBHOOK_URL, TWILIO_* and
// OWNER_PHONE.
func FromConfig(m mail.Mailer) *Notifier {
	return &Notifier{
		Mailer:       m,
		SlackWebhook: config.SlackWebhook(),
		Twilio: &Twilio{
			AccountSID: config.TwilioAccountSID(),
			AuthToken:  config.TwilioAuthToken(),
			From:       config.TwilioFromNumber(),
		},
		OwnerPhone: config.OwnerPhone(),
		Timeout:    10 * time.Second,
	}
}

// SMSEnabled reports whether the SMS channel can deliver.
func (n *Notifier) SMSEnabled() bool { return n.Twilio.configured() }

// Send dispatches over every channel in Via. Unconfigured channels are
// skipped; the errors of the others are returned.
func (n *Notifier) Send(ctx context.Context, note Notification) []error {
	var errs []error
	for _, ch := range note.Via() {
		err := n.dispatch(ctx, ch, note)
		if errors.Is(err, ErrSkipped) {
			logger.WithCtx(ctx).Debug("notification: channel skipped", "channel", ch)
			continue
		}
		if err != nil {
			logger.WithCtx(ctx).Error("notification: channel failed", "channel", ch, "error", err)
			errs = append(errs, err)
		}
	}
	return errs
}

// SendAsync runs Send in the background, detached from ctx's cancellation.
func (n *Notifier) SendAsync(ctx context.Context, note Notification) {
	ctx = context.WithoutCancel(ctx)
	go n.Send(ctx, note)
}

func (n *Notifier) dispatch(ctx context.Context, channel string, note Notification) error {
	switch channel {
	case ChannelMail:
		m, ok := note.(Mailable)
		if !ok {
			return fmt.Errorf("notification: %T does not implement Mailable", note)
		}
		if n.Mailer == nil {
			return ErrSkipped
		}
		msg, err := m.ToMail()
		if err != nil {
			return fmt.Errorf("notification: build mail: %w", err)
		}
		return n.Mailer.Send(ctx, msg)

	case ChannelSlack:
		s, ok := note.(Slackable)
		if !ok {
			return fmt.Errorf("notification: %T does not implement Slackable", note)
		}
		return n.sendSlack(ctx, s.ToSlack())

	case ChannelWebhook:
		wh, ok := note.(Webhookable)
		if !ok {
			return fmt.Errorf("notification: %T does not implement Webhookable", note)
		}
		return n.sendWebhook(ctx, wh.ToWebhook())

	case ChannelSMS:
		s, ok := note.(SMSable)
		if !ok {
			return fmt.Errorf("notification: %T does not implement SMSable", note)
		}
		return n.sendSMS(ctx, s.ToSMS())
	}
	return fmt.Errorf("notification: unknown channel %q", channel)
}

func (n *Notifier) timeout() time.Duration {
	if n.Timeout > 0 {
		return n.Timeout
	}
	return 10 * time.Second
}

type slackPayload struct {
	Text        string            `json:"text,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

func (n *Notifier) sendSlack(ctx context.Context, d SlackData) error {
	hook := d.WebhookURL
	if hook == "" {
		hook = n.SlackWebhook
	}
	if hook == "" {
		return ErrSkipped
	}
	resp, err := khttp.Post(hook).
		WithContext(ctx).
		Body(slackPayload{Text: d.Text, Attachments: d.Attachments}).
		Timeout(n.timeout()).
		Retry(3, 500*time.Millisecond).
		Send()
	if err != nil {
		return fmt.Errorf("notification: slack: %w", err)
	}
	return resp.Throw()
}

func (n *Notifier) sendWebhook(ctx context.Context, d WebhookData) error {
	if d.URL == "" {
		return ErrSkipped
	}
	req := khttp.Post(d.URL).
		WithContext(ctx).
		Body(d.Payload).
		Timeout(n.timeout()).
		Retry(3, 500*time.Millisecond)
	for k, v := range d.Headers {
		req.Header(k, v)
	}
	resp, err := req.Send()
	if err != nil {
		return fmt.Errorf("notification: webhook: %w", err)
	}
	return resp.Throw()
}

const twilioAPI = "https://api.twilio.com"

func (n *Notifier) sendSMS(ctx context.Context, d SMSData) error {
	if !n.Twilio.configured() {
		return ErrSkipped
	}
	to := d.To
	if to == "" {
		to = n.OwnerPhone
	}
	if to == "" {
		return ErrSkipped
	}

	base := n.Twilio.BaseURL
	if base == "" {
		base = twilioAPI
	}
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", base, url.PathEscape(n.Twilio.AccountSID))
	resp, err := khttp.Post(endpoint).
		WithContext(ctx).
		BasicAuth(n.Twilio.AccountSID, n.Twilio.AuthToken).
		Form(url.Values{"To": {to}, "From": {n.Twilio.From}, "Body": {d.Body}}).
		Timeout(n.timeout()).
		Retry(2, time.Second).
		Send()
	if err != nil {
		return fmt.Errorf("notification: sms: %w", err)
	}
	return resp.Throw()
}
