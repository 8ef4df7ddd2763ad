package services

import (
	"context"
	"fmt"

	"github.com/naturelovers/storefront/app/mails"
	"github.com/naturelovers/storefront/pkg/logger"
	"github.com/naturelovers/storefront/pkg/mail"
	"github.com/naturelovers/storefront/pkg/notification"
)

const msgContactFailed = "Failed to send message. Please try again later."

// ContactService relays the public contact form to the business inbox.
type ContactService struct {
	mailer   mail.Mailer
	notifier *notification.Notifier
	inbox    string
}

// NewContactService mails contact messages to inbox. notifier may be nil;
// when it has SMS configured the owner also gets a text.
func NewContactService(mailer mail.Mailer, notifier *notification.Notifier, inbox string) *ContactService {
	return &ContactService{mailer: mailer, notifier: notifier, inbox: inbox}
}

type contactSMS struct{ c mails.Contact }

func (contactSMS) Via() []string { return []string{notification.ChannelSMS} }

func (n contactSMS) ToSMS() notification.SMSData {
	body := fmt.Sprintf("New contact from %s %s (%s): %s", n.c.FirstName, n.c.LastName, n.c.Email, n.c.Message)
	if len(body) > 300 {
		body = body[:300]
	}
	return notification.SMSData{Body: body}
}

// Send mails the business and then confirms to the sender.
func (s *ContactService) Send(ctx context.Context, c mails.Contact) error {
	if err := check(&c); err != nil {
		return err
	}

	business, err := mails.ContactToBusiness(s.inbox, c)
	if err != nil {
		return failure(msgContactFailed, err)
	}
	if err := s.mailer.Send(ctx, business); err != nil {
		return failure(msgContactFailed, err)
	}
	confirm, err := mails.ContactConfirmation(c)
	if err != nil {
		return failure(msgContactFailed, err)
	}
	if err := s.mailer.Send(ctx, confirm); err != nil {
		return failure(msgContactFailed, err)
	}

	if s.notifier != nil && s.notifier.SMSEnabled() {
		for _, err := range s.notifier.Send(ctx, contactSMS{c: c}) {
			logger.WithCtx(ctx).Warn("contact sms failed", "error", err)
		}
	}
	return nil
}
