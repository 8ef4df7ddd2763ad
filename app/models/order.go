package models

import "time"

const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Statuses lists the order lifecycle in display order.
var Statuses = []string{StatusPending, StatusConfirmed, StatusProcessing, StatusCompleted, StatusCancelled}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s string) bool {
	for _, st := range Statuses {
		if st == s {
			return true
		}
	}
	return false
}

// DeliveryAddress is where a confirmed order goes.
type DeliveryAddress struct {
	Street  string `json:"street"  bson:"street"  gorm:"size:255"`
	City    string `json:"city"    bson:"city"    gorm:"size:100"`
	State   string `json:"state"   bson:"state"   gorm:"size:100"`
	Pincode string `json:"pincode" bson:"pincode" gorm:"size:12"`
	Country string `json:"country" bson:"country" gorm:"size:64"`
}

// ContactInfo is how the owner reaches the customer about an order.
type ContactInfo struct {
	Phone string `json:"phone" bson:"phone" gorm:"size:20"`
	Email string `json:"email" bson:"email" gorm:"size:191"`
}

// Order is an immutable snapshot of a cart with a mutable status.
type Order struct {
	ID                    string          `gorm:"primaryKey;size:24"                                         json:"_id"                             bson:"_id"`
	UserID                string          `gorm:"column:user_id;size:24;index:idx_orders_user_created"       json:"user"                            bson:"user"`
	Customer              *Customer       `gorm:"-"                                                          json:"customer,omitempty"              bson:"-"`
	Items                 []LineItem      `gorm:"serializer:json;type:text"                                  json:"items"                           bson:"items"`
	TotalAmount           float64         `gorm:"not null;default:0"                                         json:"totalAmount"                     bson:"totalAmount"`
	TotalItems            int             `gorm:"not null;default:0"                                         json:"totalItems"                      bson:"totalItems"`
	Status                string          `gorm:"size:16;not null;default:pending;index"                     json:"status"                          bson:"status"`
	DeliveryAddress       DeliveryAddress `gorm:"embedded;embeddedPrefix:delivery_"                          json:"deliveryAddress"                 bson:"deliveryAddress"`
	ContactInfo           ContactInfo     `gorm:"embedded;embeddedPrefix:contact_"                           json:"contactInfo"                     bson:"contactInfo"`
	Notes                 string          `gorm:"type:text"                                                  json:"notes"                           bson:"notes"`
	WhatsappSent          bool            `gorm:"not null;default:false"                                     json:"whatsappSent"                    bson:"whatsappSent"`
	WhatsappMessageID     string          `gorm:"size:64"                                                    json:"whatsappMessageId,omitempty"     bson:"whatsappMessageId,omitempty"`
	EmailSent             bool            `gorm:"not null;default:false"                                     json:"emailSent"                       bson:"emailSent"`
	EstimatedDeliveryDate *time.Time      `                                                                  json:"estimatedDeliveryDate,omitempty" bson:"estimatedDeliveryDate,omitempty"`
	AdminNotes            string          `gorm:"type:text"                                                  json:"adminNotes,omitempty"            bson:"adminNotes,omitempty"`
	CheckoutKey           string          `gorm:"size:80;uniqueIndex"                                        json:"-"                               bson:"checkoutKey"`
	CreatedAt             time.Time       `gorm:"index:idx_orders_user_created,sort:desc"                    json:"createdAt"                       bson:"createdAt"`
	UpdatedAt             time.Time       `                                                                  json:"updatedAt"                       bson:"updatedAt"`
}

// Cancellable reports whether the order may still be cancelled.
func (o Order) Cancellable() bool { return o.Status != StatusCompleted }
