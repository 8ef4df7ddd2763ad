// Package repositories defines the storage contracts the services depend on.
// Two implementations exist: mongostore (default) and sqlstore (gorm).
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/naturelovers/storefront/app/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("repositories: not found")
	// ErrRevisionConflict is returned when a compare-and-swap save lost the race.
	ErrRevisionConflict = errors.New("repositories: revision conflict")
)

// DuplicateError reports a unique-constraint violation on Field.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("repositories: duplicate %s", e.Field)
}

// IsDuplicate returns the offending field when err is a DuplicateError.
func IsDuplicate(err error) (string, bool) {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup.Field, true
	}
	return "", false
}

// NewID returns a fresh 24-hex identifier shared by both stores.
func NewID() string { return primitive.NewObjectID().Hex() }

// ─── Contracts ────────────────────────────────────────────────────────────────

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByRefreshToken(ctx context.Context, hash string) (*models.User, error)
	FindByResetToken(ctx context.Context, hash string, now time.Time) (*models.User, error)
	// Conflicting returns a user other than excludeID sharing email or phone.
	Conflicting(ctx context.Context, email, phone, excludeID string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f UserFilter) ([]models.User, int64, error)
	Count(ctx context.Context) (int64, error)
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

type CartRepository interface {
	FindByUser(ctx context.Context, userID string) (*models.Cart, error)
	// Create inserts a new cart; a second cart for the same user is a DuplicateError.
	Create(ctx context.Context, c *models.Cart) error
	// Save writes c only if the stored revision still equals expected, and
	// sets c.Revision to expected+1. Otherwise it returns ErrRevisionConflict.
	Save(ctx context.Context, c *models.Cart, expected int64) error
	DeleteByUser(ctx context.Context, userID string) error
}

type OrderRepository interface {
	// Create inserts o; a reused checkout key is a DuplicateError on "checkoutKey".
	Create(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindByCheckoutKey(ctx context.Context, key string) (*models.Order, error)
	List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error)
	// Update sets only the fields p names and returns the stored order.
	Update(ctx context.Context, id string, p OrderPatch) (*models.Order, error)
	// MarkEmailSent sets emailSent without touching the rest of the order.
	MarkEmailSent(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Summarize(ctx context.Context, f SummaryFilter) (OrderSummary, error)
}

type OutboxRepository interface {
	Append(ctx context.Context, e *models.OutboxEvent) error
	Pending(ctx context.Context, limit int) ([]models.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id, reason string) error
	// Drop removes an event that has not been published yet.
	Drop(ctx context.Context, id string) error
}

type FailedJobRepository interface {
	Record(ctx context.Context, j *models.FailedJob) error
	Recent(ctx context.Context, limit int) ([]models.FailedJob, error)
}

// Store bundles the repositories of one backend.
type Store interface {
	Users() UserRepository
	Carts() CartRepository
	Orders() OrderRepository
	Outbox() OutboxRepository
	FailedJobs() FailedJobRepository

	// WithinTx runs fn as one unit of work. Repositories reached through tx
	// take part in the transaction when the backend supports one.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// ─── Query shapes ─────────────────────────────────────────────────────────────

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

// Offset is the number of rows skipped before this page.
func (p Page) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// TotalPages is ceil(total / limit).
func (p Page) TotalPages(total int64) int {
	if p.Limit <= 0 {
		return 0
	}
	return int((total + int64(p.Limit) - 1) / int64(p.Limit))
}

type UserFilter struct {
	Page
	// Search matches name, email or phone case-insensitively.
	Search string
}

type OrderFilter struct {
	Page
	UserID string
	Status string
	// SortBy is one of createdAt, updatedAt, totalAmount, status.
	SortBy    string
	Ascending bool
}

// SortField maps SortBy onto an allowed field, defaulting to createdAt.
func (f OrderFilter) SortField() string {
	switch f.SortBy {
	case "updatedAt", "totalAmount", "status", "totalItems":
		return f.SortBy
	}
	return "createdAt"
}

// OrderPatch names the order fields one write changes; nil fields are left
// as stored.
type OrderPatch struct {
	Status                *string
	AdminNotes            *string
	EstimatedDeliveryDate *time.Time
	WhatsappSent          *bool
}

// Empty reports whether p changes nothing.
func (p OrderPatch) Empty() bool {
	return p.Status == nil && p.AdminNotes == nil && p.EstimatedDeliveryDate == nil && p.WhatsappSent == nil
}

type SummaryFilter struct {
	UserID string
	Since  time.Time
}

// OrderSummary aggregates the orders a SummaryFilter matches.
type OrderSummary struct {
	Count          int64
	TotalAmount    float64
	TotalItems     int64
	CountByStatus  map[string]int64
	AmountByStatus map[string]float64
}
