package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/naturelovers/storefront/app/models"
	"github.com/naturelovers/storefront/app/repositories"
	"github.com/naturelovers/storefront/pkg/logger"
	"github.com/naturelovers/storefront/pkg/metrics"
)

const (
	defaultAttempts = 5
	defaultBackoff  = 10 * time.Millisecond
	maxBackoff      = time.Second
)

const msgCartConflict = "Cart was modified concurrently, please retry"

// Retry bounds the compare-and-swap loop of cart writers.
type Retry struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetry is five attempts starting at 10ms.
var DefaultRetry = Retry{Attempts: defaultAttempts, Backoff: defaultBackoff}

// wait sleeps before attempt n (0-based) with doubling, jittered backoff
// capped at one second.
func (r Retry) wait(ctx context.Context, n int) error {
	if r.Backoff <= 0 {
		return ctx.Err()
	}
	d := r.Backoff
	for i := 0; i < n && d < maxBackoff; i++ {
		d *= 2
	}
	d = min(d, maxBackoff)
	d = d/2 + rand.N(d/2+1)
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// AddItemInput is the body of POST /api/cart/add.
type AddItemInput struct {
	ItemID   string       `json:"itemId"   validate:"required"                  message:"*=Missing required fields: itemId, name, type, price"`
	Name     string       `json:"name"     validate:"required"                  message:"*=Missing required fields: itemId, name, type, price"`
	Type     string       `json:"type"     validate:"required,in=plant,service" message:"required=Missing required fields: itemId, name, type, price|in=Type must be either 'plant' or 'service'"`
	Price    models.Price `json:"price"    validate:"required,valid"            message:"required=Missing required fields: itemId, name, type, price|valid=Price must be a non-negative number"`
	Quantity *int         `json:"quantity" validate:"gte=1"                     message:"*=Quantity must be at least 1"`
	Image    string       `json:"image"`
	Category string       `json:"category"`
}

func (in *AddItemInput) Normalize() {
	in.ItemID = strings.TrimSpace(in.ItemID)
	in.Name = strings.TrimSpace(in.Name)
}

// UpdateQuantityInput is the body of PUT /api/cart/update.
type UpdateQuantityInput struct {
	ItemID   string `json:"itemId"   validate:"required"       message:"*=Missing required fields or invalid quantity"`
	Type     string `json:"type"     validate:"required"       message:"*=Missing required fields or invalid quantity"`
	Quantity *int   `json:"quantity" validate:"required,gte=0" message:"*=Missing required fields or invalid quantity"`
}

// LineRef names one cart line.
type LineRef struct {
	ItemID string `json:"itemId" validate:"required" message:"*=Missing required fields: itemId, type"`
	Type   string `json:"type"   validate:"required" message:"*=Missing required fields: itemId, type"`
}

// CartService manages the caller's own cart.
type CartService struct {
	store repositories.Store
	retry Retry
}

func NewCartService(store repositories.Store, retry Retry) *CartService {
	if retry.Attempts < 1 {
		retry = DefaultRetry
	}
	return &CartService{store: store, retry: retry}
}

// Get returns the user's cart, creating an empty one on first use.
func (s *CartService) Get(ctx context.Context, userID string) (*models.Cart, error) {
	return getOrCreateCart(ctx, s.store.Carts(), userID)
}

func getOrCreateCart(ctx context.Context, carts repositories.CartRepository, userID string) (*models.Cart, error) {
	c, err := carts.FindByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("services: load cart: %w", err)
	}

	c = &models.Cart{UserID: userID, Items: []models.LineItem{}}
	err = carts.Create(ctx, c)
	if _, dup := repositories.IsDuplicate(err); dup {
		// another request created it first
		return carts.FindByUser(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("services: create cart: %w", err)
	}
	return c, nil
}

// AddItem merges the line into the cart: an existing (itemId, type) line
// grows by the requested quantity, otherwise a new line is appended.
func (s *CartService) AddItem(ctx context.Context, userID string, in AddItemInput) (*models.Cart, error) {
	if err := check(&in); err != nil {
		return nil, err
	}
	qty := 1
	if in.Quantity != nil {
		qty = *in.Quantity
	}

	line := models.LineItem{
		ItemID:   in.ItemID,
		Name:     in.Name,
		Type:     in.Type,
		Price:    in.Price,
		Quantity: qty,
		Image:    in.Image,
		Category: in.Category,
	}
	return s.mutate(ctx, userID, func(c *models.Cart) error {
		c.AddLine(line)
		return nil
	})
}

// UpdateQuantity overwrites a line's quantity; zero removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, userID string, in UpdateQuantityInput) (*models.Cart, error) {
	if err := check(&in); err != nil {
		return nil, err
	}
	key := models.LineKey{ItemID: in.ItemID, Type: in.Type}
	return s.mutate(ctx, userID, func(c *models.Cart) error {
		if !c.SetQuantity(key, *in.Quantity) {
			return notFound("Item not found in cart")
		}
		return nil
	})
}

// RemoveItem drops one line.
func (s *CartService) RemoveItem(ctx context.Context, userID string, ref LineRef) (*models.Cart, error) {
	if err := check(&ref); err != nil {
		return nil, err
	}
	key := models.LineKey{ItemID: ref.ItemID, Type: ref.Type}
	return s.mutate(ctx, userID, func(c *models.Cart) error {
		if !c.RemoveLine(key) {
			return notFound("Item not found in cart")
		}
		return nil
	})
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context, userID string) (*models.Cart, error) {
	return s.mutate(ctx, userID, func(c *models.Cart) error {
		c.Clear()
		return nil
	})
}

// mutate reads the cart, applies fn and writes it back conditionally on the
// revision read. A lost race re-reads and re-applies fn.
func (s *CartService) mutate(ctx context.Context, userID string, fn func(*models.Cart) error) (*models.Cart, error) {
	for attempt := 0; attempt < s.retry.Attempts; attempt++ {
		c, err := getOrCreateCart(ctx, s.store.Carts(), userID)
		if err != nil {
			return nil, err
		}
		expected := c.Revision

		if err := fn(c); err != nil {
			return nil, err
		}
		c.Recalculate()

		err = s.store.Carts().Save(ctx, c, expected)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, repositories.ErrRevisionConflict) {
			return nil, fmt.Errorf("services: save cart: %w", err)
		}

		metrics.CartConflicts.Inc()
		logger.WithCtx(ctx).Debug("cart revision conflict", "user", userID, "attempt", attempt+1)
		if err := s.retry.wait(ctx, attempt); err != nil {
			return nil, err
		}
	}
	return nil, conflict(msgCartConflict)
}
