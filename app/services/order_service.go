package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/naturelovers/storefront/app/models"
	"github.com/naturelovers/storefront/app/repositories"
	"github.com/naturelovers/storefront/pkg/cache"
	"github.com/naturelovers/storefront/pkg/logger"
	"github.com/naturelovers/storefront/pkg/metrics"
	"github.com/naturelovers/storefront/pkg/validate"
	"github.com/naturelovers/storefront/pkg/whatsapp"
)

const (
	placeholder    = "To be provided"
	defaultCountry = "India"
	defaultNotes   = "Order placed via website"
)

// CreateOrderInput is the body of POST /api/orders/create. Every field is
// optional.
type CreateOrderInput struct {
	DeliveryAddress *models.DeliveryAddress `json:"deliveryAddress"`
	ContactInfo     *models.ContactInfo     `json:"contactInfo"`
	Notes           string                  `json:"notes"`
}

// StatusInput is the body of PUT /api/orders/{orderId}/status.
type StatusInput struct {
	Status string `json:"status" validate:"required,in=pending,confirmed,processing,completed,cancelled" message:"*=Invalid status"`
}

// OrderQuery selects one page of orders.
type OrderQuery struct {
	Page   int
	Limit  int
	Status string
}

// OrderPage is a page of orders with the total match count.
type OrderPage struct {
	Orders []models.Order
	Total  int64
	Page   int
	Limit  int
}

// TotalPages is ceil(Total / Limit).
func (p OrderPage) TotalPages() int {
	return repositories.Page{Page: p.Page, Limit: p.Limit}.TotalPages(p.Total)
}

// OrderStats summarises a customer's orders.
type OrderStats struct {
	TotalOrders     int64   `json:"totalOrders"`
	TotalAmount     float64 `json:"totalAmount"`
	TotalItems      int64   `json:"totalItems"`
	ConfirmedOrders int64   `json:"confirmedOrders"`
	CompletedOrders int64   `json:"completedOrders"`
}

// WhatsappLink is the deep link that hands a confirmed order to the owner.
type WhatsappLink struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

// OrderService runs checkout and the customer-facing order operations.
type OrderService struct {
	store repositories.Store
	cache cache.Cache
	retry Retry
	now   func() time.Time

	// WhatsappPhone receives order messages; empty uses whatsapp.DefaultPhone.
	WhatsappPhone string
}

func NewOrderService(store repositories.Store, c cache.Cache, retry Retry) *OrderService {
	if retry.Attempts < 1 {
		retry = DefaultRetry
	}
	return &OrderService{store: store, cache: c, retry: retry, now: time.Now}
}

// Create checks the caller's cart out into a confirmed order.
//
// The order insert, the order.created outbox event and the cart clear form
// one unit of work. The order carries checkout key <cartId>:<revision> and
// the clearing write stamps the same key on the cart, so concurrent or
// retried checkouts of one revision settle on a single order.
func (s *OrderService) Create(ctx context.Context, userID string, in CreateOrderInput) (*models.Order, error) {
	user, err := s.store.Users().FindByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("services: load user: %w", err)
	}

	var lastKey string
	for attempt := 0; attempt < s.retry.Attempts; attempt++ {
		cart, err := s.store.Carts().FindByUser(ctx, userID)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, badRequest("Cart is empty")
		}
		if err != nil {
			return nil, fmt.Errorf("services: load cart: %w", err)
		}
		if cart.IsEmpty() {
			// a concurrent checkout of the revision we tried may have won
			if lastKey != "" && cart.CheckoutKey == lastKey {
				if o, err := s.store.Orders().FindByCheckoutKey(ctx, lastKey); err == nil {
					return s.placed(ctx, user, o, false), nil
				}
			}
			return nil, badRequest("Cart is empty")
		}

		order, created, err := s.checkout(ctx, user, cart, in)
		if err == nil {
			return s.placed(ctx, user, order, created), nil
		}

		_, dup := repositories.IsDuplicate(err)
		if !errors.Is(err, repositories.ErrRevisionConflict) && !dup {
			return nil, fmt.Errorf("services: checkout: %w", err)
		}

		lastKey = checkoutKey(cart)
		if o, ok := s.settle(ctx, cart, lastKey, created); ok {
			return s.placed(ctx, user, o, false), nil
		}
		metrics.CartConflicts.Inc()
		if err := s.retry.wait(ctx, attempt); err != nil {
			return nil, err
		}
	}
	return nil, conflict(msgCartConflict)
}

func (s *OrderService) placed(ctx context.Context, user *models.User, o *models.Order, created bool) *models.Order {
	if created {
		metrics.OrdersCreated.Inc()
		logger.WithCtx(ctx).Info("order created", "order", o.ID, "user", user.ID, "total", o.TotalAmount)
	}
	s.invalidate(ctx)
	o.Customer = user.AsCustomer()
	return o
}

func checkoutKey(c *models.Cart) string {
	return c.ID + ":" + strconv.FormatInt(c.Revision, 10)
}

// keyRevision is the cart revision a checkout key was taken at, or -1.
func keyRevision(key string) int64 {
	i := strings.LastIndexByte(key, ':')
	if i < 0 {
		return -1
	}
	rev, err := strconv.ParseInt(key[i+1:], 10, 64)
	if err != nil {
		return -1
	}
	return rev
}

func orderCreatedEventID(orderID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(models.TopicOrderCreated+":"+orderID)).String()
}

func (s *OrderService) checkout(ctx context.Context, user *models.User, cart *models.Cart, in CreateOrderInput) (order *models.Order, created bool, err error) {
	key := checkoutKey(cart)

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		var err error
		order, created, err = placeOrder(ctx, tx.Orders(), key, func() *models.Order {
			return buildOrder(user, cart, in, key)
		})
		if err != nil {
			return err
		}

		if err := recordEvent(ctx, tx.Outbox(), models.TopicOrderCreated, order, orderCreatedEventID(order.ID)); err != nil {
			return err
		}

		cleared := *cart
		cleared.Clear()
		cleared.CheckoutKey = key
		return tx.Carts().Save(ctx, &cleared, cart.Revision)
	})
	return order, created, err
}

// placeOrder returns the order recorded under key, inserting build() when
// there is none. Losing the insert to a concurrent checkout of the same key
// yields that checkout's order.
func placeOrder(ctx context.Context, orders repositories.OrderRepository, key string, build func() *models.Order) (*models.Order, bool, error) {
	existing, err := orders.FindByCheckoutKey(ctx, key)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, false, err
	}

	o := build()
	err = orders.Create(ctx, o)
	if _, dup := repositories.IsDuplicate(err); dup {
		if existing, ferr := orders.FindByCheckoutKey(ctx, key); ferr == nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return o, true, nil
}

// settle decides a checkout of cart that failed its clearing write. When the
// cart carries key, another caller finished this checkout and its order is
// returned. When no checkout at or after the tried revision ever committed,
// the order this call inserted can never be placed and is dropped.
func (s *OrderService) settle(ctx context.Context, cart *models.Cart, key string, inserted bool) (*models.Order, bool) {
	current, err := s.store.Carts().FindByUser(ctx, cart.UserID)
	if err != nil {
		return nil, false
	}
	if current.CheckoutKey == key {
		if o, err := s.store.Orders().FindByCheckoutKey(ctx, key); err == nil {
			return o, true
		}
		return nil, false
	}
	if current.Revision == cart.Revision || !inserted {
		return nil, false
	}
	if keyRevision(current.CheckoutKey) >= cart.Revision {
		// a later checkout committed, so ours cannot be told apart from one
		// another caller placed; keep it
		logger.WithCtx(ctx).Warn("checkout order left in place", "checkout_key", key)
		return nil, false
	}
	s.discard(ctx, key)
	return nil, false
}

func (s *OrderService) discard(ctx context.Context, key string) {
	o, err := s.store.Orders().FindByCheckoutKey(ctx, key)
	if err != nil {
		return
	}
	if err := s.store.Orders().Delete(ctx, o.ID); err != nil {
		logger.WithCtx(ctx).Warn("discard stale checkout order", "order", o.ID, "error", err)
		return
	}
	if err := s.store.Outbox().Drop(ctx, orderCreatedEventID(o.ID)); err != nil {
		logger.WithCtx(ctx).Warn("discard stale checkout event", "order", o.ID, "error", err)
	}
}

func buildOrder(user *models.User, cart *models.Cart, in CreateOrderInput, key string) *models.Order {
	var addr models.DeliveryAddress
	if in.DeliveryAddress != nil {
		addr = *in.DeliveryAddress
	}
	for _, f := range []*string{&addr.Street, &addr.City, &addr.State, &addr.Pincode} {
		if *f = strings.TrimSpace(*f); *f == "" {
			*f = placeholder
		}
	}
	if addr.Country = strings.TrimSpace(addr.Country); addr.Country == "" {
		addr.Country = defaultCountry
	}

	var contact models.ContactInfo
	if in.ContactInfo != nil {
		contact = *in.ContactInfo
	}
	if contact.Phone = strings.TrimSpace(contact.Phone); contact.Phone == "" {
		contact.Phone = user.Phone
	}
	if contact.Email = strings.TrimSpace(contact.Email); contact.Email == "" {
		contact.Email = user.Email
	}

	notes := strings.TrimSpace(in.Notes)
	if notes == "" {
		notes = defaultNotes
	}

	items := append([]models.LineItem{}, cart.Items...)
	return &models.Order{
		ID:              repositories.NewID(),
		UserID:          user.ID,
		Items:           items,
		TotalAmount:     cart.TotalAmount,
		TotalItems:      cart.TotalItems,
		Status:          models.StatusConfirmed,
		DeliveryAddress: addr,
		ContactInfo:     contact,
		Notes:           notes,
		CheckoutKey:     key,
	}
}

// recordEvent appends an outbox event carrying o as JSON. A duplicate id
// means the event is already recorded.
func recordEvent(ctx context.Context, outbox repositories.OutboxRepository, topic string, o *models.Order, id string) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("services: encode %s: %w", topic, err)
	}
	if id == "" {
		id = uuid.NewString()
	}
	err = outbox.Append(ctx, &models.OutboxEvent{
		ID:          id,
		Topic:       topic,
		AggregateID: o.ID,
		Payload:     string(payload),
		CreatedAt:   time.Now().UTC(),
	})
	if _, dup := repositories.IsDuplicate(err); dup {
		return nil
	}
	return err
}

// saveOrder applies p to order id and records its order.updated event in
// the same unit of work.
func saveOrder(ctx context.Context, store repositories.Store, id string, p repositories.OrderPatch) (*models.Order, error) {
	var o *models.Order
	err := store.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		var err error
		if o, err = tx.Orders().Update(ctx, id, p); err != nil {
			return err
		}
		return recordEvent(ctx, tx.Outbox(), models.TopicOrderUpdated, o, "")
	})
	return o, err
}

func (s *OrderService) invalidate(ctx context.Context) {
	invalidateDashboard(ctx, s.cache)
}

// List pages through the caller's orders, newest first.
func (s *OrderService) List(ctx context.Context, userID string, q OrderQuery) (OrderPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}
	orders, total, err := s.store.Orders().List(ctx, repositories.OrderFilter{
		Page:   repositories.Page{Page: q.Page, Limit: q.Limit},
		UserID: userID,
		Status: q.Status,
	})
	if err != nil {
		return OrderPage{}, fmt.Errorf("services: list orders: %w", err)
	}
	if user, err := s.store.Users().FindByID(ctx, userID); err == nil {
		for i := range orders {
			orders[i].Customer = user.AsCustomer()
		}
	}
	return OrderPage{Orders: orders, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// Get returns one of the caller's orders. Foreign and malformed ids read as
// not found.
func (s *OrderService) Get(ctx context.Context, userID, orderID string) (*models.Order, error) {
	o, err := s.own(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if user, err := s.store.Users().FindByID(ctx, userID); err == nil {
		o.Customer = user.AsCustomer()
	}
	return o, nil
}

func (s *OrderService) own(ctx context.Context, userID, orderID string) (*models.Order, error) {
	if !validate.ObjectID(orderID) {
		return nil, notFound("Order not found")
	}
	o, err := s.store.Orders().FindByID(ctx, orderID)
	if errors.Is(err, repositories.ErrNotFound) || (err == nil && o.UserID != userID) {
		return nil, notFound("Order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("services: load order: %w", err)
	}
	return o, nil
}

// UpdateStatus sets the status of one of the caller's orders.
func (s *OrderService) UpdateStatus(ctx context.Context, userID, orderID, status string) (*models.Order, error) {
	if err := check(&StatusInput{Status: status}); err != nil {
		return nil, err
	}
	o, err := s.own(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if o, err = saveOrder(ctx, s.store, o.ID, repositories.OrderPatch{Status: &status}); err != nil {
		return nil, fmt.Errorf("services: update order: %w", err)
	}
	s.invalidate(ctx)
	return o, nil
}

// Cancel cancels any order that is not completed. Cancelling twice is fine.
func (s *OrderService) Cancel(ctx context.Context, userID, orderID string) (*models.Order, error) {
	o, err := s.own(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Cancellable() {
		return nil, badRequest("Cannot cancel completed order")
	}
	if o.Status == models.StatusCancelled {
		return o, nil
	}
	cancelled := models.StatusCancelled
	if o, err = saveOrder(ctx, s.store, o.ID, repositories.OrderPatch{Status: &cancelled}); err != nil {
		return nil, fmt.Errorf("services: cancel order: %w", err)
	}
	s.invalidate(ctx)
	return o, nil
}

// Stats summarises the caller's orders.
func (s *OrderService) Stats(ctx context.Context, userID string) (OrderStats, error) {
	sum, err := s.store.Orders().Summarize(ctx, repositories.SummaryFilter{UserID: userID})
	if err != nil {
		return OrderStats{}, fmt.Errorf("services: order stats: %w", err)
	}
	return OrderStats{
		TotalOrders:     sum.Count,
		TotalAmount:     sum.TotalAmount,
		TotalItems:      sum.TotalItems,
		ConfirmedOrders: sum.CountByStatus[models.StatusConfirmed],
		CompletedOrders: sum.CountByStatus[models.StatusCompleted],
	}, nil
}

// Whatsapp renders the order message, returns its deep link and marks the
// order as sent.
func (s *OrderService) Whatsapp(ctx context.Context, userID, orderID string) (WhatsappLink, error) {
	o, err := s.own(ctx, userID, orderID)
	if err != nil {
		return WhatsappLink{}, err
	}
	var customer *models.Customer
	if user, err := s.store.Users().FindByID(ctx, userID); err == nil {
		customer = user.AsCustomer()
	}

	msg := whatsapp.OrderMessage(o, customer, s.now())
	link := WhatsappLink{URL: whatsapp.Link(s.WhatsappPhone, msg), Message: msg}

	if !o.WhatsappSent {
		sent := true
		if _, err := s.store.Orders().Update(ctx, o.ID, repositories.OrderPatch{WhatsappSent: &sent}); err != nil {
			return WhatsappLink{}, fmt.Errorf("services: mark whatsapp sent: %w", err)
		}
	}
	return link, nil
}
