package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/naturelovers/storefront/app/models"
	"github.com/naturelovers/storefront/app/repositories"
	"github.com/naturelovers/storefront/app/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// looseStore runs units of work without a transaction, the way mongostore
// does when transactions are off. Each before* hook fires once, just ahead
// of the matching write.
type looseStore struct {
	repositories.Store
	beforeOrderCreate func(ctx context.Context)
	beforeOrderUpdate func(ctx context.Context)
	beforeCartSave    func(ctx context.Context) error
}

func (s *looseStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.Store) error) error {
	return fn(ctx, s)
}

func (s *looseStore) Orders() repositories.OrderRepository {
	return looseOrders{OrderRepository: s.Store.Orders(), s: s}
}

func (s *looseStore) Carts() repositories.CartRepository {
	return looseCarts{CartRepository: s.Store.Carts(), s: s}
}

type looseOrders struct {
	repositories.OrderRepository
	s *looseStore
}

func (o looseOrders) Create(ctx context.Context, ord *models.Order) error {
	if h := o.s.beforeOrderCreate; h != nil {
		o.s.beforeOrderCreate = nil
		h(ctx)
	}
	return o.OrderRepository.Create(ctx, ord)
}

func (o looseOrders) Update(ctx context.Context, id string, p repositories.OrderPatch) (*models.Order, error) {
	if h := o.s.beforeOrderUpdate; h != nil {
		o.s.beforeOrderUpdate = nil
		h(ctx)
	}
	return o.OrderRepository.Update(ctx, id, p)
}

type looseCarts struct {
	repositories.CartRepository
	s *looseStore
}

func (c looseCarts) Save(ctx context.Context, cart *models.Cart, expected int64) error {
	if h := c.s.beforeCartSave; h != nil {
		c.s.beforeCartSave = nil
		if err := h(ctx); err != nil {
			return err
		}
	}
	return c.CartRepository.Save(ctx, cart, expected)
}

func (f *fixture) loose() (*looseStore, *services.OrderService) {
	ls := &looseStore{Store: f.store}
	return ls, services.NewOrderService(ls, f.cache, fast)
}

func (f *fixture) requireSingleOrder(t *testing.T, userID string) models.Order {
	t.Helper()
	page, err := f.orders.List(context.Background(), userID, services.OrderQuery{})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	return page.Orders[0]
}

func (f *fixture) createdEvents(t *testing.T) []models.OutboxEvent {
	t.Helper()
	events, err := f.store.Outbox().Pending(context.Background(), 50)
	require.NoError(t, err)
	var created []models.OutboxEvent
	for _, e := range events {
		if e.Topic == models.TopicOrderCreated {
			created = append(created, e)
		}
	}
	return created
}

func TestCheckoutLosingInsertReturnsWinnersOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.register(t, "asha@example.com", "9000000001")
	_, err := f.carts.AddItem(ctx, u.ID, moneyPlant(2))
	require.NoError(t, err)

	ls, slow := f.loose()
	var winner *models.Order
	ls.beforeOrderCreate = func(ctx context.Context) {
		var err error
		winner, err = f.orders.Create(ctx, u.ID, services.CreateOrderInput{})
		require.NoError(t, err)
	}

	got, err := slow.Create(ctx, u.ID, services.CreateOrderInput{})
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.Equal(t, winner.ID, got.ID)

	stored, err := f.store.Orders().FindByID(ctx, winner.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, stored.TotalAmount)
	f.requireSingleOrder(t, u.ID)
	assert.Len(t, f.createdEvents(t), 1)

	c, err := f.carts.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestCheckoutFinishedByAnotherCallerKeepsOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.register(t, "asha@example.com", "9000000001")
	_, err := f.carts.AddItem(ctx, u.ID, moneyPlant(1))
	require.NoError(t, err)

	// the second caller finds our freshly inserted order and clears the cart
	// before our own clearing write lands
	ls, slow := f.loose()
	var other *models.Order
	ls.beforeCartSave = func(ctx context.Context) error {
		var err error
		other, err = f.orders.Create(ctx, u.ID, services.CreateOrderInput{})
		return err
	}

	got, err := slow.Create(ctx, u.ID, services.CreateOrderInput{})
	require.NoError(t, err)
	require.NotNil(t, other)
	assert.Equal(t, other.ID, got.ID)

	_, err = f.store.Orders().FindByID(ctx, got.ID)
	require.NoError(t, err, "an order handed back to a caller must stay stored")
	f.requireSingleOrder(t, u.ID)
	assert.Len(t, f.createdEvents(t), 1)
}

func TestCheckoutRetriesWhenCartChangesMidway(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.register(t, "asha@example.com", "9000000001")
	_, err := f.carts.AddItem(ctx, u.ID, moneyPlant(1))
	require.NoError(t, err)

	ls, slow := f.loose()
	ls.beforeCartSave = func(ctx context.Context) error {
		_, err := f.carts.AddItem(ctx, u.ID, moneyPlant(1))
		return err
	}

	o, err := slow.Create(ctx, u.ID, services.CreateOrderInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, o.TotalItems)
	assert.Equal(t, 100.0, o.TotalAmount)

	assert.Equal(t, o.ID, f.requireSingleOrder(t, u.ID).ID)
	events := f.createdEvents(t)
	require.Len(t, events, 1)
	assert.Equal(t, o.ID, events[0].AggregateID)

	c, err := f.carts.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestCheckoutInterruptedBeforeClearStillHasEvent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.register(t, "asha@example.com", "9000000001")
	_, err := f.carts.AddItem(ctx, u.ID, moneyPlant(3))
	require.NoError(t, err)

	crash := errors.New("connection reset")
	ls, slow := f.loose()
	ls.beforeCartSave = func(context.Context) error { return crash }

	_, err = slow.Create(ctx, u.ID, services.CreateOrderInput{})
	require.ErrorIs(t, err, crash)

	pending := f.requireSingleOrder(t, u.ID)
	events := f.createdEvents(t)
	require.Len(t, events, 1)
	assert.Equal(t, pending.ID, events[0].AggregateID)

	// the retry finishes the same checkout
	o, err := f.orders.Create(ctx, u.ID, services.CreateOrderInput{})
	require.NoError(t, err)
	assert.Equal(t, pending.ID, o.ID)
	assert.Len(t, f.createdEvents(t), 1)

	c, err := f.carts.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestStatusWriteKeepsEmailSent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.register(t, "asha@example.com", "9000000001")
	o := placeOrder(t, f, u.ID)

	// the confirmation job finishes after the order was read for the update
	ls, slow := f.loose()
	ls.beforeOrderUpdate = func(ctx context.Context) {
		require.NoError(t, f.store.Orders().MarkEmailSent(ctx, o.ID))
	}

	got, err := slow.Cancel(ctx, u.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.True(t, got.EmailSent)

	stored, err := f.store.Orders().FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, stored.EmailSent)
	assert.Equal(t, models.StatusCancelled, stored.Status)
}
