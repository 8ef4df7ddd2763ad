package services_test

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/naturelovers/storefront/app/mails"
	"github.com/naturelovers/storefront/app/models"
	"github.com/naturelovers/storefront/app/repositories"
	"github.com/naturelovers/storefront/app/services"
	"github.com/naturelovers/storefront/internal/testdb"
	"github.com/naturelovers/storefront/pkg/cache"
	"github.com/naturelovers/storefront/pkg/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fast = services.Retry{Attempts: 5, Backoff: time.Millisecond}

type fixture struct {
	store  repositories.Store
	cache  *cache.Memory
	mailer *mail.Recorder
	users  *services.UserService
	carts  *services.CartService
	orders *services.OrderService
	admin  *services.AdminService
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := testdb.New(t)
	c := cache.NewMemory()
	rec := &mail.Recorder{}
	return &fixture{
		store:  store,
		cache:  c,
		mailer: rec,
		users:  services.NewUserService(store, rec),
		carts:  services.NewCartService(store, fast),
		orders: services.NewOrderService(store, c, fast),
		admin:  services.NewAdminService(store, c),
	}
}

func (f *fixture) register(t *testing.T, email, phone string) *models.User {
	t.Helper()
	sess, err := f.users.Register(context.Background(), services.RegisterInput{
		Name: "Asha", Email: email, Password: "secret1", Phone: phone,
	})
	require.NoError(t, err)
	return sess.User
}

func qty(n int) *int { return &n }

func moneyPlant(n int) services.AddItemInput {
	return services.AddItemInput{ItemID: "5", Name: "Money Plant", Type: models.ItemPlant, Price: models.Fixed(50), Quantity: qty(n)}
}

func requireStatus(t *testing.T, err error, status int, msg string) {
	t.Helper()
	se, ok := services.AsError(err)
	require.True(t, ok, "expected service error, got %v", err)
	assert.Equal(t, status, se.Status)
	if msg != "" {
		assert.Equal(t, msg, se.Message)
	}
}

// ─── Cart ─────────────────────────────────────────────────────────────────────

func TestAddMergesSameLine(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.register(t, "asha@example.com", "9000000001")

	_, err := f.carts.AddItem(ctx, u.ID, moneyPlant(2))
	require.NoError(t, err)
	c, err := f.carts.AddItem(ctx, u.ID, services.AddItemInput{ItemID: "5", Name: "Money Plant", Type: models.ItemPlant, Price: models.Fixed(50), Quantity: qty(1)})
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, 150.0, c.TotalAmount)
	assert.Equal(t, 3, c.TotalItems)
}

func TestSameItemDifferentTypeIsSeparateLine(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.register(t, "asha@example.com", "9000000001")

	_, err := f.carts.AddItem(ctx, u.ID, moneyPlant(1))
	require.NoError(t, err)
	c, err := f.carts.AddItem(ctx, u.ID, services.AddItemInput{ItemID: "5", Name: "Garden visit", Type: models.ItemService, Price: models.NegotiatedLater()})
	require.NoError(t, err)

	assert.Len(t, c.Items, 2)
	assert.Equal(t, 50.0, c.TotalAmount, "negotiated lines add nothing")
	assert.Equal(t, 2, c.TotalItems)
}

func TestAddValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.register(t, "asha@example.com", "9000000001")

	_, err := f.carts.AddItem(ctx, u.ID, services.AddItemInput{ItemID: "5", Type: models.ItemPlant, Price: models.Fixed(5)})
	requireStatus(t, err, http.StatusBadRequest, "Missing required fields: itemId, name, type, price")

	_, err = f.carts.AddItem(ctx, u.ID, services.AddItemInput{ItemID: "5", Name: "x", Type: "tool", Price: models.Fixed(5)})
	requireStatus(t, err, http.StatusBadRequest, "Type must be either 'plant' or 'service'")

	_, err = f.carts.AddItem(ctx, u.ID, services.AddItemInput{ItemID: "5", Name: "x", Type: models.ItemPlant, Price: models.Fixed(5), Quantity: qty(0)})
	requireStatus(t, err, http.StatusBadRequest, "Quantity must be at least 1")
}

func TestUpdateToZeroRemoves(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.register(t, "asha@example.com", "9000000001")
	_, err := f.carts.AddItem(ctx, u.ID, moneyPlant(2))
	require.NoError(t, err)

	c, err := f.carts.UpdateQuantity(ctx, u.ID, services.UpdateQuantityInput{ItemID: "5", Type: models.ItemPlant, Quantity: qty(7)})
	require.NoError(t, err)
	assert.Equal(t, 350.0, c.TotalAmount)

	c, err = f.carts.UpdateQuantity(ctx, u.ID, services.UpdateQuantityInput{ItemID: "5", Type: models.ItemPlant, Quantity: qty(0)})
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.Zero(t, c.TotalAmount)

	_, err = f.carts.UpdateQuantity(ctx, u.ID, services.UpdateQuantityInput{ItemID: "5", Type: models.ItemPlant})
	requireStatus(t, err, http.StatusBadRequest, "Missing required fields or invalid quantity")
}

func TestRemoveMissingLineLeavesCart(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.register(t, "asha@example.com", "9000000001")
	before, err := f.carts.AddItem(ctx, u.ID, moneyPlant(2))
	require.NoError(t, err)

	_, err = f.carts.RemoveItem(ctx, u.ID, services.LineRef{ItemID: "9", Type: models.ItemPlant})
	requireStatus(t, err, http.StatusNotFound, "Item not found in cart")

	after, err := f.carts.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Revision, after.Revision)
	assert.Equal(t, before.Items, after.Items)
}

func TestConcurrentAddsAreNotLost(t *testing.T) {
	store := testdb.New(t)
	carts := services.NewCartService(store, services.Retry{Attempts: 200, Backoff: time.Millisecond})
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := carts.AddItem(ctx, "u1", moneyPlant(1))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	c, err := carts.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, n, c.Items[0].Quantity)
	assert.Equal(t, float64(50*n), c.TotalAmount)
}

// ─── Orders ───────────────────────────────────────────────────────────────────

func TestCheckoutEmptiesCart(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.register(t, "asha@example.com", "9000000001")

	_, err := f.carts.AddItem(ctx, u.ID, services.AddItemInput{ItemID: "1", Name: "Rose", Type: models.ItemPlant, Price: models.Fixed(100), Quantity: qty(2)})
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, u.ID, services.AddItemInput{ItemID: "2", Name: "Tulsi", Type: models.ItemPlant, Price: models.Fixed(100)})
	require.NoError(t, err)

	o, err := f.orders.Create(ctx, u.ID, services.CreateOrderInput{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, o.Status)
	assert.Equal(t, 300.0, o.TotalAmount)
	assert.Equal(t, 3, o.TotalItems)
	assert.Equal(t, "To be provided", o.DeliveryAddress.City)
	assert.Equal(t, "India", o.DeliveryAddress.Country)
	assert.Equal(t, u.Phone, o.ContactInfo.Phone)
	assert.Equal(t, u.Email, o.ContactInfo.Email)
	assert.Equal(t, "Order placed via website", o.Notes)
	require.NotNil(t, o.Customer)
	assert.Equal(t, u.Email, o.Customer.Email)

	c, err := f.carts.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.Zero(t, c.TotalAmount)

	page, err := f.orders.List(ctx, u.ID, services.OrderQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, 1, page.TotalPages())

	events, err := f.store.Outbox().Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.TopicOrderCreated, events[0].Topic)
	assert.Equal(t, o.ID, events[0].AggregateID)
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.register(t, "asha@example.com", "9000000001")

	_, err := f.orders.Create(ctx, u.ID, services.CreateOrderInput{})
	requireStatus(t, err, http.StatusBadRequest, "Cart is empty")

	_, err = f.carts.Get(ctx, u.ID)
	require.NoError(t, err)
	_, err = f.orders.Create(ctx, u.ID, services.CreateOrderInput{})
	requireStatus(t, err, http.StatusBadRequest, "Cart is empty")

	page, err := f.orders.List(ctx, u.ID, services.OrderQuery{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestCheckoutReusesOrderForSameRevision(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.register(t, "asha@example.com", "9000000001")
	c, err := f.carts.AddItem(ctx, u.ID, moneyPlant(1))
	require.NoError(t, err)

	// an earlier attempt got as far as inserting the order
	prior := &models.Order{
		ID:          repositories.NewID(),
		UserID:      u.ID,
		Items:       c.Items,
		TotalAmount: c.TotalAmount,
		TotalItems:  c.TotalItems,
		Status:      models.StatusConfirmed,
		CheckoutKey: c.ID + ":" + strconv.FormatInt(c.Revision, 10),
	}
	require.NoError(t, f.store.Orders().Create(ctx, prior))

	o, err := f.orders.Create(ctx, u.ID, services.CreateOrderInput{})
	require.NoError(t, err)
	assert.Equal(t, prior.ID, o.ID)

	page, err := f.orders.List(ctx, u.ID, services.OrderQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	after, err := f.carts.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, after.Items)
}

func placeOrder(t *testing.T, f *fixture, userID string) *models.Order {
	t.Helper()
	ctx := context.Background()
	_, err := f.carts.AddItem(ctx, userID, moneyPlant(1))
	require.NoError(t, err)
	o, err := f.orders.Create(ctx, userID, services.CreateOrderInput{Notes: "leave at gate"})
	require.NoError(t, err)
	return o
}

func TestCancel(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.register(t, "asha@example.com", "9000000001")
	o := placeOrder(t, f, u.ID)
	assert.Equal(t, "leave at gate", o.Notes)

	got, err := f.orders.Cancel(ctx, u.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)

	_, err = f.orders.Cancel(ctx, u.ID, o.ID)
	require.NoError(t, err, "cancelling twice is fine")

	done := placeOrder(t, f, u.ID)
	_, err = f.orders.UpdateStatus(ctx, u.ID, done.ID, models.StatusCompleted)
	require.NoError(t, err)
	_, err = f.orders.Cancel(ctx, u.ID, done.ID)
	requireStatus(t, err, http.StatusBadRequest, "Cannot cancel completed order")
}

func TestOrdersAreScopedToOwner(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.register(t, "a@example.com", "9000000001")
	b := f.register(t, "b@example.com", "9000000002")
	o := placeOrder(t, f, a.ID)

	_, err := f.orders.Get(ctx, b.ID, o.ID)
	requireStatus(t, err, http.StatusNotFound, "Order not found")
	_, err = f.orders.Get(ctx, a.ID, "not-an-id")
	requireStatus(t, err, http.StatusNotFound, "Order not found")
	_, err = f.orders.UpdateStatus(ctx, a.ID, o.ID, "shipped")
	requireStatus(t, err, http.StatusBadRequest, "Invalid status")

	got, err := f.orders.Get(ctx, a.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
}

func TestStats(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.register(t, "asha@example.com", "9000000001")

	st, err := f.orders.Stats(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, st.TotalOrders)

	placeOrder(t, f, u.ID)
	second := placeOrder(t, f, u.ID)
	_, err = f.orders.UpdateStatus(ctx, u.ID, second.ID, models.StatusCompleted)
	require.NoError(t, err)

	st, err = f.orders.Stats(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.TotalOrders)
	assert.Equal(t, 100.0, st.TotalAmount)
	assert.EqualValues(t, 2, st.TotalItems)
	assert.EqualValues(t, 1, st.ConfirmedOrders)
	assert.EqualValues(t, 1, st.CompletedOrders)
}

func TestWhatsappMarksSent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.register(t, "asha@example.com", "9000000001")
	o := placeOrder(t, f, u.ID)

	link, err := f.orders.Whatsapp(ctx, u.ID, o.ID)
	require.NoError(t, err)
	assert.Contains(t, link.URL, "https://wa.me/919509899906?text=")
	assert.Contains(t, link.Message, "Money Plant")

	got, err := f.orders.Get(ctx, u.ID, o.ID)
	require.NoError(t, err)
	assert.True(t, got.WhatsappSent)
}

// ─── Admin ────────────────────────────────────────────────────────────────────

func TestDashboardIsCachedUntilOrderWrite(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.register(t, "asha@example.com", "9000000001")
	placeOrder(t, f, u.ID)

	d, err := f.admin.Dashboard(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, d.TotalOrders)
	assert.EqualValues(t, 1, d.TodayOrders)
	assert.EqualValues(t, 1, d.TotalUsers)
	assert.Len(t, d.RecentOrders, 1)

	// a write behind the service's back is not seen while cached
	require.NoError(t, f.store.Users().Create(ctx, &models.User{Name: "b", Email: "b@example.com", Phone: "9000000002", Password: "x", Role: models.RoleUser}))
	d, err = f.admin.Dashboard(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, d.TotalUsers)

	second := placeOrder(t, f, u.ID)
	_, err = f.admin.UpdateOrder(ctx, second.ID, services.AdminOrderUpdate{Status: strp(models.StatusCompleted)})
	require.NoError(t, err)

	d, err = f.admin.Dashboard(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, d.TotalOrders)
	assert.EqualValues(t, 2, d.TotalUsers)
	assert.EqualValues(t, 1, d.CompletedOrders)
	assert.Equal(t, 50.0, d.TotalRevenue)
	assert.Contains(t, d.StatusDistribution, services.StatusCount{Status: models.StatusCompleted, Count: 1})
}

func strp(s string) *string { return &s }

func TestAdminUpdateOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.register(t, "asha@example.com", "9000000001")
	o := placeOrder(t, f, u.ID)

	_, err := f.admin.UpdateOrder(ctx, o.ID, services.AdminOrderUpdate{Status: strp("lost")})
	requireStatus(t, err, http.StatusBadRequest, "Invalid status value")
	_, err = f.admin.UpdateOrder(ctx, o.ID, services.AdminOrderUpdate{EstimatedDeliveryDate: strp("someday")})
	requireStatus(t, err, http.StatusBadRequest, "Invalid estimatedDeliveryDate")

	got, err := f.admin.UpdateOrder(ctx, o.ID, services.AdminOrderUpdate{
		Status:                strp(models.StatusProcessing),
		AdminNotes:            strp("call first"),
		EstimatedDeliveryDate: strp("2026-11-02"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)
	assert.Equal(t, "call first", got.AdminNotes)
	require.NotNil(t, got.EstimatedDeliveryDate)
	assert.Equal(t, 2, got.EstimatedDeliveryDate.Day())
	require.NotNil(t, got.Customer)
	assert.Equal(t, u.Name, got.Customer.Name)

	require.NoError(t, f.admin.DeleteOrder(ctx, o.ID))
	err = f.admin.DeleteOrder(ctx, o.ID)
	requireStatus(t, err, http.StatusNotFound, "Order not found")
}

func TestAdminListsAndUserDetails(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.register(t, "rose@garden.in", "9000000001")
	f.register(t, "fern@shop.in", "9000000002")
	placeOrder(t, f, a.ID)
	placeOrder(t, f, a.ID)

	users, err := f.admin.ListUsers(ctx, "garden", 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, users.Total)

	orders, err := f.admin.ListOrders(ctx, services.AdminOrderQuery{Status: "all"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, orders.Total)
	assert.Equal(t, 20, orders.Limit)
	for _, o := range orders.Orders {
		require.NotNil(t, o.Customer)
		assert.Equal(t, "rose@garden.in", o.Customer.Email)
	}

	d, err := f.admin.UserDetails(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, d.Orders, 2)
	assert.EqualValues(t, 2, d.Stats.TotalOrders)
	assert.Equal(t, 100.0, d.Stats.TotalSpent)

	_, err = f.admin.UserDetails(ctx, repositories.NewID())
	requireStatus(t, err, http.StatusNotFound, "User not found")
}

// ─── Users ────────────────────────────────────────────────────────────────────

func TestRegisterValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	cases := []struct {
		in  services.RegisterInput
		msg string
	}{
		{services.RegisterInput{Name: "a", Email: "a@x.in", Password: "secret1"}, "All fields (name, email, password, phone) are required"},
		{services.RegisterInput{Name: "a", Email: "nope", Password: "secret1", Phone: "9000000001"}, "Please enter a valid email address"},
		{services.RegisterInput{Name: "a", Email: "a@x.in", Password: "123", Phone: "9000000001"}, "Password must be at least 6 characters long"},
		{services.RegisterInput{Name: "a", Email: "a@x.in", Password: "secret1", Phone: "12345"}, "Please enter a valid 10-digit phone number"},
	}
	for _, tc := range cases {
		_, err := f.users.Register(ctx, tc.in)
		requireStatus(t, err, http.StatusBadRequest, tc.msg)
	}

	f.register(t, "a@x.in", "9000000001")
	_, err := f.users.Register(ctx, services.RegisterInput{Name: "b", Email: "b@x.in", Password: "secret1", Phone: "9000000001"})
	requireStatus(t, err, http.StatusBadRequest, "Email or phone number already in use")
}

func TestLoginRefreshLogout(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.register(t, "asha@example.com", "9000000001")

	_, err := f.users.Login(ctx, services.LoginInput{Email: "nobody@example.com", Password: "secret1"})
	requireStatus(t, err, http.StatusBadRequest, "User not found")
	_, err = f.users.Login(ctx, services.LoginInput{Email: "asha@example.com", Password: "wrong!"})
	requireStatus(t, err, http.StatusBadRequest, "Invalid password")

	sess, err := f.users.Login(ctx, services.LoginInput{Email: "ASHA@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.AccessToken)

	access, err := f.users.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, access)

	_, err = f.users.Refresh(ctx, "")
	requireStatus(t, err, http.StatusBadRequest, "No refresh token found")
	_, err = f.users.Refresh(ctx, "garbage")
	requireStatus(t, err, http.StatusBadRequest, "User not found")

	require.NoError(t, f.users.Logout(ctx, sess.RefreshToken))
	_, err = f.users.Refresh(ctx, sess.RefreshToken)
	requireStatus(t, err, http.StatusBadRequest, "User not found")
}

func TestUpdateMeUniqueness(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.register(t, "a@example.com", "9000000001")
	f.register(t, "b@example.com", "9000000002")

	_, err := f.users.UpdateMe(ctx, a.ID, services.ProfileUpdate{Email: strp("b@example.com")})
	requireStatus(t, err, http.StatusBadRequest, "email already exists")
	_, err = f.users.UpdateMe(ctx, a.ID, services.ProfileUpdate{Phone: strp("9000000002")})
	requireStatus(t, err, http.StatusBadRequest, "phone already exists")

	u, err := f.users.UpdateMe(ctx, a.ID, services.ProfileUpdate{Name: strp("Asha R")})
	require.NoError(t, err)
	assert.Equal(t, "asha r", u.Name)
}

func TestDeleteMeRemovesCart(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.register(t, "a@example.com", "9000000001")
	_, err := f.carts.AddItem(ctx, u.ID, moneyPlant(1))
	require.NoError(t, err)

	require.NoError(t, f.users.DeleteMe(ctx, u.ID))
	_, err = f.store.Carts().FindByUser(ctx, u.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = f.users.Me(ctx, u.ID)
	requireStatus(t, err, http.StatusNotFound, "User not found")
}

func TestForgotAndResetPassword(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.register(t, "asha@example.com", "9000000001")

	err := f.users.ForgotPassword(ctx, "ghost@example.com")
	requireStatus(t, err, http.StatusBadRequest, "User not found")

	require.NoError(t, f.users.ForgotPassword(ctx, "asha@example.com"))
	sent := f.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"asha@example.com"}, sent[0].Recipients())

	token := extractToken(t, sent[0].Content())

	err = f.users.ResetPassword(ctx, "wrong", "newpass1")
	requireStatus(t, err, http.StatusBadRequest, "Invalid token or token has expired")

	require.NoError(t, f.users.ResetPassword(ctx, token, "newpass1"))
	_, err = f.users.Login(ctx, services.LoginInput{Email: "asha@example.com", Password: "newpass1"})
	require.NoError(t, err)

	err = f.users.ResetPassword(ctx, token, "another1")
	requireStatus(t, err, http.StatusBadRequest, "Invalid token or token has expired")
}

// extractToken finds the 40-hex reset token in the mail body.
func extractToken(t *testing.T, body string) string {
	t.Helper()
	isHex := func(c byte) bool { return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') }
	for i := 0; i+40 <= len(body); i++ {
		j := i
		for j < len(body) && isHex(body[j]) {
			j++
		}
		if j-i == 40 {
			return body[i:j]
		}
		if j > i {
			i = j
		}
	}
	t.Fatal("no reset token in mail body")
	return ""
}

func TestForgotPasswordMailFailureClearsToken(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.register(t, "asha@example.com", "9000000001")
	f.mailer.Err = errors.New("smtp down")

	err := f.users.ForgotPassword(ctx, "asha@example.com")
	requireStatus(t, err, http.StatusInternalServerError, "Failed to send email")

	stored, err := f.store.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.ResetPasswordToken)
	assert.Nil(t, stored.ResetPasswordExpire)
}

// ─── Contact ──────────────────────────────────────────────────────────────────

func TestContact(t *testing.T) {
	rec := &mail.Recorder{}
	svc := services.NewContactService(rec, nil, "inbox@example.com")
	ctx := context.Background()

	err := svc.Send(ctx, mails.Contact{FirstName: "Asha", Email: "a@x.in", Message: "hi"})
	requireStatus(t, err, http.StatusBadRequest, "First name, last name, email, and message are required")
	err = svc.Send(ctx, mails.Contact{FirstName: "Asha", LastName: "R", Email: "bad", Message: "hi"})
	requireStatus(t, err, http.StatusBadRequest, "Please enter a valid email address")

	require.NoError(t, svc.Send(ctx, mails.Contact{FirstName: "Asha", LastName: "R", Email: "a@x.in", Message: "Do you deliver?"}))
	sent := rec.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, []string{"inbox@example.com"}, sent[0].Recipients())
	assert.Equal(t, []string{"a@x.in"}, sent[1].Recipients())

	rec.Err = errors.New("down")
	err = svc.Send(ctx, mails.Contact{FirstName: "Asha", LastName: "R", Email: "a@x.in", Message: "again"})
	requireStatus(t, err, http.StatusInternalServerError, "Failed to send message. Please try again later.")
}

func TestEnsureAdminCreatesThenPromotes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.users.EnsureAdmin(ctx, services.RegisterInput{
		Name: "Admin", Email: "admin@gmail.com", Password: "12345678", Phone: "1234567890",
	})
	require.NoError(t, err)
	assert.True(t, created)
	u, err := f.store.Users().FindByEmail(ctx, "admin@gmail.com")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())

	customer := f.register(t, "asha@example.com", "9876543210")
	created, err = f.users.EnsureAdmin(ctx, services.RegisterInput{Email: "Asha@Example.com"})
	require.NoError(t, err)
	assert.False(t, created)
	u, err = f.store.Users().FindByID(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
}
