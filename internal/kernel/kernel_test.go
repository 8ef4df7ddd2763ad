package kernel

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/naturelovers/storefront/app/services"
	"github.com/naturelovers/storefront/internal/testdb"
	"github.com/naturelovers/storefront/pkg/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type client struct {
	t     *testing.T
	h     http.Handler
	token string
}

func (c *client) do(method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func decodeData(t *testing.T, env envelope, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

func newTestApp(t *testing.T) (*App, *mail.Recorder) {
	t.Helper()
	rec := &mail.Recorder{}
	return New(Deps{Store: testdb.New(t), Mailer: rec}), rec
}

func TestProbesAndFallbacks(t *testing.T) {
	app, _ := newTestApp(t)
	c := &client{t: t, h: app.Handler()}

	rec, env := c.do(http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "pong", env.Message)
	assert.Contains(t, string(env.Data), `"time"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec, env = c.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", env.Message)

	rec, env = c.do(http.MethodGet, "/api/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)

	rec, env = c.do(http.MethodGet, "/api/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)
}

func TestShopperJourney(t *testing.T) {
	app, mailer := newTestApp(t)
	c := &client{t: t, h: app.Handler()}
	ctx := context.Background()

	rec, env := c.do(http.MethodPost, "/api/user/register", services.RegisterInput{
		Name: "Asha", Email: "asha@example.com", Password: "secret1", Phone: "9876543210",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "refreshToken=")
	var sess struct {
		AccessToken string `json:"accessToken"`
	}
	decodeData(t, env, &sess)
	require.NotEmpty(t, sess.AccessToken)
	c.token = sess.AccessToken

	plant := map[string]any{"itemId": "5", "name": "Money Plant", "type": "plant", "price": 50, "quantity": 2}
	rec, _ = c.do(http.MethodPost, "/api/cart/add", plant)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	plant["quantity"] = 1
	rec, env = c.do(http.MethodPost, "/api/cart/add", plant)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Item added to cart successfully", env.Message)

	rec, env = c.do(http.MethodGet, "/api/cart/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cart struct {
		Items []struct {
			Quantity int `json:"quantity"`
		} `json:"items"`
		TotalAmount float64 `json:"totalAmount"`
	}
	decodeData(t, env, &cart)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, 150.0, cart.TotalAmount)

	rec, env = c.do(http.MethodPost, "/api/orders/create", map[string]any{
		"contactInfo": map[string]string{"phone": "9876543210", "email": "asha@example.com"},
		"notes":       "Please call before delivery",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order struct {
		ID          string  `json:"_id"`
		Status      string  `json:"status"`
		TotalAmount float64 `json:"totalAmount"`
	}
	decodeData(t, env, &order)
	assert.Equal(t, "confirmed", order.Status)
	assert.Equal(t, 150.0, order.TotalAmount)

	_, env = c.do(http.MethodGet, "/api/cart", nil)
	decodeData(t, env, &cart)
	assert.Empty(t, cart.Items)

	relayed, err := app.Relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, relayed, 1)
	assert.Equal(t, 1, app.Queue.Drain(ctx))
	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.True(t, strings.HasSuffix(sent[0].SubjectLine(), order.ID))

	// customers stay out of the admin area
	rec, _ = c.do(http.MethodGet, "/api/admin/stats", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminSeesDashboard(t *testing.T) {
	app, _ := newTestApp(t)
	c := &client{t: t, h: app.Handler()}

	_, err := app.Users.EnsureAdmin(context.Background(), services.RegisterInput{
		Name: "Admin", Email: "admin@gmail.com", Password: "12345678", Phone: "1234567890",
	})
	require.NoError(t, err)

	rec, env := c.do(http.MethodPost, "/api/user/login", services.LoginInput{Email: "admin@gmail.com", Password: "12345678"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sess struct {
		AccessToken string `json:"accessToken"`
	}
	decodeData(t, env, &sess)
	c.token = sess.AccessToken

	rec, env = c.do(http.MethodGet, "/api/admin/stats", nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Dashboard stats fetched successfully", env.Message)
}

func TestRoutesAreNamed(t *testing.T) {
	app, _ := newTestApp(t)
	names := map[string]bool{}
	for _, r := range app.Router.Routes() {
		names[r.Name] = true
	}
	for _, want := range []string{"ping", "cart.add", "orders.create", "admin.live", "contact.send"} {
		assert.True(t, names[want], want)
	}
}

func TestSchedulerEntries(t *testing.T) {
	app, _ := newTestApp(t)
	list := strings.Join(app.Scheduler.List(), "\n")
	assert.Contains(t, list, "outbox:relay")
	assert.Contains(t, list, "users:sweep-reset-tokens")
	assert.NotContains(t, list, "self:ping")
}
