package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/naturelovers/storefront/app/jobs"
	"github.com/naturelovers/storefront/app/listeners"
	"github.com/naturelovers/storefront/app/models"
	"github.com/naturelovers/storefront/app/repositories"
	"github.com/naturelovers/storefront/internal/testdb"
	"github.com/naturelovers/storefront/pkg/event"
	"github.com/naturelovers/storefront/pkg/mail"
	"github.com/naturelovers/storefront/pkg/notification"
	"github.com/naturelovers/storefront/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slackSink struct {
	mu     sync.Mutex
	bodies []map[string]any
}

func (s *slackSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)
	s.mu.Lock()
	s.bodies = append(s.bodies, body)
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *slackSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bodies)
}

func seedOrder(t *testing.T, store repositories.Store, email string) *models.Order {
	t.Helper()
	o := &models.Order{
		ID:     repositories.NewID(),
		UserID: repositories.NewID(),
		Items: []models.LineItem{
			{ItemID: "5", Name: "Money Plant", Type: models.ItemPlant, Price: models.Fixed(50), Quantity: 2},
		},
		TotalAmount: 100,
		TotalItems:  2,
		Status:      models.StatusConfirmed,
		ContactInfo: models.ContactInfo{Phone: "9876543210", Email: email},
		Notes:       "Order placed via website",
	}
	require.NoError(t, store.Orders().Create(context.Background(), o))
	return o
}

func TestSendOrderConfirmation(t *testing.T) {
	store := testdb.New(t)
	rec := &mail.Recorder{}
	sink := &slackSink{}
	srv := httptest.NewServer(sink)
	defer srv.Close()

	deps := &jobs.Deps{Store: store, Mailer: rec, Notifier: &notification.Notifier{SlackWebhook: srv.URL, Timeout: time.Second}}
	o := seedOrder(t, store, "asha@example.com")

	ctx := context.Background()
	require.NoError(t, jobs.NewSendOrderConfirmation(deps, o.ID).Handle(ctx))

	sent := rec.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"asha@example.com"}, sent[0].Recipients())
	assert.Contains(t, sent[0].SubjectLine(), o.ID)
	assert.Equal(t, 1, sink.count())
	assert.Contains(t, sink.bodies[0]["text"], "₹100")

	got, err := store.Orders().FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.EmailSent)

	// a redelivered job does nothing
	require.NoError(t, jobs.NewSendOrderConfirmation(deps, o.ID).Handle(ctx))
	assert.Len(t, rec.Sent(), 1)
	assert.Equal(t, 1, sink.count())
}

func TestSendOrderConfirmationMailFailureRetries(t *testing.T) {
	store := testdb.New(t)
	rec := &mail.Recorder{Err: errors.New("smtp down")}
	deps := &jobs.Deps{Store: store, Mailer: rec}
	o := seedOrder(t, store, "asha@example.com")

	err := jobs.NewSendOrderConfirmation(deps, o.ID).Handle(context.Background())
	require.Error(t, err)

	got, err := store.Orders().FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.False(t, got.EmailSent)
}

func TestSendOrderConfirmationMissingOrder(t *testing.T) {
	store := testdb.New(t)
	deps := &jobs.Deps{Store: store, Mailer: &mail.Recorder{}}
	assert.NoError(t, jobs.NewSendOrderConfirmation(deps, repositories.NewID()).Handle(context.Background()))
}

type feed struct {
	mu     sync.Mutex
	events []string
}

func (f *feed) Publish(event string, _ any) {
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
}

func TestOrderListenersQueueJobAndFeedLive(t *testing.T) {
	store := testdb.New(t)
	rec := &mail.Recorder{}
	deps := &jobs.Deps{Store: store, Mailer: rec}

	q := queue.New(queue.NewMemoryDriver())
	jobs.Register(q, deps)
	live := &feed{}
	bus := event.New()
	(&listeners.Orders{Queue: q, Jobs: deps, Live: live}).Register(bus)

	o := seedOrder(t, store, "asha@example.com")
	payload, err := json.Marshal(o)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, bus.Fire(ctx, models.TopicOrderCreated, models.OutboxEvent{
		ID: "e1", Topic: models.TopicOrderCreated, AggregateID: o.ID, Payload: string(payload),
	}))
	require.NoError(t, bus.Fire(ctx, models.TopicOrderUpdated, models.OutboxEvent{
		ID: "e2", Topic: models.TopicOrderUpdated, AggregateID: o.ID, Payload: string(payload),
	}))

	assert.Equal(t, 1, q.Drain(ctx))
	assert.Len(t, rec.Sent(), 1)
	assert.Equal(t, []string{models.TopicOrderCreated, models.TopicOrderUpdated}, live.events)
}
