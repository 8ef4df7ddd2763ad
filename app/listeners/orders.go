// Package listeners reacts to relayed outbox events on the in-process bus.
package listeners

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/naturelovers/storefront/app/jobs"
	"github.com/naturelovers/storefront/app/models"
	"github.com/naturelovers/storefront/pkg/event"
	"github.com/naturelovers/storefront/pkg/queue"
)

// LiveFeed receives events for connected admin dashboards. *ws.Hub is one.
type LiveFeed interface {
	Publish(event string, data any)
}

// Orders wires the order topics.
type Orders struct {
	Queue *queue.Manager
	Jobs  *jobs.Deps
	Live  LiveFeed
}

// Register subscribes l to bus.
func (l *Orders) Register(bus *event.Bus) {
	bus.Listen(models.TopicOrderCreated, l.created)
	bus.Listen(models.TopicOrderCreated, l.forward)
	bus.Listen(models.TopicOrderUpdated, l.forward)
}

func outboxEvent(payload interface{}) (models.OutboxEvent, error) {
	switch e := payload.(type) {
	case models.OutboxEvent:
		return e, nil
	case *models.OutboxEvent:
		return *e, nil
	}
	return models.OutboxEvent{}, fmt.Errorf("listeners: unexpected payload %T", payload)
}

// created queues the confirmation mail and owner notification.
func (l *Orders) created(ctx context.Context, payload interface{}) error {
	e, err := outboxEvent(payload)
	if err != nil {
		return err
	}
	if l.Queue == nil {
		return nil
	}
	return l.Queue.Dispatch(ctx, jobs.NewSendOrderConfirmation(l.Jobs, e.AggregateID))
}

// forward pushes the order snapshot to the admin live feed.
func (l *Orders) forward(_ context.Context, payload interface{}) error {
	e, err := outboxEvent(payload)
	if err != nil {
		return err
	}
	if l.Live == nil {
		return nil
	}
	var data any = json.RawMessage(e.Payload)
	if !json.Valid([]byte(e.Payload)) {
		data = map[string]string{"_id": e.AggregateID}
	}
	l.Live.Publish(e.Topic, data)
	return nil
}
