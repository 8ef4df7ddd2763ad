// Package broker delivers outbox events: to Kafka through franz-go when
// brokers are configured and to the in-process event bus always. Relay moves
// pending outbox rows through a Publisher.
package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/naturelovers/storefront/app/models"
	"github.com/naturelovers/storefront/pkg/event"
	"github.com/twmb/franz-go/pkg/kgo"
)

// HeaderEvent carries the outbox topic on every Kafka record.
const HeaderEvent = "event"

// Publisher delivers one event.
type Publisher interface {
	Publish(ctx context.Context, e models.OutboxEvent) error
}

// ─── Kafka ────────────────────────────────────────────────────────────────────

type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Kafka produces each event to one topic, keyed by the order id so all
// events of an order share a partition.
type Kafka struct {
	client producer
	topic  string
}

// NewKafka connects a producer to brokers.
func NewKafka(brokers []string, topic string) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, errors.New("broker: no kafka brokers configured")
	}
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ClientID("storefront"),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("broker: kafka client: %w", err)
	}
	return &Kafka{client: cl, topic: topic}, nil
}

func (k *Kafka) record(e models.OutboxEvent) *kgo.Record {
	return &kgo.Record{
		Topic: k.topic,
		Key:   []byte(e.AggregateID),
		Value: []byte(e.Payload),
		Headers: []kgo.RecordHeader{
			{Key: HeaderEvent, Value: []byte(e.Topic)},
			{Key: "id", Value: []byte(e.ID)},
		},
	}
}

func (k *Kafka) Publish(ctx context.Context, e models.OutboxEvent) error {
	if err := k.client.ProduceSync(ctx, k.record(e)).FirstErr(); err != nil {
		return fmt.Errorf("broker: produce %s: %w", e.Topic, err)
	}
	return nil
}

// Close flushes nothing further and releases the client.
func (k *Kafka) Close() { k.client.Close() }

// ─── Event bus ────────────────────────────────────────────────────────────────

// Bus fires the event on the in-process bus under its topic.
type Bus struct {
	bus *event.Bus
}

func NewBus(b *event.Bus) *Bus { return &Bus{bus: b} }

func (b *Bus) Publish(ctx context.Context, e models.OutboxEvent) error {
	return b.bus.Fire(ctx, e.Topic, e)
}

// ─── Fan-out ──────────────────────────────────────────────────────────────────

// Fanout publishes to each publisher in order and stops at the first error,
// so a Kafka failure leaves local listeners untouched until the retry.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e models.OutboxEvent) error {
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
