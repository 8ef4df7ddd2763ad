package broker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/naturelovers/storefront/app/models"
	"github.com/naturelovers/storefront/app/repositories"
	"github.com/naturelovers/storefront/pkg/logger"
	"github.com/naturelovers/storefront/pkg/metrics"
	"github.com/naturelovers/storefront/pkg/workerpool"
)

const defaultBatch = 50

// Relay publishes pending outbox events and marks the outcome.
type Relay struct {
	outbox repositories.OutboxRepository
	pub    Publisher
	pool   *workerpool.Pool
	now    func() time.Time

	// Batch is the number of events read per pass.
	Batch int
}

// NewRelay publishes through pool; pool bounds how many aggregates are
// delivered at once.
func NewRelay(outbox repositories.OutboxRepository, pub Publisher, pool *workerpool.Pool) *Relay {
	return &Relay{outbox: outbox, pub: pub, pool: pool, now: time.Now, Batch: defaultBatch}
}

// RunOnce relays one batch and returns how many events were published.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	batch := r.Batch
	if batch <= 0 {
		batch = defaultBatch
	}
	events, err := r.outbox.Pending(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("broker: read outbox: %w", err)
	}

	var published atomic.Int64
	for _, group := range byAggregate(events) {
		group := group
		if err := r.pool.Submit(ctx, func() {
			for _, e := range group {
				if !r.deliver(ctx, e) {
					// later events of this aggregate wait for the next pass
					return
				}
				published.Add(1)
			}
		}); err != nil {
			break
		}
	}
	r.pool.Wait()
	return int(published.Load()), ctx.Err()
}

// byAggregate splits events into per-aggregate runs, each in outbox order.
// Runs go out concurrently; events inside a run go out one by one.
func byAggregate(events []models.OutboxEvent) [][]models.OutboxEvent {
	index := map[string]int{}
	var groups [][]models.OutboxEvent
	for _, e := range events {
		i, ok := index[e.AggregateID]
		if !ok {
			i = len(groups)
			index[e.AggregateID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], e)
	}
	return groups
}

func (r *Relay) deliver(ctx context.Context, e models.OutboxEvent) bool {
	log := logger.WithCtx(ctx).With("event_id", e.ID, "topic", e.Topic)

	err := r.pub.Publish(ctx, e)
	metrics.RecordOutbox(e.Topic, err)
	if err != nil {
		log.Warn("outbox: publish failed", "attempt", e.Attempts+1, "error", err)
		if mErr := r.outbox.MarkFailed(context.WithoutCancel(ctx), e.ID, err.Error()); mErr != nil {
			log.Error("outbox: mark failed", "error", mErr)
		}
		return false
	}
	if err := r.outbox.MarkPublished(context.WithoutCancel(ctx), e.ID, r.now().UTC()); err != nil {
		// the event will be delivered again on the next pass
		log.Error("outbox: mark published", "error", err)
		return false
	}
	return true
}

// Task adapts RunOnce to pkg/schedule.
func (r *Relay) Task(ctx context.Context) error {
	n, err := r.RunOnce(ctx)
	if n > 0 {
		logger.Debug("outbox: relayed", "count", n)
	}
	return err
}
