// Package queue runs background jobs.
//
//	q := queue.New(queue.NewMemoryDriver())
//	q.Register(jobs.OrderConfirmationName, func() queue.Job { return &jobs.SendOrderConfirmation{} })
//	q.Dispatch(ctx, &jobs.SendOrderConfirmation{OrderID: id})
//	go q.Work(ctx, 2)
//
// Jobs travel as JSON envelopes, so any driver (memory, Redis) can carry
// them across processes. A job that keeps failing is retried MaxRetry times
// and then handed to the FailedRecorder.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/naturelovers/storefront/pkg/logger"
	"github.com/naturelovers/storefront/pkg/metrics"
)

// Job is one unit of background work.
type Job interface {
	Handle(ctx context.Context) error
}

// Named jobs choose their registry name; others register under %T.
type Named interface {
	JobName() string
}

// Driver is the queue storage backend. Pop blocks until a payload is ready,
// ctx ends, or the driver's own poll timeout passes (nil, nil).
type Driver interface {
	Push(ctx context.Context, payload []byte) error
	Pop(ctx context.Context) ([]byte, error)
}

// ErrUnknownJob is returned by Dispatch for a job type nobody registered.
var ErrUnknownJob = errors.New("queue: job type not registered")

// Manager dispatches and works jobs over one driver.
type Manager struct {
	mu       sync.RWMutex
	driver   Driver
	registry map[string]func() Job
	failed   FailedRecorder

	// MaxRetry is the number of attempts per job.
	MaxRetry int
	// Backoff is multiplied by the attempt number between attempts.
	Backoff time.Duration
}

// New creates a manager with three attempts and one second linear backoff.
func New(d Driver) *Manager {
	return &Manager{
		driver:   d,
		registry: map[string]func() Job{},
		MaxRetry: 3,
		Backoff:  time.Second,
	}
}

// UseFailedRecorder persists jobs that exhaust their retries.
func (m *Manager) UseFailedRecorder(r FailedRecorder) {
	m.mu.Lock()
	m.failed = r
	m.mu.Unlock()
}

// Register makes a job type decodable by name.
func (m *Manager) Register(name string, factory func() Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[name] = factory
}

func jobName(job Job) string {
	if n, ok := job.(Named); ok {
		return n.JobName()
	}
	return fmt.Sprintf("%T", job)
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatch pushes job onto the queue.
func (m *Manager) Dispatch(ctx context.Context, job Job) error {
	name := jobName(job)

	m.mu.RLock()
	_, known := m.registry[name]
	d := m.driver
	m.mu.RUnlock()
	if !known {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job %s: %w", name, err)
	}
	env, err := json.Marshal(envelope{Type: name, Payload: payload})
	if err != nil {
		return fmt.Errorf("queue: marshal envelope: %w", err)
	}
	return d.Push(ctx, env)
}

// Work runs n workers and blocks until ctx is cancelled and every worker
// has finished its current job.
func (m *Manager) Work(ctx context.Context, n int) {
	if n < 1 {
		n = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.work(ctx)
		}()
	}
	logger.Info("queue: workers started", "count", n)
	wg.Wait()
	logger.Info("queue: workers stopped")
}

func (m *Manager) work(ctx context.Context) {
	for ctx.Err() == nil {
		raw, err := m.driver.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("queue: pop failed", "error", err)
			if !sleep(ctx, 500*time.Millisecond) {
				return
			}
			continue
		}
		if raw == nil {
			continue
		}
		m.process(ctx, raw)
	}
}

// process decodes and runs one payload. Exposed to tests through Drain.
func (m *Manager) process(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Error("queue: bad envelope", "error", err)
		return
	}

	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	m.mu.RUnlock()
	if !ok {
		logger.Warn("queue: unregistered job type", "type", env.Type)
		return
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		logger.Error("queue: unmarshal payload", "type", env.Type, "error", err)
		return
	}
	m.runWithRetry(ctx, job, env.Type, env.Payload)
}

func (m *Manager) runWithRetry(ctx context.Context, job Job, name string, payload []byte) {
	attempts := max(m.MaxRetry, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		lastErr = job.Handle(ctx)
		if lastErr == nil {
			metrics.RecordQueueJob(name, "success", start)
			logger.Debug("queue: job processed", "type", name)
			return
		}
		metrics.RecordQueueJob(name, "failure", start)
		logger.Warn("queue: job failed", "type", name, "attempt", attempt, "error", lastErr)
		if attempt < attempts && !sleep(ctx, time.Duration(attempt)*m.Backoff) {
			break
		}
	}

	m.persistFailed(ctx, name, payload, lastErr, attempts)
	logger.Error("queue: job exhausted retries", "type", name, "error", lastErr)
}

// Drain processes everything currently queued on a memory driver and
// returns. It is meant for CLI one-shots and tests.
func (m *Manager) Drain(ctx context.Context) int {
	md, ok := m.driver.(*MemoryDriver)
	if !ok {
		return 0
	}
	n := 0
	for {
		select {
		case raw := <-md.ch:
			m.process(ctx, raw)
			n++
		default:
			return n
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
