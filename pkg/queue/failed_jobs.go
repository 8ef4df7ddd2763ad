package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/naturelovers/storefront/app/models"
	"github.com/naturelovers/storefront/pkg/logger"
)

// FailedRecorder stores jobs that exhausted their retries.
// repositories.FailedJobRepository satisfies it.
type FailedRecorder interface {
	Record(ctx context.Context, j *models.FailedJob) error
}

func (m *Manager) persistFailed(ctx context.Context, name string, payload []byte, lastErr error, attempts int) {
	m.mu.RLock()
	r := m.failed
	m.mu.RUnlock()
	if r == nil {
		return
	}

	rec := &models.FailedJob{
		ID:       uuid.NewString(),
		Type:     name,
		Payload:  string(payload),
		Attempts: attempts,
		FailedAt: time.Now().UTC(),
	}
	if lastErr != nil {
		rec.Error = lastErr.Error()
	}
	// the job context may already be done during shutdown
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.Record(saveCtx, rec); err != nil {
		logger.Error("queue: persist failed job", "type", name, "error", err)
	}
}
