package sqlstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/naturelovers/storefront/app/models"
	"gorm.io/gorm"
)

type outboxRepo struct {
	db *gorm.DB
}

func (r *outboxRepo) Append(ctx context.Context, e *models.OutboxEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return translate(r.db.WithContext(ctx).Create(e).Error, "id")
}

func (r *outboxRepo) Pending(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	var events []models.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("published_at IS NULL").
		Order("created_at asc").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *outboxRepo) MarkPublished(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Update("published_at", at).Error
}

func (r *outboxRepo) MarkFailed(ctx context.Context, id, reason string) error {
	return r.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
		}).Error
}

func (r *outboxRepo) Drop(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND published_at IS NULL", id).
		Delete(&models.OutboxEvent{}).Error
}

type failedJobRepo struct {
	db *gorm.DB
}

func (r *failedJobRepo) Record(ctx context.Context, j *models.FailedJob) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(j).Error
}

func (r *failedJobRepo) Recent(ctx context.Context, limit int) ([]models.FailedJob, error) {
	var jobs []models.FailedJob
	err := r.db.WithContext(ctx).Order("failed_at desc").Limit(limit).Find(&jobs).Error
	return jobs, err
}
