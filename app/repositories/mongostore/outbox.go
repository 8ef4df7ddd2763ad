package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/naturelovers/storefront/app/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type outboxRepo struct {
	col *mongo.Collection
}

func (r *outboxRepo) Append(ctx context.Context, e *models.OutboxEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, e)
	return translate(err, "_id")
}

func (r *outboxRepo) Pending(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}).SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, bson.M{"publishedAt": nil}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: pending outbox: %w", err)
	}
	var events []models.OutboxEvent
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("mongostore: decode outbox: %w", err)
	}
	return events, nil
}

func (r *outboxRepo) MarkPublished(ctx context.Context, id string, at time.Time) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"publishedAt": at}})
	return err
}

func (r *outboxRepo) MarkFailed(ctx context.Context, id, reason string) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{"attempts": 1},
		"$set": bson.M{"lastError": reason},
	})
	return err
}

func (r *outboxRepo) Drop(ctx context.Context, id string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id, "publishedAt": nil})
	return err
}

type failedJobRepo struct {
	col *mongo.Collection
}

func (r *failedJobRepo) Record(ctx context.Context, j *models.FailedJob) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	_, err := r.col.InsertOne(ctx, j)
	return err
}

func (r *failedJobRepo) Recent(ctx context.Context, limit int) ([]models.FailedJob, error) {
	opts := options.Find().SetSort(bson.D{{Key: "failedAt", Value: -1}}).SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: recent failed jobs: %w", err)
	}
	var jobs []models.FailedJob
	if err := cur.All(ctx, &jobs); err != nil {
		return nil, fmt.Errorf("mongostore: decode failed jobs: %w", err)
	}
	return jobs, nil
}
