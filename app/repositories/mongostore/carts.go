package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/naturelovers/storefront/app/models"
	"github.com/naturelovers/storefront/app/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type cartRepo struct {
	col *mongo.Collection
}

func (r *cartRepo) FindByUser(ctx context.Context, userID string) (*models.Cart, error) {
	var c models.Cart
	if err := r.col.FindOne(ctx, bson.M{"user": userID}).Decode(&c); err != nil {
		return nil, translate(err)
	}
	if c.Items == nil {
		c.Items = []models.LineItem{}
	}
	return &c, nil
}

func (r *cartRepo) Create(ctx context.Context, c *models.Cart) error {
	now := time.Now().UTC()
	if c.ID == "" {
		c.ID = repositories.NewID()
	}
	if c.Items == nil {
		c.Items = []models.LineItem{}
	}
	c.CreatedAt, c.UpdatedAt = now, now
	_, err := r.col.InsertOne(ctx, c)
	return translate(err, "user")
}

func (r *cartRepo) Save(ctx context.Context, c *models.Cart, expected int64) error {
	next := *c
	next.Revision = expected + 1
	next.UpdatedAt = time.Now().UTC()
	if next.Items == nil {
		next.Items = []models.LineItem{}
	}

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": c.ID, "revision": expected},
		bson.M{"$set": bson.M{
			"items":       next.Items,
			"totalAmount": next.TotalAmount,
			"totalItems":  next.TotalItems,
			"revision":    next.Revision,
			"checkoutKey": next.CheckoutKey,
			"updatedAt":   next.UpdatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("mongostore: save cart: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := r.col.CountDocuments(ctx, bson.M{"_id": c.ID})
		if err != nil {
			return fmt.Errorf("mongostore: save cart: %w", err)
		}
		if n == 0 {
			return repositories.ErrNotFound
		}
		return repositories.ErrRevisionConflict
	}

	*c = next
	return nil
}

func (r *cartRepo) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"user": userID})
	return err
}
