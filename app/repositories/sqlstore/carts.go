package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/naturelovers/storefront/app/models"
	"github.com/naturelovers/storefront/app/repositories"
	"gorm.io/gorm"
)

type cartRepo struct {
	db *gorm.DB
}

func (r *cartRepo) FindByUser(ctx context.Context, userID string) (*models.Cart, error) {
	var c models.Cart
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	if c.Items == nil {
		c.Items = []models.LineItem{}
	}
	return &c, nil
}

func (r *cartRepo) Create(ctx context.Context, c *models.Cart) error {
	if c.ID == "" {
		c.ID = repositories.NewID()
	}
	if c.Items == nil {
		c.Items = []models.LineItem{}
	}
	return translate(r.db.WithContext(ctx).Create(c).Error, "user")
}

func (r *cartRepo) Save(ctx context.Context, c *models.Cart, expected int64) error {
	next := *c
	next.Revision = expected + 1
	next.UpdatedAt = time.Now().UTC()
	if next.Items == nil {
		next.Items = []models.LineItem{}
	}

	res := r.db.WithContext(ctx).Model(&next).
		Where("revision = ?", expected).
		Select("items", "total_amount", "total_items", "revision", "checkout_key", "updated_at").
		Updates(&next)
	if res.Error != nil {
		return fmt.Errorf("sqlstore: save cart: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&models.Cart{}).Where("id = ?", c.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("sqlstore: save cart: %w", err)
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
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Cart{}).Error
}
