package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/naturelovers/storefront/app/models"
	"github.com/naturelovers/storefront/app/repositories"
	"github.com/naturelovers/storefront/pkg/orm"
	"gorm.io/gorm"
)

type userRepo struct {
	db *gorm.DB
}

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = repositories.NewID()
	}
	return translate(r.db.WithContext(ctx).Create(u).Error, "email", "phone")
}

func (r *userRepo) first(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where(query, args...).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *userRepo) FindByRefreshToken(ctx context.Context, hash string) (*models.User, error) {
	if hash == "" {
		return nil, repositories.ErrNotFound
	}
	return r.first(ctx, "refresh_token = ?", hash)
}

func (r *userRepo) FindByResetToken(ctx context.Context, hash string, now time.Time) (*models.User, error) {
	if hash == "" {
		return nil, repositories.ErrNotFound
	}
	return r.first(ctx, "reset_password_token = ? AND reset_password_expire > ?", hash, now.UTC())
}

func (r *userRepo) Conflicting(ctx context.Context, email, phone, excludeID string) (*models.User, error) {
	return r.first(ctx, "(email = ? OR phone = ?) AND id <> ?", email, phone, excludeID)
}

func (r *userRepo) Update(ctx context.Context, u *models.User) error {
	res := r.db.WithContext(ctx).Save(u)
	return translate(res.Error, "email", "phone")
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("sqlstore: delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *userRepo) List(ctx context.Context, f repositories.UserFilter) ([]models.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.User{})
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?", like, like, like)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("sqlstore: count users: %w", err)
	}

	var users []models.User
	err := q.Order("created_at desc").Scopes(orm.Paginate(f.Page.Page, f.Limit)).Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("sqlstore: list users: %w", err)
	}
	return users, total, nil
}

func (r *userRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

func (r *userRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("reset_password_expire IS NOT NULL AND reset_password_expire < ?", now.UTC()).
		Updates(map[string]interface{}{"reset_password_token": "", "reset_password_expire": nil})
	return res.RowsAffected, res.Error
}
