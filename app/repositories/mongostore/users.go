package mongostore

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/naturelovers/storefront/app/models"
	"github.com/naturelovers/storefront/app/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type userRepo struct {
	col *mongo.Collection
}

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	if u.ID == "" {
		u.ID = repositories.NewID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	_, err := r.col.InsertOne(ctx, u)
	return translate(err, "email", "phone")
}

func (r *userRepo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userRepo) FindByRefreshToken(ctx context.Context, hash string) (*models.User, error) {
	if hash == "" {
		return nil, repositories.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"refreshToken": hash})
}

func (r *userRepo) FindByResetToken(ctx context.Context, hash string, now time.Time) (*models.User, error) {
	if hash == "" {
		return nil, repositories.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"resetPasswordToken": hash, "resetPasswordExpire": bson.M{"$gt": now}})
}

func (r *userRepo) Conflicting(ctx context.Context, email, phone, excludeID string) (*models.User, error) {
	return r.findOne(ctx, bson.M{
		"$or": bson.A{bson.M{"email": email}, bson.M{"phone": phone}},
		"_id": bson.M{"$ne": excludeID},
	})
}

func (r *userRepo) Update(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		return translate(err, "email", "phone")
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongostore: delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *userRepo) List(ctx context.Context, f repositories.UserFilter) ([]models.User, int64, error) {
	filter := bson.M{}
	if s := strings.TrimSpace(f.Search); s != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		filter["$or"] = bson.A{bson.M{"name": re}, bson.M{"email": re}, bson.M{"phone": re}}
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("mongostore: count users: %w", err)
	}

	cur, err := r.col.Find(ctx, filter, paged(f.Page, bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, 0, fmt.Errorf("mongostore: list users: %w", err)
	}
	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, fmt.Errorf("mongostore: decode users: %w", err)
	}
	return users, total, nil
}

func (r *userRepo) Count(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{})
}

func (r *userRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.col.UpdateMany(ctx,
		bson.M{"resetPasswordExpire": bson.M{"$lt": now}},
		bson.M{"$unset": bson.M{"resetPasswordToken": "", "resetPasswordExpire": ""}},
	)
	if err != nil {
		return 0, fmt.Errorf("mongostore: clear reset tokens: %w", err)
	}
	return res.ModifiedCount, nil
}
