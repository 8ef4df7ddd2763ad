package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/naturelovers/storefront/app/models"
	"github.com/naturelovers/storefront/app/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type orderRepo struct {
	col *mongo.Collection
}

func (r *orderRepo) Create(ctx context.Context, o *models.Order) error {
	now := time.Now().UTC()
	if o.ID == "" {
		o.ID = repositories.NewID()
	}
	if o.CheckoutKey == "" {
		o.CheckoutKey = o.ID
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	_, err := r.col.InsertOne(ctx, o)
	return translate(err, "checkoutKey")
}

func (r *orderRepo) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var o models.Order
	if err := r.col.FindOne(ctx, filter).Decode(&o); err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *orderRepo) FindByID(ctx context.Context, id string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *orderRepo) FindByCheckoutKey(ctx context.Context, key string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"checkoutKey": key})
}

func filterOf(userID, status string) bson.M {
	filter := bson.M{}
	if userID != "" {
		filter["user"] = userID
	}
	if status != "" {
		filter["status"] = status
	}
	return filter
}

func (r *orderRepo) List(ctx context.Context, f repositories.OrderFilter) ([]models.Order, int64, error) {
	filter := filterOf(f.UserID, f.Status)

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("mongostore: count orders: %w", err)
	}

	dir := -1
	if f.Ascending {
		dir = 1
	}
	cur, err := r.col.Find(ctx, filter, paged(f.Page, bson.D{{Key: f.SortField(), Value: dir}}))
	if err != nil {
		return nil, 0, fmt.Errorf("mongostore: list orders: %w", err)
	}
	orders := []models.Order{}
	if err := cur.All(ctx, &orders); err != nil {
		return nil, 0, fmt.Errorf("mongostore: decode orders: %w", err)
	}
	return orders, total, nil
}

func (r *orderRepo) Update(ctx context.Context, id string, p repositories.OrderPatch) (*models.Order, error) {
	if p.Empty() {
		return r.FindByID(ctx, id)
	}
	set := bson.M{"updatedAt": time.Now().UTC()}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.AdminNotes != nil {
		set["adminNotes"] = *p.AdminNotes
	}
	if p.EstimatedDeliveryDate != nil {
		set["estimatedDeliveryDate"] = p.EstimatedDeliveryDate.UTC()
	}
	if p.WhatsappSent != nil {
		set["whatsappSent"] = *p.WhatsappSent
	}

	var o models.Order
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&o); err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *orderRepo) MarkEmailSent(ctx context.Context, id string) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"emailSent": true, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("mongostore: mark email sent: %w", err)
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *orderRepo) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongostore: delete order: %w", err)
	}
	if res.DeletedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *orderRepo) Summarize(ctx context.Context, f repositories.SummaryFilter) (repositories.OrderSummary, error) {
	match := filterOf(f.UserID, "")
	if !f.Since.IsZero() {
		match["createdAt"] = bson.M{"$gte": f.Since}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":    "$status",
			"count":  bson.M{"$sum": 1},
			"amount": bson.M{"$sum": "$totalAmount"},
			"items":  bson.M{"$sum": "$totalItems"},
		}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return repositories.OrderSummary{}, fmt.Errorf("mongostore: summarize orders: %w", err)
	}

	var rows []struct {
		Status string  `bson:"_id"`
		Count  int64   `bson:"count"`
		Amount float64 `bson:"amount"`
		Items  int64   `bson:"items"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return repositories.OrderSummary{}, fmt.Errorf("mongostore: decode summary: %w", err)
	}

	sum := repositories.OrderSummary{
		CountByStatus:  map[string]int64{},
		AmountByStatus: map[string]float64{},
	}
	for _, row := range rows {
		sum.Count += row.Count
		sum.TotalAmount += row.Amount
		sum.TotalItems += row.Items
		sum.CountByStatus[row.Status] = row.Count
		sum.AmountByStatus[row.Status] = row.Amount
	}
	return sum, nil
}
