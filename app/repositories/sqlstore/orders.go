package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/naturelovers/storefront/app/models"
	"github.com/naturelovers/storefront/app/repositories"
	"github.com/naturelovers/storefront/pkg/orm"
	"gorm.io/gorm"
)

type orderRepo struct {
	db *gorm.DB
}

var sortColumns = map[string]string{
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"totalAmount": "total_amount",
	"totalItems":  "total_items",
	"status":      "status",
}

func (r *orderRepo) Create(ctx context.Context, o *models.Order) error {
	if o.ID == "" {
		o.ID = repositories.NewID()
	}
	if o.CheckoutKey == "" {
		o.CheckoutKey = o.ID
	}
	return translate(r.db.WithContext(ctx).Create(o).Error, "checkoutKey")
}

func (r *orderRepo) first(ctx context.Context, query string, args ...interface{}) (*models.Order, error) {
	var o models.Order
	if err := r.db.WithContext(ctx).Where(query, args...).First(&o).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *orderRepo) FindByID(ctx context.Context, id string) (*models.Order, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *orderRepo) FindByCheckoutKey(ctx context.Context, key string) (*models.Order, error) {
	return r.first(ctx, "checkout_key = ?", key)
}

func (r *orderRepo) filtered(ctx context.Context, userID, status string) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	return q.Session(&gorm.Session{})
}

func (r *orderRepo) List(ctx context.Context, f repositories.OrderFilter) ([]models.Order, int64, error) {
	q := r.filtered(ctx, f.UserID, f.Status)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("sqlstore: count orders: %w", err)
	}

	dir := "desc"
	if f.Ascending {
		dir = "asc"
	}
	var orders []models.Order
	err := q.Order(sortColumns[f.SortField()] + " " + dir).
		Scopes(orm.Paginate(f.Page.Page, f.Limit)).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("sqlstore: list orders: %w", err)
	}
	return orders, total, nil
}

func (r *orderRepo) Update(ctx context.Context, id string, p repositories.OrderPatch) (*models.Order, error) {
	if !p.Empty() {
		fields := map[string]interface{}{"updated_at": time.Now().UTC()}
		if p.Status != nil {
			fields["status"] = *p.Status
		}
		if p.AdminNotes != nil {
			fields["admin_notes"] = *p.AdminNotes
		}
		if p.EstimatedDeliveryDate != nil {
			fields["estimated_delivery_date"] = p.EstimatedDeliveryDate.UTC()
		}
		if p.WhatsappSent != nil {
			fields["whatsapp_sent"] = *p.WhatsappSent
		}
		res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return nil, fmt.Errorf("sqlstore: update order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, repositories.ErrNotFound
		}
	}
	return r.FindByID(ctx, id)
}

func (r *orderRepo) MarkEmailSent(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("email_sent", true)
	if res.Error != nil {
		return fmt.Errorf("sqlstore: mark email sent: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *orderRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Order{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("sqlstore: delete order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *orderRepo) Summarize(ctx context.Context, f repositories.SummaryFilter) (repositories.OrderSummary, error) {
	q := r.filtered(ctx, f.UserID, "")
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since.UTC())
	}

	var rows []struct {
		Status string
		Count  int64
		Amount float64
		Items  int64
	}
	err := q.Select("status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS amount, COALESCE(SUM(total_items), 0) AS items").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return repositories.OrderSummary{}, fmt.Errorf("sqlstore: summarize orders: %w", err)
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
