package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/naturelovers/storefront/app/models"
	"github.com/naturelovers/storefront/app/repositories"
	"github.com/naturelovers/storefront/pkg/cache"
	"github.com/naturelovers/storefront/pkg/logger"
	"github.com/naturelovers/storefront/pkg/validate"
)

const (
	dashboardKey = "admin:dashboard"
	dashboardTTL = 30 * time.Second
)

func invalidateDashboard(ctx context.Context, c cache.Cache) {
	if c == nil {
		return
	}
	if err := c.Del(ctx, dashboardKey); err != nil {
		logger.WithCtx(ctx).Warn("invalidate dashboard cache", "error", err)
	}
}

// AdminOrderQuery filters the admin order list. Status "all" or "" means any.
type AdminOrderQuery struct {
	Page   int
	Limit  int
	Status string
	SortBy string
	Order  string
}

// AdminOrderUpdate carries the optional fields of an admin order edit.
type AdminOrderUpdate struct {
	Status                *string `json:"status"`
	AdminNotes            *string `json:"adminNotes"`
	EstimatedDeliveryDate *string `json:"estimatedDeliveryDate"`
}

// UserPage is a page of accounts.
type UserPage struct {
	Users []models.User
	Total int64
	Page  int
	Limit int
}

func (p UserPage) TotalPages() int {
	return repositories.Page{Page: p.Page, Limit: p.Limit}.TotalPages(p.Total)
}

// UserStats summarises one customer for the admin detail view.
type UserStats struct {
	TotalOrders     int64   `json:"totalOrders"`
	TotalSpent      float64 `json:"totalSpent"`
	CompletedOrders int64   `json:"completedOrders"`
}

// UserDetails is a customer with their latest orders.
type UserDetails struct {
	User   *models.User   `json:"user"`
	Orders []models.Order `json:"orders"`
	Stats  UserStats      `json:"stats"`
}

// StatusCount is one bucket of the dashboard status distribution.
type StatusCount struct {
	Status string `json:"_id"`
	Count  int64  `json:"count"`
}

// Dashboard is the admin landing page summary.
type Dashboard struct {
	TotalOrders        int64          `json:"totalOrders"`
	PendingOrders      int64          `json:"pendingOrders"`
	CompletedOrders    int64          `json:"completedOrders"`
	TotalRevenue       float64        `json:"totalRevenue"`
	TodayOrders        int64          `json:"todayOrders"`
	TotalUsers         int64          `json:"totalUsers"`
	StatusDistribution []StatusCount  `json:"statusDistribution"`
	RecentOrders       []models.Order `json:"recentOrders"`
}

// AdminService backs the /api/admin routes.
type AdminService struct {
	store repositories.Store
	cache cache.Cache
	now   func() time.Time
}

func NewAdminService(store repositories.Store, c cache.Cache) *AdminService {
	return &AdminService{store: store, cache: c, now: time.Now}
}

// ListOrders pages through every order with the owning customer attached.
func (s *AdminService) ListOrders(ctx context.Context, q AdminOrderQuery) (OrderPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 20
	}
	status := q.Status
	if status == "all" {
		status = ""
	}
	orders, total, err := s.store.Orders().List(ctx, repositories.OrderFilter{
		Page:      repositories.Page{Page: q.Page, Limit: q.Limit},
		Status:    status,
		SortBy:    q.SortBy,
		Ascending: strings.EqualFold(q.Order, "asc"),
	})
	if err != nil {
		return OrderPage{}, fmt.Errorf("services: admin list orders: %w", err)
	}
	s.attachCustomers(ctx, orders)
	return OrderPage{Orders: orders, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// attachCustomers looks each distinct owner up once.
func (s *AdminService) attachCustomers(ctx context.Context, orders []models.Order) {
	seen := map[string]*models.Customer{}
	for i := range orders {
		id := orders[i].UserID
		c, ok := seen[id]
		if !ok {
			if u, err := s.store.Users().FindByID(ctx, id); err == nil {
				c = u.AsCustomer()
			}
			seen[id] = c
		}
		orders[i].Customer = c
	}
}

func (s *AdminService) order(ctx context.Context, id string) (*models.Order, error) {
	if !validate.ObjectID(id) {
		return nil, notFound("Order not found")
	}
	o, err := s.store.Orders().FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFound("Order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("services: admin load order: %w", err)
	}
	return o, nil
}

// GetOrder returns any user's order.
func (s *AdminService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	o, err := s.order(ctx, id)
	if err != nil {
		return nil, err
	}
	one := []models.Order{*o}
	s.attachCustomers(ctx, one)
	return &one[0], nil
}

// UpdateOrder applies whichever of status, admin notes and estimated
// delivery date are present.
func (s *AdminService) UpdateOrder(ctx context.Context, id string, in AdminOrderUpdate) (*models.Order, error) {
	if in.Status != nil && !models.ValidStatus(*in.Status) {
		return nil, badRequest("Invalid status value")
	}
	var eta *time.Time
	if in.EstimatedDeliveryDate != nil && *in.EstimatedDeliveryDate != "" {
		t, err := validate.ParseDate(*in.EstimatedDeliveryDate)
		if err != nil {
			return nil, badRequest("Invalid estimatedDeliveryDate")
		}
		t = t.UTC()
		eta = &t
	}

	o, err := s.order(ctx, id)
	if err != nil {
		return nil, err
	}
	patch := repositories.OrderPatch{Status: in.Status, AdminNotes: in.AdminNotes, EstimatedDeliveryDate: eta}
	if o, err = saveOrder(ctx, s.store, o.ID, patch); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, notFound("Order not found")
		}
		return nil, fmt.Errorf("services: admin update order: %w", err)
	}
	invalidateDashboard(ctx, s.cache)
	logger.WithCtx(ctx).Info("order updated by admin", "order", o.ID, "status", o.Status)

	one := []models.Order{*o}
	s.attachCustomers(ctx, one)
	return &one[0], nil
}

// DeleteOrder removes an order outright.
func (s *AdminService) DeleteOrder(ctx context.Context, id string) error {
	if _, err := s.order(ctx, id); err != nil {
		return err
	}
	if err := s.store.Orders().Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return notFound("Order not found")
		}
		return fmt.Errorf("services: admin delete order: %w", err)
	}
	invalidateDashboard(ctx, s.cache)
	return nil
}

// ListUsers pages through accounts, optionally filtered by search.
func (s *AdminService) ListUsers(ctx context.Context, search string, page, limit int) (UserPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	users, total, err := s.store.Users().List(ctx, repositories.UserFilter{
		Page:   repositories.Page{Page: page, Limit: limit},
		Search: strings.TrimSpace(search),
	})
	if err != nil {
		return UserPage{}, fmt.Errorf("services: admin list users: %w", err)
	}
	return UserPage{Users: users, Total: total, Page: page, Limit: limit}, nil
}

// UserDetails returns a user, their ten latest orders and lifetime stats.
func (s *AdminService) UserDetails(ctx context.Context, id string) (*UserDetails, error) {
	if !validate.ObjectID(id) {
		return nil, notFound("User not found")
	}
	u, err := s.store.Users().FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("services: admin load user: %w", err)
	}

	orders, _, err := s.store.Orders().List(ctx, repositories.OrderFilter{
		Page:   repositories.Page{Page: 1, Limit: 10},
		UserID: id,
	})
	if err != nil {
		return nil, fmt.Errorf("services: admin user orders: %w", err)
	}
	sum, err := s.store.Orders().Summarize(ctx, repositories.SummaryFilter{UserID: id})
	if err != nil {
		return nil, fmt.Errorf("services: admin user stats: %w", err)
	}
	return &UserDetails{
		User:   u,
		Orders: orders,
		Stats: UserStats{
			TotalOrders:     sum.Count,
			TotalSpent:      sum.TotalAmount,
			CompletedOrders: sum.CountByStatus[models.StatusCompleted],
		},
	}, nil
}

// Dashboard returns the cached summary, computing it at most every 30s.
func (s *AdminService) Dashboard(ctx context.Context) (*Dashboard, error) {
	if s.cache == nil {
		return s.dashboard(ctx)
	}
	return cache.Remember(ctx, s.cache, dashboardKey, dashboardTTL, func() (*Dashboard, error) {
		return s.dashboard(ctx)
	})
}

func (s *AdminService) dashboard(ctx context.Context) (*Dashboard, error) {
	orders := s.store.Orders()

	all, err := orders.Summarize(ctx, repositories.SummaryFilter{})
	if err != nil {
		return nil, fmt.Errorf("services: dashboard summary: %w", err)
	}
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, err := orders.Summarize(ctx, repositories.SummaryFilter{Since: midnight})
	if err != nil {
		return nil, fmt.Errorf("services: dashboard today: %w", err)
	}
	users, err := s.store.Users().Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("services: dashboard users: %w", err)
	}
	recent, _, err := orders.List(ctx, repositories.OrderFilter{Page: repositories.Page{Page: 1, Limit: 5}})
	if err != nil {
		return nil, fmt.Errorf("services: dashboard recent: %w", err)
	}
	s.attachCustomers(ctx, recent)

	d := &Dashboard{
		TotalOrders:        all.Count,
		PendingOrders:      all.CountByStatus[models.StatusPending],
		CompletedOrders:    all.CountByStatus[models.StatusCompleted],
		TotalRevenue:       all.AmountByStatus[models.StatusCompleted],
		TodayOrders:        today.Count,
		TotalUsers:         users,
		StatusDistribution: []StatusCount{},
		RecentOrders:       recent,
	}
	for _, st := range models.Statuses {
		if n := all.CountByStatus[st]; n > 0 {
			d.StatusDistribution = append(d.StatusDistribution, StatusCount{Status: st, Count: n})
		}
	}
	return d, nil
}
