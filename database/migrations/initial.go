// Package migrations holds the SQL store's schema. Each migration registers
// itself from init(); import the package for its side effect.
package migrations

import (
	"github.com/naturelovers/storefront/app/models"
	"github.com/naturelovers/storefront/pkg/migration"
	"gorm.io/gorm"
)

func init() {
	migration.Register("20250101000000_create_users_table", &table{model: &models.User{}, name: "users"})
	migration.Register("20250101000001_create_carts_table", &table{model: &models.Cart{}, name: "carts"})
	migration.Register("20250101000002_create_orders_table", &table{model: &models.Order{}, name: "orders"})
	migration.Register("20250101000003_create_outbox_events_table", &table{model: &models.OutboxEvent{}, name: "outbox_events"})
	migration.Register("20250101000004_create_failed_jobs_table", &table{model: &models.FailedJob{}, name: "failed_jobs"})
}

// table creates or drops the table behind one model.
type table struct {
	model interface{}
	name  string
}

func (t *table) Up(db *gorm.DB) error {
	return db.AutoMigrate(t.model)
}

func (t *table) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(t.name)
}
