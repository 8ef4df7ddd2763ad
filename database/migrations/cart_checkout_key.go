package migrations

import (
	"github.com/naturelovers/storefront/app/models"
	"github.com/naturelovers/storefront/pkg/migration"
	"gorm.io/gorm"
)

func init() {
	migration.Register("20250301000000_add_checkout_key_to_carts", &column{model: &models.Cart{}, field: "CheckoutKey"})
}

// column adds or drops one model field on an existing table.
type column struct {
	model interface{}
	field string
}

func (c *column) Up(db *gorm.DB) error {
	if db.Migrator().HasColumn(c.model, c.field) {
		return nil
	}
	return db.Migrator().AddColumn(c.model, c.field)
}

func (c *column) Down(db *gorm.DB) error {
	return db.Migrator().DropColumn(c.model, c.field)
}
