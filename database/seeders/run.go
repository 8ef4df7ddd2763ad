// Package seeders fills a store with an admin account and demo data.
//
// Seeders register from init() and run through the service layer, so they
// work the same on the SQL and Mongo stores:
//
//	func init() {
//	    seeders.Register("admin", seedAdmin)
//	}
//
// Run via CLI: storefront seed
package seeders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/naturelovers/storefront/app/models"
	"github.com/naturelovers/storefront/app/repositories"
	"github.com/naturelovers/storefront/app/services"
)

// Env is what a seeder may use.
type Env struct {
	Store repositories.Store
	Users *services.UserService
	Carts *services.CartService
}

// NewEnv builds the services over store.
func NewEnv(store repositories.Store) *Env {
	return &Env{
		Store: store,
		Users: services.NewUserService(store, nil),
		Carts: services.NewCartService(store, services.DefaultRetry),
	}
}

// SeederFunc is the signature for a seed function.
type SeederFunc func(ctx context.Context, env *Env) error

type seederEntry struct {
	name string
	fn   SeederFunc
}

var (
	mu      sync.Mutex
	entries []seederEntry
)

// Register adds a seeder to the global registry.
func Register(name string, fn SeederFunc) {
	mu.Lock()
	defer mu.Unlock()
	entries = append(entries, seederEntry{name: name, fn: fn})
}

// RunAll executes every registered seeder in registration order, reporting
// progress to out. It stops on the first error.
func RunAll(ctx context.Context, env *Env, out io.Writer) error {
	mu.Lock()
	current := append([]seederEntry(nil), entries...)
	mu.Unlock()

	if len(current) == 0 {
		fmt.Fprintln(out, "  (no seeders registered)")
		return nil
	}
	for _, e := range current {
		fmt.Fprintf(out, "  • Running seeder: %s … ", e.name)
		if err := e.fn(ctx, env); err != nil {
			fmt.Fprintln(out, "FAILED")
			return fmt.Errorf("seeder %q: %w", e.name, err)
		}
		fmt.Fprintln(out, "done")
	}
	return nil
}

func init() {
	Register("admin", seedAdmin)
	Register("demo-customer", seedDemoCustomer)
}

// DefaultAdmin is the account created by seed and create-admin without flags.
var DefaultAdmin = services.RegisterInput{
	Name:     "Admin",
	Email:    "admin@gmail.com",
	Password: "12345678",
	Phone:    "1234567890",
}

func seedAdmin(ctx context.Context, env *Env) error {
	_, err := env.Users.EnsureAdmin(ctx, DefaultAdmin)
	return err
}

var demoCart = []services.AddItemInput{
	{ItemID: "5", Name: "Money Plant", Type: models.ItemPlant, Price: models.Fixed(50), Category: "indoor"},
	{ItemID: "12", Name: "Snake Plant", Type: models.ItemPlant, Price: models.Fixed(250), Category: "indoor"},
	{ItemID: "3", Name: "Garden Maintenance", Type: models.ItemService, Price: models.NegotiatedLater(), Category: "services"},
}

// seedDemoCustomer registers a customer with a filled cart once.
func seedDemoCustomer(ctx context.Context, env *Env) error {
	_, err := env.Store.Users().FindByEmail(ctx, "demo@naturelovers.in")
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}

	sess, err := env.Users.Register(ctx, services.RegisterInput{
		Name: "Demo Customer", Email: "demo@naturelovers.in", Password: "demo1234", Phone: "9876543210",
	})
	if err != nil {
		return err
	}
	for i, item := range demoCart {
		n := i + 1
		item.Quantity = &n
		if _, err := env.Carts.AddItem(ctx, sess.User.ID, item); err != nil {
			return err
		}
	}
	return nil
}
