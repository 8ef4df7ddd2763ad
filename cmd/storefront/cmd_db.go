package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/naturelovers/storefront/app/repositories"
	"github.com/naturelovers/storefront/app/repositories/mongostore"
	"github.com/naturelovers/storefront/app/repositories/sqlstore"
	"github.com/naturelovers/storefront/config"
	"github.com/naturelovers/storefront/database/seeders"
	"github.com/naturelovers/storefront/internal/kernel"
	"github.com/naturelovers/storefront/pkg/migration"
)

// openStore loads config and connects the configured store.
func openStore(ctx context.Context) (repositories.Store, error) {
	if err := config.Load(); err != nil {
		return nil, err
	}
	return kernel.OpenStore(ctx)
}

// withSQL runs fn on the gorm connection; the Mongo store has nothing to
// migrate beyond its indexes, which OpenStore already ensured.
func withSQL(cmd *cobra.Command, fn func(r *migration.Runner) error) error {
	store, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	switch s := store.(type) {
	case *sqlstore.Store:
		return fn(migration.New(s.DB()))
	case *mongostore.Store:
		fmt.Println("✅ Mongo indexes are in place; no SQL migrations to run.")
		return nil
	}
	return fmt.Errorf("unsupported store %T", store)
}

// storefront migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSQL(cmd, func(r *migration.Runner) error {
			fmt.Println("Running migrations…")
			applied, err := r.Run()
			for _, name := range applied {
				fmt.Println("  ✔", name)
			}
			if err == nil && len(applied) == 0 {
				fmt.Println("Nothing to migrate.")
			}
			return err
		})
	},
}

// storefront migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rollback the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSQL(cmd, func(r *migration.Runner) error {
			fmt.Println("Rolling back last batch…")
			undone, err := r.Rollback()
			for _, name := range undone {
				fmt.Println("  ↩", name)
			}
			return err
		})
	},
}

// storefront migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSQL(cmd, func(r *migration.Runner) error {
			rows, err := r.Status()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "MIGRATION\tRAN\tBATCH")
			for _, s := range rows {
				ran, batch := "no", "-"
				if s.Ran {
					ran, batch = "yes", fmt.Sprint(s.Batch)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, ran, batch)
			}
			return w.Flush()
		})
	},
}

// storefront seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the admin account and demo data",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close(context.Background())

		fmt.Println("Running seeders…")
		return seeders.RunAll(cmd.Context(), seeders.NewEnv(store), os.Stdout)
	},
}

var adminFlags = seeders.DefaultAdmin

// storefront create-admin
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account or promote an existing one",
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminFlags.Email == "" {
			return errors.New("--email is required")
		}
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close(context.Background())

		created, err := seeders.NewEnv(store).Users.EnsureAdmin(cmd.Context(), adminFlags)
		if err != nil {
			return err
		}
		if created {
			fmt.Println("✅ Admin user created successfully!")
		} else {
			fmt.Println("⚠️  User already exists; role is admin.")
		}
		fmt.Println("\n📋 Admin Credentials:")
		fmt.Println("Email:", adminFlags.Email)
		if created {
			fmt.Println("Password:", adminFlags.Password)
		}
		return nil
	},
}

func init() {
	f := createAdminCmd.Flags()
	f.StringVar(&adminFlags.Email, "email", adminFlags.Email, "Admin email")
	f.StringVar(&adminFlags.Password, "password", adminFlags.Password, "Admin password (new accounts only)")
	f.StringVar(&adminFlags.Name, "name", adminFlags.Name, "Admin name")
	f.StringVar(&adminFlags.Phone, "phone", adminFlags.Phone, "Admin 10-digit phone")
}
