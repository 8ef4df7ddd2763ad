// Package sqlstore implements the repositories on gorm. Any of the drivers
// pkg/database supports works; tests run on in-memory SQLite.
package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/naturelovers/storefront/app/repositories"
	"github.com/naturelovers/storefront/pkg/orm"
	"gorm.io/gorm"
)

// Store is the gorm-backed repositories.Store.
type Store struct {
	db *gorm.DB
}

var _ repositories.Store = (*Store)(nil)

// New wraps an open gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Users() repositories.UserRepository           { return &userRepo{db: s.db} }
func (s *Store) Carts() repositories.CartRepository           { return &cartRepo{db: s.db} }
func (s *Store) Orders() repositories.OrderRepository         { return &orderRepo{db: s.db} }
func (s *Store) Outbox() repositories.OutboxRepository        { return &outboxRepo{db: s.db} }
func (s *Store) FailedJobs() repositories.FailedJobRepository { return &failedJobRepo{db: s.db} }

// WithinTx runs fn inside a database transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &Store{db: tx})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("sqlstore: ping: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("sqlstore: close: %w", err)
	}
	return sqlDB.Close()
}

// DB exposes the connection to migrations and seeders.
func (s *Store) DB() *gorm.DB { return s.db }

// translate maps gorm errors onto the repository sentinels.
func translate(err error, dupFields ...string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repositories.ErrNotFound
	case orm.IsDuplicate(err):
		return &repositories.DuplicateError{Field: orm.DuplicateField(err, dupFields...)}
	}
	return err
}
