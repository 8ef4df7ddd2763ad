// Package mongostore implements the repositories on MongoDB. Documents use
// 24-hex string ids so both stores hand out interchangeable identifiers.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/naturelovers/storefront/app/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	colUsers      = "users"
	colCarts      = "carts"
	colOrders     = "orders"
	colOutbox     = "outbox_events"
	colFailedJobs = "failed_jobs"
)

// Store is the MongoDB-backed repositories.Store.
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
}

var _ repositories.Store = (*Store)(nil)

// New uses database dbName on client. With transactions set, WithinTx runs
// inside a multi-document transaction, which needs a replica set.
func New(client *mongo.Client, dbName string, transactions bool) *Store {
	return &Store{client: client, db: client.Database(dbName), transactions: transactions}
}

func (s *Store) Users() repositories.UserRepository   { return &userRepo{col: s.db.Collection(colUsers)} }
func (s *Store) Carts() repositories.CartRepository   { return &cartRepo{col: s.db.Collection(colCarts)} }
func (s *Store) Orders() repositories.OrderRepository { return &orderRepo{col: s.db.Collection(colOrders)} }
func (s *Store) Outbox() repositories.OutboxRepository {
	return &outboxRepo{col: s.db.Collection(colOutbox)}
}
func (s *Store) FailedJobs() repositories.FailedJobRepository {
	return &failedJobRepo{col: s.db.Collection(colFailedJobs)}
}

// WithinTx runs fn in a session transaction when enabled. Otherwise fn runs
// directly and the caller relies on idempotent steps.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.Store) error) error {
	if !s.transactions {
		return fn(ctx, s)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("mongostore: start session: %w", err)
	}
	defer sess.EndSession(context.Background())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, s)
	})
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Database exposes the underlying database to seeders and tests.
func (s *Store) Database() *mongo.Database { return s.db }

// EnsureIndexes creates the indexes the repositories rely on. Safe to call
// on every boot.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "refreshToken", Value: 1}}, Options: options.Index().SetSparse(true)},
			{Keys: bson.D{{Key: "resetPasswordToken", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
		colCarts: {
			{Keys: bson.D{{Key: "user", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colOrders: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "checkoutKey", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colOutbox: {
			{Keys: bson.D{{Key: "publishedAt", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		colFailedJobs: {
			{Keys: bson.D{{Key: "failedAt", Value: -1}}},
		},
	}
	for name, models := range specs {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongostore: indexes on %s: %w", name, err)
		}
	}
	return nil
}

// translate maps driver errors onto the repository sentinels.
func translate(err error, dupFields ...string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repositories.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		field := ""
		if len(dupFields) > 0 {
			field = dupFields[0]
			msg := err.Error()
			for _, f := range dupFields {
				if strings.Contains(msg, f+"_1") {
					field = f
					break
				}
			}
		}
		return &repositories.DuplicateError{Field: field}
	}
	return err
}

// paged applies skip/limit and a sort to opts for p.
func paged(p repositories.Page, sort bson.D) *options.FindOptions {
	opts := options.Find().SetSort(sort)
	if p.Limit > 0 {
		opts.SetSkip(int64(p.Offset())).SetLimit(int64(p.Limit))
	}
	return opts
}
