// Package testdb opens a migrated in-memory SQLite store for tests.
package testdb

import (
	"context"
	"fmt"
	"regexp"
	"sync/atomic"
	"testing"

	"github.com/naturelovers/storefront/app/repositories/sqlstore"
	_ "github.com/naturelovers/storefront/database/migrations"
	"github.com/naturelovers/storefront/pkg/database"
	"github.com/naturelovers/storefront/pkg/migration"
	"github.com/stretchr/testify/require"
)

var (
	seq     atomic.Int64
	unsafeC = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

// New returns a fresh store private to t.
func New(t testing.TB) *sqlstore.Store {
	t.Helper()

	name := fmt.Sprintf("%s_%d", unsafeC.ReplaceAllString(t.Name(), "_"), seq.Add(1))
	db, err := database.Open("sqlite", "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)

	_, err = migration.New(db).Run()
	require.NoError(t, err)

	store := sqlstore.New(db)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}
