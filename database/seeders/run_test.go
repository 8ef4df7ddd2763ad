package seeders_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/naturelovers/storefront/database/seeders"
	"github.com/naturelovers/storefront/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAllIsRepeatable(t *testing.T) {
	store := testdb.New(t)
	env := seeders.NewEnv(store)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, seeders.RunAll(ctx, env, &out))
	require.NoError(t, seeders.RunAll(ctx, env, &out))
	assert.Contains(t, out.String(), "Running seeder: admin")

	admin, err := store.Users().FindByEmail(ctx, seeders.DefaultAdmin.Email)
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	demo, err := store.Users().FindByEmail(ctx, "demo@naturelovers.in")
	require.NoError(t, err)
	cart, err := store.Carts().FindByUser(ctx, demo.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 3)
	assert.Equal(t, 6, cart.TotalItems)
	assert.Equal(t, float64(50+2*250), cart.TotalAmount)
}
