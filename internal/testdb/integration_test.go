//go:build integration

// internal/testdb/integration_test.go
//
// Round-trip against a live PostgreSQL reachable through conf/ and APP__
// overrides.
//
// Run: go test -tags integration ./internal/testdb -v

package testdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_ProvisionsIsolatedDatabases(t *testing.T) {
	first := New(t)
	second := New(t)

	require.NotEqual(t, first.Name, second.Name)

	for _, db := range []*Database{first, second} {
		var current string
		require.NoError(t, db.GetContext(context.Background(), &current, "SELECT current_database()"))
		require.Equal(t, db.Name, current)

		var table *string
		require.NoError(t, db.GetContext(context.Background(), &table, "SELECT to_regclass('public.subscriptions')::text"))
		require.NotNil(t, table, "subscriptions table missing in %s", db.Name)

		var n int
		require.NoError(t, db.GetContext(context.Background(), &n, "SELECT count(*) FROM subscriptions"))
		require.Zero(t, n)
	}
}

func TestNew_WritesDoNotLeak(t *testing.T) {
	first := New(t)
	second := New(t)
	ctx := context.Background()

	_, err := first.ExecContext(ctx,
		`INSERT INTO subscriptions (id, email, name, subscribed_at) VALUES (gen_random_uuid(), $1, $2, now())`,
		"ursula_le_guin@gmail.com", "le guin")
	require.NoError(t, err)

	var n int
	require.NoError(t, second.GetContext(ctx, &n, "SELECT count(*) FROM subscriptions"))
	require.Zero(t, n)
}
