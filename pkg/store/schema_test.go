package store

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("INFOBSERVE_TEST_POSTGRES_DSN") == "" {
		t.Skip("INFOBSERVE_TEST_POSTGRES_DSN not set, skipping PostgreSQL integration test")
	}
	pool, err := pgxpool.New(context.Background(), os.Getenv("INFOBSERVE_TEST_POSTGRES_DSN"))
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestCreateSchema(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	require.NoError(t, CreateSchema(ctx, pool))

	tables := []string{"events", "rule_matches", "ascii_matches"}
	for _, table := range tables {
		var count int
		err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM information_schema.tables WHERE table_name = $1`, table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s should exist", table)
	}
}

func TestCreateSchema_Idempotent(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	require.NoError(t, CreateSchema(ctx, pool))
	assert.NoError(t, CreateSchema(ctx, pool))
}
