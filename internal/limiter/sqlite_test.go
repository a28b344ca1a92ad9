package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/shopvault/internal/migrate"
	"github.com/and161185/shopvault/internal/repository/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrate.Up(ctx, db.SQL))
	return New(db.SQL, time.Minute, 3, time.Minute)
}

func TestLimiter_BlocksAfterMaxFails(t *testing.T) {
	t.Parallel()
	lim := newTestStore(t)
	ctx := context.Background()

	ok, _, err := lim.Allow(ctx, "ACME", "jane")
	require.NoError(t, err)
	require.True(t, ok)

	for i := 0; i < 2; i++ {
		blocked, _, err := lim.Failure(ctx, "ACME", "jane")
		require.NoError(t, err)
		require.False(t, blocked)
	}
	blocked, retry, err := lim.Failure(ctx, "ACME", "jane")
	require.NoError(t, err)
	require.True(t, blocked)
	require.Greater(t, retry, time.Duration(0))

	ok, retry, err = lim.Allow(ctx, "ACME", "jane")
	require.NoError(t, err)
	require.False(t, ok)
	require.Greater(t, retry, time.Duration(0))

	// a different identity is unaffected
	ok, _, err = lim.Allow(ctx, "ACME", "bob")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestLimiter_SuccessResets(t *testing.T) {
	t.Parallel()
	lim := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _, err := lim.Failure(ctx, "ACME", "jane")
		require.NoError(t, err)
	}
	require.NoError(t, lim.Success(ctx, "ACME", "jane"))

	// counter starts over: two more failures do not block
	for i := 0; i < 2; i++ {
		blocked, _, err := lim.Failure(ctx, "ACME", "jane")
		require.NoError(t, err)
		require.False(t, blocked)
	}
}
