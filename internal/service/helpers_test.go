package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/and161185/shopvault/internal/limiter"
	"github.com/and161185/shopvault/internal/migrate"
	"github.com/and161185/shopvault/internal/repository"
	"github.com/and161185/shopvault/internal/repository/sqlite"
)

type testEnv struct {
	auth    *AuthService
	records repository.RecordRepository
	lim     *limiter.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrate.Up(ctx, db.SQL))

	records := sqlite.NewRecordRepo(db)
	lim := limiter.New(db.SQL, time.Minute, 5, time.Minute)
	auth := NewAuthService(
		sqlite.NewShopRepo(db),
		sqlite.NewUserRepo(db),
		records,
		lim,
		zap.NewNop(),
	)
	return &testEnv{auth: auth, records: records, lim: lim}
}

func registerAcme(t *testing.T, env *testEnv) (*Session, string) {
	t.Helper()
	sess, code, err := env.auth.RegisterShop(context.Background(), RegisterShopInput{
		Name:          "Acme Store",
		OwnerUsername: "jane",
		Password:      "secret-pass-1",
	})
	require.NoError(t, err)
	require.True(t, sess.SignedIn())
	return sess, code
}

func newDataSvc(env *testEnv, sess *Session) *DataService {
	return NewDataService(env.records, sess, zap.NewNop(), DataOptions{})
}
