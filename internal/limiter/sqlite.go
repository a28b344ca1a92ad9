package limiter

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Store is a SQLite-backed limiter implementation with sliding window and lockout.
type Store struct {
	db       *sql.DB
	window   time.Duration
	maxFails int
	blockFor time.Duration
}

// New constructs a SQLite-backed limiter. Failures older than window are
// forgotten; maxFails consecutive failures block for blockFor.
func New(db *sql.DB, window time.Duration, maxFails int, blockFor time.Duration) *Store {
	return &Store{db: db, window: window, maxFails: maxFails, blockFor: blockFor}
}

// Allow reports whether login is currently allowed and a retry-after duration.
func (l *Store) Allow(ctx context.Context, shopCode, username string) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM auth_limiter WHERE shop_code = ? AND username = ?`
	var blockedUntil time.Time
	err := l.db.QueryRowContext(ctx, q, shopCode, username).Scan(&blockedUntil)
	switch {
	case err == nil:
		if now := time.Now(); blockedUntil.After(now) {
			return false, time.Until(blockedUntil), nil
		}
		return true, 0, nil
	case errors.Is(err, sql.ErrNoRows):
		return true, 0, nil
	default:
		return false, 0, err
	}
}

// Success resets counters for (shopCode, username).
func (l *Store) Success(ctx context.Context, shopCode, username string) error {
	const q = `
INSERT INTO auth_limiter (shop_code, username, fail_count, blocked_until, updated_at)
VALUES (?, ?, 0, ?, ?)
ON CONFLICT (shop_code, username)
DO UPDATE SET fail_count = 0, blocked_until = excluded.blocked_until, updated_at = excluded.updated_at`
	now := time.Now().UTC()
	_, err := l.db.ExecContext(ctx, q, shopCode, username, time.Unix(0, 0).UTC(), now)
	return err
}

// Failure records a failed attempt; may set a block until a future time.
func (l *Store) Failure(ctx context.Context, shopCode, username string) (bool, time.Duration, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	var (
		failCount int
		updatedAt time.Time
	)
	const sel = `SELECT fail_count, updated_at FROM auth_limiter WHERE shop_code = ? AND username = ?`
	err = tx.QueryRowContext(ctx, sel, shopCode, username).Scan(&failCount, &updatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		failCount = 0
	case err != nil:
		return false, 0, err
	default:
		if now.Sub(updatedAt) > l.window {
			failCount = 0
		}
	}

	failCount++
	blockedUntil := time.Unix(0, 0).UTC()
	blocked := failCount >= l.maxFails
	if blocked {
		blockedUntil = now.Add(l.blockFor)
	}

	const ups = `
INSERT INTO auth_limiter (shop_code, username, fail_count, blocked_until, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (shop_code, username)
DO UPDATE SET fail_count = excluded.fail_count, blocked_until = excluded.blocked_until, updated_at = excluded.updated_at`
	if _, err = tx.ExecContext(ctx, ups, shopCode, username, failCount, blockedUntil, now); err != nil {
		return false, 0, err
	}
	if err = tx.Commit(); err != nil {
		return false, 0, err
	}
	if blocked {
		return true, l.blockFor, nil
	}
	return false, 0, nil
}
