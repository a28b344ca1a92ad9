// Package limiter defines interfaces and implementations for login rate limiting.
package limiter

import (
	"context"
	"time"
)

// Limiter controls login attempts and temporary lockouts, keyed by
// (shop code, username). There are no IPs in an offline deployment; the
// device is the scope.
type Limiter interface {
	// Allow reports whether login is currently allowed and optional retry-after.
	Allow(ctx context.Context, shopCode, username string) (bool, time.Duration, error)
	// Success resets counters after a successful login.
	Success(ctx context.Context, shopCode, username string) error
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, shopCode, username string) (bool, time.Duration, error)
}

// Noop is a limiter that never blocks. Useful in tests.
type Noop struct{}

// Allow always permits the attempt.
func (Noop) Allow(context.Context, string, string) (bool, time.Duration, error) {
	return true, 0, nil
}

// Success does nothing.
func (Noop) Success(context.Context, string, string) error { return nil }

// Failure never blocks.
func (Noop) Failure(context.Context, string, string) (bool, time.Duration, error) {
	return false, 0, nil
}
