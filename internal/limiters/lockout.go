package limiters

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/mkarel/authcore/kv"
)

// LockoutConfig tunes the brute-force guard. The failure window and the
// lockout duration are deliberately independent dials: how many mistakes
// arm a lock and how long the lock lasts can be tuned separately.
type LockoutConfig struct {
	MaxFailures     int
	FailureWindow   time.Duration
	LockoutDuration time.Duration
}

// LockoutGuard counts authentication failures per principal inside a
// fixed window and enforces a temporary lock once the threshold is hit.
// Choosing the principal key is the caller's concern; the engine passes
// the lower-cased email.
//
// Key layout:
//
//	{prefix}fail:{principal} -> counter (TTL = failure window)
//	{prefix}lock:{principal} -> marker  (TTL = lockout duration)
type LockoutGuard struct {
	store  kv.Store
	prefix string
	config LockoutConfig
}

// NewLockoutGuard creates a guard on the given store. Guards with
// distinct prefixes count independently even on a shared store.
func NewLockoutGuard(store kv.Store, prefix string, cfg LockoutConfig) *LockoutGuard {
	return &LockoutGuard{store: store, prefix: prefix, config: cfg}
}

func (g *LockoutGuard) failKey(principal string) string {
	return g.prefix + "fail:" + principal
}

func (g *LockoutGuard) lockKey(principal string) string {
	return g.prefix + "lock:" + principal
}

// RecordFailure atomically increments the principal's failure counter.
// The window TTL is armed on the 0->1 transition; once the counter
// reaches MaxFailures a lock marker is set for LockoutDuration.
func (g *LockoutGuard) RecordFailure(ctx context.Context, principal string) error {
	count, err := g.store.Incr(ctx, g.failKey(principal))
	if err != nil {
		return err
	}

	if count == 1 {
		if err := g.store.Expire(ctx, g.failKey(principal), g.config.FailureWindow); err != nil {
			return err
		}
	}

	if count >= int64(g.config.MaxFailures) {
		return g.Lock(ctx, principal)
	}
	return nil
}

// IsLocked reports whether a live lock marker exists. The check is
// independent of credential correctness; callers run it before touching
// the password at all.
func (g *LockoutGuard) IsLocked(ctx context.Context, principal string) (bool, error) {
	return g.store.Exists(ctx, g.lockKey(principal))
}

// ResetFailures clears the failure counter after a successful
// authentication. An already-armed lock expires on its own; success
// never shortens it.
func (g *LockoutGuard) ResetFailures(ctx context.Context, principal string) error {
	return g.store.Del(ctx, g.failKey(principal))
}

// Lock sets the lock marker for the configured duration.
func (g *LockoutGuard) Lock(ctx context.Context, principal string) error {
	return g.store.Set(ctx, g.lockKey(principal), []byte("1"), g.config.LockoutDuration)
}

// FailureCount returns the current counter value. Missing keys read as
// zero and do not reveal whether the principal exists.
func (g *LockoutGuard) FailureCount(ctx context.Context, principal string) (int, error) {
	data, err := g.store.Get(ctx, g.failKey(principal))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	count, err := strconv.Atoi(string(data))
	if err != nil || count < 0 {
		return 0, nil
	}
	return count, nil
}
