package kv

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable indicates the backing store could not be reached or
// returned a protocol-level failure. Callers treat it as fatal for the
// current request; no retries happen at this layer.
var ErrUnavailable = errors.New("kv store unavailable")

// ErrNotFound is returned by Get and GetDel when the key does not exist
// or has already expired.
var ErrNotFound = errors.New("kv key not found")

// Store is the shared expiring key-value space behind the session
// registry, the lockout guard, and the verification ledger.
//
// Implementations must provide the atomicity this contract states: Incr
// is a single atomic increment (never read-modify-write), GetDel removes
// the key in the same step that reads it. All cross-request coordination
// in the engine rides on these primitives; there are no engine-side locks.
type Store interface {
	// Set writes value under key. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// GetDel atomically reads and removes key, or returns ErrNotFound.
	GetDel(ctx context.Context, key string) ([]byte, error)

	// Del removes keys. Missing keys are not an error.
	Del(ctx context.Context, keys ...string) error

	// Exists reports whether key currently holds a live value.
	Exists(ctx context.Context, key string) (bool, error)

	// Incr atomically increments the integer at key and returns the new
	// count. A missing key counts from zero.
	Incr(ctx context.Context, key string) (int64, error)

	// Expire arms or rewinds the TTL on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// TTL returns the remaining lifetime of key. Missing or persistent
	// keys return 0.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// SAdd adds members to the set at key.
	SAdd(ctx context.Context, key string, members ...string) error

	// SRem removes members from the set at key.
	SRem(ctx context.Context, key string, members ...string) error

	// SMembers returns all members of the set at key; an empty slice when
	// the set does not exist.
	SMembers(ctx context.Context, key string) ([]string, error)
}
