package session

import (
	"context"
	"errors"
	"time"

	"github.com/mkarel/authcore/kv"
)

// Registry is the server-side record of live refresh sessions and
// revoked token ids. A refresh token is only honored while its registry
// entry exists and its jti is not blacklisted; deleting the entry or
// blacklisting the jti kills the session regardless of the token's
// signed expiry.
//
// Key layout:
//
//	{prefix}refresh:{accountID}:{jti} -> marker (TTL = refresh lifetime)
//	{prefix}blacklist:{jti}           -> marker (TTL >= remaining lifetime)
//	{prefix}refreshidx:{accountID}    -> set of live jtis
type Registry struct {
	store  kv.Store
	prefix string
}

// NewRegistry creates a registry on the given store.
func NewRegistry(store kv.Store, prefix string) *Registry {
	return &Registry{store: store, prefix: prefix}
}

func (r *Registry) sessionKey(accountID, jti string) string {
	return r.prefix + "refresh:" + accountID + ":" + jti
}

func (r *Registry) blacklistKey(jti string) string {
	return r.prefix + "blacklist:" + jti
}

func (r *Registry) indexKey(accountID string) string {
	return r.prefix + "refreshidx:" + accountID
}

// Store records a newly issued refresh session for ttl and adds its jti
// to the account's session index. The signed token is kept as the entry
// value for operational inspection; validation never reads it back.
// The index TTL is extended, never shortened, to cover the longest
// remaining member, so an abandoned account's set eventually expires
// instead of accreting forever.
func (r *Registry) Store(ctx context.Context, accountID, jti, signedToken string, ttl time.Duration) error {
	if err := r.store.Set(ctx, r.sessionKey(accountID, jti), []byte(signedToken), ttl); err != nil {
		return err
	}
	if err := r.store.SAdd(ctx, r.indexKey(accountID), jti); err != nil {
		return err
	}

	current, err := r.store.TTL(ctx, r.indexKey(accountID))
	if err != nil {
		return err
	}
	if ttl > current {
		return r.store.Expire(ctx, r.indexKey(accountID), ttl)
	}
	return nil
}

// Exists reports whether the session entry is still live.
func (r *Registry) Exists(ctx context.Context, accountID, jti string) (bool, error) {
	return r.store.Exists(ctx, r.sessionKey(accountID, jti))
}

// Revoke blacklists a jti for ttl. Revoking an already revoked jti just
// rewrites the marker; the operation is idempotent.
func (r *Registry) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Second
	}
	return r.store.Set(ctx, r.blacklistKey(jti), []byte("1"), ttl)
}

// IsRevoked reports whether a live blacklist marker exists for jti.
func (r *Registry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return r.store.Exists(ctx, r.blacklistKey(jti))
}

// Drop removes the session entry and its index membership. It does not
// touch the blacklist; callers decide whether the jti is also revoked.
func (r *Registry) Drop(ctx context.Context, accountID, jti string) error {
	if err := r.store.Del(ctx, r.sessionKey(accountID, jti)); err != nil {
		return err
	}
	return r.store.SRem(ctx, r.indexKey(accountID), jti)
}

// ActiveSessionIDs returns the jtis with a live session entry. Index
// members whose entry has expired are pruned as they are discovered.
func (r *Registry) ActiveSessionIDs(ctx context.Context, accountID string) ([]string, error) {
	members, err := r.store.SMembers(ctx, r.indexKey(accountID))
	if err != nil {
		return nil, err
	}

	active := make([]string, 0, len(members))
	for _, jti := range members {
		live, err := r.store.Exists(ctx, r.sessionKey(accountID, jti))
		if err != nil {
			return nil, err
		}
		if !live {
			_ = r.store.SRem(ctx, r.indexKey(accountID), jti)
			continue
		}
		active = append(active, jti)
	}
	return active, nil
}

// RevokeAll blacklists every live session of the account for ttl and
// drops the entries. A session stored concurrently with the sweep can
// escape it; the caller's next sweep catches it.
func (r *Registry) RevokeAll(ctx context.Context, accountID string, ttl time.Duration) (int, error) {
	jtis, err := r.ActiveSessionIDs(ctx, accountID)
	if err != nil {
		return 0, err
	}

	for _, jti := range jtis {
		if err := r.Revoke(ctx, jti, ttl); err != nil {
			return 0, err
		}
		if err := r.Drop(ctx, accountID, jti); err != nil {
			return 0, err
		}
	}
	return len(jtis), nil
}

// Unavailable reports whether err is a store transport failure rather
// than a logical miss.
func Unavailable(err error) bool {
	return errors.Is(err, kv.ErrUnavailable)
}
