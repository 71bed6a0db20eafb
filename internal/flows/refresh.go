package flows

import (
	"context"
	"time"
)

// RefreshFailureKind classifies refresh flow exits.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureParse
	RefreshFailureUnauthorized
	RefreshFailureRegistry
	RefreshFailureIssue
)

// ParsedRefresh is the decoded view of a presented refresh token.
type ParsedRefresh struct {
	AccountID string
	JTI       string
	Remaining time.Duration
}

// RefreshRegistry is the session-registry surface the flow needs.
type RefreshRegistry interface {
	Exists(ctx context.Context, accountID, jti string) (bool, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	Drop(ctx context.Context, accountID, jti string) error
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Parse           func(token string) (*ParsedRefresh, error)
	Registry        RefreshRegistry
	IssuePair       func(ctx context.Context, accountID string) (*TokenPair, error)
	RevocationGrace time.Duration
}

// RefreshResult carries either the rotated pair or failure metadata.
// Revoked distinguishes a blacklisted jti from a missing registry entry
// for accounting only; both exits surface identically to callers.
type RefreshResult struct {
	Failure   RefreshFailureKind
	Err       error
	AccountID string
	OldJTI    string
	Revoked   bool
	Pair      *TokenPair
}

// RunRefresh redeems a refresh token exactly once. A blacklisted jti and
// a jti with no live registry entry exit identically: both cover
// explicit logout and a previously rotated token alike.
//
// Rotation order is revoke-old-then-store-new in one quick sequence, so
// the window in which two concurrent redeems of the same token can both
// pass the gate stays as narrow as the round trips allow. The revocation
// TTL is the old token's remaining natural lifetime plus a grace margin,
// never less, so a replayed token cannot outlive its blacklist entry.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	parsed, err := deps.Parse(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureParse, Err: err}
	}

	revoked, err := deps.Registry.IsRevoked(ctx, parsed.JTI)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureRegistry, Err: err, AccountID: parsed.AccountID, OldJTI: parsed.JTI}
	}
	if revoked {
		return RefreshResult{Failure: RefreshFailureUnauthorized, AccountID: parsed.AccountID, OldJTI: parsed.JTI, Revoked: true}
	}

	exists, err := deps.Registry.Exists(ctx, parsed.AccountID, parsed.JTI)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureRegistry, Err: err, AccountID: parsed.AccountID, OldJTI: parsed.JTI}
	}
	if !exists {
		return RefreshResult{Failure: RefreshFailureUnauthorized, AccountID: parsed.AccountID, OldJTI: parsed.JTI}
	}

	if err := deps.Registry.Revoke(ctx, parsed.JTI, parsed.Remaining+deps.RevocationGrace); err != nil {
		return RefreshResult{Failure: RefreshFailureRegistry, Err: err, AccountID: parsed.AccountID, OldJTI: parsed.JTI}
	}
	if err := deps.Registry.Drop(ctx, parsed.AccountID, parsed.JTI); err != nil {
		return RefreshResult{Failure: RefreshFailureRegistry, Err: err, AccountID: parsed.AccountID, OldJTI: parsed.JTI}
	}

	pair, err := deps.IssuePair(ctx, parsed.AccountID)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, AccountID: parsed.AccountID, OldJTI: parsed.JTI}
	}

	return RefreshResult{
		Failure:   RefreshFailureNone,
		AccountID: parsed.AccountID,
		OldJTI:    parsed.JTI,
		Pair:      pair,
	}
}
