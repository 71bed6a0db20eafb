package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkarel/authcore/internal/audit"
	"github.com/mkarel/authcore/internal/flows"
	"github.com/mkarel/authcore/internal/metrics"
	"github.com/mkarel/authcore/token"
)

func (e *Engine) parseRefresh(refreshToken string) (*flows.ParsedRefresh, error) {
	claims, err := e.codec.Parse(token.KindRefresh, refreshToken)
	if err != nil {
		return nil, err
	}
	return &flows.ParsedRefresh{
		AccountID: claims.UID,
		JTI:       claims.JTI(),
		Remaining: token.Remaining(claims),
	}, nil
}

// Refresh redeems a refresh token for a new pair. Each token works
// exactly once: redeeming rotates it, blacklisting the old jti for at
// least its remaining natural lifetime. A revoked or already-rotated
// token fails with ErrUnauthorized.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	deps := flows.RefreshDeps{
		Parse:           e.parseRefresh,
		Registry:        e.registry,
		IssuePair:       e.issuePair,
		RevocationGrace: e.config.Account.RevocationGrace,
	}

	result := flows.RunRefresh(ctx, refreshToken, deps)

	switch result.Failure {
	case flows.RefreshFailureNone:

	case flows.RefreshFailureParse:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, result.Err)

	case flows.RefreshFailureUnauthorized:
		if result.Revoked {
			e.metrics.Inc(metrics.MetricRefreshReplayBlocked)
			e.log.Warnf("revoked refresh token replayed for account %s", result.AccountID)
		} else {
			e.metrics.Inc(metrics.MetricRefreshUnauthorized)
		}
		e.emit(ctx, audit.Event{
			EventType: audit.TypeRefresh,
			AccountID: result.AccountID,
			JTI:       result.OldJTI,
			Success:   false,
			Error:     ErrUnauthorized.Error(),
		})
		return nil, ErrUnauthorized

	default:
		return nil, result.Err
	}

	user, err := e.users.GetByID(ctx, result.AccountID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Account deleted since issuance; the new session dies with
			// its natural TTL and no tokens leave the engine.
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	e.metrics.Inc(metrics.MetricRefreshSuccess)
	e.emit(ctx, audit.Event{
		EventType: audit.TypeRefresh,
		AccountID: result.AccountID,
		JTI:       result.Pair.JTI,
		Success:   true,
		Metadata:  map[string]string{"rotated_from": result.OldJTI},
	})

	return &AuthResult{
		User:         user,
		AccessToken:  result.Pair.AccessToken,
		RefreshToken: result.Pair.RefreshToken,
	}, nil
}

// Logout revokes the presented refresh token. The blacklist TTL is the
// full configured refresh lifetime, a conservative bound over the
// token's actual remaining time. Logging out twice is not an error.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	parsed, err := e.parseRefresh(refreshToken)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if err := e.registry.Revoke(ctx, parsed.JTI, e.codec.TTL(token.KindRefresh)); err != nil {
		return err
	}
	if err := e.registry.Drop(ctx, parsed.AccountID, parsed.JTI); err != nil {
		return err
	}

	e.metrics.Inc(metrics.MetricLogout)
	e.emit(ctx, audit.Event{
		EventType: audit.TypeLogout,
		AccountID: parsed.AccountID,
		JTI:       parsed.JTI,
		Success:   true,
	})
	return nil
}

// LogoutAll revokes every live refresh session of the account. Access
// tokens already in flight stay valid until they expire.
func (e *Engine) LogoutAll(ctx context.Context, accountID string) error {
	if accountID == "" {
		return fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}

	revoked, err := e.registry.RevokeAll(ctx, accountID, e.codec.TTL(token.KindRefresh))
	if err != nil {
		return err
	}

	e.metrics.Inc(metrics.MetricLogoutAll)
	e.emit(ctx, audit.Event{
		EventType: audit.TypeLogout,
		AccountID: accountID,
		Success:   true,
		Metadata:  map[string]string{"scope": "all", "sessions": fmt.Sprintf("%d", revoked)},
	})
	return nil
}

// ActiveSessions returns the jtis of the account's live refresh
// sessions.
func (e *Engine) ActiveSessions(ctx context.Context, accountID string) ([]string, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	return e.registry.ActiveSessionIDs(ctx, accountID)
}
