package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkarel/authcore/internal/audit"
	"github.com/mkarel/authcore/internal/flows"
	"github.com/mkarel/authcore/internal/metrics"
)

// Login authenticates a password credential and issues a token pair.
// Gate order: lockout first, then credentials, then the verified flag.
// A locked principal gets ErrAccountLocked no matter what password is
// presented; a missing account and a wrong password are both
// ErrInvalidCredentials and both count toward lockout.
func (e *Engine) Login(ctx context.Context, email, pass string) (*AuthResult, error) {
	email = principal(email)
	if email == "" || pass == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	var matched *UserRecord
	deps := flows.LoginDeps{
		Guard: e.guard,
		LookupByEmail: func(ctx context.Context, em string) (*flows.Account, bool, error) {
			user, err := e.users.GetByEmail(ctx, em)
			if err != nil {
				if errors.Is(err, ErrUserNotFound) {
					return nil, false, nil
				}
				return nil, false, err
			}
			matched = user
			return &flows.Account{
				ID:           user.ID,
				Email:        user.Email,
				PasswordHash: user.PasswordHash,
				Verified:     user.EmailVerified,
			}, true, nil
		},
		VerifyPassword:  e.hasher.Verify,
		IssuePair:       e.issuePair,
		RequireVerified: e.config.Account.RequireVerifiedForLogin,
		Warn:            e.log.Warnf,
	}

	result := flows.RunLogin(ctx, email, pass, deps)

	switch result.Failure {
	case flows.LoginFailureNone:
		e.metrics.Inc(metrics.MetricLoginSuccess)
		e.emit(ctx, audit.Event{
			EventType: audit.TypeLogin,
			AccountID: matched.ID,
			Email:     email,
			JTI:       result.Pair.JTI,
			Success:   true,
		})
		return &AuthResult{
			User:         matched,
			AccessToken:  result.Pair.AccessToken,
			RefreshToken: result.Pair.RefreshToken,
		}, nil

	case flows.LoginFailureLocked:
		e.metrics.Inc(metrics.MetricLoginLocked)
		e.emitFailure(ctx, audit.TypeLogin, email, ErrAccountLocked)
		return nil, ErrAccountLocked

	case flows.LoginFailureInvalidCredentials:
		e.metrics.Inc(metrics.MetricLoginFailure)
		e.emitFailure(ctx, audit.TypeLogin, email, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials

	case flows.LoginFailureUnverified:
		e.metrics.Inc(metrics.MetricLoginUnverified)
		e.emitFailure(ctx, audit.TypeLogin, email, ErrEmailNotVerified)
		return nil, ErrEmailNotVerified

	default:
		e.emitFailure(ctx, audit.TypeLogin, email, result.Err)
		return nil, result.Err
	}
}

// ReauthPassword confirms an account's password for step-up checks
// (password change, destructive operations). It never issues tokens and
// deliberately bypasses the lockout guard; transports should rate-limit
// the surface that exposes it.
func (e *Engine) ReauthPassword(ctx context.Context, accountID, pass string) error {
	if accountID == "" || pass == "" {
		return fmt.Errorf("%w: account id and password are required", ErrInvalidInput)
	}

	user, err := e.users.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	ok, err := e.hasher.Verify(pass, user.PasswordHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}
	return nil
}
