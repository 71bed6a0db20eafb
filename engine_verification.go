package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkarel/authcore/internal/audit"
	"github.com/mkarel/authcore/internal/metrics"
	"github.com/mkarel/authcore/internal/stores"
)

// VerifyEmail redeems a verification ticket and flips the account's
// verified flag. A ticket works exactly once; presenting it again, or
// presenting an unknown token, fails. If the flag update fails the
// ticket is restored for its remaining lifetime so the user can retry.
func (e *Engine) VerifyEmail(ctx context.Context, ticket string) error {
	if ticket == "" {
		return fmt.Errorf("%w: verification token is required", ErrInvalidInput)
	}

	record, err := e.verifications.Consume(ctx, ticket)
	if err != nil {
		e.metrics.Inc(metrics.MetricVerifyFailure)
		switch {
		case errors.Is(err, stores.ErrVerificationSpent):
			e.emitFailure(ctx, audit.TypeVerifyEmail, "", ErrVerificationExpiredOrUsed)
			return ErrVerificationExpiredOrUsed
		case errors.Is(err, stores.ErrVerificationNotFound):
			e.emitFailure(ctx, audit.TypeVerifyEmail, "", ErrVerificationNotFound)
			return ErrVerificationNotFound
		default:
			return err
		}
	}

	if err := e.users.MarkEmailVerified(ctx, record.AccountID); err != nil {
		if rerr := e.verifications.Restore(ctx, ticket, record); rerr != nil {
			e.log.WithError(rerr).Warnf("verification ticket restore failed for account %s", record.AccountID)
		}
		e.metrics.Inc(metrics.MetricVerifyFailure)
		e.emitFailure(ctx, audit.TypeVerifyEmail, "", err)
		return err
	}

	e.metrics.Inc(metrics.MetricVerifySuccess)
	e.emit(ctx, audit.Event{
		EventType: audit.TypeVerifyEmail,
		AccountID: record.AccountID,
		Success:   true,
	})
	return nil
}

// ResendVerification issues a fresh ticket for an unverified account
// and mails it. The previous ticket, if still live, remains redeemable
// until it expires. Resending for an already-verified account is a
// no-op.
func (e *Engine) ResendVerification(ctx context.Context, email string) error {
	email = principal(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	user, err := e.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return nil
	}

	e.sendVerification(ctx, user)
	return nil
}
