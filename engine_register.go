package authcore

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/mkarel/authcore/internal/audit"
	"github.com/mkarel/authcore/internal/metrics"
)

func validateRegister(req RegisterRequest) error {
	return validation.Errors{
		"email":        validation.Validate(req.Email, validation.Required, is.Email),
		"password":     validation.Validate(req.Password, validation.Required, validation.Length(8, 512)),
		"display_name": validation.Validate(req.DisplayName, validation.Length(0, 128)),
	}.Filter()
}

// Register creates an unverified account, issues a verification ticket,
// and returns a usable token pair immediately. Verification gates later
// password logins, not the registration response itself.
//
// Ticket delivery is best-effort: a Mailer failure (or no Mailer at
// all) is logged and the registration still succeeds. The ticket can be
// re-sent with ResendVerification.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if err := validateRegister(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	email := principal(req.Email)

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	input := CreateUserInput{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  req.DisplayName,
	}
	if e.config.Account.DefaultRole != "" {
		input.Roles = []string{e.config.Account.DefaultRole}
	}

	user, err := e.users.Create(ctx, input)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			e.metrics.Inc(metrics.MetricRegisterDuplicate)
			e.emitFailure(ctx, audit.TypeRegister, email, ErrEmailTaken)
			return nil, ErrEmailTaken
		}
		e.emitFailure(ctx, audit.TypeRegister, email, err)
		return nil, err
	}

	e.sendVerification(ctx, user)

	pair, err := e.issuePair(ctx, user.ID)
	if err != nil {
		e.emitFailure(ctx, audit.TypeRegister, email, err)
		return nil, err
	}

	e.metrics.Inc(metrics.MetricRegisterSuccess)
	e.emit(ctx, audit.Event{
		EventType: audit.TypeRegister,
		AccountID: user.ID,
		Email:     email,
		JTI:       pair.JTI,
		Success:   true,
	})

	return &AuthResult{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// sendVerification issues a ticket and hands it to the Mailer. Every
// failure mode ends in a log line, never an error to the caller.
func (e *Engine) sendVerification(ctx context.Context, user *UserRecord) {
	ticket, err := e.verifications.Issue(ctx, user.ID, e.config.Verification.TTL)
	if err != nil {
		e.log.WithError(err).Warnf("verification ticket issue failed for account %s", user.ID)
		return
	}

	link := e.config.Verification.BaseURL + ticket
	if !e.config.Verification.EmailEnabled || e.mailer == nil {
		e.log.Infof("verification email disabled; ticket issued for account %s", user.ID)
		return
	}
	if err := e.mailer.SendVerification(ctx, user.Email, link); err != nil {
		e.log.WithError(err).Warnf("verification email send failed for account %s", user.ID)
	}
}
