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

func validateFederated(req FederatedRequest) error {
	return validation.Errors{
		"provider":     validation.Validate(req.Provider, validation.Required, validation.Length(1, 64)),
		"subject_id":   validation.Validate(req.SubjectID, validation.Required, validation.Length(1, 255)),
		"email":        validation.Validate(req.Email, validation.Required, is.Email),
		"display_name": validation.Validate(req.DisplayName, validation.Length(0, 128)),
	}.Filter()
}

// FederatedLogin signs in a provider-asserted identity. Resolution
// order:
//
//  1. An existing (provider, subject) link wins; the linked account is
//     signed in with no consent check.
//  2. Otherwise, an account matching the asserted email requires the
//     caller to acknowledge the link: without ConsentLink the call
//     fails with ErrConsentRequired and nothing is written; with it the
//     link is created and the account signed in.
//  3. Otherwise a new account is created, already verified, with no
//     usable password, and linked.
//
// Repeat calls with the same (provider, subject) always land on the
// same account. The lockout guard does not apply; the provider already
// authenticated the user.
func (e *Engine) FederatedLogin(ctx context.Context, req FederatedRequest) (*AuthResult, error) {
	if err := validateFederated(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	email := principal(req.Email)

	user, err := e.resolveFederated(ctx, req, email)
	if err != nil {
		if errors.Is(err, ErrConsentRequired) {
			e.metrics.Inc(metrics.MetricSocialConsentRequired)
		}
		e.emitFailure(ctx, audit.TypeSocialLogin, email, err)
		return nil, err
	}

	pair, err := e.issuePair(ctx, user.ID)
	if err != nil {
		e.emitFailure(ctx, audit.TypeSocialLogin, email, err)
		return nil, err
	}

	e.metrics.Inc(metrics.MetricSocialLoginSuccess)
	e.emit(ctx, audit.Event{
		EventType: audit.TypeSocialLogin,
		AccountID: user.ID,
		Email:     email,
		JTI:       pair.JTI,
		Success:   true,
		Metadata:  map[string]string{"provider": req.Provider},
	})

	return &AuthResult{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

func (e *Engine) resolveFederated(ctx context.Context, req FederatedRequest, email string) (*UserRecord, error) {
	link, err := e.users.FindSocialLink(ctx, req.Provider, req.SubjectID)
	if err == nil {
		return e.users.GetByID(ctx, link.AccountID)
	}
	if !errors.Is(err, ErrSocialLinkNotFound) {
		return nil, err
	}

	user, err := e.users.GetByEmail(ctx, email)
	if err == nil {
		if !req.ConsentLink {
			return nil, ErrConsentRequired
		}
		if err := e.users.CreateSocialLink(ctx, SocialLink{
			Provider:  req.Provider,
			SubjectID: req.SubjectID,
			AccountID: user.ID,
		}); err != nil {
			return nil, err
		}
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	// Provider attested the email, so the account starts verified. The
	// empty password hash never verifies; password login stays closed
	// until the user sets one through another flow.
	input := CreateUserInput{
		Email:         email,
		DisplayName:   req.DisplayName,
		EmailVerified: true,
	}
	if e.config.Account.DefaultRole != "" {
		input.Roles = []string{e.config.Account.DefaultRole}
	}

	user, err = e.users.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := e.users.CreateSocialLink(ctx, SocialLink{
		Provider:  req.Provider,
		SubjectID: req.SubjectID,
		AccountID: user.ID,
	}); err != nil {
		return nil, err
	}
	return user, nil
}
