package authcore

import "errors"

var (
	// ErrInvalidInput is returned when request validation fails before
	// any component is touched (malformed email, blank password, and so
	// on).
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmailTaken is returned by Register when the email already has
	// an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials covers both a missing account and a wrong
	// password; the two are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while a lockout marker is live. It
	// takes precedence over credential correctness.
	ErrAccountLocked = errors.New("account temporarily locked")
	// ErrEmailNotVerified is returned on login when the password was
	// correct but the email is still unverified.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrInvalidToken covers forged, malformed, and expired tokens of
	// either kind.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnauthorized is returned when a structurally valid refresh
	// token has been revoked or is no longer registered.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrVerificationNotFound is returned for an unknown verification
	// token.
	ErrVerificationNotFound = errors.New("verification token not found")
	// ErrVerificationExpiredOrUsed is returned when the ticket exists in
	// no redeemable state: expired or already consumed.
	ErrVerificationExpiredOrUsed = errors.New("verification token expired or already used")
	// ErrConsentRequired is returned by FederatedLogin when the provider
	// email matches an existing account and the caller has not
	// acknowledged the link. Re-invoke with ConsentLink set.
	ErrConsentRequired = errors.New("account linking consent required")
	// ErrUserNotFound is the adapter contract error for missing
	// accounts.
	ErrUserNotFound = errors.New("user not found")
	// ErrSocialLinkNotFound is the adapter contract error for a missing
	// (provider, subject) link.
	ErrSocialLinkNotFound = errors.New("social link not found")
)
