package flows

import "context"

// LoginFailureKind classifies login flow exits for root-level mapping to
// sentinel errors, audit events, and metrics.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureLocked
	LoginFailureInvalidCredentials
	LoginFailureUnverified
	LoginFailureGuard
	LoginFailureLookup
	LoginFailureVerify
	LoginFailureIssue
)

// Account is the minimal credential view the login flow needs. The root
// package maps its provider records into this shape.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Verified     bool
}

// TokenPair is an issued access/refresh pair plus the refresh session id.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	JTI          string
}

// LoginGuard is the lockout surface the flow needs.
type LoginGuard interface {
	IsLocked(ctx context.Context, principal string) (bool, error)
	RecordFailure(ctx context.Context, principal string) error
	ResetFailures(ctx context.Context, principal string) error
}

// LoginDeps captures login flow dependencies. Every func field is
// mandatory unless noted.
type LoginDeps struct {
	Guard           LoginGuard
	LookupByEmail   func(ctx context.Context, email string) (*Account, bool, error)
	VerifyPassword  func(password, hash string) (bool, error)
	IssuePair       func(ctx context.Context, accountID string) (*TokenPair, error)
	RequireVerified bool
	// Warn is optional; used when a failure-count write fails after the
	// credential decision was already made.
	Warn func(format string, args ...any)
}

// LoginResult carries either the issued pair or failure metadata.
type LoginResult struct {
	Failure   LoginFailureKind
	Err       error
	Account   *Account
	Pair      *TokenPair
	Principal string
}

// RunLogin executes the authentication gates in order: lock check first
// (before any credential work, so a locked principal learns nothing from
// the response), then credential check, then the verified gate, then
// issuance. Missing accounts and wrong passwords are indistinguishable
// and both count toward lockout; a correct password on an unverified
// account does not.
func RunLogin(ctx context.Context, principal, password string, deps LoginDeps) LoginResult {
	locked, err := deps.Guard.IsLocked(ctx, principal)
	if err != nil {
		return LoginResult{Failure: LoginFailureGuard, Err: err, Principal: principal}
	}
	if locked {
		return LoginResult{Failure: LoginFailureLocked, Principal: principal}
	}

	account, found, err := deps.LookupByEmail(ctx, principal)
	if err != nil {
		return LoginResult{Failure: LoginFailureLookup, Err: err, Principal: principal}
	}

	credentialsOK := false
	if found {
		ok, verr := deps.VerifyPassword(password, account.PasswordHash)
		if verr != nil {
			// Unparseable hash (e.g. federated-only account) fails
			// closed as a credential mismatch, not an infrastructure
			// error.
			ok = false
		}
		credentialsOK = ok
	}

	if !credentialsOK {
		if err := deps.Guard.RecordFailure(ctx, principal); err != nil {
			if deps.Warn != nil {
				deps.Warn("lockout failure record failed for %q", principal)
			}
		}
		return LoginResult{Failure: LoginFailureInvalidCredentials, Principal: principal, Account: account}
	}

	if deps.RequireVerified && !account.Verified {
		// Credentials were correct; this exit never counts toward
		// lockout.
		return LoginResult{Failure: LoginFailureUnverified, Principal: principal, Account: account}
	}

	if err := deps.Guard.ResetFailures(ctx, principal); err != nil {
		if deps.Warn != nil {
			deps.Warn("lockout reset failed for %q", principal)
		}
	}

	pair, err := deps.IssuePair(ctx, account.ID)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, Principal: principal, Account: account}
	}

	return LoginResult{
		Failure:   LoginFailureNone,
		Account:   account,
		Pair:      pair,
		Principal: principal,
	}
}
