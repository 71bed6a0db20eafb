package authcore

import (
	"errors"
	"time"

	"github.com/mkarel/authcore/password"
)

// TokenConfig holds signing material and lifetimes for both token kinds.
// The two secrets must be at least 32 bytes and must differ.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

// LockoutConfig tunes the brute-force guard.
type LockoutConfig struct {
	MaxFailures     int
	FailureWindow   time.Duration
	LockoutDuration time.Duration
}

// VerificationConfig tunes email verification tickets. BaseURL, when
// set, is prefixed to the ticket token to form the mailed link.
// EmailEnabled false keeps the ledger active but skips the Mailer; the
// ticket token is still issued and logged.
type VerificationConfig struct {
	TTL          time.Duration
	BaseURL      string
	EmailEnabled bool
}

// AccountConfig holds account-level policy.
type AccountConfig struct {
	// DefaultRole is appended to every new account. Empty disables role
	// assignment.
	DefaultRole string
	// RequireVerifiedForLogin gates password login on the verified flag.
	// Registration always returns a usable token pair regardless.
	RequireVerifiedForLogin bool
	// RevocationGrace pads the blacklist TTL past the revoked token's
	// remaining lifetime to absorb clock skew between engine and store.
	RevocationGrace time.Duration
}

// AuditConfig controls the async audit pipeline.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// StoreConfig holds key-space settings shared by the session registry,
// the lockout guard, and the verification ledger. Distinct prefixes let
// multiple engines share one store without touching each other's keys.
type StoreConfig struct {
	KeyPrefix string
}

// Config is the full engine configuration. Zero value is not usable;
// start from DefaultConfig and fill in the secrets.
type Config struct {
	Token        TokenConfig
	Lockout      LockoutConfig
	Verification VerificationConfig
	Account      AccountConfig
	Password     password.Config
	Audit        AuditConfig
	Metrics      MetricsConfig
	Store        StoreConfig
}

// DefaultConfig returns production-leaning defaults. Token secrets are
// intentionally absent and must be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Lockout: LockoutConfig{
			MaxFailures:     5,
			FailureWindow:   15 * time.Minute,
			LockoutDuration: 15 * time.Minute,
		},
		Verification: VerificationConfig{
			TTL:          30 * time.Minute,
			EmailEnabled: true,
		},
		Account: AccountConfig{
			DefaultRole:             "user",
			RequireVerifiedForLogin: true,
			RevocationGrace:         time.Minute,
		},
		Password: password.Config{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Validate checks everything the token codec and password hasher do not
// validate themselves.
func (c Config) Validate() error {
	if c.Lockout.MaxFailures <= 0 {
		return errors.New("lockout max failures must be positive")
	}
	if c.Lockout.FailureWindow <= 0 {
		return errors.New("lockout failure window must be positive")
	}
	if c.Lockout.LockoutDuration <= 0 {
		return errors.New("lockout duration must be positive")
	}
	if c.Verification.TTL <= 0 {
		return errors.New("verification TTL must be positive")
	}
	if c.Account.RevocationGrace < 0 {
		return errors.New("revocation grace must not be negative")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive")
	}
	return nil
}
