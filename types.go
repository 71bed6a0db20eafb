package authcore

import (
	"context"
	"time"
)

// UserRecord is the engine's view of a stored account. The adapter owns
// persistence and casing of Email; the engine treats the record as
// read-only.
type UserRecord struct {
	ID            string
	Email         string
	PasswordHash  string
	DisplayName   string
	EmailVerified bool
	Roles         []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CreateUserInput is the payload for UserProvider.Create.
type CreateUserInput struct {
	Email         string
	PasswordHash  string
	DisplayName   string
	EmailVerified bool
	Roles         []string
}

// SocialLink binds a federated identity to an account. (Provider,
// SubjectID) is unique across the system.
type SocialLink struct {
	Provider  string
	SubjectID string
	AccountID string
}

// UserProvider is the credential store adapter. Implementations bring
// their own persistence (SQL, document store, in-memory) and report
// misses with the package sentinels:
//
//   - GetByEmail / GetByID return ErrUserNotFound for missing accounts.
//     Email lookup is case-insensitive.
//   - Create returns ErrEmailTaken on a unique-email conflict.
//   - FindSocialLink returns ErrSocialLinkNotFound when the (provider,
//     subject) pair is unknown.
//
// All methods must be safe for concurrent use.
type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserRecord, error)
	GetByID(ctx context.Context, id string) (*UserRecord, error)
	Create(ctx context.Context, input CreateUserInput) (*UserRecord, error)
	MarkEmailVerified(ctx context.Context, id string) error
	AppendRole(ctx context.Context, id, role string) error
	FindSocialLink(ctx context.Context, provider, subjectID string) (*SocialLink, error)
	CreateSocialLink(ctx context.Context, link SocialLink) error
}

// Mailer delivers verification links. Delivery is best-effort from the
// engine's point of view: a send failure is logged, never propagated,
// and never rolls back the ticket.
type Mailer interface {
	SendVerification(ctx context.Context, to, link string) error
}

// RegisterRequest is the payload for Engine.Register.
type RegisterRequest struct {
	Email       string
	Password    string
	DisplayName string
}

// FederatedRequest is the payload for Engine.FederatedLogin. Provider
// and SubjectID identify the upstream identity; Email and DisplayName
// are the provider-asserted profile. ConsentLink acknowledges linking
// the federated identity to an existing account with the same email.
type FederatedRequest struct {
	Provider    string
	SubjectID   string
	Email       string
	DisplayName string
	ConsentLink bool
}

// AuthResult is returned by every token-issuing operation.
type AuthResult struct {
	User         *UserRecord
	AccessToken  string
	RefreshToken string
}
