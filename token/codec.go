package token

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind selects which of the two token classes a codec operation applies
// to. Access and refresh tokens are structurally identical but signed
// with disjoint keys, so a token of one kind can never verify as the
// other.
type Kind int

const (
	// KindAccess is the short-lived bearer token presented on API calls.
	KindAccess Kind = iota
	// KindRefresh is the long-lived token redeemed for new pairs.
	KindRefresh
)

func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// ErrInvalidToken covers bad signatures, malformed structure, and
// expired tokens. Cross-kind presentation fails signature verification
// and surfaces as the same error so callers cannot probe which check
// tripped.
var ErrInvalidToken = errors.New("invalid token")

const minKeyBytes = 32

// Claims is the fixed claim set carried by both token kinds. UID is the
// account id; the registered claims carry jti, sub, iat, and exp. Extra
// is the only extension point; it is a bounded string map, never an open
// claims object.
type Claims struct {
	UID   string            `json:"uid"`
	Extra map[string]string `json:"ext,omitempty"`
	jwt.RegisteredClaims
}

// JTI returns the token's unique identifier.
func (c *Claims) JTI() string {
	return c.ID
}

// Config holds the signing material and lifetimes for both kinds.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

// Codec signs and verifies access and refresh tokens. It is purely
// functional over its keys; it never touches storage.
type Codec struct {
	config Config
}

// NewCodec validates the key material and lifetimes and returns a Codec.
// The two secrets must be at least 32 bytes and must differ; shared keys
// would collapse the kind separation the whole protocol relies on.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) < minKeyBytes {
		return nil, fmt.Errorf("access secret must be at least %d bytes", minKeyBytes)
	}
	if len(cfg.RefreshSecret) < minKeyBytes {
		return nil, fmt.Errorf("refresh secret must be at least %d bytes", minKeyBytes)
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must be distinct")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	return &Codec{config: cfg}, nil
}

// TTL returns the configured lifetime for a kind.
func (c *Codec) TTL(kind Kind) time.Duration {
	if kind == KindRefresh {
		return c.config.RefreshTTL
	}
	return c.config.AccessTTL
}

// Issue signs a new token of the given kind for subject. Each token
// carries a fresh uuid jti, the issuance instant, and an expiry derived
// from the kind's TTL. extra is copied into the claims verbatim.
func (c *Codec) Issue(kind Kind, subject string, extra map[string]string) (string, *Claims, error) {
	now := time.Now()

	claims := &Claims{
		UID:   subject,
		Extra: extra,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.TTL(kind))),
		},
	}
	if c.config.Issuer != "" {
		claims.Issuer = c.config.Issuer
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret(kind))
	if err != nil {
		return "", nil, err
	}

	return signed, claims, nil
}

// Parse verifies a token against the given kind's key and returns its
// claims. Any verification failure, including a token of the other kind,
// maps to ErrInvalidToken.
func (c *Codec) Parse(kind Kind, tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return c.secret(kind), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Remaining returns how much natural lifetime a parsed token has left,
// clamped at zero.
func Remaining(claims *Claims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (c *Codec) secret(kind Kind) []byte {
	if kind == KindRefresh {
		return c.config.RefreshSecret
	}
	return c.config.AccessSecret
}
