package authcore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mkarel/authcore/internal/audit"
	"github.com/mkarel/authcore/internal/flows"
	"github.com/mkarel/authcore/internal/limiters"
	"github.com/mkarel/authcore/internal/metrics"
	"github.com/mkarel/authcore/internal/stores"
	"github.com/mkarel/authcore/kv"
	"github.com/mkarel/authcore/password"
	"github.com/mkarel/authcore/session"
	"github.com/mkarel/authcore/token"
)

// Engine is the authentication orchestrator. Construct it with a
// Builder; the zero value is not usable. All methods are safe for
// concurrent use.
type Engine struct {
	config        Config
	store         kv.Store
	codec         *token.Codec
	registry      *session.Registry
	guard         *limiters.LockoutGuard
	verifications *stores.VerificationStore
	hasher        *password.Argon2
	audit         *audit.Dispatcher
	metrics       *metrics.Metrics
	users         UserProvider
	mailer        Mailer
	log           logrus.FieldLogger
}

// Close drains and stops the audit pipeline. The engine must not be
// used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// MetricsSnapshot returns a copy of every counter.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// AuditDropped returns how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	return e.audit.Dropped()
}

// ParseAccess verifies an access token and returns its claims. Intended
// for transport middleware. Revocation does not apply to access tokens;
// they simply expire.
func (e *Engine) ParseAccess(ctx context.Context, accessToken string) (*token.Claims, error) {
	claims, err := e.codec.Parse(token.KindAccess, accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// principal normalizes an email for lockout keys and adapter lookups.
func principal(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// issuePair mints an access/refresh pair and registers the refresh
// session.
func (e *Engine) issuePair(ctx context.Context, accountID string) (*flows.TokenPair, error) {
	access, _, err := e.codec.Issue(token.KindAccess, accountID, nil)
	if err != nil {
		return nil, err
	}

	refresh, refreshClaims, err := e.codec.Issue(token.KindRefresh, accountID, nil)
	if err != nil {
		return nil, err
	}

	if err := e.registry.Store(ctx, accountID, refreshClaims.JTI(), refresh, e.codec.TTL(token.KindRefresh)); err != nil {
		return nil, err
	}
	e.metrics.Inc(metrics.MetricSessionCreated)

	return &flows.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		JTI:          refreshClaims.JTI(),
	}, nil
}

func (e *Engine) emit(ctx context.Context, event audit.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	e.audit.Emit(ctx, event)
}

func (e *Engine) emitFailure(ctx context.Context, eventType, email string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	e.emit(ctx, audit.Event{
		EventType: eventType,
		Email:     email,
		Success:   false,
		Error:     msg,
	})
}
