package authcore

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/mkarel/authcore/internal/audit"
	"github.com/mkarel/authcore/internal/limiters"
	"github.com/mkarel/authcore/internal/metrics"
	"github.com/mkarel/authcore/internal/stores"
	"github.com/mkarel/authcore/kv"
	"github.com/mkarel/authcore/password"
	"github.com/mkarel/authcore/session"
	"github.com/mkarel/authcore/token"
)

// Builder assembles an Engine. Exactly one backing store must be
// selected (WithRedis or WithMemoryStore) and a UserProvider is
// mandatory; everything else has defaults.
type Builder struct {
	config       Config
	redisClient  redis.UniversalClient
	memoryStore  bool
	userProvider UserProvider
	mailer       Mailer
	auditSink    AuditSink
	logger       logrus.FieldLogger

	built bool
}

// New returns a Builder preloaded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis selects Redis as the backing store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redisClient = client
	return b
}

// WithMemoryStore selects the process-local store. Intended for tests
// and single-process development setups; state does not survive a
// restart and is invisible to other processes.
func (b *Builder) WithMemoryStore() *Builder {
	b.memoryStore = true
	return b
}

// WithUserProvider sets the credential store adapter.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithMailer sets the verification mail collaborator. Optional; without
// it ticket tokens are only logged.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithAuditSink sets the audit destination. Ignored unless auditing is
// enabled in the config.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. Defaults to the logrus
// standard logger.
func (b *Builder) WithLogger(l logrus.FieldLogger) *Builder {
	b.logger = l
	return b
}

// Build validates the configuration, wires every component, and returns
// a ready Engine. A Builder can build once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider is required")
	}
	if b.redisClient != nil && b.memoryStore {
		return nil, errors.New("redis and memory store are mutually exclusive")
	}
	if b.redisClient == nil && !b.memoryStore {
		return nil, errors.New("a backing store is required: use WithRedis or WithMemoryStore")
	}
	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var store kv.Store
	if b.redisClient != nil {
		store = kv.NewRedis(b.redisClient)
	} else {
		store = kv.NewMemory()
	}

	codec, err := token.NewCodec(token.Config{
		AccessSecret:  b.config.Token.AccessSecret,
		RefreshSecret: b.config.Token.RefreshSecret,
		AccessTTL:     b.config.Token.AccessTTL,
		RefreshTTL:    b.config.Token.RefreshTTL,
		Issuer:        b.config.Token.Issuer,
		Leeway:        b.config.Token.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token config: %w", err)
	}

	hasher, err := password.NewArgon2(b.config.Password)
	if err != nil {
		return nil, fmt.Errorf("invalid password config: %w", err)
	}

	logger := b.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	b.built = true

	return &Engine{
		config:   b.config,
		store:    store,
		codec:    codec,
		registry: session.NewRegistry(store, b.config.Store.KeyPrefix),
		guard: limiters.NewLockoutGuard(store, b.config.Store.KeyPrefix, limiters.LockoutConfig{
			MaxFailures:     b.config.Lockout.MaxFailures,
			FailureWindow:   b.config.Lockout.FailureWindow,
			LockoutDuration: b.config.Lockout.LockoutDuration,
		}),
		verifications: stores.NewVerificationStore(store, b.config.Store.KeyPrefix),
		hasher:        hasher,
		audit: audit.NewDispatcher(audit.DispatcherConfig{
			Enabled:    b.config.Audit.Enabled,
			BufferSize: b.config.Audit.BufferSize,
			DropIfFull: b.config.Audit.DropIfFull,
		}, b.auditSink),
		metrics: metrics.New(metrics.Config{Enabled: b.config.Metrics.Enabled}),
		users:   b.userProvider,
		mailer:  b.mailer,
		log:     logger,
	}, nil
}
