package authcore

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/platformid/authcore/internal/audit"
	"github.com/platformid/authcore/mailqueue"
	"github.com/platformid/authcore/password"
	"github.com/platformid/authcore/revocation"
	"github.com/platformid/authcore/token"
)

// Builder assembles an Engine. Configure it with the With* methods and call
// Build once; the builder is not safe for concurrent use.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	mailer    Mailer
	users     UserStore
	auditSink AuditSink
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the Redis client backing the revocation cache and the
// email queue.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithMailer sets the mail transport used by the dispatch workers.
func (b *Builder) WithMailer(mailer Mailer) *Builder {
	b.mailer = mailer
	return b
}

// WithUserStore sets the user persistence collaborator needed by the
// password-reset and email-verification completion flows.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

// WithAuditSink sets the destination for audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// Build validates the configuration and constructs the Engine. Configuration
// problems are fatal here — an engine with a missing secret or lifetime is
// never created.
func (b *Builder) Build() (*Engine, error) {
	if b.redis == nil {
		return nil, fmt.Errorf("%w: redis client is required", ErrConfiguration)
	}
	if err := validateConfig(b.config); err != nil {
		return nil, err
	}

	codec, err := token.NewCodec(
		b.config.Issuer,
		token.KindConfig{Secret: b.config.Session.Secret, Lifetime: b.config.Session.Lifetime},
		token.KindConfig{Secret: b.config.PasswordReset.Secret, Lifetime: b.config.PasswordReset.Lifetime},
		token.KindConfig{Secret: b.config.EmailVerification.Secret, Lifetime: b.config.EmailVerification.Lifetime},
		token.WithLeeway(b.config.Leeway),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	hasher, err := password.NewHasher(b.config.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	renderer, err := mailqueue.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	engine := &Engine{
		config:   b.config,
		codec:    codec,
		cache:    revocation.NewStore(b.redis, b.config.Cache.Prefix, b.config.Cache.OpTimeout),
		queue:    mailqueue.NewQueue(b.redis, b.config.Queue.Prefix, b.config.Queue.OpTimeout),
		renderer: renderer,
		hasher:   hasher,
		users:    b.users,
		mailer:   b.mailer,
		metrics:  newMetrics(b.config.Metrics),
	}

	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    b.config.Audit.Enabled,
		BufferSize: b.config.Audit.BufferSize,
		DropIfFull: b.config.Audit.DropIfFull,
	}, b.auditSink)

	return engine, nil
}
