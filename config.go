package authcore

import (
	"fmt"
	"time"

	"github.com/platformid/authcore/password"
)

// Config is the immutable engine configuration. Build validates it once; a
// missing secret or lifetime is fatal there so a misconfigured engine never
// serves traffic.
type Config struct {
	// Issuer is stamped into every signed token.
	Issuer string
	// Leeway tolerates clock skew between the token signer and verifier
	// when validating embedded expiry.
	Leeway time.Duration

	Session           TokenKindConfig
	PasswordReset     TokenKindConfig
	EmailVerification TokenKindConfig

	Cache    CacheConfig
	Queue    QueueConfig
	Email    EmailConfig
	Password password.Config
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// TokenKindConfig holds the per-kind signing secret, lifetime, and the
// frontend callback URL used when a token of that kind is delivered by
// email. Each kind carries an independent secret: compromise of one
// purpose's secret cannot forge tokens for another.
type TokenKindConfig struct {
	Secret      []byte
	Lifetime    time.Duration
	CallbackURL string
}

// CacheConfig controls the revocation cache.
type CacheConfig struct {
	// Prefix namespaces the cache keys.
	Prefix string
	// Threshold is added to a token's lifetime when computing the cache
	// entry TTL, absorbing clock skew between signer and cache.
	Threshold time.Duration
	// OpTimeout bounds every cache call.
	OpTimeout time.Duration
}

// QueueConfig controls the email dispatch pipeline.
type QueueConfig struct {
	Prefix      string
	MaxAttempts int
	Backoff     time.Duration
	Workers     int
	SendTimeout time.Duration
	OpTimeout   time.Duration
}

// EmailConfig holds sender identity and template placeholders shared by all
// outbound email.
type EmailConfig struct {
	From           string
	AppName        string
	SupportContact string
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the baseline configuration. Secrets are empty and
// must be supplied by the caller; Build refuses to construct an engine
// without them.
func DefaultConfig() Config {
	return Config{
		Session: TokenKindConfig{
			Lifetime: time.Hour,
		},
		PasswordReset: TokenKindConfig{
			Lifetime: 2 * time.Minute,
		},
		EmailVerification: TokenKindConfig{
			Lifetime: 24 * time.Hour,
		},
		Cache: CacheConfig{
			Prefix:    "session",
			Threshold: 30 * time.Second,
			OpTimeout: 2 * time.Second,
		},
		Queue: QueueConfig{
			Prefix:      "mailq",
			MaxAttempts: 3,
			Backoff:     5 * time.Second,
			Workers:     2,
			SendTimeout: 10 * time.Second,
			OpTimeout:   2 * time.Second,
		},
		Password: password.DefaultConfig(),
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func validateConfig(cfg Config) error {
	if cfg.Cache.Threshold < 0 {
		return fmt.Errorf("%w: cache threshold must not be negative", ErrConfiguration)
	}
	if cfg.Queue.MaxAttempts <= 0 {
		return fmt.Errorf("%w: queue max attempts must be positive", ErrConfiguration)
	}
	if cfg.Queue.Backoff < 0 {
		return fmt.Errorf("%w: queue backoff must not be negative", ErrConfiguration)
	}
	return nil
}
