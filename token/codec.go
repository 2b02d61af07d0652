package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind identifies the purpose of a signed token. Each kind is signed and
// verified with its own secret, so compromise of one purpose's secret cannot
// forge tokens for another.
type Kind uint8

const (
	// KindSession is a bearer token for an authenticated session.
	KindSession Kind = iota
	// KindPasswordReset is a one-shot token authorizing a password overwrite.
	KindPasswordReset
	// KindEmailVerification is a one-shot token authorizing an email
	// address to be marked verified.
	KindEmailVerification

	kindCount
)

// String returns the claim value embedded for the kind.
func (k Kind) String() string {
	switch k {
	case KindSession:
		return "session"
	case KindPasswordReset:
		return "password_reset"
	case KindEmailVerification:
		return "email_verification"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalid is returned when a token is malformed, carries an
	// unexpected signature, or was signed for a different kind.
	ErrInvalid = errors.New("invalid token")
	// ErrExpired is returned when a structurally valid token is past its
	// embedded expiry.
	ErrExpired = errors.New("token expired")
	// ErrKindNotConfigured is returned by NewCodec when a kind is missing
	// its secret or lifetime.
	ErrKindNotConfigured = errors.New("token kind not configured")
)

// KindConfig holds the signing secret and lifetime for one token kind.
//
// KindConfig instances are intended to be configured during initialization
// and then treated as immutable.
type KindConfig struct {
	Secret   []byte
	Lifetime time.Duration
}

// Claims is the decoded payload of a signed token. Subject carries the user
// identifier, ID carries the per-issuance jti used as the revocation-cache
// key, and Email is set only for email-verification tokens.
type Claims struct {
	Email string `json:"email,omitempty"`
	Kind  string `json:"knd"`
	jwt.RegisteredClaims
}

// TokenID returns the jti minted at issuance.
func (c *Claims) TokenID() string {
	return c.ID
}

// Codec signs, verifies, and decodes tokens for the closed set of kinds.
// All methods are safe for concurrent use.
type Codec struct {
	configs [kindCount]KindConfig
	issuer  string
	leeway  time.Duration
}

// Option configures optional codec behavior.
type Option func(*Codec)

// WithLeeway tolerates clock skew of up to d when validating embedded
// expiry. Zero or negative values are ignored.
func WithLeeway(d time.Duration) Option {
	return func(c *Codec) {
		c.leeway = d
	}
}

// NewCodec builds a codec from per-kind configuration. Every kind must carry
// a non-empty secret and a positive lifetime; a misconfigured kind fails the
// construction with ErrKindNotConfigured so the caller can refuse to serve
// traffic.
func NewCodec(issuer string, session, passwordReset, emailVerification KindConfig, opts ...Option) (*Codec, error) {
	c := &Codec{
		configs: [kindCount]KindConfig{
			KindSession:           session,
			KindPasswordReset:     passwordReset,
			KindEmailVerification: emailVerification,
		},
		issuer: issuer,
	}
	for _, opt := range opts {
		opt(c)
	}

	for kind, cfg := range c.configs {
		if len(cfg.Secret) == 0 {
			return nil, fmt.Errorf("%w: %s secret missing", ErrKindNotConfigured, Kind(kind))
		}
		if cfg.Lifetime <= 0 {
			return nil, fmt.Errorf("%w: %s lifetime must be positive", ErrKindNotConfigured, Kind(kind))
		}
	}

	return c, nil
}

// Sign produces a compact signed token of the given kind. A fresh jti is
// minted per call; tokens are never re-signed, renewal always produces a new
// token identifier.
func (c *Codec) Sign(kind Kind, subject, email string) (string, error) {
	cfg, err := c.kindConfig(kind)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := Claims{
		Kind: kind.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.Lifetime)),
			Issuer:    c.issuer,
		},
	}
	if kind == KindEmailVerification {
		claims.Email = email
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Secret)
}

// Verify parses and validates a token against the kind's secret and the
// embedded expiry. Failures collapse into the two typed outcomes: ErrExpired
// when only time has lapsed, ErrInvalid for everything else. Verify never
// consults external state; staleness is self-contained in the payload.
func (c *Codec) Verify(kind Kind, tokenStr string) (*Claims, error) {
	cfg, err := c.kindConfig(kind)
	if err != nil {
		return nil, err
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if c.leeway > 0 {
		options = append(options, jwt.WithLeeway(c.leeway))
	}
	if c.issuer != "" {
		options = append(options, jwt.WithIssuer(c.issuer))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return cfg.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalid
	}
	if claims.Kind != kind.String() {
		return nil, fmt.Errorf("%w: kind mismatch", ErrInvalid)
	}

	return claims, nil
}

// Decode parses claims without checking signature or expiry. It exists for
// trusted internal callers that already hold a verified token and only need
// the jti back out, such as building a revocation-cache key. Decode must
// never be used to authorize an action.
func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return claims, nil
}

// Lifetime returns the configured lifetime for a kind.
func (c *Codec) Lifetime(kind Kind) time.Duration {
	cfg, err := c.kindConfig(kind)
	if err != nil {
		return 0
	}
	return cfg.Lifetime
}

func (c *Codec) kindConfig(kind Kind) (KindConfig, error) {
	if kind >= kindCount {
		return KindConfig{}, fmt.Errorf("%w: unknown kind %d", ErrKindNotConfigured, kind)
	}
	return c.configs[kind], nil
}
