package revocation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when no record exists for a token identifier.
	// For revocation this is benign (the TTL already lapsed); for
	// verification callers it is equivalent to expiry.
	ErrNotFound = errors.New("revocation record not found")
	// ErrUnavailable is returned when the Redis backend cannot be reached
	// or a call times out. Verification callers must fail closed on it.
	ErrUnavailable = errors.New("revocation cache unavailable")
)

const defaultOpTimeout = 2 * time.Second

// markRevoked sets only the two revocation fields, and only when the record
// still exists. The EXISTS check and the HSET run in one script so a
// concurrent TTL expiry cannot resurrect the key as a bare two-field hash.
const markRevokedScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2], ARGV[3], ARGV[4])
return 1
`

var markRevokedLua = redis.NewScript(markRevokedScript)

// Store is the Redis-backed revocation cache. Every operation targets
// exactly one key and runs under the configured operation timeout, so the
// store scales horizontally with no locking beyond Redis' per-key atomicity.
type Store struct {
	redis     redis.UniversalClient
	prefix    string
	opTimeout time.Duration
}

// NewStore creates a Store with the given key prefix. opTimeout bounds every
// Redis call; zero selects a 2s default.
func NewStore(client redis.UniversalClient, prefix string, opTimeout time.Duration) *Store {
	if prefix == "" {
		prefix = "session"
	}
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &Store{
		redis:     client,
		prefix:    prefix,
		opTimeout: opTimeout,
	}
}

func (s *Store) key(tokenID string) string {
	return s.prefix + ":" + tokenID
}

// Put writes the issuance record and (re)starts its TTL. Put is an
// idempotent upsert: re-writing the same tokenID replaces the metadata and
// extends the entry's life up to the token's natural expiry plus threshold.
func (s *Store) Put(ctx context.Context, tokenID string, rec *Record, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	key := s.key(tokenID)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, rec.fields())
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// Get fetches the record for a token identifier. A missing key returns
// ErrNotFound; backend failures return ErrUnavailable.
func (s *Store) Get(ctx context.Context, tokenID string) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	fields, err := s.redis.HGetAll(ctx, s.key(tokenID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	return recordFromFields(fields), nil
}

// MarkRevoked sets the revocation timestamp and reason without touching the
// issuance metadata. Returns ErrNotFound when the record's TTL already
// lapsed — callers holding a previously verified token should treat that as
// "already expired", not a failure.
func (s *Store) MarkRevoked(ctx context.Context, tokenID string, reason string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	status, err := markRevokedLua.Run(
		ctx,
		s.redis,
		[]string{s.key(tokenID)},
		fieldRevokedAt,
		strconv.FormatInt(at.Unix(), 10),
		fieldRevokedReason,
		reason,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if status == 0 {
		return ErrNotFound
	}

	return nil
}

// Ping returns a point-in-time availability check for the backend.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
