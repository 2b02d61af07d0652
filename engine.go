package authcore

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/platformid/authcore/internal/audit"
	"github.com/platformid/authcore/mailqueue"
	"github.com/platformid/authcore/password"
	"github.com/platformid/authcore/revocation"
	"github.com/platformid/authcore/token"
)

// revocationCache is the cache surface the engine depends on. Satisfied by
// *revocation.Store.
type revocationCache interface {
	Put(ctx context.Context, tokenID string, rec *revocation.Record, ttl time.Duration) error
	Get(ctx context.Context, tokenID string) (*revocation.Record, error)
	MarkRevoked(ctx context.Context, tokenID string, reason string, at time.Time) error
	Ping(ctx context.Context) error
}

// Engine is the identity authority: it issues, verifies, renews, and revokes
// session tokens, derives one-shot password-reset and email-verification
// tokens from the same codec, and feeds the asynchronous email dispatch
// pipeline.
//
// Engine instances are built once via Builder and treated as immutable.
type Engine struct {
	config   Config
	codec    *token.Codec
	cache    revocationCache
	queue    *mailqueue.Queue
	renderer *mailqueue.Renderer
	pool     *mailqueue.Pool
	poolOnce sync.Once
	hasher   *password.Hasher
	users    UserStore
	mailer   Mailer
	audit    *audit.Dispatcher
	metrics  *Metrics
}

// ErrNoMailer is returned by StartEmailWorkers when no transport was
// provided to the builder.
var ErrNoMailer = errors.New("no mailer configured")

// StartEmailWorkers launches the delivery worker pool. Workers run until
// Close or ctx cancellation. Calling it more than once, from any number of
// goroutines, is a no-op.
func (e *Engine) StartEmailWorkers(ctx context.Context) error {
	if e == nil || e.queue == nil {
		return ErrEngineNotReady
	}
	if e.mailer == nil {
		return ErrNoMailer
	}

	e.poolOnce.Do(func() {
		e.pool = mailqueue.NewPool(e.queue, e.mailer, mailqueue.PoolConfig{
			Workers:     e.config.Queue.Workers,
			From:        e.config.Email.From,
			SendTimeout: e.config.Queue.SendTimeout,
		}, mailqueue.Hooks{
			Completed: func(job *mailqueue.Job, attempts int) {
				e.metrics.inc(MetricEmailCompleted)
				e.emitAudit(context.Background(), AuditEvent{
					EventType: auditEventEmailCompleted,
					Recipient: job.Recipient,
					Success:   true,
					Metadata:  map[string]string{"attempts": strconv.Itoa(attempts)},
				})
			},
			Retried: func(job *mailqueue.Job, err error) {
				e.metrics.inc(MetricEmailRetried)
			},
			Exhausted: func(job *mailqueue.Job, err error) {
				e.metrics.inc(MetricEmailExhausted)
				e.emitAudit(context.Background(), AuditEvent{
					EventType: auditEventEmailExhausted,
					Recipient: job.Recipient,
					Success:   false,
					Error:     err.Error(),
					Metadata:  map[string]string{"subject": job.Subject},
				})
			},
		})
	})

	e.pool.Start(ctx)
	return nil
}

// Close stops the email workers and drains the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.pool != nil {
		e.pool.Close()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() map[MetricID]uint64 {
	if e == nil {
		return map[MetricID]uint64{}
	}
	return e.metrics.Snapshot()
}

// ExhaustedEmailJobs returns jobs whose delivery attempts were all spent,
// for manual remediation.
func (e *Engine) ExhaustedEmailJobs(ctx context.Context, limit int64) ([]*EmailJob, error) {
	if e == nil || e.queue == nil {
		return nil, ErrEngineNotReady
	}
	jobs, err := e.queue.ExhaustedJobs(ctx, limit)
	if err != nil {
		return nil, mapQueueError(err)
	}
	return jobs, nil
}

// Ping checks revocation-cache availability.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.cache == nil {
		return ErrEngineNotReady
	}
	if err := e.cache.Ping(ctx); err != nil {
		return mapCacheError(err)
	}
	return nil
}

func mapCacheError(err error) error {
	switch {
	case errors.Is(err, revocation.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, revocation.ErrUnavailable):
		return errors.Join(ErrUnavailable, err)
	default:
		return err
	}
}

func mapQueueError(err error) error {
	if errors.Is(err, mailqueue.ErrUnavailable) {
		return errors.Join(ErrUnavailable, err)
	}
	return err
}

func mapCodecError(err error) error {
	switch {
	case errors.Is(err, token.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, token.ErrInvalid):
		return errors.Join(ErrTokenInvalid, err)
	case errors.Is(err, token.ErrKindNotConfigured):
		return errors.Join(ErrConfiguration, err)
	default:
		return err
	}
}
