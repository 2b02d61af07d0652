package mailqueue

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// PoolConfig controls the delivery worker pool.
type PoolConfig struct {
	// Workers is the number of concurrent delivery slots.
	Workers int
	// From is the sender address stamped on every message.
	From string
	// SendTimeout bounds a single transport send. A timed-out send counts
	// as a failed attempt, it never hangs the worker slot.
	SendTimeout time.Duration
	// DequeueWait is how long a worker blocks waiting for a pending job
	// before it re-checks the delayed set.
	DequeueWait time.Duration
}

// Hooks receive delivery outcomes. All fields are optional.
type Hooks struct {
	// Completed fires after a successful send with the attempt count used.
	Completed func(job *Job, attempts int)
	// Retried fires when a failed job is rescheduled.
	Retried func(job *Job, err error)
	// Exhausted fires when a job's attempt budget is spent.
	Exhausted func(job *Job, err error)
}

// Pool runs delivery workers against a Queue. Each worker pulls one job at a
// time, promotes due retries, sends, and reschedules failures.
type Pool struct {
	queue  *Queue
	mailer Mailer
	cfg    PoolConfig
	hooks  Hooks

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewPool creates a worker pool. Defaults: 2 workers, 10s send timeout, 1s
// dequeue wait.
func NewPool(queue *Queue, mailer Mailer, cfg PoolConfig, hooks Hooks) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.DequeueWait <= 0 {
		cfg.DequeueWait = time.Second
	}
	return &Pool{
		queue:  queue,
		mailer: mailer,
		cfg:    cfg,
		hooks:  hooks,
	}
}

// Start launches the worker goroutines. It returns immediately; workers run
// until Close or ctx cancellation.
func (p *Pool) Start(ctx context.Context) {
	p.once.Do(func() {
		ctx, p.cancel = context.WithCancel(ctx)
		for i := 0; i < p.cfg.Workers; i++ {
			p.wg.Add(1)
			go p.run(ctx)
		}
	})
}

// Close stops the workers and waits for in-flight sends to finish.
func (p *Pool) Close() {
	if p == nil || p.cancel == nil {
		return
	}
	p.cancel()
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context) {
	defer p.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		if _, err := p.queue.PromoteDue(ctx, time.Now()); err != nil && ctx.Err() == nil {
			log.Printf("mailqueue: promote due jobs: %v", err)
		}

		job, err := p.queue.Dequeue(ctx, p.cfg.DequeueWait)
		if err != nil {
			if errors.Is(err, ErrEmptyQueue) || ctx.Err() != nil {
				continue
			}
			log.Printf("mailqueue: dequeue: %v", err)
			continue
		}

		p.process(ctx, job)
	}
}

// process performs one delivery attempt and routes the outcome: completed,
// rescheduled after backoff, or exhausted. Exhausted jobs are persisted and
// warn-logged with full context — an undeliverable notification is a
// remediation item, not a silent drop.
func (p *Pool) process(ctx context.Context, job *Job) {
	sendCtx, cancel := context.WithTimeout(ctx, p.cfg.SendTimeout)
	err := p.mailer.Send(sendCtx, Message{
		From:    p.cfg.From,
		To:      job.Recipient,
		Subject: job.Subject,
		Text:    job.Text,
		HTML:    job.HTML,
	})
	cancel()

	job.Attempt++

	if err == nil {
		if p.hooks.Completed != nil {
			p.hooks.Completed(job, job.Attempt)
		}
		return
	}

	job.LastError = err.Error()

	// A popped job exists only in this worker's memory until it is written
	// back to Redis. The outcome writes therefore must not die with the pool
	// context: a shutdown mid-attempt would otherwise lose the job entirely.
	writeCtx := context.WithoutCancel(ctx)

	if !job.Exhausted() {
		if schedErr := p.queue.Schedule(writeCtx, job, time.Now().Add(job.Backoff())); schedErr != nil {
			log.Printf("mailqueue: reschedule job %s for %s: %v", job.ID, job.Recipient, schedErr)
		}
		if p.hooks.Retried != nil {
			p.hooks.Retried(job, err)
		}
		return
	}

	if markErr := p.queue.MarkExhausted(writeCtx, job); markErr != nil {
		log.Printf("mailqueue: record exhausted job %s: %v", job.ID, markErr)
	}
	log.Printf(
		"mailqueue: WARNING job %s exhausted after %d attempts: recipient=%s subject=%q last error=%v",
		job.ID, job.Attempt, job.Recipient, job.Subject, err,
	)
	if p.hooks.Exhausted != nil {
		p.hooks.Exhausted(job, err)
	}
}
