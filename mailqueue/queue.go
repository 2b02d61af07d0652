package mailqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrUnavailable is returned when the Redis backend cannot be reached.
	ErrUnavailable = errors.New("mail queue unavailable")
	// ErrEmptyQueue is returned by Dequeue when no job is ready.
	ErrEmptyQueue = errors.New("mail queue empty")
)

const defaultOpTimeout = 2 * time.Second

// promoteDue moves jobs whose ready time has arrived from the delayed
// sorted set back onto the pending list. Scoring and removal happen in one
// script so two workers cannot promote the same job twice.
const promoteDueScript = `
local due = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, ARGV[2])
for _, job in ipairs(due) do
  redis.call("ZREM", KEYS[1], job)
  redis.call("LPUSH", KEYS[2], job)
end
return #due
`

var promoteDueLua = redis.NewScript(promoteDueScript)

const promoteBatchSize = 100

// Queue is the durable job store. Jobs live on a pending list, a delayed
// sorted set (scored by ready time, for retries), and an exhausted list for
// jobs whose attempt budget is spent.
type Queue struct {
	redis     redis.UniversalClient
	prefix    string
	opTimeout time.Duration
}

// NewQueue creates a Queue using the given key prefix.
func NewQueue(client redis.UniversalClient, prefix string, opTimeout time.Duration) *Queue {
	if prefix == "" {
		prefix = "mailq"
	}
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &Queue{
		redis:     client,
		prefix:    prefix,
		opTimeout: opTimeout,
	}
}

func (q *Queue) pendingKey() string   { return q.prefix + ":pending" }
func (q *Queue) delayedKey() string   { return q.prefix + ":delayed" }
func (q *Queue) exhaustedKey() string { return q.prefix + ":exhausted" }

// Enqueue persists a job onto the pending list. It performs no network I/O
// to the mail transport; delivery happens asynchronously in the workers.
func (q *Queue) Enqueue(ctx context.Context, job *Job) error {
	ctx, cancel := context.WithTimeout(ctx, q.opTimeout)
	defer cancel()

	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.redis.LPush(ctx, q.pendingKey(), data).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Schedule parks a job on the delayed set until readyAt, after which
// PromoteDue moves it back to the pending list.
func (q *Queue) Schedule(ctx context.Context, job *Job, readyAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, q.opTimeout)
	defer cancel()

	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	member := redis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: data,
	}
	if err := q.redis.ZAdd(ctx, q.delayedKey(), member).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// PromoteDue moves due delayed jobs to the pending list and returns how many
// were promoted.
func (q *Queue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, q.opTimeout)
	defer cancel()

	promoted, err := promoteDueLua.Run(
		ctx,
		q.redis,
		[]string{q.delayedKey(), q.pendingKey()},
		strconv.FormatInt(now.UnixMilli(), 10),
		strconv.Itoa(promoteBatchSize),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return promoted, nil
}

// Dequeue pops one pending job, blocking up to wait. Returns ErrEmptyQueue
// when nothing arrives within the window.
func (q *Queue) Dequeue(ctx context.Context, wait time.Duration) (*Job, error) {
	values, err := q.redis.BRPop(ctx, wait, q.pendingKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmptyQueue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("%w: unexpected brpop reply", ErrUnavailable)
	}

	job := &Job{}
	if err := json.Unmarshal([]byte(values[1]), job); err != nil {
		return nil, err
	}
	return job, nil
}

// MarkExhausted records a job whose attempt budget is spent on the
// exhausted list so it survives for manual follow-up.
func (q *Queue) MarkExhausted(ctx context.Context, job *Job) error {
	ctx, cancel := context.WithTimeout(ctx, q.opTimeout)
	defer cancel()

	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.redis.LPush(ctx, q.exhaustedKey(), data).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// ExhaustedJobs returns up to limit jobs from the exhausted list, newest
// first. Admin/remediation use only.
func (q *Queue) ExhaustedJobs(ctx context.Context, limit int64) ([]*Job, error) {
	ctx, cancel := context.WithTimeout(ctx, q.opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}
	raw, err := q.redis.LRange(ctx, q.exhaustedKey(), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	jobs := make([]*Job, 0, len(raw))
	for _, data := range raw {
		job := &Job{}
		if err := json.Unmarshal([]byte(data), job); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// PendingCount returns the number of jobs waiting on the pending list.
func (q *Queue) PendingCount(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, q.opTimeout)
	defer cancel()

	n, err := q.redis.LLen(ctx, q.pendingKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}
