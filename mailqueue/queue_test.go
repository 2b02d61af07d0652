package mailqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewQueue(client, "mailq", 2*time.Second), mr
}

func testJob(id string) *Job {
	return &Job{
		ID:          id,
		Recipient:   "u1@example.com",
		Subject:     "Password Reset Request",
		Template:    "password-reset",
		Text:        "reset your password",
		HTML:        "<p>reset your password</p>",
		MaxAttempts: 3,
		BackoffMs:   5000,
		EnqueuedAt:  time.Now().Unix(),
	}
}

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	queue, _ := newTestQueue(t)
	ctx := context.Background()

	want := testJob("job-1")
	if err := queue.Enqueue(ctx, want); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	n, err := queue.PendingCount(ctx)
	if err != nil {
		t.Fatalf("PendingCount failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("pending count = %d, want 1", n)
	}

	got, err := queue.Dequeue(ctx, time.Second)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if got.ID != want.ID {
		t.Fatalf("ID = %q, want %q", got.ID, want.ID)
	}
	if got.Recipient != want.Recipient || got.Subject != want.Subject {
		t.Fatalf("job metadata mismatch: %+v", got)
	}
	if got.Text != want.Text || got.HTML != want.HTML {
		t.Fatal("job bodies must round-trip unchanged")
	}
	if got.MaxAttempts != 3 || got.BackoffMs != 5000 {
		t.Fatalf("retry policy mismatch: attempts=%d backoff=%d", got.MaxAttempts, got.BackoffMs)
	}
}

func TestDequeueOrderIsFIFO(t *testing.T) {
	queue, _ := newTestQueue(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := queue.Enqueue(ctx, testJob(id)); err != nil {
			t.Fatalf("Enqueue %s failed: %v", id, err)
		}
	}

	for _, want := range []string{"a", "b", "c"} {
		job, err := queue.Dequeue(ctx, time.Second)
		if err != nil {
			t.Fatalf("Dequeue failed: %v", err)
		}
		if job.ID != want {
			t.Fatalf("dequeued %q, want %q", job.ID, want)
		}
	}
}

func TestDequeueEmpty(t *testing.T) {
	queue, _ := newTestQueue(t)

	if _, err := queue.Dequeue(context.Background(), 50*time.Millisecond); !errors.Is(err, ErrEmptyQueue) {
		t.Fatalf("expected ErrEmptyQueue, got %v", err)
	}
}

func TestScheduleAndPromoteDue(t *testing.T) {
	queue, _ := newTestQueue(t)
	ctx := context.Background()

	readyAt := time.Now().Add(5 * time.Second)
	if err := queue.Schedule(ctx, testJob("delayed-1"), readyAt); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	promoted, err := queue.PromoteDue(ctx, time.Now())
	if err != nil {
		t.Fatalf("PromoteDue failed: %v", err)
	}
	if promoted != 0 {
		t.Fatalf("promoted %d jobs before ready time, want 0", promoted)
	}

	promoted, err = queue.PromoteDue(ctx, readyAt.Add(time.Millisecond))
	if err != nil {
		t.Fatalf("PromoteDue failed: %v", err)
	}
	if promoted != 1 {
		t.Fatalf("promoted %d jobs after ready time, want 1", promoted)
	}

	job, err := queue.Dequeue(ctx, time.Second)
	if err != nil {
		t.Fatalf("Dequeue after promotion failed: %v", err)
	}
	if job.ID != "delayed-1" {
		t.Fatalf("dequeued %q, want %q", job.ID, "delayed-1")
	}

	// A second promotion pass must not duplicate the job.
	promoted, err = queue.PromoteDue(ctx, readyAt.Add(time.Minute))
	if err != nil {
		t.Fatalf("PromoteDue failed: %v", err)
	}
	if promoted != 0 {
		t.Fatalf("re-promoted %d jobs, want 0", promoted)
	}
}

func TestMarkExhaustedAndList(t *testing.T) {
	queue, _ := newTestQueue(t)
	ctx := context.Background()

	dead := testJob("dead-1")
	dead.Attempt = 3
	dead.LastError = "smtp: connection refused"
	if err := queue.MarkExhausted(ctx, dead); err != nil {
		t.Fatalf("MarkExhausted failed: %v", err)
	}

	jobs, err := queue.ExhaustedJobs(ctx, 10)
	if err != nil {
		t.Fatalf("ExhaustedJobs failed: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d exhausted jobs, want 1", len(jobs))
	}
	if jobs[0].ID != "dead-1" || jobs[0].LastError != "smtp: connection refused" {
		t.Fatalf("exhausted job mismatch: %+v", jobs[0])
	}
	if !jobs[0].Exhausted() {
		t.Fatal("listed job must report exhausted")
	}
}

func TestQueueBackendUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	queue := NewQueue(client, "mailq", time.Second)

	mr.Close()
	ctx := context.Background()

	if err := queue.Enqueue(ctx, testJob("x")); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Enqueue: expected ErrUnavailable, got %v", err)
	}
	if _, err := queue.PromoteDue(ctx, time.Now()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("PromoteDue: expected ErrUnavailable, got %v", err)
	}
}
