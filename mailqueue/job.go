package mailqueue

import (
	"context"
	"time"
)

// Message is a fully rendered outbound email.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer is the mail-transport collaborator. Send must respect ctx
// cancellation; a timed-out send counts as a failed delivery attempt.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Job is one queued email delivery. The body fields are resolved before the
// job is enqueued; workers never render. Attempt is mutated only by the
// worker that holds the job.
type Job struct {
	ID        string `json:"id"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Template  string `json:"template"`
	Text      string `json:"text"`
	HTML      string `json:"html"`

	Attempt     int   `json:"attempt"`
	MaxAttempts int   `json:"max_attempts"`
	BackoffMs   int64 `json:"backoff_ms"`

	EnqueuedAt int64  `json:"enqueued_at"`
	LastError  string `json:"last_error,omitempty"`
}

// Backoff returns the configured delay between attempts.
func (j *Job) Backoff() time.Duration {
	return time.Duration(j.BackoffMs) * time.Millisecond
}

// Exhausted reports whether the attempt budget is spent.
func (j *Job) Exhausted() bool {
	return j.Attempt >= j.MaxAttempts
}
