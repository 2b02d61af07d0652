// Package mailqueue implements the asynchronous email-dispatch pipeline: a
// Redis-backed durable work queue that decouples "decide to notify" from
// "deliver the email", plus a worker pool that sends queued jobs with
// bounded retries.
//
// Producers render the template synchronously and enqueue a job carrying the
// fully resolved text and html bodies; enqueueing never touches the mail
// transport. Workers pull one job at a time, send it with a per-attempt
// timeout, and on failure reschedule the job after a fixed backoff until the
// attempt budget is spent. Exhausted jobs land on a dedicated list and are
// logged with full context for manual remediation, never dropped.
package mailqueue
