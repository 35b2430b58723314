// Package queue provides an in-process background job queue with
// at-least-once delivery, per-job retry with exponential backoff, and
// optional job id deduplication.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/copilot-ai/copilot/internal/logging"
)

const (
	metaJobID   = "job_id"
	metaJobName = "job_name"

	// dedupeWindow bounds how long a job id blocks re-enqueueing.
	dedupeWindow = 48 * time.Hour
)

// Handler processes one job payload. A returned error requeues the job
// until the retry budget is spent.
type Handler func(ctx context.Context, payload []byte) error

// AddOption adjusts a single enqueue.
type AddOption func(*addOptions)

type addOptions struct {
	jobID string
}

// WithJobID deduplicates the enqueue: a second Add with the same id inside
// the dedupe window is dropped. Used by scheduled jobs to avoid double
// scheduling.
func WithJobID(id string) AddOption {
	return func(o *addOptions) { o.jobID = id }
}

// Queue is the in-process job queue. Jobs are routed by name to registered
// handlers; each name gets one consumer goroutine.
type Queue struct {
	pubsub     *gochannel.GoChannel
	maxRetries uint64

	mu       sync.Mutex
	handlers map[string]Handler
	seen     map[string]time.Time
	started  bool
	closed   bool
}

// Option adjusts queue construction.
type Option func(*Queue)

// WithMaxRetries sets how many times a failing job is retried before it is
// dropped.
func WithMaxRetries(n uint64) Option {
	return func(q *Queue) { q.maxRetries = n }
}

// New creates a job queue. Register handlers before calling Start.
func New(opts ...Option) *Queue {
	q := &Queue{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 256},
			watermill.NopLogger{},
		),
		maxRetries: 3,
		handlers:   make(map[string]Handler),
		seen:       make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Register binds a handler to a job name. Must be called before Start.
func (q *Queue) Register(jobName string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobName] = h
}

// Add enqueues a job. The payload is marshaled to JSON. An unknown job name
// is not an error at enqueue time; the message sits on its topic until a
// handler is registered in a future process.
func (q *Queue) Add(ctx context.Context, jobName string, payload any, opts ...AddOption) error {
	var options addOptions
	for _, opt := range opts {
		opt(&options)
	}

	if options.jobID != "" && !q.claimJobID(options.jobID) {
		logging.Debug().Str("job", jobName).Str("jobId", options.jobID).Msg("duplicate job dropped")
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal job payload: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(metaJobName, jobName)
	if options.jobID != "" {
		msg.Metadata.Set(metaJobID, options.jobID)
	}

	if err := q.pubsub.Publish(topicFor(jobName), msg); err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", jobName, err)
	}

	observeJob(jobName, "enqueued")
	return nil
}

// Start subscribes a consumer per registered handler and blocks until the
// context is canceled.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return fmt.Errorf("queue already started")
	}
	q.started = true
	handlers := make(map[string]Handler, len(q.handlers))
	for name, h := range q.handlers {
		handlers[name] = h
	}
	q.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)

	for name, handler := range handlers {
		messages, err := q.pubsub.Subscribe(ctx, topicFor(name))
		if err != nil {
			return fmt.Errorf("failed to subscribe job %s: %w", name, err)
		}

		name, handler := name, handler
		g.Go(func() error {
			for msg := range messages {
				q.process(ctx, name, handler, msg)
			}
			return nil
		})
	}

	return g.Wait()
}

// process runs one job with retry. The message is always acked: requeueing
// is handled by the backoff loop, not by redelivery.
func (q *Queue) process(ctx context.Context, jobName string, handler Handler, msg *message.Message) {
	defer msg.Ack()

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), q.maxRetries),
		ctx,
	)

	err := backoff.Retry(func() error {
		return handler(ctx, msg.Payload)
	}, policy)

	if err != nil {
		observeJob(jobName, "failed")
		logging.Error().Err(err).
			Str("job", jobName).
			Str("jobId", msg.Metadata.Get(metaJobID)).
			Msg("job failed after retries")
		return
	}

	observeJob(jobName, "processed")
}

// Close shuts the queue down. In-flight handlers finish; queued messages
// are dropped.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	return q.pubsub.Close()
}

// claimJobID records a job id, returning false when it is already claimed
// inside the dedupe window.
func (q *Queue) claimJobID(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	for k, t := range q.seen {
		if now.Sub(t) > dedupeWindow {
			delete(q.seen, k)
		}
	}

	if _, ok := q.seen[id]; ok {
		return false
	}
	q.seen[id] = now
	return true
}

func topicFor(jobName string) string {
	return "jobs." + jobName
}
