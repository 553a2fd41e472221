package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/challenge-tracker/internal/common"
	"github.com/joseph-ayodele/challenge-tracker/internal/entity"
)

// Submitter processes one submission to completion. *submissions.Service implements it.
type Submitter interface {
	Submit(ctx context.Context, sub entity.Submission) entity.Outcome
}

type ProcessorQueue struct {
	svc     Submitter
	logger  *slog.Logger
	workers int
	timeout time.Duration // how long Submit waits before answering Pending
	limit   time.Duration // hard cap on one job's processing

	ch   chan Job
	g    errgroup.Group
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

// WithReplyTimeout bounds how long Submit blocks for an answer.
func WithReplyTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithProcessTimeout bounds one job's processing, independent of the caller.
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.limit = d
		}
	}
}

func NewProcessorQueue(svc Submitter, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		svc:     svc,
		logger:  logger,
		workers: 4,
		timeout: 30 * time.Second,
		limit:   3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			workerID := i + 1
			q.g.Go(func() error {
				q.logger.Info("worker started", "worker_id", workerID)
				for job := range q.ch {
					q.run(workerID, job)
				}
				q.logger.Info("worker stopped", "worker_id", workerID)
				return nil
			})
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	ctx := common.WithRequestID(context.Background(), job.TraceID)
	ctx, cancel := context.WithTimeout(ctx, q.limit)
	defer cancel()

	out := q.svc.Submit(ctx, job.Submission)
	q.logger.Info("processed submission",
		"worker_id", workerID,
		"req_id", job.TraceID,
		"user_id", job.Submission.UserID,
		"status", out.Status,
		"kind", out.ErrorKind,
		"elapsed_ms", time.Since(job.SubmittedAt).Milliseconds())
	// Reply is buffered; a caller that gave up never blocks the worker.
	job.Reply <- out
}

// Enqueue hands the submission to a worker. It blocks while the queue is full
// until ctx ends.
func (q *ProcessorQueue) Enqueue(ctx context.Context, sub entity.Submission) (<-chan entity.Outcome, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "user_id", sub.UserID)
		return nil, ErrQueueClosed
	}

	traceID := common.RequestIDFromContext(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	job := Job{Submission: sub, SubmittedAt: time.Now(), TraceID: traceID, Reply: make(chan entity.Outcome, 1)}

	select {
	case q.ch <- job:
		q.logger.Info("queued submission for processing", "req_id", traceID, "user_id", sub.UserID)
		return job.Reply, nil
	default:
	}

	q.logger.Warn("queue full, applying backpressure", "req_id", traceID, "user_id", sub.UserID)
	select {
	case q.ch <- job:
		return job.Reply, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("enqueue: %w", ctx.Err())
	}
}

// Submit enqueues and waits for the outcome. When the reply timeout or ctx
// ends first it answers Pending; the job keeps running and is logged when done.
func (q *ProcessorQueue) Submit(ctx context.Context, sub entity.Submission) entity.Outcome {
	waitCtx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	reply, err := q.Enqueue(waitCtx, sub)
	if errors.Is(err, ErrQueueClosed) {
		return entity.Failed(sub.UserID, common.NewKindError(common.KindBackendUnavailable, "queue.enqueue", err))
	}
	if err != nil {
		return entity.Failed(sub.UserID, common.NewKindError(common.KindTimeout, "queue.enqueue", err))
	}
	select {
	case out := <-reply:
		return out
	case <-waitCtx.Done():
		q.logger.Warn("submission still processing after reply timeout", "user_id", sub.UserID, "timeout", q.timeout)
		return entity.Pending(sub.UserID, waitCtx.Err())
	}
}

// Shutdown stops intake and waits for queued jobs to drain or ctx to end.
func (q *ProcessorQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- q.g.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
		return ctx.Err()
	case err := <-done:
		q.logger.Info("queue drained, shutdown complete")
		return err
	}
}
