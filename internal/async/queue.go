package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/challenge-tracker/internal/entity"
)

// ErrQueueClosed is returned by Enqueue once Shutdown has started.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one submission waiting for a worker. Reply receives exactly one Outcome.
type Job struct {
	Submission  entity.Submission
	SubmittedAt time.Time
	TraceID     string
	Reply       chan entity.Outcome
}

type Queue interface {
	Enqueue(ctx context.Context, sub entity.Submission) (<-chan entity.Outcome, error)
	Submit(ctx context.Context, sub entity.Submission) entity.Outcome
	Shutdown(ctx context.Context) error
}
