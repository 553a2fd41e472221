// Package submissions runs one chat submission against its channel's active
// challenge and stores the result when the pipeline accepts it.
package submissions

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/challenge-tracker/constants"
	"github.com/joseph-ayodele/challenge-tracker/internal/common"
	"github.com/joseph-ayodele/challenge-tracker/internal/entity"
	"github.com/joseph-ayodele/challenge-tracker/internal/repository"
)

const taskName = "process_submission"

// Processor resolves one submission to an Outcome. *pipeline.Pipeline implements it.
type Processor interface {
	Process(ctx context.Context, sub entity.Submission, hint constants.Discipline) entity.Outcome
}

// TaskRecorder receives one observation per submission. *metrics.Metrics implements it.
type TaskRecorder interface {
	Task(name, status string, d time.Duration)
}

type Service struct {
	challengeRepo repository.ChallengeRepository
	resultRepo    repository.ResultRepository
	processor     Processor
	recorder      TaskRecorder
	logger        *slog.Logger
}

// NewService wires the service; recorder may be nil.
func NewService(challengeRepo repository.ChallengeRepository, resultRepo repository.ResultRepository, processor Processor, recorder TaskRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		challengeRepo: challengeRepo,
		resultRepo:    resultRepo,
		processor:     processor,
		recorder:      recorder,
		logger:        logger,
	}
}

// Submit validates the submission, runs the pipeline with the challenge's
// discipline as hint and persists a Result only for a success outcome.
func (s *Service) Submit(ctx context.Context, sub entity.Submission) entity.Outcome {
	start := time.Now()
	out := s.submit(ctx, sub)
	if s.recorder != nil {
		s.recorder.Task(taskName, string(out.Status), time.Since(start))
	}
	return out
}

func (s *Service) submit(ctx context.Context, sub entity.Submission) entity.Outcome {
	log := s.logger.With("user_id", sub.UserID, "channel", sub.ChallengeChannel, "req_id", common.RequestIDFromContext(ctx))

	if err := sub.Validate(); err != nil {
		log.Warn("submission.invalid", "error", err)
		return entity.Failed(sub.UserID, common.NewKindError(common.KindInvalidSubmission, "submissions.validate", err))
	}

	ch, err := s.challengeRepo.ActiveForChannel(ctx, sub.ChallengeChannel)
	if err != nil {
		if common.IsKind(err, common.KindNoActiveChallenge) {
			log.Info("submission.no_active_challenge")
			out := entity.Failed(sub.UserID, err)
			out.Message = "❌ No active challenge in this channel."
			return out
		}
		log.Error("submission.challenge_lookup_failed", "error", err)
		return entity.Failed(sub.UserID, common.NewKindError(common.KindPersistence, "submissions.challenge", err))
	}

	out := s.processor.Process(common.WithUserID(ctx, sub.UserID), sub, ch.ActivityType)

	rec, ok := out.Result(sub.UserID, ch.ID)
	if !ok {
		log.Info("submission.not_recorded", "status", out.Status, "kind", out.ErrorKind)
		return out
	}
	saved, err := s.resultRepo.Create(ctx, &rec)
	if err != nil {
		log.Error("submission.persist_failed", "error", err)
		return entity.Failed(sub.UserID, common.NewKindError(common.KindPersistence, "submissions.persist", err))
	}
	log.Info("submission.recorded", "result_id", saved.ID, "value", saved.Value, "unit", saved.Unit, "source", out.Source)
	return out
}
