// Package challenges holds the admin and query use cases around a channel's
// active challenge: start, stop, status, leaderboard, recent results and
// result invalidation.
package challenges

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/challenge-tracker/constants"
	"github.com/joseph-ayodele/challenge-tracker/internal/common"
	"github.com/joseph-ayodele/challenge-tracker/internal/entity"
	"github.com/joseph-ayodele/challenge-tracker/internal/repository"
	"github.com/joseph-ayodele/challenge-tracker/internal/utils"
)

// Service handles challenge business logic.
type Service struct {
	challengeRepo repository.ChallengeRepository
	resultRepo    repository.ResultRepository
	logger        *slog.Logger
}

// NewService creates a new challenge service.
func NewService(challengeRepo repository.ChallengeRepository, resultRepo repository.ResultRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		challengeRepo: challengeRepo,
		resultRepo:    resultRepo,
		logger:        logger,
	}
}

// StartRequest represents challenge creation parameters. ActivityType may be
// empty when ChannelName names the discipline ("running-challenge").
type StartRequest struct {
	Channel      string `json:"-"`
	ChannelName  string `json:"channel_name"`
	ActivityType string `json:"activity_type"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
}

// Start replaces any active challenge in the channel with a new one.
func (s *Service) Start(ctx context.Context, req StartRequest) (*entity.Challenge, error) {
	channel := strings.TrimSpace(req.Channel)
	if channel == "" {
		return nil, status.Error(codes.InvalidArgument, "channel is required")
	}

	activity, ok := constants.Canonicalize(req.ActivityType)
	if !ok && req.ActivityType == "" {
		activity, ok = constants.FromChannelName(req.ChannelName)
	}
	if !ok {
		s.logger.Error("unknown challenge activity", "channel", channel, "activity_type", req.ActivityType, "channel_name", req.ChannelName)
		return nil, status.Errorf(codes.InvalidArgument, "activity_type must be one of %s", strings.Join(constants.AsStringSlice(), ", "))
	}

	start, err := utils.ParseDay(req.StartDate)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "start_date: %v", err)
	}
	end, err := utils.ParseDay(req.EndDate)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "end_date: %v", err)
	}
	if end.Before(start) {
		return nil, status.Error(codes.InvalidArgument, "end_date must not be before start_date")
	}

	s.logger.Info("starting challenge", "channel", channel, "activity", activity, "start", start, "end", end)
	ch, err := s.challengeRepo.Start(ctx, channel, activity, start, end)
	if err != nil {
		return nil, toStatus(err, "start challenge")
	}
	return ch, nil
}

// Stop deactivates the channel's active challenge.
func (s *Service) Stop(ctx context.Context, channel string) (*entity.Challenge, error) {
	if strings.TrimSpace(channel) == "" {
		return nil, status.Error(codes.InvalidArgument, "channel is required")
	}
	ch, err := s.challengeRepo.Stop(ctx, channel)
	if err != nil {
		return nil, toStatus(err, "stop challenge")
	}
	return ch, nil
}

// Status returns the active challenge with participant and submission counts.
func (s *Service) Status(ctx context.Context, channel string) (*entity.ChallengeStatus, error) {
	st, err := s.challengeRepo.Status(ctx, channel)
	if err != nil {
		return nil, toStatus(err, "challenge status")
	}
	return st, nil
}

// Leaderboard is the ranked validated totals for the channel's active challenge.
type Leaderboard struct {
	Challenge entity.Challenge          `json:"challenge"`
	Unit      string                    `json:"unit"`
	Entries   []entity.LeaderboardEntry `json:"entries"`
}

func (s *Service) Leaderboard(ctx context.Context, channel string, limit int) (*Leaderboard, error) {
	ch, err := s.challengeRepo.ActiveForChannel(ctx, channel)
	if err != nil {
		return nil, toStatus(err, "leaderboard")
	}
	entries, err := s.resultRepo.Leaderboard(ctx, ch.ID, limit)
	if err != nil {
		s.logger.Error("failed to build leaderboard", "channel", channel, "challenge_id", ch.ID, "error", err)
		return nil, toStatus(err, "leaderboard")
	}
	return &Leaderboard{Challenge: *ch, Unit: ch.ActivityType.DefaultUnit(), Entries: entries}, nil
}

// Recent lists a user's latest results in the channel's active challenge.
func (s *Service) Recent(ctx context.Context, channel, userID string, limit int) ([]*entity.Result, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, status.Error(codes.InvalidArgument, "user is required")
	}
	ch, err := s.challengeRepo.ActiveForChannel(ctx, channel)
	if err != nil {
		return nil, toStatus(err, "recent results")
	}
	recs, err := s.resultRepo.Recent(ctx, ch.ID, userID, limit)
	if err != nil {
		return nil, toStatus(err, "recent results")
	}
	s.logger.Info("recent results listed", "channel", channel, "user_id", userID, "count", len(recs))
	return recs, nil
}

// InvalidateRequest represents an admin override of a stored result.
type InvalidateRequest struct {
	ResultID string `json:"-"`
	Admin    string `json:"admin"`
	Reason   string `json:"reason"`
}

func (s *Service) Invalidate(ctx context.Context, req InvalidateRequest) (*entity.Result, error) {
	id, err := uuid.Parse(req.ResultID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "result id must be a UUID")
	}
	admin := strings.TrimSpace(req.Admin)
	if admin == "" {
		return nil, status.Error(codes.InvalidArgument, "admin is required")
	}
	res, err := s.resultRepo.Invalidate(ctx, id, admin, strings.TrimSpace(req.Reason))
	if err != nil {
		return nil, toStatus(err, "invalidate result")
	}
	return res, nil
}

// toStatus maps repository errors onto gRPC codes; the HTTP layer maps those again.
func toStatus(err error, op string) error {
	switch {
	case common.IsKind(err, common.KindNoActiveChallenge):
		return status.Error(codes.NotFound, "no active challenge in this channel")
	case errors.Is(err, common.ErrNotFound):
		return status.Errorf(codes.NotFound, "%s: %v", op, err)
	case errors.Is(err, common.ErrInvalidInput):
		return status.Errorf(codes.InvalidArgument, "%s: %v", op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%s: %v", op, err)
	}
	return status.Errorf(codes.Internal, "%s: %v", op, err)
}
