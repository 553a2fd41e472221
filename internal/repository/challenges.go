package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/challenge-tracker/constants"
	"github.com/joseph-ayodele/challenge-tracker/internal/common"
	"github.com/joseph-ayodele/challenge-tracker/internal/entity"
)

var challengeColumns = []string{"id", "slack_channel_id", "activity_type", "start_date", "end_date", "is_active", "created_at"}

type ChallengeRepository interface {
	ActiveForChannel(ctx context.Context, channel string) (*entity.Challenge, error)
	Start(ctx context.Context, channel string, activity constants.Discipline, start, end time.Time) (*entity.Challenge, error)
	Stop(ctx context.Context, channel string) (*entity.Challenge, error)
	Status(ctx context.Context, channel string) (*entity.ChallengeStatus, error)
}

type challengeRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewChallengeRepository(db *DB, logger *slog.Logger) ChallengeRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &challengeRepository{db: db, logger: logger}
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ActiveForChannel fails with NoActiveChallenge when the channel has none.
func (r *challengeRepository) ActiveForChannel(ctx context.Context, channel string) (*entity.Challenge, error) {
	return r.active(ctx, r.db.sql, channel)
}

func (r *challengeRepository) active(ctx context.Context, q queryer, channel string) (*entity.Challenge, error) {
	b := r.db.builder()
	query, args := b.Select(challengeColumns...).
		From(b.Table("challenges")).
		Where(entsql.And(entsql.EQ("slack_channel_id", channel), entsql.EQ("is_active", true))).
		Limit(1).
		Query()

	c, err := scanChallenge(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.KindErrorf(common.KindNoActiveChallenge, "challenges.active", "no active challenge in channel %s", channel)
	}
	if err != nil {
		r.logger.Error("failed to load active challenge", "channel", channel, "error", err)
		return nil, common.WrapError(err, "load active challenge")
	}
	return c, nil
}

// Start deactivates any active challenge in the channel and creates a new one, atomically.
func (r *challengeRepository) Start(ctx context.Context, channel string, activity constants.Discipline, start, end time.Time) (*entity.Challenge, error) {
	if !activity.Valid() {
		return nil, fmt.Errorf("%w: unknown activity type %q", common.ErrInvalidInput, activity)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date before start date", common.ErrInvalidInput)
	}

	c := &entity.Challenge{
		ID:           uuid.New(),
		ChannelID:    channel,
		ActivityType: activity,
		StartDate:    dateOnly(start),
		EndDate:      dateOnly(end),
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		b := r.db.builder()
		query, args := b.Update("challenges").
			Set("is_active", false).
			Where(entsql.And(entsql.EQ("slack_channel_id", channel), entsql.EQ("is_active", true))).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("deactivate previous: %w", err)
		}

		query, args = b.Insert("challenges").
			Columns(challengeColumns...).
			Values(c.ID.String(), c.ChannelID, string(c.ActivityType), dbTime(c.StartDate), dbTime(c.EndDate), true, dbTime(c.CreatedAt)).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert challenge: %w", err)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to start challenge", "channel", channel, "error", err)
		return nil, err
	}

	r.logger.Info("challenge started", "channel", channel, "challenge_id", c.ID, "activity", activity)
	return c, nil
}

// Stop deactivates the channel's active challenge and returns it.
func (r *challengeRepository) Stop(ctx context.Context, channel string) (*entity.Challenge, error) {
	var stopped *entity.Challenge
	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		c, err := r.active(ctx, tx, channel)
		if err != nil {
			return err
		}
		query, args := r.db.builder().Update("challenges").
			Set("is_active", false).
			Where(entsql.EQ("id", c.ID.String())).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("deactivate challenge: %w", err)
		}
		c.IsActive = false
		stopped = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("challenge stopped", "channel", channel, "challenge_id", stopped.ID)
	return stopped, nil
}

// Status reports the active challenge with its participant and submission counts.
func (r *challengeRepository) Status(ctx context.Context, channel string) (*entity.ChallengeStatus, error) {
	c, err := r.ActiveForChannel(ctx, channel)
	if err != nil {
		return nil, err
	}

	b := r.db.builder()
	query, args := b.Select("COUNT(DISTINCT user_id)", "COUNT(*)").
		From(b.Table("results")).
		Where(entsql.EQ("challenge_id", c.ID.String())).
		Query()

	st := &entity.ChallengeStatus{Challenge: *c}
	if err := r.db.sql.QueryRowContext(ctx, query, args...).Scan(&st.Participants, &st.Submissions); err != nil {
		r.logger.Error("failed to count results", "challenge_id", c.ID, "error", err)
		return nil, common.WrapError(err, "count results")
	}
	return st, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChallenge(row rowScanner) (*entity.Challenge, error) {
	var (
		c                   entity.Challenge
		activity            string
		start, end, created flexTime
	)
	if err := row.Scan(&c.ID, &c.ChannelID, &activity, &start, &end, &c.IsActive, &created); err != nil {
		return nil, err
	}
	c.ActivityType = constants.Discipline(activity)
	c.StartDate, c.EndDate, c.CreatedAt = start.Time, end.Time, created.Time
	return &c, nil
}
