package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/challenge-tracker/internal/common"
	"github.com/joseph-ayodele/challenge-tracker/internal/entity"
)

var resultColumns = []string{
	"id", "challenge_id", "user_id", "date", "value", "unit", "screenshot_url",
	"is_validated", "validation_error", "validated_by", "validated_at", "created_at",
}

const (
	DefaultLeaderboardLimit = 10
	DefaultRecentLimit      = 5
)

type ResultRepository interface {
	Create(ctx context.Context, r *entity.Result) (*entity.Result, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Result, error)
	Leaderboard(ctx context.Context, challengeID uuid.UUID, limit int) ([]entity.LeaderboardEntry, error)
	ListForChallenge(ctx context.Context, challengeID uuid.UUID) ([]*entity.Result, error)
	Recent(ctx context.Context, challengeID uuid.UUID, userID string, limit int) ([]*entity.Result, error)
	Invalidate(ctx context.Context, id uuid.UUID, admin, reason string) (*entity.Result, error)
}

type resultRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewResultRepository(db *DB, logger *slog.Logger) ResultRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &resultRepository{db: db, logger: logger}
}

// Create stores a decided record. An unvalidated record must say why.
func (r *resultRepository) Create(ctx context.Context, in *entity.Result) (*entity.Result, error) {
	v := common.NewValidator().
		Field("user_id", in.UserID, common.Required).
		Field("unit", in.Unit, common.Required)
	if err := v.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	if in.ChallengeID == uuid.Nil {
		return nil, fmt.Errorf("%w: challenge_id is required", common.ErrInvalidInput)
	}
	if in.Value <= 0 {
		return nil, fmt.Errorf("%w: value must be positive", common.ErrInvalidInput)
	}
	if !in.IsValidated && (in.ValidationError == nil || strings.TrimSpace(*in.ValidationError) == "") {
		return nil, fmt.Errorf("%w: unvalidated result needs a validation error", common.ErrInvalidInput)
	}

	rec := *in
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.Date = dateOnly(rec.Date)
	rec.CreatedAt = time.Now().UTC()

	var validatedAt any
	if rec.ValidatedAt != nil {
		validatedAt = dbTime(*rec.ValidatedAt)
	}

	query, args := r.db.builder().Insert("results").
		Columns(resultColumns...).
		Values(rec.ID.String(), rec.ChallengeID.String(), rec.UserID, dbTime(rec.Date), rec.Value, rec.Unit,
			rec.ScreenshotURL, rec.IsValidated, rec.ValidationError, rec.ValidatedBy, validatedAt, dbTime(rec.CreatedAt)).
		Query()
	if _, err := r.db.sql.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("failed to insert result", "user_id", rec.UserID, "challenge_id", rec.ChallengeID, "error", err)
		return nil, fmt.Errorf("%w: insert result: %v", common.ErrDatabase, err)
	}

	r.logger.Info("result recorded",
		"result_id", rec.ID,
		"challenge_id", rec.ChallengeID,
		"user_id", rec.UserID,
		"value", rec.Value,
		"unit", rec.Unit,
		"validated", rec.IsValidated,
	)
	return &rec, nil
}

func (r *resultRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Result, error) {
	b := r.db.builder()
	query, args := b.Select(resultColumns...).
		From(b.Table("results")).
		Where(entsql.EQ("id", id.String())).
		Query()
	res, err := scanResult(r.db.sql.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("result %s: %w", id, common.ErrNotFound)
	}
	return res, err
}

// Leaderboard sums validated values per user, highest first.
func (r *resultRepository) Leaderboard(ctx context.Context, challengeID uuid.UUID, limit int) ([]entity.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	b := r.db.builder()
	query, args := b.Select("user_id", "SUM(value) AS total").
		From(b.Table("results")).
		Where(entsql.And(entsql.EQ("challenge_id", challengeID.String()), entsql.EQ("is_validated", true))).
		GroupBy("user_id").
		OrderBy(entsql.Desc("total"), "user_id").
		Limit(limit).
		Query()

	rows, err := r.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query leaderboard", "challenge_id", challengeID, "error", err)
		return nil, common.WrapError(err, "query leaderboard")
	}
	defer rows.Close()

	var out []entity.LeaderboardEntry
	for rows.Next() {
		e := entity.LeaderboardEntry{Rank: len(out) + 1}
		if err := rows.Scan(&e.UserID, &e.Total); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListForChallenge returns every result of a challenge, newest first.
func (r *resultRepository) ListForChallenge(ctx context.Context, challengeID uuid.UUID) ([]*entity.Result, error) {
	b := r.db.builder()
	query, args := b.Select(resultColumns...).
		From(b.Table("results")).
		Where(entsql.EQ("challenge_id", challengeID.String())).
		OrderBy(entsql.Desc("date"), entsql.Desc("created_at")).
		Query()
	return r.list(ctx, query, args)
}

// Recent returns a user's latest results in a challenge.
func (r *resultRepository) Recent(ctx context.Context, challengeID uuid.UUID, userID string, limit int) ([]*entity.Result, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	b := r.db.builder()
	query, args := b.Select(resultColumns...).
		From(b.Table("results")).
		Where(entsql.And(entsql.EQ("challenge_id", challengeID.String()), entsql.EQ("user_id", userID))).
		OrderBy(entsql.Desc("created_at")).
		Limit(limit).
		Query()
	return r.list(ctx, query, args)
}

// Invalidate is the admin override: the result stays stored but stops counting.
func (r *resultRepository) Invalidate(ctx context.Context, id uuid.UUID, admin, reason string) (*entity.Result, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: reason is required", common.ErrInvalidInput)
	}
	query, args := r.db.builder().Update("results").
		Set("is_validated", false).
		Set("validation_error", reason).
		Set("validated_by", admin).
		Set("validated_at", dbTime(time.Now())).
		Where(entsql.EQ("id", id.String())).
		Query()
	res, err := r.db.sql.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to invalidate result", "result_id", id, "error", err)
		return nil, common.WrapError(err, "invalidate result")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("result %s: %w", id, common.ErrNotFound)
	}
	r.logger.Info("result invalidated", "result_id", id, "admin", admin)
	return r.GetByID(ctx, id)
}

func (r *resultRepository) list(ctx context.Context, query string, args []any) ([]*entity.Result, error) {
	rows, err := r.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list results", "error", err)
		return nil, common.WrapError(err, "list results")
	}
	defer rows.Close()

	var out []*entity.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func scanResult(row rowScanner) (*entity.Result, error) {
	var (
		res                          entity.Result
		screenshot, verr, by         sql.NullString
		date, validatedAt, createdAt flexTime
	)
	if err := row.Scan(&res.ID, &res.ChallengeID, &res.UserID, &date, &res.Value, &res.Unit,
		&screenshot, &res.IsValidated, &verr, &by, &validatedAt, &createdAt); err != nil {
		return nil, err
	}
	res.Date = dateOnly(date.Time)
	res.CreatedAt = createdAt.Time
	res.ValidatedAt = validatedAt.ptr()
	res.ScreenshotURL = nullString(screenshot)
	res.ValidationError = nullString(verr)
	res.ValidatedBy = nullString(by)
	return &res, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
