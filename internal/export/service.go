package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/challenge-tracker/internal/entity"
	"github.com/joseph-ayodele/challenge-tracker/internal/repository"
)

const (
	resultsSheet     = "Results"
	leaderboardSheet = "Leaderboard"
)

// Service is a tiny façade over repositories that produces XLSX bytes for exports.
type Service struct {
	challenges repository.ChallengeRepository
	results    repository.ResultRepository
	logger     *slog.Logger
}

func NewService(challenges repository.ChallengeRepository, results repository.ResultRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{challenges: challenges, results: results, logger: logger}
}

// ExportChallengeXLSX returns a workbook with every result of the channel's
// active challenge (newest first) and its full leaderboard.
func (s *Service) ExportChallengeXLSX(ctx context.Context, channel string) ([]byte, error) {
	start := time.Now()

	ch, err := s.challenges.ActiveForChannel(ctx, channel)
	if err != nil {
		return nil, err
	}
	recs, err := s.results.ListForChallenge(ctx, ch.ID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	// every participant, not just the top ten
	board, err := s.results.Leaderboard(ctx, ch.ID, len(recs)+1)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_error", "error", err)
		}
	}()

	// rename the default sheet rather than leaving an empty "Sheet1"
	if err := f.SetSheetName(f.GetSheetName(0), resultsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(leaderboardSheet); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(resultsSheet)
	f.SetActiveSheet(activeIndex)

	writeResults(f, recs)
	writeLeaderboard(f, board, ch.ActivityType.DefaultUnit())

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"channel", channel,
		"challenge_id", ch.ID.String(),
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeResults(f *excelize.File, recs []*entity.Result) {
	headers := []string{"Date", "User", "Value", "Unit", "Validated", "Validation Error", "Validated By", "Screenshot"}
	writeRow(f, resultsSheet, 1, toAny(headers))

	for i, r := range recs {
		writeRow(f, resultsSheet, i+2, []any{
			r.Date.Format("2006-01-02"),
			r.UserID,
			r.Value,
			r.Unit,
			r.IsValidated,
			deref(r.ValidationError),
			deref(r.ValidatedBy),
			deref(r.ScreenshotURL),
		})
	}

	_ = f.SetColWidth(resultsSheet, "A", "A", 12) // date
	_ = f.SetColWidth(resultsSheet, "B", "B", 16) // user
	_ = f.SetColWidth(resultsSheet, "F", "F", 48) // validation error
	_ = f.SetColWidth(resultsSheet, "H", "H", 60) // screenshot
}

func writeLeaderboard(f *excelize.File, board []entity.LeaderboardEntry, unit string) {
	writeRow(f, leaderboardSheet, 1, []any{"Rank", "User", "Total (" + unit + ")"})
	for i, e := range board {
		writeRow(f, leaderboardSheet, i+2, []any{e.Rank, e.UserID, e.Total})
	}
	_ = f.SetColWidth(leaderboardSheet, "B", "B", 16)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
