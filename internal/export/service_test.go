package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/challenge-tracker/constants"
	"github.com/joseph-ayodele/challenge-tracker/internal/common"
	"github.com/joseph-ayodele/challenge-tracker/internal/entity"
	"github.com/joseph-ayodele/challenge-tracker/internal/repository"
)

func seeded(t *testing.T) (*Service, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{Driver: "sqlite", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))

	challenges := repository.NewChallengeRepository(db, nil)
	results := repository.NewResultRepository(db, nil)
	ch, err := challenges.Start(ctx, "C1", constants.Running,
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	url := "https://files.example/run.png"
	for _, r := range []*entity.Result{
		{ChallengeID: ch.ID, UserID: "alice", Date: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), Value: 5, Unit: "km", IsValidated: true, ScreenshotURL: &url},
		{ChallengeID: ch.ID, UserID: "bob", Date: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), Value: 8, Unit: "km", IsValidated: true},
	} {
		_, err := results.Create(ctx, r)
		require.NoError(t, err)
	}
	return NewService(challenges, results, nil), ch.ID
}

func TestExportChallengeXLSX(t *testing.T) {
	svc, _ := seeded(t)

	data, err := svc.ExportChallengeXLSX(context.Background(), "C1")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{resultsSheet, leaderboardSheet}, f.GetSheetList())

	rows, err := f.GetRows(resultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Date", rows[0][0])
	assert.Equal(t, []string{"2024-05-03", "bob", "8", "km", "TRUE"}, rows[1][:5])
	assert.Equal(t, "https://files.example/run.png", rows[2][7])

	board, err := f.GetRows(leaderboardSheet)
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, "Total (km)", board[0][2])
	assert.Equal(t, []string{"1", "bob", "8"}, board[1])
	assert.Equal(t, []string{"2", "alice", "5"}, board[2])
}

func TestExportWithoutActiveChallenge(t *testing.T) {
	svc, _ := seeded(t)
	_, err := svc.ExportChallengeXLSX(context.Background(), "C-none")
	assert.True(t, common.IsKind(err, common.KindNoActiveChallenge))
}
