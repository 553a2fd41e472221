package challenges

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/challenge-tracker/constants"
	"github.com/joseph-ayodele/challenge-tracker/internal/entity"
	"github.com/joseph-ayodele/challenge-tracker/internal/repository"
)

type fixture struct {
	svc     *Service
	results repository.ResultRepository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{Driver: "sqlite", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))

	results := repository.NewResultRepository(db, nil)
	return fixture{
		svc:     NewService(repository.NewChallengeRepository(db, nil), results, nil),
		results: results,
	}
}

func (f fixture) record(t *testing.T, challengeID uuid.UUID, user string, value float64) *entity.Result {
	t.Helper()
	r, err := f.results.Create(context.Background(), &entity.Result{
		ChallengeID: challengeID, UserID: user, Date: time.Date(2025, 5, 18, 0, 0, 0, 0, time.UTC),
		Value: value, Unit: "km", IsValidated: true,
	})
	require.NoError(t, err)
	return r
}

func code(err error) codes.Code { return status.Code(err) }

func TestStartInfersActivityFromChannelName(t *testing.T) {
	f := newFixture(t)
	ch, err := f.svc.Start(context.Background(), StartRequest{
		Channel: "C1", ChannelName: "team-running-challenge",
		StartDate: "2025-05-18T00:00", EndDate: "2025-05-19",
	})
	require.NoError(t, err)
	assert.Equal(t, constants.Running, ch.ActivityType)
	assert.Equal(t, time.Date(2025, 5, 19, 0, 0, 0, 0, time.UTC), ch.EndDate)
}

func TestStartRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tests := []struct {
		name string
		req  StartRequest
	}{
		{"no channel", StartRequest{ActivityType: "running", StartDate: "2025-05-18", EndDate: "2025-05-19"}},
		{"unknown activity", StartRequest{Channel: "C1", ActivityType: "chess", StartDate: "2025-05-18", EndDate: "2025-05-19"}},
		{"no activity anywhere", StartRequest{Channel: "C1", ChannelName: "general", StartDate: "2025-05-18", EndDate: "2025-05-19"}},
		{"bad date", StartRequest{Channel: "C1", ActivityType: "run", StartDate: "May 18", EndDate: "2025-05-19"}},
		{"end before start", StartRequest{Channel: "C1", ActivityType: "run", StartDate: "2025-05-19", EndDate: "2025-05-18"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Start(ctx, tt.req)
			assert.Equal(t, codes.InvalidArgument, code(err))
		})
	}
}

func TestLeaderboardStatusAndRecent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Leaderboard(ctx, "C1", 10)
	assert.Equal(t, codes.NotFound, code(err))

	ch, err := f.svc.Start(ctx, StartRequest{Channel: "C1", ActivityType: "cycling", StartDate: "2025-05-01", EndDate: "2025-05-31"})
	require.NoError(t, err)
	f.record(t, ch.ID, "alice", 10)
	f.record(t, ch.ID, "bob", 25)
	f.record(t, ch.ID, "alice", 20)

	board, err := f.svc.Leaderboard(ctx, "C1", 10)
	require.NoError(t, err)
	assert.Equal(t, "km", board.Unit)
	require.Len(t, board.Entries, 2)
	assert.Equal(t, "alice", board.Entries[0].UserID)
	assert.InDelta(t, 30, board.Entries[0].Total, 1e-9)

	st, err := f.svc.Status(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Participants)
	assert.Equal(t, 3, st.Submissions)

	recent, err := f.svc.Recent(ctx, "C1", "alice", 1)
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	_, err = f.svc.Recent(ctx, "C1", " ", 1)
	assert.Equal(t, codes.InvalidArgument, code(err))
}

func TestInvalidateAndStop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ch, err := f.svc.Start(ctx, StartRequest{Channel: "C1", ActivityType: "run", StartDate: "2025-05-01", EndDate: "2025-05-31"})
	require.NoError(t, err)
	rec := f.record(t, ch.ID, "alice", 5)

	_, err = f.svc.Invalidate(ctx, InvalidateRequest{ResultID: "nope", Admin: "U1", Reason: "x"})
	assert.Equal(t, codes.InvalidArgument, code(err))
	_, err = f.svc.Invalidate(ctx, InvalidateRequest{ResultID: rec.ID.String(), Admin: "U1"})
	assert.Equal(t, codes.InvalidArgument, code(err))
	_, err = f.svc.Invalidate(ctx, InvalidateRequest{ResultID: uuid.NewString(), Admin: "U1", Reason: "x"})
	assert.Equal(t, codes.NotFound, code(err))

	got, err := f.svc.Invalidate(ctx, InvalidateRequest{ResultID: rec.ID.String(), Admin: "U1", Reason: "screenshot from another day"})
	require.NoError(t, err)
	assert.False(t, got.IsValidated)

	board, err := f.svc.Leaderboard(ctx, "C1", 10)
	require.NoError(t, err)
	assert.Empty(t, board.Entries)

	stopped, err := f.svc.Stop(ctx, "C1")
	require.NoError(t, err)
	assert.False(t, stopped.IsActive)

	_, err = f.svc.Stop(ctx, "C1")
	assert.Equal(t, codes.NotFound, code(err))
}
