package submissions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/challenge-tracker/constants"
	"github.com/joseph-ayodele/challenge-tracker/internal/common"
	"github.com/joseph-ayodele/challenge-tracker/internal/entity"
	"github.com/joseph-ayodele/challenge-tracker/internal/repository"
)

type fakeProcessor struct {
	out   entity.Outcome
	calls int
	hint  constants.Discipline
}

func (f *fakeProcessor) Process(_ context.Context, _ entity.Submission, hint constants.Discipline) entity.Outcome {
	f.calls++
	f.hint = hint
	return f.out
}

type taskCall struct{ name, status string }

type fakeRecorder struct {
	mu    sync.Mutex
	calls []taskCall
}

func (f *fakeRecorder) Task(name, status string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, taskCall{name, status})
}

type fixture struct {
	challenges repository.ChallengeRepository
	results    repository.ResultRepository
	proc       *fakeProcessor
	rec        *fakeRecorder
	svc        *Service
}

func newFixture(t *testing.T, withChallenge bool) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{Driver: "sqlite", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))

	f := &fixture{
		challenges: repository.NewChallengeRepository(db, nil),
		results:    repository.NewResultRepository(db, nil),
		proc:       &fakeProcessor{},
		rec:        &fakeRecorder{},
	}
	if withChallenge {
		_, err := f.challenges.Start(ctx, "C1", constants.Running,
			time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
	}
	f.svc = NewService(f.challenges, f.results, f.proc, f.rec, nil)
	return f
}

func submission() entity.Submission {
	return entity.Submission{
		UserID:           "U1",
		Text:             "ran 5km today",
		ChallengeChannel: "C1",
		Timestamp:        "1714752000.000100",
	}
}

func metric() entity.ExtractedMetric {
	return entity.ExtractedMetric{
		Date:       time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC),
		Discipline: constants.Running,
		Value:      5,
		Unit:       "km",
	}
}

func (f *fixture) stored(t *testing.T) []*entity.Result {
	t.Helper()
	ch, err := f.challenges.ActiveForChannel(context.Background(), "C1")
	require.NoError(t, err)
	recs, err := f.results.ListForChallenge(context.Background(), ch.ID)
	require.NoError(t, err)
	return recs
}

func TestSubmitPersistsSuccess(t *testing.T) {
	f := newFixture(t, true)
	f.proc.out = entity.Succeeded("U1", metric(), constants.SourceAttachment, "https://files.example/a.png")

	out := f.svc.Submit(context.Background(), submission())

	assert.Equal(t, constants.StatusSuccess, out.Status)
	assert.Equal(t, constants.Running, f.proc.hint)
	recs := f.stored(t)
	require.Len(t, recs, 1)
	assert.Equal(t, "U1", recs[0].UserID)
	assert.True(t, recs[0].IsValidated)
	assert.InDelta(t, 5.0, recs[0].Value, 1e-9)
	require.NotNil(t, recs[0].ScreenshotURL)
	assert.Equal(t, "https://files.example/a.png", *recs[0].ScreenshotURL)
	assert.Equal(t, []taskCall{{taskName, "success"}}, f.rec.calls)
}

func TestSubmitDoesNotPersistRejectionsOrErrors(t *testing.T) {
	outcomes := map[string]entity.Outcome{
		"rejected": entity.RejectedOutcome("U1", metric(), entity.Rejected("claimed 5.0, found 9.0"), "https://files.example/a.png"),
		"error":    entity.Failed("U1", common.NewKindError(common.KindNoMetricExtracted, "pipeline", nil)),
	}
	for name, want := range outcomes {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, true)
			f.proc.out = want

			out := f.svc.Submit(context.Background(), submission())

			assert.Equal(t, want.Status, out.Status)
			assert.Equal(t, want.Message, out.Message)
			assert.Empty(t, f.stored(t))
		})
	}
}

func TestSubmitWithoutActiveChallenge(t *testing.T) {
	f := newFixture(t, false)

	out := f.svc.Submit(context.Background(), submission())

	assert.Equal(t, constants.StatusError, out.Status)
	assert.Equal(t, common.KindNoActiveChallenge, out.ErrorKind)
	assert.Zero(t, f.proc.calls)
}

func TestSubmitRejectsMalformedSubmission(t *testing.T) {
	f := newFixture(t, true)
	sub := submission()
	sub.Timestamp = "yesterday"

	out := f.svc.Submit(context.Background(), sub)

	assert.Equal(t, common.KindInvalidSubmission, out.ErrorKind)
	assert.Zero(t, f.proc.calls)
	assert.Equal(t, []taskCall{{taskName, "error"}}, f.rec.calls)
}

type failingResults struct {
	repository.ResultRepository
}

func (failingResults) Create(context.Context, *entity.Result) (*entity.Result, error) {
	return nil, errors.New("disk full")
}

func TestSubmitReportsPersistenceFailure(t *testing.T) {
	f := newFixture(t, true)
	f.proc.out = entity.Succeeded("U1", metric(), constants.SourceText, "")
	svc := NewService(f.challenges, failingResults{f.results}, f.proc, nil, nil)

	out := svc.Submit(context.Background(), submission())

	assert.Equal(t, constants.StatusError, out.Status)
	assert.Equal(t, common.KindPersistence, out.ErrorKind)
}

func TestResultNeverBuiltForRejected(t *testing.T) {
	out := entity.RejectedOutcome("U1", metric(), entity.Rejected("mismatch"), "")
	_, ok := out.Result("U1", uuid.New())
	assert.False(t, ok)
}
