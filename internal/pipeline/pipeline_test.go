package pipeline

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
	"github.com/joseph-ayodele/challenge-tracker/internal/llm"
	"github.com/joseph-ayodele/challenge-tracker/internal/ocr"
)

var day = time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)

type fakeExtractor struct {
	mu    sync.Mutex
	byTxt map[string]entity.ExtractedMetric
	calls []llm.ExtractRequest
}

func (f *fakeExtractor) ExtractMetric(_ context.Context, req llm.ExtractRequest) (entity.ExtractedMetric, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if m, ok := f.byTxt[req.Text]; ok {
		return m, []byte("{}"), nil
	}
	return entity.ExtractedMetric{}, nil, common.KindErrorf(common.KindIncompleteExtraction, "fake", "missing value")
}

type fakeImages struct {
	mu       sync.Mutex
	readings map[string]ocr.Reading
	errs     map[string]error
	calls    []string
}

func (f *fakeImages) FetchAndRead(_ context.Context, ref entity.ImageRef) (ocr.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ref.URL)
	if err, ok := f.errs[ref.URL]; ok {
		return ocr.Reading{}, err
	}
	return f.readings[ref.URL], nil
}

type countingRecorder struct {
	llm, ocr map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{llm: map[string]int{}, ocr: map[string]int{}}
}

func (r *countingRecorder) LLMRequest(status string, _ time.Duration) { r.llm[status]++ }
func (r *countingRecorder) OCRAttempt(status string, _ time.Duration) { r.ocr[status]++ }

func km(v float64) entity.ExtractedMetric {
	return entity.ExtractedMetric{Date: day, Discipline: constants.Running, Value: v, Unit: constants.UnitKilometers}
}

func submission(text string, urls ...string) entity.Submission {
	s := entity.Submission{UserID: "U1", Text: text, ChallengeChannel: "C1", Timestamp: "1714752000.000100"}
	for _, u := range urls {
		s.Attachments = append(s.Attachments, entity.ImageRef{URL: u})
	}
	return s
}

func TestProcessTextOnly(t *testing.T) {
	ex := &fakeExtractor{byTxt: map[string]entity.ExtractedMetric{"ran 5km today": km(5)}}
	img := &fakeImages{}
	p := NewPipeline(Config{Tolerance: 0.10}, ex, img, nil, nil)

	out := p.Process(context.Background(), submission("ran 5km today"), constants.Running)

	require.Equal(t, constants.StatusSuccess, out.Status)
	assert.Empty(t, out.ScreenshotURL)
	assert.Equal(t, constants.SourceText, out.Source)
	assert.True(t, out.Validation.IsAccepted())
	assert.Equal(t, "✅ <@U1>, your 5.0km on 2024-05-03 has been recorded!", out.Message)
	assert.Empty(t, img.calls)

	res, ok := out.Result("U1", uuid.New())
	require.True(t, ok)
	assert.True(t, res.IsValidated)
	assert.Nil(t, res.ScreenshotURL)

	require.Len(t, ex.calls, 1)
	assert.Equal(t, constants.Running, ex.calls[0].DisciplineHint)
	assert.Equal(t, "2024-05-03", ex.calls[0].ReferenceDate.Format("2006-01-02"))
}

func TestProcessScreenshotWithinTolerance(t *testing.T) {
	ex := &fakeExtractor{byTxt: map[string]entity.ExtractedMetric{"Outdoor Run 5.2 km": km(5.0)}}
	img := &fakeImages{readings: map[string]ocr.Reading{"https://f/1.png": {Text: "Outdoor Run 5.2 km", Value: 5.2}}}
	rec := newCountingRecorder()
	p := NewPipeline(Config{Tolerance: 0.10}, ex, img, rec, nil)

	out := p.Process(context.Background(), submission("", "https://f/1.png"), constants.Running)

	require.Equal(t, constants.StatusSuccess, out.Status)
	assert.True(t, out.Validation.IsAccepted())
	assert.Equal(t, "https://f/1.png", out.ScreenshotURL)
	assert.Equal(t, constants.SourceAttachment, out.Source)
	assert.Equal(t, 1, rec.ocr["success"])
	assert.Equal(t, 1, rec.llm["success"])

	res, ok := out.Result("U1", uuid.New())
	require.True(t, ok)
	require.NotNil(t, res.ScreenshotURL)
	assert.Equal(t, "https://f/1.png", *res.ScreenshotURL)
}

func TestProcessScreenshotMismatchIsRejected(t *testing.T) {
	ex := &fakeExtractor{byTxt: map[string]entity.ExtractedMetric{"9.0 km": km(5.0)}}
	img := &fakeImages{readings: map[string]ocr.Reading{
		"https://f/1.png": {Text: "9.0 km", Value: 9.0},
		"https://f/2.png": {Text: "5.0 km", Value: 5.0},
	}}
	p := NewPipeline(Config{Tolerance: 0.10}, ex, img, nil, nil)

	out := p.Process(context.Background(), submission("", "https://f/1.png", "https://f/2.png"), constants.Running)

	require.Equal(t, constants.StatusValidationRejected, out.Status)
	assert.False(t, out.Validation.IsAccepted())
	assert.Contains(t, out.Validation.Reason(), "5.0")
	assert.Contains(t, out.Validation.Reason(), "9.0")
	assert.Contains(t, out.Message, out.Validation.Reason())
	assert.Equal(t, []string{"https://f/1.png"}, img.calls, "rejection is terminal")

	_, ok := out.Result("U1", uuid.New())
	assert.False(t, ok, "rejected outcomes never become results")
}

func TestProcessSkipsFailedAttachment(t *testing.T) {
	ex := &fakeExtractor{byTxt: map[string]entity.ExtractedMetric{"5.1 km": km(5.0)}}
	img := &fakeImages{
		errs:     map[string]error{"https://f/bad.png": common.KindErrorf(common.KindDownloadFailed, "fake", "503")},
		readings: map[string]ocr.Reading{"https://f/good.png": {Text: "5.1 km", Value: 5.1}},
	}
	rec := newCountingRecorder()
	p := NewPipeline(Config{Tolerance: 0.10}, ex, img, rec, nil)

	out := p.Process(context.Background(), submission("", "https://f/bad.png", "https://f/good.png"), constants.Running)

	require.Equal(t, constants.StatusSuccess, out.Status)
	assert.Equal(t, "https://f/good.png", out.ScreenshotURL)
	assert.Equal(t, []string{"https://f/bad.png", "https://f/good.png"}, img.calls)
	assert.Equal(t, 1, rec.ocr["error"])
	assert.Equal(t, 1, rec.ocr["success"])
}

func TestProcessStopsAtFirstUsableAttachment(t *testing.T) {
	ex := &fakeExtractor{byTxt: map[string]entity.ExtractedMetric{"5 km": km(5)}}
	img := &fakeImages{readings: map[string]ocr.Reading{
		"https://f/1.png": {Text: "5 km", Value: 5},
		"https://f/2.png": {Text: "5 km", Value: 5},
	}}
	p := NewPipeline(Config{Tolerance: 0.10}, ex, img, nil, nil)

	out := p.Process(context.Background(), submission("", "https://f/1.png", "https://f/2.png"), constants.Running)
	require.Equal(t, constants.StatusSuccess, out.Status)
	assert.Equal(t, []string{"https://f/1.png"}, img.calls)
}

func TestProcessEmptySubmission(t *testing.T) {
	ex := &fakeExtractor{}
	img := &fakeImages{}
	p := NewPipeline(Config{Tolerance: 0.10}, ex, img, nil, nil)

	out := p.Process(context.Background(), submission("   "), constants.Running)

	assert.Equal(t, constants.StatusError, out.Status)
	assert.Equal(t, common.KindEmptySubmission, out.ErrorKind)
	assert.Empty(t, ex.calls)
	assert.Empty(t, img.calls)
}

func TestProcessTextFailureFallsBackToImage(t *testing.T) {
	ex := &fakeExtractor{byTxt: map[string]entity.ExtractedMetric{"10.0 km": km(10)}}
	img := &fakeImages{readings: map[string]ocr.Reading{"https://f/1.png": {Text: "10.0 km", Value: 10}}}
	p := NewPipeline(Config{Tolerance: 0.10}, ex, img, nil, nil)

	out := p.Process(context.Background(), submission("morning run!", "https://f/1.png"), constants.Running)

	require.Equal(t, constants.StatusSuccess, out.Status)
	assert.Equal(t, "https://f/1.png", out.ScreenshotURL)
	assert.Len(t, ex.calls, 2)
}

func TestProcessNormalizerFallback(t *testing.T) {
	// extractor knows nothing; the OCR text itself names value and unit
	img := &fakeImages{readings: map[string]ocr.Reading{"https://f/1.png": {Text: "5000 m\n32:10", Value: 5000}}}
	p := NewPipeline(Config{Tolerance: 0.10}, &fakeExtractor{}, img, nil, nil)

	out := p.Process(context.Background(), submission("", "https://f/1.png"), constants.Running)

	require.Equal(t, constants.StatusSuccess, out.Status)
	assert.Equal(t, 5.0, out.Metric.Value)
	assert.Equal(t, constants.UnitKilometers, out.Metric.Unit)
	assert.Equal(t, day, out.Metric.Date)
	assert.Equal(t, constants.Running, out.Metric.Discipline)
}

func TestProcessNoMetricExtracted(t *testing.T) {
	img := &fakeImages{
		errs:     map[string]error{"https://f/1.png": common.KindErrorf(common.KindInvalidImage, "fake", "bad bytes")},
		readings: map[string]ocr.Reading{"https://f/2.png": {Text: "Great job"}},
	}
	p := NewPipeline(Config{Tolerance: 0.10}, &fakeExtractor{}, img, nil, nil)

	out := p.Process(context.Background(), submission("hello", "https://f/1.png", "https://f/2.png"), constants.Running)

	assert.Equal(t, constants.StatusError, out.Status)
	assert.Equal(t, common.KindNoMetricExtracted, out.ErrorKind)
	assert.Contains(t, out.Message, "could not read your submission")
	assert.True(t, common.IsKind(out.Err, common.KindInvalidImage))
	assert.True(t, common.IsKind(out.Err, common.KindIncompleteExtraction))
}

func TestProcessCancelledBeforeImages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	img := &fakeImages{}
	p := NewPipeline(Config{Tolerance: 0.10}, &fakeExtractor{}, img, nil, nil)

	out := p.Process(ctx, submission("", "https://f/1.png"), constants.Running)

	assert.Equal(t, common.KindTimeout, out.ErrorKind)
	assert.True(t, errors.Is(out.Err, context.Canceled))
	assert.Empty(t, img.calls)
}

type blockingExtractor struct{}

func (blockingExtractor) ExtractMetric(ctx context.Context, _ llm.ExtractRequest) (entity.ExtractedMetric, []byte, error) {
	<-ctx.Done()
	return entity.ExtractedMetric{}, nil, common.NewKindError(common.KindBackendUnavailable, "fake", ctx.Err())
}

func TestProcessDeadlineDuringTextExtraction(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	p := NewPipeline(Config{Tolerance: 0.10}, blockingExtractor{}, &fakeImages{}, nil, nil)

	out := p.Process(ctx, submission("ran 5km"), constants.Running)

	assert.Equal(t, constants.StatusError, out.Status)
	assert.Equal(t, common.KindTimeout, out.ErrorKind)
	assert.True(t, errors.Is(out.Err, context.DeadlineExceeded))
	assert.NotContains(t, out.Message, "could not read your submission")
}

func TestProcessDeadlineDuringLastAttachment(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	img := &cancellingImages{cancel: cancel}
	p := NewPipeline(Config{Tolerance: 0.10}, &fakeExtractor{}, img, nil, nil)

	out := p.Process(ctx, submission("", "https://f/1.png"), constants.Running)

	assert.Equal(t, common.KindTimeout, out.ErrorKind)
	assert.True(t, errors.Is(out.Err, context.Canceled))
}

type cancellingImages struct{ cancel context.CancelFunc }

func (c *cancellingImages) FetchAndRead(ctx context.Context, _ entity.ImageRef) (ocr.Reading, error) {
	c.cancel()
	return ocr.Reading{}, common.NewKindError(common.KindDownloadFailed, "fake", ctx.Err())
}

func TestProcessZeroToleranceIsExact(t *testing.T) {
	ex := &fakeExtractor{byTxt: map[string]entity.ExtractedMetric{"5.2 km": km(5.0), "5.0 km": km(5.0)}}
	img := &fakeImages{readings: map[string]ocr.Reading{
		"https://f/off.png":   {Text: "5.2 km", Value: 5.2},
		"https://f/exact.png": {Text: "5.0 km", Value: 5.0},
	}}
	p := NewPipeline(Config{Tolerance: 0}, ex, img, nil, nil)

	out := p.Process(context.Background(), submission("", "https://f/off.png"), constants.Running)
	assert.Equal(t, constants.StatusValidationRejected, out.Status)

	out = p.Process(context.Background(), submission("", "https://f/exact.png"), constants.Running)
	assert.Equal(t, constants.StatusSuccess, out.Status)
}

func TestProcessNegativeToleranceUsesDefault(t *testing.T) {
	ex := &fakeExtractor{byTxt: map[string]entity.ExtractedMetric{"5.2 km": km(5.0)}}
	img := &fakeImages{readings: map[string]ocr.Reading{"https://f/1.png": {Text: "5.2 km", Value: 5.2}}}
	p := NewPipeline(Config{Tolerance: -1}, ex, img, nil, nil)

	out := p.Process(context.Background(), submission("", "https://f/1.png"), constants.Running)
	assert.Equal(t, constants.StatusSuccess, out.Status)
}

func TestProcessConcurrentSubmissions(t *testing.T) {
	ex := &fakeExtractor{byTxt: map[string]entity.ExtractedMetric{"ran 5km": km(5), "ran 7km": km(7)}}
	p := NewPipeline(Config{Tolerance: 0.10}, ex, &fakeImages{}, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text, want := "ran 5km", 5.0
			if i%2 == 1 {
				text, want = "ran 7km", 7.0
			}
			out := p.Process(context.Background(), submission(text), constants.Running)
			assert.Equal(t, want, out.Metric.Value)
		}(i)
	}
	wg.Wait()
}
