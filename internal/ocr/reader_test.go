package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/challenge-tracker/internal/common"
	"github.com/joseph-ayodele/challenge-tracker/internal/entity"
)

type stubFetcher struct {
	data []byte
	err  error
	urls []string
}

func (f *stubFetcher) Download(_ context.Context, url, _ string) ([]byte, error) {
	f.urls = append(f.urls, url)
	return f.data, f.err
}

type stubEngine struct {
	text string
	err  error
	seen image.Image
}

func (e *stubEngine) Recognize(_ context.Context, img image.Image) (string, error) {
	e.seen = img
	return e.text, e.err
}

// stubRunner records invocations and writes nothing.
type stubRunner struct {
	name   string
	args   []string
	stdout []byte
	err    error
}

func (r *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.name, r.args = name, args
	return r.stdout, nil, r.err
}

func TestReaderFetchAndRead(t *testing.T) {
	f := &stubFetcher{data: encodePNG(t, lowContrastImage(8, 8))}
	e := &stubEngine{text: "Outdoor Run\n5.2 km\n"}
	r := NewReader(Config{}, f, e, &stubRunner{}, nil)

	reading, err := r.FetchAndRead(context.Background(), entity.ImageRef{URL: "https://files.example/run.png"})
	require.NoError(t, err)
	assert.Equal(t, 5.2, reading.Value)
	assert.Contains(t, reading.Text, "Outdoor Run")
	_, isGray := e.seen.(*image.Gray)
	assert.True(t, isGray, "engine receives the preprocessed bitmap")
	assert.Equal(t, []string{"https://files.example/run.png"}, f.urls)
}

func TestReaderPropagatesDownloadFailure(t *testing.T) {
	f := &stubFetcher{err: common.NewKindError(common.KindDownloadFailed, "ocr.download", errors.New("503"))}
	r := NewReader(Config{}, f, &stubEngine{}, &stubRunner{}, nil)

	_, err := r.FetchAndRead(context.Background(), entity.ImageRef{URL: "https://x"})
	assert.True(t, common.IsKind(err, common.KindDownloadFailed))
}

func TestReaderInvalidImage(t *testing.T) {
	r := NewReader(Config{}, &stubFetcher{data: []byte("garbage")}, &stubEngine{}, &stubRunner{}, nil)
	_, err := r.FetchAndRead(context.Background(), entity.ImageRef{URL: "https://x"})
	assert.True(t, common.IsKind(err, common.KindInvalidImage))
}

func TestReaderNoNumber(t *testing.T) {
	f := &stubFetcher{data: encodePNG(t, lowContrastImage(8, 8))}
	r := NewReader(Config{}, f, &stubEngine{text: "Nice work!"}, &stubRunner{}, nil)
	reading, err := r.FetchAndRead(context.Background(), entity.ImageRef{URL: "https://x"})
	assert.True(t, common.IsKind(err, common.KindNoNumberFound))
	assert.Equal(t, "Nice work!", reading.Text)
}

func TestReaderHEICWithoutConverter(t *testing.T) {
	heic := append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...)
	r := NewReader(Config{}, &stubFetcher{data: heic}, &stubEngine{}, &stubRunner{}, nil)
	_, err := r.FetchAndRead(context.Background(), entity.ImageRef{URL: "https://x/IMG_0001.HEIC"})
	assert.True(t, common.IsKind(err, common.KindInvalidImage))
}

func TestReadClaimed(t *testing.T) {
	f := &stubFetcher{data: encodePNG(t, lowContrastImage(8, 8))}

	r := NewReader(Config{Tolerance: 0.10}, f, &stubEngine{text: "5.2"}, &stubRunner{}, nil)
	v, err := r.ReadClaimed(context.Background(), entity.ImageRef{URL: "https://x"}, 5.0)
	require.NoError(t, err)
	assert.Equal(t, 5.2, v)

	r = NewReader(Config{Tolerance: 0.10}, f, &stubEngine{text: "9.0"}, &stubRunner{}, nil)
	_, err = r.ReadClaimed(context.Background(), entity.ImageRef{URL: "https://x"}, 5.0)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindValueMismatch))
	assert.Contains(t, err.Error(), "claimed 5.0, found 9.0")
}

func TestCheckClaimZeroToleranceIsExact(t *testing.T) {
	r := NewReader(Config{Tolerance: 0}, &stubFetcher{}, &stubEngine{}, &stubRunner{}, nil)
	assert.True(t, common.IsKind(r.CheckClaim(Reading{Value: 5.2}, 5.0), common.KindValueMismatch))
	assert.NoError(t, r.CheckClaim(Reading{Value: 5.0}, 5.0))

	r = NewReader(Config{Tolerance: -1}, &stubFetcher{}, &stubEngine{}, &stubRunner{}, nil)
	assert.NoError(t, r.CheckClaim(Reading{Value: 5.2}, 5.0))
}

func TestFetchAndReadLogsSubmitter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	f := &stubFetcher{data: encodePNG(t, lowContrastImage(8, 8))}
	r := NewReader(Config{}, f, &stubEngine{text: "5.2 km"}, &stubRunner{}, logger)

	ctx := common.WithUserID(common.WithRequestID(context.Background(), "req-1"), "U42")
	_, err := r.FetchAndRead(ctx, entity.ImageRef{URL: "https://files.example/run.png"})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"msg":"ocr.read.ok"`)
	assert.Contains(t, buf.String(), `"user_id":"U42"`)
	assert.Contains(t, buf.String(), `"req_id":"req-1"`)
}

func TestTesseractRecognize(t *testing.T) {
	run := &stubRunner{stdout: []byte("5.2 km\n|||||\n")}
	tess := NewTesseract(TesseractConfig{PSM: 6, TessdataDir: "/usr/share/tessdata"}, run, nil)

	text, err := tess.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)))
	require.NoError(t, err)
	assert.Equal(t, "5.2 km\n\n", text)
	assert.Equal(t, "tesseract", run.name)
	require.GreaterOrEqual(t, len(run.args), 4)
	assert.True(t, strings.HasSuffix(run.args[0], "page.png"))
	assert.Equal(t, []string{"stdout", "-l", "eng", "--psm", "6", "--tessdata-dir", "/usr/share/tessdata"}, run.args[1:])
	_, statErr := os.Stat(run.args[0])
	assert.True(t, os.IsNotExist(statErr), "temp image cleaned up")
}

func TestTesseractRecognizeError(t *testing.T) {
	run := &stubRunner{err: errors.New("exit status 1")}
	tess := NewTesseract(TesseractConfig{}, run, nil)
	_, err := tess.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 2, 2)))
	assert.ErrorContains(t, err, "tesseract")
}
