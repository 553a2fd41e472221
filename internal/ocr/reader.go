// Package ocr reads the dominant number off a fitness-app screenshot.
package ocr

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/challenge-tracker/constants"
	"github.com/joseph-ayodele/challenge-tracker/internal/common"
	"github.com/joseph-ayodele/challenge-tracker/internal/entity"
	"github.com/joseph-ayodele/challenge-tracker/internal/validator"
)

// Fetcher downloads attachment bytes.
type Fetcher interface {
	Download(ctx context.Context, url, token string) ([]byte, error)
}

type Config struct {
	Tolerance     float64 // for ReadClaimed; 0 is exact, negative selects validator.DefaultTolerance
	HeicConverter string  // "heif-convert" | "magick" | "sips"; empty disables HEIC
}

// Reading is what OCR produced for one attachment.
type Reading struct {
	Text     string
	Value    float64
	Duration time.Duration
}

type Reader struct {
	cfg     Config
	fetcher Fetcher
	engine  Engine
	runner  Runner
	logger  *slog.Logger
}

func NewReader(cfg Config, fetcher Fetcher, engine Engine, runner Runner, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tolerance < 0 {
		cfg.Tolerance = validator.DefaultTolerance
	}
	if runner == nil {
		runner = NewExecRunner(logger)
	}
	return &Reader{cfg: cfg, fetcher: fetcher, engine: engine, runner: runner, logger: logger}
}

// FetchAndRead downloads ref and returns its recognized text and first number.
func (r *Reader) FetchAndRead(ctx context.Context, ref entity.ImageRef) (Reading, error) {
	start := time.Now()
	data, err := r.fetcher.Download(ctx, ref.URL, ref.AuthToken)
	if err != nil {
		return Reading{}, err
	}
	if isHEICRef(ref) || isHEIC(data) {
		if r.cfg.HeicConverter == "" {
			return Reading{}, common.KindErrorf(common.KindInvalidImage, "ocr.heic", "HEIC attachment and no converter configured")
		}
		png, err := convertHEICtoPNG(ctx, r.runner, r.cfg.HeicConverter, data)
		if err != nil {
			r.logger.Error("heic conversion failed", "url", ref.URL, "user_id", common.UserIDFromContext(ctx), "error", err)
			return Reading{}, common.NewKindError(common.KindInvalidImage, "ocr.heic", err)
		}
		data = png
	}
	reading, err := r.Read(ctx, data)
	reading.Duration = time.Since(start)
	if err == nil {
		r.logger.Info("ocr.read.ok",
			"url", ref.URL,
			"user_id", common.UserIDFromContext(ctx),
			"req_id", common.RequestIDFromContext(ctx),
			"value", reading.Value,
			"duration_ms", reading.Duration.Milliseconds(),
		)
	}
	return reading, err
}

// Read decodes, preprocesses and recognizes image bytes.
func (r *Reader) Read(ctx context.Context, data []byte) (Reading, error) {
	img, err := Decode(data)
	if err != nil {
		return Reading{}, err
	}
	processed, err := Preprocess(img)
	if err != nil {
		return Reading{}, err
	}

	text, err := r.engine.Recognize(ctx, processed)
	if err != nil {
		return Reading{}, common.NewKindError(common.KindInvalidImage, "ocr.recognize", err)
	}
	r.logger.Debug("ocr.recognized", "text_len", len(text))

	value, err := FirstNumber(text)
	if err != nil {
		r.logger.Warn("no numbers found in ocr text", "text_len", len(text))
		return Reading{Text: text}, err
	}
	r.logger.Debug("ocr.value", "value", value)
	return Reading{Text: text, Value: value}, nil
}

// CheckClaim fails with ValueMismatch when the reading is outside tolerance of claimed.
func (r *Reader) CheckClaim(reading Reading, claimed float64) error {
	observed := reading.Value
	outcome := validator.Validate(claimed, &observed, r.cfg.Tolerance)
	if outcome.IsAccepted() {
		return nil
	}
	r.logger.Warn("ocr value differs from claimed value",
		"observed", observed, "claimed", claimed,
		"difference_pct", validator.RelativeDifference(claimed, observed)*100,
		"tolerance_pct", r.cfg.Tolerance*100,
	)
	return common.KindErrorf(common.KindValueMismatch, "ocr.check_claim", "%s", outcome.Reason())
}

// ReadClaimed returns an already-gated reading: the OCR value only when it
// matches claimed within tolerance.
func (r *Reader) ReadClaimed(ctx context.Context, ref entity.ImageRef, claimed float64) (float64, error) {
	reading, err := r.FetchAndRead(ctx, ref)
	if err != nil {
		return 0, err
	}
	if err := r.CheckClaim(reading, claimed); err != nil {
		return 0, err
	}
	return reading.Value, nil
}

func isHEICRef(ref entity.ImageRef) bool {
	mt := strings.ToLower(ref.MimeType)
	return mt == "image/heic" || mt == "image/heif" || constants.IsHEICExt(filepath.Ext(ref.Name))
}
