// Package pipeline turns one submission into one Outcome: text first, then
// each screenshot in order until one yields a usable metric.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/challenge-tracker/constants"
	"github.com/joseph-ayodele/challenge-tracker/internal/common"
	"github.com/joseph-ayodele/challenge-tracker/internal/entity"
	"github.com/joseph-ayodele/challenge-tracker/internal/llm"
	"github.com/joseph-ayodele/challenge-tracker/internal/metric"
	"github.com/joseph-ayodele/challenge-tracker/internal/ocr"
	"github.com/joseph-ayodele/challenge-tracker/internal/validator"
)

// ImageReader downloads one attachment and reads it. *ocr.Reader implements it.
type ImageReader interface {
	FetchAndRead(ctx context.Context, ref entity.ImageRef) (ocr.Reading, error)
}

type Config struct {
	Tolerance float64 // 0 means exact match; negative selects validator.DefaultTolerance
}

// Pipeline holds no per-submission state; one value serves concurrent callers.
type Pipeline struct {
	cfg       Config
	extractor llm.MetricExtractor
	images    ImageReader
	recorder  Recorder
	logger    *slog.Logger
}

// NewPipeline wires the extractor and image reader. images may be nil when OCR is disabled;
// recorder may be nil.
func NewPipeline(cfg Config, extractor llm.MetricExtractor, images ImageReader, recorder Recorder, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tolerance < 0 {
		cfg.Tolerance = validator.DefaultTolerance
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Pipeline{cfg: cfg, extractor: extractor, images: images, recorder: recorder, logger: logger}
}

// Process runs one submission to a terminal Outcome. hint is the active
// challenge's discipline and may be empty.
func (p *Pipeline) Process(ctx context.Context, sub entity.Submission, hint constants.Discipline) entity.Outcome {
	log := p.logger.With("user_id", sub.UserID, "channel", sub.ChallengeChannel, "req_id", common.RequestIDFromContext(ctx))

	if sub.IsEmpty() {
		log.Info("pipeline.empty_submission")
		return entity.Failed(sub.UserID, common.NewKindError(common.KindEmptySubmission, "pipeline", nil))
	}

	posted, err := common.ParseTimestamp(sub.Timestamp)
	if err != nil {
		log.Warn("pipeline.bad_timestamp", "timestamp", sub.Timestamp, "error", err)
		posted = time.Now().UTC()
	}
	req := llm.ExtractRequest{DisciplineHint: hint, ReferenceDate: posted}

	var errs []error

	if sub.HasText() {
		req.Text = sub.Text
		m, err := p.extractText(ctx, req)
		if err == nil {
			log.Info("pipeline.text.ok", "value", m.Value, "unit", m.Unit, "date", m.DateString())
			return entity.Succeeded(sub.UserID, m, constants.SourceText, "")
		}
		log.Info("pipeline.text.failed", "kind", common.KindOf(err), "error", err)
		errs = append(errs, err)
	}

	for i, ref := range sub.Attachments {
		if err := ctx.Err(); err != nil {
			return entity.Failed(sub.UserID, common.NewKindError(common.KindTimeout, "pipeline", err))
		}
		if p.images == nil {
			errs = append(errs, common.KindErrorf(common.KindInvalidImage, "pipeline.image", "OCR disabled"))
			break
		}

		outcome, err := p.tryAttachment(ctx, sub.UserID, ref, req)
		if err != nil {
			log.Warn("pipeline.attachment.failed", "index", i, "url", ref.URL, "kind", common.KindOf(err), "error", err)
			errs = append(errs, err)
			continue
		}
		log.Info("pipeline.attachment.done", "index", i, "url", ref.URL, "status", outcome.Status)
		return outcome
	}

	if err := ctx.Err(); err != nil {
		log.Warn("pipeline.deadline", "error", err)
		return entity.Failed(sub.UserID, common.NewKindError(common.KindTimeout, "pipeline", errors.Join(append(errs, err)...)))
	}
	return entity.Failed(sub.UserID, common.NewKindError(common.KindNoMetricExtracted, "pipeline", errors.Join(errs...)))
}

func (p *Pipeline) extractText(ctx context.Context, req llm.ExtractRequest) (entity.ExtractedMetric, error) {
	if p.extractor == nil {
		return entity.ExtractedMetric{}, common.KindErrorf(common.KindBackendUnavailable, "pipeline.text", "no extractor configured")
	}
	start := time.Now()
	m, _, err := p.extractor.ExtractMetric(ctx, req)
	p.recorder.LLMRequest(statusOf(err), time.Since(start))
	if err != nil {
		return entity.ExtractedMetric{}, err
	}
	return canonical(m), nil
}

// tryAttachment returns a terminal Outcome (success or validation_rejected) or
// an error meaning "skip to the next attachment".
func (p *Pipeline) tryAttachment(ctx context.Context, userID string, ref entity.ImageRef, req llm.ExtractRequest) (entity.Outcome, error) {
	start := time.Now()
	reading, err := p.images.FetchAndRead(ctx, ref)
	p.recorder.OCRAttempt(statusOf(err), time.Since(start))
	if err != nil {
		return entity.Outcome{}, err
	}

	claimed, err := p.claimFromReading(ctx, reading, req)
	if err != nil {
		return entity.Outcome{}, err
	}

	observed := reading.Value
	v := validator.Validate(claimed.Value, &observed, p.cfg.Tolerance)
	if !v.IsAccepted() {
		p.logger.Warn("pipeline.validation.rejected",
			"url", ref.URL, "claimed", claimed.Value, "observed", observed,
			"difference_pct", validator.RelativeDifference(claimed.Value, observed)*100,
			"reason", v.Reason(),
		)
		return entity.RejectedOutcome(userID, claimed, v, ref.URL), nil
	}
	return entity.Succeeded(userID, canonical(claimed), constants.SourceAttachment, ref.URL), nil
}

// claimFromReading asks the extractor what the screenshot claims. When that
// fails the unit normalizer is tried on the raw OCR text, with the date and
// discipline taken from the submission context.
func (p *Pipeline) claimFromReading(ctx context.Context, reading ocr.Reading, req llm.ExtractRequest) (entity.ExtractedMetric, error) {
	req.Text = reading.Text
	if p.extractor != nil {
		start := time.Now()
		m, _, err := p.extractor.ExtractMetric(ctx, req)
		p.recorder.LLMRequest(statusOf(err), time.Since(start))
		if err == nil {
			return m, nil
		}
		p.logger.Debug("pipeline.image.extract_failed", "kind", common.KindOf(err), "error", err)
		if fallback, ferr := fromNormalizer(reading.Text, req); ferr == nil {
			return fallback, nil
		}
		return entity.ExtractedMetric{}, err
	}
	return fromNormalizer(reading.Text, req)
}

func fromNormalizer(text string, req llm.ExtractRequest) (entity.ExtractedMetric, error) {
	value, unit, err := metric.ParseMetric(text)
	if err != nil {
		return entity.ExtractedMetric{}, err
	}
	d := req.DisciplineHint
	if !d.Valid() {
		if unit != constants.UnitCalories {
			return entity.ExtractedMetric{}, common.KindErrorf(common.KindIncompleteExtraction, "pipeline.normalize", "no discipline for %s", unit)
		}
		d = constants.Calories
	}
	date := req.ReferenceDate.UTC()
	return entity.ExtractedMetric{
		Date:       time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
		Discipline: d,
		Value:      value,
		Unit:       unit,
	}, nil
}

// canonical records the metric in its discipline's unit when the conversion table allows it.
func canonical(m entity.ExtractedMetric) entity.ExtractedMetric {
	want := m.Discipline.DefaultUnit()
	if v, err := metric.ConvertUnits(m.Value, m.Unit, want); err == nil {
		m.Value, m.Unit = v, want
	}
	return m
}
