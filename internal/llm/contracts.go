package llm

import (
	"context"
	"time"

	"github.com/joseph-ayodele/challenge-tracker/constants"
	"github.com/joseph-ayodele/challenge-tracker/internal/entity"
)

// MetricFields is the JSON shape we ask the backend for.
type MetricFields struct {
	Date       string  `json:"date"`                 // YYYY-MM-DD
	Discipline string  `json:"discipline,omitempty"` // may be implied by the channel
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
}

type ExtractRequest struct {
	Text string

	// DisciplineHint is the active challenge's activity type; used when the
	// completion omits discipline.
	DisciplineHint constants.Discipline
	// ReferenceDate resolves relative dates such as "today".
	ReferenceDate time.Time
}

// MetricExtractor is the interface the pipeline depends on.
type MetricExtractor interface {
	ExtractMetric(ctx context.Context, req ExtractRequest) (entity.ExtractedMetric, []byte /*rawJSON*/, error)
}
