package entity

import (
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/challenge-tracker/constants"
	"github.com/joseph-ayodele/challenge-tracker/internal/common"
)

// Outcome is the single value a processed submission resolves to.
type Outcome struct {
	Status        constants.OutcomeStatus `json:"status"`
	Message       string                  `json:"message"`
	Metric        *ExtractedMetric        `json:"metric,omitempty"`
	Validation    *ValidationOutcome      `json:"validation,omitempty"`
	Source        constants.Source        `json:"source,omitempty"`
	ScreenshotURL string                  `json:"screenshot_url,omitempty"`
	ErrorKind     common.Kind             `json:"error_kind,omitempty"`
	Err           error                   `json:"-"`
}

// Succeeded builds a success outcome; screenshotURL is empty for the text path.
func Succeeded(userID string, m ExtractedMetric, source constants.Source, screenshotURL string) Outcome {
	v := Accepted()
	return Outcome{
		Status:        constants.StatusSuccess,
		Message:       fmt.Sprintf("✅ <@%s>, your %s%s on %s has been recorded!", userID, FormatValue(m.Value), m.Unit, m.DateString()),
		Metric:        &m,
		Validation:    &v,
		Source:        source,
		ScreenshotURL: screenshotURL,
	}
}

// RejectedOutcome carries the validator's reason as the message.
func RejectedOutcome(userID string, m ExtractedMetric, v ValidationOutcome, screenshotURL string) Outcome {
	return Outcome{
		Status:        constants.StatusValidationRejected,
		Message:       fmt.Sprintf("⚠️ <@%s>, your submission could not be validated: %s", userID, v.Reason()),
		Metric:        &m,
		Validation:    &v,
		Source:        constants.SourceAttachment,
		ScreenshotURL: screenshotURL,
		ErrorKind:     common.KindValueMismatch,
	}
}

// Failed builds an error outcome whose message names the failing kind.
func Failed(userID string, err error) Outcome {
	kind := common.KindOf(err)
	if kind == "" {
		kind = common.Kind("InternalError")
	}
	msg := fmt.Sprintf("❌ Failed to process submission: %s", kind)
	if kind == common.KindNoMetricExtracted {
		msg = fmt.Sprintf("❌ Sorry <@%s>, we could not read your submission. Please include the distance or calories and a clear screenshot.", userID)
	}
	return Outcome{
		Status:    constants.StatusError,
		Message:   msg,
		ErrorKind: kind,
		Err:       err,
	}
}

// Pending is returned when the caller's deadline expires before the pipeline finishes.
func Pending(userID string, err error) Outcome {
	return Outcome{
		Status:    constants.StatusPending,
		Message:   fmt.Sprintf("⚠️ <@%s>, processing is taking longer than expected. We'll post the result when it's done.", userID),
		ErrorKind: common.KindTimeout,
		Err:       err,
	}
}

// Result packages a successful outcome as a validated record.
// It reports false for every non-success outcome so rejected claims never reach storage.
func (o Outcome) Result(userID string, challengeID uuid.UUID) (Result, bool) {
	if o.Status != constants.StatusSuccess || o.Metric == nil || o.Validation == nil || !o.Validation.IsAccepted() {
		return Result{}, false
	}
	r := Result{
		ChallengeID: challengeID,
		UserID:      userID,
		Date:        o.Metric.Date,
		Value:       o.Metric.Value,
		Unit:        o.Metric.Unit,
		IsValidated: true,
	}
	if o.ScreenshotURL != "" {
		u := o.ScreenshotURL
		r.ScreenshotURL = &u
	}
	return r, true
}

// FormatValue prints whole numbers with one decimal ("5.0") and others at full precision.
func FormatValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
