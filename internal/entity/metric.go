package entity

import (
	"time"

	"github.com/joseph-ayodele/challenge-tracker/constants"
)

// ExtractedMetric is the structured claim read from a submission.
type ExtractedMetric struct {
	Date       time.Time            `json:"date"`
	Discipline constants.Discipline `json:"discipline"`
	Value      float64              `json:"value"`
	Unit       string               `json:"unit"`
}

// DateString renders Date as an ISO calendar date.
func (m ExtractedMetric) DateString() string {
	return m.Date.Format("2006-01-02")
}
