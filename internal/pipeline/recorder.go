package pipeline

import "time"

// Recorder receives per-source timings. internal/metrics implements it.
type Recorder interface {
	LLMRequest(status string, d time.Duration)
	OCRAttempt(status string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) LLMRequest(string, time.Duration) {}
func (nopRecorder) OCRAttempt(string, time.Duration) {}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
