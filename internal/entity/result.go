package entity

import (
	"time"

	"github.com/google/uuid"
)

// Result is a recorded submission for leaderboard purposes.
type Result struct {
	ID              uuid.UUID  `json:"id"`
	ChallengeID     uuid.UUID  `json:"challenge_id"`
	UserID          string     `json:"user_id"`
	Date            time.Time  `json:"date"`
	Value           float64    `json:"value"`
	Unit            string     `json:"unit"`
	ScreenshotURL   *string    `json:"screenshot_url,omitempty"`
	IsValidated     bool       `json:"is_validated"`
	ValidationError *string    `json:"validation_error,omitempty"`
	ValidatedBy     *string    `json:"validated_by,omitempty"`
	ValidatedAt     *time.Time `json:"validated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
