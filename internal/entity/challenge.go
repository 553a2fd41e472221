package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/challenge-tracker/constants"
)

// Challenge is a time-boxed competition bound to one chat channel.
type Challenge struct {
	ID           uuid.UUID            `json:"id"`
	ChannelID    string               `json:"channel_id"`
	ActivityType constants.Discipline `json:"activity_type"`
	StartDate    time.Time            `json:"start_date"`
	EndDate      time.Time            `json:"end_date"`
	IsActive     bool                 `json:"is_active"`
	CreatedAt    time.Time            `json:"created_at"`
}

// ChallengeStatus summarizes participation in a challenge.
type ChallengeStatus struct {
	Challenge    Challenge `json:"challenge"`
	Participants int       `json:"participants"`
	Submissions  int       `json:"submissions"`
}

// LeaderboardEntry is one user's validated total.
type LeaderboardEntry struct {
	Rank   int     `json:"rank"`
	UserID string  `json:"user_id"`
	Total  float64 `json:"total"`
}
