package entity

import (
	"strings"

	"github.com/joseph-ayodele/challenge-tracker/internal/common"
)

// ImageRef locates one screenshot attachment.
type ImageRef struct {
	URL       string `json:"url"`
	AuthToken string `json:"-"`
	Name      string `json:"name,omitempty"`
	MimeType  string `json:"mimetype,omitempty"`
}

// Submission is one chat message posted to a challenge channel.
type Submission struct {
	UserID           string     `json:"user_id"`
	Text             string     `json:"text"`
	Attachments      []ImageRef `json:"attachments"`
	ChallengeChannel string     `json:"challenge_channel"`
	Timestamp        string     `json:"timestamp"`
}

// HasText reports whether the submission carries non-blank text.
func (s Submission) HasText() bool {
	return strings.TrimSpace(s.Text) != ""
}

// IsEmpty reports whether there is nothing to extract a metric from.
func (s Submission) IsEmpty() bool {
	return !s.HasText() && len(s.Attachments) == 0
}

// Validate checks the boundary shape once so downstream stages never re-check it.
// An empty submission is not a shape error; the pipeline reports it as EmptySubmission.
func (s Submission) Validate() error {
	v := common.NewValidator().
		Field("user_id", s.UserID, common.Required).
		Field("challenge_channel", s.ChallengeChannel, common.Required).
		Field("timestamp", s.Timestamp, common.Required, common.Timestamp).
		Field("text", s.Text, common.MaxLength(4000))
	for _, a := range s.Attachments {
		v.Field("attachments.url", a.URL, common.Required, common.HTTPURL)
	}
	return v.Error()
}
