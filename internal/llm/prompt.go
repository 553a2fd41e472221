package llm

import (
	"strings"

	"github.com/joseph-ayodele/challenge-tracker/constants"
)

// maxPromptText caps how much submission or OCR text goes into one prompt.
const maxPromptText = 3000

// BuildPrompt asks the backend for a single JSON object describing the activity in req.Text.
func BuildPrompt(req ExtractRequest) string {
	parts := []string{
		"You extract fitness challenge submissions. Return ONLY a JSON object, no prose and no markdown.",
		"Keys: \"date\" (YYYY-MM-DD), \"discipline\" (one of " + strings.Join(constants.AsStringSlice(), ", ") + "), \"value\" (a positive number), \"unit\" (km, m or calories).",
		"Never output null. If the text does not state a distance or calorie amount, return {}.",
	}
	if !req.ReferenceDate.IsZero() {
		parts = append(parts, "The message was posted on "+req.ReferenceDate.Format("2006-01-02")+"; resolve words like 'today' or 'yesterday' against that date.")
	}
	if req.DisciplineHint.Valid() {
		parts = append(parts, "This channel tracks "+string(req.DisciplineHint)+"; use it when the text does not name an activity.")
	}

	text := strings.TrimSpace(req.Text)
	if len(text) > maxPromptText {
		text = text[:maxPromptText] + "\n…(truncated)"
	}

	var b strings.Builder
	b.WriteString(strings.Join(parts, " "))
	b.WriteString("\n\nText:\n")
	b.WriteString(text)
	b.WriteString("\n\nJSON:")
	return b.String()
}
