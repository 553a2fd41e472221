package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// keySynonyms maps spellings models commonly use to our keys.
var keySynonyms = map[string]string{
	"day":           "date",
	"activity":      "discipline",
	"activity_type": "discipline",
	"sport":         "discipline",
	"distance":      "value",
	"amount":        "value",
	"units":         "unit",
}

// StripFences removes markdown code fences and any prose around the first JSON object.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// NormalizeAndSanitizeJSON
// - Renames known synonyms (distance -> value, activity -> discipline)
// - Lowercases keys
// - Drops null/empty values so they count as missing
// - Trims strings
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) (map[string]any, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var in map[string]any
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	m := make(map[string]any, len(in))
	for k, v := range in {
		m[strings.ToLower(strings.TrimSpace(k))] = v
	}

	dropped := make([]string, 0, 4)
	renamed := func(from, to string) {
		if v, ok := m[from]; ok {
			// don't overwrite existing value if already present
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}
	for from, to := range keySynonyms {
		renamed(from, to)
	}

	for k, v := range m {
		switch t := v.(type) {
		case nil:
			delete(m, k)
			dropped = append(dropped, k+"(null)")
		case string:
			s := strings.TrimSpace(t)
			if s == "" || strings.EqualFold(s, "null") {
				delete(m, k)
				dropped = append(dropped, k+"(empty)")
			} else {
				m[k] = s
			}
		}
	}

	if len(dropped) > 0 {
		logger.Debug("llm.extract.normalize_sanitize", "dropped", dropped)
	}
	return m, dropped, nil
}
