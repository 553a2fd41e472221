package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/challenge-tracker/constants"
	"github.com/joseph-ayodele/challenge-tracker/internal/common"
	"github.com/joseph-ayodele/challenge-tracker/internal/entity"
	"github.com/joseph-ayodele/challenge-tracker/internal/metric"
)

const opParse = "llm.parse"

// ParseCompletion turns a completion string into an ExtractedMetric.
// Failures are classified as MalformedExtraction (not a JSON object),
// IncompleteExtraction (a required key is missing) or InvalidFormat
// (a key is present but unusable). None of them is worth retrying.
func ParseCompletion(completion string, hint constants.Discipline, logger *slog.Logger) (entity.ExtractedMetric, []byte, error) {
	cleaned := []byte(StripFences(completion))
	if len(cleaned) == 0 {
		return entity.ExtractedMetric{}, nil, common.KindErrorf(common.KindMalformedExtraction, opParse, "empty completion")
	}

	m, _, err := NormalizeAndSanitizeJSON(cleaned, logger)
	if err != nil {
		return entity.ExtractedMetric{}, cleaned, common.NewKindError(common.KindMalformedExtraction, opParse, err)
	}
	if _, ok := m["discipline"]; !ok && hint.Valid() {
		m["discipline"] = string(hint)
	}

	var missing []string
	for _, k := range RequiredKeys {
		if _, ok := m[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return entity.ExtractedMetric{}, cleaned, common.KindErrorf(common.KindIncompleteExtraction, opParse, "missing %s", strings.Join(missing, ", "))
	}

	doc, err := json.Marshal(m)
	if err != nil {
		return entity.ExtractedMetric{}, cleaned, common.NewKindError(common.KindMalformedExtraction, opParse, err)
	}
	schema, err := compiledMetricSchema()
	if err != nil {
		return entity.ExtractedMetric{}, doc, err
	}
	if err := validateDoc(schema, doc); err != nil {
		return entity.ExtractedMetric{}, doc, common.NewKindError(common.KindInvalidFormat, opParse, err)
	}

	out, err := toMetric(m)
	if err != nil {
		return entity.ExtractedMetric{}, doc, err
	}
	return out, doc, nil
}

func toMetric(m map[string]any) (entity.ExtractedMetric, error) {
	date, err := time.Parse("2006-01-02", m["date"].(string))
	if err != nil {
		return entity.ExtractedMetric{}, common.KindErrorf(common.KindInvalidFormat, opParse, "date %q: %v", m["date"], err)
	}

	value, err := parseValue(m["value"])
	if err != nil {
		return entity.ExtractedMetric{}, common.NewKindError(common.KindInvalidFormat, opParse, err)
	}

	discipline, ok := constants.Canonicalize(m["discipline"].(string))
	if !ok {
		return entity.ExtractedMetric{}, common.KindErrorf(common.KindInvalidFormat, opParse,
			"discipline %q not one of %s", m["discipline"], strings.Join(constants.AsStringSlice(), ", "))
	}

	unit, known := metric.NormalizeUnit(m["unit"].(string))
	if !known {
		return entity.ExtractedMetric{}, common.KindErrorf(common.KindInvalidFormat, opParse, "unit %q", unit)
	}

	return entity.ExtractedMetric{Date: date, Discipline: discipline, Value: value, Unit: unit}, nil
}

func parseValue(v any) (float64, error) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		t = strings.TrimSpace(t)
		if strings.HasPrefix(t, "-") {
			return 0, fmt.Errorf("value %q must be positive", t)
		}
		// tolerate "5.2km" style answers
		num, _, err := metric.ParseMetric(t)
		if err != nil {
			num, err = strconv.ParseFloat(t, 64)
			if err != nil {
				return 0, fmt.Errorf("value %q is not a number", t)
			}
		}
		f = num
	default:
		return 0, fmt.Errorf("value has type %T", v)
	}
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("value %v must be positive", f)
	}
	return f, nil
}
