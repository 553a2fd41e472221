// Package metric canonicalizes free-text activity phrases into (value, unit) pairs.
package metric

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/challenge-tracker/constants"
	"github.com/joseph-ayodele/challenge-tracker/internal/common"
)

// longest alternatives first so "kilometers" never matches as "k"+"m"
var reMetric = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(kilometres|kilometers|kilometre|kilometer|kms|km|metres|meters|metre|meter|m|kilocalories|kilocalorie|calories|calorie|kcals|kcal|cals|cal)\b`)

var unitSynonyms = map[string]string{
	"kilometres":   constants.UnitKilometers,
	"kilometers":   constants.UnitKilometers,
	"kilometre":    constants.UnitKilometers,
	"kilometer":    constants.UnitKilometers,
	"kms":          constants.UnitKilometers,
	"km":           constants.UnitKilometers,
	"metres":       constants.UnitMeters,
	"meters":       constants.UnitMeters,
	"metre":        constants.UnitMeters,
	"meter":        constants.UnitMeters,
	"m":            constants.UnitMeters,
	"kilocalories": constants.UnitCalories,
	"kilocalorie":  constants.UnitCalories,
	"calories":     constants.UnitCalories,
	"calorie":      constants.UnitCalories,
	"kcals":        constants.UnitCalories,
	"kcal":         constants.UnitCalories,
	"cals":         constants.UnitCalories,
	"cal":          constants.UnitCalories,
}

// ParseMetric returns the first numeric-plus-unit phrase in text, with the unit
// normalized to one of "km", "m" or "calories".
func ParseMetric(text string) (float64, string, error) {
	m := reMetric.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return 0, "", common.NewKindError(common.KindNoMetricFound, "metric.parse", nil)
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", common.NewKindError(common.KindNoMetricFound, "metric.parse", err)
	}
	return value, unitSynonyms[m[2]], nil
}

// NormalizeUnit maps a unit spelling to its canonical form. Unknown units are
// returned lowercased and trimmed with ok=false.
func NormalizeUnit(unit string) (string, bool) {
	u := strings.ToLower(strings.TrimSpace(unit))
	if c, ok := unitSynonyms[u]; ok {
		return c, true
	}
	return u, false
}

type unitPair struct{ from, to string }

var conversions = map[unitPair]func(float64) float64{
	{constants.UnitMeters, constants.UnitKilometers}: func(x float64) float64 { return x / 1000 },
	{constants.UnitKilometers, constants.UnitMeters}: func(x float64) float64 { return x * 1000 },
	{constants.UnitCalories, constants.UnitKcal}:     func(x float64) float64 { return x / 1000 },
	{constants.UnitKcal, constants.UnitCalories}:     func(x float64) float64 { return x * 1000 },
}

// ConvertUnits converts value between units in the closed conversion table.
// Identity conversion always succeeds unchanged.
func ConvertUnits(value float64, from, to string) (float64, error) {
	if from == to {
		return value, nil
	}
	if fn, ok := conversions[unitPair{from, to}]; ok {
		return fn(value), nil
	}
	return 0, common.KindErrorf(common.KindUnsupportedConversion, "metric.convert", "cannot convert from %s to %s", from, to)
}

// Format renders a canonical pair back into text that ParseMetric accepts.
func Format(value float64, unit string) string {
	return strconv.FormatFloat(value, 'f', -1, 64) + unit
}
