package constants

import (
	"strings"
)

// Discipline is the activity category a challenge tracks.
type Discipline string

const (
	Walking  Discipline = "WALKING"
	Running  Discipline = "RUNNING"
	Cycling  Discipline = "CYCLING"
	Swimming Discipline = "SWIMMING"
	Calories Discipline = "CALORIES"
)

var allDisciplines = []Discipline{
	Walking,
	Running,
	Cycling,
	Swimming,
	Calories,
}

func AsStringSlice() []string {
	result := make([]string, len(allDisciplines))
	for i, d := range allDisciplines {
		result[i] = string(d)
	}
	return result
}

// DefaultUnit is the canonical unit results for the discipline are recorded in.
func (d Discipline) DefaultUnit() string {
	if d == Calories {
		return UnitCalories
	}
	return UnitKilometers
}

func (d Discipline) Valid() bool {
	for _, x := range allDisciplines {
		if x == d {
			return true
		}
	}
	return false
}

func Canonicalize(input string) (Discipline, bool) {
	if input == "" {
		return "", false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]Discipline{
		"walk":    Walking,
		"walked":  Walking,
		"hike":    Walking,
		"hiking":  Walking,
		"steps":   Walking,
		"run":     Running,
		"ran":     Running,
		"jog":     Running,
		"jogging": Running,
		"bike":    Cycling,
		"biking":  Cycling,
		"ride":    Cycling,
		"cycle":   Cycling,
		"swim":    Swimming,
		"swam":    Swimming,
		"kcal":    Calories,
		"calorie": Calories,
		"burn":    Calories,
		"workout": Calories,
	}

	if d, ok := synonyms[normalized]; ok {
		return d, true
	}

	for _, d := range allDisciplines {
		if normalized == strings.ToLower(string(d)) {
			return d, true
		}
	}

	return "", false
}

// FromChannelName infers the challenge discipline from a channel name such as
// "running-challenge".
func FromChannelName(name string) (Discipline, bool) {
	name = strings.ToLower(name)
	for _, d := range allDisciplines {
		if strings.Contains(name, strings.ToLower(string(d))) {
			return d, true
		}
	}
	return "", false
}
