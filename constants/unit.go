package constants

// Canonical units produced by the metric normalizer.
const (
	UnitKilometers = "km"
	UnitMeters     = "m"
	UnitCalories   = "calories"
	UnitKcal       = "kcal"
)
