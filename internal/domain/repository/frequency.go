package repository

import "MacroPull/internal/domain/models"

// IsValidFrequency returns true if f is a supported native frequency.
func IsValidFrequency(f models.Frequency) bool {
	switch f {
	case models.FreqDaily, models.FreqMonthly, models.FreqQuarterly:
		return true
	default:
		return false
	}
}

// NormalizeFrequency converts a raw string to a valid frequency (or daily).
func NormalizeFrequency(s string) models.Frequency {
	if s == "" {
		return models.FreqDaily
	}
	f := models.Frequency(s)
	if IsValidFrequency(f) {
		return f
	}
	return models.FreqDaily
}
