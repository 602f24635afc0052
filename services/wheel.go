package services

import (
	"tably-server/models"
)

// SpinWheel picks one wheel item with probability proportional to its weight
// relative to the sum of all weights. Weights do not have to sum to 100 and
// items with a non-positive weight can never win. randFloat must return a
// value in [0, 1).
func SpinWheel(config models.WheelConfig, randFloat func() float64) (models.WheelItem, int, error) {
	var total float64
	for _, item := range config.Items {
		if item.Probability > 0 {
			total += item.Probability
		}
	}
	if total <= 0 {
		return models.WheelItem{}, -1, ErrWheelConfigInvalid
	}

	target := randFloat() * total
	cumulative := 0.0
	lastIdx := -1
	for i, item := range config.Items {
		if item.Probability <= 0 {
			continue
		}
		cumulative += item.Probability
		lastIdx = i
		if target < cumulative {
			return item, i, nil
		}
	}

	// Floating point accumulation can leave target == cumulative; the last
	// winnable item takes that sliver.
	return config.Items[lastIdx], lastIdx, nil
}
