// Package margin computes markup percentages and their classification
// against a session threshold. All functions are pure; callers re-invoke
// them whenever a price, cost, or threshold changes.
package margin

import "github.com/dukerupert/sif/internal/domain"

// Percent returns the percentage markup of price over cost,
// (price/cost)*100 - 100. A non-positive cost yields 0.
func Percent(price, cost float64) float64 {
	if cost <= 0 {
		return 0
	}
	return (price/cost)*100 - 100
}

// Status classifies a margin percentage against a threshold: negative
// margins are negative, margins below the threshold are medium, the rest
// are good.
func Status(marginPercent, threshold float64) domain.MarginStatus {
	switch {
	case marginPercent < 0:
		return domain.MarginNegative
	case marginPercent < threshold:
		return domain.MarginMedium
	default:
		return domain.MarginGood
	}
}
