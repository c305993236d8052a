package analysis

import (
	"fmt"
	"math"
)

const (
	RecommendationHighRisk = "RECOMMENDATION: Please consult a physician."
	RecommendationLowRisk  = "RECOMMENDATION: No consultation needed at this time."
)

// Palette maps each colour category to its rendered colours.
var Palette = map[ColorCategory]Colors{
	ColorHighRisk: {Text: "#C62828", Background: "#FFEBEE"},
	ColorLowRisk:  {Text: "#2E7D32", Background: "#E8F5E9"},
}

// Interpret maps a model score onto the two-way result. A score equal to the
// threshold is low risk.
func Interpret(score float32, threshold float64) Assessment {
	a := Assessment{
		Score:     score,
		Threshold: threshold,
	}

	// compare in the model's precision
	if score > float32(threshold) {
		a.Label = RiskHigh
		a.Percentage = float64(score) * 100
		a.Recommendation = RecommendationHighRisk
		a.Color = ColorHighRisk
	} else {
		a.Label = RiskLow
		a.Percentage = (1 - float64(score)) * 100
		a.Recommendation = RecommendationLowRisk
		a.Color = ColorLowRisk
	}

	// one decimal, so the value and its text agree
	a.Percentage = math.Round(a.Percentage*10) / 10
	a.PercentageText = fmt.Sprintf("%.1f%%", a.Percentage)
	a.Colors = Palette[a.Color]
	return a
}
