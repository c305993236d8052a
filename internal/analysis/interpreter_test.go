package analysis

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
)

func TestInterpret(t *testing.T) {
	tests := []struct {
		name  string
		score float32
		want  Assessment
	}{
		{
			name:  "high risk",
			score: 0.7,
			want: Assessment{
				Score:          0.7,
				Threshold:      0.5,
				Label:          RiskHigh,
				Percentage:     70,
				PercentageText: "70.0%",
				Recommendation: RecommendationHighRisk,
				Color:          ColorHighRisk,
				Colors:         Palette[ColorHighRisk],
			},
		},
		{
			name:  "low risk",
			score: 0.3,
			want: Assessment{
				Score:          0.3,
				Threshold:      0.5,
				Label:          RiskLow,
				Percentage:     70,
				PercentageText: "70.0%",
				Recommendation: RecommendationLowRisk,
				Color:          ColorLowRisk,
				Colors:         Palette[ColorLowRisk],
			},
		},
		{
			name:  "score at threshold is low risk",
			score: 0.5,
			want: Assessment{
				Score:          0.5,
				Threshold:      0.5,
				Label:          RiskLow,
				Percentage:     50,
				PercentageText: "50.0%",
				Recommendation: RecommendationLowRisk,
				Color:          ColorLowRisk,
				Colors:         Palette[ColorLowRisk],
			},
		},
		{
			name:  "certain high",
			score: 1,
			want: Assessment{
				Score:          1,
				Threshold:      0.5,
				Label:          RiskHigh,
				Percentage:     100,
				PercentageText: "100.0%",
				Recommendation: RecommendationHighRisk,
				Color:          ColorHighRisk,
				Colors:         Palette[ColorHighRisk],
			},
		},
		{
			name:  "certain low",
			score: 0,
			want: Assessment{
				Score:          0,
				Threshold:      0.5,
				Label:          RiskLow,
				Percentage:     100,
				PercentageText: "100.0%",
				Recommendation: RecommendationLowRisk,
				Color:          ColorLowRisk,
				Colors:         Palette[ColorLowRisk],
			},
		},
	}

	approx := cmpopts.EquateApprox(0, 1e-4)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Interpret(tt.score, 0.5)
			if diff := cmp.Diff(tt.want, got, approx); diff != "" {
				t.Errorf("Interpret(%v) mismatch (-want +got):\n%s", tt.score, diff)
			}
		})
	}
}

func TestInterpretThresholdFromManifest(t *testing.T) {
	assert.Equal(t, RiskLow, Interpret(0.6, 0.65).Label)
	assert.Equal(t, RiskHigh, Interpret(0.66, 0.65).Label)
}

func TestAssessmentSummary(t *testing.T) {
	a := Interpret(0.82, 0.5)
	assert.Equal(t, "High Risk of Heart Disease (82.0%)", a.Summary())
	assert.Equal(t, "High Risk of Heart Disease (82.0%)\n"+RecommendationHighRisk, a.Display())

	low := Interpret(0.1, 0.5)
	assert.Equal(t, "Low Risk of Heart Disease (90.0%)", low.Summary())
}

func TestPercentageMatchesText(t *testing.T) {
	tests := []struct {
		score float32
		want  float64
		text  string
	}{
		{0.7, 70, "70.0%"},
		{0.3, 70, "70.0%"},
		{0.82, 82, "82.0%"},
		{0.123, 87.7, "87.7%"},
		{0.877, 87.7, "87.7%"},
	}

	for _, tt := range tests {
		got := Interpret(tt.score, 0.5)
		assert.Equal(t, tt.want, got.Percentage, "score %v", tt.score)
		assert.Equal(t, tt.text, got.PercentageText, "score %v", tt.score)
	}
}
