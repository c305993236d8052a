package analysis

import (
	"fmt"
	"strings"
)

// NumFeatures is the width of the model input.
const NumFeatures = 4

// FeatureOrder is the column order the model was trained on. Reordering it
// requires retraining.
var FeatureOrder = [NumFeatures]string{"age", "thalach", "sex", "cp"}

// Sex is the categorical sex feature. The zero value is unspecified and
// fails validation.
type Sex int

const (
	SexUnspecified Sex = iota
	SexFemale
	SexMale
)

// Value returns the numeric encoding used by the model: 1 for male, 0 for female.
func (s Sex) Value() float32 {
	if s == SexMale {
		return 1
	}
	return 0
}

func (s Sex) String() string {
	switch s {
	case SexMale:
		return "male"
	case SexFemale:
		return "female"
	default:
		return "unspecified"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Sex) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Sex) UnmarshalText(text []byte) error {
	parsed, err := ParseSex(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// RawInput is one prediction request as entered by the user.
type RawInput struct {
	Age       float64 `json:"age"`
	Thalach   float64 `json:"thalach"`
	Sex       Sex     `json:"sex"`
	ChestPain string  `json:"chest_pain"`
}

// FeatureVector is the normalized model input in FeatureOrder.
type FeatureVector [NumFeatures]float32

// Slice copies the vector into a fresh slice for the inference call
func (v FeatureVector) Slice() []float32 {
	out := make([]float32, NumFeatures)
	copy(out, v[:])
	return out
}

func (v FeatureVector) String() string {
	parts := make([]string, NumFeatures)
	for i, f := range v {
		parts[i] = fmt.Sprintf("%s=%.4f", FeatureOrder[i], f)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Normalization holds the per-feature standard score parameters.
type Normalization struct {
	Mean  [NumFeatures]float32
	Scale [NumFeatures]float32
}

// RiskLevel is the two-way classification shown to the user.
type RiskLevel string

const (
	RiskHigh RiskLevel = "High Risk"
	RiskLow  RiskLevel = "Low Risk"
)

// ColorCategory selects the traffic-light colours for a result.
type ColorCategory string

const (
	ColorHighRisk ColorCategory = "high_risk"
	ColorLowRisk  ColorCategory = "low_risk"
)

// Colors are the text and background colours of a rendered result.
type Colors struct {
	Text       string `json:"text"`
	Background string `json:"background"`
}

// Assessment is the interpreted prediction handed back to the host.
type Assessment struct {
	ID             string        `json:"id,omitempty"`
	ModelVersion   string        `json:"model_version,omitempty"`
	Score          float32       `json:"score"`
	Threshold      float64       `json:"threshold"`
	Label          RiskLevel     `json:"label"`
	Percentage     float64       `json:"percentage"`
	PercentageText string        `json:"percentage_text"`
	Recommendation string        `json:"recommendation"`
	Color          ColorCategory `json:"color"`
	Colors         Colors        `json:"colors"`
}

// Summary renders e.g. "High Risk of Heart Disease (82.0%)".
func (a Assessment) Summary() string {
	return fmt.Sprintf("%s of Heart Disease (%s)", a.Label, a.PercentageText)
}

// Display is the summary followed by the recommendation on its own line.
func (a Assessment) Display() string {
	return a.Summary() + "\n" + a.Recommendation
}
