package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/ZanzyTHEbar/heartrisk/internal/errors"
)

// Range is an inclusive bound on a raw input.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies inside r. NaN is never contained.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

var (
	AgeRange           = Range{Min: 20, Max: 100}
	ThalachRange       = Range{Min: 60, Max: 220}
	ChestPainCodeRange = Range{Min: 0, Max: 3}
)

const (
	msgFillAllFields = "Please fill all fields"
	msgInvalidNumber = "Invalid number format"
)

// ValidateInput performs the range checks the host applies before a request
// reaches the normalizer.
func ValidateInput(in RawInput) error {
	if math.IsNaN(in.Age) || math.IsNaN(in.Thalach) {
		return apperrors.NewValidationError(msgInvalidNumber)
	}
	if !AgeRange.Contains(in.Age) {
		return apperrors.NewValidationError(
			fmt.Sprintf("Please enter a valid age (%g–%g)", AgeRange.Min, AgeRange.Max), in.Age)
	}
	if !ThalachRange.Contains(in.Thalach) {
		return apperrors.NewValidationError(
			fmt.Sprintf("Please enter a valid heart rate (%g–%g)", ThalachRange.Min, ThalachRange.Max), in.Thalach)
	}
	if in.Sex != SexMale && in.Sex != SexFemale {
		return apperrors.NewValidationError("Please select male or female")
	}
	if strings.TrimSpace(in.ChestPain) == "" {
		return apperrors.NewValidationError(msgFillAllFields, "chest_pain")
	}

	code, err := ParseChestPainCode(in.ChestPain)
	if err != nil {
		return err
	}
	if !ChestPainCodeRange.Contains(float64(code)) {
		return apperrors.NewValidationError(
			fmt.Sprintf("Please select a chest pain type (%g–%g)", ChestPainCodeRange.Min, ChestPainCodeRange.Max), in.ChestPain)
	}

	return nil
}

// ParseForm converts the four text fields of the entry form into a RawInput
// and validates it.
func ParseForm(age, thalach, sex, chestPain string) (RawInput, error) {
	age, thalach = strings.TrimSpace(age), strings.TrimSpace(thalach)
	if age == "" || thalach == "" || strings.TrimSpace(sex) == "" || strings.TrimSpace(chestPain) == "" {
		return RawInput{}, apperrors.NewValidationError(msgFillAllFields)
	}

	ageVal, err := strconv.ParseFloat(age, 64)
	if err != nil {
		return RawInput{}, apperrors.NewValidationError(msgInvalidNumber, age)
	}
	thalachVal, err := strconv.ParseFloat(thalach, 64)
	if err != nil {
		return RawInput{}, apperrors.NewValidationError(msgInvalidNumber, thalach)
	}

	sexVal, err := ParseSex(sex)
	if err != nil {
		return RawInput{}, err
	}

	in := RawInput{
		Age:       ageVal,
		Thalach:   thalachVal,
		Sex:       sexVal,
		ChestPain: chestPain,
	}
	if err := ValidateInput(in); err != nil {
		return RawInput{}, err
	}
	return in, nil
}
