package analysis

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/ZanzyTHEbar/heartrisk/internal/errors"
)

// ErrMalformedChestPain is the cause of the FormatError returned for a chest
// pain label without an integer code.
var ErrMalformedChestPain = errors.New("chest pain label has no numeric code")

const chestPainSeparator = " - "

// ParseChestPainCode extracts the numeric code from a label of the form
// "<code> - <description>". A bare "<code>" is accepted as well.
func ParseChestPainCode(label string) (float32, error) {
	token := strings.TrimSpace(label)
	if i := strings.Index(token, chestPainSeparator); i >= 0 {
		token = strings.TrimSpace(token[:i])
	}

	// unsigned decimal digits only
	if token == "" || strings.TrimLeft(token, "0123456789") != "" {
		return 0, apperrors.NewFormatError("chest_pain", label, ErrMalformedChestPain)
	}
	code, err := strconv.Atoi(token)
	if err != nil {
		return 0, apperrors.NewFormatError("chest_pain", label, fmt.Errorf("%w: %w", ErrMalformedChestPain, err))
	}

	return float32(code), nil
}

// ParseSex maps the user's selection to a Sex.
func ParseSex(s string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "1":
		return SexMale, nil
	case "female", "f", "0":
		return SexFemale, nil
	case "":
		return SexUnspecified, apperrors.NewValidationError("Please fill all fields", "sex")
	default:
		return SexUnspecified, apperrors.NewValidationError("Please select male or female", s)
	}
}

// Raw orders the unnormalized features as the model expects them.
func Raw(in RawInput) (FeatureVector, error) {
	cp, err := ParseChestPainCode(in.ChestPain)
	if err != nil {
		return FeatureVector{}, err
	}

	return FeatureVector{
		float32(in.Age),
		float32(in.Thalach),
		in.Sex.Value(),
		cp,
	}, nil
}

// Apply standard-scores each position independently:
// out[i] = (raw[i] - Mean[i]) / Scale[i].
func (n Normalization) Apply(raw FeatureVector) FeatureVector {
	var out FeatureVector
	for i := range raw {
		out[i] = (raw[i] - n.Mean[i]) / n.Scale[i]
	}
	return out
}

// Normalize turns a raw input into the model's feature vector. Range checks
// are the caller's job (see ValidateInput); the only failure here is a
// malformed chest pain label.
func Normalize(in RawInput, n Normalization) (FeatureVector, error) {
	raw, err := Raw(in)
	if err != nil {
		return FeatureVector{}, err
	}
	return n.Apply(raw), nil
}
