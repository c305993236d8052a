package analysis

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/ZanzyTHEbar/heartrisk/internal/errors"
	"github.com/ZanzyTHEbar/heartrisk/internal/monitoring"
)

// Predictor scores one normalized feature vector.
type Predictor interface {
	Predict(ctx context.Context, features []float32) (float32, error)
}

// Analyzer runs the assessment pipeline: validate, normalize, predict,
// interpret.
type Analyzer struct {
	manifest  *Manifest
	norm      Normalization
	predictor Predictor
	logger    *monitoring.Logger
	metrics   *monitoring.Metrics
}

// NewAnalyzer creates an analyzer for a validated manifest. logger and
// metrics may be nil.
func NewAnalyzer(manifest *Manifest, predictor Predictor, logger *monitoring.Logger, metrics *monitoring.Metrics) (*Analyzer, error) {
	if manifest == nil {
		manifest = DefaultManifest()
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	if predictor == nil {
		return nil, apperrors.NewConfigurationError("analysis: predictor is required", nil)
	}
	if logger == nil {
		logger = &monitoring.Logger{Logger: slog.Default()}
	}

	return &Analyzer{
		manifest:  manifest,
		norm:      manifest.Normalization(),
		predictor: predictor,
		logger:    logger,
		metrics:   metrics,
	}, nil
}

// Manifest returns the manifest the analyzer was built with
func (a *Analyzer) Manifest() *Manifest {
	return a.manifest
}

// Assess turns one raw input into an interpreted assessment
func (a *Analyzer) Assess(ctx context.Context, in RawInput) (Assessment, error) {
	start := time.Now()

	if err := ValidateInput(in); err != nil {
		return Assessment{}, a.fail("validate", err)
	}

	features, err := Normalize(in, a.norm)
	if err != nil {
		return Assessment{}, a.fail("normalize", err)
	}
	a.logger.Debug("Normalized features", "features", features.String())

	score, err := a.predictor.Predict(ctx, features.Slice())
	if err != nil {
		return Assessment{}, a.fail("predict", err)
	}

	result := Interpret(score, a.manifest.Threshold)
	result.ID = uuid.NewString()
	result.ModelVersion = a.manifest.Version

	a.metrics.RecordAssessment(string(result.Label))
	a.logger.AssessmentLogger(result.ID, string(result.Label), result.Score, result.Percentage, time.Since(start))

	return result, nil
}

func (a *Analyzer) fail(stage string, err error) error {
	appErr := apperrors.ToAppError(err)
	a.metrics.RecordFailure(stage, string(appErr.Category))
	return err
}
