package analysis

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	apperrors "github.com/ZanzyTHEbar/heartrisk/internal/errors"
)

//go:embed default_manifest.yaml
var defaultManifestYAML []byte

// OutputSpec names the model output that carries the risk score.
type OutputSpec struct {
	// Name of the output tensor. Empty selects the first output.
	Name string `yaml:"name" json:"name"`
	// ScoreIndex is the flat index of the score inside that tensor.
	ScoreIndex int `yaml:"score_index" json:"score_index"`
}

// Manifest is the versioned data that has to travel with a model artifact:
// normalization constants, decision threshold and tensor names.
type Manifest struct {
	Version        string     `yaml:"version" json:"version"`
	Artifact       string     `yaml:"artifact" json:"artifact"`
	InputName      string     `yaml:"input_name" json:"input_name"`
	Features       []string   `yaml:"features" json:"features"`
	Mean           []float32  `yaml:"mean" json:"mean"`
	Scale          []float32  `yaml:"scale" json:"scale"`
	Threshold      float64    `yaml:"threshold" json:"threshold"`
	ChestPainTypes []string   `yaml:"chest_pain_types" json:"chest_pain_types"`
	Output         OutputSpec `yaml:"output" json:"output"`
}

// Validate checks the manifest against the feature layout compiled into
// this package.
func (m *Manifest) Validate() error {
	if m.Artifact == "" {
		return apperrors.NewConfigurationError("manifest: artifact is required", nil)
	}
	if m.InputName == "" {
		return apperrors.NewConfigurationError("manifest: input_name is required", nil)
	}
	if len(m.Features) != NumFeatures {
		return apperrors.NewConfigurationError(
			fmt.Sprintf("manifest: expected %d features, got %d", NumFeatures, len(m.Features)), nil)
	}
	for i, name := range m.Features {
		if name != FeatureOrder[i] {
			return apperrors.NewConfigurationError(
				fmt.Sprintf("manifest: feature %d is %q, model expects %q", i, name, FeatureOrder[i]), nil)
		}
	}
	if len(m.Mean) != NumFeatures || len(m.Scale) != NumFeatures {
		return apperrors.NewConfigurationError(
			fmt.Sprintf("manifest: mean and scale need %d values each, got %d and %d", NumFeatures, len(m.Mean), len(m.Scale)), nil)
	}
	for i, s := range m.Scale {
		if s == 0 || math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			return apperrors.NewConfigurationError(
				fmt.Sprintf("manifest: scale for %s must be a non-zero finite number", FeatureOrder[i]), nil)
		}
	}
	if !(m.Threshold > 0 && m.Threshold < 1) {
		return apperrors.NewConfigurationError(
			fmt.Sprintf("manifest: threshold %v outside (0,1)", m.Threshold), nil)
	}
	if m.Output.ScoreIndex < 0 {
		return apperrors.NewConfigurationError("manifest: output.score_index must not be negative", nil)
	}
	for _, label := range m.ChestPainTypes {
		code, err := ParseChestPainCode(label)
		if err != nil {
			return apperrors.NewConfigurationError(
				fmt.Sprintf("manifest: chest pain option %q has no integer code", label), err)
		}
		if !ChestPainCodeRange.Contains(float64(code)) {
			return apperrors.NewConfigurationError(
				fmt.Sprintf("manifest: chest pain option %q outside %g–%g", label, ChestPainCodeRange.Min, ChestPainCodeRange.Max), nil)
		}
	}
	return nil
}

// Normalization returns the mean/scale pair as fixed-width vectors. Only
// valid after Validate.
func (m *Manifest) Normalization() Normalization {
	var n Normalization
	copy(n.Mean[:], m.Mean)
	copy(n.Scale[:], m.Scale)
	return n
}

// ParseManifest decodes and validates a manifest document.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, apperrors.NewConfigurationError("manifest: failed to decode", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// DefaultManifest returns a fresh copy of the manifest shipped with the
// bundled model.
func DefaultManifest() *Manifest {
	m, err := ParseManifest(defaultManifestYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded manifest is invalid: %v", err))
	}
	return m
}

// ManifestStore reads and writes manifests kept next to model artifacts
type ManifestStore struct {
	dir string
}

// NewManifestStore creates a store rooted at dir
func NewManifestStore(dir string) *ManifestStore {
	return &ManifestStore{dir: dir}
}

func (s *ManifestStore) path(name string) string {
	return filepath.Join(s.dir, name+".yaml")
}

// Load reads <dir>/<name>.yaml. A missing file yields the default manifest.
func (s *ManifestStore) Load(name string) (*Manifest, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return DefaultManifest(), nil
	}
	if err != nil {
		return nil, apperrors.NewConfigurationError("manifest: failed to read "+s.path(name), err)
	}

	return ParseManifest(data)
}

// Exists reports whether <dir>/<name>.yaml is present
func (s *ManifestStore) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

// Save validates m and writes it to <dir>/<name>.yaml
func (s *ManifestStore) Save(name string, m *Manifest) error {
	if err := m.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	if err := os.WriteFile(s.path(name), data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}
