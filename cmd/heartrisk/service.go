package main

import (
	"os"

	"github.com/ZanzyTHEbar/heartrisk/internal/analysis"
	"github.com/ZanzyTHEbar/heartrisk/internal/config"
	"github.com/ZanzyTHEbar/heartrisk/internal/inference"
	"github.com/ZanzyTHEbar/heartrisk/internal/inference/onnx"
	"github.com/ZanzyTHEbar/heartrisk/internal/monitoring"
)

// service wires the manifest, the inference session and the analyzer
type service struct {
	manifest *analysis.Manifest
	session  *inference.Session
	analyzer *analysis.Analyzer
}

func newONNXLoader(cfg *config.Config) inference.Loader {
	return onnx.NewLoader(onnx.Options{
		LibraryPath:    cfg.Model.RuntimeLibrary,
		IntraOpThreads: cfg.Model.IntraOpThreads,
	})
}

func newService(cfg *config.Config, loader inference.Loader, logger *monitoring.Logger, metrics *monitoring.Metrics) (*service, error) {
	store := analysis.NewManifestStore(cfg.Model.AssetDir)
	manifest, err := store.Load(cfg.Model.Manifest)
	if err != nil {
		return nil, err
	}

	session, err := inference.NewSession(inference.Config{
		Assets:       os.DirFS(cfg.Model.AssetDir),
		Artifact:     manifest.Artifact,
		ModelVersion: manifest.Version,
		Spec: inference.Spec{
			InputName:  manifest.InputName,
			Width:      analysis.NumFeatures,
			OutputName: manifest.Output.Name,
			ScoreIndex: manifest.Output.ScoreIndex,
		},
		Loader:        loader,
		MaxConcurrent: cfg.Model.MaxConcurrentInference,
		Logger:        logger,
		Metrics:       metrics,
	})
	if err != nil {
		return nil, err
	}

	analyzer, err := analysis.NewAnalyzer(manifest, session, logger, metrics)
	if err != nil {
		return nil, err
	}

	return &service{
		manifest: manifest,
		session:  session,
		analyzer: analyzer,
	}, nil
}
