// Package inference owns the lifecycle of the loaded risk model: reading the
// artifact, building a runtime session once, serving predictions while
// ready, and releasing the runtime on close.
package inference

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	apperrors "github.com/ZanzyTHEbar/heartrisk/internal/errors"
	"github.com/ZanzyTHEbar/heartrisk/internal/monitoring"
)

var (
	// ErrModelNotLoaded is the cause of IllegalState errors for predictions
	// attempted before a successful load.
	ErrModelNotLoaded = errors.New("model not loaded")
	// ErrSessionClosed is the cause of IllegalState errors after Close.
	ErrSessionClosed = errors.New("inference session closed")
	// ErrInputWidth reports a feature slice of the wrong length.
	ErrInputWidth = errors.New("input width does not match model")
	// ErrUnsupportedOutput is the cause of UnsupportedOutputType errors.
	ErrUnsupportedOutput = errors.New("unsupported model output")
)

// Spec describes the tensors exchanged with the model.
type Spec struct {
	InputName  string
	Width      int
	OutputName string
	ScoreIndex int
}

// Backend is a loaded model bound to a runtime. Infer must be safe for
// concurrent use.
type Backend interface {
	Infer(input []float32) (float32, error)
	Close() error
}

// Loader builds a Backend from serialized artifact bytes.
type Loader interface {
	Load(ctx context.Context, artifact []byte, spec Spec) (Backend, error)
}

// LoaderFunc adapts a function to Loader
type LoaderFunc func(ctx context.Context, artifact []byte, spec Spec) (Backend, error)

// Load implements Loader
func (f LoaderFunc) Load(ctx context.Context, artifact []byte, spec Spec) (Backend, error) {
	return f(ctx, artifact, spec)
}

// Config wires a Session to its artifact and runtime.
type Config struct {
	Assets        fs.FS
	Artifact      string
	ModelVersion  string
	Spec          Spec
	Loader        Loader
	MaxConcurrent int64
	Logger        *monitoring.Logger
	Metrics       *monitoring.Metrics
}

// Status is a point-in-time view of a Session
type Status struct {
	State        string    `json:"state"`
	ModelVersion string    `json:"model_version"`
	LoadedAt     time.Time `json:"loaded_at,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// Session owns one model runtime. It moves Unloaded → Loading → Ready (or
// Failed) exactly once and ends in Closed.
type Session struct {
	cfg Config
	sem *semaphore.Weighted

	once sync.Once
	done chan struct{}

	mu       sync.RWMutex
	state    State
	backend  Backend
	loadErr  error
	loadedAt time.Time
}

// NewSession validates cfg and returns an unloaded session
func NewSession(cfg Config) (*Session, error) {
	if cfg.Assets == nil || cfg.Artifact == "" {
		return nil, apperrors.NewConfigurationError("inference: artifact location is required", nil)
	}
	if cfg.Loader == nil {
		return nil, apperrors.NewConfigurationError("inference: loader is required", nil)
	}
	if cfg.Spec.InputName == "" || cfg.Spec.Width <= 0 {
		return nil, apperrors.NewConfigurationError("inference: input name and width are required", nil)
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}

	return &Session{
		cfg:  cfg,
		sem:  semaphore.NewWeighted(cfg.MaxConcurrent),
		done: make(chan struct{}),
	}, nil
}

// Load reads the artifact and builds the runtime session. Only the first
// call does any work; later calls return its result. A failed load is
// final.
func (s *Session) Load(ctx context.Context) error {
	s.once.Do(func() {
		err := s.load(ctx)
		s.mu.Lock()
		s.loadErr = err
		s.mu.Unlock()
		close(s.done)
	})

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// LoadAsync runs Load on a background goroutine. The returned channel
// yields its result once and is then closed.
func (s *Session) LoadAsync(ctx context.Context) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		errc <- s.Load(ctx)
	}()
	return errc
}

// Ready is closed once loading has finished, successfully or not.
func (s *Session) Ready() <-chan struct{} {
	return s.done
}

func (s *Session) load(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateUnloaded {
		s.mu.Unlock()
		return apperrors.NewIllegalStateError("session closed before load", ErrSessionClosed)
	}
	s.state = StateLoading
	s.mu.Unlock()
	s.cfg.Metrics.SetModelState(StateLoading.String())

	start := time.Now()
	backend, err := s.open(ctx)
	duration := time.Since(start)

	s.mu.Lock()
	switch {
	case s.state == StateClosed:
		if backend != nil {
			if cerr := backend.Close(); cerr != nil {
				slog.Warn("Failed to release model loaded after close", "error", cerr)
			}
		}
		err = apperrors.NewIllegalStateError("session closed during load", ErrSessionClosed)
	case err != nil:
		s.state = StateFailed
	default:
		s.state = StateReady
		s.backend = backend
		s.loadedAt = time.Now()
	}
	state := s.state
	s.mu.Unlock()

	s.cfg.Metrics.RecordModelLoad(duration, err)
	s.cfg.Metrics.SetModelState(state.String())
	if s.cfg.Logger != nil {
		s.cfg.Logger.ModelLogger("load", s.cfg.ModelVersion, state.String(), duration, err)
	}

	return err
}

func (s *Session) open(ctx context.Context) (Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewModelLoadError("model load cancelled", err)
	}

	data, err := ReadArtifact(s.cfg.Assets, s.cfg.Artifact)
	if err != nil {
		return nil, err
	}

	backend, err := s.cfg.Loader.Load(ctx, data, s.cfg.Spec)
	if err != nil {
		if apperrors.Is(err, apperrors.CategoryModelLoad) {
			return nil, err
		}
		return nil, apperrors.NewModelLoadError("failed to initialise inference runtime", err)
	}
	if backend == nil {
		return nil, apperrors.NewModelLoadError("loader returned no session", nil)
	}

	return backend, nil
}

// Predict runs one feature vector through the model and returns its score.
// It fails fast with an IllegalState error unless the session is Ready.
func (s *Session) Predict(ctx context.Context, features []float32) (float32, error) {
	// held for the whole call so Close waits for in-flight inference
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.state {
	case StateReady:
	case StateClosed:
		return 0, apperrors.NewIllegalStateError("model not loaded: session closed", ErrSessionClosed)
	default:
		return 0, apperrors.NewIllegalStateError("model not loaded", ErrModelNotLoaded)
	}

	if len(features) != s.cfg.Spec.Width {
		return 0, apperrors.NewInternalError(
			fmt.Sprintf("expected %d features, got %d", s.cfg.Spec.Width, len(features)), ErrInputWidth)
	}

	if err := ctx.Err(); err != nil {
		return 0, apperrors.ToAppError(err)
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return 0, apperrors.ToAppError(err)
	}
	defer s.sem.Release(1)
	if err := ctx.Err(); err != nil {
		return 0, apperrors.ToAppError(err)
	}

	start := time.Now()
	score, err := s.backend.Infer(features)
	s.cfg.Metrics.RecordInference(time.Since(start))
	if err != nil {
		if apperrors.Is(err, apperrors.CategoryUnsupportedOutput) {
			return 0, err
		}
		return 0, apperrors.NewInternalError("inference failed", err)
	}

	return score, nil
}

// Close releases the runtime session. It waits for in-flight predictions,
// is safe to call more than once, and leaves the session Closed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosed
	backend := s.backend
	s.backend = nil
	s.mu.Unlock()

	// Mark loading finished if it never started. If a load is in flight this
	// waits for it; the load then releases its own backend.
	s.once.Do(func() {
		s.mu.Lock()
		s.loadErr = apperrors.NewIllegalStateError("session closed before load", ErrSessionClosed)
		s.mu.Unlock()
		close(s.done)
	})

	s.cfg.Metrics.SetModelState(StateClosed.String())

	var err error
	if backend != nil {
		if cerr := backend.Close(); cerr != nil {
			err = apperrors.NewInternalError("failed to release inference session", cerr)
		}
	}

	if s.cfg.Logger != nil {
		s.cfg.Logger.ModelLogger("close", s.cfg.ModelVersion, StateClosed.String(), 0, err)
	}
	return err
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Status summarises the session for health and info endpoints
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		State:        s.state.String(),
		ModelVersion: s.cfg.ModelVersion,
		LoadedAt:     s.loadedAt,
	}
	if s.loadErr != nil {
		var appErr *apperrors.AppError
		if errors.As(s.loadErr, &appErr) {
			st.Error = appErr.Message()
		} else {
			st.Error = s.loadErr.Error()
		}
	}
	return st
}
