// Package onnx binds inference sessions to ONNX Runtime through
// github.com/yalue/onnxruntime_go.
package onnx

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	apperrors "github.com/ZanzyTHEbar/heartrisk/internal/errors"
	"github.com/ZanzyTHEbar/heartrisk/internal/inference"
)

// Options configure the runtime shared by every backend in the process.
type Options struct {
	// LibraryPath locates the onnxruntime shared library. Empty uses the
	// platform default search.
	LibraryPath    string
	IntraOpThreads int
}

// The runtime environment is process-wide; backends share it by refcount.
var env struct {
	sync.Mutex
	refs int
}

func acquireEnvironment(libraryPath string) error {
	env.Lock()
	defer env.Unlock()

	if env.refs == 0 {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return err
		}
	}
	env.refs++
	return nil
}

func releaseEnvironment() error {
	env.Lock()
	defer env.Unlock()

	if env.refs == 0 {
		return nil
	}
	env.refs--
	if env.refs == 0 {
		return ort.DestroyEnvironment()
	}
	return nil
}

type outputKind int

const (
	outputFloat32 outputKind = iota
	outputInt64
)

// Loader creates ONNX Runtime backends
type Loader struct {
	opts Options
}

// NewLoader returns a loader using opts
func NewLoader(opts Options) *Loader {
	return &Loader{opts: opts}
}

// Load implements inference.Loader. The output element type is resolved here
// so a model with an unusable output fails to load rather than at predict.
func (l *Loader) Load(ctx context.Context, artifact []byte, spec inference.Spec) (inference.Backend, error) {
	if err := acquireEnvironment(l.opts.LibraryPath); err != nil {
		return nil, apperrors.NewModelLoadError("failed to initialise ONNX runtime", err)
	}

	backend, err := l.newBackend(ctx, artifact, spec)
	if err != nil {
		if rerr := releaseEnvironment(); rerr != nil {
			return nil, fmt.Errorf("%w (releasing runtime: %v)", err, rerr)
		}
		return nil, err
	}
	return backend, nil
}

func (l *Loader) newBackend(ctx context.Context, artifact []byte, spec inference.Spec) (*Backend, error) {
	inputs, outputs, err := ort.GetInputOutputInfoWithONNXData(artifact)
	if err != nil {
		return nil, apperrors.NewModelLoadError("malformed model artifact", err)
	}

	if err := checkInput(inputs, spec); err != nil {
		return nil, err
	}

	out, err := selectOutput(outputs, spec.OutputName)
	if err != nil {
		return nil, err
	}

	kind, err := resolveKind(out)
	if err != nil {
		return nil, err
	}

	shape := concreteShape(out.Dimensions)
	if spec.ScoreIndex < 0 || int64(spec.ScoreIndex) >= shape.FlattenedSize() {
		return nil, apperrors.NewModelLoadError(
			fmt.Sprintf("score index %d outside output %q of shape %v", spec.ScoreIndex, out.Name, shape), nil)
	}

	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewModelLoadError("model load cancelled", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, apperrors.NewModelLoadError("failed to create session options", err)
	}
	defer options.Destroy()

	if l.opts.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(l.opts.IntraOpThreads); err != nil {
			return nil, apperrors.NewModelLoadError("failed to set intra-op threads", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSessionWithONNXData(artifact,
		[]string{spec.InputName}, []string{out.Name}, options)
	if err != nil {
		return nil, apperrors.NewModelLoadError("failed to create ONNX session", err)
	}

	return &Backend{
		session:     session,
		kind:        kind,
		outputName:  out.Name,
		outputShape: shape,
		scoreIndex:  spec.ScoreIndex,
	}, nil
}

func checkInput(inputs []ort.InputOutputInfo, spec inference.Spec) error {
	for _, in := range inputs {
		if in.Name != spec.InputName {
			continue
		}
		if in.OrtValueType != ort.ONNXTypeTensor || in.DataType != ort.TensorElementDataTypeFloat {
			return apperrors.NewModelLoadError(
				fmt.Sprintf("input %q must be a float tensor, model declares %v", in.Name, in.DataType), nil)
		}
		dims := in.Dimensions
		if n := len(dims); n > 0 && dims[n-1] > 0 && dims[n-1] != int64(spec.Width) {
			return apperrors.NewModelLoadError(
				fmt.Sprintf("input %q expects %d features, got %d", in.Name, dims[n-1], spec.Width), inference.ErrInputWidth)
		}
		return nil
	}
	return apperrors.NewModelLoadError(fmt.Sprintf("model has no input named %q", spec.InputName), nil)
}

// selectOutput picks the named output, or the first one when name is empty.
func selectOutput(outputs []ort.InputOutputInfo, name string) (ort.InputOutputInfo, error) {
	if len(outputs) == 0 {
		return ort.InputOutputInfo{}, apperrors.NewModelLoadError("model declares no outputs", nil)
	}
	if name == "" {
		return outputs[0], nil
	}
	for _, out := range outputs {
		if out.Name == name {
			return out, nil
		}
	}
	return ort.InputOutputInfo{}, apperrors.NewModelLoadError(fmt.Sprintf("model has no output named %q", name), nil)
}

func resolveKind(out ort.InputOutputInfo) (outputKind, error) {
	if out.OrtValueType != ort.ONNXTypeTensor {
		return 0, apperrors.NewUnsupportedOutputError(fmt.Sprintf("%v", out.OrtValueType), inference.ErrUnsupportedOutput)
	}
	switch out.DataType {
	case ort.TensorElementDataTypeFloat:
		return outputFloat32, nil
	case ort.TensorElementDataTypeInt64:
		return outputInt64, nil
	default:
		return 0, apperrors.NewUnsupportedOutputError(fmt.Sprintf("tensor(%v)", out.DataType), inference.ErrUnsupportedOutput)
	}
}

// concreteShape pins symbolic dimensions to 1; inference is single-row.
func concreteShape(dims ort.Shape) ort.Shape {
	shape := make(ort.Shape, len(dims))
	for i, d := range dims {
		if d <= 0 {
			d = 1
		}
		shape[i] = d
	}
	return shape
}

// Backend runs a single ONNX model. It is safe for concurrent use.
type Backend struct {
	session     *ort.DynamicAdvancedSession
	kind        outputKind
	outputName  string
	outputShape ort.Shape
	scoreIndex  int

	closeOnce sync.Once
	closeErr  error
}

// Infer runs one row of features and returns the score at the configured
// index of the flattened output.
func (b *Backend) Infer(input []float32) (float32, error) {
	in, err := ort.NewTensor(ort.NewShape(1, int64(len(input))), input)
	if err != nil {
		return 0, fmt.Errorf("creating input tensor: %w", err)
	}
	defer in.Destroy()

	switch b.kind {
	case outputInt64:
		return run[int64](b, in)
	default:
		return run[float32](b, in)
	}
}

func run[T float32 | int64](b *Backend, in ort.Value) (float32, error) {
	out, err := ort.NewEmptyTensor[T](b.outputShape)
	if err != nil {
		return 0, fmt.Errorf("allocating output tensor: %w", err)
	}
	defer out.Destroy()

	if err := b.session.Run([]ort.Value{in}, []ort.Value{out}); err != nil {
		return 0, fmt.Errorf("running session: %w", err)
	}

	data := out.GetData()
	if b.scoreIndex >= len(data) {
		return 0, apperrors.NewUnsupportedOutputError(
			fmt.Sprintf("output %q has %d elements", b.outputName, len(data)), inference.ErrUnsupportedOutput)
	}
	return float32(data[b.scoreIndex]), nil
}

// Close destroys the session and drops this backend's hold on the runtime.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		if err := b.session.Destroy(); err != nil {
			b.closeErr = err
		}
		if err := releaseEnvironment(); err != nil && b.closeErr == nil {
			b.closeErr = err
		}
	})
	return b.closeErr
}
