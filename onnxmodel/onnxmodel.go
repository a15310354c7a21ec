// Package onnxmodel adapts an ONNX noise-prediction network into a
// diffusion.Predictor via ONNX Runtime (CPU). The model is expected to take
// a float32 sample tensor and an int64 timestep batch, and return predicted
// noise with the sample's shape.
package onnxmodel

import (
	"fmt"
	"log/slog"
	"os"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/SiriEielsen/diffusion"
	"github.com/SiriEielsen/diffusion/tensor"
)

// Model wraps an ONNX Runtime inference session for a noise predictor.
type Model struct {
	session  *ort.DynamicAdvancedSession
	outNames []string
	// the session binds values positionally, so remember where the model
	// declared its timestep input
	timestepFirst bool
}

// Init points ONNX Runtime at its shared library and initializes the
// environment. libPath may be empty, in which case common install locations
// are probed.
func Init(libPath string) error {
	if libPath == "" {
		libPath = findLibrary()
	}
	if libPath == "" {
		return fmt.Errorf("onnxmodel: libonnxruntime not found, set DIFFUSION_ORT_LIB")
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("ORT init: %w", err)
	}
	return nil
}

// Destroy tears down the ONNX Runtime environment.
func Destroy() {
	ort.DestroyEnvironment()
}

// findLibrary looks for libonnxruntime in common locations
func findLibrary() string {
	candidates := []string{
		"/usr/local/lib/libonnxruntime.dylib",
		"/opt/homebrew/lib/libonnxruntime.dylib",
		"/usr/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// New loads the ONNX model at path and creates an inference session.
func New(path string) (*Model, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll)
	opts.SetIntraOpNumThreads(4)
	opts.SetInterOpNumThreads(1)

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("model info: %w", err)
	}
	if len(inputs) != 2 {
		return nil, fmt.Errorf("onnxmodel: expected 2 model inputs (sample, timestep), got %d", len(inputs))
	}
	inNames := make([]string, len(inputs))
	for i, in := range inputs {
		inNames[i] = in.Name
	}
	outNames := make([]string, len(outputs))
	for i, out := range outputs {
		outNames[i] = out.Name
	}
	slog.Debug("loaded noise predictor", "path", path, "inputs", inNames, "outputs", outNames)

	session, err := ort.NewDynamicAdvancedSession(path, inNames, outNames, opts)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	return &Model{
		session:       session,
		outNames:      outNames,
		timestepFirst: timestepFirst(inputs),
	}, nil
}

// timestepFirst reports whether the model declares its int64 timestep input
// before the float sample input.
func timestepFirst(inputs []ort.InputOutputInfo) bool {
	return len(inputs) > 0 && inputs[0].DataType == ort.TensorElementDataTypeInt64
}

// Close releases the inference session.
func (m *Model) Close() {
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
}

// Predictor returns the model as a diffusion.Predictor. Each call runs one
// forward pass with the sample and a length-1 timestep batch.
func (m *Model) Predictor() diffusion.Predictor {
	return func(x *tensor.Tensor, t int) (*tensor.Tensor, error) {
		pred, err := m.run(x, t)
		if err != nil {
			return nil, err
		}
		return pred, nil
	}
}

func (m *Model) run(x *tensor.Tensor, t int) (*tensor.Tensor, error) {
	dims := make([]int64, len(x.Shape))
	for i, s := range x.Shape {
		dims[i] = int64(s)
	}
	sampleTensor, err := ort.NewTensor(ort.NewShape(dims...), x.Data)
	if err != nil {
		return nil, fmt.Errorf("sample tensor: %w", err)
	}
	defer sampleTensor.Destroy()

	tsTensor, err := ort.NewTensor(ort.NewShape(1), []int64{int64(t)})
	if err != nil {
		return nil, fmt.Errorf("timestep tensor: %w", err)
	}
	defer tsTensor.Destroy()

	inValues := []ort.Value{sampleTensor, tsTensor}
	if m.timestepFirst {
		inValues = []ort.Value{tsTensor, sampleTensor}
	}

	outputs := make([]ort.Value, len(m.outNames))
	if err := m.session.Run(inValues, outputs); err != nil {
		return nil, fmt.Errorf("predictor run at step %d: %w", t, err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	if len(outputs) == 0 || outputs[0] == nil {
		return nil, fmt.Errorf("predictor returned no output at step %d", t)
	}
	data, err := extractFloat32(outputs[0])
	if err != nil {
		return nil, err
	}
	return asTensor(data, x.Shape)
}

// asTensor wraps predictor output in the sample's shape, rejecting output
// whose element count does not match. Without this check a short output
// would inherit the sample's shape and fail much later, mid-sampling.
func asTensor(data []float32, shape []int) (*tensor.Tensor, error) {
	n := 1
	for _, s := range shape {
		n *= s
	}
	if len(data) != n {
		return nil, fmt.Errorf("%w: predictor returned %d values for sample of %d", diffusion.ErrShape, len(data), n)
	}
	return tensor.From(data, append([]int{}, shape...)), nil
}

// extractFloat32 extracts float32 data from an ORT output Value.
func extractFloat32(v ort.Value) ([]float32, error) {
	if t, ok := v.(*ort.Tensor[float32]); ok {
		src := t.GetData()
		result := make([]float32, len(src))
		copy(result, src)
		return result, nil
	}
	return nil, fmt.Errorf("unsupported output tensor type %T", v)
}
