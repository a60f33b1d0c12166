// Package inference provides ONNX Runtime sessions for YOLO detection models.
package inference

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// LibraryPathEnv names the environment variable that points at the ONNX
// Runtime shared library when it is not on the default search path.
const LibraryPathEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// DefaultInputSize is used when the model declares a dynamic spatial size.
const DefaultInputSize = 640

var (
	ortEnvOnce sync.Once
	ortEnvErr  error
)

var (
	// ErrSessionClosed is returned by Infer after Close.
	ErrSessionClosed = errors.New("inference: session is closed")

	// ErrPoolClosed is returned by Acquire after the pool is closed.
	ErrPoolClosed = errors.New("inference: pool is closed")

	// ErrModelLayout indicates the model does not take a single image tensor.
	ErrModelLayout = errors.New("inference: unsupported model layout")
)

// initORT initializes ONNX Runtime environment once.
func initORT() error {
	ortEnvOnce.Do(func() {
		if path := os.Getenv(LibraryPathEnv); path != "" {
			ort.SetSharedLibraryPath(path)
		}
		ortEnvErr = ort.InitializeEnvironment()
	})
	return ortEnvErr
}

// Output is the raw first output tensor of a model run.
type Output struct {
	Data  []float32
	Shape []int64
}

// Session wraps an ONNX Runtime session for a single-image detection model.
type Session struct {
	session *ort.DynamicAdvancedSession
	input   string
	output  string
	width   int
	height  int
	mu      sync.Mutex
	closed  bool
}

// NewSession creates a new ONNX session from a model file. Input and output
// names are read from the model itself.
func NewSession(modelPath string) (*Session, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	if err := initORT(); err != nil {
		return nil, fmt.Errorf("initializing ONNX runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("reading model info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) == 0 {
		return nil, fmt.Errorf("%w: %d inputs, %d outputs", ErrModelLayout, len(inputs), len(outputs))
	}
	width, height, err := inputSize(inputs[0].Dimensions)
	if err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("creating session options: %w", err)
	}
	defer func() { _ = options.Destroy() }()

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return &Session{
		session: session,
		input:   inputs[0].Name,
		output:  outputs[0].Name,
		width:   width,
		height:  height,
	}, nil
}

// inputSize reads W and H from an NCHW image input; dynamic axes fall back to
// DefaultInputSize.
func inputSize(dims ort.Shape) (int, int, error) {
	if len(dims) != 4 || (dims[1] != 3 && dims[1] > 0) {
		return 0, 0, fmt.Errorf("%w: input shape %v", ErrModelLayout, dims)
	}
	dim := func(v int64) int {
		if v <= 0 {
			return DefaultInputSize
		}
		return int(v)
	}
	return dim(dims[3]), dim(dims[2]), nil
}

// InputSize returns the model input width and height.
func (s *Session) InputSize() (int, int) {
	return s.width, s.height
}

// Infer runs the model on one CHW float32 image of InputSize.
func (s *Session) Infer(ctx context.Context, image []float32) (Output, error) {
	select {
	case <-ctx.Done():
		return Output{}, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Output{}, ErrSessionClosed
	}
	if want := 3 * s.width * s.height; len(image) != want {
		return Output{}, fmt.Errorf("input has %d values, want %d", len(image), want)
	}

	input, err := ort.NewTensor(ort.NewShape(1, 3, int64(s.height), int64(s.width)), image)
	if err != nil {
		return Output{}, fmt.Errorf("creating %s tensor: %w", s.input, err)
	}
	defer func() { _ = input.Destroy() }()

	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{input}, outputs); err != nil {
		return Output{}, fmt.Errorf("running inference: %w", err)
	}
	if outputs[0] == nil {
		return Output{}, fmt.Errorf("no output produced")
	}
	defer func() { _ = outputs[0].Destroy() }()

	tensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return Output{}, fmt.Errorf("unexpected %s tensor type", s.output)
	}

	data := tensor.GetData()
	out := Output{
		Data:  make([]float32, len(data)),
		Shape: append([]int64(nil), tensor.GetShape()...),
	}
	copy(out.Data, data)
	return out, nil
}

// Close releases ONNX resources.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.session != nil {
		return s.session.Destroy()
	}
	return nil
}
