package inference

import (
	"context"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/example/derm-api/internal/preprocess"
)

// defaultInputSize is used when the model metadata does not declare positive
// spatial dimensions (dynamic axes are reported as -1).
const defaultInputSize = 256

// ONNXEngine loads models through the ONNX runtime. The caller is expected to
// have initialized the runtime environment (ort.InitializeEnvironment) once
// at startup.
type ONNXEngine struct {
	logger *zap.Logger
}

// NewONNXEngine constructs an engine that logs through the given logger.
func NewONNXEngine(logger *zap.Logger) *ONNXEngine {
	return &ONNXEngine{logger: logger.Named("onnx_engine")}
}

// Load reads the model's declared inputs and outputs and opens a dynamic
// session bound to the first declared input and output names.
func (e *ONNXEngine) Load(modelPath string) (Session, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model metadata: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model %s declares no inputs or outputs", modelPath)
	}

	inputName := inputs[0].Name
	outputName := outputs[0].Name

	// NCHW convention: height at axis 2, width at axis 3.
	height, width := defaultInputSize, defaultInputSize
	dims := inputs[0].Dimensions
	if len(dims) >= 4 {
		if dims[2] > 0 {
			height = int(dims[2])
		}
		if dims[3] > 0 {
			width = int(dims[3])
		}
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputName},
		[]string{outputName},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create model session: %w", err)
	}

	e.logger.Info("model session created",
		zap.String("model", modelPath),
		zap.String("input", inputName),
		zap.String("output", outputName),
		zap.Int("height", height),
		zap.Int("width", width),
	)

	return &onnxSession{
		session: session,
		height:  height,
		width:   width,
	}, nil
}

// onnxSession allocates input and output tensors per call, so concurrent Run
// invocations do not share mutable state.
type onnxSession struct {
	session *ort.DynamicAdvancedSession
	height  int
	width   int
}

func (s *onnxSession) Run(ctx context.Context, tensor *preprocess.Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	input, err := ort.NewTensor(ort.NewShape(tensor.Shape()...), tensor.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	if outputs[0] == nil {
		return nil, ErrNoOutput
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type %T", outputs[0])
	}

	logits := make([]float32, len(out.GetData()))
	copy(logits, out.GetData())
	return logits, nil
}

func (s *onnxSession) InputHeight() int { return s.height }
func (s *onnxSession) InputWidth() int  { return s.width }

func (s *onnxSession) Close() error {
	return s.session.Destroy()
}
