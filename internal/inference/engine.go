// Package inference wraps the ONNX runtime behind narrow interfaces and owns
// the process-wide model session cache and score ranking.
package inference

import (
	"context"
	"errors"

	"github.com/example/derm-api/internal/preprocess"
)

// ErrUnavailable reports that the prediction model could not be loaded. The
// session cache stays empty after this so a later request retries the load.
var ErrUnavailable = errors.New("prediction model is unavailable")

// ErrNoOutput reports that a forward pass produced no output tensors. This
// means the engine/model contract is broken, not that the input was bad.
var ErrNoOutput = errors.New("model inference did not return any outputs")

// Session is a loaded model ready to serve forward passes. Implementations
// must be safe for concurrent use by simultaneous requests.
type Session interface {
	// Run executes one forward pass and returns the raw logits.
	Run(ctx context.Context, tensor *preprocess.Tensor) ([]float32, error)
	// InputHeight and InputWidth report the spatial dimensions the model
	// expects, derived from its metadata.
	InputHeight() int
	InputWidth() int
	Close() error
}

// Engine loads model sessions from disk.
type Engine interface {
	Load(modelPath string) (Session, error)
}
