//go:build onnx

package classifier

import (
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Skufu/diagnosis-assistant/internal/artifact"
)

// Tensor names produced by skl2onnx for a classifier exported with
// zipmap disabled.
const (
	onnxInputName  = "float_input"
	onnxLabelName  = "label"
	onnxOutputName = "probabilities"
)

var ortInit sync.Once
var ortInitErr error

// ONNX runs an exported classifier through onnxruntime. The dynamic session
// takes fresh tensors on every call, so concurrent Predicts do not share
// buffers.
type ONNX struct {
	session  *ort.DynamicAdvancedSession
	features int
	classes  int
}

func openONNX(path string, opts Options) (Model, error) {
	if _, err := artifact.ReadFile("classifier model", path); err != nil {
		return nil, err
	}
	if opts.Features <= 0 || opts.Classes <= 0 {
		return nil, errors.New("onnx model needs feature and class counts from the catalogs")
	}
	ortInit.Do(func() {
		if opts.RuntimeLibrary != "" {
			ort.SetSharedLibraryPath(opts.RuntimeLibrary)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", ortInitErr)
	}

	session, err := ort.NewDynamicAdvancedSession(path,
		[]string{onnxInputName},
		[]string{onnxLabelName, onnxOutputName},
		nil)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}
	return &ONNX{session: session, features: opts.Features, classes: opts.Classes}, nil
}

// Dims returns the input and output widths.
func (o *ONNX) Dims() (int, int) { return o.features, o.classes }

// Predict runs one row through the session.
func (o *ONNX) Predict(features []float64) ([]float64, error) {
	if len(features) != o.features {
		return nil, &InferenceError{Err: fmt.Errorf("got %d features, want %d", len(features), o.features)}
	}
	row := make([]float32, len(features))
	for i, v := range features {
		row[i] = float32(v)
	}

	input, err := ort.NewTensor(ort.NewShape(1, int64(o.features)), row)
	if err != nil {
		return nil, &InferenceError{Err: err}
	}
	defer input.Destroy()

	label, err := ort.NewEmptyTensor[int64](ort.NewShape(1))
	if err != nil {
		return nil, &InferenceError{Err: err}
	}
	defer label.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(o.classes)))
	if err != nil {
		return nil, &InferenceError{Err: err}
	}
	defer output.Destroy()

	if err := o.session.Run([]ort.Value{input}, []ort.Value{label, output}); err != nil {
		return nil, &InferenceError{Err: err}
	}

	data := output.GetData()
	probs := make([]float64, len(data))
	for i, v := range data {
		probs[i] = float64(v)
	}
	return probs, nil
}

// Close releases the session.
func (o *ONNX) Close() error {
	if o.session == nil {
		return nil
	}
	err := o.session.Destroy()
	o.session = nil
	return err
}
