// Package classifier is the boundary to the trained disease model. A model maps
// one binary symptom row to one probability per label id.
package classifier

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Classifier scores a single feature row.
type Classifier interface {
	Predict(features []float64) ([]float64, error)
}

// Model is a loaded classifier with a fixed input and output width.
type Model interface {
	Classifier
	Dims() (features, classes int)
	Close() error
}

// Func adapts a plain function to Classifier.
type Func func(features []float64) ([]float64, error)

// Predict calls f.
func (f Func) Predict(features []float64) ([]float64, error) { return f(features) }

// InferenceError is the only failure a Classifier reports.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// Options configures Open.
type Options struct {
	// Features and Classes are the expected widths, taken from the catalogs.
	Features int
	Classes  int
	// RuntimeLibrary is the onnxruntime shared library, used for .onnx models.
	RuntimeLibrary string
}

// Open loads the model at path. Files ending in .onnx use the ONNX runtime
// backend, everything else is read as an exported random forest.
func Open(path string, opts Options) (Model, error) {
	if strings.EqualFold(filepath.Ext(path), ".onnx") {
		return openONNX(path, opts)
	}
	forest, err := LoadForest(path)
	if err != nil {
		return nil, err
	}
	if opts.Features > 0 || opts.Classes > 0 {
		if err := CheckDims(forest, opts.Features, opts.Classes); err != nil {
			return nil, err
		}
	}
	return forest, nil
}

// CheckDims verifies m matches the catalog sizes.
func CheckDims(m Model, features, classes int) error {
	gotFeatures, gotClasses := m.Dims()
	if gotFeatures != features {
		return fmt.Errorf("model expects %d features, symptom schema has %d", gotFeatures, features)
	}
	if gotClasses != classes {
		return fmt.Errorf("model outputs %d classes, label catalog has %d", gotClasses, classes)
	}
	return nil
}
