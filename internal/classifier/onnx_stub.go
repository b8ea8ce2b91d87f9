//go:build !onnx

package classifier

import "errors"

// openONNX is unavailable without the onnx build tag.
// Build with -tags onnx to enable the onnxruntime backend.
func openONNX(_ string, _ Options) (Model, error) {
	return nil, errors.New("onnx models need a binary built with -tags onnx")
}
