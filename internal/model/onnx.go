package model

import (
	"fmt"
	"sync"

	"github.com/pancstage/pancstage/schema"
	ort "github.com/yalue/onnxruntime_go"
)

// Tensor names produced by sklearn-onnx for classifiers.
const (
	onnxInputName  = "float_input"
	onnxOutputName = "output_label"
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// initRuntime initializes the onnxruntime environment once per process.
func initRuntime(libraryPath string) error {
	ortInitOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// ONNXClassifier evaluates an exported classifier with onnxruntime.
type ONNXClassifier struct {
	mu      sync.RWMutex
	session *ort.DynamicAdvancedSession
}

// NewONNXClassifier loads modelPath into an onnxruntime session.
func NewONNXClassifier(libraryPath, modelPath string) (*ONNXClassifier, error) {
	if err := initRuntime(libraryPath); err != nil {
		return nil, fmt.Errorf("%w: onnxruntime init: %v", schema.ErrModelUnavailable, err)
	}
	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{onnxInputName}, []string{onnxOutputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", schema.ErrModelUnavailable, modelPath, err)
	}
	return &ONNXClassifier{session: session}, nil
}

// Predict implements contract.Classifier.
func (c *ONNXClassifier) Predict(features [schema.NumFeatures]float64) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return 0, fmt.Errorf("%w: onnx session is closed", schema.ErrModelUnavailable)
	}

	data := make([]float32, schema.NumFeatures)
	for i, v := range features {
		data[i] = float32(v)
	}
	input, err := ort.NewTensor(ort.NewShape(1, schema.NumFeatures), data)
	if err != nil {
		return 0, fmt.Errorf("%w: input tensor: %v", schema.ErrModelUnavailable, err)
	}
	defer func() { _ = input.Destroy() }()

	output, err := ort.NewEmptyTensor[int64](ort.NewShape(1))
	if err != nil {
		return 0, fmt.Errorf("%w: output tensor: %v", schema.ErrModelUnavailable, err)
	}
	defer func() { _ = output.Destroy() }()

	if err := c.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return 0, fmt.Errorf("%w: onnx run: %v", schema.ErrModelUnavailable, err)
	}
	return int(output.GetData()[0]), nil
}

// Close releases the onnxruntime session.
func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	err := c.session.Destroy()
	c.session = nil
	return err
}
