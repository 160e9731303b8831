// Package model loads the trained stage classifier and its label decoder.
package model

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/pancstage/pancstage/internal/contract"
	"github.com/pancstage/pancstage/schema"
)

// Artifact types understood by the native backend.
const (
	forestArtifact = "forest"
	linearArtifact = "linear"
)

//go:embed artifacts/*.json
var artifactsFS embed.FS

// Embedded reference artifacts used when no paths are configured.
const (
	referenceModelFile   = "artifacts/reference_model.json"
	referenceEncoderFile = "artifacts/reference_encoder.json"
)

// Options selects the classifier runtime and artifact locations.
type Options struct {
	Backend     schema.ModelBackend
	ModelPath   string // Empty selects the embedded reference model (native only)
	EncoderPath string // Empty selects the embedded reference encoder
	ONNXLibrary string // onnxruntime shared library path (onnx only)
}

// Model bundles a loaded classifier with its decoder.
type Model struct {
	Classifier contract.Classifier
	Decoder    contract.LabelDecoder
	close      func() error
}

// Close releases any runtime resources held by the classifier.
func (m *Model) Close() error {
	if m == nil || m.close == nil {
		return nil
	}
	return m.close()
}

// artifactHeader is shared by every native artifact.
type artifactHeader struct {
	Type     string   `json:"type"`
	Features []string `json:"features"`
	Classes  int      `json:"n_classes"`
}

// Load reads the classifier and decoder once. Any failure wraps schema.ErrModelUnavailable.
func Load(opts Options) (*Model, error) {
	decoderData, err := readArtifact(opts.EncoderPath, referenceEncoderFile)
	if err != nil {
		return nil, err
	}
	decoder, err := ParseDecoder(decoderData)
	if err != nil {
		return nil, err
	}

	switch opts.Backend {
	case schema.ONNXModel:
		if opts.ModelPath == "" {
			return nil, fmt.Errorf("%w: onnx backend requires a model path", schema.ErrModelUnavailable)
		}
		clf, err := NewONNXClassifier(opts.ONNXLibrary, opts.ModelPath)
		if err != nil {
			return nil, err
		}
		return &Model{Classifier: clf, Decoder: decoder, close: clf.Close}, nil

	case schema.NativeModel, "":
		modelData, err := readArtifact(opts.ModelPath, referenceModelFile)
		if err != nil {
			return nil, err
		}
		clf, err := ParseClassifier(modelData)
		if err != nil {
			return nil, err
		}
		if n := clf.NumClasses(); n != len(decoder.Classes()) {
			return nil, fmt.Errorf("%w: classifier has %d classes but decoder has %d", schema.ErrModelUnavailable, n, len(decoder.Classes()))
		}
		return &Model{Classifier: clf, Decoder: decoder}, nil

	default:
		return nil, fmt.Errorf("%w: unsupported model backend %q", schema.ErrModelUnavailable, opts.Backend)
	}
}

// NativeClassifier is a classifier evaluated in-process from a JSON artifact.
type NativeClassifier interface {
	contract.Classifier
	NumClasses() int
}

// ParseClassifier decodes a native JSON artifact into a classifier.
func ParseClassifier(data []byte) (NativeClassifier, error) {
	var header artifactHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("%w: malformed model artifact: %v", schema.ErrModelUnavailable, err)
	}
	if err := checkFeatureOrder(header.Features); err != nil {
		return nil, err
	}
	if header.Classes < 1 {
		return nil, fmt.Errorf("%w: model artifact declares %d classes", schema.ErrModelUnavailable, header.Classes)
	}

	switch header.Type {
	case forestArtifact:
		return parseForest(data, header.Classes)
	case linearArtifact:
		return parseLinear(data, header.Classes)
	default:
		return nil, fmt.Errorf("%w: unknown model artifact type %q", schema.ErrModelUnavailable, header.Type)
	}
}

// checkFeatureOrder rejects artifacts trained on a different feature order.
func checkFeatureOrder(features []string) error {
	if !slices.Equal(features, schema.FeatureNames[:]) {
		return fmt.Errorf("%w: artifact feature order %v does not match %v", schema.ErrModelUnavailable, features, schema.FeatureNames)
	}
	return nil
}

// readArtifact reads path, or the embedded fallback when path is empty.
func readArtifact(path, embedded string) ([]byte, error) {
	if path == "" {
		data, err := artifactsFS.ReadFile(embedded)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", schema.ErrModelUnavailable, err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrModelUnavailable, err)
	}
	return data, nil
}

// argmax returns the index of the largest score. Ties go to the lowest index.
func argmax(scores []float64) int {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best
}
