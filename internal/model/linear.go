package model

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/pancstage/pancstage/schema"
)

// Linear is a multinomial logistic model. Features are standardized with the
// stored mean and scale before computing W·x + b; the largest logit wins.
type Linear struct {
	coef      [][schema.NumFeatures]float64
	intercept []float64
	mean      [schema.NumFeatures]float64
	scale     [schema.NumFeatures]float64
}

var _ NativeClassifier = &Linear{} // Compile-time check

func parseLinear(data []byte, classes int) (*Linear, error) {
	var raw struct {
		Coef      [][]float64 `json:"coef"`
		Intercept []float64   `json:"intercept"`
		Mean      []float64   `json:"mean"`
		Scale     []float64   `json:"scale"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: malformed linear artifact: %v", schema.ErrModelUnavailable, err)
	}
	if len(raw.Coef) != classes || len(raw.Intercept) != classes {
		return nil, fmt.Errorf("%w: linear artifact needs %d coefficient rows and intercepts", schema.ErrModelUnavailable, classes)
	}

	m := &Linear{
		coef:      make([][schema.NumFeatures]float64, classes),
		intercept: raw.Intercept,
	}
	for c, row := range raw.Coef {
		if len(row) != schema.NumFeatures {
			return nil, fmt.Errorf("%w: coefficient row %d has %d values", schema.ErrModelUnavailable, c, len(row))
		}
		copy(m.coef[c][:], row)
	}

	for i := range m.scale {
		m.scale[i] = 1
	}
	if raw.Mean != nil {
		if len(raw.Mean) != schema.NumFeatures {
			return nil, fmt.Errorf("%w: mean has %d values", schema.ErrModelUnavailable, len(raw.Mean))
		}
		copy(m.mean[:], raw.Mean)
	}
	if raw.Scale != nil {
		if len(raw.Scale) != schema.NumFeatures {
			return nil, fmt.Errorf("%w: scale has %d values", schema.ErrModelUnavailable, len(raw.Scale))
		}
		for i, s := range raw.Scale {
			if s == 0 || math.IsNaN(s) {
				return nil, fmt.Errorf("%w: scale for %s must be non-zero", schema.ErrModelUnavailable, schema.FeatureNames[i])
			}
		}
		copy(m.scale[:], raw.Scale)
	}
	return m, nil
}

// NumClasses returns the number of output classes.
func (m *Linear) NumClasses() int {
	return len(m.coef)
}

// Predict implements contract.Classifier.
func (m *Linear) Predict(features [schema.NumFeatures]float64) (int, error) {
	logits := make([]float64, len(m.coef))
	for c, row := range m.coef {
		z := m.intercept[c]
		for i, w := range row {
			z += w * (features[i] - m.mean[i]) / m.scale[i]
		}
		if math.IsNaN(z) {
			return 0, fmt.Errorf("%w: non-finite logit for class %d", schema.ErrModelUnavailable, c)
		}
		logits[c] = z
	}
	return argmax(logits), nil
}
