// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"time"

	"github.com/pancstage/pancstage/schema"
)

// Classifier is a trained stage classifier.
// It accepts one feature vector in schema.FeatureNames order and returns a class index.
// Implementations must be safe for concurrent use once loaded.
type Classifier interface {
	Predict(features [schema.NumFeatures]float64) (int, error)
}

// LabelDecoder maps classifier class indices back to stage labels.
type LabelDecoder interface {
	// Decode returns the label for a class index.
	Decode(index int) (string, error)

	// Classes returns every label the decoder can produce, in index order.
	Classes() []string
}

// StoreManager defines the interface for managing history stores.
// This allows the persistence layer to be mocked for testing.
type StoreManager interface {
	GetHistoryStore() HistoryStore
}

// HistoryStore defines the interface for tracking estimation runs and storing predictions.
type HistoryStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun updates the run with completion data
	EndRun(runID int64, endTime time.Time, totalPredictions int) error

	// RecordPrediction stores one prediction together with its lab panel
	RecordPrediction(runID int64, row int, predictedAt time.Time, pred schema.Prediction) error

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// GetAllRuns retrieves every recorded run
	GetAllRuns() ([]schema.PredictionRunRecord, error)

	// GetAllPredictions retrieves every recorded prediction
	GetAllPredictions() ([]schema.PredictionRecord, error)

	// Close closes the underlying connection
	Close() error
}
