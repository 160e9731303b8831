package schema

import "errors"

// Sentinel errors for the estimator. Callers match them with errors.Is; they
// are always wrapped with the offending field, label or artifact.
var (
	// ErrInvalidInput means a lab value could not be parsed or is physically impossible.
	ErrInvalidInput = errors.New("invalid input")

	// ErrModelUnavailable means the classifier or label decoder is missing or failed to load.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrUnknownStage means a stage label has no entry in the survival or recommendation tables.
	ErrUnknownStage = errors.New("unknown stage")
)
