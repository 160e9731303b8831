package core

import (
	"errors"
	"fmt"

	"github.com/pancstage/pancstage/core/algo"
	"github.com/pancstage/pancstage/internal/contract"
	"github.com/pancstage/pancstage/schema"
)

// Estimator turns a lab panel into a stage, risk, survival and recommendation
// prediction. It is read-only after construction and safe for concurrent use.
type Estimator struct {
	classifier contract.Classifier
	decoder    contract.LabelDecoder
	profile    *schema.ClinicalProfile
}

// NewEstimator wires the classifier and label decoder to a clinical profile.
// A nil profile selects schema.DefaultClinicalProfile. Every label the decoder
// can produce must be a known stage with survival and recommendation entries.
func NewEstimator(classifier contract.Classifier, decoder contract.LabelDecoder, profile *schema.ClinicalProfile) (*Estimator, error) {
	if classifier == nil {
		return nil, fmt.Errorf("%w: no classifier loaded", schema.ErrModelUnavailable)
	}
	if decoder == nil {
		return nil, fmt.Errorf("%w: no label decoder loaded", schema.ErrModelUnavailable)
	}
	if profile == nil {
		profile = schema.DefaultClinicalProfile()
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	for _, label := range decoder.Classes() {
		stage, err := schema.ParseStage(label)
		if err != nil {
			return nil, fmt.Errorf("label decoder: %w", err)
		}
		if err := profile.CoversStage(stage); err != nil {
			return nil, err
		}
	}

	return &Estimator{
		classifier: classifier,
		decoder:    decoder,
		profile:    profile.Clone(),
	}, nil
}

// Profile returns a copy of the clinical profile in use.
func (e *Estimator) Profile() *schema.ClinicalProfile {
	return e.profile.Clone()
}

// PredictStage validates the panel and classifies it into a stage.
func (e *Estimator) PredictStage(panel schema.LabPanel) (schema.Stage, error) {
	if err := panel.Validate(); err != nil {
		return "", err
	}

	index, err := e.classifier.Predict(panel.Features())
	if err != nil {
		return "", asModelUnavailable("classifier", err)
	}
	label, err := e.decoder.Decode(index)
	if err != nil {
		return "", asModelUnavailable("label decoder", err)
	}
	return schema.ParseStage(label)
}

// Estimate runs the full pipeline for one panel. Risk is only computed for
// disease stages; any failure aborts the whole prediction.
func (e *Estimator) Estimate(panel schema.LabPanel) (*schema.Prediction, error) {
	stage, err := e.PredictStage(panel)
	if err != nil {
		return nil, err
	}

	var risk *schema.RiskAssessment
	var score float64
	if stage.HasDisease() {
		risk, err = algo.ComputePanelRisk(e.profile, panel)
		if err != nil {
			return nil, err
		}
		score = risk.Score
	}

	survival, err := algo.ProjectSurvival(e.profile, stage, score)
	if err != nil {
		return nil, err
	}
	recs, err := algo.Recommendations(e.profile, stage)
	if err != nil {
		return nil, err
	}

	return &schema.Prediction{
		Panel:           panel,
		Stage:           stage,
		Risk:            risk,
		Survival:        survival,
		Recommendations: recs,
	}, nil
}

// asModelUnavailable wraps a runtime failure unless it already carries a sentinel.
func asModelUnavailable(component string, err error) error {
	if errors.Is(err, schema.ErrModelUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", schema.ErrModelUnavailable, component, err)
}
