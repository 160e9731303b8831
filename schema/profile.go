package schema

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
)

// Range is a closed clinical interval used to normalize a lab value.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ClinicalProfile gathers every hard-coded clinical constant used by the
// risk scorer, survival projector and recommendation resolver.
type ClinicalProfile struct {
	// Ranges normalize each risk term linearly into [0,1].
	Ranges map[BreakdownKey]Range `json:"ranges"`

	// Weights are signed; a negative weight marks a protective term.
	Weights map[BreakdownKey]float64 `json:"weights"`

	// SurvivalDiscount is the largest fraction of base survival that risk can remove.
	SurvivalDiscount float64 `json:"survival_discount"`

	// YearThresholdMonths switches survival text from months to years (inclusive).
	YearThresholdMonths float64 `json:"year_threshold_months"`

	// BaseSurvivalMonths maps each stage to its base survival. A nil value
	// means no cancer and short-circuits to NormalSurvivalText.
	BaseSurvivalMonths map[Stage]*float64 `json:"base_survival_months"`

	// Recommendations maps each stage to its ordered care recommendations.
	Recommendations map[Stage][]string `json:"recommendations"`
}

// NormalSurvivalText is reported for stages without a base survival.
const NormalSurvivalText = "No cancer detected — normal condition."

// Default clinical constants.
const (
	DefaultSurvivalDiscount    = 0.4
	DefaultYearThresholdMonths = 12.0
)

func months(v float64) *float64 {
	return &v
}

// DefaultClinicalProfile returns the clinical constants the estimator ships with.
func DefaultClinicalProfile() *ClinicalProfile {
	return &ClinicalProfile{
		Ranges: map[BreakdownKey]Range{
			BreakdownCA199:   {Min: 0, Max: 1000},
			BreakdownNLR:     {Min: 1, Max: 10},
			BreakdownAge:     {Min: 30, Max: 80},
			BreakdownAlbumin: {Min: 2.0, Max: 5.0},
		},
		Weights: map[BreakdownKey]float64{
			BreakdownCA199:   0.35,
			BreakdownNLR:     0.25,
			BreakdownAge:     0.20,
			BreakdownAlbumin: -0.20,
		},
		SurvivalDiscount:    DefaultSurvivalDiscount,
		YearThresholdMonths: DefaultYearThresholdMonths,
		BaseSurvivalMonths: map[Stage]*float64{
			StageNormal: nil,
			Stage1:      months(24),
			Stage2:      months(12),
			Stage3:      months(6),
		},
		Recommendations: map[Stage][]string{
			StageNormal: {
				"Maintain healthy lifestyle",
				"Annual check-up recommended",
				"Monitor symptoms like jaundice or abdominal pain",
				"Avoid smoking and limit alcohol intake",
			},
			Stage1: {
				"Immediate consultation with oncologist",
				"Surgical resection often possible",
				"Consider chemotherapy after surgery",
				"Maintain nutrition & regular follow-ups",
			},
			Stage2: {
				"Combination therapy recommended (surgery + chemotherapy)",
				"Monitor tumor size progression through imaging",
				"Modify diet to maintain weight and energy levels",
				"Regular oncologist follow-ups required",
			},
			Stage3: {
				"Focus on palliative care and symptom management",
				"Pain management & supportive therapy",
				"Chemotherapy may help slow progression",
				"Psychological and family support crucial",
			},
		},
	}
}

// Clone returns a deep copy of the profile.
func (p *ClinicalProfile) Clone() *ClinicalProfile {
	clone := *p
	clone.Ranges = maps.Clone(p.Ranges)
	clone.Weights = maps.Clone(p.Weights)
	if p.BaseSurvivalMonths != nil {
		clone.BaseSurvivalMonths = make(map[Stage]*float64, len(p.BaseSurvivalMonths))
		for stage, base := range p.BaseSurvivalMonths {
			if base != nil {
				base = months(*base)
			}
			clone.BaseSurvivalMonths[stage] = base
		}
	}
	if p.Recommendations != nil {
		clone.Recommendations = make(map[Stage][]string, len(p.Recommendations))
		for stage, lines := range p.Recommendations {
			clone.Recommendations[stage] = slices.Clone(lines)
		}
	}
	return &clone
}

// CoversStage returns an error wrapping ErrUnknownStage unless the stage has
// both a base survival entry and a recommendation set.
func (p *ClinicalProfile) CoversStage(stage Stage) error {
	if _, ok := p.BaseSurvivalMonths[stage]; !ok {
		return fmt.Errorf("%w: %q has no base survival entry", ErrUnknownStage, stage)
	}
	if _, ok := p.Recommendations[stage]; !ok {
		return fmt.Errorf("%w: %q has no recommendations", ErrUnknownStage, stage)
	}
	return nil
}

// Validate checks that the profile is internally consistent.
func (p *ClinicalProfile) Validate() error {
	if p == nil {
		return errors.New("clinical profile is nil")
	}
	for _, key := range RiskTerms {
		r, ok := p.Ranges[key]
		if !ok {
			return fmt.Errorf("missing range for %s", key)
		}
		if !isFinite(r.Min) || !isFinite(r.Max) || r.Max <= r.Min {
			return fmt.Errorf("range for %s must satisfy min < max (got [%g, %g])", key, r.Min, r.Max)
		}
		w, ok := p.Weights[key]
		if !ok {
			return fmt.Errorf("missing weight for %s", key)
		}
		if !isFinite(w) {
			return fmt.Errorf("weight for %s must be finite", key)
		}
	}
	if !isFinite(p.SurvivalDiscount) || p.SurvivalDiscount < 0 || p.SurvivalDiscount > 1 {
		return fmt.Errorf("survival discount must be within [0,1] (got %g)", p.SurvivalDiscount)
	}
	if !isFinite(p.YearThresholdMonths) || p.YearThresholdMonths <= 0 {
		return fmt.Errorf("year threshold must be positive (got %g)", p.YearThresholdMonths)
	}
	for _, stage := range AllStages {
		if err := p.CoversStage(stage); err != nil {
			return err
		}
		if base := p.BaseSurvivalMonths[stage]; base != nil && (!isFinite(*base) || *base <= 0) {
			return fmt.Errorf("base survival for %q must be positive (got %g)", stage, *base)
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
