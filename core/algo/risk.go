// Package algo has the pure scoring, survival and recommendation logic.
package algo

import (
	"fmt"
	"math"

	"github.com/pancstage/pancstage/schema"
)

// clamp01 bounds v to [0,1]. NaN maps to 0.
func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Normalize maps v linearly onto [0,1] using r and clamps the result.
func Normalize(v float64, r schema.Range) float64 {
	return clamp01((v - r.Min) / (r.Max - r.Min))
}

// ComputeRisk combines the normalized risk terms with the profile weights.
// The breakdown holds each term's signed contribution, and the score is the
// clamped sum of the breakdown.
func ComputeRisk(profile *schema.ClinicalProfile, ca199, nlr, albumin float64, age int) (*schema.RiskAssessment, error) {
	if age > schema.MaxAge {
		return nil, fmt.Errorf("%w: %s must be at most %d (got %d)", schema.ErrInvalidInput, schema.BreakdownAge, schema.MaxAge, age)
	}
	inputs := map[schema.BreakdownKey]float64{
		schema.BreakdownCA199:   ca199,
		schema.BreakdownNLR:     nlr,
		schema.BreakdownAge:     float64(age),
		schema.BreakdownAlbumin: albumin,
	}

	breakdown := make(map[schema.BreakdownKey]float64, len(schema.RiskTerms))
	var raw float64
	// Summed in RiskTerms order so the score is reproducible to the last bit.
	for _, key := range schema.RiskTerms {
		v := inputs[key]
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, fmt.Errorf("%w: %s must be a non-negative finite number (got %g)", schema.ErrInvalidInput, key, v)
		}
		contribution := profile.Weights[key] * Normalize(v, profile.Ranges[key])
		breakdown[key] = contribution
		raw += contribution
	}

	return &schema.RiskAssessment{Score: clamp01(raw), Breakdown: breakdown}, nil
}

// ComputePanelRisk is ComputeRisk over the risk terms of a lab panel.
func ComputePanelRisk(profile *schema.ClinicalProfile, panel schema.LabPanel) (*schema.RiskAssessment, error) {
	return ComputeRisk(profile, panel.CA199, panel.NLR, panel.Albumin, panel.Age)
}
