package algo

import (
	"fmt"
	"math"

	"github.com/pancstage/pancstage/schema"
)

const survivalSuffix = "(personalized based on lab risk profile)."

// AdjustSurvival scales base survival down by up to discount as risk goes to 1.
func AdjustSurvival(base, discount, risk float64) float64 {
	return base * (1 - discount*risk)
}

// FormatSurvival renders adjusted survival months. Values at or above
// yearThreshold are reported in years with one decimal, the rest in whole months.
func FormatSurvival(months, yearThreshold float64) string {
	if months >= yearThreshold {
		return fmt.Sprintf("Estimated survival: %.1f years %s", months/12, survivalSuffix)
	}
	return fmt.Sprintf("Estimated survival: %.0f months %s", months, survivalSuffix)
}

// ProjectSurvival maps a stage and risk score to a personalized survival
// estimate. Stages without a base survival short-circuit to the normal
// condition text and ignore risk.
func ProjectSurvival(profile *schema.ClinicalProfile, stage schema.Stage, risk float64) (schema.SurvivalEstimate, error) {
	base, ok := profile.BaseSurvivalMonths[stage]
	if !ok {
		return schema.SurvivalEstimate{}, fmt.Errorf("%w: no base survival for %q", schema.ErrUnknownStage, stage)
	}
	if base == nil {
		return schema.SurvivalEstimate{Text: schema.NormalSurvivalText}, nil
	}
	if math.IsNaN(risk) || risk < 0 || risk > 1 {
		return schema.SurvivalEstimate{}, fmt.Errorf("%w: risk must be within [0,1] (got %g)", schema.ErrInvalidInput, risk)
	}

	adjusted := AdjustSurvival(*base, profile.SurvivalDiscount, risk)
	return schema.SurvivalEstimate{
		Months: &adjusted,
		Text:   FormatSurvival(adjusted, profile.YearThresholdMonths),
	}, nil
}
