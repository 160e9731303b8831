package algo

import (
	"fmt"
	"slices"

	"github.com/pancstage/pancstage/schema"
)

// Recommendations returns a copy of the ordered care recommendations for a stage.
func Recommendations(profile *schema.ClinicalProfile, stage schema.Stage) ([]string, error) {
	lines, ok := profile.Recommendations[stage]
	if !ok {
		return nil, fmt.Errorf("%w: no recommendations for %q", schema.ErrUnknownStage, stage)
	}
	return slices.Clone(lines), nil
}
