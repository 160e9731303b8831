package algo

import (
	"slices"

	"github.com/pancstage/pancstage/schema"
)

// RankByRisk sorts predictions by risk score in descending order and returns
// the top 'limit' entries. A limit of zero or less keeps every prediction.
// The sort is stable so equal scores keep their input order.
func RankByRisk(preds []schema.EnrichedPrediction, limit int) []schema.EnrichedPrediction {
	slices.SortStableFunc(preds, func(a, b schema.EnrichedPrediction) int {
		switch {
		case a.RiskScore > b.RiskScore:
			return -1
		case a.RiskScore < b.RiskScore:
			return 1
		default:
			return 0
		}
	})
	if limit > 0 && len(preds) > limit {
		return preds[:limit]
	}
	return preds
}
