package schema

// EnrichedPrediction adds presentation data to a Prediction.
type EnrichedPrediction struct {
	Row       int     `json:"row"`
	RiskLabel string  `json:"risk_label"`
	RiskScore float64 `json:"risk_score"` // 0-100
	Prediction
}

// GetPlainLabel returns a plain text label indicating the risk level
// based on a 0-100 risk score.
func GetPlainLabel(score float64) string {
	switch {
	case score >= 80:
		return "Critical"
	case score >= 60:
		return "High"
	case score >= 40:
		return "Moderate"
	default:
		return "Low"
	}
}

// RiskLabel returns the risk label for a prediction. Normal predictions carry
// no risk score and are always labelled "None".
func RiskLabel(p Prediction) string {
	if p.Risk == nil {
		return "None"
	}
	return GetPlainLabel(p.Risk.Score * 100)
}

// EnrichPredictions adds row numbers and risk labels to a list of predictions.
func EnrichPredictions(preds []Prediction) []EnrichedPrediction {
	output := make([]EnrichedPrediction, len(preds))
	for i, p := range preds {
		output[i] = EnrichedPrediction{
			Row:        i + 1,
			RiskLabel:  RiskLabel(p),
			RiskScore:  p.RiskScore() * 100,
			Prediction: p,
		}
	}
	return output
}

// BatchOutput is the presentation view of a finished batch.
type BatchOutput struct {
	Results []BatchResult `json:"results"`
	Total   int           `json:"total"`  // Non-blank data rows read
	Failed  int           `json:"failed"` // Rows that produced an error
	Ranked  bool          `json:"ranked"` // Results are sorted by descending risk
}

// EnrichBatchResults enriches the successful rows of a batch, keeping each
// row's position in the input file.
func EnrichBatchResults(results []BatchResult) []EnrichedPrediction {
	var output []EnrichedPrediction
	for _, res := range results {
		if res.Prediction == nil {
			continue
		}
		output = append(output, EnrichedPrediction{
			Row:        res.Row,
			RiskLabel:  RiskLabel(*res.Prediction),
			RiskScore:  res.Prediction.RiskScore() * 100,
			Prediction: *res.Prediction,
		})
	}
	return output
}
