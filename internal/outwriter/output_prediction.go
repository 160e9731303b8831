package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/pancstage/pancstage/internal/contract"
	"github.com/pancstage/pancstage/internal/parquet"
	"github.com/pancstage/pancstage/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

const (
	breakdownMinimum = 0.005
	topNTerms        = 3
)

// predictionHeader is shared by single and batch CSV output.
var predictionHeader = []string{
	"row",
	"ca19_9",
	"total_bilirubin",
	"alp",
	"albumin",
	"nlr",
	"age",
	"stage",
	"risk_score",
	"risk_label",
	"survival_months",
	"survival_text",
	"recommendations",
	"error",
}

// PrintPrediction outputs one prediction, dispatching based on the output format configured.
func PrintPrediction(pred schema.Prediction, cfg *contract.Config) error {
	fmtFloat := createFormatter(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, enrichPrediction(1, pred))
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVWithHeader(w, predictionHeader, func(cw *csv.Writer) error {
				return cw.Write(predictionRecord(1, &pred, "", fmtFloat))
			})
		}, "Wrote CSV")
	case schema.ParquetOut:
		rows := parquet.ConvertBatchResults([]schema.BatchResult{{Row: 1, Prediction: &pred}})
		if err := parquet.WriteBatchParquet(rows, cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
		return nil
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writePredictionText(w, pred, cfg, fmtFloat)
		}, "Wrote text")
	}
}

// enrichPrediction wraps a prediction with its row number and label.
func enrichPrediction(row int, pred schema.Prediction) schema.EnrichedPrediction {
	return schema.EnrichedPrediction{
		Row:        row,
		RiskLabel:  schema.RiskLabel(pred),
		RiskScore:  pred.RiskScore() * 100,
		Prediction: pred,
	}
}

// writePredictionText renders the lab panel, estimate and recommendations.
func writePredictionText(w io.Writer, pred schema.Prediction, cfg *contract.Config, fmtFloat func(float64) string) error {
	if _, err := fmt.Fprintf(w, "%s\n\n", title("🧬", "Pancreatic Cancer Stage Estimate", cfg)); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Field", "Value"})
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.Global = tw.AlignLeft
	})

	p := pred.Panel
	data := [][]string{
		{schema.FieldCA199, fmtFloat(p.CA199)},
		{schema.FieldTotalBilirubin, fmtFloat(p.TotalBilirubin)},
		{schema.FieldALP, fmtFloat(p.ALP)},
		{schema.FieldAlbumin, fmtFloat(p.Albumin)},
		{schema.FieldNLR, fmtFloat(p.NLR)},
		{schema.FieldAge, strconv.Itoa(p.Age)},
		{"Stage", contract.GetStageLabel(pred.Stage, cfg.UseColors)},
		{"Risk Score", riskScoreCell(pred, fmtFloat)},
		{"Risk Label", contract.GetRiskLabel(pred, cfg.UseColors)},
		{"Survival", pred.Survival.Text},
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if cfg.Explain && pred.Risk != nil {
		if err := writeBreakdownTable(w, pred.Risk, fmtFloat); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "\n%s\n", title("🩺", "Recommendations", cfg)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, schema.FormatRecommendations(pred.Recommendations))
	return err
}

// writeBreakdownTable lists each risk term's signed contribution.
func writeBreakdownTable(w io.Writer, risk *schema.RiskAssessment, fmtFloat func(float64) string) error {
	if _, err := fmt.Fprintln(w, "\nRisk breakdown"); err != nil {
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Term", "Contribution"})
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, key := range schema.RiskTerms {
		data = append(data, []string{string(key), fmtFloat(risk.Breakdown[key] * 100)})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// riskScoreCell formats the 0-100 risk score, or "-" when none was computed.
func riskScoreCell(pred schema.Prediction, fmtFloat func(float64) string) string {
	if pred.Risk == nil {
		return "-"
	}
	return fmtFloat(pred.Risk.Score * 100)
}

// formatTopBreakdown lists the risk terms with the largest absolute contribution.
func formatTopBreakdown(risk *schema.RiskAssessment) string {
	if risk == nil {
		return "Not applicable"
	}

	terms := slices.Clone(schema.RiskTerms)
	terms = slices.DeleteFunc(terms, func(k schema.BreakdownKey) bool {
		return math.Abs(risk.Breakdown[k]) < breakdownMinimum
	})
	if len(terms) == 0 {
		return "No meaningful contributors"
	}

	// Stable so ties keep display order.
	slices.SortStableFunc(terms, func(a, b schema.BreakdownKey) int {
		va, vb := math.Abs(risk.Breakdown[a]), math.Abs(risk.Breakdown[b])
		switch {
		case va > vb:
			return -1
		case va < vb:
			return 1
		default:
			return 0
		}
	})

	parts := make([]string, 0, topNTerms)
	for _, k := range terms[:min(len(terms), topNTerms)] {
		sign := "+"
		if risk.Breakdown[k] < 0 {
			sign = "-"
		}
		parts = append(parts, sign+string(k))
	}
	return strings.Join(parts, " > ")
}

// predictionRecord builds one CSV record. A nil prediction yields an error row.
func predictionRecord(row int, pred *schema.Prediction, errMsg string, fmtFloat func(float64) string) []string {
	if pred == nil {
		rec := make([]string, len(predictionHeader))
		rec[0] = strconv.Itoa(row)
		rec[len(rec)-1] = errMsg
		return rec
	}

	p := pred.Panel
	riskScore := ""
	if pred.Risk != nil {
		riskScore = fmtFloat(pred.Risk.Score * 100)
	}
	return []string{
		strconv.Itoa(row),
		fmtFloat(p.CA199),
		fmtFloat(p.TotalBilirubin),
		fmtFloat(p.ALP),
		fmtFloat(p.Albumin),
		fmtFloat(p.NLR),
		strconv.Itoa(p.Age),
		string(pred.Stage),
		riskScore,
		schema.RiskLabel(*pred),
		formatOptional(pred.Survival.Months, fmtFloat),
		pred.Survival.Text,
		strings.Join(pred.Recommendations, "|"),
		"",
	}
}
