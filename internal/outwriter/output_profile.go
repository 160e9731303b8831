package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/pancstage/pancstage/internal/contract"
	"github.com/pancstage/pancstage/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// profileTermNames are the display names of each risk term.
var profileTermNames = map[schema.BreakdownKey]string{
	schema.BreakdownCA199:   "CA19-9 (tumor burden)",
	schema.BreakdownNLR:     "NLR (inflammation)",
	schema.BreakdownAge:     "Age",
	schema.BreakdownAlbumin: "Albumin (nutrition, protective)",
}

// PrintProfile displays the clinical profile the estimator runs with.
// This is a static display that does not require a model.
func PrintProfile(profile *schema.ClinicalProfile, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, profile)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeProfileCSV(w, profile)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is not supported for the clinical profile")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeProfileText(w, profile, cfg)
		}, "Wrote text")
	}
}

// formatRiskFormula renders the weighted sum the risk scorer evaluates.
func formatRiskFormula(profile *schema.ClinicalProfile) string {
	var parts []string
	for _, key := range schema.RiskTerms {
		weight := profile.Weights[key]
		if weight == 0 {
			continue
		}
		sign := "+"
		if weight < 0 {
			sign = "-"
		}
		if len(parts) == 0 && sign == "+" {
			parts = append(parts, fmt.Sprintf("%.2f*%s", weight, key))
			continue
		}
		if weight < 0 {
			weight = -weight
		}
		parts = append(parts, fmt.Sprintf("%s %.2f*%s", sign, weight, key))
	}
	return "Risk = clamp(" + strings.Join(parts, " ") + ", 0, 1)"
}

// writeProfileText displays the profile in human-readable text format.
func writeProfileText(w io.Writer, profile *schema.ClinicalProfile, cfg *contract.Config) error {
	heading := title("🧪", "Clinical Profile", cfg)
	if _, err := fmt.Fprintf(w, "%s\n%s\n\n", heading, strings.Repeat("=", len([]rune(heading)))); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s\n", formatRiskFormula(profile)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "Each term is normalized linearly into [0,1] over its range."); err != nil {
		return err
	}

	terms := tablewriter.NewWriter(w)
	terms.Header([]string{"Term", "Weight", "Min", "Max"})
	terms.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.Global = tw.AlignRight
	})
	var termRows [][]string
	for _, key := range schema.RiskTerms {
		r := profile.Ranges[key]
		termRows = append(termRows, []string{
			profileTermNames[key],
			fmt.Sprintf("%+.2f", profile.Weights[key]),
			fmt.Sprintf("%g", r.Min),
			fmt.Sprintf("%g", r.Max),
		})
	}
	if err := terms.Bulk(termRows); err != nil {
		return err
	}
	if err := terms.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "\nSurvival = base * (1 - %.2f * risk), reported in years from %g months\n",
		profile.SurvivalDiscount, profile.YearThresholdMonths); err != nil {
		return err
	}

	for _, stage := range schema.AllStages {
		base := "no cancer"
		if months := profile.BaseSurvivalMonths[stage]; months != nil {
			base = fmt.Sprintf("%g months base survival", *months)
		}
		if _, err := fmt.Fprintf(w, "\n%s: %s\n", contract.GetStageLabel(stage, cfg.UseColors), base); err != nil {
			return err
		}
		for _, line := range profile.Recommendations[stage] {
			if _, err := fmt.Fprintf(w, "   %s%s\n", schema.RecommendationBullet, line); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeProfileCSV flattens the profile into section,name,field,value records.
func writeProfileCSV(w io.Writer, profile *schema.ClinicalProfile) error {
	return writeCSVWithHeader(w, []string{"section", "name", "field", "value"}, func(cw *csv.Writer) error {
		var records [][]string
		for _, key := range schema.RiskTerms {
			r := profile.Ranges[key]
			records = append(records,
				[]string{"term", string(key), "weight", fmt.Sprintf("%g", profile.Weights[key])},
				[]string{"term", string(key), "min", fmt.Sprintf("%g", r.Min)},
				[]string{"term", string(key), "max", fmt.Sprintf("%g", r.Max)},
			)
		}
		records = append(records,
			[]string{"survival", "", "discount", fmt.Sprintf("%g", profile.SurvivalDiscount)},
			[]string{"survival", "", "year_threshold_months", fmt.Sprintf("%g", profile.YearThresholdMonths)},
		)
		for _, stage := range schema.AllStages {
			base := ""
			if months := profile.BaseSurvivalMonths[stage]; months != nil {
				base = fmt.Sprintf("%g", *months)
			}
			records = append(records,
				[]string{"stage", string(stage), "base_survival_months", base},
				[]string{"stage", string(stage), "recommendations", strings.Join(profile.Recommendations[stage], "|")},
			)
		}
		return cw.WriteAll(records)
	})
}
