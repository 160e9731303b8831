package cmd

import (
	"fmt"

	"github.com/pancstage/pancstage/core"
	"github.com/pancstage/pancstage/internal/contract"
	"github.com/pancstage/pancstage/schema"
	"github.com/spf13/cobra"
)

// labFlags maps command-line flags to lab panel fields.
var labFlags = []struct {
	flag  string
	field string
	usage string
}{
	{"ca19-9", schema.FieldCA199, "CA19-9 in U/mL"},
	{"total-bilirubin", schema.FieldTotalBilirubin, "Total bilirubin in mg/dL"},
	{"alp", schema.FieldALP, "Alkaline phosphatase in U/L"},
	{"albumin", schema.FieldAlbumin, "Serum albumin in g/dL"},
	{"nlr", schema.FieldNLR, "Neutrophil-to-lymphocyte ratio"},
	{"age", schema.FieldAge, "Age in whole years"},
}

// labFields collects the lab flag values of cmd as panel fields.
// Unset flags are left out so the panel parser reports them as required.
func labFields(cmd *cobra.Command) (map[string]string, error) {
	fields := make(map[string]string, len(labFlags))
	for _, lf := range labFlags {
		if !cmd.Flags().Changed(lf.flag) {
			continue
		}
		value, err := cmd.Flags().GetString(lf.flag)
		if err != nil {
			return nil, fmt.Errorf("failed to read --%s: %w", lf.flag, err)
		}
		fields[lf.field] = value
	}
	return fields, nil
}

// predictCmd estimates a single lab panel.
var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Estimate stage, risk, survival and recommendations for one lab panel",
	Long: `Classify one lab panel into a cancer stage and report the lab risk score,
personalized survival estimate and care recommendations.

Every lab value is required. Risk is only computed for Stage 1-3; Normal
panels report "No cancer detected" without a risk score.

Examples:
  # Reference panel
  pancstage predict --ca19-9 500 --total-bilirubin 1.2 --alp 120 --albumin 3.5 --nlr 4 --age 55

  # Show how each lab term moved the risk score
  pancstage predict --ca19-9 500 --total-bilirubin 1.2 --alp 120 --albumin 3.5 --nlr 4 --age 55 --explain

  # Machine-readable output
  pancstage predict ... --output json`,
	PreRunE: sharedSetupWrapper,
	Run: func(cmd *cobra.Command, _ []string) {
		fields, err := labFields(cmd)
		if err != nil {
			contract.LogFatal("Invalid lab flags", err)
		}
		if err := core.ExecutePredict(rootCtx, cfg, storeManager, fields); err != nil {
			contract.LogFatal("Cannot run prediction", err)
		}
	},
}
