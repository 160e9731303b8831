package cmd

import (
	"github.com/pancstage/pancstage/core"
	"github.com/pancstage/pancstage/internal/contract"
	"github.com/spf13/cobra"
)

// profileCmd prints the clinical profile in effect.
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the risk weights, survival table and recommendations in effect",
	Long: `Print the clinical profile after config file overrides are applied.

Override any value under a "profile:" section in .pancstage.yaml, e.g.

  profile:
    ca19_9:
      weight: 0.4
      max: 1200
    survival_discount: 0.3
    base_survival_months:
      stage_2: 14`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteProfile(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot print clinical profile", err)
		}
	},
}
