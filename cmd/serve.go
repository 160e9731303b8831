package cmd

import (
	"os/signal"
	"syscall"

	"github.com/pancstage/pancstage/core"
	"github.com/pancstage/pancstage/internal/httpapi"
	"github.com/spf13/cobra"
)

// serveCmd runs the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stage estimates over HTTP",
	Long: `Start an HTTP API with the loaded model.

Routes:
  GET  /health
  GET  /api/v1/profile
  POST /api/v1/predictions   JSON body with the six lab values

Errors map to 400 (invalid input), 422 (unknown stage) and 503 (model unavailable).
Every response carries an X-Request-ID header, echoed from the request when present.

Examples:
  pancstage serve --listen :9090
  curl -s localhost:9090/api/v1/predictions -d '{"CA19_9":500,"Total_Bilirubin":1.2,"ALP":120,"Albumin":3.5,"NLR":4,"Age":55}'`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		est, closer, err := core.LoadEstimator(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = closer.Close() }()

		ctx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return httpapi.Serve(ctx, cfg, est, storeManager)
	},
}
