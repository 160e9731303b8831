package cmd

import (
	"github.com/pancstage/pancstage/core"
	"github.com/pancstage/pancstage/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the pancstage MCP server",
	Long:  `Launch an MCP server over stdio that lets AI agents estimate stages, risk, survival and recommendations via standard tools.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Stdout carries the protocol, so setup must not print to it.
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		est, closer, err := core.LoadEstimator(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = closer.Close() }()
		return mcp.StartMCPServer(rootCtx, cfg, est, storeManager)
	},
}
