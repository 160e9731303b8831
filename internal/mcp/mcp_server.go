// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pancstage/pancstage/core"
	"github.com/pancstage/pancstage/internal/contract"
	"github.com/pancstage/pancstage/schema"
)

// stageNames lists the stage labels accepted by tool arguments.
func stageNames() []string {
	names := make([]string, len(schema.AllStages))
	for i, s := range schema.AllStages {
		names[i] = string(s)
	}
	return names
}

// NewMCPServer initializes and configures the pancstage MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, est *core.Estimator, mgr contract.StoreManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Pancreatic Cancer Stage Estimator",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		est:     est,
		mgr:     mgr,
	}

	// --- 1. Tool: predict_stage ---
	s.AddTool(mcp.NewTool("predict_stage",
		mcp.WithDescription("Estimate cancer stage, lab risk, personalized survival and care recommendations from a lab panel."),
		mcp.WithNumber(argCA199, mcp.Description("CA19-9 in U/mL."), mcp.Required()),
		mcp.WithNumber(argTotalBilirubin, mcp.Description("Total bilirubin in mg/dL."), mcp.Required()),
		mcp.WithNumber(argALP, mcp.Description("Alkaline phosphatase in U/L."), mcp.Required()),
		mcp.WithNumber(argAlbumin, mcp.Description("Serum albumin in g/dL."), mcp.Required()),
		mcp.WithNumber(argNLR, mcp.Description("Neutrophil-to-lymphocyte ratio."), mcp.Required()),
		mcp.WithNumber(argAge, mcp.Description("Age in whole years."), mcp.Required()),
	), h.handlePredictStage)

	// --- 2. Tool: compute_risk ---
	s.AddTool(mcp.NewTool("compute_risk",
		mcp.WithDescription("Compute the lab-based risk score in [0,1] with its per-term breakdown."),
		mcp.WithNumber(argCA199, mcp.Description("CA19-9 in U/mL."), mcp.Required()),
		mcp.WithNumber(argNLR, mcp.Description("Neutrophil-to-lymphocyte ratio."), mcp.Required()),
		mcp.WithNumber(argAlbumin, mcp.Description("Serum albumin in g/dL."), mcp.Required()),
		mcp.WithNumber(argAge, mcp.Description("Age in whole years."), mcp.Required()),
	), h.handleComputeRisk)

	// --- 3. Tool: project_survival ---
	s.AddTool(mcp.NewTool("project_survival",
		mcp.WithDescription("Project personalized survival for a stage and risk score."),
		mcp.WithString(argStage, mcp.Description("Predicted stage."), mcp.Enum(stageNames()...), mcp.Required()),
		mcp.WithNumber(argRisk, mcp.Description("Risk score in [0,1]. Ignored for Normal.")),
	), h.handleProjectSurvival)

	// --- 4. Tool: get_recommendations ---
	s.AddTool(mcp.NewTool("get_recommendations",
		mcp.WithDescription("List the care recommendations for a stage."),
		mcp.WithString(argStage, mcp.Description("Predicted stage."), mcp.Enum(stageNames()...), mcp.Required()),
	), h.handleGetRecommendations)

	return s
}

// StartMCPServer starts the pancstage MCP server over stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, est *core.Estimator, mgr contract.StoreManager) error {
	s := NewMCPServer(baseCfg, est, mgr)
	return server.ServeStdio(s)
}
