package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pancstage/pancstage/core"
	"github.com/pancstage/pancstage/core/algo"
	"github.com/pancstage/pancstage/internal/contract"
	"github.com/pancstage/pancstage/schema"
)

// Tool argument names.
const (
	argCA199          = "ca19_9"
	argTotalBilirubin = "total_bilirubin"
	argALP            = "alp"
	argAlbumin        = "albumin"
	argNLR            = "nlr"
	argAge            = "age"
	argStage          = "stage"
	argRisk           = "risk"
)

// panelArgs maps tool arguments to lab panel field names.
var panelArgs = []struct{ arg, field string }{
	{argCA199, schema.FieldCA199},
	{argTotalBilirubin, schema.FieldTotalBilirubin},
	{argALP, schema.FieldALP},
	{argAlbumin, schema.FieldAlbumin},
	{argNLR, schema.FieldNLR},
	{argAge, schema.FieldAge},
}

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	est     *core.Estimator
	mgr     contract.StoreManager
}

// argText returns a numeric or string argument as text, or "" when absent.
func argText(request mcp.CallToolRequest, key string) string {
	switch v := request.GetArguments()[key].(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case string:
		return strings.TrimSpace(v)
	default:
		return ""
	}
}

// requireNumber returns a finite numeric argument.
func requireNumber(request mcp.CallToolRequest, key string) (float64, error) {
	text := argText(request, key)
	if text == "" {
		return 0, fmt.Errorf("%w: %s is required", schema.ErrInvalidInput, key)
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s %q is not a number", schema.ErrInvalidInput, key, text)
	}
	return v, nil
}

// jsonResult marshals v as the text of a tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handlePredictStage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.est == nil {
		return mcp.NewToolResultError(schema.ErrModelUnavailable.Error()), nil
	}

	fields := make(map[string]string, len(panelArgs))
	for _, p := range panelArgs {
		fields[p.field] = argText(request, p.arg)
	}

	pred, err := core.RunPredict(ctx, h.baseCfg, h.mgr, h.est, fields, "mcp")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("prediction failed: %v", err)), nil
	}
	return jsonResult(schema.EnrichPredictions([]schema.Prediction{*pred})[0])
}

func (h *toolHandler) handleComputeRisk(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var vals [4]float64
	for i, key := range []string{argCA199, argNLR, argAlbumin, argAge} {
		v, err := requireNumber(request, key)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid risk parameters: %v", err)), nil
		}
		vals[i] = v
	}
	if vals[3] != math.Trunc(vals[3]) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid risk parameters: %v: age must be a whole number", schema.ErrInvalidInput)), nil
	}
	if vals[3] < 0 || vals[3] > schema.MaxAge {
		return mcp.NewToolResultError(fmt.Sprintf("invalid risk parameters: %v: age must be between 0 and %d", schema.ErrInvalidInput, schema.MaxAge)), nil
	}

	risk, err := algo.ComputeRisk(h.profile(), vals[0], vals[1], vals[2], int(vals[3]))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("risk computation failed: %v", err)), nil
	}
	return jsonResult(risk)
}

func (h *toolHandler) handleProjectSurvival(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stage, err := schema.ParseStage(request.GetString(argStage, ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid survival parameters: %v", err)), nil
	}

	risk := 0.0
	if argText(request, argRisk) != "" {
		if risk, err = requireNumber(request, argRisk); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid survival parameters: %v", err)), nil
		}
	}

	survival, err := algo.ProjectSurvival(h.profile(), stage, risk)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("survival projection failed: %v", err)), nil
	}
	return jsonResult(survival)
}

func (h *toolHandler) handleGetRecommendations(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stage, err := schema.ParseStage(request.GetString(argStage, ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid recommendation parameters: %v", err)), nil
	}
	recs, err := algo.Recommendations(h.profile(), stage)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("recommendation lookup failed: %v", err)), nil
	}
	return jsonResult(recs)
}

// profile returns the estimator's profile, falling back to the configured one.
func (h *toolHandler) profile() *schema.ClinicalProfile {
	if h.est != nil {
		return h.est.Profile()
	}
	if h.baseCfg != nil && h.baseCfg.Profile != nil {
		return h.baseCfg.Profile
	}
	return schema.DefaultClinicalProfile()
}
