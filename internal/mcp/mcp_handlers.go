package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/huangsam/tqi/core"
	"github.com/huangsam/tqi/core/model"
	"github.com/huangsam/tqi/internal/contract"
	"github.com/huangsam/tqi/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
}

// evaluationResponse is the payload of evaluate_project.
type evaluationResponse struct {
	*schema.ProjectResult
	Weakest []schema.EnrichedNodeScore `json:"weakest"`
}

// modelResponse is the payload of describe_model.
type modelResponse struct {
	Name       string                  `json:"name"`
	Calibrated bool                    `json:"calibrated"`
	Counts     map[schema.NodeKind]int `json:"counts"`
	Nodes      []model.NodeDocument    `json:"nodes"`
}

func (h *toolHandler) handleEvaluateProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if p := request.GetString("project_path", ""); p != "" {
		cfg.ProjectPath = p
	}
	if m := request.GetString("model_path", ""); m != "" {
		cfg.ModelPath = m
	}
	if l := request.GetInt("limit", 0); l > 0 {
		cfg.ResultLimit = l
	}
	if cfg.ProjectPath == "" {
		return mcp.NewToolResultError("project_path is required"), nil
	}
	if cfg.ModelPath == "" {
		return mcp.NewToolResultError("model_path is required"), nil
	}

	result, err := core.EvaluateQuiet(ctx, cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("evaluation failed: %v", err)), nil
	}

	resp := evaluationResponse{
		ProjectResult: result,
		Weakest:       core.WeakestMeasures(*result, cfg.ResultLimit),
	}
	jsonData, _ := json.MarshalIndent(resp, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleDescribeModel(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("model_path", "")
	if path == "" {
		path = h.baseCfg.ModelPath
	}
	if path == "" {
		path = h.baseCfg.DescriptionPath
	}
	if path == "" {
		return mcp.NewToolResultError("model_path is required"), nil
	}

	doc, err := model.ReadDocument(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reading model failed: %v", err)), nil
	}
	desc, err := doc.Description()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid model: %v", err)), nil
	}
	_, calErr := doc.Model()

	resp := modelResponse{
		Name:       doc.Name,
		Calibrated: calErr == nil,
		Counts:     model.Summary(desc),
		Nodes:      doc.Nodes,
	}
	jsonData, _ := json.MarshalIndent(resp, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
