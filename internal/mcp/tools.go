package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerTools adds the experiment tools. Input schemas are inferred from
// the params types.
func registerTools(server *sdkmcp.Server, h *Handler) {
	addTool(server, "create_experiment",
		"Define a new experiment with at least two variants and one success metric",
		func(ctx context.Context, tenantID string, p CreateExperimentParams) (any, error) {
			return h.CreateExperiment(ctx, tenantID, p)
		})
	addTool(server, "list_experiments",
		"List experiments newest first with live conversion counts and cached winners",
		func(ctx context.Context, tenantID string, _ ListExperimentsParams) (any, error) {
			return h.ListExperiments(ctx, tenantID)
		})
	addTool(server, "get_experiment",
		"Get an experiment with per-variant results and significance tests against the baseline",
		func(ctx context.Context, tenantID string, p GetExperimentParams) (any, error) {
			return h.GetExperiment(ctx, tenantID, p)
		})
	addTool(server, "assign_participant",
		"Assign a participant identity to a variant; repeated calls for the same identity update the existing row",
		func(ctx context.Context, tenantID string, p AssignParticipantParams) (any, error) {
			return h.AssignParticipant(ctx, tenantID, p)
		})
	addTool(server, "record_conversion",
		"Record a conversion for an assigned participant; re-recording overwrites",
		func(ctx context.Context, tenantID string, p RecordConversionParams) (any, error) {
			return h.RecordConversion(ctx, tenantID, p)
		})
	addTool(server, "update_experiment_status",
		"Move an experiment through its lifecycle; completing caches the suggested winner",
		func(ctx context.Context, tenantID string, p UpdateExperimentStatusParams) (any, error) {
			return h.UpdateExperimentStatus(ctx, tenantID, p)
		})
	addTool(server, "get_experiment_activity",
		"List lifecycle activity for an experiment, newest first",
		func(ctx context.Context, tenantID string, p GetExperimentActivityParams) (any, error) {
			return h.GetExperimentActivity(ctx, tenantID, p)
		})
}

func addTool[In any](server *sdkmcp.Server, name, description string, fn func(context.Context, string, In) (any, error)) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: name, Description: description},
		func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, any, error) {
			out, err := fn(ctx, getTenantID(ctx), in)
			if err != nil {
				return nil, nil, err
			}
			data, err := json.Marshal(out)
			if err != nil {
				return nil, nil, fmt.Errorf("encoding %s result: %w", name, err)
			}
			return &sdkmcp.CallToolResult{
				Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
			}, nil, nil
		})
}
