package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"radbench/internal/codec"
	"radbench/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store *storage.Store
}

// NewMCPServer creates an MCP server exposing radbench scenarios and
// interaction logs as tools and resources.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"radbench",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("radbench — RADIUS test bench console: scenario definitions and AI interaction logs."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_scenarios",
			mcp.WithDescription("List test scenarios, optionally filtered by a substring search over name, description, and tags."),
			mcp.WithString("search", mcp.Description("Substring to match against name, description, and tags")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
		),
		mcpListScenarios(deps),
	)

	s.AddTool(
		mcp.NewTool("create_scenario",
			mcp.WithDescription("Create a new test scenario definition."),
			mcp.WithString("name", mcp.Description("Scenario name"), mcp.Required()),
			mcp.WithString("description", mcp.Description("What the scenario exercises")),
			mcp.WithArray("tags", mcp.Description("Optional tags for categorization")),
		),
		mcpCreateScenario(deps),
	)

	s.AddTool(
		mcp.NewTool("log_interaction",
			mcp.WithDescription("Record an AI assistant interaction (request and response payloads)."),
			mcp.WithString("kind", mcp.Description("Interaction kind: 'generate' or 'explain'"), mcp.Required()),
			mcp.WithString("input", mcp.Description("Encoded request payload"), mcp.Required()),
			mcp.WithString("output", mcp.Description("Encoded response payload")),
		),
		mcpLogInteraction(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"radbench://interactions/recent",
			"Recent Interactions",
			mcp.WithResourceDescription("Last 10 recorded AI interactions (summaries only)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecentInteractions(deps),
	)

	return s
}

func mcpListScenarios(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		search := req.GetString("search", "")

		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}

		records, err := deps.Store.ListScenarios(storage.ListOptions{
			Limit:  limit,
			SortBy: "lastModified",
			Search: search,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list scenarios: %v", err)), nil
		}

		results := make([]Scenario, 0, len(records))
		for _, rec := range records {
			sc, err := scenarioResponse(rec)
			if err != nil {
				return mcpError(fmt.Sprintf("failed to decode scenario %s: %v", rec.ID, err)), nil
			}
			results = append(results, sc)
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpCreateScenario(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}

		description := req.GetString("description", "")
		tags := req.GetStringSlice("tags", nil)

		tagsJSON, err := codec.EncodeSeq(tags)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to encode tags: %v", err)), nil
		}

		rec := storage.Scenario{
			ID:          uuid.New().String(),
			Name:        name,
			Description: description,
			Variables:   "[]",
			Steps:       "[]",
			Tags:        tagsJSON,
			UpdatedAt:   time.Now().UTC(),
		}
		if err := deps.Store.SaveScenario(rec); err != nil {
			return mcpError(fmt.Sprintf("failed to save scenario: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Created scenario %s", rec.ID)), nil
	}
}

func mcpLogInteraction(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		kind, err := req.RequireString("kind")
		if err != nil {
			return mcpError("kind is required"), nil
		}
		if kind != storage.InteractionKindGenerate && kind != storage.InteractionKindExplain {
			return mcpError(fmt.Sprintf("kind must be %q or %q", storage.InteractionKindGenerate, storage.InteractionKindExplain)), nil
		}
		input, err := req.RequireString("input")
		if err != nil {
			return mcpError("input is required"), nil
		}
		output := req.GetString("output", "")

		rec := storage.Interaction{
			ID:        uuid.New().String(),
			Kind:      kind,
			Input:     input,
			Output:    output,
			CreatedAt: time.Now().UTC(),
		}
		if err := deps.Store.SaveInteraction(rec); err != nil {
			return mcpError(fmt.Sprintf("failed to save interaction: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Logged interaction %s", rec.ID)), nil
	}
}

func mcpResourceRecentInteractions(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		records, err := deps.Store.ListInteractions(storage.ListOptions{Limit: 10, SortBy: "timestamp"})
		if err != nil {
			return nil, fmt.Errorf("failed to list interactions: %w", err)
		}

		type interactionSummary struct {
			ID        string `json:"id"`
			Kind      string `json:"kind"`
			CreatedAt string `json:"created_at"`
			Input     string `json:"input"`
		}

		summaries := make([]interactionSummary, len(records))
		for i, rec := range records {
			input := rec.Input
			if utf8.RuneCountInString(input) > 200 {
				runes := []rune(input)
				input = string(runes[:200]) + "..."
			}
			summaries[i] = interactionSummary{
				ID:        rec.ID,
				Kind:      rec.Kind,
				CreatedAt: rec.CreatedAt.Format(time.RFC3339),
				Input:     input,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal interactions: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
