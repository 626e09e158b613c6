package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"radbench/internal/storage"
)

func setupMCPDeps(t *testing.T) MCPDeps {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return MCPDeps{Store: store}
}

func callTool(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

func TestMCPCreateAndListScenarios(t *testing.T) {
	deps := setupMCPDeps(t)

	res, err := mcpCreateScenario(deps)(context.Background(), callTool(map[string]any{
		"name":        "dictionary smoke test",
		"description": "loads vendor dictionaries",
		"tags":        []any{"smoke"},
	}))
	if err != nil {
		t.Fatalf("create_scenario: %v", err)
	}
	if res.IsError {
		t.Fatalf("create_scenario returned error: %s", textOf(t, res))
	}

	res, err = mcpListScenarios(deps)(context.Background(), callTool(map[string]any{
		"search": "dictionary",
	}))
	if err != nil {
		t.Fatalf("list_scenarios: %v", err)
	}
	if res.IsError {
		t.Fatalf("list_scenarios returned error: %s", textOf(t, res))
	}

	var scenarios []Scenario
	if err := json.Unmarshal([]byte(textOf(t, res)), &scenarios); err != nil {
		t.Fatalf("parsing list result: %v", err)
	}
	if len(scenarios) != 1 {
		t.Fatalf("got %d scenarios, want 1", len(scenarios))
	}
	if scenarios[0].Name != "dictionary smoke test" {
		t.Errorf("name = %q", scenarios[0].Name)
	}
	if len(scenarios[0].Tags) != 1 || scenarios[0].Tags[0] != "smoke" {
		t.Errorf("tags = %v, want [smoke]", scenarios[0].Tags)
	}
}

func TestMCPCreateScenarioRequiresName(t *testing.T) {
	deps := setupMCPDeps(t)

	res, err := mcpCreateScenario(deps)(context.Background(), callTool(map[string]any{}))
	if err != nil {
		t.Fatalf("create_scenario: %v", err)
	}
	if !res.IsError {
		t.Error("expected tool error for missing name")
	}
}

func TestMCPLogInteraction(t *testing.T) {
	deps := setupMCPDeps(t)

	res, err := mcpLogInteraction(deps)(context.Background(), callTool(map[string]any{
		"kind":  "explain",
		"input": "why does step 3 time out",
	}))
	if err != nil {
		t.Fatalf("log_interaction: %v", err)
	}
	if res.IsError {
		t.Fatalf("log_interaction returned error: %s", textOf(t, res))
	}

	records, err := deps.Store.ListInteractions(storage.ListOptions{})
	if err != nil {
		t.Fatalf("ListInteractions: %v", err)
	}
	if len(records) != 1 || records[0].Kind != "explain" {
		t.Errorf("stored records = %+v", records)
	}
}

func TestMCPLogInteractionRejectsBadKind(t *testing.T) {
	deps := setupMCPDeps(t)

	res, err := mcpLogInteraction(deps)(context.Background(), callTool(map[string]any{
		"kind":  "summarize",
		"input": "x",
	}))
	if err != nil {
		t.Fatalf("log_interaction: %v", err)
	}
	if !res.IsError {
		t.Error("expected tool error for invalid kind")
	}

	records, err := deps.Store.ListInteractions(storage.ListOptions{})
	if err != nil {
		t.Fatalf("ListInteractions: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("store has %d interactions, want 0", len(records))
	}
}

func TestMCPRecentInteractionsResource(t *testing.T) {
	deps := setupMCPDeps(t)

	longInput := strings.Repeat("x", 300)
	err := deps.Store.SaveInteraction(storage.Interaction{
		ID: "int-1", Kind: "generate", Input: longInput, CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("SaveInteraction: %v", err)
	}

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "radbench://interactions/recent"
	contents, err := mcpResourceRecentInteractions(deps)(context.Background(), req)
	if err != nil {
		t.Fatalf("resource handler: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents are %T, want TextResourceContents", contents[0])
	}

	var summaries []struct {
		ID    string `json:"id"`
		Input string `json:"input"`
	}
	if err := json.Unmarshal([]byte(text.Text), &summaries); err != nil {
		t.Fatalf("parsing resource payload: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(summaries))
	}
	if len(summaries[0].Input) >= 300 {
		t.Errorf("input not truncated: %d chars", len(summaries[0].Input))
	}
}
