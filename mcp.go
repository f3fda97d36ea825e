package domheal

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/domheal/internal/store"
	"github.com/hazyhaar/domheal/kit"
)

// RegisterMCP registers domheal tools on an MCP server.
func (h *Healer) RegisterMCP(srv *mcp.Server) {
	h.registerSaveSnapshotTool(srv)
	h.registerHealTool(srv)
	h.registerHistoryTool(srv)
	h.registerStatsTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- save_snapshot ---

type saveSnapshotToolRequest struct {
	URL       string `json:"url"`
	DOMData   string `json:"dom_data"`
	PageTitle string `json:"page_title,omitempty"`
	Metadata  string `json:"metadata,omitempty"`
}

func (h *Healer) registerSaveSnapshotTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domheal_save_snapshot",
		Description: "Store a structural DOM snapshot for a page URL. Duplicate payloads are skipped; one snapshot is kept per retention bucket.",
		InputSchema: inputSchema(map[string]any{
			"url":        map[string]any{"type": "string", "description": "Page URL (query string is stripped for storage)"},
			"dom_data":   map[string]any{"type": "string", "description": "Serialized HTML or a metadata element inventory"},
			"page_title": map[string]any{"type": "string", "description": "Optional page title"},
			"metadata":   map[string]any{"type": "string", "description": "Optional structured side-channel JSON"},
		}, []string{"url", "dom_data"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*saveSnapshotToolRequest)
		return h.store.Save(ctx, store.SaveInput{
			URL:       r.URL,
			DOM:       r.DOMData,
			PageTitle: r.PageTitle,
			Metadata:  r.Metadata,
		})
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r saveSnapshotToolRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- heal ---

type healToolRequest struct {
	FailedLocator string `json:"failed_locator"`
	LocatorType   string `json:"locator_type,omitempty"`
	PageURL       string `json:"page_url"`
	SnapshotID    string `json:"snapshot_id,omitempty"`
	CurrentDOM    string `json:"current_dom,omitempty"`
}

func (h *Healer) registerHealTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domheal_heal",
		Description: "Repair a broken UI-test locator using stored DOM snapshots and an optional current DOM. Returns ranked replacement candidates.",
		InputSchema: inputSchema(map[string]any{
			"failed_locator": map[string]any{"type": "string", "description": "The locator expression that no longer matches"},
			"locator_type":   map[string]any{"type": "string", "enum": []any{"playwright", "selenium", "css", "text"}, "description": "Dialect for generated locators (default: css)"},
			"page_url":       map[string]any{"type": "string", "description": "URL of the page the locator targets"},
			"snapshot_id":    map[string]any{"type": "string", "description": "Optional: heal against one specific snapshot"},
			"current_dom":    map[string]any{"type": "string", "description": "Optional: serialized current page for live verification"},
		}, []string{"failed_locator", "page_url"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*healToolRequest)
		return h.Heal(ctx, HealRequest{
			FailedLocator: r.FailedLocator,
			Dialect:       Dialect(r.LocatorType),
			PageURL:       r.PageURL,
			SnapshotID:    r.SnapshotID,
			CurrentDOM:    r.CurrentDOM,
		})
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r healToolRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- history ---

type historyToolRequest struct {
	TestScriptID string `json:"test_script_id,omitempty"`
	TestCaseID   string `json:"test_case_id,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

func (h *Healer) registerHistoryTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domheal_history",
		Description: "List recorded healing outcomes, newest first.",
		InputSchema: inputSchema(map[string]any{
			"test_script_id": map[string]any{"type": "string", "description": "Filter by test script"},
			"test_case_id":   map[string]any{"type": "string", "description": "Filter by test case"},
			"limit":          map[string]any{"type": "integer", "description": "Max records (default 50)"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*historyToolRequest)
		return h.store.HealingHistory(ctx, store.HealingFilter{
			TestScriptID: r.TestScriptID,
			TestCaseID:   r.TestCaseID,
			Limit:        r.Limit,
		})
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r historyToolRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- stats ---

type statsToolRequest struct{}

func (h *Healer) registerStatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domheal_stats",
		Description: "Snapshot store statistics: counts, unique URLs, pending expiries, healing records.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		return h.store.SnapshotStats(ctx)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r statsToolRequest
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
