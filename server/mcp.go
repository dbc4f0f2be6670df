package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/saudraja/ollama-ai-scrapper/kit"
	"github.com/saudraja/ollama-ai-scrapper/scraper"
	"github.com/saudraja/ollama-ai-scrapper/strategy"
)

// RegisterMCP registers the scrapper tools on an MCP server.
func (s *Server) RegisterMCP(srv *mcp.Server) {
	s.registerGetQuotesTool(srv)
	s.registerKBLookupTool(srv)
	s.registerKBInsertTool(srv)
	s.registerKBStatsTool(srv)
	if s.audit != nil {
		s.registerAuditRecentTool(srv)
	}
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// --- get_quotes ---

type getQuotesRequest struct {
	Provider string `json:"provider"`
	scraper.SearchRequest
}

func (s *Server) registerGetQuotesTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "scrapper_get_quotes",
		Description: "Scrape truck rental quotes from a provider site. Returns priced quotes per truck class.",
		InputSchema: inputSchema(map[string]any{
			"provider":     map[string]any{"type": "string", "description": "Provider name (e.g. penske)"},
			"pickup_zip":   map[string]any{"type": "string", "description": "Pickup ZIP code"},
			"dropoff_zip":  map[string]any{"type": "string", "description": "Dropoff ZIP code"},
			"pickup_date":  map[string]any{"type": "string", "description": "Pickup date, RFC 3339"},
			"dropoff_date": map[string]any{"type": "string", "description": "Dropoff date, RFC 3339"},
			"truck":        map[string]any{"type": "string", "description": "Preferred truck class (e.g. '16 ft Truck')"},
		}, []string{"provider", "pickup_zip", "dropoff_zip", "pickup_date", "dropoff_date"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*getQuotesRequest)
		if err := r.Validate(); err != nil {
			return nil, err
		}
		return s.adapter.ScrapeQuotes(ctx, r.Provider, &r.SearchRequest)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r getQuotesRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- kb_lookup ---

type kbLookupRequest struct {
	Provider string `json:"provider"`
	Field    string `json:"field"`
}

func (s *Server) registerKBLookupTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "scrapper_kb_lookup",
		Description: "List the known locator strategies for a provider field, best first.",
		InputSchema: inputSchema(map[string]any{
			"provider": map[string]any{"type": "string", "description": "Provider name"},
			"field":    map[string]any{"type": "string", "description": "Logical field name (e.g. pickup_input)"},
		}, []string{"provider", "field"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*kbLookupRequest)
		return map[string]any{
			"provider":   r.Provider,
			"field":      r.Field,
			"strategies": s.kb.Lookup(r.Provider, r.Field),
		}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r kbLookupRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- kb_insert ---

type kbInsertRequest struct {
	Provider string            `json:"provider"`
	Field    string            `json:"field"`
	Kind     string            `json:"kind"`
	Params   map[string]string `json:"params"`
	Priority int               `json:"priority"`
}

func (s *Server) registerKBInsertTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "scrapper_kb_insert",
		Description: "Insert a locator strategy for a provider field at the given priority (0 = tried first).",
		InputSchema: inputSchema(map[string]any{
			"provider": map[string]any{"type": "string", "description": "Provider name"},
			"field":    map[string]any{"type": "string", "description": "Logical field name"},
			"kind":     map[string]any{"type": "string", "enum": []any{"css", "xpath", "role", "placeholder", "label", "text", "testid"}, "description": "Locator kind"},
			"params":   map[string]any{"type": "object", "description": "Kind-specific parameters (e.g. {\"selector\": \"#zip\"})"},
			"priority": map[string]any{"type": "integer", "description": "Insertion index (default 0)"},
		}, []string{"provider", "field", "kind", "params"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*kbInsertRequest)
		st := &strategy.Strategy{Kind: strategy.Kind(r.Kind), Params: r.Params}
		if err := st.Validate(); err != nil {
			return nil, err
		}
		if err := s.kb.InsertStrategy(r.Provider, r.Field, st, r.Priority); err != nil {
			return nil, err
		}
		if err := s.kb.Persist(); err != nil {
			return nil, fmt.Errorf("persist: %w", err)
		}
		return map[string]any{
			"inserted":   st,
			"strategies": len(s.kb.Lookup(r.Provider, r.Field)),
		}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r kbInsertRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- kb_stats ---

func (s *Server) registerKBStatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "scrapper_kb_stats",
		Description: "Aggregate knowledge base counts: keys, strategies, successes, failures.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		stats := s.kb.Stats()
		return map[string]any{
			"keys":       s.kb.Keys(),
			"strategies": stats.Strategies,
			"successes":  stats.Successes,
			"failures":   stats.Failures,
		}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- audit_recent ---

type auditRecentRequest struct {
	Provider string `json:"provider"`
	Field    string `json:"field,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

func (s *Server) registerAuditRecentTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "scrapper_audit_recent",
		Description: "Recent resolution attempts for a provider, newest first.",
		InputSchema: inputSchema(map[string]any{
			"provider": map[string]any{"type": "string", "description": "Provider name"},
			"field":    map[string]any{"type": "string", "description": "Optional field filter"},
			"limit":    map[string]any{"type": "integer", "description": "Max entries (default 50)"},
		}, []string{"provider"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*auditRecentRequest)
		limit := r.Limit
		if limit <= 0 {
			limit = 50
		}
		return s.audit.Recent(ctx, r.Provider, r.Field, limit)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r auditRecentRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
